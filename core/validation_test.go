package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateChunk(t *testing.T) {
	tests := []struct {
		name    string
		chunk   *Chunk
		wantErr error
	}{
		{
			name:  "valid chunk",
			chunk: &Chunk{ID: "1_1", DocID: "1", ChunkIndex: 1, TotalChunks: 2},
		},
		{
			name:    "nil chunk",
			chunk:   nil,
			wantErr: ErrInvalidChunk,
		},
		{
			name:    "missing id",
			chunk:   &Chunk{DocID: "1", ChunkIndex: 1, TotalChunks: 1},
			wantErr: ErrEmptyChunkID,
		},
		{
			name:    "missing doc id",
			chunk:   &Chunk{ID: "1_1", ChunkIndex: 1, TotalChunks: 1},
			wantErr: ErrEmptyDocID,
		},
		{
			name:    "zero index",
			chunk:   &Chunk{ID: "1_0", DocID: "1", ChunkIndex: 0, TotalChunks: 1},
			wantErr: ErrInvalidChunkIndex,
		},
		{
			name:    "index past total",
			chunk:   &Chunk{ID: "1_3", DocID: "1", ChunkIndex: 3, TotalChunks: 2},
			wantErr: ErrInvalidChunkIndex,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChunk(tt.chunk)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "expected %v, got %v", tt.wantErr, err)
			assert.True(t, errors.Is(err, ErrInvalidChunk))
		})
	}
}

func TestValidateDocument(t *testing.T) {
	assert.NoError(t, ValidateDocument(&Document{Text: "some text"}))
	assert.ErrorIs(t, ValidateDocument(&Document{Text: "  \n"}), ErrEmptyContent)
	assert.ErrorIs(t, ValidateDocument(nil), ErrInvalidDocument)
}
