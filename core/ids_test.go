package core

import (
	"strconv"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDFromContent_Deterministic(t *testing.T) {
	assert.Equal(t, IDFromContent("hello"), IDFromContent("hello"))
	assert.NotEqual(t, IDFromContent("hello"), IDFromContent("world"))
}

func TestContentKey_SeparatesModels(t *testing.T) {
	assert.NotEqual(t, ContentKey("model-a", "text"), ContentKey("model-b", "text"))
	assert.Equal(t, ContentKey("model-a", "text"), ContentKey("model-a", "text"))
}

func TestNewDocID_TwelveDigits(t *testing.T) {
	for i := 0; i < 200; i++ {
		id := NewDocID()
		require.Len(t, id, 12)
		n, err := strconv.ParseInt(id, 10, 64)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, minDocID)
		assert.LessOrEqual(t, n, maxDocID)
	}
}

func TestChunkID(t *testing.T) {
	assert.Equal(t, "123456789012_3", ChunkID("123456789012", 3))
}

func TestStableUUID(t *testing.T) {
	assert.Equal(t, StableUUID("x"), StableUUID("x"))
	assert.NotEqual(t, StableUUID("x"), StableUUID("y"))

	parsed, err := uuid.Parse(StableUUID("123_1"))
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), parsed.Version())

	// uuid5(NAMESPACE_DNS, "python.org")
	assert.Equal(t, "886313e1-3b8a-5372-9b90-0c9aee199e5d", StableUUID("python.org"))
}
