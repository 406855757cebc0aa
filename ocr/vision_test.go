package ocr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRenderer returns "png-N" as the image of page N.
type fakeRenderer struct {
	err      error
	rendered []int
}

func (f *fakeRenderer) RenderPage(_ context.Context, _ string, page int) ([]byte, error) {
	f.rendered = append(f.rendered, page)
	if f.err != nil {
		return nil, f.err
	}
	return []byte(fmt.Sprintf("png-%d", page)), nil
}

type fakeTranscriber struct {
	pages  map[int]string
	err    error
	seen   []int
	images []string
}

func (f *fakeTranscriber) TranscribePage(_ context.Context, image []byte, page int) (string, error) {
	f.seen = append(f.seen, page)
	f.images = append(f.images, string(image))
	if f.err != nil {
		return "", f.err
	}
	return f.pages[page], nil
}

func newTestVision(t *fakeTranscriber, total, maxPages int) *Vision {
	v := NewVision(ProviderOpenAI, t, VisionConfig{
		MaxPages:          maxPages,
		RequestsPerMinute: 60000,
		Renderer:          &fakeRenderer{},
	}, nil)
	v.pageCount = func(string) (int, error) { return total, nil }
	return v
}

func TestVision_Extract(t *testing.T) {
	ft := &fakeTranscriber{pages: map[int]string{1: "Intro", 2: "  ", 3: "Suite"}}
	v := newTestVision(ft, 3, 0)

	text, err := v.Extract(context.Background(), writePDF(t))
	require.NoError(t, err)
	assert.Equal(t, "<!-- Page 1 -->\nIntro\n\n<!-- Page 3 -->\nSuite", text)
	assert.Equal(t, []int{1, 2, 3}, ft.seen)
	assert.Equal(t, []string{"png-1", "png-2", "png-3"}, ft.images)
	assert.Equal(t, ProviderOpenAI, v.Name())
}

func TestVision_RenderFailure(t *testing.T) {
	ft := &fakeTranscriber{pages: map[int]string{1: "a"}}
	v := newTestVision(ft, 2, 0)
	v.renderer = &fakeRenderer{err: ErrRender}

	_, err := v.Extract(context.Background(), writePDF(t))
	assert.ErrorIs(t, err, ErrRender)
	assert.Empty(t, ft.seen)
}

func TestVision_PageCap(t *testing.T) {
	ft := &fakeTranscriber{pages: map[int]string{1: "a", 2: "b", 3: "c"}}
	v := newTestVision(ft, 30, 2)

	_, err := v.Extract(context.Background(), writePDF(t))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, ft.seen)
}

func TestVision_DefaultCap(t *testing.T) {
	ft := &fakeTranscriber{pages: map[int]string{1: "a"}}
	v := newTestVision(ft, 25, 0)

	_, err := v.Extract(context.Background(), writePDF(t))
	require.NoError(t, err)
	assert.Len(t, ft.seen, DefaultMaxPages)
}

func TestVision_Errors(t *testing.T) {
	ft := &fakeTranscriber{err: errors.New("blocked")}
	_, err := newTestVision(ft, 2, 0).Extract(context.Background(), writePDF(t))
	assert.ErrorContains(t, err, "page 1")

	empty := &fakeTranscriber{}
	_, err = newTestVision(empty, 2, 0).Extract(context.Background(), writePDF(t))
	assert.ErrorIs(t, err, ErrNoText)
}

func TestNewGeminiVision_RequiresKey(t *testing.T) {
	_, err := NewGeminiVision(context.Background(), VisionConfig{}, nil)
	assert.ErrorIs(t, err, ErrAPIKeyRequired)
}

func TestNewOpenAIVision_RequiresKey(t *testing.T) {
	_, err := NewOpenAIVision(VisionConfig{}, nil)
	assert.ErrorIs(t, err, ErrAPIKeyRequired)
}
