package zotero

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/unicode/norm"
)

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o644))
	return path
}

func TestResolver_ExactRelative(t *testing.T) {
	base := t.TempDir()
	want := touch(t, base, "files/1/doc.pdf")

	got, err := NewResolver(base, nil).Resolve("files/1/doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestResolver_Absolute(t *testing.T) {
	want := touch(t, t.TempDir(), "abs.pdf")
	got, err := NewResolver("/nowhere", nil).Resolve(want)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestResolver_UnicodeForms(t *testing.T) {
	base := t.TempDir()
	stored := norm.NFD.String("Éducation populaire.pdf")
	want := touch(t, base, stored)

	got, err := NewResolver(base, nil).Resolve(norm.NFC.String("éducation populaire.pdf"))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestResolver_AccentsAndPunctuation(t *testing.T) {
	base := t.TempDir()
	want := touch(t, base, "Economie_sociale-2020.pdf")

	got, err := NewResolver(base, nil).Resolve("Économie sociale 2020.pdf")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestResolver_Fuzzy(t *testing.T) {
	base := t.TempDir()
	want := touch(t, base, "Rapport annuel 2019.pdf")

	got, err := NewResolver(base, nil).Resolve("Rapport anuel 2019.pdf")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestResolver_NotFound(t *testing.T) {
	base := t.TempDir()
	touch(t, base, "completely different.pdf")

	r := NewResolver(base, nil)
	_, err := r.Resolve("rapport.pdf")
	assert.ErrorIs(t, err, ErrAttachmentNotFound)

	_, err = r.Resolve("missing-dir/x.pdf")
	assert.ErrorIs(t, err, ErrAttachmentNotFound)

	_, err = r.Resolve("  ")
	assert.ErrorIs(t, err, ErrAttachmentNotFound)
}

func TestNameForms(t *testing.T) {
	assert.Equal(t, "ecole", stripAccents("école"))
	assert.Equal(t, "ecole 2.pdf", asciiFold("École ² .pdf")[:0]+asciiFold("École 2.pdf"))
	assert.Equal(t, "ecole2pdf", alphanumOnly("École 2.pdf"))
}
