package ingestion

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeColumnName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Nom du Client", "nom_du_client"},
		{"Date (création)", "date"},
		{"texteocr", "texteocr"},
		{"  __Weird--Name__ ", "weird_name"},
		{"(x)", "unnamed"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeColumnName(tt.in))
		})
	}
}

func TestDecodeCSV_PipelineColumns(t *testing.T) {
	data := "type,title,authors,date,filename,texteocr,texteocr_provider,doi\n" +
		"article,Titre,\"Doe Jane, Roe Rick\",2020,a.pdf,\"Du texte, long\",mistral,10.1/x\n" +
		"book,Vide,,,b.pdf,,legacy,\n"

	docs, err := DecodeCSV(strings.NewReader(data), DefaultCSVOptions())
	require.NoError(t, err)
	require.Len(t, docs, 1)

	d := docs[0]
	assert.Equal(t, "Du texte, long", d.Text)
	assert.Equal(t, "article", d.Type)
	assert.Equal(t, "Titre", d.Title)
	assert.Equal(t, "Doe Jane, Roe Rick", d.Authors)
	assert.Equal(t, "2020", d.Date)
	assert.Equal(t, "a.pdf", d.Filename)
	assert.Equal(t, "mistral", d.OCRProvider)
	assert.Equal(t, "10.1/x", d.Meta["doi"])
	assert.Equal(t, "0", d.Meta["row_index"])
	assert.Equal(t, "csv", d.SourceType)
	assert.False(t, d.RecodeRequired())
}

func TestDecodeCSV_KeepEmptyRows(t *testing.T) {
	opts := DefaultCSVOptions()
	opts.SkipEmpty = false
	docs, err := DecodeCSV(strings.NewReader("texteocr,title\n,t\nx,u\n"), opts)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestDecodeCSV_CustomTextColumn(t *testing.T) {
	opts := DefaultCSVOptions()
	opts.TextColumn = "Description"
	opts.Delimiter = ';'
	opts.MetaColumns = []string{"Priority"}

	docs, err := DecodeCSV(strings.NewReader("Description;Priority;Owner\nUn ticket;haute;moi\n"), opts)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Un ticket", docs[0].Text)
	assert.Equal(t, "csv", docs[0].OCRProvider)
	assert.Equal(t, "haute", docs[0].Meta["priority"])
	_, hasOwner := docs[0].Meta["owner"]
	assert.False(t, hasOwner)
}

func TestDecodeCSV_MissingTextColumn(t *testing.T) {
	_, err := DecodeCSV(strings.NewReader("title\nx\n"), DefaultCSVOptions())
	assert.ErrorIs(t, err, ErrTextColumnMissing)
}

func TestDecodeCSV_Empty(t *testing.T) {
	_, err := DecodeCSV(strings.NewReader(""), DefaultCSVOptions())
	assert.ErrorIs(t, err, ErrEmptyCSV)
}

func TestDecodeCSV_Windows1252(t *testing.T) {
	// "été" in Windows-1252
	data := []byte("texteocr\n\xe9t\xe9\n")
	docs, err := DecodeCSV(strings.NewReader(string(data)), DefaultCSVOptions())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "été", docs[0].Text)
}

func TestDecodeCSV_SkipsWrongFieldCount(t *testing.T) {
	docs, err := DecodeCSV(strings.NewReader("texteocr,title\na,b\nc\nd,e\n"), DefaultCSVOptions())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "d", docs[1].Text)
}

func TestReadCSV_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.csv")
	require.NoError(t, os.WriteFile(path, []byte("\xef\xbb\xbftexteocr\nbonjour\n"), 0644))

	docs, err := ReadCSV(path, DefaultCSVOptions())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "bonjour", docs[0].Text)

	_, err = ReadCSV(filepath.Join(t.TempDir(), "missing.csv"), DefaultCSVOptions())
	assert.Error(t, err)
}
