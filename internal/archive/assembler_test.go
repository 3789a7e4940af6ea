package archive

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var modified = time.Date(2024, 3, 1, 13, 45, 30, 0, time.UTC)

func readZip(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	out := make(map[string][]byte)
	for _, f := range zr.File {
		assert.Equal(t, zip.Deflate, f.Method, f.Name)
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		out[f.Name] = content
	}
	return out
}

func TestAssembleComposite(t *testing.T) {
	header := []byte("PID=581008 SECRET SID=581008 CBZTIFF  START  240301\n")
	index := Entry{Name: "20240301134530.078319.txt", Content: []byte("H1.00...\nT000000002")}
	template := []byte("%PDF-1.4 placeholder")
	attachments := []string{"a.00.pdf", "a.01.pdf"}

	bundle, err := NewAssembler(modified).Assemble(header, index, attachments, template)
	require.NoError(t, err)

	assert.Equal(t, append(append([]byte{}, header...), bundle.Zip...), bundle.Composite)
	assert.True(t, bytes.HasPrefix(bundle.Composite, header))
	assert.Equal(t, header, bundle.Header)

	files := readZip(t, bundle.Zip)
	require.Len(t, files, 3)
	assert.Equal(t, index.Content, files[index.Name])
	assert.Equal(t, template, files["a.00.pdf"])
	assert.Equal(t, template, files["a.01.pdf"])
}

func TestAssembleEntryOrder(t *testing.T) {
	bundle, err := NewAssembler(modified).Assemble(nil, Entry{Name: "index.txt"}, []string{"b.pdf", "a.pdf"}, []byte("x"))
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(bundle.Zip), int64(len(bundle.Zip)))
	require.NoError(t, err)
	require.Len(t, zr.File, 3)
	assert.Equal(t, "index.txt", zr.File[0].Name)
	assert.Equal(t, "b.pdf", zr.File[1].Name)
	assert.Equal(t, "a.pdf", zr.File[2].Name)
	assert.True(t, zr.File[0].Modified.Equal(modified))
}

func TestAssembleIsDeterministic(t *testing.T) {
	a := NewAssembler(modified)
	index := Entry{Name: "index.txt", Content: []byte("T000000001")}

	first, err := a.Assemble([]byte("hdr"), index, []string{"x.pdf"}, []byte("pdf"))
	require.NoError(t, err)
	second, err := a.Assemble([]byte("hdr"), index, []string{"x.pdf"}, []byte("pdf"))
	require.NoError(t, err)

	assert.Equal(t, first.Composite, second.Composite)
}

func TestAssembleRejectsEmptyTemplate(t *testing.T) {
	_, err := NewAssembler(modified).Assemble(nil, Entry{Name: "index.txt"}, []string{"x.pdf"}, nil)
	assert.ErrorIs(t, err, ErrEmptyTemplate)
}

func TestAssembleWithoutAttachments(t *testing.T) {
	bundle, err := NewAssembler(modified).Assemble([]byte("hdr"), Entry{Name: "index.txt", Content: []byte("T000000000")}, nil, nil)
	require.NoError(t, err)

	files := readZip(t, bundle.Zip)
	assert.Len(t, files, 1)
}

func TestConcat(t *testing.T) {
	assert.Equal(t, []byte("abcdef"), Concat([]byte("abc"), []byte("def")))
	assert.Empty(t, Concat(nil, nil))
}
