package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownload_StreamsToDisk(t *testing.T) {
	payload := []byte("course file payload")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "syllabus.pdf")
	var lastWritten, lastTotal int64

	d := New()
	err := d.Download(context.Background(), server.URL, dest, func(written, total int64) {
		lastWritten, lastTotal = written, total
	})
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	assert.Equal(t, int64(len(payload)), lastWritten)
	assert.Equal(t, int64(len(payload)), lastTotal)
}

func TestDownload_HTTPErrorWritesNothing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "file.bin")
	d := New()
	err := d.Download(context.Background(), server.URL, dest, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 403")
	assert.NoFileExists(t, dest)
}

func TestDownload_UnknownLengthReportsMinusOne(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		flusher := w.(http.Flusher)
		_, _ = w.Write([]byte("chunk"))
		flusher.Flush()
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "file.bin")
	var sawTotal int64 = 0

	d := New()
	err := d.Download(context.Background(), server.URL, dest, func(_, total int64) {
		sawTotal = total
	})
	require.NoError(t, err)
	assert.Equal(t, int64(-1), sawTotal, "chunked responses declare no length")
}
