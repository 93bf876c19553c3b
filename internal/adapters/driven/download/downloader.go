// Package download implements streaming file transfer with byte progress.
package download

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/classtow/classtow-cli/internal/core/ports/driven"
)

const transferTimeout = 30 * time.Minute

// Downloader implements driven.FileDownloader by streaming the response
// body straight to disk. Responses are never buffered in memory; course
// files and videos routinely run to hundreds of megabytes.
type Downloader struct {
	rest *resty.Client
}

var _ driven.FileDownloader = (*Downloader)(nil)

// New creates a streaming downloader.
func New() *Downloader {
	return &Downloader{
		rest: resty.New().
			SetTimeout(transferTimeout).
			SetDoNotParseResponse(true),
	}
}

// Download streams url into dest, reporting byte progress. The destination
// is written as-is; atomic temp-and-rename handling is the caller's
// responsibility.
func (d *Downloader) Download(ctx context.Context, url, dest string, progress driven.ProgressFunc) error {
	resp, err := d.rest.R().SetContext(ctx).Get(url)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", url, err)
	}
	return Copy(resp, dest, progress)
}

// Copy drains an unparsed response body into dest, reporting progress as
// bytes arrive. The body is closed before returning.
func Copy(resp *resty.Response, dest string, progress driven.ProgressFunc) error {
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() >= 400 {
		return fmt.Errorf("%s: http %d", resp.Request.URL, resp.StatusCode())
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	defer out.Close()

	total := resp.RawResponse.ContentLength
	writer := &progressWriter{out: out, total: total, progress: progress}
	if _, err := io.Copy(writer, body); err != nil {
		return fmt.Errorf("streaming to %s: %w", dest, err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", dest, err)
	}
	return nil
}

// progressWriter counts bytes through to the underlying file.
type progressWriter struct {
	out      io.Writer
	written  int64
	total    int64
	progress driven.ProgressFunc
}

func (w *progressWriter) Write(p []byte) (int, error) {
	n, err := w.out.Write(p)
	w.written += int64(n)
	if w.progress != nil && n > 0 {
		w.progress(w.written, w.total)
	}
	return n, err
}
