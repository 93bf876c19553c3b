package htmlrewrite

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRewriter(t *testing.T) *Rewriter {
	t.Helper()
	r, err := New("https://lms.example.edu", "https://video.example.com")
	require.NoError(t, err)
	return r
}

func TestRewriteInternalFileNotDownloaded(t *testing.T) {
	r := newTestRewriter(t)

	body := `<p>See <a href="https://lms.example.edu/courses/1/files/42/download">the handout</a></p>`
	res := r.Rewrite(body, func(int64) (string, bool) { return "", false })

	assert.Equal(t, []int64{42}, res.InternalFileIDs)
	assert.Contains(t, res.HTML, "lms.example.edu/courses/1/files/42")
	assert.Empty(t, res.ExternalFileURLs)
	assert.Empty(t, res.MediaIDs)
}

func TestRewriteInternalFileDownloaded(t *testing.T) {
	r := newTestRewriter(t)

	body := `<img src="/courses/1/files/42/preview">`
	res := r.Rewrite(body, func(fileID int64) (string, bool) {
		require.Equal(t, int64(42), fileID)
		return "/data/files/1/42_handout.pdf", true
	})

	assert.Equal(t, []int64{42}, res.InternalFileIDs)
	assert.Contains(t, res.HTML, `src="file:///data/files/1/42_handout.pdf"`)
}

func TestRewriteRelativeURLIsInternal(t *testing.T) {
	r := newTestRewriter(t)

	res := r.Rewrite(`<a href="/courses/9/files/7">doc</a>`, nil)
	assert.Equal(t, []int64{7}, res.InternalFileIDs)
}

func TestRewriteOtherHostFileURLNotInternal(t *testing.T) {
	r := newTestRewriter(t)

	res := r.Rewrite(`<img src="https://cdn.other.com/files/99/thing.png">`, nil)
	assert.Empty(t, res.InternalFileIDs)
	assert.Equal(t, []string{"https://cdn.other.com/files/99/thing.png"}, res.ExternalFileURLs)
}

func TestRewriteMediaIDs(t *testing.T) {
	r := newTestRewriter(t)

	body := `<iframe src="https://video.example.com/lti/launch?media_id=m-abc123"></iframe>` +
		`<iframe src="https://video.example.com/media/m-def456/player"></iframe>` +
		`<iframe src="https://video.example.com/lti/launch?media_id=m-abc123"></iframe>`
	res := r.Rewrite(body, nil)

	assert.Equal(t, []string{"m-abc123", "m-def456"}, res.MediaIDs)
	assert.Empty(t, res.ExternalFileURLs, "video host URLs are not external mirrors")
}

func TestRewriteExternalOnlyForEmbeddedResources(t *testing.T) {
	r := newTestRewriter(t)

	body := `<a href="https://blog.example.org/post">a link</a>` +
		`<img src="https://images.example.org/photo.jpg">`
	res := r.Rewrite(body, nil)

	assert.Equal(t, []string{"https://images.example.org/photo.jpg"}, res.ExternalFileURLs)
}

func TestRewriteDeduplicatesKeepingOrder(t *testing.T) {
	r := newTestRewriter(t)

	body := strings.Repeat(`<img src="/files/5">`, 3) + `<img src="/files/3">`
	res := r.Rewrite(body, nil)

	assert.Equal(t, []int64{5, 3}, res.InternalFileIDs)
}

func TestRewriteEmptyBody(t *testing.T) {
	r := newTestRewriter(t)

	res := r.Rewrite("   ", nil)
	assert.Equal(t, "   ", res.HTML)
	assert.Empty(t, res.InternalFileIDs)
}

func TestRewritePreservesUnrelatedMarkup(t *testing.T) {
	r := newTestRewriter(t)

	body := `<h1>Week 1</h1><p>Read <em>chapter 2</em>.</p>`
	res := r.Rewrite(body, nil)

	assert.Contains(t, res.HTML, "<h1>Week 1</h1>")
	assert.Contains(t, res.HTML, "<em>chapter 2</em>")
}
