// Package htmlrewrite scans course HTML bodies for embedded resources,
// classifies them, and rewrites references to already-downloaded local
// copies so stored content renders offline.
package htmlrewrite

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Result is the outcome of one rewrite pass over an HTML body.
type Result struct {
	// HTML is the rewritten body. On parse failure it is the input,
	// unchanged.
	HTML string

	// InternalFileIDs are course file IDs referenced by the body, in
	// order of first appearance.
	InternalFileIDs []int64

	// ExternalFileURLs are embedded resources hosted outside the content
	// API and the video host, candidates for mirroring.
	ExternalFileURLs []string

	// MediaIDs are video host media identifiers referenced by the body.
	MediaIDs []string
}

// LocalPathResolver maps a course file ID to its downloaded local path.
// ok is false when the file has not been downloaded yet.
type LocalPathResolver func(fileID int64) (path string, ok bool)

// Rewriter classifies embedded resource URLs against the content API host
// and the external video host.
type Rewriter struct {
	apiHost   string
	videoHost string
}

// New creates a rewriter for the given content API and video host base URLs.
func New(apiBaseURL, videoBaseURL string) (*Rewriter, error) {
	api, err := url.Parse(apiBaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	video, err := url.Parse(videoBaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse video base url: %w", err)
	}
	return &Rewriter{
		apiHost:   api.Hostname(),
		videoHost: video.Hostname(),
	}, nil
}

// fileIDPattern matches the numeric file ID in content API file URLs,
// absolute or relative.
var fileIDPattern = regexp.MustCompile(`/files/(\d+)`)

// srcTags are the elements whose src attribute embeds a resource.
var srcTags = map[atom.Atom]bool{
	atom.Img:    true,
	atom.Source: true,
	atom.Iframe: true,
	atom.Embed:  true,
	atom.Audio:  true,
	atom.Video:  true,
}

// Rewrite parses body, collects every embedded resource reference, and
// rewrites internal file references whose bytes are already local. The
// input is returned unchanged when it is not parseable as HTML.
func (r *Rewriter) Rewrite(body string, resolve LocalPathResolver) Result {
	res := Result{HTML: body}
	if strings.TrimSpace(body) == "" {
		return res
	}

	bodyCtx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(body), bodyCtx)
	if err != nil {
		return res
	}

	c := &collector{rewriter: r, resolve: resolve}
	for _, n := range nodes {
		c.walk(n)
	}

	var sb strings.Builder
	for _, n := range nodes {
		if err := html.Render(&sb, n); err != nil {
			return res
		}
	}
	res.HTML = sb.String()
	res.InternalFileIDs = c.fileIDs
	res.ExternalFileURLs = c.externalURLs
	res.MediaIDs = c.mediaIDs
	return res
}

// collector accumulates classified references during one DOM walk.
type collector struct {
	rewriter *Rewriter
	resolve  LocalPathResolver

	fileIDs      []int64
	externalURLs []string
	mediaIDs     []string

	seenFiles    map[int64]bool
	seenExternal map[string]bool
	seenMedia    map[string]bool
}

func (c *collector) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		switch {
		case srcTags[n.DataAtom]:
			c.classifyAttr(n, "src", true)
		case n.DataAtom == atom.A:
			c.classifyAttr(n, "href", false)
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.walk(child)
	}
}

// classifyAttr inspects one resource attribute. embedded is true for src
// attributes; only embedded resources are candidates for external
// mirroring, plain links are left alone.
func (c *collector) classifyAttr(n *html.Node, attr string, embedded bool) {
	for i, a := range n.Attr {
		if a.Key != attr || a.Val == "" {
			continue
		}

		if fileID, ok := c.rewriter.internalFileID(a.Val); ok {
			c.addFileID(fileID)
			if path, downloaded := c.resolveLocal(fileID); downloaded {
				n.Attr[i].Val = "file://" + path
			}
			return
		}

		if mediaID, ok := c.rewriter.mediaID(a.Val); ok {
			c.addMediaID(mediaID)
			return
		}

		if embedded && c.rewriter.externalResource(a.Val) {
			c.addExternalURL(a.Val)
		}
		return
	}
}

func (c *collector) resolveLocal(fileID int64) (string, bool) {
	if c.resolve == nil {
		return "", false
	}
	return c.resolve(fileID)
}

// internalFileID extracts the file ID from a content API file URL. Relative
// URLs are treated as same-host.
func (r *Rewriter) internalFileID(raw string) (int64, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return 0, false
	}
	if u.Host != "" && u.Hostname() != r.apiHost {
		return 0, false
	}
	m := fileIDPattern.FindStringSubmatch(u.Path)
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// mediaID extracts the media identifier from a video host URL, either from
// a media_id query parameter or a /media/<id> path segment.
func (r *Rewriter) mediaID(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() != r.videoHost {
		return "", false
	}
	if id := u.Query().Get("media_id"); id != "" {
		return id, true
	}
	if id := u.Query().Get("custom_arc_media_id"); id != "" {
		return id, true
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i < len(parts)-1; i++ {
		if parts[i] == "media" && parts[i+1] != "" {
			return parts[i+1], true
		}
	}
	return "", false
}

// externalResource reports whether an absolute http(s) URL is hosted
// outside both known hosts.
func (r *Rewriter) externalResource(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := u.Hostname()
	return host != "" && host != r.apiHost && host != r.videoHost
}

func (c *collector) addFileID(id int64) {
	if c.seenFiles == nil {
		c.seenFiles = make(map[int64]bool)
	}
	if c.seenFiles[id] {
		return
	}
	c.seenFiles[id] = true
	c.fileIDs = append(c.fileIDs, id)
}

func (c *collector) addExternalURL(u string) {
	if c.seenExternal == nil {
		c.seenExternal = make(map[string]bool)
	}
	if c.seenExternal[u] {
		return
	}
	c.seenExternal[u] = true
	c.externalURLs = append(c.externalURLs, u)
}

func (c *collector) addMediaID(id string) {
	if c.seenMedia == nil {
		c.seenMedia = make(map[string]bool)
	}
	if c.seenMedia[id] {
		return
	}
	c.seenMedia[id] = true
	c.mediaIDs = append(c.mediaIDs, id)
}
