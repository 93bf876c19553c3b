// Package videohost implements the VideoHost port against the external
// media platform that hosts course videos.
//
// The platform has no long-lived API credentials; access starts with an
// LTI-style launch that seeds a server-side session, which the client then
// polls until both user and token are populated. A handshake that never
// completes is reported as domain.ErrNoSession so callers can skip video
// sync without failing the run.
package videohost

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/classtow/classtow-cli/internal/adapters/driven/download"
	"github.com/classtow/classtow-cli/internal/core/domain"
	"github.com/classtow/classtow-cli/internal/core/ports/driven"
)

const (
	sessionPollInterval = time.Second
	sessionTimeout      = 30 * time.Second
	requestTimeout      = 30 * time.Second
	transferTimeout     = 30 * time.Minute
)

// Client implements driven.VideoHost.
type Client struct {
	rest     *resty.Client
	streamer *resty.Client

	pollInterval time.Duration
	timeout      time.Duration
}

var _ driven.VideoHost = (*Client)(nil)

// New creates a video host client for the given base URL.
func New(baseURL string) *Client {
	base := strings.TrimRight(baseURL, "/")
	return &Client{
		rest: resty.New().
			SetBaseURL(base).
			SetHeader("Accept", "application/json").
			SetTimeout(requestTimeout),
		streamer: resty.New().
			SetBaseURL(base).
			SetTimeout(transferTimeout).
			SetDoNotParseResponse(true),
		pollInterval: sessionPollInterval,
		timeout:      sessionTimeout,
	}
}

type sessionDTO struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

// StartSession performs the headless launch handshake, then polls session
// state until both user and token are populated. Returns
// domain.ErrNoSession if the timeout elapses first.
func (c *Client) StartSession(ctx context.Context) (string, string, error) {
	resp, err := c.rest.R().SetContext(ctx).Post("/api/lti/launch")
	if err != nil {
		return "", "", fmt.Errorf("launching session: %w", err)
	}
	if resp.IsError() {
		return "", "", fmt.Errorf("launching session: http %d", resp.StatusCode())
	}

	deadline := time.NewTimer(c.timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		session, err := c.pollSession(ctx)
		if err != nil {
			return "", "", err
		}
		if session.Complete() {
			return session.UserID, session.Token, nil
		}

		select {
		case <-ctx.Done():
			return "", "", ctx.Err()
		case <-deadline.C:
			return "", "", domain.ErrNoSession
		case <-ticker.C:
		}
	}
}

// pollSession reads the current session state once.
func (c *Client) pollSession(ctx context.Context) (*domain.VideoSession, error) {
	resp, err := c.rest.R().SetContext(ctx).Get("/api/session")
	if err != nil {
		return nil, fmt.Errorf("polling session: %w", err)
	}
	if resp.IsError() {
		// The session record appears asynchronously after the launch
		return &domain.VideoSession{}, nil
	}

	var dto sessionDTO
	if err := json.Unmarshal(resp.Body(), &dto); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return &domain.VideoSession{UserID: dto.UserID, Token: dto.Token}, nil
}

type videoDTO struct {
	MediaID  string `json:"media_id"`
	LaunchID string `json:"launch_id"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

// ListVideos enumerates video metadata scoped to one course.
func (c *Client) ListVideos(ctx context.Context, token string, courseID int64) ([]driven.VideoListing, error) {
	resp, err := c.rest.R().
		SetContext(ctx).
		SetAuthToken(token).
		Get(fmt.Sprintf("/api/courses/%d/videos", courseID))
	if err != nil {
		return nil, fmt.Errorf("listing videos: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("listing videos: http %d", resp.StatusCode())
	}

	var dtos []videoDTO
	if err := json.Unmarshal(resp.Body(), &dtos); err != nil {
		return nil, fmt.Errorf("decoding videos: %w", err)
	}

	listings := make([]driven.VideoListing, 0, len(dtos))
	for _, v := range dtos {
		listings = append(listings, driven.VideoListing{
			MediaID:  v.MediaID,
			LaunchID: v.LaunchID,
			Title:    v.Title,
			URL:      v.URL,
			MimeType: v.MimeType,
			Size:     v.Size,
		})
	}
	return listings, nil
}

// Download streams one video into dest using the session token.
func (c *Client) Download(ctx context.Context, token, url, dest string, progress driven.ProgressFunc) error {
	resp, err := c.streamer.R().
		SetContext(ctx).
		SetAuthToken(token).
		Get(url)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", url, err)
	}
	return download.Copy(resp, dest, progress)
}
