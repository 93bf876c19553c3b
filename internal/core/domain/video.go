package domain

// VideoMetadata describes one externally-hosted video referenced from
// course content. MediaID is the stable identifier used for deduplication;
// LaunchID keys the per-video download folder.
type VideoMetadata struct {
	MediaID   string
	LaunchID  string
	Title     string
	URL       string
	MimeType  string
	Size      int64
	CourseIDs []int64
}

// VideoSession is a short-lived session with the external video host,
// obtained through the headless launch handshake.
type VideoSession struct {
	UserID string
	Token  string
}

// Complete returns true once both identifiers the handshake polls for are
// populated.
func (s *VideoSession) Complete() bool {
	return s != nil && s.UserID != "" && s.Token != ""
}
