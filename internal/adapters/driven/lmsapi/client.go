package lmsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/classtow/classtow-cli/internal/core/domain"
	"github.com/classtow/classtow-cli/internal/core/ports/driven"
)

const (
	// perPage is the page size requested from list endpoints.
	perPage = "100"

	// requestsPerSecond is the proactive throttle rate.
	requestsPerSecond = 5

	requestTimeout = 30 * time.Second
)

// nextLinkPattern extracts the rel="next" target from a Link header.
var nextLinkPattern = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)

// Client implements driven.ContentAPI over the LMS REST API.
type Client struct {
	rest    *resty.Client
	limiter *rate.Limiter
}

var _ driven.ContentAPI = (*Client)(nil)

// New creates an API client for the given LMS base URL, authenticating
// every request with the access token.
func New(baseURL, token string) *Client {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(context.Background(), source)

	c := &Client{
		rest: resty.NewWithClient(httpClient).
			SetBaseURL(strings.TrimRight(baseURL, "/") + "/api/v1").
			SetHeader("Accept", "application/json").
			SetTimeout(requestTimeout),
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
	}

	c.rest.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return c.limiter.Wait(req.Context())
	})

	return c
}

// get performs a single GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, query map[string]string, out any) error {
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParams(query).
		Get(path)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", path, err)
	}
	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

// getPaginated walks every page of a list endpoint, calling decode with the
// raw body of each page. The Link header's rel="next" target drives the walk.
func (c *Client) getPaginated(ctx context.Context, path string, query map[string]string, decode func(body []byte) error) error {
	req := c.rest.R().
		SetContext(ctx).
		SetQueryParams(query).
		SetQueryParam("per_page", perPage)

	url := path
	for {
		resp, err := req.Get(url)
		if err != nil {
			return fmt.Errorf("requesting %s: %w", path, err)
		}
		if err := checkStatus(resp); err != nil {
			return err
		}
		if err := decode(resp.Body()); err != nil {
			return fmt.Errorf("decoding %s: %w", path, err)
		}

		next := nextLink(resp.Header().Get("Link"))
		if next == "" {
			return nil
		}
		// The next target is absolute and already carries the query
		url = next
		req = c.rest.R().SetContext(ctx)
	}
}

// checkStatus maps non-2xx responses to errors.
func checkStatus(resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	if resp.StatusCode() == http.StatusNotFound {
		return fmt.Errorf("%s: %w", resp.Request.URL, domain.ErrNotFound)
	}
	return fmt.Errorf("%s: http %d", resp.Request.URL, resp.StatusCode())
}

// nextLink extracts the rel="next" URL from a Link header, if any.
func nextLink(header string) string {
	m := nextLinkPattern.FindStringSubmatch(header)
	if m == nil {
		return ""
	}
	return m[1]
}

// ==================== Wire Types ====================

type courseDTO struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	CourseCode   string `json:"course_code"`
	DefaultView  string `json:"default_view"`
	SyllabusBody string `json:"syllabus_body"`
}

type tabDTO struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type enrollmentDTO struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	State  string `json:"enrollment_state"`
}

type settingsDTO struct {
	SyllabusCourseSummary        bool `json:"syllabus_course_summary"`
	RestrictQuantitativeData     bool `json:"restrict_quantitative_data"`
	HideFinalGrades              bool `json:"hide_final_grades"`
	AllowStudentDiscussionTopics bool `json:"allow_student_discussion_topics"`
}

type featureDTO struct {
	Feature string `json:"feature"`
}

type pageDTO struct {
	PageID    int64     `json:"page_id"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	FrontPage bool      `json:"front_page"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p pageDTO) toDomain() domain.Page {
	return domain.Page{
		ID:        p.PageID,
		URL:       p.URL,
		Title:     p.Title,
		Body:      p.Body,
		FrontPage: p.FrontPage,
		UpdatedAt: p.UpdatedAt,
	}
}

type assignmentDTO struct {
	ID             int64      `json:"id"`
	CourseID       int64      `json:"course_id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	QuizID         int64      `json:"quiz_id"`
	DueAt          *time.Time `json:"due_at"`
	PointsPossible float64    `json:"points_possible"`
}

type assignmentGroupDTO struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Assignments []assignmentDTO `json:"assignments"`
}

type quizDTO struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueAt       *time.Time `json:"due_at"`
}

func (q quizDTO) toDomain() domain.Quiz {
	return domain.Quiz{
		ID:          q.ID,
		Title:       q.Title,
		Description: q.Description,
		DueAt:       derefTime(q.DueAt),
	}
}

type calendarEventDTO struct {
	ID          json.Number `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	StartAt     *time.Time  `json:"start_at"`
}

type conferenceDTO struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	JoinURL     string `json:"join_url"`
}

type conferenceListDTO struct {
	Conferences []conferenceDTO `json:"conferences"`
}

type fileDTO struct {
	ID          int64  `json:"id"`
	FolderID    int64  `json:"folder_id"`
	DisplayName string `json:"display_name"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`
	ContentType string `json:"content-type"`
}

func (f fileDTO) toDomain(courseID int64) domain.FileFolder {
	return domain.FileFolder{
		ID:          f.ID,
		FolderID:    f.FolderID,
		CourseID:    courseID,
		DisplayName: f.DisplayName,
		URL:         f.URL,
		Size:        f.Size,
		ContentType: f.ContentType,
	}
}

type folderDTO struct {
	ID             int64  `json:"id"`
	ParentFolderID int64  `json:"parent_folder_id"`
	Name           string `json:"name"`
}

type discussionDTO struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	Attachments []fileDTO  `json:"attachments"`
	PostedAt    *time.Time `json:"posted_at"`
}

type userDTO struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	SortableName   string `json:"sortable_name"`
	AvatarURL      string `json:"avatar_url"`
	EnrollmentRole []struct {
		Role string `json:"role"`
	} `json:"enrollments"`
}

type moduleItemDTO struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Type      string `json:"type"`
	ContentID int64  `json:"content_id"`
	PageURL   string `json:"page_url"`
}

type moduleDTO struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Position int             `json:"position"`
	Items    []moduleItemDTO `json:"items"`
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// ==================== ContentAPI ====================

// GetCourse fetches core course details plus the exposed tab listing.
func (c *Client) GetCourse(ctx context.Context, courseID int64) (*domain.Course, error) {
	var dto courseDTO
	err := c.get(ctx, fmt.Sprintf("/courses/%d", courseID),
		map[string]string{"include[]": "syllabus_body"}, &dto)
	if err != nil {
		return nil, err
	}

	course := &domain.Course{
		ID:           dto.ID,
		Name:         dto.Name,
		CourseCode:   dto.CourseCode,
		HomeView:     dto.DefaultView,
		SyllabusBody: dto.SyllabusBody,
	}

	err = c.getPaginated(ctx, fmt.Sprintf("/courses/%d/tabs", courseID), nil,
		func(body []byte) error {
			var tabs []tabDTO
			if err := json.Unmarshal(body, &tabs); err != nil {
				return err
			}
			for _, t := range tabs {
				course.Tabs = append(course.Tabs, domain.CourseTab{
					ID:    domain.TabID(t.ID),
					Label: t.Label,
				})
			}
			return nil
		})
	if err != nil {
		return nil, err
	}

	return course, nil
}

// GetEnrollments fetches a user's enrollments in a course. A zero userID
// means the calling user.
func (c *Client) GetEnrollments(ctx context.Context, courseID, userID int64) ([]domain.Enrollment, error) {
	query := map[string]string{}
	if userID != 0 {
		query["user_id"] = fmt.Sprintf("%d", userID)
	}

	var enrollments []domain.Enrollment
	err := c.getPaginated(ctx, fmt.Sprintf("/courses/%d/enrollments", courseID), query,
		func(body []byte) error {
			var dtos []enrollmentDTO
			if err := json.Unmarshal(body, &dtos); err != nil {
				return err
			}
			for _, e := range dtos {
				enrollments = append(enrollments, domain.Enrollment{
					ID:     e.ID,
					UserID: e.UserID,
					Role:   e.Role,
					State:  e.State,
				})
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	return enrollments, nil
}

// GetCourseSettings fetches remote per-course configuration.
func (c *Client) GetCourseSettings(ctx context.Context, courseID int64) (*domain.CourseSettings, error) {
	var dto settingsDTO
	if err := c.get(ctx, fmt.Sprintf("/courses/%d/settings", courseID), nil, &dto); err != nil {
		return nil, err
	}
	return &domain.CourseSettings{
		CoursesSummary:        dto.SyllabusCourseSummary,
		RestrictQuantitative:  dto.RestrictQuantitativeData,
		HideFinalGrades:       dto.HideFinalGrades,
		AllowStudentDiscussed: dto.AllowStudentDiscussionTopics,
	}, nil
}

// GetCourseFeatures fetches the enabled feature flags for a course.
func (c *Client) GetCourseFeatures(ctx context.Context, courseID int64) ([]string, error) {
	var features []string
	err := c.getPaginated(ctx, fmt.Sprintf("/courses/%d/features/enabled", courseID), nil,
		func(body []byte) error {
			// The endpoint returns a plain string array
			var names []string
			if err := json.Unmarshal(body, &names); err == nil {
				features = append(features, names...)
				return nil
			}
			var dtos []featureDTO
			if err := json.Unmarshal(body, &dtos); err != nil {
				return err
			}
			for _, f := range dtos {
				features = append(features, f.Feature)
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	return features, nil
}

// ListPages fetches all pages with bodies.
func (c *Client) ListPages(ctx context.Context, courseID int64) ([]domain.Page, error) {
	var pages []domain.Page
	err := c.getPaginated(ctx, fmt.Sprintf("/courses/%d/pages", courseID),
		map[string]string{"include[]": "body"},
		func(body []byte) error {
			var dtos []pageDTO
			if err := json.Unmarshal(body, &dtos); err != nil {
				return err
			}
			for _, p := range dtos {
				pages = append(pages, p.toDomain())
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	return pages, nil
}

// GetFrontPage fetches the course home page.
func (c *Client) GetFrontPage(ctx context.Context, courseID int64) (*domain.Page, error) {
	var dto pageDTO
	if err := c.get(ctx, fmt.Sprintf("/courses/%d/front_page", courseID), nil, &dto); err != nil {
		return nil, err
	}
	page := dto.toDomain()
	return &page, nil
}

// GetPage fetches a single page by its URL slug.
func (c *Client) GetPage(ctx context.Context, courseID int64, pageURL string) (*domain.Page, error) {
	var dto pageDTO
	if err := c.get(ctx, fmt.Sprintf("/courses/%d/pages/%s", courseID, pageURL), nil, &dto); err != nil {
		return nil, err
	}
	page := dto.toDomain()
	return &page, nil
}

// ListAssignmentGroups fetches all assignment groups with their assignments.
func (c *Client) ListAssignmentGroups(ctx context.Context, courseID int64) ([]domain.AssignmentGroup, error) {
	var groups []domain.AssignmentGroup
	err := c.getPaginated(ctx, fmt.Sprintf("/courses/%d/assignment_groups", courseID),
		map[string]string{"include[]": "assignments"},
		func(body []byte) error {
			var dtos []assignmentGroupDTO
			if err := json.Unmarshal(body, &dtos); err != nil {
				return err
			}
			for _, g := range dtos {
				group := domain.AssignmentGroup{ID: g.ID, Name: g.Name}
				for _, a := range g.Assignments {
					group.Assignments = append(group.Assignments, domain.Assignment{
						ID:          a.ID,
						CourseID:    a.CourseID,
						Name:        a.Name,
						Description: a.Description,
						QuizID:      a.QuizID,
						DueAt:       derefTime(a.DueAt),
						PointsTotal: a.PointsPossible,
					})
				}
				groups = append(groups, group)
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// ListQuizzes fetches all quizzes.
func (c *Client) ListQuizzes(ctx context.Context, courseID int64) ([]domain.Quiz, error) {
	var quizzes []domain.Quiz
	err := c.getPaginated(ctx, fmt.Sprintf("/courses/%d/quizzes", courseID), nil,
		func(body []byte) error {
			var dtos []quizDTO
			if err := json.Unmarshal(body, &dtos); err != nil {
				return err
			}
			for _, q := range dtos {
				quizzes = append(quizzes, q.toDomain())
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	return quizzes, nil
}

// GetQuiz fetches a single quiz.
func (c *Client) GetQuiz(ctx context.Context, courseID, quizID int64) (*domain.Quiz, error) {
	var dto quizDTO
	if err := c.get(ctx, fmt.Sprintf("/courses/%d/quizzes/%d", courseID, quizID), nil, &dto); err != nil {
		return nil, err
	}
	quiz := dto.toDomain()
	return &quiz, nil
}

// ListCalendarEvents fetches schedule items of one type for a course.
func (c *Client) ListCalendarEvents(ctx context.Context, courseID int64, itemType string) ([]domain.ScheduleItem, error) {
	query := map[string]string{
		"type":            itemType,
		"context_codes[]": fmt.Sprintf("course_%d", courseID),
		"all_events":      "1",
	}

	var items []domain.ScheduleItem
	err := c.getPaginated(ctx, "/calendar_events", query,
		func(body []byte) error {
			var dtos []calendarEventDTO
			if err := json.Unmarshal(body, &dtos); err != nil {
				return err
			}
			for _, e := range dtos {
				items = append(items, domain.ScheduleItem{
					ID:          e.ID.String(),
					Title:       e.Title,
					Description: e.Description,
					Type:        itemType,
					StartAt:     derefTime(e.StartAt),
				})
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ListConferences fetches all conferences.
func (c *Client) ListConferences(ctx context.Context, courseID int64) ([]domain.Conference, error) {
	var conferences []domain.Conference
	err := c.getPaginated(ctx, fmt.Sprintf("/courses/%d/conferences", courseID), nil,
		func(body []byte) error {
			// Unlike other listings, this endpoint wraps the array
			var dto conferenceListDTO
			if err := json.Unmarshal(body, &dto); err != nil {
				return err
			}
			for _, conf := range dto.Conferences {
				conferences = append(conferences, domain.Conference{
					ID:          conf.ID,
					Title:       conf.Title,
					Description: conf.Description,
					JoinURL:     conf.JoinURL,
				})
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	return conferences, nil
}

// ListDiscussions fetches discussion topic headers, or announcements when
// the flag is set.
func (c *Client) ListDiscussions(ctx context.Context, courseID int64, announcements bool) ([]domain.Discussion, error) {
	query := map[string]string{}
	if announcements {
		query["only_announcements"] = "1"
	}

	var discussions []domain.Discussion
	err := c.getPaginated(ctx, fmt.Sprintf("/courses/%d/discussion_topics", courseID), query,
		func(body []byte) error {
			var dtos []discussionDTO
			if err := json.Unmarshal(body, &dtos); err != nil {
				return err
			}
			for _, d := range dtos {
				discussion := domain.Discussion{
					ID:           d.ID,
					Title:        d.Title,
					Message:      d.Message,
					Announcement: announcements,
					PostedAt:     derefTime(d.PostedAt),
				}
				for _, a := range d.Attachments {
					discussion.Attachments = append(discussion.Attachments, a.toDomain(courseID))
				}
				discussions = append(discussions, discussion)
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	return discussions, nil
}

// GetFullTopic fetches the full threaded view of one discussion topic. The
// body is stored verbatim for offline rendering.
func (c *Client) GetFullTopic(ctx context.Context, courseID, topicID int64) (string, error) {
	resp, err := c.rest.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/courses/%d/discussion_topics/%d/view", courseID, topicID))
	if err != nil {
		return "", fmt.Errorf("requesting topic view: %w", err)
	}
	if err := checkStatus(resp); err != nil {
		return "", err
	}
	return resp.String(), nil
}

// ListUsers fetches course participants.
func (c *Client) ListUsers(ctx context.Context, courseID int64) ([]domain.User, error) {
	var users []domain.User
	err := c.getPaginated(ctx, fmt.Sprintf("/courses/%d/users", courseID),
		map[string]string{"include[]": "avatar_url"},
		func(body []byte) error {
			var dtos []userDTO
			if err := json.Unmarshal(body, &dtos); err != nil {
				return err
			}
			for _, u := range dtos {
				user := domain.User{
					ID:        u.ID,
					Name:      u.Name,
					SortName:  u.SortableName,
					AvatarURL: u.AvatarURL,
				}
				if len(u.EnrollmentRole) > 0 {
					user.Role = u.EnrollmentRole[0].Role
				}
				users = append(users, user)
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// ListModules fetches all modules with their items.
func (c *Client) ListModules(ctx context.Context, courseID int64) ([]domain.Module, error) {
	var modules []domain.Module
	err := c.getPaginated(ctx, fmt.Sprintf("/courses/%d/modules", courseID),
		map[string]string{"include[]": "items"},
		func(body []byte) error {
			var dtos []moduleDTO
			if err := json.Unmarshal(body, &dtos); err != nil {
				return err
			}
			for _, m := range dtos {
				module := domain.Module{ID: m.ID, Name: m.Name, Position: m.Position}
				for _, item := range m.Items {
					module.Items = append(module.Items, domain.ModuleItem{
						ID:        item.ID,
						Title:     item.Title,
						Type:      domain.ModuleItemType(item.Type),
						ContentID: item.ContentID,
						PageURL:   item.PageURL,
					})
				}
				modules = append(modules, module)
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	return modules, nil
}

// ListFilesAndFolders snapshots the course's remote file and folder tree.
func (c *Client) ListFilesAndFolders(ctx context.Context, courseID int64) ([]domain.FileFolder, error) {
	var entries []domain.FileFolder

	err := c.getPaginated(ctx, fmt.Sprintf("/courses/%d/folders", courseID), nil,
		func(body []byte) error {
			var dtos []folderDTO
			if err := json.Unmarshal(body, &dtos); err != nil {
				return err
			}
			for _, f := range dtos {
				entries = append(entries, domain.FileFolder{
					ID:          f.ID,
					FolderID:    f.ParentFolderID,
					CourseID:    courseID,
					DisplayName: f.Name,
					IsFolder:    true,
				})
			}
			return nil
		})
	if err != nil {
		return nil, err
	}

	err = c.getPaginated(ctx, fmt.Sprintf("/courses/%d/files", courseID), nil,
		func(body []byte) error {
			var dtos []fileDTO
			if err := json.Unmarshal(body, &dtos); err != nil {
				return err
			}
			for _, f := range dtos {
				entries = append(entries, f.toDomain(courseID))
			}
			return nil
		})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// GetCourseFile fetches metadata of a single file.
func (c *Client) GetCourseFile(ctx context.Context, courseID, fileID int64) (*domain.FileFolder, error) {
	var dto fileDTO
	if err := c.get(ctx, fmt.Sprintf("/courses/%d/files/%d", courseID, fileID), nil, &dto); err != nil {
		return nil, err
	}
	file := dto.toDomain(courseID)
	return &file, nil
}
