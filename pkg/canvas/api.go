// Package canvas exposes the Canvas resources the grading tools need:
// instructor courses, course rosters, assignments and submissions.
//
// Every method returns either decoded values or an error already passed
// through the classify package, so callers can test for
// classify.ErrAuthenticationFailed, classify.ErrCourseNotFound and the
// other typed errors with errors.Is.
package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/redkyn/canvas-client/pkg/classify"
	"github.com/redkyn/canvas-client/pkg/client"
	"github.com/redkyn/canvas-client/pkg/pagination"
	"github.com/rs/zerolog"
)

// InstructorEnrollmentTypes are queried in order by GetInstructorCourses.
var InstructorEnrollmentTypes = []string{"teacher", "ta", "grader"}

// StudentPageSize is the page size requested for course rosters.
const StudentPageSize = 50

// API is the Canvas resource client.
type API struct {
	engine     pagination.PageFetcher
	walker     *pagination.Walker
	classifier *classify.Classifier
	logger     zerolog.Logger
}

// New creates an API over a request engine, normally a *client.Client.
func New(engine pagination.PageFetcher, logger zerolog.Logger) *API {
	return &API{
		engine:     engine,
		walker:     pagination.NewWalker(engine, logger),
		classifier: classify.NewClassifier(),
		logger:     logger,
	}
}

// GetInstructorCourses lists available courses where the caller is a
// teacher, TA or grader, in that order.
func (a *API) GetInstructorCourses(ctx context.Context) ([]Course, error) {
	var courses []Course
	for _, enrollment := range InstructorEnrollmentTypes {
		params := url.Values{
			"enrollment_type": {enrollment},
			"state[]":         {"available"},
		}
		page, err := pagination.FetchAllInto[Course](ctx, a.walker, "/api/v1/courses", params)
		if err != nil {
			return nil, a.classify(err, classify.ScopeNone)
		}
		courses = append(courses, page...)
	}

	a.logger.Debug().Int("courses", len(courses)).Msg("Fetched instructor courses")
	return courses, nil
}

// GetCourseStudents lists the active students of a course.
func (a *API) GetCourseStudents(ctx context.Context, courseID int) ([]User, error) {
	params := url.Values{
		pagination.ParamPerPage: {strconv.Itoa(StudentPageSize)},
		"enrollment_type[]":     {"student"},
		"enrollment_state[]":    {"active"},
	}

	path := fmt.Sprintf("/api/v1/courses/%d/users", courseID)
	users, err := pagination.FetchAllInto[User](ctx, a.walker, path, params)
	if err != nil {
		return nil, a.classify(err, classify.ScopeCourse)
	}
	return users, nil
}

// GetCourseAssignments lists a course's assignments whose names contain
// searchTerm. An empty searchTerm lists every assignment.
func (a *API) GetCourseAssignments(ctx context.Context, courseID int, searchTerm string) ([]Assignment, error) {
	params := url.Values{}
	if searchTerm != "" {
		params.Set("search_term", searchTerm)
	}

	path := fmt.Sprintf("/api/v1/courses/%d/assignments", courseID)
	assignments, err := pagination.FetchAllInto[Assignment](ctx, a.walker, path, params)
	if err != nil {
		return nil, a.classify(err, classify.ScopeCourse)
	}
	return assignments, nil
}

// GetAssignment fetches one assignment.
func (a *API) GetAssignment(ctx context.Context, courseID, assignmentID int) (*Assignment, error) {
	path := fmt.Sprintf("/api/v1/courses/%d/assignments/%d", courseID, assignmentID)

	var assignment Assignment
	if err := a.getOne(ctx, path, &assignment, classify.ScopeAssignment); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// GetSubmission fetches a student's submission for an assignment.
func (a *API) GetSubmission(ctx context.Context, courseID, assignmentID, studentID int) (*Submission, error) {
	path := submissionPath(courseID, assignmentID, studentID)

	var submission Submission
	if err := a.getOne(ctx, path, &submission, classify.ScopeStudent); err != nil {
		return nil, err
	}
	return &submission, nil
}

// PutAssignmentSubmission grades a student's submission. comment is
// attached as a text comment when non-empty.
func (a *API) PutAssignmentSubmission(ctx context.Context, courseID, assignmentID, studentID int, grade, comment string) (*Submission, error) {
	var body gradeUpdate
	body.Submission.PostedGrade = grade
	if comment != "" {
		body.Comment = &struct {
			TextComment string `json:"text_comment"`
		}{TextComment: comment}
	}

	page, err := a.engine.Execute(ctx, client.Request{
		Method: http.MethodPut,
		Path:   submissionPath(courseID, assignmentID, studentID),
		Body:   body,
	})
	if err != nil {
		return nil, a.classify(err, classify.ScopeStudent)
	}

	var submission Submission
	if err := json.Unmarshal(page.Body, &submission); err != nil {
		return nil, fmt.Errorf("decode submission: %w", err)
	}

	a.logger.Info().
		Int("course_id", courseID).
		Int("assignment_id", assignmentID).
		Int("student_id", studentID).
		Str("grade", grade).
		Msg("Submitted grade")

	return &submission, nil
}

func (a *API) getOne(ctx context.Context, path string, out any, scope classify.Scope) error {
	page, err := a.engine.Execute(ctx, client.Request{Method: http.MethodGet, Path: path})
	if err != nil {
		return a.classify(err, scope)
	}
	if err := json.Unmarshal(page.Body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (a *API) classify(err error, scope classify.Scope) error {
	typed := a.classifier.Classify(err, scope)
	if kind := classify.KindOf(typed); kind != "" {
		a.logger.Debug().
			Str("kind", string(kind)).
			Str("scope", scope.String()).
			Int("status_code", client.StatusCode(err)).
			Msg("Classified Canvas failure")
	}
	return typed
}

func submissionPath(courseID, assignmentID, studentID int) string {
	return fmt.Sprintf("/api/v1/courses/%d/assignments/%d/submissions/%d", courseID, assignmentID, studentID)
}
