package canvas

import "time"

// Course is a Canvas course.
type Course struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	CourseCode    string `json:"course_code"`
	SISCourseID   string `json:"sis_course_id,omitempty"`
	WorkflowState string `json:"workflow_state,omitempty"`
}

// User is a Canvas user as returned by the course users endpoint.
type User struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	SortableName string `json:"sortable_name,omitempty"`
	LoginID      string `json:"login_id,omitempty"`
	Email        string `json:"email,omitempty"`
	SISUserID    string `json:"sis_user_id,omitempty"`
}

// Assignment is a Canvas assignment.
type Assignment struct {
	ID             int        `json:"id"`
	CourseID       int        `json:"course_id"`
	Name           string     `json:"name"`
	PointsPossible float64    `json:"points_possible"`
	DueAt          *time.Time `json:"due_at,omitempty"`
	Published      bool       `json:"published"`
}

// Submission is a student's submission for an assignment.
type Submission struct {
	ID            int      `json:"id"`
	AssignmentID  int      `json:"assignment_id"`
	UserID        int      `json:"user_id"`
	Grade         string   `json:"grade,omitempty"`
	Score         *float64 `json:"score,omitempty"`
	WorkflowState string   `json:"workflow_state,omitempty"`
}

// Section pairs a local section name with the Canvas course that hosts it.
type Section struct {
	Name     string `json:"section" mapstructure:"section"`
	CourseID int    `json:"id" mapstructure:"id"`
}

// gradeUpdate is the PUT body for grading a submission.
type gradeUpdate struct {
	Submission struct {
		PostedGrade string `json:"posted_grade"`
	} `json:"submission"`
	Comment *struct {
		TextComment string `json:"text_comment"`
	} `json:"comment,omitempty"`
}
