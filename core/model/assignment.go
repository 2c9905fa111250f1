package model

import (
	"database/sql/driver"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
)

type AssignmentStatus string

// Assignment statuses, in lifecycle order.
const (
	StatusPending   AssignmentStatus = "Pending"
	StatusSubmitted AssignmentStatus = "Submitted"
	StatusGraded    AssignmentStatus = "Graded"
)

func (s AssignmentStatus) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusSubmitted:
		return 1
	case StatusGraded:
		return 2
	}
	return -1
}

// CanBecome reports whether moving from s to next keeps the lifecycle forward-only.
func (s AssignmentStatus) CanBecome(next AssignmentStatus) bool {
	return next.rank() >= 0 && next.rank() >= s.rank()
}

type SubmissionType string

const (
	SubmissionFile       SubmissionType = "file"
	SubmissionText       SubmissionType = "text"
	SubmissionCompletion SubmissionType = "completion"
)

var (
	ErrInvalidTransition = errors.New("invalid assignment status transition")
	ErrInvalidGrade      = errors.New("grade must be between 0 and 100")
	ErrEmptySubmission   = errors.New("submission payload does not match its type")
)

type (
	ChecklistItem struct {
		ID          string `json:"id" validate:"required"`
		Text        string `json:"text" validate:"required,notblank"`
		IsCompleted bool   `json:"isCompleted"`
	}

	Checklist []ChecklistItem

	// Media holds optional audio/video attachments.
	Media struct {
		AudioURL string `json:"audioUrl,omitempty"`
		VideoURL string `json:"videoUrl,omitempty"`
	}
)

func (c Checklist) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	return jsonValue(c)
}

func (c *Checklist) Scan(src interface{}) error { return jsonScan(src, c) }

func (m Media) Value() (driver.Value, error) { return jsonValue(m) }
func (m *Media) Scan(src interface{}) error  { return jsonScan(src, m) }

type Assignment struct {
	ID                  string           `json:"id" db:"id" validate:"required"`
	Title               string           `json:"title" db:"title" validate:"required,notblank"`
	Description         string           `json:"description" db:"description"`
	DueDate             time.Time        `json:"dueDate" db:"due_date" validate:"required"`
	Status              AssignmentStatus `json:"status" db:"status" validate:"required,oneof=Pending Submitted Graded"`
	Grade               null.Int         `json:"grade" db:"grade"`
	Feedback            string           `json:"feedback" db:"feedback"`
	SubmissionType      SubmissionType   `json:"submissionType" db:"submission_type" validate:"omitempty,oneof=file text completion"`
	FileURL             null.String      `json:"fileUrl" db:"file_url"`
	FileName            null.String      `json:"fileName" db:"file_name"`
	TextSubmission      null.String      `json:"textSubmission" db:"text_submission"`
	Checklist           Checklist        `json:"checklist" db:"checklist" validate:"dive"`
	CoachAttachments    *Media           `json:"coachAttachments" db:"coach_attachments"`
	StudentAttachments  *Media           `json:"studentAttachments" db:"student_attachments"`
	FeedbackAttachments *Media           `json:"feedbackAttachments" db:"feedback_attachments"`
	StudentID           string           `json:"studentId" db:"student_id" validate:"required"`
	CoachID             string           `json:"coachId" db:"coach_id" validate:"required"`
	SubmittedAt         null.Time        `json:"submittedAt" db:"submitted_at"`
	GradedAt            null.Time        `json:"gradedAt" db:"graded_at"`
}

func (a Assignment) EntityID() string { return a.ID }

// Submission is what a student hands in for an assignment.
type Submission struct {
	Type        SubmissionType
	FileURL     string
	FileName    string
	Text        string
	Attachments *Media
}

// Submit moves a and its payload to Submitted. Resubmitting before grading is allowed.
func (a *Assignment) Submit(sub Submission, now time.Time) error {
	if !a.Status.CanBecome(StatusSubmitted) {
		return ErrInvalidTransition
	}
	switch sub.Type {
	case SubmissionFile:
		if sub.FileURL == "" {
			return ErrEmptySubmission
		}
	case SubmissionText:
		if sub.Text == "" {
			return ErrEmptySubmission
		}
	case SubmissionCompletion:
	default:
		return ErrEmptySubmission
	}

	a.SubmissionType = sub.Type
	a.FileURL, a.FileName, a.TextSubmission = null.String{}, null.String{}, null.String{}
	switch sub.Type {
	case SubmissionFile:
		a.FileURL = null.StringFrom(sub.FileURL)
		a.FileName = null.NewString(sub.FileName, sub.FileName != "")
	case SubmissionText:
		a.TextSubmission = null.StringFrom(sub.Text)
	}
	if sub.Attachments != nil {
		a.StudentAttachments = sub.Attachments
	}
	a.Status = StatusSubmitted
	a.SubmittedAt = null.TimeFrom(now.UTC())
	return nil
}

// GradeWith marks a as Graded. Regrading a graded assignment is allowed.
func (a *Assignment) GradeWith(grade int, feedback string, now time.Time) error {
	if grade < 0 || grade > 100 {
		return ErrInvalidGrade
	}
	a.Status = StatusGraded
	a.Grade = null.IntFrom(grade)
	a.Feedback = feedback
	a.GradedAt = null.TimeFrom(now.UTC())
	return nil
}

// ToggleChecklistItem flips the completion of the item with the given id.
// It reports whether such an item exists.
func (a *Assignment) ToggleChecklistItem(itemID string) bool {
	for i := range a.Checklist {
		if a.Checklist[i].ID == itemID {
			a.Checklist[i].IsCompleted = !a.Checklist[i].IsCompleted
			return true
		}
	}
	return false
}

// IsOverdue reports whether a is still pending past its due date.
func (a *Assignment) IsOverdue(now time.Time) bool {
	return a.Status == StatusPending && now.After(a.DueDate)
}
