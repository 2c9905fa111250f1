package model

import (
	"database/sql/driver"
	"time"

	"github.com/volatiletech/null/v8"
)

// NetScore applies the quarter-point penalty: four wrong answers cancel one right answer.
func NetScore(correct, incorrect int) float64 {
	return float64(correct) - float64(incorrect)/4
}

type (
	SubjectScore struct {
		Name           string  `json:"name" validate:"required"`
		TotalQuestions int     `json:"totalQuestions" validate:"min=0"`
		Correct        int     `json:"correct" validate:"min=0"`
		Incorrect      int     `json:"incorrect" validate:"min=0"`
		Empty          int     `json:"empty" validate:"min=0"`
		NetScore       float64 `json:"netScore"`
	}

	SubjectScores []SubjectScore
)

func (s SubjectScores) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	return jsonValue(s)
}

func (s *SubjectScores) Scan(src interface{}) error { return jsonScan(src, s) }

type Exam struct {
	ID                 string        `json:"id" db:"id" validate:"required"`
	StudentID          string        `json:"studentId" db:"student_id" validate:"required"`
	Title              string        `json:"title" db:"title" validate:"required,notblank"`
	Date               time.Time     `json:"date" db:"date" validate:"required"`
	TotalQuestions     int           `json:"totalQuestions" db:"total_questions" validate:"min=0"`
	Correct            int           `json:"correct" db:"correct" validate:"min=0"`
	Incorrect          int           `json:"incorrect" db:"incorrect" validate:"min=0"`
	Empty              int           `json:"empty" db:"empty" validate:"min=0"`
	NetScore           float64       `json:"netScore" db:"net_score"`
	Subjects           SubjectScores `json:"subjects" db:"subjects" validate:"dive"`
	CoachNotes         null.String   `json:"coachNotes" db:"coach_notes"`
	StudentReflections null.String   `json:"studentReflections" db:"student_reflections"`
	Category           string        `json:"category" db:"category"`
	Topic              string        `json:"topic" db:"topic"`
	Type               string        `json:"type" db:"type"`
}

func (e Exam) EntityID() string { return e.ID }

// Recalculate refreshes the net scores of e and of each subject.
// When subjects are present the exam totals are their sums.
func (e *Exam) Recalculate() {
	if len(e.Subjects) > 0 {
		e.TotalQuestions, e.Correct, e.Incorrect, e.Empty = 0, 0, 0, 0
		subjects := make(SubjectScores, len(e.Subjects))
		for i, s := range e.Subjects {
			s.NetScore = NetScore(s.Correct, s.Incorrect)
			e.TotalQuestions += s.TotalQuestions
			e.Correct += s.Correct
			e.Incorrect += s.Incorrect
			e.Empty += s.Empty
			subjects[i] = s
		}
		e.Subjects = subjects
	}
	e.NetScore = NetScore(e.Correct, e.Incorrect)
}

type Question struct {
	ID                 string      `json:"id" db:"id" validate:"required"`
	CreatorID          string      `json:"creatorId" db:"creator_id" validate:"required"`
	Category           string      `json:"category" db:"category"`
	Topic              string      `json:"topic" db:"topic"`
	QuestionText       string      `json:"questionText" db:"question_text" validate:"required,notblank"`
	Options            Strings     `json:"options" db:"options" validate:"min=2"`
	CorrectOptionIndex int         `json:"correctOptionIndex" db:"correct_option_index" validate:"min=0"`
	Difficulty         string      `json:"difficulty" db:"difficulty"`
	ImageURL           null.String `json:"imageUrl" db:"image_url"`
	VideoURL           null.String `json:"videoUrl" db:"video_url"`
	AudioURL           null.String `json:"audioUrl" db:"audio_url"`
	DocumentURL        null.String `json:"documentUrl" db:"document_url"`
	DocumentName       null.String `json:"documentName" db:"document_name"`
}

func (q Question) EntityID() string { return q.ID }

func (q *Question) IsCorrect(optionIndex int) bool {
	return optionIndex == q.CorrectOptionIndex
}
