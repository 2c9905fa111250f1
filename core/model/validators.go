package model

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/tutora/core"
)

var (
	gradeRangeTag  = "graderange"
	gradeRangeText = "grade must be between 0 and 100"

	gradedOnlyTag  = "gradedonly"
	gradedOnlyText = "{0} is only allowed on graded assignments"

	submittedOnlyTag  = "submittedonly"
	submittedOnlyText = "{0} is only allowed once the assignment is submitted"

	directPairTag  = "directpair"
	directPairText = "a one-to-one conversation must have exactly 2 participants"

	optionIndexTag  = "optionindex"
	optionIndexText = "correct option index is out of range"

	examTotalsTag  = "examtotals"
	examTotalsText = "answers exceed the total number of questions"
)

// InitValidators registers the entity rules on top of the core validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.InitValidators(validate, translator)

	validate.RegisterStructValidation(assignmentStructValidation, Assignment{})
	validate.RegisterStructValidation(conversationStructValidation, Conversation{})
	validate.RegisterStructValidation(questionStructValidation, Question{})
	validate.RegisterStructValidation(examStructValidation, Exam{})

	core.RegisterCustomTranslation(validate, translator, gradeRangeTag, gradeRangeText)
	core.RegisterCustomTranslation(validate, translator, gradedOnlyTag, gradedOnlyText)
	core.RegisterCustomTranslation(validate, translator, submittedOnlyTag, submittedOnlyText)
	core.RegisterCustomTranslation(validate, translator, directPairTag, directPairText)
	core.RegisterCustomTranslation(validate, translator, optionIndexTag, optionIndexText)
	core.RegisterCustomTranslation(validate, translator, examTotalsTag, examTotalsText)
}

// NewValidator returns a ready to use validator with english messages.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	InitValidators(validate, translator)
	return validate, translator
}

func assignmentStructValidation(sl validator.StructLevel) {
	a := sl.Current().Interface().(Assignment)
	if a.Grade.Valid {
		if a.Grade.Int < 0 || a.Grade.Int > 100 {
			sl.ReportError(a.Grade, "grade", "Grade", gradeRangeTag, "")
		}
		if a.Status != StatusGraded {
			sl.ReportError(a.Grade, "grade", "Grade", gradedOnlyTag, "")
		}
	}
	if a.GradedAt.Valid && a.Status != StatusGraded {
		sl.ReportError(a.GradedAt, "gradedAt", "GradedAt", gradedOnlyTag, "")
	}
	if a.SubmittedAt.Valid && a.Status == StatusPending {
		sl.ReportError(a.SubmittedAt, "submittedAt", "SubmittedAt", submittedOnlyTag, "")
	}
}

func conversationStructValidation(sl validator.StructLevel) {
	c := sl.Current().Interface().(Conversation)
	if c.ID == AnnouncementsConversationID || c.IsGroup {
		return
	}
	if len(c.ParticipantIDs) != 2 || c.ParticipantIDs[0] == c.ParticipantIDs[1] {
		sl.ReportError(c.ParticipantIDs, "participantIds", "ParticipantIDs", directPairTag, "")
	}
}

func questionStructValidation(sl validator.StructLevel) {
	q := sl.Current().Interface().(Question)
	if q.CorrectOptionIndex >= len(q.Options) {
		sl.ReportError(q.CorrectOptionIndex, "correctOptionIndex", "CorrectOptionIndex", optionIndexTag, "")
	}
}

func examStructValidation(sl validator.StructLevel) {
	e := sl.Current().Interface().(Exam)
	if e.Correct+e.Incorrect+e.Empty > e.TotalQuestions {
		sl.ReportError(e.TotalQuestions, "totalQuestions", "TotalQuestions", examTotalsTag, "")
	}
}
