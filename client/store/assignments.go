package store

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/trezcool/tutora/core/model"
)

func (s *Store) prepareAssignment(a *model.Assignment) {
	if a.ID == "" {
		a.ID = s.newID()
	}
	if a.Status == "" {
		a.Status = model.StatusPending
	}
	if a.Checklist == nil {
		a.Checklist = model.Checklist{}
	}
}

func (s *Store) AddAssignment(ctx context.Context, a model.Assignment) (model.Assignment, error) {
	s.prepareAssignment(&a)
	return create(ctx, s, assignmentsColl, a)
}

// AddAssignments creates a copy of a for each student, concurrently.
// Created assignments are returned in completion order; the first failure is returned
// once every call has finished.
func (s *Store) AddAssignments(ctx context.Context, a model.Assignment, studentIDs ...string) ([]model.Assignment, error) {
	var (
		mu      sync.Mutex
		created []model.Assignment
		g       errgroup.Group
	)
	for _, studentID := range studentIDs {
		na := clone(a)
		na.ID = ""
		na.StudentID = studentID
		g.Go(func() error {
			saved, err := s.AddAssignment(ctx, na)
			if err != nil {
				return err
			}
			mu.Lock()
			created = append(created, saved)
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	return created, err
}

// AssignmentFromTemplate assigns a template to a student, with a fresh checklist.
func (s *Store) AssignmentFromTemplate(ctx context.Context, templateID, studentID string, dueDate time.Time) (model.Assignment, error) {
	tpl, ok := find(s, templatesColl, templateID)
	if !ok {
		return model.Assignment{}, nil
	}
	coachID, err := s.currentID()
	if err != nil {
		return model.Assignment{}, err
	}
	return s.AddAssignment(ctx, model.Assignment{
		Title:       tpl.Title,
		Description: tpl.Description,
		DueDate:     dueDate,
		Checklist:   tpl.NewChecklist(s.newID),
		StudentID:   studentID,
		CoachID:     coachID,
	})
}

func (s *Store) UpdateAssignment(ctx context.Context, a model.Assignment) (model.Assignment, error) {
	return set(ctx, s, assignmentsColl, a)
}

// SubmitAssignment hands in the assignment and rewards its student with XP and streak.
func (s *Store) SubmitAssignment(ctx context.Context, id string, sub model.Submission) error {
	now := s.now()
	saved, ok, err := update(ctx, s, assignmentsColl, id, func(a *model.Assignment) error {
		return a.Submit(sub, now)
	})
	if err != nil || !ok {
		return err
	}
	return s.updateUser(ctx, saved.StudentID, func(u *model.User) error {
		u.RecordSubmission(SubmissionXP, now)
		return nil
	})
}

func (s *Store) GradeAssignment(ctx context.Context, id string, grade int, feedback string) error {
	now := s.now()
	_, _, err := update(ctx, s, assignmentsColl, id, func(a *model.Assignment) error {
		return a.GradeWith(grade, feedback, now)
	})
	return err
}

func (s *Store) ToggleChecklistItem(ctx context.Context, assignmentID, itemID string) error {
	_, _, err := update(ctx, s, assignmentsColl, assignmentID, func(a *model.Assignment) error {
		if !a.ToggleChecklistItem(itemID) {
			return errNoChange
		}
		return nil
	})
	return err
}

func (s *Store) DeleteAssignments(ctx context.Context, ids ...string) error {
	return remove(ctx, s, assignmentsColl, ids)
}
