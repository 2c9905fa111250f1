package store

import (
	"context"

	"github.com/trezcool/tutora/core/model"
)

// Templates

func (s *Store) AddTemplate(ctx context.Context, t model.AssignmentTemplate) (model.AssignmentTemplate, error) {
	if t.ID == "" {
		t.ID = s.newID()
	}
	for i := range t.Checklist {
		if t.Checklist[i].ID == "" {
			t.Checklist[i].ID = s.newID()
		}
	}
	return create(ctx, s, templatesColl, t)
}

func (s *Store) UpdateTemplate(ctx context.Context, t model.AssignmentTemplate) (model.AssignmentTemplate, error) {
	return set(ctx, s, templatesColl, t)
}

func (s *Store) ToggleTemplateFavorite(ctx context.Context, id string) error {
	_, _, err := update(ctx, s, templatesColl, id, func(t *model.AssignmentTemplate) error {
		t.IsFavorite = !t.IsFavorite
		return nil
	})
	return err
}

func (s *Store) DeleteTemplates(ctx context.Context, ids ...string) error {
	return remove(ctx, s, templatesColl, ids)
}

// Resources

func (s *Store) AddResource(ctx context.Context, r model.Resource) (model.Resource, error) {
	if r.ID == "" {
		r.ID = s.newID()
	}
	if r.UploaderID == "" {
		if id, err := s.currentID(); err == nil {
			r.UploaderID = id
		}
	}
	if r.AssignedTo == nil {
		r.AssignedTo = model.Strings{}
	}
	return create(ctx, s, resourcesColl, r)
}

func (s *Store) UpdateResource(ctx context.Context, r model.Resource) (model.Resource, error) {
	return set(ctx, s, resourcesColl, r)
}

// AssignResource shares a resource with the given students.
func (s *Store) AssignResource(ctx context.Context, resourceID string, studentIDs ...string) error {
	_, _, err := update(ctx, s, resourcesColl, resourceID, func(r *model.Resource) error {
		before := len(r.AssignedTo)
		for _, id := range studentIDs {
			r.AssignedTo = r.AssignedTo.With(id)
		}
		if len(r.AssignedTo) == before {
			return errNoChange
		}
		return nil
	})
	return err
}

func (s *Store) DeleteResources(ctx context.Context, ids ...string) error {
	return remove(ctx, s, resourcesColl, ids)
}

// Goals

func (s *Store) AddGoal(ctx context.Context, g model.Goal) (model.Goal, error) {
	if g.ID == "" {
		g.ID = s.newID()
	}
	for i := range g.Milestones {
		if g.Milestones[i].ID == "" {
			g.Milestones[i].ID = s.newID()
		}
	}
	return create(ctx, s, goalsColl, g)
}

func (s *Store) UpdateGoal(ctx context.Context, g model.Goal) (model.Goal, error) {
	return set(ctx, s, goalsColl, g)
}

func (s *Store) ToggleMilestone(ctx context.Context, goalID, milestoneID string) error {
	_, _, err := update(ctx, s, goalsColl, goalID, func(g *model.Goal) error {
		if !g.ToggleMilestone(milestoneID) {
			return errNoChange
		}
		return nil
	})
	return err
}

func (s *Store) DeleteGoals(ctx context.Context, ids ...string) error {
	return remove(ctx, s, goalsColl, ids)
}

// Calendar

func (s *Store) AddEvent(ctx context.Context, e model.CalendarEvent) (model.CalendarEvent, error) {
	if e.ID == "" {
		e.ID = s.newID()
	}
	if e.UserID == "" {
		if id, err := s.currentID(); err == nil {
			e.UserID = id
		}
	}
	return create(ctx, s, eventsColl, e)
}

func (s *Store) UpdateEvent(ctx context.Context, e model.CalendarEvent) (model.CalendarEvent, error) {
	return set(ctx, s, eventsColl, e)
}

func (s *Store) DeleteEvents(ctx context.Context, ids ...string) error {
	return remove(ctx, s, eventsColl, ids)
}

// Exams: net scores are derived on every write.

func (s *Store) AddExam(ctx context.Context, e model.Exam) (model.Exam, error) {
	if e.ID == "" {
		e.ID = s.newID()
	}
	e.Recalculate()
	return create(ctx, s, examsColl, e)
}

func (s *Store) UpdateExam(ctx context.Context, e model.Exam) (model.Exam, error) {
	e.Recalculate()
	return set(ctx, s, examsColl, e)
}

func (s *Store) DeleteExams(ctx context.Context, ids ...string) error {
	return remove(ctx, s, examsColl, ids)
}

// Question bank

func (s *Store) AddQuestion(ctx context.Context, q model.Question) (model.Question, error) {
	if q.ID == "" {
		q.ID = s.newID()
	}
	if q.CreatorID == "" {
		if id, err := s.currentID(); err == nil {
			q.CreatorID = id
		}
	}
	return create(ctx, s, questionsColl, q)
}

func (s *Store) UpdateQuestion(ctx context.Context, q model.Question) (model.Question, error) {
	return set(ctx, s, questionsColl, q)
}

func (s *Store) DeleteQuestions(ctx context.Context, ids ...string) error {
	return remove(ctx, s, questionsColl, ids)
}
