package model

import "database/sql/driver"

type (
	Milestone struct {
		ID          string `json:"id" validate:"required"`
		Text        string `json:"text" validate:"required,notblank"`
		IsCompleted bool   `json:"isCompleted"`
	}

	Milestones []Milestone
)

func (m Milestones) Value() (driver.Value, error) {
	if m == nil {
		return "[]", nil
	}
	return jsonValue(m)
}

func (m *Milestones) Scan(src interface{}) error { return jsonScan(src, m) }

type Goal struct {
	ID          string     `json:"id" db:"id" validate:"required"`
	StudentID   string     `json:"studentId" db:"student_id" validate:"required"`
	Title       string     `json:"title" db:"title" validate:"required,notblank"`
	Description string     `json:"description" db:"description"`
	IsCompleted bool       `json:"isCompleted" db:"is_completed"`
	Milestones  Milestones `json:"milestones" db:"milestones" validate:"dive"`
}

func (g Goal) EntityID() string { return g.ID }

// ToggleMilestone flips a milestone and completes the goal once every milestone is done.
// It reports whether the milestone exists.
func (g *Goal) ToggleMilestone(milestoneID string) bool {
	found := false
	done := len(g.Milestones) > 0
	for i := range g.Milestones {
		if g.Milestones[i].ID == milestoneID {
			g.Milestones[i].IsCompleted = !g.Milestones[i].IsCompleted
			found = true
		}
		done = done && g.Milestones[i].IsCompleted
	}
	if found {
		g.IsCompleted = done
	}
	return found
}
