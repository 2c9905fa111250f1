package views

import (
	"sort"
	"time"

	"github.com/trezcool/tutora/core/model"
)

// Coach returns the coach of current. A student gets their assigned coach, a coach or
// admin gets themselves, and anyone else the first coach on record.
func Coach(users []model.User, current *model.User) (model.User, bool) {
	switch {
	case current != nil && current.IsStudent():
		if !current.AssignedCoachID.Valid {
			return model.User{}, false
		}
		for _, u := range users {
			if u.ID == current.AssignedCoachID.String {
				return u, true
			}
		}
		return model.User{}, false
	case current != nil && current.CanManageStudents():
		return *current, true
	}
	for _, u := range users {
		if u.IsCoach() {
			return u, true
		}
	}
	return model.User{}, false
}

// Students returns the students current looks after: every student for an admin,
// the assigned ones for a coach, none for anyone else.
func Students(users []model.User, current *model.User) []model.User {
	if current == nil || !current.CanManageStudents() {
		return nil
	}
	var out []model.User
	for _, u := range users {
		if !u.IsStudent() {
			continue
		}
		if current.IsSuperAdmin() || u.AssignedCoachID.String == current.ID {
			out = append(out, u)
		}
	}
	return out
}

// Children returns the students linked to the parent current, from either side of the link.
func Children(users []model.User, current *model.User) []model.User {
	if current == nil || !current.IsParent() {
		return nil
	}
	var out []model.User
	for _, u := range users {
		if u.IsStudent() && (current.ChildIDs.Contains(u.ID) || u.ParentIDs.Contains(current.ID)) {
			out = append(out, u)
		}
	}
	return out
}

// AssignmentsFor returns the student's assignments by ascending due date.
func AssignmentsFor(assignments []model.Assignment, studentID string) []model.Assignment {
	var out []model.Assignment
	for _, a := range assignments {
		if a.StudentID == studentID {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out
}

func GoalsFor(goals []model.Goal, studentID string) []model.Goal {
	var out []model.Goal
	for _, g := range goals {
		if g.StudentID == studentID {
			out = append(out, g)
		}
	}
	return out
}

func VisibleResources(resources []model.Resource, current *model.User) []model.Resource {
	var out []model.Resource
	for i := range resources {
		if resources[i].VisibleTo(current) {
			out = append(out, resources[i])
		}
	}
	return out
}

// UnreadNotifications returns userID's unread notifications, highest priority first,
// then newest first.
func UnreadNotifications(notifications []model.Notification, userID string) []model.Notification {
	var out []model.Notification
	for _, n := range notifications {
		if n.UserID == userID && !n.IsRead {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if ri, rj := out[i].Priority.Rank(), out[j].Priority.Rank(); ri != rj {
			return ri > rj
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// Summary counts a student's assignments by status.
type Summary struct {
	Name      string
	Pending   int
	Overdue   int
	Submitted int
	Graded    int
	// AverageGrade is the mean of the graded assignments, 0 when none are graded.
	AverageGrade float64
}

func WeeklySummary(student model.User, assignments []model.Assignment, now time.Time) Summary {
	sum := Summary{Name: student.Name}
	var total int
	for _, a := range AssignmentsFor(assignments, student.ID) {
		switch a.Status {
		case model.StatusPending:
			sum.Pending++
			if a.IsOverdue(now) {
				sum.Overdue++
			}
		case model.StatusSubmitted:
			sum.Submitted++
		case model.StatusGraded:
			sum.Graded++
			total += a.Grade.Int
		}
	}
	if sum.Graded > 0 {
		sum.AverageGrade = float64(total) / float64(sum.Graded)
	}
	return sum
}
