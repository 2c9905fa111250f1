package model

import (
	"time"

	"github.com/volatiletech/null/v8"
)

type Role string

// Roles
const (
	RoleStudent    Role = "Student"
	RoleCoach      Role = "Coach"
	RoleSuperAdmin Role = "SuperAdmin"
	RoleParent     Role = "Parent"
)

var AllRoles = []Role{RoleStudent, RoleCoach, RoleSuperAdmin, RoleParent}

var rolePriorities = map[Role]int{
	RoleStudent:    1,
	RoleParent:     1,
	RoleCoach:      2,
	RoleSuperAdmin: 3,
}

// Priority ranks roles by privilege; unknown roles rank 0.
func (r Role) Priority() int {
	return rolePriorities[r]
}

// CanSelfRegister reports whether anyone may sign up with r.
func (r Role) CanSelfRegister() bool {
	return r == RoleStudent || r == RoleParent
}

func (r Role) IsValid() bool {
	for _, role := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

type User struct {
	ID                 string      `json:"id" db:"id" validate:"required"`
	Name               string      `json:"name" db:"name" validate:"required,notblank"`
	Email              string      `json:"email" db:"email" validate:"required,email"`
	Role               Role        `json:"role" db:"role" validate:"required,oneof=Student Coach SuperAdmin Parent"`
	ProfilePicture     string      `json:"profilePicture" db:"profile_picture"`
	Notes              null.String `json:"notes" db:"notes"`
	AssignedCoachID    null.String `json:"assignedCoachId" db:"assigned_coach_id"`
	GradeLevel         null.String `json:"gradeLevel" db:"grade_level"`
	AcademicTrack      null.String `json:"academicTrack" db:"academic_track"`
	ChildIDs           Strings     `json:"childIds" db:"child_ids"`
	ParentIDs          Strings     `json:"parentIds" db:"parent_ids"`
	XP                 int         `json:"xp" db:"xp" validate:"min=0"`
	Streak             int         `json:"streak" db:"streak" validate:"min=0"`
	LastSubmissionDate null.Time   `json:"lastSubmissionDate" db:"last_submission_date"`
	EarnedBadgeIDs     Strings     `json:"earnedBadgeIds" db:"earned_badge_ids"`
	PasswordHash       []byte      `json:"-" db:"password_hash"`
}

func (u User) EntityID() string { return u.ID }

func (u *User) IsStudent() bool    { return u.Role == RoleStudent }
func (u *User) IsCoach() bool      { return u.Role == RoleCoach }
func (u *User) IsSuperAdmin() bool { return u.Role == RoleSuperAdmin }
func (u *User) IsParent() bool     { return u.Role == RoleParent }

// CanManageStudents reports whether u can coach, grade and invite students.
func (u *User) CanManageStudents() bool {
	return u.IsCoach() || u.IsSuperAdmin()
}

// RecordSubmission grants xp and advances the daily submission streak.
// A second submission on the same day keeps the streak, a gap of more than a day resets it.
func (u *User) RecordSubmission(xp int, now time.Time) {
	u.XP += xp
	today := truncateDay(now)
	switch {
	case !u.LastSubmissionDate.Valid:
		u.Streak = 1
	case truncateDay(u.LastSubmissionDate.Time).Equal(today):
		if u.Streak == 0 {
			u.Streak = 1
		}
	case truncateDay(u.LastSubmissionDate.Time).Equal(today.AddDate(0, 0, -1)):
		u.Streak++
	default:
		u.Streak = 1
	}
	u.LastSubmissionDate = null.TimeFrom(now.UTC())
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
