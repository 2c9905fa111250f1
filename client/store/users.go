package store

import (
	"context"

	"github.com/trezcool/tutora/core/model"
)

// SubmissionXP is the XP granted for each submitted assignment.
const SubmissionXP = 50

// AddUser creates an account without credentials, as coaches do when inviting students.
func (s *Store) AddUser(ctx context.Context, u model.User) (model.User, error) {
	if u.ID == "" {
		u.ID = s.newID()
	}
	if u.ChildIDs == nil {
		u.ChildIDs = model.Strings{}
	}
	if u.ParentIDs == nil {
		u.ParentIDs = model.Strings{}
	}
	if u.EarnedBadgeIDs == nil {
		u.EarnedBadgeIDs = model.Strings{}
	}
	return create(ctx, s, usersColl, u)
}

func (s *Store) UpdateUser(ctx context.Context, u model.User) (model.User, error) {
	saved, err := set(ctx, s, usersColl, u)
	if err == nil {
		s.refreshCurrent(saved)
	}
	return saved, err
}

func (s *Store) updateUser(ctx context.Context, id string, mutate func(*model.User) error) error {
	saved, ok, err := update(ctx, s, usersColl, id, mutate)
	if err == nil && ok {
		s.refreshCurrent(saved)
	}
	return err
}

func (s *Store) AwardXP(ctx context.Context, userID string, xp int) error {
	return s.updateUser(ctx, userID, func(u *model.User) error {
		u.XP += xp
		return nil
	})
}

// AwardBadge grants a badge once.
func (s *Store) AwardBadge(ctx context.Context, userID, badgeID string) error {
	return s.updateUser(ctx, userID, func(u *model.User) error {
		if u.EarnedBadgeIDs.Contains(badgeID) {
			return errNoChange
		}
		u.EarnedBadgeIDs = u.EarnedBadgeIDs.With(badgeID)
		return nil
	})
}

func (s *Store) DeleteUsers(ctx context.Context, ids ...string) error {
	return remove(ctx, s, usersColl, ids)
}
