package sqlxrepos

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/tutora/core"
	"github.com/trezcool/tutora/core/model"
)

type userRepository struct {
	*repository[model.User]
}

var _ model.UserRepository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec sqlx.ExtContext) model.UserRepository {
	// password hashes only change through SetPasswordHash
	return &userRepository{repository: newRepository[model.User](exec, "user", "users", "password_hash")}
}

func (repo *userRepository) GetByEmail(ctx context.Context, email string) (model.User, error) {
	var usr model.User
	if err := sqlx.GetContext(ctx, repo.exec, &usr, repo.selectQuery()+" WHERE lower(email) = lower($1)", email); err != nil {
		return model.User{}, repo.trapErr(err, fmt.Sprintf("getting user by email %q", email))
	}
	return usr, nil
}

func (repo *userRepository) SetPasswordHash(ctx context.Context, id string, hash []byte) error {
	res, err := repo.exec.ExecContext(ctx, "UPDATE users SET password_hash = $1 WHERE id = $2", hash, id)
	if err != nil {
		return errors.Wrapf(err, "setting password of user %q", id)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Wrapf(core.ErrNotFound, "setting password of user %q", id)
	}
	return nil
}

type conversationRepository struct {
	*repository[model.Conversation]
}

var _ model.ConversationRepository = (*conversationRepository)(nil) // interface compliance check

func NewConversationRepository(exec sqlx.ExtContext) model.ConversationRepository {
	return &conversationRepository{repository: newRepository[model.Conversation](exec, "conversation", "conversations")}
}

func (repo *conversationRepository) FindDirect(ctx context.Context, userID1, userID2 string) (model.Conversation, error) {
	var conv model.Conversation
	q := repo.selectQuery() + ` WHERE NOT is_group AND cardinality(participant_ids) = 2 AND participant_ids @> $1
		ORDER BY ` + insertionOrder.String() + ` LIMIT 1`
	if err := sqlx.GetContext(ctx, repo.exec, &conv, q, pq.Array([]string{userID1, userID2})); err != nil {
		return model.Conversation{}, repo.trapErr(err, "finding direct conversation")
	}
	return conv, nil
}

// NewRepositories returns the postgres backed repositories.
func NewRepositories(db *sqlx.DB) model.Repositories {
	return model.Repositories{
		Users:         NewUserRepository(db),
		Assignments:   newRepository[model.Assignment](db, "assignment", "assignments"),
		Messages:      newRepository[model.Message](db, "message", "messages"),
		Conversations: NewConversationRepository(db),
		Notifications: newRepository[model.Notification](db, "notification", "notifications"),
		Templates:     newRepository[model.AssignmentTemplate](db, "template", "assignment_templates"),
		Resources:     newRepository[model.Resource](db, "resource", "resources"),
		Goals:         newRepository[model.Goal](db, "goal", "goals"),
		Badges:        newRepository[model.Badge](db, "badge", "badges"),
		Events:        newRepository[model.CalendarEvent](db, "event", "calendar_events"),
		Exams:         newRepository[model.Exam](db, "exam", "exams"),
		Questions:     newRepository[model.Question](db, "question", "questions"),
	}
}
