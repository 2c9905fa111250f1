// Package inmemdb implements the repositories in memory, for tests and database-less runs.
package inmemdb

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/tutora/core"
	"github.com/trezcool/tutora/core/model"
)

type conversationRepository struct {
	*repository[model.Conversation]
}

var _ model.ConversationRepository = (*conversationRepository)(nil) // interface compliance check

func NewConversationRepository() model.ConversationRepository {
	return &conversationRepository{repository: newRepository[model.Conversation]("conversation")}
}

func (repo *conversationRepository) FindDirect(_ context.Context, userID1, userID2 string) (model.Conversation, error) {
	conv, ok := repo.find(func(c model.Conversation) bool { return c.IsDirectBetween(userID1, userID2) })
	if !ok {
		return model.Conversation{}, errors.Wrap(core.ErrNotFound, "finding direct conversation")
	}
	return conv, nil
}

// Open returns an empty set of in-memory repositories.
func Open() model.Repositories {
	return model.Repositories{
		Users:         NewUserRepository(),
		Assignments:   newRepository[model.Assignment]("assignment"),
		Messages:      newRepository[model.Message]("message"),
		Conversations: NewConversationRepository(),
		Notifications: newRepository[model.Notification]("notification"),
		Templates:     newRepository[model.AssignmentTemplate]("template"),
		Resources:     newRepository[model.Resource]("resource"),
		Goals:         newRepository[model.Goal]("goal"),
		Badges:        newRepository[model.Badge]("badge"),
		Events:        newRepository[model.CalendarEvent]("event"),
		Exams:         newRepository[model.Exam]("exam"),
		Questions:     newRepository[model.Question]("question"),
	}
}

type provisioner struct {
	mu    sync.Mutex
	repos model.Repositories
}

// NewProvisioner seeds the badge catalog and the announcements conversation.
func NewProvisioner(repos model.Repositories) model.Provisioner {
	return &provisioner{repos: repos}
}

func (p *provisioner) Setup(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, badge := range model.DefaultBadges {
		if _, err := p.repos.Badges.Create(ctx, badge); err != nil && errors.Cause(err) != core.ErrConflict {
			return errors.Wrap(err, "seeding badges")
		}
	}

	announcements := model.Conversation{
		ID:             model.AnnouncementsConversationID,
		ParticipantIDs: model.Strings{},
		IsGroup:        true,
		GroupName:      null.StringFrom("Announcements"),
	}
	if _, err := p.repos.Conversations.Create(ctx, announcements); err != nil && errors.Cause(err) != core.ErrConflict {
		return errors.Wrap(err, "seeding announcements")
	}
	return nil
}
