package store

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/tutora/core/model"
)

// SendMessage posts m as the signed-in user.
func (s *Store) SendMessage(ctx context.Context, m model.Message) (model.Message, error) {
	senderID, err := s.currentID()
	if err != nil {
		return m, err
	}
	if m.ID == "" {
		m.ID = s.newID()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = s.now().UTC()
	}
	if m.Type == "" {
		m.Type = model.MessageText
	}
	m.SenderID = senderID
	m.ReadBy = m.ReadBy.With(senderID)
	return create(ctx, s, messagesColl, m)
}

// MarkMessagesAsRead marks every message of the conversation as read by the signed-in user.
// Each message is saved on its own; the first failure is returned after all saves ended.
func (s *Store) MarkMessagesAsRead(ctx context.Context, conversationID string) error {
	userID, err := s.currentID()
	if err != nil {
		return err
	}

	s.mu.RLock()
	var ids []string
	for i := range s.data.messages {
		m := &s.data.messages[i]
		if m.ConversationID == conversationID && !m.IsReadBy(userID) {
			ids = append(ids, m.ID)
		}
	}
	s.mu.RUnlock()

	var g errgroup.Group
	for _, id := range ids {
		id := id
		g.Go(func() error {
			_, _, err := update(ctx, s, messagesColl, id, func(m *model.Message) error {
				if !m.MarkReadBy(userID) {
					return errNoChange
				}
				return nil
			})
			return err
		})
	}
	return g.Wait()
}

// AddReaction toggles the signed-in user's emoji reaction on a message.
func (s *Store) AddReaction(ctx context.Context, messageID, emoji string) error {
	userID, err := s.currentID()
	if err != nil {
		return err
	}
	_, _, err = update(ctx, s, messagesColl, messageID, func(m *model.Message) error {
		m.ToggleReaction(emoji, userID)
		return nil
	})
	return err
}

func (s *Store) VoteOnPoll(ctx context.Context, messageID, optionID string) error {
	userID, err := s.currentID()
	if err != nil {
		return err
	}
	_, _, err = update(ctx, s, messagesColl, messageID, func(m *model.Message) error {
		return m.VoteOnPoll(optionID, userID)
	})
	return err
}

func (s *Store) DeleteMessages(ctx context.Context, ids ...string) error {
	return remove(ctx, s, messagesColl, ids)
}

type findOrCreateRequest struct {
	UserID1 string `json:"userId1"`
	UserID2 string `json:"userId2"`
}

// FindOrCreateConversation returns the direct conversation between the signed-in user and
// otherUserID, asking the API only when none is cached.
func (s *Store) FindOrCreateConversation(ctx context.Context, otherUserID string) (model.Conversation, error) {
	userID, err := s.currentID()
	if err != nil {
		return model.Conversation{}, err
	}

	s.mu.RLock()
	for i := range s.data.conversations {
		if c := &s.data.conversations[i]; c.IsDirectBetween(userID, otherUserID) {
			found := clone(*c)
			s.mu.RUnlock()
			return found, nil
		}
	}
	s.mu.RUnlock()

	var conv model.Conversation
	req := findOrCreateRequest{UserID1: userID, UserID2: otherUserID}
	if err = s.api.Post(ctx, conversationsColl.url("findOrCreate"), req, &conv); err != nil {
		return conv, errors.Wrap(err, "finding conversation")
	}

	s.mu.Lock()
	upsert(s, conversationsColl, conv)
	s.mu.Unlock()
	return clone(conv), nil
}

// CreateGroupConversation opens a group administered by the signed-in user.
func (s *Store) CreateGroupConversation(ctx context.Context, name string, participantIDs ...string) (model.Conversation, error) {
	adminID, err := s.currentID()
	if err != nil {
		return model.Conversation{}, err
	}
	participants := model.Strings(participantIDs).With(adminID)
	sort.Strings(participants)
	return create(ctx, s, conversationsColl, model.Conversation{
		ID:             s.newID(),
		ParticipantIDs: participants,
		IsGroup:        true,
		GroupName:      null.StringFrom(name),
		AdminID:        null.StringFrom(adminID),
	})
}

func (s *Store) UpdateConversation(ctx context.Context, c model.Conversation) (model.Conversation, error) {
	return set(ctx, s, conversationsColl, c)
}

func (s *Store) ToggleArchiveConversation(ctx context.Context, id string) error {
	_, _, err := update(ctx, s, conversationsColl, id, func(c *model.Conversation) error {
		c.IsArchived = !c.IsArchived
		return nil
	})
	return err
}

func (s *Store) DeleteConversations(ctx context.Context, ids ...string) error {
	return remove(ctx, s, conversationsColl, ids)
}

func (s *Store) AddNotification(ctx context.Context, n model.Notification) (model.Notification, error) {
	if n.ID == "" {
		n.ID = s.newID()
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = s.now().UTC()
	}
	if n.Priority == "" {
		n.Priority = model.PriorityMedium
	}
	return create(ctx, s, notificationsColl, n)
}

// MarkNotificationsAsRead marks the given notifications read, or every unread notification
// of the signed-in user when no id is given.
func (s *Store) MarkNotificationsAsRead(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		userID, err := s.currentID()
		if err != nil {
			return err
		}
		s.mu.RLock()
		for _, n := range s.data.notifications {
			if n.UserID == userID && !n.IsRead {
				ids = append(ids, n.ID)
			}
		}
		s.mu.RUnlock()
	}

	var g errgroup.Group
	for _, id := range ids {
		id := id
		g.Go(func() error {
			_, _, err := update(ctx, s, notificationsColl, id, func(n *model.Notification) error {
				if n.IsRead {
					return errNoChange
				}
				n.IsRead = true
				return nil
			})
			return err
		})
	}
	return g.Wait()
}

func (s *Store) DeleteNotifications(ctx context.Context, ids ...string) error {
	return remove(ctx, s, notificationsColl, ids)
}
