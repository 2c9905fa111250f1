// Package store is the client-side domain store: an in-memory mirror of every
// collection, kept in sync with the API through optimistic writes.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/tutora/client/session"
	"github.com/trezcool/tutora/core"
	"github.com/trezcool/tutora/core/model"
)

var ErrNotSignedIn = errors.New("no user is signed in")

type (
	// API is the persistence gateway the store talks to.
	API interface {
		Get(ctx context.Context, path string, out interface{}) error
		Post(ctx context.Context, path string, body, out interface{}) error
		Put(ctx context.Context, path string, body, out interface{}) error
		Delete(ctx context.Context, path string, body, out interface{}) error
		SetToken(token string)
		IsLoading() bool
	}

	// SessionStorage persists the signed-in session between runs.
	SessionStorage interface {
		Load() (session.Session, error)
		Save(sess session.Session) error
		Clear() error
	}

	Deps struct {
		API      API
		Session  SessionStorage
		Validate *validator.Validate
		Logger   core.Logger
		// Now and NewID default to time.Now and model.NewID.
		Now   func() time.Time
		NewID func() string
	}
)

type collections struct {
	users         []model.User
	assignments   []model.Assignment
	messages      []model.Message
	conversations []model.Conversation
	notifications []model.Notification
	templates     []model.AssignmentTemplate
	resources     []model.Resource
	goals         []model.Goal
	badges        []model.Badge
	events        []model.CalendarEvent
	exams         []model.Exam
	questions     []model.Question
}

type Store struct {
	api      API
	sess     SessionStorage
	validate *validator.Validate
	logger   core.Logger
	now      func() time.Time
	newID    func() string

	mu      sync.RWMutex
	data    collections
	current *model.User
	token   string
	initing bool
	// rev is bumped on every local change; derived views are cached per revision.
	rev uint64

	memo memo
}

func New(deps Deps) *Store {
	s := &Store{
		api:      deps.API,
		sess:     deps.Session,
		validate: deps.Validate,
		logger:   deps.Logger,
		now:      deps.Now,
		newID:    deps.NewID,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = model.NewID
	}
	if s.validate == nil {
		s.validate, _ = model.NewValidator()
	}
	return s
}

// IsLoading reports whether the bootstrap or any request is in progress.
func (s *Store) IsLoading() bool {
	s.mu.RLock()
	initing := s.initing
	s.mu.RUnlock()
	return initing || s.api.IsLoading()
}

// Init provisions the backend, loads every collection and restores the stored session.
// The collections are swapped in at once, after all fetches succeeded.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	s.initing = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.initing = false
		s.mu.Unlock()
	}()

	if err := s.api.Post(ctx, "/api/setup", nil, nil); err != nil {
		return errors.Wrap(err, "setting up backend")
	}

	var next collections
	g, gctx := errgroup.WithContext(ctx)
	fetch(gctx, g, s.api, usersColl, &next)
	fetch(gctx, g, s.api, assignmentsColl, &next)
	fetch(gctx, g, s.api, messagesColl, &next)
	fetch(gctx, g, s.api, conversationsColl, &next)
	fetch(gctx, g, s.api, notificationsColl, &next)
	fetch(gctx, g, s.api, templatesColl, &next)
	fetch(gctx, g, s.api, resourcesColl, &next)
	fetch(gctx, g, s.api, goalsColl, &next)
	fetch(gctx, g, s.api, badgesColl, &next)
	fetch(gctx, g, s.api, eventsColl, &next)
	fetch(gctx, g, s.api, examsColl, &next)
	fetch(gctx, g, s.api, questionsColl, &next)
	if err := g.Wait(); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = next
	s.rev++
	s.mu.Unlock()

	return s.restoreSession()
}

// restoreSession rematches the stored user against the fresh user list.
func (s *Store) restoreSession() error {
	if s.sess == nil {
		return nil
	}
	sess, err := s.sess.Load()
	if err != nil {
		if err == session.ErrNoSession {
			return nil
		}
		return errors.Wrap(err, "loading session")
	}

	s.mu.Lock()
	var fresh *model.User
	for i := range s.data.users {
		if s.data.users[i].ID == sess.User.ID {
			u := s.data.users[i]
			fresh = &u
			break
		}
	}
	if fresh == nil {
		s.mu.Unlock()
		s.logInfo("stored user no longer exists, clearing session", sess.User.ID)
		return errors.Wrap(s.sess.Clear(), "clearing session")
	}
	s.current = fresh
	s.token = sess.Token
	s.rev++
	s.mu.Unlock()

	s.api.SetToken(sess.Token)
	return errors.Wrap(s.sess.Save(session.Session{User: *fresh, Token: sess.Token}), "saving session")
}

// Reset drops every collection and the signed-in user.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = collections{}
	s.current = nil
	s.token = ""
	s.rev++
}

// CurrentUser returns the signed-in user.
func (s *Store) CurrentUser() (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return model.User{}, false
	}
	return *s.current, true
}

func (s *Store) currentID() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return "", ErrNotSignedIn
	}
	return s.current.ID, nil
}

func (s *Store) logInfo(msg, userID string) {
	if s.logger != nil {
		s.logger.Info(msg, map[string]interface{}{"user_id": userID})
	}
}

func (s *Store) logError(msg string, err error) {
	if s.logger != nil {
		s.logger.Error(msg, err)
	}
}

// Collection accessors return copies.

func (s *Store) Users() []model.User { return all(s, usersColl) }
func (s *Store) Assignments() []model.Assignment { return all(s, assignmentsColl) }
func (s *Store) Messages() []model.Message { return all(s, messagesColl) }
func (s *Store) Conversations() []model.Conversation { return all(s, conversationsColl) }
func (s *Store) Notifications() []model.Notification { return all(s, notificationsColl) }
func (s *Store) Templates() []model.AssignmentTemplate { return all(s, templatesColl) }
func (s *Store) Resources() []model.Resource { return all(s, resourcesColl) }
func (s *Store) Goals() []model.Goal { return all(s, goalsColl) }
func (s *Store) Badges() []model.Badge { return all(s, badgesColl) }
func (s *Store) Events() []model.CalendarEvent { return all(s, eventsColl) }
func (s *Store) Exams() []model.Exam { return all(s, examsColl) }
func (s *Store) Questions() []model.Question { return all(s, questionsColl) }
