package store

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/tutora/client/session"
	"github.com/trezcool/tutora/core/model"
	"github.com/trezcool/tutora/core/user"
)

type loginResponse struct {
	User  model.User `json:"user"`
	Token string     `json:"token"`
}

// Register signs up a new account and signs it in.
func (s *Store) Register(ctx context.Context, nu user.NewUser) (model.User, error) {
	if nu.ID == "" {
		nu.ID = s.newID()
	}
	if err := nu.Validate(s.validate); err != nil {
		return model.User{}, err
	}

	var res loginResponse
	if err := s.api.Post(ctx, "/api/register", nu, &res); err != nil {
		return model.User{}, errors.Wrap(err, "registering")
	}
	return res.User, s.signIn(res)
}

func (s *Store) Login(ctx context.Context, email, password string) (model.User, error) {
	creds := user.Credentials{Email: email, Password: password}
	if err := creds.Validate(s.validate); err != nil {
		return model.User{}, err
	}

	var res loginResponse
	if err := s.api.Post(ctx, "/api/login", creds, &res); err != nil {
		return model.User{}, errors.Wrap(err, "logging in")
	}
	return res.User, s.signIn(res)
}

func (s *Store) signIn(res loginResponse) error {
	s.api.SetToken(res.Token)

	s.mu.Lock()
	usr := res.User
	s.current = &usr
	s.token = res.Token
	upsert(s, usersColl, res.User)
	s.mu.Unlock()

	if s.sess == nil {
		return nil
	}
	return errors.Wrap(s.sess.Save(session.Session{User: res.User, Token: res.Token}), "saving session")
}

// Logout forgets the session and resets the store.
func (s *Store) Logout() error {
	s.api.SetToken("")
	s.Reset()
	if s.sess == nil {
		return nil
	}
	return errors.Wrap(s.sess.Clear(), "clearing session")
}

// refreshCurrent keeps the signed-in user and the stored session in step with u.
func (s *Store) refreshCurrent(u model.User) {
	s.mu.Lock()
	if s.current == nil || s.current.ID != u.ID {
		s.mu.Unlock()
		return
	}
	s.current = &u
	token := s.token
	s.rev++
	s.mu.Unlock()

	if s.sess != nil {
		if err := s.sess.Save(session.Session{User: u, Token: token}); err != nil {
			s.logError("saving session", err)
		}
	}
}
