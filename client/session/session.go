// Package session persists the signed-in identity and local UI preferences.
package session

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/zalando/go-keyring"

	"github.com/trezcool/tutora/core/model"
)

const currentUserKey = "currentUser"

var ErrNoSession = errors.New("no stored session")

// Session is the signed-in user and their bearer token.
type Session struct {
	User  model.User `json:"currentUser"`
	Token string     `json:"token"`
}

// Storage keeps the session in the OS keyring.
type Storage struct {
	service string
}

func NewStorage(service string) *Storage {
	return &Storage{service: service}
}

// Load returns the stored session, or ErrNoSession.
// An unreadable entry is removed and reported as ErrNoSession.
func (s *Storage) Load() (Session, error) {
	raw, err := keyring.Get(s.service, currentUserKey)
	if err != nil {
		if err == keyring.ErrNotFound {
			return Session{}, ErrNoSession
		}
		return Session{}, errors.Wrap(err, "reading keyring")
	}

	var sess Session
	if err = json.Unmarshal([]byte(raw), &sess); err != nil || sess.User.ID == "" {
		_ = s.Clear()
		return Session{}, ErrNoSession
	}
	return sess, nil
}

func (s *Storage) Save(sess Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "encoding session")
	}
	if err = keyring.Set(s.service, currentUserKey, string(raw)); err != nil {
		return errors.Wrap(err, "writing keyring")
	}
	return nil
}

// Clear removes the stored session. Clearing an empty storage is not an error.
func (s *Storage) Clear() error {
	if err := keyring.Delete(s.service, currentUserKey); err != nil && err != keyring.ErrNotFound {
		return errors.Wrap(err, "clearing keyring")
	}
	return nil
}
