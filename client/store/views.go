package store

import (
	"sync"

	"github.com/trezcool/tutora/client/views"
	"github.com/trezcool/tutora/core/model"
)

// memo caches derived views for one revision of the collections.
type memo struct {
	mu     sync.Mutex
	rev    uint64
	values map[string]interface{}
}

// derive returns a copy of the cached value of key, building it from the collections
// when the store changed since it was cached.
func derive[V any](s *Store, key string, build func(c *collections, current *model.User) V) V {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.memo.mu.Lock()
	defer s.memo.mu.Unlock()
	if s.memo.values == nil || s.memo.rev != s.rev {
		s.memo.values = make(map[string]interface{})
		s.memo.rev = s.rev
	}
	v, ok := s.memo.values[key].(V)
	if !ok {
		v = build(&s.data, s.current)
		s.memo.values[key] = v
	}
	return clone(v)
}

func (s *Store) Coach() (model.User, bool) {
	type result struct {
		Coach model.User
		OK    bool
	}
	r := derive(s, "coach", func(c *collections, current *model.User) result {
		coach, ok := views.Coach(c.users, current)
		return result{coach, ok}
	})
	return r.Coach, r.OK
}

func (s *Store) Students() []model.User {
	return derive(s, "students", func(c *collections, current *model.User) []model.User {
		return views.Students(c.users, current)
	})
}

func (s *Store) Children() []model.User {
	return derive(s, "children", func(c *collections, current *model.User) []model.User {
		return views.Children(c.users, current)
	})
}

// Messaging returns the signed-in user's conversations with their messages and unread counts.
func (s *Store) Messaging() views.Messaging {
	return derive(s, "messaging", func(c *collections, current *model.User) views.Messaging {
		if current == nil {
			return views.Messaging{}
		}
		return views.BuildMessaging(current.ID, c.conversations, c.messages)
	})
}

func (s *Store) AssignmentsFor(studentID string) []model.Assignment {
	return derive(s, "assignments:"+studentID, func(c *collections, _ *model.User) []model.Assignment {
		return views.AssignmentsFor(c.assignments, studentID)
	})
}

func (s *Store) GoalsFor(studentID string) []model.Goal {
	return derive(s, "goals:"+studentID, func(c *collections, _ *model.User) []model.Goal {
		return views.GoalsFor(c.goals, studentID)
	})
}

func (s *Store) VisibleResources() []model.Resource {
	return derive(s, "resources", func(c *collections, current *model.User) []model.Resource {
		return views.VisibleResources(c.resources, current)
	})
}

func (s *Store) UnreadNotifications() []model.Notification {
	return derive(s, "notifications", func(c *collections, current *model.User) []model.Notification {
		if current == nil {
			return nil
		}
		return views.UnreadNotifications(c.notifications, current.ID)
	})
}
