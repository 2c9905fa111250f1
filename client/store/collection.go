package store

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/tutora/core"
	"github.com/trezcool/tutora/core/model"
)

// errNoChange lets a mutation tell update there is nothing to save.
var errNoChange = errors.New("no change")

// coll binds an entity type to its API path and its slot in collections.
type coll[T model.Entity] struct {
	path string
	sel  func(*collections) *[]T
}

func (c coll[T]) url(id ...string) string {
	if len(id) > 0 {
		return "/api/" + c.path + "/" + url.PathEscape(id[0])
	}
	return "/api/" + c.path
}

var (
	usersColl         = coll[model.User]{"users", func(c *collections) *[]model.User { return &c.users }}
	assignmentsColl   = coll[model.Assignment]{"assignments", func(c *collections) *[]model.Assignment { return &c.assignments }}
	messagesColl      = coll[model.Message]{"messages", func(c *collections) *[]model.Message { return &c.messages }}
	conversationsColl = coll[model.Conversation]{"conversations", func(c *collections) *[]model.Conversation { return &c.conversations }}
	notificationsColl = coll[model.Notification]{"notifications", func(c *collections) *[]model.Notification { return &c.notifications }}
	templatesColl     = coll[model.AssignmentTemplate]{"templates", func(c *collections) *[]model.AssignmentTemplate { return &c.templates }}
	resourcesColl     = coll[model.Resource]{"resources", func(c *collections) *[]model.Resource { return &c.resources }}
	goalsColl         = coll[model.Goal]{"goals", func(c *collections) *[]model.Goal { return &c.goals }}
	badgesColl        = coll[model.Badge]{"badges", func(c *collections) *[]model.Badge { return &c.badges }}
	eventsColl        = coll[model.CalendarEvent]{"events", func(c *collections) *[]model.CalendarEvent { return &c.events }}
	examsColl         = coll[model.Exam]{"exams", func(c *collections) *[]model.Exam { return &c.exams }}
	questionsColl     = coll[model.Question]{"questions", func(c *collections) *[]model.Question { return &c.questions }}
)

type deleteRequest struct {
	IDs []string `json:"ids"`
}

// clone deep-copies v through its JSON form, which is also its wire form.
func clone[T any](v T) T {
	var out T
	data, err := json.Marshal(v)
	if err != nil {
		panic(errors.Wrap(err, "cloning entity"))
	}
	if err = json.Unmarshal(data, &out); err != nil {
		panic(errors.Wrap(err, "cloning entity"))
	}
	return out
}

func indexOf[T model.Entity](rows []T, id string) int {
	for i := range rows {
		if rows[i].EntityID() == id {
			return i
		}
	}
	return -1
}

func fetch[T model.Entity](ctx context.Context, g *errgroup.Group, api API, c coll[T], into *collections) {
	dst := c.sel(into)
	g.Go(func() error {
		var rows []T
		if err := api.Get(ctx, c.url(), &rows); err != nil {
			return errors.Wrapf(err, "fetching %s", c.path)
		}
		*dst = rows
		return nil
	})
}

func all[T model.Entity](s *Store, c coll[T]) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := *c.sel(&s.data)
	if rows == nil {
		return nil
	}
	return clone(rows)
}

func find[T model.Entity](s *Store, c coll[T], id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := *c.sel(&s.data)
	if i := indexOf(rows, id); i >= 0 {
		return clone(rows[i]), true
	}
	var zero T
	return zero, false
}

// The helpers below expect s.mu to be held.

func upsert[T model.Entity](s *Store, c coll[T], e T) {
	rows := c.sel(&s.data)
	if i := indexOf(*rows, e.EntityID()); i >= 0 {
		(*rows)[i] = e
	} else {
		*rows = append(*rows, e)
	}
	s.rev++
}

// replace swaps in e only if its id is still cached, so late responses never resurrect deleted entities.
func replace[T model.Entity](s *Store, c coll[T], e T) {
	rows := c.sel(&s.data)
	if i := indexOf(*rows, e.EntityID()); i >= 0 {
		(*rows)[i] = e
		s.rev++
	}
}

func drop[T model.Entity](s *Store, c coll[T], id string) {
	rows := c.sel(&s.data)
	if i := indexOf(*rows, id); i >= 0 {
		*rows = append((*rows)[:i:i], (*rows)[i+1:]...)
		s.rev++
	}
}

// create validates e, caches it, then saves it. The cached copy is replaced by the
// server's version on success and dropped on failure.
func create[T model.Entity](ctx context.Context, s *Store, c coll[T], e T) (T, error) {
	if err := s.validate.Struct(e); err != nil {
		return e, err
	}

	s.mu.Lock()
	if indexOf(*c.sel(&s.data), e.EntityID()) >= 0 {
		s.mu.Unlock()
		return e, errors.Wrapf(core.ErrConflict, "creating %s %s", c.path, e.EntityID())
	}
	upsert(s, c, clone(e))
	s.mu.Unlock()

	var saved T
	if err := s.api.Post(ctx, c.url(), e, &saved); err != nil {
		s.mu.Lock()
		drop(s, c, e.EntityID())
		s.mu.Unlock()
		return e, errors.Wrapf(err, "creating %s", c.path)
	}

	s.mu.Lock()
	replace(s, c, saved)
	s.mu.Unlock()
	return clone(saved), nil
}

// update applies mutate to a copy of the cached entity, validates and caches the result,
// then saves it. A cache miss is a no-op reported by a false ok. A failed save restores
// the previous version.
func update[T model.Entity](ctx context.Context, s *Store, c coll[T], id string, mutate func(*T) error) (_ T, ok bool, _ error) {
	s.mu.Lock()
	rows := c.sel(&s.data)
	i := indexOf(*rows, id)
	if i < 0 {
		s.mu.Unlock()
		var zero T
		return zero, false, nil
	}
	prev := (*rows)[i]
	next := clone(prev)
	if err := mutate(&next); err != nil {
		s.mu.Unlock()
		if err == errNoChange {
			err = nil
		}
		return clone(prev), true, err
	}
	if err := s.validate.Struct(next); err != nil {
		s.mu.Unlock()
		return clone(prev), true, err
	}
	(*rows)[i] = next
	s.rev++
	s.mu.Unlock()

	var saved T
	if err := s.api.Put(ctx, c.url(id), next, &saved); err != nil {
		s.mu.Lock()
		replace(s, c, prev)
		s.mu.Unlock()
		return clone(prev), true, errors.Wrapf(err, "updating %s %s", c.path, id)
	}

	s.mu.Lock()
	replace(s, c, saved)
	s.mu.Unlock()
	return clone(saved), true, nil
}

// set replaces the whole cached entity with e.
func set[T model.Entity](ctx context.Context, s *Store, c coll[T], e T) (T, error) {
	saved, _, err := update(ctx, s, c, e.EntityID(), func(next *T) error {
		*next = clone(e)
		return nil
	})
	return saved, err
}

// remove drops the cached entities among ids, then deletes them. Uncached ids are
// ignored. A failed delete puts the entities back.
func remove[T model.Entity](ctx context.Context, s *Store, c coll[T], ids []string) error {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	s.mu.Lock()
	rows := c.sel(&s.data)
	var (
		kept    []T
		removed []T
		present []string
	)
	for _, e := range *rows {
		if wanted[e.EntityID()] {
			removed = append(removed, e)
			present = append(present, e.EntityID())
		} else {
			kept = append(kept, e)
		}
	}
	if len(removed) == 0 {
		s.mu.Unlock()
		return nil
	}
	*rows = kept
	s.rev++
	s.mu.Unlock()

	if err := s.api.Delete(ctx, c.url(), deleteRequest{IDs: present}, nil); err != nil {
		s.mu.Lock()
		for _, e := range removed {
			if indexOf(*c.sel(&s.data), e.EntityID()) < 0 {
				upsert(s, c, e)
			}
		}
		s.mu.Unlock()
		return errors.Wrapf(err, "deleting %s", c.path)
	}
	return nil
}
