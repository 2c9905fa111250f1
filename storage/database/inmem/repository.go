package inmemdb

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/tutora/core"
	"github.com/trezcool/tutora/core/model"
)

type table[T model.Entity] struct {
	mutex sync.RWMutex
	rows  map[string]T
	order []string // insertion order
}

// repository keeps rows in memory. Returned entities share nested slices and maps
// with the stored rows and must not be mutated in place.
type repository[T model.Entity] struct {
	name string
	db   *table[T]

	// preserve copies server-owned fields of the stored row onto an update
	preserve func(stored, updated T) T
}

var _ model.Repository[model.Goal] = (*repository[model.Goal])(nil) // interface compliance check

func newRepository[T model.Entity](name string) *repository[T] {
	return &repository[T]{
		name: name,
		db:   &table[T]{rows: make(map[string]T)},
	}
}

func (repo *repository[T]) query() []T {
	rows := make([]T, 0, len(repo.db.order))
	for _, id := range repo.db.order {
		rows = append(rows, repo.db.rows[id])
	}
	return rows
}

func (repo *repository[T]) QueryAll(_ context.Context) ([]T, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.query(), nil
}

func (repo *repository[T]) Get(_ context.Context, id string) (T, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if row, ok := repo.db.rows[id]; ok {
		return row, nil
	}
	var zero T
	return zero, errors.Wrapf(core.ErrNotFound, "getting %s %q", repo.name, id)
}

func (repo *repository[T]) find(match func(T) bool) (T, bool) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, id := range repo.db.order {
		if row := repo.db.rows[id]; match(row) {
			return row, true
		}
	}
	var zero T
	return zero, false
}

func (repo *repository[T]) Create(_ context.Context, e T) (T, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	return repo.insert(e)
}

// insert expects the write lock to be held.
func (repo *repository[T]) insert(e T) (T, error) {
	id := e.EntityID()
	if _, ok := repo.db.rows[id]; ok {
		var zero T
		return zero, errors.Wrapf(core.ErrConflict, "inserting %s %q", repo.name, id)
	}
	repo.db.rows[id] = e
	repo.db.order = append(repo.db.order, id)
	return e, nil
}

func (repo *repository[T]) Update(_ context.Context, e T) (T, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	id := e.EntityID()
	stored, ok := repo.db.rows[id]
	if !ok {
		var zero T
		return zero, errors.Wrapf(core.ErrNotFound, "updating %s %q", repo.name, id)
	}
	if repo.preserve != nil {
		e = repo.preserve(stored, e)
	}
	repo.db.rows[id] = e
	return e, nil
}

func (repo *repository[T]) DeleteByIDs(_ context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	del := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := repo.db.rows[id]; ok {
			del[id] = true
			delete(repo.db.rows, id)
		}
	}
	if len(del) == 0 {
		return nil
	}
	order := make([]string, 0, len(repo.db.order))
	for _, id := range repo.db.order {
		if !del[id] {
			order = append(order, id)
		}
	}
	repo.db.order = order
	return nil
}
