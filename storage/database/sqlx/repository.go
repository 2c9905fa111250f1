package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/tutora/core"
	"github.com/trezcool/tutora/core/model"
)

const uniqueViolation = "23505"

var insertionOrder = core.DBOrdering{Field: "seq", Ascending: true}

// repository maps an entity onto one table using the `db` struct tags.
type repository[T model.Entity] struct {
	exec          sqlx.ExtContext
	name          string
	table         string
	columns       []string
	updateColumns []string
}

var _ model.Repository[model.Goal] = (*repository[model.Goal])(nil) // interface compliance check

func newRepository[T model.Entity](exec sqlx.ExtContext, name, table string, readOnlyCols ...string) *repository[T] {
	cols := columnsOf[T]()
	skip := map[string]bool{"id": true}
	for _, c := range readOnlyCols {
		skip[c] = true
	}
	upd := make([]string, 0, len(cols))
	for _, c := range cols {
		if !skip[c] {
			upd = append(upd, c)
		}
	}
	return &repository[T]{exec: exec, name: name, table: table, columns: cols, updateColumns: upd}
}

func columnsOf[T any]() []string {
	var zero T
	typ := reflect.TypeOf(zero)
	cols := make([]string, 0, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		if tag := typ.Field(i).Tag.Get("db"); tag != "" && tag != "-" {
			cols = append(cols, tag)
		}
	}
	return cols
}

func (repo *repository[T]) selectQuery() string {
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(repo.columns, ", "), repo.table)
}

func (repo *repository[T]) returning() string {
	return " RETURNING " + strings.Join(repo.columns, ", ")
}

// trapErr maps "no rows" to core.ErrNotFound and unique violations to core.ErrConflict.
func (repo *repository[T]) trapErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return errors.Wrap(core.ErrNotFound, msg)
	}
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == uniqueViolation {
		return errors.Wrap(core.ErrConflict, msg)
	}
	return errors.Wrap(err, msg)
}

func (repo *repository[T]) QueryAll(ctx context.Context) ([]T, error) {
	rows := make([]T, 0)
	q := repo.selectQuery() + " ORDER BY " + insertionOrder.String()
	if err := sqlx.SelectContext(ctx, repo.exec, &rows, q); err != nil {
		return nil, errors.Wrapf(err, "querying %ss", repo.name)
	}
	return rows, nil
}

func (repo *repository[T]) Get(ctx context.Context, id string) (T, error) {
	var row T
	if err := sqlx.GetContext(ctx, repo.exec, &row, repo.selectQuery()+" WHERE id = $1", id); err != nil {
		var zero T
		return zero, repo.trapErr(err, fmt.Sprintf("getting %s %q", repo.name, id))
	}
	return row, nil
}

func (repo *repository[T]) namedReturning(ctx context.Context, q string, e T) (T, error) {
	var zero T
	rows, err := sqlx.NamedQueryContext(ctx, repo.exec, q, e)
	if err != nil {
		return zero, err
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return zero, err
		}
		return zero, sql.ErrNoRows
	}
	var row T
	if err := rows.StructScan(&row); err != nil {
		return zero, err
	}
	return row, rows.Err()
}

func (repo *repository[T]) Create(ctx context.Context, e T) (T, error) {
	params := make([]string, 0, len(repo.columns))
	for _, c := range repo.columns {
		params = append(params, ":"+c)
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", repo.table, strings.Join(repo.columns, ", "), strings.Join(params, ", "))

	row, err := repo.namedReturning(ctx, q+repo.returning(), e)
	if err != nil {
		var zero T
		return zero, repo.trapErr(err, fmt.Sprintf("inserting %s %q", repo.name, e.EntityID()))
	}
	return row, nil
}

func (repo *repository[T]) Update(ctx context.Context, e T) (T, error) {
	sets := make([]string, 0, len(repo.updateColumns))
	for _, c := range repo.updateColumns {
		sets = append(sets, c+" = :"+c)
	}
	q := fmt.Sprintf("UPDATE %s SET %s WHERE id = :id", repo.table, strings.Join(sets, ", "))

	row, err := repo.namedReturning(ctx, q+repo.returning(), e)
	if err != nil {
		var zero T
		return zero, repo.trapErr(err, fmt.Sprintf("updating %s %q", repo.name, e.EntityID()))
	}
	return row, nil
}

func (repo *repository[T]) DeleteByIDs(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	q := fmt.Sprintf("DELETE FROM %s WHERE id = ANY($1)", repo.table)
	if _, err := repo.exec.ExecContext(ctx, q, pq.Array(ids)); err != nil {
		return errors.Wrapf(err, "deleting %ss", repo.name)
	}
	return nil
}
