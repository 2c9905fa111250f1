package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/trezcool/tutora/core"
	"github.com/trezcool/tutora/core/model"
)

//go:embed migrations/*.sql
var migrations embed.FS

// goose keeps its settings in package globals
var gooseMu sync.Mutex

func open(dbName string, admin bool, conf *core.Config) (*sqlx.DB, error) {
	user := url.UserPassword(conf.Database.User, conf.Database.Password)
	if admin && conf.Database.AdminUser != "" {
		user = url.UserPassword(conf.Database.AdminUser, conf.Database.AdminPassword)
	}

	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   conf.Database.Engine,
		User:     user,
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return sqlx.Open(conf.Database.Engine, u.String())
}

func Open(conf *core.Config) (*sqlx.DB, error) {
	return open(conf.Database.Name, false, conf)
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sqlx.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

func exists(db *sqlx.DB, query string, args ...interface{}) (bool, error) {
	var found bool
	err := db.Get(&found, query, args...)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return found, err
}

func createAppUser(db *sqlx.DB, conf *core.Config) error {
	if conf.Database.User == "" {
		return nil
	}

	found, err := exists(db, "SELECT true FROM pg_roles WHERE rolname = $1", conf.Database.User)
	if err != nil {
		return errors.Wrap(err, "checking app user")
	}
	if !found {
		q := fmt.Sprintf("CREATE USER %s CREATEDB ENCRYPTED PASSWORD '%s'", conf.Database.User, conf.Database.Password)
		if _, err = db.Exec(q); err != nil {
			return errors.Wrap(err, "creating app user")
		}
	}
	return nil
}

func createDB(db *sqlx.DB, conf *core.Config) error {
	found, err := exists(db, "SELECT true FROM pg_database WHERE datname = $1", conf.Database.Name)
	if err != nil {
		return errors.Wrap(err, "checking DB")
	}
	if !found {
		if _, err = db.Exec(fmt.Sprintf("CREATE DATABASE %s", conf.Database.Name)); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

// CreateIfNotExist creates the application role and database.
func CreateIfNotExist(conf *core.Config) error {
	// connect as admin
	adminDB, err := open("postgres", true, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = adminDB.Close() }()

	if err = ping(adminDB); err != nil {
		return errors.Wrap(err, "pinging database")
	}
	if err = createAppUser(adminDB, conf); err != nil {
		return err
	}

	// create DB as app user
	db, err := open("postgres", false, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()
	return createDB(db, conf)
}

// RunMigrations runs a goose command (up, down, status, version, redo...) on the embedded migrations.
func RunMigrations(db *sql.DB, command string, args ...string) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Wrap(err, "setting goose dialect")
	}
	if err := goose.Run(command, db, "migrations", args...); err != nil {
		return errors.Wrapf(err, "running migrations %q", command)
	}
	return nil
}

func Migrate(db *sql.DB) error {
	return RunMigrations(db, "up")
}

type provisioner struct {
	db *sqlx.DB
}

var _ model.Provisioner = (*provisioner)(nil) // interface compliance check

func NewProvisioner(db *sqlx.DB) model.Provisioner {
	return &provisioner{db: db}
}

// Setup migrates the schema and seeds the badge catalog and the announcements conversation.
// It is safe to call on every client start.
func (p *provisioner) Setup(ctx context.Context) error {
	if err := Migrate(p.db.DB); err != nil {
		return err
	}

	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "starting setup transaction")
	}
	defer func() { _ = tx.Rollback() }()

	for _, badge := range model.DefaultBadges {
		q := `INSERT INTO badges (id, name, description, icon) VALUES (:id, :name, :description, :icon)
			ON CONFLICT (id) DO NOTHING`
		if _, err := tx.NamedExecContext(ctx, q, badge); err != nil {
			return errors.Wrap(err, "seeding badges")
		}
	}

	q := `INSERT INTO conversations (id, participant_ids, is_group, group_name) VALUES ($1, '{}', TRUE, $2)
		ON CONFLICT (id) DO NOTHING`
	if _, err := tx.ExecContext(ctx, q, model.AnnouncementsConversationID, "Announcements"); err != nil {
		return errors.Wrap(err, "seeding announcements")
	}
	return errors.Wrap(tx.Commit(), "committing setup")
}
