// Package testutil holds fixtures shared by the package tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/trezcool/tutora/core"
	"github.com/trezcool/tutora/core/model"
	"github.com/trezcool/tutora/core/user"
)

// Config returns a configuration suited to tests, independent of the environment.
func Config() *core.Config {
	return &core.Config{
		AppName:                   "Tutora",
		Env:                       "TEST",
		Build:                     "test",
		TestMode:                  true,
		SecretKey:                 "test-secret",
		DefaultFromEmail:          "noreply@tutora.test",
		FrontendBaseURL:           "http://tutora.test",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		Server: core.ServerConfig{
			JWTExpirationDelta: time.Hour,
			ShutdownTimeout:    time.Second,
			DisableReqLogs:     true,
		},
		Client: core.ClientConfig{
			Timeout:        5 * time.Second,
			KeyringService: "TutoraTest",
		},
		Assist: core.AssistConfig{Timeout: 2 * time.Second},
	}
}

type LogEntry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// Logger records log entries; Fatal does not exit.
type Logger struct {
	mu      sync.Mutex
	entries []LogEntry
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{Level: level, Msg: msg, Args: args})
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("INFO", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("WARN", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("ERROR", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("FATAL", msg, args) }

func (l *Logger) Entries(level string) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []LogEntry
	for _, e := range l.entries {
		if level == "" || e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

func CreateUser(t *testing.T, repo model.UserRepository, name, email, pwd string, role model.Role) model.User {
	usr := model.User{
		ID:             model.NewID(),
		Name:           name,
		Email:          email,
		Role:           role,
		ChildIDs:       model.Strings{},
		ParentIDs:      model.Strings{},
		EarnedBadgeIDs: model.Strings{},
	}
	if pwd != "" {
		hash, err := user.HashPassword(pwd)
		if err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
		usr.PasswordHash = hash
	}
	usr, err := repo.Create(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// OpenDB connects to TEST_DATABASE_URL, skipping the test when it is not set.
func OpenDB(t *testing.T) *sqlx.DB {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("OpenDB() failed: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			fmt.Printf("db.Close(): %v\n", err)
		}
	})
	return db
}
