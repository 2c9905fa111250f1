package store_test

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	echoapi "github.com/trezcool/tutora/apps/api/echo"
	"github.com/trezcool/tutora/client/gateway"
	"github.com/trezcool/tutora/client/session"
	"github.com/trezcool/tutora/client/store"
	"github.com/trezcool/tutora/core"
	"github.com/trezcool/tutora/core/model"
	"github.com/trezcool/tutora/core/user"
	emailsvc "github.com/trezcool/tutora/services/email"
	inmemdb "github.com/trezcool/tutora/storage/database/inmem"
	"github.com/trezcool/tutora/testutil"
)

const testPassword = "Gr8-Kangaroo!"

var t0 = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

// spyAPI counts the requests going through it and can make writes fail.
type spyAPI struct {
	store.API

	mu        sync.Mutex
	calls     int
	failWrite error
}

func (a *spyAPI) record(write bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if write {
		return a.failWrite
	}
	return nil
}

func (a *spyAPI) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func (a *spyAPI) FailWrites(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failWrite = err
}

func (a *spyAPI) Get(ctx context.Context, path string, out interface{}) error {
	_ = a.record(false)
	return a.API.Get(ctx, path, out)
}

func (a *spyAPI) Post(ctx context.Context, path string, body, out interface{}) error {
	if err := a.record(true); err != nil {
		return err
	}
	return a.API.Post(ctx, path, body, out)
}

func (a *spyAPI) Put(ctx context.Context, path string, body, out interface{}) error {
	if err := a.record(true); err != nil {
		return err
	}
	return a.API.Put(ctx, path, body, out)
}

func (a *spyAPI) Delete(ctx context.Context, path string, body, out interface{}) error {
	if err := a.record(true); err != nil {
		return err
	}
	return a.API.Delete(ctx, path, body, out)
}

type testEnv struct {
	conf    *core.Config
	repos   model.Repositories
	api     *spyAPI
	storage *session.Storage
	logger  *testutil.Logger
	baseURL string

	coach   model.User
	student model.User
}

// setup serves the API from in-memory repositories, with a coach and a student account.
func setup(t *testing.T) testEnv {
	t.Helper()
	keyring.MockInit()

	conf := testutil.Config()
	logger := &testutil.Logger{}
	repos := inmemdb.Open()
	validate, translator := model.NewValidator()
	user.InitValidators(validate, translator)
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)

	app := echoapi.NewServer(echoapi.ServerDeps{
		Conf:        conf,
		Logger:      logger,
		Repos:       repos,
		Provisioner: inmemdb.NewProvisioner(repos),
		UserSvc:     user.NewService(conf, repos.Users, mailSvc, validate),
		Validate:    validate,
		Translator:  translator,
		Metrics:     prometheus.NewRegistry(),
	})
	srv := httptest.NewServer(app)
	t.Cleanup(srv.Close)

	env := testEnv{
		conf:    conf,
		repos:   repos,
		storage: session.NewStorage(conf.Client.KeyringService),
		logger:  logger,
		baseURL: srv.URL,
	}
	env.coach = testutil.CreateUser(t, repos.Users, "Selin Hoca", "selin@tutora.test", testPassword, model.RoleCoach)
	env.student = testutil.CreateUser(t, repos.Users, "Deniz", "deniz@tutora.test", testPassword, model.RoleStudent)
	return env
}

// newStore returns an initialized store; it signs in as usr unless usr is nil.
func (env *testEnv) newStore(t *testing.T, usr *model.User) *store.Store {
	t.Helper()
	env.api = &spyAPI{API: gateway.New(gateway.Config{BaseURL: env.baseURL, Timeout: env.conf.Client.Timeout})}
	validate, _ := model.NewValidator()
	st := store.New(store.Deps{
		API:      env.api,
		Session:  env.storage,
		Validate: validate,
		Logger:   env.logger,
		Now:      func() time.Time { return t0 },
	})
	require.NoError(t, st.Init(context.Background()))
	if usr != nil {
		_, err := st.Login(context.Background(), usr.Email, testPassword)
		require.NoError(t, err)
	}
	return st
}

func newAssignment(title string, student, coach model.User) model.Assignment {
	return model.Assignment{
		Title:     title,
		DueDate:   t0.AddDate(0, 0, 7),
		StudentID: student.ID,
		CoachID:   coach.ID,
	}
}
