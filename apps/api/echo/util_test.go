package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	. "github.com/trezcool/tutora/apps/api/echo"
	"github.com/trezcool/tutora/core"
	"github.com/trezcool/tutora/core/model"
	"github.com/trezcool/tutora/core/user"
	"github.com/trezcool/tutora/services/email"
	"github.com/trezcool/tutora/storage/database/inmem"
	"github.com/trezcool/tutora/testutil"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testEnv struct {
	app      *Server
	conf     *core.Config
	repos    model.Repositories
	mailSvc  *emailsvc.ConsoleServiceMock
	logger   *testutil.Logger
	registry *prometheus.Registry
}

func setup(t *testing.T) testEnv {
	t.Helper()
	conf := testutil.Config()
	logger := &testutil.Logger{}

	// set up DB & repos
	repos := inmemdb.Open()

	// set up services
	validate, translator := model.NewValidator()
	user.InitValidators(validate, translator)
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	usrSvc := user.NewService(conf, repos.Users, mailSvc, validate)

	// set up server
	registry := prometheus.NewRegistry()
	app := NewServer(
		ServerDeps{
			Conf:        conf,
			Logger:      logger,
			Repos:       repos,
			Provisioner: inmemdb.NewProvisioner(repos),
			UserSvc:     usrSvc,
			Validate:    validate,
			Translator:  translator,
			Metrics:     registry,
		},
	)
	return testEnv{app: app, conf: conf, repos: repos, mailSvc: mailSvc, logger: logger, registry: registry}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func (env testEnv) do(tt httpTest) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
	env.app.ServeHTTP(rec, req)
	return rec
}

func getToken(t *testing.T, conf *core.Config, usr model.User) string {
	token, err := GenerateToken(GetUserClaims(usr, conf), conf)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshal() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
