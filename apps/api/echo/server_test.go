package echoapi_test

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/tutora/apps/api/echo"
	"github.com/trezcool/tutora/core/model"
	inmemdb "github.com/trezcool/tutora/storage/database/inmem"
	"github.com/trezcool/tutora/testutil"
)

func TestServer_setup(t *testing.T) {
	env := setup(t)

	for i := 0; i < 2; i++ { // idempotent
		rec := env.do(httpTest{method: http.MethodPost, path: "/api/setup"})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := env.do(httpTest{method: http.MethodGet, path: "/api/badges"})
	var badges []model.Badge
	unmarshal(t, rec, &badges)
	assert.Len(t, badges, len(model.DefaultBadges))

	rec = env.do(httpTest{method: http.MethodGet, path: "/api/conversations"})
	var convs []model.Conversation
	unmarshal(t, rec, &convs)
	require.Len(t, convs, 1)
	assert.Equal(t, model.AnnouncementsConversationID, convs[0].ID)
}

func TestAuthApi_registerAndLogin(t *testing.T) {
	env := setup(t)

	body := []byte(`{"name": "Ada", "email": "Ada@Tutora.test", "password": "Gr8-Kangaroo!", "role": "Parent"}`)
	rec := env.do(httpTest{method: http.MethodPost, path: "/api/register", body: body})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp LoginResponse
	unmarshal(t, rec, &resp)
	assert.Equal(t, "ada@tutora.test", resp.User.Email)
	assert.Equal(t, model.RoleParent, resp.User.Role)
	assert.NotEmpty(t, resp.Token)
	assert.NotContains(t, rec.Body.String(), "password")

	tests := []httpTest{
		{
			name:     "privileged role",
			method:   http.MethodPost,
			path:     "/api/register",
			body:     []byte(`{"name": "Eve", "email": "eve@tutora.test", "password": "Gr8-Kangaroo!", "role": "SuperAdmin"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"role": "must be Student or Parent"}`),
		},
		{
			name:     "coach role",
			method:   http.MethodPost,
			path:     "/api/register",
			body:     []byte(`{"name": "Eve", "email": "eve@tutora.test", "password": "Gr8-Kangaroo!", "role": "Coach"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"role": "must be Student or Parent"}`),
		},
		{
			name:     "duplicate email",
			method:   http.MethodPost,
			path:     "/api/register",
			body:     body,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email": "a user with this email already exists"}`),
		},
		{
			name:     "missing password",
			method:   http.MethodPost,
			path:     "/api/login",
			body:     []byte(`{"email": "ada@tutora.test"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"password": "this field is required"}`),
		},
		{
			name:     "wrong password",
			method:   http.MethodPost,
			path:     "/api/login",
			body:     []byte(`{"email": "ada@tutora.test", "password": "nope"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "valid",
			method:   http.MethodPost,
			path:     "/api/login",
			body:     []byte(`{"email": "ADA@tutora.test", "password": "Gr8-Kangaroo!"}`),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, env.do(tt))
		})
	}
}

func TestAuthApi_passwordReset(t *testing.T) {
	env := setup(t)
	usr := testutil.CreateUser(t, env.repos.Users, "Ada Lovelace", "ada@tutora.test", "Gr8-Kangaroo!", model.RoleStudent)

	for _, email := range []string{"ghost@tutora.test", "ada@tutora.test"} {
		rec := env.do(httpTest{method: http.MethodPost, path: "/api/password/reset-request", body: []byte(`{"email": "` + email + `"}`)})
		require.Equal(t, http.StatusOK, rec.Code)
	}
	sent := env.mailSvc.SentMessages()
	require.Len(t, sent, 1)

	u, err := url.Parse(regexp.MustCompile(`\S+/reset-password\?\S+`).FindString(sent[0].TextContent))
	require.NoError(t, err)
	body := marchallObj(t, map[string]string{
		"uid":             u.Query().Get("uid"),
		"token":           u.Query().Get("token"),
		"password":        "N3w-Platypus?",
		"passwordConfirm": "N3w-Platypus?",
	})
	rec := env.do(httpTest{method: http.MethodPost, path: "/api/password/reset", body: body})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(httpTest{method: http.MethodPost, path: "/api/login", body: []byte(`{"email": "` + usr.Email + `", "password": "N3w-Platypus?"}`)})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCollectionApi(t *testing.T) {
	env := setup(t)
	coach := testutil.CreateUser(t, env.repos.Users, "Coach", "coach@tutora.test", "", model.RoleCoach)
	token := getToken(t, env.conf, coach)

	goal := model.Goal{ID: "g1", StudentID: "s1", Title: "Read 3 books", Description: "this term"}

	tests := []httpTest{
		{
			name:     "create without token",
			method:   http.MethodPost,
			path:     "/api/goals",
			body:     marchallObj(t, goal),
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "create invalid",
			method:   http.MethodPost,
			path:     "/api/goals",
			body:     []byte(`{"id": "g0", "studentId": "s1", "title": "  "}`),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"title": "this field cannot be blank"}`),
		},
		{
			name:     "create",
			method:   http.MethodPost,
			path:     "/api/goals",
			body:     marchallObj(t, goal),
			token:    token,
			wantCode: http.StatusCreated,
		},
		{
			name:     "create duplicate id",
			method:   http.MethodPost,
			path:     "/api/goals",
			body:     marchallObj(t, goal),
			token:    token,
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "an object with this id already exists"}),
		},
		{
			name:     "update unknown",
			method:   http.MethodPut,
			path:     "/api/goals/nope",
			body:     []byte(`{"title": "x"}`),
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "Not Found"}),
		},
		{
			name:     "partial update keeps other fields",
			method:   http.MethodPut,
			path:     "/api/goals/g1",
			body:     []byte(`{"title": "Read 4 books", "id": "ignored"}`),
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, model.Goal{ID: "g1", StudentID: "s1", Title: "Read 4 books", Description: "this term"}),
		},
		{
			name:     "delete",
			method:   http.MethodDelete,
			path:     "/api/goals",
			body:     []byte(`{"ids": ["g1", "unknown"]}`),
			token:    token,
			wantCode: http.StatusNoContent,
		},
		{
			name:     "list after delete",
			method:   http.MethodGet,
			path:     "/api/goals",
			wantCode: http.StatusOK,
			wantData: []byte(`[]`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, env.do(tt))
		})
	}
}

func TestCollectionApi_examNetScore(t *testing.T) {
	env := setup(t)
	coach := testutil.CreateUser(t, env.repos.Users, "Coach", "coach@tutora.test", "", model.RoleCoach)
	token := getToken(t, env.conf, coach)

	exam := model.Exam{
		ID:        "e1",
		StudentID: "s1",
		Title:     "Mock TYT",
		Date:      time.Date(2026, 4, 12, 0, 0, 0, 0, time.UTC),
		Subjects: model.SubjectScores{
			{Name: "Math", TotalQuestions: 40, Correct: 30, Incorrect: 8, Empty: 2},
			{Name: "Physics", TotalQuestions: 14, Correct: 10, Incorrect: 2, Empty: 2},
		},
	}
	rec := env.do(httpTest{method: http.MethodPost, path: "/api/exams", body: marchallObj(t, exam), token: token})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var got model.Exam
	unmarshal(t, rec, &got)
	assert.Equal(t, 54, got.TotalQuestions)
	assert.Equal(t, 37.5, got.NetScore)
	assert.Equal(t, 28.0, got.Subjects[0].NetScore)

	// updates are recomputed as well
	rec = env.do(httpTest{method: http.MethodPut, path: "/api/exams/e1", body: []byte(`{"subjects": []}`), token: token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	unmarshal(t, rec, &got)
	assert.Equal(t, 37.5, got.NetScore)
}

func TestUserApi_destroyMultiple(t *testing.T) {
	env := setup(t)
	coach := testutil.CreateUser(t, env.repos.Users, "Coach", "coach@tutora.test", "", model.RoleCoach)
	student := testutil.CreateUser(t, env.repos.Users, "Student", "student@tutora.test", "", model.RoleStudent)
	other := testutil.CreateUser(t, env.repos.Users, "Other", "other@tutora.test", "", model.RoleStudent)
	admin := testutil.CreateUser(t, env.repos.Users, "Admin", "admin@tutora.test", "", model.RoleSuperAdmin)

	ids := func(ids ...string) []byte { return marchallObj(t, map[string][]string{"ids": ids}) }
	forbidden := marchallObj(t, httpErr{Error: "permission denied"})

	tests := []httpTest{
		{
			name:     "student",
			method:   http.MethodDelete,
			path:     "/api/users",
			body:     ids(other.ID),
			token:    getToken(t, env.conf, student),
			wantCode: http.StatusForbidden,
			wantData: forbidden,
		},
		{
			name:     "coach deleting self",
			method:   http.MethodDelete,
			path:     "/api/users",
			body:     ids(other.ID, coach.ID),
			token:    getToken(t, env.conf, coach),
			wantCode: http.StatusForbidden,
			wantData: forbidden,
		},
		{
			name:     "coach deleting admin",
			method:   http.MethodDelete,
			path:     "/api/users",
			body:     ids(other.ID, admin.ID),
			token:    getToken(t, env.conf, coach),
			wantCode: http.StatusForbidden,
			wantData: forbidden,
		},
		{
			name:     "coach",
			method:   http.MethodDelete,
			path:     "/api/users",
			body:     ids(other.ID),
			token:    getToken(t, env.conf, coach),
			wantCode: http.StatusNoContent,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, env.do(tt))
		})
	}

	users, _ := env.repos.Users.QueryAll(context.Background())
	assert.Len(t, users, 3)
}

func TestUserApi_write(t *testing.T) {
	env := setup(t)
	admin := testutil.CreateUser(t, env.repos.Users, "Admin", "admin@tutora.test", "", model.RoleSuperAdmin)
	coach := testutil.CreateUser(t, env.repos.Users, "Coach", "coach@tutora.test", "", model.RoleCoach)
	student := testutil.CreateUser(t, env.repos.Users, "Student", "student@tutora.test", "", model.RoleStudent)
	other := testutil.CreateUser(t, env.repos.Users, "Other", "other@tutora.test", "", model.RoleStudent)

	newUser := func(id string, role model.Role) []byte {
		return marchallObj(t, model.User{ID: id, Name: "New " + id, Email: id + "@tutora.test", Role: role})
	}
	forbidden := marchallObj(t, httpErr{Error: "permission denied"})
	adminToken := getToken(t, env.conf, admin)
	coachToken := getToken(t, env.conf, coach)
	studentToken := getToken(t, env.conf, student)

	tests := []httpTest{
		{
			name:     "student creates user",
			method:   http.MethodPost,
			path:     "/api/users",
			body:     newUser("n1", model.RoleStudent),
			token:    studentToken,
			wantCode: http.StatusForbidden,
			wantData: forbidden,
		},
		{
			name:     "coach creates admin",
			method:   http.MethodPost,
			path:     "/api/users",
			body:     newUser("n2", model.RoleSuperAdmin),
			token:    coachToken,
			wantCode: http.StatusForbidden,
			wantData: forbidden,
		},
		{
			name:     "coach invites student",
			method:   http.MethodPost,
			path:     "/api/users",
			body:     newUser("n3", model.RoleStudent),
			token:    coachToken,
			wantCode: http.StatusCreated,
		},
		{
			name:     "admin creates coach",
			method:   http.MethodPost,
			path:     "/api/users",
			body:     newUser("n4", model.RoleCoach),
			token:    adminToken,
			wantCode: http.StatusCreated,
		},
		{
			name:     "student escalates own role",
			method:   http.MethodPut,
			path:     "/api/users/" + student.ID,
			body:     []byte(`{"role": "SuperAdmin"}`),
			token:    studentToken,
			wantCode: http.StatusForbidden,
			wantData: forbidden,
		},
		{
			name:     "student edits other",
			method:   http.MethodPut,
			path:     "/api/users/" + other.ID,
			body:     []byte(`{"xp": 1000}`),
			token:    studentToken,
			wantCode: http.StatusForbidden,
			wantData: forbidden,
		},
		{
			name:     "student edits own profile",
			method:   http.MethodPut,
			path:     "/api/users/" + student.ID,
			body:     []byte(`{"name": "Deniz"}`),
			token:    studentToken,
			wantCode: http.StatusOK,
		},
		{
			name:     "coach edits admin",
			method:   http.MethodPut,
			path:     "/api/users/" + admin.ID,
			body:     []byte(`{"name": "Root"}`),
			token:    coachToken,
			wantCode: http.StatusForbidden,
			wantData: forbidden,
		},
		{
			name:     "coach promotes student to admin",
			method:   http.MethodPut,
			path:     "/api/users/" + other.ID,
			body:     []byte(`{"role": "SuperAdmin"}`),
			token:    coachToken,
			wantCode: http.StatusForbidden,
			wantData: forbidden,
		},
		{
			name:     "coach awards xp",
			method:   http.MethodPut,
			path:     "/api/users/" + other.ID,
			body:     []byte(`{"xp": 50}`),
			token:    coachToken,
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, env.do(tt))
		})
	}

	stored, err := env.repos.Users.Get(context.Background(), student.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleStudent, stored.Role)
	assert.Equal(t, "Deniz", stored.Name)
}

func TestCollectionApi_clearFields(t *testing.T) {
	env := setup(t)
	coach := testutil.CreateUser(t, env.repos.Users, "Coach", "coach@tutora.test", "", model.RoleCoach)
	token := getToken(t, env.conf, coach)

	msg := model.Message{
		ID:             "m1",
		SenderID:       coach.ID,
		ConversationID: model.AnnouncementsConversationID,
		Text:           "Vote!",
		Timestamp:      time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC),
		Type:           model.MessagePoll,
		ReadBy:         model.Strings{coach.ID},
		Reactions:      model.Reactions{"👍": model.Strings{coach.ID}},
		Poll:           &model.Poll{Question: "When?", Options: []model.PollOption{{ID: "o1", Text: "Mon"}, {ID: "o2", Text: "Tue"}}},
	}
	rec := env.do(httpTest{method: http.MethodPost, path: "/api/messages", body: marchallObj(t, msg), token: token})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// the last reaction removed and the poll dropped, sent as a whole entity
	msg.Reactions = model.Reactions{}
	msg.Poll = nil
	msg.Type = model.MessageText
	rec = env.do(httpTest{method: http.MethodPut, path: "/api/messages/m1", body: marchallObj(t, msg), token: token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got model.Message
	unmarshal(t, rec, &got)
	assert.Empty(t, got.Reactions)
	assert.Nil(t, got.Poll)

	stored, err := env.repos.Messages.Get(context.Background(), "m1")
	require.NoError(t, err)
	assert.Empty(t, stored.Reactions)
	assert.Nil(t, stored.Poll)
}

func TestConversationApi_findOrCreate(t *testing.T) {
	env := setup(t)
	usr := testutil.CreateUser(t, env.repos.Users, "Ada", "ada@tutora.test", "", model.RoleStudent)
	token := getToken(t, env.conf, usr)

	rec := env.do(httpTest{method: http.MethodPost, path: "/api/conversations/findOrCreate", body: []byte(`{"userId1": "b", "userId2": "a"}`), token: token})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created model.Conversation
	unmarshal(t, rec, &created)
	assert.Equal(t, model.Strings{"a", "b"}, created.ParticipantIDs)
	assert.False(t, created.IsGroup)

	rec = env.do(httpTest{method: http.MethodPost, path: "/api/conversations/findOrCreate", body: []byte(`{"userId1": "a", "userId2": "b"}`), token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	var found model.Conversation
	unmarshal(t, rec, &found)
	assert.Equal(t, created.ID, found.ID)

	rec = env.do(httpTest{method: http.MethodPost, path: "/api/conversations/findOrCreate", body: []byte(`{"userId1": "a", "userId2": "a"}`), token: token})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_metrics(t *testing.T) {
	env := setup(t)
	env.do(httpTest{method: http.MethodGet, path: "/api/goals"})
	env.do(httpTest{method: http.MethodPut, path: "/api/goals/x"})

	families, err := env.registry.Gather()
	require.NoError(t, err)

	codes := make(map[string]bool)
	for _, f := range families {
		if f.GetName() != "tutora_api_requests_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "code" {
					codes[l.GetValue()] = true
				}
			}
		}
	}
	assert.True(t, codes["200"], "missing 200 sample")
	assert.True(t, codes["401"], "missing 401 sample")
}

type failingGoals struct {
	model.Repository[model.Goal]
}

func (failingGoals) QueryAll(context.Context) ([]model.Goal, error) {
	return nil, errors.New("connection reset by peer")
}

func TestServer_internalError(t *testing.T) {
	env := setup(t)
	repos := env.repos
	repos.Goals = failingGoals{repos.Goals}
	validate, translator := model.NewValidator()
	app := NewServer(ServerDeps{
		Conf:        env.conf,
		Logger:      env.logger,
		Repos:       repos,
		Provisioner: inmemdb.NewProvisioner(repos),
		Validate:    validate,
		Translator:  translator,
	})

	req, rec := newRequest(http.MethodGet, "/api/goals")
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusInternalServerError, wantData: marchallObj(t, httpErr{Error: "Internal Server Error"})}, rec)
	assert.Len(t, env.logger.Entries("ERROR"), 1)

	// the server keeps serving
	select {
	case sig := <-app.ShutdownSignal():
		t.Errorf("ShutdownSignal() failed! got %v; want none", sig)
	default:
	}
	req, rec = newRequest(http.MethodGet, "/api/badges")
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
