package assist_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tutora/client/assist"
	"github.com/trezcool/tutora/core"
	"github.com/trezcool/tutora/core/model"
	"github.com/trezcool/tutora/testutil"
)

// newEndpoint answers every prompt with text, or with status when it is not 200.
func newEndpoint(t *testing.T, status int, text string) (core.AssistConfig, *[]map[string]interface{}) {
	t.Helper()
	var received []map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer k3y", r.Header.Get("Authorization"))
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		received = append(received, body)
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"text": text})
	}))
	t.Cleanup(srv.Close)
	return core.AssistConfig{Endpoint: srv.URL, APIKey: "k3y", Model: "tutor-small", Timeout: time.Second}, &received
}

func counter() func() string {
	n := 0
	return func() string {
		n++
		return "id" + strconv.Itoa(n)
	}
}

func TestClient_DraftAssignment(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		text         string
		wantTitle    string
		wantFallback bool
	}{
		{
			name:      "generated",
			status:    http.StatusOK,
			text:      "```json\n{\"title\": \"Fractions drill\", \"description\": \"Practice\", \"checklist\": [\"1-10\", \"11-20\"]}\n```",
			wantTitle: "Fractions drill",
		},
		{name: "server error", status: http.StatusInternalServerError, wantTitle: "fractions", wantFallback: true},
		{name: "not json", status: http.StatusOK, text: "Sure! Here it is.", wantTitle: "fractions", wantFallback: true},
		{name: "empty title", status: http.StatusOK, text: `{"title": ""}`, wantTitle: "fractions", wantFallback: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf, received := newEndpoint(t, tt.status, tt.text)
			logger := &testutil.Logger{}

			draft := assist.New(conf, logger).DraftAssignment(context.Background(), "fractions", "6th grade")
			if draft.Title != tt.wantTitle {
				t.Errorf("DraftAssignment() failed! title = %q; want %q", draft.Title, tt.wantTitle)
			}
			assert.NotEmpty(t, draft.Checklist)
			assert.Equal(t, tt.wantFallback, len(logger.Entries("WARN")) == 1)

			require.Len(t, *received, 1)
			assert.Equal(t, true, (*received)[0]["json"])
			assert.Equal(t, "tutor-small", (*received)[0]["model"])
		})
	}
}

func TestAssignmentDraft_Assignment(t *testing.T) {
	draft := assist.AssignmentDraft{Title: "Essay", Checklist: []string{"Outline", "Draft"}}
	a := draft.Assignment(counter())
	assert.Equal(t, "id1", a.ID)
	assert.Equal(t, model.StatusPending, a.Status)
	assert.Equal(t, model.Checklist{{ID: "id2", Text: "Outline"}, {ID: "id3", Text: "Draft"}}, a.Checklist)
}

func TestClient_DraftFeedback(t *testing.T) {
	conf, received := newEndpoint(t, http.StatusOK, "  Great structure. Watch your units.  ")
	c := assist.New(conf, &testutil.Logger{})

	got := c.DraftFeedback(context.Background(), model.Assignment{Title: "Physics lab"})
	assert.Equal(t, "Great structure. Watch your units.", got)
	assert.Equal(t, false, (*received)[0]["json"])

	// unconfigured endpoint
	logger := &testutil.Logger{}
	got = assist.New(core.AssistConfig{}, logger).DraftFeedback(context.Background(), model.Assignment{})
	assert.NotEmpty(t, got)
	assert.Len(t, logger.Entries("WARN"), 1)
}

func TestClient_GenerateQuestions(t *testing.T) {
	text := `[
		{"questionText": "2+2?", "options": ["3", "4"], "correctOptionIndex": 1},
		{"questionText": "bad index", "options": ["a", "b"], "correctOptionIndex": 5},
		{"questionText": "one option", "options": ["a"], "correctOptionIndex": 0},
		{"questionText": "3*3?", "options": ["9", "6"], "correctOptionIndex": 0},
		{"questionText": "extra", "options": ["x", "y"], "correctOptionIndex": 0}
	]`
	conf, _ := newEndpoint(t, http.StatusOK, text)

	qs := assist.New(conf, &testutil.Logger{}).GenerateQuestions(context.Background(), "arithmetic", 2, "coach1", counter())
	require.Len(t, qs, 2)
	assert.Equal(t, "2+2?", qs[0].QuestionText)
	assert.Equal(t, "3*3?", qs[1].QuestionText)
	assert.Equal(t, "coach1", qs[1].CreatorID)
	assert.Equal(t, "arithmetic", qs[1].Topic)

	validate, _ := model.NewValidator()
	for _, q := range qs {
		assert.NoError(t, validate.Struct(q))
	}

	conf, _ = newEndpoint(t, http.StatusBadGateway, "")
	assert.Empty(t, assist.New(conf, &testutil.Logger{}).GenerateQuestions(context.Background(), "x", 3, "c", counter()))
}

func TestClient_StudyPlan(t *testing.T) {
	conf, received := newEndpoint(t, http.StatusOK, "Monday: algebra")
	c := assist.New(conf, &testutil.Logger{})

	plan := c.StudyPlan(context.Background(),
		model.User{Name: "Deniz"},
		[]model.Goal{{Title: "Algebra"}, {Title: "Done already", IsCompleted: true}},
		[]model.Assignment{{Title: "Essay", DueDate: time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)}},
	)
	assert.Equal(t, "Monday: algebra", plan)

	prompt := (*received)[0]["prompt"].(string)
	assert.Contains(t, prompt, "Deniz")
	assert.Contains(t, prompt, "Goal: Algebra")
	assert.NotContains(t, prompt, "Done already")
	assert.Contains(t, prompt, "Due Fri Mar 8: Essay")
}
