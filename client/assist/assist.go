// Package assist drafts tutoring content with a generative text endpoint.
// Failures never reach callers: every operation falls back to a canned result.
package assist

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/tutora/client/gateway"
	"github.com/trezcool/tutora/core"
	"github.com/trezcool/tutora/core/model"
)

var errNotConfigured = errors.New("assist endpoint not configured")

type (
	generateRequest struct {
		Model  string `json:"model,omitempty"`
		Prompt string `json:"prompt"`
		// JSON asks for a bare JSON document as text.
		JSON bool `json:"json"`
	}

	generateResponse struct {
		Text string `json:"text"`
	}
)

type Client struct {
	conf   core.AssistConfig
	client *rest.Client
	logger core.Logger
}

func New(conf core.AssistConfig, logger core.Logger) *Client {
	return &Client{
		conf:   conf,
		client: &rest.Client{HTTPClient: &http.Client{Timeout: conf.Timeout}},
		logger: logger,
	}
}

func (c *Client) generate(ctx context.Context, prompt string, asJSON bool) (string, error) {
	if c.conf.Endpoint == "" {
		return "", errNotConfigured
	}
	body, err := json.Marshal(generateRequest{Model: c.conf.Model, Prompt: prompt, JSON: asJSON})
	if err != nil {
		return "", errors.Wrap(err, "encoding prompt")
	}
	req := rest.Request{
		Method:  rest.Post,
		BaseURL: c.conf.Endpoint,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
	}
	if c.conf.APIKey != "" {
		req.Headers["Authorization"] = "Bearer " + c.conf.APIKey
	}

	res, err := gateway.Send(ctx, c.client, req)
	if err != nil {
		return "", errors.Wrap(err, "calling assist endpoint")
	}
	if res.StatusCode != http.StatusOK {
		return "", errors.Errorf("assist endpoint answered %d", res.StatusCode)
	}
	var out generateResponse
	if err = json.Unmarshal([]byte(res.Body), &out); err != nil {
		return "", errors.Wrap(err, "decoding assist response")
	}
	if strings.TrimSpace(out.Text) == "" {
		return "", errors.New("assist endpoint returned no text")
	}
	return out.Text, nil
}

// generateJSON decodes the generated JSON document into v.
func (c *Client) generateJSON(ctx context.Context, prompt string, v interface{}) error {
	text, err := c.generate(ctx, prompt, true)
	if err != nil {
		return err
	}
	// models like to fence their JSON
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return errors.Wrap(json.Unmarshal([]byte(text), v), "decoding generated JSON")
}

func (c *Client) fallback(op string, err error) {
	c.logger.Warn("assist: "+op+" failed, using fallback", err)
}

// AssignmentDraft is a suggested assignment.
type AssignmentDraft struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Checklist   []string `json:"checklist"`
}

// Assignment turns the draft into a pending assignment.
func (d AssignmentDraft) Assignment(newID func() string) model.Assignment {
	id := newID()
	checklist := make(model.Checklist, 0, len(d.Checklist))
	for _, text := range d.Checklist {
		checklist = append(checklist, model.ChecklistItem{ID: newID(), Text: text})
	}
	return model.Assignment{
		ID:          id,
		Title:       d.Title,
		Description: d.Description,
		Status:      model.StatusPending,
		Checklist:   checklist,
	}
}

func (c *Client) DraftAssignment(ctx context.Context, topic, gradeLevel string) AssignmentDraft {
	prompt := fmt.Sprintf(
		"Write a homework assignment about %q for a %s student. "+
			`Answer with JSON: {"title": string, "description": string, "checklist": [string]}.`,
		topic, gradeLevel,
	)
	var draft AssignmentDraft
	err := c.generateJSON(ctx, prompt, &draft)
	if err == nil && strings.TrimSpace(draft.Title) == "" {
		err = errors.New("draft has no title")
	}
	if err != nil {
		c.fallback("DraftAssignment", err)
		return AssignmentDraft{
			Title:       topic,
			Description: fmt.Sprintf("Study %s and complete the exercises from your textbook.", topic),
			Checklist:   []string{"Read the lesson notes", "Solve the exercises", "Write down open questions"},
		}
	}
	return draft
}

// DraftFeedback suggests feedback for a submitted assignment.
func (c *Client) DraftFeedback(ctx context.Context, a model.Assignment) string {
	prompt := fmt.Sprintf(
		"You are a supportive tutor. Write two short sentences of feedback for the assignment %q. "+
			"Student answer: %q.",
		a.Title, a.TextSubmission.String,
	)
	text, err := c.generate(ctx, prompt, false)
	if err != nil {
		c.fallback("DraftFeedback", err)
		return "Good effort! Review the points we discussed and keep practicing."
	}
	return strings.TrimSpace(text)
}

type generatedQuestion struct {
	QuestionText       string   `json:"questionText"`
	Options            []string `json:"options"`
	CorrectOptionIndex int      `json:"correctOptionIndex"`
}

// GenerateQuestions drafts up to count multiple choice questions. Invalid ones are dropped.
func (c *Client) GenerateQuestions(ctx context.Context, topic string, count int, creatorID string, newID func() string) []model.Question {
	prompt := fmt.Sprintf(
		"Write %d multiple choice questions about %q. "+
			`Answer with JSON: [{"questionText": string, "options": [string], "correctOptionIndex": int}].`,
		count, topic,
	)
	var generated []generatedQuestion
	if err := c.generateJSON(ctx, prompt, &generated); err != nil {
		c.fallback("GenerateQuestions", err)
		return nil
	}

	questions := make([]model.Question, 0, len(generated))
	for _, g := range generated {
		if len(questions) == count {
			break
		}
		if strings.TrimSpace(g.QuestionText) == "" || len(g.Options) < 2 ||
			g.CorrectOptionIndex < 0 || g.CorrectOptionIndex >= len(g.Options) {
			continue
		}
		questions = append(questions, model.Question{
			ID:                 newID(),
			CreatorID:          creatorID,
			Topic:              topic,
			QuestionText:       g.QuestionText,
			Options:            g.Options,
			CorrectOptionIndex: g.CorrectOptionIndex,
		})
	}
	return questions
}

// StudyPlan suggests a weekly plan from the student's open goals and pending assignments.
func (c *Client) StudyPlan(ctx context.Context, student model.User, goals []model.Goal, pending []model.Assignment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a one week study plan for %s.", student.Name)
	for _, g := range goals {
		if !g.IsCompleted {
			fmt.Fprintf(&b, "\nGoal: %s", g.Title)
		}
	}
	for _, a := range pending {
		fmt.Fprintf(&b, "\nDue %s: %s", a.DueDate.Format("Mon Jan 2"), a.Title)
	}

	text, err := c.generate(ctx, b.String(), false)
	if err != nil {
		c.fallback("StudyPlan", err)
		return "Plan 45 minutes of focused study every day: start with the assignments due soonest, " +
			"then spend the rest of the session on your goals."
	}
	return strings.TrimSpace(text)
}
