package core

import (
	"bytes"
	"net/mail"
	"sync"
	texttmpl "text/template"
)

var (
	templates = map[string]string{
		"welcome": `Hi {{.Data.Name}},

Welcome to {{.AppName}}! Your {{.Data.Role}} account is ready.
Sign in at {{.FrontendBaseURL}} to get started.
`,
		"password_reset": `Hi {{.Data.Name}},

Someone asked to reset your {{.AppName}} password. If it was you, follow the link below:
{{.FrontendBaseURL}}/reset-password?uid={{.Data.UID}}&token={{.Data.Token}}

Otherwise you can safely ignore this email.
`,
		"weekly_report": `Hi {{.Data.Name}},

Here is your weekly summary: {{.Data.Pending}} pending, {{.Data.Submitted}} submitted and {{.Data.Graded}} graded assignments.
See the details at {{.FrontendBaseURL}}.
`,
	}
	parsed   map[string]*texttmpl.Template
	tmplInit sync.Once
)

type (
	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string
		TemplateData interface{}
		TextContent  string
	}

	ContextData struct {
		AppName         string
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
		// SendMessage sends msg and waits for the outcome
		SendMessage(msg *EmailMessage) error
	}
)

func parseTemplates() {
	parsed = make(map[string]*texttmpl.Template, len(templates))
	for name, src := range templates {
		parsed[name] = texttmpl.Must(texttmpl.New(name).Option("missingkey=error").Parse(src))
	}
}

// Render fills TextContent from BodyStr or from the named template.
func (m *EmailMessage) Render(conf *Config) error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
		return nil
	} else if m.TemplateName == "" {
		return nil
	}

	tmplInit.Do(parseTemplates)
	tmpl, ok := parsed[m.TemplateName]
	if !ok {
		return nil
	}

	var buff bytes.Buffer
	data := ContextData{
		AppName:         conf.AppName,
		FrontendBaseURL: conf.FrontendBaseURL,
		Data:            m.TemplateData,
	}
	if err := tmpl.Execute(&buff, data); err != nil {
		return err
	}
	m.TextContent = buff.String()
	return nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return m.TextContent != "" }
