package emailsvc

import (
	"fmt"
	"net/http"
	"net/mail"

	"github.com/pkg/errors"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/trezcool/tutora/core"
)

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"
)

type sendgridService struct {
	conf       *core.Config
	key        string
	from       *sgmail.Email
	subjPrefix string
	logger     core.Logger
}

var _ core.EmailService = (*sendgridService)(nil)

func NewSendgridService(conf *core.Config, logger core.Logger) core.EmailService {
	return &sendgridService{
		conf:       conf,
		key:        conf.SendgridApiKey,
		from:       sgmail.NewEmail(conf.AppName, conf.DefaultFromEmail),
		subjPrefix: "[" + conf.AppName + "] ",
		logger:     logger,
	}
}

func (svc sendgridService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go func(msg *core.EmailMessage) {
			if err := svc.SendMessage(msg); err != nil {
				svc.logger.Error(fmt.Sprintf("sending email: %v", err), err)
			}
		}(msg)
	}
}

func (svc sendgridService) SendMessage(msg *core.EmailMessage) error {
	if err := msg.Render(svc.conf); err != nil {
		return errors.Wrap(err, "rendering email")
	}
	if !msg.HasRecipients() || !msg.HasContent() {
		return errEmptyMessage
	}
	return svc.send(*msg)
}

func (svc sendgridService) prepare(msg core.EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = svc.subjPrefix + msg.Subject

	for _, to := range msg.To {
		p.AddTos(getSGEmail(to))
	}
	for _, cc := range msg.Cc {
		p.AddCCs(getSGEmail(cc))
	}
	for _, bcc := range msg.Bcc {
		p.AddBCCs(getSGEmail(bcc))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	return m
}

func getSGEmail(addr mail.Address) *sgmail.Email {
	return sgmail.NewEmail(addr.Name, addr.Address)
}

func (svc sendgridService) send(msg core.EmailMessage) error {
	req := sendgrid.GetRequest(svc.key, endpoint, host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(svc.prepare(msg))

	res, err := sendgrid.API(req)
	if err != nil {
		return errors.Wrap(err, "calling sendgrid")
	}
	if res.StatusCode >= http.StatusBadRequest {
		return errors.Errorf("sendgrid answered %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

// New picks the sendgrid service when an API key is configured, the console one otherwise.
func New(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.SendgridApiKey == "" || conf.Debug {
		return NewConsoleService(conf, logger)
	}
	return NewSendgridService(conf, logger)
}
