package emailsvc

import (
	"fmt"
	"log"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/tutora/core"
)

var errEmptyMessage = errors.New("email has no recipients or no content")

type consoleService struct {
	conf             *core.Config
	defaultFromEmail mail.Address
	subjPrefix       string
	logger           core.Logger
	disableOutput    bool
}

var _ core.EmailService = (*consoleService)(nil)

// NewConsoleService prints emails to the standard logger instead of sending them.
func NewConsoleService(conf *core.Config, logger core.Logger) core.EmailService {
	return &consoleService{
		conf:             conf,
		defaultFromEmail: mail.Address{Name: conf.AppName, Address: conf.DefaultFromEmail},
		subjPrefix:       "[" + conf.AppName + "] ",
		logger:           logger,
	}
}

func (svc consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go func(msg *core.EmailMessage) {
			if err := svc.SendMessage(msg); err != nil {
				svc.logger.Error("sending email", err)
			}
		}(msg)
	}
}

func (svc consoleService) SendMessage(msg *core.EmailMessage) error {
	if err := msg.Render(svc.conf); err != nil {
		return errors.Wrap(err, "rendering email")
	}
	if !msg.HasRecipients() || !msg.HasContent() {
		return errEmptyMessage
	}
	svc.send(*msg)
	return nil
}

func (svc consoleService) send(msg core.EmailMessage) {
	body := new(strings.Builder)

	_, _ = fmt.Fprintf(body, "From: %s\r\n", svc.defaultFromEmail.String())
	_, _ = fmt.Fprint(body, "MIME-Version: 1.0\r\n")
	_, _ = fmt.Fprintf(body, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	_, _ = fmt.Fprintf(body, "Subject: %s\r\n", svc.subjPrefix+msg.Subject)
	_, _ = fmt.Fprintf(body, "To: %s\r\n", joinAddresses(msg.To))
	if len(msg.Cc) > 0 {
		_, _ = fmt.Fprintf(body, "CC: %s\r\n", joinAddresses(msg.Cc))
	}
	if len(msg.Bcc) > 0 {
		_, _ = fmt.Fprintf(body, "BCC: %s\r\n", joinAddresses(msg.Bcc))
	}
	_, _ = fmt.Fprint(body, "Content-Type: text/plain; charset=utf-8\r\n\r\n")
	_, _ = fmt.Fprintf(body, "%s\r\n", msg.TextContent)

	if !svc.disableOutput {
		log.Println(body.String())
	}
}

func joinAddresses(addrs []mail.Address) string {
	toJoin := make([]string, 0, len(addrs))
	for _, a := range addrs {
		toJoin = append(toJoin, a.String())
	}
	return strings.Join(toJoin, ", ")
}

// ConsoleServiceMock renders and records messages synchronously, without output.
type ConsoleServiceMock struct {
	consoleService

	mu   sync.Mutex
	sent []core.EmailMessage
	err  error
}

func NewConsoleServiceMock(conf *core.Config, logger core.Logger) *ConsoleServiceMock {
	return &ConsoleServiceMock{
		consoleService: consoleService{
			conf:             conf,
			defaultFromEmail: mail.Address{Name: conf.AppName, Address: conf.DefaultFromEmail},
			subjPrefix:       "[" + conf.AppName + "] ",
			logger:           logger,
			disableOutput:    true,
		},
	}
}

func (svc *ConsoleServiceMock) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		// run synchronously
		_ = svc.SendMessage(msg)
	}
}

func (svc *ConsoleServiceMock) SendMessage(msg *core.EmailMessage) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.err != nil {
		return svc.err
	}
	if err := svc.consoleService.SendMessage(msg); err != nil {
		return err
	}
	svc.sent = append(svc.sent, *msg)
	return nil
}

// FailWith makes every following send fail with err; a nil err restores delivery.
func (svc *ConsoleServiceMock) FailWith(err error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.err = err
}

// SentMessages returns a copy of the messages sent so far.
func (svc *ConsoleServiceMock) SentMessages() []core.EmailMessage {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]core.EmailMessage(nil), svc.sent...)
}
