package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/mail"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/tutora/client/assist"
	"github.com/trezcool/tutora/client/session"
	"github.com/trezcool/tutora/client/store"
	"github.com/trezcool/tutora/client/views"
	"github.com/trezcool/tutora/core"
	"github.com/trezcool/tutora/core/model"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	st      *store.Store
	prefs   *session.Preferences
	assist  *assist.Client
	mailSvc core.EmailService
	now     func() time.Time
	out     io.Writer

	ready bool
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  login -email EMAIL - sign in, the password is prompted next")
	fmt.Fprintln(cli.out, "  logout - sign out and forget the session")
	fmt.Fprintln(cli.out, "  inbox - list conversations with their unread messages")
	fmt.Fprintln(cli.out, "  weekly-report - email the weekly summary to students who are due one")
	fmt.Fprintln(cli.out, "  theme [light|dark] - show or set the theme")
	fmt.Fprintln(cli.out, "  draft -topic TOPIC [-grade GRADE] [-student ID] - draft an assignment, and assign it")
}

// load bootstraps the store once.
func (cli *commandLine) load(ctx context.Context) error {
	if cli.ready {
		return nil
	}
	if err := cli.st.Init(ctx); err != nil {
		return err
	}
	cli.ready = true
	return nil
}

func (cli *commandLine) currentUser(ctx context.Context) (model.User, error) {
	if err := cli.load(ctx); err != nil {
		return model.User{}, err
	}
	usr, ok := cli.st.CurrentUser()
	if !ok {
		return usr, store.ErrNotSignedIn
	}
	return usr, nil
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	loginCmd := flag.NewFlagSet("login", flag.ContinueOnError)
	loginEmail := loginCmd.String("email", "", "Your email. The password will be prompted next.")

	draftCmd := flag.NewFlagSet("draft", flag.ContinueOnError)
	draftTopic := draftCmd.String("topic", "", "What the assignment is about.")
	draftGrade := draftCmd.String("grade", "high school", "The student's grade level.")
	draftStudent := draftCmd.String("student", "", "Assign the draft to this student, due in a week.")

	switch args[1] {
	case "login":
		if err := loginCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *loginEmail == "" {
			loginCmd.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		return cli.login(ctx, *loginEmail, string(pwd))

	case "logout":
		return cli.st.Logout()

	case "inbox":
		return cli.inbox(ctx)

	case "weekly-report":
		return cli.weeklyReport(ctx)

	case "theme":
		if len(args) > 2 {
			return cli.prefs.SetTheme(session.Theme(args[2]))
		}
		theme, err := cli.prefs.Theme()
		if err != nil {
			return err
		}
		fmt.Fprintln(cli.out, theme)
		return nil

	case "draft":
		if err := draftCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *draftTopic == "" {
			draftCmd.Usage()
			return errHelp
		}
		return cli.draft(ctx, *draftTopic, *draftGrade, *draftStudent)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) login(ctx context.Context, email, pwd string) error {
	if err := cli.load(ctx); err != nil {
		return err
	}
	usr, err := cli.st.Login(ctx, email, pwd)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Signed in as %s (%s)\n", usr.Name, usr.Role)
	return nil
}

func conversationTitle(c model.Conversation, currentID string, users []model.User) string {
	switch {
	case c.ID == model.AnnouncementsConversationID:
		return "Announcements"
	case c.IsGroup:
		return c.GroupName.String
	}
	for _, u := range users {
		if u.ID != currentID && c.HasParticipant(u.ID) {
			return u.Name
		}
	}
	return c.ID
}

func (cli *commandLine) inbox(ctx context.Context) error {
	usr, err := cli.currentUser(ctx)
	if err != nil {
		return err
	}
	users := cli.st.Users()
	box := cli.st.Messaging()
	for _, cv := range box.Conversations {
		last := ""
		if cv.LastMessage != nil {
			last = cv.LastMessage.Text
		}
		fmt.Fprintf(cli.out, "%-24s %3d unread  %s\n", conversationTitle(cv.Conversation, usr.ID, users), cv.UnreadCount, last)
	}
	fmt.Fprintf(cli.out, "%d unread\n", box.TotalUnread)
	return nil
}

// weeklyReport emails their summary to the students the current user looks after,
// at most once a week each. A report counts as sent once its email is delivered.
func (cli *commandLine) weeklyReport(ctx context.Context) error {
	usr, err := cli.currentUser(ctx)
	if err != nil {
		return err
	}
	var students []model.User
	switch {
	case usr.IsStudent():
		students = []model.User{usr}
	case usr.IsParent():
		students = cli.st.Children()
	default:
		students = cli.st.Students()
	}

	now := cli.now()
	assignments := cli.st.Assignments()
	var failed error
	for _, student := range students {
		due, err := cli.prefs.WeeklyReportDue(student.ID, now)
		if err != nil {
			return err
		}
		if !due {
			fmt.Fprintf(cli.out, "%s: already sent this week\n", student.Name)
			continue
		}
		sum := views.WeeklySummary(student, assignments, now)
		err = cli.mailSvc.SendMessage(&core.EmailMessage{
			To:           []mail.Address{{Name: student.Name, Address: student.Email}},
			Subject:      "Your weekly summary",
			TemplateName: "weekly_report",
			TemplateData: sum,
		})
		if err != nil {
			fmt.Fprintf(cli.out, "%s: sending failed: %v\n", student.Name, err)
			if failed == nil {
				failed = errors.Wrapf(err, "sending weekly report to %s", student.Email)
			}
			continue
		}
		if err = cli.prefs.RecordWeeklyReport(student.ID, now); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "%s: %d pending (%d overdue), %d submitted, %d graded\n",
			student.Name, sum.Pending, sum.Overdue, sum.Submitted, sum.Graded)
	}
	return failed
}

func (cli *commandLine) draft(ctx context.Context, topic, grade, studentID string) error {
	d := cli.assist.DraftAssignment(ctx, topic, grade)
	fmt.Fprintln(cli.out, d.Title)
	fmt.Fprintln(cli.out, d.Description)
	for _, item := range d.Checklist {
		fmt.Fprintln(cli.out, "  [ ]", item)
	}
	if studentID == "" {
		return nil
	}

	usr, err := cli.currentUser(ctx)
	if err != nil {
		return err
	}
	a := d.Assignment(model.NewID)
	a.StudentID = studentID
	a.CoachID = usr.ID
	a.DueDate = cli.now().AddDate(0, 0, 7)
	if _, err = cli.st.AddAssignment(ctx, a); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "Assigned.")
	return nil
}
