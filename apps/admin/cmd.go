package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/tutora/core/model"
	"github.com/trezcool/tutora/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db      *sql.DB
	usrRepo model.UserRepository
	usrSvc  user.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose command (up, down, status, version, redo, reset...)")
	fmt.Println("  adduser -name NAME -email EMAIL [-role ROLE] - create a user, the password is prompted next")
	fmt.Println("  resetpassword -email EMAIL - reset user's password")
}

func (cli *commandLine) promptPassword(fs *flag.FlagSet) (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		fs.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserEmail := addUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	addUserRole := addUserCmd.String("role", string(model.RoleSuperAdmin), "One of Student, Coach, SuperAdmin, Parent.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserName == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(addUserCmd)
		if err != nil {
			return err
		}
		return cli.addUser(*addUserName, *addUserEmail, pwd, model.Role(*addUserRole))

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(resetPasswordCmd)
		if err != nil {
			return err
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)

	default:
		cli.printUsage()
		return errHelp
	}
}
