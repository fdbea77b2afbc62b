package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/term"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"github.com/SAP-F-2025/lms-service/internal/services"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	accounts services.AccountService
	users    services.UserService
	repo     repositories.Repository
	actorID  string
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  createuser -email EMAIL -name FULL_NAME -role admin|lecturer|student - create an account, password is prompted")
	fmt.Fprintln(cli.out, "  deleteuser -id USER_ID - delete an account")
	fmt.Fprintln(cli.out, "  resetpassword -id USER_ID - set a new password, prompted")
	fmt.Fprintln(cli.out, "  users [-role ROLE] [-q QUERY] [-size N] - list accounts")
	fmt.Fprintln(cli.out, "  setrole -id USER_ID -role ROLE - write a role row directly (bootstraps the first admin)")
	fmt.Fprintln(cli.out, "")
	fmt.Fprintln(cli.out, "Account commands run as the admin named by LMSCTL_ACTOR_ID.")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	createCmd := flag.NewFlagSet("createuser", flag.ContinueOnError)
	createEmail := createCmd.String("email", "", "The new user's email.")
	createName := createCmd.String("name", "", "The new user's full name.")
	createRole := createCmd.String("role", string(models.RoleStudent), "admin, lecturer or student.")

	deleteCmd := flag.NewFlagSet("deleteuser", flag.ContinueOnError)
	deleteID := deleteCmd.String("id", "", "The user's ID.")

	resetCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetID := resetCmd.String("id", "", "The user's ID. The password will be prompted next.")

	usersCmd := flag.NewFlagSet("users", flag.ContinueOnError)
	usersRole := usersCmd.String("role", "", "Only this role.")
	usersQuery := usersCmd.String("q", "", "Match name or email.")
	usersSize := usersCmd.Int("size", 50, "Maximum rows.")

	setRoleCmd := flag.NewFlagSet("setrole", flag.ContinueOnError)
	setRoleID := setRoleCmd.String("id", "", "The user's ID.")
	setRoleRole := setRoleCmd.String("role", "", "admin, lecturer or student.")

	for _, fs := range []*flag.FlagSet{createCmd, deleteCmd, resetCmd, usersCmd, setRoleCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "createuser":
		if err := createCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *createEmail == "" || *createName == "" {
			createCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			createCmd.Usage()
			return errHelp
		}
		return cli.createUser(ctx, *createEmail, *createName, models.UserRole(*createRole), pwd)

	case "deleteuser":
		if err := deleteCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *deleteID == "" {
			deleteCmd.Usage()
			return errHelp
		}
		return cli.deleteUser(ctx, *deleteID)

	case "resetpassword":
		if err := resetCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetID == "" {
			resetCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(ctx, *resetID, pwd)

	case "users":
		if err := usersCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.listUsers(ctx, *usersRole, *usersQuery, *usersSize)

	case "setrole":
		if err := setRoleCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *setRoleID == "" || *setRoleRole == "" {
			setRoleCmd.Usage()
			return errHelp
		}
		return cli.setRole(ctx, *setRoleID, models.UserRole(*setRoleRole))

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) requireActor() error {
	if cli.actorID == "" {
		return errors.New("LMSCTL_ACTOR_ID is not set")
	}
	return nil
}

func (cli *commandLine) createUser(ctx context.Context, email, name string, role models.UserRole, password string) error {
	if err := cli.requireActor(); err != nil {
		return err
	}
	user, err := cli.accounts.CreateUser(ctx, &services.CreateAccountRequest{
		Email:    email,
		Password: password,
		FullName: name,
		Role:     role,
	}, cli.actorID)
	if err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintf(cli.out, "Created %s (%s) as %s\n", user.Email, user.ID, user.Role)
	return nil
}

func (cli *commandLine) deleteUser(ctx context.Context, id string) error {
	if err := cli.requireActor(); err != nil {
		return err
	}
	if err := cli.accounts.DeleteUser(ctx, id, cli.actorID); err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintf(cli.out, "Deleted %s\n", id)
	return nil
}

func (cli *commandLine) resetPassword(ctx context.Context, id, password string) error {
	if err := cli.requireActor(); err != nil {
		return err
	}
	user, err := cli.accounts.ResetPassword(ctx, id, &services.ResetPasswordRequest{NewPassword: password}, cli.actorID)
	if err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintf(cli.out, "Password reset for %s\n", user.Email)
	return nil
}

func (cli *commandLine) listUsers(ctx context.Context, role, query string, size int) error {
	if err := cli.requireActor(); err != nil {
		return err
	}

	filters := repositories.UserFilters{Limit: size}
	if role != "" {
		r := models.UserRole(strings.ToLower(role))
		filters.Role = &r
	}

	var (
		result *services.UserListResponse
		err    error
	)
	if query != "" {
		result, err = cli.users.Search(ctx, query, filters, cli.actorID)
	} else {
		result, err = cli.users.List(ctx, filters, cli.actorID)
	}
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(cli.out)
	table.SetHeader([]string{"ID", "Name", "Email", "Role"})
	for _, u := range result.Users {
		table.Append([]string{u.ID, u.FullName, u.Email, string(u.Role)})
	}
	table.Render()

	color.New(color.FgYellow).Fprintf(cli.out, "%d of %d users\n", len(result.Users), result.Total)
	return nil
}

func (cli *commandLine) setRole(ctx context.Context, id string, role models.UserRole) error {
	if !role.IsValid() {
		return fmt.Errorf("invalid role %q", role)
	}
	if err := cli.repo.Role().SetRole(ctx, nil, id, role); err != nil {
		return err
	}
	cli.repo.User().InvalidateCache(ctx, id)
	color.New(color.FgGreen).Fprintf(cli.out, "%s is now %s\n", id, role)
	return nil
}
