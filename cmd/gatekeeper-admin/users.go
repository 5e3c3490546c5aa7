package main

import (
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	domainauth "github.com/target/gatekeeper/internal/domain/auth"
	"github.com/target/gatekeeper/internal/service"
	"github.com/target/gatekeeper/internal/validation"
)

type createAdminOptions struct {
	Name  string
	Email string
}

func parseCreateAdminFlags(args []string) (createAdminOptions, error) {
	fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	opts := createAdminOptions{}
	fs.StringVar(&opts.Name, "name", "", "display name")
	fs.StringVar(&opts.Email, "email", "", "login email")
	if err := fs.Parse(args); err != nil {
		return opts, fmt.Errorf("%w: %w", errUsage, err)
	}
	errs := validation.New().
		Validate("--name", opts.Name, validation.Required("--name", validation.NameMaxLength)).
		Validate("--email", opts.Email, validation.Email("--email")).
		Errors()
	if len(errs) > 0 {
		return opts, fmt.Errorf("%w: create-admin --name <name> --email <email>: %s", errUsage, joinFieldErrors(errs))
	}
	opts.Name = strings.TrimSpace(opts.Name)
	opts.Email = strings.TrimSpace(opts.Email)
	return opts, nil
}

// joinFieldErrors renders validator output sorted by flag name.
func joinFieldErrors(errs map[string]string) string {
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, errs[k])
	}
	return strings.Join(msgs, " ")
}

func runCreateAdmin(cmdCtx *commandContext, args []string) error {
	opts, err := parseCreateAdminFlags(args)
	if err != nil {
		return err
	}
	password, err := cmdCtx.readPassword("Password: ")
	if err != nil {
		return err
	}

	return withUsers(cmdCtx, func(admin userAdmin) error {
		user, err := admin.CreateUser(cmdCtx.Ctx, service.CreateUserInput{
			Name:     opts.Name,
			Email:    opts.Email,
			Password: password,
			Role:     domainauth.RoleAdmin,
		})
		if err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
		return writef(cmdCtx.Out, "Created admin %s <%s> (%s)\n", user.Name, user.Email, user.ID)
	})
}

func runPromote(cmdCtx *commandContext, args []string) error {
	return setRole(cmdCtx, "promote", args, domainauth.RoleAdmin)
}

func runDemote(cmdCtx *commandContext, args []string) error {
	return setRole(cmdCtx, "demote", args, domainauth.RoleUser)
}

var roleNames = []string{string(domainauth.RoleUser), string(domainauth.RoleAdmin)}

// runSetRole assigns a role given by name, for scripts that carry the role
// as data.
func runSetRole(cmdCtx *commandContext, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: set-role <email> <%s>", errUsage, strings.Join(roleNames, "|"))
	}
	if msg := validation.OneOf("role", roleNames)(args[1]); msg != "" {
		return fmt.Errorf("%w: %s", errUsage, msg)
	}
	role, _ := domainauth.ParseRole(args[1])
	return setRole(cmdCtx, "set-role", args[:1], role)
}

func setRole(cmdCtx *commandContext, name string, args []string, role domainauth.Role) error {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return fmt.Errorf("%w: %s <email>", errUsage, name)
	}
	email := strings.TrimSpace(args[0])

	return withUsers(cmdCtx, func(admin userAdmin) error {
		res, err := admin.SetRoleByEmail(cmdCtx.Ctx, email, role)
		if err != nil {
			return fmt.Errorf("%s %s: %w", name, email, err)
		}
		if res.Outcome == service.OutcomeUnchanged {
			return writef(cmdCtx.Out, "%s already has role %s\n", res.User.Email, res.User.Role)
		}
		return writef(cmdCtx.Out, "%s now has role %s\n", res.User.Email, res.User.Role)
	})
}

func runListUsers(cmdCtx *commandContext, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("%w: list-users takes no arguments", errUsage)
	}
	return withUsers(cmdCtx, func(admin userAdmin) error {
		users, err := admin.ListUsers(cmdCtx.Ctx)
		if err != nil {
			return fmt.Errorf("list users: %w", err)
		}
		return renderUserTable(cmdCtx.Out, users)
	})
}

func renderUserTable(w io.Writer, users []domainauth.User) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "ID\tNAME\tEMAIL\tROLE\tCREATED (UTC)"); err != nil {
		return fmt.Errorf("write users header row: %w", err)
	}
	for _, u := range users {
		if err := writef(tw, "%s\t%s\t%s\t%s\t%s\n",
			u.ID, u.Name, u.Email, u.Role, u.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		); err != nil {
			return fmt.Errorf("write user row: %w", err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush users table: %w", err)
	}
	return writef(w, "%d users\n", len(users))
}
