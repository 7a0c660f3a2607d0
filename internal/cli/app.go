// Package cli implements resumectl, a terminal client for the session
// endpoints. The session token is kept in a per-user file.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/isdelr/resumai-be/internal/auth"
	"github.com/isdelr/resumai-be/internal/models"
)

// getSimpleText and getPassword are swapped in tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
)

// Usage is printed for unknown commands.
const Usage = "usage: resumectl [-server URL] signup|login|logout|whoami"

// App runs one resumectl command.
type App struct {
	client *Client
	reader *bufio.Reader
	out    io.Writer
	errOut io.Writer
}

// NewApp creates an App reading prompts from in and writing to out.
func NewApp(client *Client, in io.Reader, out io.Writer) *App {
	return &App{client: client, reader: bufio.NewReader(in), out: out, errOut: os.Stderr}
}

// Run executes cmd. Every command starts by checking the stored session so
// that a revoked or expired token is dropped before anything else happens.
func (a *App) Run(ctx context.Context, cmd string) error {
	session, err := a.client.CheckAuth(ctx)
	if err != nil && !errors.Is(err, ErrUnauthenticated) && cmd != "logout" {
		return err
	}

	switch cmd {
	case "signup":
		return a.signup(ctx)
	case "login":
		return a.login(ctx, session)
	case "logout":
		return a.logout(ctx)
	case "whoami":
		if session == nil {
			fmt.Fprintln(a.out, "Not logged in.")
			return ErrUnauthenticated
		}
		fmt.Fprintf(a.out, "%s (session expires %s)\n", describe(session.User), session.ExpiresAt.Local().Format("2006-01-02 15:04"))
		return nil
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, Usage)
	}
}

func (a *App) signup(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return err
	}
	first, err := getSimpleText(a.reader, "First name (optional)", a.out)
	if err != nil {
		return err
	}
	last, err := getSimpleText(a.reader, "Last name (optional)", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}

	user, err := a.client.Signup(ctx, auth.SignupInput{Email: email, Password: password, FirstName: first, LastName: last})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Welcome, %s!\n", describe(*user))
	return nil
}

func (a *App) login(ctx context.Context, current *Session) error {
	if current != nil {
		fmt.Fprintf(a.out, "Currently logged in as %s.\n", current.User.Email)
	}
	email, err := getSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}

	user, err := a.client.Login(ctx, email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s.\n", describe(*user))
	return nil
}

// logout always succeeds locally. A server failure is only reported.
func (a *App) logout(ctx context.Context) error {
	if err := a.client.Logout(ctx); err != nil {
		fmt.Fprintf(a.errOut, "warning: server did not confirm logout: %v\n", err)
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

func describe(u models.UserView) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return fmt.Sprintf("%s <%s>", name, u.Email)
}
