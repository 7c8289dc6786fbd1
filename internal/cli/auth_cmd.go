// auth_cmd.go -- login, logout, status, password change, setup.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/michame/console/internal/apiclient"
	"github.com/michame/console/internal/format"
	"github.com/michame/console/internal/validate"
)

func newLoginCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Long:  "Signs in with email and password. The password is read from stdin when --password is omitted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")

			email = strings.TrimSpace(email)
			if msg := validate.ValidateEmail(email); msg != "" {
				return errors.New(msg)
			}
			if password == "" {
				p, err := app.prompt("Password: ")
				if err != nil {
					return err
				}
				password = p
			}
			if msg := validate.Required("Password", password); msg != "" {
				return errors.New(msg)
			}

			ctx := cmd.Context()
			if err := app.connect(ctx); err != nil {
				return err
			}
			if err := app.sess.Login(ctx, email, password); err != nil {
				return err
			}
			u := app.sess.User()
			fmt.Fprintf(app.Out, "Logged in as %s (%s)\n", u.Email, u.Role)
			return nil
		},
	}
	cmd.Flags().StringP("email", "e", "", "account email")
	cmd.Flags().StringP("password", "p", "", "account password")
	cmd.MarkFlagRequired("email")
	return cmd
}

// prompt reads one line from the app's input.
func (a *App) prompt(label string) (string, error) {
	fmt.Fprint(a.Err, label)
	line, err := bufio.NewReader(a.In).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newLogoutCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session and clear stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := app.connect(ctx); err != nil {
				return err
			}
			app.sess.Logout(ctx)
			fmt.Fprintln(app.Out, "Logged out")
			return nil
		},
	}
}

type statusView struct {
	State        string     `json:"state"`
	UserID       string     `json:"userId,omitempty"`
	Email        string     `json:"email,omitempty"`
	Name         string     `json:"name,omitempty"`
	Role         string     `json:"role,omitempty"`
	APIURL       string     `json:"apiUrl"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	TokenSubject string     `json:"tokenSubject,omitempty"` // sub claim of the stored access token
}

func newStatusCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show who is signed in and when the access token expires",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := app.connect(ctx); err != nil {
				return err
			}
			app.sess.Init(ctx)
			snap := app.sess.Snapshot()

			v := statusView{State: snap.State.String(), APIURL: app.Config.APIURL}
			if snap.User != nil {
				v.UserID, v.Email, v.Name, v.Role = snap.User.ID, snap.User.Email, snap.User.Name, string(snap.User.Role)
				token := app.store.AccessToken(ctx)
				if exp, ok := apiclient.TokenExpiry(token); ok {
					v.ExpiresAt = &exp
				}
				v.TokenSubject = apiclient.TokenSubject(token)
				if v.TokenSubject != "" && v.TokenSubject != v.UserID {
					fmt.Fprintf(app.Err, "warning: access token belongs to %s, signed-in user is %s\n", v.TokenSubject, v.UserID)
				}
			}

			return app.render(v, func() *table {
				if snap.User == nil {
					return kv("State", v.State, "Backend", v.APIURL)
				}
				expires := "unknown"
				if v.ExpiresAt != nil {
					expires = format.Timestamp(*v.ExpiresAt) + " (" + format.RelativeTime(*v.ExpiresAt) + ")"
				}
				return kv("State", v.State, "User", v.Name+" <"+v.Email+">", "Role", v.Role, "Backend", v.APIURL, "Token expires", expires)
			})
		},
	}
}

func newPasswordCommand(app *App) *cobra.Command {
	password := &cobra.Command{
		Use:   "password",
		Short: "Manage your password",
	}
	change := &cobra.Command{
		Use:   "change",
		Short: "Change your password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			current, _ := cmd.Flags().GetString("current")
			next, _ := cmd.Flags().GetString("new")
			if failures := validate.DefaultPolicy.Validate(next); len(failures) > 0 {
				return errors.New(strings.Join(failures, "; "))
			}

			ctx := cmd.Context()
			if err := app.authed(ctx); err != nil {
				return err
			}
			if _, err := check(app.client.ChangePassword(ctx, current, next), "Failed to change password"); err != nil {
				return err
			}
			fmt.Fprintln(app.Out, "Password changed")
			return nil
		},
	}
	change.Flags().String("current", "", "current password")
	change.Flags().String("new", "", "new password")
	change.MarkFlagRequired("current")
	change.MarkFlagRequired("new")
	password.AddCommand(change)
	return password
}

func newSetupCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Bootstrap the first admin account on a fresh backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := app.connect(ctx); err != nil {
				return err
			}
			res, err := check(app.client.Setup(ctx), "Setup failed")
			if err != nil {
				return err
			}
			return app.render(res, func() *table {
				return kv("Email", res.Email, "Password", res.Password, "Note", res.Note)
			})
		},
	}
}
