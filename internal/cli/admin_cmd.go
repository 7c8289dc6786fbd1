// admin_cmd.go -- users, credentials and settings commands.
package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/michame/console/internal/apiclient"
	"github.com/michame/console/internal/format"
	"github.com/michame/console/internal/models"
	"github.com/michame/console/internal/validate"
)

// --- Users ---

func newUsersCommand(app *App) *cobra.Command {
	users := &cobra.Command{
		Use:   "users",
		Short: "Manage operator accounts (admin)",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List operator accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := app.authed(ctx); err != nil {
				return err
			}
			all, err := check(app.client.Users(ctx), "Failed to load users")
			if err != nil {
				return err
			}
			return app.render(all, func() *table {
				t := newTable("ID", "EMAIL", "NAME", "ROLE", "ACTIVE", "LAST LOGIN")
				for _, u := range all {
					active, last := "-", "never"
					if u.IsActive != nil {
						active = strconv.FormatBool(*u.IsActive)
					}
					if u.LastLoginAt != nil {
						last = format.RelativeTime(*u.LastLoginAt)
					}
					t.add(u.ID, u.Email, u.Name, string(u.Role), active, last)
				}
				return t
			})
		},
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create an operator account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := cmd.Flags()
			email, _ := f.GetString("email")
			name, _ := f.GetString("name")
			password, _ := f.GetString("password")
			role, _ := f.GetString("role")

			role = strings.ToUpper(role)
			if errs := validate.NewUser(email, password, name, role); !errs.OK() {
				return errs
			}

			ctx := cmd.Context()
			if err := app.authed(ctx); err != nil {
				return err
			}
			u, err := check(app.client.CreateUser(ctx, apiclient.NewUser{
				Email: strings.TrimSpace(email), Password: password, Name: strings.TrimSpace(name), Role: models.Role(role),
			}), "Failed to create user")
			if err != nil {
				return err
			}
			return app.render(u, func() *table { return kv("ID", u.ID, "Email", u.Email, "Name", u.Name, "Role", string(u.Role)) })
		},
	}
	create.Flags().String("email", "", "account email")
	create.Flags().String("name", "", "display name")
	create.Flags().String("password", "", "initial password")
	create.Flags().String("role", string(models.RoleOperator), "role (SUPER_ADMIN, ADMIN, OPERATOR, VIEWER)")

	update := &cobra.Command{
		Use:   "update <user-id>",
		Short: "Update name, email, role or active flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			var upd models.UserUpdate
			if f.Changed("name") {
				v, _ := f.GetString("name")
				upd.Name = &v
			}
			if f.Changed("email") {
				v, _ := f.GetString("email")
				if msg := validate.ValidateEmail(v); msg != "" {
					return errors.New(msg)
				}
				upd.Email = &v
			}
			if f.Changed("role") {
				v, _ := f.GetString("role")
				role, ok := models.ParseRole(strings.ToUpper(v))
				if !ok {
					return fmt.Errorf("unknown role %q", v)
				}
				upd.Role = &role
			}
			if f.Changed("active") {
				v, _ := f.GetBool("active")
				upd.IsActive = &v
			}
			if upd == (models.UserUpdate{}) {
				return errors.New("nothing to update: pass --name, --email, --role or --active")
			}

			ctx := cmd.Context()
			if err := app.authed(ctx); err != nil {
				return err
			}
			u, err := check(app.client.UpdateUser(ctx, args[0], upd), "Failed to update user")
			if err != nil {
				return err
			}
			return app.render(u, func() *table { return kv("ID", u.ID, "Email", u.Email, "Name", u.Name, "Role", string(u.Role)) })
		},
	}
	update.Flags().String("name", "", "new display name")
	update.Flags().String("email", "", "new email")
	update.Flags().String("role", "", "new role")
	update.Flags().Bool("active", true, "activate or deactivate the account")

	reset := &cobra.Command{
		Use:   "reset-password <user-id>",
		Short: "Set a new password for another account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, _ := cmd.Flags().GetString("password")
			if failures := validate.DefaultPolicy.Validate(password); len(failures) > 0 {
				return errors.New(strings.Join(failures, "; "))
			}
			ctx := cmd.Context()
			if err := app.authed(ctx); err != nil {
				return err
			}
			if _, err := check(app.client.ResetUserPassword(ctx, args[0], password), "Failed to reset password"); err != nil {
				return err
			}
			fmt.Fprintln(app.Out, "Password reset")
			return nil
		},
	}
	reset.Flags().String("password", "", "new password")
	reset.MarkFlagRequired("password")

	del := &cobra.Command{
		Use:   "delete <user-id>",
		Short: "Delete an operator account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := app.authed(ctx); err != nil {
				return err
			}
			if _, err := check(app.client.DeleteUser(ctx, args[0]), "Failed to delete user"); err != nil {
				return err
			}
			fmt.Fprintln(app.Out, "User deleted")
			return nil
		},
	}

	users.AddCommand(list, create, update, reset, del)
	return users
}

// --- Credentials ---

func newCredentialsCommand(app *App) *cobra.Command {
	creds := &cobra.Command{
		Use:     "credentials",
		Aliases: []string{"creds"},
		Short:   "Manage integration secrets",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored credentials (values masked)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := app.authed(ctx); err != nil {
				return err
			}
			data, err := check(app.client.Credentials(ctx), "Failed to load credentials")
			if err != nil {
				return err
			}
			return app.render(data, func() *table {
				t := newTable("KEY", "SERVICE", "CONFIGURED", "VALID", "VALUE", "LAST TEST")
				for _, c := range data.Credentials {
					last := "never"
					if c.LastTest != nil {
						last = format.RelativeTime(*c.LastTest)
					}
					t.add(c.Key, c.Service, strconv.FormatBool(c.IsConfigured), strconv.FormatBool(c.IsValid), orDash(c.MaskedValue), last)
				}
				return t
			})
		},
	}

	missing := &cobra.Command{
		Use:   "missing",
		Short: "List required credentials that are not configured",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := app.authed(ctx); err != nil {
				return err
			}
			data, err := check(app.client.MissingCredentials(ctx), "Failed to load missing credentials")
			if err != nil {
				return err
			}
			return app.render(data, func() *table {
				t := newTable("MISSING")
				for _, k := range data.Missing {
					t.add(k)
				}
				if data.IsComplete {
					t.add("(none)")
				}
				return t
			})
		},
	}

	save := &cobra.Command{
		Use:   "save <service> KEY=VALUE...",
		Short: "Store credentials for a service",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			values := make(map[string]string, len(args)-1)
			for _, pair := range args[1:] {
				k, v, ok := strings.Cut(pair, "=")
				if !ok || k == "" {
					return fmt.Errorf("expected KEY=VALUE, got %q", pair)
				}
				values[k] = v
			}
			ctx := cmd.Context()
			if err := app.authed(ctx); err != nil {
				return err
			}
			res, err := check(app.client.SaveCredentials(ctx, args[0], values), "Failed to save credentials")
			if err != nil {
				return err
			}
			return app.render(res, func() *table {
				t := newTable("SAVED")
				for _, k := range res.SavedKeys {
					t.add(k)
				}
				return t
			})
		},
	}

	test := &cobra.Command{
		Use:   "test <service>",
		Short: "Check stored credentials against the service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := app.authed(ctx); err != nil {
				return err
			}
			res, err := check(app.client.TestCredentials(ctx, args[0]), "Credential test failed")
			if err != nil {
				return err
			}
			return app.render(res, func() *table { return testResultTable(res) })
		},
	}

	del := &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete a stored credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := app.authed(ctx); err != nil {
				return err
			}
			res, err := check(app.client.DeleteCredential(ctx, args[0]), "Failed to delete credential")
			if err != nil {
				return err
			}
			fmt.Fprintln(app.Out, orDash(res.Message))
			return nil
		},
	}

	creds.AddCommand(list, missing, save, test, del)
	return creds
}

// --- Settings ---

func newSettingsCommand(app *App) *cobra.Command {
	settings := &cobra.Command{
		Use:   "settings",
		Short: "Backend health and integration checks",
	}

	health := &cobra.Command{
		Use:   "health",
		Short: "Show backend dependency health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := app.authed(ctx); err != nil {
				return err
			}
			h, err := check(app.client.Health(ctx), "Health check failed")
			if err != nil {
				return err
			}
			return app.render(h, func() *table {
				s := h.Services
				return kv(
					"Status", h.Status,
					"Database", orDash(s.Database.Status),
					"Machine Global", orDash(s.MachineGlobal.Status),
					"WhatsApp", orDash(s.WhatsApp.Status),
					"Twilio", orDash(s.Twilio.Status),
					"OpenAI", orDash(s.OpenAI.Status),
				)
			})
		},
	}

	raw := func(use, short string, call func(cmd *cobra.Command) apiclient.Raw) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := app.authed(cmd.Context()); err != nil {
					return err
				}
				data, err := check(call(cmd), "Request failed")
				if err != nil {
					return err
				}
				return app.renderRaw(data)
			},
		}
	}
	webhooks := raw("webhooks", "Show webhook configuration", func(cmd *cobra.Command) apiclient.Raw {
		return app.client.Webhooks(cmd.Context())
	})
	env := raw("env", "Show the backend environment summary", func(cmd *cobra.Command) apiclient.Raw {
		return app.client.EnvInfo(cmd.Context())
	})

	whatsapp := &cobra.Command{
		Use:   "test-whatsapp",
		Short: "Send a WhatsApp test message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			phone, _ := cmd.Flags().GetString("phone")
			message, _ := cmd.Flags().GetString("message")
			if msg := validate.Phone(phone); msg != "" {
				return errors.New(msg)
			}
			ctx := cmd.Context()
			if err := app.authed(ctx); err != nil {
				return err
			}
			data, err := check(app.client.TestWhatsApp(ctx, strings.TrimPrefix(strings.TrimSpace(phone), "+"), message), "WhatsApp test failed")
			if err != nil {
				return err
			}
			return app.renderRaw(data)
		},
	}
	whatsapp.Flags().String("phone", "", "destination number with country code")
	whatsapp.Flags().String("message", "", "message text (backend default when empty)")
	whatsapp.MarkFlagRequired("phone")

	machine := &cobra.Command{
		Use:   "test-machine",
		Short: "Check connectivity to the dispatch provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := app.authed(ctx); err != nil {
				return err
			}
			res, err := check(app.client.TestMachine(ctx), "Dispatch test failed")
			if err != nil {
				return err
			}
			return app.render(res, func() *table { return testResultTable(res) })
		},
	}

	settings.AddCommand(health, webhooks, env, whatsapp, machine)
	return settings
}

func testResultTable(r models.ServiceTestResult) *table {
	return kv("Service", orDash(r.Service), "Success", strconv.FormatBool(r.Success), "Message", orDash(r.Message), "Error", orDash(r.Error))
}

// renderRaw prints a shapeless payload. The table format falls back to indented JSON.
func (a *App) renderRaw(data json.RawMessage) error {
	if a.format != formatTable {
		return a.render(data, nil)
	}
	var buf bytes.Buffer
	if len(data) == 0 {
		_, err := fmt.Fprintln(a.Out, "{}")
		return err
	}
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return fmt.Errorf("formatting response: %w", err)
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(a.Out)
	return err
}
