// cli.go -- Cobra command tree for the michame binary.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/michame/console/internal/apiclient"
	"github.com/michame/console/internal/config"
	"github.com/michame/console/internal/credstore"
	"github.com/michame/console/internal/datasource"
	"github.com/michame/console/internal/session"
)

// ExpiredNotice is printed to stderr when the backend rejects the stored session.
const ExpiredNotice = "session expired, run `michame login`"

// ErrNotLoggedIn is returned by commands that need a session when none is stored.
var ErrNotLoggedIn = errors.New("not logged in, run `michame login`")

// App carries configuration and lazily built clients across one command run.
type App struct {
	Config  *config.Config
	Version string

	In  io.Reader
	Out io.Writer
	Err io.Writer

	// Serve runs the web console until ctx is cancelled. Set by main.
	Serve func(ctx context.Context, cfg *config.Config) error

	format     string
	store      *credstore.Store
	closeStore func() error
	client     *apiclient.Client
	sess       *session.Session
}

// NewRootCommand builds the full command tree bound to app.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "michame",
		Short:         "Mi Chame operator console",
		Long:          "Operator console for the Mi Chame WhatsApp taxi dispatch backend.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.applyFlags(cmd)
		},
	}
	root.SetIn(app.In)
	root.SetOut(app.Out)
	root.SetErr(app.Err)

	pf := root.PersistentFlags()
	pf.String("api-url", "", "backend base URL (overrides MICHAME_API_URL)")
	pf.StringP("output", "o", formatTable, "output format (table, json, yaml)")
	pf.String("store", "", "credential store (file, redis, postgres, memory)")

	root.AddCommand(
		newLoginCommand(app),
		newLogoutCommand(app),
		newStatusCommand(app),
		newPasswordCommand(app),
		newSetupCommand(app),
		newRidesCommand(app),
		newConversationsCommand(app),
		newAnalyticsCommand(app),
		newCredentialsCommand(app),
		newUsersCommand(app),
		newSettingsCommand(app),
		newDriversCommand(app),
		newServeCommand(app),
		newVersionCommand(app),
	)
	return root
}

func (a *App) applyFlags(cmd *cobra.Command) error {
	f := cmd.Flags()

	out, _ := f.GetString("output")
	switch out = strings.ToLower(out); out {
	case formatTable, formatJSON, formatYAML:
		a.format = out
	default:
		return fmt.Errorf("--output must be one of table, json, yaml (got %q)", out)
	}

	if f.Changed("api-url") {
		v, _ := f.GetString("api-url")
		u := config.NormalizeBaseURL(v)
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			return fmt.Errorf("--api-url must start with http:// or https://")
		}
		a.Config.APIURL = u
	}
	if f.Changed("store") {
		v, _ := f.GetString("store")
		switch v = strings.ToLower(v); v {
		case config.StoreFile, config.StoreMemory:
		case config.StoreRedis:
			if a.Config.RedisURL == "" {
				return fmt.Errorf("--store=redis needs REDIS_URL")
			}
		case config.StorePostgres:
			if a.Config.DatabaseURL == "" {
				return fmt.Errorf("--store=postgres needs DATABASE_URL")
			}
		default:
			return fmt.Errorf("--store must be one of file, redis, postgres, memory (got %q)", v)
		}
		a.Config.Store = v
	}
	return nil
}

// connect opens the credential store and builds the API client and session once.
func (a *App) connect(ctx context.Context) error {
	if a.client != nil {
		return nil
	}
	store, _, closeFn, err := credstore.Open(ctx, a.Config)
	if err != nil {
		return fmt.Errorf("opening credential store: %w", err)
	}
	a.store, a.closeStore = store, closeFn
	a.client = apiclient.New(a.Config.APIURL, store,
		apiclient.WithTimeout(a.Config.HTTPTimeout),
		apiclient.WithNavigator(a.navigate),
	)
	a.sess = session.New(a.client, store)
	return nil
}

// authed connects and fails early when no access token is stored.
func (a *App) authed(ctx context.Context) error {
	if err := a.connect(ctx); err != nil {
		return err
	}
	if a.store.AccessToken(ctx) == "" {
		return ErrNotLoggedIn
	}
	return nil
}

func (a *App) navigate(string) {
	fmt.Fprintln(a.Err, ExpiredNotice)
	if a.sess != nil {
		a.sess.Expire()
	}
}

// reader returns the data source for one command, falling back to fixtures when enabled.
func (a *App) reader() datasource.Reader {
	return datasource.NewReader(a.client, a.Config.Fallback, func(source string) {
		fmt.Fprintf(a.Err, "warning: backend unavailable, showing demo data (%s)\n", source)
	})
}

// Close releases the credential store backend.
func (a *App) Close() error {
	if a.closeStore == nil {
		return nil
	}
	return a.closeStore()
}

// check turns a failed envelope into an error.
func check[T any](env apiclient.Envelope[T], def string) (T, error) {
	if !env.Success {
		var zero T
		if env.Error == apiclient.SessionExpiredMessage {
			return zero, apiclient.ErrSessionExpired
		}
		return zero, errors.New(env.ErrorText(def))
	}
	return env.Data, nil
}

func newVersionCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the console version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v := app.Version
			if v == "" {
				v = "dev"
			}
			fmt.Fprintln(app.Out, "michame", v)
			return nil
		},
	}
}

func newServeCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web console",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port, _ := cmd.Flags().GetString("port"); cmd.Flags().Changed("port") {
				app.Config.Port = port
			}
			if addr, _ := cmd.Flags().GetString("listen"); cmd.Flags().Changed("listen") {
				app.Config.ListenAddr = addr
			}
			if app.Serve == nil {
				return errors.New("serve is not available in this build")
			}
			return app.Serve(cmd.Context(), app.Config)
		},
	}
	cmd.Flags().String("port", "", "listen port (overrides PORT)")
	cmd.Flags().String("listen", "", "listen address (overrides MICHAME_LISTEN_ADDR)")
	return cmd
}
