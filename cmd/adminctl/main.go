// Command adminctl is the storefront's admin console: orders, tracking,
// products, users, contact messages and shop filters, driven against the
// REST backend with an admin token.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ariefcatur/go-storefront/internal/backend"
	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/session"
)

type app struct {
	cfg     config.Config
	baseURL string
	token   string
	out     io.Writer
	log     *slog.Logger
	client  *backend.Client
}

func main() {
	_ = godotenv.Load()
	if err := newRoot(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRoot(out io.Writer) *cobra.Command {
	a := &app{cfg: config.Load(), out: out}
	root := &cobra.Command{
		Use:          "adminctl",
		Short:        "Storefront admin console",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			a.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
			a.client = backend.New(a.baseURL, a.cfg.BackendTimeout)
		},
	}
	root.PersistentFlags().StringVar(&a.baseURL, "backend", a.cfg.BackendBaseURL, "REST backend base url")
	root.PersistentFlags().StringVar(&a.token, "token", a.cfg.AdminToken, "admin token (defaults to ADMIN_TOKEN)")

	root.AddCommand(
		a.loginCmd(),
		a.ordersCmd(),
		a.trackingCmd(),
		a.productsCmd(),
		a.usersCmd(),
		a.contactsCmd(),
		a.filtersCmd(),
	)
	return root
}

// ctx carries the admin session every backend call reads its token from.
func (a *app) ctx(cmd *cobra.Command) (context.Context, error) {
	if a.token == "" {
		return nil, fmt.Errorf("admin not authenticated: run `adminctl login` and set ADMIN_TOKEN or pass --token")
	}
	s, _ := session.FromTokens(a.cfg.UserToken, a.token)
	return session.With(cmd.Context(), s), nil
}

func (a *app) workflow() *orders.Workflow {
	return &orders.Workflow{API: a.client, Log: a.log}
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) table(header string, rows func(w io.Writer)) error {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, header)
	rows(tw)
	return tw.Flush()
}

func (a *app) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in as admin and print the token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.client.AdminLogin(cmd.Context(), email, password)
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			fmt.Fprintf(a.out, "signed in as %s\nexport ADMIN_TOKEN=%s\n", res.Admin.Email, res.Token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "admin email")
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
