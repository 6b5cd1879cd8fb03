package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/fractal/internal/config"
	"github.com/matzehuels/fractal/pkg/session"
)

// authCommand creates the auth command with subcommands.
func (c *CLI) authCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the calendar access token",
		Long: `Store the access token used by 'fractal sync'.

Fractal does not run an OAuth flow. Obtain a token for the calendar API
elsewhere and hand it over with 'fractal auth token'. The token is kept in
~/.config/fractal/sessions/ until it expires.`,
	}

	cmd.AddCommand(c.authTokenCommand())
	cmd.AddCommand(c.authStatusCommand())
	cmd.AddCommand(c.authLogoutCommand())
	return cmd
}

func (c *CLI) authTokenCommand() *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token [TOKEN]",
		Short: "Store a calendar access token (read from stdin when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := ""
			if len(args) == 1 {
				token = args[0]
			} else {
				var err error
				if token, err = readToken(cmd.InOrStdin()); err != nil {
					return err
				}
			}

			ts, err := openTokenStore()
			if err != nil {
				return err
			}
			sess, err := ts.Save(cmd.Context(), token, ttl)
			if err != nil {
				return fmt.Errorf("save token: %w", err)
			}
			printSuccess("Token stored")
			printKeyValue("Expires", sess.ExpiresAt.Local().Format(time.DateTime))
			printKeyValue("File", ts.Path())
			return nil
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", session.DefaultTTL, "how long the token stays valid")
	return cmd
}

func (c *CLI) authStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a token is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := c.loadSession(cmd.Context())
			if err != nil {
				return err
			}
			printSuccess("Calendar token")
			printKeyValue("Stored", sess.CreatedAt.Local().Format(time.DateTime))
			if sess.ExpiresAt.IsZero() {
				printKeyValue("Expires", "never")
			} else {
				printKeyValue("Expires", fmt.Sprintf("%s (in %s)",
					sess.ExpiresAt.Local().Format(time.DateTime),
					time.Until(sess.ExpiresAt).Round(time.Minute)))
			}
			return nil
		},
	}
}

func (c *CLI) authLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := openTokenStore()
			if err != nil {
				return err
			}
			if err := ts.Delete(cmd.Context()); err != nil {
				return fmt.Errorf("delete session: %w", err)
			}
			if err := ts.Prune(cmd.Context()); err != nil {
				c.Logger.Warn("could not prune expired sessions", "error", err)
			}
			printSuccess("Logged out")
			return nil
		},
	}
}

// =============================================================================
// Session Management
// =============================================================================

func openTokenStore() (*session.TokenStore, error) {
	dir, err := config.SessionDir()
	if err != nil {
		return nil, err
	}
	ts, err := session.NewTokenStore(dir)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	return ts, nil
}

// loadSession prunes expired sessions and returns the stored one.
func (c *CLI) loadSession(ctx context.Context) (*session.Session, error) {
	ts, err := openTokenStore()
	if err != nil {
		return nil, err
	}
	if err := ts.Prune(ctx); err != nil {
		c.Logger.Warn("could not prune expired sessions", "error", err)
	}
	return ts.Session(ctx)
}

// readToken reads the first non-empty line of r.
func readToken(r io.Reader) (string, error) {
	if f, ok := r.(*os.File); ok {
		if fi, err := f.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
			printInline("Paste token: ")
		}
	}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			return line, nil
		}
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return "", fmt.Errorf("no token given")
}
