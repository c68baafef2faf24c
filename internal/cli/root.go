package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"storefront/internal/client"
	"storefront/internal/domain"
	"storefront/internal/session"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Server    string
	StateFile string
	Format    string // "json" | "text"
	Verbose   bool
}

var ValidFormats = []string{"text", "json"}

var errNoGuest = errors.New("no guest identity yet, run `groupcartctl guest` first")

// NewRootCommand creates the root command for groupcartctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "groupcartctl",
		Short: "Shop together from the terminal",
		Long:  "groupcartctl creates, joins and follows storefront group carts.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Server, "server", envOr("GROUPCART_SERVER", "http://localhost:8080"), "storefront API base URL")
	cmd.PersistentFlags().StringVar(&opts.StateFile, "state", defaultStateFile(), "file holding the guest identity and active group cart")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log requests and stream activity to stderr")

	cmd.AddCommand(NewGuestCommand(opts))
	cmd.AddCommand(NewStartCommand(opts))
	cmd.AddCommand(NewJoinCommand(opts))
	cmd.AddCommand(NewLeaveCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewProductsCommand(opts))

	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultStateFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".groupcartctl.yaml"
	}
	return filepath.Join(dir, "groupcartctl", "state.yaml")
}

func (o *RootOptions) logger(cmd *cobra.Command) *log.Logger {
	if !o.Verbose {
		return log.New(io.Discard, "", 0)
	}
	return log.New(cmd.ErrOrStderr(), "[groupcartctl] ", log.LstdFlags|log.LUTC)
}

func (o *RootOptions) state() *session.FileKV {
	return session.NewFileKV(o.StateFile)
}

// guestClient returns a client authenticated as the stored guest.
func (o *RootOptions) guestClient(cmd *cobra.Command, kv session.KV) (*client.Client, domain.User, error) {
	user, token, ok, err := session.LoadGuest(kv)
	if err != nil {
		return nil, domain.User{}, err
	}
	if !ok {
		return nil, domain.User{}, errNoGuest
	}
	c := client.New(o.Server, client.WithToken(token), client.WithLogger(o.logger(cmd)))
	return c, user, nil
}

// openSession restores the stored session. live sessions follow the active
// cart until closed.
func (o *RootOptions) openSession(cmd *cobra.Command, live bool) (*session.Session, *client.Client, error) {
	kv := o.state()
	c, user, err := o.guestClient(cmd, kv)
	if err != nil {
		return nil, nil, err
	}
	s := session.New(session.NewHTTPBackend(c), kv, user, session.Options{Live: live, Logger: o.logger(cmd)})
	if err := s.Load(cmd.Context()); err != nil {
		_ = s.Close()
		return nil, nil, err
	}
	return s, c, nil
}

func (o *RootOptions) print(cmd *cobra.Command, v any, text func(io.Writer)) error {
	out := cmd.OutOrStdout()
	if o.Format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(out)
	return nil
}

// printNotice shows notice and returns err so commands fail after
// reporting.
func (o *RootOptions) printNotice(cmd *cobra.Command, notice domain.Notice, extra map[string]any, err error) error {
	payload := map[string]any{"notice": notice}
	for k, v := range extra {
		payload[k] = v
	}
	if perr := o.print(cmd, payload, func(w io.Writer) {
		fmt.Fprintf(w, "%s %s\n", notice.Title, notice.Description)
	}); perr != nil {
		return perr
	}
	return err
}
