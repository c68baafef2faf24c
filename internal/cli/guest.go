package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"storefront/internal/client"
	"storefront/internal/session"
)

type GuestOptions struct {
	*RootOptions
	Name  string
	Renew bool
}

// NewGuestCommand creates the guest command.
func NewGuestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GuestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "guest",
		Short: "Show or create the guest identity used for group carts",
		Long: `Show the stored guest identity, creating one on first use.

Examples:
  groupcartctl guest --name Ana
  groupcartctl guest --renew`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGuest(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "display name for a new guest")
	cmd.Flags().BoolVar(&opts.Renew, "renew", false, "discard the stored identity and create a new one")

	return cmd
}

func runGuest(cmd *cobra.Command, opts *GuestOptions) error {
	kv := opts.state()
	if !opts.Renew {
		if c, _, err := opts.guestClient(cmd, kv); err == nil {
			user, err := c.Me(cmd.Context())
			if err == nil {
				return opts.print(cmd, map[string]any{"user": user}, func(w io.Writer) {
					fmt.Fprintf(w, "%s (%s)\n", user.Name, user.ID)
				})
			}
			opts.logger(cmd).Printf("stored guest rejected, issuing a new one: %v", err)
		}
	}

	c := client.New(opts.Server, client.WithLogger(opts.logger(cmd)))
	user, err := c.IssueGuest(cmd.Context(), opts.Name)
	if err != nil {
		return err
	}
	if err := session.SaveGuest(kv, user, c.Token()); err != nil {
		return err
	}
	return opts.print(cmd, map[string]any{"user": user}, func(w io.Writer) {
		fmt.Fprintf(w, "%s (%s)\n", user.Name, user.ID)
	})
}
