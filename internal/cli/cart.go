package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"storefront/internal/domain"
	"storefront/internal/session"
)

// NewStartCommand creates the start command.
func NewStartCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "start",
		Short:         "Create a group cart and print its invite link",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, c, err := opts.openSession(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()

			cart, notice, err := s.Start(cmd.Context())
			if err != nil {
				return opts.printNotice(cmd, notice, nil, err)
			}
			_, link, err := c.GetGroupCart(cmd.Context(), cart.ID)
			if err != nil {
				return err
			}
			if err := opts.printNotice(cmd, notice, map[string]any{"cart": cart, "inviteLink": link}, nil); err != nil {
				return err
			}
			if opts.Format == "text" {
				fmt.Fprintf(cmd.OutOrStdout(), "Invite link: %s\n", link)
			}
			return nil
		},
	}
}

// NewJoinCommand creates the join command.
func NewJoinCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "join <invite-link>",
		Short: "Join a group cart from an invite link",
		Long: `Join the group cart an invite link points at. A bare cart id works too.

Examples:
  groupcartctl join https://shop.example/join/5f0c...
  groupcartctl join 5f0c...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := opts.openSession(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()

			notice, err := s.JoinByLink(cmd.Context(), args[0])
			return opts.printNotice(cmd, notice, map[string]any{"cartId": s.ActiveCartID()}, err)
		},
	}
}

// NewLeaveCommand creates the leave command.
func NewLeaveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "leave",
		Short:         "Leave the active group cart",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := opts.openSession(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()

			notice, err := s.Leave(cmd.Context())
			return opts.printNotice(cmd, notice, nil, err)
		},
	}
}

// NewAddCommand creates the add command.
func NewAddCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "add <product-id>",
		Short:         "Add one unit of a product to the active group cart",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := opts.openSession(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()

			cart, notice, err := s.AddItem(cmd.Context(), args[0])
			extra := map[string]any{}
			if cart != nil {
				extra["cart"] = cart
			}
			return opts.printNotice(cmd, notice, extra, err)
		},
	}
}

// NewShowCommand creates the show command.
func NewShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show",
		Short:         "Show the active group cart",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, c, err := opts.openSession(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()

			if s.State() == session.Solo {
				return opts.print(cmd, map[string]any{"state": session.Solo.String()}, func(w io.Writer) {
					fmt.Fprintln(w, "Not in a group cart.")
				})
			}
			cart, link, err := c.GetGroupCart(cmd.Context(), s.ActiveCartID())
			if err != nil {
				return err
			}
			return opts.print(cmd, map[string]any{"state": session.InGroup.String(), "cart": cart, "inviteLink": link}, func(w io.Writer) {
				writeCart(w, cart, s.User())
				fmt.Fprintf(w, "Invite link: %s\n", link)
			})
		},
	}
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow the active group cart as it changes",
		Long: `Print the active group cart every time it changes.

Stops when interrupted, when the cart is deleted, when you are no longer
one of its members, or when the server stays unreachable.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)

			s, _, err := opts.openSession(cmd, true)
			if err != nil {
				return err
			}
			defer s.Close()
			if s.State() == session.Solo {
				return fmt.Errorf("not in a group cart: %w", domain.ErrNotMember)
			}

			var lastVersion int64 = -1
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-s.Changes():
				}
				if s.State() == session.Solo {
					return opts.print(cmd, map[string]any{"state": session.Solo.String()}, func(w io.Writer) {
						fmt.Fprintln(w, "The group cart is gone or you were removed. Back to your own cart.")
					})
				}
				if err := s.Err(); err != nil {
					return err
				}
				cart := s.Snapshot()
				if cart == nil || cart.Version == lastVersion {
					continue
				}
				lastVersion = cart.Version
				if err := opts.print(cmd, map[string]any{"state": session.InGroup.String(), "cart": cart}, func(w io.Writer) {
					writeCart(w, cart, s.User())
					fmt.Fprintln(w)
				}); err != nil {
					return err
				}
			}
		},
	}
}

func writeCart(w io.Writer, cart *domain.GroupCart, me domain.User) {
	fmt.Fprintf(w, "Group cart %s (version %d)\n", cart.ID, cart.Version)
	names := make([]string, 0, len(cart.Members))
	for _, m := range cart.Members {
		name := m.Name
		if m.ID == cart.OwnerID {
			name += " [owner]"
		}
		if m.ID == me.ID {
			name += " [you]"
		}
		names = append(names, name)
	}
	fmt.Fprintf(w, "Members: %s\n", strings.Join(names, ", "))
	if len(cart.CartItems) == 0 {
		fmt.Fprintln(w, "No items yet.")
		return
	}
	var total int64
	for _, it := range cart.CartItems {
		line := it.Price * int64(it.Quantity)
		total += line
		fmt.Fprintf(w, "  %-3d %-30s %10s\n", it.Quantity, it.Name, formatPrice(line))
	}
	fmt.Fprintf(w, "  %-34s %10s\n", "Total", formatPrice(total))
}

func formatPrice(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
