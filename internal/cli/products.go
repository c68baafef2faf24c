package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"storefront/internal/client"
)

type ProductsOptions struct {
	*RootOptions
	Category string
	Tag      string
	Query    string
}

// NewProductsCommand creates the products command.
func NewProductsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProductsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "products",
		Short:         "List catalog products",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(opts.Server, client.WithLogger(opts.logger(cmd)))
			products, err := c.Products(cmd.Context(), client.ProductFilter{
				Category: opts.Category,
				Tag:      opts.Tag,
				Query:    opts.Query,
			})
			if err != nil {
				return err
			}
			return opts.print(cmd, map[string]any{"products": products}, func(w io.Writer) {
				for _, p := range products {
					deal := ""
					if p.Deal != nil {
						deal = " (" + *p.Deal + ")"
					}
					fmt.Fprintf(w, "%-6s %-30s %-12s %10s  stock %d%s\n", p.ID, p.Name, p.Category, formatPrice(p.Price), p.Stock, deal)
				}
			})
		},
	}

	cmd.Flags().StringVar(&opts.Category, "category", "", "only products in this category")
	cmd.Flags().StringVar(&opts.Tag, "tag", "", "only products carrying this tag")
	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "search names and descriptions")

	return cmd
}
