package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"kitchen-api/internal/client"
	"kitchen-api/internal/core/cook"
	"kitchen-api/internal/core/recipe"
	"kitchen-api/internal/pkg/common"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// .env 可選
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	server    string
	household string
	timeout   time.Duration
	json      bool
}

func (o *options) client() (*client.Client, error) {
	if strings.TrimSpace(o.household) == "" {
		return nil, fmt.Errorf("household is required (--household or KITCHEN_HOUSEHOLD)")
	}
	return client.New(o.server, o.household, o.timeout), nil
}

func rootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "kitchenctl",
		Short:         "Command line client for the kitchen API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.server, "server", envOr("KITCHEN_SERVER", "http://localhost:8080"), "Kitchen API base URL")
	cmd.PersistentFlags().StringVar(&opts.household, "household", os.Getenv("KITCHEN_HOUSEHOLD"), "Household ID")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 15*time.Second, "Request timeout")
	cmd.PersistentFlags().BoolVar(&opts.json, "json", false, "Print raw JSON responses")

	cmd.AddCommand(
		recipesCmd(opts),
		cookabilityCmd(opts),
		planCmd(opts),
		cookCmd(opts),
		addMissingCmd(opts),
		listCmd(opts),
		inventoryCmd(opts),
	)
	return cmd
}

func recipesCmd(opts *options) *cobra.Command {
	var q recipe.ListQuery
	cmd := &cobra.Command{
		Use:   "recipes",
		Short: "List recipes ranked by cookability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			res, err := c.ListRecipes(cmd.Context(), q)
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd, res)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tBUCKET\tMISSING")
			for _, r := range res.Recipes {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Recipe.ID, r.Recipe.Title, r.Bucket, strings.Join(r.Cookability.MissingLabels, ", "))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\ntotal %d: cook-now %d, almost %d, missing %d\n",
				res.Summary.Total, res.Summary.CookNow, res.Summary.Almost, res.Summary.Missing)
			return nil
		},
	}
	cmd.Flags().StringVarP(&q.Query, "query", "q", "", "Free-text filter")
	cmd.Flags().StringVar(&q.Tag, "tag", "", "Tag filter")
	cmd.Flags().StringVar(&q.Cookability, "cookability", "", "Bucket filter (cook-now, almost, missing)")
	cmd.Flags().StringVar(&q.Sort, "sort", "", "Sort mode (best, recent, title-asc, time-asc)")
	return cmd
}

func cookabilityCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "cookability <recipe-id>",
		Short: "Show whether a recipe can be cooked now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			v, err := c.Cookability(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd, v)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (available %d, missing %d)\n", v.RecipeID, v.Bucket, v.AvailableCount, v.MissingCount)
			for _, l := range v.MissingLabels {
				fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", l)
			}
			return nil
		},
	}
}

func planCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "plan <recipe-id>",
		Short: "Preview what cooking a recipe would deduct and add",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			p, err := c.CookPlan(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd, p)
			}
			out := cmd.OutOrStdout()
			for _, d := range p.Deductions {
				fmt.Fprintf(out, "deduct %g %s %s (%g -> %g)\n", d.Amount, d.Unit, d.Name, d.Before, d.After)
			}
			for _, m := range p.Missing {
				fmt.Fprintf(out, "missing %s (%s)\n", m.Label, m.Reason)
			}
			return nil
		},
	}
}

func cookCmd(opts *options) *cobra.Command {
	var addMissing bool
	cmd := &cobra.Command{
		Use:   "cook <recipe-id>",
		Short: "Cook a recipe: deduct inventory and stamp it as cooked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			out, err := c.Cook(cmd.Context(), args[0], cook.Options{AddMissingToList: addMissing})
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd, out)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "inventory updated: %d, added to shopping list: %d\n", out.InventoryUpdated, out.MissingAdded)
			return nil
		},
	}
	cmd.Flags().BoolVar(&addMissing, "add-missing", false, "Add missing ingredients to the shopping list")
	return cmd
}

func addMissingCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "add-missing <recipe-id>",
		Short: "Add a recipe's missing ingredients to the shopping list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			n, err := c.AddMissing(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %d item(s)\n", n)
			return nil
		},
	}
}

func listCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the household shopping list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			items, err := c.ShoppingItems(cmd.Context())
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd, items)
			}
			for _, it := range items {
				mark := " "
				if it.Checked {
					mark = "x"
				}
				qty := ""
				if it.Quantity != nil {
					qty = fmt.Sprintf(" %g %s", *it.Quantity, it.Unit)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s%s (%s)\n", mark, it.Name, qty, it.Source)
			}
			return nil
		},
	}
}

func inventoryCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "inventory",
		Short: "Show the household pantry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			items, err := c.Inventory(cmd.Context())
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd, items)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tQUANTITY\tUNIT")
			for _, it := range items {
				fmt.Fprintf(w, "%s\t%g\t%s\n", it.Name, it.Quantity, it.Unit)
			}
			return w.Flush()
		},
	}
}

// printJSON 以 JSON 輸出回應
func printJSON(cmd *cobra.Command, v interface{}) error {
	out, err := common.ToJSON(v)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
