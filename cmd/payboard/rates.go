package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"payboard/internal/core"
)

var (
	flagNewsRate string
	flagBlogRate string
)

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Show or change the payout rates",
}

var ratesGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the live payout rates",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer rt.close()
		r := rt.settings.Current()
		fmt.Fprintf(cmd.OutOrStdout(), "news\t%s\nblog\t%s\n", core.FormatDollars(r.News), core.FormatDollars(r.Blog))
		return nil
	},
}

var ratesSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Persist new payout rates",
	Long:  "Overwrite the persisted payout rates. Omitted flags keep their current value.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagNewsRate == "" && flagBlogRate == "" {
			return fmt.Errorf("set at least one of --news or --blog")
		}
		rt, err := openRuntime(cmd.Context(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer rt.close()

		r := rt.settings.Current()
		if flagNewsRate != "" {
			if r.News, err = core.ParseAmount(flagNewsRate); err != nil {
				return fmt.Errorf("--news: %w", err)
			}
		}
		if flagBlogRate != "" {
			if r.Blog, err = core.ParseAmount(flagBlogRate); err != nil {
				return fmt.Errorf("--blog: %w", err)
			}
		}
		if err := rt.settings.Commit(cmd.Context(), r); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "news\t%s\nblog\t%s\n", core.FormatDollars(r.News), core.FormatDollars(r.Blog))
		return nil
	},
}

func init() {
	ratesSetCmd.Flags().StringVar(&flagNewsRate, "news", "", "payout per news article")
	ratesSetCmd.Flags().StringVar(&flagBlogRate, "blog", "", "payout per blog article")
	ratesCmd.AddCommand(ratesGetCmd, ratesSetCmd)
}
