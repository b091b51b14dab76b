package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/JakeFAU/stockwatch/internal/monitor"
)

func newProductsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "products",
		Short: "Lists the catalog with the last known state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			snapshot, err := appInstance.State().Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("load state: %w", err)
			}
			return writeProducts(cmd.OutOrStdout(), appInstance.Products(), snapshot)
		},
	}
}

func writeProducts(out io.Writer, products []monitor.Product, snapshot *monitor.Snapshot) error {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STORE\tPRODUCT\tTARGET\tSTATUS\tPRICE\tSINCE")
	for _, p := range products {
		target := "-"
		if p.HasTarget() {
			target = fmt.Sprintf("%.2f", *p.TargetPrice)
		}
		status, price, since := "unknown", "-", "-"
		if st, ok := snapshot.Get(p.Store, p.Name); ok {
			status = red("unavailable")
			if st.Available {
				status = green("available")
			}
			price, since = st.Price, st.Timestamp
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", p.Store, p.Name, target, status, price, since)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write product table: %w", err)
	}
	return nil
}
