package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/bl4ck0w1/hostbrute/internal/reporting"
	"github.com/bl4ck0w1/hostbrute/pkg/models"
	"github.com/bl4ck0w1/hostbrute/pkg/utils"
)

func NewRunsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List saved brute force runs",
		Long:  `List the run summaries saved next to the hosts table.`,
		Args:  cobra.NoArgs,
		RunE:  runRunsList,
	}
	cmd.PersistentFlags().String("store", "", "Hosts table file (defaults to storage.path)")
	cmd.AddCommand(newRunsShowCommand())
	cmd.AddCommand(newRunsExportCommand())
	return cmd
}

func newRunsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the outcome of one run",
		Args:  cobra.ExactArgs(1),
		RunE:  runRunsShow,
	}
}

func newRunsExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Regenerate the reports of a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  runRunsExport,
	}
	cmd.Flags().StringSliceP("formats", "f", []string{"txt", "csv", "json", "yaml"}, "Report formats")
	cmd.Flags().StringP("output", "o", "", "Report directory (defaults to reporting.output_dir)")
	cmd.Flags().Bool("compress", false, "Compress reports with gzip (.gz)")
	return cmd
}

func runRunsList(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	runs, err := store.ListRuns(context.Background())
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		logrus.Info("No runs saved yet")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tSTARTED\tTARGET\tSTATUS\tHOSTS\tNEW\tSUBDOMAINS\tDURATION")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			r.RunID,
			r.StartTime.Format("2006-01-02 15:04:05"),
			runTarget(r),
			r.Status,
			r.Stats.TotalHosts,
			r.Stats.NewHosts,
			r.Stats.NewSubdomains,
			utils.HumanizeDuration(r.Duration()),
		)
	}
	return w.Flush()
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	r, err := store.FindRun(context.Background(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Run %s (%s) against %s via %s\n", r.RunID, r.Status, runTarget(r), r.Config.Nameserver)
	fmt.Println("═══════════════════════════════════════════════════════════════")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DOMAIN\tLEVEL\tSTATUS\tHOST WILDCARD\tNS WILDCARD\tERROR")
	for _, d := range r.Domains {
		fmt.Fprintf(w, "%s\t%d\t%s\t%t\t%t\t%s\n", d.Domain, d.Level, d.Status, d.Wildcard.HostWildcard, d.Wildcard.NSWildcard, d.Error)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println()
	for _, h := range models.HostsFromDiscoveries(r.Discoveries) {
		marker := " "
		if h.New {
			marker = "+"
		}
		fmt.Printf("%s %-40s %v %v\n", marker, h.Name, h.Types, h.Values)
	}
	return nil
}

func runRunsExport(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	r, err := store.FindRun(context.Background(), args[0])
	if err != nil {
		return err
	}

	formats, _ := cmd.Flags().GetStringSlice("formats")
	compress, _ := cmd.Flags().GetBool("compress")
	outDir, _ := cmd.Flags().GetString("output")
	if outDir == "" {
		outDir = viper.GetString("reporting.output_dir")
	}

	rg, err := reporting.NewReportGenerator(models.ReportingConfig{
		Formats:   normalizeFormats(formats),
		OutputDir: outDir,
		Compress:  compress,
	}, logrus.StandardLogger())
	if err != nil {
		return err
	}
	paths, err := rg.Export(r, cmd.Root().Version, normalizeFormats(formats))
	for _, p := range paths {
		fmt.Println(p)
	}
	return err
}

func runTarget(r *models.RunResult) string {
	switch r.Config.Scan {
	case models.ScanTable:
		return "(hosts table)"
	case models.ScanBoth:
		return r.Config.Domain + " + hosts table"
	default:
		return r.Config.Domain
	}
}
