package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/bl4ck0w1/hostbrute/internal/storage"
)

func NewHostsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hosts",
		Short: "Show and manage the hosts table",
		Long: `The hosts table holds every hostname found so far. It decides which hosts
are reported as new and supplies the targets of a --scan table run.`,
		Args: cobra.NoArgs,
		RunE: runHostsList,
	}
	cmd.PersistentFlags().String("store", "", "Hosts table file (defaults to storage.path)")
	cmd.Flags().Bool("details", false, "Show first/last seen times and hit counts")
	cmd.Flags().Bool("json", false, "Print the table as JSON")

	cmd.AddCommand(newHostsAddCommand())
	cmd.AddCommand(newHostsClearCommand())
	return cmd
}

func newHostsAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <host>...",
		Short: "Add hosts to the table",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runHostsAdd,
	}
}

func newHostsClearCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every host from the table",
		Args:  cobra.NoArgs,
		RunE:  runHostsClear,
	}
	cmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func openStore(cmd *cobra.Command) (*storage.HostStore, error) {
	path := viper.GetString("storage.path")
	if f := cmd.Flags().Lookup("store"); f != nil && f.Changed {
		path = f.Value.String()
	}
	store, err := storage.NewHostStore(path, viper.GetBool("storage.compression"), logrus.StandardLogger())
	if err != nil {
		return nil, fmt.Errorf("failed to open hosts table: %w", err)
	}
	return store, nil
}

func runHostsList(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	records := store.Records()

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
	if len(records) == 0 {
		logrus.Infof("Hosts table %s is empty", store.Path())
		return nil
	}

	if details, _ := cmd.Flags().GetBool("details"); details {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "HOST\tFIRST SEEN\tLAST SEEN\tSEEN")
		for _, r := range records {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", r.Name, r.FirstSeen.Format(time.RFC3339), r.LastSeen.Format(time.RFC3339), r.Seen)
		}
		return w.Flush()
	}

	for _, r := range records {
		fmt.Println(r.Name)
	}
	return nil
}

func runHostsAdd(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	added := 0
	for _, h := range args {
		isNew, err := store.AddHost(context.Background(), h)
		if err != nil {
			logrus.Warnf("Skipping %s: %v", h, err)
			continue
		}
		if isNew {
			added++
		}
	}
	if err := store.Close(); err != nil {
		return err
	}
	logrus.Infof("%d new hosts added to %s", added, store.Path())
	return nil
}

func runHostsClear(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		fmt.Printf("Delete all %d hosts from %s? (y/N): ", store.Len(), store.Path())
		var resp string
		_, _ = fmt.Scanln(&resp)
		if resp != "y" && resp != "Y" {
			logrus.Info("Nothing deleted")
			return nil
		}
	}
	if err := store.Remove(); err != nil {
		return err
	}
	logrus.Infof("Hosts table %s cleared", store.Path())
	return nil
}
