// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/webresearch/internal/runstore"
	"github.com/pdiddy/webresearch/pkg/types"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Browse persisted research runs (list, show, export)",
	Long: `Runs manages the local run database written by research --save.
Use subcommands to list stored runs, inspect one, or export it to YAML.`,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored research runs, most recent first",
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show one stored run with its ranked sources",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

var runsExportCmd = &cobra.Command{
	Use:   "export [run-id]",
	Short: "Export a stored run to a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsExport,
}

func openStore(cmd *cobra.Command) (*runstore.Store, error) {
	return runstore.NewStore(types.StoreConfig{
		Dir: stringSetting(cmd, "store-dir", "store.dir", "research"),
	})
}

func runRunsList(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(context.Background())
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No stored runs.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-24s  %-19s  %-7s  %s\n", "ID", "Created", "Results", "Topic")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 90))
	for _, r := range runs {
		fmt.Fprintf(os.Stdout, "%-24s  %-19s  %-7d  %s\n",
			r.ID, r.Created.Format("2006-01-02 15:04:05"), r.Results, r.Topic)
	}
	return nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.GetRun(context.Background(), args[0])
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	}

	fmt.Printf("Run %s\nTopic:   %s\nCreated: %s\n\n",
		run.ID, run.Topic, run.Created.Format("2006-01-02 15:04:05"))
	printResults(run.Output)
	return nil
}

func runRunsExport(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	path, err := store.ExportYAML(context.Background(), args[0])
	if err != nil {
		return err
	}
	fmt.Println("Exported to", path)
	return nil
}

func init() {
	runsCmd.PersistentFlags().String("store-dir", "", "base directory for the run store (default research)")
	runsShowCmd.Flags().Bool("json", false, "output the run as JSON")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsExportCmd)

	rootCmd.AddCommand(runsCmd)
}
