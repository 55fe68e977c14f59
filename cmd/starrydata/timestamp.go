// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/starrydata/pkg/starrydata"
)

var timestampCmd = &cobra.Command{
	Use:   "timestamp",
	Short: "Print the snapshot timestamp of a dataset version",
	Long: `Timestamp prints the content of db_snapshot.txt, the time the Starrydata
database was exported into the archive.`,
	Args: cobra.NoArgs,
	RunE: runTimestamp,
}

func init() {
	addSourceFlags(timestampCmd)

	rootCmd.AddCommand(timestampCmd)
}

func runTimestamp(cmd *cobra.Command, args []string) error {
	ds, err := starrydata.Load(cmd.Context(), datasetOptions(cmd, loadConfig()))
	if err != nil {
		return err
	}
	defer ds.Close()

	ts, err := ds.Timestamp()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), ts)
	return nil
}
