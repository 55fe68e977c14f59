// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/starrydata/pkg/starrydata"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download a dataset archive to disk",
	Long: `Fetch resolves a version, downloads its archive to <out>/<YYYYMMDD>.zip,
and writes the version metadata next to it as <archive>.yaml. Saved archives
can be read later with --zip without contacting Figshare.`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().String("date", "", "publication date of the version to fetch (YYYY-MM-DD); latest when empty")
	fetchCmd.Flags().String("out", ".", "directory to save the archive in")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	outDir, _ := cmd.Flags().GetString("out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	opts := datasetOptions(cmd, loadConfig())
	path, v, err := starrydata.Save(cmd.Context(), opts, outDir)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (article %d, published %s)\n", path, v.ID, v.PublishedDate)
	return nil
}
