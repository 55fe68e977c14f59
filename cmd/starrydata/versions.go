// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/starrydata/internal/catalog"
	"github.com/pdiddy/starrydata/pkg/types"
)

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List the dataset versions published on Figshare",
	Long: `Versions lists every article of the Starrydata Figshare project, newest
first. Use a listed date with --date on the other commands to pin a version.`,
	Args: cobra.NoArgs,
	RunE: runVersions,
}

func init() {
	versionsCmd.Flags().Bool("json", false, "output versions as JSON")

	rootCmd.AddCommand(versionsCmd)
}

func runVersions(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	client := catalog.NewClient(nil, cfg.Catalog, logger)

	versions, err := client.ListVersions(cmd.Context())
	if err != nil {
		return err
	}
	sortNewestFirst(versions)

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatVersions(cmd.OutOrStdout(), versions, jsonOutput)
}

func sortNewestFirst(versions []types.Version) {
	sort.SliceStable(versions, func(i, j int) bool {
		return versions[i].PublishedDate > versions[j].PublishedDate
	})
}

func formatVersions(w io.Writer, versions []types.Version, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(versions)
	}

	fmt.Fprintf(w, "%-10s  %-8s  %-20s  %s\n", "ID", "STAMP", "PUBLISHED", "TITLE")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, v := range versions {
		fmt.Fprintf(w, "%-10d  %-8s  %-20s  %s\n", v.ID, v.Stamp(), v.PublishedDate, v.Title)
	}
	fmt.Fprintf(w, "\n%d versions\n", len(versions))
	return nil
}
