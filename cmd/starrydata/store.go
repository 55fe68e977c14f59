// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/starrydata/internal/store"
	"github.com/pdiddy/starrydata/pkg/starrydata"
	"github.com/pdiddy/starrydata/pkg/table"
	"github.com/pdiddy/starrydata/pkg/types"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Import a dataset version into a SQLite database",
	Long: `Store loads every table of a dataset version and replaces the samples,
papers, and curves tables of a local SQLite database with them. Each import
is recorded in the snapshots table; list them with "store snapshots".

Tables missing from the archive are skipped with a warning.`,
	Args: cobra.NoArgs,
	RunE: runStore,
}

var storeSnapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List the imports recorded in the database",
	Args:  cobra.NoArgs,
	RunE:  runStoreSnapshots,
}

func init() {
	addSourceFlags(storeCmd)
	storeCmd.PersistentFlags().String("db", "", "SQLite database path (default starrydata.db)")
	if err := viper.BindPFlag("store.db_path", storeCmd.PersistentFlags().Lookup("db")); err != nil {
		panic(err)
	}
	storeSnapshotsCmd.Flags().Bool("json", false, "output snapshots as JSON")

	storeCmd.AddCommand(storeSnapshotsCmd)
	rootCmd.AddCommand(storeCmd)
}

func runStore(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	ds, err := starrydata.Load(cmd.Context(), datasetOptions(cmd, cfg))
	if err != nil {
		return err
	}
	defer ds.Close()

	tables := make(map[types.Kind]*table.Table, len(types.Kinds))
	for _, kind := range types.Kinds {
		t, err := ds.Table(kind)
		if errors.Is(err, types.ErrMemberNotFound) {
			logger.Warn("skipping missing table", "kind", kind, "error", err)
			continue
		}
		if err != nil {
			return err
		}
		tables[kind] = t
	}
	if len(tables) == 0 {
		return fmt.Errorf("archive %s has no samples, papers, or curves table", ds.Source())
	}

	snap := store.Snapshot{Source: ds.Source()}
	if v := ds.Version(); v != nil {
		snap.ArticleID = v.ID
		snap.Title = v.Title
		snap.PublishedDate = v.PublishedDate
	}
	if ts, err := ds.Timestamp(); err == nil {
		snap.DBTimestamp = ts
	} else {
		logger.Warn("archive has no snapshot timestamp", "error", err)
	}

	s, err := store.NewStore(cfg.Store)
	if err != nil {
		return err
	}
	defer s.Close()

	snap, err = s.Import(cmd.Context(), snap, tables)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Imported into %s\n", s.Path())
	for _, kind := range types.Kinds {
		if n, ok := snap.Rows[string(kind)]; ok {
			fmt.Fprintf(w, "  %-8s %d rows\n", kind, n)
		}
	}
	return nil
}

func runStoreSnapshots(cmd *cobra.Command, args []string) error {
	s, err := store.NewStore(loadConfig().Store)
	if err != nil {
		return err
	}
	defer s.Close()

	snaps, err := s.Snapshots(cmd.Context())
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatSnapshots(cmd.OutOrStdout(), snaps, jsonOutput)
}

func formatSnapshots(w io.Writer, snaps []store.Snapshot, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snaps)
	}

	if len(snaps) == 0 {
		fmt.Fprintln(w, "No snapshots imported.")
		return nil
	}

	fmt.Fprintf(w, "%-20s  %-10s  %-20s  %-8s  %-8s  %s\n",
		"IMPORTED", "ARTICLE", "PUBLISHED", "SAMPLES", "PAPERS", "CURVES")
	fmt.Fprintln(w, strings.Repeat("-", 90))
	for _, snap := range snaps {
		fmt.Fprintf(w, "%-20s  %-10d  %-20s  %-8d  %-8d  %d\n",
			snap.ImportedAt.Format("2006-01-02 15:04:05"), snap.ArticleID, snap.PublishedDate,
			snap.Rows[string(types.KindSamples)], snap.Rows[string(types.KindPapers)],
			snap.Rows[string(types.KindCurves)])
	}
	return nil
}
