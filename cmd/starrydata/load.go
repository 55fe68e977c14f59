// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/starrydata/pkg/starrydata"
	"github.com/pdiddy/starrydata/pkg/table"
	"github.com/pdiddy/starrydata/pkg/types"
)

var loadCmd = &cobra.Command{
	Use:   "load KIND",
	Short: "Print one table of a dataset version",
	Long: `Load downloads a dataset version (or opens --zip) and prints one of its
tables: samples, papers, or curves. Use --head to limit the rows and
--format to choose the output encoding.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(types.KindSamples), string(types.KindPapers), string(types.KindCurves)},
	RunE:      runLoad,
}

func init() {
	addSourceFlags(loadCmd)
	loadCmd.Flags().Int("head", 0, "print only the first N rows (0 prints all)")
	loadCmd.Flags().String("format", "table", "output format: table, csv, json, yaml")

	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	kind, err := types.ParseKind(args[0])
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	write, err := tableWriter(format)
	if err != nil {
		return err
	}
	head, _ := cmd.Flags().GetInt("head")

	t, err := starrydata.LoadTable(cmd.Context(), datasetOptions(cmd, loadConfig()), kind)
	if err != nil {
		return err
	}
	if head > 0 {
		t = t.Head(head)
	}
	return write(cmd.OutOrStdout(), t)
}

func tableWriter(format string) (func(io.Writer, *table.Table) error, error) {
	switch strings.ToLower(format) {
	case "table", "text":
		return table.WriteText, nil
	case "csv":
		return table.WriteCSV, nil
	case "json":
		return table.WriteJSON, nil
	case "yaml":
		return table.WriteYAML, nil
	default:
		return nil, fmt.Errorf("unsupported format %q: use table, csv, json, or yaml", format)
	}
}
