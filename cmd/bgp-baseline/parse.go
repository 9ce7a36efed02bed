package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hervehildenbrand/bgp-baseline/pkg/logging"
	"github.com/hervehildenbrand/bgp-baseline/pkg/mrt"
)

var (
	parseOutDir string
	parseJSON   bool
	parseCSV    bool
	parseLimit  int
)

var parseCmd = &cobra.Command{
	Use:   "parse <dump-file>",
	Short: "Parse a table dump into per-AS profiles and export them",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !parseJSON && !parseCSV {
			return fmt.Errorf("nothing to do: enable --json and/or --csv")
		}

		resolver, stop := newResolver()
		defer stop()

		snapshot, err := mrt.LoadSnapshot(args[0], mrt.Options{
			Resolver:     resolver,
			MessageLimit: parseLimit,
		})
		if err != nil {
			return err
		}
		logging.L().Info("snapshot parsed",
			zap.String("snapshot", snapshot.String()),
			zap.Int("as_total", len(snapshot.ASMap)))

		if parseJSON {
			if _, err := snapshot.ExportJSON(parseOutDir); err != nil {
				return err
			}
		}
		if parseCSV {
			if _, err := snapshot.ExportCSV(parseOutDir); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	parseCmd.Flags().StringVarP(&parseOutDir, "out", "o", "data/parsed", "export directory")
	parseCmd.Flags().BoolVar(&parseJSON, "json", true, "export the snapshot as JSON")
	parseCmd.Flags().BoolVar(&parseCSV, "csv", false, "export the snapshot as CSV")
	parseCmd.Flags().IntVar(&parseLimit, "limit", 0, "stop after N MRT records (0 = no limit)")
	rootCmd.AddCommand(parseCmd)
}
