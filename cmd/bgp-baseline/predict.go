package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/hervehildenbrand/bgp-baseline/pkg/database"
	"github.com/hervehildenbrand/bgp-baseline/pkg/logging"
	"github.com/hervehildenbrand/bgp-baseline/pkg/machine"
	"github.com/hervehildenbrand/bgp-baseline/pkg/mrt"
)

var (
	predictModelPath string
	predictModelName string
	predictCSVOut    string
	predictJSONOut   string
	predictStore     bool
)

var predictCmd = &cobra.Command{
	Use:   "predict <snapshot>",
	Short: "Score a snapshot against a trained model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := loadModel()
		if err != nil {
			return err
		}

		resolver, stop := newResolver()
		defer stop()

		snapshot, err := mrt.LoadSnapshot(args[0], mrt.Options{Resolver: resolver})
		if err != nil {
			return err
		}

		report := m.Predict(snapshot)

		flagged := 0
		for _, prediction := range report.Predictions {
			if !prediction.NoData && prediction.Total > 0 {
				flagged++
			}
		}
		logging.L().Info("prediction summary",
			zap.Int("as_total", len(report.Predictions)),
			zap.Int("flagged", flagged))

		if predictCSVOut != "" {
			if err := report.WriteCSV(predictCSVOut); err != nil {
				return err
			}
		}
		if predictJSONOut != "" {
			if err := report.WriteJSON(predictJSONOut); err != nil {
				return err
			}
		}
		if predictStore {
			databaseURL := viper.GetString("database")
			if databaseURL == "" {
				return fmt.Errorf("--store requires a configured database URL")
			}
			writer, err := database.NewPredictionWriter(databaseURL)
			if err != nil {
				return err
			}
			writer.Start()
			writer.WriteReport(report)
			writer.Stop()
		}
		return nil
	},
}

func loadModel() (*machine.Machine, error) {
	if predictModelName != "" {
		modelStore, err := newModelStore()
		if err != nil {
			return nil, err
		}
		return modelStore.Load(context.Background(), predictModelName)
	}
	return machine.Load(predictModelPath)
}

func init() {
	predictCmd.Flags().StringVarP(&predictModelPath, "model", "m", "model.gob", "trained machine file")
	predictCmd.Flags().StringVar(&predictModelName, "name", "", "load the model by name from the model store")
	predictCmd.Flags().StringVar(&predictCSVOut, "csv", "", "write the prediction report to this CSV file")
	predictCmd.Flags().StringVar(&predictJSONOut, "json", "", "write the prediction report to this JSON file")
	predictCmd.Flags().BoolVar(&predictStore, "store", false, "persist predictions to PostgreSQL")
	rootCmd.AddCommand(predictCmd)
}
