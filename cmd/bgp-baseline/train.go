package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/hervehildenbrand/bgp-baseline/pkg/logging"
	"github.com/hervehildenbrand/bgp-baseline/pkg/machine"
	"github.com/hervehildenbrand/bgp-baseline/pkg/mrt"
	"github.com/hervehildenbrand/bgp-baseline/pkg/store"
)

var (
	trainOutput    string
	trainModelName string
)

var trainCmd = &cobra.Command{
	Use:   "train <parsed-snapshot>...",
	Short: "Train per-AS baselines from parsed snapshots",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver, stop := newResolver()
		defer stop()

		snapshots := make([]*mrt.Snapshot, 0, len(args))
		for _, path := range args {
			snapshot, err := mrt.LoadSnapshot(path, mrt.Options{Resolver: resolver})
			if err != nil {
				return fmt.Errorf("load %s: %w", path, err)
			}
			snapshots = append(snapshots, snapshot)
		}

		m := machine.New(machine.DefaultConfig())
		m.Train(snapshots)

		if trainModelName != "" {
			modelStore, err := newModelStore()
			if err != nil {
				return err
			}
			if err := modelStore.Save(context.Background(), trainModelName, m); err != nil {
				return err
			}
			logging.L().Info("model stored", zap.String("name", trainModelName))
			return nil
		}
		return m.Save(trainOutput)
	},
}

// newModelStore picks Redis when configured, a local directory otherwise.
func newModelStore() (store.ModelStore, error) {
	if redisURL := viper.GetString("redis"); redisURL != "" {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid Redis URL: %w", err)
		}
		client := redis.NewClient(opt)
		if err := client.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("redis connection failed: %w", err)
		}
		return store.NewRedisStore(client), nil
	}
	return store.NewFileStore(viper.GetString("model_dir"))
}

func init() {
	trainCmd.Flags().StringVarP(&trainOutput, "output", "o", "model.gob", "trained machine output file")
	trainCmd.Flags().StringVar(&trainModelName, "name", "", "store the model under this name instead of writing --output")
	viper.SetDefault("model_dir", "model")
	rootCmd.AddCommand(trainCmd)
}
