// bgp-baseline - batch BGP table-dump profiler and anomaly scorer.
//
// It parses archived MRT table dumps (routeviews-style rib.<date>.<time>.bz2
// files, or previously exported .json/.csv snapshots) into per-AS profiles,
// trains per-AS statistical baselines across snapshot history, and scores new
// snapshots against the learned baselines.
//
// Usage:
//
//	bgp-baseline download --from 2024-01-01 --to 2024-01-31 --dir data/raw
//	bgp-baseline parse data/raw/rib.20240101.0000.bz2 --json --csv --out data/parsed
//	bgp-baseline train data/parsed/*.json -o model/one_month.gob
//	bgp-baseline predict data/parsed/rib.20240201.0000.json -m model/one_month.gob --csv predictions.csv
//
// Environment variables use the BGP_BASELINE_ prefix (e.g.
// BGP_BASELINE_DATABASE, BGP_BASELINE_REDIS, BGP_BASELINE_ASN_DATA).
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hervehildenbrand/bgp-baseline/pkg/logging"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "bgp-baseline",
	Short:         "Profile BGP table dumps and flag per-AS statistical anomalies",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initConfig(); err != nil {
			return err
		}
		logging.Init(logging.Config{
			Level:      viper.GetString("log.level"),
			Format:     viper.GetString("log.format"),
			File:       viper.GetString("log.file"),
			MaxSizeMB:  viper.GetInt("log.max_size_mb"),
			MaxBackups: viper.GetInt("log.max_backups"),
			MaxAgeDays: viper.GetInt("log.max_age_days"),
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./bgp-baseline.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().String("log-file", "", "optional rotating JSON log file")

	rootCmd.PersistentFlags().String("asn-data", "", "path to ASN-country CSV file (format: asn,country_code)")
	rootCmd.PersistentFlags().String("delegated-dir", "", "directory of RIR delegation files for ASN-country lookup")
	rootCmd.PersistentFlags().String("database", "", "PostgreSQL URL (optional)")
	rootCmd.PersistentFlags().String("redis", "", "Redis URL (optional, e.g., redis://localhost:6379)")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("log.file", rootCmd.PersistentFlags().Lookup("log-file"))
	_ = viper.BindPFlag("asn_data", rootCmd.PersistentFlags().Lookup("asn-data"))
	_ = viper.BindPFlag("delegated_dir", rootCmd.PersistentFlags().Lookup("delegated-dir"))
	_ = viper.BindPFlag("database", rootCmd.PersistentFlags().Lookup("database"))
	_ = viper.BindPFlag("redis", rootCmd.PersistentFlags().Lookup("redis"))
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("bgp-baseline")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("BGP_BASELINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("read config file: %w", err)
		}
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
