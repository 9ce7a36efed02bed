package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hervehildenbrand/bgp-baseline/pkg/archive"
)

var (
	downloadFrom    string
	downloadTo      string
	downloadDir     string
	downloadBaseURL string
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download archived table dumps for a date range",
	RunE: func(cmd *cobra.Command, args []string) error {
		start, err := parseWhen(downloadFrom)
		if err != nil {
			return fmt.Errorf("invalid --from: %w", err)
		}
		end, err := parseWhen(downloadTo)
		if err != nil {
			return fmt.Errorf("invalid --to: %w", err)
		}
		if end.Before(start) {
			return fmt.Errorf("--to is before --from")
		}

		client := archive.NewClient(downloadBaseURL)
		_, err = client.Download(cmd.Context(), start, end, downloadDir)
		return err
	},
}

func parseWhen(value string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("expected YYYY-MM-DD or \"YYYY-MM-DD HH:MM\", got %q", value)
}

func init() {
	downloadCmd.Flags().StringVar(&downloadFrom, "from", "", "start of the range (YYYY-MM-DD or \"YYYY-MM-DD HH:MM\")")
	downloadCmd.Flags().StringVar(&downloadTo, "to", "", "end of the range (inclusive)")
	downloadCmd.Flags().StringVar(&downloadDir, "dir", "data/raw", "download directory")
	downloadCmd.Flags().StringVar(&downloadBaseURL, "base-url", "", "archive base URL (default: routeviews route-views3)")
	_ = downloadCmd.MarkFlagRequired("from")
	_ = downloadCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(downloadCmd)
}
