// Package archive fetches periodic routing-table dumps from a routeviews-style
// HTTP archive.
package archive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/hervehildenbrand/bgp-baseline/pkg/logging"
)

const (
	// DefaultBaseURL is the routeviews collector archive.
	DefaultBaseURL = "https://archive.routeviews.org/route-views3/bgpdata"

	// snapshotInterval is the archive's dump cadence.
	snapshotInterval = 2 * time.Hour

	downloadTimeout = 10 * time.Minute
)

// Client downloads archived table dumps.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the given archive root; an empty baseURL
// selects the routeviews default.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: downloadTimeout},
	}
}

// AlignDown snaps a time to the archive's grid: minutes and seconds zeroed,
// odd hours rounded down to the previous even hour.
func AlignDown(t time.Time) time.Time {
	t = t.Truncate(time.Hour)
	if t.Hour()%2 != 0 {
		t = t.Add(-time.Hour)
	}
	return t
}

// DumpURL returns the archive URL of the dump taken at t.
func (c *Client) DumpURL(t time.Time) string {
	return fmt.Sprintf("%s/%s/RIBS/rib.%s.bz2",
		c.baseURL, t.Format("2006.01"), t.Format("20060102.1504"))
}

// DumpFileName returns the local file name of the dump taken at t.
func DumpFileName(t time.Time) string {
	return "rib." + t.Format("20060102.1504") + ".bz2"
}

// Result summarizes one download run.
type Result struct {
	Files      int
	TotalBytes int64
	Dir        string
}

// Download fetches every dump between start and end (inclusive, aligned to
// the archive grid) into destDir. Missing archive files are logged and
// skipped; transport errors abort the run.
func (c *Client) Download(ctx context.Context, start, end time.Time, destDir string) (*Result, error) {
	start = AlignDown(start)
	end = AlignDown(end)

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("create download directory: %w", err)
	}

	logging.L().Info("downloading table dumps",
		zap.Time("from", start), zap.Time("to", end), zap.String("dir", destDir))

	result := &Result{Dir: destDir}
	for current := start; !current.After(end); current = current.Add(snapshotInterval) {
		size, err := c.fetch(ctx, current, destDir)
		if err != nil {
			return result, err
		}
		if size < 0 {
			continue // not in the archive
		}
		result.Files++
		result.TotalBytes += size
	}

	logging.L().Info("download finished",
		zap.Int("files", result.Files),
		zap.Float64("total_gb", float64(result.TotalBytes)/(1<<30)),
		zap.String("dir", destDir))
	return result, nil
}

// fetch downloads a single dump. It returns -1 bytes when the archive has no
// file for that time.
func (c *Client) fetch(ctx context.Context, t time.Time, destDir string) (int64, error) {
	url := c.DumpURL(t)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request for %s: %w", url, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logging.L().Warn("dump not found in archive",
			zap.String("url", url), zap.Int("status", resp.StatusCode))
		return -1, nil
	}

	path := filepath.Join(destDir, DumpFileName(t))
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	size, err := io.Copy(file, resp.Body)
	if err != nil {
		return 0, fmt.Errorf("write %s: %w", path, err)
	}

	logging.L().Info("downloaded dump", zap.String("file", filepath.Base(path)),
		zap.Int64("bytes", size))
	return size, nil
}
