// Package location provides AS-to-country resolution with multiple backend
// options.
package location

import (
	"bufio"
	"database/sql"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hervehildenbrand/bgp-baseline/pkg/logging"
)

const (
	refreshInterval = 15 * time.Minute // Refresh database-backed mappings
)

// Resolver provides AS-to-country lookups. AS identifiers are canonical
// decimal strings, matching profile IDs.
type Resolver interface {
	// Resolve returns the two-letter country code for an AS, or "" if unknown.
	Resolve(asID string) string
	// Count returns the number of ASes in the mapping.
	Count() int
	// Start begins any background refresh operations.
	Start()
	// Stop stops any background operations.
	Stop()
}

// NullResolver knows no ASes. Use it when no delegation data is available;
// the parser falls back to "ZZ" for every AS.
type NullResolver struct{}

// NewNullResolver creates a new null resolver.
func NewNullResolver() *NullResolver {
	return &NullResolver{}
}

func (r *NullResolver) Resolve(string) string { return "" }
func (r *NullResolver) Count() int            { return 0 }
func (r *NullResolver) Start()                {}
func (r *NullResolver) Stop()                 {}

// FileResolver loads AS-to-country mappings from a CSV file.
// Expected format: asn,country_code (e.g., "13335,US")
type FileResolver struct {
	filePath string
	mapping  map[string]string
	mu       sync.RWMutex
}

// NewFileResolver creates a resolver that loads mappings from a CSV file.
func NewFileResolver(filePath string) (*FileResolver, error) {
	r := &FileResolver{
		filePath: filePath,
		mapping:  make(map[string]string),
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *FileResolver) load() error {
	file, err := os.Open(r.filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	reader := csv.NewReader(bufio.NewReader(file))
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if len(record) < 2 {
			continue
		}
		// Non-numeric first column covers the header row
		asn, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil {
			continue
		}
		country := strings.ToUpper(strings.TrimSpace(record[1]))
		if len(country) == 2 {
			r.mapping[strconv.Itoa(asn)] = country
		}
	}

	logging.L().Info("loaded ASN mappings from CSV",
		zap.String("path", r.filePath), zap.Int("count", len(r.mapping)))
	return nil
}

func (r *FileResolver) Resolve(asID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mapping[asID]
}

func (r *FileResolver) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.mapping)
}

func (r *FileResolver) Start() {}
func (r *FileResolver) Stop()  {}

// DelegationResolver loads AS-to-country mappings from a directory of RIR
// delegation files (delegated or delegated-extended format). Relevant lines
// look like:
//
//	ripencc|NL|asn|64496|3|20070214|allocated
//
// where the count field covers that many consecutive AS numbers.
type DelegationResolver struct {
	dir     string
	mapping map[string]string
	mu      sync.RWMutex
}

// NewDelegationResolver creates a resolver from every *.txt file under dir.
func NewDelegationResolver(dir string) (*DelegationResolver, error) {
	r := &DelegationResolver{
		dir:     dir,
		mapping: make(map[string]string),
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *DelegationResolver) load() error {
	paths, err := filepath.Glob(filepath.Join(r.dir, "*.txt"))
	if err != nil {
		return err
	}
	for _, path := range paths {
		if err := r.loadFile(path); err != nil {
			return err
		}
	}

	logging.L().Info("loaded ASN mappings from delegation files",
		zap.String("dir", r.dir), zap.Int("files", len(paths)), zap.Int("count", len(r.mapping)))
	return nil
}

func (r *DelegationResolver) loadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		r.addRecord(scanner.Text())
	}
	return scanner.Err()
}

func (r *DelegationResolver) addRecord(line string) {
	parts := strings.Split(strings.TrimSpace(line), "|")
	if len(parts) < 4 || parts[2] != "asn" {
		return
	}
	country := strings.ToUpper(strings.TrimSpace(parts[1]))
	if len(country) != 2 {
		return
	}
	first, err := strconv.Atoi(parts[3])
	if err != nil {
		return
	}
	count := 1
	if len(parts) >= 5 {
		if n, err := strconv.Atoi(parts[4]); err == nil && n > 0 {
			count = n
		}
	}
	for i := 0; i < count; i++ {
		r.mapping[strconv.Itoa(first+i)] = country
	}
}

func (r *DelegationResolver) Resolve(asID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mapping[asID]
}

func (r *DelegationResolver) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.mapping)
}

func (r *DelegationResolver) Start() {}
func (r *DelegationResolver) Stop()  {}

// DatabaseResolver loads AS-to-country mappings from a database table.
// Uses a simple schema: SELECT asn, country_code FROM asn_countries
type DatabaseResolver struct {
	db         *sql.DB
	tableName  string
	mapping    map[string]string
	mu         sync.RWMutex
	done       chan struct{}
	wg         sync.WaitGroup
	lastUpdate time.Time
}

// NewDatabaseResolver creates a resolver that loads mappings from a database.
// tableName defaults to "asn_countries" if empty.
func NewDatabaseResolver(db *sql.DB, tableName string) *DatabaseResolver {
	if tableName == "" {
		tableName = "asn_countries"
	}
	return &DatabaseResolver{
		db:        db,
		tableName: tableName,
		mapping:   make(map[string]string),
		done:      make(chan struct{}),
	}
}

// Start loads the mapping and begins periodic refresh.
func (r *DatabaseResolver) Start() {
	r.refresh()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.refresh()
			case <-r.done:
				return
			}
		}
	}()
}

// Stop stops the resolver.
func (r *DatabaseResolver) Stop() {
	close(r.done)
	r.wg.Wait()
}

// Resolve returns the country code for an AS, or "" if unknown.
func (r *DatabaseResolver) Resolve(asID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mapping[asID]
}

// Count returns the number of ASes in the mapping.
func (r *DatabaseResolver) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.mapping)
}

// refresh loads the AS-to-country mapping from the database.
func (r *DatabaseResolver) refresh() {
	start := time.Now()

	query := "SELECT asn, country_code FROM " + r.tableName + " WHERE country_code IS NOT NULL AND country_code != ''"
	rows, err := r.db.Query(query)
	if err != nil {
		logging.L().Warn("ASN mapping query failed",
			zap.String("table", r.tableName), zap.Error(err))
		return
	}
	defer rows.Close()

	newMapping := make(map[string]string)
	for rows.Next() {
		var asn int
		var country string
		if err := rows.Scan(&asn, &country); err != nil {
			continue
		}
		newMapping[strconv.Itoa(asn)] = country
	}
	if err := rows.Err(); err != nil {
		logging.L().Warn("ASN mapping row iteration failed", zap.Error(err))
		return
	}

	r.mu.Lock()
	r.mapping = newMapping
	r.lastUpdate = time.Now()
	r.mu.Unlock()

	logging.L().Info("refreshed ASN mappings from database",
		zap.Int("count", len(newMapping)), zap.Duration("elapsed", time.Since(start)))
}
