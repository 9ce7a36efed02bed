// Package database provides PostgreSQL prediction writing with batch support.
package database

import (
	"database/sql"
	"sync"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/hervehildenbrand/bgp-baseline/pkg/logging"
	"github.com/hervehildenbrand/bgp-baseline/pkg/machine"
)

const (
	batchSize     = 50
	batchInterval = 2 * time.Second
	queueSize     = 10000
)

// Row is one per-AS, per-property prediction destined for the predictions
// table.
type Row struct {
	SnapshotTime time.Time
	ASID         string
	Property     string
	WarningLevel int
	Behaviour    int
}

// PredictionWriter handles batch writing of prediction rows to PostgreSQL.
type PredictionWriter struct {
	db      *sql.DB
	queue   chan Row
	done    chan struct{}
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex

	// Stats
	rowsWritten    uint64
	rowsDropped    uint64
	batchesWritten uint64
}

// NewPredictionWriter connects to PostgreSQL and prepares a batch writer.
func NewPredictionWriter(databaseURL string) (*PredictionWriter, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	logging.L().Info("connected to PostgreSQL")

	return &PredictionWriter{
		db:    db,
		queue: make(chan Row, queueSize),
		done:  make(chan struct{}),
	}, nil
}

// Start begins the background writer goroutine.
func (w *PredictionWriter) Start() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	w.wg.Add(1)
	go w.writerLoop()
	logging.L().Info("prediction writer started")
}

// Stop gracefully shuts down the writer, flushing remaining rows.
func (w *PredictionWriter) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.done)
	w.wg.Wait()
	w.db.Close()

	w.mu.Lock()
	written, dropped, batches := w.rowsWritten, w.rowsDropped, w.batchesWritten
	w.mu.Unlock()
	logging.L().Info("prediction writer stopped",
		zap.Uint64("written", written),
		zap.Uint64("dropped", dropped),
		zap.Uint64("batches", batches))
}

// WriteReport queues every scored property of a report. ASes without training
// history carry no signal and are skipped.
func (w *PredictionWriter) WriteReport(report *machine.Report) {
	for id, prediction := range report.Predictions {
		if prediction.NoData {
			continue
		}
		for property, p := range prediction.Properties {
			w.Write(Row{
				SnapshotTime: report.SnapshotTime,
				ASID:         id,
				Property:     property,
				WarningLevel: p.WarningLevel,
				Behaviour:    p.Behaviour,
			})
		}
	}
}

// Write queues a single row for batch writing. Rows arriving before Start or
// after Stop are counted as dropped; the queue is closed during shutdown.
func (w *PredictionWriter) Write(row Row) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		w.rowsDropped++
		return
	}

	select {
	case w.queue <- row:
	default:
		// Queue full, drop row
		w.rowsDropped++
		if w.rowsDropped%1000 == 0 {
			logging.L().Warn("prediction queue full",
				zap.Uint64("dropped", w.rowsDropped))
		}
	}
}

// Stats returns writer statistics.
func (w *PredictionWriter) Stats() map[string]interface{} {
	w.mu.Lock()
	defer w.mu.Unlock()

	return map[string]interface{}{
		"rows_written":    w.rowsWritten,
		"rows_dropped":    w.rowsDropped,
		"batches_written": w.batchesWritten,
		"queue_len":       len(w.queue),
		"queue_cap":       cap(w.queue),
	}
}

func (w *PredictionWriter) writerLoop() {
	defer w.wg.Done()

	batch := make([]Row, 0, batchSize)
	ticker := time.NewTicker(batchInterval)
	defer ticker.Stop()

	for {
		select {
		case row := <-w.queue:
			batch = append(batch, row)
			if len(batch) >= batchSize {
				w.writeBatch(batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				w.writeBatch(batch)
				batch = batch[:0]
			}

		case <-w.done:
			// Flush remaining rows
			close(w.queue)
			for row := range w.queue {
				batch = append(batch, row)
				if len(batch) >= batchSize {
					w.writeBatch(batch)
					batch = batch[:0]
				}
			}
			if len(batch) > 0 {
				w.writeBatch(batch)
			}
			return
		}
	}
}

func (w *PredictionWriter) writeBatch(batch []Row) {
	if len(batch) == 0 {
		return
	}

	tx, err := w.db.Begin()
	if err != nil {
		logging.L().Error("failed to begin transaction", zap.Error(err))
		return
	}
	defer tx.Rollback()

	written := 0
	for _, row := range batch {
		if w.writeRow(tx, row) {
			written++
		}
	}

	if err := tx.Commit(); err != nil {
		logging.L().Error("failed to commit batch", zap.Error(err))
		return
	}

	w.mu.Lock()
	w.rowsWritten += uint64(written)
	w.batchesWritten++
	w.mu.Unlock()
}

func (w *PredictionWriter) writeRow(tx *sql.Tx, row Row) bool {
	_, err := tx.Exec(`
		INSERT INTO predictions (
			snapshot_time, as_id, property, warning_level, behaviour, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`,
		row.SnapshotTime,
		row.ASID,
		row.Property,
		row.WarningLevel,
		row.Behaviour,
		time.Now(),
	)
	if err != nil {
		logging.L().Error("failed to insert prediction", zap.Error(err))
		return false
	}
	return true
}
