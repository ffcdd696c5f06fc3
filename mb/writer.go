package mb

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/eak1mov/go-tilefetch/tile"
)

var ErrFinalized = errors.New("tilefetch: mbtiles writer already finalized")

const defaultBatchSize = 500

// Writer implements tile.Writer interface for MBTiles format.
//
// Tiles are upserted: writing a tile that is already present replaces its data.
// Writer is safe for concurrent use; writes are serialized.
type Writer struct {
	mu        sync.Mutex
	db        *sql.DB
	tx        *sql.Tx
	stmt      *sql.Stmt
	pending   int
	batchSize int
	logger    *slog.Logger
}

type writerConfig struct {
	Metadata  map[string]string
	Logger    *slog.Logger
	BatchSize int
}

type WriterOption func(*writerConfig)

func WithMetadata(metadata map[string]string) WriterOption {
	return func(c *writerConfig) { c.Metadata = metadata }
}

func WithLogger(logger *slog.Logger) WriterOption {
	return func(c *writerConfig) { c.Logger = logger }
}

// WithBatchSize sets the number of tiles written per transaction.
func WithBatchSize(batchSize int) WriterOption {
	return func(c *writerConfig) { c.BatchSize = batchSize }
}

// NewWriter creates a new Writer for writing to a MBTiles file.
// Any existing file at filePath is removed first.
// It applies given options and initializes database for writing tiles.
func NewWriter(filePath string, opts ...WriterOption) (*Writer, error) {
	config := writerConfig{
		Logger:    slog.New(slog.DiscardHandler),
		BatchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(&config)
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaultBatchSize
	}

	for _, p := range []string{filePath, filePath + "-journal"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("remove existing archive: %w", err)
		}
	}

	var err error
	db, err := sql.Open("sqlite3", filePath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE metadata (name TEXT, value TEXT);
		CREATE UNIQUE INDEX name ON metadata (name);
		CREATE TABLE tiles (
			zoom_level INTEGER,
			tile_column INTEGER,
			tile_row INTEGER,
			tile_data BLOB
		);
		CREATE UNIQUE INDEX tile_index ON tiles (zoom_level, tile_column, tile_row);
	`)
	if err != nil {
		return nil, err
	}

	for k, v := range config.Metadata {
		_, err = db.Exec("INSERT OR REPLACE INTO metadata (name, value) VALUES (?, ?)", k, v)
		if err != nil {
			return nil, err
		}
	}

	w := &Writer{db: db, batchSize: config.BatchSize, logger: config.Logger}
	if err = w.begin(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Writer) begin() error {
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare("INSERT OR REPLACE INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return err
	}
	w.tx, w.stmt, w.pending = tx, stmt, 0
	return nil
}

func (w *Writer) commit() error {
	w.logger.Debug("tilefetch: commit", "tiles", w.pending)
	err := errors.Join(w.stmt.Close(), w.tx.Commit())
	w.tx, w.stmt = nil, nil
	return err
}

// Close releases the database. Tiles written after the last Finalize
// or batch commit are discarded.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db == nil {
		return nil
	}
	var err error
	if w.tx != nil {
		err = errors.Join(w.stmt.Close(), w.tx.Rollback())
		w.tx, w.stmt = nil, nil
	}
	err = errors.Join(err, w.db.Close())
	w.db = nil
	return err
}

func (w *Writer) WriteTile(tileID tile.ID, tileData []byte) error {
	x, y, z := tileID.X, tileID.Y, tileID.Z
	y = tile.FlipY(z, y) // XYZ -> TMS

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.tx == nil {
		return ErrFinalized
	}
	if _, err := w.stmt.Exec(z, x, y, tileData); err != nil {
		return err
	}
	w.pending++

	if w.pending >= w.batchSize {
		if err := w.commit(); err != nil {
			return err
		}
		return w.begin()
	}
	return nil
}

// Finalize commits all pending tiles and closes the database.
func (w *Writer) Finalize() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.tx == nil {
		return ErrFinalized
	}
	err := w.commit()
	err = errors.Join(err, w.db.Close())
	w.db = nil

	w.logger.Debug("tilefetch: done!")
	return err
}
