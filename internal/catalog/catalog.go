package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	badger "github.com/dgraph-io/badger/v3"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrNotFound is returned when no record exists under the requested id.
var ErrNotFound = errors.New("record not found")

// Records are stored under this prefix, keyed by a zero-padded nanosecond
// timestamp so key order is recording order.
const keyPrefix = "rec/"

// Record describes one finished or aborted capture.
type Record struct {
	ID            string    `msgpack:"id" json:"id"`
	FileName      string    `msgpack:"file_name" json:"file_name"`
	Path          string    `msgpack:"path" json:"path"`
	SampleRate    int       `msgpack:"sample_rate" json:"sample_rate"`
	BitsPerSample int       `msgpack:"bits_per_sample" json:"bits_per_sample"`
	Channels      int       `msgpack:"channels" json:"channels"`
	Bytes         uint64    `msgpack:"bytes" json:"bytes"`
	Seconds       float64   `msgpack:"seconds" json:"seconds"`
	Completed     bool      `msgpack:"completed" json:"completed"`
	Strength      string    `msgpack:"strength,omitempty" json:"strength,omitempty"`
	AvgAmplitude  float64   `msgpack:"avg_amplitude,omitempty" json:"avg_amplitude,omitempty"`
	Peak          int32     `msgpack:"peak,omitempty" json:"peak,omitempty"`
	DominantHz    float64   `msgpack:"dominant_hz,omitempty" json:"dominant_hz,omitempty"`
	StartedAt     time.Time `msgpack:"started_at" json:"started_at"`
	FinishedAt    time.Time `msgpack:"finished_at" json:"finished_at"`
	Error         string    `msgpack:"error,omitempty" json:"error,omitempty"`
}

// NewID builds a catalog id from a wall clock reading. Ids sort
// lexicographically in time order.
func NewID(t time.Time) string {
	return fmt.Sprintf("%020d", t.UnixNano())
}

// Catalog is a handle to the recording index.
type Catalog struct {
	db     *badger.DB
	logger *slog.Logger
}

// Open opens or creates the index at path.
func Open(path string, logger *slog.Logger) (*Catalog, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog at %s: %w", path, err)
	}
	logger.Info("catalog opened", "path", path)
	return &Catalog{db: db, logger: logger}, nil
}

func key(id string) []byte {
	return []byte(keyPrefix + id)
}

// Put stores or replaces a record.
func (c *Catalog) Put(rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("record id cannot be empty")
	}
	value, err := msgpack.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record %s: %w", rec.ID, err)
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(rec.ID), value)
	})
	if err != nil {
		return fmt.Errorf("failed to store record %s: %w", rec.ID, err)
	}
	c.logger.Debug("catalog record stored", "id", rec.ID, "file", rec.FileName)
	return nil
}

// Get loads one record by id.
func (c *Catalog) Get(id string) (Record, error) {
	var rec Record
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return msgpack.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("failed to load record %s: %w", id, err)
	}
	return rec, nil
}

// List returns records newest first. A limit of zero returns everything.
func (c *Catalog) List(limit int) ([]Record, error) {
	var records []Record
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(keyPrefix)
		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(records) >= limit {
				break
			}
			var rec Record
			err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &rec)
			})
			if err != nil {
				return err
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return records, nil
}

// Delete removes a record. Deleting an unknown id is not an error.
func (c *Catalog) Delete(id string) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(id))
	})
	if err != nil {
		return fmt.Errorf("failed to delete record %s: %w", id, err)
	}
	return nil
}

// Close flushes and closes the store.
func (c *Catalog) Close() error {
	return c.db.Close()
}
