// Package storage provides persistent storage for the risk predictor's
// training history. It uses BoltDB as the underlying storage engine to
// record training runs and the global feature importance computed for
// each model version.
//
// The package provides thread-safe operations with efficient time-range
// queries and automatic bucket management.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"mindrisk/internal/explain"
	"mindrisk/internal/train"

	"go.etcd.io/bbolt"
)

const (
	runsBucket       = "runs"       // Bucket name for training run records
	importanceBucket = "importance" // Bucket name for per-version feature importance
)

// RunRecord summarizes one completed training run.
type RunRecord struct {
	RunID        string        `json:"runId"`
	ModelVersion string        `json:"modelVersion"`
	Kind         string        `json:"kind"`
	StartedAt    time.Time     `json:"startedAt"`
	Duration     time.Duration `json:"duration"`
	Seed         int64         `json:"seed"`
	TrainRows    int           `json:"trainRows"`
	TestRows     int           `json:"testRows"`
	Metrics      train.Metrics `json:"metrics"`
}

// Store provides persistent storage for training history using BoltDB.
type Store struct {
	db *bbolt.DB // BoltDB database instance
}

// New creates a new storage instance with the specified data path.
// It initializes the BoltDB database and creates necessary buckets.
// Returns an error if the database cannot be opened or buckets cannot be created.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, "mindrisk-runs.db")

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(runsBucket)); err != nil {
			return fmt.Errorf("create runs bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(importanceBucket)); err != nil {
			return fmt.Errorf("create importance bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection gracefully.
// It should be called when the storage is no longer needed to ensure
// proper cleanup of database resources.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// StoreRun records a completed training run in the runs bucket.
// The record is stored with a key format of "timestamp_runID" so runs
// remain ordered by start time for range queries.
func (s *Store) StoreRun(rec RunRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(runsBucket))

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal run: %w", err)
		}

		key := fmt.Sprintf("%020d_%s", rec.StartedAt.UnixNano(), rec.RunID)
		return b.Put([]byte(key), data)
	})
}

// RunsInRange retrieves training runs started within a time range.
// Returns records ordered by start time, or an error if the query fails.
// The time range is inclusive of both start and end times.
func (s *Store) RunsInRange(start, end time.Time) ([]RunRecord, error) {
	var runs []RunRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(runsBucket))
		c := b.Cursor()

		startKey := []byte(fmt.Sprintf("%020d", start.UnixNano()))
		endKey := []byte(fmt.Sprintf("%020d_\xff", end.UnixNano()))

		for k, v := c.Seek(startKey); k != nil && bytes.Compare(k, endKey) <= 0; k, v = c.Next() {
			var rec RunRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				continue // Skip malformed records
			}
			runs = append(runs, rec)
		}

		return nil
	})

	return runs, err
}

// ListRuns retrieves every recorded training run ordered by start time.
func (s *Store) ListRuns() ([]RunRecord, error) {
	var runs []RunRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(runsBucket))
		return b.ForEach(func(_, v []byte) error {
			var rec RunRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return nil // Skip malformed records
			}
			runs = append(runs, rec)
			return nil
		})
	})

	return runs, err
}

// StoreImportance stores the global feature importance ranking computed
// for a model version.
func (s *Store) StoreImportance(version string, ranking []explain.FeatureImportance) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(importanceBucket))

		data, err := json.Marshal(ranking)
		if err != nil {
			return fmt.Errorf("marshal importance: %w", err)
		}

		return b.Put([]byte(version), data)
	})
}

// GetImportance retrieves the stored feature importance ranking for a
// model version. Returns nil when no ranking was recorded.
func (s *Store) GetImportance(version string) ([]explain.FeatureImportance, error) {
	var ranking []explain.FeatureImportance

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(importanceBucket))
		data := b.Get([]byte(version))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &ranking)
	})

	return ranking, err
}
