package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

const (
	runBucket       = "runs"
	timeIndexBucket = "run_time_index"
)

// RunRecord is one recorded batch validation run.
type RunRecord struct {
	ID           string            `json:"id"`
	Timestamp    time.Time         `json:"timestamp"`
	TemplatesDir string            `json:"templates_dir"`
	Passed       int               `json:"passed"`
	Total        int               `json:"total"`
	Templates    map[string]string `json:"templates"` // template name -> overall status
}

// RunStore is a bbolt-backed history of validation runs.
type RunStore struct {
	db *bbolt.DB
}

// Open creates or opens the run history database at path.
func Open(path string) (*RunStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(runBucket)); err != nil {
			return fmt.Errorf("failed to create run bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(timeIndexBucket)); err != nil {
			return fmt.Errorf("failed to create time index bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &RunStore{db: db}, nil
}

func (s *RunStore) Close() error {
	return s.db.Close()
}

// AddRun records a run. Missing ID and timestamp are filled in.
func (s *RunStore) AddRun(rec *RunRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal run record: %w", err)
		}
		if err := tx.Bucket([]byte(runBucket)).Put([]byte(rec.ID), data); err != nil {
			return fmt.Errorf("failed to store run record: %w", err)
		}

		// Time index key sorts lexicographically by timestamp; the ID
		// suffix keeps same-instant runs distinct.
		key := rec.Timestamp.UTC().Format(time.RFC3339Nano) + "/" + rec.ID
		if err := tx.Bucket([]byte(timeIndexBucket)).Put([]byte(key), []byte(rec.ID)); err != nil {
			return fmt.Errorf("failed to update time index: %w", err)
		}
		return nil
	})
}

// GetRun retrieves a run record by ID.
func (s *RunStore) GetRun(id string) (*RunRecord, error) {
	var rec *RunRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(runBucket)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("run not found: %s", id)
		}
		rec = &RunRecord{}
		if err := json.Unmarshal(data, rec); err != nil {
			return fmt.Errorf("failed to unmarshal run record: %w", err)
		}
		return nil
	})

	return rec, err
}

// ListRuns returns up to limit runs, newest first. A non-positive
// limit returns all runs.
func (s *RunStore) ListRuns(limit int) ([]*RunRecord, error) {
	var records []*RunRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		runs := tx.Bucket([]byte(runBucket))
		index := tx.Bucket([]byte(timeIndexBucket))

		c := index.Cursor()
		for k, id := c.Last(); k != nil; k, id = c.Prev() {
			if limit > 0 && len(records) >= limit {
				break
			}
			data := runs.Get(id)
			if data == nil {
				continue
			}
			rec := &RunRecord{}
			if err := json.Unmarshal(data, rec); err != nil {
				return fmt.Errorf("failed to unmarshal run record: %w", err)
			}
			records = append(records, rec)
		}
		return nil
	})

	return records, err
}

// LatestRun returns the most recent run record.
func (s *RunStore) LatestRun() (*RunRecord, error) {
	records, err := s.ListRuns(1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no runs recorded")
	}
	return records[0], nil
}
