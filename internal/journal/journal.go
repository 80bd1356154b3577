// Package journal keeps a history of start/stop runs on disk.
//
// Every finished batch becomes one RunRecord in a bbolt bucket, keyed by
// insertion order. An in-memory btree keeps the last recorded outcome per
// resource and is rebuilt from the runs bucket when the journal is opened.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/btree"
	"go.etcd.io/bbolt"

	"github.com/yairfalse/snooze/pkg/lifecycle"
)

// Bucket names in bbolt
var (
	bucketRuns = []byte("runs")
	bucketMeta = []byte("meta")
)

var keySchemaVersion = []byte("schema_version")

const schemaVersion = "1"

// RunRecord is one finished batch.
type RunRecord struct {
	Seq        uint64                `json:"seq" yaml:"seq"`
	ID         string                `json:"id" yaml:"id"`
	Provider   string                `json:"provider" yaml:"provider"`
	Region     string                `json:"region" yaml:"region"`
	Account    string                `json:"account,omitempty" yaml:"account,omitempty"`
	Kind       lifecycle.Kind        `json:"kind" yaml:"kind"`
	Action     string                `json:"action" yaml:"action"`
	DryRun     bool                  `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
	Filters    []lifecycle.TagFilter `json:"filters" yaml:"filters"`
	StartedAt  time.Time             `json:"started_at" yaml:"started_at"`
	Duration   time.Duration         `json:"duration" yaml:"duration"`
	Discovered int                   `json:"discovered" yaml:"discovered"`
	Succeeded  int                   `json:"succeeded" yaml:"succeeded"`
	Failed     int                   `json:"failed" yaml:"failed"`
	Error      string                `json:"error,omitempty" yaml:"error,omitempty"`
	Outcomes   []OutcomeRecord       `json:"outcomes,omitempty" yaml:"outcomes,omitempty"`
}

// OutcomeRecord is the stored form of one resource's outcome.
type OutcomeRecord struct {
	Resource  string `json:"resource" yaml:"resource"`
	ARN       string `json:"arn,omitempty" yaml:"arn,omitempty"`
	ErrorKind string `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

// ResourceState is the last outcome recorded for one resource.
type ResourceState struct {
	Region     string         `json:"region" yaml:"region"`
	Kind       lifecycle.Kind `json:"kind" yaml:"kind"`
	Resource   string         `json:"resource" yaml:"resource"`
	LastAction string         `json:"last_action" yaml:"last_action"`
	LastRunID  string         `json:"last_run_id" yaml:"last_run_id"`
	At         time.Time      `json:"at" yaml:"at"`
	ErrorKind  string         `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
}

// OK reports whether the last action succeeded.
func (s *ResourceState) OK() bool {
	return s.ErrorKind == ""
}

func lessState(a, b *ResourceState) bool {
	if a.Region != b.Region {
		return a.Region < b.Region
	}
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	return a.Resource < b.Resource
}

// Journal is a bbolt-backed run history.
type Journal struct {
	mu sync.RWMutex

	// In-memory index of the last outcome per resource
	index *btree.BTreeG[*ResourceState]

	// On-disk storage
	db   *bbolt.DB
	path string
}

// Open opens or creates the journal file at path.
func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{bucketRuns, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return tx.Bucket(bucketMeta).Put(keySchemaVersion, []byte(schemaVersion))
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init journal: %w", err)
	}

	j := &Journal{
		index: btree.NewG[*ResourceState](32, lessState),
		db:    db,
		path:  path,
	}

	if err := j.rebuildIndex(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return j, nil
}

// Close closes the journal
func (j *Journal) Close() error {
	return j.db.Close()
}

// Path returns the journal file path.
func (j *Journal) Path() string {
	return j.path
}

// Record appends a run and returns its sequence number.
func (j *Journal) Record(rec *RunRecord) (uint64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	err := j.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketRuns)

		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		rec.Seq = seq

		value, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return bucket.Put(makeRunKey(seq), value)
	})
	if err != nil {
		return 0, fmt.Errorf("record run: %w", err)
	}

	j.updateIndex(rec)

	return rec.Seq, nil
}

// List returns up to limit runs, newest first. A limit <= 0 returns every run.
func (j *Journal) List(limit int) ([]RunRecord, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var runs []RunRecord
	err := j.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketRuns).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(runs) >= limit {
				break
			}
			var rec RunRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode run %s: %w", k, err)
			}
			runs = append(runs, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// Status returns the last outcome for every resource, ordered by region,
// kind and resource.
func (j *Journal) Status() []ResourceState {
	j.mu.RLock()
	defer j.mu.RUnlock()

	states := make([]ResourceState, 0, j.index.Len())
	j.index.Ascend(func(s *ResourceState) bool {
		states = append(states, *s)
		return true
	})
	return states
}

// Get returns the last outcome recorded for one resource.
func (j *Journal) Get(region string, kind lifecycle.Kind, resource string) (ResourceState, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	s, ok := j.index.Get(&ResourceState{Region: region, Kind: kind, Resource: resource})
	if !ok {
		return ResourceState{}, false
	}
	return *s, true
}

// Helper functions

// updateIndex folds a run into the index. Dry runs changed nothing and are skipped.
func (j *Journal) updateIndex(rec *RunRecord) {
	if rec.DryRun {
		return
	}
	at := rec.StartedAt.Add(rec.Duration)
	for _, o := range rec.Outcomes {
		j.index.ReplaceOrInsert(&ResourceState{
			Region:     rec.Region,
			Kind:       rec.Kind,
			Resource:   o.Resource,
			LastAction: rec.Action,
			LastRunID:  rec.ID,
			At:         at,
			ErrorKind:  o.ErrorKind,
		})
	}
}

func (j *Journal) rebuildIndex() error {
	return j.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRuns).ForEach(func(k, v []byte) error {
			var rec RunRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("rebuild index: decode run %s: %w", k, err)
			}
			j.updateIndex(&rec)
			return nil
		})
	})
}

func makeRunKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%016d", seq))
}
