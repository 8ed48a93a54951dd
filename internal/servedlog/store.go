// Package servedlog records which recommendations were actually served to
// which learner. It lives entirely outside the recommendation core: the
// core stays a pure function of its input snapshots, while this log feeds
// auditing and the served-items endpoint.
package servedlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dinhhieu2003/toeic-recommender/internal/model"
)

// Record is one served recommendation.
type Record struct {
	LearnerID string         `json:"learner_id"`
	ItemID    string         `json:"item_id"`
	ItemType  model.ItemType `json:"item_type"`
	Timestamp int64          `json:"timestamp"`
}

// Store is the served-recommendation log contract.
type Store interface {
	// Recent returns the item IDs served to a learner within the last N
	// days, optionally restricted to one item type.
	Recent(learnerID string, itemType model.ItemType, days int) ([]string, error)
	// Append records a freshly served recommendation list.
	Append(learnerID string, itemType model.ItemType, itemIDs []string) error
}

// FileStore is a jsonl-backed Store with an in-memory cache for reads.
type FileStore struct {
	filePath string
	mu       sync.RWMutex
	records  []Record
}

// NewFileStore opens (or creates) the log file at filePath and loads it.
func NewFileStore(filePath string) (*FileStore, error) {
	fs := &FileStore{
		filePath: filePath,
		records:  make([]Record, 0),
	}
	if err := fs.load(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (s *FileStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.filePath, os.O_RDONLY|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("failed to open served log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record Record
		if err := json.Unmarshal(line, &record); err != nil {
			continue // skip corrupted lines
		}
		s.records = append(s.records, record)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to scan served log: %w", err)
	}
	return nil
}

// Recent returns item IDs served to learnerID within the last N days.
func (s *FileStore) Recent(learnerID string, itemType model.ItemType, days int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().Unix() - int64(days*24*60*60)
	var result []string
	// Full scan; the retention cleanup keeps the file small enough.
	for _, r := range s.records {
		if r.LearnerID != learnerID || r.Timestamp < cutoff {
			continue
		}
		if itemType != model.ItemTypeAny && r.ItemType != itemType {
			continue
		}
		result = append(result, r.ItemID)
	}
	return result, nil
}

// Append writes the served items to the file and the in-memory cache.
func (s *FileStore) Append(learnerID string, itemType model.ItemType, itemIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.filePath, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("failed to open served log for appending: %w", err)
	}
	defer f.Close()

	now := time.Now().Unix()
	encoder := json.NewEncoder(f)
	for _, id := range itemIDs {
		record := Record{
			LearnerID: learnerID,
			ItemID:    id,
			ItemType:  itemType,
			Timestamp: now,
		}
		if err := encoder.Encode(record); err != nil {
			return fmt.Errorf("failed to write served record: %w", err)
		}
		s.records = append(s.records, record)
	}
	return nil
}

// Cleanup drops records older than the retention window, in memory and on
// disk. The file is rewritten atomically via a temp file.
func (s *FileStore) Cleanup(retentionDays int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Unix() - int64(retentionDays*24*60*60)
	kept := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		if r.Timestamp >= cutoff {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(s.records) {
		return nil
	}

	tmpPath := s.filePath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp served log: %w", err)
	}
	encoder := json.NewEncoder(f)
	for _, r := range kept {
		if err := encoder.Encode(r); err != nil {
			f.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("failed to rewrite served log: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp served log: %w", err)
	}
	if err := os.Rename(tmpPath, s.filePath); err != nil {
		return fmt.Errorf("failed to replace served log: %w", err)
	}

	s.records = kept
	return nil
}
