package bus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/awardintel/award-engine/internal/pkg/errors"
)

// JournalEntry is one published event as recorded in the journal.
type JournalEntry struct {
	Topic      string    `json:"topic"`
	Event      Event     `json:"event"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Journal appends published events to a JSON lines file.
type Journal struct {
	path string

	mu      sync.Mutex
	file    *os.File
	encoder *json.Encoder
	now     func() time.Time
}

// OpenJournal opens path for appending, creating it and its directory.
func OpenJournal(path string) (*Journal, error) {
	if path == "" {
		return nil, errors.ConfigurationError("journal path cannot be empty")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	return &Journal{
		path:    path,
		file:    file,
		encoder: json.NewEncoder(file),
		now:     time.Now,
	}, nil
}

// Append records an event published on topic.
func (j *Journal) Append(topic string, event Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return errors.New(errors.CodeUnavailable, "journal is closed")
	}

	entry := JournalEntry{
		Topic:      topic,
		Event:      event,
		RecordedAt: j.now().UTC(),
	}
	if err := j.encoder.Encode(entry); err != nil {
		return fmt.Errorf("failed to write journal %s: %w", j.path, err)
	}

	return j.file.Sync()
}

// Close closes the journal file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	j.encoder = nil
	return err
}

// ReadJournal returns entries recorded after since, oldest first. An empty
// topic matches every entry; limit <= 0 means no limit. Malformed lines
// are skipped and a missing file reads as empty.
func ReadJournal(path string, topic string, since time.Time, limit int) ([]JournalEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []JournalEntry{}, nil
		}
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	defer file.Close()

	entries := []JournalEntry{}
	scanner := bufio.NewScanner(file)

	const maxLine = 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxLine)

	for scanner.Scan() {
		var entry JournalEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		if topic != "" && entry.Topic != topic {
			continue
		}
		if !entry.RecordedAt.After(since) {
			continue
		}

		entries = append(entries, entry)
		if limit > 0 && len(entries) >= limit {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan journal: %w", err)
	}
	return entries, nil
}
