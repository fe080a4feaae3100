package bus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/awardintel/award-engine/internal/config"
	apperrors "github.com/awardintel/award-engine/internal/pkg/errors"
	"github.com/awardintel/award-engine/internal/pkg/logger"
)

type snapshotPayload struct {
	Program       string `json:"program"`
	MilesRequired int    `json:"miles_required"`
}

func waitGroup(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for events")
	}
}

func TestNewEvent(t *testing.T) {
	event, err := NewEvent("snapshot.ingested", "ingest", snapshotPayload{Program: "Aeroplan", MilesRequired: 90000})
	if err != nil {
		t.Fatalf("NewEvent() error = %v", err)
	}

	if event.ID == "" {
		t.Error("NewEvent() ID is empty")
	}
	if event.Type != "snapshot.ingested" {
		t.Errorf("Type = %s, want snapshot.ingested", event.Type)
	}
	if event.Timestamp == 0 {
		t.Error("NewEvent() Timestamp is zero")
	}

	var got snapshotPayload
	if err := event.Decode(&got); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.MilesRequired != 90000 || got.Program != "Aeroplan" {
		t.Errorf("Decode() = %+v, want Aeroplan/90000", got)
	}

	other, _ := NewEvent("snapshot.ingested", "ingest", nil)
	if other.ID == event.ID {
		t.Error("NewEvent() reused an event ID")
	}
}

func TestEvent_DecodeEmpty(t *testing.T) {
	var v snapshotPayload
	if err := (Event{ID: "x"}).Decode(&v); !apperrors.IsValidation(err) {
		t.Errorf("Decode() error = %v, want validation error", err)
	}
}

func TestMemoryBus_PublishSubscribe(t *testing.T) {
	bus := NewMemoryBus(logger.Discard())
	defer bus.Close()

	var received atomic.Int32
	var wg sync.WaitGroup

	err := bus.Subscribe(context.Background(), TopicSnapshotIngested, func(ctx context.Context, event Event) error {
		received.Add(1)
		wg.Done()
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	wg.Add(3)
	for i := 0; i < 3; i++ {
		event, _ := NewEvent("snapshot.ingested", "test", snapshotPayload{MilesRequired: 80000 + i})
		if err := bus.Publish(context.Background(), TopicSnapshotIngested, event); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}

	waitGroup(t, &wg)

	if got := received.Load(); got != 3 {
		t.Errorf("Received %d events, want 3", got)
	}
}

func TestMemoryBus_MultipleSubscribers(t *testing.T) {
	bus := NewMemoryBus(logger.Discard())
	defer bus.Close()

	var count1, count2 atomic.Int32
	var wg sync.WaitGroup

	bus.Subscribe(context.Background(), TopicAlertSent, func(ctx context.Context, event Event) error {
		count1.Add(1)
		wg.Done()
		return nil
	})
	bus.Subscribe(context.Background(), TopicAlertSent, func(ctx context.Context, event Event) error {
		count2.Add(1)
		wg.Done()
		return errors.New("handler failure is only logged")
	})

	wg.Add(2)
	bus.Publish(context.Background(), TopicAlertSent, Event{ID: "alert-1", Type: "alert.sent"})
	waitGroup(t, &wg)

	if count1.Load() != 1 || count2.Load() != 1 {
		t.Errorf("Expected both subscribers to receive 1 event, got %d and %d", count1.Load(), count2.Load())
	}
}

func TestMemoryBus_NoSubscribers(t *testing.T) {
	bus := NewMemoryBus(logger.Discard())
	defer bus.Close()

	if err := bus.Publish(context.Background(), "empty.topic", Event{ID: "test"}); err != nil {
		t.Errorf("Publish() to empty topic error = %v", err)
	}
}

func TestMemoryBus_HandlerOutlivesPublisherContext(t *testing.T) {
	bus := NewMemoryBus(logger.Discard())
	defer bus.Close()

	ctxErr := make(chan error, 1)
	bus.Subscribe(context.Background(), TopicSnapshotIngested, func(ctx context.Context, event Event) error {
		time.Sleep(10 * time.Millisecond)
		ctxErr <- ctx.Err()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	bus.Publish(ctx, TopicSnapshotIngested, Event{ID: "e1"})
	cancel()

	select {
	case err := <-ctxErr:
		if err != nil {
			t.Errorf("handler ctx.Err() = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for handler")
	}
}

func TestMemoryBus_Close(t *testing.T) {
	bus := NewMemoryBus(logger.Discard())

	var finished atomic.Bool
	bus.Subscribe(context.Background(), "slow", func(ctx context.Context, event Event) error {
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)
		return nil
	})
	bus.Publish(context.Background(), "slow", Event{ID: "e1"})

	if err := bus.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !finished.Load() {
		t.Error("Close() returned before in-flight handler finished")
	}

	if err := bus.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	if err := bus.Publish(context.Background(), "slow", Event{ID: "e2"}); err == nil {
		t.Error("Publish() after Close should fail")
	}
	if err := bus.Subscribe(context.Background(), "slow", func(context.Context, Event) error { return nil }); err == nil {
		t.Error("Subscribe() after Close should fail")
	}
}

func TestJournal_AppendAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events", "journal.jsonl")

	journal, err := OpenJournal(path)
	if err != nil {
		t.Fatalf("OpenJournal() error = %v", err)
	}

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	journal.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	journal.Append(TopicSnapshotIngested, Event{ID: "s1"})
	journal.Append(TopicAlertSent, Event{ID: "a1"})
	journal.Append(TopicSnapshotIngested, Event{ID: "s2"})

	if err := journal.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	all, err := ReadJournal(path, "", time.Time{}, 0)
	if err != nil {
		t.Fatalf("ReadJournal() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ReadJournal() returned %d entries, want 3", len(all))
	}
	if all[0].Event.ID != "s1" || all[2].Event.ID != "s2" {
		t.Errorf("ReadJournal() order = %s..%s, want s1..s2", all[0].Event.ID, all[2].Event.ID)
	}

	snapshots, _ := ReadJournal(path, TopicSnapshotIngested, time.Time{}, 0)
	if len(snapshots) != 2 {
		t.Errorf("ReadJournal(topic) returned %d entries, want 2", len(snapshots))
	}

	recent, _ := ReadJournal(path, "", base.Add(90*time.Second), 0)
	if len(recent) != 2 {
		t.Errorf("ReadJournal(since) returned %d entries, want 2", len(recent))
	}

	limited, _ := ReadJournal(path, "", time.Time{}, 1)
	if len(limited) != 1 {
		t.Errorf("ReadJournal(limit=1) returned %d entries, want 1", len(limited))
	}
}

func TestJournal_AppendAfterClose(t *testing.T) {
	journal, err := OpenJournal(filepath.Join(t.TempDir(), "journal.jsonl"))
	if err != nil {
		t.Fatalf("OpenJournal() error = %v", err)
	}
	journal.Close()

	if err := journal.Append(TopicAlertSent, Event{ID: "late"}); err == nil {
		t.Error("Append() after Close should fail")
	}
}

func TestReadJournal_MissingAndMalformed(t *testing.T) {
	dir := t.TempDir()

	entries, err := ReadJournal(filepath.Join(dir, "missing.jsonl"), "", time.Time{}, 0)
	if err != nil {
		t.Fatalf("ReadJournal(missing) error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("ReadJournal(missing) returned %d entries, want 0", len(entries))
	}

	path := filepath.Join(dir, "mixed.jsonl")
	content := "not json\n" +
		`{"topic":"awards.alert.sent","event":{"id":"a1"},"recorded_at":"2026-03-01T12:00:00Z"}` + "\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write journal: %v", err)
	}

	entries, err = ReadJournal(path, "", time.Time{}, 0)
	if err != nil {
		t.Fatalf("ReadJournal() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Event.ID != "a1" {
		t.Errorf("ReadJournal() = %+v, want only a1", entries)
	}
}

func TestLoggedBus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	journal, err := OpenJournal(path)
	if err != nil {
		t.Fatalf("OpenJournal() error = %v", err)
	}

	bus := NewLoggedBus(NewMemoryBus(logger.Discard()), journal, logger.Discard())

	var wg sync.WaitGroup
	wg.Add(1)
	bus.Subscribe(context.Background(), TopicSnapshotIngested, func(ctx context.Context, event Event) error {
		wg.Done()
		return nil
	})

	if err := bus.Publish(context.Background(), TopicSnapshotIngested, Event{ID: "s1"}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	waitGroup(t, &wg)

	if err := bus.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	entries, _ := ReadJournal(path, "", time.Time{}, 0)
	if len(entries) != 1 || entries[0].Topic != TopicSnapshotIngested {
		t.Errorf("journal entries = %+v, want one snapshot event", entries)
	}
}

func TestNewBus(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.BusConfig
		wantType string
		wantCode string
	}{
		{name: "memory", cfg: config.BusConfig{Type: "memory"}, wantType: "*bus.MemoryBus"},
		{name: "empty defaults to memory", cfg: config.BusConfig{}, wantType: "*bus.MemoryBus"},
		{name: "kafka without brokers", cfg: config.BusConfig{Type: "kafka"}, wantCode: apperrors.CodeConfiguration},
		{name: "redis without url", cfg: config.BusConfig{Type: "redis"}, wantCode: apperrors.CodeConfiguration},
		{name: "unknown", cfg: config.BusConfig{Type: "nats"}, wantCode: apperrors.CodeConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBus(tt.cfg, logger.Discard())
			if tt.wantCode != "" {
				if apperrors.CodeOf(err) != tt.wantCode {
					t.Errorf("NewBus() error = %v, want code %s", err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewBus() error = %v", err)
			}
			defer b.Close()

			if _, ok := b.(*MemoryBus); !ok {
				t.Errorf("NewBus() type = %T, want %s", b, tt.wantType)
			}
		})
	}
}

func TestNewBus_WithJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")

	b, err := NewBus(config.BusConfig{Type: "memory", JournalPath: path}, logger.Discard())
	if err != nil {
		t.Fatalf("NewBus() error = %v", err)
	}
	defer b.Close()

	if _, ok := b.(*LoggedBus); !ok {
		t.Errorf("NewBus() type = %T, want *bus.LoggedBus", b)
	}
}
