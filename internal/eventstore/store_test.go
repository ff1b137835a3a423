package eventstore

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

const testRunID = "run-123"

func TestEventStoreAppendAndRetrieve(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := t.Context()
	payload := []byte(`{"stage":"normal"}`)
	metadata := map[string]string{"key": "value"}

	if err := store.Append(ctx, testRunID, TypeStageCompleted, payload, metadata); err != nil {
		t.Fatalf("failed to append event: %v", err)
	}

	events, err := store.GetByRunID(ctx, testRunID)
	if err != nil {
		t.Fatalf("failed to get events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	event := events[0]
	if event.RunID() != testRunID {
		t.Errorf("expected run_id %s, got %s", testRunID, event.RunID())
	}
	if event.Type() != TypeStageCompleted {
		t.Errorf("expected event_type %s, got %s", TypeStageCompleted, event.Type())
	}
	if !bytes.Equal(event.Payload(), payload) {
		t.Errorf("expected payload %s, got %s", payload, event.Payload())
	}
	if event.Metadata()["key"] != "value" {
		t.Errorf("expected metadata key=value, got %v", event.Metadata())
	}
}

func TestEventStoreGetRange(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := t.Context()
	for _, id := range []string{"a", "b", "c"} {
		if err := store.Append(ctx, id, TypeRunStarted, nil, nil); err != nil {
			t.Fatalf("append %s: %v", id, err)
		}
	}

	events, err := store.GetRange(ctx, time.Now().Add(-time.Minute), time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("get range: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].RunID() != "a" || events[2].RunID() != "c" {
		t.Errorf("events not in insertion order: %s..%s", events[0].RunID(), events[2].RunID())
	}

	old, err := store.GetRange(ctx, time.Now().Add(-2*time.Hour), time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("get range: %v", err)
	}
	if len(old) != 0 {
		t.Errorf("expected no events in the past, got %d", len(old))
	}
}

func TestEventStorePersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	ev, err := NewRunStarted(testRunID, RunStartedMeta{Recipe: "demo", Kind: "series", Seed: 7})
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	if err := Record(t.Context(), store, ev); err != nil {
		t.Fatalf("record: %v", err)
	}
	_ = store.Close()

	reopened, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	events, err := reopened.GetByRunID(t.Context(), testRunID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(events) != 1 || events[0].Type() != TypeRunStarted {
		t.Fatalf("unexpected events after reopen: %v", events)
	}
}

func TestEventStoreClosedAppendFails(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	_ = store.Close()

	err = store.Append(t.Context(), testRunID, TypeRunStarted, nil, nil)
	if !errors.Is(err, ErrAppend) {
		t.Fatalf("expected ErrAppend, got %v", err)
	}
}

func TestEventStoreRejectsEmptyType(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.Append(t.Context(), testRunID, "", nil, nil); !errors.Is(err, ErrNoEvent) {
		t.Fatalf("expected ErrNoEvent, got %v", err)
	}
}

func TestEventStorePrune(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := t.Context()
	now := time.Now()
	store.now = func() time.Time { return now.Add(-48 * time.Hour) }
	if err := store.Append(ctx, "old", TypeRunStarted, nil, nil); err != nil {
		t.Fatalf("append old: %v", err)
	}
	store.now = func() time.Time { return now }
	if err := store.Append(ctx, "new", TypeRunStarted, nil, nil); err != nil {
		t.Fatalf("append new: %v", err)
	}

	n, err := store.Prune(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 pruned event, got %d", n)
	}
	left, err := store.GetByRunID(ctx, "old")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(left) != 0 {
		t.Errorf("old run still has %d events", len(left))
	}
}
