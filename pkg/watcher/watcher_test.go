package watcher

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestDebouncerMergesBurst(t *testing.T) {
	input := make(chan ChangeEvent)
	d := NewDebouncer(input, 50*time.Millisecond, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	input <- ChangeEvent{Type: ChangeTypeQueries, Paths: []string{"q.json"}}
	input <- ChangeEvent{Type: ChangeTypeConfig, Paths: []string{"hopgraph.toml"}}
	input <- ChangeEvent{Type: ChangeTypeQueries, Paths: []string{"q.json"}}

	var got []ChangeEvent
	timeout := time.After(time.Second)
	for len(got) < 2 {
		select {
		case ev := <-d.Output():
			got = append(got, ev)
		case <-timeout:
			t.Fatalf("Timeout, received %d events", len(got))
		}
	}

	if got[0].Type != ChangeTypeConfig {
		t.Errorf("Expected config change first, got %v", got[0].Type)
	}
	if got[1].Type != ChangeTypeQueries || !reflect.DeepEqual(got[1].Paths, []string{"q.json"}) {
		t.Errorf("Expected deduplicated queries change, got %+v", got[1])
	}
}

func TestDebouncerMaxWait(t *testing.T) {
	input := make(chan ChangeEvent)
	d := NewDebouncer(input, 80*time.Millisecond, 150*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	// Keep the quiet period from ever expiring
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				select {
				case input <- ChangeEvent{Type: ChangeTypeGraph, Paths: []string{"g.json"}}:
				case <-stop:
					return
				}
			case <-stop:
				return
			}
		}
	}()
	defer close(stop)

	select {
	case ev := <-d.Output():
		if ev.Type != ChangeTypeGraph {
			t.Errorf("Expected graph change, got %v", ev.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected max wait to force a flush")
	}
}

func TestDebouncerFlushesOnClose(t *testing.T) {
	input := make(chan ChangeEvent, 1)
	d := NewDebouncer(input, time.Hour, time.Hour)
	d.Start(context.Background())

	input <- ChangeEvent{Type: ChangeTypeGraph, Paths: []string{"g.msgp"}}
	close(input)

	ev, ok := <-d.Output()
	if !ok || ev.Type != ChangeTypeGraph {
		t.Fatalf("Expected pending graph change on close, got %+v (ok=%v)", ev, ok)
	}
	if _, ok := <-d.Output(); ok {
		t.Error("Expected output to be closed")
	}
}

func TestAnalyzeChanges(t *testing.T) {
	tests := []struct {
		name   string
		events []ChangeEvent
		want   ChangeAnalysis
		reason string
	}{
		{
			name:   "config reloads everything",
			events: []ChangeEvent{{Type: ChangeTypeConfig, Paths: []string{"hopgraph.toml"}}},
			want:   ChangeAnalysis{ReloadConfig: true, ReloadGraph: true, ReloadQueries: true, ChangedFiles: []string{"hopgraph.toml"}},
			reason: "config changed",
		},
		{
			name: "graph and queries",
			events: []ChangeEvent{
				{Type: ChangeTypeQueries, Paths: []string{"q.json"}},
				{Type: ChangeTypeGraph, Paths: []string{"g.json"}},
			},
			want:   ChangeAnalysis{ReloadGraph: true, ReloadQueries: true, ChangedFiles: []string{"g.json", "q.json"}},
			reason: "graph and queries changed",
		},
		{
			name:   "nothing",
			want:   ChangeAnalysis{},
			reason: "no changes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnalyzeChanges(tt.events...)
			if !reflect.DeepEqual(*got, tt.want) {
				t.Errorf("Expected %+v, got %+v", tt.want, *got)
			}
			if got.Reason() != tt.reason {
				t.Errorf("Expected reason %q, got %q", tt.reason, got.Reason())
			}
		})
	}
}

func TestFileWatcherReportsWatchedFiles(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "hopgraph.toml")
	if err := os.WriteFile(configPath, []byte("nodes = 500\n"), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	fw, err := NewFileWatcher()
	if err != nil {
		t.Fatalf("NewFileWatcher failed: %v", err)
	}
	if err := fw.Watch(configPath, ChangeTypeConfig); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	if err := fw.Watch("", ChangeTypeGraph); err != nil {
		t.Fatalf("Watch with empty path should be a no-op: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	fw.Start(ctx)

	// Unwatched files in the same directory are ignored
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if err := os.WriteFile(configPath, []byte("nodes = 400\n"), 0o644); err != nil {
		t.Fatalf("Failed to update config: %v", err)
	}

	select {
	case ev := <-fw.Events():
		if ev.Type != ChangeTypeConfig {
			t.Errorf("Expected config change, got %v", ev.Type)
		}
		if len(ev.Paths) != 1 || filepath.Base(ev.Paths[0]) != "hopgraph.toml" {
			t.Errorf("Expected only hopgraph.toml, got %v", ev.Paths)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for change event")
	}

	cancel()
	for range fw.Events() {
	}
}

func TestFileWatcherClear(t *testing.T) {
	dir := t.TempDir()
	oldGraph := filepath.Join(dir, "old.msgp")
	configPath := filepath.Join(dir, "hopgraph.toml")

	fw, err := NewFileWatcher()
	if err != nil {
		t.Fatalf("NewFileWatcher failed: %v", err)
	}
	if err := fw.Watch(oldGraph, ChangeTypeGraph); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	if err := fw.Watch(configPath, ChangeTypeConfig); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	// A reloaded config no longer names the old graph
	fw.Clear()
	if err := fw.Watch(configPath, ChangeTypeConfig); err != nil {
		t.Fatalf("Watch after Clear failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	fw.Start(ctx)

	if err := os.WriteFile(oldGraph, []byte("stale"), 0o644); err != nil {
		t.Fatalf("Failed to write graph: %v", err)
	}
	if err := os.WriteFile(configPath, []byte("nodes = 500\n"), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	select {
	case ev := <-fw.Events():
		if ev.Type != ChangeTypeConfig {
			t.Errorf("Expected config change, got %v %v", ev.Type, ev.Paths)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for change event")
	}

	select {
	case ev := <-fw.Events():
		t.Errorf("Expected no event for a cleared file, got %v %v", ev.Type, ev.Paths)
	case <-time.After(300 * time.Millisecond):
	}

	cancel()
	for range fw.Events() {
	}
}
