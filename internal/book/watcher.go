package book

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"

	"bookapi/internal/service"
)

// debounceDuration coalesces the event bursts editors produce on save.
const debounceDuration = 500 * time.Millisecond

// Watcher keeps the stored table of contents in sync with a SUMMARY.md on
// disk. Every write to the file triggers a re-import through the service;
// a failed import keeps the previous stored state.
type Watcher struct {
	path    string
	svc     service.BookService
	loc     *time.Location
	watcher *fsnotify.Watcher
}

// NewWatcher creates a watcher for the given summary file path.
func NewWatcher(path string, svc service.BookService, loc *time.Location) *Watcher {
	return &Watcher{path: path, svc: svc, loc: loc}
}

// ImportOnce imports the summary file a single time.
func (w *Watcher) ImportOnce(ctx context.Context) error {
	f, err := os.Open(w.path)
	if err != nil {
		return fmt.Errorf("open summary file: %w", err)
	}
	defer f.Close()

	start := time.Now()
	res, err := w.svc.ImportSummary(ctx, f)
	if err != nil {
		w.logJSON(map[string]any{
			"component":     "book",
			"event":         "summary_import_failed",
			"status":        "error",
			"path":          w.path,
			"error_message": err.Error(),
			"duration_ms":   time.Since(start).Milliseconds(),
		})
		return err
	}
	w.logJSON(map[string]any{
		"component":   "book",
		"event":       "summary_import_success",
		"status":      "success",
		"path":        w.path,
		"parts":       res.Parts,
		"chapters":    res.Chapters,
		"drafts":      res.Drafts,
		"relinked":    res.Relinked,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return nil
}

// Start imports the file once, then watches it for changes until the
// context is cancelled. The initial import error is returned; watch-loop
// import errors are only logged.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.ImportOnce(ctx); err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(w.path); err != nil {
		_ = fw.Close()
		return fmt.Errorf("watch summary file: %w", err)
	}
	w.watcher = fw

	w.logJSON(map[string]any{
		"component": "book",
		"event":     "summary_watch_started",
		"status":    "success",
		"path":      w.path,
	})

	go w.watchLoop(ctx)
	return nil
}

func (w *Watcher) watchLoop(ctx context.Context) {
	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			w.logJSON(map[string]any{
				"component": "book",
				"event":     "summary_watch_stopped",
				"status":    "success",
				"path":      w.path,
			})
			_ = w.watcher.Close()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			// Write and Create cover in-place saves and rename-over saves.
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(debounceDuration, func() {
					_ = w.ImportOnce(ctx)
				})
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logJSON(map[string]any{
				"component":     "book",
				"event":         "summary_watch_error",
				"status":        "error",
				"path":          w.path,
				"error_message": err.Error(),
			})
		}
	}
}

// Stop stops the watcher (if running).
func (w *Watcher) Stop() {
	if w.watcher != nil {
		_ = w.watcher.Close()
	}
}

func (w *Watcher) logJSON(data map[string]any) {
	data["ts"] = time.Now().In(w.loc).Format(time.RFC3339Nano)
	if _, ok := data["level"]; !ok {
		if data["status"] == "error" {
			data["level"] = "error"
		} else {
			data["level"] = "info"
		}
	}

	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal book log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
