// Package audit records one activity entry per request.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/raakeshmj/coreenginedb/internal/blob"
	"github.com/raakeshmj/coreenginedb/internal/idgen"
	"github.com/raakeshmj/coreenginedb/internal/model"
)

const (
	keyPrefix    = "activity/"
	DefaultLimit = 500
	MaxLimit     = 1000
)

// Logger records activity. Implementations never fail the caller.
type Logger interface {
	Log(ctx context.Context, entry model.Activity)
}

// BlobLogger writes each entry as activity/<day>/<id>.json.
type BlobLogger struct {
	blobs  blob.Store
	logger *slog.Logger
}

func NewBlobLogger(blobs blob.Store, logger *slog.Logger) *BlobLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &BlobLogger{blobs: blobs, logger: logger}
}

func (l *BlobLogger) Log(ctx context.Context, entry model.Activity) {
	ts, err := time.Parse(time.RFC3339Nano, entry.Timestamp)
	if err != nil {
		ts = time.Now()
		entry.Timestamp = model.Timestamp(ts)
	}
	id, err := idgen.Sequenced(ts)
	if err != nil {
		l.logger.Debug("activity id failed", "error", err)
		return
	}
	key := keyPrefix + model.Day(ts) + "/" + id + ".json"
	if err := blob.PutJSON(ctx, l.blobs, key, entry); err != nil {
		l.logger.Debug("activity write failed", "key", key, "error", err)
	}
}

// List returns up to limit entries of day, newest first, with the user
// field blanked. Unreadable entries are skipped.
func (l *BlobLogger) List(ctx context.Context, day string, limit int) ([]model.Activity, error) {
	limit = ClampLimit(limit)
	keys, err := l.blobs.List(ctx, keyPrefix+day+"/", 0)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	// Keys sort by write time; keep the newest.
	sort.Strings(keys)
	if len(keys) > limit {
		keys = keys[len(keys)-limit:]
	}

	out := make([]model.Activity, 0, len(keys))
	for _, k := range keys {
		var a model.Activity
		ok, err := blob.GetJSON(ctx, l.blobs, k, &a)
		if err != nil || !ok {
			continue
		}
		a.User = ""
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out, nil
}

// ClampLimit maps a requested page size onto [1, MaxLimit]. Callers
// substitute DefaultLimit when no size was requested.
func ClampLimit(limit int) int {
	switch {
	case limit < 1:
		return 1
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

// JSONLogger writes entries as JSON lines, for mirroring activity to stdout.
type JSONLogger struct {
	out io.Writer
	mu  sync.Mutex
}

func NewJSONLogger(w io.Writer) *JSONLogger {
	return &JSONLogger{out: w}
}

func (l *JSONLogger) Log(_ context.Context, entry model.Activity) {
	entry.Reason = maskSensitive(entry.Reason)

	bytes, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Audit log error: %v\n", err)
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out.Write(bytes)
	l.out.Write([]byte("\n"))
}

// Tee fans an entry out to several loggers.
type Tee []Logger

func (t Tee) Log(ctx context.Context, entry model.Activity) {
	for _, l := range t {
		l.Log(ctx, entry)
	}
}

func maskSensitive(s string) string {
	sensitiveKeys := []string{"api_key", "password", "token", "secret"}
	lower := strings.ToLower(s)
	for _, k := range sensitiveKeys {
		if strings.Contains(lower, k+"=") {
			return "***REDACTED***"
		}
	}
	return s
}
