// Package journal keeps per-day append-only payloads and folds the latest
// one into db.json on demand.
package journal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/raakeshmj/coreenginedb/internal/blob"
	"github.com/raakeshmj/coreenginedb/internal/docstore"
	"github.com/raakeshmj/coreenginedb/internal/events"
	"github.com/raakeshmj/coreenginedb/internal/idgen"
	"github.com/raakeshmj/coreenginedb/internal/model"
)

var (
	ErrNoJournal   = errors.New("no_journal")
	ErrInvalidDay  = errors.New("invalid_day")
	ErrInvalidJSON = docstore.ErrInvalidJSON
)

const keyPrefix = "journal/"

// maxEntries bounds the listing of a single day.
const maxEntries = 10000

type Journal struct {
	blobs     blob.Store
	docs      *docstore.Store
	publisher events.Publisher
	now       func() time.Time
}

func New(blobs blob.Store, docs *docstore.Store, publisher events.Publisher) *Journal {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &Journal{blobs: blobs, docs: docs, publisher: publisher, now: time.Now}
}

// Append stores payload as a new entry of day and returns its key. Entry
// ids start with the append time in nanoseconds so lexical key order is
// append order.
func (j *Journal) Append(ctx context.Context, day string, payload []byte) (string, error) {
	if !model.ValidDay(day) {
		return "", ErrInvalidDay
	}
	if !json.Valid(payload) {
		return "", ErrInvalidJSON
	}
	id, err := idgen.Sequenced(j.now())
	if err != nil {
		return "", err
	}
	key := keyPrefix + day + "/" + id + ".json"
	if err := j.blobs.Put(ctx, key, payload, blob.ContentTypeJSON); err != nil {
		return "", fmt.Errorf("append journal: %w", err)
	}
	_ = j.publisher.Publish(ctx, events.TopicJournalAppended, events.JournalAppended{Day: day, Key: key})
	return key, nil
}

// Latest returns the newest non-blank entry of day. It must parse as a
// non-empty JSON array; older entries are never consulted.
func (j *Journal) Latest(ctx context.Context, day string) ([]byte, error) {
	if !model.ValidDay(day) {
		return nil, ErrInvalidDay
	}
	keys, err := j.blobs.List(ctx, keyPrefix+day+"/", maxEntries)
	if err != nil {
		return nil, fmt.Errorf("list journal: %w", err)
	}
	sort.Strings(keys)
	for i := len(keys) - 1; i >= 0; i-- {
		data, ok, err := j.blobs.Get(ctx, keys[i])
		if err != nil {
			return nil, fmt.Errorf("read journal: %w", err)
		}
		if !ok || len(bytes.TrimSpace(data)) == 0 {
			continue
		}
		var arr []json.RawMessage
		if json.Unmarshal(data, &arr) != nil || len(arr) == 0 {
			return nil, ErrNoJournal
		}
		return data, nil
	}
	return nil, ErrNoJournal
}

// Compact replaces db.json with the latest entry of day under the caller's
// If-Match precondition. The entry goes through the same validation as
// any other db.json write.
func (j *Journal) Compact(ctx context.Context, day, ifMatch string, opts docstore.WriteOptions) (*docstore.Document, error) {
	if ifMatch == "" {
		return nil, docstore.ErrPreconditionFailed
	}
	latest, err := j.Latest(ctx, day)
	if err != nil {
		return nil, err
	}
	if opts.Cause == "" {
		opts.Cause = "compact"
	}
	return j.docs.Write(ctx, docstore.RecordsDoc, ifMatch, latest, opts)
}
