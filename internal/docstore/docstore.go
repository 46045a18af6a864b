// Package docstore serves the two primary JSON documents with content-hash
// ETags and If-Match guarded replacement.
package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/raakeshmj/coreenginedb/internal/auth"
	"github.com/raakeshmj/coreenginedb/internal/blob"
	"github.com/raakeshmj/coreenginedb/internal/events"
	"github.com/raakeshmj/coreenginedb/internal/model"
)

var (
	ErrMissingIfMatch     = errors.New("missing_if_match")
	ErrPreconditionFailed = errors.New("precondition_failed")
	ErrInvalidJSON        = errors.New("invalid_json")
	ErrExpectedArray      = errors.New("expected_array")
	ErrExpectedObject     = errors.New("expected_object")
	ErrSchemaInvalid      = model.ErrSchemaInvalid
	ErrEmptyWriteDenied   = errors.New("empty_write_denied")
)

// updateAttempts bounds the read-mutate-write retries in Update.
const updateAttempts = 3

// Document is a body together with the hash of exactly those bytes.
type Document struct {
	Body []byte
	ETag string
}

func newDocument(body []byte) *Document {
	return &Document{Body: body, ETag: auth.SHA256Hex(body)}
}

// Matches reports whether an If-Match value names this document.
func (d *Document) Matches(ifMatch string) bool {
	v := normalizeETag(ifMatch)
	return v != "" && v == d.ETag
}

// WriteOptions qualify a replacement.
type WriteOptions struct {
	// AllowEmpty permits replacing a non-empty record list with [].
	AllowEmpty bool
	Actor      string
	Cause      string
}

type Store struct {
	blobs     blob.Store
	publisher events.Publisher
	logger    *slog.Logger
}

func New(blobs blob.Store, publisher events.Publisher, logger *slog.Logger) *Store {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{blobs: blobs, publisher: publisher, logger: logger}
}

// Read returns the stored document. Absent, empty, unparsable or
// wrongly shaped content reads as the kind's empty document.
func (s *Store) Read(ctx context.Context, kind Kind) (*Document, error) {
	data, ok, err := s.blobs.Get(ctx, kind.Key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", kind.Key, err)
	}
	if !ok || len(bytes.TrimSpace(data)) == 0 || !kind.shape(data) {
		return newDocument(kind.Empty), nil
	}
	return newDocument(data), nil
}

// ReadProjected returns config.json as seen by a caller: the full object
// when privileged, otherwise only flags, auth.enabled and version. Other
// kinds are returned unchanged. The ETag covers the returned bytes.
func (s *Store) ReadProjected(ctx context.Context, kind Kind, privileged bool) (*Document, error) {
	doc, err := s.Read(ctx, kind)
	if err != nil || privileged || kind.Key != ConfigDoc.Key {
		return doc, err
	}
	view, err := json.Marshal(model.ParseAppConfig(doc.Body).PublicView())
	if err != nil {
		return nil, fmt.Errorf("project config: %w", err)
	}
	return newDocument(view), nil
}

// ReadPublic returns the allow-listed subset of db.json as compact JSON.
// Elements are copied verbatim.
func (s *Store) ReadPublic(ctx context.Context) (*Document, error) {
	doc, err := s.Read(ctx, RecordsDoc)
	if err != nil {
		return nil, err
	}
	var elems []json.RawMessage
	_ = json.Unmarshal(doc.Body, &elems)

	out := []json.RawMessage{}
	for _, e := range elems {
		var r model.Record
		if json.Unmarshal(e, &r) != nil {
			continue
		}
		if len(model.Records{r}.Public()) == 1 {
			out = append(out, e)
		}
	}
	body, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	return newDocument(body), nil
}

// Records decodes db.json.
func (s *Store) Records(ctx context.Context) (model.Records, *Document, error) {
	doc, err := s.Read(ctx, RecordsDoc)
	if err != nil {
		return nil, nil, err
	}
	var rs model.Records
	if err := json.Unmarshal(doc.Body, &rs); err != nil {
		return model.Records{}, doc, nil
	}
	return rs, doc, nil
}

// Config decodes the interpreted parts of config.json.
func (s *Store) Config(ctx context.Context) (model.AppConfig, error) {
	doc, err := s.Read(ctx, ConfigDoc)
	if err != nil {
		return model.AppConfig{}, err
	}
	return model.ParseAppConfig(doc.Body), nil
}

// Write replaces the document if ifMatch equals the current ETag and body
// passes the kind's validation. The stored form is body re-indented with
// two spaces; the returned ETag is the hash of those bytes.
func (s *Store) Write(ctx context.Context, kind Kind, ifMatch string, body []byte, opts WriteOptions) (*Document, error) {
	ifMatch = normalizeETag(ifMatch)
	if ifMatch == "" {
		return nil, ErrMissingIfMatch
	}
	current, err := s.Read(ctx, kind)
	if err != nil {
		return nil, err
	}
	if ifMatch != current.ETag {
		return nil, ErrPreconditionFailed
	}

	if len(bytes.TrimSpace(body)) == 0 {
		body = kind.Empty
	}
	if !json.Valid(body) {
		return nil, ErrInvalidJSON
	}
	if err := kind.validate(body, current.Body, opts); err != nil {
		return nil, err
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		return nil, ErrInvalidJSON
	}
	return s.put(ctx, kind, pretty.Bytes(), opts)
}

// Update applies mutate to the current body and stores the result without
// a caller precondition. The store is re-checked just before writing and
// the mutation is retried if another writer got there first.
func (s *Store) Update(ctx context.Context, kind Kind, opts WriteOptions, mutate func(current []byte) ([]byte, error)) (*Document, error) {
	for attempt := 0; attempt < updateAttempts; attempt++ {
		current, err := s.Read(ctx, kind)
		if err != nil {
			return nil, err
		}
		next, err := mutate(current.Body)
		if err != nil {
			return nil, err
		}
		if err := kind.validate(next, current.Body, WriteOptions{AllowEmpty: true}); err != nil {
			return nil, err
		}

		latest, err := s.Read(ctx, kind)
		if err != nil {
			return nil, err
		}
		if latest.ETag != current.ETag {
			s.logger.Debug("document changed during update, retrying", "document", kind.Name, "attempt", attempt+1)
			continue
		}
		return s.put(ctx, kind, next, opts)
	}
	return nil, ErrPreconditionFailed
}

// UpdateRecords is Update for db.json with the array decoded. Rows the
// mutation leaves alone are written back as stored, re-indented only.
func (s *Store) UpdateRecords(ctx context.Context, opts WriteOptions, mutate func(rs *model.Records) error) (*Document, error) {
	return s.Update(ctx, RecordsDoc, opts, func(current []byte) ([]byte, error) {
		var rs model.Records
		if err := json.Unmarshal(current, &rs); err != nil {
			rs = model.Records{}
		}
		if err := mutate(&rs); err != nil {
			return nil, err
		}
		if rs == nil {
			rs = model.Records{}
		}
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rs); err != nil {
			return nil, err
		}
		return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
	})
}

func (s *Store) put(ctx context.Context, kind Kind, body []byte, opts WriteOptions) (*Document, error) {
	if err := s.blobs.Put(ctx, kind.Key, body, blob.ContentTypeJSON); err != nil {
		return nil, fmt.Errorf("write %s: %w", kind.Key, err)
	}
	doc := newDocument(body)

	evt := events.DocumentUpdated{Document: kind.Name, ETag: doc.ETag, Actor: opts.Actor, Cause: opts.Cause}
	if err := s.publisher.Publish(ctx, events.TopicDocumentUpdated, evt); err != nil {
		s.logger.Warn("publish document update failed", "document", kind.Name, "error", err)
	}
	return doc, nil
}

// normalizeETag accepts the bare hex form as well as a quoted or weak
// HTTP entity tag.
func normalizeETag(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "W/")
	return strings.Trim(v, `"`)
}
