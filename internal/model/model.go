package model

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Well-known record namespaces.
const (
	PrefixApp    = "app_"
	PrefixWallet = "wallet_"
	PrefixDonate = "donate_"
	PrefixCore   = "coreenginedb_"

	CollectionUsers     = "users"
	CollectionPosts     = "posts"
	CollectionSuperuser = "superuser"
	CollectionBalance   = "balance"
	CollectionLedger    = "ledger"
	CollectionPost      = "post"

	KeyUsername     = "username"
	KeyAvatar       = "avatar"
	KeyPasswordHash = "password_hash"
	KeyPassword     = "password"
	KeyRecovery     = "recovery"
	KeyAmount       = "amount"
	KeyTopup        = "topup"
)

// Record is one attribute row of the entity-attribute-value table stored
// in db.json. (Prefix, Collection, RelID) names an entity; MetaKey names
// the attribute. Fields the server does not interpret are kept in extra
// and written back unchanged. A decoded record that is never modified is
// written back exactly as it was read.
type Record struct {
	ID          string          `json:"id"`
	RelID       int64           `json:"relid"`
	Prefix      string          `json:"prefix"`
	Collection  string          `json:"collection"`
	MetaKey     string          `json:"metakey"`
	MetaValue   json.RawMessage `json:"metavalue,omitempty"`
	CreatedDate string          `json:"createddate,omitempty"`
	UpdatedDate string          `json:"updateddate,omitempty"`

	extra map[string]json.RawMessage

	raw  json.RawMessage
	seen recordFields
}

// recordFields is the comparable form of a record's decoded fields.
type recordFields struct {
	id, prefix, collection, metaKey string
	relID                           int64
	metaValue, created, updated     string
}

func (r *Record) fields() recordFields {
	return recordFields{
		id:         r.ID,
		prefix:     r.Prefix,
		collection: r.Collection,
		metaKey:    r.MetaKey,
		relID:      r.RelID,
		metaValue:  string(r.MetaValue),
		created:    r.CreatedDate,
		updated:    r.UpdatedDate,
	}
}

// Modified reports whether r differs from the element it was decoded from.
// Records built in code always count as modified.
func (r *Record) Modified() bool {
	return r.raw == nil || r.fields() != r.seen
}

var knownFields = map[string]bool{
	"id": true, "relid": true, "prefix": true, "collection": true,
	"metakey": true, "metavalue": true, "createddate": true, "updateddate": true,
}

// NewRecord builds a record with a fresh UUID and both timestamps set to now.
func NewRecord(relID int64, prefix, collection, metaKey string, value any, now time.Time) Record {
	ts := Timestamp(now)
	r := Record{
		ID:          uuid.NewString(),
		RelID:       relID,
		Prefix:      prefix,
		Collection:  collection,
		MetaKey:     metaKey,
		CreatedDate: ts,
		UpdatedDate: ts,
	}
	r.SetValue(value, now)
	return r
}

var dayPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Day formats t as a YYYY-MM-DD partition name for journal and activity keys.
func Day(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// ValidDay reports whether day is a real YYYY-MM-DD date.
func ValidDay(day string) bool {
	if !dayPattern.MatchString(day) {
		return false
	}
	_, err := time.Parse("2006-01-02", day)
	return err == nil
}

// Timestamp formats t the way record dates are stored.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Record{}
	r.ID = looseString(raw["id"])
	r.RelID, _ = looseInt(raw["relid"])
	r.Prefix = looseString(raw["prefix"])
	r.Collection = looseString(raw["collection"])
	r.MetaKey = looseString(raw["metakey"])
	if v, ok := raw["metavalue"]; ok && string(v) != "null" {
		r.MetaValue = v
	}
	r.CreatedDate = looseString(raw["createddate"])
	r.UpdatedDate = looseString(raw["updateddate"])
	for k, v := range raw {
		if !knownFields[k] {
			if r.extra == nil {
				r.extra = make(map[string]json.RawMessage)
			}
			r.extra[k] = v
		}
	}
	r.raw = append(json.RawMessage(nil), data...)
	r.seen = r.fields()
	return nil
}

func (r Record) MarshalJSON() ([]byte, error) {
	if !r.Modified() {
		return r.raw, nil
	}
	type plain Record
	base, err := json.Marshal(plain(r))
	if err != nil || len(r.extra) == 0 {
		return base, err
	}
	extra, err := json.Marshal(r.extra)
	if err != nil {
		return nil, err
	}
	// Splice the extra object's members onto the end of the base object.
	return append(append(base[:len(base)-1], ','), extra[1:]...), nil
}

// ValueString returns the metavalue as text: JSON strings are unquoted,
// anything else is returned as its JSON encoding.
func (r Record) ValueString() string {
	return looseString(r.MetaValue)
}

// ValueNumber interprets the metavalue as a number; non-numeric values are 0.
func (r Record) ValueNumber() float64 {
	s := strings.TrimSpace(r.ValueString())
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// IDNumber reports the record id as an integer when it is one.
func (r Record) IDNumber() (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(r.ID), 10, 64)
	return n, err == nil
}

// SetValue replaces the metavalue and bumps UpdatedDate.
func (r *Record) SetValue(v any, now time.Time) {
	b, err := json.Marshal(v)
	if err != nil {
		b = []byte(`""`)
	}
	r.MetaValue = b
	r.UpdatedDate = Timestamp(now)
}

func looseString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func looseInt(raw json.RawMessage) (int64, bool) {
	s := strings.TrimSpace(looseString(raw))
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}

// Activity is one audit record, written per request.
type Activity struct {
	Timestamp string `json:"ts"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	Status    int    `json:"status"`
	Size      int    `json:"size"`
	User      string `json:"user"`
	IP        string `json:"ip"`
	Reason    string `json:"reason"`
}

// RateState is the persisted counter for one (ip, purpose) window.
type RateState struct {
	Count int   `json:"count"`
	TS    int64 `json:"ts"`
}
