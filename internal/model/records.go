package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"unicode/utf8"
)

// Structural limits for db.json records.
const (
	MaxCollectionLen = 64
	MaxMetaKeyLen    = 64
	MaxMetaValueLen  = 16 * 1024
)

var (
	ErrSchemaInvalid = errors.New("schema_invalid")

	prefixPattern = regexp.MustCompile(`^[a-z_]{1,32}$`)
)

// Records is the decoded db.json array.
type Records []Record

// Query selects records. Empty strings and nil pointers match anything.
type Query struct {
	Prefix     string
	Collection string
	MetaKey    string
	RelID      *int64
	ID         *int64
	Value      *string
}

// Rel and Str build optional Query fields.
func Rel(n int64) *int64   { return &n }
func Str(s string) *string { return &s }

func (q Query) matches(r *Record) bool {
	if q.Prefix != "" && r.Prefix != q.Prefix {
		return false
	}
	if q.Collection != "" && r.Collection != q.Collection {
		return false
	}
	if q.MetaKey != "" && r.MetaKey != q.MetaKey {
		return false
	}
	if q.RelID != nil && r.RelID != *q.RelID {
		return false
	}
	if q.ID != nil {
		if n, ok := r.IDNumber(); !ok || n != *q.ID {
			return false
		}
	}
	if q.Value != nil && r.ValueString() != *q.Value {
		return false
	}
	return true
}

// Find returns a pointer to the first matching record, or nil.
func (rs Records) Find(q Query) *Record {
	for i := range rs {
		if q.matches(&rs[i]) {
			return &rs[i]
		}
	}
	return nil
}

// Filter returns the matching records in order.
func (rs Records) Filter(q Query) Records {
	out := Records{}
	for i := range rs {
		if q.matches(&rs[i]) {
			out = append(out, rs[i])
		}
	}
	return out
}

// Remove drops every matching record and reports how many were removed.
func (rs *Records) Remove(q Query) int {
	kept := (*rs)[:0]
	removed := 0
	for _, r := range *rs {
		if q.matches(&r) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	*rs = kept
	return removed
}

// publicRules is the allow-list for the unauthenticated snapshot.
var publicRules = []Query{
	{Prefix: PrefixApp, Collection: CollectionPosts},
	{Prefix: PrefixApp, Collection: CollectionUsers, MetaKey: KeyUsername},
	{Prefix: PrefixApp, Collection: CollectionUsers, MetaKey: KeyAvatar},
	{Prefix: PrefixDonate, Collection: CollectionPost},
}

// Public returns the records that may be served without credentials.
func (rs Records) Public() Records {
	out := Records{}
	for i := range rs {
		for _, q := range publicRules {
			if q.matches(&rs[i]) {
				out = append(out, rs[i])
				break
			}
		}
	}
	return out
}

// ValidateRecord applies the structural checks to one raw array element.
func ValidateRecord(raw json.RawMessage) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return fmt.Errorf("%w: not an object", ErrSchemaInvalid)
	}
	for _, name := range []string{"id", "relid", "prefix", "collection", "metakey"} {
		if _, ok := fields[name]; !ok {
			return fmt.Errorf("%w: missing %s", ErrSchemaInvalid, name)
		}
	}
	if looseString(fields["id"]) == "" {
		return fmt.Errorf("%w: empty id", ErrSchemaInvalid)
	}
	if n, ok := looseInt(fields["relid"]); !ok || n < 0 {
		return fmt.Errorf("%w: relid must be a non-negative integer", ErrSchemaInvalid)
	}
	if !prefixPattern.MatchString(looseString(fields["prefix"])) {
		return fmt.Errorf("%w: prefix must match [a-z_]{1,32}", ErrSchemaInvalid)
	}
	if utf8.RuneCountInString(looseString(fields["collection"])) > MaxCollectionLen {
		return fmt.Errorf("%w: collection longer than %d", ErrSchemaInvalid, MaxCollectionLen)
	}
	if utf8.RuneCountInString(looseString(fields["metakey"])) > MaxMetaKeyLen {
		return fmt.Errorf("%w: metakey longer than %d", ErrSchemaInvalid, MaxMetaKeyLen)
	}
	if metaValueLen(fields["metavalue"]) > MaxMetaValueLen {
		return fmt.Errorf("%w: metavalue larger than %d bytes", ErrSchemaInvalid, MaxMetaValueLen)
	}
	return nil
}

// metaValueLen is the length of a string value itself, or of the compact
// JSON serialization for any other value.
func metaValueLen(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 2
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return len(s)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return len(raw)
	}
	compact, err := json.Marshal(v)
	if err != nil {
		return len(raw)
	}
	return len(compact)
}

// ValidateRecords checks every element; one bad record rejects the set.
func ValidateRecords(elems []json.RawMessage) error {
	for i, e := range elems {
		if err := ValidateRecord(e); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	return nil
}
