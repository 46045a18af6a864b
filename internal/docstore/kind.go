package docstore

import (
	"encoding/json"

	"github.com/raakeshmj/coreenginedb/internal/model"
)

// Kind describes one stored JSON document: where it lives, what an empty
// document looks like and which payloads it accepts.
type Kind struct {
	Name  string
	Key   string
	Empty []byte

	// shape reports whether stored bytes have the document's top-level type.
	shape func(body []byte) bool
	// validate checks a replacement body against the current body.
	validate func(next, current []byte, opts WriteOptions) error
}

var (
	ConfigDoc = Kind{
		Name:     "config",
		Key:      "config.json",
		Empty:    []byte("{}"),
		shape:    isObject,
		validate: validateConfig,
	}
	RecordsDoc = Kind{
		Name:     "db",
		Key:      "db.json",
		Empty:    []byte("[]"),
		shape:    isArray,
		validate: validateRecords,
	}
)

func isObject(body []byte) bool {
	var m map[string]json.RawMessage
	return json.Unmarshal(body, &m) == nil && m != nil
}

func isArray(body []byte) bool {
	var a []json.RawMessage
	return json.Unmarshal(body, &a) == nil && a != nil
}

func validateConfig(next, _ []byte, _ WriteOptions) error {
	if !isObject(next) {
		return ErrExpectedObject
	}
	return nil
}

func validateRecords(next, current []byte, opts WriteOptions) error {
	var elems []json.RawMessage
	if err := json.Unmarshal(next, &elems); err != nil || elems == nil {
		return ErrExpectedArray
	}
	if err := model.ValidateRecords(elems); err != nil {
		return err
	}
	if len(elems) == 0 && !opts.AllowEmpty {
		var cur []json.RawMessage
		if json.Unmarshal(current, &cur) == nil && len(cur) > 0 {
			return ErrEmptyWriteDenied
		}
	}
	return nil
}
