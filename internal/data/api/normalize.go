package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// The review service is not consistent about payload shapes across
// endpoints and versions. The flex* types below accept every observed
// variant so that the wire structs can decode in one pass.

var null = []byte("null")

func isNull(b []byte) bool {
	return len(b) == 0 || bytes.Equal(bytes.TrimSpace(b), null)
}

// flexID accepts 12, "12" and null.
type flexID int64

func (f *flexID) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		v, err := n.Int64()
		if err != nil {
			return fmt.Errorf("id %s: %w", b, err)
		}
		*f = flexID(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("id %s: unsupported type", b)
	}
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("id %q: %w", s, err)
	}
	*f = flexID(v)
	return nil
}

// flexRef accepts a bare id or an embedded object carrying an "id".
type flexRef int64

func (f *flexRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if isNull(b) {
		return nil
	}
	if b[0] == '{' {
		var obj struct {
			ID flexID `json:"id"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		*f = flexRef(obj.ID)
		return nil
	}
	var id flexID
	if err := id.UnmarshalJSON(b); err != nil {
		return err
	}
	*f = flexRef(id)
	return nil
}

// flexString accepts strings, numbers and null.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexString(n.String())
		return nil
	}
	var v bool
	if err := json.Unmarshal(b, &v); err == nil {
		*f = flexString(strconv.FormatBool(v))
		return nil
	}
	return fmt.Errorf("string %s: unsupported type", b)
}

// flexBool accepts true, "true", 1 and null.
type flexBool bool

func (f *flexBool) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		return nil
	}
	var v bool
	if err := json.Unmarshal(b, &v); err == nil {
		*f = flexBool(v)
		return nil
	}
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	switch strings.ToLower(string(s)) {
	case "1", "true", "yes", "y":
		*f = true
	default:
		*f = false
	}
	return nil
}

// flexInt is an optional integer, nil when absent or null.
type flexInt struct {
	Value *int
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		return nil
	}
	var id flexID
	if err := id.UnmarshalJSON(b); err != nil {
		return err
	}
	if id == 0 && bytes.Equal(bytes.TrimSpace(b), []byte(`""`)) {
		return nil
	}
	v := int(id)
	f.Value = &v
	return nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// flexTime accepts RFC 3339 with or without zone, a date, unix seconds and
// null.
type flexTime struct {
	time.Time
}

func (f *flexTime) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("time %s: unsupported type", b)
		}
		secs, err := n.Float64()
		if err != nil {
			return fmt.Errorf("time %s: %w", b, err)
		}
		f.Time = time.Unix(0, int64(secs*float64(time.Second))).UTC()
		return nil
	}
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			f.Time = t
			return nil
		}
	}
	return fmt.Errorf("time %q: unrecognized layout", s)
}

// ptr returns nil for the zero time.
func (f flexTime) ptr() *time.Time {
	if f.IsZero() {
		return nil
	}
	t := f.Time
	return &t
}

// first returns the first non-empty value.
func first[T comparable](vals ...T) T {
	var zero T
	for _, v := range vals {
		if v != zero {
			return v
		}
	}
	return zero
}

// listKeys are the envelope keys list endpoints have been seen to use.
var listKeys = []string{"results", "items", "data", "repositories", "comments", "runs"}

// decodeList decodes a bare array or an enveloped one ({"results": [...]}).
// An empty body or null decodes to an empty slice.
func decodeList[W any](body []byte) ([]W, error) {
	body = bytes.TrimSpace(body)
	if isNull(body) {
		return []W{}, nil
	}

	switch body[0] {
	case '[':
		var out []W
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, err
		}
		if out == nil {
			out = []W{}
		}
		return out, nil
	case '{':
		var env map[string]json.RawMessage
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, err
		}
		for _, k := range listKeys {
			if v, ok := env[k]; ok {
				return decodeList[W](v)
			}
		}
		return nil, fmt.Errorf("object response has no list field")
	default:
		return nil, fmt.Errorf("unexpected list payload")
	}
}

// decodeObject decodes an entity, unwrapping a {"data": {...}} envelope when
// the top level has no id of its own.
func decodeObject[W any](body []byte, dest *W) error {
	body = bytes.TrimSpace(body)
	if isNull(body) {
		return fmt.Errorf("empty response")
	}

	var env map[string]json.RawMessage
	if err := json.Unmarshal(body, &env); err != nil {
		return err
	}
	if _, hasID := env["id"]; !hasID {
		for _, k := range []string{"data", "result"} {
			if inner, ok := env[k]; ok && len(bytes.TrimSpace(inner)) > 0 && bytes.TrimSpace(inner)[0] == '{' {
				return json.Unmarshal(inner, dest)
			}
		}
	}
	return json.Unmarshal(body, dest)
}

func lower(s flexString) string {
	return strings.ToLower(strings.TrimSpace(string(s)))
}
