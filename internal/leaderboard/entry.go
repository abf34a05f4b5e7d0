// v1
// internal/leaderboard/entry.go
package leaderboard

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Entry is one ranked row of the leaderboard. The typed fields are a
// best-effort reading of the row for display. A decoded row remembers the
// typed keys exactly as sent and marshals them back unchanged, so a row
// passed through verbatim round-trips byte for byte per key. Keys without
// a typed field, "user" included, are kept in Extra.
type Entry struct {
	ID    string
	Name  string
	Score float64
	Rank  int
	Extra map[string]json.RawMessage

	// sent holds the typed keys of a decoded row as they arrived.
	sent    map[string]json.RawMessage
	decoded bool
	// filled marks typed keys synthesized for a row that lacked them.
	filled fieldSet
}

type fieldSet uint8

const (
	fieldID fieldSet = 1 << iota
	fieldName
	fieldScore
	fieldRank
)

const (
	keyID    = "id"
	keyName  = "name"
	keyScore = "score"
	keyRank  = "rank"
	keyUser  = "user"
)

// User returns the "user" field carried by the source row, if it is a
// string.
func (e Entry) User() string {
	raw, ok := e.Extra[keyUser]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// Has reports whether the source row carried key, whatever its value.
func (e Entry) Has(key string) bool {
	if _, ok := e.sent[key]; ok {
		return true
	}
	_, ok := e.Extra[key]
	return ok
}

// UnmarshalJSON decodes a source row. Typed keys are read into their
// fields when the value fits and are always remembered verbatim. A row
// that is not a JSON object decodes to the zero Entry.
func (e *Entry) UnmarshalJSON(data []byte) error {
	*e = Entry{decoded: true}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return err
	}
	for key, raw := range fields {
		switch key {
		case keyID:
			e.ID, _ = decodeID(raw)
		case keyName:
			_ = json.Unmarshal(raw, &e.Name)
		case keyScore:
			e.Score, _ = decodeScore(raw)
		case keyRank:
			e.Rank, _ = decodeRank(raw)
		default:
			if e.Extra == nil {
				e.Extra = make(map[string]json.RawMessage)
			}
			e.Extra[key] = raw
			continue
		}
		if e.sent == nil {
			e.sent = make(map[string]json.RawMessage, 4)
		}
		e.sent[key] = raw
	}
	return nil
}

// MarshalJSON writes Extra and then the typed keys. A decoded row emits
// the typed keys it was sent, unchanged, plus any that were filled in. An
// Entry built in code emits its typed fields, omitting an empty ID or
// Name and a zero Rank.
func (e Entry) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Extra)+4)
	for k, v := range e.Extra {
		out[k] = v
	}

	typed := []struct {
		key   string
		field fieldSet
		value any
		zero  bool
	}{
		{keyID, fieldID, e.ID, e.ID == ""},
		{keyName, fieldName, e.Name, e.Name == ""},
		{keyScore, fieldScore, e.Score, false},
		{keyRank, fieldRank, e.Rank, e.Rank == 0},
	}
	for _, f := range typed {
		switch {
		case !e.decoded:
			if !f.zero {
				out[f.key] = f.value
			} else {
				delete(out, f.key)
			}
		case e.sent[f.key] != nil:
			out[f.key] = e.sent[f.key]
		case e.filled&f.field != 0:
			out[f.key] = f.value
		}
	}
	return json.Marshal(out)
}

func decodeID(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

// decodeScore accepts JSON numbers and numeric strings.
func decodeScore(raw json.RawMessage) (float64, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func decodeRank(raw json.RawMessage) (int, bool) {
	f, ok := decodeScore(raw)
	if !ok || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}
