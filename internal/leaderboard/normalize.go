// v1
// internal/leaderboard/normalize.go
package leaderboard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Shape names the branch Normalize takes for a payload.
type Shape int

const (
	// ShapeUnknown is any payload Normalize rejects.
	ShapeUnknown Shape = iota
	// ShapeRows is a bare JSON array of rows, used verbatim.
	ShapeRows
	// ShapeEnvelope is an object with a "leaderboard" array.
	ShapeEnvelope
	// ShapeData is an object with a "data" array, used verbatim.
	ShapeData
	// ShapeEmpty is null or an empty body.
	ShapeEmpty
)

func (s Shape) String() string {
	switch s {
	case ShapeRows:
		return "rows"
	case ShapeEnvelope:
		return "leaderboard"
	case ShapeData:
		return "data"
	case ShapeEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// ShapeError reports a payload matching none of the accepted shapes. Raw
// keeps the payload so the caller can log it.
type ShapeError struct {
	Raw json.RawMessage
	Err error
}

func (e *ShapeError) Error() string {
	if e.Err != nil {
		return "unexpected leaderboard response shape: " + e.Err.Error()
	}
	return "unexpected leaderboard response shape"
}

func (e *ShapeError) Unwrap() error { return e.Err }

// PlaceholderName is the display name given to rows without name or user.
func PlaceholderName(n int) string {
	return "用户 " + strconv.Itoa(n)
}

// DetectShape reports which branch Normalize will take for raw. Precedence
// is bare array, then "leaderboard", then "data", then null.
func DetectShape(raw json.RawMessage) Shape {
	shape, _ := detect(raw)
	return shape
}

func detect(raw json.RawMessage) (Shape, json.RawMessage) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ShapeEmpty, nil
	}
	switch trimmed[0] {
	case '[':
		return ShapeRows, trimmed
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return ShapeUnknown, nil
		}
		if isArray(obj["leaderboard"]) {
			return ShapeEnvelope, obj["leaderboard"]
		}
		if isArray(obj["data"]) {
			return ShapeData, obj["data"]
		}
	}
	return ShapeUnknown, nil
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// Normalize turns a backend payload into leaderboard entries. Rows from a
// bare array or a "data" array are returned as sent and marshal back
// unchanged. Rows under "leaderboard" get a value for every typed key they
// lack: id becomes "user-<i>", name becomes user or PlaceholderName(i+1),
// score becomes 0 and rank becomes i+1. Null or an empty body yields an
// empty slice. Any other payload yields a *ShapeError. Order is never
// changed.
func Normalize(raw json.RawMessage) ([]Entry, error) {
	shape, rows := detect(raw)
	switch shape {
	case ShapeEmpty:
		return []Entry{}, nil
	case ShapeRows, ShapeData:
		entries, err := decodeRows(rows)
		if err != nil {
			return nil, &ShapeError{Raw: raw, Err: err}
		}
		return entries, nil
	case ShapeEnvelope:
		entries, err := decodeRows(rows)
		if err != nil {
			return nil, &ShapeError{Raw: raw, Err: err}
		}
		for i := range entries {
			applyFallbacks(&entries[i], i)
		}
		return entries, nil
	default:
		return nil, &ShapeError{Raw: raw}
	}
}

func decodeRows(rows json.RawMessage) ([]Entry, error) {
	entries := []Entry{}
	if err := json.Unmarshal(rows, &entries); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	return entries, nil
}

// applyFallbacks fills the typed keys an envelope row did not send. A key
// that is present keeps its value, falsy or not.
func applyFallbacks(e *Entry, i int) {
	if !e.Has(keyID) {
		e.ID = "user-" + strconv.Itoa(i)
		e.filled |= fieldID
	}
	if !e.Has(keyName) {
		if user := e.User(); user != "" {
			e.Name = user
		} else {
			e.Name = PlaceholderName(i + 1)
		}
		e.filled |= fieldName
	}
	if !e.Has(keyScore) {
		e.Score = 0
		e.filled |= fieldScore
	}
	if !e.Has(keyRank) {
		e.Rank = i + 1
		e.filled |= fieldRank
	}
}
