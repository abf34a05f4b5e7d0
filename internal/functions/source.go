// v0
// internal/functions/source.go
package functions

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Row is one leaderboard row as the endpoint serves it.
type Row struct {
	ID    string  `json:"id,omitempty" yaml:"id"`
	Name  string  `json:"name,omitempty" yaml:"name"`
	User  string  `json:"user,omitempty" yaml:"user"`
	Score float64 `json:"score" yaml:"score"`
	Rank  int     `json:"rank" yaml:"rank"`
}

// Envelope is the {"leaderboard": [...]} document.
type Envelope struct {
	Leaderboard []Row `json:"leaderboard"`
}

// Source produces the JSON document the endpoint returns. daysAgo is the
// caller's lookback; sources without timestamps ignore it.
type Source interface {
	Leaderboard(ctx context.Context, daysAgo int) (any, error)
	Name() string
}

// DefaultRows is the bare-array mock payload.
func DefaultRows() []Row {
	return []Row{
		{ID: "1", Name: "用户1", Score: 1000, Rank: 1},
		{ID: "2", Name: "用户2", Score: 950, Rank: 2},
		{ID: "3", Name: "用户3", Score: 850, Rank: 3},
		{ID: "4", Name: "用户4", Score: 750, Rank: 4},
		{ID: "5", Name: "用户5", Score: 650, Rank: 5},
		{ID: "6", Name: "用户6", Score: 550, Rank: 6},
		{ID: "7", Name: "用户7", Score: 450, Rank: 7},
		{ID: "8", Name: "用户8", Score: 350, Rank: 8},
	}
}

// DefaultEnvelopeRows is the enveloped mock payload, keyed by user.
func DefaultEnvelopeRows() []Row {
	return []Row{
		{Rank: 1, User: "alice", Score: 1200},
		{Rank: 2, User: "bob", Score: 1100},
		{Rank: 3, User: "carol", Score: 900},
	}
}

// MockSource serves fixed rows either as a bare array or inside an
// envelope.
type MockSource struct {
	Envelope bool
	Rows     []Row
}

// NewMockSource returns the built-in rows for the shape.
func NewMockSource(envelope bool) *MockSource {
	if envelope {
		return &MockSource{Envelope: true, Rows: DefaultEnvelopeRows()}
	}
	return &MockSource{Rows: DefaultRows()}
}

// Name identifies the source in logs.
func (m *MockSource) Name() string {
	if m.Envelope {
		return "mock_envelope"
	}
	return "mock_rows"
}

// Leaderboard returns a copy of the rows in the configured shape.
func (m *MockSource) Leaderboard(context.Context, int) (any, error) {
	rows := append([]Row{}, m.Rows...)
	if m.Envelope {
		return Envelope{Leaderboard: rows}, nil
	}
	return rows, nil
}

// Fixture is the YAML document accepted by LoadFixture.
type Fixture struct {
	// Shape optionally overrides the configured mock shape: rows or envelope.
	Shape string `yaml:"shape"`
	Rows  []Row  `yaml:"rows"`
}

// LoadFixture reads mock rows from a YAML file.
func LoadFixture(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("read fixture: %w", err)
	}
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Fixture{}, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	switch f.Shape {
	case "", "rows", "envelope":
	default:
		return Fixture{}, fmt.Errorf("fixture %s: unsupported shape %q", path, f.Shape)
	}
	return f, nil
}
