// v0
// internal/fetch/fetch.go
package fetch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/josecookai/clawdmetrics/internal/supabase"
)

// ProcedureName is the remote procedure and function that serve the
// leaderboard.
const ProcedureName = "get_leaderboard"

// Fetcher retrieves the raw leaderboard payload. Implementations make
// exactly one outbound call per Fetch and never retry. A failure is a
// *supabase.RemoteError and never comes with a partial payload.
type Fetcher interface {
	Fetch(ctx context.Context, daysAgo int) (json.RawMessage, error)
	Transport() supabase.Transport
}

// Caller is the subset of supabase.Client the fetchers use.
type Caller interface {
	RPC(ctx context.Context, name string, params any) (json.RawMessage, error)
	Invoke(ctx context.Context, name string, body any) (json.RawMessage, error)
}

type params struct {
	DaysAgo int `json:"days_ago"`
}

// RPCFetcher calls the get_leaderboard database procedure.
type RPCFetcher struct {
	c Caller
}

// NewRPCFetcher wraps c.
func NewRPCFetcher(c Caller) *RPCFetcher { return &RPCFetcher{c: c} }

// Fetch sends {"days_ago": daysAgo} as the procedure arguments. daysAgo is
// passed through unchecked.
func (f *RPCFetcher) Fetch(ctx context.Context, daysAgo int) (json.RawMessage, error) {
	raw, err := f.c.RPC(ctx, ProcedureName, params{DaysAgo: daysAgo})
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// Transport reports supabase.TransportRPC.
func (f *RPCFetcher) Transport() supabase.Transport { return supabase.TransportRPC }

// FunctionFetcher invokes the deployed get_leaderboard function.
type FunctionFetcher struct {
	c Caller
}

// NewFunctionFetcher wraps c.
func NewFunctionFetcher(c Caller) *FunctionFetcher { return &FunctionFetcher{c: c} }

// Fetch invokes the function. The function needs no body; days_ago is sent
// anyway so a database-backed function can honour it.
func (f *FunctionFetcher) Fetch(ctx context.Context, daysAgo int) (json.RawMessage, error) {
	raw, err := f.c.Invoke(ctx, ProcedureName, params{DaysAgo: daysAgo})
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// Transport reports supabase.TransportFunction.
func (f *FunctionFetcher) Transport() supabase.Transport { return supabase.TransportFunction }

// New picks the fetcher for transport. An empty transport means rpc.
func New(transport string, c Caller) (Fetcher, error) {
	switch supabase.Transport(transport) {
	case "", supabase.TransportRPC:
		return NewRPCFetcher(c), nil
	case supabase.TransportFunction:
		return NewFunctionFetcher(c), nil
	default:
		return nil, fmt.Errorf("unsupported transport %q", transport)
	}
}
