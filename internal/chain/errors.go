package chain

import (
	stdjson "encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"
)

// ErrorKind classifies a fetch failure.
type ErrorKind int

const (
	KindNetwork   ErrorKind = iota + 1 // endpoint unreachable, timeout, HTTP failure
	KindMalformed                      // response did not have the expected shape
	KindUpstream                       // the API answered and reported an error itself
	KindNoAddress                      // nothing connected; never shown to the user
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindMalformed:
		return "malformed"
	case KindUpstream:
		return "upstream"
	case KindNoAddress:
		return "no-address"
	default:
		return "unknown"
	}
}

// MarshalText lets ErrorKind render as its name in JSON.
func (k ErrorKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText is the inverse of MarshalText. Unknown names decode to zero.
func (k *ErrorKind) UnmarshalText(b []byte) error {
	*k = 0
	for _, c := range []ErrorKind{KindNetwork, KindMalformed, KindUpstream, KindNoAddress} {
		if c.String() == string(b) {
			*k = c
		}
	}
	return nil
}

// ErrNoAddress is returned when a fetch is asked for an empty address.
var ErrNoAddress = &FetchError{Kind: KindNoAddress, Op: "fetch", Msg: "no address connected"}

// FetchError is the error returned by Client and Explorer fetches.
// Error() is the human-readable message only, e.g. "Rate limit exceeded".
type FetchError struct {
	Kind ErrorKind
	Op   string // "balance", "transactions", "gas price", ...
	Msg  string
	Err  error
}

func (e *FetchError) Error() string { return e.Msg }

func (e *FetchError) Unwrap() error { return e.Err }

// KindOf returns the kind of err. Errors that are not FetchErrors are treated
// as network failures.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindNetwork
}

func networkError(op string, err error) *FetchError {
	return &FetchError{Kind: KindNetwork, Op: op, Msg: fmt.Sprintf("%s request failed: %v", op, err), Err: err}
}

func malformedError(op, msg string, err error) *FetchError {
	return &FetchError{Kind: KindMalformed, Op: op, Msg: msg, Err: err}
}

func upstreamError(op, msg string) *FetchError {
	return &FetchError{Kind: KindUpstream, Op: op, Msg: msg}
}

// classifyRPC maps an error from the go-ethereum RPC client to a FetchError.
func classifyRPC(op string, err error) *FetchError {
	var (
		rpcErr  rpc.Error
		synErr  *stdjson.SyntaxError
		typeErr *stdjson.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &rpcErr):
		return &FetchError{Kind: KindUpstream, Op: op, Msg: rpcErr.Error(), Err: err}
	case errors.As(err, &synErr), errors.As(err, &typeErr), errors.Is(err, rpc.ErrNoResult):
		return malformedError(op, fmt.Sprintf("malformed %s response: %v", op, err), err)
	default:
		return networkError(op, err)
	}
}
