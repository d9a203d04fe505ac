// Package chainerr defines the sentinel error kinds of §7: every failure
// the core can surface is one of these, usable with errors.Is/errors.As.
package chainerr

import "errors"

var (
	// ErrInvalidAddress is the sentinel for caller-supplied hex that does
	// not parse as a 20-byte address. No function in this module returns
	// it: the registry takes parsed addresses, and cmd/streamer parses with
	// common.HexToAddress, which does not validate its input.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrDiscoveryEmpty means neither DEX pools nor curve residency were
	// found for a token; terminal for that token's streamer.
	ErrDiscoveryEmpty = errors.New("no venue found for token")

	// ErrTransientRpc wraps a single failed RPC call that the caller
	// should log and continue past.
	ErrTransientRpc = errors.New("transient rpc failure")

	// ErrDecodeFailure marks a malformed or unexpected log; the decoder
	// logs and skips the event.
	ErrDecodeFailure = errors.New("log decode failure")

	// ErrOracleUnavailable marks a failed liquidity lookup; candidates are
	// included anyway so monitoring is never blocked on the oracle.
	ErrOracleUnavailable = errors.New("liquidity oracle unavailable")

	// ErrAlreadyWatching is returned by the registry when adding a token
	// that already has a live supervisor.
	ErrAlreadyWatching = errors.New("token already watched")

	// ErrNotWatching is returned by the registry when removing a token
	// with no live supervisor.
	ErrNotWatching = errors.New("token not watched")

	// ErrStreamEnded marks an upstream subscription that closed; the
	// owning task exits without reconnecting.
	ErrStreamEnded = errors.New("upstream log stream ended")
)

// Transient wraps err as an ErrTransientRpc, preserving err for errors.Is/As.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	return &wrapped{op: op, sentinel: ErrTransientRpc, cause: err}
}

// Decode wraps err as an ErrDecodeFailure.
func Decode(op string, err error) error {
	if err == nil {
		return nil
	}
	return &wrapped{op: op, sentinel: ErrDecodeFailure, cause: err}
}

type wrapped struct {
	op       string
	sentinel error
	cause    error
}

func (w *wrapped) Error() string {
	if w.cause == nil {
		return w.op + ": " + w.sentinel.Error()
	}
	return w.op + ": " + w.sentinel.Error() + ": " + w.cause.Error()
}

func (w *wrapped) Unwrap() []error {
	return []error{w.sentinel, w.cause}
}
