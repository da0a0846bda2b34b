// Package signalerr classifies failures of the watchdog's external
// collaborators into the transport / parse / actuation taxonomy.
//
// A marker that is merely absent from the node's output is not an error and
// never passes through this package.
package signalerr

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strconv"
	"strings"

	"github.com/emperorhan/node-watchdog/internal/circuitbreaker"
)

type Kind string

const (
	KindTransport Kind = "transport"
	KindParse     Kind = "parse"
	KindActuation Kind = "actuation"
	KindUnknown   Kind = "unknown"
)

type Decision struct {
	Kind   Kind
	Reason string
}

type classifiedError struct {
	err    error
	kind   Kind
	reason string
}

func (e *classifiedError) Error() string {
	return e.err.Error()
}

func (e *classifiedError) Unwrap() error {
	return e.err
}

func mark(err error, kind Kind) error {
	if err == nil {
		return nil
	}
	return &classifiedError{err: err, kind: kind, reason: "explicit_" + string(kind)}
}

// Transport marks err as a failure to reach a dependency.
func Transport(err error) error { return mark(err, KindTransport) }

// Parse marks err as a reachable dependency returning malformed data.
func Parse(err error) error { return mark(err, KindParse) }

// Actuation marks err as a failed restart command.
func Actuation(err error) error { return mark(err, KindActuation) }

// KindOf is shorthand for Classify(err).Kind.
func KindOf(err error) Kind {
	return Classify(err).Kind
}

func Classify(err error) Decision {
	if err == nil {
		return Decision{Kind: KindUnknown, Reason: "nil_error"}
	}

	var marked *classifiedError
	if errors.As(err, &marked) {
		return Decision{Kind: marked.kind, Reason: marked.reason}
	}

	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		return Decision{Kind: KindTransport, Reason: "circuit_open"}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Decision{Kind: KindTransport, Reason: "context_deadline_exceeded"}
	}
	if errors.Is(err, context.Canceled) {
		return Decision{Kind: KindTransport, Reason: "context_canceled"}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return Decision{Kind: KindTransport, Reason: "net_timeout"}
		}
		return Decision{Kind: KindTransport, Reason: "net_error"}
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return Decision{Kind: KindParse, Reason: "json_syntax"}
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return Decision{Kind: KindParse, Reason: "json_type"}
	}
	var numErr *strconv.NumError
	if errors.As(err, &numErr) {
		return Decision{Kind: KindParse, Reason: "number_syntax"}
	}

	lower := strings.ToLower(err.Error())
	if containsAny(lower, parseMessageTokens) {
		return Decision{Kind: KindParse, Reason: "message_parse"}
	}
	if containsAny(lower, transportMessageTokens) {
		return Decision{Kind: KindTransport, Reason: "message_transport"}
	}

	return Decision{Kind: KindUnknown, Reason: "unclassified"}
}

func containsAny(msg string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(msg, token) {
			return true
		}
	}
	return false
}

var transportMessageTokens = []string{
	"timeout",
	"timed out",
	"unavailable",
	"connection reset",
	"connection refused",
	"broken pipe",
	"no such host",
	"network is unreachable",
	"http status",
	"cannot connect to the docker daemon",
	"eof",
}

var parseMessageTokens = []string{
	"unmarshal",
	"invalid hex",
	"missing block number",
	"parse error",
	"malformed",
}
