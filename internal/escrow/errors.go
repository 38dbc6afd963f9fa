package escrow

import (
	"errors"
	"fmt"
)

// Kind is the stable failure category callers branch on. Financial failures
// must never be presented like lookup failures, so the kind travels with the
// error instead of being squashed into a string.
type Kind string

const (
	KindGatewayError       Kind = "gateway_error"
	KindVerificationFailed Kind = "verification_failed"
	KindAlreadyProcessed   Kind = "already_processed"
	KindRecipientNotFound  Kind = "recipient_not_found"
	KindClientNotFound     Kind = "client_not_found"
	KindDeveloperNotFound  Kind = "developer_not_found"
	KindProjectNotFound    Kind = "project_not_found"
	KindTaskNotFound       Kind = "task_not_found"
	KindInsufficientFunds  Kind = "insufficient_funds"
	KindEscrowCreditFailed Kind = "escrow_credit_failed"
	KindDuplicateReference Kind = "duplicate_reference"
	KindUnauthorized       Kind = "unauthorized"
	KindRecordFailed       Kind = "record_failed"
)

// Error is the engine's structured failure. For failures that happen after a
// first leg was applied, Compensated reports whether the reversal landed;
// when it did not, the movement is escalated for repair and the caller-facing
// layer must show the "funds not yet reconciled, contact support" state.
type Error struct {
	Kind        Kind
	Msg         string
	Compensated bool
	Err         error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the failure kind, or "" for errors the engine did not
// classify.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func wrapError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}
