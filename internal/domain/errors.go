package domain

import (
	"errors"
	"strings"
)

// Kind classifies failures surfaced by the ledger gateway.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindLedgerUnavailable   Kind = "ledger_unavailable"
	KindTransactionRejected Kind = "transaction_rejected"
	KindTransactionFailed   Kind = "transaction_failed"
	KindNotFound            Kind = "not_found"
	KindNotOwner            Kind = "not_owner"
)

// Cause subdivides KindTransactionFailed.
type Cause string

const (
	CauseNone                Cause = ""
	CauseInsufficientFunds   Cause = "insufficient_funds"
	CauseUnauthorized        Cause = "unauthorized"
	CauseUnsupportedMethod   Cause = "unsupported_method"
	CauseInternalNodeError   Cause = "internal_node_error"
	CauseResourceUnavailable Cause = "resource_unavailable"
	CauseReverted            Cause = "reverted"
	CauseNetwork             Cause = "network"
)

// Code is a machine-readable error code. Codes key the localized message catalog.
type Code string

const (
	CodeUnknown Code = "UNKNOWN"

	// Campaign form
	CodeOwnerMismatch       Code = "CAMPAIGN_OWNER_MISMATCH"
	CodeTitleRequired       Code = "CAMPAIGN_TITLE_REQUIRED"
	CodeDescriptionRequired Code = "CAMPAIGN_DESCRIPTION_REQUIRED"
	CodeTargetInvalid       Code = "CAMPAIGN_TARGET_INVALID"
	CodeTargetTooSmall      Code = "CAMPAIGN_TARGET_TOO_SMALL"
	CodeTargetTooLarge      Code = "CAMPAIGN_TARGET_TOO_LARGE"
	CodeDeadlineRequired    Code = "CAMPAIGN_DEADLINE_REQUIRED"
	CodeDeadlineInvalid     Code = "CAMPAIGN_DEADLINE_INVALID"
	CodeDeadlineTooSoon     Code = "CAMPAIGN_DEADLINE_TOO_SOON"
	CodeDeadlineTooFar      Code = "CAMPAIGN_DEADLINE_TOO_FAR"
	CodeImageInvalid        Code = "CAMPAIGN_IMAGE_INVALID"
	CodeCampaignIDInvalid   Code = "CAMPAIGN_ID_INVALID"
	CodeAccountInvalid      Code = "ACCOUNT_INVALID"

	// Donations
	CodeDonationAmountInvalid Code = "DONATION_AMOUNT_INVALID"
	CodeDonationTooSmall      Code = "DONATION_AMOUNT_TOO_SMALL"
	CodeCampaignExpired       Code = "DONATION_CAMPAIGN_EXPIRED"
	CodeCampaignClosed        Code = "DONATION_CAMPAIGN_CLOSED"
	CodeOwnCampaign           Code = "DONATION_OWN_CAMPAIGN"

	// Ledger
	CodeLedgerUnavailable     Code = "LEDGER_UNAVAILABLE"
	CodeTxRejected            Code = "TX_REJECTED"
	CodeTxInsufficientFunds   Code = "TX_INSUFFICIENT_FUNDS"
	CodeTxUnauthorized        Code = "TX_UNAUTHORIZED"
	CodeTxUnsupportedMethod   Code = "TX_UNSUPPORTED_METHOD"
	CodeTxInternalNodeError   Code = "TX_INTERNAL_NODE_ERROR"
	CodeTxResourceUnavailable Code = "TX_RESOURCE_UNAVAILABLE"
	CodeTxReverted            Code = "TX_REVERTED"
	CodeTxNetwork             Code = "TX_NETWORK"
	CodeTxFailed              Code = "TX_FAILED"
	CodeNotOwner              Code = "CAMPAIGN_NOT_OWNER"
	CodeNotFound              Code = "NOT_FOUND"
)

// FieldError is a field-level validation hint.
type FieldError struct {
	Field string
	Code  Code
}

// Error is the normalized error returned across the gateway boundary.
type Error struct {
	Kind    Kind
	Cause   Cause
	Code    Code
	Op      string
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
		if e.Cause != CauseNone {
			msg += " (" + string(e.Cause) + ")"
		}
	}
	b.WriteString(msg)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if len(e.Fields) > 0 {
		parts := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			parts = append(parts, f.Field+"="+string(f.Code))
		}
		b.WriteString(" [" + strings.Join(parts, ", ") + "]")
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinel errors by kind, and by cause when the sentinel has one.
// A not-owner revert is also a failed transaction.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind == KindTransactionFailed && t.Cause == CauseNone && e.Kind == KindNotOwner {
		return true
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Cause == CauseNone || t.Cause == e.Cause
}

// Retryable reports whether a user-initiated retry makes sense.
func (e *Error) Retryable() bool {
	return e.Kind == KindTransactionFailed || e.Kind == KindLedgerUnavailable
}

// Field returns the code recorded for the named field, if any.
func (e *Error) Field(name string) (Code, bool) {
	for _, f := range e.Fields {
		if f.Field == name {
			return f.Code, true
		}
	}
	return "", false
}

var (
	ErrValidation          = &Error{Kind: KindValidation}
	ErrLedgerUnavailable   = &Error{Kind: KindLedgerUnavailable}
	ErrTransactionRejected = &Error{Kind: KindTransactionRejected}
	ErrTransactionFailed   = &Error{Kind: KindTransactionFailed}
	ErrNotOwner            = &Error{Kind: KindNotOwner}
	ErrNotFound            = &Error{Kind: KindNotFound}

	ErrInsufficientFunds = &Error{Kind: KindTransactionFailed, Cause: CauseInsufficientFunds}
)

// NewValidationError builds a validation error from field hints.
func NewValidationError(op string, fields ...FieldError) *Error {
	return &Error{
		Kind:    KindValidation,
		Code:    firstCode(fields),
		Op:      op,
		Message: "invalid input",
		Fields:  fields,
	}
}

// Unavailable reports a missing account or contract handle.
func Unavailable(op, reason string) *Error {
	return &Error{
		Kind:    KindLedgerUnavailable,
		Code:    CodeLedgerUnavailable,
		Op:      op,
		Message: reason,
	}
}

// AsError extracts a *Error from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or "" when err is not a gateway error.
func KindOf(err error) Kind {
	if e, ok := AsError(err); ok {
		return e.Kind
	}
	return ""
}

func firstCode(fields []FieldError) Code {
	if len(fields) == 0 {
		return CodeUnknown
	}
	return fields[0].Code
}
