package service

import (
	"errors"
	"fmt"

	"github.com/sangini/invoicehub/lib/money"
)

// Kind classifies core errors so callers can render a status code without
// string matching. Every failure is scoped to one operation on one entity;
// nothing here is fatal to the process.
type Kind string

const (
	KindValidation           Kind = "validation"
	KindStateConflict        Kind = "state_conflict"
	KindInsufficientResource Kind = "insufficient_resource"
	KindExternalDependency   Kind = "external_dependency"
	KindNotFound             Kind = "not_found"
	KindUnauthorized         Kind = "unauthorized"
)

// Error is the core error type: a kind plus the context a caller needs to
// recover (the entity's current status for conflicts, the actually
// available amount for overdraws).
type Error struct {
	Kind    Kind
	Code    string
	Message string

	// CurrentStatus is set for state conflicts so the caller can decide
	// whether to refresh and retry.
	CurrentStatus string

	// Available is set for insufficient-resource errors so the UI can
	// offer a corrected amount.
	Available money.Money
}

func (e *Error) Error() string {
	if e.CurrentStatus != "" {
		return fmt.Sprintf("%s (status: %s)", e.Message, e.CurrentStatus)
	}
	return e.Message
}

// IsKind reports whether err is a core error of the given kind.
func IsKind(err error, kind Kind) bool {
	var coreErr *Error
	return errors.As(err, &coreErr) && coreErr.Kind == kind
}

func validationError(code, format string, a ...interface{}) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: fmt.Sprintf(format, a...)}
}

func stateConflictError(code, status, format string, a ...interface{}) *Error {
	return &Error{Kind: KindStateConflict, Code: code, CurrentStatus: status, Message: fmt.Sprintf(format, a...)}
}

func insufficientError(code string, available money.Money, format string, a ...interface{}) *Error {
	return &Error{Kind: KindInsufficientResource, Code: code, Available: available, Message: fmt.Sprintf(format, a...)}
}

func externalDependencyError(code, format string, a ...interface{}) *Error {
	return &Error{Kind: KindExternalDependency, Code: code, Message: fmt.Sprintf(format, a...)}
}

func notFoundError(code, format string, a ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: fmt.Sprintf(format, a...)}
}

func unauthorizedError(code, format string, a ...interface{}) *Error {
	return &Error{Kind: KindUnauthorized, Code: code, Message: fmt.Sprintf(format, a...)}
}

// Stable error codes surfaced to API clients.
const (
	CodeInvalidAuctionParams = "invalid_auction_params"
	CodeInsufficientTokens   = "insufficient_tokens"
	CodeInvoiceNotFundable   = "invoice_not_fundable"
	CodeAuctionEnded         = "auction_ended"
	CodeInvalidInvoiceStatus = "invalid_invoice_status"
	CodeOrderNotFillable     = "order_not_fillable"
	CodeOrderAlreadyTerminal = "order_already_terminal"
	CodeNotOrderOwner        = "not_order_owner"
	CodeMissingTxRef         = "missing_tx_ref"
	CodeInsufficientPayment  = "insufficient_payment"
	CodeInvoiceNotFound      = "invoice_not_found"
	CodeOrderNotFound        = "order_not_found"
	CodeKycRequired          = "kyc_required"
	CodeCannotRevoke         = "cannot_revoke"
	CodeNotDisputed          = "not_disputed"
	CodeDisputeNotFound      = "dispute_not_found"
	CodeAlreadyClaimed       = "already_claimed"
	CodeNotDefaulted         = "not_defaulted"
	CodeInsufficientPool     = "insufficient_insurance_pool"
	CodeBadArguments         = "bad_arguments"
)
