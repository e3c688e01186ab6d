package ledger

import (
	"context"
	"errors"
	"net"
	"strings"

	"crowdfund/internal/domain"
)

type codedError interface {
	ErrorCode() int
}

// geth reports "execution reverted" with JSON-RPC code 3.
const codeExecutionReverted = 3

var notOwnerMarkers = []string{"not owner", "only owner", "not the owner", "caller is not the owner", "notowner"}

// normalizeError maps provider failures onto the gateway taxonomy. Errors that
// are already normalized pass through unchanged.
func normalizeError(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := domain.AsError(err); ok {
		return err
	}
	lower := strings.ToLower(err.Error())

	if containsAny(lower, notOwnerMarkers) {
		return &domain.Error{Kind: domain.KindNotOwner, Code: domain.CodeNotOwner, Op: op,
			Message: "only the campaign owner can do this", Err: err}
	}

	var coded codedError
	if errors.As(err, &coded) {
		switch coded.ErrorCode() {
		case CodeUserRejected:
			return &domain.Error{Kind: domain.KindTransactionRejected, Code: domain.CodeTxRejected, Op: op,
				Message: "transaction rejected by user", Err: err}
		case CodeUnauthorized:
			return failed(op, domain.CauseUnauthorized, domain.CodeTxUnauthorized, "unauthorized, please connect your wallet", err)
		case CodeUnsupportedMethod:
			return failed(op, domain.CauseUnsupportedMethod, domain.CodeTxUnsupportedMethod, "unsupported method", err)
		case CodeInternalRPC:
			return failed(op, domain.CauseInternalNodeError, domain.CodeTxInternalNodeError, "internal JSON-RPC error, network issue", err)
		case CodeResourceUnavailable:
			return failed(op, domain.CauseResourceUnavailable, domain.CodeTxResourceUnavailable, "resource unavailable", err)
		case codeExecutionReverted:
			return failed(op, domain.CauseReverted, domain.CodeTxReverted, "transaction reverted", err)
		case CodeInsufficientFunds:
			// -32000 is also geth's generic server error; only trust the
			// funds reading when the message does not say otherwise.
			if !strings.Contains(lower, "revert") {
				return failed(op, domain.CauseInsufficientFunds, domain.CodeTxInsufficientFunds, "insufficient funds for gas", err)
			}
		}
	}

	switch {
	case strings.Contains(lower, "insufficient funds"):
		return failed(op, domain.CauseInsufficientFunds, domain.CodeTxInsufficientFunds, "insufficient funds for gas", err)
	case strings.Contains(lower, "revert"):
		return failed(op, domain.CauseReverted, domain.CodeTxReverted, "transaction reverted", err)
	case isNetworkError(err):
		return failed(op, domain.CauseNetwork, domain.CodeTxNetwork, "network error", err)
	}
	return failed(op, domain.CauseNone, domain.CodeTxFailed, "transaction failed", err)
}

func failed(op string, cause domain.Cause, code domain.Code, msg string, err error) *domain.Error {
	return &domain.Error{Kind: domain.KindTransactionFailed, Cause: cause, Code: code, Op: op, Message: msg, Err: err}
}

func isNetworkError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
