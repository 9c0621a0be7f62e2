package service

import (
	"errors"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/settleup/internal/calculator"
	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/storage"
)

var (
	errNotMember = errors.New("caller is not a member of this group")
	errNotParty  = errors.New("only the payer or the payee can confirm a settlement")
	errNotOwner  = errors.New("only the group creator can delete it")
)

// toConnectError maps domain and storage errors to Connect codes. Errors that
// are already *connect.Error pass through untouched.
func toConnectError(err error) error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return err
	}

	var (
		refErr          *calculator.ReferentialIntegrityError
		inconsistentErr *calculator.BalanceInconsistencyError
	)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, storage.ErrAlreadyExists):
		return connect.NewError(connect.CodeAlreadyExists, err)
	case errors.Is(err, storage.ErrMemberHasPendingSettlements),
		errors.Is(err, storage.ErrMemberReferenced),
		errors.Is(err, storage.ErrSettlementNotPending):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, models.ErrInvalidMember),
		errors.Is(err, models.ErrInvalidExpense),
		errors.Is(err, models.ErrInvalidSettlement),
		errors.Is(err, calculator.ErrDuplicateMember):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, errNotMember), errors.Is(err, errNotParty), errors.Is(err, errNotOwner):
		return connect.NewError(connect.CodePermissionDenied, err)
	case errors.As(err, &refErr):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.As(err, &inconsistentErr):
		return connect.NewError(connect.CodeDataLoss, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

func invalidArgument(format string, args ...any) error {
	return connect.NewError(connect.CodeInvalidArgument, fmt.Errorf(format, args...))
}

// fail logs err under msg and returns it as a Connect error.
func fail(msg string, err error, attrs ...any) error {
	cerr := toConnectError(err)
	attrs = append(attrs, "error", err)
	if connect.CodeOf(cerr) == connect.CodeInternal {
		slog.Error(msg, attrs...)
	} else {
		slog.Warn(msg, attrs...)
	}
	return cerr
}
