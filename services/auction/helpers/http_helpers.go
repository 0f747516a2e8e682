package helpers

import (
	"errors"
	"fmt"
	"net/http"

	"auction-ledger/internal/auctionerrors"
	"auction-ledger/utils"

	"github.com/gin-gonic/gin"
)

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps ledger errors to HTTP status code and message
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, auctionerrors.ErrInvalidInput):
		return http.StatusBadRequest, "invalid input"
	case errors.Is(err, auctionerrors.ErrBidTooLow):
		return http.StatusConflict, "bid amount too low"
	case errors.Is(err, auctionerrors.ErrSelfBidForbidden):
		return http.StatusForbidden, "owner cannot bid on own auction"
	case errors.Is(err, auctionerrors.ErrUnknownAuction):
		return http.StatusNotFound, "auction not found"
	case errors.Is(err, auctionerrors.ErrUnknownBidder):
		return http.StatusNotFound, "bidder not found"
	case errors.Is(err, auctionerrors.ErrUnknownOwner):
		return http.StatusNotFound, "owner not found"
	case errors.Is(err, auctionerrors.ErrUnknownUser):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, auctionerrors.ErrAuctionClosed):
		return http.StatusConflict, "auction is closed"
	case errors.Is(err, auctionerrors.ErrAuctionAlreadyClosed):
		return http.StatusConflict, "auction already closed"
	case errors.Is(err, auctionerrors.ErrNotOwner):
		return http.StatusForbidden, "only the owner can close the auction"
	case errors.Is(err, auctionerrors.ErrDuplicateIdentity):
		return http.StatusConflict, "name or contact already registered"
	case errors.Is(err, auctionerrors.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, auctionerrors.ErrPersistence):
		return http.StatusInternalServerError, "change applied but could not be saved"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// RespondError writes the mapped error response and logs it with ctx fields.
// A BidTooLow response carries the minimum amount the next bid must reach.
func RespondError(c *gin.Context, handlerName string, err error, ctx map[string]any) {
	status, message := MapErrorToHTTP(err)

	var tooLow *auctionerrors.BidTooLowError
	if errors.As(err, &tooLow) {
		utils.JSONErrorWithDetails(c, status, fmt.Errorf("%s: %w", message, err), message, gin.H{
			"current_price": tooLow.CurrentPrice.InexactFloat64(),
			"min_required":  tooLow.MinRequired.InexactFloat64(),
			"inclusive":     tooLow.Inclusive,
		})
	} else {
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
	}

	fields := map[string]any{"handler": handlerName, "error": err.Error()}
	for k, v := range ctx {
		fields[k] = v
	}
	if status >= http.StatusInternalServerError {
		utils.Error(handlerName+": request failed", fields)
		return
	}
	utils.Warn(handlerName+": request rejected", fields)
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}
