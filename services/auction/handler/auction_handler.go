package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"auction-ledger/internal/auctionerrors"
	"auction-ledger/internal/models"
	"auction-ledger/services/auction/helpers"
	"auction-ledger/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type LedgerServiceInterface interface {
	RegisterUser(ctx context.Context, name, contact, password string) (models.User, error)
	Authenticate(ctx context.Context, name, password string) (models.User, error)
	GetUser(ctx context.Context, userID string) (models.User, error)
	ListUsers(ctx context.Context) []models.User
	CreateAuction(ctx context.Context, ownerID, title, description string, startingPrice decimal.Decimal, policy models.ClosingPolicy) (models.Auction, error)
	PlaceBid(ctx context.Context, auctionID, bidderID string, amount decimal.Decimal) (models.BidResult, error)
	CloseAuction(ctx context.Context, auctionID, requesterID string) (models.CloseResult, error)
	GetAuctionView(ctx context.Context, auctionID string) (models.AuctionView, error)
	ListAuctions(ctx context.Context) []models.AuctionView
	AuctionsByBidder(ctx context.Context, userID string) ([]models.AuctionView, error)
	RecentBids(ctx context.Context, limit int) []models.Bid
}

type AuctionHandler struct {
	service LedgerServiceInterface
}

func NewAuctionHandler(service LedgerServiceInterface) *AuctionHandler {
	return &AuctionHandler{service: service}
}

// RegisterUserHandler handles POST /users
func (h *AuctionHandler) RegisterUserHandler(c *gin.Context) {
	var req helpers.RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "RegisterUserHandler", err)
		return
	}

	user, err := h.service.RegisterUser(c.Request.Context(), req.Name, req.Contact, req.Password)
	if err != nil {
		helpers.RespondError(c, "RegisterUserHandler", err, map[string]any{"name": req.Name})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.ToUserResponse(user), "user registered successfully")
	helpers.LogSuccess("RegisterUserHandler", "user registered successfully", map[string]any{
		"user_id": user.UserID,
		"name":    user.Name,
	})
}

// LoginHandler handles POST /users/login
func (h *AuctionHandler) LoginHandler(c *gin.Context) {
	var req helpers.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "LoginHandler", err)
		return
	}

	user, err := h.service.Authenticate(c.Request.Context(), req.Name, req.Password)
	if err != nil {
		helpers.RespondError(c, "LoginHandler", err, map[string]any{"name": req.Name})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToUserResponse(user), "login successful")
	helpers.LogSuccess("LoginHandler", "login successful", map[string]any{"user_id": user.UserID})
}

// ListUsersHandler handles GET /users
func (h *AuctionHandler) ListUsersHandler(c *gin.Context) {
	users := h.service.ListUsers(c.Request.Context())
	utils.JSONResponse(c, http.StatusOK, helpers.ToUserResponses(users), "users retrieved successfully")
}

// GetUserHandler handles GET /users/:user_id
func (h *AuctionHandler) GetUserHandler(c *gin.Context) {
	userID := c.Param("user_id")
	user, err := h.service.GetUser(c.Request.Context(), userID)
	if err != nil {
		helpers.RespondError(c, "GetUserHandler", err, map[string]any{"user_id": userID})
		return
	}
	utils.JSONResponse(c, http.StatusOK, helpers.ToUserResponse(user), "user retrieved successfully")
}

// GetAuctionsByUserHandler handles GET /users/:user_id/auctions
func (h *AuctionHandler) GetAuctionsByUserHandler(c *gin.Context) {
	userID := c.Param("user_id")
	views, err := h.service.AuctionsByBidder(c.Request.Context(), userID)
	if err != nil {
		helpers.RespondError(c, "GetAuctionsByUserHandler", err, map[string]any{"user_id": userID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToAuctionResponses(views), "auctions retrieved successfully")
	helpers.LogSuccess("GetAuctionsByUserHandler", "auctions retrieved successfully", map[string]any{
		"user_id":        userID,
		"auctions_count": len(views),
	})
}

// CreateAuctionHandler handles POST /auctions
func (h *AuctionHandler) CreateAuctionHandler(c *gin.Context) {
	var req helpers.CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateAuctionHandler", err)
		return
	}

	startingPrice, policy, err := parseAuctionTerms(req)
	if err != nil {
		helpers.RespondError(c, "CreateAuctionHandler", err, map[string]any{"owner_id": req.OwnerID})
		return
	}

	auction, err := h.service.CreateAuction(c.Request.Context(), req.OwnerID, req.Title, req.Description, startingPrice, policy)
	if err != nil {
		helpers.RespondError(c, "CreateAuctionHandler", err, map[string]any{"owner_id": req.OwnerID})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.ToAuctionResponse(models.NewAuctionView(auction)), "auction created successfully")
	helpers.LogSuccess("CreateAuctionHandler", "auction created successfully", map[string]any{
		"auction_id": auction.AuctionID,
		"owner_id":   auction.OwnerID,
	})
}

// parseAuctionTerms turns the request's plain values into ledger types
func parseAuctionTerms(req helpers.CreateAuctionRequest) (decimal.Decimal, models.ClosingPolicy, error) {
	var policy models.ClosingPolicy

	startingPrice, err := models.AmountFromFloat(req.StartingPrice)
	if err != nil {
		return decimal.Zero, policy, fmt.Errorf("%w - starting price: %v", auctionerrors.ErrInvalidInput, err)
	}
	if req.Deadline != nil {
		deadline, err := helpers.ParseDeadline(*req.Deadline)
		if err != nil {
			return decimal.Zero, policy, fmt.Errorf("%w - %v", auctionerrors.ErrInvalidInput, err)
		}
		policy.Deadline = &deadline
	}
	if req.ThresholdMultiple != nil {
		factor, err := models.FactorFromFloat(*req.ThresholdMultiple)
		if err != nil {
			return decimal.Zero, policy, fmt.Errorf("%w - threshold multiple: %v", auctionerrors.ErrInvalidInput, err)
		}
		policy.ThresholdMultiple = &factor
	}
	return startingPrice, policy, nil
}

// ListAuctionsHandler handles GET /auctions
func (h *AuctionHandler) ListAuctionsHandler(c *gin.Context) {
	views := h.service.ListAuctions(c.Request.Context())
	utils.JSONResponse(c, http.StatusOK, helpers.ToAuctionResponses(views), "auctions retrieved successfully")
	helpers.LogSuccess("ListAuctionsHandler", "auctions retrieved successfully", map[string]any{"count": len(views)})
}

// GetAuctionHandler handles GET /auctions/:auction_id
func (h *AuctionHandler) GetAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	view, err := h.service.GetAuctionView(c.Request.Context(), auctionID)
	if err != nil {
		helpers.RespondError(c, "GetAuctionHandler", err, map[string]any{"auction_id": auctionID})
		return
	}
	utils.JSONResponse(c, http.StatusOK, helpers.ToAuctionResponse(view), "auction retrieved successfully")
}

// PlaceBidHandler handles POST /auctions/:auction_id/bids
func (h *AuctionHandler) PlaceBidHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", err)
		return
	}

	fields := map[string]any{"auction_id": auctionID, "bidder_id": req.BidderID}

	amount, err := models.AmountFromFloat(req.Amount)
	if err != nil {
		helpers.RespondError(c, "PlaceBidHandler", fmt.Errorf("%w - %v", auctionerrors.ErrInvalidInput, err), fields)
		return
	}

	result, err := h.service.PlaceBid(c.Request.Context(), auctionID, req.BidderID, amount)
	if err != nil {
		helpers.RespondError(c, "PlaceBidHandler", err, fields)
		return
	}

	message := "bid recorded successfully"
	if result.Status == models.StatusClosed {
		message = "bid recorded, auction closed"
	}
	utils.JSONResponse(c, http.StatusCreated, helpers.ToPlaceBidResponse(result), message)
	helpers.LogSuccess("PlaceBidHandler", message, map[string]any{
		"bid_id":     result.Bid.BidID,
		"auction_id": auctionID,
		"bidder_id":  req.BidderID,
		"amount":     result.Bid.Amount.String(),
		"status":     result.Status,
	})
}

// CloseAuctionHandler handles POST /auctions/:auction_id/close
func (h *AuctionHandler) CloseAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	var req helpers.CloseAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CloseAuctionHandler", err)
		return
	}

	result, err := h.service.CloseAuction(c.Request.Context(), auctionID, req.RequesterID)
	if err != nil {
		helpers.RespondError(c, "CloseAuctionHandler", err, map[string]any{
			"auction_id":   auctionID,
			"requester_id": req.RequesterID,
		})
		return
	}

	message := "auction closed without bids"
	if result.HasWinner() {
		message = "auction closed successfully"
	}
	utils.JSONResponse(c, http.StatusOK, helpers.ToCloseAuctionResponse(result), message)
	helpers.LogSuccess("CloseAuctionHandler", message, map[string]any{
		"auction_id":  auctionID,
		"winner_id":   result.WinnerID,
		"final_price": result.FinalPrice.String(),
	})
}

// RecentBidsHandler handles GET /bids/recent?limit=N
func (h *AuctionHandler) RecentBidsHandler(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			if err == nil {
				err = errors.New("negative limit")
			}
			helpers.RespondError(c, "RecentBidsHandler", fmt.Errorf("%w - limit: %v", auctionerrors.ErrInvalidInput, err), nil)
			return
		}
		limit = n
	}

	bids := h.service.RecentBids(c.Request.Context(), limit)
	utils.JSONResponse(c, http.StatusOK, helpers.ToBidResponses(bids), "bids retrieved successfully")
}
