package server

import (
	ledger "auction-ledger/internal/ledgerService"
	handler "auction-ledger/services/auction/handler"

	"github.com/gin-gonic/gin"
)

// SetupRouter configures all Gin routes for the application
func SetupRouter(ledgerService *ledger.LedgerService) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging

	auctionHandler := handler.NewAuctionHandler(ledgerService)

	users := router.Group("/users")
	{
		users.POST("", auctionHandler.RegisterUserHandler)
		users.POST("/login", auctionHandler.LoginHandler)
		users.GET("", auctionHandler.ListUsersHandler)
		users.GET("/:user_id", auctionHandler.GetUserHandler)
		users.GET("/:user_id/auctions", auctionHandler.GetAuctionsByUserHandler)
	}

	auctions := router.Group("/auctions")
	{
		auctions.POST("", auctionHandler.CreateAuctionHandler)
		auctions.GET("", auctionHandler.ListAuctionsHandler)
		auctions.GET("/:auction_id", auctionHandler.GetAuctionHandler)
		auctions.POST("/:auction_id/bids", auctionHandler.PlaceBidHandler)
		auctions.POST("/:auction_id/close", auctionHandler.CloseAuctionHandler)
	}

	bids := router.Group("/bids")
	{
		bids.GET("/recent", auctionHandler.RecentBidsHandler)
	}

	return router
}
