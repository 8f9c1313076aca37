package httpx

import (
	"github.com/gin-gonic/gin"

	"github.com/you/eventfoundry/pkg/auth"
)

func NewRouter(jwtSecret string, h *BiddingHandler) *gin.Engine {
	r := gin.Default()

	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	v1 := r.Group("/v1")
	{
		v1.POST(
			"/bidding/close-expired",
			JWTAuth(jwtSecret),
			RequireRole(auth.RoleAdmin),
			h.CloseExpired,
		)

		ev := v1.Group("/events")
		ev.Use(JWTAuth(jwtSecret))
		ev.POST("/:id/winner", RequireRole(auth.RoleClient, auth.RoleAdmin), h.SelectWinner)
		ev.GET("/:id/bids", h.ListBids)
		ev.GET("/:id/shortlist", h.ListShortlist)
		ev.GET("/:id/contract", h.GetContract)
	}

	return r
}
