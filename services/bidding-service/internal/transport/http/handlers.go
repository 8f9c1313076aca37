package httpx

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/you/eventfoundry/pkg/apperr"
	"github.com/you/eventfoundry/pkg/auth"
	"github.com/you/eventfoundry/services/bidding-service/internal/domain"
	"github.com/you/eventfoundry/services/bidding-service/internal/service"
)

type BiddingHandler struct {
	closer *service.WindowCloser
	winner *service.WinnerSvc
	store  service.ForgeStore
}

func NewBiddingHandler(closer *service.WindowCloser, winner *service.WinnerSvc, store service.ForgeStore) *BiddingHandler {
	return &BiddingHandler{closer: closer, winner: winner, store: store}
}

// POST /v1/bidding/close-expired (ADMIN; also the cron target)
func (h *BiddingHandler) CloseExpired(c *gin.Context) {
	rep, err := h.closer.CloseExpiredWindows(c.Request.Context())
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rep)
}

// POST /v1/events/:id/winner (event owner or ADMIN)
func (h *BiddingHandler) SelectWinner(c *gin.Context) {
	eventID := c.Param("id")
	var in struct {
		BidID string `json:"bid_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.mayDecide(c, eventID) {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}
	contract, err := h.winner.SelectWinner(c.Request.Context(), eventID, in.BidID)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"contract": contract})
}

// mayDecide: admins always, clients only for their own event.
func (h *BiddingHandler) mayDecide(c *gin.Context, eventID string) bool {
	v, _ := c.Get("role")
	role, _ := v.(string)
	if role == auth.RoleAdmin {
		return true
	}
	sub, _ := c.Get("sub")
	userID, _ := sub.(string)
	ev, err := h.store.EventByID(c.Request.Context(), eventID)
	if err != nil {
		return false
	}
	return ev.OwnerUserID == userID
}

// GET /v1/events/:id/bids?status=SHORTLISTED
func (h *BiddingHandler) ListBids(c *gin.Context) {
	bids, err := h.store.BidsByEvent(c.Request.Context(), c.Param("id"), domain.BidStatus(c.Query("status")))
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bids": bids})
}

// GET /v1/events/:id/shortlist
func (h *BiddingHandler) ListShortlist(c *gin.Context) {
	bids, err := h.store.BidsByEvent(c.Request.Context(), c.Param("id"), domain.BidShortlisted)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"shortlist": bids})
}

// GET /v1/events/:id/contract
func (h *BiddingHandler) GetContract(c *gin.Context) {
	contract, err := h.store.ContractByEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"contract": contract})
}
