package incident

import (
	"errors"
	"net/http"

	"github.com/CarOnePlus/CarOnePlus/internal/common/server"
	"github.com/CarOnePlus/CarOnePlus/internal/reservation"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type reportReq struct {
	ReservationID string `json:"reservation_id" binding:"required"`
	Description   string `json:"description" binding:"required"`
}

// Report POST /incidents（登录用户，针对自己的预订）。
func (h *Handler) Report(c *gin.Context) {
	var req reportReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "reservation_id and description are required"})
		return
	}

	inc, err := h.svc.Report(c.Request.Context(), req.ReservationID, server.CurrentUserID(c), req.Description)
	if err != nil {
		switch {
		case errors.Is(err, reservation.ErrReservationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "reservation not found"})
		case errors.Is(err, ErrNotParticipant):
			c.JSON(http.StatusForbidden, gin.H{"message": "not allowed"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":          inc.ID,
		"reported_at": inc.ReportedAt,
	})
}

// ListMine GET /incidents/my。
func (h *Handler) ListMine(c *gin.Context) {
	incidents, err := h.svc.ListMine(c.Request.Context(), server.CurrentUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "could not list incidents"})
		return
	}
	items := make([]gin.H, 0, len(incidents))
	for _, inc := range incidents {
		items = append(items, gin.H{
			"id":             inc.ID,
			"reservation_id": inc.ReservationID,
			"description":    inc.Description,
			"reported_at":    inc.ReportedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"incidents": items})
}
