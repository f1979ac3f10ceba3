package insurance

import (
	"errors"
	"net/http"

	"github.com/CarOnePlus/CarOnePlus/internal/common/server"
	"github.com/CarOnePlus/CarOnePlus/internal/reservation"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Options GET /insurance/options（公开目录）。
func (h *Handler) Options(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"options": Options})
}

type selectReq struct {
	ReservationID string `json:"reservation_id" binding:"required"`
	OptionCode    string `json:"option_code" binding:"required"`
}

// Select POST /insurance/select（租客）。
func (h *Handler) Select(c *gin.Context) {
	var req selectReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "reservation_id and option_code are required"})
		return
	}

	sel, err := h.svc.Select(c.Request.Context(), req.ReservationID, server.CurrentUserID(c), req.OptionCode)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownOption):
			c.JSON(http.StatusBadRequest, gin.H{"message": "unknown insurance option"})
		case errors.Is(err, reservation.ErrReservationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "reservation not found"})
		case errors.Is(err, ErrNotRenter):
			c.JSON(http.StatusForbidden, gin.H{"message": "not allowed"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"message": "could not save selection"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":             sel.ID,
		"reservation_id": sel.ReservationID,
		"option_code":    sel.OptionCode,
	})
}

// GetForReservation GET /insurance/reservation/:id。
func (h *Handler) GetForReservation(c *gin.Context) {
	sel, err := h.svc.GetForReservation(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "no insurance selected"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "could not fetch selection"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":             sel.ID,
		"reservation_id": sel.ReservationID,
		"option_code":    sel.OptionCode,
	})
}
