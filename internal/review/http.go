package review

import (
	"errors"
	"net/http"

	"github.com/CarOnePlus/CarOnePlus/internal/common/server"
	"github.com/CarOnePlus/CarOnePlus/internal/vehicle"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type createReviewReq struct {
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

// Create POST /vehicles/:id/reviews（登录用户）。
func (h *Handler) Create(c *gin.Context) {
	var req createReviewReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "rating is required"})
		return
	}

	rev, err := h.svc.Create(c.Request.Context(), c.Param("id"), server.CurrentUserID(c), req.Rating, req.Comment)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRating):
			c.JSON(http.StatusBadRequest, gin.H{"message": "rating must be between 1 and 5"})
		case errors.Is(err, vehicle.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "vehicle not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"message": "could not save review"})
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":      rev.ID,
		"rating":  rev.Rating,
		"comment": rev.Comment,
	})
}

// ListForVehicle GET /vehicles/:id/reviews（公开）。
func (h *Handler) ListForVehicle(c *gin.Context) {
	vr, err := h.svc.ListForVehicle(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, vehicle.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "vehicle not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "could not list reviews"})
		return
	}

	items := make([]gin.H, 0, len(vr.Reviews))
	for _, r := range vr.Reviews {
		items = append(items, gin.H{
			"id":         r.ID,
			"user_id":    r.UserID,
			"rating":     r.Rating,
			"comment":    r.Comment,
			"created_at": r.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"average_rating": vr.Average,
		"count":          vr.Count,
		"reviews":        items,
	})
}

// ListMine GET /reviews/my（登录用户自己发表过的评价）。
func (h *Handler) ListMine(c *gin.Context) {
	reviews, err := h.svc.ListForUser(c.Request.Context(), server.CurrentUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "could not list reviews"})
		return
	}
	items := make([]gin.H, 0, len(reviews))
	for _, r := range reviews {
		items = append(items, gin.H{
			"id":         r.ID,
			"vehicle_id": r.VehicleID,
			"rating":     r.Rating,
			"comment":    r.Comment,
			"created_at": r.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"reviews": items})
}
