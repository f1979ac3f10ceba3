package reservation

import (
	"errors"
	"net/http"
	"time"

	"github.com/CarOnePlus/CarOnePlus/internal/common/server"
	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

// Handler 预订相关 REST 接口。
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// CheckAvailability GET /vehicles/:id/availability?start_date=&end_date=
func (h *Handler) CheckAvailability(c *gin.Context) {
	start, err := time.Parse(dateLayout, c.Query("start_date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "start_date must be YYYY-MM-DD"})
		return
	}
	end, err := time.Parse(dateLayout, c.Query("end_date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "end_date must be YYYY-MM-DD"})
		return
	}

	av, err := h.svc.CheckAvailability(c.Request.Context(), c.Param("id"), start, end)
	if err != nil {
		writeError(c, err)
		return
	}

	conflicts := make([]gin.H, 0, len(av.Conflicts))
	for _, r := range av.Conflicts {
		conflicts = append(conflicts, gin.H{
			"start_date": r.StartDate.Format(dateLayout),
			"end_date":   r.EndDate.Format(dateLayout),
		})
	}
	c.JSON(http.StatusOK, gin.H{"available": av.Available, "conflicts": conflicts})
}

type createReservationReq struct {
	VehicleID string `json:"vehicle_id" binding:"required"`
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
}

func (h *Handler) Create(c *gin.Context) {
	var req createReservationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "vehicle_id, start_date and end_date are required"})
		return
	}
	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "start_date must be YYYY-MM-DD"})
		return
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "end_date must be YYYY-MM-DD"})
		return
	}

	res, err := h.svc.CreateReservation(c.Request.Context(), server.CurrentUserID(c), req.VehicleID, start, end)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reservationResponse(res))
}

type updateStatusReq struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus PUT /reservations/:id/status，仅车主可调。
func (h *Handler) UpdateStatus(c *gin.Context) {
	var req updateStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "status is required"})
		return
	}
	status, ok := ParseStatus(req.Status)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "status must be pending or confirmed"})
		return
	}

	res, err := h.svc.UpdateStatus(c.Request.Context(), c.Param("id"), server.CurrentUserID(c), status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reservationResponse(res))
}

func (h *Handler) Get(c *gin.Context) {
	res, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reservationResponse(res))
}

// MyReservations GET /reservations/my（租客视角）。
func (h *Handler) MyReservations(c *gin.Context) {
	list, err := h.svc.ListForUser(c.Request.Context(), server.CurrentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reservations": reservationList(list)})
}

// ReceivedReservations GET /reservations/received（车主视角）。
func (h *Handler) ReceivedReservations(c *gin.Context) {
	list, err := h.svc.ListForOwner(c.Request.Context(), server.CurrentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reservations": reservationList(list)})
}

// writeError 统一的错误→HTTP 映射。
// ErrConflict 与 ErrVehicleUnavailable 对外呈现一致（409），
// 调用方无需区分“先到先得输了”和“本来就被占”。
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidDateRange):
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid date range"})
	case errors.Is(err, ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid status transition"})
	case errors.Is(err, ErrVehicleNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "vehicle not found"})
	case errors.Is(err, ErrReservationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "reservation not found"})
	case errors.Is(err, ErrVehicleUnavailable), errors.Is(err, ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"message": "vehicle unavailable for the requested dates"})
	case errors.Is(err, ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"message": "not allowed"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
	}
}

func reservationResponse(r *Reservation) gin.H {
	resp := gin.H{
		"id":         r.ID,
		"vehicle_id": r.VehicleID,
		"user_id":    r.UserID,
		"start_date": r.StartDate.Format(dateLayout),
		"end_date":   r.EndDate.Format(dateLayout),
		"status":     string(r.Status),
		"created_at": r.CreatedAt,
	}
	if r.ConfirmedAt != nil {
		resp["confirmed_at"] = *r.ConfirmedAt
	}
	return resp
}

func reservationList(list []Reservation) []gin.H {
	out := make([]gin.H, 0, len(list))
	for i := range list {
		out = append(out, reservationResponse(&list[i]))
	}
	return out
}
