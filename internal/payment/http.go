package payment

import (
	"errors"
	"io"
	"net/http"

	"github.com/CarOnePlus/CarOnePlus/internal/common/logger"
	"github.com/CarOnePlus/CarOnePlus/internal/common/server"
	"github.com/CarOnePlus/CarOnePlus/internal/reservation"
	"github.com/gin-gonic/gin"
)

// 签名载荷上限，防止恶意大包。
const maxWebhookBody = 1 << 16

// Handler 支付相关 REST 接口。
type Handler struct {
	svc      *Service
	verifier EventVerifier
	log      logger.Logger
}

func NewHandler(svc *Service, verifier EventVerifier, log logger.Logger) *Handler {
	return &Handler{svc: svc, verifier: verifier, log: log}
}

type createSessionReq struct {
	ReservationID string `json:"reservation_id" binding:"required"`
}

// CreateCheckoutSession POST /payments/checkout-session（租客）。
func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	var req createSessionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "reservation_id is required"})
		return
	}

	sess, err := h.svc.CreateCheckoutSession(c.Request.Context(), req.ReservationID, server.CurrentUserID(c))
	if err != nil {
		switch {
		case errors.Is(err, reservation.ErrReservationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "reservation not found"})
		case errors.Is(err, ErrNotRenter):
			c.JSON(http.StatusForbidden, gin.H{"message": "not allowed"})
		case errors.Is(err, ErrAlreadyConfirmed):
			c.JSON(http.StatusConflict, gin.H{"message": "reservation already confirmed"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"message": "could not create checkout session"})
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session_id": sess.ID, "url": sess.URL})
}

// Webhook POST /payments/webhook。Stripe 直接调用，不走 JWT，
// 靠 Stripe-Signature 头校验真实性。
func (h *Handler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "could not read payload"})
		return
	}

	ev, err := h.verifier.Verify(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, ErrEventIgnored) {
			c.JSON(http.StatusOK, gin.H{"message": "ignored"})
			return
		}
		if h.log != nil {
			h.log.Warnf("webhook rejected: %v", err)
		}
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid webhook"})
		return
	}

	if err := h.svc.HandleCheckoutCompleted(c.Request.Context(), ev); err != nil {
		if errors.Is(err, reservation.ErrReservationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "reservation not found"})
			return
		}
		if h.log != nil {
			h.log.Errorf("webhook processing failed reservation=%s: %v", ev.ReservationID, err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "processing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

// GetForReservation GET /payments/reservation/:id。
func (h *Handler) GetForReservation(c *gin.Context) {
	p, err := h.svc.GetForReservation(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "payment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "could not fetch payment"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":             p.ID,
		"reservation_id": p.ReservationID,
		"user_id":        p.UserID,
		"amount_cents":   p.AmountCents,
		"currency":       p.Currency,
		"status":         p.Status,
		"created_at":     p.CreatedAt,
	})
}

// Success / Cancel 是 Stripe 跳回的落地页，纯提示。
func (h *Handler) Success(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "payment successful, reservation will be confirmed shortly"})
}

func (h *Handler) Cancel(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "payment cancelled"})
}
