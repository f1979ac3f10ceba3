package support

import (
	"net/http"
	"strconv"

	"github.com/CarOnePlus/CarOnePlus/internal/common/server"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type contactReq struct {
	Email   string `json:"email" binding:"required"`
	Subject string `json:"subject" binding:"required"`
	Body    string `json:"body" binding:"required"`
}

// Contact POST /support/contact（无需登录；已登录时带上用户 ID）。
func (h *Handler) Contact(c *gin.Context) {
	var req contactReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "email, subject and body are required"})
		return
	}

	m, err := h.svc.Submit(c.Request.Context(), server.CurrentUserID(c), req.Email, req.Subject, req.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": m.ID, "message": "message received"})
}

// ListMine GET /support/my（自己提交过的留言）。
func (h *Handler) ListMine(c *gin.Context) {
	messages, err := h.svc.ListMine(c.Request.Context(), server.CurrentUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "could not list messages"})
		return
	}
	items := make([]gin.H, 0, len(messages))
	for _, m := range messages {
		items = append(items, gin.H{
			"id":         m.ID,
			"subject":    m.Subject,
			"body":       m.Body,
			"created_at": m.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"messages": items})
}

// List GET /support/messages（admin）。
func (h *Handler) List(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	messages, err := h.svc.List(c.Request.Context(), offset, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "could not list messages"})
		return
	}
	items := make([]gin.H, 0, len(messages))
	for _, m := range messages {
		items = append(items, gin.H{
			"id":         m.ID,
			"user_id":    m.UserID,
			"email":      m.Email,
			"subject":    m.Subject,
			"body":       m.Body,
			"created_at": m.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"messages": items})
}
