package vehicle

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/CarOnePlus/CarOnePlus/internal/common/config"
	"github.com/CarOnePlus/CarOnePlus/internal/common/server"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler 车辆相关 REST 接口。
type Handler struct {
	svc    *Service
	upload config.UploadConfig
}

func NewHandler(svc *Service, upload config.UploadConfig) *Handler {
	return &Handler{svc: svc, upload: upload}
}

type createVehicleReq struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description" binding:"required"`
	PricePerDay float64 `json:"price_per_day" binding:"required"`
	Location    string  `json:"location" binding:"required"`
	Available   *bool   `json:"available"`
}

func (h *Handler) Create(c *gin.Context) {
	var req createVehicleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "title, description, price_per_day and location are required"})
		return
	}

	v, err := h.svc.Create(c.Request.Context(), CreateInput{
		OwnerID:     server.CurrentUserID(c),
		Title:       req.Title,
		Description: req.Description,
		PricePerDay: req.PricePerDay,
		Location:    req.Location,
		Available:   req.Available,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, vehicleResponse(v))
}

// List 公开列表，支持 location/min_price/max_price/available/offset/limit 过滤。
func (h *Handler) List(c *gin.Context) {
	f := ListFilter{Location: strings.TrimSpace(c.Query("location"))}

	if raw := c.Query("min_price"); raw != "" {
		p, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "min_price must be a number"})
			return
		}
		f.MinPrice = &p
	}
	if raw := c.Query("max_price"); raw != "" {
		p, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "max_price must be a number"})
			return
		}
		f.MaxPrice = &p
	}
	if raw := c.Query("available"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "available must be a boolean"})
			return
		}
		f.Available = &b
	}
	f.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	f.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))

	vehicles, total, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "could not list vehicles"})
		return
	}
	items := make([]gin.H, 0, len(vehicles))
	for i := range vehicles {
		items = append(items, vehicleResponse(&vehicles[i]))
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "vehicles": items})
}

func (h *Handler) Get(c *gin.Context) {
	v, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "vehicle not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "could not fetch vehicle"})
		return
	}
	c.JSON(http.StatusOK, vehicleResponse(v))
}

type updateVehicleReq struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	PricePerDay *float64 `json:"price_per_day"`
	Location    *string  `json:"location"`
	Available   *bool    `json:"available"`
}

func (h *Handler) Update(c *gin.Context) {
	var req updateVehicleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	v, err := h.svc.Update(c.Request.Context(), c.Param("id"), server.CurrentUserID(c), UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		PricePerDay: req.PricePerDay,
		Location:    req.Location,
		Available:   req.Available,
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "vehicle not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, vehicleResponse(v))
}

func (h *Handler) Delete(c *gin.Context) {
	err := h.svc.Delete(c.Request.Context(), c.Param("id"), server.CurrentUserID(c))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "vehicle not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "could not delete vehicle"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "vehicle deleted"})
}

func (h *Handler) MyVehicles(c *gin.Context) {
	vehicles, err := h.svc.ListByOwner(c.Request.Context(), server.CurrentUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "could not list vehicles"})
		return
	}
	items := make([]gin.H, 0, len(vehicles))
	for i := range vehicles {
		items = append(items, vehicleResponse(&vehicles[i]))
	}
	c.JSON(http.StatusOK, gin.H{"vehicles": items})
}

// UploadImage 车主上传车辆图片。文件落到本地 upload 目录，
// 文件名用 uuid 重命名，避免覆盖与路径穿越。
func (h *Handler) UploadImage(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "image file is required"})
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !h.extensionAllowed(ext) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "file type not allowed"})
		return
	}

	vehicleID := c.Param("id")
	fileName := uuid.NewString() + ext
	dst := filepath.Join(h.upload.Dir, fileName)

	img, err := h.svc.AddImage(c.Request.Context(), vehicleID, server.CurrentUserID(c), file.Filename, dst)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "vehicle not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "could not save image"})
		return
	}

	if err := c.SaveUploadedFile(file, dst); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "could not store file"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":        img.ID,
		"file_name": img.FileName,
		"file_path": img.FilePath,
	})
}

func (h *Handler) ListImages(c *gin.Context) {
	images, err := h.svc.ListImages(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "vehicle not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "could not list images"})
		return
	}
	items := make([]gin.H, 0, len(images))
	for _, img := range images {
		items = append(items, gin.H{
			"id":          img.ID,
			"file_name":   img.FileName,
			"file_path":   img.FilePath,
			"uploaded_at": img.UploadedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"images": items})
}

// extensionAllowed 配置里的后缀不含点，比较前归一化。
func (h *Handler) extensionAllowed(ext string) bool {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		return false
	}
	for _, allowed := range h.upload.AllowedExtensions {
		allowed = strings.TrimPrefix(strings.TrimSpace(allowed), ".")
		if strings.EqualFold(allowed, ext) {
			return true
		}
	}
	return false
}

func vehicleResponse(v *Vehicle) gin.H {
	resp := gin.H{
		"id":            v.ID,
		"owner_id":      v.OwnerID,
		"title":         v.Title,
		"description":   v.Description,
		"price_per_day": v.PricePerDay,
		"location":      v.Location,
		"available":     v.Available,
		"created_at":    v.CreatedAt,
	}
	if v.Lat != nil && v.Lng != nil {
		resp["lat"] = *v.Lat
		resp["lng"] = *v.Lng
	}
	return resp
}
