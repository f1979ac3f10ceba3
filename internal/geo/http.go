package geo

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/CarOnePlus/CarOnePlus/internal/common/middleware"
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

// GeocodeVehicle POST /vehicles/:id/geocode（车主）。
func (h *Handler) GeocodeVehicle(c *gin.Context) {
	lat, lng, err := h.svc.GeocodeVehicle(c.Request.Context(), c.Param("id"), server.CurrentUserID(c))
	if err != nil {
		switch {
		case errors.Is(err, vehicle.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "vehicle not found"})
		case errors.Is(err, ErrNotOwner):
			c.JSON(http.StatusForbidden, gin.H{"message": "not allowed"})
		case errors.Is(err, ErrNoResult):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "address could not be geocoded"})
		case errors.Is(err, middleware.ErrCircuitOpen):
			c.JSON(http.StatusServiceUnavailable, gin.H{"message": "geocoding temporarily unavailable"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"message": "geocoding failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"lat": lat, "lng": lng})
}

// Nearby GET /vehicles/nearby?lat=&lng=&radius_km=（公开）。
func (h *Handler) Nearby(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "lat must be a number"})
		return
	}
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "lng must be a number"})
		return
	}
	radius, _ := strconv.ParseFloat(c.DefaultQuery("radius_km", "5"), 64)

	vehicles, err := h.svc.Nearby(c.Request.Context(), lat, lng, radius)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "could not search vehicles"})
		return
	}
	items := make([]gin.H, 0, len(vehicles))
	for i := range vehicles {
		v := &vehicles[i]
		item := gin.H{
			"id":            v.ID,
			"title":         v.Title,
			"price_per_day": v.PricePerDay,
			"location":      v.Location,
			"available":     v.Available,
		}
		if v.Lat != nil && v.Lng != nil {
			item["lat"] = *v.Lat
			item["lng"] = *v.Lng
		}
		items = append(items, item)
	}
	c.JSON(http.StatusOK, gin.H{"vehicles": items})
}
