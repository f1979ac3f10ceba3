package geo

import (
	"context"
	"errors"
	"fmt"

	"github.com/CarOnePlus/CarOnePlus/internal/common/middleware"
	"googlemaps.github.io/maps"
)

// ErrNoResult 地址无法解析出坐标。
var ErrNoResult = errors.New("address could not be geocoded")

// Geocoder 把地址转换成经纬度。
type Geocoder interface {
	Geocode(ctx context.Context, address string) (lat, lng float64, err error)
}

// GoogleGeocoder 基于 Google Maps Geocoding API，外呼套熔断，
// 上游持续报错时快速失败而不是拖垮请求。
type GoogleGeocoder struct {
	client *maps.Client
	cb     *middleware.CircuitBreaker
}

func NewGoogleGeocoder(apiKey string, cb *middleware.CircuitBreaker) (*GoogleGeocoder, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("init maps client: %w", err)
	}
	return &GoogleGeocoder{client: client, cb: cb}, nil
}

func (g *GoogleGeocoder) Geocode(ctx context.Context, address string) (float64, float64, error) {
	if g == nil || g.client == nil {
		return 0, 0, fmt.Errorf("geocoder not initialized")
	}

	var results []maps.GeocodingResult
	call := func() error {
		var err error
		results, err = g.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
		return err
	}

	var err error
	if g.cb != nil {
		err = g.cb.Call(ctx, call)
	} else {
		err = call()
	}
	if err != nil {
		return 0, 0, fmt.Errorf("geocode %q: %w", address, err)
	}
	if len(results) == 0 {
		return 0, 0, ErrNoResult
	}
	loc := results[0].Geometry.Location
	return loc.Lat, loc.Lng, nil
}
