package adapter

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"agrimart/internal/pkg/httpclient"
	"agrimart/internal/service/delivery/domain"
)

// ORSRoutingAdapter 通过 openrouteservice 的 directions 接口计算行车距离。
type ORSRoutingAdapter struct {
	client  *httpclient.Client
	baseURL string
	apiKey  string
}

func NewORSRoutingAdapter(client *httpclient.Client, baseURL, apiKey string) *ORSRoutingAdapter {
	return &ORSRoutingAdapter{client: client, baseURL: baseURL, apiKey: apiKey}
}

type orsDirectionsRequest struct {
	Coordinates [][2]float64 `json:"coordinates"`
}

type orsDirectionsResponse struct {
	Features []struct {
		Properties struct {
			Summary struct {
				Distance float64 `json:"distance"` // 米
			} `json:"summary"`
		} `json:"properties"`
	} `json:"features"`
}

// DrivingDistanceKm 实现 domain.Router。坐标序为 [经度, 纬度]。
func (a *ORSRoutingAdapter) DrivingDistanceKm(ctx context.Context, origin, destination domain.Coordinate) (float64, error) {
	reqURL := fmt.Sprintf("%s/v2/directions/driving-car/geojson?api_key=%s", a.baseURL, a.apiKey)
	req := &orsDirectionsRequest{
		Coordinates: [][2]float64{
			{origin.Lng, origin.Lat},
			{destination.Lng, destination.Lat},
		},
	}

	var resp orsDirectionsResponse
	if err := a.client.PostJSON(ctx, reqURL, req, &resp); err != nil {
		return 0, errors.Wrap(err, "routing request failed")
	}
	if len(resp.Features) == 0 {
		return 0, errors.New("routing response contained no route")
	}
	return resp.Features[0].Properties.Summary.Distance / 1000, nil
}
