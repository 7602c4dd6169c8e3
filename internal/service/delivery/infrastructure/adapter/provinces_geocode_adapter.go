package adapter

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"agrimart/internal/pkg/httpclient"
	"agrimart/internal/pkg/logger"
	"agrimart/internal/service/delivery/domain"
)

// ProvincesGeocodeAdapter 用越南行政区划开放接口校验省份名，
// 再用内置的省会坐标表得到中心点坐标。
// 开放接口只提供行政区数据不带经纬度，所以坐标来自本地表。
type ProvincesGeocodeAdapter struct {
	client  *httpclient.Client
	baseURL string
}

func NewProvincesGeocodeAdapter(client *httpclient.Client, baseURL string) *ProvincesGeocodeAdapter {
	return &ProvincesGeocodeAdapter{client: client, baseURL: baseURL}
}

type provinceRecord struct {
	Name     string `json:"name"`
	Code     int    `json:"code"`
	Codename string `json:"codename"`
}

// Resolve 实现 domain.Geocoder。
// 省名先经开放接口规范化（容忍别名和变音符差异），再查坐标表。
func (a *ProvincesGeocodeAdapter) Resolve(ctx context.Context, dest domain.Destination) (domain.Coordinate, error) {
	codename, err := a.lookupCodename(ctx, dest.Province)
	if err != nil {
		// 接口不可用时退化为本地规范化，仍可命中坐标表。
		logger.Ctx(ctx).Warn().Err(err).Str("province", dest.Province).
			Msg("province registry unavailable, falling back to local normalization")
		codename = normalizeProvince(dest.Province)
	}

	coord, ok := provinceCentroids[codename]
	if !ok {
		return domain.Coordinate{}, errors.Wrapf(domain.ErrDistanceUnknown, "no coordinates for province %q", dest.Province)
	}
	return coord, nil
}

func (a *ProvincesGeocodeAdapter) lookupCodename(ctx context.Context, province string) (string, error) {
	searchURL := fmt.Sprintf("%s/api/p/search/?q=%s", a.baseURL, url.QueryEscape(province))

	var records []provinceRecord
	if err := a.client.GetJSON(ctx, searchURL, &records); err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", errors.Errorf("province %q not found in registry", province)
	}
	return records[0].Codename, nil
}

// normalizeProvince 把省名近似转成开放接口的 codename 形式。
func normalizeProvince(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.TrimPrefix(s, "tỉnh ")
	s = strings.TrimPrefix(s, "thành phố ")
	s = strings.TrimPrefix(s, "tp. ")
	s = strings.TrimPrefix(s, "tp ")
	for from, to := range vietnameseFolding {
		s = strings.ReplaceAll(s, from, to)
	}
	return strings.ReplaceAll(s, " ", "_")
}

var vietnameseFolding = map[string]string{
	"à": "a", "á": "a", "ả": "a", "ã": "a", "ạ": "a",
	"ă": "a", "ằ": "a", "ắ": "a", "ẳ": "a", "ẵ": "a", "ặ": "a",
	"â": "a", "ầ": "a", "ấ": "a", "ẩ": "a", "ẫ": "a", "ậ": "a",
	"đ": "d",
	"è": "e", "é": "e", "ẻ": "e", "ẽ": "e", "ẹ": "e",
	"ê": "e", "ề": "e", "ế": "e", "ể": "e", "ễ": "e", "ệ": "e",
	"ì": "i", "í": "i", "ỉ": "i", "ĩ": "i", "ị": "i",
	"ò": "o", "ó": "o", "ỏ": "o", "õ": "o", "ọ": "o",
	"ô": "o", "ồ": "o", "ố": "o", "ổ": "o", "ỗ": "o", "ộ": "o",
	"ơ": "o", "ờ": "o", "ớ": "o", "ở": "o", "ỡ": "o", "ợ": "o",
	"ù": "u", "ú": "u", "ủ": "u", "ũ": "u", "ụ": "u",
	"ư": "u", "ừ": "u", "ứ": "u", "ử": "u", "ữ": "u", "ự": "u",
	"ỳ": "y", "ý": "y", "ỷ": "y", "ỹ": "y", "ỵ": "y",
}

// provinceCentroids 是主要省市中心点坐标，键为行政区划 codename。
var provinceCentroids = map[string]domain.Coordinate{
	"thanh_pho_ho_chi_minh": {Lat: 10.7769, Lng: 106.7009},
	"thanh_pho_ha_noi":      {Lat: 21.0285, Lng: 105.8542},
	"thanh_pho_da_nang":     {Lat: 16.0544, Lng: 108.2022},
	"thanh_pho_can_tho":     {Lat: 10.0452, Lng: 105.7469},
	"thanh_pho_hai_phong":   {Lat: 20.8449, Lng: 106.6881},
	"tinh_dong_nai":         {Lat: 10.9574, Lng: 106.8427},
	"tinh_binh_duong":       {Lat: 11.1254, Lng: 106.6634},
	"tinh_ba_ria_vung_tau":  {Lat: 10.4114, Lng: 107.1362},
	"tinh_long_an":          {Lat: 10.5355, Lng: 106.4137},
	"tinh_tien_giang":       {Lat: 10.3600, Lng: 106.3600},
	"tinh_ben_tre":          {Lat: 10.2434, Lng: 106.3756},
	"tinh_lam_dong":         {Lat: 11.9404, Lng: 108.4583},
	"tinh_khanh_hoa":        {Lat: 12.2388, Lng: 109.1967},
	"tinh_dak_lak":          {Lat: 12.6667, Lng: 108.0500},
	"tinh_tay_ninh":         {Lat: 11.3100, Lng: 106.0989},
	"tinh_an_giang":         {Lat: 10.3861, Lng: 105.4352},
	"tinh_vinh_long":        {Lat: 10.2538, Lng: 105.9722},
	"tinh_dong_thap":        {Lat: 10.4938, Lng: 105.6882},
	"tinh_binh_thuan":       {Lat: 10.9289, Lng: 108.1021},
	"tinh_thua_thien_hue":   {Lat: 16.4637, Lng: 107.5909},

	// 开放接口对直辖市也可能返回短 codename。
	"ho_chi_minh": {Lat: 10.7769, Lng: 106.7009},
	"ha_noi":      {Lat: 21.0285, Lng: 105.8542},
	"da_nang":     {Lat: 16.0544, Lng: 108.2022},
	"can_tho":     {Lat: 10.0452, Lng: 105.7469},
	"hai_phong":   {Lat: 20.8449, Lng: 106.6881},
}
