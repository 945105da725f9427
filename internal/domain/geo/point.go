package geo

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Point 表示 WGS84 經緯度座標。
type Point struct {
	Lat float64
	Lng float64
}

// BoundingBox 表示以度為單位的矩形搜尋範圍。
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

const earthRadiusKm = 6371.0

// EWKB point 固定長度：1 byte order + 4 type + 4 SRID + 8 X + 8 Y。
const ewkbPointLen = 25

// ParsePoint 解析資料庫存放的座標欄位，支援 WKT 的 POINT(lng lat)
// 與十六進位編碼的 SRID EWKB point 兩種格式；無法辨識時回傳錯誤。
func ParsePoint(raw string) (Point, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Point{}, fmt.Errorf("empty point value")
	}
	if strings.HasPrefix(strings.ToUpper(s), "POINT") {
		return parseWKT(s)
	}
	return parseEWKB(s)
}

func parseWKT(s string) (Point, error) {
	open := strings.Index(s, "(")
	end := strings.Index(s, ")")
	if open < 0 || end < open {
		return Point{}, fmt.Errorf("malformed wkt point: %q", s)
	}
	fields := strings.Fields(s[open+1 : end])
	if len(fields) != 2 {
		return Point{}, fmt.Errorf("malformed wkt point: %q", s)
	}
	lng, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return Point{}, fmt.Errorf("wkt longitude: %w", err)
	}
	lat, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return Point{}, fmt.Errorf("wkt latitude: %w", err)
	}
	return Point{Lat: lat, Lng: lng}, nil
}

// parseEWKB 解析十六進位 EWKB point。
// X（經度）從第 9 個位元組開始，Y（緯度）從第 17 個，皆為 little-endian float64。
func parseEWKB(s string) (Point, error) {
	blob, err := hex.DecodeString(s)
	if err != nil {
		return Point{}, fmt.Errorf("decode ewkb hex: %w", err)
	}
	if len(blob) < ewkbPointLen {
		return Point{}, fmt.Errorf("ewkb point truncated: %d bytes", len(blob))
	}
	lng := math.Float64frombits(binary.LittleEndian.Uint64(blob[9:17]))
	lat := math.Float64frombits(binary.LittleEndian.Uint64(blob[17:25]))
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return Point{}, fmt.Errorf("ewkb point contains non-finite coordinate")
	}
	return Point{Lat: lat, Lng: lng}, nil
}

// BoundingBoxAround 以球面近似把公里半徑換算成度數範圍，
// 經度差依緯度餘弦修正。矩形四角會超出實際圓形半徑。
func BoundingBoxAround(center Point, radiusKm float64) BoundingBox {
	if radiusKm < 0 {
		radiusKm = 0
	}
	latDelta := radiusKm / earthRadiusKm * 180 / math.Pi
	lngDelta := latDelta
	if cos := math.Cos(center.Lat * math.Pi / 180); cos > 0 {
		lngDelta = latDelta / cos
	}
	return BoundingBox{
		MinLat: center.Lat - latDelta,
		MaxLat: center.Lat + latDelta,
		MinLng: center.Lng - lngDelta,
		MaxLng: center.Lng + lngDelta,
	}
}

// Contains 判斷座標是否落在範圍內（含邊界）。
func (b BoundingBox) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}
