package alerts

import (
	"context"
	"log"
	"time"

	"property-alerts/internal/domain/alert"
	"property-alerts/internal/domain/geo"
	"property-alerts/internal/domain/property"
)

// PropertyFinder 依分類查詢房產快照；唯讀。
type PropertyFinder interface {
	FindSales(ctx context.Context, q SaleQuery) ([]property.Record, error)
	FindRentals(ctx context.Context, q RentalQuery) ([]property.Record, error)
	FindSold(ctx context.Context, q SoldQuery) ([]property.Record, error)
}

// SaleQuery 是買賣物件的查詢條件。
type SaleQuery struct {
	Box      geo.BoundingBox
	Since    time.Time
	BedsMin  *int
	BedsMax  *int
	PriceMin *float64
	PriceMax *float64
}

// RentalQuery 是出租物件的查詢條件。
type RentalQuery struct {
	Box     geo.BoundingBox
	Since   time.Time
	BedsMin *int
	BedsMax *int
	RentMin *float64
	RentMax *float64
}

// SoldQuery 是成交紀錄的查詢條件。
type SoldQuery struct {
	Box     geo.BoundingBox
	Since   time.Time
	BedsMin *int
	BedsMax *int
}

// Matcher 對單一警報執行三個分類的比對並合併結果。
type Matcher struct {
	finder PropertyFinder
	drops  PriceDropDetector
}

// NewMatcher 建立比對器。
func NewMatcher(finder PropertyFinder, drops PriceDropDetector) *Matcher {
	if drops == nil {
		drops = MatchAllDetector{}
	}
	return &Matcher{finder: finder, drops: drops}
}

// Match 回傳依分類順序（sale、rental、sold）合併且去重的結果。
// 單一分類的查詢失敗不會中斷其他分類，failed 回報失敗的分類數。
func (m *Matcher) Match(ctx context.Context, a alert.Alert, box geo.BoundingBox) (records []property.Record, failed int) {
	if a.Sale.Enabled && (a.Sale.AlertOnNew || a.Sale.AlertOnPriceDrops) {
		recs, err := m.finder.FindSales(ctx, SaleQuery{
			Box:      box,
			Since:    a.LastChecked,
			BedsMin:  a.Sale.BedsMin,
			BedsMax:  a.Sale.BedsMax,
			PriceMin: a.Sale.PriceMin,
			PriceMax: a.Sale.PriceMax,
		})
		if err != nil {
			log.Printf("[Matcher] alert %d: sale query failed: %v", a.ID, err)
			failed++
		} else {
			for _, rec := range recs {
				if a.Sale.AlertOnNew || (a.Sale.AlertOnPriceDrops && m.drops.Dropped(rec)) {
					records = append(records, rec)
				}
			}
		}
	}

	if a.Rental.Enabled && a.Rental.AlertOnNew {
		recs, err := m.finder.FindRentals(ctx, RentalQuery{
			Box:     box,
			Since:   a.LastChecked,
			BedsMin: a.Rental.BedsMin,
			BedsMax: a.Rental.BedsMax,
			RentMin: a.Rental.RentMin,
			RentMax: a.Rental.RentMax,
		})
		if err != nil {
			log.Printf("[Matcher] alert %d: rental query failed: %v", a.ID, err)
			failed++
		} else {
			records = append(records, recs...)
		}
	}

	if a.Sold.Enabled && (a.Sold.AlertOnOverAsking || a.Sold.AlertOnUnderAsking) {
		recs, err := m.finder.FindSold(ctx, SoldQuery{
			Box:     box,
			Since:   a.LastChecked,
			BedsMin: a.Sold.BedsMin,
			BedsMax: a.Sold.BedsMax,
		})
		if err != nil {
			log.Printf("[Matcher] alert %d: sold query failed: %v", a.ID, err)
			failed++
		} else {
			threshold := a.Sold.ThresholdPct()
			for _, rec := range recs {
				if soldTriggered(rec, a.Sold, threshold) {
					records = append(records, rec)
				}
			}
		}
	}

	return dedupe(records), failed
}

// soldTriggered 以成交價相對要價的百分比差判斷觸發；
// 缺價格無法計算時一律不符合。
func soldTriggered(rec property.Record, c alert.SoldCriteria, threshold float64) bool {
	pct, ok := rec.SoldPriceDeltaPct()
	if !ok {
		return false
	}
	if c.AlertOnUnderAsking && pct < -threshold {
		return true
	}
	if c.AlertOnOverAsking && pct > threshold {
		return true
	}
	return false
}

// dedupe 去除重複的房產 id，保留先出現者的順序。
func dedupe(records []property.Record) []property.Record {
	if len(records) < 2 {
		return records
	}
	seen := make(map[int64]struct{}, len(records))
	out := records[:0]
	for _, rec := range records {
		if _, ok := seen[rec.ID]; ok {
			continue
		}
		seen[rec.ID] = struct{}{}
		out = append(out, rec)
	}
	return out
}
