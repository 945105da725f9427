package alerts

import (
	"fmt"
	"strings"

	"property-alerts/internal/domain/alert"
	"property-alerts/internal/domain/property"
)

// Digest 是寄給使用者的通知內容，依顯示分類分組。
// 同一筆房產可以同時落在多個分組（例如出租且有降價紀錄）。
type Digest struct {
	AlertID      int64
	LocationName string
	NewListings  []property.Record
	NewRentals   []property.Record
	NewSales     []property.Record
	PriceDrops   []property.Record
	Total        int
}

// buildDigest 把去重後的結果分到顯示分組。
func buildDigest(a alert.Alert, records []property.Record) Digest {
	d := Digest{
		AlertID:      a.ID,
		LocationName: a.LocationName,
		Total:        len(records),
	}
	for _, rec := range records {
		switch {
		case rec.IsListing && !rec.IsRental:
			d.NewListings = append(d.NewListings, rec)
		case rec.IsRental:
			d.NewRentals = append(d.NewRentals, rec)
		}
		if rec.SoldDate != nil {
			d.NewSales = append(d.NewSales, rec)
		}
		if rec.PriceChanges > 0 {
			d.PriceDrops = append(d.PriceDrops, rec)
		}
	}
	return d
}

// Subject 產生通知主旨。
func (d Digest) Subject() string {
	return fmt.Sprintf("%d new properties in %s", d.Total, d.LocationName)
}

// RenderText 產生純文字通知內容；HTML 模板由外部郵件系統負責。
func (d Digest) RenderText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Property alert for %s: %d matching properties.\n", d.LocationName, d.Total)
	writeSection(&b, "New listings", d.NewListings, func(r property.Record) string {
		return priceLabel(r.AskingPrice, "asking")
	})
	writeSection(&b, "New rentals", d.NewRentals, func(r property.Record) string {
		return priceLabel(r.MonthlyRent, "per month")
	})
	writeSection(&b, "Recently sold", d.NewSales, func(r property.Record) string {
		return priceLabel(r.SoldPrice, "sold")
	})
	writeSection(&b, "Price drops", d.PriceDrops, func(r property.Record) string {
		return priceLabel(r.AskingPrice, "now asking")
	})
	return b.String()
}

func writeSection(b *strings.Builder, title string, records []property.Record, price func(property.Record) string) {
	if len(records) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s (%d):\n", title, len(records))
	for _, rec := range records {
		fmt.Fprintf(b, "  - %s (%d bed, %s)\n", rec.Address, rec.Beds, price(rec))
	}
}

func priceLabel(v *float64, suffix string) string {
	if v == nil {
		return "price on application"
	}
	return fmt.Sprintf("EUR %.0f %s", *v, suffix)
}
