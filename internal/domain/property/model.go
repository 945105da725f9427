package property

import "time"

// Record 表示上游擷取管線寫入的房產快照，對本系統唯讀。
type Record struct {
	ID          int64
	Address     string
	Latitude    float64
	Longitude   float64
	IsListing   bool
	IsRental    bool
	SoldDate    *time.Time
	AskingPrice *float64
	SoldPrice   *float64
	MonthlyRent *float64
	Beds        int
	Baths       int
	AreaSqm     *float64
	ScrapedAt   time.Time

	// 價格歷史摘要，由查詢端一併帶出。
	PriceChanges  int
	PreviousPrice *float64
}

// Category 回傳儲存 saved_properties 時使用的型別鍵。
func (r Record) Category() string {
	switch {
	case r.SoldDate != nil:
		return "sold"
	case r.IsRental:
		return "rental"
	default:
		return "sale"
	}
}

// SoldPriceDeltaPct 計算成交價相對要價的百分比差。
// 缺少任一價格或要價為零時回傳 ok=false。
func (r Record) SoldPriceDeltaPct() (float64, bool) {
	if r.AskingPrice == nil || r.SoldPrice == nil || *r.AskingPrice == 0 {
		return 0, false
	}
	return (*r.SoldPrice - *r.AskingPrice) / *r.AskingPrice * 100, true
}

// Saved 是使用者儲存清單中的一筆快照。
// (UserID, PropertyID, PropertyType) 為唯一鍵，由儲存層強制。
type Saved struct {
	UserID       int64
	PropertyID   int64
	PropertyType string
	Address      string
	AskingPrice  *float64
	MonthlyRent  *float64
	SoldPrice    *float64
	Beds         int
	Baths        int
	Notes        string
	CreatedAt    time.Time
}
