package alerts

import "property-alerts/internal/domain/property"

// PriceDropDetector 判斷買賣物件是否出現降價。
type PriceDropDetector interface {
	Dropped(property.Record) bool
}

// MatchAllDetector 在沒有可用的價格歷史來源時充當預設實作，
// 把降價觸發視同「新上架」一律成立。
// TODO: 擷取管線補齊 property_price_changes 後，預設改用 HistoryDetector。
type MatchAllDetector struct{}

func (MatchAllDetector) Dropped(property.Record) bool { return true }

// HistoryDetector 比較目前要價與最近一次歷史價格。
type HistoryDetector struct{}

func (HistoryDetector) Dropped(r property.Record) bool {
	if r.AskingPrice == nil || r.PreviousPrice == nil || r.PriceChanges == 0 {
		return false
	}
	return *r.AskingPrice < *r.PreviousPrice
}
