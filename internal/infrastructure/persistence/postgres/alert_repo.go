package postgres

import (
	"context"
	"database/sql"
	"time"

	alertDomain "property-alerts/internal/domain/alert"
)

// AlertRepo 提供警報設定的讀取與游標更新。
type AlertRepo struct {
	db *sql.DB
}

// NewAlertRepo 建立 AlertRepo。
func NewAlertRepo(db *sql.DB) *AlertRepo {
	return &AlertRepo{db: db}
}

// ListEligible 取出所有 active 且尚未過期的警報。
func (r *AlertRepo) ListEligible(ctx context.Context) ([]alertDomain.Alert, error) {
	const q = `
SELECT id, user_id, location_name, point, radius_km, status, expires_at, last_checked,
       monitor_sale, sale_beds_min, sale_beds_max, sale_price_min, sale_price_max,
       sale_alert_on_new, sale_alert_on_price_drops,
       monitor_rental, rental_beds_min, rental_beds_max, rental_rent_min, rental_rent_max,
       rental_alert_on_new,
       monitor_sold, sold_beds_min, sold_beds_max,
       sold_alert_on_over_asking, sold_alert_on_under_asking, sold_price_threshold_percent
FROM alerts
WHERE status = 'active' AND expires_at > NOW()
ORDER BY id;
`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []alertDomain.Alert
	for rows.Next() {
		var a alertDomain.Alert
		var status string
		var saleBedsMin, saleBedsMax, rentalBedsMin, rentalBedsMax, soldBedsMin, soldBedsMax sql.NullInt64
		var salePriceMin, salePriceMax, rentMin, rentMax, soldThreshold sql.NullFloat64
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.LocationName, &a.Point, &a.RadiusKm, &status, &a.ExpiresAt, &a.LastChecked,
			&a.Sale.Enabled, &saleBedsMin, &saleBedsMax, &salePriceMin, &salePriceMax,
			&a.Sale.AlertOnNew, &a.Sale.AlertOnPriceDrops,
			&a.Rental.Enabled, &rentalBedsMin, &rentalBedsMax, &rentMin, &rentMax,
			&a.Rental.AlertOnNew,
			&a.Sold.Enabled, &soldBedsMin, &soldBedsMax,
			&a.Sold.AlertOnOverAsking, &a.Sold.AlertOnUnderAsking, &soldThreshold,
		); err != nil {
			return nil, err
		}
		a.Status = alertDomain.Status(status)
		a.Sale.BedsMin = intPtr(saleBedsMin)
		a.Sale.BedsMax = intPtr(saleBedsMax)
		a.Sale.PriceMin = floatPtr(salePriceMin)
		a.Sale.PriceMax = floatPtr(salePriceMax)
		a.Rental.BedsMin = intPtr(rentalBedsMin)
		a.Rental.BedsMax = intPtr(rentalBedsMax)
		a.Rental.RentMin = floatPtr(rentMin)
		a.Rental.RentMax = floatPtr(rentMax)
		a.Sold.BedsMin = intPtr(soldBedsMin)
		a.Sold.BedsMax = intPtr(soldBedsMax)
		a.Sold.PriceThresholdPct = floatPtr(soldThreshold)
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateLastChecked 推進警報的增量游標；游標只增不減，SQL 條件強制。
func (r *AlertRepo) UpdateLastChecked(ctx context.Context, alertID int64, checkedAt time.Time) error {
	const q = `
UPDATE alerts
SET last_checked = $2, updated_at = NOW()
WHERE id = $1 AND last_checked < $2;
`
	_, err := r.db.ExecContext(ctx, q, alertID, checkedAt)
	return err
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullFloat(v *float64) interface{} {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
