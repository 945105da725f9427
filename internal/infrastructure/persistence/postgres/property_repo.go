package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"property-alerts/internal/application/alerts"
	"property-alerts/internal/domain/property"
)

// PropertyRepo 查詢上游擷取管線維護的房產資料；唯讀。
type PropertyRepo struct {
	db *sql.DB
}

// NewPropertyRepo 建立 PropertyRepo。
func NewPropertyRepo(db *sql.DB) *PropertyRepo {
	return &PropertyRepo{db: db}
}

// 三種分類查詢共用同一組欄位；價格歷史以子查詢摘要帶出。
const propertyColumns = `
SELECT p.id, p.address, p.latitude, p.longitude, p.is_listing, p.is_rental, p.sold_date,
       p.asking_price, p.sold_price, p.monthly_rent, p.beds, p.baths, p.area_sqm, p.scraped_at,
       (SELECT COUNT(*) FROM property_price_changes c WHERE c.property_id = p.id) AS price_changes,
       (SELECT c.old_price FROM property_price_changes c WHERE c.property_id = p.id ORDER BY c.recorded_at DESC LIMIT 1) AS previous_price
FROM properties p
`

// FindSales 取出範圍內、游標之後觀測到的待售物件。
func (r *PropertyRepo) FindSales(ctx context.Context, query alerts.SaleQuery) ([]property.Record, error) {
	q := propertyColumns + `
WHERE p.is_listing = TRUE AND p.is_rental = FALSE AND p.sold_date IS NULL
  AND p.latitude BETWEEN $1 AND $2
  AND p.longitude BETWEEN $3 AND $4
  AND p.scraped_at > $5
`
	args := []interface{}{query.Box.MinLat, query.Box.MaxLat, query.Box.MinLng, query.Box.MaxLng, query.Since}
	if query.BedsMin != nil {
		q += fmt.Sprintf(" AND p.beds >= $%d", len(args)+1)
		args = append(args, *query.BedsMin)
	}
	if query.BedsMax != nil {
		q += fmt.Sprintf(" AND p.beds <= $%d", len(args)+1)
		args = append(args, *query.BedsMax)
	}
	if query.PriceMin != nil {
		q += fmt.Sprintf(" AND p.asking_price >= $%d", len(args)+1)
		args = append(args, *query.PriceMin)
	}
	if query.PriceMax != nil {
		q += fmt.Sprintf(" AND p.asking_price <= $%d", len(args)+1)
		args = append(args, *query.PriceMax)
	}
	q += " ORDER BY p.scraped_at;"
	return r.queryRecords(ctx, q, args...)
}

// FindRentals 取出範圍內、游標之後觀測到的出租物件。
func (r *PropertyRepo) FindRentals(ctx context.Context, query alerts.RentalQuery) ([]property.Record, error) {
	q := propertyColumns + `
WHERE p.is_rental = TRUE
  AND p.latitude BETWEEN $1 AND $2
  AND p.longitude BETWEEN $3 AND $4
  AND p.scraped_at > $5
`
	args := []interface{}{query.Box.MinLat, query.Box.MaxLat, query.Box.MinLng, query.Box.MaxLng, query.Since}
	if query.BedsMin != nil {
		q += fmt.Sprintf(" AND p.beds >= $%d", len(args)+1)
		args = append(args, *query.BedsMin)
	}
	if query.BedsMax != nil {
		q += fmt.Sprintf(" AND p.beds <= $%d", len(args)+1)
		args = append(args, *query.BedsMax)
	}
	if query.RentMin != nil {
		q += fmt.Sprintf(" AND p.monthly_rent >= $%d", len(args)+1)
		args = append(args, *query.RentMin)
	}
	if query.RentMax != nil {
		q += fmt.Sprintf(" AND p.monthly_rent <= $%d", len(args)+1)
		args = append(args, *query.RentMax)
	}
	q += " ORDER BY p.scraped_at;"
	return r.queryRecords(ctx, q, args...)
}

// FindSold 取出範圍內、游標之後觀測到的成交紀錄。
func (r *PropertyRepo) FindSold(ctx context.Context, query alerts.SoldQuery) ([]property.Record, error) {
	q := propertyColumns + `
WHERE p.sold_date IS NOT NULL
  AND p.latitude BETWEEN $1 AND $2
  AND p.longitude BETWEEN $3 AND $4
  AND p.scraped_at > $5
`
	args := []interface{}{query.Box.MinLat, query.Box.MaxLat, query.Box.MinLng, query.Box.MaxLng, query.Since}
	if query.BedsMin != nil {
		q += fmt.Sprintf(" AND p.beds >= $%d", len(args)+1)
		args = append(args, *query.BedsMin)
	}
	if query.BedsMax != nil {
		q += fmt.Sprintf(" AND p.beds <= $%d", len(args)+1)
		args = append(args, *query.BedsMax)
	}
	q += " ORDER BY p.scraped_at;"
	return r.queryRecords(ctx, q, args...)
}

func (r *PropertyRepo) queryRecords(ctx context.Context, q string, args ...interface{}) ([]property.Record, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []property.Record
	for rows.Next() {
		var rec property.Record
		var soldDate sql.NullTime
		var asking, sold, rent, area, prevPrice sql.NullFloat64
		if err := rows.Scan(
			&rec.ID, &rec.Address, &rec.Latitude, &rec.Longitude, &rec.IsListing, &rec.IsRental, &soldDate,
			&asking, &sold, &rent, &rec.Beds, &rec.Baths, &area, &rec.ScrapedAt,
			&rec.PriceChanges, &prevPrice,
		); err != nil {
			return nil, err
		}
		if soldDate.Valid {
			rec.SoldDate = &soldDate.Time
		}
		rec.AskingPrice = floatPtr(asking)
		rec.SoldPrice = floatPtr(sold)
		rec.MonthlyRent = floatPtr(rent)
		rec.AreaSqm = floatPtr(area)
		rec.PreviousPrice = floatPtr(prevPrice)
		out = append(out, rec)
	}
	return out, rows.Err()
}
