package postgres

import (
	"context"
	"database/sql"

	"property-alerts/internal/domain/property"
)

// SavedPropertyRepo 寫入使用者的儲存清單。
type SavedPropertyRepo struct {
	db *sql.DB
}

// NewSavedPropertyRepo 建立 SavedPropertyRepo。
func NewSavedPropertyRepo(db *sql.DB) *SavedPropertyRepo {
	return &SavedPropertyRepo{db: db}
}

// Save 以 (user_id, property_id, property_type) 為唯一鍵寫入一筆快照。
// 已存在時不動作並回傳 created=false；冪等性由唯一鍵保證。
func (r *SavedPropertyRepo) Save(ctx context.Context, s property.Saved) (bool, error) {
	const q = `
INSERT INTO saved_properties (user_id, property_id, property_type, address, asking_price, monthly_rent, sold_price, beds, baths, notes, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
ON CONFLICT (user_id, property_id, property_type) DO NOTHING;
`
	res, err := r.db.ExecContext(ctx, q,
		s.UserID,
		s.PropertyID,
		s.PropertyType,
		s.Address,
		nullFloat(s.AskingPrice),
		nullFloat(s.MonthlyRent),
		nullFloat(s.SoldPrice),
		s.Beds,
		s.Baths,
		s.Notes,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
