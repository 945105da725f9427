package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// UserRepo 解析警報擁有者的收件地址；唯讀。
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo 建立 UserRepo。
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

// EmailByID 依使用者 id 查詢 email。
func (r *UserRepo) EmailByID(ctx context.Context, userID int64) (string, error) {
	const q = `SELECT email FROM users WHERE id = $1 LIMIT 1;`
	var email string
	if err := r.db.QueryRowContext(ctx, q, userID).Scan(&email); err != nil {
		return "", err
	}
	if email == "" {
		return "", fmt.Errorf("user %d has no email", userID)
	}
	return email, nil
}
