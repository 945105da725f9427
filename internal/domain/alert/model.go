package alert

import (
	"time"
)

// Status 表示警報的生命週期狀態。
type Status string

const (
	StatusActive  Status = "active"
	StatusPaused  Status = "paused"
	StatusExpired Status = "expired"
)

// Mode 決定批次是否產生持久副作用。
type Mode string

const (
	ModeLive   Mode = "live"
	ModeDryRun Mode = "dry-run"
)

// 未設定門檻時的成交價漲跌幅百分比預設值。
const DefaultSoldThresholdPct = 5.0

// SaleCriteria 是買賣物件的篩選與觸發設定。
type SaleCriteria struct {
	Enabled           bool
	BedsMin           *int
	BedsMax           *int
	PriceMin          *float64
	PriceMax          *float64
	AlertOnNew        bool
	AlertOnPriceDrops bool
}

// RentalCriteria 是出租物件的篩選與觸發設定。
type RentalCriteria struct {
	Enabled    bool
	BedsMin    *int
	BedsMax    *int
	RentMin    *float64
	RentMax    *float64
	AlertOnNew bool
}

// SoldCriteria 是成交紀錄的篩選與觸發設定。
type SoldCriteria struct {
	Enabled            bool
	BedsMin            *int
	BedsMax            *int
	AlertOnOverAsking  bool
	AlertOnUnderAsking bool
	PriceThresholdPct  *float64
}

// ThresholdPct 回傳成交價觸發門檻，未設定或非正值時使用預設。
func (c SoldCriteria) ThresholdPct() float64 {
	if c.PriceThresholdPct != nil && *c.PriceThresholdPct > 0 {
		return *c.PriceThresholdPct
	}
	return DefaultSoldThresholdPct
}

// Alert 是使用者建立的區域監控設定。
// 由儀表板建立與編輯；本系統僅在批次後更新 LastChecked。
type Alert struct {
	ID           int64
	UserID       int64
	LocationName string
	Point        string // WKT 或 EWKB hex，由 geo.ParsePoint 解析
	RadiusKm     float64
	Status       Status
	ExpiresAt    time.Time
	LastChecked  time.Time
	Sale         SaleCriteria
	Rental       RentalCriteria
	Sold         SoldCriteria
}

// Eligible 回報警報是否應納入本次批次。
func (a Alert) Eligible(now time.Time) bool {
	return a.Status == StatusActive && a.ExpiresAt.After(now)
}
