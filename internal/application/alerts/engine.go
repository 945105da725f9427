package alerts

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"property-alerts/internal/domain/alert"
	"property-alerts/internal/domain/geo"
	"property-alerts/internal/domain/property"
)

// AlertRepository 管理警報的讀取與游標更新。
type AlertRepository interface {
	ListEligible(ctx context.Context) ([]alert.Alert, error)
	UpdateLastChecked(ctx context.Context, alertID int64, checkedAt time.Time) error
}

// SavedPropertyStore 寫入使用者儲存清單；重複鍵視為已存在而非錯誤。
type SavedPropertyStore interface {
	Save(ctx context.Context, s property.Saved) (created bool, err error)
}

// EventStore 追加稽核事件。
type EventStore interface {
	Append(ctx context.Context, ev alert.Event) error
}

// UserDirectory 解析警報擁有者的收件地址。
type UserDirectory interface {
	EmailByID(ctx context.Context, userID int64) (string, error)
}

// Mailer 寄送通知，回傳遞送識別碼。
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) (string, error)
}

// RunStats 彙整單次批次的執行結果。
type RunStats struct {
	Processed       int
	Matched         int
	EmailsSent      int
	PropertiesSaved int
	Failed          int
}

// Engine 對所有符合條件的警報執行比對與通知。
type Engine struct {
	alerts  AlertRepository
	matcher *Matcher
	saved   SavedPropertyStore
	events  EventStore
	users   UserDirectory
	mailer  Mailer
	now     func() time.Time
	workers int
	verbose bool
}

// NewEngine 建立批次引擎。workers 限制同時處理的警報數。
func NewEngine(alerts AlertRepository, finder PropertyFinder, drops PriceDropDetector,
	saved SavedPropertyStore, events EventStore, users UserDirectory, mailer Mailer,
	workers int, verbose bool) *Engine {
	if workers <= 0 {
		workers = 4
	}
	return &Engine{
		alerts:  alerts,
		matcher: NewMatcher(finder, drops),
		saved:   saved,
		events:  events,
		users:   users,
		mailer:  mailer,
		now:     time.Now,
		workers: workers,
		verbose: verbose,
	}
}

// Run 載入符合條件的警報並逐一處理。
// 個別警報的失敗只記錄不中斷；僅警報清單載入失敗回傳錯誤。
func (e *Engine) Run(ctx context.Context, mode alert.Mode) (RunStats, error) {
	eligible, err := e.alerts.ListEligible(ctx)
	if err != nil {
		return RunStats{}, fmt.Errorf("list eligible alerts: %w", err)
	}
	log.Printf("[Engine] processing %d alerts (mode=%s)", len(eligible), mode)

	var (
		mu    sync.Mutex
		stats RunStats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, a := range eligible {
		if !a.Eligible(e.now()) {
			continue // 名單查詢與處理之間剛好過期或被暫停
		}
		a := a
		g.Go(func() error {
			// 取消只在警報邊界檢查，進行中的警報讓它完成。
			if err := gctx.Err(); err != nil {
				return err
			}
			out := e.processOne(gctx, a, mode)
			mu.Lock()
			stats.Processed++
			stats.Matched += out.matched
			stats.PropertiesSaved += out.saved
			if out.emailSent {
				stats.EmailsSent++
			}
			if out.failed {
				stats.Failed++
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, fmt.Errorf("run interrupted: %w", err)
	}
	log.Printf("[Engine] done: processed=%d matched=%d emails=%d saved=%d failed=%d",
		stats.Processed, stats.Matched, stats.EmailsSent, stats.PropertiesSaved, stats.Failed)
	return stats, nil
}

type alertOutcome struct {
	matched   int
	saved     int
	emailSent bool
	failed    bool
}

// processOne 跑完單一警報的完整流程。任何失敗都被侷限在這個警報內。
func (e *Engine) processOne(ctx context.Context, a alert.Alert, mode alert.Mode) alertOutcome {
	var out alertOutcome

	center, err := geo.ParsePoint(a.Point)
	if err != nil {
		// 座標解不開視為本次零筆符合，游標照常推進。
		log.Printf("[Engine] alert %d: decode point: %v", a.ID, err)
		e.advanceCursor(ctx, a.ID, mode, &out)
		return out
	}
	box := geo.BoundingBoxAround(center, a.RadiusKm)

	records, queryFailures := e.matcher.Match(ctx, a, box)
	out.matched = len(records)
	if queryFailures > 0 {
		out.failed = true
	}
	if e.verbose {
		log.Printf("[Engine] alert %d (%s): %d matches, %d category failures",
			a.ID, a.LocationName, len(records), queryFailures)
	}

	if len(records) > 0 {
		if !e.dispatch(ctx, a, records, mode, &out) {
			// 通知沒送出去就不推游標，下一輪重試同一批房產。
			out.failed = true
			return out
		}
	}

	e.advanceCursor(ctx, a.ID, mode, &out)
	return out
}

// dispatch 建立摘要並寄送，成功後執行自動儲存與稽核紀錄。
// 回傳 false 表示通知未送達。
func (e *Engine) dispatch(ctx context.Context, a alert.Alert, records []property.Record, mode alert.Mode, out *alertOutcome) bool {
	digest := buildDigest(a, records)

	if mode == alert.ModeDryRun {
		log.Printf("[Engine] dry-run: would send %q to owner of alert %d (%d listings, %d rentals, %d sold, %d drops)",
			digest.Subject(), a.ID, len(digest.NewListings), len(digest.NewRentals), len(digest.NewSales), len(digest.PriceDrops))
		out.emailSent = true
		return true
	}

	to, err := e.users.EmailByID(ctx, a.UserID)
	if err != nil {
		log.Printf("[Engine] alert %d: resolve owner %d: %v", a.ID, a.UserID, err)
		return false
	}
	msgID, err := e.mailer.Send(ctx, to, digest.Subject(), digest.RenderText())
	if err != nil {
		log.Printf("[Engine] alert %d: send mail: %v", a.ID, err)
		return false
	}
	out.emailSent = true
	if e.verbose {
		log.Printf("[Engine] alert %d: mail delivered, message id %s", a.ID, msgID)
	}

	out.saved = e.autoSave(ctx, a, records)
	e.appendEvent(ctx, a, records, msgID)
	return true
}

// autoSave 把每筆符合的房產存進擁有者的儲存清單。
// 重複鍵是預期結果、不計入新增；其他錯誤逐筆記錄後繼續。
func (e *Engine) autoSave(ctx context.Context, a alert.Alert, records []property.Record) int {
	created := 0
	for _, rec := range records {
		ok, err := e.saved.Save(ctx, property.Saved{
			UserID:       a.UserID,
			PropertyID:   rec.ID,
			PropertyType: rec.Category(),
			Address:      rec.Address,
			AskingPrice:  rec.AskingPrice,
			MonthlyRent:  rec.MonthlyRent,
			SoldPrice:    rec.SoldPrice,
			Beds:         rec.Beds,
			Baths:        rec.Baths,
			Notes:        fmt.Sprintf("Auto-saved from alert: %s", a.LocationName),
		})
		if err != nil {
			log.Printf("[Engine] alert %d: auto-save property %d: %v", a.ID, rec.ID, err)
			continue
		}
		if ok {
			created++
		}
	}
	return created
}

// appendEvent 寫入 email_sent 稽核事件；通知已寄出，這裡的失敗只記錄。
func (e *Engine) appendEvent(ctx context.Context, a alert.Alert, records []property.Record, msgID string) {
	payload := alert.EventPayload{
		MessageID:  msgID,
		Total:      len(records),
		Properties: make([]alert.EventProperty, 0, len(records)),
	}
	for _, rec := range records {
		payload.Properties = append(payload.Properties, alert.EventProperty{ID: rec.ID, Address: rec.Address})
	}
	ev := alert.Event{
		ID:        uuid.NewString(),
		AlertID:   a.ID,
		Type:      alert.EventEmailSent,
		Payload:   payload,
		CreatedAt: e.now(),
	}
	if err := e.events.Append(ctx, ev); err != nil {
		log.Printf("[Engine] alert %d: append event: %v", a.ID, err)
	}
}

// advanceCursor 在 live 模式把 last_checked 推進到現在。
func (e *Engine) advanceCursor(ctx context.Context, alertID int64, mode alert.Mode, out *alertOutcome) {
	if mode == alert.ModeDryRun {
		return
	}
	if err := e.alerts.UpdateLastChecked(ctx, alertID, e.now()); err != nil {
		log.Printf("[Engine] alert %d: advance cursor: %v", alertID, err)
		out.failed = true
	}
}
