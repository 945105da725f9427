package alerts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"property-alerts/internal/domain/alert"
	"property-alerts/internal/domain/property"
)

type fakeAlertRepo struct {
	mu      sync.Mutex
	list    []alert.Alert
	listErr error
	updated map[int64]time.Time
}

func (f *fakeAlertRepo) ListEligible(context.Context) ([]alert.Alert, error) {
	return f.list, f.listErr
}

func (f *fakeAlertRepo) UpdateLastChecked(_ context.Context, alertID int64, checkedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updated == nil {
		f.updated = map[int64]time.Time{}
	}
	f.updated[alertID] = checkedAt
	return nil
}

type fakeSavedStore struct {
	mu       sync.Mutex
	saved    []property.Saved
	existing map[int64]bool // property id → 已存在
	err      error
}

func (f *fakeSavedStore) Save(_ context.Context, s property.Saved) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if f.existing[s.PropertyID] {
		return false, nil
	}
	f.saved = append(f.saved, s)
	return true, nil
}

type fakeEventStore struct {
	mu     sync.Mutex
	events []alert.Event
	err    error
}

func (f *fakeEventStore) Append(_ context.Context, ev alert.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

type fakeUsers struct {
	email string
	err   error
}

func (f fakeUsers) EmailByID(context.Context, int64) (string, error) {
	return f.email, f.err
}

type sentMail struct {
	to      string
	subject string
	body    string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(_ context.Context, to, subject, body string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, body: body})
	return "msg-42", nil
}

type engineFixture struct {
	alerts *fakeAlertRepo
	finder *fakeFinder
	saved  *fakeSavedStore
	events *fakeEventStore
	users  *fakeUsers
	mailer *fakeMailer
	engine *Engine
}

func newFixture(list []alert.Alert, finder *fakeFinder) *engineFixture {
	fx := &engineFixture{
		alerts: &fakeAlertRepo{list: list},
		finder: finder,
		saved:  &fakeSavedStore{},
		events: &fakeEventStore{},
		users:  &fakeUsers{email: "owner@example.ie"},
		mailer: &fakeMailer{},
	}
	fx.engine = NewEngine(fx.alerts, fx.finder, nil, fx.saved, fx.events, fx.users, fx.mailer, 2, false)
	return fx
}

func TestEngine_LiveRun(t *testing.T) {
	finder := &fakeFinder{sales: []property.Record{saleRec(10, 395000)}}
	fx := newFixture([]alert.Alert{saleAlert()}, finder)

	stats, err := fx.engine.Run(context.Background(), alert.ModeLive)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Processed != 1 || stats.EmailsSent != 1 || stats.Matched != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.PropertiesSaved != 1 {
		t.Errorf("expected 1 auto-save, got %d", stats.PropertiesSaved)
	}
	if len(fx.mailer.sent) != 1 {
		t.Fatalf("expected 1 mail, got %d", len(fx.mailer.sent))
	}
	if fx.mailer.sent[0].to != "owner@example.ie" {
		t.Errorf("unexpected recipient: %s", fx.mailer.sent[0].to)
	}
	if len(fx.events.events) != 1 {
		t.Fatalf("expected 1 audit event, got %d", len(fx.events.events))
	}
	ev := fx.events.events[0]
	if ev.Type != alert.EventEmailSent || ev.Payload.MessageID != "msg-42" || ev.Payload.Total != 1 {
		t.Errorf("unexpected event: %+v", ev)
	}
	if _, ok := fx.alerts.updated[1]; !ok {
		t.Error("expected cursor advance after live run")
	}
	if len(fx.saved.saved) != 1 || fx.saved.saved[0].Notes != "Auto-saved from alert: Dublin 4" {
		t.Errorf("unexpected saved records: %+v", fx.saved.saved)
	}
}

func TestEngine_DryRun_NoSideEffects(t *testing.T) {
	finder := &fakeFinder{sales: []property.Record{saleRec(10, 395000)}}
	fx := newFixture([]alert.Alert{saleAlert()}, finder)

	stats, err := fx.engine.Run(context.Background(), alert.ModeDryRun)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Processed != 1 || stats.Matched != 1 {
		t.Fatalf("matching must behave exactly like live, got %+v", stats)
	}
	if len(fx.mailer.sent) != 0 {
		t.Error("dry-run must not call the transport")
	}
	if len(fx.saved.saved) != 0 {
		t.Error("dry-run must not write saved items")
	}
	if len(fx.events.events) != 0 {
		t.Error("dry-run must not append audit events")
	}
	if len(fx.alerts.updated) != 0 {
		t.Error("dry-run must not advance the cursor")
	}
}

func TestEngine_TransportFailureKeepsCursor(t *testing.T) {
	finder := &fakeFinder{sales: []property.Record{saleRec(10, 395000)}}
	fx := newFixture([]alert.Alert{saleAlert()}, finder)
	fx.mailer.err = errors.New("relay unavailable")

	stats, err := fx.engine.Run(context.Background(), alert.ModeLive)
	if err != nil {
		t.Fatalf("transport failure must not fail the batch: %v", err)
	}
	if stats.Failed != 1 || stats.EmailsSent != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	// 游標未推進，下一輪重送同一批房產。
	if len(fx.alerts.updated) != 0 {
		t.Error("cursor must not advance when the notification was not delivered")
	}
	if len(fx.saved.saved) != 0 || len(fx.events.events) != 0 {
		t.Error("no saves or events after a failed dispatch")
	}
}

func TestEngine_DecodeFailureIsolated(t *testing.T) {
	bad := saleAlert()
	bad.ID = 1
	bad.Point = "0101000020E6100000" // 截斷的 EWKB
	good := saleAlert()
	good.ID = 2

	finder := &fakeFinder{sales: []property.Record{saleRec(10, 395000)}}
	fx := newFixture([]alert.Alert{bad, good}, finder)

	stats, err := fx.engine.Run(context.Background(), alert.ModeLive)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Processed != 2 {
		t.Fatalf("both alerts must be processed, got %+v", stats)
	}
	if stats.EmailsSent != 1 {
		t.Fatalf("only the good alert should notify, got %+v", stats)
	}
	// 解碼失敗視為零筆符合，游標照常推進。
	if _, ok := fx.alerts.updated[1]; !ok {
		t.Error("decode failure must still advance the cursor")
	}
	if _, ok := fx.alerts.updated[2]; !ok {
		t.Error("good alert cursor must advance")
	}
}

func TestEngine_ZeroMatchesAdvancesCursor(t *testing.T) {
	fx := newFixture([]alert.Alert{saleAlert()}, &fakeFinder{})

	stats, err := fx.engine.Run(context.Background(), alert.ModeLive)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.EmailsSent != 0 {
		t.Error("no mail without matches")
	}
	if _, ok := fx.alerts.updated[1]; !ok {
		t.Error("cursor must advance even with zero matches")
	}
}

func TestEngine_DuplicateSaveIsNoop(t *testing.T) {
	finder := &fakeFinder{sales: []property.Record{saleRec(10, 395000), saleRec(11, 420000)}}
	fx := newFixture([]alert.Alert{saleAlert()}, finder)
	fx.saved.existing = map[int64]bool{10: true}

	stats, err := fx.engine.Run(context.Background(), alert.ModeLive)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.PropertiesSaved != 1 {
		t.Errorf("duplicate must not count as a new save, got %d", stats.PropertiesSaved)
	}
	if stats.Failed != 0 {
		t.Errorf("duplicate save is not a failure, got %+v", stats)
	}
}

func TestEngine_SaveErrorDoesNotAbort(t *testing.T) {
	finder := &fakeFinder{sales: []property.Record{saleRec(10, 395000)}}
	fx := newFixture([]alert.Alert{saleAlert()}, finder)
	fx.saved.err = errors.New("disk full")

	stats, err := fx.engine.Run(context.Background(), alert.ModeLive)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 通知已寄出，儲存失敗不影響游標與事件。
	if stats.EmailsSent != 1 {
		t.Errorf("mail already delivered, got %+v", stats)
	}
	if len(fx.events.events) != 1 {
		t.Error("audit event must still be appended")
	}
	if _, ok := fx.alerts.updated[1]; !ok {
		t.Error("cursor must still advance")
	}
}

func TestEngine_EventErrorDoesNotRollBack(t *testing.T) {
	finder := &fakeFinder{sales: []property.Record{saleRec(10, 395000)}}
	fx := newFixture([]alert.Alert{saleAlert()}, finder)
	fx.events.err = errors.New("audit store down")

	stats, err := fx.engine.Run(context.Background(), alert.ModeLive)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.EmailsSent != 1 || stats.PropertiesSaved != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if _, ok := fx.alerts.updated[1]; !ok {
		t.Error("cursor must advance despite audit failure")
	}
}

func TestEngine_OwnerLookupFailure(t *testing.T) {
	finder := &fakeFinder{sales: []property.Record{saleRec(10, 395000)}}
	fx := newFixture([]alert.Alert{saleAlert()}, finder)
	fx.users.err = errors.New("user store timeout")

	stats, err := fx.engine.Run(context.Background(), alert.ModeLive)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Failed != 1 || len(fx.alerts.updated) != 0 {
		t.Fatalf("undeliverable alert must retry next run: %+v", stats)
	}
}

func TestEngine_ListFailureIsFatal(t *testing.T) {
	fx := newFixture(nil, &fakeFinder{})
	fx.alerts.listErr = errors.New("alert store unreachable")

	if _, err := fx.engine.Run(context.Background(), alert.ModeLive); err == nil {
		t.Fatal("expected error when the alert list cannot be loaded")
	}
}

func TestEngine_SkipsNoLongerEligible(t *testing.T) {
	expired := saleAlert()
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	fx := newFixture([]alert.Alert{expired}, &fakeFinder{})

	stats, err := fx.engine.Run(context.Background(), alert.ModeLive)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Processed != 0 {
		t.Errorf("expired alert must be skipped, got %+v", stats)
	}
}

func TestEngine_CursorMonotonic(t *testing.T) {
	fx := newFixture([]alert.Alert{saleAlert()}, &fakeFinder{})
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	step := 0
	fx.engine.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Minute)
	}

	if _, err := fx.engine.Run(context.Background(), alert.ModeLive); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first := fx.alerts.updated[1]
	if _, err := fx.engine.Run(context.Background(), alert.ModeLive); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second := fx.alerts.updated[1]
	if !second.After(first) {
		t.Errorf("cursor must be monotonically non-decreasing: %v then %v", first, second)
	}
}
