package alerts

import (
	"context"
	"log"
	"time"

	"property-alerts/internal/domain/alert"
)

type batchRunner interface {
	Run(ctx context.Context, mode alert.Mode) (RunStats, error)
}

// Worker 以固定間隔重複執行批次。
type Worker struct {
	engine   batchRunner
	interval time.Duration
	mode     alert.Mode
	stopChan chan struct{}
}

// NewWorker 建立排程工作者。
func NewWorker(engine batchRunner, interval time.Duration, mode alert.Mode) *Worker {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	return &Worker{
		engine:   engine,
		interval: interval,
		mode:     mode,
		stopChan: make(chan struct{}),
	}
}

// Start 啟動迴圈。
func (w *Worker) Start() {
	log.Printf("[Worker] starting alert worker with interval: %v", w.interval)
	ticker := time.NewTicker(w.interval)
	go func() {
		// 啟動後立即執行一次
		w.runOnce()

		for {
			select {
			case <-ticker.C:
				w.runOnce()
			case <-w.stopChan:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop 停止迴圈。
func (w *Worker) Stop() {
	close(w.stopChan)
}

func (w *Worker) runOnce() {
	ctx := context.Background()
	stats, err := w.engine.Run(ctx, w.mode)
	if err != nil {
		log.Printf("[Worker] run failed: %v", err)
		return
	}
	log.Printf("[Worker] run completed: processed=%d emails=%d", stats.Processed, stats.EmailsSent)
}
