package cron

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/qs3c/premium_bot/internal/service"
)

const defaultIntervalMinutes = 30

// Reconciler 执行一次过期清理
type Reconciler interface {
	Run(ctx context.Context, now time.Time, dryRun bool) (*service.ReconcileResult, error)
}

// Service 定时对账：等待就绪信号后按固定间隔执行，启动时不执行
// 定时执行和 RunNow 共用一把锁，同一时刻只有一次对账在跑
type Service struct {
	mu         sync.Mutex
	reconciler Reconciler
	interval   time.Duration
	ready      <-chan struct{}
	stopChan   chan struct{}
	stopOnce   sync.Once
	now        func() time.Time
	onError    func(ctx context.Context, err error)
}

func NewService(reconciler Reconciler, intervalMinutes int, ready <-chan struct{}) *Service {
	if intervalMinutes <= 0 {
		intervalMinutes = defaultIntervalMinutes
	}
	return &Service{
		reconciler: reconciler,
		interval:   time.Duration(intervalMinutes) * time.Minute,
		ready:      ready,
		stopChan:   make(chan struct{}),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// OnError 定时执行失败时的回调，需在 Start 之前设置
func (s *Service) OnError(fn func(ctx context.Context, err error)) {
	s.onError = fn
}

// Start 启动定时任务
func (s *Service) Start(ctx context.Context) {
	go s.run(ctx)
	log.Printf("Cron service started (reconcile every %s, waiting for ready)", s.interval)
}

// Stop 停止定时任务，可重复调用
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		log.Println("Cron service stopped")
	})
}

func (s *Service) run(ctx context.Context) {
	select {
	case <-s.ready:
	case <-s.stopChan:
		return
	case <-ctx.Done():
		return
	}
	log.Println("Cron service ready, reconcile timer armed")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.runOnce(ctx, false); err != nil {
				log.Printf("Scheduled reconcile failed: %v", err)
				if s.onError != nil {
					s.onError(ctx, err)
				}
			}
		}
	}
}

// RunNow 立即执行一次对账（管理接口和命令行使用）
func (s *Service) RunNow(ctx context.Context, dryRun bool) (*service.ReconcileResult, error) {
	log.Printf("Manual reconcile triggered (dry_run=%v)", dryRun)
	return s.runOnce(ctx, dryRun)
}

func (s *Service) runOnce(ctx context.Context, dryRun bool) (*service.ReconcileResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconciler.Run(ctx, s.now(), dryRun)
}
