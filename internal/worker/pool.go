package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/qs3c/premium_bot/internal/pkg/queue"
)

const popTimeout = 5 * time.Second

// Popper 阻塞式读取报告队列
type Popper interface {
	Pop(ctx context.Context, timeout time.Duration) (*queue.ReportMessage, error)
}

// Handler 处理单条报告
type Handler interface {
	Process(ctx context.Context, msg *queue.ReportMessage) error
}

// RunPool 启动 workers 个消费者，ctx 结束后等待全部退出
func RunPool(ctx context.Context, q Popper, h Handler, workers int) {
	if workers <= 0 {
		workers = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			consume(ctx, workerID, q, h)
		}(i)
	}
	wg.Wait()
}

func consume(ctx context.Context, workerID int, q Popper, h Handler) {
	for {
		select {
		case <-ctx.Done():
			log.Printf("Worker %d shutting down", workerID)
			return
		default:
		}

		msg, err := q.Pop(ctx, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Worker %d: failed to pop report: %v", workerID, err)
			time.Sleep(time.Second)
			continue
		}
		if msg == nil {
			continue // 超时，继续等待
		}

		log.Printf("Worker %d: delivering incident %s", workerID, msg.IncidentID)
		if err := h.Process(ctx, msg); err != nil {
			log.Printf("Worker %d: incident %s failed: %v", workerID, msg.IncidentID, err)
		}
	}
}
