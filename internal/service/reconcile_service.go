package service

import (
	"context"
	"log"
	"time"

	"github.com/qs3c/premium_bot/internal/metrics"
	"github.com/qs3c/premium_bot/internal/model"
	"github.com/qs3c/premium_bot/internal/pkg/pubsub"
	"github.com/qs3c/premium_bot/internal/repository"
)

const roleReasonExpired = "Abonnement expiré"

type ReconcileResult struct {
	Expired []model.Subscription
	Revoked int
	Deleted int64
	DryRun  bool
}

// ReconcileService 清理已过期的已绑定记录
type ReconcileService struct {
	subRepo *repository.SubscriptionRepository
	guild   Guild
	events  EventPublisher
}

func NewReconcileService(subRepo *repository.SubscriptionRepository, guild Guild, events EventPublisher) *ReconcileService {
	return &ReconcileService{
		subRepo: subRepo,
		guild:   guild,
		events:  events,
	}
}

// Run 扫描 expire_at <= now 的已绑定记录，撤销角色后批量删除；dryRun 只返回待处理记录
func (s *ReconcileService) Run(ctx context.Context, now time.Time, dryRun bool) (*ReconcileResult, error) {
	start := time.Now()
	now = now.UTC()

	bound, err := s.subRepo.ListBound(ctx)
	if err != nil {
		metrics.ReconcileRunsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	result := &ReconcileResult{DryRun: dryRun}
	for _, sub := range bound {
		if sub.ExpiredAt(now) {
			result.Expired = append(result.Expired, sub)
		}
	}

	if dryRun || len(result.Expired) == 0 {
		metrics.ReconcileRunsTotal.WithLabelValues("success").Inc()
		return result, nil
	}

	revoked := make(map[string]bool)
	keys := make([]repository.SubscriptionKey, 0, len(result.Expired))
	for _, sub := range result.Expired {
		userID := *sub.UserID
		keys = append(keys, repository.SubscriptionKey{TransactionID: sub.TransactionID, UserID: userID})

		if _, done := revoked[userID]; done {
			continue
		}
		revoked[userID] = s.revoke(ctx, userID, now)
	}

	for _, ok := range revoked {
		if ok {
			result.Revoked++
		}
	}

	deleted, err := s.subRepo.DeleteByKeys(ctx, keys)
	if err != nil {
		metrics.ReconcileRunsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	result.Deleted = deleted
	metrics.ReconcileExpiredTotal.Add(float64(deleted))

	if s.events != nil {
		for _, sub := range result.Expired {
			err := s.events.Publish(ctx, &pubsub.Event{
				Type:          pubsub.EventExpired,
				TransactionID: sub.TransactionID,
				UserID:        *sub.UserID,
				ExpireAt:      sub.ExpireAt,
				OccurredAt:    now,
			})
			if err != nil {
				log.Printf("Failed to publish expiry of %s: %v", sub.TransactionID, err)
			}
		}
	}

	metrics.ReconcileRunsTotal.WithLabelValues("success").Inc()
	metrics.ReconcileDuration.Observe(time.Since(start).Seconds())
	log.Printf("Reconcile: %d expired, %d revoked, %d deleted", len(result.Expired), result.Revoked, deleted)

	return result, nil
}

// revoke 尽力撤销角色，任何失败只记录日志
func (s *ReconcileService) revoke(ctx context.Context, userID string, now time.Time) bool {
	held, err := holdsValidSubscription(ctx, s.subRepo, userID, now)
	if err != nil {
		log.Printf("Reconcile: failed to check remaining subscriptions of %s: %v", userID, err)
		return false
	}
	if held {
		return false
	}

	resident, err := s.guild.IsMember(ctx, userID)
	if err != nil {
		log.Printf("Reconcile: failed to check membership of %s: %v", userID, err)
		return false
	}
	if !resident {
		return false
	}

	err = s.guild.RemovePremiumRole(ctx, userID, roleReasonExpired)
	metrics.ObserveRole("revoke", err)
	if err != nil {
		log.Printf("Reconcile: failed to revoke premium role from %s: %v", userID, err)
		return false
	}
	return true
}
