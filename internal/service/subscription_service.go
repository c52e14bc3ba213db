package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/qs3c/premium_bot/internal/metrics"
	"github.com/qs3c/premium_bot/internal/model"
	"github.com/qs3c/premium_bot/internal/pkg/discord"
	"github.com/qs3c/premium_bot/internal/pkg/pubsub"
	"github.com/qs3c/premium_bot/internal/repository"
)

const (
	MaxTransactionIDLength = 50

	// 终止记录时未绑定用户的显示名
	UnboundDisplayName = "—"

	roleReasonSubscribe = "Abonnement automatique"
	roleReasonRegister  = "Abonnement enregistré"
	roleReasonTerminate = "Abonnement résilié"
)

var (
	ErrInvalidTransaction = errors.New("numéro de transaction invalide")
	ErrInvalidDate        = errors.New("je n'ai pas compris la date")
	ErrExpiryInPast       = errors.New("la date d'expiration est déjà passée")
	ErrMissingFilter      = errors.New("il faut préciser une transaction ou un utilisateur")
	ErrInvalidUserID      = errors.New("identifiant utilisateur invalide")
	ErrClaimedByOther     = errors.New("un abonnement a déjà été enregistré avec ce numéro de transaction")
	ErrNotResident        = errors.New("l'utilisateur n'est pas dans le serveur")
	ErrNothingDeleted     = errors.New("aucun abonnement ne correspond")
	ErrClaimConflict      = errors.New("la transaction est modifiée en parallèle, réessayez")
	ErrTransactionGone    = errors.New("la transaction a été supprimée entre-temps")
	ErrSubscriptionAbsent = errors.New("abonnement introuvable")
)

// SubscribeOutcome 自助提交的结果
type SubscribeOutcome int

const (
	OutcomePending SubscribeOutcome = iota
	OutcomeActive
)

func (o SubscribeOutcome) String() string {
	if o == OutcomeActive {
		return "active"
	}
	return "pending"
}

type SubscribeInput struct {
	UserID        string
	UserName      string
	TransactionID string
}

type SubscribeResult struct {
	Outcome       SubscribeOutcome
	TransactionID string
	ExpireAt      *time.Time
	NewlyClaimed  bool
	RoleGranted   bool
}

type RegisterInput struct {
	TransactionID string
	Expires       string
	ActorID       string
}

type RegisterResult struct {
	Subscription   *model.Subscription
	Granted        bool
	BindingCleared bool
}

// TerminateMode 终止条件的组合方式
type TerminateMode string

const (
	TerminateModeAnd TerminateMode = "and"
	TerminateModeOr  TerminateMode = "or"
)

type TerminateInput struct {
	TransactionID string
	UserID        string
	Mode          TerminateMode
	ActorID       string
}

type TerminatedRecord struct {
	DisplayName   string
	TransactionID string
	UserID        string
}

type SubscriptionService struct {
	subRepo  *repository.SubscriptionRepository
	userRepo *repository.RegisteredUserRepository
	guild    Guild
	dates    DateParser
	events   EventPublisher
	now      func() time.Time
}

func NewSubscriptionService(
	subRepo *repository.SubscriptionRepository,
	userRepo *repository.RegisteredUserRepository,
	guild Guild,
	dates DateParser,
	events EventPublisher,
) *SubscriptionService {
	return &SubscriptionService{
		subRepo:  subRepo,
		userRepo: userRepo,
		guild:    guild,
		dates:    dates,
		events:   events,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// NormalizeTransactionID 去掉所有空白字符并校验长度
func NormalizeTransactionID(raw string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)

	if cleaned == "" || utf8.RuneCountInString(cleaned) > MaxTransactionIDLength {
		return "", ErrInvalidTransaction
	}
	return cleaned, nil
}

// ValidateUserID 校验 Discord 用户 ID（snowflake）
func ValidateUserID(userID string) error {
	id, err := snowflake.ParseString(userID)
	if err != nil || id <= 0 {
		return ErrInvalidUserID
	}
	return nil
}

// Subscribe 用户自助提交交易号
func (s *SubscriptionService) Subscribe(ctx context.Context, in SubscribeInput) (*SubscribeResult, error) {
	transactionID, err := NormalizeTransactionID(in.TransactionID)
	if err != nil {
		return nil, err
	}
	if err := ValidateUserID(in.UserID); err != nil {
		return nil, err
	}

	resident, err := s.guild.IsMember(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if !resident {
		return nil, ErrNotResident
	}

	if err := s.userRepo.Upsert(ctx, in.UserID, in.UserName); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	userID := in.UserID
	created, err := s.subRepo.CreatePending(ctx, &model.Subscription{
		TransactionID: transactionID,
		UserID:        &userID,
		Approved:      false,
		RegisteredAt:  now,
	})
	if err != nil {
		return nil, err
	}
	if created {
		metrics.SubscribeRequestsTotal.WithLabelValues("pending").Inc()
		s.publish(ctx, &pubsub.Event{
			Type:          pubsub.EventPending,
			TransactionID: transactionID,
			UserID:        userID,
		})
		return &SubscribeResult{Outcome: OutcomePending, TransactionID: transactionID}, nil
	}

	result, err := s.claim(ctx, transactionID, userID, now)
	if err != nil {
		if errors.Is(err, ErrClaimedByOther) {
			metrics.SubscribeRequestsTotal.WithLabelValues("rejected").Inc()
		}
		return nil, err
	}
	metrics.SubscribeRequestsTotal.WithLabelValues(result.Outcome.String()).Inc()

	if result.Outcome == OutcomeActive {
		err := s.guild.AddPremiumRole(ctx, userID, roleReasonSubscribe)
		metrics.ObserveRole("grant", err)
		if err != nil {
			log.Printf("Failed to grant premium role to %s: %v", userID, err)
		} else {
			result.RoleGranted = true
		}

		if result.NewlyClaimed {
			s.publish(ctx, &pubsub.Event{
				Type:          pubsub.EventClaimed,
				TransactionID: transactionID,
				UserID:        userID,
				ExpireAt:      result.ExpireAt,
			})
		}
	}

	return result, nil
}

// claim 已存在记录的分支，在一个事务内锁定记录后完成认领
func (s *SubscriptionService) claim(ctx context.Context, transactionID, userID string, now time.Time) (*SubscribeResult, error) {
	var result *SubscribeResult

	err := s.subRepo.Transaction(ctx, func(txRepo *repository.SubscriptionRepository) error {
		// 行锁保证并发认领者读到的是前一个事务提交后的状态
		sub, err := txRepo.GetByTransactionForUpdate(ctx, transactionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTransactionGone
			}
			return err
		}

		if sub.IsBound() && !sub.BoundTo(userID) {
			return ErrClaimedByOther
		}

		if !sub.IsActive() {
			result = &SubscribeResult{Outcome: OutcomePending, TransactionID: transactionID}
			return nil
		}

		if sub.ClaimedAt != nil {
			result = &SubscribeResult{
				Outcome:       OutcomeActive,
				TransactionID: transactionID,
				ExpireAt:      sub.ExpireAt,
			}
			return nil
		}

		// 保留审核时给出的时长，从认领时刻重新计算
		expireAt := now.Add(sub.ExpireAt.Sub(sub.RegisteredAt))
		ok, err := txRepo.ClaimIfUnclaimed(ctx, transactionID, userID, expireAt, now)
		if err != nil {
			return err
		}
		// 持有行锁时条件更新不应落空
		if !ok {
			return ErrClaimConflict
		}

		result = &SubscribeResult{
			Outcome:       OutcomeActive,
			TransactionID: transactionID,
			ExpireAt:      &expireAt,
			NewlyClaimed:  true,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Register 管理员登记交易号
func (s *SubscriptionService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	transactionID, err := NormalizeTransactionID(in.TransactionID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	expireAt, ok := s.dates.Parse(in.Expires, now)
	if !ok {
		return nil, ErrInvalidDate
	}
	expireAt = expireAt.UTC()
	if !expireAt.After(now) {
		return nil, ErrExpiryInPast
	}

	sub, err := s.subRepo.UpsertApproved(ctx, transactionID, expireAt, now)
	if err != nil {
		return nil, err
	}
	metrics.RegistrationsTotal.Inc()

	result := &RegisterResult{Subscription: sub}

	if sub.IsBound() {
		userID := *sub.UserID
		resident, err := s.guild.IsMember(ctx, userID)
		switch {
		case err != nil:
			log.Printf("Failed to check membership of %s, binding kept: %v", userID, err)
		case resident:
			err := s.guild.AddPremiumRole(ctx, userID, roleReasonRegister)
			metrics.ObserveRole("grant", err)
			if err != nil {
				log.Printf("Failed to grant premium role to %s: %v", userID, err)
			} else {
				result.Granted = true
			}

			if sub.ClaimedAt == nil {
				if err := s.subRepo.MarkClaimed(ctx, transactionID, userID, now); err != nil {
					return nil, err
				}
				sub.ClaimedAt = &now
			}

			if err := s.guild.SendDirectMessage(ctx, userID, expiryNotice(*sub.ExpireAt)); err != nil {
				log.Printf("Failed to DM %s: %v", userID, err)
			}
		default:
			if err := s.subRepo.ClearBinding(ctx, transactionID, userID); err != nil {
				return nil, err
			}
			sub.UserID = nil
			sub.ClaimedAt = nil
			result.BindingCleared = true
		}
	}

	event := &pubsub.Event{
		Type:          pubsub.EventRegistered,
		TransactionID: transactionID,
		ActorID:       in.ActorID,
		ExpireAt:      sub.ExpireAt,
	}
	if sub.IsBound() {
		event.UserID = *sub.UserID
	}
	s.publish(ctx, event)

	return result, nil
}

// Terminate 按交易号和/或用户删除记录
func (s *SubscriptionService) Terminate(ctx context.Context, in TerminateInput) ([]TerminatedRecord, error) {
	filter := repository.TerminateFilter{MatchAny: in.Mode == TerminateModeOr}

	if strings.TrimSpace(in.TransactionID) != "" {
		transactionID, err := NormalizeTransactionID(in.TransactionID)
		if err != nil {
			return nil, err
		}
		filter.TransactionID = transactionID
	}
	if in.UserID != "" {
		if err := ValidateUserID(in.UserID); err != nil {
			return nil, err
		}
		filter.UserID = in.UserID
	}
	if filter.TransactionID == "" && filter.UserID == "" {
		return nil, ErrMissingFilter
	}

	deleted, err := s.subRepo.DeleteMatching(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(deleted) == 0 {
		return nil, ErrNothingDeleted
	}
	metrics.TerminationsTotal.Add(float64(len(deleted)))

	var userIDs []string
	seen := make(map[string]bool)
	for _, sub := range deleted {
		if sub.IsBound() && !seen[*sub.UserID] {
			seen[*sub.UserID] = true
			userIDs = append(userIDs, *sub.UserID)
		}
	}

	names, err := s.userRepo.GetNames(ctx, userIDs)
	if err != nil {
		log.Printf("Failed to load display names: %v", err)
		names = map[string]string{}
	}

	records := make([]TerminatedRecord, 0, len(deleted))
	for _, sub := range deleted {
		record := TerminatedRecord{DisplayName: UnboundDisplayName, TransactionID: sub.TransactionID}
		if sub.IsBound() {
			record.UserID = *sub.UserID
			record.DisplayName = *sub.UserID
			if name := names[*sub.UserID]; name != "" {
				record.DisplayName = name
			}
		}
		records = append(records, record)

		s.publish(ctx, &pubsub.Event{
			Type:          pubsub.EventTerminated,
			TransactionID: sub.TransactionID,
			UserID:        record.UserID,
			ActorID:       in.ActorID,
		})
	}

	now := s.now().UTC()
	for _, userID := range userIDs {
		held, err := holdsValidSubscription(ctx, s.subRepo, userID, now)
		if err != nil {
			log.Printf("Failed to check remaining subscriptions of %s: %v", userID, err)
			continue
		}
		if held {
			continue
		}
		err = s.guild.RemovePremiumRole(ctx, userID, roleReasonTerminate)
		metrics.ObserveRole("revoke", err)
		if err != nil {
			log.Printf("Failed to revoke premium role from %s: %v", userID, err)
		}
	}

	return records, nil
}

// Status 用户名下的所有记录
func (s *SubscriptionService) Status(ctx context.Context, userID string) ([]model.Subscription, error) {
	if err := ValidateUserID(userID); err != nil {
		return nil, err
	}
	return s.subRepo.ListByUser(ctx, userID)
}

// Get 按交易号查询
func (s *SubscriptionService) Get(ctx context.Context, transactionID string) (*model.Subscription, error) {
	transactionID, err := NormalizeTransactionID(transactionID)
	if err != nil {
		return nil, err
	}
	sub, err := s.subRepo.GetByTransaction(ctx, transactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionAbsent
		}
		return nil, err
	}
	return sub, nil
}

// List 分页查询账本
func (s *SubscriptionService) List(ctx context.Context, filter repository.SubscriptionFilter, page, pageSize int) ([]model.Subscription, int64, error) {
	if filter.UserID != "" {
		if err := ValidateUserID(filter.UserID); err != nil {
			return nil, 0, err
		}
	}
	return s.subRepo.List(ctx, filter, page, pageSize)
}

func (s *SubscriptionService) publish(ctx context.Context, event *pubsub.Event) {
	if s.events == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now().UTC()
	}
	if err := s.events.Publish(ctx, event); err != nil {
		log.Printf("Failed to publish %s for %s: %v", event.Type, event.TransactionID, err)
	}
}

// holdsValidSubscription 用户是否还有其他未过期的已审核记录
func holdsValidSubscription(ctx context.Context, repo *repository.SubscriptionRepository, userID string, now time.Time) (bool, error) {
	subs, err := repo.ListByUser(ctx, userID)
	if err != nil {
		return false, err
	}
	for i := range subs {
		if subs[i].IsActive() && !subs[i].ExpiredAt(now) {
			return true, nil
		}
	}
	return false, nil
}

func expiryNotice(expireAt time.Time) string {
	return "Votre abonnement a bien été enregistré et est valable jusqu'au " +
		discord.FormatTimestamp(expireAt) + "."
}
