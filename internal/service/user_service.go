package service

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/qs3c/premium_bot/internal/model"
	"github.com/qs3c/premium_bot/internal/model/dto"
	"github.com/qs3c/premium_bot/internal/repository"
)

const DefaultBlacklistReason = "Aucune raison fournie"

var (
	ErrUserNotFound = errors.New("utilisateur introuvable")
)

// BlacklistedError 被拉黑的用户；errors.Is(err, ErrBlacklisted) 为 true
type BlacklistedError struct {
	UserID string
	Reason string
}

var ErrBlacklisted = errors.New("utilisateur blacklisté")

func (e *BlacklistedError) Error() string {
	return ErrBlacklisted.Error() + ": " + e.Reason
}

func (e *BlacklistedError) Is(target error) bool {
	return target == ErrBlacklisted
}

type UserService struct {
	userRepo *repository.RegisteredUserRepository
}

func NewUserService(userRepo *repository.RegisteredUserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// CheckBlacklisted 命令分发前的检查：被拉黑时返回 *BlacklistedError
func (s *UserService) CheckBlacklisted(ctx context.Context, userID string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if !user.IsBlacklisted {
		return nil
	}

	reason := DefaultBlacklistReason
	if user.Reason != nil && *user.Reason != "" {
		reason = *user.Reason
	}
	return &BlacklistedError{UserID: userID, Reason: reason}
}

// Blacklist 拉黑用户
func (s *UserService) Blacklist(ctx context.Context, userID, reason string) (*dto.RegisteredUserInfo, error) {
	if err := ValidateUserID(userID); err != nil {
		return nil, err
	}

	var reasonPtr *string
	if reason = strings.TrimSpace(reason); reason != "" {
		reasonPtr = &reason
	}
	if err := s.userRepo.SetBlacklisted(ctx, userID, reasonPtr); err != nil {
		return nil, err
	}

	return s.GetUser(ctx, userID)
}

// Unblacklist 解除拉黑
func (s *UserService) Unblacklist(ctx context.Context, userID string) (*dto.RegisteredUserInfo, error) {
	if err := ValidateUserID(userID); err != nil {
		return nil, err
	}

	ok, err := s.userRepo.ClearBlacklist(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUserNotFound
	}

	return s.GetUser(ctx, userID)
}

// GetUser 获取用户信息
func (s *UserService) GetUser(ctx context.Context, userID string) (*dto.RegisteredUserInfo, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return buildUserInfo(user), nil
}

func buildUserInfo(user *model.RegisteredUser) *dto.RegisteredUserInfo {
	info := &dto.RegisteredUserInfo{
		ID:            user.ID,
		Name:          user.Name,
		IsBlacklisted: user.IsBlacklisted,
	}
	if user.Reason != nil {
		info.Reason = *user.Reason
	}
	return info
}
