package service

import (
	"context"
	"encoding/json"
	"lingo_stake_backend/internal/model"
	"lingo_stake_backend/internal/repository"
	"lingo_stake_backend/internal/util"
	"lingo_stake_backend/pkg/logger"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type NotificationService struct {
	NotificationRepo *repository.NotificationRepository
	UserRepo         *repository.UserRepository
	Email            EmailSender
}

func NewNotificationService(notificationRepo *repository.NotificationRepository, userRepo *repository.UserRepository, email EmailSender) *NotificationService {
	return &NotificationService{
		NotificationRepo: notificationRepo,
		UserRepo:         userRepo,
		Email:            email,
	}
}

// Notify records an in-app notification. Failures are logged and swallowed so
// they never undo the transition that triggered them.
func (s *NotificationService) Notify(userID uint, typ model.NotificationType, title, message string, data map[string]interface{}) {
	n := &model.Notification{
		UserID:  userID,
		Type:    typ,
		Title:   title,
		Message: message,
	}
	if len(data) > 0 {
		if raw, err := json.Marshal(data); err == nil {
			n.Data = datatypes.JSON(raw)
		}
	}
	if err := s.NotificationRepo.Create(n); err != nil {
		logger.Log.Warn("Failed to create notification",
			zap.Uint("userId", userID),
			zap.String("type", string(typ)),
			zap.Error(err),
		)
	}
}

// EmailUser sends mail to the user's address in the background.
func (s *NotificationService) EmailUser(userID uint, subject, body string) {
	if s.Email == nil {
		return
	}
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		logger.Log.Warn("Email skipped, user lookup failed", zap.Uint("userId", userID), zap.Error(err))
		return
	}

	go func(to string) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.Email.Send(ctx, to, subject, body); err != nil {
			logger.Log.Warn("Failed to send email", zap.Uint("userId", userID), zap.Error(err))
		}
	}(user.Email)
}

type NotificationPage struct {
	util.PageResponse
	Unread int64 `json:"unread"`
}

func (s *NotificationService) List(userID uint, unreadOnly bool, page, limit int) (*NotificationPage, error) {
	list, total, err := s.NotificationRepo.ListByUser(userID, unreadOnly, page, limit)
	if err != nil {
		return nil, err
	}
	unread, err := s.NotificationRepo.CountUnread(userID)
	if err != nil {
		return nil, err
	}
	return &NotificationPage{
		PageResponse: util.PageResponse{List: list, Total: total, Page: page, Limit: limit},
		Unread:       unread,
	}, nil
}

func (s *NotificationService) UnreadCount(userID uint) (int64, error) {
	return s.NotificationRepo.CountUnread(userID)
}

func (s *NotificationService) MarkRead(userID, id uint) error {
	ok, err := s.NotificationRepo.MarkRead(id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return util.ErrNotFound
	}
	return nil
}

func (s *NotificationService) MarkAllRead(userID uint) (int64, error) {
	return s.NotificationRepo.MarkAllRead(userID)
}
