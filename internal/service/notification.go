package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	apperrors "github.com/surdiana/auth-service/internal/errors"
	"github.com/surdiana/auth-service/internal/repository"
	ctxutil "github.com/surdiana/auth-service/pkg/context"
	"github.com/surdiana/auth-service/pkg/circuit"
	"github.com/surdiana/auth-service/pkg/fcm"
	"github.com/surdiana/auth-service/pkg/logger"
)

// PushSender delivers one push message to one device token. The
// production implementation is pkg/fcm.Sender.
type PushSender interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) error
}

// NotificationService manages device tokens and fans push messages out
// to every device a user registered. Tokens FCM reports as unregistered
// are dropped on the spot.
type NotificationService struct {
	fcmTokenRepo *repository.FCMTokenRepository
	sender       PushSender
	breaker      *circuit.Breaker
}

func NewNotificationService(fcmTokenRepo *repository.FCMTokenRepository, sender PushSender, breaker *circuit.Breaker) *NotificationService {
	return &NotificationService{
		fcmTokenRepo: fcmTokenRepo,
		sender:       sender,
		breaker:      breaker,
	}
}

// RegisterToken stores or refreshes a device token for the user
func (s *NotificationService) RegisterToken(ctx context.Context, userID uuid.UUID, token, deviceType string) error {
	ctx = ctxutil.NewContextWithOperation(ctx, "notification_service", "RegisterToken")

	if err := s.fcmTokenRepo.Upsert(ctx, userID, token, deviceType); err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.DebugWithContext(ctx, "Device token registered").
		String("user_id", userID.String()).
		String("device_type", deviceType).
		Log()

	return nil
}

// UnregisterToken removes a device token
func (s *NotificationService) UnregisterToken(ctx context.Context, token string) error {
	ctx = ctxutil.NewContextWithOperation(ctx, "notification_service", "UnregisterToken")

	if err := s.fcmTokenRepo.DeleteByToken(ctx, token); err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	return nil
}

// NotifyUser sends a push message to every device the user registered.
// Delivery failures never fail the caller.
func (s *NotificationService) NotifyUser(ctx context.Context, userID uuid.UUID, title, body string, data map[string]string) {
	ctx = ctxutil.NewContextWithOperation(ctx, "notification_service", "NotifyUser")

	if s.sender == nil {
		return
	}

	tokens, err := s.fcmTokenRepo.ListForUser(ctx, userID)
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to load device tokens").
			String("user_id", userID.String()).
			Err(err).
			Log()
		return
	}

	for _, t := range tokens {
		token := t.Token

		err := s.breaker.Execute(func() error {
			return s.sender.Send(ctx, token, title, body, data)
		})

		if err == nil {
			if touchErr := s.fcmTokenRepo.Touch(ctx, token); touchErr != nil {
				logger.WarnWithContext(ctx, "Failed to touch device token").
					Err(touchErr).
					Log()
			}
			continue
		}

		if errors.Is(err, fcm.ErrUnregisteredToken) {
			if delErr := s.fcmTokenRepo.DeleteByToken(ctx, token); delErr != nil {
				logger.WarnWithContext(ctx, "Failed to drop unregistered device token").
					Err(delErr).
					Log()
			}
			continue
		}

		logger.ErrorWithContext(ctx, "Push delivery failed").
			String("user_id", userID.String()).
			Err(err).
			Log()
	}
}
