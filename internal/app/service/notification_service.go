package service

import (
	"errors"

	"github.com/ikkim/bloodlink-backend/internal/app/model"
	"github.com/ikkim/bloodlink-backend/internal/app/repository"
	"github.com/ikkim/bloodlink-backend/pkg/logger"
	"github.com/ikkim/bloodlink-backend/pkg/mailer"
	"gorm.io/gorm"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrInvalidNotification  = errors.New("notification title and message are required")
	ErrInvalidRole          = errors.New("invalid role")
)

// NotificationCategory selects which user setting gates the email copy.
type NotificationCategory string

const (
	CategoryGeneral     NotificationCategory = "general"
	CategoryAppointment NotificationCategory = "appointment"
	CategoryRequest     NotificationCategory = "request"
)

// NotificationInput one notification for one user
type NotificationInput struct {
	UserID        uint
	Title         string
	Message       string
	Type          model.NotificationType
	Link          string
	Category      NotificationCategory
	AppointmentID *uint
	RequestID     *uint
}

// Pusher delivers a realtime payload to a connected user. *websocket.Hub implements it.
type Pusher interface {
	SendNotificationToUser(userID uint, message interface{}) error
}

type NotificationService interface {
	// Notify stores the in-app row, pushes it to live sessions and emails a copy when the
	// user's settings allow. Push and email failures are logged and never returned.
	Notify(input NotificationInput) (*model.Notification, error)
	// Broadcast notifies every user with role. Admin only.
	Broadcast(actor Actor, role model.UserRole, title, message string, kind model.NotificationType) (int, error)

	GetNotifications(userID uint, notifType *model.NotificationType, isRead *bool, page, pageSize int) ([]model.Notification, int64, int64, error)
	GetUnreadCount(userID uint) (int64, error)
	MarkAsRead(notificationID, userID uint) (*model.Notification, error)
	MarkAllAsRead(userID uint) (int64, error)
	DeleteNotification(notificationID, userID uint) error

	GetNotificationSettings(userID uint) (*model.NotificationSettings, error)
	UpdateNotificationSettings(userID uint, req *UpdateNotificationSettingsRequest) (*model.NotificationSettings, error)
}

type notificationService struct {
	repo     repository.NotificationRepository
	userRepo repository.UserRepository
	mailer   mailer.Mailer
	pusher   Pusher
}

// UpdateNotificationSettingsRequest partial update; nil fields are left unchanged
type UpdateNotificationSettingsRequest struct {
	EmailNotification       *bool `json:"email_notification"`
	AppointmentNotification *bool `json:"appointment_notification"`
	RequestNotification     *bool `json:"request_notification"`
}

// NewNotificationService pusher may be nil when realtime delivery is disabled.
func NewNotificationService(
	repo repository.NotificationRepository,
	userRepo repository.UserRepository,
	m mailer.Mailer,
	pusher Pusher,
) NotificationService {
	return &notificationService{
		repo:     repo,
		userRepo: userRepo,
		mailer:   m,
		pusher:   pusher,
	}
}

func (s *notificationService) Notify(input NotificationInput) (*model.Notification, error) {
	if input.Title == "" || input.Message == "" {
		return nil, ErrInvalidNotification
	}
	if !input.Type.IsValid() {
		input.Type = model.NotificationTypeInfo
	}

	notification := &model.Notification{
		UserID:               input.UserID,
		Type:                 input.Type,
		Title:                input.Title,
		Message:              input.Message,
		Link:                 input.Link,
		RelatedAppointmentID: input.AppointmentID,
		RelatedRequestID:     input.RequestID,
	}
	if err := s.repo.CreateNotification(notification); err != nil {
		logger.Error("Failed to create notification", err, map[string]interface{}{
			"user_id": input.UserID,
			"title":   input.Title,
		})
		return nil, err
	}

	s.push(notification)
	s.email(notification, input.Category)

	return notification, nil
}

// notifyQuietly is fire and forget; callers have already committed their state change.
func notifyQuietly(notifier NotificationService, input NotificationInput) {
	if notifier == nil {
		return
	}
	if _, err := notifier.Notify(input); err != nil {
		logger.Warn("Failed to create notification", map[string]interface{}{
			"user_id": input.UserID,
			"title":   input.Title,
			"error":   err.Error(),
		})
	}
}

func (s *notificationService) push(notification *model.Notification) {
	if s.pusher == nil {
		return
	}
	payload := map[string]interface{}{
		"type":         "notification",
		"notification": notification,
	}
	if err := s.pusher.SendNotificationToUser(notification.UserID, payload); err != nil {
		logger.Warn("Failed to push notification", map[string]interface{}{
			"user_id":         notification.UserID,
			"notification_id": notification.ID,
			"error":           err.Error(),
		})
	}
}

func (s *notificationService) email(notification *model.Notification, category NotificationCategory) {
	if s.mailer == nil {
		return
	}

	settings, err := s.repo.GetNotificationSettings(notification.UserID)
	if err != nil {
		logger.Warn("Failed to load notification settings", map[string]interface{}{
			"user_id": notification.UserID,
			"error":   err.Error(),
		})
		return
	}
	if !settings.EmailNotification {
		return
	}
	switch category {
	case CategoryAppointment:
		if !settings.AppointmentNotification {
			return
		}
	case CategoryRequest:
		if !settings.RequestNotification {
			return
		}
	}

	user, err := s.userRepo.FindByID(notification.UserID)
	if err != nil {
		logger.Warn("Notification recipient not found", map[string]interface{}{
			"user_id": notification.UserID,
		})
		return
	}

	subject, body, err := mailer.NotificationEmail(notification.Title, notification.Message, string(notification.Type))
	if err != nil {
		logger.Error("Failed to render notification email", err)
		return
	}
	if err := s.mailer.Send(user.Email, subject, body); err != nil {
		logger.Warn("Notification email delivery failed", map[string]interface{}{
			"user_id": notification.UserID,
			"error":   err.Error(),
		})
	}
}

func (s *notificationService) Broadcast(actor Actor, role model.UserRole, title, message string, kind model.NotificationType) (int, error) {
	if err := requireRole(actor, model.RoleAdmin); err != nil {
		return 0, err
	}
	if !role.IsValid() {
		return 0, ErrInvalidRole
	}
	if title == "" || message == "" {
		return 0, ErrInvalidNotification
	}
	if !kind.IsValid() {
		kind = model.NotificationTypeInfo
	}

	userIDs, err := s.userRepo.ListIDsByRole(role)
	if err != nil {
		return 0, err
	}

	notifications := make([]model.Notification, 0, len(userIDs))
	for _, id := range userIDs {
		notifications = append(notifications, model.Notification{
			UserID:  id,
			Type:    kind,
			Title:   title,
			Message: message,
		})
	}
	if err := s.repo.CreateNotifications(notifications); err != nil {
		logger.Error("Failed to store broadcast", err, map[string]interface{}{
			"role": role,
		})
		return 0, err
	}

	for i := range notifications {
		s.push(&notifications[i])
	}

	logger.Info("Broadcast sent", map[string]interface{}{
		"role":       role,
		"recipients": len(notifications),
		"admin_id":   actor.UserID,
	})
	return len(notifications), nil
}

func (s *notificationService) GetNotifications(
	userID uint,
	notifType *model.NotificationType,
	isRead *bool,
	page, pageSize int,
) ([]model.Notification, int64, int64, error) {
	limit, offset := pageBounds(page, pageSize)

	notifications, total, err := s.repo.GetNotifications(userID, notifType, isRead, limit, offset)
	if err != nil {
		return nil, 0, 0, err
	}

	unreadCount, err := s.repo.GetUnreadCount(userID)
	if err != nil {
		return nil, 0, 0, err
	}

	return notifications, total, unreadCount, nil
}

func (s *notificationService) GetUnreadCount(userID uint) (int64, error) {
	return s.repo.GetUnreadCount(userID)
}

func (s *notificationService) loadOwned(notificationID, userID uint) (*model.Notification, error) {
	notification, err := s.repo.GetNotificationByID(notificationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	if notification.UserID != userID {
		return nil, ErrForbidden
	}
	return notification, nil
}

func (s *notificationService) MarkAsRead(notificationID, userID uint) (*model.Notification, error) {
	notification, err := s.loadOwned(notificationID, userID)
	if err != nil {
		return nil, err
	}

	if notification.IsRead {
		return notification, nil
	}

	if err := s.repo.MarkAsRead(notificationID); err != nil {
		return nil, err
	}

	notification.IsRead = true
	return notification, nil
}

func (s *notificationService) MarkAllAsRead(userID uint) (int64, error) {
	return s.repo.MarkAllAsRead(userID)
}

func (s *notificationService) DeleteNotification(notificationID, userID uint) error {
	if _, err := s.loadOwned(notificationID, userID); err != nil {
		return err
	}
	return s.repo.DeleteNotification(notificationID)
}

func (s *notificationService) GetNotificationSettings(userID uint) (*model.NotificationSettings, error) {
	return s.repo.GetNotificationSettings(userID)
}

func (s *notificationService) UpdateNotificationSettings(
	userID uint,
	req *UpdateNotificationSettingsRequest,
) (*model.NotificationSettings, error) {
	settings, err := s.repo.GetNotificationSettings(userID)
	if err != nil {
		return nil, err
	}

	if req.EmailNotification != nil {
		settings.EmailNotification = *req.EmailNotification
	}
	if req.AppointmentNotification != nil {
		settings.AppointmentNotification = *req.AppointmentNotification
	}
	if req.RequestNotification != nil {
		settings.RequestNotification = *req.RequestNotification
	}

	if err := s.repo.UpdateNotificationSettings(settings); err != nil {
		return nil, err
	}

	return settings, nil
}
