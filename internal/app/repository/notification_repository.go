package repository

import (
	"github.com/ikkim/bloodlink-backend/internal/app/model"
	"gorm.io/gorm"
)

// NotificationRepository notification storage
type NotificationRepository interface {
	// Notification operations
	CreateNotification(notification *model.Notification) error
	CreateNotifications(notifications []model.Notification) error
	GetNotificationByID(id uint) (*model.Notification, error)
	GetNotifications(userID uint, notifType *model.NotificationType, isRead *bool, limit, offset int) ([]model.Notification, int64, error)
	GetUnreadCount(userID uint) (int64, error)
	MarkAsRead(id uint) error
	MarkAllAsRead(userID uint) (int64, error)
	DeleteNotification(id uint) error

	// NotificationSettings operations
	GetNotificationSettings(userID uint) (*model.NotificationSettings, error)
	CreateNotificationSettings(settings *model.NotificationSettings) error
	UpdateNotificationSettings(settings *model.NotificationSettings) error
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) CreateNotification(notification *model.Notification) error {
	return r.db.Omit("User").Create(notification).Error
}

// CreateNotifications batch insert for broadcasts
func (r *notificationRepository) CreateNotifications(notifications []model.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return r.db.Omit("User").CreateInBatches(notifications, 100).Error
}

func (r *notificationRepository) GetNotificationByID(id uint) (*model.Notification, error) {
	var notification model.Notification
	if err := r.db.First(&notification, id).Error; err != nil {
		return nil, err
	}
	return &notification, nil
}

func (r *notificationRepository) GetNotifications(
	userID uint,
	notifType *model.NotificationType,
	isRead *bool,
	limit, offset int,
) ([]model.Notification, int64, error) {
	var notifications []model.Notification
	var total int64

	query := r.db.Model(&model.Notification{}).Where("user_id = ?", userID)

	if notifType != nil {
		query = query.Where("type = ?", *notifType)
	}
	if isRead != nil {
		query = query.Where("is_read = ?", *isRead)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	if err := query.Find(&notifications).Error; err != nil {
		return nil, 0, err
	}

	return notifications, total, nil
}

func (r *notificationRepository) GetUnreadCount(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (r *notificationRepository) MarkAsRead(id uint) error {
	return r.db.Model(&model.Notification{}).
		Where("id = ?", id).
		Update("is_read", true).Error
}

// MarkAllAsRead returns how many rows changed
func (r *notificationRepository) MarkAllAsRead(userID uint) (int64, error) {
	result := r.db.Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}

func (r *notificationRepository) DeleteNotification(id uint) error {
	return r.db.Delete(&model.Notification{}, id).Error
}

// GetNotificationSettings creates the default row on first access
func (r *notificationRepository) GetNotificationSettings(userID uint) (*model.NotificationSettings, error) {
	var settings model.NotificationSettings
	err := r.db.Where("user_id = ?", userID).First(&settings).Error
	if err == gorm.ErrRecordNotFound {
		settings = model.DefaultNotificationSettings(userID)
		if err := r.CreateNotificationSettings(&settings); err != nil {
			return nil, err
		}
		return &settings, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *notificationRepository) CreateNotificationSettings(settings *model.NotificationSettings) error {
	return r.db.Create(settings).Error
}

func (r *notificationRepository) UpdateNotificationSettings(settings *model.NotificationSettings) error {
	return r.db.Save(settings).Error
}
