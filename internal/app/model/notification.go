package model

import (
	"time"

	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationTypeInfo    NotificationType = "info"
	NotificationTypeSuccess NotificationType = "success"
	NotificationTypeWarning NotificationType = "warning"
	NotificationTypeError   NotificationType = "error"
)

func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationTypeInfo, NotificationTypeSuccess, NotificationTypeWarning, NotificationTypeError:
		return true
	}
	return false
}

// Notification in-app notification row
type Notification struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// recipient
	UserID uint  `gorm:"not null;index" json:"user_id"`
	User   *User `gorm:"foreignKey:UserID" json:"user,omitempty"`

	Type    NotificationType `gorm:"type:varchar(20);not null;index" json:"type"`
	Title   string           `gorm:"type:text;not null" json:"title"`
	Message string           `gorm:"type:text;not null" json:"message"`
	Link    string           `gorm:"type:text" json:"link"`

	IsRead bool `gorm:"not null;index" json:"is_read"`

	// related entities (nullable)
	RelatedAppointmentID *uint `gorm:"index" json:"related_appointment_id,omitempty"`
	RelatedRequestID     *uint `gorm:"index" json:"related_request_id,omitempty"`
}

func (Notification) TableName() string {
	return "notifications"
}

// NotificationSettings per-user delivery preferences
type NotificationSettings struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID uint `gorm:"uniqueIndex;not null" json:"user_id"`

	// email copies of in-app notifications
	EmailNotification bool `gorm:"not null" json:"email_notification"`
	// appointment confirm/complete/cancel/reminder
	AppointmentNotification bool `gorm:"not null" json:"appointment_notification"`
	// transfusion request decisions
	RequestNotification bool `gorm:"not null" json:"request_notification"`
}

func (NotificationSettings) TableName() string {
	return "notification_settings"
}

// DefaultNotificationSettings everything enabled
func DefaultNotificationSettings(userID uint) NotificationSettings {
	return NotificationSettings{
		UserID:                  userID,
		EmailNotification:       true,
		AppointmentNotification: true,
		RequestNotification:     true,
	}
}
