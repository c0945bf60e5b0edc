package model

import (
	"time"
)

type RequestStatus string
type Urgency string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusApproved  RequestStatus = "approved"
	RequestStatusFulfilled RequestStatus = "fulfilled"
	RequestStatusRejected  RequestStatus = "rejected"

	UrgencyNormal    Urgency = "normal"
	UrgencyUrgent    Urgency = "urgent"
	UrgencyEmergency Urgency = "emergency"
)

func (u Urgency) IsValid() bool {
	switch u {
	case UrgencyNormal, UrgencyUrgent, UrgencyEmergency:
		return true
	}
	return false
}

func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestStatusPending, RequestStatusApproved, RequestStatusFulfilled, RequestStatusRejected:
		return true
	}
	return false
}

// TransfusionRequest is a hospital's request for blood units, reviewed by an admin.
type TransfusionRequest struct {
	ID               uint           `gorm:"primarykey" json:"id"`                                            // request ID
	HospitalID       uint           `gorm:"not null;index" json:"hospital_id"`                               // requesting hospital
	BloodGroup       BloodGroup     `gorm:"type:varchar(5);not null;index" json:"blood_group"`               // recipient group
	CompatibleGroups BloodGroupList `json:"compatible_groups"`                                               // donor groups that can serve it
	Quantity         float64        `gorm:"not null" json:"quantity"`                                        // units requested
	Urgency          Urgency        `gorm:"type:varchar(20);not null;default:'normal';index" json:"urgency"` // priority
	Status           RequestStatus  `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"` // review status
	RequiredBy       time.Time      `gorm:"type:date;not null" json:"required_by"`                           // needed by date
	Reason           string         `gorm:"type:text" json:"reason"`                                         // clinical reason
	AdminRemarks     string         `gorm:"type:text" json:"admin_remarks"`                                  // reviewer remarks
	ReviewedBy       *uint          `json:"reviewed_by,omitempty"`                                           // admin user
	ReviewedAt       *time.Time     `json:"reviewed_at,omitempty"`
	FulfilledAt      *time.Time     `json:"fulfilled_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`

	Hospital *Hospital `gorm:"foreignKey:HospitalID" json:"hospital,omitempty"`
}

func (TransfusionRequest) TableName() string {
	return "transfusion_requests"
}
