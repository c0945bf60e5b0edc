package model

import (
	"time"
)

type HospitalType string

const (
	HospitalTypeGovernment HospitalType = "government"
	HospitalTypePrivate    HospitalType = "private"
	HospitalTypeCharitable HospitalType = "charitable"
)

type Hospital struct {
	ID            uint         `gorm:"primarykey" json:"id"`                                        // hospital ID
	UserID        uint         `gorm:"uniqueIndex;not null" json:"user_id"`                         // owning account
	LicenseNumber string       `gorm:"type:varchar(50);uniqueIndex;not null" json:"license_number"` // registration licence
	Phone         string       `gorm:"type:varchar(20);not null" json:"phone"`                      // contact number
	Address       string       `gorm:"type:text;not null" json:"address"`                           // street address
	City          string       `gorm:"type:varchar(100);not null;index" json:"city"`                // city
	State         string       `gorm:"type:varchar(100)" json:"state"`                              // state
	Pincode       string       `gorm:"type:varchar(10)" json:"pincode"`                             // postal code
	HospitalType  HospitalType `gorm:"type:varchar(20)" json:"hospital_type"`                       // ownership type
	DocumentURL   string       `gorm:"type:text" json:"document_url"`                               // uploaded licence document
	IsVerified    bool         `gorm:"not null;index" json:"is_verified"`                           // verified by an admin
	VerifiedAt    *time.Time   `json:"verified_at,omitempty"`                                       // verification time
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (Hospital) TableName() string {
	return "hospitals"
}
