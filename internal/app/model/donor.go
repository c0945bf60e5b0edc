package model

import (
	"time"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

type Donor struct {
	ID                uint       `gorm:"primarykey" json:"id"`                              // donor ID
	UserID            uint       `gorm:"uniqueIndex;not null" json:"user_id"`               // owning account
	BloodGroup        BloodGroup `gorm:"type:varchar(5);not null;index" json:"blood_group"` // ABO/Rh group
	Phone             string     `gorm:"type:varchar(20);not null" json:"phone"`            // contact number
	City              string     `gorm:"type:varchar(100);not null;index" json:"city"`      // city
	Age               int        `gorm:"not null" json:"age"`                               // age in years
	Gender            Gender     `gorm:"type:varchar(10)" json:"gender"`                    // gender
	Address           string     `gorm:"type:text" json:"address"`                          // postal address
	DateOfBirth       *time.Time `gorm:"type:date" json:"date_of_birth,omitempty"`          // date of birth
	LastDonationDate  *time.Time `gorm:"type:date" json:"last_donation_date,omitempty"`     // set when a donation completes
	MedicalConditions string     `gorm:"type:text" json:"medical_conditions"`               // self reported conditions
	PhotoURL          string     `gorm:"type:text" json:"photo_url"`                        // uploaded photo
	IsAvailable       bool       `gorm:"not null;index" json:"is_available"`                // willing to donate
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (Donor) TableName() string {
	return "donors"
}
