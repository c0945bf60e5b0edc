package model

import (
	"time"
)

// DonationRecord is written once when an appointment completes. Only CertificateID is
// ever updated, and only from nil.
type DonationRecord struct {
	ID            uint       `gorm:"primarykey" json:"id"`                               // record ID
	AppointmentID uint       `gorm:"uniqueIndex;not null" json:"appointment_id"`         // completed appointment
	DonorID       uint       `gorm:"not null;index" json:"donor_id"`                     // donor profile
	HospitalID    uint       `gorm:"not null;index" json:"hospital_id"`                  // collecting hospital
	BloodGroup    BloodGroup `gorm:"type:varchar(5);not null;index" json:"blood_group"`  // copied from donor at completion
	Quantity      float64    `gorm:"not null" json:"quantity"`                           // units collected
	DonationDate  time.Time  `gorm:"not null;index" json:"donation_date"`                // completion time
	CertificateID *string    `gorm:"type:varchar(40);uniqueIndex" json:"certificate_id"` // assigned on first download
	CreatedAt     time.Time  `json:"created_at"`

	Appointment *Appointment `gorm:"foreignKey:AppointmentID" json:"appointment,omitempty"`
	Donor       *Donor       `gorm:"foreignKey:DonorID" json:"donor,omitempty"`
	Hospital    *Hospital    `gorm:"foreignKey:HospitalID" json:"hospital,omitempty"`
}

func (DonationRecord) TableName() string {
	return "donation_records"
}
