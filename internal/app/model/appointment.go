package model

import (
	"time"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"   // booked by donor
	AppointmentStatusConfirmed AppointmentStatus = "confirmed" // accepted by hospital
	AppointmentStatusCompleted AppointmentStatus = "completed" // donation taken
	AppointmentStatusCancelled AppointmentStatus = "cancelled" // cancelled by either side
)

var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusPending:   {AppointmentStatusConfirmed, AppointmentStatusCancelled},
	AppointmentStatusConfirmed: {AppointmentStatusCompleted, AppointmentStatusCancelled},
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	for _, allowed := range appointmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s AppointmentStatus) IsTerminal() bool {
	return len(appointmentTransitions[s]) == 0
}

type Appointment struct {
	ID             uint              `gorm:"primarykey" json:"id"`                                            // appointment ID
	DonorID        uint              `gorm:"not null;index" json:"donor_id"`                                  // donor profile
	HospitalID     uint              `gorm:"not null;index" json:"hospital_id"`                               // hospital profile
	ScheduledAt    time.Time         `gorm:"not null;index" json:"scheduled_at"`                              // appointment time
	Status         AppointmentStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"` // lifecycle status
	Notes          string            `gorm:"type:text" json:"notes"`                                          // donor notes
	ConfirmedAt    *time.Time        `json:"confirmed_at,omitempty"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
	CancelledAt    *time.Time        `json:"cancelled_at,omitempty"`
	CancelledBy    *uint             `json:"cancelled_by,omitempty"` // user who cancelled
	ReminderSentAt *time.Time        `json:"-"`                      // day-before reminder
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`

	Donor    *Donor          `gorm:"foreignKey:DonorID" json:"donor,omitempty"`
	Hospital *Hospital       `gorm:"foreignKey:HospitalID" json:"hospital,omitempty"`
	Donation *DonationRecord `gorm:"foreignKey:AppointmentID" json:"donation,omitempty"`
}

func (Appointment) TableName() string {
	return "appointments"
}
