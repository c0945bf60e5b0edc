package repository

import (
	"time"

	"github.com/ikkim/bloodlink-backend/internal/app/model"
	"github.com/ikkim/bloodlink-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AppointmentFilter narrows List. DonorID and HospitalID scope the result to one owner.
type AppointmentFilter struct {
	DonorID       *uint
	HospitalID    *uint
	Statuses      []model.AppointmentStatus
	From          *time.Time
	To            *time.Time
	UpcomingAfter *time.Time // scheduled_at >= value
	Search        string     // donor or hospital name
	Limit         int
	Offset        int
}

type AppointmentRepository interface {
	WithTx(tx *gorm.DB) AppointmentRepository
	Create(appointment *model.Appointment) error
	FindByID(id uint) (*model.Appointment, error)
	// FindByIDForUpdate loads the row with a FOR UPDATE lock. Only meaningful inside a transaction.
	FindByIDForUpdate(id uint) (*model.Appointment, error)
	List(filter AppointmentFilter) ([]model.Appointment, int64, error)
	// TransitionStatus updates status and extra columns only while the row is still in from.
	// It reports whether a row was updated.
	TransitionStatus(id uint, from, to model.AppointmentStatus, fields map[string]interface{}) (bool, error)
	FindDueForReminder(from, to time.Time) ([]model.Appointment, error)
	MarkReminderSent(id uint, at time.Time) error
	CountByStatus() (map[model.AppointmentStatus]int64, error)
}

type appointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) AppointmentRepository {
	return &appointmentRepository{db: db}
}

func (r *appointmentRepository) WithTx(tx *gorm.DB) AppointmentRepository {
	return &appointmentRepository{db: tx}
}

func (r *appointmentRepository) Create(appointment *model.Appointment) error {
	logger.Debug("Creating appointment in database", map[string]interface{}{
		"donor_id":     appointment.DonorID,
		"hospital_id":  appointment.HospitalID,
		"scheduled_at": appointment.ScheduledAt,
	})

	if err := r.db.Omit(clause.Associations).Create(appointment).Error; err != nil {
		logger.Error("Failed to create appointment in database", err, map[string]interface{}{
			"donor_id":    appointment.DonorID,
			"hospital_id": appointment.HospitalID,
		})
		return err
	}

	logger.Debug("Appointment created in database", map[string]interface{}{
		"appointment_id": appointment.ID,
	})
	return nil
}

func (r *appointmentRepository) FindByID(id uint) (*model.Appointment, error) {
	var appointment model.Appointment
	err := r.db.
		Preload("Donor.User").
		Preload("Hospital.User").
		Preload("Donation").
		First(&appointment, id).Error
	if err != nil {
		return nil, err
	}
	return &appointment, nil
}

func (r *appointmentRepository) FindByIDForUpdate(id uint) (*model.Appointment, error) {
	var appointment model.Appointment
	err := r.db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&appointment, id).Error
	if err != nil {
		return nil, err
	}
	return &appointment, nil
}

func (r *appointmentRepository) List(filter AppointmentFilter) ([]model.Appointment, int64, error) {
	var appointments []model.Appointment
	var total int64

	query := r.db.Model(&model.Appointment{})
	if filter.DonorID != nil {
		query = query.Where("appointments.donor_id = ?", *filter.DonorID)
	}
	if filter.HospitalID != nil {
		query = query.Where("appointments.hospital_id = ?", *filter.HospitalID)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("appointments.status IN ?", filter.Statuses)
	}
	if filter.From != nil {
		query = query.Where("appointments.scheduled_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where("appointments.scheduled_at < ?", filter.To.UTC())
	}
	if filter.UpcomingAfter != nil {
		query = query.Where("appointments.scheduled_at >= ?", filter.UpcomingAfter.UTC())
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.
			Joins("JOIN donors ON donors.id = appointments.donor_id").
			Joins("JOIN users du ON du.id = donors.user_id").
			Joins("JOIN hospitals ON hospitals.id = appointments.hospital_id").
			Joins("JOIN users hu ON hu.id = hospitals.user_id").
			Where("LOWER(du.name) LIKE LOWER(?) OR LOWER(hu.name) LIKE LOWER(?)", like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		logger.Error("Failed to count appointments", err)
		return nil, 0, err
	}

	query = query.
		Preload("Donor.User").
		Preload("Hospital.User").
		Preload("Donation").
		Order("appointments.scheduled_at DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Find(&appointments).Error; err != nil {
		logger.Error("Failed to list appointments", err)
		return nil, 0, err
	}
	return appointments, total, nil
}

func (r *appointmentRepository) TransitionStatus(id uint, from, to model.AppointmentStatus, fields map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range fields {
		updates[k] = v
	}

	result := r.db.Model(&model.Appointment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		logger.Error("Failed to update appointment status", result.Error, map[string]interface{}{
			"appointment_id": id,
			"from":           from,
			"to":             to,
		})
		return false, result.Error
	}

	logger.Debug("Appointment status transition", map[string]interface{}{
		"appointment_id": id,
		"from":           from,
		"to":             to,
		"rows":           result.RowsAffected,
	})
	return result.RowsAffected == 1, nil
}

func (r *appointmentRepository) FindDueForReminder(from, to time.Time) ([]model.Appointment, error) {
	var appointments []model.Appointment
	err := r.db.
		Preload("Donor.User").
		Preload("Hospital.User").
		Where("status = ? AND reminder_sent_at IS NULL AND scheduled_at >= ? AND scheduled_at < ?",
			model.AppointmentStatusConfirmed, from.UTC(), to.UTC()).
		Order("scheduled_at ASC").
		Find(&appointments).Error
	return appointments, err
}

func (r *appointmentRepository) MarkReminderSent(id uint, at time.Time) error {
	return r.db.Model(&model.Appointment{}).
		Where("id = ?", id).
		Update("reminder_sent_at", at.UTC()).Error
}

func (r *appointmentRepository) CountByStatus() (map[model.AppointmentStatus]int64, error) {
	var rows []struct {
		Status model.AppointmentStatus
		Count  int64
	}
	err := r.db.Model(&model.Appointment{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[model.AppointmentStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
