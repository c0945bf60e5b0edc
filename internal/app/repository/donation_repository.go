package repository

import (
	"time"

	"github.com/ikkim/bloodlink-backend/internal/app/model"
	"github.com/ikkim/bloodlink-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DonationFilter struct {
	DonorID    *uint
	HospitalID *uint
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

type DonationRepository interface {
	WithTx(tx *gorm.DB) DonationRepository
	Create(record *model.DonationRecord) error
	FindByID(id uint) (*model.DonationRecord, error)
	FindByAppointmentID(appointmentID uint) (*model.DonationRecord, error)
	FindByCertificateID(certificateID string) (*model.DonationRecord, error)
	List(filter DonationFilter) ([]model.DonationRecord, int64, error)
	// AssignCertificateID sets certificate_id only while it is still NULL.
	AssignCertificateID(id uint, certificateID string) (bool, error)
	TotalQuantityByBloodGroup() (map[model.BloodGroup]float64, error)
	CountForDonor(donorID uint) (int64, error)
}

type donationRepository struct {
	db *gorm.DB
}

func NewDonationRepository(db *gorm.DB) DonationRepository {
	return &donationRepository{db: db}
}

func (r *donationRepository) WithTx(tx *gorm.DB) DonationRepository {
	return &donationRepository{db: tx}
}

func (r *donationRepository) Create(record *model.DonationRecord) error {
	logger.Debug("Creating donation record", map[string]interface{}{
		"appointment_id": record.AppointmentID,
		"donor_id":       record.DonorID,
		"quantity":       record.Quantity,
	})

	if err := r.db.Omit(clause.Associations).Create(record).Error; err != nil {
		logger.Error("Failed to create donation record", err, map[string]interface{}{
			"appointment_id": record.AppointmentID,
		})
		return err
	}
	return nil
}

func (r *donationRepository) FindByID(id uint) (*model.DonationRecord, error) {
	var record model.DonationRecord
	err := r.db.
		Preload("Donor.User").
		Preload("Hospital.User").
		Preload("Appointment").
		First(&record, id).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *donationRepository) FindByAppointmentID(appointmentID uint) (*model.DonationRecord, error) {
	var record model.DonationRecord
	if err := r.db.Where("appointment_id = ?", appointmentID).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *donationRepository) FindByCertificateID(certificateID string) (*model.DonationRecord, error) {
	var record model.DonationRecord
	err := r.db.
		Preload("Donor.User").
		Preload("Hospital.User").
		Where("certificate_id = ?", certificateID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *donationRepository) List(filter DonationFilter) ([]model.DonationRecord, int64, error) {
	var records []model.DonationRecord
	var total int64

	query := r.db.Model(&model.DonationRecord{})
	if filter.DonorID != nil {
		query = query.Where("donor_id = ?", *filter.DonorID)
	}
	if filter.HospitalID != nil {
		query = query.Where("hospital_id = ?", *filter.HospitalID)
	}
	if filter.From != nil {
		query = query.Where("donation_date >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where("donation_date < ?", filter.To.UTC())
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Preload("Donor.User").Preload("Hospital.User").Order("donation_date DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Find(&records).Error; err != nil {
		logger.Error("Failed to list donation records", err)
		return nil, 0, err
	}
	return records, total, nil
}

func (r *donationRepository) AssignCertificateID(id uint, certificateID string) (bool, error) {
	result := r.db.Model(&model.DonationRecord{}).
		Where("id = ? AND certificate_id IS NULL", id).
		Update("certificate_id", certificateID)
	if result.Error != nil {
		logger.Error("Failed to assign certificate ID", result.Error, map[string]interface{}{
			"donation_id": id,
		})
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *donationRepository) TotalQuantityByBloodGroup() (map[model.BloodGroup]float64, error) {
	var rows []struct {
		BloodGroup model.BloodGroup
		Total      float64
	}
	err := r.db.Model(&model.DonationRecord{}).
		Select("blood_group, SUM(quantity) AS total").
		Group("blood_group").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	totals := make(map[model.BloodGroup]float64, len(rows))
	for _, row := range rows {
		totals[row.BloodGroup] = row.Total
	}
	return totals, nil
}

func (r *donationRepository) CountForDonor(donorID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.DonationRecord{}).Where("donor_id = ?", donorID).Count(&count).Error
	return count, err
}
