package repository

import (
	"time"

	"github.com/ikkim/bloodlink-backend/internal/app/model"
	"github.com/ikkim/bloodlink-backend/pkg/logger"
	"gorm.io/gorm"
)

type HospitalFilter struct {
	City     string
	Verified *bool
	Search   string
	Limit    int
	Offset   int
}

type HospitalRepository interface {
	Create(hospital *model.Hospital) error
	FindByID(id uint) (*model.Hospital, error)
	FindByUserID(userID uint) (*model.Hospital, error)
	Update(hospital *model.Hospital) error
	MarkVerified(id uint, at time.Time) error
	List(filter HospitalFilter) ([]model.Hospital, int64, error)
}

type hospitalRepository struct {
	db *gorm.DB
}

func NewHospitalRepository(db *gorm.DB) HospitalRepository {
	return &hospitalRepository{db: db}
}

func (r *hospitalRepository) Create(hospital *model.Hospital) error {
	logger.Debug("Creating hospital profile", map[string]interface{}{
		"user_id":        hospital.UserID,
		"license_number": hospital.LicenseNumber,
	})

	if err := r.db.Omit("User").Create(hospital).Error; err != nil {
		logger.Error("Failed to create hospital profile", err, map[string]interface{}{
			"user_id": hospital.UserID,
		})
		return err
	}
	return nil
}

func (r *hospitalRepository) FindByID(id uint) (*model.Hospital, error) {
	var hospital model.Hospital
	if err := r.db.Preload("User").First(&hospital, id).Error; err != nil {
		return nil, err
	}
	return &hospital, nil
}

func (r *hospitalRepository) FindByUserID(userID uint) (*model.Hospital, error) {
	var hospital model.Hospital
	if err := r.db.Preload("User").Where("user_id = ?", userID).First(&hospital).Error; err != nil {
		return nil, err
	}
	return &hospital, nil
}

func (r *hospitalRepository) Update(hospital *model.Hospital) error {
	if err := r.db.Omit("User").Save(hospital).Error; err != nil {
		logger.Error("Failed to update hospital profile", err, map[string]interface{}{
			"hospital_id": hospital.ID,
		})
		return err
	}
	return nil
}

func (r *hospitalRepository) MarkVerified(id uint, at time.Time) error {
	return r.db.Model(&model.Hospital{}).Where("id = ?", id).Updates(map[string]interface{}{
		"is_verified": true,
		"verified_at": at,
	}).Error
}

func (r *hospitalRepository) List(filter HospitalFilter) ([]model.Hospital, int64, error) {
	var hospitals []model.Hospital
	var total int64

	query := r.db.Model(&model.Hospital{})
	if filter.City != "" {
		query = query.Where("LOWER(hospitals.city) = LOWER(?)", filter.City)
	}
	if filter.Verified != nil {
		query = query.Where("hospitals.is_verified = ?", *filter.Verified)
	}
	if filter.Search != "" {
		query = query.Joins("JOIN users ON users.id = hospitals.user_id").
			Where("LOWER(users.name) LIKE LOWER(?)", "%"+filter.Search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Preload("User").Order("hospitals.created_at DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Find(&hospitals).Error; err != nil {
		logger.Error("Failed to list hospitals", err)
		return nil, 0, err
	}
	return hospitals, total, nil
}
