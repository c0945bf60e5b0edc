package repository

import (
	"time"

	"github.com/ikkim/bloodlink-backend/internal/app/model"
	"github.com/ikkim/bloodlink-backend/pkg/logger"
	"gorm.io/gorm"
)

// DonorFilter list filters. Zero values are ignored.
type DonorFilter struct {
	BloodGroups   []string
	City          string
	AvailableOnly bool
	// LastDonationBefore keeps donors who never donated or last donated before this date.
	LastDonationBefore *time.Time
	Search             string
	Limit              int
	Offset             int
}

type DonorRepository interface {
	WithTx(tx *gorm.DB) DonorRepository
	Create(donor *model.Donor) error
	FindByID(id uint) (*model.Donor, error)
	FindByUserID(userID uint) (*model.Donor, error)
	Update(donor *model.Donor) error
	SetAvailability(id uint, available bool) error
	SetLastDonationDate(id uint, date time.Time) error
	List(filter DonorFilter) ([]model.Donor, int64, error)
	CountByBloodGroup() (map[model.BloodGroup]int64, error)
}

type donorRepository struct {
	db *gorm.DB
}

func NewDonorRepository(db *gorm.DB) DonorRepository {
	return &donorRepository{db: db}
}

func (r *donorRepository) WithTx(tx *gorm.DB) DonorRepository {
	return &donorRepository{db: tx}
}

func (r *donorRepository) Create(donor *model.Donor) error {
	logger.Debug("Creating donor profile", map[string]interface{}{
		"user_id":     donor.UserID,
		"blood_group": donor.BloodGroup,
	})

	if err := r.db.Omit("User").Create(donor).Error; err != nil {
		logger.Error("Failed to create donor profile", err, map[string]interface{}{
			"user_id": donor.UserID,
		})
		return err
	}
	return nil
}

func (r *donorRepository) FindByID(id uint) (*model.Donor, error) {
	var donor model.Donor
	if err := r.db.Preload("User").First(&donor, id).Error; err != nil {
		return nil, err
	}
	return &donor, nil
}

func (r *donorRepository) FindByUserID(userID uint) (*model.Donor, error) {
	var donor model.Donor
	if err := r.db.Preload("User").Where("user_id = ?", userID).First(&donor).Error; err != nil {
		return nil, err
	}
	return &donor, nil
}

func (r *donorRepository) Update(donor *model.Donor) error {
	logger.Debug("Updating donor profile", map[string]interface{}{
		"donor_id": donor.ID,
	})

	if err := r.db.Omit("User").Save(donor).Error; err != nil {
		logger.Error("Failed to update donor profile", err, map[string]interface{}{
			"donor_id": donor.ID,
		})
		return err
	}
	return nil
}

func (r *donorRepository) SetAvailability(id uint, available bool) error {
	return r.db.Model(&model.Donor{}).Where("id = ?", id).Update("is_available", available).Error
}

func (r *donorRepository) SetLastDonationDate(id uint, date time.Time) error {
	result := r.db.Model(&model.Donor{}).Where("id = ?", id).Update("last_donation_date", date)
	if result.Error != nil {
		logger.Error("Failed to set last donation date", result.Error, map[string]interface{}{
			"donor_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *donorRepository) List(filter DonorFilter) ([]model.Donor, int64, error) {
	var donors []model.Donor
	var total int64

	query := r.db.Model(&model.Donor{})
	if len(filter.BloodGroups) > 0 {
		query = query.Where("donors.blood_group IN ?", filter.BloodGroups)
	}
	if filter.City != "" {
		query = query.Where("LOWER(donors.city) = LOWER(?)", filter.City)
	}
	if filter.AvailableOnly {
		query = query.Where("donors.is_available = ?", true)
	}
	if filter.LastDonationBefore != nil {
		query = query.Where("donors.last_donation_date IS NULL OR donors.last_donation_date <= ?", *filter.LastDonationBefore)
	}
	if filter.Search != "" {
		query = query.Joins("JOIN users ON users.id = donors.user_id").
			Where("LOWER(users.name) LIKE LOWER(?)", "%"+filter.Search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		logger.Error("Failed to count donors", err)
		return nil, 0, err
	}

	query = query.Preload("User").Order("donors.created_at DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Find(&donors).Error; err != nil {
		logger.Error("Failed to list donors", err)
		return nil, 0, err
	}
	return donors, total, nil
}

func (r *donorRepository) CountByBloodGroup() (map[model.BloodGroup]int64, error) {
	var rows []struct {
		BloodGroup model.BloodGroup
		Count      int64
	}
	err := r.db.Model(&model.Donor{}).
		Select("blood_group, COUNT(*) AS count").
		Group("blood_group").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[model.BloodGroup]int64, len(rows))
	for _, row := range rows {
		counts[row.BloodGroup] = row.Count
	}
	return counts, nil
}
