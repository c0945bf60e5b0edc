package repository

import (
	"github.com/ikkim/bloodlink-backend/internal/app/model"
	"github.com/ikkim/bloodlink-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TransfusionRequestFilter struct {
	HospitalID *uint
	Statuses   []model.RequestStatus
	BloodGroup string
	Urgency    string
	Limit      int
	Offset     int
}

type TransfusionRequestRepository interface {
	Create(request *model.TransfusionRequest) error
	FindByID(id uint) (*model.TransfusionRequest, error)
	List(filter TransfusionRequestFilter) ([]model.TransfusionRequest, int64, error)
	// Transition updates status and extra columns only while the row is still in from.
	Transition(id uint, from, to model.RequestStatus, fields map[string]interface{}) (bool, error)
	CountByStatus() (map[model.RequestStatus]int64, error)
}

type transfusionRequestRepository struct {
	db *gorm.DB
}

func NewTransfusionRequestRepository(db *gorm.DB) TransfusionRequestRepository {
	return &transfusionRequestRepository{db: db}
}

func (r *transfusionRequestRepository) Create(request *model.TransfusionRequest) error {
	logger.Debug("Creating transfusion request", map[string]interface{}{
		"hospital_id": request.HospitalID,
		"blood_group": request.BloodGroup,
		"urgency":     request.Urgency,
	})

	if err := r.db.Omit(clause.Associations).Create(request).Error; err != nil {
		logger.Error("Failed to create transfusion request", err, map[string]interface{}{
			"hospital_id": request.HospitalID,
		})
		return err
	}
	return nil
}

func (r *transfusionRequestRepository) FindByID(id uint) (*model.TransfusionRequest, error) {
	var request model.TransfusionRequest
	if err := r.db.Preload("Hospital.User").First(&request, id).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

// urgencyOrder sorts emergency first.
const urgencyOrder = "CASE urgency WHEN 'emergency' THEN 0 WHEN 'urgent' THEN 1 ELSE 2 END"

func (r *transfusionRequestRepository) List(filter TransfusionRequestFilter) ([]model.TransfusionRequest, int64, error) {
	var requests []model.TransfusionRequest
	var total int64

	query := r.db.Model(&model.TransfusionRequest{})
	if filter.HospitalID != nil {
		query = query.Where("hospital_id = ?", *filter.HospitalID)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.BloodGroup != "" {
		query = query.Where("blood_group = ?", filter.BloodGroup)
	}
	if filter.Urgency != "" {
		query = query.Where("urgency = ?", filter.Urgency)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Preload("Hospital.User").
		Order(urgencyOrder).
		Order("required_by ASC").
		Order("created_at DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Find(&requests).Error; err != nil {
		logger.Error("Failed to list transfusion requests", err)
		return nil, 0, err
	}
	return requests, total, nil
}

func (r *transfusionRequestRepository) Transition(id uint, from, to model.RequestStatus, fields map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range fields {
		updates[k] = v
	}

	result := r.db.Model(&model.TransfusionRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		logger.Error("Failed to update transfusion request status", result.Error, map[string]interface{}{
			"request_id": id,
			"to":         to,
		})
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *transfusionRequestRepository) CountByStatus() (map[model.RequestStatus]int64, error) {
	var rows []struct {
		Status model.RequestStatus
		Count  int64
	}
	err := r.db.Model(&model.TransfusionRequest{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[model.RequestStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
