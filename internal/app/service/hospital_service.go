package service

import (
	"errors"
	"strings"
	"time"

	"github.com/ikkim/bloodlink-backend/internal/app/model"
	"github.com/ikkim/bloodlink-backend/internal/app/repository"
	"github.com/ikkim/bloodlink-backend/pkg/logger"
	"github.com/ikkim/bloodlink-backend/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrHospitalNotFound    = errors.New("hospital profile not found")
	ErrLicenseExists       = errors.New("license number is already registered")
	ErrInvalidHospitalType = errors.New("hospital type must be government, private or charitable")
)

type HospitalProfileInput struct {
	LicenseNumber string
	Phone         string
	Address       string
	City          string
	State         string
	Pincode       string
	HospitalType  model.HospitalType
	DocumentURL   string
}

type HospitalService interface {
	CreateProfile(actor Actor, input HospitalProfileInput) (*model.Hospital, error)
	GetProfile(actor Actor) (*model.Hospital, error)
	UpdateProfile(actor Actor, input HospitalProfileInput) (*model.Hospital, error)
	// ListVerified hospitals a donor can book with.
	ListVerified(city string, page, pageSize int) ([]model.Hospital, int64, error)
	GetByID(hospitalID uint) (*model.Hospital, error)
	// SuggestedDonors available, eligible donors in the hospital's city compatible with bloodGroup.
	SuggestedDonors(actor Actor, bloodGroup model.BloodGroup, limit int) ([]model.Donor, error)
}

type hospitalService struct {
	hospitalRepo repository.HospitalRepository
	donorRepo    repository.DonorRepository
	now          func() time.Time
}

func NewHospitalService(hospitalRepo repository.HospitalRepository, donorRepo repository.DonorRepository) HospitalService {
	return &hospitalService{
		hospitalRepo: hospitalRepo,
		donorRepo:    donorRepo,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func validHospitalType(t model.HospitalType) bool {
	switch t {
	case model.HospitalTypeGovernment, model.HospitalTypePrivate, model.HospitalTypeCharitable:
		return true
	}
	return false
}

func (s *hospitalService) findOwn(actor Actor) (*model.Hospital, error) {
	if err := requireRole(actor, model.RoleHospital); err != nil {
		return nil, err
	}
	hospital, err := s.hospitalRepo.FindByUserID(actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHospitalNotFound
		}
		return nil, err
	}
	return hospital, nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}

func (s *hospitalService) CreateProfile(actor Actor, input HospitalProfileInput) (*model.Hospital, error) {
	if err := requireRole(actor, model.RoleHospital); err != nil {
		return nil, err
	}

	if _, err := s.hospitalRepo.FindByUserID(actor.UserID); err == nil {
		return nil, ErrProfileExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	input.LicenseNumber = strings.TrimSpace(input.LicenseNumber)
	if input.LicenseNumber == "" || strings.TrimSpace(input.Phone) == "" ||
		strings.TrimSpace(input.Address) == "" || strings.TrimSpace(input.City) == "" {
		return nil, ErrMissingField
	}
	if input.HospitalType == "" {
		input.HospitalType = model.HospitalTypePrivate
	}
	if !validHospitalType(input.HospitalType) {
		return nil, ErrInvalidHospitalType
	}

	hospital := &model.Hospital{
		UserID:        actor.UserID,
		LicenseNumber: input.LicenseNumber,
		Phone:         strings.TrimSpace(input.Phone),
		Address:       strings.TrimSpace(input.Address),
		City:          strings.TrimSpace(input.City),
		State:         strings.TrimSpace(input.State),
		Pincode:       strings.TrimSpace(input.Pincode),
		HospitalType:  input.HospitalType,
		DocumentURL:   input.DocumentURL,
	}
	if err := s.hospitalRepo.Create(hospital); err != nil {
		if isDuplicateKey(err) {
			return nil, ErrLicenseExists
		}
		return nil, err
	}

	logger.Info("Hospital profile created", map[string]interface{}{
		"user_id":     actor.UserID,
		"hospital_id": hospital.ID,
	})
	return s.hospitalRepo.FindByID(hospital.ID)
}

func (s *hospitalService) GetProfile(actor Actor) (*model.Hospital, error) {
	return s.findOwn(actor)
}

func (s *hospitalService) UpdateProfile(actor Actor, input HospitalProfileInput) (*model.Hospital, error) {
	hospital, err := s.findOwn(actor)
	if err != nil {
		return nil, err
	}

	if input.HospitalType != "" {
		if !validHospitalType(input.HospitalType) {
			return nil, ErrInvalidHospitalType
		}
		hospital.HospitalType = input.HospitalType
	}
	if v := strings.TrimSpace(input.Phone); v != "" {
		hospital.Phone = v
	}
	if v := strings.TrimSpace(input.Address); v != "" {
		hospital.Address = v
	}
	if v := strings.TrimSpace(input.City); v != "" {
		hospital.City = v
	}
	if v := strings.TrimSpace(input.State); v != "" {
		hospital.State = v
	}
	if v := strings.TrimSpace(input.Pincode); v != "" {
		hospital.Pincode = v
	}
	if input.DocumentURL != "" {
		hospital.DocumentURL = input.DocumentURL
	}
	// license number is fixed once registered

	if err := s.hospitalRepo.Update(hospital); err != nil {
		return nil, err
	}
	return hospital, nil
}

func (s *hospitalService) ListVerified(city string, page, pageSize int) ([]model.Hospital, int64, error) {
	verified := true
	limit, offset := pageBounds(page, pageSize)
	return s.hospitalRepo.List(repository.HospitalFilter{
		City:     strings.TrimSpace(city),
		Verified: &verified,
		Limit:    limit,
		Offset:   offset,
	})
}

func (s *hospitalService) GetByID(hospitalID uint) (*model.Hospital, error) {
	hospital, err := s.hospitalRepo.FindByID(hospitalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHospitalNotFound
		}
		return nil, err
	}
	return hospital, nil
}

func (s *hospitalService) SuggestedDonors(actor Actor, bloodGroup model.BloodGroup, limit int) ([]model.Donor, error) {
	hospital, err := s.findOwn(actor)
	if err != nil {
		return nil, err
	}
	if !bloodGroup.IsValid() {
		return nil, ErrInvalidBloodGroup
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	cutoff := util.DateOnly(s.now()).AddDate(0, 0, -util.DonationIntervalDays)
	donors, _, err := s.donorRepo.List(repository.DonorFilter{
		BloodGroups:        bloodGroup.CompatibleDonorGroups(),
		City:               hospital.City,
		AvailableOnly:      true,
		LastDonationBefore: &cutoff,
		Limit:              limit,
	})
	return donors, err
}
