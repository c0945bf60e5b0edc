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
	ErrDonorNotFound     = errors.New("donor profile not found")
	ErrProfileExists     = errors.New("profile already exists")
	ErrInvalidBloodGroup = errors.New("invalid blood group")
	ErrInvalidAge        = errors.New("donor age must be between 18 and 100")
	ErrInvalidGender     = errors.New("gender must be male, female or other")
	ErrInvalidDate       = errors.New("date cannot be in the future")
	ErrMissingField      = errors.New("required field is missing")
)

const (
	MinDonorAge = 18
	MaxDonorAge = 100
)

// DonorProfileInput create/update payload. On update, zero values keep the stored value.
type DonorProfileInput struct {
	BloodGroup        model.BloodGroup
	Phone             string
	City              string
	Age               int
	Gender            model.Gender
	Address           string
	DateOfBirth       *time.Time
	LastDonationDate  *time.Time
	MedicalConditions string
	PhotoURL          string
}

// Eligibility donor's standing for a new appointment
type Eligibility struct {
	Eligible         bool       `json:"eligible"`
	IsAvailable      bool       `json:"is_available"`
	DaysRemaining    int        `json:"days_remaining"`
	LastDonationDate *time.Time `json:"last_donation_date"`
	NextEligibleDate *time.Time `json:"next_eligible_date"`
	TotalDonations   int64      `json:"total_donations"`
}

type DonorService interface {
	CreateProfile(actor Actor, input DonorProfileInput) (*model.Donor, error)
	GetProfile(actor Actor) (*model.Donor, error)
	UpdateProfile(actor Actor, input DonorProfileInput) (*model.Donor, error)
	SetAvailability(actor Actor, available bool) (*model.Donor, error)
	ToggleAvailability(actor Actor) (*model.Donor, error)
	Eligibility(actor Actor) (*Eligibility, error)
	// GetByID is for hospitals and admins looking at a donor.
	GetByID(actor Actor, donorID uint) (*model.Donor, error)
}

type donorService struct {
	donorRepo    repository.DonorRepository
	donationRepo repository.DonationRepository
	now          func() time.Time
}

func NewDonorService(donorRepo repository.DonorRepository, donationRepo repository.DonationRepository) DonorService {
	return &donorService{
		donorRepo:    donorRepo,
		donationRepo: donationRepo,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func validGender(g model.Gender) bool {
	switch g {
	case model.GenderMale, model.GenderFemale, model.GenderOther:
		return true
	}
	return false
}

func (s *donorService) validate(input *DonorProfileInput) error {
	now := s.now()

	input.Phone = strings.TrimSpace(input.Phone)
	input.City = strings.TrimSpace(input.City)
	if input.Phone == "" || input.City == "" {
		return ErrMissingField
	}
	if !input.BloodGroup.IsValid() {
		return ErrInvalidBloodGroup
	}
	if input.Gender != "" && !validGender(input.Gender) {
		return ErrInvalidGender
	}
	if input.DateOfBirth != nil {
		if input.DateOfBirth.After(now) {
			return ErrInvalidDate
		}
		input.Age = util.AgeOn(*input.DateOfBirth, now)
	}
	if input.Age < MinDonorAge || input.Age > MaxDonorAge {
		return ErrInvalidAge
	}
	if input.LastDonationDate != nil {
		if input.LastDonationDate.After(now) {
			return ErrInvalidDate
		}
		d := util.DateOnly(*input.LastDonationDate)
		input.LastDonationDate = &d
	}
	return nil
}

func (s *donorService) findOwn(actor Actor) (*model.Donor, error) {
	if err := requireRole(actor, model.RoleDonor); err != nil {
		return nil, err
	}
	donor, err := s.donorRepo.FindByUserID(actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDonorNotFound
		}
		return nil, err
	}
	return donor, nil
}

func (s *donorService) CreateProfile(actor Actor, input DonorProfileInput) (*model.Donor, error) {
	if err := requireRole(actor, model.RoleDonor); err != nil {
		return nil, err
	}

	if _, err := s.donorRepo.FindByUserID(actor.UserID); err == nil {
		return nil, ErrProfileExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := s.validate(&input); err != nil {
		return nil, err
	}

	donor := &model.Donor{
		UserID:            actor.UserID,
		BloodGroup:        input.BloodGroup,
		Phone:             input.Phone,
		City:              input.City,
		Age:               input.Age,
		Gender:            input.Gender,
		Address:           strings.TrimSpace(input.Address),
		DateOfBirth:       input.DateOfBirth,
		LastDonationDate:  input.LastDonationDate,
		MedicalConditions: strings.TrimSpace(input.MedicalConditions),
		PhotoURL:          input.PhotoURL,
		IsAvailable:       true,
	}
	if err := s.donorRepo.Create(donor); err != nil {
		return nil, err
	}

	logger.Info("Donor profile created", map[string]interface{}{
		"user_id":     actor.UserID,
		"donor_id":    donor.ID,
		"blood_group": donor.BloodGroup,
	})
	return s.donorRepo.FindByID(donor.ID)
}

func (s *donorService) GetProfile(actor Actor) (*model.Donor, error) {
	return s.findOwn(actor)
}

func (s *donorService) UpdateProfile(actor Actor, input DonorProfileInput) (*model.Donor, error) {
	donor, err := s.findOwn(actor)
	if err != nil {
		return nil, err
	}

	// fill blanks from the stored profile so validation sees the final state
	if input.BloodGroup == "" {
		input.BloodGroup = donor.BloodGroup
	}
	if input.Phone == "" {
		input.Phone = donor.Phone
	}
	if input.City == "" {
		input.City = donor.City
	}
	if input.Age == 0 {
		input.Age = donor.Age
	}
	if input.Gender == "" {
		input.Gender = donor.Gender
	}
	if input.DateOfBirth == nil {
		input.DateOfBirth = donor.DateOfBirth
	}
	if input.LastDonationDate == nil {
		input.LastDonationDate = donor.LastDonationDate
	}
	if err := s.validate(&input); err != nil {
		return nil, err
	}

	donor.BloodGroup = input.BloodGroup
	donor.Phone = input.Phone
	donor.City = input.City
	donor.Age = input.Age
	donor.Gender = input.Gender
	donor.DateOfBirth = input.DateOfBirth
	donor.LastDonationDate = input.LastDonationDate
	if input.Address != "" {
		donor.Address = strings.TrimSpace(input.Address)
	}
	if input.MedicalConditions != "" {
		donor.MedicalConditions = strings.TrimSpace(input.MedicalConditions)
	}
	if input.PhotoURL != "" {
		donor.PhotoURL = input.PhotoURL
	}

	if err := s.donorRepo.Update(donor); err != nil {
		return nil, err
	}
	return donor, nil
}

func (s *donorService) SetAvailability(actor Actor, available bool) (*model.Donor, error) {
	donor, err := s.findOwn(actor)
	if err != nil {
		return nil, err
	}
	if err := s.donorRepo.SetAvailability(donor.ID, available); err != nil {
		return nil, err
	}

	logger.Info("Donor availability changed", map[string]interface{}{
		"donor_id":     donor.ID,
		"is_available": available,
	})
	donor.IsAvailable = available
	return donor, nil
}

func (s *donorService) ToggleAvailability(actor Actor) (*model.Donor, error) {
	donor, err := s.findOwn(actor)
	if err != nil {
		return nil, err
	}
	return s.SetAvailability(actor, !donor.IsAvailable)
}

func (s *donorService) Eligibility(actor Actor) (*Eligibility, error) {
	donor, err := s.findOwn(actor)
	if err != nil {
		return nil, err
	}

	now := s.now()
	days := util.DaysUntilEligible(donor.LastDonationDate, now)
	result := &Eligibility{
		Eligible:         donor.IsAvailable && days == 0,
		IsAvailable:      donor.IsAvailable,
		DaysRemaining:    days,
		LastDonationDate: donor.LastDonationDate,
	}
	if donor.LastDonationDate != nil {
		next := util.DateOnly(*donor.LastDonationDate).AddDate(0, 0, util.DonationIntervalDays)
		result.NextEligibleDate = &next
	}

	count, err := s.donationRepo.CountForDonor(donor.ID)
	if err != nil {
		return nil, err
	}
	result.TotalDonations = count
	return result, nil
}

func (s *donorService) GetByID(actor Actor, donorID uint) (*model.Donor, error) {
	if err := requireRole(actor, model.RoleHospital, model.RoleAdmin, model.RoleDonor); err != nil {
		return nil, err
	}

	donor, err := s.donorRepo.FindByID(donorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDonorNotFound
		}
		return nil, err
	}
	if actor.Role == model.RoleDonor && donor.UserID != actor.UserID {
		return nil, ErrForbidden
	}
	return donor, nil
}
