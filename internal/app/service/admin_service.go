package service

import (
	"errors"
	"io"
	"strings"
	"time"

	"github.com/ikkim/bloodlink-backend/internal/app/model"
	"github.com/ikkim/bloodlink-backend/internal/app/repository"
	"github.com/ikkim/bloodlink-backend/internal/spreadsheet"
	"github.com/ikkim/bloodlink-backend/pkg/logger"
	"gorm.io/gorm"
)

var ErrHospitalAlreadyVerified = errors.New("hospital is already verified")

type UserQuery struct {
	Role     model.UserRole
	Search   string
	Page     int
	PageSize int
}

type DonorQuery struct {
	BloodGroup    model.BloodGroup
	City          string
	AvailableOnly bool
	Search        string
	Page          int
	PageSize      int
}

type HospitalQuery struct {
	City     string
	Verified *bool
	Search   string
	Page     int
	PageSize int
}

// Stats is the admin dashboard summary.
type Stats struct {
	Users            map[model.UserRole]int64          `json:"users"`
	DonorsByGroup    map[model.BloodGroup]int64        `json:"donors_by_group"`
	Requests         map[model.RequestStatus]int64     `json:"requests"`
	Appointments     map[model.AppointmentStatus]int64 `json:"appointments"`
	CollectedByGroup map[model.BloodGroup]float64      `json:"collected_by_group"`
	PendingHospitals int64                             `json:"pending_hospitals"`
}

type AdminService interface {
	VerifyHospital(actor Actor, hospitalID uint) (*model.Hospital, error)
	ListUsers(actor Actor, query UserQuery) ([]model.User, int64, error)
	ListDonors(actor Actor, query DonorQuery) ([]model.Donor, int64, error)
	ListHospitals(actor Actor, query HospitalQuery) ([]model.Hospital, int64, error)
	Stats(actor Actor) (*Stats, error)
	// Export writes every donor, hospital, request and donation as an XLSX workbook.
	Export(actor Actor, w io.Writer) error
}

type adminService struct {
	userRepo     repository.UserRepository
	donorRepo    repository.DonorRepository
	hospitalRepo repository.HospitalRepository
	requestRepo  repository.TransfusionRequestRepository
	apptRepo     repository.AppointmentRepository
	donationRepo repository.DonationRepository
	notifier     NotificationService
	now          func() time.Time
}

func NewAdminService(
	userRepo repository.UserRepository,
	donorRepo repository.DonorRepository,
	hospitalRepo repository.HospitalRepository,
	requestRepo repository.TransfusionRequestRepository,
	apptRepo repository.AppointmentRepository,
	donationRepo repository.DonationRepository,
	notifier NotificationService,
) AdminService {
	return &adminService{
		userRepo:     userRepo,
		donorRepo:    donorRepo,
		hospitalRepo: hospitalRepo,
		requestRepo:  requestRepo,
		apptRepo:     apptRepo,
		donationRepo: donationRepo,
		notifier:     notifier,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *adminService) VerifyHospital(actor Actor, hospitalID uint) (*model.Hospital, error) {
	if err := requireRole(actor, model.RoleAdmin); err != nil {
		return nil, err
	}

	hospital, err := s.hospitalRepo.FindByID(hospitalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHospitalNotFound
		}
		return nil, err
	}
	if hospital.IsVerified {
		return nil, ErrHospitalAlreadyVerified
	}

	if err := s.hospitalRepo.MarkVerified(hospital.ID, s.now()); err != nil {
		logger.Error("Failed to verify hospital", err, map[string]interface{}{
			"hospital_id": hospital.ID,
		})
		return nil, err
	}

	logger.Info("Hospital verified", map[string]interface{}{
		"hospital_id": hospital.ID,
		"admin_id":    actor.UserID,
	})

	notifyQuietly(s.notifier, NotificationInput{
		UserID:   hospital.UserID,
		Title:    "Hospital Verified",
		Message:  "Your hospital has been verified. You can now accept appointments and raise blood requests.",
		Type:     model.NotificationTypeSuccess,
		Category: CategoryGeneral,
		Link:     "/hospital/dashboard",
	})

	return s.hospitalRepo.FindByID(hospital.ID)
}

func (s *adminService) ListUsers(actor Actor, query UserQuery) ([]model.User, int64, error) {
	if err := requireRole(actor, model.RoleAdmin); err != nil {
		return nil, 0, err
	}

	var role *model.UserRole
	if query.Role != "" {
		if !query.Role.IsValid() {
			return nil, 0, ErrInvalidRole
		}
		role = &query.Role
	}

	limit, offset := pageBounds(query.Page, query.PageSize)
	return s.userRepo.List(role, strings.TrimSpace(query.Search), limit, offset)
}

func (s *adminService) ListDonors(actor Actor, query DonorQuery) ([]model.Donor, int64, error) {
	if err := requireRole(actor, model.RoleAdmin); err != nil {
		return nil, 0, err
	}

	limit, offset := pageBounds(query.Page, query.PageSize)
	filter := repository.DonorFilter{
		City:          strings.TrimSpace(query.City),
		AvailableOnly: query.AvailableOnly,
		Search:        strings.TrimSpace(query.Search),
		Limit:         limit,
		Offset:        offset,
	}
	if query.BloodGroup != "" {
		if !query.BloodGroup.IsValid() {
			return nil, 0, ErrInvalidBloodGroup
		}
		filter.BloodGroups = []string{string(query.BloodGroup)}
	}

	return s.donorRepo.List(filter)
}

func (s *adminService) ListHospitals(actor Actor, query HospitalQuery) ([]model.Hospital, int64, error) {
	if err := requireRole(actor, model.RoleAdmin); err != nil {
		return nil, 0, err
	}

	limit, offset := pageBounds(query.Page, query.PageSize)
	return s.hospitalRepo.List(repository.HospitalFilter{
		City:     strings.TrimSpace(query.City),
		Verified: query.Verified,
		Search:   strings.TrimSpace(query.Search),
		Limit:    limit,
		Offset:   offset,
	})
}

func (s *adminService) Stats(actor Actor) (*Stats, error) {
	if err := requireRole(actor, model.RoleAdmin); err != nil {
		return nil, err
	}

	stats := &Stats{}
	var err error
	if stats.Users, err = s.userRepo.CountByRole(); err != nil {
		return nil, err
	}
	if stats.DonorsByGroup, err = s.donorRepo.CountByBloodGroup(); err != nil {
		return nil, err
	}
	if stats.Requests, err = s.requestRepo.CountByStatus(); err != nil {
		return nil, err
	}
	if stats.Appointments, err = s.apptRepo.CountByStatus(); err != nil {
		return nil, err
	}
	if stats.CollectedByGroup, err = s.donationRepo.TotalQuantityByBloodGroup(); err != nil {
		return nil, err
	}

	unverified := false
	if _, stats.PendingHospitals, err = s.hospitalRepo.List(repository.HospitalFilter{Verified: &unverified, Limit: 1}); err != nil {
		return nil, err
	}

	return stats, nil
}

func (s *adminService) Export(actor Actor, w io.Writer) error {
	if err := requireRole(actor, model.RoleAdmin); err != nil {
		return err
	}

	var data spreadsheet.ExportData
	var err error
	if data.Donors, _, err = s.donorRepo.List(repository.DonorFilter{}); err != nil {
		return err
	}
	if data.Hospitals, _, err = s.hospitalRepo.List(repository.HospitalFilter{}); err != nil {
		return err
	}
	if data.Requests, _, err = s.requestRepo.List(repository.TransfusionRequestFilter{}); err != nil {
		return err
	}
	if data.Donations, _, err = s.donationRepo.List(repository.DonationFilter{}); err != nil {
		return err
	}

	logger.Info("Admin export generated", map[string]interface{}{
		"admin_id":  actor.UserID,
		"donors":    len(data.Donors),
		"hospitals": len(data.Hospitals),
		"requests":  len(data.Requests),
		"donations": len(data.Donations),
	})

	return spreadsheet.WriteExport(w, data)
}
