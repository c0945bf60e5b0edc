package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ikkim/bloodlink-backend/internal/app/model"
	"github.com/ikkim/bloodlink-backend/internal/app/repository"
	"github.com/ikkim/bloodlink-backend/pkg/logger"
	"github.com/ikkim/bloodlink-backend/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrRequestNotFound      = errors.New("transfusion request not found")
	ErrInvalidUrgency       = errors.New("urgency must be normal, urgent or emergency")
	ErrInvalidRequiredDate  = errors.New("required date cannot be in the past")
	ErrInvalidRequestStatus = errors.New("invalid request status")
)

type CreateTransfusionRequestInput struct {
	BloodGroup model.BloodGroup
	Quantity   float64
	Urgency    model.Urgency
	RequiredBy time.Time
	Reason     string
}

type TransfusionRequestQuery struct {
	Status     model.RequestStatus
	BloodGroup model.BloodGroup
	Urgency    model.Urgency
	Page       int
	PageSize   int
}

type TransfusionService interface {
	Create(actor Actor, input CreateTransfusionRequestInput) (*model.TransfusionRequest, error)
	// List returns the hospital's own requests, or every request for admins.
	List(actor Actor, query TransfusionRequestQuery) ([]model.TransfusionRequest, int64, error)
	Get(actor Actor, requestID uint) (*model.TransfusionRequest, error)
	Approve(actor Actor, requestID uint, remarks string) (*model.TransfusionRequest, error)
	Reject(actor Actor, requestID uint, remarks string) (*model.TransfusionRequest, error)
	Fulfill(actor Actor, requestID uint) (*model.TransfusionRequest, error)
}

type transfusionService struct {
	requestRepo  repository.TransfusionRequestRepository
	hospitalRepo repository.HospitalRepository
	userRepo     repository.UserRepository
	notifier     NotificationService
	now          func() time.Time
}

func NewTransfusionService(
	requestRepo repository.TransfusionRequestRepository,
	hospitalRepo repository.HospitalRepository,
	userRepo repository.UserRepository,
	notifier NotificationService,
) TransfusionService {
	return &transfusionService{
		requestRepo:  requestRepo,
		hospitalRepo: hospitalRepo,
		userRepo:     userRepo,
		notifier:     notifier,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *transfusionService) Create(actor Actor, input CreateTransfusionRequestInput) (*model.TransfusionRequest, error) {
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
	if !hospital.IsVerified {
		return nil, ErrHospitalNotVerified
	}

	if !input.BloodGroup.IsValid() {
		return nil, ErrInvalidBloodGroup
	}
	if !validQuantity(input.Quantity) {
		return nil, ErrInvalidQuantity
	}
	if input.Urgency == "" {
		input.Urgency = model.UrgencyNormal
	}
	if !input.Urgency.IsValid() {
		return nil, ErrInvalidUrgency
	}
	requiredBy := util.DateOnly(input.RequiredBy)
	if input.RequiredBy.IsZero() || requiredBy.Before(util.DateOnly(s.now())) {
		return nil, ErrInvalidRequiredDate
	}

	request := &model.TransfusionRequest{
		HospitalID:       hospital.ID,
		BloodGroup:       input.BloodGroup,
		CompatibleGroups: input.BloodGroup.CompatibleDonorGroups(),
		Quantity:         input.Quantity,
		Urgency:          input.Urgency,
		Status:           model.RequestStatusPending,
		RequiredBy:       requiredBy,
		Reason:           strings.TrimSpace(input.Reason),
	}
	if err := s.requestRepo.Create(request); err != nil {
		return nil, err
	}

	logger.Info("Transfusion request created", map[string]interface{}{
		"request_id":  request.ID,
		"hospital_id": hospital.ID,
		"urgency":     request.Urgency,
	})

	s.notifyAdmins(request, hospital)

	return s.requestRepo.FindByID(request.ID)
}

func (s *transfusionService) notifyAdmins(request *model.TransfusionRequest, hospital *model.Hospital) {
	adminIDs, err := s.userRepo.ListIDsByRole(model.RoleAdmin)
	if err != nil {
		logger.Warn("Failed to load admins for request notification", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	kind := model.NotificationTypeInfo
	if request.Urgency == model.UrgencyEmergency {
		kind = model.NotificationTypeError
	} else if request.Urgency == model.UrgencyUrgent {
		kind = model.NotificationTypeWarning
	}
	for _, adminID := range adminIDs {
		s.notify(NotificationInput{
			UserID:    adminID,
			Title:     "New Transfusion Request",
			Message:   fmt.Sprintf("%s requested %s units of %s blood (%s).", hospitalName(hospital), formatQuantity(request.Quantity), request.BloodGroup, request.Urgency),
			Type:      kind,
			Category:  CategoryRequest,
			RequestID: &request.ID,
			Link:      "/admin/requests",
		})
	}
}

func (s *transfusionService) List(actor Actor, query TransfusionRequestQuery) ([]model.TransfusionRequest, int64, error) {
	limit, offset := pageBounds(query.Page, query.PageSize)
	filter := repository.TransfusionRequestFilter{
		BloodGroup: string(query.BloodGroup),
		Urgency:    string(query.Urgency),
		Limit:      limit,
		Offset:     offset,
	}
	if query.Status != "" {
		if !query.Status.IsValid() {
			return nil, 0, ErrInvalidRequestStatus
		}
		filter.Statuses = []model.RequestStatus{query.Status}
	}

	switch actor.Role {
	case model.RoleHospital:
		hospital, err := s.hospitalRepo.FindByUserID(actor.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, 0, ErrHospitalNotFound
			}
			return nil, 0, err
		}
		filter.HospitalID = &hospital.ID
	case model.RoleAdmin:
	default:
		return nil, 0, ErrForbidden
	}

	return s.requestRepo.List(filter)
}

func (s *transfusionService) load(requestID uint) (*model.TransfusionRequest, error) {
	request, err := s.requestRepo.FindByID(requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return request, nil
}

func (s *transfusionService) Get(actor Actor, requestID uint) (*model.TransfusionRequest, error) {
	request, err := s.load(requestID)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() {
		return request, nil
	}
	if actor.Role == model.RoleHospital && request.Hospital != nil && request.Hospital.UserID == actor.UserID {
		return request, nil
	}
	return nil, ErrForbidden
}

func (s *transfusionService) review(actor Actor, requestID uint, to model.RequestStatus, remarks string) (*model.TransfusionRequest, error) {
	if err := requireRole(actor, model.RoleAdmin); err != nil {
		return nil, err
	}
	request, err := s.load(requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != model.RequestStatusPending {
		return nil, ErrInvalidTransition
	}

	now := s.now()
	ok, err := s.requestRepo.Transition(request.ID, model.RequestStatusPending, to, map[string]interface{}{
		"admin_remarks": strings.TrimSpace(remarks),
		"reviewed_by":   actor.UserID,
		"reviewed_at":   now,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidTransition
	}

	logger.Info("Transfusion request reviewed", map[string]interface{}{
		"request_id": request.ID,
		"status":     to,
		"admin_id":   actor.UserID,
	})

	title := "Transfusion Request Approved"
	kind := model.NotificationTypeSuccess
	message := fmt.Sprintf("Your request for %s units of %s blood has been approved.", formatQuantity(request.Quantity), request.BloodGroup)
	if to == model.RequestStatusRejected {
		title = "Transfusion Request Rejected"
		kind = model.NotificationTypeError
		message = fmt.Sprintf("Your request for %s units of %s blood has been rejected.", formatQuantity(request.Quantity), request.BloodGroup)
	}
	if r := strings.TrimSpace(remarks); r != "" {
		message += " Remarks: " + r
	}
	if request.Hospital != nil {
		s.notify(NotificationInput{
			UserID:    request.Hospital.UserID,
			Title:     title,
			Message:   message,
			Type:      kind,
			Category:  CategoryRequest,
			RequestID: &request.ID,
			Link:      "/hospital/requests",
		})
	}

	return s.requestRepo.FindByID(request.ID)
}

func (s *transfusionService) Approve(actor Actor, requestID uint, remarks string) (*model.TransfusionRequest, error) {
	return s.review(actor, requestID, model.RequestStatusApproved, remarks)
}

func (s *transfusionService) Reject(actor Actor, requestID uint, remarks string) (*model.TransfusionRequest, error) {
	return s.review(actor, requestID, model.RequestStatusRejected, remarks)
}

func (s *transfusionService) Fulfill(actor Actor, requestID uint) (*model.TransfusionRequest, error) {
	if err := requireRole(actor, model.RoleAdmin); err != nil {
		return nil, err
	}
	request, err := s.load(requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != model.RequestStatusApproved {
		return nil, ErrInvalidTransition
	}

	ok, err := s.requestRepo.Transition(request.ID, model.RequestStatusApproved, model.RequestStatusFulfilled,
		map[string]interface{}{"fulfilled_at": s.now()})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidTransition
	}

	if request.Hospital != nil {
		s.notify(NotificationInput{
			UserID:    request.Hospital.UserID,
			Title:     "Transfusion Request Fulfilled",
			Message:   fmt.Sprintf("Your request for %s units of %s blood has been fulfilled.", formatQuantity(request.Quantity), request.BloodGroup),
			Type:      model.NotificationTypeSuccess,
			Category:  CategoryRequest,
			RequestID: &request.ID,
			Link:      "/hospital/requests",
		})
	}

	return s.requestRepo.FindByID(request.ID)
}

func (s *transfusionService) notify(input NotificationInput) {
	notifyQuietly(s.notifier, input)
}
