package service

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ikkim/bloodlink-backend/internal/app/model"
	"github.com/ikkim/bloodlink-backend/internal/app/repository"
	"github.com/ikkim/bloodlink-backend/pkg/logger"
	"github.com/ikkim/bloodlink-backend/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrAppointmentNotFound   = errors.New("appointment not found")
	ErrInvalidSchedule       = errors.New("appointment must be scheduled in the future")
	ErrInvalidQuantity       = errors.New("quantity must be a positive number")
	ErrInvalidTransition     = errors.New("status cannot change from its current value to the requested one")
	ErrDonorUnavailable      = errors.New("donor is not available for donation")
	ErrDonationTooSoon       = errors.New("donor is not yet eligible to donate again")
	ErrHospitalNotVerified   = errors.New("hospital is not verified yet")
	ErrInvalidDateRange      = errors.New("from date must be before to date")
	ErrInvalidAppointmentTab = errors.New("tab must be one of upcoming, completed, cancelled, all")
)

// TooSoonError reports how long a donor still has to wait. It matches ErrDonationTooSoon.
type TooSoonError struct {
	DaysRemaining int
	EligibleOn    time.Time
}

func (e *TooSoonError) Error() string {
	return fmt.Sprintf("you must wait %d more days before donating again (eligible on %s)",
		e.DaysRemaining, e.EligibleOn.Format("2006-01-02"))
}

func (e *TooSoonError) Is(target error) bool {
	return target == ErrDonationTooSoon
}

const appointmentTimeLayout = "January 02, 2006 at 03:04 PM"

type CreateAppointmentInput struct {
	HospitalID  uint
	ScheduledAt time.Time
	Notes       string
}

// AppointmentTab donor side list filter
type AppointmentTab string

const (
	TabUpcoming  AppointmentTab = "upcoming"
	TabCompleted AppointmentTab = "completed"
	TabCancelled AppointmentTab = "cancelled"
	TabAll       AppointmentTab = "all"
)

type AppointmentQuery struct {
	Tab      AppointmentTab
	Status   model.AppointmentStatus
	From     *time.Time
	To       *time.Time
	Search   string
	Page     int
	PageSize int
}

type AppointmentService interface {
	Create(actor Actor, input CreateAppointmentInput) (*model.Appointment, error)
	Confirm(actor Actor, appointmentID uint) (*model.Appointment, error)
	// Complete finishes a confirmed appointment and records the donation in one transaction.
	Complete(actor Actor, appointmentID uint, quantity float64) (*model.Appointment, *model.DonationRecord, error)
	Cancel(actor Actor, appointmentID uint, reason string) (*model.Appointment, error)
	Get(actor Actor, appointmentID uint) (*model.Appointment, error)
	List(actor Actor, query AppointmentQuery) ([]model.Appointment, int64, error)
	// SendReminders notifies donors of confirmed appointments scheduled for the next day.
	SendReminders() (int, error)
}

type appointmentService struct {
	db              *gorm.DB
	appointmentRepo repository.AppointmentRepository
	donorRepo       repository.DonorRepository
	hospitalRepo    repository.HospitalRepository
	donationRepo    repository.DonationRepository
	notifier        NotificationService
	now             func() time.Time
}

func NewAppointmentService(
	db *gorm.DB,
	appointmentRepo repository.AppointmentRepository,
	donorRepo repository.DonorRepository,
	hospitalRepo repository.HospitalRepository,
	donationRepo repository.DonationRepository,
	notifier NotificationService,
) AppointmentService {
	return &appointmentService{
		db:              db,
		appointmentRepo: appointmentRepo,
		donorRepo:       donorRepo,
		hospitalRepo:    hospitalRepo,
		donationRepo:    donationRepo,
		notifier:        notifier,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

func (s *appointmentService) Create(actor Actor, input CreateAppointmentInput) (*model.Appointment, error) {
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

	hospital, err := s.hospitalRepo.FindByID(input.HospitalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHospitalNotFound
		}
		return nil, err
	}
	if !hospital.IsVerified {
		return nil, ErrHospitalNotVerified
	}

	now := s.now()
	if !input.ScheduledAt.After(now) {
		return nil, ErrInvalidSchedule
	}
	if !donor.IsAvailable {
		return nil, ErrDonorUnavailable
	}
	if days := util.DaysUntilEligible(donor.LastDonationDate, now); days > 0 {
		return nil, &TooSoonError{
			DaysRemaining: days,
			EligibleOn:    util.DateOnly(now).AddDate(0, 0, days),
		}
	}

	appointment := &model.Appointment{
		DonorID:     donor.ID,
		HospitalID:  hospital.ID,
		ScheduledAt: input.ScheduledAt.UTC(),
		Status:      model.AppointmentStatusPending,
		Notes:       strings.TrimSpace(input.Notes),
	}
	if err := s.appointmentRepo.Create(appointment); err != nil {
		return nil, err
	}

	logger.Info("Appointment created", map[string]interface{}{
		"appointment_id": appointment.ID,
		"donor_id":       donor.ID,
		"hospital_id":    hospital.ID,
	})

	s.notify(NotificationInput{
		UserID:        hospital.UserID,
		Title:         "New Appointment Request",
		Message:       fmt.Sprintf("%s requested a donation appointment on %s.", donorName(donor), appointment.ScheduledAt.Format(appointmentTimeLayout)),
		Type:          model.NotificationTypeInfo,
		Category:      CategoryAppointment,
		AppointmentID: &appointment.ID,
		Link:          "/hospital/appointments",
	})

	return s.appointmentRepo.FindByID(appointment.ID)
}

// load fetches the appointment with both parties.
func (s *appointmentService) load(appointmentID uint) (*model.Appointment, error) {
	appointment, err := s.appointmentRepo.FindByID(appointmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return appointment, nil
}

func isHospitalSide(actor Actor, appointment *model.Appointment) bool {
	return actor.Role == model.RoleHospital && appointment.Hospital != nil && appointment.Hospital.UserID == actor.UserID
}

func isDonorSide(actor Actor, appointment *model.Appointment) bool {
	return actor.Role == model.RoleDonor && appointment.Donor != nil && appointment.Donor.UserID == actor.UserID
}

func (s *appointmentService) Confirm(actor Actor, appointmentID uint) (*model.Appointment, error) {
	appointment, err := s.load(appointmentID)
	if err != nil {
		return nil, err
	}
	if !isHospitalSide(actor, appointment) {
		return nil, ErrForbidden
	}
	if !appointment.Status.CanTransitionTo(model.AppointmentStatusConfirmed) {
		return nil, ErrInvalidTransition
	}

	now := s.now()
	ok, err := s.appointmentRepo.TransitionStatus(appointment.ID, model.AppointmentStatusPending, model.AppointmentStatusConfirmed,
		map[string]interface{}{"confirmed_at": now})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidTransition
	}

	logger.Info("Appointment confirmed", map[string]interface{}{
		"appointment_id": appointment.ID,
		"hospital_user":  actor.UserID,
	})

	s.notify(NotificationInput{
		UserID:        appointment.Donor.UserID,
		Title:         "Appointment Confirmed",
		Message:       fmt.Sprintf("Your blood donation appointment on %s has been confirmed.", appointment.ScheduledAt.Format(appointmentTimeLayout)),
		Type:          model.NotificationTypeSuccess,
		Category:      CategoryAppointment,
		AppointmentID: &appointment.ID,
		Link:          "/donor/appointments",
	})

	return s.appointmentRepo.FindByID(appointment.ID)
}

func validQuantity(q float64) bool {
	return !math.IsNaN(q) && !math.IsInf(q, 0) && q > 0
}

func (s *appointmentService) Complete(actor Actor, appointmentID uint, quantity float64) (*model.Appointment, *model.DonationRecord, error) {
	appointment, err := s.load(appointmentID)
	if err != nil {
		return nil, nil, err
	}
	if !isHospitalSide(actor, appointment) {
		return nil, nil, ErrForbidden
	}
	if appointment.Status != model.AppointmentStatusConfirmed {
		return nil, nil, ErrInvalidTransition
	}
	if !validQuantity(quantity) {
		return nil, nil, ErrInvalidQuantity
	}

	now := s.now()
	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, nil, tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	locked, err := s.appointmentRepo.WithTx(tx).FindByIDForUpdate(appointment.ID)
	if err != nil {
		tx.Rollback()
		return nil, nil, err
	}
	if locked.Status != model.AppointmentStatusConfirmed {
		tx.Rollback()
		return nil, nil, ErrInvalidTransition
	}

	ok, err := s.appointmentRepo.WithTx(tx).TransitionStatus(locked.ID, model.AppointmentStatusConfirmed, model.AppointmentStatusCompleted,
		map[string]interface{}{"completed_at": now})
	if err != nil {
		tx.Rollback()
		return nil, nil, err
	}
	if !ok {
		tx.Rollback()
		return nil, nil, ErrInvalidTransition
	}

	donor, err := s.donorRepo.WithTx(tx).FindByID(locked.DonorID)
	if err != nil {
		tx.Rollback()
		return nil, nil, err
	}

	record := &model.DonationRecord{
		AppointmentID: locked.ID,
		DonorID:       locked.DonorID,
		HospitalID:    locked.HospitalID,
		BloodGroup:    donor.BloodGroup,
		Quantity:      quantity,
		DonationDate:  now,
	}
	if err := s.donationRepo.WithTx(tx).Create(record); err != nil {
		tx.Rollback()
		return nil, nil, err
	}

	if err := s.donorRepo.WithTx(tx).SetLastDonationDate(donor.ID, util.DateOnly(now)); err != nil {
		tx.Rollback()
		return nil, nil, err
	}

	if err := tx.Commit().Error; err != nil {
		logger.Error("Failed to commit appointment completion", err, map[string]interface{}{
			"appointment_id": appointment.ID,
		})
		return nil, nil, err
	}

	logger.Info("Appointment completed", map[string]interface{}{
		"appointment_id": appointment.ID,
		"donation_id":    record.ID,
		"quantity":       quantity,
	})

	s.notify(NotificationInput{
		UserID:        appointment.Donor.UserID,
		Title:         "Donation Completed",
		Message:       fmt.Sprintf("Thank you for your blood donation! %s units of %s blood have been recorded.", formatQuantity(quantity), donor.BloodGroup),
		Type:          model.NotificationTypeSuccess,
		Category:      CategoryAppointment,
		AppointmentID: &appointment.ID,
		Link:          "/donor/donations",
	})

	updated, err := s.appointmentRepo.FindByID(appointment.ID)
	if err != nil {
		return nil, nil, err
	}
	return updated, record, nil
}

func (s *appointmentService) Cancel(actor Actor, appointmentID uint, reason string) (*model.Appointment, error) {
	appointment, err := s.load(appointmentID)
	if err != nil {
		return nil, err
	}

	byDonor := isDonorSide(actor, appointment)
	if !byDonor && !isHospitalSide(actor, appointment) {
		return nil, ErrForbidden
	}
	if !appointment.Status.CanTransitionTo(model.AppointmentStatusCancelled) {
		return nil, ErrInvalidTransition
	}

	now := s.now()
	ok, err := s.appointmentRepo.TransitionStatus(appointment.ID, appointment.Status, model.AppointmentStatusCancelled,
		map[string]interface{}{
			"cancelled_at": now,
			"cancelled_by": actor.UserID,
		})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidTransition
	}

	logger.Info("Appointment cancelled", map[string]interface{}{
		"appointment_id": appointment.ID,
		"by_user":        actor.UserID,
		"by_donor":       byDonor,
	})

	var recipient uint
	var who, link string
	if byDonor {
		recipient = appointment.Hospital.UserID
		who = donorName(appointment.Donor)
		link = "/hospital/appointments"
	} else {
		recipient = appointment.Donor.UserID
		who = hospitalName(appointment.Hospital)
		link = "/donor/appointments"
	}
	message := fmt.Sprintf("The appointment on %s has been cancelled by %s.", appointment.ScheduledAt.Format(appointmentTimeLayout), who)
	if reason = strings.TrimSpace(reason); reason != "" {
		message += " Reason: " + reason
	}
	s.notify(NotificationInput{
		UserID:        recipient,
		Title:         "Appointment Cancelled",
		Message:       message,
		Type:          model.NotificationTypeWarning,
		Category:      CategoryAppointment,
		AppointmentID: &appointment.ID,
		Link:          link,
	})

	return s.appointmentRepo.FindByID(appointment.ID)
}

func (s *appointmentService) Get(actor Actor, appointmentID uint) (*model.Appointment, error) {
	appointment, err := s.load(appointmentID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !isDonorSide(actor, appointment) && !isHospitalSide(actor, appointment) {
		return nil, ErrForbidden
	}
	return appointment, nil
}

func (s *appointmentService) List(actor Actor, query AppointmentQuery) ([]model.Appointment, int64, error) {
	if query.From != nil && query.To != nil && !query.From.Before(*query.To) {
		return nil, 0, ErrInvalidDateRange
	}

	limit, offset := pageBounds(query.Page, query.PageSize)
	filter := repository.AppointmentFilter{
		From:   query.From,
		To:     query.To,
		Search: strings.TrimSpace(query.Search),
		Limit:  limit,
		Offset: offset,
	}

	switch actor.Role {
	case model.RoleDonor:
		donor, err := s.donorRepo.FindByUserID(actor.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, 0, ErrDonorNotFound
			}
			return nil, 0, err
		}
		filter.DonorID = &donor.ID
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

	switch query.Tab {
	case "", TabAll:
	case TabUpcoming:
		now := s.now()
		filter.UpcomingAfter = &now
		filter.Statuses = []model.AppointmentStatus{model.AppointmentStatusPending, model.AppointmentStatusConfirmed}
	case TabCompleted:
		filter.Statuses = []model.AppointmentStatus{model.AppointmentStatusCompleted}
	case TabCancelled:
		filter.Statuses = []model.AppointmentStatus{model.AppointmentStatusCancelled}
	default:
		return nil, 0, ErrInvalidAppointmentTab
	}
	if query.Status != "" {
		filter.Statuses = []model.AppointmentStatus{query.Status}
	}

	return s.appointmentRepo.List(filter)
}

func (s *appointmentService) SendReminders() (int, error) {
	tomorrow := util.DateOnly(s.now()).AddDate(0, 0, 1)
	due, err := s.appointmentRepo.FindDueForReminder(tomorrow, tomorrow.AddDate(0, 0, 1))
	if err != nil {
		logger.Error("Failed to load appointments for reminders", err)
		return 0, err
	}

	sent := 0
	for i := range due {
		appointment := &due[i]
		if appointment.Donor == nil {
			continue
		}
		s.notify(NotificationInput{
			UserID:        appointment.Donor.UserID,
			Title:         "Appointment Reminder",
			Message:       fmt.Sprintf("Reminder: your blood donation appointment at %s is on %s.", hospitalName(appointment.Hospital), appointment.ScheduledAt.Format(appointmentTimeLayout)),
			Type:          model.NotificationTypeInfo,
			Category:      CategoryAppointment,
			AppointmentID: &appointment.ID,
			Link:          "/donor/appointments",
		})
		if err := s.appointmentRepo.MarkReminderSent(appointment.ID, s.now()); err != nil {
			logger.Error("Failed to mark reminder sent", err, map[string]interface{}{
				"appointment_id": appointment.ID,
			})
			continue
		}
		sent++
	}
	return sent, nil
}

func (s *appointmentService) notify(input NotificationInput) {
	notifyQuietly(s.notifier, input)
}

func donorName(donor *model.Donor) string {
	if donor != nil && donor.User != nil {
		return donor.User.Name
	}
	return "The donor"
}

func hospitalName(hospital *model.Hospital) string {
	if hospital != nil && hospital.User != nil {
		return hospital.User.Name
	}
	return "the hospital"
}

// formatQuantity prints 1.5 as "1.5" and 2 as "2".
func formatQuantity(q float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", q), "0"), ".")
}
