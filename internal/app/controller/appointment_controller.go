package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/bloodlink-backend/internal/app/model"
	"github.com/ikkim/bloodlink-backend/internal/app/service"
)

type AppointmentController struct {
	appointmentService service.AppointmentService
}

func NewAppointmentController(appointmentService service.AppointmentService) *AppointmentController {
	return &AppointmentController{
		appointmentService: appointmentService,
	}
}

type CreateAppointmentRequest struct {
	HospitalID  uint      `json:"hospital_id" binding:"required"`
	ScheduledAt time.Time `json:"scheduled_at" binding:"required"` // RFC3339
	Notes       string    `json:"notes" binding:"max=500"`
}

type CompleteAppointmentRequest struct {
	Quantity float64 `json:"quantity" binding:"required,gt=0"` // units collected
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// CreateAppointment books a donation slot for the current donor
// POST /api/v1/appointments
func (ctrl *AppointmentController) CreateAppointment(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	appointment, err := ctrl.appointmentService.Create(actor, service.CreateAppointmentInput{
		HospitalID:  req.HospitalID,
		ScheduledAt: req.ScheduledAt,
		Notes:       req.Notes,
	})
	if err != nil {
		respondServiceError(c, err, "appointment")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":     "Appointment booked. The hospital will confirm it",
		"appointment": appointment,
	})
}

// ListAppointments GET /api/v1/appointments?tab=&status=&from=&to=&search=&page=&page_size=
// Donors see their own, hospitals theirs, admins everything.
func (ctrl *AppointmentController) ListAppointments(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	from, ok := parseDate(c, "from", c.Query("from"))
	if !ok {
		return
	}
	to, ok := parseDate(c, "to", c.Query("to"))
	if !ok {
		return
	}
	if to != nil {
		// inclusive of the whole day
		end := to.Add(24*time.Hour - time.Nanosecond)
		to = &end
	}

	query := service.AppointmentQuery{
		Tab:      service.AppointmentTab(c.Query("tab")),
		Status:   model.AppointmentStatus(c.Query("status")),
		From:     from,
		To:       to,
		Search:   c.Query("search"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
	}

	appointments, total, err := ctrl.appointmentService.List(actor, query)
	if err != nil {
		respondServiceError(c, err, "appointment")
		return
	}

	c.JSON(http.StatusOK, paged(appointments, total, query.Page, query.PageSize))
}

// GetAppointment GET /api/v1/appointments/:id
func (ctrl *AppointmentController) GetAppointment(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	appointmentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	appointment, err := ctrl.appointmentService.Get(actor, appointmentID)
	if err != nil {
		respondServiceError(c, err, "appointment")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"appointment": appointment,
	})
}

// ConfirmAppointment POST /api/v1/appointments/:id/confirm
func (ctrl *AppointmentController) ConfirmAppointment(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	appointmentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	appointment, err := ctrl.appointmentService.Confirm(actor, appointmentID)
	if err != nil {
		respondServiceError(c, err, "appointment")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Appointment confirmed",
		"appointment": appointment,
	})
}

// CompleteAppointment records the donation and closes the appointment
// POST /api/v1/appointments/:id/complete
func (ctrl *AppointmentController) CompleteAppointment(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	appointmentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req CompleteAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	appointment, donation, err := ctrl.appointmentService.Complete(actor, appointmentID, req.Quantity)
	if err != nil {
		respondServiceError(c, err, "appointment")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Donation recorded",
		"appointment": appointment,
		"donation":    donation,
	})
}

// CancelAppointment POST /api/v1/appointments/:id/cancel
func (ctrl *AppointmentController) CancelAppointment(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	appointmentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req CancelAppointmentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}

	appointment, err := ctrl.appointmentService.Cancel(actor, appointmentID, req.Reason)
	if err != nil {
		respondServiceError(c, err, "appointment")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Appointment cancelled",
		"appointment": appointment,
	})
}
