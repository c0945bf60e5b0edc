package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/bloodlink-backend/internal/app/model"
	"github.com/ikkim/bloodlink-backend/internal/app/service"
	apperrors "github.com/ikkim/bloodlink-backend/internal/errors"
)

const dateLayout = "2006-01-02"

type DonorController struct {
	donorService service.DonorService
}

func NewDonorController(donorService service.DonorService) *DonorController {
	return &DonorController{
		donorService: donorService,
	}
}

type DonorProfileRequest struct {
	BloodGroup        string `json:"blood_group" binding:"required,bloodgroup"`
	Phone             string `json:"phone" binding:"required,max=20"`
	City              string `json:"city" binding:"required,max=100"`
	Age               int    `json:"age" binding:"required,min=18,max=100"`
	Gender            string `json:"gender" binding:"required,gender"`
	Address           string `json:"address" binding:"max=500"`
	DateOfBirth       string `json:"date_of_birth"`      // YYYY-MM-DD
	LastDonationDate  string `json:"last_donation_date"` // YYYY-MM-DD
	MedicalConditions string `json:"medical_conditions" binding:"max=1000"`
	PhotoURL          string `json:"photo_url"`
}

type AvailabilityRequest struct {
	IsAvailable *bool `json:"is_available"`
}

// parseDate reads an optional YYYY-MM-DD value.
func parseDate(c *gin.Context, field, value string) (*time.Time, bool) {
	if value == "" {
		return nil, true
	}
	t, err := time.ParseInLocation(dateLayout, value, time.UTC)
	if err != nil {
		apperrors.RespondWithValidationError(c, map[string]string{field: "must be a date in YYYY-MM-DD format"})
		return nil, false
	}
	return &t, true
}

func (ctrl *DonorController) bindProfile(c *gin.Context) (service.DonorProfileInput, bool) {
	var req DonorProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return service.DonorProfileInput{}, false
	}
	dob, ok := parseDate(c, "date_of_birth", req.DateOfBirth)
	if !ok {
		return service.DonorProfileInput{}, false
	}
	last, ok := parseDate(c, "last_donation_date", req.LastDonationDate)
	if !ok {
		return service.DonorProfileInput{}, false
	}
	return service.DonorProfileInput{
		BloodGroup:        model.BloodGroup(req.BloodGroup),
		Phone:             req.Phone,
		City:              req.City,
		Age:               req.Age,
		Gender:            model.Gender(req.Gender),
		Address:           req.Address,
		DateOfBirth:       dob,
		LastDonationDate:  last,
		MedicalConditions: req.MedicalConditions,
		PhotoURL:          req.PhotoURL,
	}, true
}

// CreateProfile completes the donor registration
// POST /api/v1/donor/profile
func (ctrl *DonorController) CreateProfile(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	input, ok := ctrl.bindProfile(c)
	if !ok {
		return
	}

	donor, err := ctrl.donorService.CreateProfile(actor, input)
	if err != nil {
		respondServiceError(c, err, "donor")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Donor profile created",
		"donor":   donor,
	})
}

// GetProfile GET /api/v1/donor/profile
func (ctrl *DonorController) GetProfile(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	donor, err := ctrl.donorService.GetProfile(actor)
	if err != nil {
		respondServiceError(c, err, "donor")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"donor": donor,
	})
}

// UpdateProfile PUT /api/v1/donor/profile
func (ctrl *DonorController) UpdateProfile(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	input, ok := ctrl.bindProfile(c)
	if !ok {
		return
	}

	donor, err := ctrl.donorService.UpdateProfile(actor, input)
	if err != nil {
		respondServiceError(c, err, "donor")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Donor profile updated",
		"donor":   donor,
	})
}

// SetAvailability sets is_available when given, toggles it otherwise
// PATCH /api/v1/donor/availability
func (ctrl *DonorController) SetAvailability(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req AvailabilityRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}

	var (
		donor *model.Donor
		err   error
	)
	if req.IsAvailable != nil {
		donor, err = ctrl.donorService.SetAvailability(actor, *req.IsAvailable)
	} else {
		donor, err = ctrl.donorService.ToggleAvailability(actor)
	}
	if err != nil {
		respondServiceError(c, err, "donor")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"is_available": donor.IsAvailable,
		"donor":        donor,
	})
}

// Eligibility GET /api/v1/donor/eligibility
func (ctrl *DonorController) Eligibility(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	eligibility, err := ctrl.donorService.Eligibility(actor)
	if err != nil {
		respondServiceError(c, err, "donor")
		return
	}

	c.JSON(http.StatusOK, eligibility)
}

// GetDonor lets hospitals and admins look at a donor
// GET /api/v1/donors/:id
func (ctrl *DonorController) GetDonor(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	donorID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	donor, err := ctrl.donorService.GetByID(actor, donorID)
	if err != nil {
		respondServiceError(c, err, "donor")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"donor": donor,
	})
}
