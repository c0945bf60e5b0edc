package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/bloodlink-backend/internal/app/model"
	"github.com/ikkim/bloodlink-backend/internal/app/service"
	apperrors "github.com/ikkim/bloodlink-backend/internal/errors"
)

type HospitalController struct {
	hospitalService service.HospitalService
}

func NewHospitalController(hospitalService service.HospitalService) *HospitalController {
	return &HospitalController{
		hospitalService: hospitalService,
	}
}

type HospitalProfileRequest struct {
	LicenseNumber string `json:"license_number" binding:"required,max=50"`
	Phone         string `json:"phone" binding:"required,max=20"`
	Address       string `json:"address" binding:"required,max=500"`
	City          string `json:"city" binding:"required,max=100"`
	State         string `json:"state" binding:"max=100"`
	Pincode       string `json:"pincode" binding:"omitempty,max=10,numeric"`
	HospitalType  string `json:"hospital_type" binding:"omitempty,hospitaltype"`
	DocumentURL   string `json:"document_url"`
}

func (r HospitalProfileRequest) input() service.HospitalProfileInput {
	return service.HospitalProfileInput{
		LicenseNumber: r.LicenseNumber,
		Phone:         r.Phone,
		Address:       r.Address,
		City:          r.City,
		State:         r.State,
		Pincode:       r.Pincode,
		HospitalType:  model.HospitalType(r.HospitalType),
		DocumentURL:   r.DocumentURL,
	}
}

// CreateProfile completes the hospital registration. The hospital stays unverified
// until an admin approves it.
// POST /api/v1/hospital/profile
func (ctrl *HospitalController) CreateProfile(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req HospitalProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	hospital, err := ctrl.hospitalService.CreateProfile(actor, req.input())
	if err != nil {
		respondServiceError(c, err, "hospital")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Hospital profile created. It will be usable once an administrator verifies it",
		"hospital": hospital,
	})
}

// GetProfile GET /api/v1/hospital/profile
func (ctrl *HospitalController) GetProfile(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	hospital, err := ctrl.hospitalService.GetProfile(actor)
	if err != nil {
		respondServiceError(c, err, "hospital")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"hospital": hospital,
	})
}

// UpdateProfile PUT /api/v1/hospital/profile
func (ctrl *HospitalController) UpdateProfile(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req HospitalProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	hospital, err := ctrl.hospitalService.UpdateProfile(actor, req.input())
	if err != nil {
		respondServiceError(c, err, "hospital")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Hospital profile updated",
		"hospital": hospital,
	})
}

// ListHospitals lists verified hospitals donors can book with
// GET /api/v1/hospitals?city=&page=&page_size=
func (ctrl *HospitalController) ListHospitals(c *gin.Context) {
	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", 20)

	hospitals, total, err := ctrl.hospitalService.ListVerified(c.Query("city"), page, pageSize)
	if err != nil {
		respondServiceError(c, err, "hospital")
		return
	}

	c.JSON(http.StatusOK, paged(hospitals, total, page, pageSize))
}

// GetHospital GET /api/v1/hospitals/:id
func (ctrl *HospitalController) GetHospital(c *gin.Context) {
	hospitalID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	hospital, err := ctrl.hospitalService.GetByID(hospitalID)
	if err != nil {
		respondServiceError(c, err, "hospital")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"hospital": hospital,
	})
}

// SuggestedDonors GET /api/v1/hospital/suggested-donors?blood_group=O%2B&limit=
func (ctrl *HospitalController) SuggestedDonors(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	group := model.BloodGroup(c.Query("blood_group"))
	if !group.IsValid() {
		apperrors.RespondWithValidationError(c, map[string]string{"blood_group": "must be a valid blood group"})
		return
	}

	donors, err := ctrl.hospitalService.SuggestedDonors(actor, group, queryInt(c, "limit", 20))
	if err != nil {
		respondServiceError(c, err, "donor")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"blood_group": group,
		"donors":      donors,
	})
}
