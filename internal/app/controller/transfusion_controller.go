package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/bloodlink-backend/internal/app/model"
	"github.com/ikkim/bloodlink-backend/internal/app/service"
	apperrors "github.com/ikkim/bloodlink-backend/internal/errors"
)

type TransfusionController struct {
	transfusionService service.TransfusionService
}

func NewTransfusionController(transfusionService service.TransfusionService) *TransfusionController {
	return &TransfusionController{
		transfusionService: transfusionService,
	}
}

type CreateTransfusionRequest struct {
	BloodGroup string  `json:"blood_group" binding:"required,bloodgroup"`
	Quantity   float64 `json:"quantity" binding:"required,gt=0"`
	Urgency    string  `json:"urgency" binding:"omitempty,urgency"`
	RequiredBy string  `json:"required_by" binding:"required"` // YYYY-MM-DD
	Reason     string  `json:"reason" binding:"max=1000"`
}

type ReviewTransfusionRequest struct {
	Remarks string `json:"remarks" binding:"max=1000"`
}

// CreateRequest POST /api/v1/requests
func (ctrl *TransfusionController) CreateRequest(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req CreateTransfusionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	requiredBy, ok := parseDate(c, "required_by", req.RequiredBy)
	if !ok {
		return
	}
	urgency := model.Urgency(req.Urgency)
	if urgency == "" {
		urgency = model.UrgencyNormal
	}

	request, err := ctrl.transfusionService.Create(actor, service.CreateTransfusionRequestInput{
		BloodGroup: model.BloodGroup(req.BloodGroup),
		Quantity:   req.Quantity,
		Urgency:    urgency,
		RequiredBy: *requiredBy,
		Reason:     req.Reason,
	})
	if err != nil {
		respondServiceError(c, err, "request")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Blood request submitted",
		"request": request,
	})
}

// ListRequests GET /api/v1/requests?status=&blood_group=&urgency=&page=&page_size=
func (ctrl *TransfusionController) ListRequests(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	query := service.TransfusionRequestQuery{
		Status:     model.RequestStatus(c.Query("status")),
		BloodGroup: model.BloodGroup(c.Query("blood_group")),
		Urgency:    model.Urgency(c.Query("urgency")),
		Page:       queryInt(c, "page", 1),
		PageSize:   queryInt(c, "page_size", 20),
	}
	if query.BloodGroup != "" && !query.BloodGroup.IsValid() {
		apperrors.RespondWithValidationError(c, map[string]string{"blood_group": "must be a valid blood group"})
		return
	}

	requests, total, err := ctrl.transfusionService.List(actor, query)
	if err != nil {
		respondServiceError(c, err, "request")
		return
	}

	c.JSON(http.StatusOK, paged(requests, total, query.Page, query.PageSize))
}

// GetRequest GET /api/v1/requests/:id
func (ctrl *TransfusionController) GetRequest(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	requestID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	request, err := ctrl.transfusionService.Get(actor, requestID)
	if err != nil {
		respondServiceError(c, err, "request")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"request": request,
	})
}

func (ctrl *TransfusionController) review(c *gin.Context, decide func(service.Actor, uint, string) (*model.TransfusionRequest, error), message string) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	requestID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req ReviewTransfusionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}

	request, err := decide(actor, requestID, req.Remarks)
	if err != nil {
		respondServiceError(c, err, "request")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"request": request,
	})
}

// ApproveRequest POST /api/v1/admin/requests/:id/approve
func (ctrl *TransfusionController) ApproveRequest(c *gin.Context) {
	ctrl.review(c, ctrl.transfusionService.Approve, "Request approved")
}

// RejectRequest POST /api/v1/admin/requests/:id/reject
func (ctrl *TransfusionController) RejectRequest(c *gin.Context) {
	ctrl.review(c, ctrl.transfusionService.Reject, "Request rejected")
}

// FulfillRequest POST /api/v1/admin/requests/:id/fulfill
func (ctrl *TransfusionController) FulfillRequest(c *gin.Context) {
	ctrl.review(c, func(actor service.Actor, id uint, _ string) (*model.TransfusionRequest, error) {
		return ctrl.transfusionService.Fulfill(actor, id)
	}, "Request fulfilled")
}
