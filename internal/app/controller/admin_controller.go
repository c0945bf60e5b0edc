package controller

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/bloodlink-backend/internal/app/model"
	"github.com/ikkim/bloodlink-backend/internal/app/service"
	"github.com/ikkim/bloodlink-backend/internal/middleware"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AdminController struct {
	adminService service.AdminService
}

func NewAdminController(adminService service.AdminService) *AdminController {
	return &AdminController{
		adminService: adminService,
	}
}

// VerifyHospital POST /api/v1/admin/hospitals/:id/verify
func (ctrl *AdminController) VerifyHospital(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	hospitalID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	hospital, err := ctrl.adminService.VerifyHospital(actor, hospitalID)
	if err != nil {
		respondServiceError(c, err, "hospital")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Hospital verified",
		"hospital": hospital,
	})
}

// ListUsers GET /api/v1/admin/users?role=&search=&page=&page_size=
func (ctrl *AdminController) ListUsers(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	query := service.UserQuery{
		Role:     model.UserRole(c.Query("role")),
		Search:   c.Query("search"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
	}

	users, total, err := ctrl.adminService.ListUsers(actor, query)
	if err != nil {
		respondServiceError(c, err, "user")
		return
	}

	c.JSON(http.StatusOK, paged(users, total, query.Page, query.PageSize))
}

// ListDonors GET /api/v1/admin/donors?blood_group=&city=&available=&search=
func (ctrl *AdminController) ListDonors(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	query := service.DonorQuery{
		BloodGroup:    model.BloodGroup(c.Query("blood_group")),
		City:          c.Query("city"),
		AvailableOnly: c.Query("available") == "true",
		Search:        c.Query("search"),
		Page:          queryInt(c, "page", 1),
		PageSize:      queryInt(c, "page_size", 20),
	}

	donors, total, err := ctrl.adminService.ListDonors(actor, query)
	if err != nil {
		respondServiceError(c, err, "donor")
		return
	}

	c.JSON(http.StatusOK, paged(donors, total, query.Page, query.PageSize))
}

// ListHospitals GET /api/v1/admin/hospitals?city=&verified=&search=
func (ctrl *AdminController) ListHospitals(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	query := service.HospitalQuery{
		City:     c.Query("city"),
		Verified: parseBoolQuery(c, "verified"),
		Search:   c.Query("search"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
	}

	hospitals, total, err := ctrl.adminService.ListHospitals(actor, query)
	if err != nil {
		respondServiceError(c, err, "hospital")
		return
	}

	c.JSON(http.StatusOK, paged(hospitals, total, query.Page, query.PageSize))
}

// Stats GET /api/v1/admin/stats
func (ctrl *AdminController) Stats(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	stats, err := ctrl.adminService.Stats(actor)
	if err != nil {
		respondServiceError(c, err, "stats")
		return
	}

	c.JSON(http.StatusOK, stats)
}

// Export downloads the whole registry as an XLSX workbook
// GET /api/v1/admin/export
func (ctrl *AdminController) Export(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	// buffered so a failure can still become a JSON error
	var buf bytes.Buffer
	if err := ctrl.adminService.Export(actor, &buf); err != nil {
		respondServiceError(c, err, "export")
		return
	}

	filename := fmt.Sprintf("bloodlink-export-%s.xlsx", time.Now().UTC().Format("20060102"))
	middleware.GetLoggerFromContext(c).Info("Registry exported", map[string]interface{}{
		"admin_id": actor.UserID,
		"bytes":    buf.Len(),
	})

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
