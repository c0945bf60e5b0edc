package controller

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/bloodlink-backend/internal/app/service"
	"github.com/ikkim/bloodlink-backend/internal/certificate"
	apperrors "github.com/ikkim/bloodlink-backend/internal/errors"
	"github.com/ikkim/bloodlink-backend/internal/middleware"
)

type DonationController struct {
	donationService service.DonationService
}

func NewDonationController(donationService service.DonationService) *DonationController {
	return &DonationController{
		donationService: donationService,
	}
}

// ListDonations GET /api/v1/donations?page=&page_size=
func (ctrl *DonationController) ListDonations(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", 20)

	records, total, err := ctrl.donationService.List(actor, page, pageSize)
	if err != nil {
		respondServiceError(c, err, "donation")
		return
	}

	c.JSON(http.StatusOK, paged(records, total, page, pageSize))
}

// GetDonation GET /api/v1/donations/:id
func (ctrl *DonationController) GetDonation(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	donationID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	record, err := ctrl.donationService.Get(actor, donationID)
	if err != nil {
		respondServiceError(c, err, "donation")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"donation": record,
	})
}

// DownloadCertificate streams the certificate as html (default) or pdf
// GET /api/v1/donations/:id/certificate?format=pdf
func (ctrl *DonationController) DownloadCertificate(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	donationID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	format, err := certificate.ParseFormat(c.Query("format"))
	if err != nil {
		apperrors.RespondWithValidationError(c, map[string]string{"format": "must be html or pdf"})
		return
	}

	file, err := ctrl.donationService.Certificate(actor, donationID, format)
	if err != nil {
		if errors.Is(err, certificate.ErrUnsupportedFormat) {
			apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, err.Error())
			return
		}
		respondServiceError(c, err, "donation")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Certificate downloaded", map[string]interface{}{
		"donation_id":    donationID,
		"certificate_id": file.CertificateID,
		"format":         format,
	})

	disposition := "inline"
	if format == certificate.FormatPDF {
		disposition = "attachment"
	}
	c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, file.Filename))
	c.Header("X-Certificate-ID", file.CertificateID)
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// VerifyCertificate is the public target of the certificate QR code
// GET /api/v1/certificates/:certificateId
func (ctrl *DonationController) VerifyCertificate(c *gin.Context) {
	verification, err := ctrl.donationService.VerifyCertificate(c.Param("certificateId"))
	if err != nil {
		respondServiceError(c, err, "donation")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":       true,
		"certificate": verification,
	})
}
