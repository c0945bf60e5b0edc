package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/bloodlink-backend/internal/app/model"
	apperrors "github.com/ikkim/bloodlink-backend/internal/errors"
	"github.com/ikkim/bloodlink-backend/internal/middleware"
	"github.com/ikkim/bloodlink-backend/internal/storage"
)

type UploadController struct {
	storage storage.Presigner
}

func NewUploadController(storage storage.Presigner) *UploadController {
	return &UploadController{
		storage: storage,
	}
}

type GeneratePresignedURLRequest struct {
	Filename    string `json:"filename" binding:"required,max=255"`
	ContentType string `json:"content_type" binding:"required"`
	Size        int64  `json:"size" binding:"required,gt=0"`
	Kind        string `json:"kind" binding:"required,oneof=donor_photo hospital_document"`
}

// GeneratePresignedURL returns a direct-to-S3 upload URL. Donors upload photos,
// hospitals upload licence documents.
// POST /api/v1/upload/presigned-url
func (ctrl *UploadController) GeneratePresignedURL(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req GeneratePresignedURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	kind := storage.UploadKind(req.Kind)
	if (kind == storage.UploadDonorPhoto && actor.Role != model.RoleDonor) ||
		(kind == storage.UploadHospitalDocument && actor.Role != model.RoleHospital) {
		apperrors.Forbidden(c, "This upload kind is not available for your account")
		return
	}
	if ctrl.storage == nil {
		apperrors.RespondWithError(c, http.StatusServiceUnavailable, apperrors.InternalConfigError, storage.ErrStorageUnavailable.Error())
		return
	}

	response, err := ctrl.storage.PresignUpload(c.Request.Context(), kind, actor.UserID, req.Filename, req.ContentType, req.Size)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrContentTypeDenied):
			apperrors.BadRequest(c, apperrors.UploadInvalidFileType, err.Error())
		case errors.Is(err, storage.ErrFileTooLarge):
			apperrors.BadRequest(c, apperrors.UploadFileTooLarge, err.Error())
		case errors.Is(err, storage.ErrUnknownUploadKind):
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, err.Error())
		default:
			log.Error("Failed to generate presigned URL", err, map[string]interface{}{
				"filename":     req.Filename,
				"content_type": req.ContentType,
				"kind":         kind,
			})
			apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.UploadFailed, "Failed to generate upload URL")
		}
		return
	}

	log.Info("Presigned URL generated successfully", map[string]interface{}{
		"user_id": actor.UserID,
		"kind":    kind,
		"key":     response.Key,
	})

	c.JSON(http.StatusOK, response)
}
