package v1

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rociobottinelli/citypass-emergency/internal/activation"
	"github.com/rociobottinelli/citypass-emergency/internal/catalog"
	"github.com/rociobottinelli/citypass-emergency/internal/config"
	"github.com/rociobottinelli/citypass-emergency/internal/dispatch"
	"github.com/rociobottinelli/citypass-emergency/internal/models"
	"github.com/rociobottinelli/citypass-emergency/internal/service"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	reportingService service.ReportingService
	logger           *logrus.Logger
	validate         *validator.Validate
	cfg              *config.Config
	now              func() time.Time
}

func NewHandler(reportingService service.ReportingService, logger *logrus.Logger, cfg *config.Config) *Handler {
	return &Handler{
		reportingService: reportingService,
		logger:           logger,
		validate:         validator.New(),
		cfg:              cfg,
		now:              time.Now,
	}
}

// respondError переводит ошибку сервиса в HTTP-ответ
func (h *Handler) respondError(c *gin.Context, log *logrus.Entry, err error) {
	var backendErr *dispatch.BackendError
	isBackend := errors.As(err, &backendErr)

	switch {
	case service.IsClientError(err):
		log.WithError(err).Warn("Request rejected")
		c.JSON(http.StatusBadRequest, gin.H{"error": rootMessage(err)})
	case service.IsConflict(err):
		log.WithError(err).Warn("Request conflicts with activation state")
		c.JSON(http.StatusConflict, gin.H{"error": rootMessage(err)})
	case errors.Is(err, dispatch.ErrUnauthenticated):
		log.WithError(err).Warn("Backend rejected credentials")
		msg := "authentication required"
		if isBackend {
			msg = backendErr.Message
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": msg})
	case isBackend:
		log.WithError(err).Warn("Backend request failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": backendErr.Message})
	default:
		log.WithError(err).Error("Internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// rootMessage возвращает текст самой внутренней ошибки цепочки
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

// applyEvent передает событие машине пользователя и возвращает новое состояние
func (h *Handler) applyEvent(c *gin.Context, method string, ev activation.Event) {
	log := h.logger.WithField("method", method)

	snap, err := h.reportingService.Apply(currentUser(c), ev)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, SnapshotToResponse(snap, h.now()))
}

// @Summary List emergency services
// @Description Get the fixed catalog of emergency services
// @Tags Catalog
// @Produce json
// @Success 200 {array} models.Service
// @Router /catalog/services [get]
func (h *Handler) listServices(c *gin.Context) {
	c.JSON(http.StatusOK, catalog.Services())
}

// @Summary List emergency types
// @Description Get the fixed catalog of emergency types with their default services
// @Tags Catalog
// @Produce json
// @Success 200 {array} models.EmergencyType
// @Router /catalog/types [get]
func (h *Handler) listTypes(c *gin.Context) {
	c.JSON(http.StatusOK, catalog.Types())
}

// @Summary List known public places
// @Description Get the plazas and parks that can replace the device location for location-sensitive types
// @Tags Catalog
// @Produce json
// @Success 200 {array} models.LocationPreset
// @Router /catalog/locations [get]
func (h *Handler) listPresets(c *gin.Context) {
	c.JSON(http.StatusOK, catalog.Presets())
}

// @Summary Get activation state
// @Description Get the current activation state and draft of the citizen
// @Tags Activation
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ActivationResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /activation [get]
func (h *Handler) getActivation(c *gin.Context) {
	snap := h.reportingService.Activation(currentUser(c))
	c.JSON(http.StatusOK, SnapshotToResponse(snap, h.now()))
}

// @Summary Press the emergency button
// @Description Arm a quick activation with the default services. Pressing again during the countdown cancels it.
// @Tags Activation
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ActivationResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 409 {object} map[string]string "Activation already in progress"
// @Router /activation/quick [post]
func (h *Handler) quickActivate(c *gin.Context) {
	h.applyEvent(c, "quickActivate", activation.QuickActivate{})
}

// @Summary Select emergency type
// @Description Select the emergency type; the service selection is replaced by the type defaults
// @Tags Activation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param type body SelectTypeRequest true "Emergency type"
// @Success 200 {object} ActivationResponse
// @Failure 400 {object} map[string]string "Invalid request body or unknown type"
// @Failure 409 {object} map[string]string "Draft is locked"
// @Router /activation/type [put]
func (h *Handler) selectType(c *gin.Context) {
	var input SelectTypeRequest
	log := h.logger.WithField("method", "selectType")

	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.applyEvent(c, "selectType", activation.SelectType{TypeID: input.TypeID})
}

// @Summary Toggle a service
// @Description Add the service to the selection or remove it if already selected
// @Tags Activation
// @Produce json
// @Security BearerAuth
// @Param id path string true "Service ID"
// @Success 200 {object} ActivationResponse
// @Failure 400 {object} map[string]string "Unknown service"
// @Failure 409 {object} map[string]string "Draft is locked"
// @Router /activation/services/{id}/toggle [post]
func (h *Handler) toggleService(c *gin.Context) {
	h.applyEvent(c, "toggleService", activation.ToggleService{ServiceID: models.ServiceID(c.Param("id"))})
}

// @Summary Set description
// @Description Set the free-text description of the detailed report
// @Tags Activation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param description body DescriptionRequest true "Description"
// @Success 200 {object} ActivationResponse
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 409 {object} map[string]string "Draft is locked"
// @Router /activation/description [put]
func (h *Handler) setDescription(c *gin.Context) {
	var input DescriptionRequest
	log := h.logger.WithField("method", "setDescription")

	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.applyEvent(c, "setDescription", activation.SetDescription{Text: input.Description})
}

// @Summary Attach a file
// @Description Attach an image, video or audio file to the detailed report. The media kind is detected from the content.
// @Tags Activation
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Image, video or audio file"
// @Success 200 {object} ActivationResponse
// @Failure 400 {object} map[string]string "Missing or unsupported file"
// @Failure 409 {object} map[string]string "Draft is locked"
// @Failure 413 {object} map[string]string "File too large"
// @Router /activation/attachments [post]
func (h *Handler) addAttachment(c *gin.Context) {
	log := h.logger.WithField("method", "addAttachment")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		log.WithError(err).Warn("Attachment missing from form")
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if h.cfg.MaxAttachmentBytes > 0 && fileHeader.Size > h.cfg.MaxAttachmentBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		log.WithError(err).Error("Failed to open uploaded file")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		log.WithError(err).Error("Failed to read uploaded file")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	mtype := mimetype.Detect(data)
	attachment := models.Attachment{
		Name:        fileHeader.Filename,
		Kind:        attachmentKind(mtype.String()),
		ContentType: mtype.String(),
		Size:        len(data),
		Data:        data,
	}
	h.applyEvent(c, "addAttachment", activation.AddAttachment{Attachment: attachment})
}

// attachmentKind определяет вид вложения по MIME-типу; пустая строка - неподдерживаемый вид
func attachmentKind(contentType string) models.AttachmentKind {
	top, _, _ := strings.Cut(contentType, "/")
	switch top {
	case "image":
		return models.AttachmentImage
	case "video":
		return models.AttachmentVideo
	case "audio":
		return models.AttachmentAudio
	}
	return ""
}

// @Summary Remove an attachment
// @Description Remove the attachment at the given position
// @Tags Activation
// @Produce json
// @Security BearerAuth
// @Param index path int true "Attachment index"
// @Success 200 {object} ActivationResponse
// @Failure 400 {object} map[string]string "Invalid index"
// @Failure 409 {object} map[string]string "Draft is locked"
// @Router /activation/attachments/{index} [delete]
func (h *Handler) removeAttachment(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attachment index"})
		return
	}
	h.applyEvent(c, "removeAttachment", activation.RemoveAttachment{Index: index})
}

// @Summary Select a known place
// @Description Use a known public place instead of the device location. Applied only for fire and robbery/violence reports.
// @Tags Activation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param preset body PresetRequest true "Known place"
// @Success 200 {object} ActivationResponse
// @Failure 400 {object} map[string]string "Invalid request body or unknown place"
// @Failure 409 {object} map[string]string "Draft is locked"
// @Router /activation/preset [put]
func (h *Handler) selectPreset(c *gin.Context) {
	var input PresetRequest
	log := h.logger.WithField("method", "selectPreset")

	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.applyEvent(c, "selectPreset", activation.SelectPreset{PresetID: input.PresetID})
}

// @Summary Clear the known place
// @Tags Activation
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ActivationResponse
// @Failure 409 {object} map[string]string "Draft is locked"
// @Router /activation/preset [delete]
func (h *Handler) clearPreset(c *gin.Context) {
	h.applyEvent(c, "clearPreset", activation.SelectPreset{})
}

// @Summary Confirm the detailed report
// @Description Start the countdown for the detailed report. At least one service must be selected.
// @Tags Activation
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ActivationResponse
// @Failure 400 {object} map[string]string "No services selected"
// @Failure 409 {object} map[string]string "Activation already in progress"
// @Router /activation/confirm [post]
func (h *Handler) confirmDetailed(c *gin.Context) {
	h.applyEvent(c, "confirmDetailed", activation.ConfirmDetailed{})
}

// @Summary Retry a failed dispatch
// @Description Restart the countdown for the draft kept after a failed dispatch
// @Tags Activation
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ActivationResponse
// @Failure 409 {object} map[string]string "Nothing to retry"
// @Router /activation/retry [post]
func (h *Handler) retry(c *gin.Context) {
	h.applyEvent(c, "retry", activation.Retry{})
}

// @Summary Cancel the activation
// @Description Cancel the countdown or a failed activation. The draft is discarded.
// @Tags Activation
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ActivationResponse
// @Failure 409 {object} map[string]string "Dispatch already in progress"
// @Router /activation/cancel [post]
func (h *Handler) cancel(c *gin.Context) {
	h.applyEvent(c, "cancel", activation.Cancel{})
}

// @Summary Discard the draft
// @Description Discard the draft in any state, e.g. when the citizen leaves the page
// @Tags Activation
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ActivationResponse
// @Router /activation [delete]
func (h *Handler) discard(c *gin.Context) {
	h.applyEvent(c, "discard", activation.Discard{})
}

// @Summary Report device location
// @Description Store the latest device position; it is attached to the current draft if it has none yet
// @Tags Location
// @Accept json
// @Security BearerAuth
// @Param location body LocationRequest true "Device position"
// @Success 204 "No Content"
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /location [post]
func (h *Handler) reportLocation(c *gin.Context) {
	var input LocationRequest
	log := h.logger.WithField("method", "reportLocation")

	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	coord := models.Coordinate{Lat: *input.Latitude, Lng: *input.Longitude}
	if err := h.reportingService.ReportLocation(c.Request.Context(), currentUser(c), coord); err != nil {
		h.respondError(c, log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary Get emergency history
// @Description Get a page of the citizen's emergencies, newest first, four per page
// @Tags History
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Success 200 {object} HistoryPageResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /history [get]
func (h *Handler) getHistory(c *gin.Context) {
	log := h.logger.WithField("method", "getHistory")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	p, err := h.reportingService.History(c.Request.Context(), currentUser(c), page)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, PageToResponse(p, h.now()))
}

// @Summary Refresh emergency history
// @Description Replace the local history with the backend's list and return the first page
// @Tags History
// @Produce json
// @Security BearerAuth
// @Success 200 {object} HistoryPageResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 502 {object} map[string]string "Backend error"
// @Router /history/refresh [post]
func (h *Handler) refreshHistory(c *gin.Context) {
	log := h.logger.WithField("method", "refreshHistory")

	p, err := h.reportingService.RefreshHistory(c.Request.Context(), currentUser(c))
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, PageToResponse(p, h.now()))
}

// @Summary Cancel a reported emergency
// @Description Ask the backend to mark the emergency as cancelled
// @Tags History
// @Security BearerAuth
// @Param id path string true "Emergency ID"
// @Success 204 "No Content"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 502 {object} map[string]string "Backend error"
// @Router /history/{id}/cancel [post]
func (h *Handler) cancelEmergency(c *gin.Context) {
	id := c.Param("id")
	log := h.logger.WithField("method", "cancelEmergency").WithField("id", id)

	if err := h.reportingService.CancelEmergency(c.Request.Context(), currentUser(c), id); err != nil {
		h.respondError(c, log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary List dispatch attempts
// @Description Get the citizen's latest dispatch attempts, successful and failed
// @Tags History
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Number of attempts" default(20)
// @Success 200 {array} AttemptResponse
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /attempts [get]
func (h *Handler) listAttempts(c *gin.Context) {
	log := h.logger.WithField("method", "listAttempts")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	attempts, err := h.reportingService.ListAttempts(c.Request.Context(), currentUser(c), limit)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelsToAttemptResponses(attempts))
}

// @Summary End the citizen session
// @Description Discard the draft and forget the local history, e.g. on logout. Reported emergencies are not affected.
// @Tags Session
// @Security BearerAuth
// @Success 204 "No Content"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /session [delete]
func (h *Handler) endSession(c *gin.Context) {
	user := currentUser(c)
	h.reportingService.EndSession(user)
	h.logger.WithField("method", "endSession").WithField("user_id", user.ID).Info("Citizen session ended")
	c.Status(http.StatusNoContent)
}

// @Summary Get dispatch statistics
// @Description Get the number of citizens who dispatched an emergency within the stats window. Requires API key.
// @Tags Admin
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} StatsResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /stats [get]
func (h *Handler) getStats(c *gin.Context) {
	log := h.logger.WithField("method", "getStats")

	userCount, err := h.reportingService.GetStats(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("Failed to get stats from service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, StatsResponse{UserCount: userCount, WindowMinutes: h.cfg.StatsTimeWindowMinutes})
}

// @Summary Get application health status
// @Description Get health status of the application
// @Tags System
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string "Status OK"
// @Router /system/health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
