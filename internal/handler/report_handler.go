package handler

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/wenzhi-edu/report-api/internal/dto"
	"github.com/wenzhi-edu/report-api/internal/render"
	"github.com/wenzhi-edu/report-api/internal/report"
	"github.com/wenzhi-edu/report-api/internal/service"
	"github.com/wenzhi-edu/report-api/internal/utils"
)

// ContentTypeDocx is the MIME type for WordprocessingML documents.
const ContentTypeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// ReportHandler exposes report export endpoints.
type ReportHandler struct {
	reports   service.ReportService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewReportHandler constructs the handler.
func NewReportHandler(reports service.ReportService, validate *validator.Validate, logger zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		reports:   reports,
		validator: validate,
		logger:    logger.With().Str("component", "report_handler").Logger(),
	}
}

// Register attaches report routes to the router group.
func (h *ReportHandler) Register(router fiber.Router) {
	router.Get("/essays/:id/report", h.ExportEssayReport)
	router.Get("/assignments/:id/report", h.ExportAssignmentReport)
}

// ExportEssayReport renders one student's evaluation into a downloadable
// document. The view query selects the teacher or legacy rendition.
func (h *ReportHandler) ExportEssayReport(c *fiber.Ctx) error {
	essayID, err := parseID(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid essay id")
	}

	var query dto.EssayReportQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}
	if err := h.validator.Struct(query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "view must be teacher or legacy")
	}

	doc, err := h.reports.RenderEssayReport(c.Context(), essayID, query.ReportMode())
	if err != nil {
		return h.sendReportError(c, err)
	}

	return sendDocument(c, doc)
}

// ExportAssignmentReport renders every evaluation under an assignment. The
// mode query selects one combined document or a per-student archive. Items
// that fail to render are skipped; their count travels in the
// X-Report-Failures header alongside the successful payload.
func (h *ReportHandler) ExportAssignmentReport(c *fiber.Ctx) error {
	assignmentID, err := parseID(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid assignment id")
	}

	var query dto.AssignmentReportQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}
	if err := h.validator.Struct(query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "mode must be combined or zip")
	}

	exportMode := service.ExportCombined
	if query.Mode == string(service.ExportZip) {
		exportMode = service.ExportZip
	}

	result, err := h.reports.RenderAssignmentReport(c.Context(), assignmentID, exportMode)
	if err != nil {
		return h.sendReportError(c, err)
	}

	if result.Combined == nil && len(result.Entries) == 0 {
		return utils.SendErrorWithData(c, fiber.StatusUnprocessableEntity,
			"no report could be rendered for this assignment",
			failureReport(assignmentID, result.Failures))
	}

	if len(result.Failures) > 0 {
		c.Set("X-Report-Failures", strconv.Itoa(len(result.Failures)))
	}

	if exportMode == service.ExportZip {
		archiveName := render.SanitizeFilename(result.Assignment.Title) + "_reports.zip"
		setAttachmentHeaders(c, "application/zip", archiveName)
		entries := result.Entries
		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			if err := render.WriteArchive(w, entries); err != nil {
				h.logger.Error().Err(err).Uint("assignment_id", assignmentID).Msg("failed to stream report archive")
			}
		})
		return nil
	}

	return sendDocument(c, *result.Combined)
}

func (h *ReportHandler) sendReportError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrEvaluationNotFound),
		errors.Is(err, service.ErrAssignmentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNoEvaluations):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrReviewRequired):
		return utils.SendError(c, fiber.StatusConflict, "report export requires teacher review first")
	case report.IsDataError(err):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	case render.IsTemplateError(err):
		h.logger.Error().Err(err).Msg("template binding failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "report template is out of sync with the export pipeline")
	default:
		h.logger.Error().Err(err).Msg("report export failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to export report")
	}
}

func parseID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", c.Params("id"))
	}
	return uint(id), nil
}

func sendDocument(c *fiber.Ctx, doc render.Document) error {
	setAttachmentHeaders(c, ContentTypeDocx, doc.Filename)
	return c.Send(doc.Data)
}

// setAttachmentHeaders advertises the download. Filenames carry CJK
// characters, so the RFC 6266 extended parameter form is used.
func setAttachmentHeaders(c *fiber.Ctx, contentType, filename string) {
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename*=UTF-8''%s`, url.PathEscape(filename)))
}

func failureReport(assignmentID uint, failures []service.ItemFailure) dto.BatchFailureReport {
	out := dto.BatchFailureReport{AssignmentID: assignmentID}
	for _, f := range failures {
		out.Failures = append(out.Failures, dto.BatchFailureResponse{
			EssayID:     f.EssayID,
			StudentName: f.StudentName,
			Reason:      f.Err.Error(),
		})
	}
	return out
}
