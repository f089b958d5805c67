package handler_test

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/wenzhi-edu/report-api/internal/handler"
	"github.com/wenzhi-edu/report-api/internal/models"
	"github.com/wenzhi-edu/report-api/internal/render"
	"github.com/wenzhi-edu/report-api/internal/report"
	"github.com/wenzhi-edu/report-api/internal/service"
)

type mockReportService struct {
	lastEssayID      uint
	lastMode         report.Mode
	lastAssignmentID uint
	lastExportMode   service.ExportMode

	doc       render.Document
	docErr    error
	result    *service.AssignmentReport
	resultErr error
}

func (m *mockReportService) RenderEssayReport(_ context.Context, essayID uint, mode report.Mode) (render.Document, error) {
	m.lastEssayID = essayID
	m.lastMode = mode
	return m.doc, m.docErr
}

func (m *mockReportService) RenderAssignmentReport(_ context.Context, assignmentID uint, exportMode service.ExportMode) (*service.AssignmentReport, error) {
	m.lastAssignmentID = assignmentID
	m.lastExportMode = exportMode
	return m.result, m.resultErr
}

func newTestApp(svc service.ReportService) *fiber.App {
	app := fiber.New()
	validate := validator.New(validator.WithRequiredStructEnabled())
	group := app.Group("/api/v1")
	handler.NewReportHandler(svc, validate, zerolog.New(io.Discard)).Register(group)
	return app
}

func TestExportEssayReport(t *testing.T) {
	svc := &mockReportService{doc: render.Document{
		Filename: "张三_我的乐园_2025-04-01.docx",
		Data:     []byte("document-bytes"),
	}}
	app := newTestApp(svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/essays/11/report", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.Equal(t, handler.ContentTypeDocx, resp.Header.Get(fiber.HeaderContentType))
	require.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "attachment")
	require.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "filename*=UTF-8''")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, []byte("document-bytes"), body)

	require.Equal(t, uint(11), svc.lastEssayID)
	require.Equal(t, report.ModeTeacher, svc.lastMode)
}

func TestExportEssayReportLegacyView(t *testing.T) {
	svc := &mockReportService{doc: render.Document{Filename: "a.docx", Data: []byte("x")}}
	app := newTestApp(svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/essays/11/report?view=legacy", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, report.ModeLegacy, svc.lastMode)
}

func TestExportEssayReportInvalidView(t *testing.T) {
	app := newTestApp(&mockReportService{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/essays/11/report?view=verbose", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestExportEssayReportInvalidID(t *testing.T) {
	app := newTestApp(&mockReportService{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/essays/abc/report", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestExportEssayReportErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not found", service.ErrEvaluationNotFound, fiber.StatusNotFound},
		{"review required", service.ErrReviewRequired, fiber.StatusConflict},
		{"bad payload", &report.DataError{Field: "scores", Reason: "not a mapping"}, fiber.StatusUnprocessableEntity},
		{"template drift", &render.TemplateError{Path: "x", Unbound: []string{"extra"}}, fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(&mockReportService{docErr: tc.err})

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/essays/11/report", nil))
			require.NoError(t, err)
			require.Equal(t, tc.wantStatus, resp.StatusCode)
		})
	}
}

func TestExportAssignmentReportCombined(t *testing.T) {
	svc := &mockReportService{result: &service.AssignmentReport{
		Assignment: models.Assignment{ID: 7, Title: "我的乐园"},
		Combined:   &render.Document{Filename: "班级_我的乐园_2025-04-01.docx", Data: []byte("combined")},
	}}
	app := newTestApp(svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/assignments/7/report", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, handler.ContentTypeDocx, resp.Header.Get(fiber.HeaderContentType))
	require.Empty(t, resp.Header.Get("X-Report-Failures"))

	require.Equal(t, uint(7), svc.lastAssignmentID)
	require.Equal(t, service.ExportCombined, svc.lastExportMode)
}

func TestExportAssignmentReportZip(t *testing.T) {
	svc := &mockReportService{result: &service.AssignmentReport{
		Assignment: models.Assignment{ID: 7, Title: "我的乐园"},
		Entries: []render.ArchiveEntry{
			{Name: "张三.docx", Data: []byte("a")},
			{Name: "李四.docx", Data: []byte("b")},
		},
		Failures: []service.ItemFailure{
			{EssayID: 3, StudentName: "王五", Err: &report.DataError{Reason: "empty payload"}},
		},
	}}
	app := newTestApp(svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/assignments/7/report?mode=zip", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "application/zip", resp.Header.Get(fiber.HeaderContentType))
	require.Equal(t, "1", resp.Header.Get("X-Report-Failures"))
	require.Equal(t, service.ExportZip, svc.lastExportMode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	require.Equal(t, "张三.docx", zr.File[0].Name)
}

func TestExportAssignmentReportAllItemsFailed(t *testing.T) {
	svc := &mockReportService{result: &service.AssignmentReport{
		Assignment: models.Assignment{ID: 7, Title: "我的乐园"},
		Failures: []service.ItemFailure{
			{EssayID: 1, StudentName: "张三", Err: &report.DataError{Reason: "empty payload"}},
		},
	}}
	app := newTestApp(svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/assignments/7/report", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "张三")
	require.Contains(t, string(body), "empty payload")
}

func TestExportAssignmentReportInvalidMode(t *testing.T) {
	app := newTestApp(&mockReportService{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/assignments/7/report?mode=tar", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestExportAssignmentReportNotFound(t *testing.T) {
	app := newTestApp(&mockReportService{resultErr: service.ErrAssignmentNotFound})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/assignments/7/report", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
