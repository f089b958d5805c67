package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/wenzhi-edu/report-api/internal/models"
	"github.com/wenzhi-edu/report-api/internal/observability"
	"github.com/wenzhi-edu/report-api/internal/render"
	"github.com/wenzhi-edu/report-api/internal/report"
	"github.com/wenzhi-edu/report-api/internal/repository"
)

// ErrEvaluationNotFound indicates no evaluation is stored for the essay.
var ErrEvaluationNotFound = errors.New("evaluation not found")

// ErrAssignmentNotFound indicates the assignment was not located.
var ErrAssignmentNotFound = errors.New("assignment not found")

// ErrNoEvaluations indicates an assignment export found nothing to render.
var ErrNoEvaluations = errors.New("assignment has no stored evaluations")

// ErrReviewRequired indicates an export was attempted on unreviewed content
// while the review policy forbids it. Callers surface this with a distinct
// status so the client can present a clear warning.
var ErrReviewRequired = errors.New("evaluation has not been reviewed by a teacher")

// ExportMode selects how an assignment export is packaged.
type ExportMode string

const (
	// ExportCombined composes every student report into one document.
	ExportCombined ExportMode = "combined"
	// ExportZip packages each student report as a separate archive entry.
	ExportZip ExportMode = "zip"
)

// ItemFailure records one student report that could not be rendered during a
// batch export. The remaining items are unaffected.
type ItemFailure struct {
	EssayID     uint
	StudentName string
	Err         error
}

// AssignmentReport is the outcome of a batch export: the packaged successes
// plus the per-item failures. A non-empty failure list with a non-empty
// result is a partial success, not an error.
type AssignmentReport struct {
	Assignment models.Assignment
	// Combined holds the composed document in combined mode.
	Combined *render.Document
	// Entries holds the per-student archive entries in zip mode, in input order.
	Entries []render.ArchiveEntry
	// Failures lists the items that could not be rendered, in input order.
	Failures []ItemFailure
}

// Options tunes the report pipeline.
type Options struct {
	// Placeholder substitutes for template variables without data.
	Placeholder string
	// Concurrency bounds the parallel per-student render fan-out.
	Concurrency int
	// RequireReview refuses exports of evaluations no teacher has reviewed.
	RequireReview bool
	// SeverityRules classifies diagnostics for the highlight summary.
	// Defaults to report.DefaultSeverityRules.
	SeverityRules *report.SeverityRules
}

// ReportService renders evaluation records into export documents.
type ReportService interface {
	RenderEssayReport(ctx context.Context, essayID uint, mode report.Mode) (render.Document, error)
	RenderAssignmentReport(ctx context.Context, assignmentID uint, exportMode ExportMode) (*AssignmentReport, error)
}

type reportService struct {
	evaluations   repository.EvaluationRepository
	assignments   repository.AssignmentRepository
	renderer      *render.Renderer
	placeholder   string
	concurrency   int
	requireReview bool
	severityRules report.SeverityRules
	logger        zerolog.Logger
	now           func() time.Time
}

// NewReportService constructs the report service.
func NewReportService(
	evaluations repository.EvaluationRepository,
	assignments repository.AssignmentRepository,
	renderer *render.Renderer,
	opts Options,
	logger zerolog.Logger,
) ReportService {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	rules := report.DefaultSeverityRules
	if opts.SeverityRules != nil {
		rules = *opts.SeverityRules
	}

	return &reportService{
		evaluations:   evaluations,
		assignments:   assignments,
		renderer:      renderer,
		placeholder:   opts.Placeholder,
		concurrency:   concurrency,
		requireReview: opts.RequireReview,
		severityRules: rules,
		logger:        logger.With().Str("component", "report_service").Logger(),
		now:           time.Now,
	}
}

// RenderEssayReport renders one essay evaluation into a document.
func (s *reportService) RenderEssayReport(ctx context.Context, essayID uint, mode report.Mode) (render.Document, error) {
	evaluation, err := s.evaluations.GetByEssayID(ctx, essayID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return render.Document{}, ErrEvaluationNotFound
		}
		return render.Document{}, err
	}

	if s.requireReview && !evaluation.IsReviewed() {
		return render.Document{}, ErrReviewRequired
	}

	start := s.now()
	doc, err := s.renderOne(evaluation, mode)
	if err != nil {
		observability.RenderFailures().WithLabelValues("essay", errorCategory(err)).Inc()
		return render.Document{}, err
	}
	observability.ReportRenders().WithLabelValues("essay").Inc()
	observability.RenderLatency().WithLabelValues("essay").Observe(time.Since(start).Seconds())

	s.logger.Info().
		Uint("essay_id", essayID).
		Str("mode", string(mode)).
		Str("filename", doc.Filename).
		Msg("rendered essay report")

	return doc, nil
}

// RenderAssignmentReport renders every evaluation of an assignment and
// packages the results per the export mode. Items render in parallel bounded
// by the configured concurrency; output order follows input order regardless
// of completion order. Cancelling ctx stops launching new renders but lets
// in-flight ones complete; already rendered items are returned alongside the
// failures instead of being discarded.
func (s *reportService) RenderAssignmentReport(ctx context.Context, assignmentID uint, exportMode ExportMode) (*AssignmentReport, error) {
	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, err
	}

	evaluations, err := s.evaluations.ListByAssignmentID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if len(evaluations) == 0 {
		return nil, ErrNoEvaluations
	}

	start := s.now()
	docs, failures := s.renderAll(ctx, evaluations)

	result := &AssignmentReport{Assignment: assignment, Failures: failures}
	if len(docs) == 0 {
		return result, nil
	}

	switch exportMode {
	case ExportZip:
		result.Entries = archiveEntries(docs)
	default:
		combined, err := render.Compose(render.Cover{
			AssignmentTitle: assignment.Title,
			ClassName:       assignment.ClassName,
			TeacherName:     assignment.TeacherName,
			ItemCount:       len(docs),
			GeneratedAt:     s.now(),
		}, documentData(docs))
		if err != nil {
			observability.RenderFailures().WithLabelValues("assignment", errorCategory(err)).Inc()
			return nil, fmt.Errorf("compose assignment report: %w", err)
		}
		result.Combined = &render.Document{
			Filename: render.ReportFilename(assignment.ClassName, assignment.Title, s.now().Format("2006-01-02")),
			Data:     combined,
		}
	}

	observability.ReportRenders().WithLabelValues("assignment").Inc()
	observability.RenderLatency().WithLabelValues("assignment").Observe(time.Since(start).Seconds())

	s.logger.Info().
		Uint("assignment_id", assignmentID).
		Str("mode", string(exportMode)).
		Int("rendered", len(docs)).
		Int("failed", len(failures)).
		Msg("rendered assignment report")

	return result, nil
}

// renderAll fans the per-student renders out over a bounded worker group.
// Results are collected into index-addressed slots so output order matches
// input order regardless of completion order.
func (s *reportService) renderAll(ctx context.Context, evaluations []models.Evaluation) ([]render.Document, []ItemFailure) {
	docs := make([]*render.Document, len(evaluations))
	errs := make([]error, len(evaluations))

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i, evaluation := range evaluations {
		if ctx.Err() != nil {
			errs[i] = ctx.Err()
			continue
		}

		g.Go(func() error {
			if ctx.Err() != nil {
				errs[i] = ctx.Err()
				return nil
			}
			if s.requireReview && !evaluation.IsReviewed() {
				errs[i] = ErrReviewRequired
				return nil
			}
			doc, err := s.renderOne(evaluation, report.ModeTeacher)
			if err != nil {
				errs[i] = err
				return nil
			}
			docs[i] = &doc
			return nil
		})
	}
	_ = g.Wait()

	var rendered []render.Document
	var failures []ItemFailure
	for i, evaluation := range evaluations {
		if errs[i] != nil {
			s.logger.Warn().
				Err(errs[i]).
				Uint("essay_id", evaluation.EssayID).
				Str("student", evaluation.StudentName).
				Msg("failed to render student report")
			observability.RenderFailures().WithLabelValues("essay", errorCategory(errs[i])).Inc()
			failures = append(failures, ItemFailure{
				EssayID:     evaluation.EssayID,
				StudentName: evaluation.StudentName,
				Err:         errs[i],
			})
			continue
		}
		rendered = append(rendered, *docs[i])
	}

	return rendered, failures
}

// renderOne runs the full pipeline for one stored evaluation:
// normalize, derive view-models, assemble the context, bind the template.
func (s *reportService) renderOne(evaluation models.Evaluation, mode report.Mode) (render.Document, error) {
	rec, err := report.Normalize(evaluation.Payload)
	if err != nil {
		return render.Document{}, err
	}
	s.applyRow(&rec, evaluation)

	vms := report.BuildViewModels(rec, s.severityRules)
	ctx := report.ToContext(rec, vms, mode, report.ContextOptions{
		Placeholder: s.placeholder,
		Now:         s.now(),
	})

	data, err := s.renderer.RenderSingle(ctx.Variables())
	if err != nil {
		return render.Document{}, err
	}

	date := rec.Meta.Date
	if date == "" {
		date = s.now().Format("2006-01-02")
	}
	title := rec.AssignmentTitle
	if title == "" {
		title = rec.Meta.Topic
	}

	return render.Document{
		Filename: render.ReportFilename(rec.Meta.Student, title, date),
		Data:     data,
	}, nil
}

// applyRow overlays row-level columns onto the normalized record. The review
// workflow columns are authoritative; payload copies may be stale.
func (s *reportService) applyRow(rec *report.EvaluationRecord, evaluation models.Evaluation) {
	rec.EssayID = evaluation.EssayID
	rec.AssignmentID = evaluation.AssignmentID
	if rec.Meta.Student == "" {
		rec.Meta.Student = evaluation.StudentName
	}
	if rec.Meta.StudentNo == "" {
		rec.Meta.StudentNo = evaluation.StudentNo
	}
	rec.ReviewStatus = report.ReviewStatus(evaluation.ReviewStatus)
	if evaluation.ReviewedBy != nil {
		rec.ReviewedBy = strconv.FormatUint(uint64(*evaluation.ReviewedBy), 10)
	}
	if evaluation.ReviewedAt != nil {
		rec.ReviewedAt = evaluation.ReviewedAt.Format("2006-01-02 15:04:05")
	}
}

// archiveEntries names each document, deduplicating collisions by suffixing a
// counter so every archive entry stays addressable. The counter advances past
// names already taken, including stored filenames that happen to carry a
// suffix shape themselves.
func archiveEntries(docs []render.Document) []render.ArchiveEntry {
	entries := make([]render.ArchiveEntry, 0, len(docs))
	used := map[string]bool{}
	for _, doc := range docs {
		name := doc.Filename
		base := strings.TrimSuffix(name, ".docx")
		for n := 2; used[name]; n++ {
			name = fmt.Sprintf("%s_%d.docx", base, n)
		}
		used[name] = true
		entries = append(entries, render.ArchiveEntry{Name: name, Data: doc.Data})
	}
	return entries
}

func documentData(docs []render.Document) [][]byte {
	data := make([][]byte, 0, len(docs))
	for _, doc := range docs {
		data = append(data, doc.Data)
	}
	return data
}

func errorCategory(err error) string {
	switch {
	case errors.Is(err, ErrReviewRequired):
		return "review"
	case report.IsDataError(err):
		return "data"
	case render.IsTemplateError(err):
		return "template"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}
