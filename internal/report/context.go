package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Mode selects the export rendition. It is chosen explicitly by the caller and
// threaded through the pipeline; it is never inferred from field presence.
type Mode string

const (
	// ModeTeacher renders the teacher-finalized essay text exclusively, with
	// no diff markup of any kind.
	ModeTeacher Mode = "teacher"
	// ModeLegacy renders the original text together with the corrected text,
	// separated by diff markers.
	ModeLegacy Mode = "legacy"
)

// Diff markers emitted only by legacy mode. The teacher view excludes them by
// construction, not by filtering.
const (
	DiffOriginalMarker  = "【原文】"
	DiffCorrectedMarker = "【修改】"
)

// DefaultPlaceholder substitutes for any template variable whose source data
// is absent.
const DefaultPlaceholder = "（本项暂无数据）"

// ViewModels bundles the derived views consumed by the context assembler.
type ViewModels struct {
	ScoreTable      ScoreTable
	Highlights      HighlightSummary
	Paragraphs      []ParagraphVM
	Exercises       []ExerciseVM
	FeedbackSummary string
}

// BuildViewModels derives every view the context assembler needs from one record.
func BuildViewModels(rec EvaluationRecord, rules SeverityRules) ViewModels {
	return ViewModels{
		ScoreTable:      BuildScoreTable(rec),
		Highlights:      BuildHighlightSummary(rec, rules),
		Paragraphs:      MapParagraphs(rec),
		Exercises:       MapExercises(rec),
		FeedbackSummary: BuildFeedbackSummary(rec),
	}
}

// TemplateContext is the complete set of variables a report template may
// reference. Fields are statically known so an unpopulated-but-declared
// variable is a compile-time omission, not a runtime key error. List-valued
// sources are flattened into readable text blocks.
type TemplateContext struct {
	AssignmentTitle  string
	StudentName      string
	StudentNo        string
	ClassName        string
	TeacherName      string
	Grade            string
	Genre            string
	Topic            string
	WordCount        string
	SubmittedAt      string
	TotalScore       string
	TotalMaxScore    string
	ScoreRationale   string
	ScoreTable       string
	EssayContent     string
	FeedbackSummary  string
	Outline          string
	Diagnostics      string
	Exercises        string
	Paragraphs       string
	HighlightSummary string
	ReviewStatus     string
	ReviewedBy       string
	ReviewedAt       string
	GeneratedAt      string
	ParentSummary    string
}

// Variables flattens the context into the named-variable mapping bound into
// the template. Every declared variable is always present.
func (c TemplateContext) Variables() map[string]string {
	return map[string]string{
		"assignmentTitle":  c.AssignmentTitle,
		"studentName":      c.StudentName,
		"studentNo":        c.StudentNo,
		"className":        c.ClassName,
		"teacherName":      c.TeacherName,
		"grade":            c.Grade,
		"genre":            c.Genre,
		"topic":            c.Topic,
		"wordCount":        c.WordCount,
		"submittedAt":      c.SubmittedAt,
		"totalScore":       c.TotalScore,
		"totalMaxScore":    c.TotalMaxScore,
		"scoreRationale":   c.ScoreRationale,
		"scoreTable":       c.ScoreTable,
		"essayContent":     c.EssayContent,
		"feedbackSummary":  c.FeedbackSummary,
		"outline":          c.Outline,
		"diagnostics":      c.Diagnostics,
		"exercises":        c.Exercises,
		"paragraphs":       c.Paragraphs,
		"highlightSummary": c.HighlightSummary,
		"reviewStatus":     c.ReviewStatus,
		"reviewedBy":       c.ReviewedBy,
		"reviewedAt":       c.ReviewedAt,
		"generatedAt":      c.GeneratedAt,
		"parentSummary":    c.ParentSummary,
	}
}

// DeclaredVariables returns the names of every template variable the
// assembler populates.
func DeclaredVariables() []string {
	names := make([]string, 0, 26)
	for name := range (TemplateContext{}).Variables() {
		names = append(names, name)
	}
	return names
}

// ContextOptions tunes context assembly.
type ContextOptions struct {
	// Placeholder substitutes for empty variables. Defaults to DefaultPlaceholder.
	Placeholder string
	// Now stamps the generation time. Defaults to time.Now.
	Now time.Time
}

// ToContext flattens the record and its view-models into the template
// context. Any variable whose source data is empty resolves to the configured
// placeholder, never to an absent key; template rendering must not fail on a
// missing key.
func ToContext(rec EvaluationRecord, vms ViewModels, mode Mode, opts ContextOptions) TemplateContext {
	placeholder := opts.Placeholder
	if placeholder == "" {
		placeholder = DefaultPlaceholder
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	orDefault := func(s string) string {
		if strings.TrimSpace(s) == "" {
			return placeholder
		}
		return s
	}

	ctx := TemplateContext{
		AssignmentTitle:  orDefault(firstNonEmpty(rec.AssignmentTitle, rec.Meta.Topic)),
		StudentName:      orDefault(rec.Meta.Student),
		StudentNo:        orDefault(rec.Meta.StudentNo),
		ClassName:        orDefault(rec.Meta.Class),
		TeacherName:      orDefault(rec.Meta.Teacher),
		Grade:            orDefault(rec.Meta.Grade),
		Genre:            orDefault(rec.Meta.Genre),
		Topic:            orDefault(rec.Meta.Topic),
		SubmittedAt:      orDefault(firstNonEmpty(rec.SubmittedAt, rec.Meta.Date)),
		ScoreRationale:   orDefault(vms.ScoreTable.Rationale),
		ScoreTable:       orDefault(flattenScoreTable(vms.ScoreTable)),
		EssayContent:     orDefault(essayContent(rec, mode)),
		FeedbackSummary:  orDefault(vms.FeedbackSummary),
		Outline:          orDefault(flattenOutline(rec.Analysis.Outline)),
		Diagnostics:      orDefault(flattenDiagnostics(rec.Diagnostics)),
		Exercises:        orDefault(flattenExercises(vms.Exercises)),
		Paragraphs:       orDefault(flattenParagraphs(vms.Paragraphs)),
		HighlightSummary: orDefault(flattenHighlights(vms.Highlights)),
		ReviewStatus:     orDefault(string(rec.ReviewStatus)),
		ReviewedBy:       orDefault(rec.ReviewedBy),
		ReviewedAt:       orDefault(rec.ReviewedAt),
		GeneratedAt:      now.Format("2006-01-02 15:04:05"),
		ParentSummary:    orDefault(rec.ParentSummary),
	}

	if rec.Meta.Words > 0 {
		ctx.WordCount = strconv.Itoa(rec.Meta.Words)
	} else {
		ctx.WordCount = placeholder
	}

	// A record with no scores at all has no total to show; a scored record
	// with a zero total still shows "0".
	if len(vms.ScoreTable.Rows) > 0 || vms.ScoreTable.Total > 0 {
		ctx.TotalScore = formatScore(vms.ScoreTable.Total)
	} else {
		ctx.TotalScore = placeholder
	}

	if vms.ScoreTable.MaxTotal > 0 {
		ctx.TotalMaxScore = formatScore(vms.ScoreTable.MaxTotal)
	} else {
		ctx.TotalMaxScore = placeholder
	}

	return ctx
}

// essayContent selects the text body per mode. Teacher mode uses the
// finalized text exclusively; legacy mode shows original against corrected
// with diff markers when they differ.
func essayContent(rec EvaluationRecord, mode Mode) string {
	if mode == ModeTeacher {
		return rec.Text.Current
	}

	original := rec.Text.Original
	cleaned := rec.Text.Cleaned
	if cleaned == "" || cleaned == original {
		return original
	}
	return DiffOriginalMarker + "\n" + original + "\n" + DiffCorrectedMarker + "\n" + cleaned
}

func flattenScoreTable(table ScoreTable) string {
	if len(table.Rows) == 0 {
		return ""
	}
	lines := make([]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		line := fmt.Sprintf("%s：%s / %s（权重%s）", row.Name, formatScore(row.Score), formatScore(row.Max), formatScore(row.Weight))
		if row.Reason != "" {
			line += "｜" + row.Reason
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func flattenOutline(outline []OutlineItem) string {
	if len(outline) == 0 {
		return ""
	}
	lines := make([]string, 0, len(outline))
	for _, item := range outline {
		lines = append(lines, fmt.Sprintf("第%d段：%s", item.Para, item.Intent))
	}
	return strings.Join(lines, "\n")
}

func flattenDiagnostics(diags []Diagnostic) string {
	if len(diags) == 0 {
		return ""
	}
	lines := make([]string, 0, len(diags))
	for _, d := range diags {
		scope := "全文"
		if d.Para != nil {
			scope = fmt.Sprintf("第%d段", *d.Para)
		}
		line := fmt.Sprintf("%s｜%s｜证据：%s", scope, d.Issue, d.Evidence)
		if len(d.Advice) > 0 {
			line += "｜建议：" + strings.Join(d.Advice, "；")
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func flattenExercises(exercises []ExerciseVM) string {
	if len(exercises) == 0 {
		return ""
	}
	blocks := make([]string, 0, len(exercises))
	for _, ex := range exercises {
		lines := []string{fmt.Sprintf("[%s] %s", ex.Type, ex.Prompt)}
		if len(ex.Hints) > 0 {
			lines = append(lines, "要点："+strings.Join(ex.Hints, "；"))
		}
		if ex.Sample != "" {
			lines = append(lines, "示例："+ex.Sample)
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

func flattenParagraphs(paragraphs []ParagraphVM) string {
	if len(paragraphs) == 0 {
		return ""
	}
	blocks := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		var lines []string
		if p.Para != nil {
			lines = append(lines, fmt.Sprintf("第%d段", *p.Para))
		} else {
			lines = append(lines, "（未定位段落）")
		}
		if p.Intent != "" {
			lines = append(lines, "意图："+p.Intent)
		}
		if p.Original != "" {
			lines = append(lines, "原文："+p.Original)
		}
		if p.Feedback != "" {
			lines = append(lines, "反馈："+p.Feedback)
		}
		if p.Polished != "" {
			lines = append(lines, "优化："+p.Polished)
		}
		for _, d := range p.Diagnostics {
			line := "问题：" + d.Issue
			if d.Evidence != "" {
				line += "（" + d.Evidence + "）"
			}
			if len(d.Advice) > 0 {
				line += " 建议：" + strings.Join(d.Advice, "；")
			}
			lines = append(lines, line)
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

func flattenHighlights(summary HighlightSummary) string {
	if len(summary.Kinds) == 0 {
		return ""
	}
	lines := make([]string, 0, len(summary.Kinds))
	for _, kind := range summary.Kinds {
		stats := summary.ByKind[kind]
		line := fmt.Sprintf("%s：低%d 中%d 高%d", kind, stats.Low, stats.Medium, stats.High)
		if len(stats.Examples) > 0 {
			line += "｜示例：" + strings.Join(stats.Examples, "，")
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
