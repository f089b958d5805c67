package report

import (
	"fmt"
	"strings"
)

// HighlightExampleCap bounds the number of example strings retained per
// issue-kind bucket in the highlight summary.
const HighlightExampleCap = 3

// Severity buckets issue findings for the highlight summary.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// SeverityRules classifies a diagnostic by keyword lookup against its issue
// kind and evidence. The first matching bucket wins, checked high before low;
// anything unmatched is medium.
type SeverityRules struct {
	High []string
	Low  []string
}

// DefaultSeverityRules reflects the categories teachers flag most urgently:
// wrong characters and grammar problems are high, polish-level wording is low.
var DefaultSeverityRules = SeverityRules{
	High: []string{"错别字", "语法", "病句", "离题", "跑题"},
	Low:  []string{"用词", "修辞", "文采", "标点"},
}

// Classify returns the severity bucket for one diagnostic.
func (r SeverityRules) Classify(d Diagnostic) Severity {
	haystack := d.Issue + " " + d.Evidence
	for _, kw := range r.High {
		if kw != "" && strings.Contains(haystack, kw) {
			return SeverityHigh
		}
	}
	for _, kw := range r.Low {
		if kw != "" && strings.Contains(haystack, kw) {
			return SeverityLow
		}
	}
	return SeverityMedium
}

// ScoreTableRow is one rendered dimension of the score table.
type ScoreTableRow struct {
	Name   string
	Score  float64
	Max    float64
	Weight float64
	Reason string
	// ExceedsMax flags score > max. The row is still rendered as-is; this is
	// a display layer, not a validator.
	ExceedsMax bool
}

// ScoreTable groups the dimension rows with the separately surfaced total.
type ScoreTable struct {
	Rows      []ScoreTableRow
	Total     float64
	MaxTotal  float64
	Rationale string
}

// BuildScoreTable derives one row per dimension in the stored order. The total
// and rationale are surfaced separately, never as a synthetic row.
func BuildScoreTable(rec EvaluationRecord) ScoreTable {
	table := ScoreTable{
		Rows:      make([]ScoreTableRow, 0, len(rec.Scores.Rubrics)),
		Total:     rec.Scores.Total,
		Rationale: rec.Scores.Rationale,
	}
	for _, r := range rec.Scores.Rubrics {
		table.MaxTotal += r.Max
		table.Rows = append(table.Rows, ScoreTableRow{
			Name:       r.Name,
			Score:      r.Score,
			Max:        r.Max,
			Weight:     r.Weight,
			Reason:     r.Reason,
			ExceedsMax: r.Score > r.Max,
		})
	}
	return table
}

// HighlightStats counts findings of one issue kind by severity and keeps a
// capped list of example evidence strings.
type HighlightStats struct {
	Low      int
	Medium   int
	High     int
	Examples []string
}

// HighlightSummary aggregates diagnostics by issue kind. Kinds preserves the
// order of first appearance so rendering stays deterministic.
type HighlightSummary struct {
	Kinds  []string
	ByKind map[string]*HighlightStats
}

// BuildHighlightSummary groups diagnostics by issue kind and buckets them by
// severity. A record with zero diagnostics yields an empty but initialized
// summary, never a nil map.
func BuildHighlightSummary(rec EvaluationRecord, rules SeverityRules) HighlightSummary {
	summary := HighlightSummary{
		Kinds:  []string{},
		ByKind: map[string]*HighlightStats{},
	}
	for _, d := range rec.Diagnostics {
		kind := strings.TrimSpace(d.Issue)
		if kind == "" {
			kind = "其他"
		}
		stats, ok := summary.ByKind[kind]
		if !ok {
			stats = &HighlightStats{Examples: []string{}}
			summary.ByKind[kind] = stats
			summary.Kinds = append(summary.Kinds, kind)
		}
		switch rules.Classify(d) {
		case SeverityLow:
			stats.Low++
		case SeverityHigh:
			stats.High++
		default:
			stats.Medium++
		}
		if d.Evidence != "" && len(stats.Examples) < HighlightExampleCap {
			stats.Examples = append(stats.Examples, d.Evidence)
		}
	}
	return summary
}

// ParagraphVM joins an outline entry with the diagnostics and feedback that
// reference its paragraph index. Para is nil for entries appended from
// diagnostics or feedback whose index resolves to no outline entry.
type ParagraphVM struct {
	Para        *int
	Intent      string
	Original    string
	Feedback    string
	Polished    string
	Diagnostics []Diagnostic
}

// MapParagraphs joins the analysis outline with paragraph-level diagnostics
// and feedback by paragraph index, preserving outline order. Diagnostics and
// feedback whose index has no matching outline entry are appended at the end
// with a nil paragraph reference rather than dropped. Whole-essay diagnostics
// (nil index) are excluded; they belong to the feedback summary.
func MapParagraphs(rec EvaluationRecord) []ParagraphVM {
	outlineParas := map[int]bool{}
	for _, item := range rec.Analysis.Outline {
		outlineParas[item.Para] = true
	}

	diagsByPara := map[int][]Diagnostic{}
	for _, d := range rec.Diagnostics {
		if d.Para == nil {
			continue
		}
		diagsByPara[*d.Para] = append(diagsByPara[*d.Para], d)
	}

	feedbackByPara := map[int]ParagraphFeedback{}
	for _, p := range rec.Paragraphs {
		if _, seen := feedbackByPara[p.Para]; !seen {
			feedbackByPara[p.Para] = p
		}
	}

	vms := make([]ParagraphVM, 0, len(rec.Analysis.Outline))
	for _, item := range rec.Analysis.Outline {
		para := item.Para
		vm := ParagraphVM{
			Para:        &para,
			Intent:      item.Intent,
			Diagnostics: diagsByPara[item.Para],
		}
		if fb, ok := feedbackByPara[item.Para]; ok {
			vm.Original = fb.Original
			vm.Feedback = fb.Feedback
			vm.Polished = fb.Polished
		}
		vms = append(vms, vm)
	}

	// Unresolved references are shown without paragraph context, in stored order.
	for _, d := range rec.Diagnostics {
		if d.Para == nil || outlineParas[*d.Para] {
			continue
		}
		vms = append(vms, ParagraphVM{Diagnostics: []Diagnostic{d}})
	}
	for _, p := range rec.Paragraphs {
		if outlineParas[p.Para] {
			continue
		}
		vms = append(vms, ParagraphVM{
			Original: p.Original,
			Feedback: p.Feedback,
			Polished: p.Polished,
		})
	}

	return vms
}

// ExerciseVM is the render-ready form of one exercise.
type ExerciseVM struct {
	Type   string
	Prompt string
	Hints  []string
	Sample string
}

// MapExercises maps exercises one-to-one in stored order. Field-name
// normalization already happened at ingress, so this is a plain projection.
func MapExercises(rec EvaluationRecord) []ExerciseVM {
	vms := make([]ExerciseVM, 0, len(rec.Exercises))
	for _, ex := range rec.Exercises {
		vms = append(vms, ExerciseVM{
			Type:   ex.Type,
			Prompt: ex.Prompt,
			Hints:  ex.Hints,
			Sample: ex.Sample,
		})
	}
	return vms
}

// BuildFeedbackSummary concatenates the overall summary, the general issue
// list and any diagnostics not attached to a specific paragraph into one
// readable block, in that fixed order. Returns "" when all three are empty.
func BuildFeedbackSummary(rec EvaluationRecord) string {
	var parts []string

	if rec.Summary != "" {
		parts = append(parts, "总体评价："+rec.Summary)
	}

	if len(rec.Analysis.Issues) > 0 {
		lines := []string{"主要问题："}
		for _, issue := range rec.Analysis.Issues {
			lines = append(lines, "• "+issue)
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}

	var general []string
	for _, d := range rec.Diagnostics {
		if d.Para != nil {
			continue
		}
		line := "• " + d.Issue
		if len(d.Advice) > 0 {
			line = fmt.Sprintf("• %s：%s", d.Issue, strings.Join(d.Advice, "；"))
		}
		general = append(general, line)
	}
	if len(general) > 0 {
		parts = append(parts, "整体建议：\n"+strings.Join(general, "\n"))
	}

	return strings.Join(parts, "\n\n")
}
