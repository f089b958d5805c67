package report

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// rawEvaluation mirrors the stored evaluation payload. Historical records and
// current ones disagree on a handful of field spellings, so several fields are
// declared twice and coalesced during normalization.
type rawEvaluation struct {
	Meta struct {
		Student      string      `json:"student"`
		StudentID    string      `json:"student_id"`
		StudentNo    string      `json:"student_no"`
		Class        string      `json:"class"`
		ClassLegacy  string      `json:"class_"`
		Teacher      string      `json:"teacher"`
		Topic        string      `json:"topic"`
		Date         string      `json:"date"`
		Grade        string      `json:"grade"`
		Genre        string      `json:"genre"`
		Words        json.Number `json:"words"`
	} `json:"meta"`

	Scores json.RawMessage `json:"scores"`

	Analysis struct {
		Outline []struct {
			Para   int    `json:"para"`
			Intent string `json:"intent"`
		} `json:"outline"`
		Issues []string `json:"issues"`
	} `json:"analysis"`

	Diagnostics []struct {
		Para     *int     `json:"para"`
		Issue    string   `json:"issue"`
		Evidence string   `json:"evidence"`
		Advice   []string `json:"advice"`
	} `json:"diagnostics"`

	Exercises []struct {
		Type   string   `json:"type"`
		Prompt string   `json:"prompt"`
		Hint   []string `json:"hint"`
		Hints  []string `json:"hints"`
		Sample string   `json:"sample"`
	} `json:"exercises"`

	Paragraphs []struct {
		Para     int    `json:"para_num"`
		Original string `json:"original_text"`
		Feedback string `json:"feedback"`
		Polished string `json:"polished_text"`
	} `json:"paragraphs"`

	Text struct {
		Original string `json:"original"`
		Cleaned  string `json:"cleaned"`
	} `json:"text"`

	Summary       string `json:"summary"`
	ParentSummary string `json:"parentSummary"`

	AssignmentTitle     string `json:"assignmentTitle"`
	StudentName         string `json:"studentName"`
	SubmittedAt         string `json:"submittedAt"`
	CurrentEssayContent string `json:"currentEssayContent"`

	ReviewStatus string `json:"review_status"`
	ReviewedBy   string `json:"reviewed_by"`
	ReviewedAt   string `json:"reviewed_at"`
}

type rawRubricScores struct {
	Total     float64 `json:"total"`
	Rationale string  `json:"rationale"`
	Rubrics   []struct {
		Name   string  `json:"name"`
		Score  float64 `json:"score"`
		Max    float64 `json:"max"`
		Weight float64 `json:"weight"`
		Reason string  `json:"reason"`
	} `json:"rubrics"`
}

// legacyDimensions lists the flat score keys of the pre-rubric schema in their
// presentation order, together with the canonical dimension names.
var legacyDimensions = []struct {
	key  string
	name string
}{
	{"content", "内容"},
	{"structure", "结构"},
	{"language", "语言"},
	{"aesthetics", "文采"},
	{"norms", "规范"},
}

const legacyDimensionMax = 20.0

// Normalize maps a stored evaluation payload onto the canonical record.
// It accepts both the current and the legacy schema, fills absent containers
// with empty slices and preserves the stored ordering of paragraphs,
// diagnostics and exercises. It fails only on structurally unrecoverable
// input, reported as a DataError.
func Normalize(raw []byte) (EvaluationRecord, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return EvaluationRecord{}, &DataError{Reason: "empty payload"}
	}

	var re rawEvaluation
	if err := json.Unmarshal(trimmed, &re); err != nil {
		return EvaluationRecord{}, &DataError{Reason: err.Error()}
	}

	scores, err := normalizeScores(re.Scores)
	if err != nil {
		return EvaluationRecord{}, err
	}

	rec := EvaluationRecord{
		AssignmentTitle: re.AssignmentTitle,
		SubmittedAt:     re.SubmittedAt,
		Scores:          scores,
		Diagnostics:     make([]Diagnostic, 0, len(re.Diagnostics)),
		Exercises:       make([]Exercise, 0, len(re.Exercises)),
		Paragraphs:      make([]ParagraphFeedback, 0, len(re.Paragraphs)),
		Summary:         strings.TrimSpace(re.Summary),
		ParentSummary:   strings.TrimSpace(re.ParentSummary),
		ReviewedBy:      re.ReviewedBy,
		ReviewedAt:      re.ReviewedAt,
	}

	rec.Meta = Meta{
		Student:   firstNonEmpty(re.StudentName, re.Meta.Student),
		StudentID: re.Meta.StudentID,
		StudentNo: re.Meta.StudentNo,
		Class:     firstNonEmpty(re.Meta.Class, re.Meta.ClassLegacy),
		Teacher:   re.Meta.Teacher,
		Topic:     re.Meta.Topic,
		Date:      re.Meta.Date,
		Grade:     re.Meta.Grade,
		Genre:     re.Meta.Genre,
		Words:     parseWords(re.Meta.Words),
	}

	rec.Analysis = Analysis{
		Outline: make([]OutlineItem, 0, len(re.Analysis.Outline)),
		Issues:  append([]string{}, re.Analysis.Issues...),
	}
	for _, item := range re.Analysis.Outline {
		rec.Analysis.Outline = append(rec.Analysis.Outline, OutlineItem{Para: item.Para, Intent: item.Intent})
	}

	for _, d := range re.Diagnostics {
		diag := Diagnostic{
			Para:     d.Para,
			Issue:    d.Issue,
			Evidence: d.Evidence,
			Advice:   append([]string{}, d.Advice...),
		}
		rec.Diagnostics = append(rec.Diagnostics, diag)
	}

	for _, ex := range re.Exercises {
		hints := ex.Hints
		if len(hints) == 0 {
			hints = ex.Hint
		}
		rec.Exercises = append(rec.Exercises, Exercise{
			Type:   ex.Type,
			Prompt: ex.Prompt,
			Hints:  append([]string{}, hints...),
			Sample: ex.Sample,
		})
	}

	for _, p := range re.Paragraphs {
		rec.Paragraphs = append(rec.Paragraphs, ParagraphFeedback{
			Para:     p.Para,
			Original: p.Original,
			Feedback: p.Feedback,
			Polished: p.Polished,
		})
	}

	rec.Text = TextBlock{
		Original: re.Text.Original,
		Cleaned:  re.Text.Cleaned,
		Current:  re.CurrentEssayContent,
	}

	rec.ReviewStatus = ReviewStatus(re.ReviewStatus)
	if rec.ReviewStatus == "" {
		rec.ReviewStatus = ReviewStatusAIGenerated
	}

	return rec, nil
}

// normalizeScores accepts either the rubric-based schema or the legacy flat
// per-dimension schema and coalesces both into canonical Scores.
func normalizeScores(raw json.RawMessage) (Scores, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Scores{Rubrics: []Rubric{}}, nil
	}
	if trimmed[0] != '{' {
		return Scores{}, &DataError{Field: "scores", Reason: "not a mapping"}
	}

	var rubricForm rawRubricScores
	if err := json.Unmarshal(trimmed, &rubricForm); err == nil && len(rubricForm.Rubrics) > 0 {
		scores := Scores{
			Total:     rubricForm.Total,
			Rationale: rubricForm.Rationale,
			Rubrics:   make([]Rubric, 0, len(rubricForm.Rubrics)),
		}
		for _, r := range rubricForm.Rubrics {
			weight := r.Weight
			if weight == 0 {
				weight = 1
			}
			scores.Rubrics = append(scores.Rubrics, Rubric{
				Name:   r.Name,
				Score:  r.Score,
				Max:    r.Max,
				Weight: weight,
				Reason: r.Reason,
			})
		}
		return scores, nil
	}

	var flat map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &flat); err != nil {
		return Scores{}, &DataError{Field: "scores", Reason: err.Error()}
	}

	scores := Scores{Rubrics: []Rubric{}}
	for _, dim := range legacyDimensions {
		value, ok := flat[dim.key]
		if !ok {
			continue
		}
		score, err := parseScalar(value)
		if err != nil {
			return Scores{}, &DataError{Field: "scores." + dim.key, Reason: err.Error()}
		}
		scores.Rubrics = append(scores.Rubrics, Rubric{
			Name:   dim.name,
			Score:  score,
			Max:    legacyDimensionMax,
			Weight: 1,
		})
	}
	if total, ok := flat["total"]; ok {
		parsed, err := parseScalar(total)
		if err != nil {
			return Scores{}, &DataError{Field: "scores.total", Reason: err.Error()}
		}
		scores.Total = parsed
	}
	if rationale, ok := flat["rationale"]; ok {
		_ = json.Unmarshal(rationale, &scores.Rationale)
	}

	return scores, nil
}

func parseScalar(raw json.RawMessage) (float64, error) {
	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		// Scores occasionally arrive as quoted numbers in legacy records.
		var s string
		if serr := json.Unmarshal(raw, &s); serr != nil {
			return 0, err
		}
		return strconv.ParseFloat(strings.TrimSpace(s), 64)
	}
	return value, nil
}

func parseWords(n json.Number) int {
	if n == "" {
		return 0
	}
	if v, err := n.Int64(); err == nil {
		return int(v)
	}
	if f, err := n.Float64(); err == nil {
		return int(f)
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
