package report

// ReviewStatus tracks how far an evaluation has progressed through teacher review.
type ReviewStatus string

const (
	// ReviewStatusAIGenerated marks an evaluation produced by the grading pipeline
	// that no teacher has looked at yet.
	ReviewStatusAIGenerated ReviewStatus = "ai_generated"
	// ReviewStatusTeacherReviewed marks an evaluation a teacher has inspected and amended.
	ReviewStatusTeacherReviewed ReviewStatus = "teacher_reviewed"
	// ReviewStatusFinalized marks an evaluation the teacher has signed off for export.
	ReviewStatusFinalized ReviewStatus = "finalized"
)

// Reviewed reports whether the status counts as teacher-approved for export purposes.
func (s ReviewStatus) Reviewed() bool {
	return s == ReviewStatusTeacherReviewed || s == ReviewStatusFinalized
}

// Meta carries essay metadata extracted during grading.
type Meta struct {
	Student   string
	StudentID string
	StudentNo string
	Class     string
	Teacher   string
	Topic     string
	Date      string
	Grade     string
	Genre     string
	Words     int
}

// Rubric is one scoring dimension with its awarded and maximum score.
type Rubric struct {
	Name   string
	Score  float64
	Max    float64
	Weight float64
	Reason string
}

// Scores groups the per-dimension rubrics with the overall result.
type Scores struct {
	Total     float64
	Rationale string
	Rubrics   []Rubric
}

// OutlineItem describes the writing intent of one paragraph.
type OutlineItem struct {
	Para   int
	Intent string
}

// Analysis holds the structural analysis of the essay.
type Analysis struct {
	Outline []OutlineItem
	Issues  []string
}

// Diagnostic is a single issue finding. Para is nil for whole-essay findings.
type Diagnostic struct {
	Para     *int
	Issue    string
	Evidence string
	Advice   []string
}

// Exercise is a personalized follow-up writing exercise.
type Exercise struct {
	Type   string
	Prompt string
	Hints  []string
	Sample string
}

// ParagraphFeedback carries per-paragraph commentary and the polished rewrite.
type ParagraphFeedback struct {
	Para     int
	Original string
	Feedback string
	Polished string
}

// TextBlock holds the essay text in its different states. Current is the
// teacher-finalized text used exclusively by the teacher view.
type TextBlock struct {
	Original string
	Cleaned  string
	Current  string
}

// EvaluationRecord is the canonical, normalized form of one stored evaluation.
// Every slice field is non-nil after normalization; ordering of paragraphs,
// diagnostics and exercises is preserved exactly as stored.
type EvaluationRecord struct {
	EssayID         uint
	AssignmentID    uint
	AssignmentTitle string
	SubmittedAt     string

	Meta        Meta
	Scores      Scores
	Analysis    Analysis
	Diagnostics []Diagnostic
	Exercises   []Exercise
	Paragraphs  []ParagraphFeedback
	Text        TextBlock

	Summary       string
	ParentSummary string

	ReviewStatus ReviewStatus
	ReviewedBy   string
	ReviewedAt   string
}
