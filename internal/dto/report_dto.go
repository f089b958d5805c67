package dto

import "github.com/wenzhi-edu/report-api/internal/report"

// EssayReportQuery describes query string options for single-essay export.
type EssayReportQuery struct {
	View string `query:"view" validate:"omitempty,oneof=teacher legacy"`
}

// ReportMode maps the query value onto the pipeline mode. Teacher view is the
// default rendition.
func (q EssayReportQuery) ReportMode() report.Mode {
	if q.View == string(report.ModeLegacy) {
		return report.ModeLegacy
	}
	return report.ModeTeacher
}

// AssignmentReportQuery describes query string options for assignment export.
type AssignmentReportQuery struct {
	Mode string `query:"mode" validate:"omitempty,oneof=combined zip"`
}

// BatchFailureResponse serializes one failed item of a batch export.
type BatchFailureResponse struct {
	EssayID     uint   `json:"essay_id"`
	StudentName string `json:"student_name"`
	Reason      string `json:"reason"`
}

// BatchFailureReport is returned when a batch export could not produce any
// document at all; partial failures travel in a response header instead.
type BatchFailureReport struct {
	AssignmentID uint                   `json:"assignment_id"`
	Failures     []BatchFailureResponse `json:"failures"`
}
