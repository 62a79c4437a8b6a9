package domain

import "time"

// ReportID identifies an interview report
type ReportID string

// Rating is the overall outcome the reporter assigns to an interview
type Rating string

const (
	RatingStrong   Rating = "strong"
	RatingMixed    Rating = "mixed"
	RatingWeak     Rating = "weak"
	RatingUnscored Rating = "unscored"
)

// Report is the performance report offered to the candidate when an
// interview ends.
type Report struct {
	ID            ReportID      `json:"id"`
	Room          RoomName      `json:"room"`
	InterviewType InterviewType `json:"type"`
	CreatedAt     time.Time     `json:"created_at"`

	// Assessment is the assessor's notes on the transcript.
	Assessment string `json:"assessment"`

	// Summary is the candidate-facing report text.
	Summary string `json:"summary"`
	Rating  Rating `json:"rating"`

	// Number of transcript items the report was built from
	Items int `json:"items"`
}

// ReportStore keeps generated reports
type ReportStore interface {
	AppendReport(report *Report) error
	ListReportsByRoom(room RoomName, limit int) ([]*Report, error)
}
