package models

import "time"

// ReportFormat enumerates the rendered class report formats.
type ReportFormat string

const (
	ReportFormatPDF ReportFormat = "pdf"
	ReportFormatCSV ReportFormat = "csv"
)

// ContentType returns the MIME type served for the format.
func (f ReportFormat) ContentType() string {
	switch f {
	case ReportFormatCSV:
		return "text/csv; charset=utf-8"
	default:
		return "application/pdf"
	}
}

// ExportResult describes a stored report and its signed download link.
type ExportResult struct {
	Token     string       `json:"token"`
	URL       string       `json:"url"`
	Filename  string       `json:"filename"`
	Format    ReportFormat `json:"format"`
	ExpiresAt time.Time    `json:"expires_at"`
}
