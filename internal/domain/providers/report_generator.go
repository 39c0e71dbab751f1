package providers

import (
	"context"
	"io"
	"time"

	"github.com/zatekoja/pediatric-clinic/internal/domain/entities"
)

// ReportKind selects the layout of a generated patient document
type ReportKind string

const (
	ReportKindPatient ReportKind = "patient"
	ReportKindHistory ReportKind = "history"
)

// ReportRequest is the snapshot a report is rendered from
type ReportRequest struct {
	Kind        ReportKind
	Patient     *entities.Patient
	Clinic      *entities.ClinicConfig
	GeneratedAt time.Time
}

// ReportGenerator renders patient documents
type ReportGenerator interface {
	// ContentType is the MIME type of the generated documents
	ContentType() string

	// Generate writes the rendered document to w
	Generate(ctx context.Context, req ReportRequest, w io.Writer) error
}
