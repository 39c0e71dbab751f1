// Package report renders patient documents as PDF.
package report

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/go-pdf/fpdf"
	"github.com/zatekoja/pediatric-clinic/internal/domain/entities"
	"github.com/zatekoja/pediatric-clinic/internal/domain/providers"
	"github.com/zatekoja/pediatric-clinic/internal/domain/visit"
)

const (
	pageMargin  = 15.0
	labelWidth  = 55.0
	valueWidth  = 125.0
	rowHeight   = 8.0
	notProvided = "Not provided"
)

// PDFGenerator implements providers.ReportGenerator with fpdf
type PDFGenerator struct {
	compress bool
}

// NewPDFGenerator creates a PDF report generator
func NewPDFGenerator() *PDFGenerator {
	return &PDFGenerator{compress: true}
}

// WithoutCompression leaves page streams readable, which tests rely on
func (g *PDFGenerator) WithoutCompression() *PDFGenerator {
	return &PDFGenerator{compress: false}
}

var _ providers.ReportGenerator = (*PDFGenerator)(nil)

// ContentType implements providers.ReportGenerator
func (g *PDFGenerator) ContentType() string {
	return "application/pdf"
}

// Generate writes the report for req to w
func (g *PDFGenerator) Generate(ctx context.Context, req providers.ReportRequest, w io.Writer) error {
	if req.Patient == nil {
		return fmt.Errorf("report requires a patient")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	clinic := req.Clinic
	if clinic == nil {
		clinic = entities.NewDefaultClinicConfig("", req.GeneratedAt)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(g.compress)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetCreator(clinic.ClinicName, true)
	pdf.SetTitle(reportTitle(req.Kind), true)

	r := &renderer{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		r.font("I", 8)
		r.pdf.CellFormat(0, 10, r.tr(fmt.Sprintf("%s - generated on %s - page %d",
			clinic.ClinicName, req.GeneratedAt.Format("2006-01-02 15:04"), pdf.PageNo())), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	r.header(clinic, reportTitle(req.Kind))
	r.patientInfo(req.Patient, req.GeneratedAt)
	r.section("Known Allergies", allergiesText(req.Patient.Allergies))
	r.section("Medical History", textOr(req.Patient.MedicalHistory, "No medical history recorded"))
	r.section("Doctor's Comments", textOr(req.Patient.DoctorComments, "No comments"))
	r.visitStatus(req.Patient)
	if req.Kind == providers.ReportKindHistory {
		r.visitHistory(req.Patient)
	}

	if pdf.Err() {
		return fmt.Errorf("failed to render report: %w", pdf.Error())
	}
	return pdf.Output(w)
}

type renderer struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func (r *renderer) font(style string, size float64) {
	r.pdf.SetFont("Helvetica", style, size)
}

func (r *renderer) header(clinic *entities.ClinicConfig, title string) {
	r.font("B", 16)
	r.pdf.CellFormat(0, 10, r.tr(clinic.ClinicName), "", 1, "C", false, 0, "")
	r.font("", 11)
	r.pdf.CellFormat(0, 6, r.tr(clinic.DoctorName), "", 1, "C", false, 0, "")
	contact := clinic.ClinicPhone
	if clinic.ClinicAddress != "" {
		contact += " | " + clinic.ClinicAddress
	}
	r.pdf.CellFormat(0, 6, r.tr(contact), "", 1, "C", false, 0, "")
	r.pdf.Ln(6)
	r.font("B", 14)
	r.pdf.CellFormat(0, 10, r.tr(title), "", 1, "C", false, 0, "")
	r.pdf.Ln(4)
}

func (r *renderer) patientInfo(p *entities.Patient, now time.Time) {
	r.heading("Patient Information")
	rows := [][2]string{
		{"Patient ID", p.ID},
		{"Full Name", p.FullName()},
		{"Date of Birth", p.DateOfBirth.Format("2006-01-02")},
		{"Age", fmt.Sprintf("%d years", visit.AgeInYears(p.DateOfBirth, now))},
		{"Gender", titleCase(p.Gender)},
		{"Parent/Guardian", p.ParentName},
		{"Phone", p.Phone},
		{"Patient Phone", textOr(p.PatientPhone, notProvided)},
		{"Address", orDefault(p.FullAddress(), notProvided)},
		{"Visit Type", visitTypeText(p.VisitType)},
		{"Visit Date/Time", visitTimeText(p.VisitDateTime, now.Location())},
		{"Blood Type", orDefault(p.BloodType, notProvided)},
	}

	r.pdf.SetFillColor(240, 240, 240)
	for _, row := range rows {
		r.font("B", 10)
		r.pdf.CellFormat(labelWidth, rowHeight, r.tr(row[0]), "1", 0, "L", true, 0, "")
		r.font("", 10)
		r.pdf.CellFormat(valueWidth, rowHeight, r.tr(row[1]), "1", 1, "L", false, 0, "")
	}
	r.pdf.Ln(4)
}

func (r *renderer) section(title, body string) {
	r.heading(title)
	r.font("", 10)
	r.pdf.MultiCell(0, 6, r.tr(body), "", "L", false)
	r.pdf.Ln(3)
}

func (r *renderer) visitStatus(p *entities.Patient) {
	r.heading("Visit Status")
	r.font("", 10)
	r.pdf.CellFormat(0, 6, r.tr("Status: "+titleCase(strings.ReplaceAll(string(p.Status), "_", " "))), "", 1, "L", false, 0, "")
	r.pdf.CellFormat(0, 6, r.tr("Hall Status: "+string(p.HallStatus)), "", 1, "L", false, 0, "")
	r.pdf.Ln(3)
}

func (r *renderer) visitHistory(p *entities.Patient) {
	r.heading("Visit History")
	r.font("", 10)
	if p.VisitDateTime == nil {
		r.pdf.CellFormat(0, 6, "No visits recorded", "", 1, "L", false, 0, "")
		return
	}
	r.font("B", 10)
	r.pdf.CellFormat(60, rowHeight, "Date/Time", "1", 0, "L", true, 0, "")
	r.pdf.CellFormat(60, rowHeight, "Visit Type", "1", 0, "L", true, 0, "")
	r.pdf.CellFormat(60, rowHeight, "Status", "1", 1, "L", true, 0, "")
	r.font("", 10)
	r.pdf.CellFormat(60, rowHeight, r.tr(p.VisitDateTime.Format("2006-01-02 15:04")), "1", 0, "L", false, 0, "")
	r.pdf.CellFormat(60, rowHeight, r.tr(visitTypeText(p.VisitType)), "1", 0, "L", false, 0, "")
	r.pdf.CellFormat(60, rowHeight, r.tr(titleCase(strings.ReplaceAll(string(p.Status), "_", " "))), "1", 1, "L", false, 0, "")
}

func (r *renderer) heading(title string) {
	r.font("B", 12)
	r.pdf.CellFormat(0, 8, r.tr(title), "B", 1, "L", false, 0, "")
	r.pdf.Ln(2)
}

func reportTitle(kind providers.ReportKind) string {
	if kind == providers.ReportKindHistory {
		return "Patient History Report"
	}
	return "Patient Medical Report"
}

func allergiesText(raw *string) string {
	a := visit.DecodeAllergies(raw)
	if a.IsList && len(a.List) == 0 || !a.IsList && strings.TrimSpace(a.Text) == "" {
		return "No known allergies"
	}
	return a.String()
}

func visitTypeText(vt *entities.VisitType) string {
	if vt == nil {
		return notProvided
	}
	return titleCase(string(*vt))
}

func visitTimeText(t *time.Time, loc *time.Location) string {
	if t == nil {
		return "Not scheduled"
	}
	return t.In(loc).Format("2006-01-02 15:04")
}

func textOr(s *string, fallback string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return fallback
	}
	return *s
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// titleCase upper-cases the first letter of every word
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
