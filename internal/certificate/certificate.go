// Package certificate renders donation certificates as HTML pages or PDF documents.
package certificate

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"
)

type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
)

var ErrUnsupportedFormat = errors.New("unsupported certificate format")

// ParseFormat accepts "html" or "pdf", case insensitive. Empty means html.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatHTML:
		return FormatHTML, nil
	case FormatPDF:
		return FormatPDF, nil
	}
	return "", ErrUnsupportedFormat
}

// Data is everything printed on a certificate.
type Data struct {
	CertificateID string
	DonorName     string
	BloodGroup    string
	Quantity      float64
	DonationDate  time.Time
	HospitalName  string
	HospitalCity  string
	IssuedAt      time.Time
	// VerifyURL is encoded into the QR code when set.
	VerifyURL string
}

type Renderer interface {
	Render(data Data, format Format) ([]byte, string, error)
}

type renderer struct {
	issuer string
}

// NewRenderer issuer is printed in the footer.
func NewRenderer(issuer string) Renderer {
	return &renderer{issuer: issuer}
}

func (r *renderer) Render(data Data, format Format) ([]byte, string, error) {
	switch format {
	case FormatHTML:
		body, err := r.renderHTML(data)
		return body, "text/html; charset=utf-8", err
	case FormatPDF:
		body, err := r.renderPDF(data)
		return body, "application/pdf", err
	}
	return nil, "", ErrUnsupportedFormat
}

// Filename suggested download name for a certificate.
func Filename(certificateID string, format Format) string {
	return fmt.Sprintf("%s.%s", certificateID, format)
}

func quantityText(q float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", q), "0"), ".")
}

var htmlTemplate = template.Must(template.New("certificate").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Certificate {{.CertificateID}}</title>
<style>
body { font-family: Georgia, serif; background: #f8f9fa; }
.certificate { width: 800px; margin: 40px auto; padding: 48px; background: #fff; border: 12px double #c0392b; text-align: center; }
h1 { color: #c0392b; letter-spacing: 2px; }
.name { font-size: 32px; font-weight: bold; margin: 16px 0; }
.meta { color: #555; margin-top: 32px; font-size: 14px; }
</style>
</head>
<body>
<div class="certificate">
<h1>Certificate of Blood Donation</h1>
<p>This certificate is proudly presented to</p>
<div class="name">{{.DonorName}}</div>
<p>for donating <strong>{{.Quantity}} units</strong> of <strong>{{.BloodGroup}}</strong> blood
at <strong>{{.HospitalName}}</strong>{{if .HospitalCity}}, {{.HospitalCity}}{{end}} on <strong>{{.DonationDate}}</strong>.</p>
<p>Your generosity helps save lives.</p>
{{if .QRCode}}<img alt="verification code" src="data:image/png;base64,{{.QRCode}}" width="120" height="120">{{end}}
<div class="meta">Certificate ID: {{.CertificateID}}<br>Issued {{.IssuedAt}} by {{.Issuer}}</div>
</div>
</body>
</html>
`))

type htmlData struct {
	CertificateID string
	DonorName     string
	BloodGroup    string
	Quantity      string
	DonationDate  string
	HospitalName  string
	HospitalCity  string
	IssuedAt      string
	Issuer        string
	QRCode        string
}

func (r *renderer) renderHTML(data Data) ([]byte, error) {
	view := htmlData{
		CertificateID: data.CertificateID,
		DonorName:     data.DonorName,
		BloodGroup:    data.BloodGroup,
		Quantity:      quantityText(data.Quantity),
		DonationDate:  data.DonationDate.Format("January 2, 2006"),
		HospitalName:  data.HospitalName,
		HospitalCity:  data.HospitalCity,
		IssuedAt:      data.IssuedAt.Format("January 2, 2006"),
		Issuer:        r.issuer,
	}
	if data.VerifyURL != "" {
		png, err := qrcode.Encode(data.VerifyURL, qrcode.Medium, 256)
		if err != nil {
			return nil, fmt.Errorf("encode qr code: %w", err)
		}
		view.QRCode = base64.StdEncoding.EncodeToString(png)
	}

	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, view); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *renderer) renderPDF(data Data) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("Certificate "+data.CertificateID, true)
	pdf.SetAuthor(r.issuer, true)
	pdf.AddPage()

	// border
	pdf.SetDrawColor(192, 57, 43)
	pdf.SetLineWidth(2)
	pdf.Rect(10, 10, 277, 190, "D")
	pdf.SetLineWidth(0.5)
	pdf.Rect(14, 14, 269, 182, "D")

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetY(30)
	pdf.SetTextColor(192, 57, 43)
	pdf.SetFont("Helvetica", "B", 28)
	pdf.CellFormat(0, 14, "Certificate of Blood Donation", "", 1, "C", false, 0, "")

	pdf.SetTextColor(60, 60, 60)
	pdf.SetFont("Helvetica", "", 14)
	pdf.Ln(6)
	pdf.CellFormat(0, 8, "This certificate is proudly presented to", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "B", 26)
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)
	pdf.CellFormat(0, 14, tr(data.DonorName), "", 1, "C", false, 0, "")

	location := data.HospitalName
	if data.HospitalCity != "" {
		location += ", " + data.HospitalCity
	}
	pdf.SetFont("Helvetica", "", 14)
	pdf.SetTextColor(60, 60, 60)
	pdf.Ln(4)
	pdf.MultiCell(0, 8, tr(fmt.Sprintf("for donating %s units of %s blood at %s on %s.",
		quantityText(data.Quantity), data.BloodGroup, location, data.DonationDate.Format("January 2, 2006"))), "", "C", false)
	pdf.Ln(2)
	pdf.CellFormat(0, 8, "Your generosity helps save lives.", "", 1, "C", false, 0, "")

	if data.VerifyURL != "" {
		png, err := qrcode.Encode(data.VerifyURL, qrcode.Medium, 256)
		if err != nil {
			return nil, fmt.Errorf("encode qr code: %w", err)
		}
		opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
		pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(png))
		pdf.ImageOptions("qr", 240, 150, 35, 35, false, opts, 0, "")
	}

	pdf.SetY(172)
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "Certificate ID: "+data.CertificateID, "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Issued %s by %s", data.IssuedAt.Format("January 2, 2006"), r.issuer)), "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
