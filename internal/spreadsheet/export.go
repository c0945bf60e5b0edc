// Package spreadsheet writes the admin XLSX export and reads hospital import sheets.
package spreadsheet

import (
	"fmt"
	"io"
	"time"

	"github.com/ikkim/bloodlink-backend/internal/app/model"
	"github.com/xuri/excelize/v2"
)

const dateLayout = "2006-01-02"

// ExportData rows for each sheet of the export workbook.
type ExportData struct {
	Donors    []model.Donor
	Hospitals []model.Hospital
	Requests  []model.TransfusionRequest
	Donations []model.DonationRecord
}

type sheet struct {
	name    string
	headers []string
	widths  []float64
	rows    [][]interface{}
}

func dateCell(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func userName(u *model.User) string {
	if u == nil {
		return ""
	}
	return u.Name
}

func userEmail(u *model.User) string {
	if u == nil {
		return ""
	}
	return u.Email
}

func buildSheets(data ExportData) []sheet {
	donors := sheet{
		name:    "Donors",
		headers: []string{"ID", "Name", "Email", "Blood Group", "City", "Phone", "Age", "Gender", "Available", "Last Donation"},
		widths:  []float64{8, 24, 30, 12, 16, 16, 8, 10, 10, 14},
	}
	for _, d := range data.Donors {
		last := ""
		if d.LastDonationDate != nil {
			last = dateCell(*d.LastDonationDate)
		}
		donors.rows = append(donors.rows, []interface{}{
			d.ID, userName(d.User), userEmail(d.User), string(d.BloodGroup), d.City, d.Phone, d.Age, string(d.Gender), yesNo(d.IsAvailable), last,
		})
	}

	hospitals := sheet{
		name:    "Hospitals",
		headers: []string{"ID", "Name", "Email", "License", "Type", "City", "State", "Phone", "Verified"},
		widths:  []float64{8, 28, 30, 18, 12, 16, 12, 16, 10},
	}
	for _, h := range data.Hospitals {
		hospitals.rows = append(hospitals.rows, []interface{}{
			h.ID, userName(h.User), userEmail(h.User), h.LicenseNumber, string(h.HospitalType), h.City, h.State, h.Phone, yesNo(h.IsVerified),
		})
	}

	requests := sheet{
		name:    "Requests",
		headers: []string{"ID", "Hospital", "Blood Group", "Quantity", "Urgency", "Status", "Required By", "Created"},
		widths:  []float64{8, 28, 12, 10, 12, 12, 14, 14},
	}
	for _, r := range data.Requests {
		hospital := ""
		if r.Hospital != nil {
			hospital = userName(r.Hospital.User)
		}
		requests.rows = append(requests.rows, []interface{}{
			r.ID, hospital, string(r.BloodGroup), r.Quantity, string(r.Urgency), string(r.Status), dateCell(r.RequiredBy), dateCell(r.CreatedAt),
		})
	}

	donations := sheet{
		name:    "Donations",
		headers: []string{"ID", "Donor", "Hospital", "Blood Group", "Quantity", "Date", "Certificate"},
		widths:  []float64{8, 24, 28, 12, 10, 14, 26},
	}
	for _, d := range data.Donations {
		donor, hospital, cert := "", "", ""
		if d.Donor != nil {
			donor = userName(d.Donor.User)
		}
		if d.Hospital != nil {
			hospital = userName(d.Hospital.User)
		}
		if d.CertificateID != nil {
			cert = *d.CertificateID
		}
		donations.rows = append(donations.rows, []interface{}{
			d.ID, donor, hospital, string(d.BloodGroup), d.Quantity, dateCell(d.DonationDate), cert,
		})
	}

	return []sheet{donors, hospitals, requests, donations}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// WriteExport renders data as an XLSX workbook with one sheet per entity.
func WriteExport(w io.Writer, data ExportData) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C0392B"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	for i, sh := range buildSheets(data) {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sh.name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(sh.name); err != nil {
			return err
		}

		if err := writeSheet(f, sh, headerStyle); err != nil {
			return fmt.Errorf("sheet %s: %w", sh.name, err)
		}
	}
	f.SetActiveSheet(0)

	return f.Write(w)
}

func writeSheet(f *excelize.File, sh sheet, headerStyle int) error {
	header := make([]interface{}, len(sh.headers))
	for i, h := range sh.headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sh.name, "A1", &header); err != nil {
		return err
	}

	last, err := excelize.CoordinatesToCellName(len(sh.headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sh.name, "A1", last, headerStyle); err != nil {
		return err
	}

	for i, width := range sh.widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sh.name, col, col, width); err != nil {
			return err
		}
	}

	for i, row := range sh.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		r := row
		if err := f.SetSheetRow(sh.name, cell, &r); err != nil {
			return err
		}
	}
	return nil
}
