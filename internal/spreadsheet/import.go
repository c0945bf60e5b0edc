package spreadsheet

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Column order of a hospital import sheet. The first row is a header.
const (
	colName = iota
	colEmail
	colLicense
	colPhone
	colAddress
	colCity
	colState
	colPincode
	colType
	hospitalColumns
)

var ErrEmptySheet = errors.New("no data found in sheet")

// HospitalRow is one hospital parsed from an import sheet.
type HospitalRow struct {
	Name          string
	Email         string
	LicenseNumber string
	Phone         string
	Address       string
	City          string
	State         string
	Pincode       string
	HospitalType  string
}

// ImportResult holds parsed rows and the number of rows skipped as incomplete or duplicate.
type ImportResult struct {
	Rows    []HospitalRow
	Skipped int
}

// ReadHospitals parses the first sheet of an XLSX workbook.
func ReadHospitals(r io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, ErrEmptySheet
	}

	result := &ImportResult{}
	seen := make(map[string]bool)
	for _, row := range rows[1:] {
		// trailing empty cells are dropped by GetRows
		for len(row) < hospitalColumns {
			row = append(row, "")
		}

		h := HospitalRow{
			Name:          strings.TrimSpace(row[colName]),
			Email:         strings.ToLower(strings.TrimSpace(row[colEmail])),
			LicenseNumber: strings.TrimSpace(row[colLicense]),
			Phone:         strings.TrimSpace(row[colPhone]),
			Address:       strings.TrimSpace(row[colAddress]),
			City:          strings.TrimSpace(row[colCity]),
			State:         strings.TrimSpace(row[colState]),
			Pincode:       strings.TrimSpace(row[colPincode]),
			HospitalType:  strings.ToLower(strings.TrimSpace(row[colType])),
		}
		if h.Name == "" || h.Email == "" || h.LicenseNumber == "" || h.City == "" {
			result.Skipped++
			continue
		}
		if seen[h.LicenseNumber] || seen[h.Email] {
			result.Skipped++
			continue
		}
		seen[h.LicenseNumber] = true
		seen[h.Email] = true
		result.Rows = append(result.Rows, h)
	}

	return result, nil
}
