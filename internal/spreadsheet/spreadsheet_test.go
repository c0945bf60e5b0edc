package spreadsheet

import (
	"bytes"
	"testing"
	"time"

	"github.com/ikkim/bloodlink-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteExport(t *testing.T) {
	last := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	cert := "CERT-20260301-ABCDEFGH"
	data := ExportData{
		Donors: []model.Donor{{
			ID: 1, BloodGroup: model.BloodGroupOPos, City: "Pune", Age: 30, IsAvailable: true,
			LastDonationDate: &last,
			User:             &model.User{Name: "Asha", Email: "asha@example.com"},
		}},
		Hospitals: []model.Hospital{{
			ID: 2, LicenseNumber: "LIC-1", City: "Pune", IsVerified: true,
			User: &model.User{Name: "City Hospital", Email: "city@example.com"},
		}},
		Donations: []model.DonationRecord{{
			ID: 3, BloodGroup: model.BloodGroupOPos, Quantity: 1.5, DonationDate: last, CertificateID: &cert,
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteExport(&buf, data))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Donors", "Hospitals", "Requests", "Donations"}, f.GetSheetList())

	rows, err := f.GetRows("Donors")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Blood Group", rows[0][3])
	assert.Equal(t, "Asha", rows[1][1])
	assert.Equal(t, "O+", rows[1][3])
	assert.Equal(t, "Yes", rows[1][8])
	assert.Equal(t, "2026-03-01", rows[1][9])

	rows, err = f.GetRows("Requests")
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	rows, err = f.GetRows("Donations")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, cert, rows[1][6])
}

func buildImportSheet(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func TestReadHospitals(t *testing.T) {
	buf := buildImportSheet(t, [][]interface{}{
		{"Name", "Email", "License", "Phone", "Address", "City", "State", "Pincode", "Type"},
		{"City Hospital", "City@Example.com ", "LIC-1", "020-1111", "1 Main Rd", "Pune", "MH", "411001", "Private"},
		{"Duplicate", "other@example.com", "LIC-1", "", "", "Pune"},
		{"No License", "nolicense@example.com", "", "", "", "Pune"},
		{"Short Row", "short@example.com", "LIC-2", "", "", "Nashik"},
	})

	result, err := ReadHospitals(buf)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Skipped)
	require.Len(t, result.Rows, 2)

	assert.Equal(t, "city@example.com", result.Rows[0].Email)
	assert.Equal(t, "private", result.Rows[0].HospitalType)
	assert.Equal(t, "411001", result.Rows[0].Pincode)
	assert.Equal(t, "LIC-2", result.Rows[1].LicenseNumber)
	assert.Empty(t, result.Rows[1].HospitalType)
}

func TestReadHospitals_HeaderOnly(t *testing.T) {
	buf := buildImportSheet(t, [][]interface{}{
		{"Name", "Email", "License"},
	})

	_, err := ReadHospitals(buf)
	assert.ErrorIs(t, err, ErrEmptySheet)
}
