package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/ikkim/bloodlink-backend/config"
	"github.com/ikkim/bloodlink-backend/internal/app/model"
	"github.com/ikkim/bloodlink-backend/internal/db"
	"github.com/ikkim/bloodlink-backend/internal/spreadsheet"
	"github.com/ikkim/bloodlink-backend/pkg/util"
	"gorm.io/gorm"
)

// Imports hospitals from an XLSX sheet as verified accounts. Imported staff sign in
// after setting a password through the forgot-password flow.
func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run cmd/seed/main.go <xlsx_file_path>")
	}

	filePath := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	f, err := os.Open(filePath)
	if err != nil {
		log.Fatal("Failed to open XLSX:", err)
	}
	parsed, err := spreadsheet.ReadHospitals(f)
	f.Close()
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	fmt.Printf("Hospitals to import: %d (skipped %d incomplete or duplicate rows)\n", len(parsed.Rows), parsed.Skipped)

	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	summary, err := importHospitals(db.GetDB(), parsed.Rows, time.Now().UTC())
	if err != nil {
		log.Fatal("Import failed:", err)
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("Created: %d, already registered: %d\n", summary.Created, summary.Existing)
}

type importSummary struct {
	Created  int
	Existing int
}

// importHospitals creates a verified hospital user and profile per row. Rows whose
// email or licence number is already registered are left untouched.
func importHospitals(gdb *gorm.DB, rows []spreadsheet.HospitalRow, now time.Time) (*importSummary, error) {
	summary := &importSummary{}

	for _, row := range rows {
		exists, err := hospitalExists(gdb, row)
		if err != nil {
			return summary, err
		}
		if exists {
			summary.Existing++
			continue
		}

		// random password; the account is claimed through password reset
		hash, err := util.HashPassword(uuid.NewString())
		if err != nil {
			return summary, err
		}

		hospitalType := model.HospitalType(row.HospitalType)
		switch hospitalType {
		case model.HospitalTypeGovernment, model.HospitalTypePrivate, model.HospitalTypeCharitable:
		default:
			hospitalType = model.HospitalTypePrivate
		}

		err = gdb.Transaction(func(tx *gorm.DB) error {
			user := &model.User{
				Email:        row.Email,
				PasswordHash: hash,
				Name:         row.Name,
				Role:         model.RoleHospital,
				IsVerified:   true,
			}
			if err := tx.Create(user).Error; err != nil {
				return err
			}

			verifiedAt := now
			hospital := &model.Hospital{
				UserID:        user.ID,
				LicenseNumber: row.LicenseNumber,
				Phone:         row.Phone,
				Address:       row.Address,
				City:          row.City,
				State:         row.State,
				Pincode:       row.Pincode,
				HospitalType:  hospitalType,
				IsVerified:    true,
				VerifiedAt:    &verifiedAt,
			}
			return tx.Omit("User").Create(hospital).Error
		})
		if err != nil {
			return summary, fmt.Errorf("hospital %s: %w", row.LicenseNumber, err)
		}
		summary.Created++
	}

	return summary, nil
}

func hospitalExists(gdb *gorm.DB, row spreadsheet.HospitalRow) (bool, error) {
	var user model.User
	err := gdb.Unscoped().Where("email = ?", row.Email).First(&user).Error
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	var count int64
	if err := gdb.Model(&model.Hospital{}).Where("license_number = ?", row.LicenseNumber).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
