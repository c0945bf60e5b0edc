package service

import (
	"errors"
	"strings"
	"time"

	"github.com/ikkim/bloodlink-backend/internal/app/model"
	"github.com/ikkim/bloodlink-backend/internal/app/repository"
	"github.com/ikkim/bloodlink-backend/internal/certificate"
	"github.com/ikkim/bloodlink-backend/pkg/logger"
	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

var ErrDonationNotFound = errors.New("donation record not found")

// CertificateFile rendered certificate ready to download
type CertificateFile struct {
	CertificateID string
	Filename      string
	ContentType   string
	Data          []byte
}

type DonationService interface {
	List(actor Actor, page, pageSize int) ([]model.DonationRecord, int64, error)
	Get(actor Actor, donationID uint) (*model.DonationRecord, error)
	// Certificate renders the certificate, assigning its id on the first download.
	// Later downloads in any format reuse the same id.
	Certificate(actor Actor, donationID uint, format certificate.Format) (*CertificateFile, error)
	// VerifyCertificate is public; it backs the QR code printed on certificates.
	VerifyCertificate(certificateID string) (*CertificateVerification, error)
}

// CertificateVerification public view of an issued certificate
type CertificateVerification struct {
	CertificateID string           `json:"certificate_id"`
	DonorName     string           `json:"donor_name"`
	BloodGroup    model.BloodGroup `json:"blood_group"`
	Quantity      float64          `json:"quantity"`
	DonationDate  time.Time        `json:"donation_date"`
	HospitalName  string           `json:"hospital_name"`
}

type donationService struct {
	donationRepo repository.DonationRepository
	donorRepo    repository.DonorRepository
	hospitalRepo repository.HospitalRepository
	renderer     certificate.Renderer
	verifyURL    string
	now          func() time.Time
}

// NewDonationService verifyBaseURL prefixes the certificate id in the QR code; empty disables it.
func NewDonationService(
	donationRepo repository.DonationRepository,
	donorRepo repository.DonorRepository,
	hospitalRepo repository.HospitalRepository,
	renderer certificate.Renderer,
	verifyBaseURL string,
) DonationService {
	return &donationService{
		donationRepo: donationRepo,
		donorRepo:    donorRepo,
		hospitalRepo: hospitalRepo,
		renderer:     renderer,
		verifyURL:    strings.TrimRight(verifyBaseURL, "/"),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *donationService) List(actor Actor, page, pageSize int) ([]model.DonationRecord, int64, error) {
	limit, offset := pageBounds(page, pageSize)
	filter := repository.DonationFilter{Limit: limit, Offset: offset}

	switch actor.Role {
	case model.RoleDonor:
		donor, err := s.donorRepo.FindByUserID(actor.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, 0, ErrDonorNotFound
			}
			return nil, 0, err
		}
		filter.DonorID = &donor.ID
	case model.RoleHospital:
		hospital, err := s.hospitalRepo.FindByUserID(actor.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, 0, ErrHospitalNotFound
			}
			return nil, 0, err
		}
		filter.HospitalID = &hospital.ID
	case model.RoleAdmin:
	default:
		return nil, 0, ErrForbidden
	}

	return s.donationRepo.List(filter)
}

func (s *donationService) Get(actor Actor, donationID uint) (*model.DonationRecord, error) {
	record, err := s.donationRepo.FindByID(donationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDonationNotFound
		}
		return nil, err
	}

	switch {
	case actor.IsAdmin():
	case actor.Role == model.RoleDonor && record.Donor != nil && record.Donor.UserID == actor.UserID:
	case actor.Role == model.RoleHospital && record.Hospital != nil && record.Hospital.UserID == actor.UserID:
	default:
		return nil, ErrForbidden
	}
	return record, nil
}

// newCertificateID CERT-YYYYMMDD-XXXXXXXX with the random tail of a ULID.
func newCertificateID(now time.Time) string {
	id := ulid.Make().String()
	return "CERT-" + now.Format("20060102") + "-" + id[len(id)-8:]
}

func (s *donationService) ensureCertificateID(record *model.DonationRecord) (string, error) {
	if record.CertificateID != nil && *record.CertificateID != "" {
		return *record.CertificateID, nil
	}

	candidate := newCertificateID(s.now())
	won, err := s.donationRepo.AssignCertificateID(record.ID, candidate)
	if err != nil {
		return "", err
	}
	if won {
		logger.Info("Certificate ID assigned", map[string]interface{}{
			"donation_id":    record.ID,
			"certificate_id": candidate,
		})
		record.CertificateID = &candidate
		return candidate, nil
	}

	// another download assigned it first
	reloaded, err := s.donationRepo.FindByID(record.ID)
	if err != nil {
		return "", err
	}
	if reloaded.CertificateID == nil {
		return "", errors.New("certificate id missing after concurrent assignment")
	}
	record.CertificateID = reloaded.CertificateID
	return *reloaded.CertificateID, nil
}

func (s *donationService) Certificate(actor Actor, donationID uint, format certificate.Format) (*CertificateFile, error) {
	record, err := s.Get(actor, donationID)
	if err != nil {
		return nil, err
	}

	certificateID, err := s.ensureCertificateID(record)
	if err != nil {
		logger.Error("Failed to assign certificate ID", err, map[string]interface{}{
			"donation_id": donationID,
		})
		return nil, err
	}

	data := certificate.Data{
		CertificateID: certificateID,
		DonorName:     donorName(record.Donor),
		BloodGroup:    string(record.BloodGroup),
		Quantity:      record.Quantity,
		DonationDate:  record.DonationDate,
		HospitalName:  hospitalName(record.Hospital),
		IssuedAt:      s.now(),
	}
	if record.Hospital != nil {
		data.HospitalCity = record.Hospital.City
	}
	if s.verifyURL != "" {
		data.VerifyURL = s.verifyURL + "/" + certificateID
	}

	body, contentType, err := s.renderer.Render(data, format)
	if err != nil {
		return nil, err
	}

	return &CertificateFile{
		CertificateID: certificateID,
		Filename:      certificate.Filename(certificateID, format),
		ContentType:   contentType,
		Data:          body,
	}, nil
}

func (s *donationService) VerifyCertificate(certificateID string) (*CertificateVerification, error) {
	certificateID = strings.ToUpper(strings.TrimSpace(certificateID))
	if certificateID == "" {
		return nil, ErrDonationNotFound
	}

	record, err := s.donationRepo.FindByCertificateID(certificateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDonationNotFound
		}
		return nil, err
	}

	return &CertificateVerification{
		CertificateID: certificateID,
		DonorName:     donorName(record.Donor),
		BloodGroup:    record.BloodGroup,
		Quantity:      record.Quantity,
		DonationDate:  record.DonationDate,
		HospitalName:  hospitalName(record.Hospital),
	}, nil
}
