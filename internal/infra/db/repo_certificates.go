package db

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Thedy09/nkwa-vault-sub001/internal/domain"
)

// CertificateRepository is an append-only projection of certification acts.
// Recertification appends a new row; prior rows stay as history.
type CertificateRepository struct {
	db *gorm.DB
}

func NewCertificateRepository(db *gorm.DB) *CertificateRepository {
	return &CertificateRepository{db: db}
}

func (r *CertificateRepository) Append(ctx context.Context, cert domain.Certificate) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model, err := certificateModelFromDomain(cert)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

// Latest returns the most recent certificate row for a content id.
func (r *CertificateRepository) Latest(ctx context.Context, contentID string) (*domain.Certificate, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model CertificateModel
	err := r.db.WithContext(ctx).
		Where("content_id = ?", contentID).
		Order("created_at DESC, sequence DESC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, contentID)
	}
	if err != nil {
		return nil, err
	}
	cert, err := certificateFromModel(model)
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

// History returns every certificate row for a content id, oldest first.
func (r *CertificateRepository) History(ctx context.Context, contentID string) ([]domain.Certificate, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []CertificateModel
	if err := r.db.WithContext(ctx).
		Where("content_id = ?", contentID).
		Order("created_at ASC, sequence ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Certificate, 0, len(models))
	for _, model := range models {
		cert, err := certificateFromModel(model)
		if err != nil {
			return nil, err
		}
		out = append(out, cert)
	}
	return out, nil
}

func (r *CertificateRepository) ListByContributor(ctx context.Context, contributor string) ([]domain.Certificate, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []CertificateModel
	if err := r.db.WithContext(ctx).
		Where("contributor = ?", contributor).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Certificate, 0, len(models))
	for _, model := range models {
		cert, err := certificateFromModel(model)
		if err != nil {
			return nil, err
		}
		out = append(out, cert)
	}
	return out, nil
}

func certificateModelFromDomain(cert domain.Certificate) (CertificateModel, error) {
	var mediaJSON []byte
	if len(cert.MediaCIDs) > 0 {
		encoded, err := json.Marshal(cert.MediaCIDs)
		if err != nil {
			return CertificateModel{}, err
		}
		mediaJSON = encoded
	}
	ts := cert.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return CertificateModel{
		ID:          uuid.NewString(),
		ContentID:   cert.ContentID,
		ContentHash: hex.EncodeToString(cert.ContentHash[:]),
		MetadataCID: cert.MetadataCID,
		MediaCIDs:   mediaJSON,
		ContentType: cert.ContentType,
		License:     cert.License,
		Contributor: cert.Contributor,
		LedgerTxRef: cert.LedgerTxRef,
		Sequence:    cert.Sequence,
		Status:      string(cert.Status),
		Mode:        string(cert.Mode),
		CreatedAt:   ts.UTC().Truncate(time.Microsecond),
	}, nil
}

func certificateFromModel(model CertificateModel) (domain.Certificate, error) {
	cert := domain.Certificate{
		ContentID:   model.ContentID,
		MetadataCID: model.MetadataCID,
		ContentType: model.ContentType,
		License:     model.License,
		Contributor: model.Contributor,
		LedgerTxRef: model.LedgerTxRef,
		Sequence:    model.Sequence,
		Status:      domain.CertificateStatus(model.Status),
		Mode:        domain.Mode(model.Mode),
		Timestamp:   model.CreatedAt.UTC(),
	}
	hashBytes, err := hex.DecodeString(model.ContentHash)
	if err != nil || len(hashBytes) != domain.HashSize {
		return domain.Certificate{}, fmt.Errorf("malformed stored content hash for %s", model.ContentID)
	}
	copy(cert.ContentHash[:], hashBytes)
	if len(model.MediaCIDs) > 0 {
		if err := json.Unmarshal(model.MediaCIDs, &cert.MediaCIDs); err != nil {
			return domain.Certificate{}, err
		}
	}
	return cert, nil
}
