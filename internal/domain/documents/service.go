package documents

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/medexam/medexam/internal/domain/booking"
	"github.com/medexam/medexam/internal/platform/apierr"
	"github.com/medexam/medexam/internal/platform/auth"
	"github.com/medexam/medexam/internal/platform/blobstore"
)

// BookingDirectory loads bookings with the caller's visibility enforced.
// Satisfied by booking.Service.
type BookingDirectory interface {
	Get(ctx context.Context, actor auth.Identity, id uuid.UUID) (*booking.Booking, error)
}

// Service owns document metadata and delegates the bytes to the blob store.
//
// Permissions: admins may do everything. The booking's referrer may upload
// referrals and consent forms and read every category except reports that
// have not been released. The assigned specialist may upload and read
// reports. A report is released once the booking's progress has reached
// report-generated.
type Service struct {
	repo     Repository
	store    blobstore.Store
	bookings BookingDirectory
	logger   zerolog.Logger
}

func NewService(repo Repository, store blobstore.Store, bookings BookingDirectory, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		store:    store,
		bookings: bookings,
		logger:   logger.With().Str("component", "documents").Logger(),
	}
}

// Upload stores the content and records the metadata row. The booking lookup
// enforces base visibility; the category check enforces the upload matrix.
func (s *Service) Upload(ctx context.Context, actor auth.Identity, bookingID uuid.UUID, category Category, filename, contentType string, content io.Reader) (*Document, error) {
	if _, err := s.bookings.Get(ctx, actor, bookingID); err != nil {
		return nil, err
	}
	if !canUpload(actor.Role, category) {
		return nil, apierr.AccessDenied("role %s may not upload %s documents", actor.Role, category)
	}
	if filename == "" {
		return nil, apierr.Validation("filename is required")
	}

	key := fmt.Sprintf("%s-%s", bookingID, uuid.New())
	size, checksum, err := s.store.Put(ctx, key, content)
	if err != nil {
		return nil, err
	}

	d := &Document{
		BookingID:   bookingID,
		Category:    category,
		Filename:    filename,
		ContentType: contentType,
		SizeBytes:   size,
		StorageKey:  key,
		UploadedBy:  actor.ID,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		// Metadata failed; do not leave the blob orphaned.
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.logger.Error().Err(delErr).Str("storage_key", key).Msg("failed to clean up orphaned blob")
		}
		return nil, err
	}

	s.logger.Info().
		Str("document_id", d.ID.String()).
		Str("booking_id", bookingID.String()).
		Str("category", string(category)).
		Int64("size_bytes", size).
		Str("sha256", checksum).
		Msg("document uploaded")
	return d, nil
}

// Open returns the document metadata and a reader over its content, after
// checking the caller may read this category on this booking.
func (s *Service) Open(ctx context.Context, actor auth.Identity, id uuid.UUID) (*Document, io.ReadCloser, error) {
	d, b, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}
	if !canRead(actor.Role, d.Category, b.Progress) {
		return nil, nil, apierr.AccessDenied("you do not have access to this document")
	}

	rc, err := s.store.Get(ctx, d.StorageKey)
	if errors.Is(err, blobstore.ErrBlobNotFound) {
		return nil, nil, apierr.NotFound("document content missing")
	}
	if err != nil {
		return nil, nil, err
	}
	return d, rc, nil
}

// List returns the booking's documents the caller may read.
func (s *Service) List(ctx context.Context, actor auth.Identity, bookingID uuid.UUID) ([]*Document, error) {
	b, err := s.bookings.Get(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}
	docs, err := s.repo.ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	visible := make([]*Document, 0, len(docs))
	for _, d := range docs {
		if canRead(actor.Role, d.Category, b.Progress) {
			visible = append(visible, d)
		}
	}
	return visible, nil
}

// Delete removes the metadata row and the stored bytes. Admin only; the
// handler enforces the role, this re-checks it.
func (s *Service) Delete(ctx context.Context, actor auth.Identity, id uuid.UUID) error {
	if !actor.IsAdmin() {
		return apierr.AccessDenied("only admins may delete documents")
	}
	d, _, err := s.load(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, d.StorageKey); err != nil && !errors.Is(err, blobstore.ErrBlobNotFound) {
		s.logger.Error().Err(err).Str("storage_key", d.StorageKey).Msg("failed to delete blob")
	}
	return nil
}

func (s *Service) load(ctx context.Context, actor auth.Identity, id uuid.UUID) (*Document, *booking.Booking, error) {
	d, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, apierr.NotFound("document not found")
	}
	if err != nil {
		return nil, nil, err
	}
	b, err := s.bookings.Get(ctx, actor, d.BookingID)
	if err != nil {
		return nil, nil, err
	}
	return d, b, nil
}

func canUpload(role auth.Role, category Category) bool {
	switch role {
	case auth.RoleAdmin:
		return true
	case auth.RoleUser:
		return category == CategoryReferral || category == CategoryConsent
	case auth.RoleSpecialist:
		return category == CategoryReport
	}
	return false
}

func canRead(role auth.Role, category Category, progress booking.Progress) bool {
	switch role {
	case auth.RoleAdmin:
		return true
	case auth.RoleUser:
		if category == CategoryReport {
			return reportReleased(progress)
		}
		return true
	case auth.RoleSpecialist:
		return category == CategoryReport
	}
	return false
}

// reportReleased reports whether the examination has progressed far enough
// for the referrer to see the report.
func reportReleased(progress booking.Progress) bool {
	return progress == booking.ProgressReportGenerated || progress == booking.ProgressPaymentReceived
}
