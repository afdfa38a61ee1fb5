package documents

import (
	"time"

	"github.com/google/uuid"
)

// Category classifies a stored document.
type Category string

const (
	CategoryReport   Category = "report"
	CategoryReferral Category = "referral"
	CategoryConsent  Category = "consent"
	CategoryOther    Category = "other"
)

// ParseCategory validates a category literal from untrusted input.
func ParseCategory(s string) (Category, bool) {
	switch c := Category(s); c {
	case CategoryReport, CategoryReferral, CategoryConsent, CategoryOther:
		return c, true
	}
	return "", false
}

// Document is the metadata row for one stored file. The bytes themselves
// live in the blob store under StorageKey.
type Document struct {
	ID          uuid.UUID `db:"id" json:"id"`
	BookingID   uuid.UUID `db:"booking_id" json:"booking_id"`
	Category    Category  `db:"category" json:"category"`
	Filename    string    `db:"filename" json:"filename"`
	ContentType string    `db:"content_type" json:"content_type"`
	SizeBytes   int64     `db:"size_bytes" json:"size_bytes"`
	StorageKey  string    `db:"storage_key" json:"-"`
	UploadedBy  string    `db:"uploaded_by" json:"uploaded_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
