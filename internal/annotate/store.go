package annotate

import (
	"context"

	"github.com/ocrmate/ocrmate/internal/verify"
)

// Filter narrows annotation listings.
type Filter struct {
	SchemaVersion int  `json:"schema_version,omitempty"`
	CompleteOnly  bool `json:"complete_only,omitempty"`
	Limit         int  `json:"limit,omitempty"`
	Offset        int  `json:"offset,omitempty"`
}

// VerificationFilter narrows verification listings.
type VerificationFilter struct {
	NeedsReviewOnly bool `json:"needs_review_only,omitempty"`
	Limit           int  `json:"limit,omitempty"`
	Offset          int  `json:"offset,omitempty"`
}

// Store persists document annotations and the verification audit trail.
// Saves upsert by document path, so repeated passes over the same
// document replace the record.
type Store interface {
	Save(ctx context.Context, doc *DocumentAnnotation) error
	Get(ctx context.Context, documentPath string) (*DocumentAnnotation, error)
	List(ctx context.Context, filter Filter) ([]DocumentAnnotation, error)
	Delete(ctx context.Context, documentPath string) error

	SaveVerification(ctx context.Context, dv *verify.DocumentVerification) error
	GetVerification(ctx context.Context, documentPath string) (*verify.DocumentVerification, error)
	ListVerifications(ctx context.Context, filter VerificationFilter) ([]verify.DocumentVerification, error)

	Migrate(ctx context.Context) error
	Close() error
}
