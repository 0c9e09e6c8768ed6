package repository

import (
	"context"

	"clinic-frontdesk/internal/domain/entity"
)

// IdentityRepository is the durable store of patient identities keyed by
// national ID.
type IdentityRepository interface {
	// Create inserts the identity together with its pending visits. It returns
	// ErrIdentityExists when the national ID is already taken.
	Create(ctx context.Context, identity *entity.PatientIdentity) error

	// Modify locks the identity row, lets fn mutate it and persists the
	// identity plus any visits fn appended, all in one transaction. The
	// identity passed to fn has HistoryLength set but Visits empty. It returns
	// (nil, nil) when no identity exists for nationalID.
	Modify(ctx context.Context, nationalID string, fn func(identity *entity.PatientIdentity) error) (*entity.PatientIdentity, error)

	FindByNationalID(ctx context.Context, nationalID string, withVisits bool) (*entity.PatientIdentity, error)
	Search(ctx context.Context, term string, limit int) ([]entity.PatientIdentity, error)
	Delete(ctx context.Context, nationalID string) (int64, error)
}
