package emploi

import (
	"context"
	"time"
)

// StoreAPI is what the service needs from persistence.
type StoreAPI interface {
	Get(ctx context.Context, personneID, emploiID int64, caps Capabilities) (*Emploi, error)
	List(ctx context.Context, personneID int64, caps Capabilities) ([]Emploi, error)
	Create(ctx context.Context, personneID int64, in CreateInput, caps Capabilities) (*Emploi, error)
	Update(ctx context.Context, personneID, emploiID int64, in UpdateInput, caps Capabilities) (*Emploi, error)
	Delete(ctx context.Context, personneID, emploiID int64, caps Capabilities) error
	Close(ctx context.Context, personneID, emploiID int64, fin time.Time) error
	Reopen(ctx context.Context, personneID, emploiID int64) error
}

// CapabilityResolver yields the schema capabilities in effect.
type CapabilityResolver interface {
	Resolve(ctx context.Context) Capabilities
}
