package emploi

import (
	"context"
	"time"
)

// Service validates employment requests against the variant rules and
// the resolved schema capabilities before touching the store.
type Service struct {
	store StoreAPI
	caps  CapabilityResolver
}

func NewService(store StoreAPI, caps CapabilityResolver) *Service {
	return &Service{store: store, caps: caps}
}

type CreateRequest struct {
	Type          string
	Etablissement int64
	DateDebut     time.Time
	Spec          Specialisation
}

type UpdateRequest struct {
	Type          *string
	Etablissement *int64
	DateDebut     *time.Time
	Spec          Specialisation
}

func (s *Service) Get(ctx context.Context, personneID, emploiID int64) (*Emploi, error) {
	return s.store.Get(ctx, personneID, emploiID, s.caps.Resolve(ctx))
}

func (s *Service) List(ctx context.Context, personneID int64) ([]Emploi, error) {
	return s.store.List(ctx, personneID, s.caps.Resolve(ctx))
}

func (s *Service) Create(ctx context.Context, personneID int64, req CreateRequest) (*Emploi, error) {
	caps := s.caps.Resolve(ctx)
	t, ok := ParseType(req.Type)
	if !ok {
		return nil, &ValidationError{Issues: []Issue{{Field: "type", Reason: "unknown employment type"}}}
	}
	if issues := ValidateSpecialisation(t, req.Spec, caps); len(issues) > 0 {
		return nil, &ValidationError{Issues: issues}
	}
	return s.store.Create(ctx, personneID, CreateInput{
		Type:          t,
		Etablissement: req.Etablissement,
		DateDebut:     req.DateDebut,
		Spec:          req.Spec,
	}, caps)
}

// Update patches base fields in place. A type change replaces the
// variant row, so the new type is validated against the supplied
// payload alone; without a type change the supplied variant fields are
// merged into the existing row without re-running required-field rules.
func (s *Service) Update(ctx context.Context, personneID, emploiID int64, req UpdateRequest) (*Emploi, error) {
	caps := s.caps.Resolve(ctx)

	in := UpdateInput{
		Etablissement: req.Etablissement,
		DateDebut:     req.DateDebut,
		Spec:          req.Spec,
	}
	if req.Type != nil {
		t, ok := ParseType(*req.Type)
		if !ok {
			return nil, &ValidationError{Issues: []Issue{{Field: "type", Reason: "unknown employment type"}}}
		}
		current, err := s.store.Get(ctx, personneID, emploiID, caps)
		if err != nil {
			return nil, err
		}
		if t != current.Type {
			if issues := ValidateSpecialisation(t, req.Spec, caps); len(issues) > 0 {
				return nil, &ValidationError{Issues: issues}
			}
		}
		in.Type = &t
	}
	return s.store.Update(ctx, personneID, emploiID, in, caps)
}

func (s *Service) Delete(ctx context.Context, personneID, emploiID int64) error {
	return s.store.Delete(ctx, personneID, emploiID, s.caps.Resolve(ctx))
}

func (s *Service) Close(ctx context.Context, personneID, emploiID int64, fin time.Time) error {
	return s.store.Close(ctx, personneID, emploiID, fin)
}

func (s *Service) Reopen(ctx context.Context, personneID, emploiID int64) error {
	return s.store.Reopen(ctx, personneID, emploiID)
}
