package emploi

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeStore struct {
	emplois map[int64]*Emploi
	nextID  int64

	lastUpdate *UpdateInput
	deleted    []int64
	closed     map[int64]time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{emplois: map[int64]*Emploi{}, nextID: 1, closed: map[int64]time.Time{}}
}

func (f *fakeStore) Get(_ context.Context, personneID, emploiID int64, _ Capabilities) (*Emploi, error) {
	e, ok := f.emplois[emploiID]
	if !ok || e.Personne != personneID {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeStore) List(_ context.Context, personneID int64, _ Capabilities) ([]Emploi, error) {
	out := []Emploi{}
	for _, e := range f.emplois {
		if e.Personne == personneID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeStore) Create(_ context.Context, personneID int64, in CreateInput, _ Capabilities) (*Emploi, error) {
	id := f.nextID
	f.nextID++
	e := &Emploi{
		ID:             id,
		Personne:       personneID,
		Etablissement:  in.Etablissement,
		DateDebut:      in.DateDebut.Format("2006-01-02"),
		Type:           in.Type,
		Specialisation: in.Spec,
	}
	f.emplois[id] = e
	cp := *e
	return &cp, nil
}

func (f *fakeStore) Update(_ context.Context, personneID, emploiID int64, in UpdateInput, _ Capabilities) (*Emploi, error) {
	e, ok := f.emplois[emploiID]
	if !ok || e.Personne != personneID {
		return nil, ErrNotFound
	}
	f.lastUpdate = &in
	if in.Type != nil && *in.Type != e.Type {
		e.Type = *in.Type
		e.Specialisation = in.Spec
	}
	if in.Etablissement != nil {
		e.Etablissement = *in.Etablissement
	}
	cp := *e
	return &cp, nil
}

func (f *fakeStore) Delete(_ context.Context, personneID, emploiID int64, _ Capabilities) error {
	e, ok := f.emplois[emploiID]
	if !ok || e.Personne != personneID {
		return ErrNotFound
	}
	delete(f.emplois, emploiID)
	f.deleted = append(f.deleted, emploiID)
	return nil
}

func (f *fakeStore) Close(_ context.Context, personneID, emploiID int64, fin time.Time) error {
	e, ok := f.emplois[emploiID]
	if !ok || e.Personne != personneID {
		return ErrNotFound
	}
	f.closed[emploiID] = fin
	return nil
}

func (f *fakeStore) Reopen(_ context.Context, personneID, emploiID int64) error {
	e, ok := f.emplois[emploiID]
	if !ok || e.Personne != personneID {
		return ErrNotFound
	}
	delete(f.closed, emploiID)
	return nil
}

type fixedCaps struct{ caps Capabilities }

func (f fixedCaps) Resolve(context.Context) Capabilities { return f.caps }

func newTestService(store *fakeStore, caps Capabilities) *Service {
	return NewService(store, fixedCaps{caps: caps})
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestServiceCreateRejectsUnknownType(t *testing.T) {
	svc := newTestService(newFakeStore(), fullCaps())
	_, err := svc.Create(context.Background(), 1, CreateRequest{Type: "vacataire", Etablissement: 1, DateDebut: mustDate(t, "2020-01-01")})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestServiceCreateValidatesVariant(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, fullCaps())

	_, err := svc.Create(context.Background(), 1, CreateRequest{
		Type: "chercheur", Etablissement: 1, DateDebut: mustDate(t, "2020-01-01"),
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error for missing corps and grade, got %v", err)
	}
	if len(store.emplois) != 0 {
		t.Fatal("rejected create must not reach the store")
	}

	e, err := svc.Create(context.Background(), 1, CreateRequest{
		Type: "chercheur", Etablissement: 1, DateDebut: mustDate(t, "2020-01-01"),
		Spec: Specialisation{Corps: i64Ptr(3), Grade: i64Ptr(7)},
	})
	if err != nil {
		t.Fatal(err)
	}
	if e.Type != TypeChercheur || *e.Corps != 3 {
		t.Fatalf("unexpected result %+v", e)
	}
}

func TestServiceTypeChangeRevalidates(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, fullCaps())
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, CreateRequest{
		Type: "chercheur", Etablissement: 1, DateDebut: mustDate(t, "2020-01-01"),
		Spec: Specialisation{Corps: i64Ptr(3), Grade: i64Ptr(7)},
	})
	if err != nil {
		t.Fatal(err)
	}

	// Switching to cdd without a duration must fail before the store.
	typ := "cdd"
	_, err = svc.Update(ctx, 1, created.ID, UpdateRequest{Type: &typ})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if store.lastUpdate != nil {
		t.Fatal("invalid type change must not reach the store")
	}

	updated, err := svc.Update(ctx, 1, created.ID, UpdateRequest{Type: &typ, Spec: Specialisation{DureeMois: intPtr(18)}})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Type != TypeCDD || updated.DureeMois == nil || *updated.DureeMois != 18 {
		t.Fatalf("unexpected result %+v", updated)
	}
	if updated.Corps != nil {
		t.Fatal("old variant fields must not survive a type change")
	}
}

func TestServiceSameTypePatchSkipsRequiredFields(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, fullCaps())
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, CreateRequest{
		Type: "biatss", Etablissement: 1, DateDebut: mustDate(t, "2020-01-01"),
		Spec: Specialisation{Corps: i64Ptr(3), Grade: i64Ptr(7)},
	})
	if err != nil {
		t.Fatal(err)
	}

	// Same-type patch carrying only the bap must not demand corps and grade.
	typ := "biatss"
	_, err = svc.Update(ctx, 1, created.ID, UpdateRequest{Type: &typ, Spec: Specialisation{Bap: i64Ptr(2)}})
	if err != nil {
		t.Fatal(err)
	}
}

func TestServiceNotFoundPassesThrough(t *testing.T) {
	svc := newTestService(newFakeStore(), fullCaps())
	if _, err := svc.Get(context.Background(), 1, 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := svc.Delete(context.Background(), 1, 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestServiceCloseAndReopen(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, fullCaps())
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, CreateRequest{Type: "autre", Etablissement: 1, DateDebut: mustDate(t, "2020-01-01")})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Close(ctx, 1, created.ID, mustDate(t, "2021-06-30")); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.closed[created.ID]; !ok {
		t.Fatal("close not recorded")
	}
	if err := svc.Reopen(ctx, 1, created.ID); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.closed[created.ID]; ok {
		t.Fatal("reopen must clear the end date")
	}
}
