package identity

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/medexam/medexam/internal/platform/apierr"
)

type mockExamineeRepo struct {
	examinees map[uuid.UUID]*Examinee
}

func (m *mockExamineeRepo) Create(_ context.Context, e *Examinee) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	cp := *e
	m.examinees[e.ID] = &cp
	return nil
}

func (m *mockExamineeRepo) GetByID(_ context.Context, id uuid.UUID) (*Examinee, error) {
	e, ok := m.examinees[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (m *mockExamineeRepo) Update(_ context.Context, e *Examinee) error {
	cp := *e
	m.examinees[e.ID] = &cp
	return nil
}

func (m *mockExamineeRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.examinees, id)
	return nil
}

func (m *mockExamineeRepo) List(_ context.Context, orgID uuid.UUID, limit, offset int) ([]*Examinee, int, error) {
	var items []*Examinee
	for _, e := range m.examinees {
		if orgID != uuid.Nil && e.OrganizationID != orgID {
			continue
		}
		cp := *e
		items = append(items, &cp)
	}
	return items, len(items), nil
}

type mockReferrerRepo struct {
	referrers map[uuid.UUID]*Referrer
}

func (m *mockReferrerRepo) Create(_ context.Context, r *Referrer) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	cp := *r
	m.referrers[r.ID] = &cp
	return nil
}

func (m *mockReferrerRepo) GetByID(_ context.Context, id uuid.UUID) (*Referrer, error) {
	r, ok := m.referrers[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *r
	return &cp, nil
}

func (m *mockReferrerRepo) GetByEmail(_ context.Context, email string) (*Referrer, error) {
	for _, r := range m.referrers {
		if r.Email == email {
			cp := *r
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockReferrerRepo) Update(_ context.Context, r *Referrer) error {
	cp := *r
	m.referrers[r.ID] = &cp
	return nil
}

func (m *mockReferrerRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.referrers, id)
	return nil
}

func (m *mockReferrerRepo) List(_ context.Context, orgID uuid.UUID, limit, offset int) ([]*Referrer, int, error) {
	var items []*Referrer
	for _, r := range m.referrers {
		if orgID != uuid.Nil && r.OrganizationID != orgID {
			continue
		}
		cp := *r
		items = append(items, &cp)
	}
	return items, len(items), nil
}

func newTestService() (*Service, *mockExamineeRepo, *mockReferrerRepo) {
	examinees := &mockExamineeRepo{examinees: make(map[uuid.UUID]*Examinee)}
	referrers := &mockReferrerRepo{referrers: make(map[uuid.UUID]*Referrer)}
	return NewService(examinees, referrers, zerolog.Nop()), examinees, referrers
}

func TestCreateExaminee_TrimsFields(t *testing.T) {
	svc, _, _ := newTestService()

	e, err := svc.CreateExaminee(context.Background(), CreateExamineeRequest{
		OrganizationID: uuid.New(),
		FirstName:      "  Jane ",
		LastName:       " Doe ",
		Email:          " jane@example.com ",
		Phone:          " 0400000000 ",
	})
	if err != nil {
		t.Fatalf("CreateExaminee() error: %v", err)
	}
	if e.FirstName != "Jane" || e.LastName != "Doe" {
		t.Errorf("expected trimmed names, got %q %q", e.FirstName, e.LastName)
	}
}

func TestGetExaminee_NotFound(t *testing.T) {
	svc, _, _ := newTestService()
	if _, err := svc.GetExaminee(context.Background(), uuid.New()); !apierr.IsCode(err, apierr.CodeNotFound) {
		t.Errorf("expected not_found, got %v", err)
	}
}

func TestUpdateExaminee_PartialUpdate(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	e, _ := svc.CreateExaminee(ctx, CreateExamineeRequest{
		OrganizationID: uuid.New(),
		FirstName:      "Jane",
		LastName:       "Doe",
		Email:          "jane@example.com",
		Phone:          "0400000000",
	})

	updated, err := svc.UpdateExaminee(ctx, e.ID, UpdateExamineeRequest{Phone: "0411111111"})
	if err != nil {
		t.Fatalf("UpdateExaminee() error: %v", err)
	}
	if updated.Phone != "0411111111" {
		t.Errorf("expected new phone, got %q", updated.Phone)
	}
	if updated.FirstName != "Jane" {
		t.Errorf("expected untouched first name, got %q", updated.FirstName)
	}
}

func TestCreateReferrer_NormalizesEmail(t *testing.T) {
	svc, _, _ := newTestService()

	r, err := svc.CreateReferrer(context.Background(), CreateReferrerRequest{
		OrganizationID: uuid.New(),
		Name:           "Dr Referrer",
		Email:          " Referrer@Example.COM ",
	})
	if err != nil {
		t.Fatalf("CreateReferrer() error: %v", err)
	}
	if r.Email != "referrer@example.com" {
		t.Errorf("expected normalized email, got %q", r.Email)
	}
}

func TestCreateReferrer_DuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	orgID := uuid.New()

	if _, err := svc.CreateReferrer(ctx, CreateReferrerRequest{OrganizationID: orgID, Name: "A", Email: "a@b.com"}); err != nil {
		t.Fatal(err)
	}
	_, err := svc.CreateReferrer(ctx, CreateReferrerRequest{OrganizationID: orgID, Name: "B", Email: "A@B.com"})
	if !apierr.IsCode(err, apierr.CodeConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestResolveOrCreateReferrer(t *testing.T) {
	svc, _, referrers := newTestService()
	ctx := context.Background()
	orgID := uuid.New()

	first, err := svc.ResolveOrCreateReferrer(ctx, orgID, "Dr Ref", "ref@example.com")
	if err != nil {
		t.Fatalf("ResolveOrCreateReferrer() error: %v", err)
	}
	second, err := svc.ResolveOrCreateReferrer(ctx, orgID, "Different Name", "REF@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID {
		t.Error("expected the same referrer for the same email")
	}
	if len(referrers.referrers) != 1 {
		t.Errorf("expected 1 referrer, got %d", len(referrers.referrers))
	}
}

func TestResolveOrCreateReferrer_EmptyNameFallsBackToEmail(t *testing.T) {
	svc, _, _ := newTestService()

	r, err := svc.ResolveOrCreateReferrer(context.Background(), uuid.New(), "", "ref@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if r.Name != "ref@example.com" {
		t.Errorf("expected email as name fallback, got %q", r.Name)
	}
}

func TestResolveOrCreateReferrer_MissingEmail(t *testing.T) {
	svc, _, _ := newTestService()
	if _, err := svc.ResolveOrCreateReferrer(context.Background(), uuid.New(), "X", ""); !apierr.IsCode(err, apierr.CodeValidation) {
		t.Errorf("expected validation_error, got %v", err)
	}
}
