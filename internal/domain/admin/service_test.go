package admin

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/medexam/medexam/internal/platform/apierr"
)

// mockOrgRepo is a map-backed OrganizationRepository.
type mockOrgRepo struct {
	orgs map[uuid.UUID]*Organization
}

func newMockOrgRepo() *mockOrgRepo {
	return &mockOrgRepo{orgs: make(map[uuid.UUID]*Organization)}
}

func (m *mockOrgRepo) Create(_ context.Context, o *Organization) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	cp := *o
	m.orgs[o.ID] = &cp
	return nil
}

func (m *mockOrgRepo) GetByID(_ context.Context, id uuid.UUID) (*Organization, error) {
	o, ok := m.orgs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrgRepo) GetByName(_ context.Context, name string) (*Organization, error) {
	for _, o := range m.orgs {
		if o.Name == name {
			cp := *o
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockOrgRepo) Update(_ context.Context, o *Organization) error {
	if _, ok := m.orgs[o.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *o
	m.orgs[o.ID] = &cp
	return nil
}

func (m *mockOrgRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.orgs, id)
	return nil
}

func (m *mockOrgRepo) List(_ context.Context, limit, offset int) ([]*Organization, int, error) {
	var items []*Organization
	for _, o := range m.orgs {
		cp := *o
		items = append(items, &cp)
	}
	return items, len(m.orgs), nil
}

func newTestService() (*Service, *mockOrgRepo) {
	repo := newMockOrgRepo()
	return NewService(repo, zerolog.Nop()), repo
}

func TestCreateOrganization(t *testing.T) {
	svc, _ := newTestService()

	org, err := svc.CreateOrganization(context.Background(), CreateOrganizationRequest{Name: "  Acme Health  "})
	if err != nil {
		t.Fatalf("CreateOrganization() error: %v", err)
	}
	if org.Name != "Acme Health" {
		t.Errorf("expected trimmed name, got %q", org.Name)
	}
	if org.ID == uuid.Nil {
		t.Error("expected generated id")
	}
}

func TestCreateOrganization_DuplicateName(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.CreateOrganization(ctx, CreateOrganizationRequest{Name: "Acme"}); err != nil {
		t.Fatal(err)
	}
	_, err := svc.CreateOrganization(ctx, CreateOrganizationRequest{Name: "Acme"})
	if !apierr.IsCode(err, apierr.CodeConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestGetOrganization_NotFound(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.GetOrganization(context.Background(), uuid.New())
	if !apierr.IsCode(err, apierr.CodeNotFound) {
		t.Errorf("expected not_found, got %v", err)
	}
}

func TestResolveOrCreate_ReturnsExisting(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	first, err := svc.ResolveOrCreate(ctx, "Acme")
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.ResolveOrCreate(ctx, "Acme")
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID {
		t.Errorf("expected same organization, got %s and %s", first.ID, second.ID)
	}
}

func TestResolveOrCreate_EmptyName(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.ResolveOrCreate(context.Background(), "  "); !apierr.IsCode(err, apierr.CodeValidation) {
		t.Errorf("expected validation_error, got %v", err)
	}
}

func TestUpdateOrganization(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	org, _ := svc.CreateOrganization(ctx, CreateOrganizationRequest{Name: "Old Name"})
	updated, err := svc.UpdateOrganization(ctx, org.ID, UpdateOrganizationRequest{Name: "New Name"})
	if err != nil {
		t.Fatalf("UpdateOrganization() error: %v", err)
	}
	if updated.Name != "New Name" {
		t.Errorf("expected New Name, got %q", updated.Name)
	}
	if stored := repo.orgs[org.ID]; stored.Name != "New Name" {
		t.Errorf("expected repo to be updated, got %q", stored.Name)
	}
}

func TestDeleteOrganization_NotFound(t *testing.T) {
	svc, _ := newTestService()
	if err := svc.DeleteOrganization(context.Background(), uuid.New()); !apierr.IsCode(err, apierr.CodeNotFound) {
		t.Errorf("expected not_found, got %v", err)
	}
}
