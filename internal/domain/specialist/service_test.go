package specialist

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/medexam/medexam/internal/platform/apierr"
)

type mockRepo struct {
	specialists map[uuid.UUID]*Specialist
}

func newMockRepo() *mockRepo {
	return &mockRepo{specialists: make(map[uuid.UUID]*Specialist)}
}

func (m *mockRepo) Create(_ context.Context, s *Specialist) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	cp := *s
	m.specialists[s.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Specialist, error) {
	s, ok := m.specialists[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (m *mockRepo) GetByCalendarID(_ context.Context, calendarID int64) (*Specialist, error) {
	for _, s := range m.specialists {
		if s.CalendarID == calendarID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockRepo) GetByUserID(_ context.Context, userID string) (*Specialist, error) {
	for _, s := range m.specialists {
		if s.UserID != nil && *s.UserID == userID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockRepo) Update(_ context.Context, s *Specialist) error {
	cp := *s
	m.specialists[s.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.specialists, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, orgID uuid.UUID, activeOnly bool, limit, offset int) ([]*Specialist, int, error) {
	var items []*Specialist
	for _, s := range m.specialists {
		if orgID != uuid.Nil && s.OrganizationID != orgID {
			continue
		}
		if activeOnly && !s.Active {
			continue
		}
		cp := *s
		items = append(items, &cp)
	}
	return items, len(items), nil
}

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	return NewService(repo, zerolog.Nop()), repo
}

func TestCreate_DefaultsActive(t *testing.T) {
	svc, _ := newTestService()

	sp, err := svc.Create(context.Background(), CreateSpecialistRequest{
		OrganizationID: uuid.New(),
		Name:           "Dr Smith",
		Email:          "Smith@Example.com",
		CalendarID:     7,
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if !sp.Active {
		t.Error("expected new specialist to be active")
	}
	if sp.Email != "smith@example.com" {
		t.Errorf("expected lowercased email, got %q", sp.Email)
	}
}

func TestCreate_DuplicateCalendar(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	orgID := uuid.New()

	if _, err := svc.Create(ctx, CreateSpecialistRequest{OrganizationID: orgID, Name: "A", Email: "a@b.com", CalendarID: 7}); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Create(ctx, CreateSpecialistRequest{OrganizationID: orgID, Name: "B", Email: "b@b.com", CalendarID: 7})
	if !apierr.IsCode(err, apierr.CodeConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestGetByCalendarID(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, _ := svc.Create(ctx, CreateSpecialistRequest{OrganizationID: uuid.New(), Name: "A", Email: "a@b.com", CalendarID: 42})

	sp, err := svc.GetByCalendarID(ctx, 42)
	if err != nil {
		t.Fatalf("GetByCalendarID() error: %v", err)
	}
	if sp.ID != created.ID {
		t.Errorf("expected %s, got %s", created.ID, sp.ID)
	}

	if _, err := svc.GetByCalendarID(ctx, 999); !apierr.IsCode(err, apierr.CodeNotFound) {
		t.Errorf("expected not_found for unknown calendar, got %v", err)
	}
}

func TestGetByUserID(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	userID := "auth0|specialist-1"

	created, _ := svc.Create(ctx, CreateSpecialistRequest{
		OrganizationID: uuid.New(), UserID: &userID, Name: "A", Email: "a@b.com", CalendarID: 1,
	})

	sp, err := svc.GetByUserID(ctx, userID)
	if err != nil {
		t.Fatalf("GetByUserID() error: %v", err)
	}
	if sp.ID != created.ID {
		t.Errorf("expected %s, got %s", created.ID, sp.ID)
	}
}

func TestUpdate_DeactivateAndRelinkCalendar(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	sp, _ := svc.Create(ctx, CreateSpecialistRequest{OrganizationID: uuid.New(), Name: "A", Email: "a@b.com", CalendarID: 1})

	inactive := false
	newCal := int64(2)
	updated, err := svc.Update(ctx, sp.ID, UpdateSpecialistRequest{Active: &inactive, CalendarID: &newCal})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if updated.Active {
		t.Error("expected specialist to be inactive")
	}
	if updated.CalendarID != 2 {
		t.Errorf("expected calendar 2, got %d", updated.CalendarID)
	}
	if stored := repo.specialists[sp.ID]; stored.Active {
		t.Error("expected repo to store the deactivation")
	}
}

func TestUpdate_CalendarConflict(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	orgID := uuid.New()

	_, _ = svc.Create(ctx, CreateSpecialistRequest{OrganizationID: orgID, Name: "A", Email: "a@b.com", CalendarID: 1})
	b, _ := svc.Create(ctx, CreateSpecialistRequest{OrganizationID: orgID, Name: "B", Email: "b@b.com", CalendarID: 2})

	taken := int64(1)
	_, err := svc.Update(ctx, b.ID, UpdateSpecialistRequest{CalendarID: &taken})
	if !apierr.IsCode(err, apierr.CodeConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
}
