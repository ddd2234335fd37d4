package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/inventory/internal/domain"
)

func TestCustomerRepository_PostgresCRUD(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewCustomerRepository(store)

	now := time.Now().UTC().Round(time.Microsecond)
	created, err := repo.Create(domain.Customer{
		Name:      "Alice",
		Email:     "alice@example.com",
		Phone:     "+1000000001",
		Address:   "1 Main St",
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected assigned customer id")
	}

	got, err := repo.Get(created.ID)
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if got.Email != "alice@example.com" || !got.Active {
		t.Fatalf("unexpected customer payload: %+v", got)
	}

	got.Active = false
	got.UpdatedAt = now.Add(time.Minute)
	if err := repo.Save(got); err != nil {
		t.Fatalf("save customer: %v", err)
	}

	if _, err := repo.Create(domain.Customer{
		Name: "Bob", Email: "bob@example.com", Active: true,
		CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("create second customer: %v", err)
	}

	all, err := repo.List(false)
	if err != nil {
		t.Fatalf("list all customers: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 customers, got %d", len(all))
	}

	active, err := repo.List(true)
	if err != nil {
		t.Fatalf("list active customers: %v", err)
	}
	if len(active) != 1 || active[0].Email != "bob@example.com" {
		t.Fatalf("unexpected active customers: %+v", active)
	}

	if err := repo.Delete(created.ID); err != nil {
		t.Fatalf("delete customer: %v", err)
	}
	if _, err := repo.Get(created.ID); !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound after delete, got %v", err)
	}
}

func TestCustomerRepository_PostgresErrors(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewCustomerRepository(store)

	now := time.Now().UTC().Round(time.Microsecond)
	base := domain.Customer{
		Name: "Carol", Email: "carol@example.com", Active: true,
		CreatedAt: now, UpdatedAt: now,
	}

	if _, err := repo.Get(404); !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound, got %v", err)
	}
	if err := repo.Save(domain.Customer{ID: 404, Name: "x", Email: "x@example.com"}); !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound on save missing, got %v", err)
	}
	if err := repo.Delete(404); !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound on delete missing, got %v", err)
	}

	if _, err := repo.Create(base); err != nil {
		t.Fatalf("create base customer: %v", err)
	}
	if _, err := repo.Create(base); !errors.Is(err, domain.ErrEmailAlreadyExists) {
		t.Fatalf("expected ErrEmailAlreadyExists on duplicate email, got %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(&pgconn.PgError{Code: "23505"}) {
		t.Fatal("expected unique violation for code 23505")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "22001"}) {
		t.Fatal("unexpected unique violation for non-unique code")
	}
	if isUniqueViolation(errors.New("plain error")) {
		t.Fatal("plain error must not be unique violation")
	}
}
