package memory_test

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/inventory/internal/domain"
	"github.com/vladislavdragonenkov/inventory/internal/storage/memory"
)

func TestIdempotencyRepository_CreateProcessing(t *testing.T) {
	repo := memory.NewIdempotencyRepository()
	ttl := time.Now().UTC().Add(time.Hour)

	record, err := repo.CreateProcessing("key-1", "hash-1", ttl)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if record.Status != domain.IdempotencyStatusProcessing {
		t.Fatalf("expected processing status, got %s", record.Status)
	}
}

func TestIdempotencyRepository_DuplicateKey(t *testing.T) {
	repo := memory.NewIdempotencyRepository()
	ttl := time.Now().UTC().Add(time.Hour)

	if _, err := repo.CreateProcessing("key-1", "hash-1", ttl); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, err := repo.CreateProcessing("key-1", "hash-1", ttl)
	if !errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists) {
		t.Fatalf("expected ErrIdempotencyKeyAlreadyExists, got %v", err)
	}

	_, err = repo.CreateProcessing("key-1", "hash-2", ttl)
	if !errors.Is(err, domain.ErrIdempotencyHashMismatch) {
		t.Fatalf("expected ErrIdempotencyHashMismatch, got %v", err)
	}
}

func TestIdempotencyRepository_MarkDone(t *testing.T) {
	repo := memory.NewIdempotencyRepository()
	ttl := time.Now().UTC().Add(time.Hour)

	if _, err := repo.CreateProcessing("key-1", "hash-1", ttl); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := repo.MarkDone("key-1", []byte(`{"ok":true}`), 201); err != nil {
		t.Fatalf("mark done failed: %v", err)
	}

	record, err := repo.Get("key-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if record.Status != domain.IdempotencyStatusDone || record.HTTPStatus != 201 {
		t.Fatalf("unexpected record %+v", record)
	}
	if string(record.ResponseBody) != `{"ok":true}` {
		t.Fatalf("unexpected body %s", record.ResponseBody)
	}
}

func TestIdempotencyRepository_DeleteExpired(t *testing.T) {
	repo := memory.NewIdempotencyRepository()
	now := time.Now().UTC()

	if _, err := repo.CreateProcessing("old", "hash", now.Add(-time.Hour)); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := repo.CreateProcessing("fresh", "hash", now.Add(time.Hour)); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	deleted, err := repo.DeleteExpired(now, 100)
	if err != nil {
		t.Fatalf("delete expired failed: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted, got %d", deleted)
	}
	if _, err := repo.Get("old"); !errors.Is(err, domain.ErrIdempotencyKeyNotFound) {
		t.Fatalf("expected old record gone, got %v", err)
	}
	if _, err := repo.Get("fresh"); err != nil {
		t.Fatalf("fresh record must survive: %v", err)
	}
}
