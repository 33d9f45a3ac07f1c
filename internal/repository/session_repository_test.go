package repository

import (
	"errors"
	"testing"
	"time"

	"clinic-federation-service/internal/domain"
)

func TestSessionRepositoryCreateFindDelete(t *testing.T) {
	db := newRepositoryDBForTest(t)
	repo := NewSessionRepository(db)
	now := time.Now().UTC()

	session := &domain.Session{UserID: 7, TokenHash: "hash-1", IDPAccessToken: "idp-access", ExpiresAt: now.Add(time.Hour)}
	if err := repo.Create(session); err != nil {
		t.Fatalf("create: %v", err)
	}

	found, err := repo.FindByTokenHash("hash-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.UserID != 7 || found.IDPAccessToken != "idp-access" {
		t.Fatalf("unexpected session: %+v", found)
	}

	if err := repo.DeleteByTokenHash("hash-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.FindByTokenHash("hash-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after delete, got %v", err)
	}
	// idempotent
	if err := repo.DeleteByTokenHash("hash-1"); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}
}

func TestSessionRepositoryDeleteByUserID(t *testing.T) {
	db := newRepositoryDBForTest(t)
	repo := NewSessionRepository(db)
	now := time.Now().UTC()

	for i, hash := range []string{"h-a", "h-b", "h-c"} {
		userID := uint(9)
		if i == 2 {
			userID = 10
		}
		if err := repo.Create(&domain.Session{UserID: userID, TokenHash: hash, ExpiresAt: now.Add(time.Hour)}); err != nil {
			t.Fatalf("create %s: %v", hash, err)
		}
	}

	deleted, err := repo.DeleteByUserID(9)
	if err != nil {
		t.Fatalf("delete by user: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deleted, got %d", deleted)
	}
	if _, err := repo.FindByTokenHash("h-c"); err != nil {
		t.Fatalf("other user's session must survive: %v", err)
	}
}

func TestSessionRepositoryDeleteExpired(t *testing.T) {
	db := newRepositoryDBForTest(t)
	repo := NewSessionRepository(db)
	now := time.Now().UTC()

	for _, s := range []*domain.Session{
		{UserID: 1, TokenHash: "stale", ExpiresAt: now.Add(-time.Minute)},
		{UserID: 1, TokenHash: "live", ExpiresAt: now.Add(time.Hour)},
	} {
		if err := repo.Create(s); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	deleted, err := repo.DeleteExpired(now)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted, got %d", deleted)
	}
	if _, err := repo.FindByTokenHash("live"); err != nil {
		t.Fatalf("live session must survive: %v", err)
	}
}
