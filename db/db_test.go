package db

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func setup(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set; skipping postgres tests")
	}
	dbx, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { dbx.Close() })
	if err := Migrate(context.Background(), dbx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return dbx
}

func TestMigrateIsIdempotent(t *testing.T) {
	dbx := setup(t)
	// Second run must not fail on existing tables and columns.
	if err := Migrate(context.Background(), dbx); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestSpotifyTokenRoundTrip(t *testing.T) {
	dbx := setup(t)
	ctx := context.Background()
	userID := "test-token-user"
	t.Cleanup(func() { _ = DeleteUser(ctx, dbx, userID) })

	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	if err := UpsertSpotifyToken(ctx, dbx, userID, "acc1", "ref1", expiry, "user-read-currently-playing"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	access, refresh, gotExpiry, scope, err := GetSpotifyToken(ctx, dbx, userID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if access != "acc1" || refresh != "ref1" || scope != "user-read-currently-playing" {
		t.Errorf("got (%q, %q, %q)", access, refresh, scope)
	}
	if !gotExpiry.Equal(expiry) {
		t.Errorf("expiry = %v, want %v", gotExpiry, expiry)
	}

	// Upsert replaces the previous row.
	if err := UpsertSpotifyToken(ctx, dbx, userID, "acc2", "ref2", expiry, "scope2"); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	access, refresh, _, _, err = GetSpotifyToken(ctx, dbx, userID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if access != "acc2" || refresh != "ref2" {
		t.Errorf("after update got (%q, %q)", access, refresh)
	}
}

func TestGetSpotifyTokenUnknownUser(t *testing.T) {
	dbx := setup(t)
	access, refresh, expiry, scope, err := GetSpotifyToken(context.Background(), dbx, "never-linked")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if access != "" || refresh != "" || scope != "" || !expiry.IsZero() {
		t.Errorf("expected zero values, got (%q, %q, %v, %q)", access, refresh, expiry, scope)
	}
}

func TestProfileLifecycle(t *testing.T) {
	dbx := setup(t)
	ctx := context.Background()
	userID := "test-profile-user"
	t.Cleanup(func() { _ = DeleteUser(ctx, dbx, userID) })

	if _, found, err := GetProfile(ctx, dbx, userID); err != nil || found {
		t.Fatalf("GetProfile before insert = (found=%v, err=%v)", found, err)
	}

	if err := UpsertProfile(ctx, dbx, userID, "Nerd"); err != nil {
		t.Fatalf("upsert profile: %v", err)
	}
	p, found, err := GetProfile(ctx, dbx, userID)
	if err != nil || !found {
		t.Fatalf("GetProfile = (found=%v, err=%v)", found, err)
	}
	if p.DisplayName != "Nerd" || !p.Linked {
		t.Errorf("profile = %+v", p)
	}

	if err := SetLastChannel(ctx, dbx, userID, "chan42"); err != nil {
		t.Fatalf("set last channel: %v", err)
	}
	ch, err := GetLastChannel(ctx, dbx, userID)
	if err != nil || ch != "chan42" {
		t.Errorf("last channel = (%q, %v)", ch, err)
	}

	if err := DeleteUser(ctx, dbx, userID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, found, _ := GetProfile(ctx, dbx, userID); found {
		t.Error("profile still present after delete")
	}
}

func TestSetLastChannelCreatesRow(t *testing.T) {
	dbx := setup(t)
	ctx := context.Background()
	userID := "test-channel-only-user"
	t.Cleanup(func() { _ = DeleteUser(ctx, dbx, userID) })

	// /link can store the origin channel before any profile exists.
	if err := SetLastChannel(ctx, dbx, userID, "chan1"); err != nil {
		t.Fatalf("set last channel: %v", err)
	}
	ch, err := GetLastChannel(ctx, dbx, userID)
	if err != nil || ch != "chan1" {
		t.Errorf("last channel = (%q, %v)", ch, err)
	}
}

func TestStoreIsLinked(t *testing.T) {
	dbx := setup(t)
	ctx := context.Background()
	store := &Store{DB: dbx}
	userID := "test-linked-user"
	t.Cleanup(func() { _ = DeleteUser(ctx, dbx, userID) })

	linked, err := store.IsLinked(ctx, userID)
	if err != nil || linked {
		t.Fatalf("IsLinked before link = (%v, %v)", linked, err)
	}

	if err := UpsertSpotifyToken(ctx, dbx, userID, "", "ref", time.Now(), ""); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	linked, err = store.IsLinked(ctx, userID)
	if err != nil || !linked {
		t.Errorf("IsLinked after link = (%v, %v)", linked, err)
	}

	if err := store.Unlink(ctx, userID); err != nil {
		t.Fatalf("unlink: %v", err)
	}
	if linked, _ := store.IsLinked(ctx, userID); linked {
		t.Error("still linked after unlink")
	}
}
