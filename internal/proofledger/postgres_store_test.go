//go:build integration

package proofledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/aegis-guard/aegis/internal/evidence"
	"github.com/aegis-guard/aegis/internal/pagination"
	"github.com/aegis-guard/aegis/internal/testutil"
)

func setupPGStore(t *testing.T) (*PostgresStore, func()) {
	t.Helper()
	db, cleanup := testutil.PGTest(t)
	return NewPostgresStore(db), cleanup
}

func pgRecord(id, subject string, createdAt time.Time) *Record {
	return &Record{
		ID:           id,
		Role:         RoleAnalyzer,
		Subject:      subject,
		InputHash:    common.HexToHash("0x01"),
		DecisionHash: common.HexToHash("0x02"),
		Evidence:     evidence.NewSet(evidence.FamilyPriceVolume, evidence.FamilyLiquidity),
		CreatedAt:    createdAt,
	}
}

func TestPostgresProofs_InsertAndGet(t *testing.T) {
	store, cleanup := setupPGStore(t)
	defer cleanup()

	ctx := context.Background()
	rec := pgRecord("proof_pg001", "0xWalletPG01", time.Now().UTC())

	if err := store.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.Get(ctx, "proof_pg001")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Subject != "0xwalletpg01" {
		t.Errorf("Subject: got %s, want lowercased 0xwalletpg01", got.Subject)
	}
	if got.DecisionHash != rec.DecisionHash {
		t.Errorf("DecisionHash mismatch")
	}
	if got.Evidence.Count() != 2 {
		t.Errorf("Evidence count: got %d, want 2", got.Evidence.Count())
	}
}

func TestPostgresProofs_ExecutionClassEvidenceCheck(t *testing.T) {
	store, cleanup := setupPGStore(t)
	defer cleanup()

	ctx := context.Background()
	rec := pgRecord("proof_pg002", "0xWalletPG02", time.Now().UTC())
	rec.ExecutionClass = true
	rec.Evidence = evidence.NewSet(evidence.FamilyPriceVolume)

	// Both the store guard and the table CHECK reject this.
	if err := store.Insert(ctx, rec); err == nil {
		t.Fatal("expected execution-class insert with one family to fail")
	}
}

func TestPostgresProofs_ConfirmOnce(t *testing.T) {
	store, cleanup := setupPGStore(t)
	defer cleanup()

	ctx := context.Background()
	rec := pgRecord("proof_pg003", "0xWalletPG03", time.Now().UTC())
	if err := store.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	resultHash := common.HexToHash("0x03")
	if err := store.Confirm(ctx, rec.ID, resultHash, time.Now().UTC()); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if err := store.Confirm(ctx, rec.ID, resultHash, time.Now().UTC()); err != ErrAlreadyConfirmed {
		t.Fatalf("second Confirm: got %v, want ErrAlreadyConfirmed", err)
	}

	got, err := store.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !got.Confirmed || got.ResultHash == nil {
		t.Error("record not marked confirmed with result hash")
	}
}

func TestPostgresProofs_ListBeforeCursor(t *testing.T) {
	store, cleanup := setupPGStore(t)
	defer cleanup()

	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		rec := pgRecord(fmt.Sprintf("proof_pgl%03d", i), "0xWalletPGL", base.Add(time.Duration(i)*time.Minute))
		if err := store.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert %d failed: %v", i, err)
		}
	}

	first, err := store.List(ctx, "0xWalletPGL", 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("List: got %d records, want 2", len(first))
	}
	if !first[0].CreatedAt.After(first[1].CreatedAt) {
		t.Error("List not newest first")
	}

	cursor := &pagination.Cursor{CreatedAt: first[1].CreatedAt, ID: first[1].ID}
	rest, err := store.ListBefore(ctx, "0xWalletPGL", cursor, 10)
	if err != nil {
		t.Fatalf("ListBefore failed: %v", err)
	}
	if len(rest) != 2 {
		t.Fatalf("ListBefore: got %d records, want 2", len(rest))
	}
	for _, rec := range rest {
		if !rec.CreatedAt.Before(cursor.CreatedAt) {
			t.Errorf("record %s not before cursor", rec.ID)
		}
	}
}
