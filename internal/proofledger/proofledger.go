// Package proofledger is the audit ledger every pipeline decision passes
// through before anything touches a wallet.
//
// Flow:
//  1. Detector and analyzer log evaluation-class records as they decide
//  2. Executor logs an execution-class record before acting
//  3. The executed action is confirmed against its record, exactly once
//  4. Anyone can verify a record later: evidence sufficiency and freshness
package proofledger

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/aegis-guard/aegis/internal/evidence"
	"github.com/aegis-guard/aegis/internal/pagination"
)

var (
	ErrRecordNotFound       = errors.New("proofledger: record not found")
	ErrInsufficientEvidence = errors.New("proofledger: insufficient evidence for execution")
	ErrAlreadyConfirmed     = errors.New("proofledger: record already confirmed")
	ErrStaleProof           = errors.New("proofledger: record outside freshness window")
)

// StalenessWindow is how long a record stays valid for execution. Market
// state a hour old no longer justifies moving funds.
const StalenessWindow = time.Hour

// Role identifies which pipeline stage authored a record.
type Role int

const (
	RoleDetector Role = 1
	RoleAnalyzer Role = 2
	RoleExecutor Role = 3
)

func (r Role) String() string {
	switch r {
	case RoleDetector:
		return "detector"
	case RoleAnalyzer:
		return "analyzer"
	case RoleExecutor:
		return "executor"
	default:
		return "unknown"
	}
}

// Record is a single immutable decision entry. The only mutation it ever
// sees is confirmation: Confirmed flips true once and the record is then
// terminal.
type Record struct {
	ID             string       `json:"id"`
	Role           Role         `json:"role"`
	Subject        string       `json:"subject"`
	InputHash      common.Hash  `json:"inputHash"`
	DecisionHash   common.Hash  `json:"decisionHash"`
	Evidence       evidence.Set `json:"evidence"`
	ExecutionClass bool         `json:"executionClass"`
	CreatedAt      time.Time    `json:"createdAt"`

	Confirmed   bool         `json:"confirmed"`
	ConfirmedAt *time.Time   `json:"confirmedAt,omitempty"`
	ResultHash  *common.Hash `json:"resultHash,omitempty"`
}

// Store persists decision records. Implementations must enforce the same
// invariants the service checks: execution-class inserts with insufficient
// evidence fail, and confirmation succeeds at most once per record.
type Store interface {
	Insert(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)

	// Confirm marks the record confirmed with the result hash. Returns
	// ErrAlreadyConfirmed if it was confirmed before, ErrRecordNotFound
	// if the id is unknown. Must be atomic under concurrent callers.
	Confirm(ctx context.Context, id string, resultHash common.Hash, at time.Time) error

	// List returns a subject's records, newest first.
	List(ctx context.Context, subject string, limit int) ([]*Record, error)

	// ListBefore returns a subject's records strictly before the cursor
	// position, newest first. A nil cursor starts at the newest record.
	ListBefore(ctx context.Context, subject string, before *pagination.Cursor, limit int) ([]*Record, error)
}

// HashJSON returns the keccak256 hash of the JSON encoding of v. Struct
// field order makes the encoding canonical for a fixed type.
func HashJSON(v any) (common.Hash, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(b), nil
}
