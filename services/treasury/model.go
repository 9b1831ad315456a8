package treasury

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"
)

const (
	EntryTypeCredit = "CREDIT"
	EntryTypeDebit  = "DEBIT"

	genesisHash = "GENESIS"
)

type Balance struct {
	ID        string    `gorm:"column:id;primaryKey" json:"-"`
	AccountID string    `gorm:"column:account_id;uniqueIndex" json:"account_id"`
	Balance   int64     `gorm:"column:balance" json:"balance"`
	CreatedAt time.Time `gorm:"column:created_at" json:"-"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Balance) TableName() string { return "balances" }

// LedgerEntry is one link of an account's hash chain. Sequence starts at 1
// and the first entry points at GENESIS.
type LedgerEntry struct {
	ID            string         `gorm:"column:id;primaryKey" json:"id"`
	CreatedAt     time.Time      `gorm:"column:created_at" json:"created_at"`
	AccountID     string         `gorm:"column:account_id;uniqueIndex:idx_ledger_account_seq;uniqueIndex:idx_ledger_account_ref" json:"account_id"`
	Sequence      int64          `gorm:"column:sequence;uniqueIndex:idx_ledger_account_seq" json:"sequence"`
	Type          string         `gorm:"column:type" json:"type"`
	Amount        int64          `gorm:"column:amount" json:"amount"`
	TransactionID string         `gorm:"column:transaction_id;index" json:"transaction_id"`
	ReferenceID   string         `gorm:"column:reference_id;uniqueIndex:idx_ledger_account_ref" json:"reference_id"`
	Description   string         `gorm:"column:description" json:"description"`
	PreviousHash  string         `gorm:"column:previous_hash" json:"previous_hash"`
	Hash          string         `gorm:"column:hash" json:"hash"`
	Metadata      datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
}

func (LedgerEntry) TableName() string { return "ledger_entries" }

type entryParams struct {
	ID            string
	AccountID     string
	Type          string
	Amount        int64
	TransactionID string
	ReferenceID   string
	Description   string
	Metadata      datatypes.JSON
	Previous      *LedgerEntry
	Now           time.Time
}

// newEntry links a new entry after p.Previous (nil for the first entry of an
// account) and seals it.
func newEntry(p entryParams) *LedgerEntry {
	e := &LedgerEntry{
		ID:            p.ID,
		CreatedAt:     p.Now,
		AccountID:     p.AccountID,
		Sequence:      1,
		Type:          p.Type,
		Amount:        p.Amount,
		TransactionID: p.TransactionID,
		ReferenceID:   p.ReferenceID,
		Description:   p.Description,
		PreviousHash:  genesisHash,
		Metadata:      p.Metadata,
	}
	if p.Previous != nil {
		e.Sequence = p.Previous.Sequence + 1
		e.PreviousHash = p.Previous.Hash
	}
	e.Hash = e.GenerateHash()
	return e
}

func (e *LedgerEntry) hashFields() map[string]string {
	return map[string]string{
		"id":             e.ID,
		"account_id":     e.AccountID,
		"sequence":       fmt.Sprintf("%d", e.Sequence),
		"type":           e.Type,
		"amount":         fmt.Sprintf("%d", e.Amount),
		"transaction_id": e.TransactionID,
		"reference_id":   e.ReferenceID,
		"description":    e.Description,
		"created_at":     e.CreatedAt.UTC().Format(time.RFC3339Nano),
		"previous_hash":  e.PreviousHash,
	}
}

func (e *LedgerEntry) GenerateHash() string {
	fields := e.hashFields()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+fields[k])
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// GenerateTransactionID returns an id of the form YYYYMMDD-XXXXXX shared by
// both legs of a transfer.
func GenerateTransactionID() (string, error) {
	r := make([]byte, 3)
	if _, err := rand.Read(r); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%X", time.Now().UTC().Format("20060102"), r), nil
}

// ledgerNow is truncated to milliseconds so the hashed timestamp survives a
// round trip through every supported dialect.
func ledgerNow() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

type FundRequest struct {
	Account     string
	Amount      int64
	ReferenceID string
	Description string
	Metadata    map[string]any
}

type TransferRequest struct {
	From        string
	To          string
	Amount      int64
	ReferenceID string
	Description string
	Metadata    map[string]any
}
