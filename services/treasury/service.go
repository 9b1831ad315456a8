package treasury

import (
	"context"
	"encoding/json"
	"errors"

	"kudos-controlplane/pkg/db/option"
	"kudos-controlplane/pkg/errutil"
	"kudos-controlplane/pkg/logger"
	"kudos-controlplane/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrDuplicateReference = errors.New("reference_id already exists")
)

var tracer = otel.Tracer("kudos/treasury")

type Service struct {
	db   *gorm.DB
	node *snowflake.Node
	inTx bool

	ledger  repository.Repository[LedgerEntry]
	balance repository.Repository[Balance]
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:   p.DB,
		node: p.Node,

		ledger:  repository.ProvideStore[LedgerEntry](p.DB),
		balance: repository.ProvideStore[Balance](p.DB),
	}
}

// WithTrx returns a copy of the service bound to tx. Writes made through the
// copy join tx instead of opening their own transaction.
func (s *Service) WithTrx(tx *gorm.DB) *Service {
	if tx == nil {
		return s
	}
	return &Service{
		db:      tx,
		node:    s.node,
		inTx:    true,
		ledger:  s.ledger.WithTrx(tx),
		balance: s.balance.WithTrx(tx),
	}
}

func (s *Service) transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s.inTx {
		return fn(s.db)
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// Fund credits an account from outside the ledger. Funding is idempotent on
// (account, reference): replaying a reference returns the original entry.
func (s *Service) Fund(ctx context.Context, req FundRequest) (*LedgerEntry, error) {
	ctx, span := tracer.Start(ctx, "treasury.Fund", trace.WithAttributes(
		attribute.String("account_id", req.Account),
		attribute.Int64("amount", req.Amount),
	))
	defer span.End()
	log := logger.FromContext(ctx)

	if req.Account == "" {
		return nil, errutil.BadRequest("account is required", nil)
	}
	if req.Amount <= 0 {
		return nil, errutil.BadRequest("amount must be > 0 for CREDIT", nil)
	}

	meta, err := marshalMetadata(req.Metadata)
	if err != nil {
		return nil, errutil.BadRequest("invalid metadata", err)
	}

	var entry *LedgerEntry
	err = s.transaction(ctx, func(tx *gorm.DB) error {
		if req.ReferenceID != "" {
			existing, err := s.ledger.WithTrx(tx).FindOne(ctx, &LedgerEntry{AccountID: req.Account, ReferenceID: req.ReferenceID})
			if err != nil {
				return err
			}
			if existing != nil {
				entry = existing
				return nil
			}
		}

		transactionID, err := GenerateTransactionID()
		if err != nil {
			return err
		}

		entry, err = s.appendEntry(ctx, tx, leg{
			account:       req.Account,
			entryType:     EntryTypeCredit,
			amount:        req.Amount,
			transactionID: transactionID,
			referenceID:   referenceOr(req.ReferenceID, transactionID),
			description:   req.Description,
			metadata:      meta,
		})
		return err
	})
	if err != nil {
		log.Error("failed to fund account", zap.String("account_id", req.Account), zap.Error(err))
		return nil, err
	}

	return entry, nil
}

// Transfer moves Amount from From to To, appending a DEBIT to the sender's
// chain and a CREDIT to the receiver's chain under one transaction id. It
// returns the receiver's entry.
func (s *Service) Transfer(ctx context.Context, req TransferRequest) (*LedgerEntry, error) {
	ctx, span := tracer.Start(ctx, "treasury.Transfer", trace.WithAttributes(
		attribute.String("from", req.From),
		attribute.String("to", req.To),
		attribute.Int64("amount", req.Amount),
	))
	defer span.End()
	log := logger.FromContext(ctx)

	switch {
	case req.From == "" || req.To == "":
		return nil, errutil.BadRequest("from and to accounts are required", nil)
	case req.From == req.To:
		return nil, errutil.BadRequest("cannot transfer to the same account", nil)
	case req.Amount < 0:
		return nil, errutil.BadRequest("amount must not be negative", nil)
	}

	meta, err := marshalMetadata(req.Metadata)
	if err != nil {
		return nil, errutil.BadRequest("invalid metadata", err)
	}

	transactionID, err := GenerateTransactionID()
	if err != nil {
		log.Error("failed to generate transactionId", zap.Error(err))
		return nil, err
	}
	reference := referenceOr(req.ReferenceID, transactionID)

	var credit *LedgerEntry
	err = s.transaction(ctx, func(tx *gorm.DB) error {
		if _, err := s.appendEntry(ctx, tx, leg{
			account:       req.From,
			entryType:     EntryTypeDebit,
			amount:        req.Amount,
			transactionID: transactionID,
			referenceID:   reference,
			description:   req.Description,
			metadata:      meta,
		}); err != nil {
			return err
		}

		credit, err = s.appendEntry(ctx, tx, leg{
			account:       req.To,
			entryType:     EntryTypeCredit,
			amount:        req.Amount,
			transactionID: transactionID,
			referenceID:   reference,
			description:   req.Description,
			metadata:      meta,
		})
		return err
	})
	if err != nil {
		log.Warn("transfer failed",
			zap.String("from", req.From),
			zap.String("to", req.To),
			zap.Int64("amount", req.Amount),
			zap.Error(err),
		)
		span.RecordError(err)
		return nil, err
	}

	log.Info("transfer committed",
		zap.String("transaction_id", transactionID),
		zap.String("from", req.From),
		zap.String("to", req.To),
		zap.Int64("amount", req.Amount),
	)
	return credit, nil
}

type leg struct {
	account       string
	entryType     string
	amount        int64
	transactionID string
	referenceID   string
	description   string
	metadata      datatypes.JSON
}

func (s *Service) appendEntry(ctx context.Context, tx *gorm.DB, l leg) (*LedgerEntry, error) {
	ledgerTx := s.ledger.WithTrx(tx)
	balanceTx := s.balance.WithTrx(tx)

	delta := l.amount
	if l.entryType == EntryTypeDebit {
		delta = -l.amount
	}

	balance, err := balanceTx.FindOne(ctx, &Balance{AccountID: l.account}, option.WithLockingUpdate())
	if err != nil {
		return nil, err
	}

	var current int64
	if balance != nil {
		current = balance.Balance
	}
	if current+delta < 0 {
		return nil, errutil.UnprocessableEntity("insufficient funds", ErrInsufficientFunds,
			errutil.WithDetails(errutil.Detail{Field: "account_id", Message: l.account}))
	}

	dup, err := ledgerTx.FindOne(ctx, &LedgerEntry{AccountID: l.account, ReferenceID: l.referenceID})
	if err != nil {
		return nil, err
	}
	if dup != nil {
		return nil, errutil.Conflict("reference_id already exists", ErrDuplicateReference)
	}

	last, err := ledgerTx.FindOne(ctx, &LedgerEntry{AccountID: l.account},
		option.WithSortBy(option.QuerySortBy{
			SortBy:  "sequence",
			OrderBy: "desc",
			Allow:   map[string]bool{"sequence": true},
		}),
		option.WithLockingUpdate(),
	)
	if err != nil {
		return nil, err
	}

	now := ledgerNow()
	entry := newEntry(entryParams{
		ID:            s.node.Generate().String(),
		AccountID:     l.account,
		Type:          l.entryType,
		Amount:        l.amount,
		TransactionID: l.transactionID,
		ReferenceID:   l.referenceID,
		Description:   l.description,
		Metadata:      l.metadata,
		Previous:      last,
		Now:           now,
	})
	if err := ledgerTx.Create(ctx, entry); err != nil {
		return nil, err
	}

	if balance == nil {
		if err := balanceTx.Create(ctx, &Balance{
			ID:        s.node.Generate().String(),
			AccountID: l.account,
			Balance:   delta,
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			return nil, err
		}
		return entry, nil
	}

	if err := balanceTx.Update(ctx, balance.ID, map[string]any{
		"balance":    gorm.Expr("balance + ?", delta),
		"updated_at": now,
	}); err != nil {
		return nil, err
	}

	return entry, nil
}

// GetBalance returns the current balance of account. Unknown accounts have a
// zero balance.
func (s *Service) GetBalance(ctx context.Context, account string) (*Balance, error) {
	balance, err := s.balance.FindOne(ctx, &Balance{AccountID: account})
	if err != nil {
		logger.FromContext(ctx).Error("failed to query balance", zap.String("account_id", account), zap.Error(err))
		return nil, err
	}
	if balance == nil {
		return &Balance{AccountID: account}, nil
	}
	return balance, nil
}

func (s *Service) ListEntries(ctx context.Context, account string) ([]*LedgerEntry, error) {
	entries, err := s.ledger.Find(ctx, &LedgerEntry{AccountID: account}, option.WithSortBy(option.QuerySortBy{
		SortBy:  "sequence",
		OrderBy: "asc",
		Allow:   map[string]bool{"sequence": true},
	}))
	if err != nil {
		logger.FromContext(ctx).Error("failed to query list entries", zap.String("account_id", account), zap.Error(err))
		return nil, err
	}
	return entries, nil
}

type VerifyResult struct {
	AccountID string `json:"account_id"`
	Valid     bool   `json:"valid"`
	Entries   int    `json:"entries"`
	// BrokenAt is the sequence of the first entry that fails verification.
	BrokenAt int64 `json:"broken_at,omitempty"`
}

// VerifyChain recomputes every hash of the account's chain and checks each
// link points at its predecessor.
func (s *Service) VerifyChain(ctx context.Context, account string) (*VerifyResult, error) {
	entries, err := s.ListEntries(ctx, account)
	if err != nil {
		return nil, err
	}

	res := &VerifyResult{AccountID: account, Valid: true, Entries: len(entries)}
	previous := genesisHash
	for i, entry := range entries {
		if entry.Sequence != int64(i+1) || entry.PreviousHash != previous || entry.Hash != entry.GenerateHash() {
			res.Valid = false
			res.BrokenAt = entry.Sequence
			logger.FromContext(ctx).Warn("ledger chain broken",
				zap.String("account_id", account),
				zap.Int64("sequence", entry.Sequence),
			)
			return res, nil
		}
		previous = entry.Hash
	}
	return res, nil
}

func marshalMetadata(m map[string]any) (datatypes.JSON, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func referenceOr(ref, fallback string) string {
	if ref != "" {
		return ref
	}
	return fallback
}
