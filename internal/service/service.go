// Package service is the entry point of the provenance ledger. It orchestrates
// validation, block construction and persistence for every transaction, and
// serves read queries over the stored entries.
package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jmerrifield20/ProvenanceLedger/internal/chain"
	"github.com/jmerrifield20/ProvenanceLedger/internal/ledger"
	"github.com/jmerrifield20/ProvenanceLedger/internal/rules"
	"github.com/jmerrifield20/ProvenanceLedger/internal/store"
	"go.uber.org/zap"
)

// Option configures a LedgerService.
type Option func(*options)

type options struct {
	hasher chain.Hasher
	signer chain.Signer
	newID  func() (string, error)
	clock  func() time.Time
}

// WithHasher selects the block hasher. Defaults to chain.FNVHasher.
func WithHasher(h chain.Hasher) Option { return func(o *options) { o.hasher = h } }

// WithSigner selects the block signer. Defaults to chain.MockSigner.
func WithSigner(s chain.Signer) Option { return func(o *options) { o.signer = s } }

// WithTxIDGenerator replaces chain.NewTxID.
func WithTxIDGenerator(fn func() (string, error)) Option { return func(o *options) { o.newID = fn } }

// WithClock replaces time.Now.
func WithClock(fn func() time.Time) Option { return func(o *options) { o.clock = fn } }

// LedgerService is the façade over the rule engine, the hash chain and the store.
type LedgerService struct {
	store   store.Store
	engine  *rules.Engine
	builder *chain.Builder
	clock   func() time.Time
	locks   *keyedMutex
	logger  *zap.Logger

	// writes is shared by submissions and held exclusively by SeedDemo.
	writes sync.RWMutex
}

// New creates a LedgerService over st. The service does not own st; the
// caller closes it.
func New(st store.Store, logger *zap.Logger, opts ...Option) *LedgerService {
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{
		store:   st,
		engine:  rules.New(),
		builder: chain.NewBuilder(o.hasher, o.signer, o.newID),
		clock:   o.clock,
		locks:   newKeyedMutex(),
		logger:  logger,
	}
}

// SubmitTransaction validates and commits one transition and returns the tx id
// of the new block. On any error nothing is persisted.
//
// Submissions for the same asset id are serialised: in process by a per-id
// lock, and across processes by the store's atomic Update.
func (s *LedgerService) SubmitTransaction(ctx context.Context, role ledger.Role, functionName string, args map[string]string) (string, error) {
	id := strings.TrimSpace(args["id"])
	if id == "" {
		return "", ledger.Errorf(ledger.KindInvalidArgument, "asset id is required")
	}

	s.writes.RLock()
	defer s.writes.RUnlock()
	unlock := s.locks.Lock(id)
	defer unlock()

	// rejected is set when fn itself fails, so validation errors keep their
	// kind while store errors become PersistenceFailure.
	var (
		blk      ledger.Block
		next     ledger.Asset
		height   int
		rejected error
	)
	err := s.store.Update(ctx, id, func(current *ledger.Entry) (ledger.Entry, error) {
		now := s.timestamp(current)
		asset, err := s.engine.Apply(role, functionName, args, current, now)
		if err != nil {
			rejected = err
			return ledger.Entry{}, err
		}

		prevHash := chain.GenesisHash
		var history []ledger.Block
		if current != nil {
			head, _ := current.Head()
			prevHash = head.CurrentHash
			history = current.History
		}
		b, err := s.builder.Build(role, functionName, args, prevHash, now)
		if err != nil {
			rejected = ledger.Persistence("build block", err)
			return ledger.Entry{}, rejected
		}

		blk, next = b, asset
		updated := ledger.Entry{Asset: asset, History: append(history, b)}
		height = len(updated.History)
		return updated, nil
	})
	switch {
	case rejected != nil:
		s.logger.Debug("transaction rejected",
			zap.String("asset_id", id),
			zap.String("function", functionName),
			zap.String("role", string(role)),
			zap.Error(rejected),
		)
		return "", rejected
	case err != nil:
		s.logger.Error("commit ledger entry", zap.String("asset_id", id), zap.Error(err))
		return "", ledger.Persistence("commit entry", err)
	}

	s.logger.Debug("transaction committed",
		zap.String("asset_id", id),
		zap.String("function", functionName),
		zap.String("role", string(role)),
		zap.String("tx_id", blk.TxID),
		zap.String("status", string(next.Status)),
		zap.Int("height", height),
	)
	return blk.TxID, nil
}

// QueryAsset returns the projection and full history of id.
func (s *LedgerService) QueryAsset(ctx context.Context, id string) (ledger.Entry, error) {
	id = strings.TrimSpace(id)
	entry, err := s.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ledger.Entry{}, ledger.Errorf(ledger.KindNotFound, "asset %s does not exist", id)
	}
	if err != nil {
		return ledger.Entry{}, ledger.Persistence("load entry", err)
	}
	return entry, nil
}

// ListAssets returns the current projection of every asset in insertion order.
func (s *LedgerService) ListAssets(ctx context.Context) ([]ledger.Asset, error) {
	assets, err := s.store.List(ctx)
	if err != nil {
		return nil, ledger.Persistence("list entries", err)
	}
	if assets == nil {
		assets = []ledger.Asset{}
	}
	return assets, nil
}

// Hasher returns the hasher used for block hashes.
func (s *LedgerService) Hasher() chain.Hasher { return s.builder.Hasher() }

// timestamp returns the current time in Unix milliseconds, never earlier than
// the head of current's chain.
func (s *LedgerService) timestamp(current *ledger.Entry) int64 {
	now := s.clock().UnixMilli()
	if current != nil {
		if head, ok := current.Head(); ok && head.Timestamp > now {
			return head.Timestamp
		}
	}
	return now
}
