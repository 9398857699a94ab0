package contentcoin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/content-coin/pkg/contentcoin/metrics"
)

// Stage is a step of the coin creation pipeline.
type Stage string

const (
	StageNormalizing Stage = "normalizing"
	StagePublishing  Stage = "publishing"
	StageDeploying   Stage = "deploying"
	StagePersisting  Stage = "persisting"
	StageNotifying   Stage = "notifying"
	StageDone        Stage = "done"
)

// Outcome is the terminal state of a pipeline run.
type Outcome string

const (
	OutcomeDone               Outcome = "done"
	OutcomePartiallyCompleted Outcome = "partially_completed"
	OutcomeFailed             Outcome = "failed"
)

// BaseChainID is the chain coins are deployed to unless configured otherwise.
const BaseChainID int64 = 8453

// CreateCoinRequest is one coin creation attempt.
type CreateCoinRequest struct {
	Source ContentSource
	// Name and Symbol override the values suggested by the content.
	Name          string
	Symbol        string
	CreatorWallet string
	Email         string
	// PayoutRecipient and PlatformReferrer default to the creator.
	PayoutRecipient  string
	PlatformReferrer string
	Session          ChainSession
	// IdempotencyKey lets a retried request resume after the deployment
	// instead of deploying again. A retry that arrives while the first run
	// is still publishing or deploying fails with ErrRequestInProgress.
	IdempotencyKey string
}

// CreateCoinResult reports how far a run got. Deployment is set whenever the
// coin exists on-chain, even if the run ended PartiallyCompleted.
type CreateCoinResult struct {
	Outcome    Outcome
	Stage      Stage
	Published  *PublishedContent
	Deployment *Deployment
	Coin       *CoinRecord
	Warnings   []error
}

// Pipeline sequences normalization, publishing, deployment, persistence and
// notification for a single coin.
type Pipeline struct {
	normalizer *Normalizer
	publisher  *Publisher
	catalog    CatalogStore
	notifier   Notifier
	ledger     DeploymentLedger
	chainID    int64
	logger     *slog.Logger
	now        func() time.Time
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

func WithNormalizer(n *Normalizer) PipelineOption {
	return func(p *Pipeline) {
		p.normalizer = n
	}
}

func WithPublisher(pub *Publisher) PipelineOption {
	return func(p *Pipeline) {
		p.publisher = pub
	}
}

func WithCatalogStore(store CatalogStore) PipelineOption {
	return func(p *Pipeline) {
		p.catalog = store
	}
}

func WithNotifier(n Notifier) PipelineOption {
	return func(p *Pipeline) {
		p.notifier = n
	}
}

// WithLedger enables idempotency keys.
func WithLedger(l DeploymentLedger) PipelineOption {
	return func(p *Pipeline) {
		p.ledger = l
	}
}

// WithChainID sets the chain sessions must be bound to.
func WithChainID(id int64) PipelineOption {
	return func(p *Pipeline) {
		p.chainID = id
	}
}

func WithLogger(l *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = l
	}
}

func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		p.now = now
	}
}

// NewPipeline requires a publisher and a catalog store.
func NewPipeline(options ...PipelineOption) (*Pipeline, error) {
	p := &Pipeline{
		normalizer: NewNormalizer(),
		notifier:   NoopNotifier{},
		chainID:    BaseChainID,
		logger:     slog.Default(),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, option := range options {
		option(p)
	}
	if p.publisher == nil {
		return nil, errors.New("publisher is required")
	}
	if p.catalog == nil {
		return nil, errors.New("catalog store is required")
	}
	return p, nil
}

// CreateCoin runs the pipeline to a terminal state.
//
// A run that fails before the deployment returns the partial result and a
// *StageError. Once the deployment succeeded CreateCoin never returns an
// error: catalog and notification failures end up in Warnings.
func (p *Pipeline) CreateCoin(ctx context.Context, req CreateCoinRequest) (*CreateCoinResult, error) {
	res := &CreateCoinResult{Stage: StageNormalizing}

	creator, err := NormalizeAddress("creator_wallet", req.CreatorWallet)
	if err != nil {
		return p.fail(res, err)
	}
	if req.Session == nil || req.Session.Account() == "" {
		return p.fail(res, &ValidationError{Field: "session", Reason: "wallet is not connected", Err: ErrWalletNotConnected})
	}

	started := time.Now()
	normalized, err := p.normalizer.Normalize(ctx, req.Source)
	observe(StageNormalizing, started)
	if err != nil {
		return p.fail(res, err)
	}

	name := firstNonBlank(req.Name, normalized.Name)
	symbol := strings.ToUpper(firstNonBlank(req.Symbol, normalized.Symbol))
	if name == "" {
		return p.fail(res, &ValidationError{Field: "name", Reason: "is required"})
	}
	if symbol == "" {
		return p.fail(res, &ValidationError{Field: "symbol", Reason: "is required"})
	}
	payout, err := p.recipient("payout_recipient", req.PayoutRecipient, creator)
	if err != nil {
		return p.fail(res, err)
	}
	referrer, err := p.recipient("platform_referrer", req.PlatformReferrer, creator)
	if err != nil {
		return p.fail(res, err)
	}

	reserved := false
	if req.IdempotencyKey != "" && p.ledger != nil {
		recorded, err := p.ledger.Reserve(ctx, req.IdempotencyKey)
		switch {
		case errors.Is(err, ErrRequestInProgress):
			return p.fail(res, err)
		case err != nil:
			p.logger.Warn("Ledger reserve failed", "key", req.IdempotencyKey, "error", err)
		case recorded != nil:
			p.logger.Info("Resuming deployed coin", "key", req.IdempotencyKey, "address", recorded.CoinAddress)
			res.Deployment = &Deployment{Address: recorded.CoinAddress, TxHash: recorded.TransactionHash, ChainID: p.chainID}
			return p.persist(ctx, res, recorded, req.Email), nil
		default:
			reserved = true
		}
	}
	// abort ends a run that never reached the chain and frees its key.
	abort := func(err error) (*CreateCoinResult, error) {
		if reserved {
			p.release(ctx, req.IdempotencyKey)
		}
		return p.fail(res, err)
	}

	res.Stage = StagePublishing
	started = time.Now()
	published, err := p.publisher.Publish(ctx, normalized)
	observe(StagePublishing, started)
	if err != nil {
		return abort(err)
	}
	res.Published = published

	res.Stage = StageDeploying
	started = time.Now()
	deployment, err := p.deploy(ctx, req.Session, DeployParams{
		Name:             name,
		Symbol:           symbol,
		URI:              published.URI,
		Owner:            creator,
		PayoutRecipient:  payout,
		PlatformReferrer: referrer,
		ChainID:          p.chainID,
	})
	observe(StageDeploying, started)
	if err != nil {
		return abort(err)
	}
	// Point of no return: the coin exists on-chain from here on.
	res.Deployment = deployment
	p.logger.Info("Coin deployed", "address", deployment.Address, "tx", deployment.TxHash, "creator", creator)

	payload := normalized.Payload
	payload.Image = published.Metadata.Image
	if normalized.Document.Type == KindMusic {
		payload.Audio = published.Metadata.AnimationURL
	}
	now := p.now()
	coin := &CoinRecord{
		ID:              uuid.New(),
		CreatorWallet:   creator,
		Name:            name,
		Symbol:          symbol,
		CoinAddress:     deployment.Address,
		TransactionHash: deployment.TxHash,
		IPFSURI:         published.URI,
		IPFSHash:        published.CID,
		GatewayURL:      published.GatewayURL,
		Metadata:        payload,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if req.IdempotencyKey != "" && p.ledger != nil {
		if err := p.ledger.Record(ctx, req.IdempotencyKey, coin); err != nil {
			p.logger.Warn("Ledger record failed", "key", req.IdempotencyKey, "address", coin.CoinAddress, "error", err)
		}
	}

	return p.persist(ctx, res, coin, req.Email), nil
}

func (p *Pipeline) release(ctx context.Context, key string) {
	if err := p.ledger.Release(context.WithoutCancel(ctx), key); err != nil {
		p.logger.Warn("Ledger release failed", "key", key, "error", err)
	}
}

func (p *Pipeline) deploy(ctx context.Context, session ChainSession, params DeployParams) (*Deployment, error) {
	got, err := session.ChainID(ctx)
	if err != nil {
		return nil, &DeploymentError{Err: fmt.Errorf("read session chain: %w", err), Transient: true}
	}
	if got != p.chainID {
		return nil, &ChainMismatchError{Want: p.chainID, Got: got}
	}

	d, err := session.Deploy(ctx, params)
	if err != nil {
		var de *DeploymentError
		if errors.As(err, &de) || errors.Is(err, ErrChainMismatch) {
			return nil, err
		}
		return nil, &DeploymentError{Err: err}
	}
	if d == nil || d.Address == "" {
		return nil, &DeploymentError{Err: errors.New("deployment returned no contract address")}
	}
	address, err := NormalizeAddress("coin_address", d.Address)
	if err != nil {
		return nil, &DeploymentError{Err: err}
	}
	return &Deployment{Address: address, TxHash: strings.ToLower(d.TxHash), ChainID: p.chainID}, nil
}

// persist writes the creator and the coin, then notifies. Every failure here
// is downgraded to a warning.
func (p *Pipeline) persist(ctx context.Context, res *CreateCoinResult, coin *CoinRecord, email string) *CreateCoinResult {
	res.Stage = StagePersisting
	started := time.Now()
	defer observe(StagePersisting, started)

	if _, err := p.catalog.UpsertCreator(ctx, coin.CreatorWallet, email); err != nil {
		return p.partial(res, &PersistenceError{Op: "upsert creator", Err: err})
	}

	stored, err := p.catalog.InsertCoin(ctx, coin)
	if errors.Is(err, ErrDuplicateAddress) {
		existing, getErr := p.catalog.GetCoinByAddress(ctx, coin.CoinAddress)
		if getErr == nil && SameWallet(existing.CreatorWallet, coin.CreatorWallet) {
			// Already catalogued by an earlier attempt; it was announced then.
			res.Coin = existing
			return p.done(res)
		}
	}
	if err != nil {
		return p.partial(res, &PersistenceError{Op: "insert coin", Err: err})
	}
	res.Coin = stored

	res.Stage = StageNotifying
	p.notifier.Notify(ctx, NewCoinEvent{Snapshot: SnapshotFromCoin(stored)})
	return p.done(res)
}

func (p *Pipeline) recipient(field, value, creator string) (string, error) {
	if isBlank(value) {
		return creator, nil
	}
	return NormalizeAddress(field, value)
}

func (p *Pipeline) done(res *CreateCoinResult) *CreateCoinResult {
	res.Stage = StageDone
	res.Outcome = OutcomeDone
	metrics.PipelineRuns.WithLabelValues(string(OutcomeDone)).Inc()
	return res
}

func (p *Pipeline) partial(res *CreateCoinResult, err error) *CreateCoinResult {
	p.logger.Error("Coin deployed but not catalogued",
		"address", res.Deployment.Address, "tx", res.Deployment.TxHash, "stage", res.Stage, "error", err)
	metrics.StageFailures.WithLabelValues(string(res.Stage)).Inc()
	metrics.PipelineRuns.WithLabelValues(string(OutcomePartiallyCompleted)).Inc()
	res.Outcome = OutcomePartiallyCompleted
	res.Warnings = append(res.Warnings, err)
	return res
}

func (p *Pipeline) fail(res *CreateCoinResult, err error) (*CreateCoinResult, error) {
	p.logger.Warn("Coin creation failed", "stage", res.Stage, "error", err)
	metrics.StageFailures.WithLabelValues(string(res.Stage)).Inc()
	metrics.PipelineRuns.WithLabelValues(string(OutcomeFailed)).Inc()
	res.Outcome = OutcomeFailed
	return res, &StageError{Stage: res.Stage, Err: err}
}

func observe(stage Stage, started time.Time) {
	metrics.StageDuration.WithLabelValues(string(stage)).Observe(time.Since(started).Seconds())
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
