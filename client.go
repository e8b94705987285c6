package swap

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/kaifufi/swap-sdk-go/chain"
	"github.com/kaifufi/swap-sdk-go/events"
	"github.com/kaifufi/swap-sdk-go/ledger"
	"github.com/kaifufi/swap-sdk-go/notify"
	"github.com/kaifufi/swap-sdk-go/state"
)

// Client wires an Engine to the store, asset backend and event sinks
// selected by a Config.
type Client struct {
	engine   *Engine
	store    state.Store
	book     *ledger.Book
	caller   *chain.ContractCaller
	natsSink *notify.NATSSink
	backend  SettlementBackend
	logger   logrus.FieldLogger
}

// ClientOption customizes a Client before its engine is built
type ClientOption func(*clientOptions)

type clientOptions struct {
	logger logrus.FieldLogger
	sinks  []events.Sink
}

// WithLogger replaces the logger built from the log settings
func WithLogger(logger logrus.FieldLogger) ClientOption {
	return func(o *clientOptions) { o.logger = logger }
}

// WithSinks adds event sinks next to the configured ones
func WithSinks(sinks ...events.Sink) ClientOption {
	return func(o *clientOptions) { o.sinks = append(o.sinks, sinks...) }
}

// NewClient creates a settlement client from config
func NewClient(config *Config, opts ...ClientOption) (*Client, error) {
	if config == nil {
		return nil, &InvalidParamError{Message: "config is required"}
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		logger, err := NewLogger(config.Log)
		if err != nil {
			return nil, err
		}
		o.logger = logger
	}

	c := &Client{logger: o.logger}
	if err := c.open(config, o); err != nil {
		if closeErr := c.Close(); closeErr != nil {
			c.logger.WithError(closeErr).Warn("failed to release resources after setup failure")
		}
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"verifying_contract": config.VerifyingContractAddress().Hex(),
		"backend":            c.backend,
		"persistent":         config.Store.Path != "",
		"nats":               c.natsSink != nil,
	}).Info("swap client ready")
	return c, nil
}

func (c *Client) open(config *Config, o clientOptions) error {
	if config.Store.Path == "" {
		c.store = state.NewMemStore()
	} else {
		store, err := state.OpenBadgerStore(config.Store.Path)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		c.store = store
	}

	var assets Transferer
	if config.Chain.RPCURL != "" {
		caller, err := chain.NewContractCaller(config.Chain.RPCURL, config.Chain.PrivateKey, chain.ContractCallerConfig{
			MultisendAddr:  common.HexToAddress(config.Chain.MultisendAddr),
			ReceiptTimeout: config.Chain.receiptTimeout(),
			Logger:         c.logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create contract caller: %w", err)
		}
		c.caller = caller
		c.backend = BackendChain
		assets = caller
	} else {
		c.book = ledger.NewBook()
		c.backend = BackendLedger
		assets = c.book
	}

	sinks := []events.Sink{notify.NewLogSink(c.logger)}
	if config.NATS.URL != "" {
		natsSink, err := notify.NewNATSSink(notify.NATSConfig{
			URL:           config.NATS.URL,
			SubjectPrefix: config.NATS.SubjectPrefix,
			Timeout:       config.NATS.timeout(),
		}, c.logger)
		if err != nil {
			return err
		}
		c.natsSink = natsSink
		sinks = append(sinks, natsSink)
	}
	sinks = append(sinks, o.sinks...)

	engine, err := NewEngine(EngineConfig{
		VerifyingContract: config.VerifyingContractAddress(),
		Store:             c.store,
		Assets:            assets,
		Sinks:             sinks,
		Logger:            c.logger,
	})
	if err != nil {
		return err
	}
	c.engine = engine
	return nil
}

// Close releases the store, the chain connection and the NATS connection
func (c *Client) Close() error {
	var result *multierror.Error
	if c.natsSink != nil {
		if err := c.natsSink.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close NATS sink: %w", err))
		}
	}
	if c.caller != nil {
		c.caller.Close()
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close store: %w", err))
		}
	}
	return result.ErrorOrNil()
}

// Engine returns the underlying settlement engine
func (c *Client) Engine() *Engine {
	return c.engine
}

// Backend reports which asset backend the client settles on
func (c *Client) Backend() SettlementBackend {
	return c.backend
}

// Ledger returns the in-process ledger, or nil when settling on-chain
func (c *Client) Ledger() *ledger.Book {
	return c.book
}

// Swap settles a structured signed order
func (c *Client) Swap(ctx context.Context, call Call, order *chain.SignedOrder) error {
	if order == nil {
		return &InvalidParamError{Message: "signed order is required"}
	}
	return c.engine.Swap(ctx, call, order.Order, order.Signature)
}

// SwapSimple settles a flat order signed by its maker wallet
func (c *Client) SwapSimple(ctx context.Context, call Call, order *chain.SimpleOrder, v uint8, r, s [32]byte) error {
	return c.engine.SwapSimple(ctx, call, order, v, r, s)
}

// Cancel cancels the caller's open identifiers. An empty list is a no-op.
// On a badger store the whole list is written in one transaction, so very
// large lists fail with state.ErrDeltaTooLarge and must be split.
func (c *Client) Cancel(ctx context.Context, call Call, ids []*big.Int) error {
	return c.engine.Cancel(ctx, call, ids)
}

// Authorize lets the caller's delegate act for it until expiry
func (c *Client) Authorize(ctx context.Context, call Call, delegate common.Address, expiry *big.Int) error {
	return c.engine.Authorize(ctx, call, delegate, expiry)
}

// Revoke withdraws a delegation of the caller
func (c *Client) Revoke(ctx context.Context, call Call, delegate common.Address) error {
	return c.engine.Revoke(ctx, call, delegate)
}

// IsAuthorized reports whether delegate may currently act for approver
func (c *Client) IsAuthorized(approver, delegate common.Address) (bool, error) {
	return c.engine.IsAuthorized(approver, delegate)
}

// GetStatus returns the committed status of (maker, id)
func (c *Client) GetStatus(maker common.Address, id *big.Int) (*StatusResult, error) {
	if id == nil {
		return nil, &InvalidParamError{Message: "id is required"}
	}
	status, err := c.engine.Status(maker, id)
	if err != nil {
		return nil, err
	}
	return &StatusResult{
		Maker:  maker.Hex(),
		ID:     id.String(),
		Status: status.String(),
	}, nil
}
