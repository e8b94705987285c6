package swap

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/kaifufi/swap-sdk-go/chain"
	"github.com/kaifufi/swap-sdk-go/events"
	"github.com/kaifufi/swap-sdk-go/metrics"
	"github.com/kaifufi/swap-sdk-go/state"
)

// Transferer is the external asset transfer capability. Every transfer
// either completes or returns an error. Snapshot and RevertToSnapshot let
// the engine roll back legs of a call that fails later on.
type Transferer interface {
	TransferNative(ctx context.Context, from, to common.Address, amount *big.Int) error
	TransferToken(ctx context.Context, token, from, to common.Address, param *big.Int, mode chain.TransferMode) error
	Snapshot() int
	RevertToSnapshot(id int)
}

// Finalizer is implemented by transferers that settle queued legs once the
// outermost call succeeded.
type Finalizer interface {
	Finalize(ctx context.Context) error
}

// Call identifies who invokes an operation and the native value attached to it
type Call struct {
	Sender common.Address
	Value  *big.Int
}

func (c Call) value() *big.Int {
	if c.Value == nil {
		return new(big.Int)
	}
	return c.Value
}

// EngineConfig holds the collaborators of an Engine
type EngineConfig struct {
	VerifyingContract common.Address
	Store             state.Store
	Assets            Transferer
	Sinks             []events.Sink
	Logger            logrus.FieldLogger
	Now               func() time.Time
}

// Engine settles signed orders. Top-level calls are serialized; a call made
// from inside a transfer of a running call (through its context) executes
// nested in that call and sees its uncommitted state.
type Engine struct {
	mu       sync.Mutex
	store    state.Store
	assets   Transferer
	sinks    []events.Sink
	logger   logrus.FieldLogger
	now      func() time.Time
	registry *Registry
	verifier *chain.Verifier
}

type frameKey struct{}

// frame is the state of one executing call
type frame struct {
	engine *Engine
	view   *state.View
	events []events.Event
}

func (f *frame) emit(ev events.Event) {
	f.events = append(f.events, ev)
}

// NewEngine creates a settlement engine
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Store == nil {
		return nil, &InvalidParamError{Message: "store is required"}
	}
	if cfg.Assets == nil {
		return nil, &InvalidParamError{Message: "asset transferer is required"}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Engine{
		store:    cfg.Store,
		assets:   cfg.Assets,
		sinks:    cfg.Sinks,
		logger:   cfg.Logger.WithField("component", "engine"),
		now:      cfg.Now,
		registry: NewRegistry(cfg.Now),
		verifier: chain.NewVerifier(chain.NewEIP712Domain(cfg.VerifyingContract)),
	}, nil
}

// Verifier returns the signature verifier bound to this engine's domain
func (e *Engine) Verifier() *chain.Verifier {
	return e.verifier
}

// Status returns the committed status of (maker, id)
func (e *Engine) Status(maker common.Address, id *big.Int) (state.Status, error) {
	return e.store.Status(maker, id)
}

// IsAuthorized reports whether delegate may currently act for approver
func (e *Engine) IsAuthorized(approver, delegate common.Address) (bool, error) {
	return e.registry.IsAuthorized(e.store, approver, delegate)
}

// Authorize lets call.Sender empower delegate until expiry
func (e *Engine) Authorize(ctx context.Context, call Call, delegate common.Address, expiry *big.Int) error {
	err := e.run(ctx, func(ctx context.Context, f *frame) error {
		if err := checkUint256(uint256Field{"expiry", expiry}); err != nil {
			return err
		}
		ev, err := e.registry.Authorize(f.view, call.Sender, delegate, expiry)
		if err != nil {
			return err
		}
		f.emit(ev)
		return nil
	})
	if err == nil {
		metrics.Authorizations.Inc()
	}
	return err
}

// Revoke clears any delegation from call.Sender to delegate
func (e *Engine) Revoke(ctx context.Context, call Call, delegate common.Address) error {
	err := e.run(ctx, func(ctx context.Context, f *frame) error {
		f.emit(e.registry.Revoke(f.view, call.Sender, delegate))
		return nil
	})
	if err == nil {
		metrics.Revocations.Inc()
	}
	return err
}

// Swap settles a structured order signed by the maker or one of its delegates
func (e *Engine) Swap(ctx context.Context, call Call, order *chain.Order, sig *chain.Signature) error {
	start := time.Now()
	err := e.run(ctx, func(ctx context.Context, f *frame) error {
		return e.swap(ctx, f, call, order, sig)
	})
	e.observe("swap", start, err)
	return err
}

func (e *Engine) swap(ctx context.Context, f *frame, call Call, order *chain.Order, sig *chain.Signature) error {
	if order == nil || sig == nil {
		return &InvalidParamError{Message: "order and signature are required"}
	}
	if order.TakeID == nil || order.KillID == nil || order.Maker.Param == nil || order.Taker.Param == nil {
		return &InvalidParamError{Message: "order identifiers and params are required"}
	}
	if order.HasAffiliate() && order.Affiliate.Param == nil {
		return &InvalidParamError{Message: "affiliate param is required"}
	}
	if err := checkUint256(
		uint256Field{"takeId", order.TakeID},
		uint256Field{"killId", order.KillID},
		uint256Field{"expiry", order.Expiry},
		uint256Field{"maker param", order.Maker.Param},
		uint256Field{"taker param", order.Taker.Param},
		uint256Field{"affiliate param", order.Affiliate.Param},
		uint256Field{"value", call.Value},
	); err != nil {
		return err
	}

	if order.Expiry == nil || order.Expiry.Cmp(e.timestamp()) <= 0 {
		return ErrOrderExpired
	}

	maker := order.Maker.Wallet
	takeStatus, err := f.view.Status(maker, order.TakeID)
	if err != nil {
		return fmt.Errorf("failed to read order status: %w", err)
	}
	switch takeStatus {
	case state.StatusTaken:
		return ErrOrderAlreadyTaken
	case state.StatusCanceled:
		return ErrOrderAlreadyCanceled
	}

	killStatus, err := f.view.Status(maker, order.KillID)
	if err != nil {
		return fmt.Errorf("failed to read order status: %w", err)
	}
	if killStatus == state.StatusCanceled {
		return ErrOrderAlreadyCanceled
	}

	if err := e.checkSender(f, call, order.Taker.Wallet); err != nil {
		return err
	}

	signerOK, err := e.registry.IsAuthorized(f.view, maker, sig.Signer)
	if err != nil {
		return err
	}
	if !signerOK {
		return ErrSignerUnauthorized
	}

	if !e.verifier.IsValid(order, sig) {
		return ErrSignatureInvalid
	}

	// Consume the order before any asset moves so a reentrant call sees it taken.
	f.view.SetStatus(maker, order.TakeID, state.StatusTaken)

	if err := e.takerLeg(ctx, call, order.Taker, maker, chain.TransferSafe); err != nil {
		return err
	}

	if err := e.assets.TransferToken(ctx, order.Maker.Token, maker, order.Taker.Wallet, order.Maker.Param, chain.TransferSafe); err != nil {
		return fmt.Errorf("maker leg failed: %w", err)
	}

	if order.HasAffiliate() {
		if err := e.assets.TransferToken(ctx, order.Affiliate.Token, maker, order.Affiliate.Wallet, order.Affiliate.Param, chain.TransferSafe); err != nil {
			return fmt.Errorf("affiliate leg failed: %w", err)
		}
	}

	f.emit(events.NewSwapEvent(order))
	return nil
}

// SwapSimple settles a flat legacy order. Unlike Swap, the signature must
// come from the maker wallet itself; delegated signers are not accepted.
func (e *Engine) SwapSimple(ctx context.Context, call Call, order *chain.SimpleOrder, v uint8, r, s [32]byte) error {
	start := time.Now()
	err := e.run(ctx, func(ctx context.Context, f *frame) error {
		return e.swapSimple(ctx, f, call, order, v, r, s)
	})
	e.observe("swap_simple", start, err)
	return err
}

func (e *Engine) swapSimple(ctx context.Context, f *frame, call Call, order *chain.SimpleOrder, v uint8, r, s [32]byte) error {
	if order == nil || order.ID == nil || order.MakerParam == nil || order.TakerParam == nil {
		return &InvalidParamError{Message: "order identifier and params are required"}
	}
	if err := checkUint256(
		uint256Field{"id", order.ID},
		uint256Field{"expiry", order.Expiry},
		uint256Field{"maker param", order.MakerParam},
		uint256Field{"taker param", order.TakerParam},
		uint256Field{"value", call.Value},
	); err != nil {
		return err
	}

	if order.Expiry == nil || order.Expiry.Cmp(e.timestamp()) <= 0 {
		return ErrOrderExpired
	}

	status, err := f.view.Status(order.MakerWallet, order.ID)
	if err != nil {
		return fmt.Errorf("failed to read order status: %w", err)
	}
	if status != state.StatusOpen {
		return ErrOrderUnavailable
	}

	if err := e.checkSender(f, call, order.TakerWallet); err != nil {
		return err
	}

	if !e.verifier.IsValidSimple(order, v, r, s) {
		return ErrSignatureInvalid
	}

	f.view.SetStatus(order.MakerWallet, order.ID, state.StatusTaken)

	taker := chain.Party{Wallet: order.TakerWallet, Token: order.TakerToken, Param: order.TakerParam}
	if err := e.takerLeg(ctx, call, taker, order.MakerWallet, chain.TransferUnchecked); err != nil {
		return err
	}

	if err := e.assets.TransferToken(ctx, order.MakerToken, order.MakerWallet, order.TakerWallet, order.MakerParam, chain.TransferUnchecked); err != nil {
		return fmt.Errorf("maker leg failed: %w", err)
	}

	f.emit(&events.SwapEvent{
		TakeID:         order.ID,
		Maker:          order.MakerWallet,
		MakerParam:     order.MakerParam,
		MakerToken:     order.MakerToken,
		Taker:          order.TakerWallet,
		TakerParam:     order.TakerParam,
		TakerToken:     order.TakerToken,
		AffiliateParam: new(big.Int),
		KillID:         order.ID,
	})
	return nil
}

// Cancel moves every open identifier of call.Sender to canceled. Identifiers
// already taken or canceled are skipped.
func (e *Engine) Cancel(ctx context.Context, call Call, ids []*big.Int) error {
	var applied, skipped int
	err := e.run(ctx, func(ctx context.Context, f *frame) error {
		applied, skipped = 0, 0
		for _, id := range ids {
			if id == nil {
				return &InvalidParamError{Message: "cancel id must not be nil"}
			}
			if err := checkUint256(uint256Field{"cancel id", id}); err != nil {
				return err
			}
			status, err := f.view.Status(call.Sender, id)
			if err != nil {
				return fmt.Errorf("failed to read order status: %w", err)
			}
			if status != state.StatusOpen {
				skipped++
				continue
			}
			f.view.SetStatus(call.Sender, id, state.StatusCanceled)
			f.emit(&events.CancelEvent{ID: new(big.Int).Set(id), Maker: call.Sender})
			applied++
		}
		return nil
	})
	if err == nil {
		metrics.CancelsApplied.Add(float64(applied))
		metrics.CancelsSkipped.Add(float64(skipped))
	}
	return err
}

// checkSender requires the caller to be the taker or one of its delegates
func (e *Engine) checkSender(f *frame, call Call, taker common.Address) error {
	if call.Sender == taker {
		return nil
	}
	ok, err := e.registry.IsAuthorized(f.view, taker, call.Sender)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSenderUnauthorized
	}
	return nil
}

// takerLeg pays the maker either with the attached native value or with tokens
func (e *Engine) takerLeg(ctx context.Context, call Call, taker chain.Party, maker common.Address, mode chain.TransferMode) error {
	value := call.value()
	if taker.IsNative() {
		if value.Cmp(taker.Param) != 0 {
			return ErrValueMismatch
		}
		if err := e.assets.TransferNative(ctx, call.Sender, maker, value); err != nil {
			return fmt.Errorf("taker leg failed: %w", err)
		}
		return nil
	}

	if value.Sign() != 0 {
		return ErrUnexpectedValue
	}
	if err := e.assets.TransferToken(ctx, taker.Token, taker.Wallet, maker, taker.Param, mode); err != nil {
		return fmt.Errorf("taker leg failed: %w", err)
	}
	return nil
}

// run executes fn as one all-or-nothing call
func (e *Engine) run(ctx context.Context, fn func(ctx context.Context, f *frame) error) error {
	if parent, ok := ctx.Value(frameKey{}).(*frame); ok && parent.engine == e {
		return e.runNested(ctx, parent, fn)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	f := &frame{engine: e, view: state.NewView(e.store)}
	snap := e.assets.Snapshot()
	if err := fn(context.WithValue(ctx, frameKey{}, f), f); err != nil {
		e.assets.RevertToSnapshot(snap)
		return err
	}

	undo, err := f.view.Inverse()
	if err != nil {
		e.assets.RevertToSnapshot(snap)
		return fmt.Errorf("failed to prepare commit: %w", err)
	}
	if err := f.view.Commit(); err != nil {
		e.assets.RevertToSnapshot(snap)
		return fmt.Errorf("failed to commit state: %w", err)
	}

	if fin, ok := e.assets.(Finalizer); ok {
		if err := fin.Finalize(ctx); err != nil {
			if errors.Is(err, chain.ErrSettlementPending) {
				// the transaction may still be mined, so the consumed ids stay consumed
				e.logger.WithError(err).Warn("settlement sent but unconfirmed, keeping committed state")
				return fmt.Errorf("failed to finalize transfers: %w", err)
			}
			e.assets.RevertToSnapshot(snap)
			if undoErr := e.store.Apply(undo); undoErr != nil {
				e.logger.WithFields(logrus.Fields{
					"finalize_error": err,
					"undo_error":     undoErr,
				}).Error("failed to roll back state after settlement failure")
			}
			return fmt.Errorf("failed to finalize transfers: %w", err)
		}
	}

	e.publish(ctx, f.events)
	return nil
}

// runNested executes a reentrant call inside its parent frame
func (e *Engine) runNested(ctx context.Context, parent *frame, fn func(ctx context.Context, f *frame) error) error {
	f := &frame{engine: e, view: parent.view.Child()}
	snap := e.assets.Snapshot()
	if err := fn(context.WithValue(ctx, frameKey{}, f), f); err != nil {
		e.assets.RevertToSnapshot(snap)
		return err
	}
	if err := f.view.Commit(); err != nil {
		e.assets.RevertToSnapshot(snap)
		return err
	}
	parent.events = append(parent.events, f.events...)
	return nil
}

func (e *Engine) publish(ctx context.Context, pending []events.Event) {
	for _, ev := range pending {
		e.logger.WithField("event", ev.Name()).Debugf("%+v", ev)
		metrics.EventsPublished.WithLabelValues(ev.Name()).Inc()
		for _, sink := range e.sinks {
			if err := sink.Publish(ctx, ev); err != nil {
				metrics.EventsFailed.WithLabelValues(ev.Name()).Inc()
				e.logger.WithFields(logrus.Fields{
					"event": ev.Name(),
					"error": err,
				}).Warn("failed to publish event")
			}
		}
	}
}

func (e *Engine) observe(path string, start time.Time, err error) {
	metrics.SettleDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
	if err == nil {
		metrics.SwapsSettled.WithLabelValues(path).Inc()
		return
	}
	reason := rejectionReason(err)
	metrics.SwapsRejected.WithLabelValues(path, reason).Inc()
	e.logger.WithFields(logrus.Fields{
		"path":   path,
		"reason": reason,
		"error":  err,
	}).Info("swap rejected")
}

func (e *Engine) timestamp() *big.Int {
	return big.NewInt(e.now().Unix())
}

var rejectionReasons = []struct {
	err    error
	reason string
}{
	{ErrInvalidParam, "invalid_param"},
	{ErrOrderExpired, "order_expired"},
	{ErrOrderAlreadyTaken, "order_taken"},
	{ErrOrderAlreadyCanceled, "order_canceled"},
	{ErrOrderUnavailable, "order_unavailable"},
	{ErrSenderUnauthorized, "sender_unauthorized"},
	{ErrSignerUnauthorized, "signer_unauthorized"},
	{ErrSignatureInvalid, "signature_invalid"},
	{ErrValueMismatch, "value_mismatch"},
	{ErrUnexpectedValue, "unexpected_value"},
	{chain.ErrSettlementPending, "settlement_pending"},
}

func rejectionReason(err error) string {
	for _, r := range rejectionReasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return "transfer_failed"
}
