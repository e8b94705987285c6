package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
)

// Transfer leg errors reported before a leg is queued
var (
	ErrInsufficientBalance   = errors.New("insufficient token balance")
	ErrInsufficientAllowance = errors.New("insufficient token allowance")
	ErrNotTokenOwner         = errors.New("sender does not own token")
	ErrNativeNotRelayer      = errors.New("native legs must be paid by the relayer")
	ErrTransactionReverted   = errors.New("settlement transaction reverted")
	// ErrSettlementPending means the batch was sent but no receipt arrived in
	// time. The transaction may still be mined.
	ErrSettlementPending = errors.New("settlement transaction sent but not confirmed")
)

// Backend is the subset of the Ethereum client used by ContractCaller
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// ContractCallerConfig holds the settlement relayer settings
type ContractCallerConfig struct {
	MultisendAddr  common.Address
	ReceiptTimeout time.Duration
	PollInterval   time.Duration
	Logger         logrus.FieldLogger
}

// ContractCaller settles asset legs on-chain. Legs are checked against the
// current chain state as they are requested and queued into one multisend
// batch, so a settlement either lands in a single transaction or not at all.
type ContractCaller struct {
	backend        Backend
	closer         func()
	privateKey     *ecdsa.PrivateKey
	multisendAddr  common.Address
	receiptTimeout time.Duration
	pollInterval   time.Duration
	logger         logrus.FieldLogger

	mu        sync.Mutex
	pending   []MultiSendTx
	kindCache map[common.Address]bool
}

// NewContractCaller creates a new ContractCaller instance connected to rpcURL
func NewContractCaller(rpcURL string, privateKeyHex string, cfg ContractCallerConfig) (*ContractCaller, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}

	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	cc := NewContractCallerWithBackend(client, privateKey, cfg)
	cc.closer = client.Close
	return cc, nil
}

// NewContractCallerWithBackend creates a ContractCaller over an existing backend
func NewContractCallerWithBackend(backend Backend, privateKey *ecdsa.PrivateKey, cfg ContractCallerConfig) *ContractCaller {
	if cfg.ReceiptTimeout == 0 {
		cfg.ReceiptTimeout = 120 * time.Second
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}

	return &ContractCaller{
		backend:        backend,
		privateKey:     privateKey,
		multisendAddr:  cfg.MultisendAddr,
		receiptTimeout: cfg.ReceiptTimeout,
		pollInterval:   cfg.PollInterval,
		logger:         cfg.Logger.WithField("component", "contract_caller"),
		kindCache:      make(map[common.Address]bool),
	}
}

// GetSignerAddress returns the address of the relayer key
func (cc *ContractCaller) GetSignerAddress() common.Address {
	return crypto.PubkeyToAddress(cc.privateKey.PublicKey)
}

// TransferNative queues a native currency payment from the relayer
func (cc *ContractCaller) TransferNative(ctx context.Context, from, to common.Address, amount *big.Int) error {
	if from != cc.GetSignerAddress() {
		return ErrNativeNotRelayer
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()

	balance, err := cc.backend.BalanceAt(ctx, from, nil)
	if err != nil {
		return fmt.Errorf("failed to get balance: %w", err)
	}
	queued := new(big.Int).Add(cc.pendingValue(), amount)
	if balance.Cmp(queued) < 0 {
		return fmt.Errorf("%w: relayer has %s, needs %s", ErrInsufficientBalance, balance, queued)
	}

	cc.pending = append(cc.pending, MultiSendTx{
		Operation: MultiSendOperationCall,
		To:        to,
		Value:     new(big.Int).Set(amount),
	})
	return nil
}

// TransferToken queues a token leg after checking it can succeed
func (cc *ContractCaller) TransferToken(ctx context.Context, token, from, to common.Address, param *big.Int, mode TransferMode) error {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	nonFungible, err := cc.isNonFungible(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to detect token kind: %w", err)
	}

	var data []byte
	if nonFungible {
		owner, err := cc.getERC721Owner(ctx, token, param)
		if err != nil {
			return fmt.Errorf("failed to get token owner: %w", err)
		}
		if owner != from {
			return fmt.Errorf("%w: token %s id %s", ErrNotTokenOwner, token.Hex(), param)
		}
		method := "safeTransferFrom"
		if mode == TransferUnchecked {
			method = "transferFrom"
		}
		data, err = erc721ABI.Pack(method, from, to, param)
		if err != nil {
			return fmt.Errorf("failed to pack %s: %w", method, err)
		}
	} else {
		needed := new(big.Int).Add(cc.pendingDebit(token, from), param)

		balance, err := cc.getERC20Balance(ctx, token, from)
		if err != nil {
			return fmt.Errorf("failed to get balance: %w", err)
		}
		if balance.Cmp(needed) < 0 {
			return fmt.Errorf("%w: %s has %s of %s, needs %s", ErrInsufficientBalance, from.Hex(), balance, token.Hex(), needed)
		}

		allowance, err := cc.getERC20Allowance(ctx, token, from, cc.multisendAddr)
		if err != nil {
			return fmt.Errorf("failed to get allowance: %w", err)
		}
		if allowance.Cmp(needed) < 0 {
			return fmt.Errorf("%w: %s allows %s of %s, needs %s", ErrInsufficientAllowance, from.Hex(), allowance, token.Hex(), needed)
		}

		data, err = erc20ABI.Pack("transferFrom", from, to, param)
		if err != nil {
			return fmt.Errorf("failed to pack transferFrom: %w", err)
		}
	}

	cc.pending = append(cc.pending, MultiSendTx{
		Operation: MultiSendOperationCall,
		To:        token,
		Value:     big.NewInt(0),
		Data:      data,
		from:      from,
		amount:    new(big.Int).Set(param),
	})
	return nil
}

// Snapshot returns an identifier for the current batch position
func (cc *ContractCaller) Snapshot() int {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return len(cc.pending)
}

// RevertToSnapshot drops every leg queued after the snapshot was taken
func (cc *ContractCaller) RevertToSnapshot(id int) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if id >= 0 && id < len(cc.pending) {
		cc.pending = cc.pending[:id]
	}
}

// Pending returns a copy of the queued legs
func (cc *ContractCaller) Pending() []MultiSendTx {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return append([]MultiSendTx(nil), cc.pending...)
}

// Finalize submits the queued legs as one multisend transaction and waits
// for it to be mined. The queue is cleared whatever the outcome. Once the
// transaction is sent, a missing receipt is reported as ErrSettlementPending.
func (cc *ContractCaller) Finalize(ctx context.Context) error {
	cc.mu.Lock()
	txs := cc.pending
	cc.pending = nil
	cc.mu.Unlock()

	if len(txs) == 0 {
		return nil
	}

	gasLimit := multisendGasLimit(len(txs))
	if err := cc.CheckGasBalance(ctx, gasLimit); err != nil {
		return err
	}

	tx, err := cc.executeMultisend(ctx, txs, gasLimit)
	if err != nil {
		return fmt.Errorf("failed to execute multisend: %w", err)
	}

	receipt, err := cc.waitForReceipt(ctx, tx.Hash())
	if err != nil {
		return fmt.Errorf("%w: tx hash %s: %v", ErrSettlementPending, tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%w: tx hash %s", ErrTransactionReverted, tx.Hash().Hex())
	}

	cc.logger.WithFields(logrus.Fields{
		"tx_hash": tx.Hash().Hex(),
		"legs":    len(txs),
		"block":   receipt.BlockNumber,
	}).Info("settlement transaction mined")

	return nil
}

// CheckGasBalance checks if signer has enough gas tokens
func (cc *ContractCaller) CheckGasBalance(ctx context.Context, estimatedGas uint64) error {
	signerAddr := cc.GetSignerAddress()
	balance, err := cc.backend.BalanceAt(ctx, signerAddr, nil)
	if err != nil {
		return fmt.Errorf("failed to get balance: %w", err)
	}

	gasPrice, err := cc.backend.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("failed to get gas price: %w", err)
	}

	// Add 20% safety margin
	estimatedGasWithMargin := new(big.Int).Mul(new(big.Int).SetUint64(estimatedGas), big.NewInt(120))
	estimatedGasWithMargin.Div(estimatedGasWithMargin, big.NewInt(100))

	requiredEth := new(big.Int).Mul(estimatedGasWithMargin, gasPrice)

	if balance.Cmp(requiredEth) < 0 {
		return fmt.Errorf("insufficient gas balance: signer %s has %s, but needs approximately %s for gas",
			signerAddr.Hex(),
			balance.String(),
			requiredEth.String(),
		)
	}

	return nil
}

// Close closes the Ethereum client connection
func (cc *ContractCaller) Close() {
	if cc.closer != nil {
		cc.closer()
	}
}

func (cc *ContractCaller) pendingValue() *big.Int {
	total := new(big.Int)
	for _, tx := range cc.pending {
		total.Add(total, tx.Value)
	}
	return total
}

func (cc *ContractCaller) pendingDebit(token, from common.Address) *big.Int {
	total := new(big.Int)
	for _, tx := range cc.pending {
		if tx.To == token && tx.from == from && tx.amount != nil {
			total.Add(total, tx.amount)
		}
	}
	return total
}

// isNonFungible reports whether token advertises ERC721 through ERC165.
// Tokens that revert on supportsInterface are treated as ERC20.
func (cc *ContractCaller) isNonFungible(ctx context.Context, token common.Address) (bool, error) {
	if kind, ok := cc.kindCache[token]; ok {
		return kind, nil
	}

	data, err := erc721ABI.Pack("supportsInterface", ERC721InterfaceID)
	if err != nil {
		return false, err
	}

	nonFungible := false
	result, err := cc.backend.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err == nil && len(result) > 0 {
		if err := erc721ABI.UnpackIntoInterface(&nonFungible, "supportsInterface", result); err != nil {
			nonFungible = false
		}
	}

	cc.kindCache[token] = nonFungible
	return nonFungible, nil
}

// getERC20Allowance returns the ERC20 allowance for owner to spender
func (cc *ContractCaller) getERC20Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	data, err := erc20ABI.Pack("allowance", owner, spender)
	if err != nil {
		return nil, err
	}

	result, err := cc.backend.CallContract(ctx, ethereum.CallMsg{
		To:   &token,
		Data: data,
	}, nil)
	if err != nil {
		return nil, err
	}

	var allowance *big.Int
	err = erc20ABI.UnpackIntoInterface(&allowance, "allowance", result)
	if err != nil {
		return nil, err
	}

	return allowance, nil
}

// getERC20Balance returns the ERC20 balance for an account
func (cc *ContractCaller) getERC20Balance(ctx context.Context, token, account common.Address) (*big.Int, error) {
	data, err := erc20ABI.Pack("balanceOf", account)
	if err != nil {
		return nil, err
	}

	result, err := cc.backend.CallContract(ctx, ethereum.CallMsg{
		To:   &token,
		Data: data,
	}, nil)
	if err != nil {
		return nil, err
	}

	var balance *big.Int
	err = erc20ABI.UnpackIntoInterface(&balance, "balanceOf", result)
	if err != nil {
		return nil, err
	}

	return balance, nil
}

// getERC721Owner returns the current owner of a non-fungible token id
func (cc *ContractCaller) getERC721Owner(ctx context.Context, token common.Address, id *big.Int) (common.Address, error) {
	data, err := erc721ABI.Pack("ownerOf", id)
	if err != nil {
		return common.Address{}, err
	}

	result, err := cc.backend.CallContract(ctx, ethereum.CallMsg{
		To:   &token,
		Data: data,
	}, nil)
	if err != nil {
		return common.Address{}, err
	}

	var owner common.Address
	err = erc721ABI.UnpackIntoInterface(&owner, "ownerOf", result)
	if err != nil {
		return common.Address{}, err
	}

	return owner, nil
}

// waitForReceipt polls for a transaction receipt until the receipt timeout
func (cc *ContractCaller) waitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	constant, err := retry.NewConstant(cc.pollInterval)
	if err != nil {
		return nil, err
	}
	backoff := retry.WithMaxDuration(cc.receiptTimeout, constant)

	var receipt *types.Receipt
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		r, err := cc.backend.TransactionReceipt(ctx, txHash)
		if err != nil {
			return retry.RetryableError(err)
		}
		receipt = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("timeout waiting for transaction receipt %s: %w", txHash.Hex(), err)
	}

	return receipt, nil
}

// MultiSendTx represents a single transaction in a multisend batch
type MultiSendTx struct {
	Operation uint8
	To        common.Address
	Value     *big.Int
	Data      []byte

	// debit bookkeeping for fungible legs
	from   common.Address
	amount *big.Int
}

const (
	MultiSendOperationCall         uint8 = 0
	MultiSendOperationDelegateCall uint8 = 1
)

// EncodeMultisend packs the batch in the multisend transactions layout
func EncodeMultisend(txs []MultiSendTx) []byte {
	var encodedTxs []byte
	for _, tx := range txs {
		value := tx.Value
		if value == nil {
			value = new(big.Int)
		}
		// Encode: operation (1 byte) + to (20 bytes) + value (32 bytes) + dataLength (32 bytes) + data
		packed := make([]byte, 0, 1+20+32+32+len(tx.Data))
		packed = append(packed, tx.Operation)
		packed = append(packed, tx.To.Bytes()...)
		packed = append(packed, common.LeftPadBytes(value.Bytes(), 32)...)
		packed = append(packed, common.LeftPadBytes(big.NewInt(int64(len(tx.Data))).Bytes(), 32)...)
		packed = append(packed, tx.Data...)
		encodedTxs = append(encodedTxs, packed...)
	}
	return encodedTxs
}

func multisendGasLimit(legs int) uint64 {
	return 100000 + uint64(legs)*150000
}

// executeMultisend executes multiple transactions via the multisend contract
func (cc *ContractCaller) executeMultisend(ctx context.Context, txs []MultiSendTx, gasLimit uint64) (*types.Transaction, error) {
	callData, err := multisendABI.Pack("multiSend", EncodeMultisend(txs))
	if err != nil {
		return nil, fmt.Errorf("failed to pack multisend: %w", err)
	}

	chainID, err := cc.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}

	nonce, err := cc.backend.PendingNonceAt(ctx, cc.GetSignerAddress())
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := cc.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}

	value := new(big.Int)
	for _, tx := range txs {
		value.Add(value, tx.Value)
	}

	tx := types.NewTransaction(
		nonce,
		cc.multisendAddr,
		value,
		gasLimit,
		gasPrice,
		callData,
	)

	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(chainID), cc.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := cc.backend.SendTransaction(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}

	return signedTx, nil
}
