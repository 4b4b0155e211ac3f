// Package chain wraps JSON-RPC access to an EVM chain: fee and nonce
// queries, broadcast with confirmation polling, and read-only contract
// calls.
package chain

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"relay-core/pkg/config"
)

// Backend is the RPC surface the relay needs. Satisfied by
// *ethclient.Client; tests substitute an in-memory fake.
type Backend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Client binds a backend to one chain's identity and confirmation timing.
type Client struct {
	Backend Backend
	ChainID *big.Int
	Name    string

	ConfirmTimeout time.Duration
	PollInterval   time.Duration
}

// NewClient builds a Client from chain config, dialing the RPC endpoint.
func NewClient(ctx context.Context, cfg config.ChainConfig, relay config.RelayConfig) (*Client, error) {
	ec, err := ethclient.DialContext(ctx, cfg.RpcURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		Backend:        ec,
		ChainID:        big.NewInt(cfg.ChainID),
		Name:           cfg.Name,
		ConfirmTimeout: time.Duration(relay.ConfirmTimeoutSec) * time.Second,
		PollInterval:   time.Duration(relay.PollIntervalMs) * time.Millisecond,
	}, nil
}

// PendingNonce returns the sponsor's next nonce including pending txs.
func (c *Client) PendingNonce(ctx context.Context, sponsor common.Address) (uint64, error) {
	return c.Backend.PendingNonceAt(ctx, sponsor)
}
