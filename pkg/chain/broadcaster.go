package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"relay-core/pkg/errno"
	"relay-core/pkg/logger"
	"relay-core/pkg/monitor"
)

// BroadcastResult reports a transaction's fate after one confirmation.
type BroadcastResult struct {
	TxHash      common.Hash
	BlockNumber uint64
	Status      uint64
	GasUsed     uint64
	Logs        []*types.Log
}

// Submit broadcasts a signed transaction and polls for its receipt until
// ConfirmTimeout. A mined-but-reverted transaction returns the result
// together with ErrBroadcastReverted so the caller can inspect the receipt.
// A timeout means unknown fate, not failure: the tx may still confirm.
func (c *Client) Submit(ctx context.Context, tx *types.Transaction) (*BroadcastResult, error) {
	start := time.Now()
	if err := c.Backend.SendTransaction(ctx, tx); err != nil {
		return nil, ClassifySendError(err)
	}
	logger.Info("transaction broadcast",
		zap.String("chain", c.Name),
		zap.String("txHash", tx.Hash().Hex()),
		zap.Uint64("nonce", tx.Nonce()))

	deadline := time.Now().Add(c.ConfirmTimeout)
	ticker := time.NewTicker(c.PollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.Backend.TransactionReceipt(ctx, tx.Hash())
		switch {
		case err == nil:
			result := &BroadcastResult{
				TxHash:      receipt.TxHash,
				BlockNumber: receipt.BlockNumber.Uint64(),
				Status:      receipt.Status,
				GasUsed:     receipt.GasUsed,
				Logs:        receipt.Logs,
			}
			if monitor.Business != nil {
				monitor.Business.BroadcastDuration.WithLabelValues(c.Name).Observe(time.Since(start).Seconds())
			}
			if receipt.Status == types.ReceiptStatusFailed {
				return result, errno.ErrBroadcastReverted.WithDetail(
					fmt.Sprintf("tx %s reverted in block %d", receipt.TxHash.Hex(), result.BlockNumber))
			}
			return result, nil
		case errors.Is(err, ethereum.NotFound):
			// not mined yet, keep polling
		default:
			logger.Warn("receipt poll failed",
				zap.String("chain", c.Name),
				zap.String("txHash", tx.Hash().Hex()),
				zap.Error(err))
		}

		if time.Now().After(deadline) {
			return nil, errno.ErrConfirmationTimeout.WithDetail(
				fmt.Sprintf("tx %s not yet confirmed after %s", tx.Hash().Hex(), c.ConfirmTimeout))
		}
		select {
		case <-ctx.Done():
			return nil, errno.ErrConfirmationTimeout.WithDetail(ctx.Err().Error())
		case <-ticker.C:
		}
	}
}

// ClassifySendError maps a SendTransaction error onto the broadcast error
// taxonomy. Node error strings are not standardized across clients, so this
// matches the common geth/erigon phrasings.
func ClassifySendError(err error) error {
	msg := strings.ToLower(err.Error())
	detail := err.Error()
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		detail = fmt.Sprintf("code=%d %s", rpcErr.ErrorCode(), detail)
	}

	switch {
	case strings.Contains(msg, "execution reverted"):
		return errno.ErrBroadcastReverted.WithDetail(detail)
	case strings.Contains(msg, "underpriced"), strings.Contains(msg, "fee cap"):
		return errno.ErrBroadcastUnderpriced.WithDetail(detail)
	case strings.Contains(msg, "nonce too low"):
		return errno.ErrNonceTooLow.WithDetail(detail)
	default:
		return errno.ErrBroadcastTransport.WithDetail(detail)
	}
}
