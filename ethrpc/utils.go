package ethrpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ReceiptPollInterval is how often WaitForTxnReceipt asks the node for a receipt.
var ReceiptPollInterval = 1 * time.Second

// WaitForTxnReceipt polls the node until the receipt of txHash is available. It
// waits for 120 seconds at most when ctx has no deadline.
func WaitForTxnReceipt(ctx context.Context, provider ReceiptReader, txHash common.Hash) (*types.Receipt, error) {
	var clearTimeout context.CancelFunc
	if _, ok := ctx.Deadline(); !ok {
		ctx, clearTimeout = context.WithTimeout(ctx, 120*time.Second)
		defer clearTimeout()
	}

	ticker := time.NewTicker(ReceiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := provider.TransactionReceipt(ctx, txHash)
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return nil, err
		}
		if receipt != nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("ethrpc: wait receipt for %v: %w", txHash, ctx.Err())
		case <-ticker.C:
		}
	}
}
