package ethtxn

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// IntentReader is the chain state FillIntent needs. *ethrpc.Provider satisfies it.
type IntentReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

// FillIntent returns a copy of intent with ChainID and Nonce assigned from the chain
// when they are absent. Fields the caller has set are left as they are.
func FillIntent(ctx context.Context, reader IntentReader, from common.Address, intent *TransactionIntent) (*TransactionIntent, error) {
	if intent == nil {
		return nil, fmt.Errorf("ethtxn: intent is required")
	}
	if reader == nil {
		return nil, fmt.Errorf("ethtxn: reader is not set")
	}

	filled := intent.clone()

	if filled.ChainID == nil {
		chainID, err := reader.ChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("ethtxn: failed to get chain id: %w", err)
		}
		filled.ChainID = chainID
	}

	if filled.Nonce == nil {
		nonce, err := reader.PendingNonceAt(ctx, from)
		if err != nil {
			return nil, fmt.Errorf("ethtxn: failed to get pending nonce: %w", err)
		}
		filled.Nonce = nonce
	}

	return filled, nil
}

func (t *TransactionIntent) clone() *TransactionIntent {
	c := *t
	if t.To != nil {
		to := *t.To
		c.To = &to
	}
	if t.Data != nil {
		c.Data = append(hexutil.Bytes{}, t.Data...)
	}
	if t.Salt != nil {
		c.Salt = append(hexutil.Bytes{}, t.Salt...)
	}
	return &c
}
