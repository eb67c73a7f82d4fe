package ethtxn

import (
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/setheum-labs/evmkit/ethcoder"
)

const (
	DomainName    = "Setheum EVM"
	DomainVersion = "1"

	PrimaryType = "Transaction"

	ActionCall   = "Call"
	ActionCreate = "Create"

	// DefaultValidUntil is used when the intent does not bound its validity window.
	DefaultValidUntil uint64 = math.MaxUint32
)

// transactionTypes is the EIP-712 schema of a Setheum EVM transaction. The field
// order is part of the type hash and must never change.
var transactionTypes = ethcoder.TypedDataTypes{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "salt", Type: "bytes32"},
	},
	"Transaction": {
		{Name: "action", Type: "string"},
		{Name: "to", Type: "address"},
		{Name: "nonce", Type: "uint256"},
		{Name: "tip", Type: "uint256"},
		{Name: "data", Type: "bytes"},
		{Name: "value", Type: "uint256"},
		{Name: "gasLimit", Type: "uint256"},
		{Name: "storageLimit", Type: "uint256"},
		{Name: "validUntil", Type: "uint256"},
	},
}

// TransactionTypes returns a copy of the Transaction typed data schema.
func TransactionTypes() ethcoder.TypedDataTypes {
	return transactionTypes.Copy()
}

// TransactionIntent describes a call or contract creation to be signed as EIP-712
// typed data. Integer-like fields accept any value understood by ParseQuantity, a
// nil field is treated as absent.
type TransactionIntent struct {
	// Action is a human readable label. If empty, it will be derived from To.
	Action string `json:"action,omitempty"`

	// To is the callee, nil means contract creation.
	To *common.Address `json:"to,omitempty"`

	Nonce        any `json:"nonce,omitempty"`
	Tip          any `json:"tip,omitempty"`
	Value        any `json:"value,omitempty"`
	GasLimit     any `json:"gasLimit,omitempty"`
	StorageLimit any `json:"storageLimit,omitempty"`
	ValidUntil   any `json:"validUntil,omitempty"`

	Data hexutil.Bytes `json:"data,omitempty"`

	// Salt is the domain salt, expected to be 32 bytes. Required.
	Salt hexutil.Bytes `json:"salt,omitempty"`

	// ChainID is the domain chain id. Required.
	ChainID any `json:"chainId,omitempty"`
}

// NewTypedData builds the EIP-712 typed data document of a transaction intent.
//
// Absent optional fields are filled with their defaults and every integer field of
// the message is rendered as a decimal string. The salt is passed through without
// length checks, hashing the document is what enforces bytes32.
func NewTypedData(intent *TransactionIntent) (*ethcoder.TypedData, error) {
	if intent == nil {
		return nil, ErrInvalidIntent
	}

	if len(intent.Salt) == 0 {
		return nil, missingField("salt")
	}
	chainID, err := intent.ChainIDBig()
	if err != nil {
		return nil, err
	}

	action := intent.Action
	if action == "" {
		if intent.To != nil {
			action = ActionCall
		} else {
			action = ActionCreate
		}
	}

	to := common.Address{}
	if intent.To != nil {
		to = *intent.To
	}

	if intent.Nonce == nil {
		return nil, invalidNumericField("nonce", ErrMissingRequiredField)
	}
	nonce, err := quantityString("nonce", intent.Nonce, 0)
	if err != nil {
		return nil, err
	}

	message := map[string]interface{}{
		"action": action,
		"to":     to.Hex(),
		"nonce":  nonce,
		"data":   hexutil.Encode(intent.Data),
	}

	optional := []struct {
		field string
		value any
		def   uint64
	}{
		{"tip", intent.Tip, 0},
		{"value", intent.Value, 0},
		{"gasLimit", intent.GasLimit, 0},
		{"storageLimit", intent.StorageLimit, 0},
		{"validUntil", intent.ValidUntil, DefaultValidUntil},
	}
	for _, f := range optional {
		s, err := quantityString(f.field, f.value, f.def)
		if err != nil {
			return nil, err
		}
		message[f.field] = s
	}

	salt := make(hexutil.Bytes, len(intent.Salt))
	copy(salt, intent.Salt)

	return &ethcoder.TypedData{
		Types:       TransactionTypes(),
		PrimaryType: PrimaryType,
		Domain: ethcoder.TypedDataDomain{
			Name:    DomainName,
			Version: DomainVersion,
			ChainID: chainID,
			Salt:    salt,
		},
		Message: message,
	}, nil
}

// TransactionDigest returns the EIP-712 digest of a transaction intent, the value a
// signer signs over.
func TransactionDigest(intent *TransactionIntent) (common.Hash, error) {
	typedData, err := NewTypedData(intent)
	if err != nil {
		return common.Hash{}, err
	}
	digest, err := typedData.EncodeDigest()
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(digest), nil
}

// ChainIDBig returns the intent chain id as a *big.Int.
func (t *TransactionIntent) ChainIDBig() (*big.Int, error) {
	if t.ChainID == nil {
		return nil, missingField("chainId")
	}
	q, err := ParseQuantity(t.ChainID)
	if err != nil {
		return nil, invalidNumericField("chainId", err)
	}
	return q.ToBig(), nil
}
