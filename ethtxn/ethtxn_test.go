package ethtxn_test

import (
	"encoding/json"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/setheum-labs/evmkit/ethcoder"
	"github.com/setheum-labs/evmkit/ethtxn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSalt = hexutil.MustDecode("0x0000000000000000000000000000000000000000000000000000000000000001")

func testIntent() *ethtxn.TransactionIntent {
	to := common.HexToAddress("0x1111111111111111111111111111111111111111")
	return &ethtxn.TransactionIntent{
		To:           &to,
		Nonce:        5,
		Tip:          "2",
		Data:         hexutil.MustDecode("0xcafebabe"),
		Value:        "1000000000000000000",
		GasLimit:     "0x200b20",
		StorageLimit: 20000,
		Salt:         testSalt,
		ChainID:      595,
	}
}

func TestNewTypedDataSchema(t *testing.T) {
	intents := []*ethtxn.TransactionIntent{
		testIntent(),
		{Nonce: 0, Salt: testSalt, ChainID: 1},
		{Action: "Anything", Nonce: "0xff", Salt: hexutil.MustDecode("0x01"), ChainID: "0x253"},
	}

	for _, intent := range intents {
		typedData, err := ethtxn.NewTypedData(intent)
		require.NoError(t, err)

		assert.Equal(t, ethtxn.TransactionTypes(), typedData.Types)
		assert.Equal(t, "Transaction", typedData.PrimaryType)
		assert.Equal(t, "Setheum EVM", typedData.Domain.Name)
		assert.Equal(t, "1", typedData.Domain.Version)
		assert.Nil(t, typedData.Domain.VerifyingContract)
	}

	types := ethtxn.TransactionTypes()
	encodeType, err := types.EncodeType("Transaction")
	require.NoError(t, err)
	assert.Equal(t, "Transaction(string action,address to,uint256 nonce,uint256 tip,bytes data,uint256 value,uint256 gasLimit,uint256 storageLimit,uint256 validUntil)", encodeType)

	encodeType, err = types.EncodeType("EIP712Domain")
	require.NoError(t, err)
	assert.Equal(t, "EIP712Domain(string name,string version,uint256 chainId,bytes32 salt)", encodeType)
}

func TestTransactionTypesIsACopy(t *testing.T) {
	types := ethtxn.TransactionTypes()
	types["Transaction"][0].Name = "mutated"
	delete(types, "EIP712Domain")

	fresh := ethtxn.TransactionTypes()
	assert.Equal(t, "action", fresh["Transaction"][0].Name)
	assert.Len(t, fresh["EIP712Domain"], 4)

	typedData, err := ethtxn.NewTypedData(testIntent())
	require.NoError(t, err)
	typedData.Types["Transaction"][1].Type = "bytes"
	assert.Equal(t, "address", ethtxn.TransactionTypes()["Transaction"][1].Type)
}

func TestNewTypedDataMissingFields(t *testing.T) {
	intent := testIntent()
	intent.Salt = nil
	_, err := ethtxn.NewTypedData(intent)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ethtxn.ErrMissingRequiredField))
	assert.Contains(t, err.Error(), "salt")

	var fieldErr *ethtxn.FieldError
	require.True(t, errors.As(err, &fieldErr))
	assert.Equal(t, "salt", fieldErr.Field)

	intent = testIntent()
	intent.Salt = hexutil.Bytes{}
	_, err = ethtxn.NewTypedData(intent)
	assert.ErrorIs(t, err, ethtxn.ErrMissingRequiredField)

	intent = testIntent()
	intent.ChainID = nil
	_, err = ethtxn.NewTypedData(intent)
	require.Error(t, err)
	assert.ErrorIs(t, err, ethtxn.ErrMissingRequiredField)
	require.True(t, errors.As(err, &fieldErr))
	assert.Equal(t, "chainId", fieldErr.Field)

	// salt is checked before chainId
	intent = testIntent()
	intent.Salt = nil
	intent.ChainID = nil
	_, err = ethtxn.NewTypedData(intent)
	require.True(t, errors.As(err, &fieldErr))
	assert.Equal(t, "salt", fieldErr.Field)

	_, err = ethtxn.NewTypedData(nil)
	assert.ErrorIs(t, err, ethtxn.ErrInvalidIntent)
}

func TestNewTypedDataNonce(t *testing.T) {
	intent := testIntent()
	intent.Nonce = nil
	_, err := ethtxn.NewTypedData(intent)
	require.Error(t, err)
	assert.ErrorIs(t, err, ethtxn.ErrInvalidNumericField)
	assert.Contains(t, err.Error(), "nonce")

	for _, bad := range []any{"five", -1, "-1", 1.5, "0x", []byte{1}} {
		intent.Nonce = bad
		_, err = ethtxn.NewTypedData(intent)
		assert.ErrorIs(t, err, ethtxn.ErrInvalidNumericField, "nonce %v", bad)
	}
}

func TestNewTypedDataCreate(t *testing.T) {
	typedData, err := ethtxn.NewTypedData(&ethtxn.TransactionIntent{
		Nonce:   1,
		Salt:    testSalt,
		ChainID: 595,
	})
	require.NoError(t, err)
	assert.Equal(t, "Create", typedData.Message["action"])
	assert.Equal(t, "0x0000000000000000000000000000000000000000", typedData.Message["to"])
}

func TestNewTypedDataCall(t *testing.T) {
	to := common.HexToAddress("0xABCDEF0000000000000000000000000000000001")
	typedData, err := ethtxn.NewTypedData(&ethtxn.TransactionIntent{
		To:      &to,
		Nonce:   1,
		Salt:    testSalt,
		ChainID: 595,
	})
	require.NoError(t, err)
	assert.Equal(t, "Call", typedData.Message["action"])

	// the address is rendered in its EIP-55 checksum form, whatever the input case
	assert.Equal(t, to.Hex(), typedData.Message["to"])
	assert.True(t, strings.EqualFold("0xABCDEF0000000000000000000000000000000001", typedData.Message["to"].(string)))

	lower := common.HexToAddress("0xabcdef0000000000000000000000000000000001")
	typedData2, err := ethtxn.NewTypedData(&ethtxn.TransactionIntent{
		To:      &lower,
		Nonce:   1,
		Salt:    testSalt,
		ChainID: 595,
	})
	require.NoError(t, err)
	assert.Equal(t, typedData.Message["to"], typedData2.Message["to"])

	// an explicit action is used verbatim
	typedData3, err := ethtxn.NewTypedData(&ethtxn.TransactionIntent{
		Action:  "Transfer",
		To:      &to,
		Nonce:   1,
		Salt:    testSalt,
		ChainID: 595,
	})
	require.NoError(t, err)
	assert.Equal(t, "Transfer", typedData3.Message["action"])
}

func TestNewTypedDataDefaults(t *testing.T) {
	typedData, err := ethtxn.NewTypedData(&ethtxn.TransactionIntent{
		Nonce:   5,
		Salt:    testSalt,
		ChainID: 595,
	})
	require.NoError(t, err)

	assert.Equal(t, "5", typedData.Message["nonce"])
	assert.Equal(t, "0", typedData.Message["tip"])
	assert.Equal(t, "0", typedData.Message["value"])
	assert.Equal(t, "0", typedData.Message["gasLimit"])
	assert.Equal(t, "0", typedData.Message["storageLimit"])
	assert.Equal(t, "4294967295", typedData.Message["validUntil"])
	assert.Equal(t, "0x", typedData.Message["data"])
	assert.Len(t, typedData.Message, 9)

	for key, value := range typedData.Message {
		_, ok := value.(string)
		assert.True(t, ok, "message field %s is not a string", key)
	}
}

func TestNewTypedDataExplicitZero(t *testing.T) {
	typedData, err := ethtxn.NewTypedData(&ethtxn.TransactionIntent{
		Nonce:      0,
		ValidUntil: 0,
		Tip:        "0x0",
		Salt:       testSalt,
		ChainID:    595,
	})
	require.NoError(t, err)
	assert.Equal(t, "0", typedData.Message["nonce"])
	assert.Equal(t, "0", typedData.Message["tip"])
	assert.Equal(t, "0", typedData.Message["validUntil"])
}

func TestNewTypedDataNumericForms(t *testing.T) {
	maxUint256 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

	cases := []struct {
		in  any
		out string
	}{
		{5, "5"},
		{uint64(5), "5"},
		{"5", "5"},
		{"0x5", "5"},
		{"0X05", "5"},
		{" 12 ", "12"},
		{big.NewInt(5), "5"},
		{uint256.NewInt(5), "5"},
		{hexutil.Uint64(5), "5"},
		{(*hexutil.Big)(big.NewInt(5)), "5"},
		{json.Number("9007199254740993"), "9007199254740993"},
		{float64(42), "42"},
		{maxUint256, maxUint256.String()},
		{"0x" + maxUint256.Text(16), maxUint256.String()},
	}
	for _, c := range cases {
		intent := testIntent()
		intent.Value = c.in
		typedData, err := ethtxn.NewTypedData(intent)
		require.NoError(t, err, "value %v", c.in)
		assert.Equal(t, c.out, typedData.Message["value"], "value %v", c.in)
	}

	intent := testIntent()
	intent.Value = new(big.Int).Add(maxUint256, big.NewInt(1))
	_, err := ethtxn.NewTypedData(intent)
	assert.ErrorIs(t, err, ethtxn.ErrInvalidNumericField)
	assert.Contains(t, err.Error(), "value")

	intent = testIntent()
	intent.GasLimit = big.NewInt(-1)
	_, err = ethtxn.NewTypedData(intent)
	assert.ErrorIs(t, err, ethtxn.ErrInvalidNumericField)
	assert.Contains(t, err.Error(), "gasLimit")

	intent = testIntent()
	intent.ChainID = "mainnet"
	_, err = ethtxn.NewTypedData(intent)
	assert.ErrorIs(t, err, ethtxn.ErrInvalidNumericField)
}

func TestNewTypedDataDataAndSalt(t *testing.T) {
	intent := testIntent()
	intent.Data = hexutil.MustDecode("0xDEADBEEF00")
	typedData, err := ethtxn.NewTypedData(intent)
	require.NoError(t, err)

	data := typedData.Message["data"].(string)
	assert.Equal(t, "0xdeadbeef00", data)
	assert.Len(t, data, 2+2*5)

	// a short salt is passed through as given
	intent.Salt = hexutil.MustDecode("0xABCD")
	typedData, err = ethtxn.NewTypedData(intent)
	require.NoError(t, err)
	assert.Equal(t, "0xabcd", typedData.Domain.Salt.String())

	// and rejected once the document is hashed
	_, err = ethtxn.TransactionDigest(intent)
	assert.Error(t, err)
}

func TestNewTypedDataIdempotent(t *testing.T) {
	intent := testIntent()
	a, err := ethtxn.NewTypedData(intent)
	require.NoError(t, err)
	b, err := ethtxn.NewTypedData(intent)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	// the document does not share memory with the intent
	a.Domain.Salt[0] = 0xff
	assert.Equal(t, byte(0), intent.Salt[0])
	assert.Equal(t, testIntent(), intent)
}

func TestNewTypedDataConcurrent(t *testing.T) {
	want, err := ethtxn.TransactionDigest(testIntent())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := ethtxn.TransactionDigest(testIntent())
			assert.NoError(t, err)
			assert.Equal(t, want, got)
		}()
	}
	wg.Wait()
}

func TestTransactionDigest(t *testing.T) {
	digest, err := ethtxn.TransactionDigest(testIntent())
	require.NoError(t, err)

	// the same document written out by hand
	to := "0x1111111111111111111111111111111111111111"
	typedData := &ethcoder.TypedData{
		Types:       ethtxn.TransactionTypes(),
		PrimaryType: "Transaction",
		Domain: ethcoder.TypedDataDomain{
			Name:    "Setheum EVM",
			Version: "1",
			ChainID: big.NewInt(595),
			Salt:    testSalt,
		},
		Message: map[string]interface{}{
			"action":       "Call",
			"to":           to,
			"nonce":        "5",
			"tip":          "2",
			"data":         "0xcafebabe",
			"value":        "1000000000000000000",
			"gasLimit":     "2100000",
			"storageLimit": "20000",
			"validUntil":   "4294967295",
		},
	}
	expected, err := typedData.EncodeDigest()
	require.NoError(t, err)
	assert.Equal(t, common.BytesToHash(expected), digest)

	// explicit zero differs from an absent validUntil
	intent := testIntent()
	intent.ValidUntil = 0
	digest2, err := ethtxn.TransactionDigest(intent)
	require.NoError(t, err)
	assert.NotEqual(t, digest, digest2)
}

func TestTypedDataJSONShape(t *testing.T) {
	typedData, err := ethtxn.NewTypedData(testIntent())
	require.NoError(t, err)

	data, err := json.Marshal(typedData)
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Contains(t, doc, "types")
	assert.Contains(t, doc, "primaryType")
	assert.Contains(t, doc, "domain")
	assert.Contains(t, doc, "message")

	var domain map[string]any
	require.NoError(t, json.Unmarshal(doc["domain"], &domain))
	assert.Equal(t, "Setheum EVM", domain["name"])
	assert.Equal(t, "0x0000000000000000000000000000000000000000000000000000000000000001", domain["salt"])

	decoded, err := ethcoder.TypedDataFromJSON(string(data))
	require.NoError(t, err)
	digest, err := decoded.EncodeDigest()
	require.NoError(t, err)

	expected, err := ethtxn.TransactionDigest(testIntent())
	require.NoError(t, err)
	assert.Equal(t, expected, common.BytesToHash(digest))
}

func TestChainIDBig(t *testing.T) {
	chainID, err := (&ethtxn.TransactionIntent{ChainID: "0x253"}).ChainIDBig()
	require.NoError(t, err)
	assert.Equal(t, int64(595), chainID.Int64())

	_, err = (&ethtxn.TransactionIntent{}).ChainIDBig()
	assert.ErrorIs(t, err, ethtxn.ErrMissingRequiredField)

	_, err = (&ethtxn.TransactionIntent{ChainID: -1}).ChainIDBig()
	assert.ErrorIs(t, err, ethtxn.ErrInvalidNumericField)
}
