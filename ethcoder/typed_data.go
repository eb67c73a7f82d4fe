package ethcoder

import (
	"bytes"
	"fmt"
	"math/big"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// EIP-712 -- https://eips.ethereum.org/EIPS/eip-712

type TypedData struct {
	Types       TypedDataTypes         `json:"types"`
	PrimaryType string                 `json:"primaryType"`
	Domain      TypedDataDomain        `json:"domain"`
	Message     map[string]interface{} `json:"message"`
}

type TypedDataTypes map[string][]TypedDataArgument

type TypedDataArgument struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Copy returns a deep copy of the types, so the caller may hand it out without
// sharing the underlying argument slices.
func (t TypedDataTypes) Copy() TypedDataTypes {
	out := make(TypedDataTypes, len(t))
	for k, v := range t {
		args := make([]TypedDataArgument, len(v))
		copy(args, v)
		out[k] = args
	}
	return out
}

func (t TypedDataTypes) EncodeType(primaryType string) (string, error) {
	if _, ok := t[primaryType]; !ok {
		return "", fmt.Errorf("%s type is not defined", primaryType)
	}

	// dependencies are collected transitively and sorted by name, the
	// primary type always comes first
	deps := map[string]bool{}
	var collect func(string)
	collect = func(typeName string) {
		for _, arg := range t[typeName] {
			baseType := arg.Type
			if idx := strings.Index(baseType, "["); idx != -1 {
				baseType = baseType[:idx]
			}
			if _, exists := t[baseType]; exists && !deps[baseType] {
				deps[baseType] = true
				collect(baseType)
			}
		}
	}
	collect(primaryType)
	delete(deps, primaryType)

	sorted := make([]string, 0, len(deps))
	for dep := range deps {
		sorted = append(sorted, dep)
	}
	sort.Strings(sorted)

	var sb strings.Builder
	sb.WriteString(t.encodeTypeDefinition(primaryType))
	for _, dep := range sorted {
		sb.WriteString(t.encodeTypeDefinition(dep))
	}
	return sb.String(), nil
}

func (t TypedDataTypes) encodeTypeDefinition(typeName string) string {
	args := t[typeName]
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = arg.Type + " " + arg.Name
	}
	return typeName + "(" + strings.Join(parts, ",") + ")"
}

func (t TypedDataTypes) Map() map[string]map[string]string {
	out := map[string]map[string]string{}
	for k, v := range t {
		m := make(map[string]string, len(v))
		for _, arg := range v {
			m[arg.Name] = arg.Type
		}
		out[k] = m
	}
	return out
}

func (t TypedDataTypes) TypeHash(primaryType string) ([]byte, error) {
	encodeType, err := t.EncodeType(primaryType)
	if err != nil {
		return nil, err
	}
	return Keccak256([]byte(encodeType)), nil
}

// TypedDataDomain is the EIP712Domain value. Salt is kept as raw bytes of any
// length, the bytes32 length is only enforced when the domain is hashed.
type TypedDataDomain struct {
	Name              string          `json:"name,omitempty"`
	Version           string          `json:"version,omitempty"`
	ChainID           *big.Int        `json:"chainId,omitempty"`
	VerifyingContract *common.Address `json:"verifyingContract,omitempty"`
	Salt              hexutil.Bytes   `json:"salt,omitempty"`
}

func (t TypedDataDomain) Map() map[string]interface{} {
	m := map[string]interface{}{}
	if t.Name != "" {
		m["name"] = t.Name
	}
	if t.Version != "" {
		m["version"] = t.Version
	}
	if t.ChainID != nil {
		m["chainId"] = t.ChainID
	}
	if t.VerifyingContract != nil {
		m["verifyingContract"] = *t.VerifyingContract
	}
	if t.Salt != nil {
		m["salt"] = []byte(t.Salt)
	}
	return m
}

func (t *TypedData) HashStruct(primaryType string, data map[string]interface{}) ([]byte, error) {
	typeHash, err := t.Types.TypeHash(primaryType)
	if err != nil {
		return nil, err
	}
	encodedData, err := t.encodeData(primaryType, data)
	if err != nil {
		return nil, err
	}
	return Keccak256(append(typeHash, encodedData...)), nil
}

func (t *TypedData) encodeData(primaryType string, data map[string]interface{}) ([]byte, error) {
	args, ok := t.Types[primaryType]
	if !ok {
		return nil, fmt.Errorf("%s type is unknown", primaryType)
	}
	if len(args) != len(data) {
		return nil, fmt.Errorf("encoding failed for type %s, expecting %d arguments but received %d data values", primaryType, len(args), len(data))
	}

	encoded := make([]byte, 0, 32*len(args))
	for _, arg := range args {
		dataValue, ok := data[arg.Name]
		if !ok {
			return nil, fmt.Errorf("data value missing for type %s with argument name %s", primaryType, arg.Name)
		}

		encValue, err := t.encodeValue(arg.Type, dataValue)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", arg.Name, err)
		}
		if len(encValue) != 32 {
			return nil, fmt.Errorf("encoded value for %s is %d bytes, expected 32", arg.Name, len(encValue))
		}
		encoded = append(encoded, encValue...)
	}

	return encoded, nil
}

func (t *TypedData) encodeValue(typ string, value interface{}) ([]byte, error) {
	// arrays: hash of the concatenated element encodings
	if idx := strings.Index(typ, "["); idx > 0 {
		baseType := typ[:idx]
		v := reflect.ValueOf(value)
		if v.Kind() != reflect.Array && v.Kind() != reflect.Slice {
			return nil, fmt.Errorf("expected array or slice for type %s, got %T", typ, value)
		}

		encodedValues := make([][]byte, v.Len())
		for i := 0; i < v.Len(); i++ {
			encoded, err := t.encodeValue(baseType, v.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("failed to encode array element %d: %w", i, err)
			}
			encodedValues[i] = encoded
		}
		return Keccak256(bytes.Join(encodedValues, nil)), nil
	}

	if _, isCustomType := t.Types[typ]; isCustomType {
		mapVal, ok := value.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("invalid value for custom type %s", typ)
		}
		return t.HashStruct(typ, mapVal)
	}

	switch {
	case typ == "string":
		str, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("invalid string value")
		}
		return Keccak256([]byte(str)), nil

	case typ == "address":
		switch v := value.(type) {
		case common.Address:
			return common.LeftPadBytes(v.Bytes(), 32), nil
		case *common.Address:
			return common.LeftPadBytes(v.Bytes(), 32), nil
		case string:
			if !common.IsHexAddress(v) {
				return nil, fmt.Errorf("invalid address format: %s", v)
			}
			return common.LeftPadBytes(common.HexToAddress(v).Bytes(), 32), nil
		default:
			return nil, fmt.Errorf("invalid address value")
		}

	case typ == "bool":
		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("invalid bool value")
		}
		if b {
			return common.LeftPadBytes([]byte{1}, 32), nil
		}
		return make([]byte, 32), nil

	case typ == "bytes":
		b, err := typedDataBytesValue(value)
		if err != nil {
			return nil, err
		}
		return Keccak256(b), nil

	case strings.HasPrefix(typ, "bytes"):
		b, err := typedDataBytesValue(value)
		if err != nil {
			return nil, err
		}
		size, err := strconv.Atoi(typ[5:])
		if err != nil || size < 1 || size > 32 {
			return nil, fmt.Errorf("invalid bytes size for %s", typ)
		}
		if len(b) != size {
			return nil, fmt.Errorf("invalid %s length: got %d, want %d", typ, len(b), size)
		}
		return common.RightPadBytes(b, 32), nil

	case strings.HasPrefix(typ, "uint"), strings.HasPrefix(typ, "int"):
		signed, bits, err := intTypeSize(typ)
		if err != nil {
			return nil, err
		}
		n, err := typedDataIntValue(value)
		if err != nil {
			return nil, err
		}
		if !signed {
			if n.Sign() < 0 {
				return nil, fmt.Errorf("negative value for %s", typ)
			}
			if n.BitLen() > bits {
				return nil, fmt.Errorf("value overflows %s", typ)
			}
			return common.LeftPadBytes(n.Bytes(), 32), nil
		}
		limit := new(big.Int).Lsh(big.NewInt(1), uint(bits-1))
		if n.Cmp(limit) >= 0 || n.Cmp(new(big.Int).Neg(limit)) < 0 {
			return nil, fmt.Errorf("value overflows %s", typ)
		}
		if n.Sign() < 0 {
			return PadZerosSigned(n, 32), nil
		}
		return common.LeftPadBytes(n.Bytes(), 32), nil
	}

	return nil, fmt.Errorf("unsupported type: %s", typ)
}

// intTypeSize reads the width of an intN or uintN type, N is a multiple of 8 up
// to 256 and defaults to 256 when omitted.
func intTypeSize(typ string) (signed bool, bits int, err error) {
	size := strings.TrimPrefix(typ, "u")
	signed = size == typ
	size = strings.TrimPrefix(size, "int")
	if size == "" {
		return signed, 256, nil
	}
	bits, err = strconv.Atoi(size)
	if err != nil || bits < 8 || bits > 256 || bits%8 != 0 {
		return false, 0, fmt.Errorf("invalid integer size for %s", typ)
	}
	return signed, bits, nil
}

func typedDataBytesValue(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case hexutil.Bytes:
		return v, nil
	case common.Hash:
		return v.Bytes(), nil
	case [32]byte:
		return v[:], nil
	case string:
		if strings.HasPrefix(v, "0x") {
			return HexDecode(v)
		}
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("invalid bytes value type: %T", value)
	}
}

func typedDataIntValue(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		if v == nil {
			return nil, fmt.Errorf("invalid number value: nil")
		}
		return v, nil
	case string:
		if strings.HasPrefix(v, "0x") || strings.HasPrefix(v, "0X") {
			n, ok := new(big.Int).SetString(v[2:], 16)
			if !ok {
				return nil, fmt.Errorf("invalid number string: %s", v)
			}
			return n, nil
		}
		n, ok := new(big.Int).SetString(v, 10)
		if !ok {
			return nil, fmt.Errorf("invalid number string: %s", v)
		}
		return n, nil
	case int:
		return big.NewInt(int64(v)), nil
	case int8:
		return big.NewInt(int64(v)), nil
	case int16:
		return big.NewInt(int64(v)), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	case uint:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("invalid number value type: %T", value)
	}
}

// Encode returns the digest of the typed data and the fully encoded EIP712 typed data message.
//
// NOTE:
// * the digest is the hash of the fully encoded EIP712 message
// * the encoded message is the fully encoded EIP712 message (0x1901 + domain + hashStruct(message))
func (t *TypedData) Encode() ([]byte, []byte, error) {
	domainHash, err := t.HashStruct("EIP712Domain", t.Domain.Map())
	if err != nil {
		return nil, nil, err
	}

	var messageHash []byte
	if t.PrimaryType == "EIP712Domain" {
		messageHash = domainHash
	} else {
		messageHash, err = t.HashStruct(t.PrimaryType, t.Message)
		if err != nil {
			return nil, nil, err
		}
	}

	encodedMessage := make([]byte, 0, 2+len(domainHash)+len(messageHash))
	encodedMessage = append(encodedMessage, eip191TypedDataHeader...)
	encodedMessage = append(encodedMessage, domainHash...)
	encodedMessage = append(encodedMessage, messageHash...)

	return Keccak256(encodedMessage), encodedMessage, nil
}

// EIP191 version byte for structured data
var eip191TypedDataHeader = []byte{0x19, 0x01}

// EncodeDigest returns the digest of the typed data message.
func (t *TypedData) EncodeDigest() ([]byte, error) {
	digest, _, err := t.Encode()
	if err != nil {
		return nil, err
	}
	return digest, nil
}

// PadZerosSigned returns the two's complement of n, sign extended to length bytes.
func PadZerosSigned(n *big.Int, length int) []byte {
	if n.Sign() >= 0 {
		return common.LeftPadBytes(n.Bytes(), length)
	}
	mod := new(big.Int).Lsh(big.NewInt(1), uint(length*8))
	return common.LeftPadBytes(new(big.Int).Add(mod, n).Bytes(), length)
}
