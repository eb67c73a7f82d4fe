package ethcoder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"slices"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

func TypedDataFromJSON(typedDataJSON string) (*TypedData, error) {
	var typedData TypedData
	err := json.Unmarshal([]byte(typedDataJSON), &typedData)
	if err != nil {
		return nil, err
	}
	return &typedData, nil
}

func (t *TypedData) MarshalJSON() ([]byte, error) {
	type TypedDataJSON struct {
		Types       TypedDataTypes         `json:"types"`
		PrimaryType string                 `json:"primaryType"`
		Domain      TypedDataDomain        `json:"domain"`
		Message     map[string]interface{} `json:"message"`
	}

	encodedMessage, err := t.jsonEncodeMessageValues(t.PrimaryType, t.Message)
	if err != nil {
		return nil, err
	}

	return json.Marshal(TypedDataJSON{
		Types:       t.Types,
		PrimaryType: t.PrimaryType,
		Domain:      t.Domain,
		Message:     encodedMessage,
	})
}

func (t *TypedData) jsonEncodeMessageValues(typeName string, message map[string]interface{}) (map[string]interface{}, error) {
	typeFields, ok := t.Types[typeName]
	if !ok {
		return nil, fmt.Errorf("type '%s' not found in types", typeName)
	}

	encodedMessage := make(map[string]interface{}, len(message))
	for _, field := range typeFields {
		val, exists := message[field.Name]
		if !exists {
			continue
		}

		if strings.HasSuffix(field.Type, "[]") {
			if arr, ok := val.([]interface{}); ok {
				baseType := strings.TrimSuffix(field.Type, "[]")
				encodedArr := make([]interface{}, len(arr))
				for i, item := range arr {
					encoded, err := t.jsonEncodeValue(baseType, item)
					if err != nil {
						return nil, err
					}
					encodedArr[i] = encoded
				}
				encodedMessage[field.Name] = encodedArr
				continue
			}
		}

		encoded, err := t.jsonEncodeValue(field.Type, val)
		if err != nil {
			return nil, err
		}
		encodedMessage[field.Name] = encoded
	}

	return encodedMessage, nil
}

func (t *TypedData) jsonEncodeValue(fieldType string, value interface{}) (interface{}, error) {
	if strings.HasPrefix(fieldType, "bytes") {
		switch v := value.(type) {
		case []byte:
			return hexutil.Encode(v), nil
		case [32]byte:
			return hexutil.Encode(v[:]), nil
		}
		return value, nil
	}

	if _, isCustomType := t.Types[fieldType]; isCustomType {
		nestedMsg, ok := value.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("value for custom type '%s' is not a map", fieldType)
		}
		return t.jsonEncodeMessageValues(fieldType, nestedMsg)
	}

	// *big.Int values are emitted as decimal strings to keep full precision
	if n, ok := value.(*big.Int); ok && n != nil {
		return n.String(), nil
	}

	return value, nil
}

func (t *TypedData) UnmarshalJSON(data []byte) error {
	type TypedDataRaw struct {
		Types       TypedDataTypes `json:"types"`
		PrimaryType string         `json:"primaryType"`
		Domain      struct {
			Name              string          `json:"name,omitempty"`
			Version           string          `json:"version,omitempty"`
			ChainID           interface{}     `json:"chainId,omitempty"`
			VerifyingContract *common.Address `json:"verifyingContract,omitempty"`
			Salt              hexutil.Bytes   `json:"salt,omitempty"`
		} `json:"domain"`
		Message map[string]interface{} `json:"message"`
	}

	// json.Number keeps integer values exact
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw TypedDataRaw
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if raw.Types == nil {
		raw.Types = TypedDataTypes{}
	}

	// the EIP712Domain type may be omitted, in which case it's derived from the
	// domain fields that are present
	if _, ok := raw.Types["EIP712Domain"]; !ok {
		domainType := []TypedDataArgument{}
		if raw.Domain.Name != "" {
			domainType = append(domainType, TypedDataArgument{Name: "name", Type: "string"})
		}
		if raw.Domain.Version != "" {
			domainType = append(domainType, TypedDataArgument{Name: "version", Type: "string"})
		}
		if raw.Domain.ChainID != nil {
			domainType = append(domainType, TypedDataArgument{Name: "chainId", Type: "uint256"})
		}
		if raw.Domain.VerifyingContract != nil {
			domainType = append(domainType, TypedDataArgument{Name: "verifyingContract", Type: "address"})
		}
		if raw.Domain.Salt != nil {
			domainType = append(domainType, TypedDataArgument{Name: "salt", Type: "bytes32"})
		}
		raw.Types["EIP712Domain"] = domainType
	}

	if raw.PrimaryType == "" {
		primaryType, err := typedDataDetectPrimaryType(raw.Types.Map(), raw.Message)
		if err != nil {
			return err
		}
		raw.PrimaryType = primaryType
	}
	if _, ok := raw.Types[raw.PrimaryType]; !ok {
		return fmt.Errorf("primary type '%s' is not defined", raw.PrimaryType)
	}

	domain := TypedDataDomain{
		Name:              raw.Domain.Name,
		Version:           raw.Domain.Version,
		VerifyingContract: raw.Domain.VerifyingContract,
		Salt:              raw.Domain.Salt,
	}
	if raw.Domain.ChainID != nil {
		chainID, err := typedDataDecodeChainID(raw.Domain.ChainID)
		if err != nil {
			return err
		}
		domain.ChainID = chainID
	}

	message, ok := typedDataDecodeRawValue(raw.Message).(map[string]interface{})
	if !ok {
		message = map[string]interface{}{}
	}

	t.Types = raw.Types
	t.PrimaryType = raw.PrimaryType
	t.Domain = domain
	t.Message = message

	return nil
}

func typedDataDecodeChainID(v interface{}) (*big.Int, error) {
	var (
		chainID *big.Int
		ok      bool
	)
	switch val := v.(type) {
	case json.Number:
		chainID, ok = new(big.Int).SetString(val.String(), 10)
	case string:
		if strings.HasPrefix(val, "0x") {
			chainID, ok = new(big.Int).SetString(val[2:], 16)
		} else {
			chainID, ok = new(big.Int).SetString(val, 10)
		}
	}
	if !ok {
		return nil, fmt.Errorf("invalid domain chainId value: %v", v)
	}
	return chainID, nil
}

// typedDataDecodeRawValue converts json.Number values into decimal strings,
// which encodeValue accepts for every integer type.
func typedDataDecodeRawValue(v interface{}) interface{} {
	switch val := v.(type) {
	case json.Number:
		return val.String()
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = typedDataDecodeRawValue(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = typedDataDecodeRawValue(item)
		}
		return out
	default:
		return v
	}
}

func typedDataDetectPrimaryType(typesMap map[string]map[string]string, message map[string]interface{}) (string, error) {
	// with only the domain and one other type, the other type is the primary type
	if len(typesMap) == 2 {
		if _, ok := typesMap["EIP712Domain"]; ok {
			for typ := range typesMap {
				if typ != "EIP712Domain" {
					return typ, nil
				}
			}
		}
	}

	messageKeys := make([]string, 0, len(message))
	for k := range message {
		messageKeys = append(messageKeys, k)
	}
	sort.Strings(messageKeys)

	for typ, fields := range typesMap {
		if typ == "EIP712Domain" || len(fields) != len(messageKeys) {
			continue
		}
		typKeys := make([]string, 0, len(fields))
		for k := range fields {
			typKeys = append(typKeys, k)
		}
		sort.Strings(typKeys)
		if slices.Equal(messageKeys, typKeys) {
			return typ, nil
		}
	}

	return "", fmt.Errorf("no primary type found")
}
