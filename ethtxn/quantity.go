package ethtxn

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

var (
	errNegativeQuantity = errors.New("value is negative")
	errQuantityOverflow = errors.New("value overflows uint256")
)

// ParseQuantity normalizes an integer-like value into an unsigned 256-bit integer.
//
// Accepted inputs are Go integers, *big.Int, *uint256.Int, hexutil.Big,
// hexutil.Uint64, json.Number, integral float64 values and strings holding
// either a decimal or a 0x-prefixed hex number.
func ParseQuantity(v any) (*uint256.Int, error) {
	switch n := v.(type) {
	case nil:
		return nil, errors.New("value is missing")
	case int:
		return quantityFromInt64(int64(n))
	case int8:
		return quantityFromInt64(int64(n))
	case int16:
		return quantityFromInt64(int64(n))
	case int32:
		return quantityFromInt64(int64(n))
	case int64:
		return quantityFromInt64(n)
	case uint:
		return uint256.NewInt(uint64(n)), nil
	case uint8:
		return uint256.NewInt(uint64(n)), nil
	case uint16:
		return uint256.NewInt(uint64(n)), nil
	case uint32:
		return uint256.NewInt(uint64(n)), nil
	case uint64:
		return uint256.NewInt(n), nil
	case hexutil.Uint64:
		return uint256.NewInt(uint64(n)), nil
	case *uint256.Int:
		if n == nil {
			return nil, errors.New("value is missing")
		}
		return new(uint256.Int).Set(n), nil
	case uint256.Int:
		return new(uint256.Int).Set(&n), nil
	case *big.Int:
		if n == nil {
			return nil, errors.New("value is missing")
		}
		return quantityFromBig(n)
	case big.Int:
		return quantityFromBig(&n)
	case *hexutil.Big:
		if n == nil {
			return nil, errors.New("value is missing")
		}
		return quantityFromBig((*big.Int)(n))
	case hexutil.Big:
		return quantityFromBig((*big.Int)(&n))
	case json.Number:
		return quantityFromJSONNumber(n)
	case float64:
		return quantityFromFloat(n)
	case float32:
		return quantityFromFloat(float64(n))
	case string:
		return quantityFromString(n)
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

func quantityFromInt64(n int64) (*uint256.Int, error) {
	if n < 0 {
		return nil, errNegativeQuantity
	}
	return uint256.NewInt(uint64(n)), nil
}

func quantityFromBig(n *big.Int) (*uint256.Int, error) {
	if n.Sign() < 0 {
		return nil, errNegativeQuantity
	}
	q, overflow := uint256.FromBig(n)
	if overflow {
		return nil, errQuantityOverflow
	}
	return q, nil
}

func quantityFromFloat(f float64) (*uint256.Int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil, fmt.Errorf("value %v is not an integer", f)
	}
	n, _ := big.NewFloat(f).Int(nil)
	return quantityFromBig(n)
}

func quantityFromString(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("value is empty")
	}

	var (
		n  *big.Int
		ok bool
	)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		n, ok = new(big.Int).SetString(s[2:], 16)
	} else {
		n, ok = new(big.Int).SetString(s, 10)
	}
	if !ok {
		return nil, fmt.Errorf("invalid number string %q", s)
	}
	return quantityFromBig(n)
}

// quantityFromJSONNumber also accepts integral numbers written with a fraction or
// an exponent, ie. 5.0 or 1e3.
func quantityFromJSONNumber(n json.Number) (*uint256.Int, error) {
	s := strings.TrimSpace(n.String())
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") || !strings.ContainsAny(s, ".eE") {
		return quantityFromString(s)
	}
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		exp, err := strconv.Atoi(strings.TrimPrefix(s[i+1:], "+"))
		if err != nil || exp > maxNumberExponent || exp < -maxNumberExponent {
			return nil, fmt.Errorf("invalid number %q", s)
		}
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, fmt.Errorf("invalid number %q", s)
	}
	if !r.IsInt() {
		return nil, fmt.Errorf("value %s is not an integer", s)
	}
	return quantityFromBig(r.Num())
}

// maxNumberExponent bounds the exponent of JSON numbers, 10^100 is already far
// beyond the uint256 range.
const maxNumberExponent = 100

// quantityString normalizes an optional integer-like field into its decimal form,
// using def when the field is absent.
func quantityString(field string, v any, def uint64) (string, error) {
	if v == nil {
		return uint256.NewInt(def).Dec(), nil
	}
	q, err := ParseQuantity(v)
	if err != nil {
		return "", invalidNumericField(field, err)
	}
	return q.Dec(), nil
}
