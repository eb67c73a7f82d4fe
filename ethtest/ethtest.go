package ethtest

import (
	"crypto/rand"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// DummyAddr returns a random address nobody holds a key for.
func DummyAddr() common.Address {
	var addr common.Address
	if _, err := rand.Read(addr[:]); err != nil {
		panic(err)
	}
	return addr
}

// Units returns amount scaled by 10^decimals, ie. Units(1, 12) is one SETM.
func Units(amount int64, decimals uint8) *big.Int {
	x := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return x.Mul(x, big.NewInt(amount))
}

func ETHValue(ether int64) *big.Int {
	return Units(ether, 18)
}
