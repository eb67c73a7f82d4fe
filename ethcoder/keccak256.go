package ethcoder

import (
	"golang.org/x/crypto/sha3"
)

func Keccak256(input []byte) []byte {
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write(input)
	return hasher.Sum(nil)
}
