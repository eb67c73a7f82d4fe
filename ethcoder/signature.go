package ethcoder

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// RecoverTypedDataSigner returns the address of the key which produced sig over the
// digest of typedData. sig is the 65 byte [R || S || V] form, V may be 0/1 or 27/28.
func RecoverTypedDataSigner(typedData *TypedData, sig []byte) (common.Address, error) {
	digest, err := typedData.EncodeDigest()
	if err != nil {
		return common.Address{}, err
	}
	return RecoverDigestSigner(digest, sig)
}

func RecoverDigestSigner(digest []byte, sig []byte) (common.Address, error) {
	if len(digest) != 32 {
		return common.Address{}, fmt.Errorf("ethcoder: digest must be 32 bytes, got %d", len(digest))
	}
	if len(sig) != 65 {
		return common.Address{}, fmt.Errorf("ethcoder: signature is not of proper length")
	}

	// copy so the caller's V byte is left untouched
	s := make([]byte, 65)
	copy(s, sig)
	if s[64] >= 27 {
		s[64] -= 27
	}

	pubkey, err := crypto.SigToPub(digest, s)
	if err != nil {
		return common.Address{}, fmt.Errorf("ethcoder: %w", err)
	}
	return crypto.PubkeyToAddress(*pubkey), nil
}
