package bip39

import (
	bip39 "github.com/tyler-smith/go-bip39"
)

// MnemonicService wraps BIP-39 mnemonic generation and seed derivation for
// the local development signer.
type MnemonicService struct{}

func NewMnemonicService() *MnemonicService {
	return &MnemonicService{}
}

// GenerateMnemonic creates a new mnemonic with the given entropy size in
// bits (128 gives 12 words, 256 gives 24).
func (s *MnemonicService) GenerateMnemonic(bits int) (string, error) {
	entropy, err := bip39.NewEntropy(bits)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// ValidateMnemonic reports whether the mnemonic is well formed.
func (s *MnemonicService) ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(mnemonic)
}

// MnemonicToSeed derives the BIP-39 seed from a mnemonic and passphrase.
func (s *MnemonicService) MnemonicToSeed(mnemonic, passphrase string) []byte {
	return bip39.NewSeed(mnemonic, passphrase)
}
