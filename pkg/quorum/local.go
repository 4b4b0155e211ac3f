package quorum

import (
	"context"
	"crypto/ecdsa"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"relay-core/pkg/bip32"
	"relay-core/pkg/bip39"
	"relay-core/pkg/errno"
)

// LocalSigner signs with an in-process key. Development and test use only;
// production deployments point at the threshold quorum service instead.
type LocalSigner struct {
	key *ecdsa.PrivateKey
}

func NewLocalSigner(key *ecdsa.PrivateKey) *LocalSigner {
	return &LocalSigner{key: key}
}

// LocalSignerFromMnemonic derives the signing key from a BIP-39 mnemonic at
// the given BIP-32 path, e.g. "m/44'/60'/0'/0/0".
func LocalSignerFromMnemonic(mnemonic, derivationPath string) (*LocalSigner, error) {
	svc := bip39.NewMnemonicService()
	if !svc.ValidateMnemonic(mnemonic) {
		return nil, errors.New("invalid mnemonic")
	}
	wallet, err := bip32.NewMasterKeyFromSeed(svc.MnemonicToSeed(mnemonic, ""), nil)
	if err != nil {
		return nil, err
	}
	child, err := wallet.DerivePath(derivationPath)
	if err != nil {
		return nil, err
	}
	priv, err := child.ECPrivKey()
	if err != nil {
		return nil, err
	}
	return &LocalSigner{key: priv.ToECDSA()}, nil
}

// Address returns the sponsor address controlled by the key.
func (l *LocalSigner) Address() common.Address {
	return crypto.PubkeyToAddress(l.key.PublicKey)
}

func (l *LocalSigner) Sign(ctx context.Context, digest [32]byte, publicKey string, purposeTag string) (SignatureComponents, error) {
	raw, err := crypto.Sign(digest[:], l.key)
	if err != nil {
		return SignatureComponents{}, errno.ErrSigningRejected.WithDetail(err.Error())
	}
	return ParseSignature(raw)
}
