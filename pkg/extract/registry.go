package extract

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"relay-core/pkg/errno"
)

// RegistryReader abstracts the read-only registry calls extraction needs.
// Satisfied by *chain.Registry.
type RegistryReader interface {
	Call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error)
	CallAddress(ctx context.Context, method string, args ...interface{}) (common.Address, error)
}

// DerivedAddress resolves an address the transaction created or updated but
// did not log, by asking the registry after confirmation.
func DerivedAddress(ctx context.Context, registry RegistryReader, method string, args ...interface{}) (common.Address, error) {
	addr, err := registry.CallAddress(ctx, method, args...)
	if err != nil {
		return common.Address{}, err
	}
	if addr == (common.Address{}) {
		return common.Address{}, errno.ErrRegistryReadFailed.WithDetail("registry returned the zero address")
	}
	return addr, nil
}

// Collect reads a registry-held collection with a count call followed by
// one indexed read per element, preserving on-chain order.
func Collect(ctx context.Context, registry RegistryReader, countMethod, indexMethod string, args ...interface{}) ([]*big.Int, error) {
	values, err := registry.Call(ctx, countMethod, args...)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, errno.ErrRegistryReadFailed.WithDetail("count call returned no values")
	}
	count, ok := values[0].(*big.Int)
	if !ok {
		return nil, errno.ErrRegistryReadFailed.WithDetail("count call did not return an integer")
	}

	out := make([]*big.Int, 0, count.Int64())
	for i := int64(0); i < count.Int64(); i++ {
		indexArgs := append(append([]interface{}{}, args...), big.NewInt(i))
		values, err := registry.Call(ctx, indexMethod, indexArgs...)
		if err != nil {
			return nil, err
		}
		if len(values) == 0 {
			return nil, errno.ErrRegistryReadFailed.WithDetail("indexed call returned no values")
		}
		item, ok := values[0].(*big.Int)
		if !ok {
			return nil, errno.ErrRegistryReadFailed.WithDetail("indexed call did not return an integer")
		}
		out = append(out, item)
	}
	return out, nil
}
