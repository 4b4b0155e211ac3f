package chain

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"relay-core/pkg/errno"
)

// Registry is a read-only view of an on-chain contract, used to derive
// addresses and enumerate collections that receipts do not carry.
type Registry struct {
	client  *Client
	address common.Address
	abi     abi.ABI
}

// NewRegistry parses the contract's JSON ABI and binds it to an address.
func NewRegistry(client *Client, address common.Address, abiJSON string) (*Registry, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, err
	}
	return &Registry{client: client, address: address, abi: parsed}, nil
}

// Address returns the bound contract address.
func (r *Registry) Address() common.Address {
	return r.address
}

// Call packs method with args, performs an eth_call at the latest block and
// unpacks the return values.
func (r *Registry) Call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	input, err := r.abi.Pack(method, args...)
	if err != nil {
		return nil, errno.ErrRegistryReadFailed.WithDetail(err.Error())
	}
	output, err := r.client.Backend.CallContract(ctx, ethereum.CallMsg{
		To:   &r.address,
		Data: input,
	}, nil)
	if err != nil {
		return nil, errno.ErrRegistryReadFailed.WithDetail(err.Error())
	}
	values, err := r.abi.Unpack(method, output)
	if err != nil {
		return nil, errno.ErrRegistryReadFailed.WithDetail(err.Error())
	}
	return values, nil
}

// CallAddress is Call for methods returning a single address.
func (r *Registry) CallAddress(ctx context.Context, method string, args ...interface{}) (common.Address, error) {
	values, err := r.Call(ctx, method, args...)
	if err != nil {
		return common.Address{}, err
	}
	if len(values) == 0 {
		return common.Address{}, errno.ErrRegistryReadFailed.WithDetail(method + " returns no values")
	}
	addr, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, errno.ErrRegistryReadFailed.WithDetail("return value is not an address")
	}
	return addr, nil
}
