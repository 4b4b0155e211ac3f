// Package extract pulls semantic results out of confirmed transactions:
// identifiers from receipt logs and derived state from registry reads.
package extract

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"relay-core/pkg/errno"
)

// transferEventSig is keccak256("Transfer(address,address,uint256)").
var transferEventSig = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// LogSpec selects one expected log from a receipt. Match may be nil when
// emitter and event signature are selective enough on their own.
type LogSpec struct {
	// Emitter restricts matching to logs from this contract. The zero
	// address matches any emitter.
	Emitter common.Address
	// EventSig is the expected topic[0].
	EventSig common.Hash
	// Match further narrows candidates, for example on indexed topics.
	Match func(log *types.Log) bool
	// IDTopic is the topic index carrying the extracted identifier.
	IDTopic int
}

// TransferMint matches an ERC-721 style mint: a Transfer whose from-address
// is zero, emitted by the given contract. The token id rides in topic 3.
func TransferMint(emitter common.Address) LogSpec {
	return LogSpec{
		Emitter:  emitter,
		EventSig: transferEventSig,
		Match: func(log *types.Log) bool {
			return len(log.Topics) == 4 && log.Topics[1] == (common.Hash{})
		},
		IDTopic: 3,
	}
}

// FromLogs scans receipt logs in order and returns the identifier from the
// first log matching spec. A confirmed transaction without the expected log
// is an extraction failure, not a broadcast failure.
func FromLogs(logs []*types.Log, spec LogSpec) (*big.Int, error) {
	for _, log := range logs {
		if spec.Emitter != (common.Address{}) && log.Address != spec.Emitter {
			continue
		}
		if len(log.Topics) == 0 || log.Topics[0] != spec.EventSig {
			continue
		}
		if spec.Match != nil && !spec.Match(log) {
			continue
		}
		if spec.IDTopic >= len(log.Topics) {
			return nil, errno.ErrExpectedLogMissing.WithDetail("matched log lacks the identifier topic")
		}
		return new(big.Int).SetBytes(log.Topics[spec.IDTopic].Bytes()), nil
	}
	return nil, errno.ErrExpectedLogMissing.WithDetail("no log matched the expected event")
}
