package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// UnknownEvent names logs whose topic is not in the supplied ABI.
const UnknownEvent = "unknown"

// Event is a decoded contract log.
type Event struct {
	Name        string
	Address     common.Address
	BlockNumber uint64
	TxHash      common.Hash
	LogIndex    uint
	Topics      []common.Hash
	Fields      map[string]any
	Removed     bool
	// DecodeErr is set when the topic matched the ABI but the log did not
	// fit it, e.g. an ERC-721 Transfer read with the ERC-20 ABI. Name is
	// then UnknownEvent and Fields is empty.
	DecodeErr error
}

// GetPastEvents returns every log emitted by contract in [from, to], decoded
// against contractABI. A nil bound means genesis / latest respectively.
// A log that fails to decode is still returned, with DecodeErr set.
func (c *EVMClient) GetPastEvents(ctx context.Context, contract common.Address, contractABI *abi.ABI, from, to *big.Int) ([]Event, error) {
	logs, err := c.eth.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: from,
		ToBlock:   to,
		Addresses: []common.Address{contract},
	})
	if err != nil {
		return nil, fmt.Errorf("eth_getLogs: %w", err)
	}

	events := make([]Event, 0, len(logs))
	for _, lg := range logs {
		ev, err := DecodeLog(contractABI, lg)
		if err != nil {
			ev.Name = UnknownEvent
			ev.Fields = map[string]any{}
			ev.DecodeErr = err
		}
		events = append(events, ev)
	}
	return events, nil
}

// DecodeLog matches lg's first topic against contractABI and unpacks both
// indexed and data fields. Logs that match no event come back as UnknownEvent.
func DecodeLog(contractABI *abi.ABI, lg types.Log) (Event, error) {
	ev := Event{
		Name:        UnknownEvent,
		Address:     lg.Address,
		BlockNumber: lg.BlockNumber,
		TxHash:      lg.TxHash,
		LogIndex:    lg.Index,
		Topics:      lg.Topics,
		Fields:      map[string]any{},
		Removed:     lg.Removed,
	}
	if contractABI == nil || len(lg.Topics) == 0 {
		return ev, nil
	}
	def, err := contractABI.EventByID(lg.Topics[0])
	if err != nil {
		return ev, nil
	}
	ev.Name = def.Name

	if err := def.Inputs.UnpackIntoMap(ev.Fields, lg.Data); err != nil {
		return ev, fmt.Errorf("unpacking %s data: %w", def.Name, err)
	}
	var indexed abi.Arguments
	for _, arg := range def.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if err := abi.ParseTopicsIntoMap(ev.Fields, indexed, lg.Topics[1:]); err != nil {
		return ev, fmt.Errorf("parsing %s topics: %w", def.Name, err)
	}
	return ev, nil
}
