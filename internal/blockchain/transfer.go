package blockchain

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// TransferTopic ERC20 Transfer 事件签名
var TransferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

var ErrInvalidLogFormat = errors.New("invalid log format: not an ERC20 Transfer")

type TransferEvent struct {
	From     common.Address
	To       common.Address
	Value    *big.Int
	TxHash   string
	BlockNum uint64
}

func ParseTransferLog(log types.Log) (*TransferEvent, error) {
	if len(log.Topics) < 3 || log.Topics[0] != TransferTopic {
		return nil, ErrInvalidLogFormat
	}

	value := new(big.Int)
	if len(log.Data) > 0 {
		value.SetBytes(log.Data)
	}

	return &TransferEvent{
		From:     common.BytesToAddress(log.Topics[1].Bytes()),
		To:       common.BytesToAddress(log.Topics[2].Bytes()),
		Value:    value,
		TxHash:   log.TxHash.Hex(),
		BlockNum: log.BlockNumber,
	}, nil
}
