package events

import (
	"time"
)

// EventType is an enum-like string type for chain events
type EventType string

const (
	EventBlockCommitted     EventType = "BlockCommitted"
	EventBlockRejected      EventType = "BlockRejected"
	EventTransactionApplied EventType = "TransactionApplied"
)

// ChainEvent represents any event the engine announces about chain
// progress
type ChainEvent interface {
	Type() EventType
	Timestamp() time.Time
	BlockNumber() uint32
}

// BlockCommitted fires after a block survives every gate and its effects
// are committed
type BlockCommitted struct {
	blockNumber uint32
	blockHash   string
	stateHash   string
	txCount     int
	timestamp   time.Time
}

func NewBlockCommitted(blockNumber uint32, blockHash, stateHash string, txCount int) *BlockCommitted {
	return &BlockCommitted{
		blockNumber: blockNumber,
		blockHash:   blockHash,
		stateHash:   stateHash,
		txCount:     txCount,
		timestamp:   time.Now(),
	}
}

func (e *BlockCommitted) Type() EventType {
	return EventBlockCommitted
}

func (e *BlockCommitted) Timestamp() time.Time {
	return e.timestamp
}

func (e *BlockCommitted) BlockNumber() uint32 {
	return e.blockNumber
}

func (e *BlockCommitted) BlockHash() string {
	return e.blockHash
}

func (e *BlockCommitted) StateHash() string {
	return e.stateHash
}

func (e *BlockCommitted) TxCount() int {
	return e.txCount
}

// BlockRejected fires when a proposed block fails a gate; reason carries
// the error code of the first violated rule
type BlockRejected struct {
	blockNumber uint32
	reason      string
	message     string
	timestamp   time.Time
}

func NewBlockRejected(blockNumber uint32, reason, message string) *BlockRejected {
	return &BlockRejected{
		blockNumber: blockNumber,
		reason:      reason,
		message:     message,
		timestamp:   time.Now(),
	}
}

func (e *BlockRejected) Type() EventType {
	return EventBlockRejected
}

func (e *BlockRejected) Timestamp() time.Time {
	return e.timestamp
}

func (e *BlockRejected) BlockNumber() uint32 {
	return e.blockNumber
}

func (e *BlockRejected) Reason() string {
	return e.reason
}

func (e *BlockRejected) Message() string {
	return e.message
}

// TransactionApplied fires once per transaction in a committed block
type TransactionApplied struct {
	blockNumber uint32
	txHash      string
	txType      string
	timestamp   time.Time
}

func NewTransactionApplied(blockNumber uint32, txHash, txType string) *TransactionApplied {
	return &TransactionApplied{
		blockNumber: blockNumber,
		txHash:      txHash,
		txType:      txType,
		timestamp:   time.Now(),
	}
}

func (e *TransactionApplied) Type() EventType {
	return EventTransactionApplied
}

func (e *TransactionApplied) Timestamp() time.Time {
	return e.timestamp
}

func (e *TransactionApplied) BlockNumber() uint32 {
	return e.blockNumber
}

func (e *TransactionApplied) TxHash() string {
	return e.txHash
}

func (e *TransactionApplied) TxType() string {
	return e.txType
}
