package journal

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rickgao/redemption-relay/internal/model"
)

// row is the submissions table representation of an outcome.
// Pointer fields are NULL when unset.
type row struct {
	QuoteID       string
	AssetContract string
	Pair          string
	Destination   string
	Value         string
	QuoteTs       int64
	Trigger       string
	Status        string
	TxHash        *string
	BlockNumber   *int64
	GasUsed       *int64
	Error         *string
	SubmittedAt   time.Time
	DurationMs    int64
}

func toRow(s model.Submission) row {
	r := row{
		QuoteID:       s.Quote.ID.String(),
		AssetContract: s.Quote.Asset.Contract.Hex(),
		Pair:          s.Quote.Asset.Pair(),
		Destination:   s.Destination.Hex(),
		Value:         s.Quote.Value.String(),
		QuoteTs:       s.Quote.Timestamp,
		Trigger:       s.Quote.Trigger.String(),
		Status:        s.Status(),
		SubmittedAt:   s.SubmittedAt,
		DurationMs:    s.Duration.Milliseconds(),
	}

	if s.TxHash != (common.Hash{}) {
		hash := s.TxHash.Hex()
		r.TxHash = &hash
	}
	if s.BlockNumber > 0 {
		block := int64(s.BlockNumber)
		r.BlockNumber = &block
	}
	if s.GasUsed > 0 {
		gas := int64(s.GasUsed)
		r.GasUsed = &gas
	}
	if s.Err != nil {
		msg := s.Err.Error()
		r.Error = &msg
	}
	return r
}
