package model

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Submission is the outcome of one attempt to write a quote to the
// destination ledger.
type Submission struct {
	Quote       Quote
	Destination common.Address // Zero if the asset had no destination
	TxHash      common.Hash    // Zero if nothing was broadcast
	BlockNumber uint64
	GasUsed     uint64
	Err         error // Nil on success
	SubmittedAt time.Time
	Duration    time.Duration
}

// Succeeded reports whether the quote landed on the destination ledger.
func (s Submission) Succeeded() bool {
	return s.Err == nil
}

// Status returns "success" or "failed".
func (s Submission) Status() string {
	if s.Err == nil {
		return "success"
	}
	return "failed"
}
