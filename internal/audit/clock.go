package audit

import "sync/atomic"

// SeqCounter is a monotonic logical clock used to order audit_log rows.
// It carries no wall-clock dependence: callers construct one per store
// handle and share it across requests.
type SeqCounter struct {
	seq atomic.Int64
}

// NewSeqCounter returns a counter starting at 0.
func NewSeqCounter() *SeqCounter {
	return &SeqCounter{}
}

// NewSeqCounterAt returns a counter that resumes from start, for
// processes that reopen a store with existing audit_log rows.
func NewSeqCounterAt(start int64) *SeqCounter {
	c := &SeqCounter{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *SeqCounter) Next() int64 {
	return c.seq.Add(1)
}
