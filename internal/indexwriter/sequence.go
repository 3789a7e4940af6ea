package indexwriter

import "fmt"

// Allocator hands out occurrence codes per sequence number so attachment
// filenames stay unique when a sequence number repeats within one file.
// An Allocator is scoped to one source file and is not safe for concurrent use.
type Allocator struct {
	counts map[string]int
}

// NewAllocator creates an empty allocator.
func NewAllocator() *Allocator {
	return &Allocator{counts: make(map[string]int)}
}

// Next records one more visit of sequenceNumber and returns its two-digit
// occurrence code. The key is the number zero-padded to 12 digits, so "1" and
// "000000000001" share a counter. The first visit renders "00", the second "01".
func (a *Allocator) Next(sequenceNumber string) string {
	key := PadLeft(sequenceNumber, SequenceWidth, '0')
	a.counts[key]++
	return fmt.Sprintf("%02d", a.counts[key]-1)
}
