package recorder

import (
	"sync"
	"time"
)

// PendingSegment is a cut slice of exactly samplesPerSegment samples
// (shorter only for the final flush), tagged with the wall-clock time at
// which its first sample was buffered.
type PendingSegment struct {
	Samples []float32
	Start   time.Time
}

// segmentBuffer accumulates producer chunks and cuts exact-length
// segments. Append and Flush are safe for concurrent use; the lock is
// held only for memory copies, never across I/O.
type segmentBuffer struct {
	mu                sync.Mutex
	chunks            [][]float32
	samples           int
	samplesPerSegment int
	segmentStart      time.Time
	clock             func() time.Time
}

func newSegmentBuffer(samplesPerSegment int) *segmentBuffer {
	b := &segmentBuffer{
		samplesPerSegment: samplesPerSegment,
		clock:             time.Now,
	}
	b.segmentStart = b.clock()
	return b
}

// Append copies chunk into the buffer and returns any segments whose cut
// boundary was reached. A single oversized chunk can complete more than
// one segment; the remainder always carries over as the seed of the next.
func (b *segmentBuffer) Append(chunk []float32) []PendingSegment {
	if len(chunk) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	owned := make([]float32, len(chunk))
	copy(owned, chunk)
	b.chunks = append(b.chunks, owned)
	b.samples += len(owned)

	var cut []PendingSegment
	for b.samples >= b.samplesPerSegment {
		cut = append(cut, b.cutLocked())
	}
	return cut
}

// cutLocked concatenates the buffered chunks, takes the first
// samplesPerSegment samples, and reseeds the buffer with the overflow.
func (b *segmentBuffer) cutLocked() PendingSegment {
	joined := make([]float32, 0, b.samples)
	for _, c := range b.chunks {
		joined = append(joined, c...)
	}

	segment := joined[:b.samplesPerSegment]
	overflow := joined[b.samplesPerSegment:]
	if len(overflow) > 0 {
		b.chunks = [][]float32{overflow}
	} else {
		b.chunks = nil
	}
	b.samples = len(overflow)

	start := b.segmentStart
	b.segmentStart = b.clock()

	return PendingSegment{Samples: segment, Start: start}
}

// Flush emits whatever remains as one final, possibly short, segment and
// leaves the buffer empty. Returns nil when nothing is buffered.
func (b *segmentBuffer) Flush() *PendingSegment {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.samples == 0 {
		return nil
	}

	joined := make([]float32, 0, b.samples)
	for _, c := range b.chunks {
		joined = append(joined, c...)
	}
	b.chunks = nil
	b.samples = 0

	start := b.segmentStart
	b.segmentStart = b.clock()

	return &PendingSegment{Samples: joined, Start: start}
}

// BufferedSamples reports the current carry-over size.
func (b *segmentBuffer) BufferedSamples() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.samples
}
