package aecbridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameAccumulator_NoOutputBeforeFull(t *testing.T) {
	var a FrameAccumulator
	for i := 0; i < 3; i++ { // 3*160 = 480 < 512
		_, ok := a.Push(make([]float64, BlockSize))
		assert.False(t, ok)
	}
}

func TestFrameAccumulator_EmitsOnceFull(t *testing.T) {
	var a FrameAccumulator
	var frame []float64
	var ok bool
	for i := 0; i < 4; i++ { // 4*160 = 640 >= 512
		frame, ok = a.Push(make([]float64, BlockSize))
		if ok {
			break
		}
	}
	require.True(t, ok)
	assert.Len(t, frame, FrameSize)
}

func TestFrameAccumulator_CarriesExcessForward(t *testing.T) {
	var a FrameAccumulator
	for i := range [4]int{} {
		block := make([]float64, BlockSize)
		for j := range block {
			block[j] = float64(i + 1)
		}
		frame, ok := a.Push(block)
		if ok {
			// 4*160=640 samples pushed, 512 consumed, 128 left over - the
			// next full frame should need only 512-128=384 more samples,
			// i.e. 2.4 more blocks' worth, and should start with the
			// carried-over tail (value 4, the 4th block).
			assert.Equal(t, 4.0, frame[FrameSize-1])

			// Three more (zero-valued) blocks: 128+160 and 128+320 fall
			// short, 128+480 completes the next frame.
			var next []float64
			for k := 0; k < 3; k++ {
				next, ok = a.Push(make([]float64, BlockSize))
				assert.Equal(t, k == 2, ok)
			}
			assert.Equal(t, 4.0, next[0])
			assert.Equal(t, 4.0, next[127])
			assert.Equal(t, 0.0, next[128])
			return
		}
	}
}

func TestOutputQueue_DrainBeforeAnyPush_ZeroFills(t *testing.T) {
	var q OutputQueue
	out := q.Drain(BlockSize)
	assert.Len(t, out, BlockSize)
	for _, x := range out {
		assert.Equal(t, 0.0, x)
	}
}

func TestOutputQueue_FIFOOrder(t *testing.T) {
	var q OutputQueue
	frame := make([]float64, FrameSize)
	for i := range frame {
		frame[i] = float64(i)
	}
	q.Push(frame)

	first := q.Drain(BlockSize)
	for i, x := range first {
		assert.Equal(t, float64(i), x)
	}
	second := q.Drain(BlockSize)
	for i, x := range second {
		assert.Equal(t, float64(BlockSize+i), x)
	}
}

// Over enough blocks to fully flush the pipeline, every sample pushed must
// eventually be drained exactly once, in order, with no loss or
// duplication - the zero-fill before the first frame is ready is the only
// deviation from a pure pass-through.
func TestAccumulatorAndQueue_PreservesOrderWithNoLossOrDuplication(t *testing.T) {
	var acc FrameAccumulator
	var q OutputQueue

	const blocks = 16 // 2560 samples = 5 complete 512-sample frames, no remainder
	const drainBlocks = blocks + 3 // exactly enough extra calls to flush what's left queued (480 samples = 3*160)

	counter := 1.0 // start at 1 so "0" unambiguously marks zero-fill
	var pushed, drained []float64
	for b := 0; b < drainBlocks; b++ {
		if b < blocks {
			block := make([]float64, BlockSize)
			for i := range block {
				block[i] = counter
				counter++
			}
			pushed = append(pushed, block...)
			if frame, ok := acc.Push(block); ok {
				q.Push(frame) // identity "AEC": pass the frame straight through
			}
		}
		drained = append(drained, q.Drain(BlockSize)...)
	}

	// Strip the leading zero-fill (emitted before the first frame
	// completed) and confirm what remains is exactly the pushed sequence,
	// in order.
	i := 0
	for i < len(drained) && drained[i] == 0 {
		i++
	}
	real := drained[i:]
	require.Len(t, real, len(pushed))
	for j := range pushed {
		assert.Equal(t, pushed[j], real[j])
	}
}
