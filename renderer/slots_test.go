package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinsley/goshaderproj/project"
)

func TestSlotAssignsUniqueTargets(t *testing.T) {
	seen := map[int]bool{}
	for passIndex := 0; passIndex <= project.MaxPasses; passIndex++ {
		for parity := 0; parity < HistoryLength; parity++ {
			slot := Slot(passIndex, parity)
			assert.False(t, seen[slot], "slot %d assigned twice", slot)
			assert.GreaterOrEqual(t, slot, 0)
			assert.Less(t, slot, RenderImageCount)
			seen[slot] = true
		}
	}
}

func TestResolveBufferSelfFeedbackReadsOppositeParity(t *testing.T) {
	outputs := []string{"BufferA", "Image"}

	// BufferA sampling itself reads the other parity's copy.
	slot, source, ok := ResolveBuffer(outputs, 0, "BufferA", 0)
	require.True(t, ok)
	assert.Equal(t, 0, source)
	assert.Equal(t, Slot(0, 1), slot)

	slot, _, ok = ResolveBuffer(outputs, 0, "BufferA", 1)
	require.True(t, ok)
	assert.Equal(t, Slot(0, 0), slot)
}

func TestResolveBufferCrossPassReadsSameParity(t *testing.T) {
	outputs := []string{"BufferA", "Image"}

	// The image pass reads BufferA's output from this frame.
	slot, source, ok := ResolveBuffer(outputs, 1, "BufferA", 0)
	require.True(t, ok)
	assert.Equal(t, 0, source)
	assert.Equal(t, Slot(0, 0), slot)

	slot, _, ok = ResolveBuffer(outputs, 1, "BufferA", 1)
	require.True(t, ok)
	assert.Equal(t, Slot(0, 1), slot)
}

func TestResolveBufferUnknownID(t *testing.T) {
	outputs := []string{"BufferA", "Image"}

	_, source, ok := ResolveBuffer(outputs, 1, "BufferZ", 0)
	assert.False(t, ok)
	assert.Equal(t, -1, source)
}

func TestResolveBufferLaterPass(t *testing.T) {
	outputs := []string{"BufferA", "BufferB", "Image"}

	// BufferA reading BufferB resolves to a pass rendered after it.
	slot, source, ok := ResolveBuffer(outputs, 0, "BufferB", 0)
	require.True(t, ok)
	assert.Equal(t, 1, source)
	assert.Equal(t, Slot(1, 0), slot)
}
