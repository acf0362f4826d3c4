// Package renderer executes shader programs: it resolves each pass's channel
// bindings against the shared double-buffered render targets, runs the passes
// in order every frame and composites the result into the swap chain with a
// crossfade between scheduled programs.
package renderer

import (
	"github.com/richinsley/goshaderproj/project"
)

const (
	// HistoryLength is how many frames of each pass's output are kept so
	// that passes can read their own previous frame.
	HistoryLength = 2

	// RenderImageCount is the size of the shared render-target array: one
	// slot pair per possible pass, including the image pass. All programs
	// share the same array; switching programs only changes which slots
	// the active program's bindings point at.
	RenderImageCount = (project.MaxPasses + 1) * HistoryLength
)

// Slot maps a pass position and parity to its render-target index.
func Slot(passIndex, parity int) int {
	return passIndex*HistoryLength + parity
}

// ResolveBuffer finds the render-target slot a named-output input samples.
// Passes are scanned in declaration order for the matching output id. A pass
// reading its own output gets the opposite parity (last frame's output);
// reading another pass's output gets the same parity (this frame's output).
// source is the index of the producing pass, or -1 when no pass matches.
func ResolveBuffer(outputIDs []string, passIndex int, id string, parity int) (slot, source int, ok bool) {
	for i, out := range outputIDs {
		if out != id {
			continue
		}
		srcParity := parity
		if i == passIndex {
			srcParity = parity ^ 1
		}
		return Slot(i, srcParity), i, true
	}
	return 0, -1, false
}
