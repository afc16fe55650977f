package state

// frame records the paths read by one in-progress computation evaluation.
type frame struct {
	comp *Computation

	// reads preserves first-read order; seen deduplicates.
	reads []string
	seen  map[string]struct{}
}

// tracker is the re-entrant stack of active computation frames. Evaluating
// computation A may synchronously evaluate nested computation B before A
// completes; reads always attribute to the innermost frame only, which is
// what makes tracking branch-aware: a nested computation that did not run
// this time contributes nothing to its parent's subscriptions.
//
// The tracker is not synchronized; the Engine serializes all evaluation.
type tracker struct {
	frames []*frame
}

// begin pushes a frame for c and returns a token for end.
func (t *tracker) begin(c *Computation) int {
	t.frames = append(t.frames, &frame{
		comp: c,
		seen: make(map[string]struct{}),
	})
	return len(t.frames) - 1
}

// end pops the frame identified by token and returns its finalized path
// set. end must be called even when the computation body panicked, so the
// stack never holds a dead frame; callers discard the partial set in that
// case. Frames above token (left behind by a panic mid-nesting) are
// discarded with it.
func (t *tracker) end(token int) []string {
	if token < 0 || token >= len(t.frames) {
		return nil
	}
	f := t.frames[token]
	t.frames = t.frames[:token]
	return f.reads
}

// recordRead attributes a path read to the innermost active frame.
// No-op when nothing is tracking.
func (t *tracker) recordRead(path string) {
	if len(t.frames) == 0 {
		return
	}
	f := t.frames[len(t.frames)-1]
	if _, dup := f.seen[path]; dup {
		return
	}
	f.seen[path] = struct{}{}
	f.reads = append(f.reads, path)
}

// active reports whether any frame is tracking.
func (t *tracker) active() bool {
	return len(t.frames) > 0
}

// suspend temporarily disables tracking by remembering and clearing the
// stack; resume restores it. Used by Engine.Untracked.
func (t *tracker) suspend() []*frame {
	frames := t.frames
	t.frames = nil
	return frames
}

func (t *tracker) resume(frames []*frame) {
	t.frames = frames
}
