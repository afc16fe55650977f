package render

// Observer receives reconciler notifications for metrics and diagnostics.
// Embed NopObserver to implement a subset.
type Observer interface {
	// Applied fires after a successful render pass.
	Applied(mode string, ops int)

	// ApplyFailed fires when a strategy raises an error during a pass.
	ApplyFailed(mode string, err error)

	// FallbackTriggered fires once, when repeated batched failures switch
	// the reconciler to the direct strategy for the rest of the session.
	FallbackTriggered(failures int)
}

// NopObserver implements Observer with no-ops for embedding.
type NopObserver struct{}

func (NopObserver) Applied(string, int)       {}
func (NopObserver) ApplyFailed(string, error) {}
func (NopObserver) FallbackTriggered(int)     {}
