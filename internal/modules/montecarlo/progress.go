package montecarlo

// ProgressCallback reports stress-test progress during long batches.
// Parameters:
//   - completed: Number of trials finished
//   - total: Total number of trials
//
// A nil ProgressCallback is valid and will be safely ignored by the
// reportProgress helper. Callbacks are invoked from the collector
// goroutine only, never concurrently.
type ProgressCallback func(completed, total int)

// reportProgress safely invokes the callback if non-nil.
func reportProgress(cb ProgressCallback, completed, total int) {
	if cb != nil {
		cb(completed, total)
	}
}
