package filesystem

// Observer records filesystem operation metrics. Implementations are provided
// by the metrics package to break the import cycle between filesystem and metrics.
type Observer interface {
	// ObserveOperation records duration and error status for an operation
	// such as "stat", "write", "rename", "remove" or "readdir".
	ObserveOperation(operation string, durationSeconds float64, err error)
	ObserveRetryAttempt(operation string)
	ObserveStaleError(operation string)
}

var defaultObserver Observer

// SetObserver sets the package-level metrics observer.
// Call this once at startup after creating the observer implementation.
func SetObserver(o Observer) {
	defaultObserver = o
}

// ObserveOperation forwards to the registered observer, if any. Exported so
// the storage package can time operations that need no retry.
func ObserveOperation(operation string, durationSeconds float64, err error) {
	if defaultObserver != nil {
		defaultObserver.ObserveOperation(operation, durationSeconds, err)
	}
}

func observeRetry(operation string) {
	if defaultObserver != nil {
		defaultObserver.ObserveRetryAttempt(operation)
	}
}

func observeStale(operation string) {
	if defaultObserver != nil {
		defaultObserver.ObserveStaleError(operation)
	}
}
