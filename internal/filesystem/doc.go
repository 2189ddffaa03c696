/*
Package filesystem wraps the handful of filesystem calls the storage area
depends on with retry logic for NFS stale file handle errors and an optional
metrics observer.

The storage directory is commonly a network mount in container deployments.
ESTALE (errno 116) errors there are transient, so stat and rename are retried
with exponential backoff; every other error is returned on the first attempt.

# Usage

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())
	if errors.Is(err, fs.ErrNotExist) {
	    // missing
	}

	if err := filesystem.RenameWithRetry(tmp, final, filesystem.DefaultRetryConfig()); err != nil {
	    return err
	}

# Observability

The package does not import the metrics package. Instead, metrics registers
an Observer at startup:

	filesystem.SetObserver(metrics.NewFilesystemObserver())

Without an observer, nothing is recorded, which keeps tests free of global
Prometheus state.
*/
package filesystem
