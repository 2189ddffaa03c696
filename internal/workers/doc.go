/*
Package workers sizes the encoder job pool.

Each caption burn or concat runs one FFmpeg process, and a caption burn is
CPU-bound for its whole duration. The pool is sized from GOMAXPROCS rather
than runtime.NumCPU so that container CPU limits are respected: a pod
limited to 2 CPUs on a 64-core node gets 2 slots, not 64.

	limit := workers.ForCPU(4) // 1 per CPU, at most 4

Operators can pin the count with TRANSCODE_WORKERS:

	env:
	- name: TRANSCODE_WORKERS
	  value: "2"

An explicit MAX_CONCURRENT_JOBS in the service configuration takes
precedence over both.
*/
package workers
