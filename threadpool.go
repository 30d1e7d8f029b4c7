package surfrecon

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// threadPoolSize holds the process-wide worker count set by
// InitializeThreadPool, 0 meaning "not yet initialized, use
// runtime.GOMAXPROCS(0)".
var (
	threadPoolOnce sync.Once
	threadPoolSize atomic.Int64
)

// InitializeThreadPool fixes the number of workers every subsequent
// call to Reconstruct/ReconstructInplace in this process will fan out
// across, mirroring the original library's rayon-backed
// initialize_thread_pool: a process-wide worker pool initialized once,
// where re-initialization is an error (spec.md §5, §6). Go has no
// rayon equivalent; workers here are the same GOMAXPROCS-sized
// goroutine fan-out the rest of this package already uses (see
// particles_ecs.go's worker-pool pattern), just capped at numThreads.
func InitializeThreadPool(numThreads int) error {
	if numThreads <= 0 {
		return wrapErr(InvalidParameter, fmt.Errorf("thread count must be positive, got %d", numThreads))
	}

	alreadyInit := true
	threadPoolOnce.Do(func() {
		alreadyInit = false
		threadPoolSize.Store(int64(numThreads))
	})
	if alreadyInit {
		return wrapErr(InvalidParameter, fmt.Errorf("thread pool already initialized with %d threads", threadPoolSize.Load()))
	}
	return nil
}

// workerCount returns the configured worker count, or GOMAXPROCS if
// InitializeThreadPool was never called.
func workerCount() int {
	if n := threadPoolSize.Load(); n > 0 {
		return int(n)
	}
	return runtime.GOMAXPROCS(0)
}
