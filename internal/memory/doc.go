// Package memory sizes the Go heap for containers and applies backpressure
// to uploads when the heap nears that size.
//
// # Heap limit
//
// [ConfigureFromEnv] should run early in main:
//
//   - GOMEMLIMIT: standard Go variable, takes precedence when set.
//   - MEMORY_LIMIT: container limit in bytes, typically from the Kubernetes
//     Downward API.
//   - MEMORY_RATIO: share of MEMORY_LIMIT given to the heap, in (0, 1].
//     Default 0.85.
//
// Example pod spec:
//
//	env:
//	  - name: MEMORY_LIMIT
//	    valueFrom:
//	      resourceFieldRef:
//	        resource: limits.memory
//
// # Upload backpressure
//
// [UploadGuard] samples live heap bytes on an interval. Above PauseAt it
// pauses uploads and triggers a GC; [UploadGuard.Wait] then blocks until
// usage falls below ResumeAt or the caller's context ends. Without a limit
// the guard never pauses.
package memory
