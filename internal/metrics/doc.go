// Package metrics provides Prometheus instrumentation for media-hub.
//
// All metrics are prefixed with "mediahub_" and registered on the default
// registry through promauto, so importing the package is enough to expose
// them on /metrics.
//
// # Metric Categories
//
// ## HTTP Metrics
//
//   - HTTPRequestsTotal: requests by method, path and status
//   - HTTPRequestDuration: request duration by method and path
//   - HTTPRequestsInFlight: requests currently being served
//
// ## Store Metrics
//
//   - StoreOperationsTotal / StoreOperationDuration: per store operation
//   - StoreMediaItems: size of the media collection
//   - StoreNextID: identifier the next upload will receive
//   - StoreUploadBytes: accepted upload volume by media type
//
// ## Persistence Metrics
//
//   - PersistenceErrors: read, parse and write failures that were
//     recovered by falling back to in-memory state
//   - PersistenceRestores: initializations that restored or reseeded
//
// ## Thumbnail Metrics
//
//   - ThumbnailGenerationsTotal / ThumbnailGenerationDuration
//   - ThumbnailFFmpegDuration, ThumbnailExtractionsInFlight
//
// ## Object URL Metrics
//
//   - ObjectURLsLive: transient handles currently held
//   - ObjectURLsCreated / ObjectURLsReleased (by reason)
package metrics
