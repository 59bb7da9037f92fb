// Package handlers provides the HTTP API of the media hub.
//
// It includes handlers for:
//   - Login (accepts any credentials)
//   - Listing, fetching, uploading and deleting media records
//   - Reading and updating the user profile
//   - Transient preview handles owned by UI slots, and serving their bytes
//   - Health, liveness, version and Prometheus metrics
//
// Store failures on upload, delete and profile update are reported as a
// single generic JSON error; details go to the log.
package handlers
