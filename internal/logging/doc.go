// Package logging provides the leveled logger used across media-hub.
//
// Levels, from most to least verbose:
//   - DEBUG: store internals, thumbnail derivation, handle bookkeeping
//   - INFO: startup, configuration and state changes
//   - WARN: recoverable problems (persistence falls back to memory)
//   - ERROR: failed operations surfaced to callers
//
// The level is read once from DEBUG or LOG_LEVEL and can be overridden
// with SetLevel, which tests use to silence or capture output.
package logging
