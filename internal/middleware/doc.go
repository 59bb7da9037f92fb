// Package middleware provides HTTP middleware for the media hub API.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics labelled by route template
//   - Gzip compression of JSON responses
package middleware
