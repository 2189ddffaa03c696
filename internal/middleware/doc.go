// Package middleware provides HTTP middleware for the video captioner.
//
// It includes:
//   - Request correlation ids (X-Request-ID)
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics
//   - Request body size limits
package middleware
