// Package handlers implements the HTTP endpoints of the video captioner.
//
// Routes:
//   - POST /api/upload: multipart upload (field "video") with caption text
//     (field "question"); burns the caption in and returns the output URL
//   - POST /api/combine: JSON {"files":[{"name":...}]}; concatenates stored
//     videos in order
//   - GET /uploads/{filename}: serves a stored file with range support
//   - DELETE /uploads/{filename}: removes a stored file
//   - GET /api/thumbnail/{filename}: JPEG poster frame for a stored video
//   - GET /: liveness message
//   - GET /healthz, /livez, /readyz, /version: operational endpoints
//
// Caller mistakes get 400 with an "error" message. Server-side failures get
// 500 (504 on timeout) with a generic message and the request id; the
// diagnostic detail is only logged.
package handlers
