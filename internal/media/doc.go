// Package media renders poster thumbnails for stored videos.
//
// A poster is one frame grabbed by the encoder (PNG or WebP), scaled to fit a 320x320 box
// and written as JPEG next to the video. Posters are regenerated when the
// video is newer than the cached file.
package media
