// Package mediatypes maps stored file names to a coarse file type and a
// Content-Type for serving.
//
// The storage area holds videos (uploads, captioned outputs, combined
// outputs), SubRip caption tracks, JPEG poster thumbnails and concat
// manifests. Detection is by extension only:
//
//	mediatypes.ForName("output_1234.mp4") // FileTypeVideo
//	mediatypes.MimeForName("1234.srt")    // "application/x-subrip"
//
// The package has no dependencies beyond the standard library so any
// package can import it.
package mediatypes
