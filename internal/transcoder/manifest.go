package transcoder

import (
	"fmt"
	"os"
	"strings"
)

// WriteManifest writes a concat demuxer list with one file directive per
// input, in order. Single quotes in paths are escaped for the demuxer's
// quoting rules.
func WriteManifest(path string, inputs []string) error {
	var b strings.Builder
	for _, in := range inputs {
		fmt.Fprintf(&b, "file '%s'\n", escapeManifestPath(in))
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write concat manifest: %w", err)
	}
	return nil
}

func escapeManifestPath(p string) string {
	return strings.ReplaceAll(p, "'", `'\''`)
}
