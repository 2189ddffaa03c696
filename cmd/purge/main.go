package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"video-captioner/internal/startup"
	"video-captioner/internal/storage"

	"golang.org/x/term"
)

const defaultStorageDir = "./uploads"

func main() {
	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr, interactive))
}

// run executes the command and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer, interactive bool) int {
	fs := flag.NewFlagSet("purge", flag.ContinueOnError)
	fs.SetOutput(stderr)

	dir := fs.String("dir", storageDirDefault(), "storage directory")
	olderThan := fs.Duration("older-than", 0, "remove files older than this duration (e.g. 24h)")
	dryRun := fs.Bool("dry-run", false, "only report what would be removed")
	yes := fs.Bool("yes", false, "do not ask for confirmation")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *olderThan <= 0 {
		fmt.Fprintln(stderr, "Error: -older-than must be a positive duration")
		fs.Usage()
		return 2
	}

	info, err := os.Stat(*dir)
	if err != nil || !info.IsDir() {
		fmt.Fprintf(stderr, "Error: storage directory %s is not accessible\n", *dir)
		return 1
	}

	area, err := storage.New(*dir)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	now := time.Now()
	preview, err := area.Sweep(*olderThan, now, true)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "%d file(s) older than %s in %s (%s)\n",
		preview.Removed, *olderThan, area.Root(), startup.FormatSize(preview.FreedBytes))
	if *dryRun || preview.Removed == 0 {
		return 0
	}

	if !*yes {
		if !interactive {
			fmt.Fprintln(stderr, "Error: refusing to delete without -yes when not running interactively")
			return 1
		}
		if !confirm(stdin, stdout) {
			fmt.Fprintln(stdout, "Aborted.")
			return 1
		}
	}

	result, err := area.Sweep(*olderThan, now, false)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "Removed %d file(s), freed %s\n", result.Removed, startup.FormatSize(result.FreedBytes))
	if result.Failed > 0 {
		fmt.Fprintf(stderr, "Warning: %d file(s) could not be removed\n", result.Failed)
		return 1
	}
	return 0
}

func storageDirDefault() string {
	if dir := os.Getenv("STORAGE_DIR"); dir != "" {
		return dir
	}
	return defaultStorageDir
}

func confirm(stdin io.Reader, stdout io.Writer) bool {
	fmt.Fprint(stdout, "Delete these files? [y/N]: ")
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
