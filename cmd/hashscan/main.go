package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"golang.org/x/term"

	"hashdrop/internal/archive"
	"hashdrop/internal/digest"
	"hashdrop/internal/logging"
	"hashdrop/internal/metadata"
	"hashdrop/internal/pipeline"
	"hashdrop/internal/rules"
	"hashdrop/internal/signature"
	"hashdrop/internal/table"
)

const (
	exitOK        = 0
	exitError     = 1
	exitUsage     = 2
	exitCancelled = 130
)

type options struct {
	md5, sha1, sha256 bool
	scan              bool
	rulesDir          string
	hideDups          bool
	search            string
	mode              string
	caseSensitive     bool
	tsv               string
	zip               string
	workers           int
	skipHidden        bool
	followSymlinks    bool
	maxDepth          int
	verbose           bool
	quiet             bool
	paths             []string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	defaults := pipeline.DefaultConfig()

	fs := flag.NewFlagSet("hashscan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&opts.md5, "md5", false, "compute MD5 digests")
	fs.BoolVar(&opts.sha1, "sha1", false, "compute SHA-1 digests")
	fs.BoolVar(&opts.sha256, "sha256", false, "compute SHA-256 digests")
	fs.BoolVar(&opts.scan, "scan", false, "match file contents against the rules in -rules")
	fs.StringVar(&opts.rulesDir, "rules", defaults.RulesDir, "directory of *.rules files")
	fs.BoolVar(&opts.hideDups, "hide-dups", false, "show only the first file of each duplicate group")
	fs.StringVar(&opts.search, "search", "", "keep only rows with a cell matching this pattern")
	fs.StringVar(&opts.mode, "mode", "wildcard", "search mode: wildcard, word or regex")
	fs.BoolVar(&opts.caseSensitive, "case", false, "case sensitive search")
	fs.StringVar(&opts.tsv, "tsv", "", "write the visible rows as TSV to this file (- for stdout)")
	fs.StringVar(&opts.zip, "zip", "", "archive the visible files into this zip")
	fs.IntVar(&opts.workers, "workers", 0, "digest workers (0 = one per CPU)")
	fs.BoolVar(&opts.skipHidden, "skip-hidden", defaults.Expand.SkipHidden, "skip dot-files inside directories")
	fs.BoolVar(&opts.followSymlinks, "follow", defaults.Expand.FollowSymlinks, "descend into symlinked directories")
	fs.IntVar(&opts.maxDepth, "depth", defaults.Expand.MaxDepth, "maximum directory depth")
	fs.BoolVar(&opts.verbose, "v", false, "verbose logging")
	fs.BoolVar(&opts.quiet, "q", false, "only log errors")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: hashscan [flags] <file|dir>...")
		fmt.Fprintln(stderr, "")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	opts.paths = fs.Args()
	if len(opts.paths) == 0 {
		fs.Usage()
		return nil, errors.New("no paths given")
	}
	return opts, nil
}

// algorithms returns the flagged algorithms, or DEFAULT_ALGORITHMS
// (sha256 when unset) when no flag was given.
// sniffLimit matches the server: SNIFF_LARGE_FILE_LIMIT when set, otherwise
// the platform limit of the type detector.
func sniffLimit() int64 {
	if v := os.Getenv("SNIFF_LARGE_FILE_LIMIT"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err == nil && n >= 0 {
			return n
		}
		logging.Warn("Ignoring invalid SNIFF_LARGE_FILE_LIMIT %q", v)
	}
	return signature.LargeFileLimit()
}

func (o *options) algorithms() ([]digest.Algorithm, error) {
	var algs []digest.Algorithm
	if o.md5 {
		algs = append(algs, digest.MD5)
	}
	if o.sha1 {
		algs = append(algs, digest.SHA1)
	}
	if o.sha256 {
		algs = append(algs, digest.SHA256)
	}
	if len(algs) > 0 {
		return algs, nil
	}

	env := os.Getenv("DEFAULT_ALGORITHMS")
	if env == "" {
		return []digest.Algorithm{digest.SHA256}, nil
	}
	return digest.ParseList(env)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	showProgress := term.IsTerminal(int(os.Stderr.Fd()))
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr, showProgress))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, showProgress bool) int {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		return exitUsage
	}

	logging.SetOutput(stderr)
	switch {
	case opts.verbose:
		logging.SetLevel(logging.LevelDebug)
	case opts.quiet:
		logging.SetLevel(logging.LevelError)
	default:
		logging.SetLevel(logging.LevelWarn)
	}

	algs, err := opts.algorithms()
	if err != nil {
		fmt.Fprintf(stderr, "hashscan: %v\n", err)
		return exitUsage
	}

	var scanner *rules.Scanner
	var contentScanner metadata.ContentScanner
	if opts.scan {
		scanner = rules.NewScanner()
		contentScanner = scanner
		for _, d := range scanner.Reload(opts.rulesDir) {
			if d.Level != rules.LevelSuccess || opts.verbose {
				fmt.Fprintln(stderr, d)
			}
		}
	}

	config := pipeline.DefaultConfig()
	config.Expand.SkipHidden = opts.skipHidden
	config.Expand.FollowSymlinks = opts.followSymlinks
	config.Expand.MaxDepth = opts.maxDepth
	config.Digest.Workers = opts.workers
	config.RulesDir = opts.rulesDir

	coord := pipeline.New(config, metadata.NewExtractor(signature.NewMagic(), contentScanner, sniffLimit()), scanner)
	defer coord.Close()

	var progress *progressLine
	if showProgress {
		progress = &progressLine{w: stderr, perFile: 1 + len(algs)}
		defer coord.Subscribe(progress)()
	}

	summary, err := coord.Run(ctx, pipeline.Request{Paths: opts.paths, Algorithms: algs, Scan: opts.scan})
	if progress != nil {
		progress.finish()
	}
	if err != nil {
		fmt.Fprintf(stderr, "hashscan: %v\n", err)
		return exitError
	}

	if err := present(ctx, coord, opts, stdout); err != nil {
		fmt.Fprintf(stderr, "hashscan: %v\n", err)
		return exitError
	}

	fmt.Fprintln(stderr, summary)
	if summary.Cancelled {
		return exitCancelled
	}
	return exitOK
}

// present applies the view options and writes the requested outputs.
// Without -tsv or -zip the duplicate groups are listed.
func present(ctx context.Context, coord *pipeline.Coordinator, opts *options, stdout io.Writer) error {
	// Output still happens after an interrupt, for the work that was done
	ctx = context.WithoutCancel(ctx)

	if opts.search != "" {
		mode, err := table.ParseSearchMode(opts.mode)
		if err != nil {
			return err
		}
		if err := coord.SetSearch(ctx, table.Search{Pattern: opts.search, Mode: mode, CaseSensitive: opts.caseSensitive}); err != nil {
			return err
		}
	}
	if err := coord.SetHideDuplicates(ctx, opts.hideDups); err != nil {
		return err
	}

	if opts.tsv != "" {
		if err := writeTSV(ctx, coord, opts.tsv, stdout); err != nil {
			return err
		}
	}

	if opts.zip != "" {
		files, err := coord.VisiblePaths(ctx)
		if err != nil {
			return err
		}
		if err := archive.NewZip().Archive(ctx, files, opts.zip, nil); err != nil {
			return fmt.Errorf("archive failed: %w", err)
		}
	}

	if opts.tsv == "" && opts.zip == "" {
		snap, err := coord.Snapshot(ctx)
		if err != nil {
			return err
		}
		writeGroups(stdout, snap.Groups)
	}
	return nil
}

func writeTSV(ctx context.Context, coord *pipeline.Coordinator, dest string, stdout io.Writer) error {
	data, err := coord.ExportTSV(ctx)
	if err != nil {
		return err
	}
	if dest == "-" {
		_, err = stdout.Write(data)
		return err
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	return nil
}

func writeGroups(w io.Writer, groups []table.Group) {
	for _, g := range groups {
		fmt.Fprintf(w, "group %d  %s %s\n", g.Ordinal+1, g.Algorithm.Label(), g.Value)
		for _, p := range g.Paths {
			fmt.Fprintf(w, "  %s\n", p)
		}
	}
}

// progressLine redraws one status line on a terminal.
type progressLine struct {
	mu sync.Mutex
	w  io.Writer
	// perFile is one record step plus one step per algorithm
	perFile  int
	expected int
	drawn    bool
}

func (p *progressLine) Observe(e pipeline.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch e.Type {
	case pipeline.EventBatchStarted:
		p.expected = 0
	case pipeline.EventBatchSize:
		p.expected = e.Count * p.perFile
	case pipeline.EventProgress:
		fmt.Fprintf(p.w, "\r%s", progressText(e.Progress, p.expected))
		p.drawn = true
	case pipeline.EventScanDiagnostic:
		if e.Diagnostic != nil {
			p.clear()
			fmt.Fprintln(p.w, e.Diagnostic)
		}
	}
}

func (p *progressLine) clear() {
	if p.drawn {
		fmt.Fprint(p.w, "\r\033[K")
		p.drawn = false
	}
}

func (p *progressLine) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clear()
}

func progressText(progress, expected int) string {
	if expected == 0 {
		return fmt.Sprintf("%d", progress)
	}
	return fmt.Sprintf("%d/%d (%d%%)", progress, expected, progress*100/expected)
}
