// Command rcplay is a playground for shared ownership: it binds names to
// owners and observers held in resource tables and prints how counts and
// block state change as commands run.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/refptr/cmem"
	"github.com/wippyai/refptr/linmem"
	"github.com/wippyai/refptr/resource"
	"github.com/wippyai/refptr/shared"
)

func main() {
	var (
		script      = flag.String("script", "", "Path to a command script (default: stdin)")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("v", false, "Log control block transitions to stderr")
		maxPages    = flag.Uint("pages", 16, "Linear memory page limit for buf commands")
	)
	flag.Parse()

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		installLogger(logger)
	}

	memCfg := &linmem.Config{MaxPages: uint32(*maxPages)}

	if *interactive || (*script == "" && term.IsTerminal(int(os.Stdin.Fd()))) {
		if err := runInteractive(memCfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	in := io.Reader(os.Stdin)
	if *script != "" {
		f, err := os.Open(*script)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	failed, err := run(context.Background(), in, os.Stdout, memCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if failed > 0 {
		os.Exit(2)
	}
}

func installLogger(l *zap.Logger) {
	shared.SetLogger(l.Named("shared"))
	resource.SetLogger(l.Named("resource"))
	linmem.SetLogger(l.Named("linmem"))
	cmem.SetLogger(l.Named("cmem"))
}

// run executes every line of in and returns the number of failed commands.
func run(ctx context.Context, in io.Reader, out io.Writer, memCfg *linmem.Config) (int, error) {
	s := newSession(ctx, out, memCfg)

	failed := 0
	scanner := bufio.NewScanner(in)
	for line := 1; scanner.Scan(); line++ {
		if err := s.Exec(scanner.Text()); err != nil {
			fmt.Fprintf(out, "line %d: error: %v\n", line, err)
			failed++
		}
	}
	if err := scanner.Err(); err != nil {
		s.Close()
		return failed, fmt.Errorf("read script: %w", err)
	}

	fmt.Fprintln(out, "-- end of script, releasing")
	if err := s.Close(); err != nil {
		return failed, fmt.Errorf("close session: %w", err)
	}
	return failed, nil
}
