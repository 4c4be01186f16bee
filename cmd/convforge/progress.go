package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/dusk-indust/convforge/internal/generator"
	"github.com/dusk-indust/convforge/internal/scheduler"
)

// progressPrinter renders completion events. On a terminal it rewrites a
// single status line; otherwise it prints one line per finished task.
type progressPrinter struct {
	out      io.Writer
	tty      bool
	reporter *scheduler.ProgressReporter
	done     sync.WaitGroup
	header   bool
	width    int
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func newProgressPrinter(out io.Writer, tty bool) *progressPrinter {
	p := &progressPrinter{
		out:      out,
		tty:      tty,
		reporter: scheduler.NewProgressReporter(),
	}
	p.done.Add(1)
	go p.consume()
	return p
}

// Emit is passed to the scheduler as its progress callback. Completion
// events are never dropped, so the final count always reaches the total.
func (p *progressPrinter) Emit(ev scheduler.ProgressEvent) {
	if ev.Status == scheduler.ProgressComplete {
		p.reporter.Deliver(ev)
		return
	}
	p.reporter.Emit(ev)
}

// Close stops the printer after draining queued events.
func (p *progressPrinter) Close() {
	p.reporter.Close()
	p.done.Wait()
	if p.tty && p.width > 0 {
		fmt.Fprintln(p.out)
	}
}

func (p *progressPrinter) consume() {
	defer p.done.Done()
	for ev := range p.reporter.Subscribe() {
		if !p.header {
			fmt.Fprintf(p.out, "Total generations to be made: %d\n", ev.Total)
			p.header = true
		}
		if ev.Status != scheduler.ProgressComplete {
			continue
		}
		line := colorize(ev.State, scheduler.FormatProgress(ev))
		if !p.tty {
			fmt.Fprintln(p.out, line)
			continue
		}
		pad := ""
		if n := len(line); n < p.width {
			pad = strings.Repeat(" ", p.width-n)
		} else {
			p.width = n
		}
		fmt.Fprintf(p.out, "\r%s%s", line, pad)
	}
}

func colorize(state generator.State, s string) string {
	switch state {
	case generator.StatePersisted:
		return color.GreenString(s)
	case generator.StateDiscarded, generator.StateExhausted:
		return color.YellowString(s)
	default:
		return color.RedString(s)
	}
}

func printSummary(w io.Writer, s scheduler.Summary, output string) {
	fmt.Fprintf(w, "\nBatch %s\n", s.BatchID)
	fmt.Fprintf(w, "  %s persisted  %d\n", color.GreenString("✓"), s.Persisted)
	fmt.Fprintf(w, "  %s discarded  %d\n", color.YellowString("⚠"), s.Discarded)
	fmt.Fprintf(w, "  %s exhausted  %d\n", color.YellowString("⚠"), s.Exhausted)
	fmt.Fprintf(w, "  %s failed     %d\n", color.RedString("✗"), s.Failed)
	if s.Skipped > 0 {
		fmt.Fprintf(w, "  %s skipped    %d\n", color.RedString("✗"), s.Skipped)
	}
	fmt.Fprintf(w, "  model calls  %d\n", s.Calls)
	fmt.Fprintf(w, "  dataset      %s\n", output)
}
