// Package shell is the interactive console for the topic bus: a line-based
// REPL offering the `mcn` command family (list, echo, suspend, resume)
// against the process-wide topic registry.
package shell

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"umcn/pkg/mcn"
)

// Shell reads commands from in and writes results to out.
type Shell struct {
	in  io.Reader
	out io.Writer

	echoPeriod time.Duration // default poll period for `mcn echo`
	echoCount  int           // default echo count for `mcn echo`
}

// New creates a shell with the given echo defaults.
func New(in io.Reader, out io.Writer, echoPeriod time.Duration, echoCount int) *Shell {
	if echoPeriod <= 0 {
		echoPeriod = 500 * time.Millisecond
	}
	if echoCount < 1 {
		echoCount = 1
	}
	return &Shell{in: in, out: out, echoPeriod: echoPeriod, echoCount: echoCount}
}

// Run processes commands until the input ends, an `exit` command is read or
// the context is found canceled. The context is checked each time a line is
// read; a Run waiting for input returns only when the next line arrives or
// the input ends.
func (s *Shell) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	fmt.Fprint(s.out, "msh> ")
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			fmt.Fprint(s.out, "msh> ")
			continue
		}
		switch fields[0] {
		case "mcn":
			s.runMcn(ctx, fields[1:])
		case "help":
			s.usage()
		case "exit", "quit":
			return nil
		default:
			fmt.Fprintf(s.out, "unknown command: %s\n", fields[0])
			s.usage()
		}
		fmt.Fprint(s.out, "msh> ")
	}
	return scanner.Err()
}

func (s *Shell) usage() {
	fmt.Fprintln(s.out, "usage: mcn <command> [options]")
	fmt.Fprintln(s.out, "")
	fmt.Fprintln(s.out, "command:")
	fmt.Fprintf(s.out, " %-10s  %s\n", "list", "List all uMCN topics.")
	fmt.Fprintf(s.out, " %-10s  %s\n", "echo", "Echo a uMCN topic.")
	fmt.Fprintf(s.out, " %-10s  %s\n", "suspend", "Suspend a uMCN topic.")
	fmt.Fprintf(s.out, " %-10s  %s\n", "resume", "Resume a uMCN topic.")
}

// RunMcn executes one `mcn` command line (without the leading "mcn") and
// returns a process-style exit code: 0 on success, 1 on failure.
func (s *Shell) RunMcn(ctx context.Context, args []string) int {
	return s.runMcn(ctx, args)
}

func (s *Shell) runMcn(ctx context.Context, args []string) int {
	if len(args) == 0 {
		s.usage()
		return 1
	}
	switch args[0] {
	case "list":
		s.listTopics()
		return 0
	case "echo":
		return s.echoTopic(ctx, args[1:])
	case "suspend":
		return s.setSuspend(args[1:], true)
	case "resume":
		return s.setSuspend(args[1:], false)
	default:
		s.usage()
		return 1
	}
}

func (s *Shell) listTopics() {
	nameLen := len("Topic")
	for c := mcn.List(); ; {
		h := c.Next()
		if h == nil {
			break
		}
		if len(h.Name()) > nameLen {
			nameLen = len(h.Name())
		}
	}
	nameLen += 2

	fmt.Fprintf(s.out, "%-*s #SUB   Freq(Hz)   Echo   Suspend\n", nameLen, "Topic")
	fmt.Fprintf(s.out, "%s ------ ---------- ------ ---------\n", strings.Repeat("-", nameLen))
	for c := mcn.List(); ; {
		h := c.Next()
		if h == nil {
			break
		}
		fmt.Fprintf(s.out, "%-*s %4d   %8.1f   %-5t  %t\n",
			nameLen, h.Name(), h.SubscriberCount(), h.Frequency(), h.HasEcho(), h.Suspended())
	}
}

func (s *Shell) setSuspend(args []string, suspend bool) int {
	if len(args) == 0 {
		if suspend {
			fmt.Fprintln(s.out, "usage: mcn suspend <topic>")
		} else {
			fmt.Fprintln(s.out, "usage: mcn resume <topic>")
		}
		return 1
	}
	hub := mcn.FindHub(args[0])
	if hub == nil {
		fmt.Fprintf(s.out, "can not find topic %s\n", args[0])
		return 1
	}
	if suspend {
		hub.Suspend()
	} else {
		hub.Resume()
	}
	return 0
}

func (s *Shell) echoTopic(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("mcn echo", flag.ContinueOnError)
	fs.SetOutput(s.out)
	count := fs.Int("n", s.echoCount, "echo count")
	fs.IntVar(count, "number", s.echoCount, "echo count")
	periodMs := fs.Int("p", int(s.echoPeriod/time.Millisecond), "echo period (ms)")
	fs.IntVar(periodMs, "period", int(s.echoPeriod/time.Millisecond), "echo period (ms)")
	// Options may appear before or after the topic name; keep re-parsing
	// past each positional argument.
	var name string
	rest := args
	for len(rest) > 0 {
		if err := fs.Parse(rest); err != nil {
			return 1
		}
		if fs.NArg() == 0 {
			break
		}
		if name == "" {
			name = fs.Arg(0)
		}
		rest = fs.Args()[1:]
	}
	if name == "" {
		fmt.Fprintln(s.out, "usage: mcn echo <topic> [options]")
		fmt.Fprintln(s.out, "")
		fmt.Fprintln(s.out, "options:")
		fmt.Fprintf(s.out, " %-15s  %s\n", "-n, --number", "Set topic echo number, e.g, -n 10 will echo 10 times.")
		fmt.Fprintf(s.out, " %-15s  %s\n", "-p, --period", "Set topic echo period (ms)")
		return 1
	}

	hub := mcn.FindHub(name)
	if hub == nil {
		fmt.Fprintf(s.out, "can not find topic %s\n", name)
		return 1
	}
	if !hub.HasEcho() {
		fmt.Fprintln(s.out, "there is no topic echo function defined")
		return 1
	}

	node, err := hub.Subscribe(nil, nil)
	if err != nil {
		fmt.Fprintln(s.out, "mcn subscribe fail")
		return 1
	}

	period := time.Duration(*periodMs) * time.Millisecond
	if period <= 0 {
		period = s.echoPeriod
	}
	limiter := rate.NewLimiter(rate.Every(period), 1)

	for remaining := *count; remaining > 0; {
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		if node.Poll() {
			if err := hub.Echo(s.out); err != nil {
				fmt.Fprintf(s.out, "echo error: %v\n", err)
				break
			}
			node.Clear()
			remaining--
		}
	}

	if hub.Unsubscribe(node) != nil {
		fmt.Fprintln(s.out, "mcn unsubscribe fail")
		return 1
	}
	return 0
}
