package platform

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/yndnr/dxshell-go/internal/core/domain"
	"github.com/yndnr/dxshell-go/internal/core/service"
	"github.com/yndnr/dxshell-go/internal/telemetry/logger"
)

// ConsoleScreen is a navigation surface that prints each screen change.
type ConsoleScreen struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleScreen creates a ConsoleScreen writing to out.
func NewConsoleScreen(out io.Writer) *ConsoleScreen {
	return &ConsoleScreen{out: out}
}

// Navigate implements service.NavigationHandle.
func (c *ConsoleScreen) Navigate(screen domain.Screen) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "[screen] %s\n", screen)
}

// ConsoleWeb stands in for the embedded web view. Tokens in loaded URLs
// are masked before printing.
type ConsoleWeb struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleWeb creates a ConsoleWeb writing to out.
func NewConsoleWeb(out io.Writer) *ConsoleWeb {
	return &ConsoleWeb{out: out}
}

// Reload implements service.WebSurface.
func (c *ConsoleWeb) Reload(url string) {
	shown := url
	if strings.Contains(url, service.TokenQueryParam+"=") {
		shown = logger.RedactString(url)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "[web] load %s\n", shown)
}

// PostMessage implements service.WebSurface.
func (c *ConsoleWeb) PostMessage(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "[web] message %s\n", data)
}

// LinePrompter asks for confirmation on a line-oriented terminal.
//
// Input is read only while a prompt is open, and every read is tagged with
// the prompt it was made for. Once a prompt is abandoned (its context
// ended), lines from reads made for it or for earlier prompts are
// discarded, so a late answer never confirms a prompt the user did not
// see.
type LinePrompter struct {
	mu   sync.Mutex // one prompt at a time
	in   io.Reader
	out  io.Writer
	once sync.Once
	wake chan struct{}
	eof  chan struct{}

	state     sync.Mutex
	seq       uint64
	abandoned uint64
	pending   chan string // answer slot of the open prompt, nil between prompts
}

// NewLinePrompter creates a LinePrompter reading answers from in.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{
		in:   in,
		out:  out,
		wake: make(chan struct{}, 1),
		eof:  make(chan struct{}),
	}
}

// Confirm implements service.Prompter. Only an explicit yes or the confirm
// label counts as consent; end of input and ctx cancellation decline.
func (p *LinePrompter) Confirm(ctx context.Context, prompt service.Prompt) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	answer := make(chan string, 1)
	p.state.Lock()
	p.seq++
	seq := p.seq
	p.pending = answer
	p.state.Unlock()
	defer func() {
		p.state.Lock()
		if p.pending == answer {
			p.pending = nil
			p.abandoned = seq
		}
		p.state.Unlock()
	}()

	select {
	case p.wake <- struct{}{}:
	default:
	}
	p.once.Do(func() { go p.readLines() })

	fmt.Fprintf(p.out, "%s\n%s\n[%s/%s]: ", prompt.Title, prompt.Message, prompt.ConfirmLabel, prompt.CancelLabel)

	select {
	case <-ctx.Done():
		fmt.Fprintln(p.out)
		return false
	case line := <-answer:
		return isConsent(line, prompt.ConfirmLabel)
	case <-p.eof:
		return false
	}
}

// readLines hands input lines to open prompts until in is exhausted.
func (p *LinePrompter) readLines() {
	defer close(p.eof)

	// cur is the prompt the next scan reads for; last is the prompt the
	// most recent read from in was made for.
	var cur, last uint64
	sc := bufio.NewScanner(readerFunc(func(b []byte) (int, error) {
		last = cur
		return p.in.Read(b)
	}))
	for {
		cur = p.awaitPrompt()
		if !sc.Scan() {
			return
		}
		p.deliver(last, sc.Text())
	}
}

// awaitPrompt blocks until a prompt is open and returns its sequence number.
func (p *LinePrompter) awaitPrompt() uint64 {
	for {
		p.state.Lock()
		if p.pending != nil {
			seq := p.seq
			p.state.Unlock()
			return seq
		}
		p.state.Unlock()
		<-p.wake
	}
}

// deliver answers the open prompt with line unless line was read for an
// abandoned prompt.
func (p *LinePrompter) deliver(readFor uint64, line string) {
	p.state.Lock()
	defer p.state.Unlock()
	if p.pending == nil || readFor <= p.abandoned {
		return
	}
	p.pending <- line
	p.pending = nil
}

type readerFunc func([]byte) (int, error)

func (f readerFunc) Read(b []byte) (int, error) { return f(b) }

func isConsent(line, confirmLabel string) bool {
	a := strings.ToLower(strings.TrimSpace(line))
	if a == "" {
		return false
	}
	return a == "y" || a == "yes" || a == strings.ToLower(confirmLabel)
}

// StaticPrompter answers every prompt with Answer. It backs --yes and
// non-interactive runs.
type StaticPrompter struct {
	Answer bool
}

// Confirm implements service.Prompter.
func (p StaticPrompter) Confirm(context.Context, service.Prompt) bool {
	return p.Answer
}
