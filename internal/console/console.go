// Package console renders a run's progress for humans on stdout. It listens
// on the event bus, so it sees exactly what the observer handled and in the
// same order; structured logs go to the logger independently.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/Iron-Ham/photogram/internal/event"
	"github.com/Iron-Ham/photogram/internal/recon"
	"github.com/Iron-Ham/photogram/internal/util"
)

// Mode controls when the console draws.
type Mode string

const (
	ModeAuto   Mode = "auto"   // only when Out is a terminal
	ModeAlways Mode = "always" // plain lines when Out is not a terminal
	ModeNever  Mode = "never"
)

const (
	defaultWidth = 80
	minBarWidth  = 20
	maxBarWidth  = 60
)

// Options configures a Console.
type Options struct {
	Out         io.Writer
	Mode        Mode
	ProgressBar bool
}

// Console writes one line per event, or redraws a progress bar in place when
// attached to a terminal.
type Console struct {
	out         io.Writer
	enabled     bool
	interactive bool
	useBar      bool
	width       int
	styles      Styles
	bar         progress.Model

	mu          sync.Mutex
	lineOpen    bool
	subscribeID string
}

// New creates a Console. A nil Out means stdout.
func New(opts Options) *Console {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	width, tty := terminalWidth(out)
	c := &Console{
		out:         out,
		interactive: tty,
		width:       width,
		styles:      NewStyles(lipgloss.NewRenderer(out)),
	}

	switch opts.Mode {
	case ModeNever:
		c.enabled = false
	case ModeAlways:
		c.enabled = true
	default:
		c.enabled = tty
	}

	c.useBar = c.interactive && opts.ProgressBar
	if c.useBar {
		barWidth := min(max(width-30, minBarWidth), maxBarWidth)
		c.bar = progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth))
	}
	return c
}

// terminalWidth reports whether w is a terminal and its width.
func terminalWidth(w io.Writer) (int, bool) {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return defaultWidth, false
	}
	if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
		return width, true
	}
	return defaultWidth, true
}

// Enabled reports whether the console draws anything.
func (c *Console) Enabled() bool { return c.enabled }

// Attach subscribes the console to every event on bus. A disabled console
// does not subscribe.
func (c *Console) Attach(bus *event.Bus) {
	if !c.enabled {
		return
	}
	c.subscribeID = bus.SubscribeAll(c.Handle)
}

// Detach undoes Attach and terminates an open progress line.
func (c *Console) Detach(bus *event.Bus) {
	if c.subscribeID != "" {
		bus.Unsubscribe(c.subscribeID)
		c.subscribeID = ""
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLine()
}

// Handle renders one bus event.
func (c *Console) Handle(e event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev := e.(type) {
	case event.SessionEvent:
		c.session(ev.Payload)
	case event.ExportEvent:
		if ev.Err != nil {
			c.line(c.styles.Warning, "!", fmt.Sprintf("export to %s failed: %v", ev.Destination, ev.Err))
		} else {
			c.line(c.styles.Success, "✓", "exported "+ev.Destination)
		}
	case event.ExitEvent:
		c.closeLine()
	}
}

func (c *Console) session(p recon.Event) {
	text := recon.Describe(p)

	switch ev := p.(type) {
	case recon.RequestProgress:
		c.progress(ev)
	case recon.RequestProgressInfo:
		if !c.useBar {
			c.line(c.styles.Muted, "·", text)
		}
	case recon.InputComplete:
		c.line(c.styles.Muted, "·", text)
	case recon.InvalidSample, recon.SkippedSample, recon.AutomaticDownsampling, recon.ProcessingCancelled:
		c.line(c.styles.Warning, "!", text)
	case recon.RequestComplete:
		if ev.Result.IsModelFile() {
			c.line(c.styles.Success, "✓", text)
		} else {
			c.line(c.styles.Warning, "!", "unexpected result: "+text)
		}
	case recon.RequestError:
		c.line(c.styles.Error, "✗", text)
	case recon.ProcessingComplete:
		c.line(c.styles.Success, "✓", text)
	default:
		c.line(c.styles.Muted, "?", text)
	}
}

func (c *Console) progress(ev recon.RequestProgress) {
	if !c.useBar {
		c.line(c.styles.Primary, "·", recon.Describe(ev))
		return
	}
	pct := c.styles.Primary.Render(fmt.Sprintf("%5.1f%%", ev.Fraction*100))
	_, _ = fmt.Fprintf(c.out, "\r%s %s", c.bar.ViewAs(ev.Fraction), pct)
	c.lineOpen = true
}

// line writes a full status line, first ending any in-place progress line.
// On a terminal the line is cut to the terminal width.
func (c *Console) line(style lipgloss.Style, icon, text string) {
	c.closeLine()
	out := style.Render(icon) + " " + strings.TrimSpace(text)
	if c.interactive {
		out = util.TruncateWidth(out, c.width)
	}
	_, _ = fmt.Fprintln(c.out, out)
}

func (c *Console) closeLine() {
	if c.lineOpen {
		_, _ = fmt.Fprintln(c.out)
		c.lineOpen = false
	}
}
