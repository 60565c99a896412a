package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/flowmanager/pkg/hub"
	"golang.org/x/term"
)

// Prompter answers hub pauses from a line-oriented reader.
// In JSON mode each pause is written as one JSON line and each answer is read as JSON.
type Prompter struct {
	hub    *hub.Hub
	in     *bufio.Reader
	out    io.Writer
	json   bool
	tty    bool
	logger *slog.Logger

	pauses chan hub.PauseInfo
	lines  chan inputLine
	done   chan struct{}
}

type inputLine struct {
	text string
	err  error
}

// NewPrompter creates a prompter. The prompt marker is only printed when in is a terminal.
func NewPrompter(h *hub.Hub, in io.Reader, out io.Writer, jsonMode bool, logger *slog.Logger) *Prompter {
	return &Prompter{
		hub:    h,
		in:     bufio.NewReader(in),
		out:    out,
		json:   jsonMode,
		tty:    isTerminal(in),
		logger: logger,
		pauses: make(chan hub.PauseInfo, 16),
		lines:  make(chan inputLine),
		done:   make(chan struct{}),
	}
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Start queues pauses from the hub and answers them one at a time until ctx is
// done. stop returns once no more answers will be delivered, even if a read
// from the input is still blocked.
func (p *Prompter) Start(ctx context.Context) (stop func()) {
	id := p.hub.AddEventListener(hub.EventPaused, func(data any) {
		if ev, ok := data.(hub.PausedEvent); ok {
			select {
			case p.pauses <- ev.PauseInfo:
			default:
				p.logger.Warn("prompt queue full, pause left for the HTTP API", "pause_id", ev.PauseID)
			}
		}
	})

	ctx, cancel := context.WithCancel(ctx)
	go p.readLines(ctx)
	go p.loop(ctx)

	return func() {
		p.hub.RemoveEventListener(hub.EventPaused, id)
		cancel()
		<-p.done
	}
}

// readLines feeds p.lines one line at a time. A read blocked on an open
// input only returns with the next line or EOF; that line is then dropped.
func (p *Prompter) readLines(ctx context.Context) {
	for {
		text, err := p.in.ReadString('\n')
		select {
		case p.lines <- inputLine{text: text, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

func (p *Prompter) loop(ctx context.Context) {
	defer close(p.done)
	for {
		select {
		case <-ctx.Done():
			return
		case info := <-p.pauses:
			if !p.hub.IsPaused(info.PauseID) {
				continue
			}
			answer, err := p.ask(ctx, info)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if err != io.EOF {
					p.logger.Warn("failed to read answer", "pause_id", info.PauseID, "err", err)
				}
				p.logger.Debug("input closed, pauses must be resumed over HTTP")
				return
			}
			if !p.hub.Resume(info.PauseID, answer) {
				p.logger.Debug("pause already settled", "pause_id", info.PauseID)
			}
		}
	}
}

func (p *Prompter) ask(ctx context.Context, info hub.PauseInfo) (any, error) {
	if p.json {
		line, err := json.Marshal(map[string]any{
			"event":          hub.EventPaused,
			"pauseId":        info.PauseID,
			"flowInstanceId": info.FlowInstanceID,
			"details":        info.Details,
		})
		if err != nil {
			return nil, err
		}
		fmt.Fprintln(p.out, string(line))
	} else {
		fmt.Fprintln(p.out, promptText(info))
		if p.tty {
			fmt.Fprint(p.out, "> ")
		}
	}

	var in inputLine
	select {
	case in = <-p.lines:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	text, err := in.text, in.err
	if err != nil && (err != io.EOF || text == "") {
		return nil, err
	}
	text = strings.TrimRight(text, "\r\n")

	if p.json {
		return ParseInput(text), nil
	}
	return text, nil
}

func promptText(info hub.PauseInfo) string {
	details, ok := info.Details.(map[string]any)
	if !ok {
		return fmt.Sprintf("[%s] input required", info.PauseID)
	}
	msg := fmt.Sprint(details["message"])
	if details["message"] == nil {
		msg = "input required"
	}
	if choices, ok := details["choices"].([]any); ok && len(choices) > 0 {
		parts := make([]string, len(choices))
		for i, c := range choices {
			parts[i] = fmt.Sprint(c)
		}
		msg += " (" + strings.Join(parts, "/") + ")"
	}
	return msg
}
