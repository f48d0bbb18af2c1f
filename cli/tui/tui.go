package tui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

// ErrAborted is returned when the user cancels a prompt.
var ErrAborted = errors.New("prompt cancelled")

// Prompter asks the user questions on a terminal, or reads answers from a
// plain stream when no terminal is attached. It implements publish.Confirmer.
type Prompter struct {
	in          io.Reader
	out         io.Writer
	assumeYes   bool
	interactive bool
	lines       *bufio.Reader
}

// New creates a prompter over stdin and out. Prompts are interactive when
// stdin is a terminal.
func New(out io.Writer, assumeYes bool) *Prompter {
	return NewWithIO(os.Stdin, out, assumeYes, term.IsTerminal(int(os.Stdin.Fd())))
}

// NewWithIO creates a prompter with explicit streams.
func NewWithIO(in io.Reader, out io.Writer, assumeYes, interactive bool) *Prompter {
	return &Prompter{
		in:          in,
		out:         out,
		assumeYes:   assumeYes,
		interactive: interactive,
		lines:       bufio.NewReader(in),
	}
}

// Confirm asks a yes/no question defaulting to yes.
func (p *Prompter) Confirm(ctx context.Context, question string) (bool, error) {
	return p.ConfirmDefault(ctx, question, true)
}

// ConfirmDefault asks a yes/no question. With --yes it answers yes without
// reading input. Without a terminal an empty line selects def and a closed
// stdin answers no.
func (p *Prompter) ConfirmDefault(ctx context.Context, question string, def bool) (bool, error) {
	if p.assumeYes {
		fmt.Fprintf(p.out, "%s %s\n", QuestionStyle.Render(question), HelpStyle.Render("yes (--yes)"))
		return true, nil
	}

	if !p.interactive {
		hint := "[y/N]"
		if def {
			hint = "[Y/n]"
		}
		fmt.Fprintf(p.out, "%s %s ", question, hint)
		line, err := p.readLine(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(p.out)
				return false, nil
			}
			return false, err
		}
		switch strings.ToLower(line) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}

	final, err := p.run(ctx, NewConfirmModel(question, def))
	if err != nil {
		return false, err
	}
	m := final.(ConfirmModel)
	if m.Aborted() {
		return false, ErrAborted
	}
	return m.Confirmed(), nil
}

// Input asks for one line of text. An empty answer is an error when no
// terminal is attached; the interactive prompt refuses to submit one.
func (p *Prompter) Input(ctx context.Context, label, placeholder string) (string, error) {
	if !p.interactive {
		fmt.Fprintf(p.out, "%s ", label)
		line, err := p.readLine(ctx)
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		if line == "" {
			return "", fmt.Errorf("%s: no value provided", strings.TrimSuffix(label, ":"))
		}
		return line, nil
	}

	final, err := p.run(ctx, NewInputModel(label, placeholder))
	if err != nil {
		return "", err
	}
	m := final.(InputModel)
	if !m.Submitted() {
		return "", ErrAborted
	}
	return m.Value(), nil
}

func (p *Prompter) run(ctx context.Context, model tea.Model) (tea.Model, error) {
	prog := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithInput(p.in),
		tea.WithOutput(p.out),
	)
	final, err := prog.Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("prompt: %w", err)
	}
	return final, nil
}

// readLine reads one trimmed line, giving up when ctx is done.
func (p *Prompter) readLine(ctx context.Context) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := p.lines.ReadString('\n')
		if err != nil && line != "" && errors.Is(err, io.EOF) {
			err = nil
		}
		ch <- result{strings.TrimSpace(line), err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		return r.line, r.err
	}
}
