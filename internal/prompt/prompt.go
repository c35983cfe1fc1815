package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/mattn/go-isatty"

	"celtrix/internal/logger"
)

// ErrNotInteractive is returned when a prompt is needed but stdin is not a terminal.
var ErrNotInteractive = errors.New("stdin is not a terminal")

// StdinIsTerminal reports whether prompts can be shown.
func StdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Session reads successive answers from one input stream.
type Session struct {
	in  *bufio.Reader
	out io.Writer
}

// NewSession prompts on out and reads answers from in.
func NewSession(in io.Reader, out io.Writer) *Session {
	return &Session{in: bufio.NewReader(in), out: out}
}

// Interactive describes one question.
type Interactive struct {
	Prompt   string
	Default  string
	Options  []string
	Required bool
	// Validate rejects an answer with a message; the question is asked again.
	Validate func(string) error
}

// Ask shows i until it gets an acceptable answer.
func (s *Session) Ask(i Interactive) (string, error) {
	if i.Default != "" && i.Options != nil && !slices.Contains(i.Options, i.Default) {
		return "", fmt.Errorf("default %q is not one of the options", i.Default)
	}

	var hints []string
	if i.Required {
		hints = append(hints, "required")
	}
	if i.Default != "" {
		hints = append(hints, "default: "+i.Default)
	}
	if i.Options != nil {
		hints = append(hints, "options: "+strings.Join(i.Options, ", "))
	}
	parens := ""
	if len(hints) > 0 {
		parens = " (" + strings.Join(hints, ", ") + ")"
	}

	for {
		fmt.Fprintf(s.out, "%s%s: ", i.Prompt, parens)
		text, err := s.in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && text != "") {
			if errors.Is(err, io.EOF) {
				return "", fmt.Errorf("no answer for %q: input closed", i.Prompt)
			}
			return "", err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			text = i.Default
		}

		if text == "" {
			if i.Required {
				logger.Warn("Please enter a value\n")
				continue
			}
			return "", nil
		}
		if i.Options != nil && !slices.Contains(i.Options, text) {
			logger.Warn("%s is not a valid option\n", text)
			continue
		}
		if i.Validate != nil {
			if err := i.Validate(text); err != nil {
				logger.Warn("%v\n", err)
				continue
			}
		}
		return text, nil
	}
}
