package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// StartPrompt is asked before every interactive run.
const StartPrompt = "Do you want to start a new benchmark? (y/n): "

// Prompter asks yes/no questions on a terminal.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter reads answers from in and writes questions to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Confirm asks question and returns true only for "y" (any case).
// EOF counts as no. A cancelled ctx stops the wait.
func (p *Prompter) Confirm(ctx context.Context, question string) (bool, error) {
	if _, err := fmt.Fprint(p.out, question); err != nil {
		return false, err
	}

	type answer struct {
		line string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := p.in.ReadString('\n')
		ch <- answer{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case a := <-ch:
		if a.err != nil && !errors.Is(a.err, io.EOF) {
			return false, fmt.Errorf("failed to read answer: %w", a.err)
		}
		return strings.EqualFold(strings.TrimSpace(a.line), "y"), nil
	}
}
