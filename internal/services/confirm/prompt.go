package confirm

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Prompter asks for confirmation on a terminal.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter reads answers from in and writes questions to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Ask shows the question for action and reports whether the answer was yes.
// End of input counts as no.
func (p *Prompter) Ask(action Action) (bool, error) {
	if _, err := fmt.Fprintf(p.out, "Are you sure you want to %s? [y/N] ", action.Description); err != nil {
		return false, err
	}
	answer, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Resolve asks about action and accepts or rejects it on svc.
// The bool reports whether the action ran.
func (p *Prompter) Resolve(ctx context.Context, svc *Service, action Action) (Result, bool, error) {
	ok, err := p.Ask(action)
	if err != nil {
		_ = svc.Reject(action.ID)
		return Result{}, false, err
	}
	if !ok {
		return Result{}, false, svc.Reject(action.ID)
	}
	result, err := svc.Accept(ctx, action.ID)
	return result, err == nil, err
}
