package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"griduniverse.ai/internal/sim/evolve"
)

// promptRater asks the operator for the participant's fun rating after a
// human run.
type promptRater struct {
	in  *bufio.Reader
	out io.Writer
}

func newPromptRater(in io.Reader, out io.Writer) *promptRater {
	return &promptRater{in: bufio.NewReader(in), out: out}
}

func (p *promptRater) Rate(ctx context.Context, rc evolve.RunConfig) (int, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		fmt.Fprintf(p.out, "generation %d slot %d: how much fun was it (0-9)? ", rc.Generation, rc.Slot)
		line, err := p.in.ReadString('\n')
		s := strings.TrimSpace(line)
		if s != "" {
			n, convErr := strconv.Atoi(s)
			if convErr == nil && n >= 0 && n <= 9 {
				return n, nil
			}
			fmt.Fprintf(p.out, "want a number from 0 to 9, got %q\n", s)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return 0, fmt.Errorf("no rating: %w", err)
			}
			return 0, err
		}
	}
}
