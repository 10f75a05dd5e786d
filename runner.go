package balcao

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/balcao/pkg/domain"
)

// Runner drives a conversation over the provided IO, one line per
// message. It exists for the CLI chat command and for tests; transports
// like HTTP talk to the Engine directly.
type Runner struct {
	Input  io.Reader
	Output io.Writer
	Phone  string
}

// Run loops until EOF, an explicit exit, or the conversation reaches a
// terminal state.
func (r *Runner) Run(ctx context.Context, engine *Engine) error {
	if r.Input == nil {
		return fmt.Errorf("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return fmt.Errorf("output writer must be set (use os.Stdout)")
	}
	if r.Phone == "" {
		return fmt.Errorf("phone number must be set")
	}
	lineReader := bufio.NewReader(r.Input)

	for {
		fmt.Fprint(r.Output, "> ")
		text, err := lineReader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		}
		text = strings.TrimSpace(text)
		if text == "exit" || text == "quit" {
			fmt.Fprintln(r.Output, "Bye!")
			return nil
		}

		reply, err := engine.ProcessMessage(ctx, r.Phone, text)
		if err != nil {
			return fmt.Errorf("message processing: %w", err)
		}
		fmt.Fprintln(r.Output, reply.Text)

		if reply.State == domain.StateOrderComplete {
			return nil
		}
	}
}
