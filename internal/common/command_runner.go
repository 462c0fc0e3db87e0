package common

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"resumescreener/internal/ai"
	"resumescreener/internal/errors"
	"resumescreener/internal/types"
)

// CreateInputFunc defines how to create the specific operation input from the read files.
type CreateInputFunc[Input any] func(files []types.Upload) (Input, error)

// LogDetailsFunc defines how to log the start of an operation.
type LogDetailsFunc[Input any] func(input Input, cfg CommandConfig)

// OperationFunc runs the screening operation for a command.
type OperationFunc[Input, Output any] func(context.Context, Input) (Output, error)

// Runner carries what every file-based command needs
type Runner struct {
	Logger      *errors.Logger
	Usage       *UsageTally
	MaxFileSize int64
	Stdout      io.Writer
}

// RunCommand encapsulates the common logic for file-based CLI commands with token usage reporting.
func RunCommand[Input, Output any](
	ctx context.Context,
	runner Runner,
	cmdConfig CommandConfig,
	args []string,
	createInput CreateInputFunc[Input],
	operation OperationFunc[Input, Output],
	logDetails LogDetailsFunc[Input],
) error {
	if runner.Logger == nil {
		runner.Logger = errors.Discard()
	}
	fileProcessor := NewFileProcessor(runner.Logger, runner.MaxFileSize)
	outputHandler := NewOutputHandler(runner.Logger)
	if runner.Stdout != nil {
		outputHandler = NewOutputHandlerTo(runner.Stdout, runner.Logger)
	}

	files, err := fileProcessor.ReadUploads(args...)
	if err != nil {
		return err
	}

	input, err := createInput(files)
	if err != nil {
		return fmt.Errorf("failed to create input from files: %w", err)
	}

	logDetails(input, cmdConfig)

	result, err := operation(ctx, input)
	if err != nil {
		return err
	}

	if runner.Usage != nil {
		if calls, in, out := runner.Usage.Totals(); calls > 0 {
			runner.Logger.Info("AI token usage",
				"calls", calls,
				"input_tokens", in,
				"output_tokens", out,
				"total_tokens", in+out)
		}
	}

	return outputHandler.HandleOutput(result, cmdConfig)
}

// UsageTally is an ai.Observer that sums token usage across calls and
// forwards every event to next.
type UsageTally struct {
	next ai.Observer

	mu           sync.Mutex
	calls        int
	inputTokens  int64
	outputTokens int64
}

var _ ai.Observer = (*UsageTally)(nil)

// NewUsageTally wraps next, which may be nil
func NewUsageTally(next ai.Observer) *UsageTally {
	if next == nil {
		next = ai.NopObserver{}
	}
	return &UsageTally{next: next}
}

func (u *UsageTally) AICall(ctx context.Context, operation string, duration time.Duration, inputTokens, outputTokens int64, err error) {
	u.mu.Lock()
	u.calls++
	u.inputTokens += inputTokens
	u.outputTokens += outputTokens
	u.mu.Unlock()
	u.next.AICall(ctx, operation, duration, inputTokens, outputTokens, err)
}

func (u *UsageTally) Fallback(ctx context.Context, operation, reason string) {
	u.next.Fallback(ctx, operation, reason)
}

// Totals returns the number of calls and token counts seen so far
func (u *UsageTally) Totals() (calls int, inputTokens, outputTokens int64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls, u.inputTokens, u.outputTokens
}
