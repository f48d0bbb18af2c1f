package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/lighthouse/assets"
	"github.com/pithecene-io/lighthouse/cache"
	"github.com/pithecene-io/lighthouse/publish"
)

// Exit codes.
const (
	exitSuccess      = 0
	exitFailure      = 1
	exitInvalidInput = 2
	exitIncomplete   = 3
)

// exitCodeFor maps a command error to its exit code.
func exitCodeFor(err error) int {
	var (
		validation *assets.ValidationError
		badCache   *cache.InvalidCacheError
		incomplete *publish.IncompletePhaseError
	)
	switch {
	case err == nil, errors.Is(err, publish.ErrDeclined):
		return exitSuccess
	case errors.As(err, &validation), errors.As(err, &badCache):
		return exitInvalidInput
	case errors.As(err, &incomplete):
		return exitIncomplete
	default:
		return exitFailure
	}
}

// exitError converts err into a cli.ExitCoder carrying its exit code.
func exitError(err error) error {
	if err == nil {
		return nil
	}
	code := exitCodeFor(err)
	if code == exitSuccess {
		return cli.Exit(err.Error(), exitSuccess)
	}
	if errors.Is(err, context.Canceled) {
		return cli.Exit("interrupted: progress saved, re-run upload to resume", code)
	}
	return cli.Exit(fmt.Sprintf("Error: %v", err), code)
}

// invalidInput reports a usage or configuration problem.
func invalidInput(err error) error {
	return cli.Exit(fmt.Sprintf("Error: %v", err), exitInvalidInput)
}
