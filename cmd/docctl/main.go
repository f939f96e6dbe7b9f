package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/AymaneHaj/Share-In/internal/core/domain"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	root, closeApp := newRootCmd(os.Stdin, os.Stdout, os.Stderr)
	err := root.ExecuteContext(ctx)
	closeApp()
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", describe(err))
		os.Exit(1)
	}
}

var userFacingKinds = []error{
	domain.ErrValidation,
	domain.ErrConversion,
	domain.ErrNetwork,
	domain.ErrServer,
	domain.ErrExtractionFailed,
	domain.ErrUnauthorized,
	domain.ErrNotFound,
	domain.ErrInvalidTransition,
	domain.ErrBusy,
	domain.ErrTemporary,
}

// describe prefers the domain's user message and falls back to the raw error for flag and I/O failures.
func describe(err error) string {
	for _, kind := range userFacingKinds {
		if errors.Is(err, kind) {
			return domain.UserMessage(err)
		}
	}
	return err.Error()
}
