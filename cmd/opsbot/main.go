package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bnema/opsbot/cmd"
	"github.com/bnema/opsbot/internal/domain"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		stop()
		// A second signal after cancellation kills the process.
		force := make(chan os.Signal, 1)
		signal.Notify(force, os.Interrupt, syscall.SIGTERM)
		<-force
		os.Exit(130)
	}()

	if err := cmd.Execute(ctx); err != nil {
		if !errors.Is(err, cmd.ErrReported) {
			message := strings.Join(strings.Fields(err.Error()), " ")
			fmt.Fprintf(os.Stderr, "opsbot: %s: %s\n", domain.KindOf(err), message)
		}
		os.Exit(1)
	}
}
