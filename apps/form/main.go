package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"golang.org/x/term"

	"github.com/rcarvalhopiaget/escutapiaget-sub000/core"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/form"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/ticket"
	logsvc "github.com/rcarvalhopiaget/escutapiaget-sub000/services/logger"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/services/ouvidoria"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout))
}

// run returns the exit code; deferred calls (Rollbar flush included) complete before it returns.
func run(args []string, in io.Reader, out io.Writer) int {
	flags := flag.NewFlagSet("form", flag.ContinueOnError)
	apiURL := flags.String("api", "http://localhost:8000", "Base URL of the ouvidoria API.")
	typ := flags.String("type", string(ticket.TypeComplaint), "Ticket type.")
	category := flags.String("category", "", "Question category (defaults to the lowercased type).")
	strict := flags.Bool("strict", false, "Refuse to submit while required questions are unanswered.")
	attempts := flags.Int("attempts", form.DefaultMaxAttempts, "Question fetch attempts before giving up.")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	ticketType := ticket.Type(core.CleanString(*typ))
	if !ticketType.Valid() {
		fmt.Fprintf(os.Stderr, "invalid ticket type %q\n", *typ)
		return 2
	}
	cat := core.CleanString(*category, true /* lower */)
	if cat == "" {
		cat = defaultCategory(ticketType)
	}

	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stderr, "FORM : ", log.LstdFlags), conf)
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := ouvidoria.NewClient(*apiURL, logger)
	ctrl := form.NewController(client, client, form.Options{
		TicketType:      ticketType,
		Category:        cat,
		MaxAttempts:     *attempts,
		EnforceRequired: *strict,
		Logger:          logger,
	})
	defer ctrl.Close()

	width := 60
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			width = w
		}
	}

	r := newRunner(ctrl, in, out, width)
	if err := r.run(ctx); err != nil {
		logger.Error("form session failed", err)
		return 1
	}
	return 0
}

func defaultCategory(t ticket.Type) string {
	if t == ticket.TypeBullying {
		return ticket.BullyingCategory
	}
	return core.CleanString(string(t), true /* lower */)
}
