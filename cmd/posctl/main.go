// Command posctl is a terminal front end for the POS backend. It keeps
// the operator's token between runs and drives the same sale, rental and
// return forms a counter screen would.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"storepos/internal/config"
	"storepos/internal/domain"
)

const usage = `usage: posctl <command> [flags]

commands:
  login         -username NAME -password PASS
  logout
  whoami
  inventory
  customers
  sale          -item ID:QTY [-item ...] [-coupon CODE] [-pay CASH|CREDIT|DEBIT|CHECK]
  rental        -customer ID -due YYYY-MM-DD -item ID:QTY [-deposit CENTS]
  return-quote  -rental ID [-at RFC3339] [-server]
  return        -rental ID | -sale ID [-reason TEXT]
  reports
`

type command struct {
	run    func(ctx context.Context, a *app, args []string) error
	public bool
}

var commands = map[string]command{
	"login":        {run: runLogin, public: true},
	"logout":       {run: runLogout, public: true},
	"whoami":       {run: runWhoami},
	"inventory":    {run: runInventory},
	"customers":    {run: runCustomers},
	"sale":         {run: runSale},
	"rental":       {run: runRental},
	"return-quote": {run: runReturnQuote},
	"return":       {run: runReturn},
	"reports":      {run: runReports},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, config.Load(), os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run returns the process exit code: 0 on success, 1 on a failed
// command and 2 on bad usage.
func run(ctx context.Context, cfg config.Config, args []string, stdout io.Writer, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "help" {
		fmt.Fprint(stderr, usage)
		return 2
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	a, err := newApp(ctx, cfg, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "posctl: %v\n", err)
		return 1
	}
	defer a.close()

	if !cmd.public && !a.guard() {
		return 1
	}
	if err := cmd.run(ctx, a, args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			return 2
		}
		fmt.Fprintf(stderr, "error: %s\n", domain.UserMessage(err))
		return 1
	}
	return 0
}
