// Command stoxctl queues inventory maintenance jobs and inspects the queue.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/BnB-Initivatives/stox-prod-test/cmd/stoxctl/cli"
	"github.com/BnB-Initivatives/stox-prod-test/internal/app"
)

const usage = `usage: stoxctl [-json] <command> [flags]

commands:
  resume -kind checkout|receipt -id N   queue missing stock adjustments for a transaction
  scan                                  queue an immediate low stock scan
  queue                                 print default queue counters
  scheduled [-size N]                   list scheduled tasks
`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping stoxctl")
		return
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	jobsCLI := cli.NewJobsCLI(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPass, DB: cfg.RedisDB})
	code := run(ctx, jobsCLI, os.Args[1:], os.Stderr)
	if err := jobsCLI.Close(); err != nil {
		slog.Default().Warn("close job client", slog.Any("error", err))
	}
	os.Exit(code)
}

func run(ctx context.Context, c *cli.JobsCLI, args []string, stderr io.Writer) int {
	global := flag.NewFlagSet("stoxctl", flag.ContinueOnError)
	global.SetOutput(stderr)
	jsonOut := global.Bool("json", false, "print JSON")
	global.Usage = func() { _, _ = fmt.Fprint(stderr, usage) }
	if err := global.Parse(args); err != nil {
		return 2
	}
	c.JSON = *jsonOut
	rest := global.Args()
	if len(rest) == 0 {
		global.Usage()
		return 2
	}

	cmd, cmdArgs := rest[0], rest[1:]
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	switch cmd {
	case "resume":
		kind := fs.String("kind", "", "checkout or receipt")
		id := fs.Int64("id", 0, "transaction_id or scan_id")
		if err := fs.Parse(cmdArgs); err != nil {
			return 2
		}
		return c.ResumeCommand(ctx, *kind, *id)
	case "scan":
		if err := fs.Parse(cmdArgs); err != nil {
			return 2
		}
		return c.ScanCommand(ctx)
	case "queue":
		if err := fs.Parse(cmdArgs); err != nil {
			return 2
		}
		return c.QueueCommand(ctx)
	case "scheduled":
		size := fs.Int("size", 10, "number of tasks")
		if err := fs.Parse(cmdArgs); err != nil {
			return 2
		}
		return c.ScheduledCommand(ctx, *size)
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		global.Usage()
		return 2
	}
}
