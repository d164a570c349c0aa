// watch joins an event over the socket transport and prints the reconciled
// view each time it changes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"liveqa/internal/client"
	"liveqa/internal/observability"
	"liveqa/internal/qa"
	"liveqa/internal/reconcile"
	"liveqa/internal/wire"
)

func main() {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	url := fs.String("url", "ws://localhost:8080/ws", "socket endpoint")
	eventID := fs.String("event", "", "event id to join (required)")
	userID := fs.String("user", "", "user id to claim")
	sessionID := fs.String("session", "", "anonymous session id")
	verbose := fs.Bool("v", false, "debug logging")
	_ = fs.Parse(os.Args[1:])

	if *eventID == "" {
		fmt.Fprintln(os.Stderr, "watch: -event is required")
		fs.Usage()
		os.Exit(2)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := observability.NewLoggerTo(os.Stderr, level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	c, err := client.Dial(dialCtx, *url, logger)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, "watch:", err)
		os.Exit(1)
	}
	defer c.Close()

	viewer := qa.Identity{UserID: *userID, SessionID: *sessionID}
	if err := c.Join(*eventID, viewer); err != nil {
		fmt.Fprintln(os.Stderr, "watch:", err)
		os.Exit(1)
	}

	view := reconcile.NewView(viewer)
	err = view.Run(ctx, c.Events(), func(e wire.Event) {
		printView(e.Kind(), view)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "watch:", err)
		os.Exit(1)
	}
}

func printView(kind wire.Kind, v *reconcile.View) {
	fmt.Printf("[%s] %s participants=%d\n", time.Now().Format(time.TimeOnly), kind, v.Participants())
	for _, q := range v.Questions() {
		mark := " "
		if v.Upvoted(q.ID) {
			mark = "*"
		}
		fmt.Printf("  %s Q %-8s %-9s %3d  %s\n", mark, q.ID, q.Status, q.UpvotesCount, q.Content)
	}
	for _, p := range v.Polls() {
		state := "inactive"
		if p.IsActive {
			state = "active"
		}
		fmt.Printf("    P %-8s %-9s %s\n", p.ID, state, p.Question)
		mine, _ := v.MyVote(p.ID)
		for _, o := range p.Options {
			mark := " "
			if o.ID == mine {
				mark = "*"
			}
			fmt.Printf("      %s %-20s %d\n", mark, o.Text, o.VotesCount)
		}
	}
}
