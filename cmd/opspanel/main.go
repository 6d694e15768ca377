package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/opspanel/opspanel/internal/apiclient"
	"github.com/opspanel/opspanel/internal/config"
	"github.com/opspanel/opspanel/internal/controller"
	"github.com/opspanel/opspanel/internal/live"
	"github.com/opspanel/opspanel/internal/logging"
	"github.com/opspanel/opspanel/pkg/model"
)

func main() {
	configDir := flag.String("config", "config", "Configuration directory")
	resource := flag.String("resource", "logs", "Resource to browse (logs, users, permission_requests, api_usage)")
	search := flag.String("search", "", "Search filter")
	level := flag.String("level", "", "Level filter")
	page := flag.Int("page", 1, "Page number")
	pageSize := flag.Int("page-size", 0, "Page size (10, 25, 50, 100)")
	watch := flag.Bool("watch", false, "Keep polling and printing updates")
	flag.Parse()

	res := model.Resource(*resource)
	if !res.IsValid() {
		log.Fatalf("Unknown resource: %s", *resource)
	}

	// 1. Load Configuration
	cfg, err := config.Load(*configDir)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// 2. Initialize Logging
	if err := logging.Initialize(cfg.Logging); err != nil {
		log.Fatalf("Logging error: %v", err)
	}

	// 3. Build the client and the view engine
	client := apiclient.New(cfg.API)
	cache := controller.NewCoordinator(cfg.Engine.CacheTTL)

	view := controller.New(res, controller.Deps{
		Lister:  client,
		Mutator: client,
		Confirm: &stdinConfirm{in: bufio.NewReader(os.Stdin)},
		Notify:  &logNotify{},
		Cache:   cache,
	}, cfg.Engine)
	defer view.Close()

	if *search != "" || *level != "" {
		patch := controller.FilterPatch{}
		if *search != "" {
			patch.Search = search
		}
		if *level != "" {
			patch.Level = level
		}
		view.UpdateFilter(patch)
	}
	if *pageSize > 0 {
		view.SetPageSize(*pageSize)
	}
	if *page > 1 {
		view.SetPage(*page)
	}

	// 4. Connect the change feed
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed, err := live.NewFeed(cfg.Live, cache, slog.Default())
	if err != nil {
		log.Fatalf("Change feed error: %v", err)
	}
	feed.Start(ctx)
	defer feed.Stop()

	if !*watch {
		if err := printOnce(view); err != nil {
			slog.Error("listing failed", "resource", res, "error", err)
			os.Exit(1)
		}
		return
	}

	// 5. Watch mode: print every update until interrupted
	view.StartAutoRefresh()
	defer view.StopAutoRefresh()

	updates, stop := view.Updates()
	defer stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case entry := <-updates:
			if entry.Status == controller.StatusSuccess {
				printPage(res, entry.Data)
			} else if entry.Err != nil {
				slog.Error("refresh failed", "resource", res, "error", entry.Err)
			}
		case <-quit:
			slog.Info("shutting down")
			return
		}
	}
}

// printOnce waits for the initial fetch to settle and renders the result.
func printOnce(view *controller.Controller) error {
	deadline := time.After(time.Minute)
	for {
		entry := view.Entry()
		switch entry.Status {
		case controller.StatusSuccess:
			printPage(view.Resource(), entry.Data)
			return nil
		case controller.StatusError:
			return entry.Err
		}

		select {
		case <-deadline:
			return fmt.Errorf("timed out waiting for data")
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func printPage(resource model.Resource, page *model.Page) {
	fmt.Printf("%s: page %d (%d total)\n", resource, page.Page, page.TotalCount)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, item := range page.Items {
		fields := make([]string, 0, len(item))
		for k, v := range item {
			if k == "id" {
				continue
			}
			fields = append(fields, fmt.Sprintf("%s=%v", k, v))
		}
		fmt.Fprintf(w, "%s\t%s\n", item.ID(), strings.Join(fields, "\t"))
	}
	w.Flush()
}

// stdinConfirm asks destructive-action questions on the terminal.
type stdinConfirm struct {
	in *bufio.Reader
}

func (c *stdinConfirm) Confirm(_ context.Context, message string) (bool, error) {
	fmt.Printf("%s [y/N]: ", message)
	line, err := c.in.ReadString('\n')
	if err != nil {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// logNotify routes engine notifications to the structured log.
type logNotify struct{}

func (logNotify) Success(message string) { slog.Info(message) }
func (logNotify) Error(message string)   { slog.Error(message) }
