package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"message-board/internal/client"
	"message-board/internal/model"
	"message-board/internal/schema"
)

const usage = `usage: feed [-url base] list
       feed [-url base] post <text>`

func main() {
	_ = godotenv.Load()

	defaultURL := os.Getenv("FEED_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:5000"
	}
	baseURL := flag.String("url", defaultURL, "Base URL of the message API")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *baseURL, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, baseURL string, args []string) error {
	if len(args) == 0 {
		return errors.New(usage)
	}

	feed := client.NewMessageFeed(client.NewAPI(baseURL), client.NewConsoleNotifier(os.Stderr))
	defer feed.Watch(func(client.QueryState[[]model.Message]) {})()

	switch args[0] {
	case "list":
		s := feed.Messages(ctx)
		if s.Status == client.StatusError {
			return fmt.Errorf("failed to load messages: %w", s.Err)
		}
		renderMessages(os.Stdout, s.Data)
		return nil

	case "post":
		form := client.NewForm(feed)
		form.SetInput(strings.Join(args[1:], " "))

		var verr *schema.ValidationError
		if _, err := form.Submit(ctx); errors.As(err, &verr) {
			return fmt.Errorf("%s: %s", verr.Field, verr.Message)
		} else if err != nil {
			return err
		}
		renderMessages(os.Stdout, feed.Snapshot().Data)
		return nil

	default:
		return errors.New(usage)
	}
}

func renderMessages(w io.Writer, messages []model.Message) {
	if len(messages) == 0 {
		fmt.Fprintln(w, "No messages yet.")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Content"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.AppendBulk(lo.Map(messages, func(m model.Message, _ int) []string {
		return []string{strconv.FormatInt(m.ID, 10), m.Content}
	}))
	table.Render()
}
