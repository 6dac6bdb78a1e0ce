package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/wolfman30/lifevault-relay/internal/chatsession"
	"github.com/wolfman30/lifevault-relay/internal/relayclient"
)

func main() {
	_ = godotenv.Load()

	baseURL := flag.String("url", envOr("RELAY_URL", "http://localhost:3001"), "relay base URL")
	uid := flag.String("uid", os.Getenv("LIFEVAULT_UID"), "caller identifier (generated when empty)")
	email := flag.String("email", os.Getenv("LIFEVAULT_EMAIL"), "caller contact")
	name := flag.String("name", "", "display name")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdin, os.Stdout, *baseURL, *uid, *email, *name); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, in io.Reader, out io.Writer, baseURL, uid, email, name string) error {
	client, err := relayclient.New(baseURL, nil)
	if err != nil {
		return err
	}

	health, err := client.Health(ctx)
	if err != nil {
		return fmt.Errorf("relay unreachable: %w", err)
	}
	fmt.Fprintf(out, "%s (%s, %d registered)\n", health.Message, health.Status, health.Users)

	if uid == "" {
		uid = uuid.NewString()
	}
	if email == "" {
		email = uid + "@users.lifevault.local"
	}
	if err := client.Register(ctx, relayclient.Registration{UID: uid, Email: email, Name: name}); err != nil {
		return fmt.Errorf("register: %w", err)
	}

	history := chatsession.NewHistory()
	session := chatsession.New(uid, client)
	history.Save(session)
	fmt.Fprintf(out, "\nMedAI: %s\n", chatsession.WelcomeMessage)
	fmt.Fprintln(out, "(type /new for a new chat, /history to list chats, /quit to exit)")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\nyou> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/new":
			session = chatsession.New(uid, client)
			history.Save(session)
			fmt.Fprintf(out, "\nMedAI: %s\n", chatsession.WelcomeMessage)
			continue
		case "/history":
			for i, s := range history.List() {
				fmt.Fprintf(out, "  %d. %s (%d messages)\n", i+1, s.Title(), len(s.Messages()))
			}
			continue
		}

		reply, err := session.Send(ctx, line)
		if err != nil {
			var apiErr *relayclient.APIError
			if errors.As(err, &apiErr) {
				fmt.Fprintf(out, "\nError: %s. Please try again.\n", apiErr.Message)
			} else {
				fmt.Fprintf(out, "\nError: %v. Please try again.\n", err)
			}
			if ctx.Err() != nil {
				return nil
			}
			continue
		}

		fmt.Fprintf(out, "\nMedAI: %s\n", reply.Content)
		if reply.Triage.Urgent {
			fmt.Fprintf(out, "\n!! High severity detected: %d/10. Please see a doctor or visit a clinic immediately.\n", reply.Triage.Severity)
		}
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
