package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/annel0/mmo-seating/internal/auth"
	"github.com/annel0/mmo-seating/internal/eventbus"
	"github.com/annel0/mmo-seating/internal/scene"
	"github.com/google/uuid"
)

const timeFormat = "2006-01-02T15:04:05Z"

func main() {
	var (
		command    = flag.String("cmd", "tail", "Command: tail, token, types")
		natsURL    = flag.String("nats", "nats://127.0.0.1:4222", "NATS server URL")
		stream     = flag.String("stream", "SEATING", "JetStream stream name")
		eventTypes = flag.String("types", "", "Event types filter (comma-separated)")
		avatars    = flag.String("avatars", "", "Avatar IDs filter (comma-separated)")
		limit      = flag.Int("limit", 0, "Stop after N events (0 — follow forever)")
		agentID    = flag.String("agent", "", "Avatar UUID for -cmd token")
		secret     = flag.String("secret", os.Getenv("SEATING_JWT_SECRET"), "Base64 JWT secret for -cmd token")
		ttl        = flag.Duration("ttl", 24*time.Hour, "Token lifetime for -cmd token")
	)
	flag.Parse()

	switch *command {
	case "tail":
		opts := TailOptions{
			EventTypes: parseStringList(*eventTypes),
			Avatars:    parseStringList(*avatars),
			Limit:      *limit,
		}
		if err := tailEvents(*natsURL, *stream, opts); err != nil {
			log.Fatalf("❌ Tail failed: %v", err)
		}

	case "token":
		token, err := issueToken(*agentID, *secret, *ttl)
		if err != nil {
			log.Fatalf("❌ Token failed: %v", err)
		}
		fmt.Println(token)

	case "types":
		for _, t := range scene.SeatEvents {
			fmt.Println(t)
		}

	default:
		fmt.Printf("❌ Unknown command: %s\n", *command)
		fmt.Println("Available commands: tail, token, types")
		os.Exit(1)
	}
}

type TailOptions struct {
	EventTypes []string
	Avatars    []string
	Limit      int
}

// tailEvents выводит события посадки из JetStream в реальном времени
func tailEvents(url, stream string, opts TailOptions) error {
	bus, err := eventbus.NewJetStreamBus(url, stream, 0)
	if err != nil {
		return err
	}
	defer bus.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	events := make(chan *eventbus.Envelope, 64)
	filter := eventbus.Filter{Types: opts.EventTypes, Sources: []string{scene.EventSource}}
	sub, err := bus.Subscribe(ctx, filter, func(ctx context.Context, ev *eventbus.Envelope) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	fmt.Printf("🎬 Tailing seat events from %s (limit: %d)\n", url, opts.Limit)

	count := 0
	for {
		select {
		case <-ctx.Done():
			fmt.Printf("\n📊 Total events: %d\n", count)
			return nil
		case ev := <-events:
			if !matchAvatar(ev, opts.Avatars) {
				continue
			}
			printEvent(ev)
			count++
			if opts.Limit > 0 && count >= opts.Limit {
				fmt.Printf("\n📊 Total events: %d\n", count)
				return nil
			}
		}
	}
}

func matchAvatar(ev *eventbus.Envelope, avatars []string) bool {
	if len(avatars) == 0 {
		return true
	}
	for _, a := range avatars {
		if strings.EqualFold(a, ev.CorrelationID) {
			return true
		}
	}
	return false
}

func printEvent(ev *eventbus.Envelope) {
	fmt.Printf("[%s] %s/%s [%s]\n", ev.Timestamp.UTC().Format(timeFormat), ev.Source, ev.EventType, ev.ID)

	se, err := scene.DecodeSeatEvent(ev)
	if err != nil {
		fmt.Printf("  ⚠️  payload: %v\n", err)
		return
	}
	fmt.Printf("  Avatar: %s State: %s Position: (%.2f, %.2f, %.2f)\n",
		se.AvatarID, se.State, se.Position.X, se.Position.Y, se.Position.Z)
	if se.ObjectID != uuid.Nil {
		fmt.Printf("  Object: %s (%d) Occupants: %d SitTarget: %s v%d\n",
			se.ObjectID, se.ObjectLocalID, len(se.Occupants), se.SitTargetAvatar, se.Version)
	}
	if se.Reason != "" {
		fmt.Printf("  Reason: %s\n", se.Reason)
	}
}

// issueToken выпускает bearer-токен аватара для REST API
func issueToken(agent, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("JWT secret is required (-secret or SEATING_JWT_SECRET)")
	}
	id, err := uuid.Parse(agent)
	if err != nil {
		return "", fmt.Errorf("invalid -agent: %w", err)
	}
	tm, err := auth.NewTokenManager(secret, ttl)
	if err != nil {
		return "", err
	}
	return tm.Issue(id)
}

func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
