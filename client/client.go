package main

import (
	"bufio"
	"chat-relay/domain"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerAddress string `env:"CHAT_SERVER_ADDR,default=localhost:8080"`
	Room          string `env:"CHAT_ROOM,default=default"`
	UserName      string `env:"CHAT_USERNAME,required=true"`
	LogLevel      string `env:"LOG_LEVEL,required=true"`
	Colours       bool   `env:"CHAT_COLOURS,default=true"`
}

func main() {
	// The main function manages the OS exit code based on run()'s return.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run joins a room, prints what the room sends and relays each stdin line.
func run() (int, error) {
	// 1. Load configuration from environment variables.
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := domain.ValidateChatMessage(domain.ChatMessage{UserName: config.UserName}); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)
	renderer := NewRenderer(config.Colours)

	// 2. Setup context to handle termination signals (Ctrl+C).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Dial the room.
	target := url.URL{Scheme: "ws", Host: config.ServerAddress, Path: "/" + config.Room}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, target.String(), nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to %s: %w", target.String(), err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
		_ = ws.Close()
	}()

	// 4. Announce who we are before anything else.
	if err := ws.WriteJSON(domain.ChatMessage{UserName: config.UserName}); err != nil {
		return exitRuntime, fmt.Errorf("announce failed: %w", err)
	}
	log.Info(fmt.Sprintf(">>> Connected to %s as %s (Ctrl+C to quit)", target.String(), config.UserName))

	// 5. Reception loop, printing every incoming message.
	readErr := make(chan error, 1)
	go func() {
		for {
			_, payload, err := ws.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			var message domain.ChatMessage
			if err := json.Unmarshal(payload, &message); err != nil {
				log.Warn("Ignoring unreadable message", "error", err)
				continue
			}
			for _, line := range renderer.Render(message) {
				fmt.Println(line)
			}
		}
	}()

	// 6. Input loop, one chat message per line.
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info("Stopping client...")
			return exitOK, nil
		case err := <-readErr:
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) &&
				(closeErr.Code == websocket.CloseNormalClosure || closeErr.Code == websocket.CloseGoingAway) {
				log.Info("Server closed the connection", "code", closeErr.Code, "reason", closeErr.Text)
				return exitOK, nil
			}
			return exitRuntime, fmt.Errorf("connection lost: %w", err)
		case line, ok := <-lines:
			if !ok {
				return exitOK, nil
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			payload, err := domain.NewChatMessage(config.UserName, line).Encode()
			if err != nil {
				return exitRuntime, err
			}
			if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				return exitRuntime, fmt.Errorf("send failed: %w", err)
			}
		}
	}
}
