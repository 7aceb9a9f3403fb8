package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/remote-model-access/client/internal/chat/completion"
	"github.com/remote-model-access/client/internal/chat/model"
	"github.com/remote-model-access/client/internal/chat/orchestrator"
	"github.com/remote-model-access/client/internal/chat/repo"
	"github.com/remote-model-access/client/internal/chat/settings"
	"github.com/remote-model-access/client/internal/chat/store"
	"github.com/remote-model-access/client/internal/core"
	logx "github.com/remote-model-access/client/pkg/logger"
	pkgredis "github.com/remote-model-access/client/pkg/redis"
)

// AppConfig defines all configurable parameters for the chat client,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	// Infrastructure
	Redis    pkgredis.Config
	StateDir string `envconfig:"STATE_DIR" default:"."`

	// Chat client settings
	Chat model.ClientConfig
}

func main() {
	ctx := context.Background()

	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	logx.Init(logx.LoggerOpts{Environment: core.EnvironmentFromOS()})

	var envCfg AppConfig
	if err := envconfig.Process("", &envCfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}

	blobs, err := newBlobStore(&envCfg)
	if err != nil {
		log.Fatalf("Failed to initialise persistence: %v", err)
	}

	st, err := store.New(ctx, blobs)
	if err != nil {
		log.Fatalf("Failed to load conversations: %v", err)
	}

	provider := settings.NewProvider(envCfg.Chat)
	orch := orchestrator.New(st, completion.New(), provider, func(msg string) {
		fmt.Printf("!! %s\n", msg)
	})

	if envCfg.Chat.ModelLabel != "" {
		fmt.Println(envCfg.Chat.ModelLabel)
	}
	fmt.Println("Commands: /new /list /switch N /rename TITLE /delete N /export /quit")

	runLoop(ctx, st, orch, provider)
}

// newBlobStore picks Redis persistence when a URL is configured, file
// persistence otherwise.
func newBlobStore(cfg *AppConfig) (repo.BlobStore, error) {
	if cfg.Redis.Enabled() {
		rdb, err := cfg.Redis.New()
		if err != nil {
			return nil, err
		}
		return repo.NewRedisBlobStore(rdb, 0), nil
	}
	return repo.NewFileBlobStore(cfg.StateDir)
}

func runLoop(ctx context.Context, st *store.Store, orch *orchestrator.Orchestrator, provider *settings.Provider) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if !runCommand(ctx, st, provider, line) {
				return
			}
			continue
		}

		id, ok := st.Selected()
		if !ok {
			id = st.Create(ctx)
			st.Select(id)
		}
		orch.Send(ctx, id, line)
		printTail(st)
	}
}

// runCommand handles a single slash command; it returns false on /quit.
func runCommand(ctx context.Context, st *store.Store, provider *settings.Provider, line string) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit":
		return false
	case "/new":
		id := st.Create(ctx)
		st.Select(id)
		fmt.Println("Started", mustTitle(st))
	case "/list":
		for _, c := range st.List() {
			fmt.Printf("%d. %s (%d messages)\n", c.DisplayNumber, c.DisplayTitle(), len(c.Messages))
		}
	case "/switch":
		if c, ok := byNumber(st, arg); ok {
			st.Select(c.ID)
			fmt.Println("Switched to", c.DisplayTitle())
		} else {
			fmt.Println("No such chat")
		}
	case "/rename":
		if id, ok := st.Selected(); ok {
			st.Rename(ctx, id, arg)
		}
	case "/delete":
		if c, ok := byNumber(st, arg); ok {
			st.Delete(ctx, c.ID)
			fmt.Println("Deleted", c.DisplayTitle())
		} else {
			fmt.Println("No such chat")
		}
	case "/export":
		blob, err := provider.Export()
		if err != nil {
			logx.Error().Err(err).Msg("failed to export settings")
			break
		}
		fmt.Println(string(blob))
	default:
		fmt.Println("Unknown command:", cmd)
	}
	return true
}

func byNumber(st *store.Store, arg string) (model.Conversation, bool) {
	for _, c := range st.List() {
		if fmt.Sprintf("%d", c.DisplayNumber) == arg {
			return c, true
		}
	}
	return model.Conversation{}, false
}

func mustTitle(st *store.Store) string {
	if id, ok := st.Selected(); ok {
		if c, ok := st.Snapshot(id); ok {
			return c.DisplayTitle()
		}
	}
	return ""
}

func printTail(st *store.Store) {
	id, ok := st.Selected()
	if !ok {
		return
	}
	c, ok := st.Snapshot(id)
	if !ok || len(c.Messages) == 0 {
		return
	}
	last := c.Messages[len(c.Messages)-1]
	fmt.Printf("%s: %s\n", last.Role, last.Content)
}
