package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/pfbot/internal/api"
	"github.com/kalambet/pfbot/internal/composer"
	"github.com/kalambet/pfbot/internal/config"
	"github.com/kalambet/pfbot/internal/generator"
	"github.com/kalambet/pfbot/internal/pipeline"
	"github.com/kalambet/pfbot/internal/session"
	"github.com/kalambet/pfbot/internal/storage"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the pfbot server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		return runServer(withMCP)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running pfbot server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pfbot system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func init() {
	startCmd.Flags().Bool("mcp", true, "serve MCP over stdin/stdout alongside HTTP")
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "pfbot.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func setupLogging(cfg config.Config) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()})))
}

// runtime is the assembled conversation stack shared by start, chat and advise.
type runtime struct {
	store   *storage.Store
	gen     generator.Generator
	advisor *pipeline.Advisor
}

func (rt *runtime) Close() {
	if err := rt.store.Close(); err != nil {
		printWarning("closing storage: %v", err)
	}
}

// buildRuntime opens storage and the configured generator. Backends that can
// check readiness (Ollama, OpenRouter) are checked before returning.
func buildRuntime(ctx context.Context, cfg config.Config) (*runtime, error) {
	gen, err := generator.New(ctx, cfg, composer.SystemPrompt)
	if err != nil {
		return nil, fmt.Errorf("building generator: %w", err)
	}
	if o, ok := gen.(*generator.Ollama); ok {
		o.WithProgress(os.Stderr)
	}
	if r, ok := gen.(generator.Readier); ok {
		backend, model := generator.Describe(gen)
		printStep("Checking %s model %s", backend, model)
		if err := r.Ready(ctx); err != nil {
			return nil, fmt.Errorf("%s not ready: %w", backend, err)
		}
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	comp := composer.New(cfg.Composer.MaxContextTokens)
	return &runtime{
		store:   store,
		gen:     gen,
		advisor: pipeline.NewAdvisor(comp, gen, store),
	}, nil
}

func runServer(withMCP bool) error {
	fmt.Fprintf(os.Stderr, "pfbot version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	apiToken, err := config.GetAPIToken(config.NewKeychain())
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}
	slog.Info("API bearer token available")

	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("pfbot is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("pfbot is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := buildRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	backend, model := generator.Describe(rt.gen)
	slog.Info("generator ready", "backend", backend, "model", model)

	sessions := session.NewRegistry()

	handler := api.NewHandler(
		api.ChatDeps{Sessions: sessions, Advisor: rt.advisor},
		api.AppDeps{Store: rt.store, Token: apiToken},
	)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "pfbot listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		maxIdle := cfg.Session.MaxIdleDuration()
		sessions.RunSweeper(gctx, maxIdle/2, maxIdle)
		return nil
	})

	if withMCP {
		mcpSrv := api.NewMCPServer(api.MCPDeps{Sessions: sessions, Advisor: rt.advisor, Store: rt.store})
		stdioSrv := server.NewStdioServer(mcpSrv)
		g.Go(func() error {
			slog.Info("MCP server started (stdio transport)")
			if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
			return nil
		})
	}

	return g.Wait()
}

func stopServer() error {
	cfg, err := config.LoadLocal()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("pfbot is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop pfbot (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to pfbot (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.LoadLocal()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	running := false
	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			running = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Backend", "%s", cfg.Generator.Backend)
	switch cfg.Generator.Backend {
	case config.BackendGemini:
		printStatus("Model", "%s", cfg.Gemini.Model)
		printStatus("API key", "%s", keyState(cfg.Gemini.APIKey))
	case config.BackendOpenRouter:
		printStatus("Model", "%s", cfg.OpenRouter.Model)
		printStatus("API key", "%s", keyState(cfg.OpenRouter.APIKey))
	case config.BackendOllama:
		printStatus("Model", "%s", cfg.Ollama.Model)
		ollamaResp, err := client.Get(cfg.Ollama.BaseURL + "/api/version")
		if err != nil {
			printStatus("Ollama", "not running")
		} else {
			ollamaResp.Body.Close()
			printStatus("Ollama", "running at %s", cfg.Ollama.BaseURL)
		}
	}

	apiToken, tokenErr := config.GetAPIToken(config.NewKeychain())
	if tokenErr == nil && running {
		interResp, err := apiGet(client, serverURL+"/interactions?limit=1", apiToken)
		if err == nil {
			var page api.InteractionPage
			if json.NewDecoder(interResp.Body).Decode(&page) == nil {
				printStatus("Interactions", "%d", page.Total)
			}
			interResp.Body.Close()
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func keyState(key string) string {
	if key == "" {
		return "missing"
	}
	return "configured"
}

func apiGet(client *http.Client, url, token string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return client.Do(req)
}
