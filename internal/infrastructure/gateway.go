package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/satangel2222/tg-mtproto-uploader/internal/domain"
)

const (
	gatewayStartTimeout = 15 * time.Second
	gatewayPollInterval = 200 * time.Millisecond
	gatewayStopTimeout  = 10 * time.Second
)

// BotAPIGateway manages a self-hosted telegram-bot-api process. The hosted
// Bot API caps uploads at 50 MB; relayed videos routinely exceed that, so
// deployments point the client at a local gateway instead. The gateway is
// the consumer of the API id/hash credential pair.
type BotAPIGateway struct {
	cfg     domain.GatewayConfig
	apiID   string
	apiHash string
	logger  *zap.Logger
	cmd     *exec.Cmd
	logFile *os.File
}

// NewBotAPIGateway creates a gateway manager from the telegram configuration.
func NewBotAPIGateway(tg *domain.TelegramConfig, logger *zap.Logger) *BotAPIGateway {
	return &BotAPIGateway{
		cfg:     tg.Gateway,
		apiID:   tg.APIID,
		apiHash: tg.APIHash,
		logger:  logger,
	}
}

// URL returns the base URL the messaging client should use while the gateway
// is running.
func (g *BotAPIGateway) URL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", g.cfg.Port)
}

// Start launches the gateway process with its output redirected to a log
// file, then polls until it answers HTTP requests.
func (g *BotAPIGateway) Start(ctx context.Context) error {
	if err := os.MkdirAll(g.cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create gateway data directory: %w", err)
	}

	logFile, err := os.OpenFile(filepath.Join(g.cfg.DataDir, "gateway.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open gateway log: %w", err)
	}
	g.logFile = logFile

	args := []string{
		"--api-id", g.apiID,
		"--api-hash", g.apiHash,
		"--http-port", strconv.Itoa(g.cfg.Port),
		"--dir", g.cfg.DataDir,
		"--local",
	}

	// The hash is a credential; the logged command line carries a
	// placeholder instead.
	g.logger.Info("starting bot api gateway",
		zap.String("cmd", loggableCommand(g.cfg.Binary, redactArg(args, g.apiHash)...)))

	cmd := exec.Command(g.cfg.Binary, args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		logFile.Close()
		return fmt.Errorf("start gateway process: %w", err)
	}
	g.cmd = cmd

	if err := g.waitReady(ctx); err != nil {
		g.Stop()
		return err
	}

	g.logger.Info("bot api gateway ready",
		zap.Int("pid", cmd.Process.Pid),
		zap.String("url", g.URL()))
	return nil
}

// waitReady polls the gateway port until it accepts HTTP requests. Any HTTP
// response counts; the gateway 404s bare paths even when healthy.
func (g *BotAPIGateway) waitReady(ctx context.Context) error {
	client := &http.Client{Timeout: 1 * time.Second}
	deadline := time.Now().Add(gatewayStartTimeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(g.URL())
		if err == nil {
			resp.Body.Close()
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(gatewayPollInterval):
		}
	}

	return fmt.Errorf("gateway did not become ready within %s", gatewayStartTimeout)
}

// Stop terminates the gateway process, escalating to SIGKILL if it ignores
// SIGTERM.
func (g *BotAPIGateway) Stop() error {
	if g.cmd == nil || g.cmd.Process == nil {
		return nil
	}
	defer func() {
		if g.logFile != nil {
			g.logFile.Close()
		}
	}()

	if err := g.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		return g.cmd.Process.Kill()
	}

	done := make(chan error, 1)
	go func() { done <- g.cmd.Wait() }()

	select {
	case <-done:
		g.logger.Info("bot api gateway stopped")
		return nil
	case <-time.After(gatewayStopTimeout):
		g.logger.Warn("gateway ignored SIGTERM, killing")
		return g.cmd.Process.Kill()
	}
}

// redactArg replaces any occurrence of secret in args with a placeholder.
func redactArg(args []string, secret string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		if a == secret && secret != "" {
			out[i] = "<redacted>"
		} else {
			out[i] = a
		}
	}
	return out
}

// loggableCommand renders a command line the way a shell would need it
// quoted. Display only; exec.Command passes args directly to the process.
func loggableCommand(binary string, args ...string) string {
	parts := []string{shellQuote(binary)}
	for _, arg := range args {
		parts = append(parts, shellQuote(arg))
	}
	return strings.Join(parts, " ")
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n\"'`$\\!*?[](){}|;<>&~#%") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
