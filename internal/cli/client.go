package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/runnerr0/dwell/internal/app"
	"github.com/runnerr0/dwell/internal/config"
	"github.com/runnerr0/dwell/internal/server"
)

// daemonClient talks to a running `dwell serve` over its HTTP API. Commands
// that change in-memory daemon state (focus timers) must go through it.
type daemonClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newDaemonClient(cfg *config.Config) *daemonClient {
	d := cfg.Daemon
	return &daemonClient{
		baseURL: "http://" + net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		token:   d.AuthToken,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// clientFor returns injected or a client built from the config file.
func clientFor(injected *daemonClient, g *GlobalFlags) (*daemonClient, error) {
	if injected != nil {
		return injected, nil
	}
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}
	return newDaemonClient(cfg), nil
}

// viaDaemon runs online against a daemon that answers, and offline against
// the database only when none does. The daemon owns the aggregator and the
// focus timer, so a second process must not write behind its back.
func viaDaemon(injectedApp *app.App, injectedClient *daemonClient, g *GlobalFlags,
	online func(context.Context, *daemonClient) error, offline func(*app.App) error) error {
	client := injectedClient
	if client == nil && injectedApp != nil {
		client = newDaemonClient(injectedApp.Config)
	}
	client, err := clientFor(client, g)
	if err != nil {
		return err
	}
	ctx := context.Background()
	if client.Running(ctx) {
		return online(ctx, client)
	}
	return withApp(injectedApp, g, offline)
}

// Running reports whether the daemon answers its /status ping within a second.
func (c *daemonClient) Running(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return c.do(ctx, http.MethodGet, "/status", nil, nil) == nil
}

func (c *daemonClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set(server.TokenHeader, c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w (%v)", errDaemonDown, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var r server.Response
		if err := json.NewDecoder(resp.Body).Decode(&r); err == nil && r.Error != "" {
			return fmt.Errorf("daemon: %s", r.Error)
		}
		return fmt.Errorf("daemon: %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
