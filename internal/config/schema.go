// Package config defines the configuration schema for sbchat.
//
// Keys use camelCase in every supported format (JSON, YAML, TOML) so a file
// can be converted between formats without renaming anything.
package config

import (
	"fmt"
	"net/url"
	"time"

	robfigcron "github.com/robfig/cron/v3"
)

// NodeConfig identifies this chat node and tells it how to reach the router.
type NodeConfig struct {
	ID               string `json:"id" yaml:"id" toml:"id"`
	RouterURL        string `json:"routerUrl" yaml:"routerUrl" toml:"routerUrl"`
	ReconnectDelayMs int    `json:"reconnectDelayMs" yaml:"reconnectDelayMs" toml:"reconnectDelayMs"`
	PingIntervalMs   int    `json:"pingIntervalMs" yaml:"pingIntervalMs" toml:"pingIntervalMs"`
	SendTimeoutMs    int    `json:"sendTimeoutMs" yaml:"sendTimeoutMs" toml:"sendTimeoutMs"` // 0 = wait forever
}

func defaultNodeConfig() NodeConfig {
	return NodeConfig{
		RouterURL:        "ws://127.0.0.1:7464/bus",
		ReconnectDelayMs: 5000,
		PingIntervalMs:   30000,
	}
}

func (n NodeConfig) ReconnectDelay() time.Duration {
	return time.Duration(n.ReconnectDelayMs) * time.Millisecond
}

func (n NodeConfig) PingInterval() time.Duration {
	return time.Duration(n.PingIntervalMs) * time.Millisecond
}

func (n NodeConfig) SendTimeout() time.Duration {
	return time.Duration(n.SendTimeoutMs) * time.Millisecond
}

// RouterConfig configures the bus router.
type RouterConfig struct {
	Listen        string `json:"listen" yaml:"listen" toml:"listen"`
	Path          string `json:"path" yaml:"path" toml:"path"`
	StatsSchedule string `json:"statsSchedule" yaml:"statsSchedule" toml:"statsSchedule"` // empty disables
}

func defaultRouterConfig() RouterConfig {
	return RouterConfig{
		Listen:        ":7464",
		Path:          "/bus",
		StatsSchedule: "@every 5m",
	}
}

// ConsoleConfig controls the interactive terminal.
type ConsoleConfig struct {
	Color          bool `json:"color" yaml:"color" toml:"color"`
	DrainTimeoutMs int  `json:"drainTimeoutMs" yaml:"drainTimeoutMs" toml:"drainTimeoutMs"`
}

func defaultConsoleConfig() ConsoleConfig {
	return ConsoleConfig{Color: true, DrainTimeoutMs: 2000}
}

func (c ConsoleConfig) DrainTimeout() time.Duration {
	return time.Duration(c.DrainTimeoutMs) * time.Millisecond
}

// LogConfig controls the slog handler installed at startup.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" toml:"level"`    // debug | info | warn | error
	Format string `json:"format" yaml:"format" toml:"format"` // text | json
}

func defaultLogConfig() LogConfig {
	return LogConfig{Level: "warn", Format: "text"}
}

// Config is the root configuration object.
type Config struct {
	Node    NodeConfig    `json:"node" yaml:"node" toml:"node"`
	Router  RouterConfig  `json:"router" yaml:"router" toml:"router"`
	Console ConsoleConfig `json:"console" yaml:"console" toml:"console"`
	Log     LogConfig     `json:"log" yaml:"log" toml:"log"`
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() Config {
	return Config{
		Node:    defaultNodeConfig(),
		Router:  defaultRouterConfig(),
		Console: defaultConsoleConfig(),
		Log:     defaultLogConfig(),
	}
}

// Validate reports the first setting that cannot work at runtime.
// An empty node ID is allowed here; commands that need one check it themselves.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Node.RouterURL)
	if err != nil {
		return fmt.Errorf("node.routerUrl: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("node.routerUrl: scheme must be ws or wss, got %q", u.Scheme)
	}
	if c.Node.ReconnectDelayMs <= 0 {
		return fmt.Errorf("node.reconnectDelayMs must be positive")
	}
	if c.Node.PingIntervalMs <= 0 {
		return fmt.Errorf("node.pingIntervalMs must be positive")
	}
	if c.Node.SendTimeoutMs < 0 {
		return fmt.Errorf("node.sendTimeoutMs must not be negative")
	}
	if c.Console.DrainTimeoutMs < 0 {
		return fmt.Errorf("console.drainTimeoutMs must not be negative")
	}
	if c.Router.Path == "" || c.Router.Path[0] != '/' {
		return fmt.Errorf("router.path must start with /")
	}
	if c.Router.StatsSchedule != "" {
		if _, err := robfigcron.ParseStandard(c.Router.StatsSchedule); err != nil {
			return fmt.Errorf("router.statsSchedule: %w", err)
		}
	}
	return nil
}
