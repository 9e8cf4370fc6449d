// Package dependency wires a chat node using go.uber.org/dig.
package dependency

import (
	"context"
	"fmt"

	"go.uber.org/dig"

	"github.com/sbchat/sbchat/internal/bus"
	"github.com/sbchat/sbchat/internal/chat"
	"github.com/sbchat/sbchat/internal/config"
	"github.com/sbchat/sbchat/internal/console"
	"github.com/sbchat/sbchat/internal/transport"
)

// EchoNodeID is the peer that answers every message in loopback mode.
const EchoNodeID = "echo"

// Link keeps a node attached to its bus until ctx ends.
type Link interface {
	Run(ctx context.Context) error
}

// Container holds the resolved chat node.
// Callers use the typed getter methods; they never need to import dig directly.
type Container struct {
	bus    bus.Bus
	link   Link
	client *chat.Client
}

func (c *Container) Bus() bus.Bus             { return c.bus }
func (c *Container) Link() Link               { return c.link }
func (c *Container) ChatClient() *chat.Client { return c.client }

// Loopback selects an in-process bus with an echo peer instead of the router.
type Loopback bool

type nodeOut struct {
	dig.Out

	Bus  bus.Bus
	Link Link
}

// New builds the node for cfg, attached to con.
func New(cfg *config.Config, con *console.Console, loopback Loopback) (*Container, error) {
	if cfg.Node.ID == "" {
		return nil, fmt.Errorf("node id not set: run `sbchat onboard` or pass --id")
	}

	d := dig.New()

	if err := d.Provide(func() *config.Config { return cfg }); err != nil {
		return nil, err
	}
	if err := d.Provide(func() *console.Console { return con }); err != nil {
		return nil, err
	}
	if err := d.Provide(func() Loopback { return loopback }); err != nil {
		return nil, err
	}
	if err := d.Provide(newNode); err != nil {
		return nil, err
	}
	if err := d.Provide(newChatClient); err != nil {
		return nil, err
	}

	var result *Container
	err := d.Invoke(func(b bus.Bus, link Link, client *chat.Client) {
		result = &Container{bus: b, link: link, client: client}
	})
	return result, err
}

// NewTransport builds the router client described by cfg.
func NewTransport(cfg *config.Config) *transport.Client {
	return transport.NewClient(transport.ClientConfig{
		URL:            cfg.Node.RouterURL,
		NodeID:         cfg.Node.ID,
		ReconnectDelay: cfg.Node.ReconnectDelay(),
		PingInterval:   cfg.Node.PingInterval(),
	})
}

func newNode(cfg *config.Config, loopback Loopback) (nodeOut, error) {
	if !loopback {
		c := NewTransport(cfg)
		return nodeOut{Bus: c, Link: c}, nil
	}

	n, err := newLoopback(cfg.Node.ID)
	if err != nil {
		return nodeOut{}, err
	}
	return nodeOut{Bus: n, Link: idleLink{}}, nil
}

func newChatClient(cfg *config.Config, b bus.Bus, con *console.Console) *chat.Client {
	return chat.NewClient(b, con.Reader, con.Sink, con.Errors, chat.Options{
		SendTimeout:  cfg.Node.SendTimeout(),
		DrainTimeout: cfg.Console.DrainTimeout(),
		Color:        cfg.Console.Color,
	})
}
