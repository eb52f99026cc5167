// Package dingtalk is the DingTalk plugin: an action node over the DingTalk
// open platform APIs and a trigger fed by the Stream push gateway.
package dingtalk

import (
	"context"
	"errors"
	"time"

	"github.com/sflowg/dingtalk/plugins/dingtalk/credentials"
	"github.com/sflowg/dingtalk/plugins/dingtalk/operation"
	"github.com/sflowg/dingtalk/plugins/dingtalk/resources/auth"
	"github.com/sflowg/dingtalk/plugins/dingtalk/resources/doc"
	"github.com/sflowg/dingtalk/plugins/dingtalk/resources/notable"
	"github.com/sflowg/dingtalk/plugins/dingtalk/resources/robot"
	"github.com/sflowg/dingtalk/plugins/dingtalk/resources/todo"
	"github.com/sflowg/dingtalk/plugins/dingtalk/resources/user"
	"github.com/sflowg/dingtalk/plugins/dingtalk/resources/workbooks"
	"github.com/sflowg/dingtalk/plugins/dingtalk/resources/workflow"
	"github.com/sflowg/dingtalk/plugins/dingtalk/stream"
	"github.com/sflowg/dingtalk/plugins/dingtalk/transport"
	"github.com/sflowg/dingtalk/runtime"
)

// Config holds the plugin configuration with declarative tags.
type Config struct {
	BaseURL     string `yaml:"base_url" default:"https://api.dingtalk.com/v1.0" validate:"required,url_format"`
	OAPIBaseURL string `yaml:"oapi_base_url" default:"https://oapi.dingtalk.com" validate:"required,url_format"`
	TokenURL    string `yaml:"token_url" default:"https://api.dingtalk.com/v1.0/oauth2/accessToken" validate:"required,url_format"`
	// LegacyHosts take the access token as a query parameter instead of a header.
	LegacyHosts []string     `yaml:"legacy_hosts" default:"[\"oapi.dingtalk.com\"]" validate:"min=1,dive,required"`
	RobotURL    string       `yaml:"robot_url" default:"https://oapi.dingtalk.com/robot/send" validate:"required,url_format"`
	Stream      StreamConfig `yaml:"stream"`
}

// StreamConfig configures the Stream trigger.
type StreamConfig struct {
	GatewayURL     string        `yaml:"gateway_url" default:"https://api.dingtalk.com/v1.0/gateway/connections/open" validate:"required,url_format"`
	UserAgent      string        `yaml:"user_agent" default:"sflowg-dingtalk-stream"`
	Heartbeat      string        `yaml:"heartbeat" default:"*/30 * * * * *" validate:"cron_spec"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"1s" validate:"gte=0"`
}

// Bundles returns every resource bundle the node offers.
func Bundles() []operation.Bundle {
	return []operation.Bundle{
		auth.Bundle(),
		doc.Bundle(),
		notable.Bundle(),
		robot.Bundle(),
		todo.Bundle(),
		user.Bundle(),
		workbooks.Bundle(),
		workflow.Bundle(),
	}
}

// Plugin registers the DingTalk credential types, node and trigger.
type Plugin struct {
	Config Config // Exported so the host can set it before registration

	registry *operation.Registry
	client   *transport.Client
	node     *Node
	trigger  *Trigger
}

// Register implements runtime.Registrar. Config is already applied.
func (p *Plugin) Register(c *runtime.Container) error {
	registry, err := operation.NewRegistry(Bundles()...)
	if err != nil {
		return err
	}
	p.registry = registry
	p.node = &Node{plugin: p}
	p.trigger = &Trigger{plugin: p}

	if err := c.RegisterCredentialType(credentials.NewAPI(p.Config.TokenURL, p.Config.LegacyHosts...)); err != nil {
		return err
	}
	if err := c.RegisterCredentialType(credentials.NewRobot(p.Config.RobotURL)); err != nil {
		return err
	}
	if err := c.RegisterNode(p.node); err != nil {
		return err
	}
	return c.RegisterTrigger(p.trigger)
}

// Initialize implements runtime.Initializer.
func (p *Plugin) Initialize(ctx context.Context) error {
	if p.registry == nil {
		return errors.New("dingtalk plugin initialized before registration")
	}
	p.client = transport.New(p.Config.BaseURL, p.Config.OAPIBaseURL)
	return nil
}

// Shutdown implements runtime.Shutdowner. Open Stream sessions are closed.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.trigger == nil {
		return nil
	}
	return p.trigger.closeAll(ctx)
}

func (p *Plugin) streamConfig() stream.Config {
	return stream.Config{
		GatewayURL:     p.Config.Stream.GatewayURL,
		UserAgent:      p.Config.Stream.UserAgent,
		HeartbeatSpec:  p.Config.Stream.Heartbeat,
		ReconnectDelay: p.Config.Stream.ReconnectDelay,
	}
}
