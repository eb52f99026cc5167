package dingtalk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sflowg/dingtalk/plugins/dingtalk/credentials"
	"github.com/sflowg/dingtalk/plugins/dingtalk/stream"
	"github.com/sflowg/dingtalk/runtime"
)

const (
	TriggerName = "dingtalkNodeTrigger"

	EventStreamPush = "stream.push"
)

// Trigger starts one Stream session per activation.
type Trigger struct {
	plugin *Plugin

	mu       sync.Mutex
	sessions map[*stream.Session]struct{}
}

func (t *Trigger) Description() runtime.NodeDescription {
	return runtime.NodeDescription{
		DisplayName: "Dingtalk Node Trigger",
		Name:        TriggerName,
		Icon:        "file:icon.png",
		Group:       []string{"trigger"},
		Version:     1,
		Subtitle:    `={{($parameter["event"])}}`,
		Description: "Dingtalk Node Trigger",
		Inputs:      []string{},
		Outputs:     []string{"main"},
		Credentials: []runtime.CredentialRef{{Name: credentials.APIName, Required: true}},
		Properties: []runtime.NodeProperty{{
			DisplayName: "Event",
			Name:        "event",
			Type:        runtime.PropertyOptions,
			Default:     EventStreamPush,
			Options: []runtime.PropertyOption{{
				Name:        "Stream模式事件订阅",
				Value:       EventStreamPush,
				Description: "当钉钉通过 Stream 模式推送事件时触发。",
			}},
		}},
	}
}

func (t *Trigger) Trigger(exec *runtime.Execution) (*runtime.TriggerResponse, error) {
	event, err := exec.StringParameter("event", 0)
	if err != nil {
		return nil, err
	}
	if event == "" {
		event = EventStreamPush
	}
	if event != EventStreamPush {
		return nil, runtime.NewOperationError(exec.NodeName(),
			fmt.Sprintf("Unsupported trigger event %q", event)).WithDescription("请选择一个可用的触发类型。")
	}

	creds, err := exec.GetCredentials(exec, credentials.APIName)
	if err != nil {
		return nil, err
	}
	clientID := strings.TrimSpace(creds.String("clientId"))
	clientSecret := strings.TrimSpace(creds.String("clientSecret"))
	if clientID == "" || clientSecret == "" {
		return nil, runtime.NewOperationError(exec.NodeName(),
			"Missing DingTalk credentials. Please configure Client ID and Client Secret.")
	}

	session := stream.NewSession(exec, clientID, clientSecret, t.plugin.streamConfig())
	if err := session.Start(); err != nil {
		_ = session.Close(exec)
		return nil, err
	}
	t.track(session)

	return &runtime.TriggerResponse{
		Close: func(ctx context.Context) error {
			t.untrack(session)
			return session.Close(ctx)
		},
		Manual: session.WaitForEvent,
	}, nil
}

func (t *Trigger) track(s *stream.Session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sessions == nil {
		t.sessions = make(map[*stream.Session]struct{})
	}
	t.sessions[s] = struct{}{}
}

func (t *Trigger) untrack(s *stream.Session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, s)
}

func (t *Trigger) closeAll(ctx context.Context) error {
	t.mu.Lock()
	sessions := t.sessions
	t.sessions = nil
	t.mu.Unlock()

	var errs []error
	for s := range sessions {
		errs = append(errs, s.Close(ctx))
	}
	return errors.Join(errs...)
}
