package runtime

import (
	"strings"
	"testing"
	"time"
)

type streamConfig struct {
	GatewayURL     string        `yaml:"gateway_url" default:"https://api.dingtalk.com/v1.0/gateway/connections/open" validate:"required,url_format"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"1s"`
	Heartbeat      string        `yaml:"heartbeat" default:"*/30 * * * * *" validate:"cron_spec"`
	Retries        int           `yaml:"retries" default:"2" validate:"gte=0,lte=5"`
	Debug          bool          `yaml:"debug"`
}

type listenConfig struct {
	Addr string `validate:"hostname_port"`
}

func TestApplyDefaults_BasicTypes(t *testing.T) {
	config := streamConfig{}

	if err := ApplyDefaults(&config); err != nil {
		t.Fatalf("ApplyDefaults failed: %v", err)
	}

	if config.GatewayURL != "https://api.dingtalk.com/v1.0/gateway/connections/open" {
		t.Errorf("Expected default GatewayURL, got '%s'", config.GatewayURL)
	}
	if config.ReconnectDelay != time.Second {
		t.Errorf("Expected ReconnectDelay=1s, got %v", config.ReconnectDelay)
	}
	if config.Retries != 2 {
		t.Errorf("Expected Retries=2, got %d", config.Retries)
	}
}

func TestApplyDefaults_NilConfig(t *testing.T) {
	if err := ApplyDefaults(nil); err == nil {
		t.Error("Expected error for nil config, got nil")
	}
}

func TestInitializeConfig_MergesRawValues(t *testing.T) {
	config := streamConfig{}

	err := InitializeConfig(&config, map[string]any{
		"reconnect_delay": "250ms",
		"retries":         "4",
		"debug":           true,
	})
	if err != nil {
		t.Fatalf("InitializeConfig failed: %v", err)
	}

	if config.ReconnectDelay != 250*time.Millisecond {
		t.Errorf("Expected ReconnectDelay=250ms, got %v", config.ReconnectDelay)
	}
	if config.Retries != 4 {
		t.Errorf("Expected Retries=4, got %d", config.Retries)
	}
	if !config.Debug {
		t.Error("Expected Debug=true")
	}
	if config.Heartbeat != "*/30 * * * * *" {
		t.Errorf("Expected default heartbeat to survive merge, got '%s'", config.Heartbeat)
	}
}

func TestInitializeConfig_ValidationRunsAfterMerge(t *testing.T) {
	tests := []struct {
		name    string
		raw     map[string]any
		wantErr string
	}{
		{"bad url", map[string]any{"gateway_url": "not-a-url"}, "GatewayURL"},
		{"bad cron", map[string]any{"heartbeat": "every now and then"}, "Heartbeat"},
		{"out of range", map[string]any{"retries": 9}, "Retries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := streamConfig{}
			err := InitializeConfig(&config, tt.raw)
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error to mention '%s', got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestCustomValidator_HostnamePort(t *testing.T) {
	tests := []struct {
		addr      string
		shouldErr bool
	}{
		{"localhost:8080", false},
		{":8080", false},
		{"127.0.0.1:65535", false},
		{"localhost", true},
		{"localhost:notaport", true},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			err := ValidateStruct(listenConfig{Addr: tt.addr})
			if tt.shouldErr && err == nil {
				t.Errorf("Expected validation error for '%s', got nil", tt.addr)
			}
			if !tt.shouldErr && err != nil {
				t.Errorf("Expected no error for '%s', got: %v", tt.addr, err)
			}
		})
	}
}

func TestValidateStruct_NilValue(t *testing.T) {
	if err := ValidateStruct(nil); err == nil {
		t.Error("Expected error for nil value, got nil")
	}
}
