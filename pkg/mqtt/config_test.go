package mqtt

import (
	"testing"
	"time"
)

func TestClientConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ClientConfig
		wantErr bool
	}{
		{"valid tls", ClientConfig{BrokerURL: "mqtts://broker.local:8883", ClientID: "nvsprov-1"}, false},
		{"valid tcp", ClientConfig{BrokerURL: "tcp://localhost:1883", ClientID: "nvsprov-1"}, false},
		{"missing broker", ClientConfig{ClientID: "nvsprov-1"}, true},
		{"unsupported scheme", ClientConfig{BrokerURL: "http://broker.local", ClientID: "nvsprov-1"}, true},
		{"missing client id", ClientConfig{BrokerURL: "tcp://localhost:1883"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewClientAppliesDefaults(t *testing.T) {
	cfg := &ClientConfig{BrokerURL: "tcp://localhost:1883", ClientID: "nvsprov-1"}
	if _, err := NewClient(cfg); err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	if cfg.KeepAlive != 30 {
		t.Errorf("KeepAlive = %d, want 30", cfg.KeepAlive)
	}
	if cfg.ConnectTimeout != 5*time.Second {
		t.Errorf("ConnectTimeout = %v, want 5s", cfg.ConnectTimeout)
	}

	if _, err := NewClient(nil); err == nil {
		t.Errorf("NewClient(nil) error = nil, want error")
	}
}
