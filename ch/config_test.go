package ch

import (
	"errors"
	"testing"
	"time"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{"valid", &Config{Hosts: []string{"localhost:9000"}, Username: "u", Password: "p"}, false},
		{"missing hosts", &Config{Username: "u", Password: "p"}, true},
		{"missing username", &Config{Hosts: []string{"localhost:9000"}, Password: "p"}, true},
		{"missing password", &Config{Hosts: []string{"localhost:9000"}, Username: "u"}, true},
		{"negative dial timeout", &Config{Hosts: []string{"localhost:9000"}, Username: "u", Password: "p", DialTimeout: -1}, true},
		{"negative max open conns", &Config{Hosts: []string{"localhost:9000"}, Username: "u", Password: "p", MaxOpenConns: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestConfig_MergeDefaults(t *testing.T) {
	cfg := (&Config{Hosts: []string{"ch:9000"}, MaxOpenConns: 3}).MergeDefaults()
	if cfg.Database != "default" || cfg.DialTimeout != 10*time.Second || cfg.MaxOpenConns != 3 {
		t.Errorf("unexpected config: %+v", cfg)
	}

	opts := cfg.options()
	if opts.Auth.Database != "default" || len(opts.Addr) != 1 || opts.MaxOpenConns != 3 {
		t.Errorf("unexpected options: %+v", opts)
	}
}

func TestErrConnection_NamesHosts(t *testing.T) {
	cause := errors.New("refused")
	err := ErrConnection([]string{"ch-1:9000", "ch-2:9000"}, cause)
	if !errors.Is(err, cause) {
		t.Fatalf("cause not wrapped: %v", err)
	}
	if want := "ch: connect ch-1:9000,ch-2:9000: refused"; err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}
