package config

import (
	"testing"
)

func TestResolver_Resolve(t *testing.T) {
	r := NewResolverWithEnv(map[string]string{
		"TOKEN": "secret",
		"HOST":  "store",
		"EMPTY": "",
	})

	tests := []struct {
		name    string
		value   string
		want    string
		wantErr bool
	}{
		{name: "plain value", value: "literal", want: "literal"},
		{name: "empty", value: "", want: ""},
		{name: "bare reference", value: "$TOKEN", want: "secret"},
		{name: "braced reference", value: "${TOKEN}", want: "secret"},
		{name: "embedded", value: "http://${HOST}:8080/api", want: "http://store:8080/api"},
		{name: "set but empty", value: "$EMPTY", want: ""},
		{name: "unset", value: "$MISSING", wantErr: true},
		{name: "one of two unset", value: "$HOST/$MISSING", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Resolve(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestResolver_ResolveConfig(t *testing.T) {
	r := NewResolverWithEnv(map[string]string{"TOKEN": "secret", "DB": "/var/chats.db"})
	cfg := NewConfig()
	cfg.Token = "$TOKEN"
	cfg.Server.DBPath = "${DB}"

	if err := r.resolveConfig(cfg); err != nil {
		t.Fatalf("resolveConfig() error = %v", err)
	}
	if cfg.Token != "secret" {
		t.Errorf("Token = %q, want %q", cfg.Token, "secret")
	}
	if cfg.Server.DBPath != "/var/chats.db" {
		t.Errorf("Server.DBPath = %q, want %q", cfg.Server.DBPath, "/var/chats.db")
	}
}
