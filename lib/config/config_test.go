package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pthm/hxcore"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    func(*Config)
		wantErr error
	}{
		{
			name:  "empty file keeps defaults",
			input: "",
			want:  func(*Config) {},
		},
		{
			name: "overrides",
			input: `
engine: zero
logVerbosity: 2
scroll:
  perPage: 25
  sensitive: true
key: secret
`,
			want: func(c *Config) {
				c.Engine = "zero"
				c.LogVerbosity = 2
				c.Scroll.PerPage = 25
				c.Scroll.Sensitive = true
				c.Key = "secret"
			},
		},
		{
			name:    "unknown engine",
			input:   "engine: vdom\n",
			wantErr: hxcore.ErrUnknownEngine,
		},
		{
			name:    "bad page size",
			input:   "scroll:\n  perPage: 0\n",
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "sensitive without key",
			input:   "scroll:\n  sensitive: true\n",
			wantErr: ErrInvalidConfig,
		},
		{
			name:  "rotated key",
			input: "key: new\nretiredKeys: [old, older]\n",
			want: func(c *Config) {
				c.Key = "new"
				c.RetiredKeys = []string{"old", "older"}
			},
		},
		{
			name:    "retired keys without key",
			input:   "retiredKeys: [old]\n",
			wantErr: ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.input))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Parse() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			want := Default()
			tt.want(want)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	if _, err := Parse([]byte("engnie: zero\n")); err == nil {
		t.Error("Parse() accepted a misspelled key")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hxcore.yaml")
	if err := os.WriteFile(path, []byte("addr: \":9000\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Addr != ":9000" {
		t.Errorf("Addr = %q", c.Addr)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load(missing) error = %v", err)
	}
}

func TestStringRedactsKey(t *testing.T) {
	c := Default()
	c.Key = "top-secret"
	c.RetiredKeys = []string{"old-secret"}
	s := c.String()
	if strings.Contains(s, "top-secret") || strings.Contains(s, "old-secret") {
		t.Errorf("String() leaks the key:\n%s", s)
	}
	if !strings.Contains(s, "perPage: 10") {
		t.Errorf("String() missing scroll settings:\n%s", s)
	}
	if c.Key != "top-secret" || c.RetiredKeys[0] != "old-secret" {
		t.Error("String() modified the config")
	}
}
