package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type testConf struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

var errBadPort = errors.New("port out of range")

type validatedConf struct {
	Port int `yaml:"port"`
}

func (c *validatedConf) Validate() error {
	if c.Port <= 0 {
		return errBadPort
	}
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "conf.yaml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("TEST_CONF_NAME", "expanded")
	p := writeFile(t, "name: ${TEST_CONF_NAME}\nport: 8080\n")

	var c testConf
	if err := Load(p, &c); err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Name != "expanded" {
		t.Errorf("name = %q, want expanded", c.Name)
	}
	if c.Port != 8080 {
		t.Errorf("port = %d, want 8080", c.Port)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	var c testConf
	err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &c)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "config: read") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParse_RunsValidator(t *testing.T) {
	var c validatedConf
	if err := Parse([]byte("port: 8080\n"), &c); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	c = validatedConf{}
	err := Parse([]byte("port: -1\n"), &c)
	if !errors.Is(err, errBadPort) {
		t.Errorf("err = %v, want errBadPort", err)
	}
}

func TestParse_BadYAML(t *testing.T) {
	var c testConf
	if err := Parse([]byte("name: [unclosed\n"), &c); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadIfExists_MissingKeepsDefaults(t *testing.T) {
	c := testConf{Name: "default", Port: 9999}
	if err := LoadIfExists(filepath.Join(t.TempDir(), "nope.yaml"), &c); err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if c.Name != "default" || c.Port != 9999 {
		t.Errorf("defaults clobbered: %+v", c)
	}
}

func TestLoadIfExists_PresentOverrides(t *testing.T) {
	p := writeFile(t, "name: fromfile\n")

	c := testConf{Name: "default", Port: 9999}
	if err := LoadIfExists(p, &c); err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Name != "fromfile" {
		t.Errorf("name = %q, want fromfile", c.Name)
	}
	if c.Port != 9999 {
		t.Errorf("port = %d, want 9999 (absent key keeps default)", c.Port)
	}
}
