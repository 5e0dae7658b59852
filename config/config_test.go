package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/namjae/plug/adapter/dummy"
	"github.com/namjae/plug/conn"
	"github.com/namjae/plug/http/cookie"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoZeroFields(t *testing.T) {
	cfg := Default()

	for _, field := range visit(newVar(*cfg), "Config", false) {
		assert.Fail(t, "zero-value field", field)
	}
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		require.Equal(t, Default(), cfg)
	})

	t.Run("file", func(t *testing.T) {
		path := writeFile(t, `
body:
  length: 1024
  read_timeout: 30s
session:
  store: memory
server:
  transport: http1
  autocert_domains: [example.com, www.example.com]
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		require.Equal(t, 1024, cfg.Body.Length)
		require.Equal(t, 1_000_000, cfg.Body.ReadLength)
		require.Equal(t, 30*time.Second, cfg.Body.ReadTimeout)
		require.Equal(t, "memory", cfg.Session.Store)
		require.Equal(t, "http1", cfg.Server.Transport)
		require.Equal(t, []string{"example.com", "www.example.com"}, cfg.Server.AutocertDomains)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := writeFile(t, "server:\n  addr: 127.0.0.1:9000\n  transport: fasthttp\n")
		t.Setenv("PLUG_SERVER_ADDR", "127.0.0.1:9001")
		t.Setenv("PLUG_SECRET_KEY_BASE", "very secret")
		t.Setenv("PLUG_SESSION_TTL", "1h")

		cfg, err := Load(path)
		require.NoError(t, err)
		require.Equal(t, "127.0.0.1:9001", cfg.Server.Addr)
		require.Equal(t, "fasthttp", cfg.Server.Transport)
		require.Equal(t, "very secret", cfg.Secret.KeyBase)
		require.Equal(t, time.Hour, cfg.Session.TTL)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})

	t.Run("malformed file", func(t *testing.T) {
		_, err := Load(writeFile(t, "body: [1, 2"))
		require.Error(t, err)
	})

	t.Run("unknown transport", func(t *testing.T) {
		t.Setenv("PLUG_SERVER_TRANSPORT", "carrier-pigeon")
		_, err := Load("")
		require.ErrorContains(t, err, "carrier-pigeon")
	})

	t.Run("unknown store", func(t *testing.T) {
		t.Setenv("PLUG_SESSION_STORE", "floppy")
		_, err := Load("")
		require.ErrorContains(t, err, "floppy")
	})
}

func TestConnOptions(t *testing.T) {
	cfg := Default()
	cfg.Body.Length = 4
	cfg.Headers.DefaultCharset = "latin1"
	cfg.Cookie.Path = "/app"
	cfg.Secret.KeyBase = "very secret"

	c, _ := dummy.NewConn("POST", "/", []byte("hello world"), cfg.ConnOptions()...)
	require.Equal(t, "latin1", c.RespCharset())

	c, _, err := c.ReadFullBody()
	require.ErrorIs(t, err, conn.ErrBodyTooLarge)

	c, err = c.PutRespCookie("signed", "value", cookie.WithSign())
	require.NoError(t, err)
	cookies := c.RespCookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "/app", cookies[0].Path)
	require.NotEqual(t, "value", cookies[0].Value)
}

func writeFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "plug.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

type variable struct {
	Type  reflect.Type
	Value reflect.Value
}

func newVar(a any) variable {
	return variable{reflect.TypeOf(a), reflect.ValueOf(a)}
}

func visit(a variable, name string, nullable bool) (fields []string) {
	if a.Type.Kind() == reflect.Struct {
		for field := range a.Value.NumField() {
			v1 := variable{a.Type.Field(field).Type, a.Value.Field(field)}
			fieldname := a.Type.Field(field).Name
			isNullable := a.Type.Field(field).Tag.Get("test") == "nullable"
			fields = append(fields, visit(v1, name+"."+fieldname, isNullable)...)
		}

		return fields
	}

	if a.Value.IsZero() && !nullable {
		return []string{name}
	}

	return nil
}
