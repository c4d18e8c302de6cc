package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/thumbor/internal/spec"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestParseKVPair(t *testing.T) {
	tests := []struct {
		in      string
		want    KVPair
		wantErr bool
	}{
		{in: "token=abc", want: KVPair{Key: "token", Value: "abc"}},
		{in: "source=", want: KVPair{Key: "source", Value: ""}},
		{in: "q=a=b", want: KVPair{Key: "q", Value: "a=b"}},
		{in: "novalue", wantErr: true},
		{in: "=value", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseKVPair(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseKVPairsLastWins(t *testing.T) {
	got, err := parseKVPairs([]string{"a=1", "b=2", "a=3"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "3", "b": "2"}, got)
}

func TestParseURL(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"http://localhost:8080/api/pipeline", false},
		{"https://img.example.com/image/CgYaBAgKEBQ/original/cat.jpg", false},
		{"localhost:8080", true},
		{"ftp://example.com/file", true},
		{"http://", true},
		{"://bad", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := parseURL(tt.in)
			assert.Equal(t, tt.wantErr, err != nil, "err = %v", err)
		})
	}
}

func TestEncodeCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "token",
			args: []string{"encode", "resize:600x600:catmullrom", "filter:marine"},
			want: "CgoKCAjYBBDYBCADCgQSAggD\n",
		},
		{
			name: "watermark",
			args: []string{"encode", "watermark:10,20"},
			want: "CgYaBAgKEBQ\n",
		},
		{
			name: "url",
			args: []string{"encode", "--base", "http://localhost:8080", "--source", "/original/cat.jpg", "watermark:10,20"},
			want: "http://localhost:8080/image/CgYaBAgKEBQ/original/cat.jpg\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestEncodeCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no operations", []string{"encode"}},
		{"unknown operation", []string{"encode", "blur:3"}},
		{"bad size", []string{"encode", "resize:axb"}},
		{"base without source", []string{"encode", "--base", "http://localhost", "filter:marine"}},
		{"bad base", []string{"encode", "--base", "localhost", "--source", "a.jpg", "filter:marine"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestDecodeCommand(t *testing.T) {
	token := spec.NewPipeline(
		spec.NewResizeSeamCarve(300, 200),
		spec.NewFilter(spec.FilterOceanic),
	).Token()

	out, err := run(t, "decode", token)
	require.NoError(t, err)
	assert.Contains(t, out, "seam:300x200")
	assert.Contains(t, out, "filter:oceanic")

	_, err = run(t, "decode", "not!valid$$base64")
	assert.ErrorIs(t, err, spec.ErrInvalidEncoding)
}

func TestGetAndPostCommands(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var body map[string]string
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"result": body})
		default:
			w.Header().Set("Content-Type", "image/jpeg")
			w.Header().Set("X-Cache", "HIT")
			_, _ = w.Write([]byte{0xff, 0xd8, 0xff, 0xd9})
		}
	}))
	defer srv.Close()

	t.Run("post", func(t *testing.T) {
		out, err := run(t, "post", srv.URL+"/api/render", "token=CgYaBAgKEBQ", "source=original/cat.jpg")
		require.NoError(t, err)
		assert.Contains(t, out, "HTTP/1.1 200 OK")
		assert.Contains(t, out, "Content-Type")
		assert.Contains(t, out, `"token": "CgYaBAgKEBQ"`)
		assert.Contains(t, out, `"source": "original/cat.jpg"`)
	})

	t.Run("get image", func(t *testing.T) {
		out, err := run(t, "get", srv.URL+"/image/CgYaBAgKEBQ/original/cat.jpg")
		require.NoError(t, err)
		assert.Contains(t, out, "X-Cache")
		assert.Contains(t, out, "<4 bytes of image/jpeg>")
	})

	t.Run("get to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cat.jpg")
		out, err := run(t, "get", "-o", path, srv.URL+"/image/CgYaBAgKEBQ/original/cat.jpg")
		require.NoError(t, err)
		assert.NotContains(t, out, "bytes of")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, []byte{0xff, 0xd8, 0xff, 0xd9}, data)
	})

	t.Run("bad pair", func(t *testing.T) {
		_, err := run(t, "post", srv.URL, "novalue")
		assert.Error(t, err)
	})
}

func TestFormatBody(t *testing.T) {
	assert.Equal(t, "plain text", formatBody("text/plain; charset=utf-8", []byte("plain text")))
	assert.Equal(t, "{broken", formatBody("application/json", []byte("{broken")))
	assert.Contains(t, formatBody("application/problem+json", []byte(`{"a":1}`)), `"a": 1`)
}

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, log.DebugLevel)

	assert.Same(t, l, loggerFromContext(withLogger(context.Background(), l)))
	assert.NotNil(t, loggerFromContext(context.Background()))

	l.Debug("hello")
	assert.Contains(t, buf.String(), "hello")
}
