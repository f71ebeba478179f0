package snapshot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/scalpel-replay/internal/browser/dom"
	"github.com/xkilldash9x/scalpel-replay/internal/config"
)

func TestIsURL(t *testing.T) {
	testCases := []struct {
		source string
		want   bool
	}{
		{"https://example.com/login", true},
		{"HTTP://example.com", true},
		{"file:///tmp/page.html", true},
		{"page.html", false},
		{"./fixtures/page.html", false},
		{"/abs/path/page.html", false},
		{"ftp://example.com/page.html", false},
		{"://broken", false},
	}
	for _, tc := range testCases {
		t.Run(tc.source, func(t *testing.T) {
			assert.Equal(t, tc.want, IsURL(tc.source))
		})
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte(`<html><body><button id="go">Go</button></body></html>`), 0o644))

	c := New(config.NewDefaultConfig().Browser(), zaptest.NewLogger(t))
	doc, err := c.Open(context.Background(), path)
	require.NoError(t, err)

	el, strategy := dom.NewFinder(doc).Resolve("Go")
	require.NotNil(t, el)
	assert.Equal(t, dom.StrategyExactText, strategy)

	_, err = c.Open(context.Background(), filepath.Join(t.TempDir(), "missing.html"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestAllocatorOptions(t *testing.T) {
	cfg := config.NewDefaultConfig().Browser()
	base := len(New(cfg, nil).allocatorOptions())

	cfg.Args = []string{"--no-zygote", "window-size=1280,720", "--"}
	opts := New(cfg, nil).allocatorOptions()
	assert.Len(t, opts, base+2, "one option per usable arg")
}

// TestCaptureLivePage drives a real Chrome and only runs when one is available.
func TestCaptureLivePage(t *testing.T) {
	if os.Getenv("REPLAY_BROWSER_TESTS") == "" {
		t.Skip("set REPLAY_BROWSER_TESTS=1 to run tests against a local Chrome")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><div id="app"></div>
			<script>document.getElementById("app").innerHTML = '<button id="late">Rendered</button>';</script>
			</body></html>`))
	}))
	defer srv.Close()

	cfg := config.NewDefaultConfig().Browser()
	cfg.SettleTime = 100 * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	doc, err := New(cfg, zaptest.NewLogger(t)).Open(ctx, srv.URL)
	require.NoError(t, err)

	el := dom.NewFinder(doc).Find("#late")
	require.NotNil(t, el, "script-rendered content is part of the snapshot")
	assert.Equal(t, "Rendered", dom.TextContent(el))
}
