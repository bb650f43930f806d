package version

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfoString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		info Info
		want string
	}{
		{"all fields", Info{Version: "v1.2.3", Commit: "abc1234", Date: "2026-01-15"}, "v1.2.3 (commit: abc1234, built: 2026-01-15)"},
		{"empty", Info{}, "dev (commit: unknown, built: unknown)"},
		{"no commit", Info{Version: "v2.0.0", Date: "2026-03-25"}, "v2.0.0 (commit: unknown, built: 2026-03-25)"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.info.String())
		})
	}
}

func TestCurrent(t *testing.T) {
	t.Parallel()

	info := Current()
	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.Contains(t, info.Platform, "/")
}

func TestCompare(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want int
	}{
		{"v1.0.0", "v1.0.0", 0},
		{"1.0.1", "v1.0.0", 1},
		{"v1.2.0", "v1.10.0", -1},
		{"v2.0.0-rc1", "v1.9.9", 1},
		{"v1.0", "v1.0.0", 0},
		{"dev", "v0.0.1", -1},
		{"v0.0.1", "abc1234", 1},
		{"dev", "", 0},
		{"1234567", "1.0.0", 1},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Compare(tc.a, tc.b), "%s vs %s", tc.a, tc.b)
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1.2.3", Normalize(" v1.2.3-dirty "))
	assert.Equal(t, "1.2.3", Normalize("vv1.2.3+build.5"))
	assert.Equal(t, "dev", Normalize("dev"))
}

func TestIsCommitHash(t *testing.T) {
	t.Parallel()

	assert.True(t, isCommitHash("abc1234"))
	assert.True(t, isCommitHash("abc1234-dirty"))
	assert.False(t, isCommitHash("1234567"))
	assert.False(t, isCommitHash("abc12"))
	assert.False(t, isCommitHash("xyz1234"))
}

func TestChecker(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/mrz1836/cashgate/releases/latest":
			assert.Contains(t, r.Header.Get("User-Agent"), "cashgate/")
			_, _ = w.Write([]byte(`{"tag_name":"v1.4.0","html_url":"https://github.com/mrz1836/cashgate/releases/v1.4.0"}`))
		default:
			http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	checker := NewChecker(WithBaseURL(srv.URL+"/"), WithHTTPClient(srv.Client()))

	t.Run("newer release", func(t *testing.T) {
		up, err := checker.Check(context.Background(), "v1.3.9")
		require.NoError(t, err)
		assert.True(t, up.Newer)
		assert.Equal(t, "v1.4.0", up.Latest)
		assert.NotEmpty(t, up.URL)
	})

	t.Run("up to date", func(t *testing.T) {
		up, err := checker.Check(context.Background(), "v1.4.0")
		require.NoError(t, err)
		assert.False(t, up.Newer)
	})

	t.Run("unknown repository", func(t *testing.T) {
		other := NewChecker(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()), WithRepository("nobody", "nothing"))
		_, err := other.Latest(context.Background())
		require.ErrorIs(t, err, ErrReleaseLookup)
		assert.Contains(t, err.Error(), "404")
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := checker.Latest(ctx)
		require.Error(t, err)
	})
}
