package demfetch

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/jlaffaye/ftp"
	"golang.org/x/time/rate"
)

type testClient struct {
	files     map[string]string
	listed    []string
	retrieved []string
	quit      bool
}

func (c *testClient) List(path string) ([]*ftp.Entry, error) {
	c.listed = append(c.listed, path)
	entries := []*ftp.Entry{
		{Name: "subdir", Type: ftp.EntryTypeFolder},
	}
	for name, contents := range c.files {
		entries = append(entries, &ftp.Entry{
			Name: name,
			Type: ftp.EntryTypeFile,
			Size: uint64(len(contents)),
		})
	}
	return entries, nil
}

func (c *testClient) Retrieve(path string) (io.ReadCloser, error) {
	c.retrieved = append(c.retrieved, path)
	name := path[strings.LastIndex(path, "/")+1:]
	contents, ok := c.files[name]
	if !ok {
		return nil, errors.New("550 file not found")
	}
	return io.NopCloser(strings.NewReader(contents)), nil
}

func (c *testClient) Quit() error {
	c.quit = true
	return nil
}

func newTestFetcher(client *testClient) *Fetcher {
	return NewFetcher(
		WithDialFunc(func(ctx context.Context, host, user, password string) (Client, error) {
			if host != "ftp.example.com:21" || user != "anonymous" {
				return nil, errors.New("unexpected host or user")
			}
			return client, nil
		}),
		WithRate(rate.Inf, 1),
	)
}

func TestFetch(t *testing.T) {
	client := &testClient{
		files: map[string]string{
			"RGEALTI_FXX_0650_6865_MNT_LAMB93_IGN69.tif": "tile1",
			"RGEALTI_FXX_0655_6865_MNT_LAMB93_IGN69.tif": "tile2",
			"README.txt": "readme",
		},
	}
	destDir := t.TempDir()
	existing := filepath.Join(destDir, "RGEALTI_FXX_0655_6865_MNT_LAMB93_IGN69.tif")
	assert.NoError(t, os.WriteFile(existing, []byte("existing"), 0o666))

	downloaded, err := newTestFetcher(client).Fetch(t.Context(), "ftp://ftp.example.com/RGEALTI/1M", destDir, "*.tif")
	assert.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(destDir, "RGEALTI_FXX_0650_6865_MNT_LAMB93_IGN69.tif"),
	}, downloaded)
	assert.Equal(t, []string{"/RGEALTI/1M"}, client.listed)
	assert.Equal(t, []string{"/RGEALTI/1M/RGEALTI_FXX_0650_6865_MNT_LAMB93_IGN69.tif"}, client.retrieved)
	assert.True(t, client.quit)

	contents, err := os.ReadFile(downloaded[0])
	assert.NoError(t, err)
	assert.Equal(t, "tile1", string(contents))

	contents, err = os.ReadFile(existing)
	assert.NoError(t, err)
	assert.Equal(t, "existing", string(contents))

	entries, err := os.ReadDir(destDir)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(entries))
}

func TestFetch_Errors(t *testing.T) {
	fetcher := newTestFetcher(&testClient{})
	for _, tc := range []struct {
		name    string
		rawURL  string
		pattern string
	}{
		{name: "scheme", rawURL: "http://ftp.example.com/", pattern: "*"},
		{name: "no_host", rawURL: "ftp:///dir", pattern: "*"},
		{name: "pattern", rawURL: "ftp://ftp.example.com/", pattern: "["},
		{name: "dial", rawURL: "ftp://other.example.com/", pattern: "*"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fetcher.Fetch(t.Context(), tc.rawURL, t.TempDir(), tc.pattern)
			assert.Error(t, err)
		})
	}
}

func TestFetch_Canceled(t *testing.T) {
	client := &testClient{
		files: map[string]string{
			"a.tif": "a",
		},
	}
	fetcher := NewFetcher(
		WithDialFunc(func(context.Context, string, string, string) (Client, error) {
			return client, nil
		}),
		WithRate(rate.Every(1), 0),
	)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := fetcher.Fetch(ctx, "ftp://ftp.example.com/", t.TempDir(), "*.tif")
	assert.Error(t, err)
	assert.Zero(t, client.retrieved)
}

func TestParseFTPURL(t *testing.T) {
	host, dir, err := parseFTPURL("ftp://ftp.example.com:2121/data")
	assert.NoError(t, err)
	assert.Equal(t, "ftp.example.com:2121", host)
	assert.Equal(t, "/data", dir)

	host, dir, err = parseFTPURL("ftp://ftp.example.com")
	assert.NoError(t, err)
	assert.Equal(t, "ftp.example.com:21", host)
	assert.Equal(t, "/", dir)
}
