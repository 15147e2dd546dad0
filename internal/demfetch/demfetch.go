// Package demfetch downloads DEM tiles from FTP servers.
package demfetch

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// A Client is the subset of an FTP connection used by a Fetcher.
type Client interface {
	List(path string) ([]*ftp.Entry, error)
	Retrieve(path string) (io.ReadCloser, error)
	Quit() error
}

// A DialFunc connects and logs in to an FTP server.
type DialFunc func(ctx context.Context, host, user, password string) (Client, error)

// A Fetcher downloads files matching a pattern from an FTP directory.
type Fetcher struct {
	dial     DialFunc
	limiter  *rate.Limiter
	timeout  time.Duration
	user     string
	password string
}

// An Option sets an option on a Fetcher.
type Option func(*Fetcher)

// WithDialFunc sets the function used to connect to servers.
func WithDialFunc(dial DialFunc) Option {
	return func(f *Fetcher) {
		f.dial = dial
	}
}

// WithLogin sets the FTP credentials. The default is anonymous.
func WithLogin(user, password string) Option {
	return func(f *Fetcher) {
		f.user = user
		f.password = password
	}
}

// WithRate sets the maximum number of downloads started per second.
func WithRate(r rate.Limit, burst int) Option {
	return func(f *Fetcher) {
		f.limiter = rate.NewLimiter(r, burst)
	}
}

// WithTimeout sets the dial timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = timeout
	}
}

// NewFetcher returns a new Fetcher with the given options.
func NewFetcher(options ...Option) *Fetcher {
	f := &Fetcher{
		limiter:  rate.NewLimiter(rate.Every(time.Second), 1),
		timeout:  30 * time.Second,
		user:     "anonymous",
		password: "anonymous@",
	}
	for _, option := range options {
		option(f)
	}
	if f.dial == nil {
		f.dial = dialFTP(f.timeout)
	}
	return f
}

// Fetch downloads the files in the FTP directory rawURL whose names match
// pattern into destDir. Files that already exist in destDir are skipped. It
// returns the paths of the downloaded files.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, destDir, pattern string) ([]string, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, eris.Wrapf(err, "demfetch: pattern %q", pattern)
	}
	host, dir, err := parseFTPURL(rawURL)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(destDir, 0o777); err != nil {
		return nil, eris.Wrapf(err, "demfetch: create %s", destDir)
	}

	client, err := f.dial(ctx, host, f.user, f.password)
	if err != nil {
		return nil, eris.Wrapf(err, "demfetch: connect to %s", host)
	}
	defer func() {
		if err := client.Quit(); err != nil {
			zap.L().Debug("ftp quit", zap.String("host", host), zap.Error(err))
		}
	}()

	entries, err := client.List(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "demfetch: list %s", dir)
	}

	var downloaded []string
	skipped := 0
	for _, entry := range entries {
		if entry.Type != ftp.EntryTypeFile {
			continue
		}
		if ok, _ := path.Match(pattern, entry.Name); !ok {
			continue
		}
		destPath := filepath.Join(destDir, filepath.Base(entry.Name))
		switch _, err := os.Stat(destPath); {
		case err == nil:
			skipped++
			continue
		case !errors.Is(err, fs.ErrNotExist):
			return downloaded, eris.Wrapf(err, "demfetch: stat %s", destPath)
		}

		if err := f.limiter.Wait(ctx); err != nil {
			return downloaded, eris.Wrap(err, "demfetch: wait")
		}
		n, err := download(client, path.Join(dir, entry.Name), destPath)
		if err != nil {
			return downloaded, err
		}
		zap.L().Info("downloaded tile", zap.String("path", destPath), zap.Int64("bytes", n))
		downloaded = append(downloaded, destPath)
	}

	zap.L().Info("fetched tiles",
		zap.String("url", rawURL),
		zap.Int("downloaded", len(downloaded)),
		zap.Int("skipped", skipped),
	)
	return downloaded, nil
}

// download retrieves remotePath to destPath through a temporary file, so that
// interrupted downloads are not mistaken for complete tiles.
func download(client Client, remotePath, destPath string) (int64, error) {
	rc, err := client.Retrieve(remotePath)
	if err != nil {
		return 0, eris.Wrapf(err, "demfetch: retrieve %s", remotePath)
	}
	defer rc.Close()

	tempFile, err := os.CreateTemp(filepath.Dir(destPath), "."+filepath.Base(destPath)+".*")
	if err != nil {
		return 0, eris.Wrap(err, "demfetch: create temporary file")
	}
	defer os.Remove(tempFile.Name())

	n, err := io.Copy(tempFile, rc)
	if err != nil {
		_ = tempFile.Close()
		return n, eris.Wrapf(err, "demfetch: download %s", remotePath)
	}
	if err := tempFile.Close(); err != nil {
		return n, eris.Wrapf(err, "demfetch: write %s", destPath)
	}
	if err := os.Rename(tempFile.Name(), destPath); err != nil {
		return n, eris.Wrapf(err, "demfetch: rename to %s", destPath)
	}
	return n, nil
}

// parseFTPURL returns the host, with port, and the directory of rawURL.
func parseFTPURL(rawURL string) (string, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", eris.Wrap(err, "demfetch: parse url")
	}
	if u.Scheme != "ftp" {
		return "", "", eris.Errorf("demfetch: expected ftp scheme, got %q", u.Scheme)
	}
	host := u.Host
	if host == "" {
		return "", "", eris.Errorf("demfetch: %s: no host", rawURL)
	}
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "21")
	}
	dir := u.Path
	if dir == "" {
		dir = "/"
	}
	return host, dir, nil
}

// A serverConn adapts an *ftp.ServerConn to a Client.
type serverConn struct {
	*ftp.ServerConn
}

func (c serverConn) Retrieve(path string) (io.ReadCloser, error) {
	resp, err := c.Retr(path)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func dialFTP(timeout time.Duration) DialFunc {
	return func(ctx context.Context, host, user, password string) (Client, error) {
		conn, err := ftp.Dial(host, ftp.DialWithTimeout(timeout), ftp.DialWithContext(ctx))
		if err != nil {
			return nil, eris.Wrap(err, "ftp dial")
		}
		if err := conn.Login(user, password); err != nil {
			_ = conn.Quit()
			return nil, eris.Wrap(err, "ftp login")
		}
		return serverConn{ServerConn: conn}, nil
	}
}
