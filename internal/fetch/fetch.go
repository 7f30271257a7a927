// Package fetch downloads event and formation exports over HTTP.
package fetch

import (
	"compress/bzip2"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Client downloads exports, optionally authenticated with a bearer token.
type Client struct {
	token string
	http  *http.Client
}

// NewClient returns a client. token may be empty.
func NewClient(token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		token: token,
		http:  &http.Client{Timeout: timeout},
	}
}

// IsURL reports whether s names an http(s) resource rather than a local file.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Download fetches rawURL into dir, decompressing .gz, .bz2 and .zst payloads,
// and returns the path of the written file.
func (c *Client) Download(ctx context.Context, rawURL, dir string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GET %s: HTTP %d", rawURL, resp.StatusCode)
	}

	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		name = "events.json"
	}

	var src io.Reader = resp.Body
	switch ext := path.Ext(name); {
	case ext == ".bz2":
		src = bzip2.NewReader(resp.Body)
	case ext == ".zst":
		dec, err := zstd.NewReader(resp.Body)
		if err != nil {
			return "", fmt.Errorf("zstd: %w", err)
		}
		defer dec.Close()
		src = dec
	case ext == ".gz" || resp.Header.Get("Content-Encoding") == "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return "", fmt.Errorf("gzip: %w", err)
		}
		defer gz.Close()
		src = gz
	}
	for _, ext := range []string{".bz2", ".zst", ".gz"} {
		name = strings.TrimSuffix(name, ext)
	}

	outPath := filepath.Join(dir, name)
	f, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, src); err != nil {
		os.Remove(outPath)
		return "", fmt.Errorf("write: %w", err)
	}
	return outPath, nil
}
