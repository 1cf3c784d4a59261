package bank

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrBankUnavailable covers any failure to fetch a bank or the module
	// manifest: missing file, unreachable upstream, non-success status.
	ErrBankUnavailable = errors.New("bank unavailable")
)

// FallbackModules is served when the module manifest cannot be read, so
// the launcher always has something to offer.
var FallbackModules = []string{
	"Module_1", "Module_2", "Module_3", "Module_4",
	"Pharm_Quiz_1", "Pharm_Quiz_2", "Pharm_Quiz_3", "Pharm_Quiz_4",
}

// Source supplies the module manifest and raw (un-normalized) bank data.
type Source interface {
	Modules(ctx context.Context) ([]string, error)
	Bank(ctx context.Context, name string) ([]byte, error)
}

type manifest struct {
	Modules []string `json:"modules"`
}

func cleanModuleList(list []string) []string {
	out := make([]string, 0, len(list))
	for _, m := range list {
		if strings.TrimSpace(m) != "" {
			out = append(out, m)
		}
	}
	return out
}

// ── Filesystem Source ───────────────────────────────────

// FSSource reads modules.json and per-module bank files from a directory
// of static JSON, the same layout the frontend used to fetch directly.
type FSSource struct {
	dir string
}

func NewFSSource(dir string) *FSSource {
	return &FSSource{dir: dir}
}

func (s *FSSource) Modules(_ context.Context) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, "modules.json"))
	if err != nil {
		return nil, fmt.Errorf("read module manifest: %w", err)
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse module manifest: %w", err)
	}
	return cleanModuleList(m.Modules), nil
}

func (s *FSSource) Bank(_ context.Context, name string) ([]byte, error) {
	if strings.ContainsAny(name, `/\`) || name == "" || name == ".." {
		return nil, fmt.Errorf("%w: invalid module name %q", ErrBankUnavailable, name)
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name+".json"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBankUnavailable, name, err)
	}
	return data, nil
}

// ── HTTP Source ─────────────────────────────────────────

// HTTPSource fetches banks from an upstream static host. A single attempt
// per request: failures surface to the caller, there is no retry.
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

func NewHTTPSource(baseURL string) *HTTPSource {
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *HTTPSource) Modules(ctx context.Context) ([]string, error) {
	data, err := s.fetch(ctx, "modules.json")
	if err != nil {
		return nil, fmt.Errorf("fetch module manifest: %w", err)
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse module manifest: %w", err)
	}
	return cleanModuleList(m.Modules), nil
}

func (s *HTTPSource) Bank(ctx context.Context, name string) ([]byte, error) {
	data, err := s.fetch(ctx, url.PathEscape(name)+".json")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBankUnavailable, name, err)
	}
	return data, nil
}

func (s *HTTPSource) fetch(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/"+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-store")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
