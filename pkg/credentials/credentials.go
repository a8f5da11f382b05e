// Package credentials keeps upstream LLM API keys in credentials.toml inside
// the .aikefu/ directory. Environment variables always win over stored keys.
package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/xiaomiproject/aikefu/pkg/dotdir"
)

const (
	fileName       = "credentials.toml"
	currentVersion = 1
)

var (
	ErrUnknownProvider = errors.New("unknown provider")
	ErrEmptyKey        = errors.New("API key cannot be empty")
)

// Lookup returns the provider registered under name, ignoring case.
func Lookup(name string) (Provider, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, p := range providers {
		if p.Name == name {
			return p, true
		}
	}
	return Provider{}, false
}

// Names lists the provider names "aikefu auth" accepts, sorted.
func Names() []string {
	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = p.Name
	}
	sort.Strings(names)
	return names
}

// Mask hides all but the last four characters of key.
func Mask(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:3] + "..." + key[len(key)-4:]
}

// Manager reads and writes one credentials.toml.
type Manager struct {
	path string
	now  func() time.Time
}

// NewManager resolves the .aikefu/ directory from override. When none
// exists, ~/.aikefu/ is used.
func NewManager(override string) (*Manager, error) {
	ddm := dotdir.NewManager()

	dir, err := ddm.Target(override)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		if dir, err = ddm.HomeDir(); err != nil {
			return nil, err
		}
	}

	return &Manager{path: filepath.Join(dir, fileName), now: time.Now}, nil
}

// Path is the location of credentials.toml.
func (m *Manager) Path() string {
	return m.path
}

// Set stores key for the named provider.
func (m *Manager) Set(name, key string) error {
	p, ok := Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyKey
	}

	f, err := m.load()
	if err != nil {
		return err
	}
	f.Keys[p.Name] = storedKey{APIKey: key, UpdatedAt: m.now().UTC()}
	return m.save(f)
}

// Get returns the stored key, or "" when none is stored.
func (m *Manager) Get(name string) (string, error) {
	f, err := m.load()
	if err != nil {
		return "", err
	}
	return f.Keys[strings.ToLower(name)].APIKey, nil
}

// Remove deletes the stored key and reports whether one existed.
func (m *Manager) Remove(name string) (bool, error) {
	f, err := m.load()
	if err != nil {
		return false, err
	}

	name = strings.ToLower(strings.TrimSpace(name))
	if _, ok := f.Keys[name]; !ok {
		return false, nil
	}
	delete(f.Keys, name)
	return true, m.save(f)
}

// Entries lists stored keys, masked, sorted by provider name.
func (m *Manager) Entries() ([]Entry, error) {
	f, err := m.load()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(f.Keys))
	for name, k := range f.Keys {
		p, ok := Lookup(name)
		if !ok {
			p = Provider{Name: name, Title: name}
		}
		entries = append(entries, Entry{
			Provider:    p,
			Masked:      Mask(k.APIKey),
			UpdatedAt:   k.UpdatedAt,
			EnvOverride: p.EnvVar != "" && os.Getenv(p.EnvVar) != "",
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Provider.Name < entries[j].Provider.Name })
	return entries, nil
}

// Resolve finds the key for a credential name: envVar first, then the
// provider's conventional variable, then credentials.toml.
func (m *Manager) Resolve(name, envVar string) (string, error) {
	vars := []string{envVar}
	if p, ok := Lookup(name); ok {
		vars = append(vars, p.EnvVar)
	}
	for _, v := range vars {
		if v == "" {
			continue
		}
		if key := os.Getenv(v); key != "" {
			return key, nil
		}
	}

	if name == "" {
		return "", nil
	}
	return m.Get(name)
}

func (m *Manager) load() (*keyFile, error) {
	f := &keyFile{Version: currentVersion, Keys: map[string]storedKey{}}

	data, err := os.ReadFile(m.path)
	if errors.Is(err, os.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	if _, err := toml.Decode(string(data), f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", m.path, err)
	}
	if f.Keys == nil {
		f.Keys = map[string]storedKey{}
	}
	return f, nil
}

// save replaces the file through a temp file so a crash never leaves a
// truncated credentials.toml behind.
func (m *Manager) save(f *keyFile) error {
	f.Version = currentVersion

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(f); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, fileName+".*")
	if err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("writing credentials: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("writing credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	if err := os.Rename(tmp.Name(), m.path); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}
