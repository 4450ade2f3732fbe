package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	DefaultKeyFile = "api_key.txt"
	DefaultKeyEnv  = "OPENAI_API_KEY"
)

// ErrCredentialMissing means neither the key file nor the env var had a key.
var ErrCredentialMissing = errors.New("no API key found")

// Source says where a key was found.
type Source string

const (
	SourceFile Source = "file"
	SourceEnv  Source = "env"
)

// Key is a resolved API key.
type Key struct {
	Value  string
	Source Source
	Path   string // set when Source is SourceFile
}

// Masked shows only the last four characters.
func (k Key) Masked() string {
	if len(k.Value) <= 4 {
		return strings.Repeat("*", len(k.Value))
	}
	return strings.Repeat("*", 8) + k.Value[len(k.Value)-4:]
}

// Lookup says where to look. Empty fields fall back to the defaults.
type Lookup struct {
	File string
	Env  string
}

func (l Lookup) file() string {
	if l.File == "" {
		return DefaultKeyFile
	}
	return l.File
}

func (l Lookup) env() string {
	if l.Env == "" {
		return DefaultKeyEnv
	}
	return l.Env
}

// Resolve reads the key file first, then the environment variable.
// An empty or whitespace-only file counts as absent.
func Resolve(l Lookup) (Key, error) {
	// 1) file
	p := l.file()
	b, err := os.ReadFile(p)
	switch {
	case err == nil:
		if v := firstLine(string(b)); v != "" {
			return Key{Value: v, Source: SourceFile, Path: p}, nil
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Key{}, fmt.Errorf("read key file: %w", err)
	}

	// 2) env
	if v := stripBearer(strings.TrimSpace(os.Getenv(l.env()))); v != "" {
		return Key{Value: v, Source: SourceEnv}, nil
	}

	return Key{}, fmt.Errorf("%w: create %s or set %s", ErrCredentialMissing, p, l.env())
}

// SaveKey writes key to the key file with owner-only permissions.
func SaveKey(l Lookup, key string) error {
	key = stripBearer(strings.TrimSpace(key))
	if key == "" {
		return fmt.Errorf("empty key")
	}
	p := l.file()
	if dir := filepath.Dir(p); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
	}
	if err := os.WriteFile(p, []byte(key+"\n"), 0o600); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// DeleteKey removes the key file. A missing file is not an error.
func DeleteKey(l Lookup) error {
	if err := os.Remove(l.file()); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}
	return stripBearer(strings.TrimSpace(s))
}

func stripBearer(s string) string {
	if strings.HasPrefix(strings.ToLower(s), "bearer ") {
		return strings.TrimSpace(s[7:])
	}
	return s
}
