package dotenv

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/bnema/opsbot/internal/domain"
	"github.com/joho/godotenv"
)

type Options struct {
	// Overwrite replaces variables already present in the process environment.
	Overwrite bool
}

type Loader struct {
	lookup func(string) (string, bool)
	setenv func(string, string) error
}

func NewLoader() *Loader {
	return &Loader{lookup: os.LookupEnv, setenv: os.Setenv}
}

// Load parses the KEY=VALUE file at path and overlays its entries on the
// process environment. The returned map holds the file's entries as parsed.
func (l *Loader) Load(path string, opts Options) (map[string]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: env file path is empty", domain.ErrConfig)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: env file %s not found", domain.ErrConfig, path)
		}
		return nil, fmt.Errorf("%w: read env file %s: %v", domain.ErrConfig, path, err)
	}
	values, err := godotenv.Parse(bytes.NewReader(escapeUnquotedDollars(raw)))
	if err != nil {
		return nil, fmt.Errorf("%w: parse env file %s: %v", domain.ErrConfig, path, err)
	}

	for _, key := range sortedKeys(values) {
		if _, exists := l.lookup(key); exists && !opts.Overwrite {
			continue
		}
		if err := l.setenv(key, values[key]); err != nil {
			return nil, fmt.Errorf("set %s from env file: %w", key, err)
		}
	}

	return values, nil
}

// LoadOptional is Load with an absent file treated as empty.
func (l *Loader) LoadOptional(path string, opts Options) (map[string]string, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	return l.Load(path, opts)
}

// Require fails naming every key absent from values.
func Require(values map[string]string, keys ...string) error {
	var missing []string
	for _, key := range keys {
		if strings.TrimSpace(values[key]) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required keys: %s", domain.ErrConfig, strings.Join(missing, ", "))
	}
	return nil
}

// escapeUnquotedDollars keeps unquoted values literal: godotenv would
// otherwise expand $NAME references inside them.
func escapeUnquotedDollars(raw []byte) []byte {
	lines := bytes.Split(raw, []byte("\n"))
	for i, line := range lines {
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 || trimmed[0] == '#' {
			continue
		}
		eq := bytes.IndexByte(line, '=')
		if eq < 0 {
			continue
		}
		value := bytes.TrimLeft(line[eq+1:], " \t")
		if len(value) > 0 && (value[0] == '"' || value[0] == '\'') {
			continue
		}
		escaped := append([]byte{}, line[:eq+1]...)
		escaped = append(escaped, bytes.ReplaceAll(line[eq+1:], []byte("$"), []byte(`\$`))...)
		lines[i] = escaped
	}
	return bytes.Join(lines, []byte("\n"))
}

func sortedKeys(values map[string]string) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
