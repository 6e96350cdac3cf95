package toml

import "fmt"

const currentSchemaVersion = 1

type manifestSchema struct {
	Version         int            `toml:"version"`
	Name            string         `toml:"name,omitempty"`
	Identity        string         `toml:"identity,omitempty"`
	Intents         []string       `toml:"intents,omitempty"`
	ContinueOnError bool           `toml:"continue_on_error,omitempty"`
	Actions         []actionSchema `toml:"actions"`
}

func (s *manifestSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s manifestSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported manifest schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

// actionSchema is the flat union of every action's fields; type selects which
// of them are read.
type actionSchema struct {
	Type            string            `toml:"type"`
	Guild           string            `toml:"guild,omitempty"`
	Category        string            `toml:"category,omitempty"`
	Forum           string            `toml:"forum,omitempty"`
	Channel         string            `toml:"channel,omitempty"`
	Message         string            `toml:"message,omitempty"`
	Target          string            `toml:"target,omitempty"`
	TargetKind      string            `toml:"target_kind,omitempty"`
	Name            string            `toml:"name,omitempty"`
	Title           string            `toml:"title,omitempty"`
	Topic           string            `toml:"topic,omitempty"`
	Content         string            `toml:"content,omitempty"`
	ContentFile     string            `toml:"content_file,omitempty"`
	Files           []string          `toml:"files,omitempty"`
	Emoji           string            `toml:"emoji,omitempty"`
	Limit           int               `toml:"limit,omitempty"`
	Order           string            `toml:"order,omitempty"`
	IfMissing       bool              `toml:"if_missing,omitempty"`
	MissingOK       bool              `toml:"missing_ok,omitempty"`
	IncludeArchived bool              `toml:"include_archived,omitempty"`
	Overwrites      []overwriteSchema `toml:"overwrites,omitempty"`
}

type overwriteSchema struct {
	Target string `toml:"target"`
	Kind   string `toml:"kind"`
	Allow  int64  `toml:"allow,omitempty"`
	Deny   int64  `toml:"deny,omitempty"`
}
