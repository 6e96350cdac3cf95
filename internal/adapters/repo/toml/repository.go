package toml

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bnema/opsbot/internal/adapters/files"
	"github.com/bnema/opsbot/internal/domain"
	"github.com/bnema/opsbot/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	manifestFileMode = 0o600
	manifestDirMode  = 0o700
	tempFilePattern  = ".manifest-*.toml.tmp"
)

// ManifestRepository reads and writes run manifests as TOML files. Relative
// content_file and files paths resolve against the manifest's directory.
type ManifestRepository struct {
	loadFiles func(paths []string) ([]domain.FileUpload, error)
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.ManifestRepository = (*ManifestRepository)(nil)

func NewManifestRepository() *ManifestRepository {
	return &ManifestRepository{loadFiles: files.Load}
}

func (r *ManifestRepository) Load(ctx context.Context, path string) (domain.Manifest, error) {
	if err := ctx.Err(); err != nil {
		return domain.Manifest{}, err
	}

	manifestPath, err := normalizePath(path)
	if err != nil {
		return domain.Manifest{}, err
	}

	mu := lockForPath(manifestPath)
	mu.RLock()
	file, err := readSchema(manifestPath)
	mu.RUnlock()
	if err != nil {
		return domain.Manifest{}, err
	}

	manifest, err := r.fromSchema(file, filepath.Dir(manifestPath))
	if err != nil {
		return domain.Manifest{}, fmt.Errorf("manifest %s: %w", path, err)
	}
	if err := manifest.Validate(); err != nil {
		return domain.Manifest{}, fmt.Errorf("manifest %s: %w", path, err)
	}

	return manifest, nil
}

// Save writes manifest atomically. Attachments are stored by their source
// path, so uploads without one cannot be saved.
func (r *ManifestRepository) Save(ctx context.Context, path string, manifest domain.Manifest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	manifestPath, err := normalizePath(path)
	if err != nil {
		return err
	}

	file, err := toSchema(manifest)
	if err != nil {
		return err
	}

	mu := lockForPath(manifestPath)
	mu.Lock()
	defer mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	return writeSchema(manifestPath, file)
}

func readSchema(path string) (manifestSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return manifestSchema{}, fmt.Errorf("%w: manifest %s does not exist", domain.ErrConfig, path)
		}
		return manifestSchema{}, fmt.Errorf("read manifest file: %w", err)
	}

	var file manifestSchema
	decoder := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := decoder.Decode(&file); err != nil {
		return manifestSchema{}, fmt.Errorf("%w: decode manifest %s: %s", domain.ErrConfig, path, describeDecodeError(err))
	}
	if err := file.validateVersion(); err != nil {
		return manifestSchema{}, fmt.Errorf("%w: %w", domain.ErrConfig, err)
	}
	file.applyDefaults()

	return file, nil
}

func describeDecodeError(err error) string {
	var strict *toml.StrictMissingError
	if errors.As(err, &strict) {
		keys := make([]string, 0, len(strict.Errors))
		for _, missing := range strict.Errors {
			keys = append(keys, strings.Join(missing.Key(), "."))
		}
		return "unknown fields: " + strings.Join(keys, ", ")
	}
	return err.Error()
}

func normalizePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: manifest path is empty", domain.ErrConfig)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve manifest path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func writeSchema(path string, file manifestSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(path), manifestDirMode); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode manifest file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp manifest file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp manifest file: %w", err)
	}

	if err := tempFile.Chmod(manifestFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp manifest file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp manifest file: %w", err)
	}

	if err := os.Rename(tempName, path); err != nil {
		return fmt.Errorf("replace manifest file: %w", err)
	}

	cleanup = false
	return nil
}

func (r *ManifestRepository) fromSchema(file manifestSchema, baseDir string) (domain.Manifest, error) {
	identity, err := domain.ParseIdentity(file.Identity)
	if err != nil {
		return domain.Manifest{}, err
	}
	intents, err := domain.ParseIntents(file.Intents)
	if err != nil {
		return domain.Manifest{}, err
	}
	if len(file.Actions) == 0 {
		return domain.Manifest{}, fmt.Errorf("%w: manifest has no actions", domain.ErrConfig)
	}

	manifest := domain.Manifest{
		Name:            file.Name,
		Identity:        identity,
		Intents:         intents,
		ContinueOnError: file.ContinueOnError,
		Actions:         make([]domain.Action, 0, len(file.Actions)),
	}

	for i, entry := range file.Actions {
		action, err := r.decodeAction(entry, baseDir)
		if err != nil {
			return domain.Manifest{}, fmt.Errorf("action %d (%s): %w", i+1, entry.Type, err)
		}
		manifest.Actions = append(manifest.Actions, action)
	}

	return manifest, nil
}

func (r *ManifestRepository) decodeAction(entry actionSchema, baseDir string) (domain.Action, error) {
	switch domain.ActionType(strings.TrimSpace(entry.Type)) {
	case domain.ActionCreateTextChannel:
		guild, err := parseID("guild", entry.Guild)
		if err != nil {
			return nil, err
		}
		action := domain.CreateTextChannel{
			Guild:     domain.GuildRef(guild),
			Name:      entry.Name,
			Topic:     entry.Topic,
			IfMissing: entry.IfMissing,
		}
		if entry.Category != "" {
			category, err := parseID("category", entry.Category)
			if err != nil {
				return nil, err
			}
			action.Category = domain.CategoryRef(category)
		}
		return action, nil

	case domain.ActionCreateForumChannel:
		parent, err := forumParent(entry)
		if err != nil {
			return nil, err
		}
		return domain.CreateForumChannel{Parent: parent, Name: entry.Name, Topic: entry.Topic, IfMissing: entry.IfMissing}, nil

	case domain.ActionCreateCategory:
		guild, err := parseID("guild", entry.Guild)
		if err != nil {
			return nil, err
		}
		overwrites, err := decodeOverwrites(entry.Overwrites)
		if err != nil {
			return nil, err
		}
		return domain.CreateCategory{Guild: domain.GuildRef(guild), Name: entry.Name, Overwrites: overwrites, IfMissing: entry.IfMissing}, nil

	case domain.ActionRenameEntity:
		target, err := targetRef(entry)
		if err != nil {
			return nil, err
		}
		return domain.RenameEntity{Target: target, Name: entry.Name}, nil

	case domain.ActionDeleteEntity:
		target, err := targetRef(entry)
		if err != nil {
			return nil, err
		}
		return domain.DeleteEntity{Target: target, MissingOK: entry.MissingOK}, nil

	case domain.ActionPostMessage:
		channel, err := parseID("channel", entry.Channel)
		if err != nil {
			return nil, err
		}
		content, err := readContent(entry, baseDir)
		if err != nil {
			return nil, err
		}
		action := domain.PostMessage{Channel: domain.ChannelRef(channel), Content: content}
		if len(entry.Files) > 0 {
			if action.Files, err = r.loadFiles(resolvePaths(entry.Files, baseDir)); err != nil {
				return nil, err
			}
		}
		return action, nil

	case domain.ActionEditMessage:
		message, err := messageRef(entry)
		if err != nil {
			return nil, err
		}
		content, err := readContent(entry, baseDir)
		if err != nil {
			return nil, err
		}
		return domain.EditMessage{Message: message, Content: content}, nil

	case domain.ActionAddReaction:
		message, err := messageRef(entry)
		if err != nil {
			return nil, err
		}
		return domain.AddReaction{Message: message, Emoji: entry.Emoji}, nil

	case domain.ActionCreateForumThread:
		forum, err := parseID("forum", entry.Forum)
		if err != nil {
			return nil, err
		}
		content, err := readContent(entry, baseDir)
		if err != nil {
			return nil, err
		}
		return domain.CreateForumThread{Forum: domain.ForumChannelRef(forum), Title: entry.Title, Content: content}, nil

	case domain.ActionListForumThreads:
		forum, err := parseID("forum", entry.Forum)
		if err != nil {
			return nil, err
		}
		return domain.ListForumThreads{Forum: domain.ForumChannelRef(forum), IncludeArchived: entry.IncludeArchived}, nil

	case domain.ActionReadHistory:
		channel, err := parseID("channel", entry.Channel)
		if err != nil {
			return nil, err
		}
		return domain.ReadHistory{Channel: domain.ChannelRef(channel), Limit: entry.Limit, Order: domain.HistoryOrder(entry.Order)}, nil

	case domain.ActionSetCategoryOverwrites:
		category, err := parseID("category", entry.Category)
		if err != nil {
			return nil, err
		}
		overwrites, err := decodeOverwrites(entry.Overwrites)
		if err != nil {
			return nil, err
		}
		return domain.SetCategoryOverwrites{Category: domain.CategoryRef(category), Overwrites: overwrites}, nil

	case "":
		return nil, fmt.Errorf("%w: action type is empty", domain.ErrConfig)
	default:
		return nil, fmt.Errorf("%w: unknown action type %q", domain.ErrConfig, entry.Type)
	}
}

func parseID(field, raw string) (domain.Snowflake, error) {
	id, err := domain.ParseSnowflake(raw)
	if err != nil {
		return "", fmt.Errorf("%s: %w", field, err)
	}
	return id, nil
}

// forumParent accepts either a category or a guild; the category wins when
// both are set.
func forumParent(entry actionSchema) (domain.TargetRef, error) {
	if entry.Category != "" {
		id, err := parseID("category", entry.Category)
		if err != nil {
			return domain.TargetRef{}, err
		}
		return domain.CategoryRef(id), nil
	}
	id, err := parseID("guild", entry.Guild)
	if err != nil {
		return domain.TargetRef{}, err
	}
	return domain.GuildRef(id), nil
}

func targetRef(entry actionSchema) (domain.TargetRef, error) {
	id, err := parseID("target", entry.Target)
	if err != nil {
		return domain.TargetRef{}, err
	}
	kind := domain.TargetChannel
	if entry.TargetKind != "" {
		if kind, err = domain.ParseTargetKind(entry.TargetKind); err != nil {
			return domain.TargetRef{}, err
		}
	}
	return domain.TargetRef{Kind: kind, ID: id}, nil
}

func messageRef(entry actionSchema) (domain.TargetRef, error) {
	channel, err := parseID("channel", entry.Channel)
	if err != nil {
		return domain.TargetRef{}, err
	}
	message, err := parseID("message", entry.Message)
	if err != nil {
		return domain.TargetRef{}, err
	}
	return domain.MessageRef(channel, message), nil
}

func readContent(entry actionSchema, baseDir string) (string, error) {
	if entry.ContentFile == "" {
		return entry.Content, nil
	}
	if entry.Content != "" {
		return "", fmt.Errorf("%w: content and content_file are mutually exclusive", domain.ErrConfig)
	}
	data, err := os.ReadFile(resolvePath(entry.ContentFile, baseDir))
	if err != nil {
		return "", fmt.Errorf("%w: read content file: %w", domain.ErrConfig, err)
	}
	return string(data), nil
}

func resolvePaths(paths []string, baseDir string) []string {
	resolved := make([]string, 0, len(paths))
	for _, path := range paths {
		resolved = append(resolved, resolvePath(path, baseDir))
	}
	return resolved
}

func resolvePath(path, baseDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

func decodeOverwrites(entries []overwriteSchema) ([]domain.PermissionOverwrite, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	overwrites := make([]domain.PermissionOverwrite, 0, len(entries))
	for _, entry := range entries {
		target, err := parseID("overwrite target", entry.Target)
		if err != nil {
			return nil, err
		}
		overwrites = append(overwrites, domain.PermissionOverwrite{
			TargetID:   target,
			TargetType: domain.OverwriteTarget(strings.ToLower(strings.TrimSpace(entry.Kind))),
			Allow:      entry.Allow,
			Deny:       entry.Deny,
		})
	}
	return overwrites, nil
}

func toSchema(manifest domain.Manifest) (manifestSchema, error) {
	file := manifestSchema{
		Version:         currentSchemaVersion,
		Name:            manifest.Name,
		Identity:        string(manifest.Identity),
		Intents:         manifest.Intents.Names(),
		ContinueOnError: manifest.ContinueOnError,
		Actions:         make([]actionSchema, 0, len(manifest.Actions)),
	}

	for i, action := range manifest.Actions {
		entry, err := encodeAction(action)
		if err != nil {
			return manifestSchema{}, fmt.Errorf("action %d: %w", i+1, err)
		}
		file.Actions = append(file.Actions, entry)
	}

	return file, nil
}

func encodeAction(action domain.Action) (actionSchema, error) {
	if action == nil {
		return actionSchema{}, fmt.Errorf("%w: empty action", domain.ErrConfig)
	}
	entry := actionSchema{Type: string(action.Type())}

	switch a := action.(type) {
	case domain.CreateTextChannel:
		entry.Guild = a.Guild.ID.String()
		entry.Category = a.Category.ID.String()
		entry.Name = a.Name
		entry.Topic = a.Topic
		entry.IfMissing = a.IfMissing
	case domain.CreateForumChannel:
		if a.Parent.Kind == domain.TargetCategory {
			entry.Category = a.Parent.ID.String()
		} else {
			entry.Guild = a.Parent.ID.String()
		}
		entry.Name = a.Name
		entry.Topic = a.Topic
		entry.IfMissing = a.IfMissing
	case domain.CreateCategory:
		entry.Guild = a.Guild.ID.String()
		entry.Name = a.Name
		entry.IfMissing = a.IfMissing
		entry.Overwrites = encodeOverwrites(a.Overwrites)
	case domain.RenameEntity:
		entry.Target = a.Target.ID.String()
		entry.TargetKind = encodeTargetKind(a.Target.Kind)
		entry.Name = a.Name
	case domain.DeleteEntity:
		entry.Target = a.Target.ID.String()
		entry.TargetKind = encodeTargetKind(a.Target.Kind)
		entry.MissingOK = a.MissingOK
	case domain.PostMessage:
		entry.Channel = a.Channel.ID.String()
		entry.Content = a.Content
		for _, upload := range a.Files {
			if upload.Path == "" {
				return actionSchema{}, fmt.Errorf("%w: attachment %s has no source path", domain.ErrConfig, upload.Name)
			}
			entry.Files = append(entry.Files, upload.Path)
		}
	case domain.EditMessage:
		entry.Channel = a.Message.ChannelID.String()
		entry.Message = a.Message.ID.String()
		entry.Content = a.Content
	case domain.AddReaction:
		entry.Channel = a.Message.ChannelID.String()
		entry.Message = a.Message.ID.String()
		entry.Emoji = a.Emoji
	case domain.CreateForumThread:
		entry.Forum = a.Forum.ID.String()
		entry.Title = a.Title
		entry.Content = a.Content
	case domain.ListForumThreads:
		entry.Forum = a.Forum.ID.String()
		entry.IncludeArchived = a.IncludeArchived
	case domain.ReadHistory:
		entry.Channel = a.Channel.ID.String()
		entry.Limit = a.Limit
		entry.Order = string(a.Order)
	case domain.SetCategoryOverwrites:
		entry.Category = a.Category.ID.String()
		entry.Overwrites = encodeOverwrites(a.Overwrites)
	default:
		return actionSchema{}, fmt.Errorf("%w: cannot encode action %T", domain.ErrConfig, action)
	}

	return entry, nil
}

// encodeTargetKind leaves the default channel kind implicit.
func encodeTargetKind(kind domain.TargetKind) string {
	if kind == domain.TargetChannel {
		return ""
	}
	return string(kind)
}

func encodeOverwrites(overwrites []domain.PermissionOverwrite) []overwriteSchema {
	if len(overwrites) == 0 {
		return nil
	}
	entries := make([]overwriteSchema, 0, len(overwrites))
	for _, overwrite := range overwrites {
		entries = append(entries, overwriteSchema{
			Target: overwrite.TargetID.String(),
			Kind:   string(overwrite.TargetType),
			Allow:  overwrite.Allow,
			Deny:   overwrite.Deny,
		})
	}
	return entries
}
