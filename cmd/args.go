package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/bnema/opsbot/internal/domain"
	"github.com/spf13/cobra"
)

func parseID(name, raw string) (domain.Snowflake, error) {
	id, err := domain.ParseSnowflake(raw)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return id, nil
}

func parseIDs(name string, raws []string) ([]domain.Snowflake, error) {
	ids := make([]domain.Snowflake, 0, len(raws))
	for _, raw := range raws {
		id, err := parseID(name, raw)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// optionalLimit parses args[index] as a positive limit, or returns 0 when it
// is absent.
func optionalLimit(args []string, index int) (int, error) {
	if len(args) <= index {
		return 0, nil
	}
	limit, err := strconv.Atoi(args[index])
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("%w: limit %q must be a positive number", domain.ErrConfig, args[index])
	}
	return limit, nil
}

var targetKindFlags = map[string]domain.TargetKind{
	"":         domain.TargetChannel,
	"channel":  domain.TargetChannel,
	"text":     domain.TargetTextChannel,
	"forum":    domain.TargetForumChannel,
	"category": domain.TargetCategory,
	"thread":   domain.TargetThread,
}

func parseKindFlag(raw string) (domain.TargetKind, error) {
	kind, ok := targetKindFlags[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", fmt.Errorf("%w: --kind must be text, forum, category, thread or channel, got %q", domain.ErrConfig, raw)
	}
	return kind, nil
}

// parseOverwrites reads id=allow/deny specs, for example 1234=1024/2048.
// The deny part may be omitted.
func parseOverwrites(specs []string, target domain.OverwriteTarget) ([]domain.PermissionOverwrite, error) {
	overwrites := make([]domain.PermissionOverwrite, 0, len(specs))
	for _, spec := range specs {
		rawID, bits, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, fmt.Errorf("%w: overwrite %q must look like id=allow/deny", domain.ErrConfig, spec)
		}
		id, err := parseID("overwrite target", rawID)
		if err != nil {
			return nil, err
		}

		rawAllow, rawDeny, _ := strings.Cut(bits, "/")
		allow, err := parsePermissionBits(rawAllow)
		if err != nil {
			return nil, fmt.Errorf("overwrite %q: %w", spec, err)
		}
		deny, err := parsePermissionBits(rawDeny)
		if err != nil {
			return nil, fmt.Errorf("overwrite %q: %w", spec, err)
		}

		overwrites = append(overwrites, domain.PermissionOverwrite{TargetID: id, TargetType: target, Allow: allow, Deny: deny})
	}
	return overwrites, nil
}

func parsePermissionBits(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	bits, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || bits < 0 {
		return 0, fmt.Errorf("%w: permission bits %q must be a non-negative number", domain.ErrConfig, raw)
	}
	return bits, nil
}

// readContent returns --content, or the file named by --content-file, where
// "-" reads stdin.
func readContent(cmd *cobra.Command, content, contentFile string) (string, error) {
	if contentFile == "" {
		return content, nil
	}
	if content != "" {
		return "", fmt.Errorf("%w: --content and --content-file are mutually exclusive", domain.ErrConfig)
	}

	var (
		data []byte
		err  error
	)
	if contentFile == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(contentFile)
	}
	if err != nil {
		return "", fmt.Errorf("%w: read content: %w", domain.ErrConfig, err)
	}
	return string(data), nil
}

func addIdentityFlag(cmd *cobra.Command, identity *string) {
	cmd.Flags().StringVar(identity, "as", string(domain.IdentityDiscord), "bot identity: discord or codex")
}
