package ports

import (
	"context"

	"github.com/bnema/opsbot/internal/domain"
)

type ManifestRepository interface {
	Load(ctx context.Context, path string) (domain.Manifest, error)
	Save(ctx context.Context, path string, manifest domain.Manifest) error
}
