package files

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/bnema/opsbot/internal/domain"
)

// Load reads attachment files for PostMessage. Oversized files and too many
// files fail before anything is read.
func Load(paths []string) ([]domain.FileUpload, error) {
	if len(paths) > domain.MaxAttachments {
		return nil, fmt.Errorf("%w: %d files, at most %d per message", domain.ErrPayloadTooLarge, len(paths), domain.MaxAttachments)
	}

	uploads := make([]domain.FileUpload, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("%w: attachment %s: %w", domain.ErrConfig, path, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%w: attachment %s is a directory", domain.ErrConfig, path)
		}
		if info.Size() > domain.MaxAttachmentBytes {
			return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", domain.ErrPayloadTooLarge, path, info.Size(), domain.MaxAttachmentBytes)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: read attachment %s: %w", domain.ErrConfig, path, err)
		}
		uploads = append(uploads, domain.FileUpload{
			Name:        filepath.Base(path),
			Path:        path,
			ContentType: contentType(path, data),
			Data:        data,
		})
	}
	return uploads, nil
}

func contentType(path string, data []byte) string {
	if byExt := mime.TypeByExtension(filepath.Ext(path)); byExt != "" {
		return byExt
	}
	return http.DetectContentType(data)
}
