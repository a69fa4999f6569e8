package repository

import (
	"context"

	"github.com/noah-isme/sma-roster-api/internal/models"
)

type blobFiles interface {
	Read(filename string) ([]byte, bool, error)
	Replace(filename string, data []byte) error
}

// FileRosterRepository keeps the roster as one JSON file.
type FileRosterRepository struct {
	files    blobFiles
	filename string
}

// NewFileRosterRepository stores the roster under filename inside files.
func NewFileRosterRepository(files blobFiles, filename string) *FileRosterRepository {
	if filename == "" {
		filename = DefaultRosterKey + ".json"
	}
	return &FileRosterRepository{files: files, filename: filename}
}

// Load reads the roster file; a missing file yields an empty roster.
func (r *FileRosterRepository) Load(ctx context.Context) (*models.Roster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, ok, err := r.files.Read(r.filename)
	if err != nil {
		return nil, err
	}
	if !ok {
		return models.NewRoster(), nil
	}
	return decodeRoster(raw)
}

// Save replaces the roster file in a single rename.
func (r *FileRosterRepository) Save(ctx context.Context, roster *models.Roster) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := encodeRoster(roster)
	if err != nil {
		return err
	}
	return r.files.Replace(r.filename, payload)
}
