// Package seed loads embedded fixture hierarchies and writes them through
// the same services the API uses, so every closure row and materialized path
// comes out of the normal write paths.
package seed

import (
	"context"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"cabinet/internal/domain/services"
)

//go:embed fixtures/*.yaml
var fixtureFiles embed.FS

// Folder is one folder in a fixture tree.
type Folder struct {
	Name    string   `yaml:"name"`
	Folders []Folder `yaml:"folders,omitempty"`
	Files   []File   `yaml:"files,omitempty"`
}

// File is one file entry in a fixture tree.
type File struct {
	Name      string `yaml:"name"`
	SizeBytes int64  `yaml:"size_bytes"`
	MimeType  string `yaml:"mime_type"`
}

// Fixture is a complete hierarchy to seed for one owner. Top-level entries
// land at the owner's root.
type Fixture struct {
	Folders []Folder `yaml:"folders"`
	Files   []File   `yaml:"files,omitempty"`
}

// Load reads the named fixture from the embedded set.
func Load(name string) (*Fixture, error) {
	data, err := fixtureFiles.ReadFile(fmt.Sprintf("fixtures/%s.yaml", name))
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", name, err)
	}

	var fixture Fixture
	if err := yaml.Unmarshal(data, &fixture); err != nil {
		return nil, fmt.Errorf("unmarshal fixture %s: %w", name, err)
	}

	return &fixture, nil
}

// Count returns how many folders and files the fixture holds.
func (f *Fixture) Count() (folders, files int) {
	files = len(f.Files)
	for _, folder := range f.Folders {
		subFolders, subFiles := countFolder(folder)
		folders += subFolders
		files += subFiles
	}
	return folders, files
}

func countFolder(folder Folder) (folders, files int) {
	folders = 1
	files = len(folder.Files)
	for _, child := range folder.Folders {
		subFolders, subFiles := countFolder(child)
		folders += subFolders
		files += subFiles
	}
	return folders, files
}

// Seeder creates fixture hierarchies for an owner.
type Seeder struct {
	folders services.FolderService
	files   services.FileService
	logger  *slog.Logger
}

// NewSeeder creates a new fixture seeder.
func NewSeeder(folders services.FolderService, files services.FileService, logger *slog.Logger) *Seeder {
	return &Seeder{
		folders: folders,
		files:   files,
		logger:  logger,
	}
}

// Apply creates every folder and file in the fixture for the given owner.
// It fails on the first error; fixtures are expected to seed into an empty
// hierarchy.
func (s *Seeder) Apply(ctx context.Context, ownerID uuid.UUID, fixture *Fixture) error {
	for _, folder := range fixture.Folders {
		if err := s.applyFolder(ctx, ownerID, nil, folder); err != nil {
			return err
		}
	}
	for _, file := range fixture.Files {
		if err := s.applyFile(ctx, ownerID, nil, file); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) applyFolder(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID, fixture Folder) error {
	created, err := s.folders.CreateFolder(ctx, ownerID, &services.CreateFolderRequest{
		Name:     fixture.Name,
		ParentID: parentID,
	})
	if err != nil {
		return fmt.Errorf("create folder %q: %w", fixture.Name, err)
	}
	s.logger.Debug("seeded folder", "name", created.Name, "path", created.Path)

	for _, child := range fixture.Folders {
		if err := s.applyFolder(ctx, ownerID, &created.ID, child); err != nil {
			return err
		}
	}
	for _, file := range fixture.Files {
		if err := s.applyFile(ctx, ownerID, &created.ID, file); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) applyFile(ctx context.Context, ownerID uuid.UUID, folderID *uuid.UUID, fixture File) error {
	// Fixtures carry no real bytes; hash the name so entries still look like
	// they point at stored content.
	hash := sha256.Sum256([]byte(fixture.Name))
	contentHash := hex.EncodeToString(hash[:])

	created, err := s.files.CreateFile(ctx, ownerID, &services.CreateFileRequest{
		FolderID:    folderID,
		Name:        fixture.Name,
		SizeBytes:   fixture.SizeBytes,
		ContentHash: contentHash,
		StoragePath: "seed/" + contentHash[:16] + "/" + fixture.Name,
		MimeType:    fixture.MimeType,
	})
	if err != nil {
		return fmt.Errorf("create file %q: %w", fixture.Name, err)
	}
	s.logger.Debug("seeded file", "name", created.Name, "size_bytes", created.SizeBytes)
	return nil
}
