package seed

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"

	"cabinet/internal/audit"
	"cabinet/internal/config"
	"cabinet/internal/repository/memory"
	"cabinet/internal/service/auth"
	"cabinet/internal/service/hierarchy"
)

func TestLoadBasicFixture(t *testing.T) {
	fixture, err := Load("basic")
	if err != nil {
		t.Fatalf("Failed to load fixture: %v", err)
	}

	folders, files := fixture.Count()
	if folders != 8 {
		t.Errorf("expected 8 folders, got %d", folders)
	}
	if files != 11 {
		t.Errorf("expected 11 files, got %d", files)
	}
}

func TestLoadUnknownFixture(t *testing.T) {
	if _, err := Load("nope"); err == nil {
		t.Error("expected an error for an unknown fixture")
	}
}

func TestSeederApply(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	store := memory.NewStore()
	folderRepo := memory.NewFolderRepository(store)
	fileRepo := memory.NewFileRepository(store)
	closureRepo := memory.NewClosureRepository(store)
	txManager := memory.NewTransactionManager(store)
	validator := hierarchy.NewResourceValidator(folderRepo)
	authorizer := auth.NewOwnerBasedAuthorizer(folderRepo, fileRepo)

	folderSvc := hierarchy.NewFolderService(folderRepo, fileRepo, closureRepo, txManager, validator, authorizer, audit.NopRecorder{}, config.DefaultMaxSubtreeSize, logger)
	fileSvc := hierarchy.NewFileService(fileRepo, folderRepo, txManager, validator, authorizer, audit.NopRecorder{}, logger)

	fixture, err := Load("basic")
	if err != nil {
		t.Fatalf("Failed to load fixture: %v", err)
	}

	ctx := context.Background()
	ownerID := uuid.New()
	seeder := NewSeeder(folderSvc, fileSvc, logger)
	if err := seeder.Apply(ctx, ownerID, fixture); err != nil {
		t.Fatalf("Failed to apply fixture: %v", err)
	}

	wantFolders, wantFiles := fixture.Count()
	folders, err := folderRepo.ListByOwner(ctx, ownerID, false)
	if err != nil {
		t.Fatalf("Failed to list folders: %v", err)
	}
	if len(folders) != wantFolders {
		t.Errorf("expected %d folders, got %d", wantFolders, len(folders))
	}
	files, err := fileRepo.ListByOwner(ctx, ownerID, false)
	if err != nil {
		t.Fatalf("Failed to list files: %v", err)
	}
	if len(files) != wantFiles {
		t.Errorf("expected %d files, got %d", wantFiles, len(files))
	}

	// Nested entries get their materialized paths from the normal write path
	var foundDeep bool
	for _, folder := range folders {
		if folder.Path == "Documents/Contracts/Archived" {
			foundDeep = true
		}
	}
	if !foundDeep {
		t.Error("expected the nested path 'Documents/Contracts/Archived' to exist")
	}

	checker := hierarchy.NewIntegrityChecker(folderRepo, fileRepo, closureRepo, logger)
	if err := checker.Check(ctx, ownerID); err != nil {
		t.Errorf("expected the seeded hierarchy to pass the integrity check, got %v", err)
	}
}
