package hierarchy

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"cabinet/internal/domain"
)

func TestIntegrityChecker_CleanTree(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.mustCreateFolder(t, "a", nil)
	b := env.mustCreateFolder(t, "b", &a.ID)
	env.mustCreateFile(t, "x.txt", &b.ID)
	env.mustCreateFile(t, "root.txt", nil)
	if _, err := env.folders.DeleteFolder(ctx, env.owner, b.ID); err != nil {
		t.Fatalf("Failed to delete b: %v", err)
	}

	if err := env.checker.Check(ctx, env.owner); err != nil {
		t.Errorf("expected clean tree to pass, got %v", err)
	}
}

func TestIntegrityChecker_DetectsBrokenIndex(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.mustCreateFolder(t, "a", nil)
	b := env.mustCreateFolder(t, "b", &a.ID)

	// Rip the subtree out of the index while the parent pointer still stands
	if err := env.closureRepo.Relink(ctx, b.ID, nil); err != nil {
		t.Fatalf("Failed to corrupt index: %v", err)
	}

	err := env.checker.Check(ctx, env.owner)
	if !errors.Is(err, domain.ErrConsistency) {
		t.Fatalf("expected consistency failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "missing index entry") {
		t.Errorf("expected a missing index entry report, got %q", err.Error())
	}
}

func TestIntegrityChecker_DetectsStaleIndexEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.mustCreateFolder(t, "a", nil)
	b := env.mustCreateFolder(t, "b", nil)

	// Point b's chain at a without touching the parent pointer
	if err := env.closureRepo.Relink(ctx, b.ID, &a.ID); err != nil {
		t.Fatalf("Failed to corrupt index: %v", err)
	}

	err := env.checker.Check(ctx, env.owner)
	if !errors.Is(err, domain.ErrConsistency) {
		t.Fatalf("expected consistency failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "stale index entry") {
		t.Errorf("expected a stale index entry report, got %q", err.Error())
	}
}

func TestIntegrityChecker_DetectsStalePath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.mustCreateFolder(t, "a", nil)

	// Rename behind the service's back so the path goes stale
	folder, err := env.folderRepo.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("Failed to load folder: %v", err)
	}
	folder.Name = "z"
	if err := env.folderRepo.Update(ctx, folder); err != nil {
		t.Fatalf("Failed to corrupt folder: %v", err)
	}

	err = env.checker.Check(ctx, env.owner)
	if !errors.Is(err, domain.ErrConsistency) {
		t.Fatalf("expected consistency failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "has path") {
		t.Errorf("expected a path mismatch report, got %q", err.Error())
	}
}

func TestIntegrityChecker_DetectsLiveUnderDeleted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	parent := env.mustCreateFolder(t, "parent", nil)
	env.mustCreateFolder(t, "child", &parent.ID)
	env.mustCreateFile(t, "x.txt", &parent.ID)

	// Flag only the parent, stranding the live child and file
	if _, err := env.folderRepo.SoftDeleteByIDs(ctx, []uuid.UUID{parent.ID}, uuid.New(), time.Now()); err != nil {
		t.Fatalf("Failed to corrupt folder: %v", err)
	}

	err := env.checker.Check(ctx, env.owner)
	if !errors.Is(err, domain.ErrConsistency) {
		t.Fatalf("expected consistency failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "sits under deleted folder") {
		t.Errorf("expected a stranded child report, got %q", err.Error())
	}
	if !strings.Contains(err.Error(), "sits in deleted folder") {
		t.Errorf("expected a stranded file report, got %q", err.Error())
	}
}
