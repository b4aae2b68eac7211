package hierarchy

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"cabinet/internal/config"
	"cabinet/internal/domain"
	"cabinet/internal/domain/models"
	"cabinet/internal/domain/repositories"
	"cabinet/internal/domain/services"
	"cabinet/internal/repository/memory"
	"cabinet/internal/service/auth"
)

// ============================================================================
// TEST ENVIRONMENT
// ============================================================================

// captureRecorder keeps recorded events in memory so tests can assert on
// what a mutation emitted
type captureRecorder struct {
	mu     sync.Mutex
	events []models.AuditEvent
}

func (r *captureRecorder) Record(ctx context.Context, event models.AuditEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *captureRecorder) snapshot() []models.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.AuditEvent(nil), r.events...)
}

func (r *captureRecorder) operations() []string {
	events := r.snapshot()
	ops := make([]string, len(events))
	for i, e := range events {
		ops[i] = e.Operation
	}
	return ops
}

// testEnv wires the full service stack over the in-memory backend for a
// single owner
type testEnv struct {
	owner       uuid.UUID
	folders     services.FolderService
	files       services.FileService
	tree        services.TreeService
	checker     *IntegrityChecker
	recorder    *captureRecorder
	folderRepo  repositories.FolderRepository
	fileRepo    repositories.FileRepository
	closureRepo repositories.ClosureRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithLimit(t, config.DefaultMaxSubtreeSize)
}

func newTestEnvWithLimit(t *testing.T, maxSubtreeSize int) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	store := memory.NewStore()
	folderRepo := memory.NewFolderRepository(store)
	fileRepo := memory.NewFileRepository(store)
	closureRepo := memory.NewClosureRepository(store)
	txManager := memory.NewTransactionManager(store)
	validator := NewResourceValidator(folderRepo)
	authorizer := auth.NewOwnerBasedAuthorizer(folderRepo, fileRepo)
	recorder := &captureRecorder{}

	return &testEnv{
		owner:       uuid.New(),
		folders:     NewFolderService(folderRepo, fileRepo, closureRepo, txManager, validator, authorizer, recorder, maxSubtreeSize, logger),
		files:       NewFileService(fileRepo, folderRepo, txManager, validator, authorizer, recorder, logger),
		tree:        NewTreeService(folderRepo, fileRepo, closureRepo, authorizer, logger),
		checker:     NewIntegrityChecker(folderRepo, fileRepo, closureRepo, logger),
		recorder:    recorder,
		folderRepo:  folderRepo,
		fileRepo:    fileRepo,
		closureRepo: closureRepo,
	}
}

func (e *testEnv) mustCreateFolder(t *testing.T, name string, parentID *uuid.UUID) *models.Folder {
	t.Helper()
	folder, err := e.folders.CreateFolder(context.Background(), e.owner, &services.CreateFolderRequest{Name: name, ParentID: parentID})
	if err != nil {
		t.Fatalf("Failed to create folder %q: %v", name, err)
	}
	return folder
}

func (e *testEnv) mustCreateFile(t *testing.T, name string, folderID *uuid.UUID) *models.File {
	t.Helper()
	file, err := e.files.CreateFile(context.Background(), e.owner, &services.CreateFileRequest{
		FolderID:  folderID,
		Name:      name,
		SizeBytes: 256,
		MimeType:  "text/plain",
	})
	if err != nil {
		t.Fatalf("Failed to create file %q: %v", name, err)
	}
	return file
}

func (e *testEnv) getFolder(t *testing.T, id uuid.UUID) *models.Folder {
	t.Helper()
	folder, err := e.folders.GetFolder(context.Background(), e.owner, id)
	if err != nil {
		t.Fatalf("Failed to get folder %s: %v", id, err)
	}
	return folder
}

func (e *testEnv) getFile(t *testing.T, id uuid.UUID) *models.File {
	t.Helper()
	file, err := e.files.GetFile(context.Background(), e.owner, id)
	if err != nil {
		t.Fatalf("Failed to get file %s: %v", id, err)
	}
	return file
}

func (e *testEnv) mustCheckIntegrity(t *testing.T) {
	t.Helper()
	if err := e.checker.Check(context.Background(), e.owner); err != nil {
		t.Fatalf("Integrity check failed: %v", err)
	}
}

// ============================================================================
// CREATE
// ============================================================================

func TestCreateFolder_BuildsPaths(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	docs := env.mustCreateFolder(t, "Documents", nil)
	if docs.ParentID != nil {
		t.Errorf("expected root folder to have nil parent, got %v", docs.ParentID)
	}
	if docs.Path != "Documents" {
		t.Errorf("expected path 'Documents', got %q", docs.Path)
	}

	reports := env.mustCreateFolder(t, "Reports", &docs.ID)
	if reports.Path != "Documents/Reports" {
		t.Errorf("expected path 'Documents/Reports', got %q", reports.Path)
	}

	q1 := env.mustCreateFolder(t, "Q1", &reports.ID)
	if q1.Path != "Documents/Reports/Q1" {
		t.Errorf("expected path 'Documents/Reports/Q1', got %q", q1.Path)
	}

	// The ancestor index carries the transitive chain, not just the parent
	isDesc, err := env.closureRepo.IsDescendant(ctx, docs.ID, q1.ID)
	if err != nil {
		t.Fatalf("Failed to query index: %v", err)
	}
	if !isDesc {
		t.Error("expected Q1 to be indexed as a descendant of Documents")
	}

	env.mustCheckIntegrity(t)
}

func TestCreateFolder_TrimsName(t *testing.T) {
	env := newTestEnv(t)

	folder := env.mustCreateFolder(t, "  Music  ", nil)
	if folder.Name != "Music" {
		t.Errorf("expected trimmed name 'Music', got %q", folder.Name)
	}
	if folder.Path != "Music" {
		t.Errorf("expected path 'Music', got %q", folder.Path)
	}
}

func TestCreateFolder_RejectsInvalidNames(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		folderName string
	}{
		{name: "empty name", folderName: ""},
		{name: "whitespace only", folderName: "   "},
		{name: "contains slash", folderName: "a/b"},
		{name: "too long", folderName: strings.Repeat("x", config.MaxFolderNameLength+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.folders.CreateFolder(ctx, env.owner, &services.CreateFolderRequest{Name: tt.folderName})
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreateFolder_DuplicateName(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.mustCreateFolder(t, "Docs", nil)

	_, err := env.folders.CreateFolder(ctx, env.owner, &services.CreateFolderRequest{Name: "Docs"})
	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if conflict.ResourceID != first.ID.String() {
		t.Errorf("expected conflict to reference %s, got %s", first.ID, conflict.ResourceID)
	}
	if !errors.Is(err, domain.ErrConflict) {
		t.Error("expected conflict error to match ErrConflict")
	}

	// The same name under a different parent is a different sibling set
	if _, err := env.folders.CreateFolder(ctx, env.owner, &services.CreateFolderRequest{Name: "Docs", ParentID: &first.ID}); err != nil {
		t.Errorf("expected same name under another parent to succeed, got %v", err)
	}
}

func TestCreateFolder_ParentChecks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	missing := uuid.New()
	_, err := env.folders.CreateFolder(ctx, env.owner, &services.CreateFolderRequest{Name: "a", ParentID: &missing})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found for missing parent, got %v", err)
	}

	// A trashed parent reads as missing
	trashed := env.mustCreateFolder(t, "Old", nil)
	if _, err := env.folders.DeleteFolder(ctx, env.owner, trashed.ID); err != nil {
		t.Fatalf("Failed to delete folder: %v", err)
	}
	var notFound *domain.NotFoundError
	_, err = env.folders.CreateFolder(ctx, env.owner, &services.CreateFolderRequest{Name: "a", ParentID: &trashed.ID})
	if !errors.As(err, &notFound) {
		t.Errorf("expected not found for deleted parent, got %v", err)
	}

	// Another owner's folder is off limits as a parent
	mine := env.mustCreateFolder(t, "Mine", nil)
	stranger := uuid.New()
	_, err = env.folders.CreateFolder(ctx, stranger, &services.CreateFolderRequest{Name: "a", ParentID: &mine.ID})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected forbidden for foreign parent, got %v", err)
	}
}

// ============================================================================
// RENAME
// ============================================================================

func TestRenameFolder_RecomputesSubtreePaths(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	docs := env.mustCreateFolder(t, "Docs", nil)
	reports := env.mustCreateFolder(t, "Reports", &docs.ID)
	q1 := env.mustCreateFolder(t, "Q1", &reports.ID)

	renamed, err := env.folders.RenameFolder(ctx, env.owner, docs.ID, &services.RenameFolderRequest{Name: "Documents"})
	if err != nil {
		t.Fatalf("Failed to rename folder: %v", err)
	}
	if renamed.Name != "Documents" || renamed.Path != "Documents" {
		t.Errorf("expected name and path 'Documents', got %q / %q", renamed.Name, renamed.Path)
	}

	if got := env.getFolder(t, reports.ID).Path; got != "Documents/Reports" {
		t.Errorf("expected child path 'Documents/Reports', got %q", got)
	}
	if got := env.getFolder(t, q1.ID).Path; got != "Documents/Reports/Q1" {
		t.Errorf("expected grandchild path 'Documents/Reports/Q1', got %q", got)
	}

	env.mustCheckIntegrity(t)
}

func TestRenameFolder_SameNameIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	docs := env.mustCreateFolder(t, "Docs", nil)
	before := len(env.recorder.operations())

	folder, err := env.folders.RenameFolder(ctx, env.owner, docs.ID, &services.RenameFolderRequest{Name: "Docs"})
	if err != nil {
		t.Fatalf("expected no-op rename to succeed, got %v", err)
	}
	if folder.Name != "Docs" {
		t.Errorf("expected name unchanged, got %q", folder.Name)
	}
	if got := len(env.recorder.operations()); got != before {
		t.Errorf("expected no event for a no-op rename, got %d new", got-before)
	}
}

func TestRenameFolder_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.mustCreateFolder(t, "a", nil)
	env.mustCreateFolder(t, "b", nil)

	// Renaming onto a sibling is rejected
	_, err := env.folders.RenameFolder(ctx, env.owner, a.ID, &services.RenameFolderRequest{Name: "b"})
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected conflict renaming onto a sibling, got %v", err)
	}

	// Trashed folders cannot be renamed
	gone := env.mustCreateFolder(t, "gone", nil)
	if _, err := env.folders.DeleteFolder(ctx, env.owner, gone.ID); err != nil {
		t.Fatalf("Failed to delete folder: %v", err)
	}
	var notFound *domain.NotFoundError
	_, err = env.folders.RenameFolder(ctx, env.owner, gone.ID, &services.RenameFolderRequest{Name: "other"})
	if !errors.As(err, &notFound) {
		t.Errorf("expected not found renaming a deleted folder, got %v", err)
	}
}

// ============================================================================
// MOVE
// ============================================================================

func TestMoveFolder_RewiresIndexAndPaths(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.mustCreateFolder(t, "a", nil)
	b := env.mustCreateFolder(t, "b", &a.ID)
	c := env.mustCreateFolder(t, "c", &b.ID)
	d := env.mustCreateFolder(t, "d", nil)

	moved, err := env.folders.MoveFolder(ctx, env.owner, b.ID, &services.MoveFolderRequest{NewParentID: &d.ID})
	if err != nil {
		t.Fatalf("Failed to move folder: %v", err)
	}
	if moved.ParentID == nil || *moved.ParentID != d.ID {
		t.Errorf("expected parent %s, got %v", d.ID, moved.ParentID)
	}
	if moved.Path != "d/b" {
		t.Errorf("expected path 'd/b', got %q", moved.Path)
	}
	if got := env.getFolder(t, c.ID).Path; got != "d/b/c" {
		t.Errorf("expected descendant path 'd/b/c', got %q", got)
	}

	// Old ancestor links are gone, new ones are in place
	underA, err := env.closureRepo.IsDescendant(ctx, a.ID, c.ID)
	if err != nil {
		t.Fatalf("Failed to query index: %v", err)
	}
	if underA {
		t.Error("expected c to no longer be indexed under a")
	}
	underD, err := env.closureRepo.IsDescendant(ctx, d.ID, c.ID)
	if err != nil {
		t.Fatalf("Failed to query index: %v", err)
	}
	if !underD {
		t.Error("expected c to be indexed under d")
	}

	env.mustCheckIntegrity(t)
}

func TestMoveFolder_ToRoot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	r := env.mustCreateFolder(t, "r", nil)
	a := env.mustCreateFolder(t, "a", &r.ID)
	b := env.mustCreateFolder(t, "b", &a.ID)

	moved, err := env.folders.MoveFolder(ctx, env.owner, a.ID, &services.MoveFolderRequest{NewParentID: nil})
	if err != nil {
		t.Fatalf("Failed to move folder to root: %v", err)
	}
	if moved.ParentID != nil {
		t.Errorf("expected nil parent after move to root, got %v", moved.ParentID)
	}
	if moved.Path != "a" {
		t.Errorf("expected path 'a', got %q", moved.Path)
	}
	if got := env.getFolder(t, b.ID).Path; got != "a/b" {
		t.Errorf("expected descendant path 'a/b', got %q", got)
	}

	// r lost its links to the moved subtree, a kept its own
	for _, id := range []uuid.UUID{a.ID, b.ID} {
		still, err := env.closureRepo.IsDescendant(ctx, r.ID, id)
		if err != nil {
			t.Fatalf("Failed to query index: %v", err)
		}
		if still {
			t.Errorf("expected %s to no longer be indexed under r", id)
		}
	}
	members, err := env.closureRepo.ListDescendants(ctx, a.ID, nil)
	if err != nil {
		t.Fatalf("Failed to list subtree: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected a's subtree to hold 2 members, got %d", len(members))
	}
	if members[1].FolderID != b.ID || members[1].Depth != 1 {
		t.Errorf("expected b at depth 1 under a, got %s at depth %d", members[1].FolderID, members[1].Depth)
	}

	env.mustCheckIntegrity(t)
}

func TestMoveFolder_RejectsCycles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.mustCreateFolder(t, "a", nil)
	b := env.mustCreateFolder(t, "b", &a.ID)
	c := env.mustCreateFolder(t, "c", &b.ID)

	before, err := env.closureRepo.ListByOwner(ctx, env.owner)
	if err != nil {
		t.Fatalf("Failed to dump index: %v", err)
	}

	tests := []struct {
		name   string
		folder uuid.UUID
		target uuid.UUID
	}{
		{name: "into itself", folder: a.ID, target: a.ID},
		{name: "into its own child", folder: a.ID, target: b.ID},
		{name: "into its own grandchild", folder: a.ID, target: c.ID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.folders.MoveFolder(ctx, env.owner, tt.folder, &services.MoveFolderRequest{NewParentID: &tt.target})
			if !errors.Is(err, domain.ErrCircular) {
				t.Fatalf("expected circular move rejection, got %v", err)
			}
		})
	}

	// Nothing moved and the index holds exactly the rows it held before
	if got := env.getFolder(t, a.ID); got.ParentID != nil {
		t.Errorf("expected a to stay at root, got parent %v", got.ParentID)
	}
	after, err := env.closureRepo.ListByOwner(ctx, env.owner)
	if err != nil {
		t.Fatalf("Failed to dump index: %v", err)
	}
	if len(after) != len(before) {
		t.Fatalf("expected %d index rows after rejected moves, got %d", len(before), len(after))
	}
	depths := make(map[[2]uuid.UUID]int, len(before))
	for _, row := range before {
		depths[[2]uuid.UUID{row.AncestorID, row.DescendantID}] = row.Depth
	}
	for _, row := range after {
		want, ok := depths[[2]uuid.UUID{row.AncestorID, row.DescendantID}]
		if !ok || want != row.Depth {
			t.Errorf("unexpected index row (%s, %s, %d)", row.AncestorID, row.DescendantID, row.Depth)
		}
	}
	env.mustCheckIntegrity(t)
}

func TestMoveFolder_SameParentIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.mustCreateFolder(t, "a", nil)
	b := env.mustCreateFolder(t, "b", &a.ID)
	before := len(env.recorder.operations())

	moved, err := env.folders.MoveFolder(ctx, env.owner, b.ID, &services.MoveFolderRequest{NewParentID: &a.ID})
	if err != nil {
		t.Fatalf("expected no-op move to succeed, got %v", err)
	}
	if moved.Path != "a/b" {
		t.Errorf("expected path unchanged, got %q", moved.Path)
	}
	if got := len(env.recorder.operations()); got != before {
		t.Errorf("expected no event for a no-op move, got %d new", got-before)
	}
}

func TestMoveFolder_DuplicateInDestination(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.mustCreateFolder(t, "a", nil)
	b := env.mustCreateFolder(t, "b", nil)
	env.mustCreateFolder(t, "x", &a.ID)
	fromB := env.mustCreateFolder(t, "x", &b.ID)

	_, err := env.folders.MoveFolder(ctx, env.owner, fromB.ID, &services.MoveFolderRequest{NewParentID: &a.ID})
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected conflict moving onto an occupied name, got %v", err)
	}
}

func TestMoveThenDelete_MovedSubtreeSurvives(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.mustCreateFolder(t, "a", nil)
	b := env.mustCreateFolder(t, "b", &a.ID)
	c := env.mustCreateFolder(t, "c", &b.ID)
	d := env.mustCreateFolder(t, "d", nil)

	if _, err := env.folders.MoveFolder(ctx, env.owner, b.ID, &services.MoveFolderRequest{NewParentID: &d.ID}); err != nil {
		t.Fatalf("Failed to move folder: %v", err)
	}

	// Deleting the old ancestor only takes itself down
	result, err := env.folders.DeleteFolder(ctx, env.owner, a.ID)
	if err != nil {
		t.Fatalf("Failed to delete folder: %v", err)
	}
	if result.FoldersDeleted != 1 {
		t.Errorf("expected 1 folder deleted, got %d", result.FoldersDeleted)
	}

	movedB := env.getFolder(t, b.ID)
	movedC := env.getFolder(t, c.ID)
	if movedB.DeletedAt != nil || movedC.DeletedAt != nil {
		t.Fatal("expected the moved subtree to stay live")
	}
	if movedB.Path != "d/b" || movedC.Path != "d/b/c" {
		t.Errorf("expected paths 'd/b' and 'd/b/c', got %q and %q", movedB.Path, movedC.Path)
	}

	env.mustCheckIntegrity(t)
}

func TestSubtreeBound(t *testing.T) {
	env := newTestEnvWithLimit(t, 3)
	ctx := context.Background()

	root := env.mustCreateFolder(t, "root", nil)
	child := env.mustCreateFolder(t, "child", &root.ID)
	env.mustCreateFile(t, "a.txt", &child.ID)
	env.mustCreateFile(t, "b.txt", &child.ID)

	// 2 folders + 2 files = 4 entries against a limit of 3
	_, err := env.folders.DeleteFolder(ctx, env.owner, root.ID)
	var tooLarge *domain.TooLargeError
	if !errors.As(err, &tooLarge) {
		t.Fatalf("expected subtree bound rejection, got %v", err)
	}
	if !strings.Contains(tooLarge.Message, "limit is 3") {
		t.Errorf("expected the limit in the message, got %q", tooLarge.Message)
	}

	target := env.mustCreateFolder(t, "target", nil)
	if _, err := env.folders.MoveFolder(ctx, env.owner, root.ID, &services.MoveFolderRequest{NewParentID: &target.ID}); err == nil {
		t.Error("expected move over the bound to be rejected")
	}

	// child plus its two files is exactly at the limit and still moves
	if _, err := env.folders.MoveFolder(ctx, env.owner, child.ID, &services.MoveFolderRequest{NewParentID: &target.ID}); err != nil {
		t.Errorf("expected move at the limit to pass, got %v", err)
	}
	env.mustCheckIntegrity(t)
}

// ============================================================================
// DELETE AND RESTORE
// ============================================================================

func TestDeleteFolder_FlagsSubtreeAsOneBatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	proj := env.mustCreateFolder(t, "proj", nil)
	src := env.mustCreateFolder(t, "src", &proj.ID)
	docs := env.mustCreateFolder(t, "docs", &proj.ID)
	env.mustCreateFile(t, "main.go", &src.ID)
	env.mustCreateFile(t, "readme.md", &docs.ID)
	keep := env.mustCreateFile(t, "keep.txt", nil)

	result, err := env.folders.DeleteFolder(ctx, env.owner, proj.ID)
	if err != nil {
		t.Fatalf("Failed to delete folder: %v", err)
	}
	if result.FoldersDeleted != 3 {
		t.Errorf("expected 3 folders deleted, got %d", result.FoldersDeleted)
	}
	if result.FilesDeleted != 2 {
		t.Errorf("expected 2 files deleted, got %d", result.FilesDeleted)
	}
	if result.BatchID == uuid.Nil {
		t.Error("expected a batch id")
	}

	// Every member carries the same batch marker
	for _, id := range []uuid.UUID{proj.ID, src.ID, docs.ID} {
		folder := env.getFolder(t, id)
		if !folder.IsDeleted() {
			t.Errorf("expected folder %s to be deleted", id)
			continue
		}
		if folder.DeleteBatchID == nil || *folder.DeleteBatchID != result.BatchID {
			t.Errorf("expected folder %s to carry batch %s", id, result.BatchID)
		}
	}

	// Unrelated entries stay live
	if env.getFile(t, keep.ID).IsDeleted() {
		t.Error("expected unrelated file to stay live")
	}

	// Index rows survive the trash so a restore can rebuild paths
	depths, err := env.closureRepo.ListDescendants(ctx, proj.ID, nil)
	if err != nil {
		t.Fatalf("Failed to list descendants: %v", err)
	}
	if len(depths) != 3 {
		t.Errorf("expected 3 index rows to survive, got %d", len(depths))
	}

	env.mustCheckIntegrity(t)
}

func TestDeleteFolder_AlreadyDeleted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	folder := env.mustCreateFolder(t, "x", nil)
	if _, err := env.folders.DeleteFolder(ctx, env.owner, folder.ID); err != nil {
		t.Fatalf("Failed to delete folder: %v", err)
	}

	var notFound *domain.NotFoundError
	_, err := env.folders.DeleteFolder(ctx, env.owner, folder.ID)
	if !errors.As(err, &notFound) {
		t.Errorf("expected not found deleting twice, got %v", err)
	}
}

func TestRestoreFolder_BringsBackExactlyOneBatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.mustCreateFolder(t, "a", nil)
	b := env.mustCreateFolder(t, "b", &a.ID)
	c := env.mustCreateFolder(t, "c", &b.ID)
	env.mustCreateFile(t, "inner.txt", &c.ID)

	// First batch takes b and below, second takes a alone
	firstDelete, err := env.folders.DeleteFolder(ctx, env.owner, b.ID)
	if err != nil {
		t.Fatalf("Failed to delete b: %v", err)
	}
	if firstDelete.FoldersDeleted != 2 || firstDelete.FilesDeleted != 1 {
		t.Fatalf("expected first batch to take 2 folders and 1 file, got %d/%d", firstDelete.FoldersDeleted, firstDelete.FilesDeleted)
	}

	secondDelete, err := env.folders.DeleteFolder(ctx, env.owner, a.ID)
	if err != nil {
		t.Fatalf("Failed to delete a: %v", err)
	}
	if secondDelete.FoldersDeleted != 1 || secondDelete.FilesDeleted != 0 {
		t.Fatalf("expected second batch to take only a, got %d/%d", secondDelete.FoldersDeleted, secondDelete.FilesDeleted)
	}
	if secondDelete.BatchID == firstDelete.BatchID {
		t.Fatal("expected distinct batch ids")
	}

	// Restoring a brings back its batch only
	restored, err := env.folders.RestoreFolder(ctx, env.owner, a.ID)
	if err != nil {
		t.Fatalf("Failed to restore a: %v", err)
	}
	if restored.FoldersRestored != 1 || restored.FilesRestored != 0 {
		t.Errorf("expected only a restored, got %d folders %d files", restored.FoldersRestored, restored.FilesRestored)
	}
	if !env.getFolder(t, b.ID).IsDeleted() {
		t.Error("expected b to stay in the trash")
	}

	// Restoring b reattaches it under the now-live a
	restored, err = env.folders.RestoreFolder(ctx, env.owner, b.ID)
	if err != nil {
		t.Fatalf("Failed to restore b: %v", err)
	}
	if restored.FoldersRestored != 2 || restored.FilesRestored != 1 {
		t.Errorf("expected b and c with their file back, got %d folders %d files", restored.FoldersRestored, restored.FilesRestored)
	}
	if restored.AttachedAtRoot {
		t.Error("expected restore under the live parent, not at root")
	}
	if got := env.getFolder(t, c.ID).Path; got != "a/b/c" {
		t.Errorf("expected path 'a/b/c', got %q", got)
	}

	env.mustCheckIntegrity(t)
}

func TestRestoreFolder_ViaAnyBatchMember(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	parent := env.mustCreateFolder(t, "parent", nil)
	child := env.mustCreateFolder(t, "child", &parent.ID)

	if _, err := env.folders.DeleteFolder(ctx, env.owner, parent.ID); err != nil {
		t.Fatalf("Failed to delete folder: %v", err)
	}

	// Aiming the restore at the child still brings back the whole batch
	restored, err := env.folders.RestoreFolder(ctx, env.owner, child.ID)
	if err != nil {
		t.Fatalf("Failed to restore via child: %v", err)
	}
	if restored.FoldersRestored != 2 {
		t.Errorf("expected both folders restored, got %d", restored.FoldersRestored)
	}
	if env.getFolder(t, parent.ID).IsDeleted() {
		t.Error("expected parent to be live again")
	}
	env.mustCheckIntegrity(t)
}

func TestRestoreFolder_ParentGoneReattachesAtRoot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.mustCreateFolder(t, "a", nil)
	b := env.mustCreateFolder(t, "b", &a.ID)
	c := env.mustCreateFolder(t, "c", &b.ID)

	if _, err := env.folders.DeleteFolder(ctx, env.owner, b.ID); err != nil {
		t.Fatalf("Failed to delete b: %v", err)
	}
	if _, err := env.folders.DeleteFolder(ctx, env.owner, a.ID); err != nil {
		t.Fatalf("Failed to delete a: %v", err)
	}

	// b's former parent is still in the trash, so b comes back at root
	restored, err := env.folders.RestoreFolder(ctx, env.owner, b.ID)
	if err != nil {
		t.Fatalf("Failed to restore b: %v", err)
	}
	if !restored.AttachedAtRoot {
		t.Error("expected reattachment at root")
	}

	got := env.getFolder(t, b.ID)
	if got.ParentID != nil {
		t.Errorf("expected nil parent, got %v", got.ParentID)
	}
	if got.Path != "b" {
		t.Errorf("expected path 'b', got %q", got.Path)
	}
	if got := env.getFolder(t, c.ID).Path; got != "b/c" {
		t.Errorf("expected path 'b/c', got %q", got)
	}

	// The index no longer links the trashed a into the restored subtree
	underA, err := env.closureRepo.IsDescendant(ctx, a.ID, c.ID)
	if err != nil {
		t.Fatalf("Failed to query index: %v", err)
	}
	if underA {
		t.Error("expected c to be unlinked from a")
	}

	env.mustCheckIntegrity(t)
}

func TestRestoreFolder_NameCollisionAborts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	docs := env.mustCreateFolder(t, "docs", nil)
	env.mustCreateFolder(t, "drafts", &docs.ID)
	if _, err := env.folders.DeleteFolder(ctx, env.owner, docs.ID); err != nil {
		t.Fatalf("Failed to delete folder: %v", err)
	}

	// A new live folder now occupies the name
	env.mustCreateFolder(t, "docs", nil)

	_, err := env.folders.RestoreFolder(ctx, env.owner, docs.ID)
	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected restore conflict, got %v", err)
	}
	if !strings.Contains(conflict.Message, "restore location") {
		t.Errorf("expected the restore location in the message, got %q", conflict.Message)
	}

	// Nothing came back
	if !env.getFolder(t, docs.ID).IsDeleted() {
		t.Error("expected the trashed folder to stay deleted")
	}
	env.mustCheckIntegrity(t)
}

func TestRestoreFolder_NotDeleted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	folder := env.mustCreateFolder(t, "live", nil)
	_, err := env.folders.RestoreFolder(ctx, env.owner, folder.ID)
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error restoring a live folder, got %v", err)
	}
}

// ============================================================================
// OWNERSHIP AND EVENTS
// ============================================================================

func TestFolderService_OwnershipEnforced(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	folder := env.mustCreateFolder(t, "private", nil)
	stranger := uuid.New()

	if _, err := env.folders.GetFolder(ctx, stranger, folder.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected forbidden on get, got %v", err)
	}
	if _, err := env.folders.RenameFolder(ctx, stranger, folder.ID, &services.RenameFolderRequest{Name: "other"}); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected forbidden on rename, got %v", err)
	}
	if _, err := env.folders.DeleteFolder(ctx, stranger, folder.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected forbidden on delete, got %v", err)
	}
}

func TestFolderOperationsEmitEvents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	folder := env.mustCreateFolder(t, "a", nil)
	if _, err := env.folders.RenameFolder(ctx, env.owner, folder.ID, &services.RenameFolderRequest{Name: "b"}); err != nil {
		t.Fatalf("Failed to rename: %v", err)
	}
	if _, err := env.folders.DeleteFolder(ctx, env.owner, folder.ID); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if _, err := env.folders.RestoreFolder(ctx, env.owner, folder.ID); err != nil {
		t.Fatalf("Failed to restore: %v", err)
	}

	want := []string{models.OpFolderCreate, models.OpFolderRename, models.OpFolderDelete, models.OpFolderRestore}
	got := env.recorder.operations()
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %d (%v)", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	// Events carry the acting owner and the touched resource
	first := env.recorder.snapshot()[0]
	if first.OwnerID != env.owner {
		t.Errorf("expected owner %s on event, got %s", env.owner, first.OwnerID)
	}
	if first.ResourceID != folder.ID {
		t.Errorf("expected resource %s on event, got %s", folder.ID, first.ResourceID)
	}
	if first.ResourceType != "folder" {
		t.Errorf("expected resource type folder, got %s", first.ResourceType)
	}
}
