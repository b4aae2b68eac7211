package hierarchy

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"cabinet/internal/domain"
	"cabinet/internal/domain/services"
)

func TestListChildren_RootLevel(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mustCreateFolder(t, "beta", nil)
	env.mustCreateFolder(t, "alpha", nil)
	env.mustCreateFile(t, "zzz.txt", nil)
	env.mustCreateFile(t, "aaa.txt", nil)

	trashed := env.mustCreateFolder(t, "trashed", nil)
	if _, err := env.folders.DeleteFolder(ctx, env.owner, trashed.ID); err != nil {
		t.Fatalf("Failed to delete folder: %v", err)
	}

	contents, err := env.tree.ListChildren(ctx, env.owner, nil)
	if err != nil {
		t.Fatalf("Failed to list root children: %v", err)
	}
	if contents.Folder != nil {
		t.Error("expected no folder context at root level")
	}

	var folderNames []string
	for _, f := range contents.Folders {
		folderNames = append(folderNames, f.Name)
	}
	if len(folderNames) != 2 || folderNames[0] != "alpha" || folderNames[1] != "beta" {
		t.Errorf("expected [alpha beta], got %v", folderNames)
	}

	var fileNames []string
	for _, f := range contents.Files {
		fileNames = append(fileNames, f.Name)
	}
	if len(fileNames) != 2 || fileNames[0] != "aaa.txt" || fileNames[1] != "zzz.txt" {
		t.Errorf("expected [aaa.txt zzz.txt], got %v", fileNames)
	}
}

func TestListChildren_OfFolder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	docs := env.mustCreateFolder(t, "docs", nil)
	env.mustCreateFolder(t, "drafts", &docs.ID)
	env.mustCreateFile(t, "index.md", &docs.ID)

	contents, err := env.tree.ListChildren(ctx, env.owner, &docs.ID)
	if err != nil {
		t.Fatalf("Failed to list children: %v", err)
	}
	if contents.Folder == nil || contents.Folder.ID != docs.ID {
		t.Fatal("expected the listed folder in the response")
	}
	if len(contents.Folders) != 1 || contents.Folders[0].Name != "drafts" {
		t.Errorf("expected [drafts], got %v", contents.Folders)
	}
	if len(contents.Files) != 1 || contents.Files[0].Name != "index.md" {
		t.Errorf("expected [index.md], got %v", contents.Files)
	}

	// Trashed folders cannot be listed
	if _, err := env.folders.DeleteFolder(ctx, env.owner, docs.ID); err != nil {
		t.Fatalf("Failed to delete folder: %v", err)
	}
	var notFound *domain.NotFoundError
	if _, err := env.tree.ListChildren(ctx, env.owner, &docs.ID); !errors.As(err, &notFound) {
		t.Errorf("expected not found for a trashed folder, got %v", err)
	}
}

func TestGetSubtree(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	root := env.mustCreateFolder(t, "root", nil)
	b := env.mustCreateFolder(t, "b", &root.ID)
	env.mustCreateFolder(t, "c", &root.ID)
	d := env.mustCreateFolder(t, "d", &b.ID)

	entries, err := env.tree.GetSubtree(ctx, env.owner, root.ID, nil)
	if err != nil {
		t.Fatalf("Failed to get subtree: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 descendants, got %d", len(entries))
	}
	// Nearest first; the folder itself is not part of its own subtree view
	if entries[0].Depth != 1 || entries[1].Depth != 1 || entries[2].Depth != 2 {
		t.Errorf("expected depths [1 1 2], got [%d %d %d]", entries[0].Depth, entries[1].Depth, entries[2].Depth)
	}
	if entries[2].Folder.ID != d.ID {
		t.Errorf("expected deepest entry to be d, got %s", entries[2].Folder.Name)
	}

	// Depth bound trims the deeper levels
	one := 1
	entries, err = env.tree.GetSubtree(ctx, env.owner, root.ID, &one)
	if err != nil {
		t.Fatalf("Failed to get bounded subtree: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 entries at depth 1, got %d", len(entries))
	}

	// Trashed members disappear from the view
	if _, err := env.folders.DeleteFolder(ctx, env.owner, b.ID); err != nil {
		t.Fatalf("Failed to delete b: %v", err)
	}
	entries, err = env.tree.GetSubtree(ctx, env.owner, root.ID, nil)
	if err != nil {
		t.Fatalf("Failed to get subtree: %v", err)
	}
	if len(entries) != 1 || entries[0].Folder.Name != "c" {
		t.Errorf("expected only c left, got %v", entries)
	}

	// Negative bound is rejected
	neg := -1
	if _, err := env.tree.GetSubtree(ctx, env.owner, root.ID, &neg); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestGetBreadcrumbs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.mustCreateFolder(t, "a", nil)
	b := env.mustCreateFolder(t, "b", &a.ID)
	c := env.mustCreateFolder(t, "c", &b.ID)

	crumbs, err := env.tree.GetBreadcrumbs(ctx, env.owner, c.ID)
	if err != nil {
		t.Fatalf("Failed to get breadcrumbs: %v", err)
	}
	want := []string{"a", "b", "c"}
	if len(crumbs) != len(want) {
		t.Fatalf("expected %d crumbs, got %d", len(want), len(crumbs))
	}
	for i, name := range want {
		if crumbs[i].Name != name {
			t.Errorf("crumb %d: expected %s, got %s", i, name, crumbs[i].Name)
		}
	}

	// A root folder is its own single crumb
	crumbs, err = env.tree.GetBreadcrumbs(ctx, env.owner, a.ID)
	if err != nil {
		t.Fatalf("Failed to get breadcrumbs: %v", err)
	}
	if len(crumbs) != 1 || crumbs[0].ID != a.ID {
		t.Errorf("expected only a, got %v", crumbs)
	}
}

func TestGetTree(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	docs := env.mustCreateFolder(t, "docs", nil)
	reports := env.mustCreateFolder(t, "reports", &docs.ID)
	env.mustCreateFolder(t, "archive", nil)
	env.mustCreateFile(t, "readme.md", nil)
	env.mustCreateFile(t, "q1.pdf", &reports.ID)

	trashedFile := env.mustCreateFile(t, "trash.tmp", nil)
	if _, err := env.files.DeleteFile(ctx, env.owner, trashedFile.ID); err != nil {
		t.Fatalf("Failed to delete file: %v", err)
	}

	tree, err := env.tree.GetTree(ctx, env.owner)
	if err != nil {
		t.Fatalf("Failed to build tree: %v", err)
	}

	if len(tree.Folders) != 2 {
		t.Fatalf("expected 2 root folders, got %d", len(tree.Folders))
	}
	// Path ordering keeps roots alphabetical
	if tree.Folders[0].Name != "archive" || tree.Folders[1].Name != "docs" {
		t.Errorf("expected [archive docs], got [%s %s]", tree.Folders[0].Name, tree.Folders[1].Name)
	}

	docsNode := tree.Folders[1]
	if len(docsNode.Folders) != 1 || docsNode.Folders[0].Name != "reports" {
		t.Fatalf("expected docs to nest reports, got %v", docsNode.Folders)
	}
	if len(docsNode.Folders[0].Files) != 1 || docsNode.Folders[0].Files[0].Name != "q1.pdf" {
		t.Errorf("expected q1.pdf inside reports, got %v", docsNode.Folders[0].Files)
	}

	if len(tree.Files) != 1 || tree.Files[0].Name != "readme.md" {
		t.Errorf("expected only readme.md at root, got %v", tree.Files)
	}
}

func TestListTrash(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	proj := env.mustCreateFolder(t, "proj", nil)
	src := env.mustCreateFolder(t, "src", &proj.ID)
	env.mustCreateFile(t, "main.go", &src.ID)

	if _, err := env.folders.DeleteFolder(ctx, env.owner, proj.ID); err != nil {
		t.Fatalf("Failed to delete folder: %v", err)
	}

	loose := env.mustCreateFile(t, "loose.txt", nil)
	if _, err := env.files.DeleteFile(ctx, env.owner, loose.ID); err != nil {
		t.Fatalf("Failed to delete file: %v", err)
	}

	entries, err := env.tree.ListTrash(ctx, env.owner)
	if err != nil {
		t.Fatalf("Failed to list trash: %v", err)
	}

	// Only batch roots show; src and main.go hide behind proj
	if len(entries) != 2 {
		t.Fatalf("expected 2 trash entries, got %d (%v)", len(entries), entries)
	}
	// Most recently deleted first
	if entries[0].Name != "loose.txt" || entries[0].Type != "file" {
		t.Errorf("expected loose.txt first, got %s %s", entries[0].Type, entries[0].Name)
	}
	if entries[1].Name != "proj" || entries[1].Type != "folder" {
		t.Errorf("expected proj second, got %s %s", entries[1].Type, entries[1].Name)
	}
}

func TestTrashPathsStayFrozen(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	parent := env.mustCreateFolder(t, "parent", nil)
	child := env.mustCreateFolder(t, "child", &parent.ID)

	if _, err := env.folders.DeleteFolder(ctx, env.owner, child.ID); err != nil {
		t.Fatalf("Failed to delete child: %v", err)
	}
	if _, err := env.folders.RenameFolder(ctx, env.owner, parent.ID, &services.RenameFolderRequest{Name: "renamed"}); err != nil {
		t.Fatalf("Failed to rename parent: %v", err)
	}

	// The trash keeps the path from deletion time
	entries, err := env.tree.ListTrash(ctx, env.owner)
	if err != nil {
		t.Fatalf("Failed to list trash: %v", err)
	}
	if len(entries) != 1 || entries[0].Path != "parent/child" {
		t.Fatalf("expected frozen path 'parent/child', got %v", entries)
	}

	// A restore recomputes against the live tree
	if _, err := env.folders.RestoreFolder(ctx, env.owner, child.ID); err != nil {
		t.Fatalf("Failed to restore child: %v", err)
	}
	if got := env.getFolder(t, child.ID).Path; got != "renamed/child" {
		t.Errorf("expected recomputed path 'renamed/child', got %q", got)
	}

	env.mustCheckIntegrity(t)
}

func TestTreeIsolatedPerOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mustCreateFolder(t, "mine", nil)
	env.mustCreateFile(t, "mine.txt", nil)

	other := uuid.New()
	tree, err := env.tree.GetTree(ctx, other)
	if err != nil {
		t.Fatalf("Failed to build tree: %v", err)
	}
	if len(tree.Folders) != 0 || len(tree.Files) != 0 {
		t.Errorf("expected an empty tree for another owner, got %d folders and %d files", len(tree.Folders), len(tree.Files))
	}

	trash, err := env.tree.ListTrash(ctx, other)
	if err != nil {
		t.Fatalf("Failed to list trash: %v", err)
	}
	if len(trash) != 0 {
		t.Errorf("expected an empty trash for another owner, got %d entries", len(trash))
	}
}
