package hierarchy

import (
	"fmt"
	"strings"

	"cabinet/internal/domain/models"
)

// RenderTree formats an owner's tree with box-drawing characters, the way
// tree(1) prints a directory. Folders come before loose files at every
// level, matching the order GetTree returns. Files carry their size.
//
// Example output:
//
//	.
//	├── Documents/
//	│   └── todo.txt (412 B)
//	└── readme.md (1.0 KB)
func RenderTree(tree *models.TreeNode) string {
	var b strings.Builder
	b.WriteString(".")
	if tree == nil {
		return b.String()
	}

	total := len(tree.Folders) + len(tree.Files)
	for i, folder := range tree.Folders {
		renderFolderNode(&b, folder, "", i == total-1)
	}
	for i, file := range tree.Files {
		renderFileNode(&b, file, "", len(tree.Folders)+i == total-1)
	}
	return b.String()
}

func renderFolderNode(b *strings.Builder, node *models.FolderTreeNode, prefix string, isLast bool) {
	branch := "├── "
	childPrefix := prefix + "│   "
	if isLast {
		branch = "└── "
		childPrefix = prefix + "    "
	}
	fmt.Fprintf(b, "\n%s%s%s/", prefix, branch, node.Name)

	total := len(node.Folders) + len(node.Files)
	for i, child := range node.Folders {
		renderFolderNode(b, child, childPrefix, i == total-1)
	}
	for i, file := range node.Files {
		renderFileNode(b, file, childPrefix, len(node.Folders)+i == total-1)
	}
}

func renderFileNode(b *strings.Builder, file models.FileTreeNode, prefix string, isLast bool) {
	branch := "├── "
	if isLast {
		branch = "└── "
	}
	fmt.Fprintf(b, "\n%s%s%s (%s)", prefix, branch, file.Name, formatSize(file.SizeBytes))
}

// formatSize renders a byte count in the largest fitting unit, one decimal
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
