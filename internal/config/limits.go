package config

const (
	// MaxFolderNameLength is the maximum length for folder names.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255) and provide
	// reasonable UX (names should be short and descriptive).
	MaxFolderNameLength = 255

	// MaxFileNameLength is the maximum length for file names.
	// Same as folder names for consistency.
	MaxFileNameLength = 255

	// DefaultMaxSubtreeSize bounds how many entries (folders plus files) a
	// single move or delete may touch. Operations over the bound are
	// rejected before any row is written. Overridable via MAX_SUBTREE_SIZE.
	DefaultMaxSubtreeSize = 10000
)
