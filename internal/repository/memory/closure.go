package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"cabinet/internal/domain/models"
	"cabinet/internal/domain/repositories"
)

// ClosureRepository implements repositories.ClosureRepository over the store
type ClosureRepository struct {
	store *Store
}

// NewClosureRepository creates a closure repository over the store
func NewClosureRepository(store *Store) repositories.ClosureRepository {
	return &ClosureRepository{store: store}
}

// InsertForNewFolder writes the reflexive entry and copies the parent's
// ancestor chain with depth incremented
func (r *ClosureRepository) InsertForNewFolder(ctx context.Context, folderID uuid.UUID, parentID *uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.closure[closureKey{ancestor: folderID, descendant: folderID}] = 0

	if parentID == nil {
		return nil
	}

	parentChain := make(map[uuid.UUID]int)
	for key, depth := range r.store.closure {
		if key.descendant == *parentID {
			parentChain[key.ancestor] = depth
		}
	}
	for ancestor, depth := range parentChain {
		r.store.closure[closureKey{ancestor: ancestor, descendant: folderID}] = depth + 1
	}

	return nil
}

// Relink rewires folderID's subtree under newParentID
func (r *ClosureRepository) Relink(ctx context.Context, folderID uuid.UUID, newParentID *uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	// Snapshot the subtree before touching anything
	subtree := make(map[uuid.UUID]int)
	for key, depth := range r.store.closure {
		if key.ancestor == folderID {
			subtree[key.descendant] = depth
		}
	}

	// Remove links from outside ancestors into the subtree
	for key := range r.store.closure {
		_, descendantInside := subtree[key.descendant]
		_, ancestorInside := subtree[key.ancestor]
		if descendantInside && !ancestorInside {
			delete(r.store.closure, key)
		}
	}

	if newParentID == nil {
		return nil
	}

	// Link every new ancestor to every subtree member through the new hop
	newChain := make(map[uuid.UUID]int)
	for key, depth := range r.store.closure {
		if key.descendant == *newParentID {
			newChain[key.ancestor] = depth
		}
	}
	for ancestor, ancestorDepth := range newChain {
		for member, memberDepth := range subtree {
			key := closureKey{ancestor: ancestor, descendant: member}
			if _, exists := r.store.closure[key]; !exists {
				r.store.closure[key] = ancestorDepth + memberDepth + 1
			}
		}
	}

	return nil
}

// ListDescendants returns the subtree members of rootID with depths,
// including rootID itself at depth 0
func (r *ClosureRepository) ListDescendants(ctx context.Context, rootID uuid.UUID, maxDepth *int) ([]models.FolderDepth, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var entries []models.FolderDepth
	for key, depth := range r.store.closure {
		if key.ancestor != rootID {
			continue
		}
		if maxDepth != nil && depth > *maxDepth {
			continue
		}
		entries = append(entries, models.FolderDepth{FolderID: key.descendant, Depth: depth})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Depth != entries[j].Depth {
			return entries[i].Depth < entries[j].Depth
		}
		return entries[i].FolderID.String() < entries[j].FolderID.String()
	})
	return entries, nil
}

// ListAncestors returns folderID's chain with depths, nearest first
func (r *ClosureRepository) ListAncestors(ctx context.Context, folderID uuid.UUID) ([]models.FolderDepth, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var entries []models.FolderDepth
	for key, depth := range r.store.closure {
		if key.descendant == folderID {
			entries = append(entries, models.FolderDepth{FolderID: key.ancestor, Depth: depth})
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Depth < entries[j].Depth })
	return entries, nil
}

// IsDescendant reports whether descendantID sits below ancestorID
func (r *ClosureRepository) IsDescendant(ctx context.Context, ancestorID, descendantID uuid.UUID) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	_, exists := r.store.closure[closureKey{ancestor: ancestorID, descendant: descendantID}]
	return exists, nil
}

// ListByOwner dumps every index row whose descendant belongs to the owner
func (r *ClosureRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.ClosureEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var entries []models.ClosureEntry
	for key, depth := range r.store.closure {
		folder, ok := r.store.folders[key.descendant]
		if !ok || folder.OwnerID != ownerID {
			continue
		}
		entries = append(entries, models.ClosureEntry{
			AncestorID:   key.ancestor,
			DescendantID: key.descendant,
			Depth:        depth,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].AncestorID != entries[j].AncestorID {
			return entries[i].AncestorID.String() < entries[j].AncestorID.String()
		}
		return entries[i].DescendantID.String() < entries[j].DescendantID.String()
	})
	return entries, nil
}
