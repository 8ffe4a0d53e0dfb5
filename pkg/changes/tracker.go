package changes

import (
	"context"
	"fmt"
	"sync"
	"unicode/utf8"
)

// ChangeSetType tells whether a document was seen for the first time.
type ChangeSetType string

const (
	ChangeSetInitial ChangeSetType = "initial"
	ChangeSetUpdate  ChangeSetType = "update"
)

// ChangeSet is the outcome of comparing a document with its last version.
type ChangeSet struct {
	Type       ChangeSetType  `json:"type"`
	DocumentID string         `json:"document_id"`
	Changes    []DocumentEdit `json:"changes"`
	Length     int            `json:"length"`
}

// SnapshotStore keeps the last seen version of every tracked document.
type SnapshotStore interface {
	Get(ctx context.Context, documentID string) (string, bool, error)
	Set(ctx context.Context, documentID, content string) error
	Delete(ctx context.Context, documentID string) error
}

// Tracker turns successive document versions into edits.
type Tracker struct {
	store SnapshotStore
	mu    sync.Mutex
}

func NewTracker(store SnapshotStore) *Tracker {
	return &Tracker{store: store}
}

// AnalyzeChanges compares content with the stored version of the document
// and remembers content as the new version.
func (t *Tracker) AnalyzeChanges(ctx context.Context, documentID, content string) (*ChangeSet, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	previous, found, err := t.store.Get(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", documentID, err)
	}
	if err := t.store.Set(ctx, documentID, content); err != nil {
		return nil, fmt.Errorf("save snapshot %s: %w", documentID, err)
	}

	set := &ChangeSet{
		DocumentID: documentID,
		Changes:    []DocumentEdit{},
		Length:     utf8.RuneCountInString(content),
	}
	if !found {
		set.Type = ChangeSetInitial
		return set, nil
	}

	set.Type = ChangeSetUpdate
	if edit, changed := Diff(previous, content); changed {
		set.Changes = append(set.Changes, edit)
	}
	return set, nil
}

// Snapshot returns the last known version of a document.
func (t *Tracker) Snapshot(ctx context.Context, documentID string) (string, bool, error) {
	return t.store.Get(ctx, documentID)
}

// Forget drops the stored version; the next AnalyzeChanges is initial again.
func (t *Tracker) Forget(ctx context.Context, documentID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.Delete(ctx, documentID)
}
