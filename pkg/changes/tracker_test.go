package changes

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapStore struct {
	mu   sync.Mutex
	docs map[string]string
	err  error
}

func newMapStore() *mapStore {
	return &mapStore{docs: map[string]string{}}
}

func (s *mapStore) Get(_ context.Context, id string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", false, s.err
	}
	v, ok := s.docs[id]
	return v, ok, nil
}

func (s *mapStore) Set(_ context.Context, id, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[id] = content
	return nil
}

func (s *mapStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	return nil
}

func TestTracker_AnalyzeChanges(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(newMapStore())

	first, err := tracker.AnalyzeChanges(ctx, "doc-1", "hello world")
	require.NoError(t, err)
	assert.Equal(t, ChangeSetInitial, first.Type)
	assert.Empty(t, first.Changes)
	assert.Equal(t, 11, first.Length)

	second, err := tracker.AnalyzeChanges(ctx, "doc-1", "hello brave world")
	require.NoError(t, err)
	assert.Equal(t, ChangeSetUpdate, second.Type)
	require.Len(t, second.Changes, 1)
	assert.Equal(t, EditInsert, second.Changes[0].Type)
	assert.Equal(t, 6, second.Changes[0].OldStart)
	assert.Equal(t, 6, second.Changes[0].Delta)

	same, err := tracker.AnalyzeChanges(ctx, "doc-1", "hello brave world")
	require.NoError(t, err)
	assert.Equal(t, ChangeSetUpdate, same.Type)
	assert.Empty(t, same.Changes)

	latest, found, err := tracker.Snapshot(ctx, "doc-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "hello brave world", latest)
}

func TestTracker_DocumentsAreIndependent(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(newMapStore())

	_, err := tracker.AnalyzeChanges(ctx, "a", "one")
	require.NoError(t, err)

	set, err := tracker.AnalyzeChanges(ctx, "b", "two")
	require.NoError(t, err)
	assert.Equal(t, ChangeSetInitial, set.Type)
}

func TestTracker_Forget(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(newMapStore())

	_, err := tracker.AnalyzeChanges(ctx, "doc", "v1")
	require.NoError(t, err)
	require.NoError(t, tracker.Forget(ctx, "doc"))

	set, err := tracker.AnalyzeChanges(ctx, "doc", "v2")
	require.NoError(t, err)
	assert.Equal(t, ChangeSetInitial, set.Type)
}

func TestTracker_StoreError(t *testing.T) {
	store := newMapStore()
	store.err = errors.New("unavailable")
	tracker := NewTracker(store)

	_, err := tracker.AnalyzeChanges(context.Background(), "doc", "text")
	assert.ErrorIs(t, err, store.err)
}
