package playlist_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/kinship-media/kinship/internal/playlist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeItems(playlistID uuid.UUID, mediaIDs ...uuid.UUID) []playlist.Item {
	items := make([]playlist.Item, len(mediaIDs))
	for i, mediaID := range mediaIDs {
		items[i] = playlist.Item{ID: uuid.New(), PlaylistID: playlistID, MediaID: mediaID, Position: i}
	}

	return items
}

func playableSet(mediaIDs ...uuid.UUID) map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(mediaIDs))
	for _, id := range mediaIDs {
		set[id] = struct{}{}
	}

	return set
}

func Test_Reconcile_NoopWhenAllPlayable(t *testing.T) {
	mediaA, mediaB, mediaC := uuid.New(), uuid.New(), uuid.New()
	list := &playlist.Playlist{ID: uuid.New(), CurrentIndex: 1, CurrentProgress: 0.42}
	items := makeItems(list.ID, mediaA, mediaB, mediaC)

	outcome := playlist.Reconcile(list, items, playableSet(mediaA, mediaB, mediaC))

	assert.False(t, outcome.Changed)
	assert.False(t, outcome.ArtworkStale)
	assert.Empty(t, outcome.Removed)
	assert.Equal(t, items, outcome.Items)
	assert.Equal(t, 1, outcome.CurrentIndex)
	assert.Equal(t, 0.42, outcome.CurrentProgress)
}

func Test_Reconcile_DropsAndRenumbers(t *testing.T) {
	mediaA, mediaB, mediaC, mediaD := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	list := &playlist.Playlist{ID: uuid.New()}
	items := makeItems(list.ID, mediaA, mediaB, mediaC, mediaD)

	outcome := playlist.Reconcile(list, items, playableSet(mediaA, mediaC))

	require.Len(t, outcome.Items, 2)
	assert.Equal(t, mediaA, outcome.Items[0].MediaID)
	assert.Equal(t, mediaC, outcome.Items[1].MediaID)
	assert.Equal(t, 0, outcome.Items[0].Position)
	assert.Equal(t, 1, outcome.Items[1].Position)

	require.Len(t, outcome.Removed, 2)
	assert.Equal(t, mediaB, outcome.Removed[0].MediaID)
	assert.Equal(t, mediaD, outcome.Removed[1].MediaID)

	assert.True(t, outcome.Changed)
	assert.True(t, outcome.ArtworkStale)
}

func Test_Reconcile_SortsByStoredPositionFirst(t *testing.T) {
	mediaA, mediaB := uuid.New(), uuid.New()
	list := &playlist.Playlist{ID: uuid.New()}
	items := []playlist.Item{
		{ID: uuid.New(), PlaylistID: list.ID, MediaID: mediaB, Position: 5},
		{ID: uuid.New(), PlaylistID: list.ID, MediaID: mediaA, Position: 2},
	}

	outcome := playlist.Reconcile(list, items, playableSet(mediaA, mediaB))

	require.Len(t, outcome.Items, 2)
	assert.Equal(t, mediaA, outcome.Items[0].MediaID)
	assert.Equal(t, mediaB, outcome.Items[1].MediaID)

	// Positions were sparse, so renumbering counts as a change.
	assert.True(t, outcome.Changed)
	assert.True(t, outcome.ArtworkStale)
}

func Test_Reconcile_CurrentPointer(t *testing.T) {
	mediaA, mediaB, mediaC := uuid.New(), uuid.New(), uuid.New()

	t.Run("follows surviving item to new position", func(t *testing.T) {
		list := &playlist.Playlist{ID: uuid.New(), CurrentIndex: 2, CurrentProgress: 0.8}
		items := makeItems(list.ID, mediaA, mediaB, mediaC)

		outcome := playlist.Reconcile(list, items, playableSet(mediaA, mediaC))

		assert.Equal(t, 1, outcome.CurrentIndex)
		assert.Equal(t, 0.8, outcome.CurrentProgress)
	})

	t.Run("resets when current item removed", func(t *testing.T) {
		list := &playlist.Playlist{ID: uuid.New(), CurrentIndex: 1, CurrentProgress: 0.8}
		items := makeItems(list.ID, mediaA, mediaB, mediaC)

		outcome := playlist.Reconcile(list, items, playableSet(mediaA, mediaC))

		assert.Equal(t, 0, outcome.CurrentIndex)
		assert.Equal(t, float64(0), outcome.CurrentProgress)
	})

	t.Run("resets when every item removed", func(t *testing.T) {
		list := &playlist.Playlist{ID: uuid.New(), CurrentIndex: 2, CurrentProgress: 0.5}
		items := makeItems(list.ID, mediaA, mediaB, mediaC)

		outcome := playlist.Reconcile(list, items, playableSet())

		assert.Empty(t, outcome.Items)
		assert.Len(t, outcome.Removed, 3)
		assert.Equal(t, 0, outcome.CurrentIndex)
		assert.Equal(t, float64(0), outcome.CurrentProgress)
		assert.True(t, outcome.Changed)
	})

	t.Run("empty playlist is a noop", func(t *testing.T) {
		list := &playlist.Playlist{ID: uuid.New()}

		outcome := playlist.Reconcile(list, nil, playableSet())

		assert.False(t, outcome.Changed)
		assert.False(t, outcome.ArtworkStale)
		assert.Empty(t, outcome.Items)
	})
}

// Applying the reconciler to its own persisted output must report no
// further changes.
func Test_Reconcile_Idempotent(t *testing.T) {
	mediaIDs := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	list := &playlist.Playlist{ID: uuid.New(), CurrentIndex: 3, CurrentProgress: 0.25}
	items := makeItems(list.ID, mediaIDs...)
	playable := playableSet(mediaIDs[0], mediaIDs[2], mediaIDs[3])

	first := playlist.Reconcile(list, items, playable)
	require.True(t, first.Changed)

	settled := &playlist.Playlist{
		ID:              list.ID,
		CurrentIndex:    first.CurrentIndex,
		CurrentProgress: first.CurrentProgress,
	}
	second := playlist.Reconcile(settled, first.Items, playable)

	assert.False(t, second.Changed)
	assert.False(t, second.ArtworkStale)
	assert.Empty(t, second.Removed)
	assert.Equal(t, first.Items, second.Items)
	assert.Equal(t, first.CurrentIndex, second.CurrentIndex)
}

func Test_Reconcile_ProgressOnlyChange(t *testing.T) {
	mediaA := uuid.New()
	list := &playlist.Playlist{ID: uuid.New(), CurrentIndex: 4, CurrentProgress: 0.9}
	items := makeItems(list.ID, mediaA)

	// Stored pointer is out of range for the item count; the pointer
	// reset alone must mark the outcome as changed even though no item
	// moved or dropped.
	outcome := playlist.Reconcile(list, items, playableSet(mediaA))

	assert.True(t, outcome.Changed)
	assert.False(t, outcome.ArtworkStale)
	assert.Equal(t, 0, outcome.CurrentIndex)
	assert.Equal(t, float64(0), outcome.CurrentProgress)
}
