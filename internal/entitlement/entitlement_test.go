package entitlement_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/kinship-media/kinship/internal/entitlement"
	"github.com/kinship-media/kinship/internal/media"
	"github.com/kinship-media/kinship/internal/rating"
	"github.com/stretchr/testify/assert"
)

var (
	ownedLibrary    = uuid.New()
	friendLibrary   = uuid.New()
	sharedLibrary   = uuid.New()
	unsharedLibrary = uuid.New()
)

func newSnapshot(isMain bool, movieCeiling rating.MovieRating, tvCeiling rating.TVRating, overrides map[uuid.UUID]entitlement.Override) *entitlement.Snapshot {
	return entitlement.NewSnapshot(
		uuid.New(), isMain, movieCeiling, tvCeiling,
		[]uuid.UUID{ownedLibrary},
		[]uuid.UUID{friendLibrary},
		[]uuid.UUID{sharedLibrary},
		overrides,
	)
}

func movieIn(library uuid.UUID, contentRating rating.MovieRating) *media.Candidate {
	id := uuid.New()
	return &media.Candidate{
		MediaID:     id,
		TitleID:     id,
		LibraryID:   library,
		Kind:        media.MovieKind,
		Title:       "some movie",
		MovieRating: contentRating,
	}
}

func Test_Classify_GrantPaths(t *testing.T) {
	tests := []struct {
		summary  string
		isMain   bool
		library  uuid.UUID
		rating   rating.MovieRating
		expected entitlement.Classification
	}{
		{"owned library is playable for main profile", true, ownedLibrary, rating.MovieNC17, entitlement.Playable},
		{"owned library ignores the rating ceiling", false, ownedLibrary, rating.MovieNC17, entitlement.Playable},
		{"friend share is playable for main profile", true, friendLibrary, rating.MovieNC17, entitlement.Playable},
		{"friend share is invisible to secondary profiles", false, friendLibrary, rating.MovieG, entitlement.Denied},
		{"profile share within ceiling is playable", false, sharedLibrary, rating.MoviePG13, entitlement.Playable},
		{"profile share above ceiling is visible only", false, sharedLibrary, rating.MovieR, entitlement.Visible},
		{"unshared library is denied", true, unsharedLibrary, rating.MovieG, entitlement.Denied},
	}

	for _, test := range tests {
		t.Run(test.summary, func(t *testing.T) {
			snap := newSnapshot(test.isMain, rating.MoviePG13, rating.TVPG, nil)
			assert.Equal(t, test.expected, snap.Classify(movieIn(test.library, test.rating)))
		})
	}
}

func Test_Classify_OverridePrecedence(t *testing.T) {
	t.Run("allow reaches entirely unshared content", func(t *testing.T) {
		candidate := movieIn(unsharedLibrary, rating.MovieNC17)
		snap := newSnapshot(false, rating.MovieG, rating.TVY,
			map[uuid.UUID]entitlement.Override{candidate.TitleID: entitlement.Allow})

		assert.Equal(t, entitlement.Playable, snap.Classify(candidate))
	})

	t.Run("allow bypasses the rating ceiling on a share", func(t *testing.T) {
		candidate := movieIn(sharedLibrary, rating.MovieR)
		snap := newSnapshot(false, rating.MoviePG, rating.TVPG,
			map[uuid.UUID]entitlement.Override{candidate.TitleID: entitlement.Allow})

		assert.Equal(t, entitlement.Playable, snap.Classify(candidate))
	})

	t.Run("block suppresses ownership", func(t *testing.T) {
		candidate := movieIn(ownedLibrary, rating.MovieG)
		snap := newSnapshot(true, rating.AllMovies, rating.AllTV,
			map[uuid.UUID]entitlement.Override{candidate.TitleID: entitlement.Block})

		assert.False(t, snap.IsPlayable(candidate))
	})

	t.Run("block suppresses a friend share", func(t *testing.T) {
		candidate := movieIn(friendLibrary, rating.MovieG)
		snap := newSnapshot(true, rating.AllMovies, rating.AllTV,
			map[uuid.UUID]entitlement.Override{candidate.TitleID: entitlement.Block})

		assert.False(t, snap.IsPlayable(candidate))
	})

	t.Run("block on one title does not affect another", func(t *testing.T) {
		blocked := movieIn(ownedLibrary, rating.MovieG)
		other := movieIn(ownedLibrary, rating.MovieG)
		snap := newSnapshot(true, rating.AllMovies, rating.AllTV,
			map[uuid.UUID]entitlement.Override{blocked.TitleID: entitlement.Block})

		assert.True(t, snap.IsPlayable(other))
	})
}

func Test_IsSearchable_DiscoveryVariant(t *testing.T) {
	t.Run("ignores block overrides", func(t *testing.T) {
		candidate := movieIn(ownedLibrary, rating.MovieG)
		snap := newSnapshot(true, rating.AllMovies, rating.AllTV,
			map[uuid.UUID]entitlement.Override{candidate.TitleID: entitlement.Block})

		assert.True(t, snap.IsSearchable(candidate))
		assert.Equal(t, entitlement.Visible, snap.Classify(candidate))
	})

	t.Run("drops the rating gate on profile shares", func(t *testing.T) {
		candidate := movieIn(sharedLibrary, rating.MovieNC17)
		snap := newSnapshot(false, rating.MovieG, rating.TVY, nil)

		assert.True(t, snap.IsSearchable(candidate))
		assert.False(t, snap.IsPlayable(candidate))
	})

	t.Run("still requires reachability", func(t *testing.T) {
		snap := newSnapshot(true, rating.AllMovies, rating.AllTV, nil)
		assert.False(t, snap.IsSearchable(movieIn(unsharedLibrary, rating.MovieG)))
	})

	t.Run("still excludes friend shares for secondary profiles", func(t *testing.T) {
		snap := newSnapshot(false, rating.AllMovies, rating.AllTV, nil)
		assert.False(t, snap.IsSearchable(movieIn(friendLibrary, rating.MovieG)))
	})
}

// An episode inherits its library, rating and override key from the
// parent series via candidate resolution, so a series-level override or
// the TV ceiling governs every episode.
func Test_Classify_EpisodeUsesParentContext(t *testing.T) {
	seriesID := uuid.New()
	parent := media.Entry{ID: seriesID, LibraryID: sharedLibrary, Kind: media.SeriesKind, Title: "a series", TVRating: rating.TVMA}
	episode := media.Entry{ID: uuid.New(), LibraryID: uuid.New(), Kind: media.EpisodeKind, Title: "s01e01", LinkedToID: &seriesID}

	candidate := media.ResolveCandidate(episode, &parent)
	assert.Equal(t, episode.ID, candidate.MediaID)
	assert.Equal(t, seriesID, candidate.TitleID)
	assert.Equal(t, sharedLibrary, candidate.LibraryID)

	t.Run("episode gated by series TV rating", func(t *testing.T) {
		snap := newSnapshot(false, rating.AllMovies, rating.TVPG, nil)
		assert.Equal(t, entitlement.Visible, snap.Classify(&candidate))

		relaxed := newSnapshot(false, rating.AllMovies, rating.TVMA, nil)
		assert.Equal(t, entitlement.Playable, relaxed.Classify(&candidate))
	})

	t.Run("series block covers its episodes", func(t *testing.T) {
		snap := newSnapshot(false, rating.AllMovies, rating.TVMA,
			map[uuid.UUID]entitlement.Override{seriesID: entitlement.Block})
		assert.False(t, snap.IsPlayable(&candidate))
	})

	t.Run("dangling episode link fails closed", func(t *testing.T) {
		orphan := media.ResolveCandidate(episode, nil)
		snap := newSnapshot(true, rating.AllMovies, rating.AllTV, nil)
		assert.Equal(t, entitlement.Denied, snap.Classify(&orphan))
	})
}

func Test_Partition_SplitsCandidates(t *testing.T) {
	playable := movieIn(ownedLibrary, rating.MovieG)
	visible := movieIn(sharedLibrary, rating.MovieR)
	denied := movieIn(unsharedLibrary, rating.MovieG)
	snap := newSnapshot(false, rating.MoviePG, rating.TVPG, nil)

	sets := snap.Partition([]*media.Candidate{playable, visible, denied})
	assert.Equal(t, []*media.Candidate{playable}, sets.Playable)
	assert.Equal(t, []*media.Candidate{visible}, sets.VisibleOnly)
	assert.Equal(t, []*media.Candidate{denied}, sets.Denied)
}

func Test_PlayableIDs_ShapeForReconciliation(t *testing.T) {
	playable := movieIn(ownedLibrary, rating.MovieG)
	visible := movieIn(sharedLibrary, rating.MovieR)
	snap := newSnapshot(false, rating.MoviePG, rating.TVPG, nil)

	ids := snap.PlayableIDs([]*media.Candidate{playable, visible})
	assert.Contains(t, ids, playable.MediaID)
	assert.NotContains(t, ids, visible.MediaID)
}
