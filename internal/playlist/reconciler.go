package playlist

import (
	"sort"

	"github.com/google/uuid"
)

// Outcome describes the result of reconciling one playlist against
// the profiles current playable set. It is a pure value; persistence
// of the outcome is the stores job.
type Outcome struct {
	// Items holds the surviving items, renumbered to a contiguous
	// 0-based sequence in their original relative order.
	Items []Item

	// Removed holds the items dropped because their media is no longer
	// playable, in ascending stored-position order.
	Removed []Item

	CurrentIndex    int
	CurrentProgress float64

	// ArtworkStale is true when any item was removed or renumbered,
	// meaning the playlists cover mosaic may no longer be accurate.
	ArtworkStale bool

	// Changed is true when persisting the outcome would alter stored
	// state. Running the reconciler again immediately after a persisted
	// outcome always yields Changed == false.
	Changed bool
}

// Reconcile computes the corrected ordering for a playlist given the
// set of media IDs its profile may currently play.
//
// Items are defensively sorted by stored position first (storage order
// is not guaranteed), non-playable items are dropped in ascending
// position order, and survivors are renumbered with their relative
// order preserved. The currently-playing pointer follows its item to
// the items new position; if the item did not survive, the pointer
// fails safe to the top of the playlist with progress cleared.
func Reconcile(list *Playlist, items []Item, playable map[uuid.UUID]struct{}) Outcome {
	sorted := make([]Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

	outcome := Outcome{
		Items:           make([]Item, 0, len(sorted)),
		CurrentIndex:    list.CurrentIndex,
		CurrentProgress: list.CurrentProgress,
	}

	currentSurvived := false
	renumbered := false

	for _, item := range sorted {
		if _, ok := playable[item.MediaID]; !ok {
			outcome.Removed = append(outcome.Removed, item)
			continue
		}

		oldPosition := item.Position
		item.Position = len(outcome.Items)
		if item.Position != oldPosition {
			renumbered = true
		}

		if oldPosition == list.CurrentIndex {
			currentSurvived = true
			outcome.CurrentIndex = item.Position
		}

		outcome.Items = append(outcome.Items, item)
	}

	if !currentSurvived {
		outcome.CurrentIndex = 0
		outcome.CurrentProgress = 0
	}

	outcome.ArtworkStale = renumbered || len(outcome.Removed) > 0
	outcome.Changed = outcome.ArtworkStale ||
		outcome.CurrentIndex != list.CurrentIndex ||
		outcome.CurrentProgress != list.CurrentProgress

	return outcome
}
