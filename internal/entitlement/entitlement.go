// Package entitlement decides what a viewing profile may see and play.
//
// The evaluator is a pure function over an immutable Snapshot of the
// relationship data (library ownership, accepted friend shares, profile
// shares and per-title overrides). Callers load the snapshot up front,
// then classify any number of candidates without further I/O; the same
// snapshot is safe to share across goroutines.
package entitlement

import (
	"github.com/google/uuid"
	"github.com/kinship-media/kinship/internal/media"
	"github.com/kinship-media/kinship/internal/rating"
)

type (
	Classification int

	// Override is a per-profile, per-title exception. Allow grants
	// access unconditionally; Block revokes access that would otherwise
	// arrive through ownership, friend-sharing or the rating-gated
	// profile-share path. Overrides never stack: a Block on one title
	// cannot cancel an Allow on a different title.
	Override int

	// Snapshot carries every fact the evaluator needs about one
	// profile. Library sets and the override map are keyed so each
	// candidate classifies in O(1); overrides are keyed by the
	// parent-resolved title ID (a series' override covers its
	// episodes, and overrides are never written against episodes).
	Snapshot struct {
		ProfileID    uuid.UUID
		IsMain       bool
		MovieCeiling rating.MovieRating
		TVCeiling    rating.TVRating

		OwnedLibraries  map[uuid.UUID]struct{}
		FriendLibraries map[uuid.UUID]struct{}
		SharedLibraries map[uuid.UUID]struct{}
		Overrides       map[uuid.UUID]Override
	}
)

const (
	Denied Classification = iota
	Visible
	Playable
)

const (
	NoOverride Override = iota
	Allow
	Block
)

func (c Classification) String() string {
	return []string{"denied", "visible", "playable"}[c]
}

// NewSnapshot assembles a snapshot from the raw facts the storage
// layer provides. Slices are collapsed into sets once, here, so that
// classification never iterates them.
func NewSnapshot(
	profileID uuid.UUID,
	isMain bool,
	movieCeiling rating.MovieRating,
	tvCeiling rating.TVRating,
	ownedLibraries []uuid.UUID,
	friendLibraries []uuid.UUID,
	sharedLibraries []uuid.UUID,
	overrides map[uuid.UUID]Override,
) *Snapshot {
	if overrides == nil {
		overrides = map[uuid.UUID]Override{}
	}

	return &Snapshot{
		ProfileID:       profileID,
		IsMain:          isMain,
		MovieCeiling:    movieCeiling,
		TVCeiling:       tvCeiling,
		OwnedLibraries:  toSet(ownedLibraries),
		FriendLibraries: toSet(friendLibraries),
		SharedLibraries: toSet(sharedLibraries),
		Overrides:       overrides,
	}
}

// Classify maps a candidate to Denied, Visible or Playable for this
// snapshots profile. Visible means the title may appear in search and
// browse surfaces that use the discovery variant, but its stream must
// not be exposed.
func (snap *Snapshot) Classify(candidate *media.Candidate) Classification {
	if snap.IsPlayable(candidate) {
		return Playable
	}
	if snap.IsSearchable(candidate) {
		return Visible
	}

	return Denied
}

// IsPlayable is the strict variant of the classifier: the rating gate
// applies on the profile-share path and a Block override suppresses
// every grant except an explicit Allow. First match wins:
//
//  1. Allow override - playable, regardless of library reachability
//     or ratings. The only path that can reach entirely unshared
//     content.
//  2. Library owned by the profiles account - playable unless Blocked.
//     Ownership is account-wide, so every profile of the owning
//     account takes this branch.
//  3. Library reached via an accepted friendship - main profile only,
//     not rating gated - playable unless Blocked.
//  4. Direct profile-library share, rating ceiling permitting -
//     playable unless Blocked.
//  5. Otherwise denied.
func (snap *Snapshot) IsPlayable(candidate *media.Candidate) bool {
	override := snap.Overrides[candidate.TitleID]
	if override == Allow {
		return true
	}

	if _, owned := snap.OwnedLibraries[candidate.LibraryID]; owned {
		return override != Block
	}

	if _, viaFriend := snap.FriendLibraries[candidate.LibraryID]; viaFriend && snap.IsMain {
		return override != Block
	}

	if _, shared := snap.SharedLibraries[candidate.LibraryID]; shared && snap.ceilingAllows(candidate) {
		return override != Block
	}

	return false
}

// IsSearchable is the discovery variant: same reachability tests, but
// the rating gate on the profile-share path is dropped and Block
// overrides are ignored. Used by admin listings and text search where
// surfacing a title the profile cannot play is acceptable.
func (snap *Snapshot) IsSearchable(candidate *media.Candidate) bool {
	if snap.Overrides[candidate.TitleID] == Allow {
		return true
	}

	if _, owned := snap.OwnedLibraries[candidate.LibraryID]; owned {
		return true
	}

	if _, viaFriend := snap.FriendLibraries[candidate.LibraryID]; viaFriend && snap.IsMain {
		return true
	}

	_, shared := snap.SharedLibraries[candidate.LibraryID]
	return shared
}

// ceilingAllows applies the rating scale appropriate to the
// candidates kind. Episodes carry their series' rating already
// (candidate resolution), so both episodic kinds check the TV ceiling.
func (snap *Snapshot) ceilingAllows(candidate *media.Candidate) bool {
	if candidate.Kind == media.MovieKind {
		return snap.MovieCeiling.Allows(candidate.MovieRating)
	}

	return snap.TVCeiling.Allows(candidate.TVRating)
}

func toSet(ids []uuid.UUID) map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}

	return set
}
