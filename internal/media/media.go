package media

import (
	"time"

	"github.com/google/uuid"
	"github.com/kinship-media/kinship/internal/rating"
)

type (
	Kind string

	// Library is an account-owned collection of media entries. Sharing
	// of a library (to profiles of the same account, or to friendships
	// with other accounts) is managed by the social package; the library
	// itself only knows its owner.
	Library struct {
		ID        uuid.UUID `db:"id"`
		AccountID uuid.UUID `db:"account_id"`
		Title     string    `db:"title"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}

	// Entry is a single piece of media inside a library. Episodes carry
	// a LinkedToID pointing at their parent series and inherit the series
	// library, rating and override context for entitlement purposes.
	Entry struct {
		ID          uuid.UUID          `db:"id"`
		LibraryID   uuid.UUID          `db:"library_id"`
		Kind        Kind               `db:"kind"`
		Title       string             `db:"title"`
		LinkedToID  *uuid.UUID         `db:"linked_to_id"`
		MovieRating rating.MovieRating `db:"movie_rating"`
		TVRating    rating.TVRating    `db:"tv_rating"`
		SourcePath  *string            `db:"source_path"`
		CreatedAt   time.Time          `db:"created_at"`
		UpdatedAt   time.Time          `db:"updated_at"`
	}

	// Candidate is the storage layer's input contract to the entitlement
	// evaluator: one media entry with its effective context already
	// resolved. For an episode the TitleID, LibraryID and ratings are
	// those of its parent series; for everything else they are its own.
	Candidate struct {
		MediaID     uuid.UUID          `db:"media_id"`
		TitleID     uuid.UUID          `db:"title_id"`
		LibraryID   uuid.UUID          `db:"library_id"`
		Kind        Kind               `db:"kind"`
		Title       string             `db:"title"`
		MovieRating rating.MovieRating `db:"movie_rating"`
		TVRating    rating.TVRating    `db:"tv_rating"`
	}
)

const (
	MovieKind   Kind = "movie"
	SeriesKind  Kind = "series"
	EpisodeKind Kind = "episode"
)

// ResolveCandidate performs the effective-context resolution step for a
// single entry ahead of classification. The parent must be supplied for
// episodes (it is the linked series); it is ignored for any other kind.
// An episode whose parent cannot be supplied resolves against itself,
// which leaves it unreachable through any library set and therefore
// classifies as denied - dangling links fail closed.
func ResolveCandidate(entry Entry, parent *Entry) Candidate {
	candidate := Candidate{
		MediaID:     entry.ID,
		TitleID:     entry.ID,
		LibraryID:   entry.LibraryID,
		Kind:        entry.Kind,
		Title:       entry.Title,
		MovieRating: entry.MovieRating,
		TVRating:    entry.TVRating,
	}

	if entry.Kind == EpisodeKind && parent != nil {
		candidate.TitleID = parent.ID
		candidate.LibraryID = parent.LibraryID
		candidate.MovieRating = parent.MovieRating
		candidate.TVRating = parent.TVRating
	}

	return candidate
}
