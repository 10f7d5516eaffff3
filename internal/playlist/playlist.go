package playlist

import (
	"time"

	"github.com/google/uuid"
)

type (
	// Playlist is an ordered set of media references owned by one
	// profile. CurrentIndex/CurrentProgress track the item currently
	// playing; ArtworkStale tells the external artwork pipeline that
	// the cover mosaic may no longer match the playlists contents.
	Playlist struct {
		ID              uuid.UUID `db:"id"`
		ProfileID       uuid.UUID `db:"profile_id"`
		Title           string    `db:"title"`
		CurrentIndex    int       `db:"current_index"`
		CurrentProgress float64   `db:"current_progress"`
		ArtworkStale    bool      `db:"artwork_stale"`
		CreatedAt       time.Time `db:"created_at"`
		UpdatedAt       time.Time `db:"updated_at"`
	}

	// Item is one entry of a playlist. Positions form a contiguous
	// 0-based sequence after any successful reconciliation; the store
	// never promises contiguity in between (user removals leave gaps
	// that the next reconciliation closes).
	Item struct {
		ID         uuid.UUID `db:"id"`
		PlaylistID uuid.UUID `db:"playlist_id"`
		MediaID    uuid.UUID `db:"media_id"`
		Position   int       `db:"position"`
		CreatedAt  time.Time `db:"created_at"`
	}
)
