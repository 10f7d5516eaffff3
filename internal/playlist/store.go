package playlist

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/kinship-media/kinship/internal/database"
)

var (
	ErrPlaylistNotFound = errors.New("playlist does not exist")
	ErrItemNotFound     = errors.New("playlist item does not exist")
)

type Store struct{}

func NewStore() *Store {
	return &Store{}
}

func (store *Store) Create(db database.Queryable, list *Playlist) error {
	if list.ID == uuid.Nil {
		list.ID = uuid.New()
	}

	err := db.Get(list, `
		INSERT INTO playlists(id, profile_id, title, current_index, current_progress, artwork_stale, created_at, updated_at)
		VALUES ($1, $2, $3, 0, 0, false, current_timestamp, current_timestamp)
		RETURNING *
	`, list.ID, list.ProfileID, list.Title)
	if err != nil {
		return fmt.Errorf("failed to insert playlist: %w", err)
	}

	return nil
}

func (store *Store) Get(db database.Queryable, playlistID uuid.UUID) (*Playlist, error) {
	var list Playlist
	if err := db.Get(&list, `SELECT * FROM playlists WHERE id = $1`, playlistID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlaylistNotFound
		}

		return nil, err
	}

	return &list, nil
}

// GetForUpdate loads a playlist row under a row-level lock. All
// reconciliation writes go through this method so two concurrent
// triggers for the same playlist serialise on the row instead of
// interleaving their index updates.
func (store *Store) GetForUpdate(tx *sqlx.Tx, playlistID uuid.UUID) (*Playlist, error) {
	var list Playlist
	if err := tx.Get(&list, `SELECT * FROM playlists WHERE id = $1 FOR UPDATE`, playlistID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlaylistNotFound
		}

		return nil, err
	}

	return &list, nil
}

func (store *Store) ListForProfile(db database.Queryable, profileID uuid.UUID) ([]*Playlist, error) {
	var lists []*Playlist
	if err := db.Select(&lists, `SELECT * FROM playlists WHERE profile_id = $1 ORDER BY created_at`, profileID); err != nil {
		return nil, err
	}

	return lists, nil
}

func (store *Store) Delete(db database.Queryable, playlistID uuid.UUID) error {
	_, err := db.Exec(`DELETE FROM playlists WHERE id = $1`, playlistID)
	return err
}

func (store *Store) Items(db database.Queryable, playlistID uuid.UUID) ([]Item, error) {
	var items []Item
	if err := db.Select(&items, `SELECT * FROM playlist_items WHERE playlist_id = $1 ORDER BY position`, playlistID); err != nil {
		return nil, err
	}

	return items, nil
}

// AddItem appends a media reference to the end of the playlist.
func (store *Store) AddItem(db database.Queryable, playlistID uuid.UUID, mediaID uuid.UUID) (*Item, error) {
	item := &Item{}
	err := db.Get(item, `
		INSERT INTO playlist_items(id, playlist_id, media_id, position, created_at)
		VALUES ($1, $2, $3, (SELECT COALESCE(MAX(position) + 1, 0) FROM playlist_items WHERE playlist_id = $2), current_timestamp)
		RETURNING *
	`, uuid.New(), playlistID, mediaID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert playlist item: %w", err)
	}

	return item, nil
}

// RemoveItem deletes one media reference from the playlist. The
// position gap it leaves behind is closed by the next reconciliation.
func (store *Store) RemoveItem(db database.Queryable, playlistID uuid.UUID, mediaID uuid.UUID) error {
	_, err := db.Exec(`DELETE FROM playlist_items WHERE playlist_id = $1 AND media_id = $2`, playlistID, mediaID)
	return err
}

// Reorder rewrites the playlists positions to match the provided item
// ID ordering. Item IDs not present in the playlist are ignored; items
// missing from the ordering keep their relative order after the ones
// listed.
func (store *Store) Reorder(tx *sqlx.Tx, playlistID uuid.UUID, orderedItemIDs []uuid.UUID) error {
	for position, itemID := range orderedItemIDs {
		if _, err := tx.Exec(`
			UPDATE playlist_items SET position = $1 WHERE playlist_id = $2 AND id = $3
		`, position, playlistID, itemID); err != nil {
			return err
		}
	}

	return nil
}

func (store *Store) SetCurrent(db database.Queryable, playlistID uuid.UUID, index int, progress float64) error {
	_, err := db.Exec(`
		UPDATE playlists SET current_index = $1, current_progress = $2, updated_at = current_timestamp
		WHERE id = $3
	`, index, progress, playlistID)
	return err
}

// ClearArtworkStale is called by the artwork pipeline once it has
// regenerated a playlists cover mosaic.
func (store *Store) ClearArtworkStale(db database.Queryable, playlistID uuid.UUID) error {
	_, err := db.Exec(`UPDATE playlists SET artwork_stale = false WHERE id = $1`, playlistID)
	return err
}

// PersistOutcome writes a reconciliation outcome inside the callers
// transaction: removed items are deleted, surviving items take their
// new positions, and the playlist row absorbs the corrected pointer
// and artwork flag. Callers must skip this entirely when the outcome
// reports no change; redundant writes defeat idempotence.
func (store *Store) PersistOutcome(tx *sqlx.Tx, list *Playlist, outcome Outcome) error {
	if len(outcome.Removed) > 0 {
		removedIDs := make([]uuid.UUID, len(outcome.Removed))
		for k, item := range outcome.Removed {
			removedIDs[k] = item.ID
		}

		if err := database.InExec(tx, `DELETE FROM playlist_items WHERE id IN (?)`, removedIDs); err != nil {
			return fmt.Errorf("failed to delete reconciled-away items: %w", err)
		}
	}

	for _, item := range outcome.Items {
		if _, err := tx.Exec(`UPDATE playlist_items SET position = $1 WHERE id = $2`, item.Position, item.ID); err != nil {
			return fmt.Errorf("failed to renumber playlist item %s: %w", item.ID, err)
		}
	}

	artworkStale := list.ArtworkStale || outcome.ArtworkStale
	_, err := tx.Exec(`
		UPDATE playlists
		SET current_index = $1, current_progress = $2, artwork_stale = $3, updated_at = current_timestamp
		WHERE id = $4
	`, outcome.CurrentIndex, outcome.CurrentProgress, artworkStale, list.ID)
	if err != nil {
		return fmt.Errorf("failed to update playlist %s: %w", list.ID, err)
	}

	return nil
}

// Affected-playlist queries used by trigger resolution. Each returns
// playlist IDs only; the reconciliation service re-reads everything it
// needs under the per-playlist lock.

// AffectedByLibraryForAccounts finds playlists owned by any profile of
// the given accounts whose items reference media whose effective
// library is one of libraryIDs (episodes resolve through their series).
func (store *Store) AffectedByLibraryForAccounts(db database.Queryable, accountIDs []uuid.UUID, libraryIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(accountIDs) == 0 || len(libraryIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		SELECT DISTINCT pl.id
		FROM playlists pl
		JOIN profiles pr ON pr.id = pl.profile_id
		JOIN playlist_items i ON i.playlist_id = pl.id
		JOIN media m ON m.id = i.media_id
		LEFT JOIN media p ON p.id = m.linked_to_id
		WHERE pr.account_id IN (?)
		  AND COALESCE(p.library_id, m.library_id) IN (?)
	`, accountIDs, libraryIDs)
	if err != nil {
		return nil, err
	}

	var ids []uuid.UUID
	if err := db.Select(&ids, db.Rebind(query), args...); err != nil {
		return nil, err
	}

	return ids, nil
}

// AffectedByLibraryForProfile is the profile-share variant: only the
// one profiles playlists can be affected.
func (store *Store) AffectedByLibraryForProfile(db database.Queryable, profileID uuid.UUID, libraryID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := db.Select(&ids, `
		SELECT DISTINCT pl.id
		FROM playlists pl
		JOIN playlist_items i ON i.playlist_id = pl.id
		JOIN media m ON m.id = i.media_id
		LEFT JOIN media p ON p.id = m.linked_to_id
		WHERE pl.profile_id = $1
		  AND COALESCE(p.library_id, m.library_id) = $2
	`, profileID, libraryID)
	if err != nil {
		return nil, err
	}

	return ids, nil
}

// AffectedByTitleForProfile finds the profiles playlists referencing
// the exact title or any of its episodes.
func (store *Store) AffectedByTitleForProfile(db database.Queryable, profileID uuid.UUID, mediaID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := db.Select(&ids, `
		SELECT DISTINCT pl.id
		FROM playlists pl
		JOIN playlist_items i ON i.playlist_id = pl.id
		JOIN media m ON m.id = i.media_id
		WHERE pl.profile_id = $1
		  AND (m.id = $2 OR m.linked_to_id = $2)
	`, profileID, mediaID)
	if err != nil {
		return nil, err
	}

	return ids, nil
}

// AffectedByLibraryAnyProfile finds every playlist, regardless of
// owner, with items in the given library. Used after media deletion,
// where the cascade has already removed item rows and only the
// library context survives in the event payload.
func (store *Store) AffectedByLibraryAnyProfile(db database.Queryable, libraryID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := db.Select(&ids, `
		SELECT DISTINCT pl.id
		FROM playlists pl
		JOIN playlist_items i ON i.playlist_id = pl.id
		JOIN media m ON m.id = i.media_id
		LEFT JOIN media p ON p.id = m.linked_to_id
		WHERE COALESCE(p.library_id, m.library_id) = $1
	`, libraryID)
	if err != nil {
		return nil, err
	}

	return ids, nil
}
