package social

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kinship-media/kinship/internal/database"
	"github.com/kinship-media/kinship/internal/entitlement"
)

var (
	ErrFriendshipNotFound = errors.New("friendship does not exist")
	ErrEpisodeOverride    = errors.New("title overrides must target a movie or series, not an episode")
)

type Store struct{}

func NewStore() *Store {
	return &Store{}
}

// CreateFriendship inserts a pending friendship between two accounts.
// The pair is stored in canonical order; the unique hash makes a
// duplicate request (in either direction) a conflict.
func (store *Store) CreateFriendship(db database.Queryable, accountA uuid.UUID, accountB uuid.UUID) (*Friendship, error) {
	if accountA == accountB {
		return nil, errors.New("an account cannot befriend itself")
	}

	first, second := CanonicalPair(accountA, accountB)
	friendship := &Friendship{}
	err := db.Get(friendship, `
		INSERT INTO friendships(id, account_1_id, account_2_id, pair_hash, accepted, created_at)
		VALUES ($1, $2, $3, $4, false, current_timestamp)
		RETURNING *
	`, uuid.New(), first, second, PairHash(first, second))
	if err != nil {
		return nil, fmt.Errorf("failed to insert friendship: %w", err)
	}

	return friendship, nil
}

func (store *Store) GetFriendship(db database.Queryable, friendshipID uuid.UUID) (*Friendship, error) {
	var friendship Friendship
	if err := db.Get(&friendship, `SELECT * FROM friendships WHERE id = $1`, friendshipID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFriendshipNotFound
		}

		return nil, err
	}

	return &friendship, nil
}

func (store *Store) GetFriendshipBetween(db database.Queryable, accountA uuid.UUID, accountB uuid.UUID) (*Friendship, error) {
	var friendship Friendship
	if err := db.Get(&friendship, `SELECT * FROM friendships WHERE pair_hash = $1`, PairHash(accountA, accountB)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFriendshipNotFound
		}

		return nil, err
	}

	return &friendship, nil
}

func (store *Store) ListFriendshipsForAccount(db database.Queryable, accountID uuid.UUID) ([]*Friendship, error) {
	var friendships []*Friendship
	err := db.Select(&friendships, `
		SELECT * FROM friendships
		WHERE account_1_id = $1 OR account_2_id = $1
		ORDER BY created_at
	`, accountID)
	if err != nil {
		return nil, err
	}

	return friendships, nil
}

func (store *Store) AcceptFriendship(db database.Queryable, friendshipID uuid.UUID) error {
	result, err := db.Exec(`UPDATE friendships SET accepted = true WHERE id = $1`, friendshipID)
	if err != nil {
		return err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrFriendshipNotFound
	}

	return nil
}

func (store *Store) DeleteFriendship(db database.Queryable, friendshipID uuid.UUID) error {
	_, err := db.Exec(`DELETE FROM friendships WHERE id = $1`, friendshipID)
	return err
}

func (store *Store) AddFriendShare(db database.Queryable, friendshipID uuid.UUID, libraryID uuid.UUID) error {
	_, err := db.Exec(`
		INSERT INTO friend_library_shares(id, friendship_id, library_id, created_at)
		VALUES ($1, $2, $3, current_timestamp)
		ON CONFLICT (friendship_id, library_id) DO NOTHING
	`, uuid.New(), friendshipID, libraryID)
	return err
}

func (store *Store) RemoveFriendShare(db database.Queryable, friendshipID uuid.UUID, libraryID uuid.UUID) error {
	_, err := db.Exec(`DELETE FROM friend_library_shares WHERE friendship_id = $1 AND library_id = $2`, friendshipID, libraryID)
	return err
}

// FriendShareLibraryIDs lists the libraries shared across a single
// friendship, regardless of which side owns them.
func (store *Store) FriendShareLibraryIDs(db database.Queryable, friendshipID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := db.Select(&ids, `SELECT library_id FROM friend_library_shares WHERE friendship_id = $1`, friendshipID); err != nil {
		return nil, err
	}

	return ids, nil
}

func (store *Store) AddProfileShare(db database.Queryable, profileID uuid.UUID, libraryID uuid.UUID) error {
	_, err := db.Exec(`
		INSERT INTO profile_library_shares(id, profile_id, library_id, created_at)
		VALUES ($1, $2, $3, current_timestamp)
		ON CONFLICT (profile_id, library_id) DO NOTHING
	`, uuid.New(), profileID, libraryID)
	return err
}

func (store *Store) RemoveProfileShare(db database.Queryable, profileID uuid.UUID, libraryID uuid.UUID) error {
	_, err := db.Exec(`DELETE FROM profile_library_shares WHERE profile_id = $1 AND library_id = $2`, profileID, libraryID)
	return err
}

// SetOverride upserts the single override row for a (profile, media)
// pair. Overrides keyed by an episode are rejected outright - episodes
// inherit their series' override and a caller trying to write one is
// misusing the API.
func (store *Store) SetOverride(db database.Queryable, profileID uuid.UUID, mediaID uuid.UUID, state OverrideState) error {
	var kind string
	if err := db.Get(&kind, `SELECT kind FROM media WHERE id = $1`, mediaID); err != nil {
		return fmt.Errorf("override target lookup failed: %w", err)
	}
	if kind == "episode" {
		return ErrEpisodeOverride
	}

	_, err := db.Exec(`
		INSERT INTO title_overrides(id, profile_id, media_id, state, created_at)
		VALUES ($1, $2, $3, $4, current_timestamp)
		ON CONFLICT (profile_id, media_id) DO UPDATE SET state = EXCLUDED.state
	`, uuid.New(), profileID, mediaID, state)
	return err
}

func (store *Store) ClearOverride(db database.Queryable, profileID uuid.UUID, mediaID uuid.UUID) error {
	_, err := db.Exec(`DELETE FROM title_overrides WHERE profile_id = $1 AND media_id = $2`, profileID, mediaID)
	return err
}

func (store *Store) ListOverridesForProfile(db database.Queryable, profileID uuid.UUID) ([]*TitleOverride, error) {
	var overrides []*TitleOverride
	if err := db.Select(&overrides, `SELECT * FROM title_overrides WHERE profile_id = $1 ORDER BY created_at`, profileID); err != nil {
		return nil, err
	}

	return overrides, nil
}

// OwnedLibraryIDs returns the libraries belonging to the profiles
// account: the ownership entitlement path is account-wide.
func (store *Store) OwnedLibraryIDs(db database.Queryable, accountID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := db.Select(&ids, `SELECT id FROM libraries WHERE account_id = $1`, accountID); err != nil {
		return nil, err
	}

	return ids, nil
}

// FriendSharedLibraryIDs returns the libraries reachable by the given
// account through ACCEPTED friendships; libraries the account owns
// itself are excluded (they arrive via the ownership path instead).
func (store *Store) FriendSharedLibraryIDs(db database.Queryable, accountID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := db.Select(&ids, `
		SELECT fls.library_id
		FROM friend_library_shares fls
		JOIN friendships f ON f.id = fls.friendship_id
		JOIN libraries l ON l.id = fls.library_id
		WHERE f.accepted
		  AND (f.account_1_id = $1 OR f.account_2_id = $1)
		  AND l.account_id <> $1
	`, accountID)
	if err != nil {
		return nil, err
	}

	return ids, nil
}

func (store *Store) ProfileSharedLibraryIDs(db database.Queryable, profileID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := db.Select(&ids, `SELECT library_id FROM profile_library_shares WHERE profile_id = $1`, profileID); err != nil {
		return nil, err
	}

	return ids, nil
}

// OverrideMap loads the profiles overrides in the evaluators shape.
// Rows referencing media that no longer exists are impossible here
// (FK cascade), but an unknown state value is skipped rather than
// guessed at - a missing override fails closed at classification.
func (store *Store) OverrideMap(db database.Queryable, profileID uuid.UUID) (map[uuid.UUID]entitlement.Override, error) {
	overrides, err := store.ListOverridesForProfile(db, profileID)
	if err != nil {
		return nil, err
	}

	out := make(map[uuid.UUID]entitlement.Override, len(overrides))
	for _, override := range overrides {
		switch override.State {
		case OverrideAllow:
			out[override.MediaID] = entitlement.Allow
		case OverrideBlock:
			out[override.MediaID] = entitlement.Block
		}
	}

	return out, nil
}
