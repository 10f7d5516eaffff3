package media

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/kinship-media/kinship/internal/database"
)

var (
	ErrLibraryNotFound = errors.New("library does not exist")
	ErrEntryNotFound   = errors.New("media entry does not exist")
)

type Store struct{}

func NewStore() *Store {
	return &Store{}
}

// candidateColumns is the projection used by every candidate query: the
// entry itself joined (for episodes) against its parent series so the
// effective title/library/rating context is resolved inside the query
// rather than re-derived at every call site.
const candidateColumns = `
	m.id AS media_id,
	COALESCE(p.id, m.id) AS title_id,
	COALESCE(p.library_id, m.library_id) AS library_id,
	m.kind AS kind,
	m.title AS title,
	COALESCE(p.movie_rating, m.movie_rating) AS movie_rating,
	COALESCE(p.tv_rating, m.tv_rating) AS tv_rating`

func (store *Store) SaveLibrary(db database.Queryable, library *Library) error {
	if library.ID == uuid.Nil {
		library.ID = uuid.New()
	}

	err := db.Get(library, `
		INSERT INTO libraries(id, account_id, title, created_at, updated_at)
		VALUES ($1, $2, $3, current_timestamp, current_timestamp)
		ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, updated_at = current_timestamp
		RETURNING *
	`, library.ID, library.AccountID, library.Title)
	if err != nil {
		return fmt.Errorf("failed to save library: %w", err)
	}

	return nil
}

func (store *Store) GetLibrary(db database.Queryable, libraryID uuid.UUID) (*Library, error) {
	var library Library
	if err := db.Get(&library, `SELECT * FROM libraries WHERE id = $1`, libraryID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLibraryNotFound
		}

		return nil, err
	}

	return &library, nil
}

func (store *Store) ListLibrariesForAccount(db database.Queryable, accountID uuid.UUID) ([]*Library, error) {
	var libraries []*Library
	if err := db.Select(&libraries, `SELECT * FROM libraries WHERE account_id = $1 ORDER BY created_at`, accountID); err != nil {
		return nil, err
	}

	return libraries, nil
}

func (store *Store) DeleteLibrary(db database.Queryable, libraryID uuid.UUID) error {
	if _, err := db.Exec(`DELETE FROM libraries WHERE id = $1`, libraryID); err != nil {
		return fmt.Errorf("failed to delete library %s: %w", libraryID, err)
	}

	return nil
}

// SaveEntry upserts a media entry. Episodes must link to an existing
// series in the same library; every other kind must not link at all.
func (store *Store) SaveEntry(db database.Queryable, entry *Entry) error {
	if entry.Kind == EpisodeKind {
		if entry.LinkedToID == nil {
			return errors.New("episode entries must link to a parent series")
		}

		parent, err := store.GetEntry(db, *entry.LinkedToID)
		if err != nil {
			return fmt.Errorf("episode parent lookup failed: %w", err)
		}
		if parent.Kind != SeriesKind {
			return fmt.Errorf("episode parent %s is a %s, not a series", parent.ID, parent.Kind)
		}

		// An episode always lives in its series' library.
		entry.LibraryID = parent.LibraryID
	} else if entry.LinkedToID != nil {
		return fmt.Errorf("%s entries cannot link to a parent", entry.Kind)
	}

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	err := db.Get(entry, `
		INSERT INTO media(id, library_id, kind, title, linked_to_id, movie_rating, tv_rating, source_path, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, current_timestamp, current_timestamp)
		ON CONFLICT (id) DO UPDATE
			SET title = EXCLUDED.title,
			    movie_rating = EXCLUDED.movie_rating,
			    tv_rating = EXCLUDED.tv_rating,
			    source_path = EXCLUDED.source_path,
			    updated_at = current_timestamp
		RETURNING *
	`, entry.ID, entry.LibraryID, entry.Kind, entry.Title, entry.LinkedToID, entry.MovieRating, entry.TVRating, entry.SourcePath)
	if err != nil {
		return fmt.Errorf("failed to save media entry: %w", err)
	}

	return nil
}

func (store *Store) GetEntry(db database.Queryable, mediaID uuid.UUID) (*Entry, error) {
	var entry Entry
	if err := db.Get(&entry, `SELECT * FROM media WHERE id = $1`, mediaID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntryNotFound
		}

		return nil, err
	}

	return &entry, nil
}

func (store *Store) ListEntriesForLibrary(db database.Queryable, libraryID uuid.UUID) ([]*Entry, error) {
	var entries []*Entry
	if err := db.Select(&entries, `SELECT * FROM media WHERE library_id = $1 ORDER BY created_at`, libraryID); err != nil {
		return nil, err
	}

	return entries, nil
}

func (store *Store) DeleteEntry(db database.Queryable, mediaID uuid.UUID) error {
	if _, err := db.Exec(`DELETE FROM media WHERE id = $1`, mediaID); err != nil {
		return fmt.Errorf("failed to delete media entry %s: %w", mediaID, err)
	}

	return nil
}

// GetCandidate resolves the effective entitlement context for a single
// media entry (episodes take the context of their parent series).
func (store *Store) GetCandidate(db database.Queryable, mediaID uuid.UUID) (*Candidate, error) {
	var candidate Candidate
	err := db.Get(&candidate, `
		SELECT `+candidateColumns+`
		FROM media m
		LEFT JOIN media p ON m.linked_to_id = p.id
		WHERE m.id = $1
	`, mediaID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntryNotFound
		}

		return nil, err
	}

	return &candidate, nil
}

// CandidatesForMedia resolves effective contexts for an explicit set
// of media IDs. Entries that no longer exist simply yield no
// candidate, which downstream classification treats as denied.
func (store *Store) CandidatesForMedia(db database.Queryable, mediaIDs []uuid.UUID) ([]*Candidate, error) {
	if len(mediaIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		SELECT `+candidateColumns+`
		FROM media m
		LEFT JOIN media p ON m.linked_to_id = p.id
		WHERE m.id IN (?)
	`, mediaIDs)
	if err != nil {
		return nil, err
	}

	var candidates []*Candidate
	if err := db.Select(&candidates, db.Rebind(query), args...); err != nil {
		return nil, err
	}

	return candidates, nil
}

// ListCandidates fetches the candidate set for an entitlement
// evaluation: every entry whose effective library is in libraryIDs,
// plus every entry whose effective title is in includeTitleIDs (so
// Allow-overridden titles outside any reachable library, and their
// episodes, are still evaluated). A non-empty titleFilter restricts
// results to titles containing it, case-insensitively.
func (store *Store) ListCandidates(db database.Queryable, libraryIDs []uuid.UUID, includeTitleIDs []uuid.UUID, titleFilter string) ([]*Candidate, error) {
	builder := squirrel.
		Select(candidateColumns).
		From("media m").
		LeftJoin("media p ON m.linked_to_id = p.id").
		Where(squirrel.Or{
			squirrel.Eq{"COALESCE(p.library_id, m.library_id)": libraryIDs},
			squirrel.Eq{"COALESCE(p.id, m.id)": includeTitleIDs},
		}).
		OrderBy("m.created_at", "m.id")

	if titleFilter != "" {
		builder = builder.Where("m.title ILIKE ?", "%"+titleFilter+"%")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to construct candidate query: %w", err)
	}

	var candidates []*Candidate
	if err := db.Select(&candidates, db.Rebind(query), args...); err != nil {
		return nil, err
	}

	return candidates, nil
}
