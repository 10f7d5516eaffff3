// Package browse assembles the entitlement-filtered catalogue views
// the API serves: what a profile may play, and the wider discovery
// surface of titles it may merely see.
package browse

import (
	"github.com/google/uuid"
	"github.com/kinship-media/kinship/internal/account"
	"github.com/kinship-media/kinship/internal/database"
	"github.com/kinship-media/kinship/internal/entitlement"
	"github.com/kinship-media/kinship/internal/media"
)

type (
	snapshotStore interface {
		BuildSnapshot(db database.Queryable, profile *account.Profile) (*entitlement.Snapshot, error)
	}

	catalogStore interface {
		ListCandidates(db database.Queryable, libraryIDs []uuid.UUID, includeTitleIDs []uuid.UUID, titleFilter string) ([]*media.Candidate, error)
		CandidatesForMedia(db database.Queryable, mediaIDs []uuid.UUID) ([]*media.Candidate, error)
	}

	profileStore interface {
		GetProfile(db database.Queryable, profileID uuid.UUID) (*account.Profile, error)
	}

	Service struct {
		db        database.Manager
		profiles  profileStore
		snapshots snapshotStore
		catalog   catalogStore
	}
)

func NewService(db database.Manager, profiles profileStore, snapshots snapshotStore, catalog catalogStore) *Service {
	return &Service{db: db, profiles: profiles, snapshots: snapshots, catalog: catalog}
}

// Browse returns the partition of every reachable candidate for the
// given profile. Consumers wanting a playable-only listing read
// Sets.Playable and ignore the rest.
func (service *Service) Browse(profileID uuid.UUID, titleFilter string) (entitlement.Sets, error) {
	snapshot, candidates, err := service.load(profileID, titleFilter)
	if err != nil {
		return entitlement.Sets{}, err
	}

	return snapshot.Partition(candidates), nil
}

// Search returns the discovery-variant view: titles the profile may
// surface in search results, including rating-gated and Blocked titles
// it cannot play.
func (service *Service) Search(profileID uuid.UUID, titleFilter string) ([]*media.Candidate, error) {
	snapshot, candidates, err := service.load(profileID, titleFilter)
	if err != nil {
		return nil, err
	}

	return snapshot.SearchableCandidates(candidates), nil
}

// Classify resolves a single media entry against the profiles current
// entitlement. Unknown media classifies as Denied; a dangling
// reference never errors the caller.
func (service *Service) Classify(profileID uuid.UUID, mediaID uuid.UUID) (entitlement.Classification, error) {
	db := service.db.GetSqlxDb()

	profile, err := service.profiles.GetProfile(db, profileID)
	if err != nil {
		return entitlement.Denied, err
	}

	snapshot, err := service.snapshots.BuildSnapshot(db, profile)
	if err != nil {
		return entitlement.Denied, err
	}

	candidates, err := service.catalog.CandidatesForMedia(db, []uuid.UUID{mediaID})
	if err != nil {
		return entitlement.Denied, err
	}
	if len(candidates) == 0 {
		return entitlement.Denied, nil
	}

	return snapshot.Classify(candidates[0]), nil
}

// load builds the profiles snapshot and fetches every candidate it
// could possibly reach: all titles in reachable libraries, plus titles
// reachable only through an Allow override.
func (service *Service) load(profileID uuid.UUID, titleFilter string) (*entitlement.Snapshot, []*media.Candidate, error) {
	db := service.db.GetSqlxDb()

	profile, err := service.profiles.GetProfile(db, profileID)
	if err != nil {
		return nil, nil, err
	}

	snapshot, err := service.snapshots.BuildSnapshot(db, profile)
	if err != nil {
		return nil, nil, err
	}

	libraryIDs := make([]uuid.UUID, 0, len(snapshot.OwnedLibraries)+len(snapshot.FriendLibraries)+len(snapshot.SharedLibraries))
	for id := range snapshot.OwnedLibraries {
		libraryIDs = append(libraryIDs, id)
	}
	for id := range snapshot.FriendLibraries {
		libraryIDs = append(libraryIDs, id)
	}
	for id := range snapshot.SharedLibraries {
		libraryIDs = append(libraryIDs, id)
	}

	var allowTitleIDs []uuid.UUID
	for titleID, override := range snapshot.Overrides {
		if override == entitlement.Allow {
			allowTitleIDs = append(allowTitleIDs, titleID)
		}
	}

	candidates, err := service.catalog.ListCandidates(db, libraryIDs, allowTitleIDs, titleFilter)
	if err != nil {
		return nil, nil, err
	}

	return snapshot, candidates, nil
}
