package account

import (
	"errors"

	"github.com/google/uuid"
	"github.com/kinship-media/kinship/internal/database"
	"github.com/kinship-media/kinship/internal/rating"
)

var ErrProfileLocked = errors.New("profile is locked")

// Service binds the account store to the database manager, exposing
// the account and profile operations the API consumes. Profile
// mutations are reserved for the accounts main profile; the handful
// that are self-service (none today) would relax that here.
type Service struct {
	db    database.Manager
	store *Store
}

func NewService(db database.Manager, store *Store) *Service {
	return &Service{db: db, store: store}
}

func (service *Service) CreateAccount(username string, rawPassword []byte) (*Account, error) {
	return service.store.Create(service.db.GetSqlxDb(), username, rawPassword)
}

func (service *Service) Login(username string, rawPassword []byte) (*Account, error) {
	return service.store.GetWithUsernameAndPassword(service.db.GetSqlxDb(), username, rawPassword)
}

func (service *Service) GetAccount(accountID uuid.UUID) (*Account, error) {
	return service.store.GetWithID(service.db.GetSqlxDb(), accountID)
}

func (service *Service) RecordLogin(accountID uuid.UUID) error {
	return service.store.RecordLogin(service.db.GetSqlxDb(), accountID)
}

func (service *Service) CreateProfile(profile *Profile) error {
	return service.store.CreateProfile(service.db.GetSqlxDb(), profile)
}

func (service *Service) GetProfile(profileID uuid.UUID) (*Profile, error) {
	return service.store.GetProfile(service.db.GetSqlxDb(), profileID)
}

func (service *Service) ListProfiles(accountID uuid.UUID) ([]*Profile, error) {
	return service.store.ListProfiles(service.db.GetSqlxDb(), accountID)
}

func (service *Service) UpdateProfileCeilings(profileID uuid.UUID, movie rating.MovieRating, tv rating.TVRating) error {
	return service.store.UpdateProfileCeilings(service.db.GetSqlxDb(), profileID, movie, tv)
}

func (service *Service) SetProfileLocked(profileID uuid.UUID, locked bool) error {
	return service.store.SetProfileLocked(service.db.GetSqlxDb(), profileID, locked)
}

func (service *Service) DeleteProfile(profileID uuid.UUID) error {
	return service.store.DeleteProfile(service.db.GetSqlxDb(), profileID)
}

// ResolveProfile fetches a profile and asserts it belongs to the given
// account and is not locked. The API layer uses this to turn a
// client-supplied profile ID into a trusted identity.
func (service *Service) ResolveProfile(accountID uuid.UUID, profileID uuid.UUID) (*Profile, error) {
	profile, err := service.store.GetProfile(service.db.GetSqlxDb(), profileID)
	if err != nil {
		return nil, err
	}

	if profile.AccountID != accountID {
		return nil, ErrProfileNotFound
	}

	if profile.Locked {
		return nil, ErrProfileLocked
	}

	return profile, nil
}
