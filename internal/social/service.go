package social

import (
	"errors"

	"github.com/google/uuid"
	"github.com/kinship-media/kinship/internal/account"
	"github.com/kinship-media/kinship/internal/database"
	"github.com/kinship-media/kinship/internal/event"
	"github.com/kinship-media/kinship/internal/media"
	"github.com/kinship-media/kinship/pkg/logger"
)

var (
	ErrNotMainProfile  = errors.New("only the accounts main profile can manage sharing")
	ErrNotParticipant  = errors.New("account is not a participant of this friendship")
	ErrLibraryNotOwned = errors.New("library is not owned by the acting account")
	ErrProfileMismatch = errors.New("target profile does not belong to the acting account")

	log = logger.Get("SocialServ")
)

type (
	profileStore interface {
		GetProfile(db database.Queryable, profileID uuid.UUID) (*account.Profile, error)
	}

	libraryStore interface {
		GetLibrary(db database.Queryable, libraryID uuid.UUID) (*media.Library, error)
	}

	// Service owns every mutation of the sharing/override relationship
	// state. Each successful mutation is announced on the event bus so
	// downstream consumers (playlist reconciliation, the activity
	// socket) can react; the service itself never touches playlists.
	Service struct {
		db       database.Manager
		store    *Store
		profiles profileStore
		libs     libraryStore
		eventBus event.EventDispatcher
	}
)

func NewService(db database.Manager, store *Store, profiles profileStore, libs libraryStore, eventBus event.EventDispatcher) *Service {
	return &Service{db: db, store: store, profiles: profiles, libs: libs, eventBus: eventBus}
}

func (service *Service) RequestFriendship(actor *account.Profile, otherAccountID uuid.UUID) (*Friendship, error) {
	if !actor.IsMain {
		return nil, ErrNotMainProfile
	}

	friendship, err := service.store.CreateFriendship(service.db.GetSqlxDb(), actor.AccountID, otherAccountID)
	if err != nil {
		return nil, err
	}

	log.Emit(logger.NEW, "Friendship %s requested between %s and %s\n", friendship.ID, friendship.Account1ID, friendship.Account2ID)
	return friendship, nil
}

func (service *Service) AcceptFriendship(actor *account.Profile, friendshipID uuid.UUID) error {
	friendship, err := service.participantFriendship(actor, friendshipID)
	if err != nil {
		return err
	}

	return service.store.AcceptFriendship(service.db.GetSqlxDb(), friendship.ID)
}

// Unfriend deletes the friendship and, by cascade, every library
// share it owned. The removal event carries the share list captured
// before deletion so affected playlists can still be resolved.
func (service *Service) Unfriend(actor *account.Profile, friendshipID uuid.UUID) error {
	friendship, err := service.participantFriendship(actor, friendshipID)
	if err != nil {
		return err
	}

	libraryIDs, err := service.store.FriendShareLibraryIDs(service.db.GetSqlxDb(), friendship.ID)
	if err != nil {
		return err
	}

	if err := service.store.DeleteFriendship(service.db.GetSqlxDb(), friendship.ID); err != nil {
		return err
	}

	log.Emit(logger.REMOVE, "Friendship %s removed (%d library shares dropped)\n", friendship.ID, len(libraryIDs))
	service.eventBus.Dispatch(event.FriendshipRemovedEvent, event.FriendshipRemoved{
		FriendshipID: friendship.ID,
		Account1ID:   friendship.Account1ID,
		Account2ID:   friendship.Account2ID,
		LibraryIDs:   libraryIDs,
	})
	return nil
}

func (service *Service) ShareLibraryWithFriend(actor *account.Profile, friendshipID uuid.UUID, libraryID uuid.UUID) error {
	friendship, other, err := service.ownedLibraryFriendship(actor, friendshipID, libraryID)
	if err != nil {
		return err
	}

	if err := service.store.AddFriendShare(service.db.GetSqlxDb(), friendship.ID, libraryID); err != nil {
		return err
	}

	service.eventBus.Dispatch(event.FriendShareAddedEvent, event.FriendShareChange{
		FriendshipID:   friendship.ID,
		LibraryID:      libraryID,
		OwnerAccountID: actor.AccountID,
		OtherAccountID: other,
	})
	return nil
}

func (service *Service) UnshareLibraryFromFriend(actor *account.Profile, friendshipID uuid.UUID, libraryID uuid.UUID) error {
	friendship, other, err := service.ownedLibraryFriendship(actor, friendshipID, libraryID)
	if err != nil {
		return err
	}

	if err := service.store.RemoveFriendShare(service.db.GetSqlxDb(), friendship.ID, libraryID); err != nil {
		return err
	}

	service.eventBus.Dispatch(event.FriendShareRemovedEvent, event.FriendShareChange{
		FriendshipID:   friendship.ID,
		LibraryID:      libraryID,
		OwnerAccountID: actor.AccountID,
		OtherAccountID: other,
	})
	return nil
}

func (service *Service) LinkLibraryToProfile(actor *account.Profile, profileID uuid.UUID, libraryID uuid.UUID) error {
	if err := service.checkAccountProfileLibrary(actor, profileID, libraryID); err != nil {
		return err
	}

	if err := service.store.AddProfileShare(service.db.GetSqlxDb(), profileID, libraryID); err != nil {
		return err
	}

	service.eventBus.Dispatch(event.ProfileShareAddedEvent, event.ProfileShareChange{ProfileID: profileID, LibraryID: libraryID})
	return nil
}

func (service *Service) UnlinkLibraryFromProfile(actor *account.Profile, profileID uuid.UUID, libraryID uuid.UUID) error {
	if err := service.checkAccountProfileLibrary(actor, profileID, libraryID); err != nil {
		return err
	}

	if err := service.store.RemoveProfileShare(service.db.GetSqlxDb(), profileID, libraryID); err != nil {
		return err
	}

	service.eventBus.Dispatch(event.ProfileShareRemovedEvent, event.ProfileShareChange{ProfileID: profileID, LibraryID: libraryID})
	return nil
}

func (service *Service) SetTitleOverride(actor *account.Profile, profileID uuid.UUID, mediaID uuid.UUID, state OverrideState) error {
	if err := service.checkAccountProfile(actor, profileID); err != nil {
		return err
	}

	if err := service.store.SetOverride(service.db.GetSqlxDb(), profileID, mediaID, state); err != nil {
		return err
	}

	log.Emit(logger.INFO, "Override %s set for profile %s on title %s\n", state, profileID, mediaID)
	service.eventBus.Dispatch(event.OverrideSetEvent, event.OverrideChange{ProfileID: profileID, MediaID: mediaID})
	return nil
}

func (service *Service) ClearTitleOverride(actor *account.Profile, profileID uuid.UUID, mediaID uuid.UUID) error {
	if err := service.checkAccountProfile(actor, profileID); err != nil {
		return err
	}

	if err := service.store.ClearOverride(service.db.GetSqlxDb(), profileID, mediaID); err != nil {
		return err
	}

	service.eventBus.Dispatch(event.OverrideClearedEvent, event.OverrideChange{ProfileID: profileID, MediaID: mediaID})
	return nil
}

func (service *Service) ListFriendships(accountID uuid.UUID) ([]*Friendship, error) {
	return service.store.ListFriendshipsForAccount(service.db.GetSqlxDb(), accountID)
}

func (service *Service) FriendShareLibraries(actor *account.Profile, friendshipID uuid.UUID) ([]uuid.UUID, error) {
	if _, err := service.participantFriendship(actor, friendshipID); err != nil {
		return nil, err
	}

	return service.store.FriendShareLibraryIDs(service.db.GetSqlxDb(), friendshipID)
}

func (service *Service) ListOverrides(actor *account.Profile, profileID uuid.UUID) ([]*TitleOverride, error) {
	if err := service.checkAccountProfile(actor, profileID); err != nil {
		return nil, err
	}

	return service.store.ListOverridesForProfile(service.db.GetSqlxDb(), profileID)
}

func (service *Service) participantFriendship(actor *account.Profile, friendshipID uuid.UUID) (*Friendship, error) {
	if !actor.IsMain {
		return nil, ErrNotMainProfile
	}

	friendship, err := service.store.GetFriendship(service.db.GetSqlxDb(), friendshipID)
	if err != nil {
		return nil, err
	}

	if _, ok := friendship.OtherAccount(actor.AccountID); !ok {
		return nil, ErrNotParticipant
	}

	return friendship, nil
}

func (service *Service) ownedLibraryFriendship(actor *account.Profile, friendshipID uuid.UUID, libraryID uuid.UUID) (*Friendship, uuid.UUID, error) {
	friendship, err := service.participantFriendship(actor, friendshipID)
	if err != nil {
		return nil, uuid.Nil, err
	}

	library, err := service.libs.GetLibrary(service.db.GetSqlxDb(), libraryID)
	if err != nil {
		return nil, uuid.Nil, err
	}
	if library.AccountID != actor.AccountID {
		return nil, uuid.Nil, ErrLibraryNotOwned
	}

	other, _ := friendship.OtherAccount(actor.AccountID)
	return friendship, other, nil
}

func (service *Service) checkAccountProfile(actor *account.Profile, profileID uuid.UUID) error {
	if !actor.IsMain {
		return ErrNotMainProfile
	}

	target, err := service.profiles.GetProfile(service.db.GetSqlxDb(), profileID)
	if err != nil {
		return err
	}
	if target.AccountID != actor.AccountID {
		return ErrProfileMismatch
	}

	return nil
}

func (service *Service) checkAccountProfileLibrary(actor *account.Profile, profileID uuid.UUID, libraryID uuid.UUID) error {
	if err := service.checkAccountProfile(actor, profileID); err != nil {
		return err
	}

	library, err := service.libs.GetLibrary(service.db.GetSqlxDb(), libraryID)
	if err != nil {
		return err
	}
	if library.AccountID != actor.AccountID {
		return ErrLibraryNotOwned
	}

	return nil
}
