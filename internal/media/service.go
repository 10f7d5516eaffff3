package media

import (
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/kinship-media/kinship/internal/database"
	"github.com/kinship-media/kinship/internal/event"
	"github.com/kinship-media/kinship/pkg/logger"
)

var log = logger.Get("MediaServ")

// Service layers event dispatch over the media store for mutations
// which can invalidate playlist contents. Reads go straight through
// to the store; only destructive operations need to announce
// themselves on the bus.
type Service struct {
	db       database.Manager
	store    *Store
	eventBus event.EventDispatcher
}

func NewService(db database.Manager, store *Store, eventBus event.EventDispatcher) *Service {
	return &Service{db: db, store: store, eventBus: eventBus}
}

func (service *Service) CreateLibrary(accountID uuid.UUID, title string) (*Library, error) {
	library := &Library{AccountID: accountID, Title: title}
	if err := service.store.SaveLibrary(service.db.GetSqlxDb(), library); err != nil {
		return nil, err
	}

	log.Emit(logger.NEW, "Library '%s' created for account %s\n", title, accountID)
	return library, nil
}

func (service *Service) GetLibrary(libraryID uuid.UUID) (*Library, error) {
	return service.store.GetLibrary(service.db.GetSqlxDb(), libraryID)
}

func (service *Service) ListLibraries(accountID uuid.UUID) ([]*Library, error) {
	return service.store.ListLibrariesForAccount(service.db.GetSqlxDb(), accountID)
}

func (service *Service) SaveEntry(entry *Entry) error {
	return service.store.SaveEntry(service.db.GetSqlxDb(), entry)
}

func (service *Service) GetEntry(mediaID uuid.UUID) (*Entry, error) {
	return service.store.GetEntry(service.db.GetSqlxDb(), mediaID)
}

func (service *Service) ListEntries(libraryID uuid.UUID) ([]*Entry, error) {
	return service.store.ListEntriesForLibrary(service.db.GetSqlxDb(), libraryID)
}

// DeleteEntry removes a media entry and notifies the bus so playlists
// referencing the entry (or, for a series, its episodes) can be
// reconciled. The DB cascade removes dependent rows; the event exists
// to trigger re-numbering of the playlists left behind.
func (service *Service) DeleteEntry(mediaID uuid.UUID) error {
	entry, err := service.store.GetEntry(service.db.GetSqlxDb(), mediaID)
	if err != nil {
		return err
	}

	if err := service.store.DeleteEntry(service.db.GetSqlxDb(), mediaID); err != nil {
		return err
	}

	log.Emit(logger.REMOVE, "Media entry %s (%s) deleted\n", entry.ID, entry.Title)
	service.eventBus.Dispatch(event.MediaRemovedEvent, event.MediaRemoved{MediaID: entry.ID, LibraryID: entry.LibraryID})
	return nil
}

// DeleteLibrary removes a library and all of its media. A removal
// event is dispatched for each entry the library contained so that
// every playlist touched by the cascade is reconciled.
func (service *Service) DeleteLibrary(libraryID uuid.UUID) error {
	var removed []event.MediaRemoved
	err := service.db.WrapTx(func(tx *sqlx.Tx) error {
		entries, err := service.store.ListEntriesForLibrary(tx, libraryID)
		if err != nil {
			return err
		}

		for _, entry := range entries {
			removed = append(removed, event.MediaRemoved{MediaID: entry.ID, LibraryID: entry.LibraryID})
		}

		return service.store.DeleteLibrary(tx, libraryID)
	})
	if err != nil {
		return err
	}

	log.Emit(logger.REMOVE, "Library %s deleted (%d media entries)\n", libraryID, len(removed))
	for _, payload := range removed {
		service.eventBus.Dispatch(event.MediaRemovedEvent, payload)
	}

	return nil
}
