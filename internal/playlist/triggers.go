package playlist

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/kinship-media/kinship/internal/database"
	"github.com/kinship-media/kinship/internal/event"
)

// Resolver maps a sharing/override mutation event to the set of
// playlists the mutation can have touched. It only identifies
// playlists - recomputation is the reconciliation services job.
type Resolver struct {
	store *Store
}

func NewResolver(store *Store) *Resolver {
	return &Resolver{store: store}
}

// Affected resolves one mutation event to the playlist IDs that must
// be reconciled.
//
// A share granted through a friendship affects playlists owned by
// profiles on the OTHER side of the relationship; a profile share or
// override affects only that one profiles playlists. Media deletion is
// resolved through the surviving library context: a playlist whose
// only reference into the library was the deleted entry itself cannot
// be found here (the cascade already removed its item row) and is
// instead repaired by the opportunistic reconciliation that runs when
// the playlist is next read.
func (resolver *Resolver) Affected(db database.Queryable, handlerEvent event.HandlerEvent) ([]uuid.UUID, error) {
	switch payload := handlerEvent.Payload.(type) {
	case event.FriendShareChange:
		return resolver.store.AffectedByLibraryForAccounts(db, []uuid.UUID{payload.OtherAccountID}, []uuid.UUID{payload.LibraryID})

	case event.ProfileShareChange:
		return resolver.store.AffectedByLibraryForProfile(db, payload.ProfileID, payload.LibraryID)

	case event.OverrideChange:
		return resolver.store.AffectedByTitleForProfile(db, payload.ProfileID, payload.MediaID)

	case event.FriendshipRemoved:
		return resolver.store.AffectedByLibraryForAccounts(db, []uuid.UUID{payload.Account1ID, payload.Account2ID}, payload.LibraryIDs)

	case event.MediaRemoved:
		return resolver.store.AffectedByLibraryAnyProfile(db, payload.LibraryID)

	default:
		return nil, fmt.Errorf("event %s carries no playlist trigger resolution", handlerEvent.Event)
	}
}

// TriggerEvents lists the events the resolver understands; the
// reconciliation service subscribes its handler channel to exactly
// these.
func TriggerEvents() []event.Event {
	return []event.Event{
		event.FriendShareAddedEvent,
		event.FriendShareRemovedEvent,
		event.ProfileShareAddedEvent,
		event.ProfileShareRemovedEvent,
		event.OverrideSetEvent,
		event.OverrideClearedEvent,
		event.FriendshipRemovedEvent,
		event.MediaRemovedEvent,
	}
}
