package playlist

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/kinship-media/kinship/internal/account"
	"github.com/kinship-media/kinship/internal/database"
	"github.com/kinship-media/kinship/internal/entitlement"
	"github.com/kinship-media/kinship/internal/event"
	"github.com/kinship-media/kinship/internal/media"
	"github.com/kinship-media/kinship/pkg/logger"
	"github.com/kinship-media/kinship/pkg/worker"
)

var log = logger.Get("PlaylistServ")

const reconcileAttempts = 3

type (
	profileStore interface {
		GetProfile(db database.Queryable, profileID uuid.UUID) (*account.Profile, error)
	}

	snapshotStore interface {
		BuildSnapshot(db database.Queryable, profile *account.Profile) (*entitlement.Snapshot, error)
	}

	candidateStore interface {
		CandidatesForMedia(db database.Queryable, mediaIDs []uuid.UUID) ([]*media.Candidate, error)
	}

	// Service keeps stored playlist orderings consistent with current
	// entitlement. It subscribes to every mutation event that can
	// change a profiles playable set, resolves the affected playlists,
	// and reconciles each one under its own row-locked transaction.
	// Playlists are independent: one failing reconciliation never
	// blocks the others.
	Service struct {
		*sync.Mutex

		db        database.Manager
		store     *Store
		resolver  *Resolver
		profiles  profileStore
		snapshots snapshotStore
		media     candidateStore
		eventBus  event.EventCoordinator

		pending    []uuid.UUID
		pendingSet map[uuid.UUID]struct{}
		workerPool *worker.WorkerPool
	}
)

func NewService(
	db database.Manager,
	store *Store,
	profiles profileStore,
	snapshots snapshotStore,
	mediaStore candidateStore,
	eventBus event.EventCoordinator,
	parallelism int,
) *Service {
	if parallelism < 1 {
		parallelism = 1
	}

	service := &Service{
		Mutex:      &sync.Mutex{},
		db:         db,
		store:      store,
		resolver:   NewResolver(store),
		profiles:   profiles,
		snapshots:  snapshots,
		media:      mediaStore,
		eventBus:   eventBus,
		pendingSet: make(map[uuid.UUID]struct{}),
		workerPool: worker.NewWorkerPool(),
	}

	for i := 0; i < parallelism; i++ {
		label := "reconcile:" + uuid.NewString()[:8]
		service.workerPool.PushWorker(worker.NewWorker(label, service.executeTask))
	}

	return service
}

// Run subscribes to the trigger events and processes them until the
// context is cancelled. Reconciliation work is fanned out to the
// worker pool; the event loop itself only resolves and enqueues.
func (service *Service) Run(ctx context.Context) error {
	eventChannel := make(event.HandlerChannel, 100)
	service.eventBus.RegisterHandlerChannel(eventChannel, TriggerEvents()...)

	if err := service.workerPool.Start(); err != nil {
		return err
	}
	defer service.workerPool.Close()

	for {
		select {
		case handlerEvent := <-eventChannel:
			affected, err := service.resolver.Affected(service.db.GetSqlxDb(), handlerEvent)
			if err != nil {
				log.Emit(logger.ERROR, "Trigger resolution for %s failed: %v\n", handlerEvent.Event, err)
				continue
			}

			log.Emit(logger.DEBUG, "Event %s affects %d playlist(s)\n", handlerEvent.Event, len(affected))
			service.enqueue(affected...)
		case <-ctx.Done():
			return nil
		}
	}
}

// ReconcileNow reconciles a single playlist synchronously and returns
// its fresh state. The read/mutation paths of the API call this so a
// playlist is never served with stale ordering.
func (service *Service) ReconcileNow(playlistID uuid.UUID) (*Playlist, []Item, error) {
	if _, err := service.reconcileOne(playlistID); err != nil {
		return nil, nil, err
	}

	list, err := service.store.Get(service.db.GetSqlxDb(), playlistID)
	if err != nil {
		return nil, nil, err
	}

	items, err := service.store.Items(service.db.GetSqlxDb(), playlistID)
	if err != nil {
		return nil, nil, err
	}

	return list, items, nil
}

func (service *Service) CreatePlaylist(profileID uuid.UUID, title string) (*Playlist, error) {
	list := &Playlist{ProfileID: profileID, Title: title}
	if err := service.store.Create(service.db.GetSqlxDb(), list); err != nil {
		return nil, err
	}

	return list, nil
}

func (service *Service) Playlist(playlistID uuid.UUID) (*Playlist, error) {
	return service.store.Get(service.db.GetSqlxDb(), playlistID)
}

func (service *Service) ListPlaylists(profileID uuid.UUID) ([]*Playlist, error) {
	return service.store.ListForProfile(service.db.GetSqlxDb(), profileID)
}

// GetPlaylist reconciles the playlist before returning it so a caller
// never sees an ordering that predates an entitlement change.
func (service *Service) GetPlaylist(profileID uuid.UUID, playlistID uuid.UUID) (*Playlist, []Item, error) {
	if _, err := service.ownedPlaylist(profileID, playlistID); err != nil {
		return nil, nil, err
	}

	return service.ReconcileNow(playlistID)
}

func (service *Service) DeletePlaylist(profileID uuid.UUID, playlistID uuid.UUID) error {
	if _, err := service.ownedPlaylist(profileID, playlistID); err != nil {
		return err
	}

	return service.store.Delete(service.db.GetSqlxDb(), playlistID)
}

// AddItem appends the media to the end of the playlist. The follow-up
// reconciliation drops it again immediately if the profile cannot
// actually play it.
func (service *Service) AddItem(profileID uuid.UUID, playlistID uuid.UUID, mediaID uuid.UUID) (*Item, error) {
	if _, err := service.ownedPlaylist(profileID, playlistID); err != nil {
		return nil, err
	}

	item, err := service.store.AddItem(service.db.GetSqlxDb(), playlistID, mediaID)
	if err != nil {
		return nil, err
	}

	if _, err := service.reconcileOne(playlistID); err != nil {
		return nil, err
	}

	return item, nil
}

func (service *Service) RemoveItem(profileID uuid.UUID, playlistID uuid.UUID, mediaID uuid.UUID) error {
	if _, err := service.ownedPlaylist(profileID, playlistID); err != nil {
		return err
	}

	if err := service.store.RemoveItem(service.db.GetSqlxDb(), playlistID, mediaID); err != nil {
		return err
	}

	// Closes the position gap left by the removal
	_, err := service.reconcileOne(playlistID)
	return err
}

func (service *Service) ReorderItems(profileID uuid.UUID, playlistID uuid.UUID, orderedItemIDs []uuid.UUID) error {
	if _, err := service.ownedPlaylist(profileID, playlistID); err != nil {
		return err
	}

	err := service.db.WrapTx(func(tx *sqlx.Tx) error {
		return service.store.Reorder(tx, playlistID, orderedItemIDs)
	})
	if err != nil {
		return err
	}

	_, err = service.reconcileOne(playlistID)
	return err
}

func (service *Service) SetCurrent(profileID uuid.UUID, playlistID uuid.UUID, index int, progress float64) error {
	list, err := service.ownedPlaylist(profileID, playlistID)
	if err != nil {
		return err
	}

	items, err := service.store.Items(service.db.GetSqlxDb(), list.ID)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(items) {
		return ErrItemNotFound
	}

	return service.store.SetCurrent(service.db.GetSqlxDb(), playlistID, index, progress)
}

// ClearArtworkStale acknowledges that composite artwork has been
// regenerated for the playlists current contents.
func (service *Service) ClearArtworkStale(profileID uuid.UUID, playlistID uuid.UUID) error {
	if _, err := service.ownedPlaylist(profileID, playlistID); err != nil {
		return err
	}

	return service.store.ClearArtworkStale(service.db.GetSqlxDb(), playlistID)
}

func (service *Service) ownedPlaylist(profileID uuid.UUID, playlistID uuid.UUID) (*Playlist, error) {
	list, err := service.store.Get(service.db.GetSqlxDb(), playlistID)
	if err != nil {
		return nil, err
	}

	if list.ProfileID != profileID {
		return nil, ErrPlaylistNotFound
	}

	return list, nil
}

func (service *Service) enqueue(playlistIDs ...uuid.UUID) {
	service.Lock()
	for _, id := range playlistIDs {
		if _, queued := service.pendingSet[id]; queued {
			continue
		}

		service.pendingSet[id] = struct{}{}
		service.pending = append(service.pending, id)
	}
	service.Unlock()

	if len(playlistIDs) > 0 {
		service.workerPool.WakeupWorkers()
	}
}

func (service *Service) claimPending() (uuid.UUID, bool) {
	service.Lock()
	defer service.Unlock()

	if len(service.pending) == 0 {
		return uuid.Nil, false
	}

	id := service.pending[0]
	service.pending = service.pending[1:]
	delete(service.pendingSet, id)
	return id, true
}

// executeTask is the worker function: claim one pending playlist and
// reconcile it. Errors are logged and swallowed so a poisoned playlist
// cannot take down the pool (failure isolation across the batch).
func (service *Service) executeTask(w worker.Worker) (bool, error) {
	playlistID, ok := service.claimPending()
	if !ok {
		return false, nil
	}

	if _, err := service.reconcileOne(playlistID); err != nil {
		log.Emit(logger.ERROR, "Reconciliation of playlist %s failed: %v\n", playlistID, err)
	}

	return true, nil
}

// reconcileOne performs the read-modify-write for a single playlist.
// The playlist row is locked for the duration of the transaction;
// conflicting triggers queue on the lock, and genuine transaction
// failures are retried a bounded number of times before giving up.
func (service *Service) reconcileOne(playlistID uuid.UUID) (changed bool, err error) {
	for attempt := 1; attempt <= reconcileAttempts; attempt++ {
		changed, err = service.reconcileTx(playlistID)
		if err == nil || errors.Is(err, ErrPlaylistNotFound) {
			return changed, nil
		}

		log.Emit(logger.WARNING, "Reconcile attempt %d/%d for playlist %s failed: %v\n", attempt, reconcileAttempts, playlistID, err)
	}

	return false, err
}

func (service *Service) reconcileTx(playlistID uuid.UUID) (bool, error) {
	changed := false
	err := service.db.WrapTx(func(tx *sqlx.Tx) error {
		list, err := service.store.GetForUpdate(tx, playlistID)
		if err != nil {
			return err
		}

		items, err := service.store.Items(tx, playlistID)
		if err != nil {
			return err
		}

		profile, err := service.profiles.GetProfile(tx, list.ProfileID)
		if err != nil {
			return err
		}

		snapshot, err := service.snapshots.BuildSnapshot(tx, profile)
		if err != nil {
			return err
		}

		mediaIDs := make([]uuid.UUID, len(items))
		for k, item := range items {
			mediaIDs[k] = item.MediaID
		}

		candidates, err := service.media.CandidatesForMedia(tx, mediaIDs)
		if err != nil {
			return err
		}

		outcome := Reconcile(list, items, snapshot.PlayableIDs(candidates))
		if !outcome.Changed {
			return nil
		}

		if err := service.store.PersistOutcome(tx, list, outcome); err != nil {
			return err
		}

		changed = true
		log.Emit(logger.INFO, "Playlist %s reconciled: %d removed, current index %d -> %d\n",
			list.ID, len(outcome.Removed), list.CurrentIndex, outcome.CurrentIndex)
		return nil
	})
	if err != nil {
		return false, err
	}

	if changed {
		service.eventBus.Dispatch(event.PlaylistUpdateEvent, playlistID)
	}

	return changed, nil
}
