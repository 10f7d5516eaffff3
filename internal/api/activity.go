package api

import (
	"context"

	"github.com/google/uuid"
	"github.com/kinship-media/kinship/internal/event"
	"github.com/kinship-media/kinship/internal/http/websocket"
	"github.com/kinship-media/kinship/internal/playlist"
	"github.com/kinship-media/kinship/pkg/logger"
)

const titlePlaylistUpdate = "PLAYLIST_UPDATE"

type (
	PlaylistUpdate struct {
		PlaylistID      uuid.UUID `json:"playlist_id"`
		ProfileID       uuid.UUID `json:"profile_id"`
		CurrentIndex    int       `json:"current_index"`
		CurrentProgress float64   `json:"current_progress"`
		ArtworkStale    bool      `json:"artwork_stale"`
	}

	broadcastEventStream interface {
		RegisterHandlerChannel(event.HandlerChannel, ...event.Event)
	}

	playlistReader interface {
		Playlist(playlistID uuid.UUID) (*playlist.Playlist, error)
	}

	// broadcaster relays playlist reconciliation activity over the
	// websocket so connected clients can refresh without polling.
	broadcaster struct {
		socketHub *websocket.SocketHub
		eventBus  broadcastEventStream
		playlists playlistReader
	}
)

func newBroadcaster(socketHub *websocket.SocketHub, eventBus broadcastEventStream, playlists playlistReader) *broadcaster {
	return &broadcaster{socketHub, eventBus, playlists}
}

// run consumes playlist update events until the context is cancelled.
func (hub *broadcaster) run(ctx context.Context) {
	eventChannel := make(event.HandlerChannel, 10)
	hub.eventBus.RegisterHandlerChannel(eventChannel, event.PlaylistUpdateEvent)

	for {
		select {
		case handlerEvent := <-eventChannel:
			playlistID, ok := handlerEvent.Payload.(uuid.UUID)
			if !ok {
				log.Emit(logger.ERROR, "Failed to broadcast playlist update: unexpected payload %#v\n", handlerEvent.Payload)
				continue
			}

			if err := hub.broadcastPlaylistUpdate(playlistID); err != nil {
				log.Emit(logger.ERROR, "Failed to broadcast update for playlist %s: %v\n", playlistID, err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (hub *broadcaster) broadcastPlaylistUpdate(playlistID uuid.UUID) error {
	list, err := hub.playlists.Playlist(playlistID)
	if err != nil {
		return err
	}

	hub.broadcast(titlePlaylistUpdate, PlaylistUpdate{
		PlaylistID:      list.ID,
		ProfileID:       list.ProfileID,
		CurrentIndex:    list.CurrentIndex,
		CurrentProgress: list.CurrentProgress,
		ArtworkStale:    list.ArtworkStale,
	})
	return nil
}

func (hub *broadcaster) broadcast(title string, update any) {
	hub.socketHub.Send(&websocket.SocketMessage{
		Title: title,
		Body:  map[string]interface{}{"arguments": update},
		Type:  websocket.Update,
	})
}
