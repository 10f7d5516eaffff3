// Package event hosts the in-process event bus used to decouple the
// sharing/override mutation paths from the consumers which react to
// them (playlist reconciliation and the activity socket).
package event

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"github.com/kinship-media/kinship/pkg/logger"
)

var log = logger.Get("Event")

type (
	Event         string
	Payload       any
	HandlerMethod func(Event, Payload)

	HandlerChannel chan HandlerEvent
	HandlerEvent   struct {
		Event   Event
		Payload Payload
	}

	EventDispatcher interface {
		Dispatch(Event, Payload)
	}

	EventHandler interface {
		RegisterAsyncHandlerFunction(Event, HandlerMethod)
		RegisterHandlerFunction(Event, HandlerMethod)
		RegisterHandlerChannel(HandlerChannel, ...Event)
	}

	EventCoordinator interface {
		EventDispatcher
		EventHandler
	}

	eventHandler struct {
		fnHandlers   map[Event][]handlerMethod
		chanHandlers map[Event][]HandlerChannel
	}

	handlerMethod struct {
		handle HandlerMethod
		async  bool
	}
)

// Payload shapes for the entitlement mutation events. Every event that
// can change which media a profile may play carries enough context for
// the playlist trigger resolution to find the affected playlists
// without re-reading the mutated rows.
type (
	// FriendShareChange describes a library share being added to, or
	// removed from, a friendship.
	FriendShareChange struct {
		FriendshipID   uuid.UUID
		LibraryID      uuid.UUID
		OwnerAccountID uuid.UUID
		OtherAccountID uuid.UUID
	}

	// ProfileShareChange describes a library being linked/unlinked to a
	// profile of the owning account.
	ProfileShareChange struct {
		ProfileID uuid.UUID
		LibraryID uuid.UUID
	}

	// OverrideChange describes a title override being set or cleared.
	OverrideChange struct {
		ProfileID uuid.UUID
		MediaID   uuid.UUID
	}

	// FriendshipRemoved describes an unfriend, which implicitly removes
	// every library share the friendship owned.
	FriendshipRemoved struct {
		FriendshipID uuid.UUID
		Account1ID   uuid.UUID
		Account2ID   uuid.UUID
		LibraryIDs   []uuid.UUID
	}

	// MediaRemoved describes the deletion of a media entry.
	MediaRemoved struct {
		MediaID   uuid.UUID
		LibraryID uuid.UUID
	}
)

const (
	FriendShareAddedEvent   Event = "share:friend:added"
	FriendShareRemovedEvent Event = "share:friend:removed"

	ProfileShareAddedEvent   Event = "share:profile:added"
	ProfileShareRemovedEvent Event = "share:profile:removed"

	OverrideSetEvent     Event = "override:set"
	OverrideClearedEvent Event = "override:cleared"

	FriendshipRemovedEvent Event = "friendship:removed"
	MediaRemovedEvent      Event = "media:removed"

	PlaylistUpdateEvent Event = "playlist:update"
)

func New() EventCoordinator {
	return &eventHandler{
		fnHandlers:   make(map[Event][]handlerMethod),
		chanHandlers: make(map[Event][]HandlerChannel),
	}
}

// RegisterHandlerChannel takes an event type and a channel and will send Event messages on
// the channel any time a Dispatch for the provided event occurs.
// This method can be used multiple times for different events on the same channel.
//
// If the channel is BLOCKED when the event bus attempts to send the message on the handler channel,
// then the thread dispatching the event will also be BLOCKED. It is recomended to buffer the handler channels
// appropiately to avoid dispatcher-side blocking.
func (handler *eventHandler) RegisterHandlerChannel(handle HandlerChannel, events ...Event) {
	for _, event := range events {
		handler.chanHandlers[event] = append(handler.chanHandlers[event], handle)
	}
}

// RegisterHandlerFunction takes an event type and a handler method which will be stored
// and called with the payload for the event whenever it is dispatched.
// The handle provided should be guaranteed to return quickly, else other threads calling
// Dispatch on this event bus will be blocked.
func (handler *eventHandler) RegisterHandlerFunction(event Event, handle HandlerMethod) {
	handler.registerHandlerMethod(event, handlerMethod{handle, false})
}

// RegisterAsyncHandlerFunction accepts an Event and a HandlerMethod which will be stored and
// called inside of a goroutine when the event is dispatched.
// The speed at which this handle runs is not important to the event bus, unlike RegisterHandlerFunction.
func (handler *eventHandler) RegisterAsyncHandlerFunction(event Event, handle HandlerMethod) {
	handler.registerHandlerMethod(event, handlerMethod{handle, true})
}

func (handler *eventHandler) registerHandlerMethod(event Event, handle handlerMethod) {
	handler.fnHandlers[event] = append(handler.fnHandlers[event], handle)
}

// Dispatch takes an event type and a payload and dispatches the payload to the handlers
// registered for the event type provided.
// Note that this method WILL block if a synchronous handler function is blocking, or if channel
// handlers are blocked.
func (handler *eventHandler) Dispatch(event Event, payload Payload) {
	if err := handler.validatePayload(event, payload); err != nil {
		log.Emit(logger.FATAL, "Dispatch for event %v FAILED validation: %v\n", event, err)
		return
	}

	if handles, ok := handler.fnHandlers[event]; ok {
		for _, handle := range handles {
			if handle.async {
				go handle.handle(event, payload)
			} else {
				handle.handle(event, payload)
			}
		}
	}

	if handles, ok := handler.chanHandlers[event]; ok {
		payload := HandlerEvent{event, payload}
		for _, handle := range handles {
			handle <- payload
		}
	}
}

// validatePayload ensures that the payload provided is valid for the event specified. An error
// will be returned if the payload is not valid, and the event will not be sent to the registered
// handlers in this case.
func (handler *eventHandler) validatePayload(event Event, payload Payload) error {
	var payloadTypeName string
	if t := reflect.TypeOf(payload); t != nil {
		payloadTypeName = t.Name()
	} else {
		payloadTypeName = "Nil"
	}

	switch event {
	case FriendShareAddedEvent, FriendShareRemovedEvent:
		if _, ok := payload.(FriendShareChange); !ok {
			return fmt.Errorf("illegal payload (type %s) for %s event. Expected FriendShareChange payload", payloadTypeName, event)
		}
	case ProfileShareAddedEvent, ProfileShareRemovedEvent:
		if _, ok := payload.(ProfileShareChange); !ok {
			return fmt.Errorf("illegal payload (type %s) for %s event. Expected ProfileShareChange payload", payloadTypeName, event)
		}
	case OverrideSetEvent, OverrideClearedEvent:
		if _, ok := payload.(OverrideChange); !ok {
			return fmt.Errorf("illegal payload (type %s) for %s event. Expected OverrideChange payload", payloadTypeName, event)
		}
	case FriendshipRemovedEvent:
		if _, ok := payload.(FriendshipRemoved); !ok {
			return fmt.Errorf("illegal payload (type %s) for %s event. Expected FriendshipRemoved payload", payloadTypeName, event)
		}
	case MediaRemovedEvent:
		if _, ok := payload.(MediaRemoved); !ok {
			return fmt.Errorf("illegal payload (type %s) for %s event. Expected MediaRemoved payload", payloadTypeName, event)
		}
	case PlaylistUpdateEvent:
		if _, ok := payload.(uuid.UUID); !ok {
			return fmt.Errorf("illegal payload (type %s) for %s event. Expected uuid.UUID payload", payloadTypeName, event)
		}
	default:
		return fmt.Errorf("unknown event type %s", event)
	}

	return nil
}
