package websocket

import (
	"fmt"

	"github.com/google/uuid"
)

type socketMessageType int

const (
	Update socketMessageType = iota
	Command
	Response
	ErrorResponse
	Welcome
)

// SocketMessage is the envelope for every frame exchanged over the
// activity socket. Id allows a reply to be correlated with the message
// it answers; Origin carries the UUID of the client a command arrived
// from, and Target (when set) restricts delivery to a single client.
type SocketMessage struct {
	Title  string                 `json:"title"`
	Body   map[string]interface{} `json:"arguments"`
	Id     int                    `json:"id"`
	Type   socketMessageType      `json:"type"`
	Origin *uuid.UUID             `json:"-"`
	Target *uuid.UUID             `json:"-"`
}

// ValidateArguments checks the message body contains each required key
// with a value of the named primitive type ("string", "number"/"int").
func (message *SocketMessage) ValidateArguments(required map[string]string) error {
	const errFmt = "failed to validate key '%v' with type '%v' - %#v"

	for key, wantType := range required {
		v, ok := message.Body[key]
		if !ok {
			return fmt.Errorf("failed to validate key '%v' - key is missing", key)
		}

		switch wantType {
		case "number", "int":
			if _, ok := v.(float64); !ok {
				return fmt.Errorf(errFmt, key, wantType, v)
			}
		case "string":
			if fmt.Sprintf("%v", v) == "" {
				return fmt.Errorf(errFmt, key, wantType, v)
			}
		default:
			return fmt.Errorf(errFmt, key, wantType, "unknown type")
		}
	}

	return nil
}

// FormReply returns a new message addressed back to the origin of this
// one, carrying the same correlation Id.
func (message *SocketMessage) FormReply(replyTitle string, replyBody map[string]interface{}, replyType socketMessageType) *SocketMessage {
	if replyBody != nil {
		replyBody["command"] = message.Body
	}

	return &SocketMessage{
		Title:  replyTitle,
		Body:   replyBody,
		Type:   replyType,
		Id:     message.Id,
		Target: message.Origin,
	}
}
