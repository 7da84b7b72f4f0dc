// Package hub fans dashboard frames out to websocket clients.
package hub

import "github.com/gofiber/websocket/v2"

// Message is one frame queued for every client: a JSON event or status as
// text, or a JPEG crop as binary.
type Message struct {
	Binary bool
	Data   []byte
}

func (m Message) frameType() int {
	if m.Binary {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}
