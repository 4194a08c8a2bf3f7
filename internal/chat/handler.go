package chat

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// inbound is what clients send over the socket.
type inbound struct {
	Type    string `json:"type"` // message
	Content string `json:"content"`
}

// UpgradeRequired gates the websocket route so plain HTTP requests get a
// clean 426 instead of a hung connection.
func UpgradeRequired(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handler returns the websocket handler for the global room. The JWT
// middleware must run before the upgrade and store user_id and username
// in locals.
func Handler(svc *Service) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, err := uuid.Parse(conn.Locals("user_id").(string))
		if err != nil {
			conn.Close()
			return
		}
		username, _ := conn.Locals("username").(string)

		// Banned accounts are turned away before joining the room.
		if _, err := svc.moderation.RequireActive(userID); err != nil {
			conn.WriteJSON(Event{Type: "error", Payload: err.Error()})
			conn.Close()
			return
		}

		cl := &client{
			userID:   userID,
			username: username,
			send:     make(chan Event, sendBufferSize),
		}

		history, err := svc.History()
		if err != nil {
			slog.Error("failed to load chat history", "error", err)
			conn.Close()
			return
		}
		if err := conn.WriteJSON(Event{Type: "history", Payload: history}); err != nil {
			conn.Close()
			return
		}

		svc.Hub().register(cl)

		// Writer. Exits when the hub closes the send channel.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for ev := range cl.send {
				if err := conn.WriteJSON(ev); err != nil {
					return
				}
			}
		}()

		// Reader.
		for {
			var in inbound
			if err := conn.ReadJSON(&in); err != nil {
				break
			}
			if in.Type != "message" {
				continue
			}
			if _, err := svc.Send(userID, in.Content); err != nil {
				// Per-message failures go back to the sender only.
				select {
				case cl.send <- Event{Type: "error", Payload: err.Error()}:
				default:
				}
			}
		}

		// Unregister closes the send channel, which lets the writer
		// drain and exit.
		svc.Hub().unregister(cl)
		<-done
		conn.Close()
	})
}
