package httpapi

import (
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/goliatone/go-formkit/pkg/form"
)

// eventBuffer is the per-connection backlog; slower clients lose events.
const eventBuffer = 64

// handleEvents streams form events as JSON messages until the client goes
// away. The subscription is taken before the upgrade so no event emitted
// after the handshake is missed.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	events := make(chan form.Event, eventBuffer)
	unsubscribe := sess.Form.Subscribe(func(ev form.Event) {
		select {
		case events <- ev:
		default:
			s.logger.Printf("httpapi: session %s: dropped %s event", sess.ID, ev.Type)
		}
	})
	defer unsubscribe()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns,
	})
	if err != nil {
		s.logger.Printf("httpapi: websocket accept: %v", err)
		return
	}
	defer conn.CloseNow()

	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if err := wsjson.Write(ctx, conn, ev); err != nil {
				s.logger.Printf("httpapi: session %s: write event: %v", sess.ID, err)
				return
			}
			s.sessions.touch(sess.ID)
		}
	}
}
