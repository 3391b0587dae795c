package main

import (
	"context"
	"net/http"

	log "github.com/sirupsen/logrus"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

func makeWSHandler(
	handler func(context.Context, *websocket.Conn),
) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			log.WithError(err).Warn("websocket accept")
			return
		}
		log.Debugf("connect: %s %s", r.URL.Path, r.RemoteAddr)
		defer log.Debugf("disconnect: %s", r.RemoteAddr)
		defer c.Close(websocket.StatusInternalError, "")
		handler(r.Context(), c)
	}
}

// streamEvents writes a bar-state snapshot on every change until the
// peer goes away or the window manager stops.
func (as *APIServer) streamEvents(ctx context.Context, c *websocket.Conn) {
	ch, stop := as.wm.Subscribe()
	defer stop()
	ctx = c.CloseRead(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-ch:
			if !ok {
				c.Close(websocket.StatusGoingAway, "window manager stopped")
				return
			}
			if err := wsjson.Write(ctx, c, s); err != nil {
				return
			}
		}
	}
}
