package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/intio/lwm/internal/wm"
)

// controller is the part of *wm.WM the API uses. Methods other than
// the snapshot readers must run inside Do.
type controller interface {
	Do(fn func()) bool
	State() (wm.Snapshot, bool)
	Monitors() ([]wm.MonitorView, bool)
	Clients() ([]wm.ClientView, bool)
	ClientInfo(win xproto.Window) (wm.ClientView, error)
	Subscribe() (<-chan wm.Snapshot, func())

	Focus(win xproto.Window) error
	Close(win xproto.Window) error
	SetFullscreen(win xproto.Window, on bool) error
	SetSticky(win xproto.Window, on bool) error
	MoveToDesktop(win xproto.Window, d uint) error
	SwitchDesktop(d uint) error
}

// APIServer serves the introspection API. It implements
// suture.Service.
type APIServer struct {
	server *http.Server
	wm     controller
}

// clientUpdate is the body of POST /clients/{id}. Absent fields are
// left alone.
type clientUpdate struct {
	Fullscreen *bool `json:"fullscreen"`
	Sticky     *bool `json:"sticky"`
	Desktop    *uint `json:"desktop"`
	Focus      bool  `json:"focus"`
}

type desktopRequest struct {
	Desktop *uint `json:"desktop"`
}

func jsonResponse(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	log.WithFields(log.Fields{"status": status, "method": r.Method}).Debug(r.URL.Path)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	e := json.NewEncoder(w)
	e.Encode(data)
}

func errorResponse(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, wm.ErrUnknownClient):
		status = http.StatusNotFound
	case errors.Is(err, wm.ErrMalformedMessage):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, wm.ErrQuit):
		status = http.StatusServiceUnavailable
	}
	jsonResponse(w, r, status, map[string]interface{}{"error": err.Error()})
}

func unavailable(w http.ResponseWriter, r *http.Request) {
	errorResponse(w, r, wm.ErrQuit)
}

// NewAPIServer routes the API to m. The websocket stream is served at
// /events.
func NewAPIServer(m controller, listenAddr string) *APIServer {
	as := &APIServer{wm: m}
	router := mux.NewRouter()
	as.server = &http.Server{
		Addr:           listenAddr,
		Handler:        router,
		ReadTimeout:    1 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}

	router.HandleFunc("/monitors", func(w http.ResponseWriter, r *http.Request) {
		mons, ok := as.wm.Monitors()
		if !ok {
			unavailable(w, r)
			return
		}
		jsonResponse(w, r, http.StatusOK, map[string]interface{}{"items": mons})
	}).Methods("GET")

	router.HandleFunc("/clients", func(w http.ResponseWriter, r *http.Request) {
		clients, ok := as.wm.Clients()
		if !ok {
			unavailable(w, r)
			return
		}
		if clients == nil {
			clients = []wm.ClientView{}
		}
		jsonResponse(w, r, http.StatusOK, map[string]interface{}{"items": clients})
	}).Methods("GET")

	router.HandleFunc("/bar", as.bar).Methods("GET")

	router.HandleFunc("/desktop", func(w http.ResponseWriter, r *http.Request) {
		var req desktopRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Desktop == nil {
			jsonResponse(w, r, http.StatusUnprocessableEntity, nil)
			return
		}
		var err error
		if !as.wm.Do(func() { err = as.wm.SwitchDesktop(*req.Desktop) }) {
			unavailable(w, r)
			return
		}
		if err != nil {
			errorResponse(w, r, err)
			return
		}
		as.bar(w, r)
	}).Methods("POST")

	router.HandleFunc("/clients/{id:[0-9]+}", as.client).Methods("GET", "POST", "DELETE")
	router.HandleFunc("/events", makeWSHandler(as.streamEvents)).Methods("GET")
	router.PathPrefix("/").Handler(http.NotFoundHandler())
	return as
}

func (as *APIServer) bar(w http.ResponseWriter, r *http.Request) {
	s, ok := as.wm.State()
	if !ok {
		unavailable(w, r)
		return
	}
	jsonResponse(w, r, http.StatusOK, map[string]interface{}{"item": s})
}

func (as *APIServer) client(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil {
		jsonResponse(w, r, http.StatusNotFound, nil)
		return
	}
	win := xproto.Window(id)

	switch r.Method {
	case "GET":
	case "POST":
		var upd clientUpdate
		if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
			jsonResponse(w, r, http.StatusUnprocessableEntity, nil)
			return
		}
		log.WithField("window", win).Debugf("update client with %+v", upd)
		if !as.wm.Do(func() { err = as.update(win, upd) }) {
			unavailable(w, r)
			return
		}
		if err != nil {
			errorResponse(w, r, err)
			return
		}
	case "DELETE":
		if !as.wm.Do(func() { err = as.wm.Close(win) }) {
			unavailable(w, r)
			return
		}
		if err != nil {
			errorResponse(w, r, err)
			return
		}
		jsonResponse(w, r, http.StatusOK, nil)
		return
	}

	view, err := as.wm.ClientInfo(win)
	if err != nil {
		errorResponse(w, r, err)
		return
	}
	jsonResponse(w, r, http.StatusOK, map[string]interface{}{"item": view})
}

// update applies upd on the dispatcher goroutine.
func (as *APIServer) update(win xproto.Window, upd clientUpdate) error {
	if upd.Desktop != nil {
		if err := as.wm.MoveToDesktop(win, *upd.Desktop); err != nil {
			return err
		}
	}
	if upd.Sticky != nil {
		if err := as.wm.SetSticky(win, *upd.Sticky); err != nil {
			return err
		}
	}
	if upd.Fullscreen != nil {
		if err := as.wm.SetFullscreen(win, *upd.Fullscreen); err != nil {
			return err
		}
	}
	if upd.Focus {
		return as.wm.Focus(win)
	}
	return nil
}

// Serve runs the HTTP server until ctx is done.
func (as *APIServer) Serve(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		log.Infof("Listening on http://%s", as.server.Addr)
		errc <- as.server.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		as.server.Shutdown(shutdownCtx)
		return ctx.Err()
	}
}

func (as *APIServer) String() string {
	return "api " + as.server.Addr
}
