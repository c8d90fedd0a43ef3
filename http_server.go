package main

import (
	"net/http"
	"strings"
	"time"

	"contest-rooms/contest"
	"contest-rooms/presence"
	"contest-rooms/room"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/gobwas/ws"
)

type HTTPHandler struct {
	Service  *contest.Service
	Identity *IdentityJWT
}

type HTTPOptions struct {
	AllowedOrigins     []string
	RateLimitPerMinute int
}

func NewHTTPServer(service *contest.Service, identity *IdentityJWT, opts HTTPOptions) http.Handler {
	h := HTTPHandler{Service: service, Identity: identity}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	}))
	r.Use(middleware.RealIP)
	if opts.RateLimitPerMinute > 0 {
		r.Use(httprate.Limit(opts.RateLimitPerMinute, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint)))
	}
	r.Use(middleware.Heartbeat("/"))

	r.Post("/identity", h.issueIdentity())
	r.Get("/problems", h.listProblems())

	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware)
		r.Post("/match", h.matchOneRandom())
		r.Post("/rooms", h.createRoom())
		r.Route("/rooms/{roomCode}", func(r chi.Router) {
			r.Get("/", h.getRoom())
			r.Post("/join", h.joinRoom())
			r.Post("/start", h.startContest())
			r.Post("/complete", h.completeContest())
			r.Get("/events", h.getRoomEventStream())
			r.Get("/ws", h.websocket())
		})
	})
	return r
}

// Codes are generated upper-case; accept whatever case the user typed.
func roomCode(r *http.Request) string {
	return strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "roomCode")))
}

func (h HTTPHandler) issueIdentity() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := UnmarshalJSON[struct {
			DisplayName string `json:"displayName"`
		}](r.Body)
		if err != nil {
			writeError(w, err)
			return
		}
		name := strings.TrimSpace(body.DisplayName)
		if name == "" {
			name = room.DefaultDisplayName
		}
		who, token, err := h.Identity.Issue(name)
		if err != nil {
			writeError(w, err)
			return
		}
		LogIssuedIdentity(who.UserID)
		writeJSON(w, http.StatusCreated, map[string]string{
			"token":       token,
			"userId":      who.UserID,
			"displayName": who.DisplayName,
		})
	}
}

func (h HTTPHandler) listProblems() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		problems, err := h.Service.Problems(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, problems)
	}
}

func (h HTTPHandler) matchOneRandom() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		problemID, err := h.Service.MatchOneRandom(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		LogMatched(IdentityFrom(r.Context()).UserID, problemID)
		writeJSON(w, http.StatusOK, map[string]string{"problemId": problemID})
	}
}

func (h HTTPHandler) createRoom() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who := IdentityFrom(r.Context())
		created, err := h.Service.CreateRoom(r.Context(), who)
		if err != nil {
			writeError(w, err)
			return
		}
		LogCreatedRoom(created.Code, who.UserID)
		writeJSON(w, http.StatusCreated, created)
	}
}

func (h HTTPHandler) getRoom() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		current, err := h.Service.GetRoom(r.Context(), roomCode(r))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, current)
	}
}

func (h HTTPHandler) joinRoom() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := roomCode(r)
		who := IdentityFrom(r.Context())
		logger := GetRoomLogger(r.RemoteAddr, code, who.UserID)
		joined, err := h.Service.JoinRoom(r.Context(), code, who)
		if err != nil {
			logger.RequestFailed(err)
			writeError(w, err)
			return
		}
		logger.JoinedRoom()
		writeJSON(w, http.StatusOK, joined)
	}
}

func (h HTTPHandler) startContest() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := roomCode(r)
		who := IdentityFrom(r.Context())
		started, err := h.Service.StartContest(r.Context(), code, who)
		if err != nil {
			GetRoomLogger(r.RemoteAddr, code, who.UserID).RequestFailed(err)
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, started)
	}
}

func (h HTTPHandler) completeContest() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := roomCode(r)
		who := IdentityFrom(r.Context())
		logger := GetRoomLogger(r.RemoteAddr, code, who.UserID)
		done, err := h.Service.CompleteContest(r.Context(), code, who)
		if err != nil {
			logger.RequestFailed(err)
			writeError(w, err)
			return
		}
		logger.CompletedContest()
		writeJSON(w, http.StatusOK, done)
	}
}

// roomWatch is one streaming subscription. stop must be called once the
// caller is done reading.
type roomWatch struct {
	updates <-chan room.Room
	handle  *presence.Handle
	stop    func()
}

func (h HTTPHandler) watch(r *http.Request, code string) (roomWatch, error) {
	updates := make(chan room.Room)
	done := make(chan struct{})
	handle, err := h.Service.SubscribeRoom(r.Context(), code, func(snapshot room.Room) {
		select {
		case updates <- snapshot:
		case <-done:
		}
	})
	if err != nil {
		return roomWatch{}, err
	}
	stop := func() {
		close(done)
		h.Service.Unsubscribe(handle)
	}
	return roomWatch{updates: updates, handle: handle, stop: stop}, nil
}

func (h HTTPHandler) getRoomEventStream() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "HTTP Streaming not supported!", http.StatusBadRequest)
			return
		}
		watch, err := h.watch(r, roomCode(r))
		if err != nil {
			writeError(w, err)
			return
		}
		defer watch.stop()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		receiverSSE := NewReceiverSSE(w, flusher)
		logger := GetRoomLogger(r.RemoteAddr, watch.handle.Code(), IdentityFrom(r.Context()).UserID)
		logger.Subscribed("sse")
		for {
			select {
			case snapshot := <-watch.updates:
				receiverSSE.SendSnapshot(snapshot)
			case <-watch.handle.Done():
				receiverSSE.SendRoomClosedMessage()
				logger.Unsubscribed("sse")
				return
			case <-r.Context().Done():
				logger.Unsubscribed("sse")
				return
			}
		}
	}
}

func (h HTTPHandler) websocket() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := roomCode(r)
		if _, err := h.Service.GetRoom(r.Context(), code); err != nil {
			writeError(w, err)
			return
		}
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			LogErrorWhileUpgradingHTTP(err)
			return
		}
		defer conn.Close()
		watcherWs := NewWatcherWebsocket(conn)

		watch, err := h.watch(r, code)
		if err != nil {
			watcherWs.SendRoomClosedMessage()
			return
		}
		defer watch.stop()
		logger := GetRoomLogger(r.RemoteAddr, watch.handle.Code(), IdentityFrom(r.Context()).UserID)

		closed := make(chan struct{})
		go func() {
			watcherWs.WaitForClose()
			close(closed)
		}()

		logger.Subscribed("websocket")
		for {
			select {
			case snapshot := <-watch.updates:
				if err := watcherWs.SendSnapshot(snapshot); err != nil {
					logger.Unsubscribed("websocket")
					return
				}
			case <-watch.handle.Done():
				watcherWs.SendRoomClosedMessage()
				logger.Unsubscribed("websocket")
				return
			case <-closed:
				logger.Unsubscribed("websocket")
				return
			}
		}
	}
}
