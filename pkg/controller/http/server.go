package http

import (
	"net/http"
	"time"

	"github.com/Quangdung1996/chat-sub001/pkg/usecase"
	"github.com/Quangdung1996/chat-sub001/pkg/utils/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	router *chi.Mux
	uc     *usecase.UseCases
}

func New(uc *usecase.UseCases) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		uc:     uc,
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Post("/sync", s.syncUser)
			r.Get("/exists", s.userExists)
			r.Get("/", s.listUserMappings)
			r.Route("/{internalID}", func(r chi.Router) {
				r.Get("/", s.getUserMapping)
				r.Post("/active", s.setUserActive)
				r.Delete("/", s.deactivateUser)
			})
		})

		r.Route("/rooms", func(r chi.Router) {
			r.Post("/", s.createRoom)
			r.Get("/", s.listRoomMappings)
			r.Route("/{code}", func(r chi.Router) {
				r.Get("/", s.getRoomInfo)
				r.Delete("/", s.deleteRoom)
				r.Post("/rename", s.renameRoom)
				r.Post("/topic", s.setTopic)
				r.Post("/announcement", s.setAnnouncement)
				r.Post("/announcement-mode", s.setAnnouncementMode)
				r.Post("/archive", s.archiveRoom)
				r.Post("/leave", s.leaveRoom)

				r.Get("/members", s.getRoomMembers)
				r.Post("/members", s.addMember)
				r.Delete("/members/{userID}", s.removeMember)
				r.Post("/members/bulk", s.addMembersBulk)
				r.Delete("/members/bulk", s.removeMembersBulk)

				r.Post("/moderators", s.addModerator)
				r.Delete("/moderators/{userID}", s.removeModerator)

				r.Get("/messages", s.getRoomMessages)
				r.Post("/messages", s.sendMessage)
				r.Delete("/messages/{messageID}", s.deleteMessage)
				r.Post("/files", s.uploadFile)
			})
		})

		r.Get("/messages/{messageID}", s.getMessage)
		r.Get("/threads/{threadID}", s.getThreadMessages)
		r.Post("/direct-messages", s.sendDirectMessage)

		r.Post("/admin/resync", s.triggerResync)
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.Default().Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
