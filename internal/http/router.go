package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"questlog/internal/auth"
	"questlog/internal/command"
	"questlog/internal/config"
	"questlog/internal/docstore"
	"questlog/internal/http/handler"
	mw "questlog/internal/http/middleware"
	"questlog/internal/quest"
)

type Deps struct {
	DB       *gorm.DB
	JWT      *auth.JWT
	Quests   *quest.Manager
	Commands *command.Dispatcher
	History  docstore.History
	Events   handler.Subscriber
	Log      zerolog.Logger
}

func NewRouter(cfg config.Config, d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.RequestLogger(d.Log))
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	ah := &handler.AuthHandler{DB: d.DB, JWT: d.JWT}
	r.Post("/auth/register", ah.Register)
	r.Post("/auth/login", ah.Login)

	me := &handler.MeHandler{}
	r.With(auth.RequireAuth(d.JWT)).Get("/me", me.Me)

	questH := &handler.QuestHandler{Quests: d.Quests, History: d.History, Log: d.Log}
	objectiveH := &handler.ObjectiveHandler{Quests: d.Quests, Log: d.Log}
	noteH := &handler.NoteHandler{Quests: d.Quests, Log: d.Log}

	r.Route("/quests", func(r chi.Router) {
		r.Use(auth.RequireAuth(d.JWT))

		r.Get("/", questH.List)
		r.Get("/{id}", questH.Get)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireDirector)

			r.Post("/", questH.Create)
			r.Patch("/{id}", questH.Update)
			r.Get("/{id}/timeline", questH.Timeline)

			r.Post("/{id}/objectives", objectiveH.Add)
			r.Delete("/{id}/objectives/{oid}", objectiveH.Remove)

			r.Post("/{id}/notes", noteH.AddToQuest)
			r.Delete("/{id}/notes/{nid}", noteH.RemoveFromQuest)
		})
	})

	r.Route("/objectives", func(r chi.Router) {
		r.Use(auth.RequireAuth(d.JWT), auth.RequireDirector)

		r.Patch("/{oid}", objectiveH.Update)
		r.Post("/{oid}/notes", noteH.AddToObjective)
	})

	commandH := &handler.CommandHandler{Commands: d.Commands, Log: d.Log}
	r.With(auth.RequireAuth(d.JWT), auth.RequireDirector).Post("/commands/visibility", commandH.Visibility)

	if d.Events != nil {
		eventH := &handler.EventHandler{Events: d.Events, Log: d.Log}
		r.With(auth.RequireAuth(d.JWT), auth.RequireDirector).Get("/events", eventH.Stream)
	}

	return r
}
