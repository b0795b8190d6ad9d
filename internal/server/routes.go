package server

import (
	"database/sql"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/swaggest/swgui/v5emb"

	"github.com/geoquest/api/internal/game"
)

func addRoutes(r chi.Router, logger *slog.Logger, engine *game.Engine, store *SQLiteStore,
	broker *Broker, snap *Snapshotter, presence Presence, db *sql.DB, rdb *redis.Client) {

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("GeoQuest API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(logger, db, rdb))

	// Player + observer routes.
	r.Route("/api/sessions", func(r chi.Router) {
		r.Get("/", handleListSessions(store))
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", handleGetSession(snap))
			r.Post("/position", handlePosition(engine, presence))
			r.Post("/answer", handleAnswer(engine))
			r.Get("/events", handleEvents(broker))
			r.Get("/replay", handleReplay(store))
			r.Get("/replay/stream", handleReplayStream(store))
		})
	})

	// Cross-session observer feed.
	r.Get("/ws/sessions", handleWatch(broker, logger))

	// Operator routes. Single-operator deployments, no auth layer.
	r.Route("/api/admin/sessions", func(r chi.Router) {
		r.Get("/", handleListSessions(store))
		r.Post("/", handleCreateSession(engine))
		r.Post("/{sessionID}/activate", handleActivateSession(engine))
		r.Post("/{sessionID}/reset", handleResetSession(engine))
	})
}
