package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/geoquest/api/internal/game"
	"github.com/geoquest/api/internal/geoquest"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse maps dependency names to their check status.
type HealthResponse map[string]struct {
	Status string `json:"status"`
}

type sessionListResponse struct {
	Sessions []SessionSummary `json:"sessions"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "GeoQuest API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for the GeoQuest location game.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /api/sessions
	listSessions, _ := r.NewOperationContext(http.MethodGet, "/api/sessions")
	listSessions.SetSummary("List sessions")
	listSessions.SetDescription("Returns per-session progress summaries across all sessions.")
	listSessions.AddRespStructure(sessionListResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(listSessions)

	// GET /api/sessions/{sessionID}
	getSession, _ := r.NewOperationContext(http.MethodGet, "/api/sessions/{sessionID}")
	getSession.SetSummary("Get session state")
	getSession.SetDescription("Returns the full observer view of one session: progress, positions, roster and leaderboard.")
	getSession.AddRespStructure(SessionView{}, openapi.WithHTTPStatus(http.StatusOK))
	getSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getSession)

	// POST /api/sessions/{sessionID}/position
	postPosition, _ := r.NewOperationContext(http.MethodPost, "/api/sessions/{sessionID}/position")
	postPosition.SetSummary("Submit position")
	postPosition.SetDescription("Ingests a player position, evaluates geofences and advances the session when one is entered.")
	postPosition.AddReqStructure(positionRequest{})
	postPosition.AddRespStructure(game.PositionResult{}, openapi.WithHTTPStatus(http.StatusOK))
	postPosition.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postPosition.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	postPosition.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postPosition)

	// POST /api/sessions/{sessionID}/answer
	postAnswer, _ := r.NewOperationContext(http.MethodPost, "/api/sessions/{sessionID}/answer")
	postAnswer.SetSummary("Submit answer")
	postAnswer.SetDescription("Submits an answer for the active checkpoint. Stale or out-of-order submissions return 409.")
	postAnswer.AddReqStructure(answerRequest{})
	postAnswer.AddRespStructure(game.AnswerResult{}, openapi.WithHTTPStatus(http.StatusOK))
	postAnswer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postAnswer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	postAnswer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postAnswer)

	// GET /api/sessions/{sessionID}/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/sessions/{sessionID}/events")
	getEvents.SetSummary("SSE session stream")
	getEvents.SetDescription("Server-Sent Events stream for one session. The first event is a full snapshot.")
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	getEvents.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getEvents)

	// GET /api/sessions/{sessionID}/replay
	getReplay, _ := r.NewOperationContext(http.MethodGet, "/api/sessions/{sessionID}/replay")
	getReplay.SetSummary("Replay frame")
	getReplay.SetDescription("Reconstructs the session state at offset t seconds from the event log. Finished sessions only.")
	getReplay.AddRespStructure(replayFrameResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getReplay.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	getReplay.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	getReplay.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(getReplay)

	// GET /api/sessions/{sessionID}/replay/stream
	getReplayStream, _ := r.NewOperationContext(http.MethodGet, "/api/sessions/{sessionID}/replay/stream")
	getReplayStream.SetSummary("Replay stream")
	getReplayStream.SetDescription("Plays a finished session back over SSE at the requested speed multiplier.")
	getReplayStream.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	getReplayStream.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(getReplayStream)

	// GET /ws/sessions
	getWatch, _ := r.NewOperationContext(http.MethodGet, "/ws/sessions")
	getWatch.SetSummary("WebSocket session feed")
	getWatch.SetDescription("Upgrades to a WebSocket that pushes the session list whenever any session changes.")
	getWatch.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getWatch)

	// GET /api/admin/sessions
	adminList, _ := r.NewOperationContext(http.MethodGet, "/api/admin/sessions")
	adminList.SetSummary("List sessions (operator)")
	adminList.SetDescription("Same cross-session summaries as the public list, under the operator prefix.")
	adminList.AddRespStructure(sessionListResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(adminList)

	// POST /api/admin/sessions
	createSession, _ := r.NewOperationContext(http.MethodPost, "/api/admin/sessions")
	createSession.SetSummary("Create session")
	createSession.SetDescription("Creates a session for a team on a course. The session starts in the created state.")
	createSession.AddReqStructure(createSessionRequest{})
	createSession.AddRespStructure(geoquest.Session{}, openapi.WithHTTPStatus(http.StatusCreated))
	createSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	createSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(createSession)

	// POST /api/admin/sessions/{sessionID}/activate
	activateSession, _ := r.NewOperationContext(http.MethodPost, "/api/admin/sessions/{sessionID}/activate")
	activateSession.SetSummary("Activate session")
	activateSession.SetDescription("Moves a created session to pending so the start geofence becomes armed.")
	activateSession.AddRespStructure(geoquest.Session{}, openapi.WithHTTPStatus(http.StatusOK))
	activateSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	activateSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(activateSession)

	// POST /api/admin/sessions/{sessionID}/reset
	resetSession, _ := r.NewOperationContext(http.MethodPost, "/api/admin/sessions/{sessionID}/reset")
	resetSession.SetSummary("Reset session")
	resetSession.SetDescription("Returns a session to the created state and purges its event log.")
	resetSession.AddRespStructure(geoquest.Session{}, openapi.WithHTTPStatus(http.StatusOK))
	resetSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(resetSession)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
