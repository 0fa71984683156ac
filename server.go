package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"go-policy-wizard/metrics"
	"go-policy-wizard/models"
	"go-policy-wizard/wizard"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const ErrorInternal = "error:internal"
const ERR_MARSHAL = "failed to marshal response message"
const ERR_DECODE = "failed to decode request body"
const ERR_UNKNOWN_SESSION = "unknown session"

type ServerConfig struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	UseTls         bool   `json:"use_tls,omitempty"`
	TlsPrivKeyPath string `json:"tls_priv_key_path,omitempty"`
	TlsCertPath    string `json:"tls_cert_path,omitempty"`
}

type ServerState struct {
	registry      *SessionRegistry
	partnerAPI    wizard.PartnerAPI
	lookupService wizard.IdentityLookup
	verifier      *TokenVerifier
	metrics       *metrics.Metrics
}

type Server struct {
	server *http.Server
	config ServerConfig
}

func (s *Server) ListenAndServe() error {
	if s.config.UseTls {
		slog.Info("Starting server with TLS", "host", s.config.Host, "port", s.config.Port, "cert", s.config.TlsCertPath, "key", s.config.TlsPrivKeyPath)
		return s.server.ListenAndServeTLS(s.config.TlsCertPath, s.config.TlsPrivKeyPath)
	} else {
		slog.Info("Starting server without TLS", "host", s.config.Host, "port", s.config.Port)
		return s.server.ListenAndServe()
	}
}

func (s *Server) Stop() error {
	slog.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := s.server.Shutdown(ctx)
	if err != nil {
		slog.Error("Error during server shutdown", "error", err)
	} else {
		slog.Info("Server shut down successfully")
	}
	return err
}

func NewServer(state *ServerState, config ServerConfig) (*Server, error) {
	slog.Info("Creating new server", "host", config.Host, "port", config.Port, "tls", config.UseTls)
	router := mux.NewRouter()

	router.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		slog.Debug("Health check request received")
		err := json.NewEncoder(w).Encode(map[string]bool{"ok": true})
		if err != nil {
			slog.Error("failed to write body to http response", "error", err)
		}
	})
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(authMiddleware(state.verifier))

	api.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		handleCreateSession(state, w, r)
	}).Methods(http.MethodPost)

	session := api.PathPrefix("/session/{sessionId}").Subrouter()
	session.HandleFunc("", func(w http.ResponseWriter, r *http.Request) {
		handleGetSession(state, w, r)
	}).Methods(http.MethodGet)
	session.HandleFunc("/criteria", func(w http.ResponseWriter, r *http.Request) {
		handleUpdateCriteria(state, w, r)
	}).Methods(http.MethodPost)
	session.HandleFunc("/travelers", func(w http.ResponseWriter, r *http.Request) {
		handleAddTraveler(state, w, r)
	}).Methods(http.MethodPost)
	session.HandleFunc("/travelers/{index}", func(w http.ResponseWriter, r *http.Request) {
		handleRemoveTraveler(state, w, r)
	}).Methods(http.MethodDelete)
	session.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		handleSearch(state, w, r)
	}).Methods(http.MethodPost)
	session.HandleFunc("/select-offer", func(w http.ResponseWriter, r *http.Request) {
		handleSelectOffer(state, w, r)
	}).Methods(http.MethodPost)
	session.HandleFunc("/step/next", func(w http.ResponseWriter, r *http.Request) {
		handleNextStep(state, w, r)
	}).Methods(http.MethodPost)
	session.HandleFunc("/step/prev", func(w http.ResponseWriter, r *http.Request) {
		handlePrevStep(state, w, r)
	}).Methods(http.MethodPost)
	session.HandleFunc("/step", func(w http.ResponseWriter, r *http.Request) {
		handleSetStep(state, w, r)
	}).Methods(http.MethodPost)
	session.HandleFunc("/purchaser-flag", func(w http.ResponseWriter, r *http.Request) {
		handleSetPurchaserFlag(state, w, r)
	}).Methods(http.MethodPost)
	session.HandleFunc("/traveler-data", func(w http.ResponseWriter, r *http.Request) {
		handleUpdateTraveler(state, w, r)
	}).Methods(http.MethodPost)
	session.HandleFunc("/purchaser-data", func(w http.ResponseWriter, r *http.Request) {
		handleUpdatePurchaser(state, w, r)
	}).Methods(http.MethodPost)
	session.HandleFunc("/blur", func(w http.ResponseWriter, r *http.Request) {
		handleBlur(state, w, r)
	}).Methods(http.MethodPost)
	session.HandleFunc("/lookup", func(w http.ResponseWriter, r *http.Request) {
		handleLookup(state, w, r)
	}).Methods(http.MethodPost)
	session.HandleFunc("/add-traveler", func(w http.ResponseWriter, r *http.Request) {
		handleAddTravelerFromConfirmation(state, w, r)
	}).Methods(http.MethodPost)
	session.HandleFunc("/issue", func(w http.ResponseWriter, r *http.Request) {
		handleIssue(state, w, r)
	}).Methods(http.MethodPost)
	session.HandleFunc("/check-payment", func(w http.ResponseWriter, r *http.Request) {
		handleCheckPayment(state, w, r)
	}).Methods(http.MethodPost)
	session.HandleFunc("/reset", func(w http.ResponseWriter, r *http.Request) {
		handleReset(state, w, r)
	}).Methods(http.MethodPost)

	slog.Debug("Registered all API routes")

	addr := fmt.Sprintf("%v:%v", config.Host, config.Port)
	srv := &http.Server{
		Handler: router,
		Addr:    addr,
		// Good practice: enforce timeouts for servers you create!
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	slog.Info("Server created successfully", "address", addr)
	return &Server{
		server: srv,
		config: config,
	}, nil
}

type CreateSessionResponse struct {
	SessionId string `json:"session_id"`
}

func handleCreateSession(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	slog.Info("Received request to start a wizard session")
	sessionId, _ := state.registry.Create()
	state.metrics.IncrementSessionsCreated()
	state.metrics.IncrementActiveSessions(1)

	if err := writeJSON(w, http.StatusOK, CreateSessionResponse{SessionId: sessionId}); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_MARSHAL, err)
	}
}

func handleGetSession(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	session, ok := requireSession(state, w, r)
	if !ok {
		return
	}

	if err := writeJSON(w, http.StatusOK, session.View(time.Now())); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_MARSHAL, err)
	}
}

func handleUpdateCriteria(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	session, ok := requireSession(state, w, r)
	if !ok {
		return
	}

	var update wizard.CriteriaUpdate
	if !decodeBody(w, r, &update) {
		return
	}

	session.UpdateCriteria(update, time.Now())
	state.registry.Persist(sessionIdVar(r), session)
	respondWithView(w, session)
}

func handleAddTraveler(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	session, ok := requireSession(state, w, r)
	if !ok {
		return
	}

	if _, added := session.AddTraveler(); !added {
		respondWithErr(w, http.StatusBadRequest, "traveler limit reached", "traveler limit reached", nil)
		return
	}
	state.registry.Persist(sessionIdVar(r), session)
	respondWithView(w, session)
}

func handleRemoveTraveler(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	session, ok := requireSession(state, w, r)
	if !ok {
		return
	}

	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		respondWithErr(w, http.StatusBadRequest, "invalid traveler index", "invalid traveler index", err)
		return
	}
	if !session.RemoveTraveler(index) {
		respondWithErr(w, http.StatusBadRequest, "traveler cannot be removed", "traveler cannot be removed", nil)
		return
	}
	state.registry.Persist(sessionIdVar(r), session)
	respondWithView(w, session)
}

func handleSearch(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	session, ok := requireSession(state, w, r)
	if !ok {
		return
	}

	slog.Info("Received request to search quotes", "session_id", sessionIdVar(r))
	state.metrics.IncrementSearchRequests()
	started := time.Now()

	session.RunSearch(r.Context(), state.partnerAPI)

	state.metrics.ObserveEndpointLatency("search", time.Since(started).Seconds())
	view := session.View(time.Now())
	if view.SearchError != "" {
		state.metrics.IncrementSearchFailures()
	}
	state.registry.Persist(sessionIdVar(r), session)
	if err := writeJSON(w, http.StatusOK, view); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_MARSHAL, err)
	}
}

type SelectOfferRequest struct {
	Partner   string `json:"partner"`
	ProgramId int    `json:"programId"`
}

func handleSelectOffer(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	session, ok := requireSession(state, w, r)
	if !ok {
		return
	}

	var request SelectOfferRequest
	if !decodeBody(w, r, &request) {
		return
	}

	if !session.SelectOffer(request.Partner, request.ProgramId) {
		respondWithErr(w, http.StatusBadRequest, "offer not available", "offer not available", nil)
		return
	}
	slog.Info("Offer selected", "session_id", sessionIdVar(r), "partner", request.Partner, "program_id", request.ProgramId)
	state.registry.Persist(sessionIdVar(r), session)
	respondWithView(w, session)
}

type StepResponse struct {
	Moved  bool                    `json:"moved"`
	Errors wizard.ValidationResult `json:"validation"`
	View   wizard.View             `json:"view"`
}

func handleNextStep(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	session, ok := requireSession(state, w, r)
	if !ok {
		return
	}

	result, moved := session.NextStep(time.Now())
	state.registry.Persist(sessionIdVar(r), session)

	response := StepResponse{Moved: moved, Errors: result, View: session.View(time.Now())}
	if err := writeJSON(w, http.StatusOK, response); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_MARSHAL, err)
	}
}

func handlePrevStep(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	session, ok := requireSession(state, w, r)
	if !ok {
		return
	}

	session.PrevStep()
	state.registry.Persist(sessionIdVar(r), session)
	respondWithView(w, session)
}

type SetStepRequest struct {
	Step int `json:"step"`
}

func handleSetStep(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	session, ok := requireSession(state, w, r)
	if !ok {
		return
	}

	var request SetStepRequest
	if !decodeBody(w, r, &request) {
		return
	}

	if !session.SetStep(request.Step) {
		respondWithErr(w, http.StatusBadRequest, "step is locked", "step is locked", nil)
		return
	}
	state.registry.Persist(sessionIdVar(r), session)
	respondWithView(w, session)
}

type PurchaserFlagRequest struct {
	IsPurchaser bool `json:"isPurchaser"`
}

func handleSetPurchaserFlag(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	session, ok := requireSession(state, w, r)
	if !ok {
		return
	}

	var request PurchaserFlagRequest
	if !decodeBody(w, r, &request) {
		return
	}

	session.SetIsPurchaser(request.IsPurchaser)
	state.registry.Persist(sessionIdVar(r), session)
	respondWithView(w, session)
}

type UpdateTravelerRequest struct {
	Index  int           `json:"index"`
	Person models.Person `json:"person"`
}

func handleUpdateTraveler(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	session, ok := requireSession(state, w, r)
	if !ok {
		return
	}

	var request UpdateTravelerRequest
	if !decodeBody(w, r, &request) {
		return
	}

	if !session.UpdateTraveler(request.Index, request.Person) {
		respondWithErr(w, http.StatusBadRequest, "invalid traveler index", "invalid traveler index", nil)
		return
	}
	state.registry.Persist(sessionIdVar(r), session)
	respondWithView(w, session)
}

type UpdatePurchaserRequest struct {
	Person models.Person `json:"person"`
}

func handleUpdatePurchaser(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	session, ok := requireSession(state, w, r)
	if !ok {
		return
	}

	var request UpdatePurchaserRequest
	if !decodeBody(w, r, &request) {
		return
	}

	if !session.UpdatePurchaser(request.Person) {
		respondWithErr(w, http.StatusBadRequest, "no separate purchaser record", "no separate purchaser record", nil)
		return
	}
	state.registry.Persist(sessionIdVar(r), session)
	respondWithView(w, session)
}

type BlurRequest struct {
	Record string `json:"record"`
	Field  string `json:"field"`
}

func handleBlur(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	session, ok := requireSession(state, w, r)
	if !ok {
		return
	}

	var request BlurRequest
	if !decodeBody(w, r, &request) {
		return
	}

	session.BlurField(request.Record, request.Field)
	respondWithView(w, session)
}

type LookupRequestBody struct {
	Record string `json:"record"`
}

func handleLookup(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	session, ok := requireSession(state, w, r)
	if !ok {
		return
	}

	var request LookupRequestBody
	if !decodeBody(w, r, &request) {
		return
	}

	slog.Info("Received passport lookup request", "session_id", sessionIdVar(r), "record", request.Record)
	if err := session.LookupPassport(r.Context(), state.lookupService, request.Record); err != nil {
		state.metrics.IncrementPassportLookups("rejected")
		respondWithErr(w, http.StatusBadRequest, "lookup not possible", "lookup preconditions not met", err)
		return
	}

	view := session.View(time.Now())
	if _, failed := view.LookupErrors[request.Record]; failed {
		state.metrics.IncrementPassportLookups("error")
	} else {
		state.metrics.IncrementPassportLookups("applied")
	}
	state.registry.Persist(sessionIdVar(r), session)
	if err := writeJSON(w, http.StatusOK, view); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_MARSHAL, err)
	}
}

func handleAddTravelerFromConfirmation(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	session, ok := requireSession(state, w, r)
	if !ok {
		return
	}

	if !session.AddTravelerFromConfirmation() {
		respondWithErr(w, http.StatusBadRequest, "traveler limit reached", "traveler limit reached", nil)
		return
	}
	state.registry.Persist(sessionIdVar(r), session)
	respondWithView(w, session)
}

func handleIssue(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	session, ok := requireSession(state, w, r)
	if !ok {
		return
	}

	slog.Info("Received request to issue a policy", "session_id", sessionIdVar(r))
	started := time.Now()
	session.IssuePolicy(r.Context(), state.partnerAPI, time.Now())
	state.metrics.ObserveEndpointLatency("issue", time.Since(started).Seconds())

	view := session.View(time.Now())
	if view.Payment.IsSuccess {
		state.metrics.IncrementPoliciesIssued()
	} else {
		state.metrics.IncrementIssueFailures()
	}
	state.registry.Persist(sessionIdVar(r), session)
	if err := writeJSON(w, http.StatusOK, view); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_MARSHAL, err)
	}
}

func handleCheckPayment(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	session, ok := requireSession(state, w, r)
	if !ok {
		return
	}

	slog.Info("Received request to check payment", "session_id", sessionIdVar(r))
	state.metrics.IncrementPaymentChecks()
	session.CheckPayment(r.Context(), state.partnerAPI)

	view := session.View(time.Now())
	if view.Payment.IsPaid {
		state.metrics.IncrementPaymentsPaid()
	}
	if err := writeJSON(w, http.StatusOK, view); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_MARSHAL, err)
	}
}

func handleReset(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	session, ok := requireSession(state, w, r)
	if !ok {
		return
	}

	slog.Info("Received request to reset session", "session_id", sessionIdVar(r))
	session.ResetAll()
	state.registry.Remove(sessionIdVar(r))
	state.metrics.DecrementActiveSessions(1)

	if err := writeJSON(w, http.StatusOK, map[string]bool{"ok": true}); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_MARSHAL, err)
	}
}

// -----------------------------------------------------------------------------------

func sessionIdVar(r *http.Request) string {
	return mux.Vars(r)["sessionId"]
}

// requireSession resolves the session from the path, answering 404 when it is
// neither live nor restorable from storage.
func requireSession(state *ServerState, w http.ResponseWriter, r *http.Request) (*wizard.Session, bool) {
	sessionId := sessionIdVar(r)
	session, err := state.registry.Get(sessionId)
	if err != nil {
		respondWithErr(w, http.StatusNotFound, ERR_UNKNOWN_SESSION, ERR_UNKNOWN_SESSION, err)
		return nil, false
	}
	return session, true
}

// respondWithView is the default success answer: the whole wizard state.
func respondWithView(w http.ResponseWriter, session *wizard.Session) {
	if err := writeJSON(w, http.StatusOK, session.View(time.Now())); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_MARSHAL, err)
	}
}

// decodeBody decodes the JSON request body, answering 400 on malformed input.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		slog.Warn("Failed to decode request body", "error", err)
		respondWithErr(w, http.StatusBadRequest, "invalid request body", ERR_DECODE, err)
		return false
	}
	return true
}

func respondWithErr(w http.ResponseWriter, code int, responseBody string, logMsg string, e error) {
	slog.Error(logMsg, "error", e, "status_code", code, "response_body", responseBody)
	w.WriteHeader(code)
	if _, err := w.Write([]byte(responseBody)); err != nil {
		slog.Error("failed to write body to http response", "error", err)
	}
}

// helpers ------------

func closeRequestBody(r *http.Request) {
	if err := r.Body.Close(); err != nil {
		slog.Error("failed to close request body", "error", err)
	}

}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	slog.Debug("Writing JSON response", "status_code", status)
	payload, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to marshal JSON payload", "error", err)
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(payload)
	if err != nil {
		slog.Error("failed to write body to http response", "error", err)
	} else {
		slog.Debug("JSON response written successfully", "status_code", status, "payload_size", len(payload))
	}
	return nil
}
