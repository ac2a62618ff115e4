package rest

import (
	"net/http"

	"github.com/dmitrijs2005/cmsauth/internal/server/auth"
	"github.com/dmitrijs2005/cmsauth/internal/server/models"
	"github.com/gorilla/mux"
)

// audiencePrefixes maps each audience to its route prefix.
var audiencePrefixes = []struct {
	audience models.Audience
	prefix   string
}{
	{models.AudienceManager, "/manage"},
	{models.AudienceOpen, "/open"},
}

// NewRouter mounts the auth routes. metricsHandler may be nil.
func NewRouter(h *Handler, guard *Guard, metricsHandler http.Handler) *mux.Router {
	r := mux.NewRouter()

	for _, a := range audiencePrefixes {
		sub := r.PathPrefix(a.prefix).Subrouter()

		sub.HandleFunc("/login/password", h.Login(a.audience)).Methods(http.MethodPost)

		sub.Handle("/login", guard.Require(auth.ScopeRefresh, a.audience)(http.HandlerFunc(h.Refresh))).
			Methods(http.MethodPatch)

		access := guard.Require(auth.ScopeAccess, a.audience)
		sub.Handle("/login", access(http.HandlerFunc(h.Logout))).Methods(http.MethodDelete)
		sub.Handle("/me", access(http.HandlerFunc(h.Me))).Methods(http.MethodGet)
		sub.Handle("/sessions", access(http.HandlerFunc(h.ListSessions))).Methods(http.MethodGet)
		sub.Handle("/sessions", access(http.HandlerFunc(h.RevokeSessions))).Methods(http.MethodDelete)
	}

	managerAccess := guard.Require(auth.ScopeAccess, models.AudienceManager)
	r.Handle("/manage/routes/list", managerAccess(h.RouteList(r))).Methods(http.MethodGet)

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler).Methods(http.MethodGet)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})

	return r
}

type routeInfo struct {
	Path    string   `json:"path"`
	Methods []string `json:"methods"`
}

// RouteList serves the registered route table, as walked at request time.
func (h *Handler) RouteList(r *mux.Router) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		routes := []routeInfo{}
		err := r.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
			path, err := route.GetPathTemplate()
			if err != nil {
				return nil
			}
			methods, err := route.GetMethods()
			if err != nil {
				return nil
			}
			routes = append(routes, routeInfo{Path: path, Methods: methods})
			return nil
		})
		if err != nil {
			writeError(w, req, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, routes)
	})
}
