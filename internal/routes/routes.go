package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/glintql/dispatch-api/internal/authz"
	"github.com/glintql/dispatch-api/internal/handlers"
	"github.com/glintql/dispatch-api/internal/models"
)

// NewRouter sets up the API routes
func NewRouter(auth *handlers.AuthHandler, queries *handlers.AsyncQueryHandler, statements *handlers.StatementHandler) *mux.Router {
	router := mux.NewRouter()

	// Health check route
	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)

	// Public auth endpoints
	router.HandleFunc("/api/signup", auth.SignUp).Methods(http.MethodPost)
	router.HandleFunc("/api/login", auth.Login).Methods(http.MethodPost)

	// Everything else requires a valid token.
	api := router.PathPrefix("/api").Subrouter()
	api.Use(auth.JWTMiddleware)

	// Viewers may poll; submitting and cancelling queries needs editor.
	requireEditor := authz.RequireRole(models.RoleEditor)

	api.Handle("/queries", requireEditor(http.HandlerFunc(queries.Create))).Methods(http.MethodPost)
	api.HandleFunc("/queries/{queryID}", queries.Get).Methods(http.MethodGet)
	api.Handle("/queries/{queryID}", requireEditor(http.HandlerFunc(queries.Cancel))).Methods(http.MethodDelete)

	// Session runner callback
	api.Handle("/sessions/{sessionID}/statements/{statementID}/state",
		requireEditor(http.HandlerFunc(statements.UpdateState))).Methods(http.MethodPut)

	return router
}
