package fixture

import (
	"encoding/json"
	"net/http"
)

// jwksHandler serves the fixture's current JWK as a JWKS document
type jwksHandler struct {
	fixture *Fixture
}

// JWKSHandler returns an http.Handler serving {"keys": [jwk]} for the
// fixture's current token, for use with httptest servers. The key is read
// per request, so later setups are picked up.
func (f *Fixture) JWKSHandler() http.Handler {
	return &jwksHandler{fixture: f}
}

// ServeHTTP handles the HTTP request for the JWKS endpoint
func (h *jwksHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "only GET method is allowed")
		return
	}

	token, err := h.fixture.Token()
	if err != nil {
		h.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, token.JWKSet())
}

// writeJSON writes a JSON response
func (h *jwksHandler) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already sent
		return
	}
}

// writeError writes an error response
func (h *jwksHandler) writeError(w http.ResponseWriter, statusCode int, message string) {
	h.writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
