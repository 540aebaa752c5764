package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"loraset/core/auth"
	"loraset/logger"
)

type ctxKey string

const reviewerKey ctxKey = "reviewer"

// LoginHandler exchanges the reviewer password for a session token.
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("[Login] failed to decode request body", logger.ErrorField(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Password == "" {
		http.Error(w, "Password is required", http.StatusBadRequest)
		return
	}
	if s.deps.Tokens == nil {
		http.Error(w, "Authentication is not configured", http.StatusServiceUnavailable)
		return
	}
	if err := auth.VerifyReviewerPassword(req.Password, s.deps.PasswordHash); err != nil {
		logger.Warn("[Login] password check failed", logger.String("username", req.Username), logger.ErrorField(err))
		http.Error(w, "Invalid password", http.StatusUnauthorized)
		return
	}

	reviewer := strings.TrimSpace(req.Username)
	if reviewer == "" {
		reviewer = "reviewer"
	}
	token, err := s.deps.Tokens.GenerateToken(reviewer)
	if err != nil {
		logger.Error("[Login] failed to generate token", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	logger.Info("[Login] reviewer logged in", logger.String("username", reviewer))
	writeJSON(w, http.StatusOK, map[string]string{"token": token, "reviewer": reviewer})
}

// AuthMiddleware checks the bearer token. Websocket clients may pass it as the
// token query parameter instead.
func (s *Server) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Tokens == nil {
			http.Error(w, "Authentication is not configured", http.StatusServiceUnavailable)
			return
		}

		token := r.URL.Query().Get("token")
		if authHeader := r.Header.Get("Authorization"); authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
				return
			}
			token = parts[1]
		}
		if token == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		claims, err := s.deps.Tokens.ParseToken(token)
		if err != nil {
			http.Error(w, auth.Describe(err), http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), reviewerKey, claims.Reviewer)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// ReviewerFromContext returns the authenticated reviewer name.
func ReviewerFromContext(ctx context.Context) string {
	name, _ := ctx.Value(reviewerKey).(string)
	return name
}
