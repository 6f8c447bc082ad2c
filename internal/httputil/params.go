package httputil

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/runcrew/runcrew-backend/internal/utils"
)

// PathUUID reads a uuid route parameter. A malformed id cannot match any row,
// so it is reported with the resource's not-found message.
func PathUUID(r *http.Request, name, notFound string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, NotFound(notFound)
	}
	return id, nil
}

// Caller returns the authenticated user id set by the session middleware.
func Caller(r *http.Request) (uuid.UUID, error) {
	id, ok := utils.GetUserUUIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, Unauthorized("인증이 필요합니다")
	}
	return id, nil
}
