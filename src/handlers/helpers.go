package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/el-kamal/auctify/backend/src/services"
	"github.com/el-kamal/auctify/backend/src/utils"
)

// statusFromError maps the service sentinel errors onto HTTP statuses.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, services.ErrFormat), errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrIntegrity):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func sendServiceError(w http.ResponseWriter, err error) {
	status := statusFromError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "An internal error occurred. Please try again later."
	}
	utils.SendJSONError(w, message, status)
}

// pathID extracts a numeric path value like {id}.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid numeric path parameter: " + name)
	}
	return id, nil
}
