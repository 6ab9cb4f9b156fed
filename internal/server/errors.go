package server

import (
	"errors"
	"net/http"

	"github.com/jonathan/contentlab/internal/jobs"
	"github.com/jonathan/contentlab/internal/orchestrator"
	"github.com/jonathan/contentlab/internal/store"
)

// httpStatus maps domain errors to API status codes. Anything unrecognized
// is treated as an internal error.
func httpStatus(err error) int {
	var (
		cfgErr     *jobs.ConfigError
		inProgress *orchestrator.ErrJobInProgress
		notFound   *store.ErrItemNotFound
		badScore   *store.ErrInvalidScore
		unknownKey *store.ErrUnknownVariant
	)
	switch {
	case errors.As(err, &cfgErr):
		return http.StatusBadRequest
	case errors.As(err, &badScore):
		return http.StatusBadRequest
	case errors.As(err, &inProgress):
		return http.StatusConflict
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &unknownKey):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
