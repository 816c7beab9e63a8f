package rest

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/dfryer1193/newsroom/api"
	"github.com/dfryer1193/newsroom/blog/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

var statusByKind = map[domain.ErrorKind]int{
	domain.KindValidation:         http.StatusBadRequest,
	domain.KindSchedule:           http.StatusBadRequest,
	domain.KindForbidden:          http.StatusForbidden,
	domain.KindNotFound:           http.StatusNotFound,
	domain.KindInvalidState:       http.StatusConflict,
	domain.KindUniquenessConflict: http.StatusConflict,
	domain.KindThrottled:          http.StatusTooManyRequests,
	domain.KindInternal:           http.StatusInternalServerError,
}

func writeError(c *gin.Context, err error) {
	var derr *domain.Error
	if !errors.As(err, &derr) {
		derr = domain.NewInternalError("unexpected error", err)
	}

	status, ok := statusByKind[derr.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	body := api.Error{
		Kind:    string(derr.Kind),
		Reason:  string(derr.Reason),
		Message: derr.Message,
	}

	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("method", c.Request.Method).Str("path", c.Request.URL.Path).Msg("Request failed")
		body.Message = "internal server error"
	}

	if derr.Kind == domain.KindThrottled && derr.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(derr.RetryAfter.Seconds()))))
	}

	c.AbortWithStatusJSON(status, body)
}
