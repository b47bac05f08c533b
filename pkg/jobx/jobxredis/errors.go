package jobxredis

import (
	"net/http"

	"github.com/Abraxas-365/relay/pkg/errx"
)

var redisErrors = errx.NewRegistry("JOBX_REDIS")

var (
	ErrStore     = redisErrors.Register("STORE", errx.TypeExternal, http.StatusBadGateway, "Redis job store operation failed")
	ErrDequeue   = redisErrors.Register("DEQUEUE", errx.TypeExternal, http.StatusBadGateway, "Redis dequeue failed")
	ErrPromote   = redisErrors.Register("PROMOTE", errx.TypeExternal, http.StatusBadGateway, "Redis promote failed")
	ErrMarshal   = redisErrors.Register("MARSHAL", errx.TypeInternal, http.StatusInternalServerError, "Failed to marshal job data")
	ErrUnmarshal = redisErrors.Register("UNMARSHAL", errx.TypeInternal, http.StatusInternalServerError, "Failed to unmarshal job data")
)
