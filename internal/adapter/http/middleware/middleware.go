package middleware

import (
	"github.com/Temutjin2k/tracking-relay/pkg/logger"
)

type Middleware struct {
	allowedOrigins []string
	log            logger.Logger
}

func NewMiddleware(allowedOrigins []string, log logger.Logger) *Middleware {
	return &Middleware{
		allowedOrigins: allowedOrigins,
		log:            log,
	}
}
