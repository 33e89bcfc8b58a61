package handler

import (
	"net/http"
	"time"

	"github.com/Temutjin2k/tracking-relay/internal/service/tracking"
	"github.com/Temutjin2k/tracking-relay/pkg/logger"
	wrap "github.com/Temutjin2k/tracking-relay/pkg/logger/wrapper"
)

type StatsProvider interface {
	Stats() tracking.Stats
}

type Health struct {
	serviceName string
	started     time.Time
	stats       StatsProvider
	log         logger.Logger
}

func NewHealth(serviceName string, stats StatsProvider, log logger.Logger) *Health {
	return &Health{
		serviceName: serviceName,
		started:     time.Now(),
		stats:       stats,
		log:         log,
	}
}

// HealthCheck - returns system information and live relay counters.
func (a *Health) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "health_check")

	response := envelope{
		"status": "available",
		"system_info": map[string]string{
			"service-name": a.serviceName,
			"uptime":       time.Since(a.started).Truncate(time.Second).String(),
		},
		"relay": a.stats.Stats(),
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		a.log.Error(ctx, "healthcheck", err)
		return
	}
}
