package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/common"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Welcome answers GET on the API root.
func Welcome(w http.ResponseWriter, r *http.Request) {
	common.RespondWithData(w, r, http.StatusOK, "Welcome message retrieved successfully", "Hello World!")
}

// Health reports liveness, and database reachability when db is set.
func Health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				common.RespondWithError(w, r, common.Unavailable(err, "health.database"))
				return
			}
		}
		common.RespondWithData(w, r, http.StatusOK, "Application is running", map[string]string{"status": "ok"})
	}
}
