// Package handler holds the HTTP endpoints. Every response goes through the
// common envelope.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/app/service"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/common"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/domain/model"
)

const (
	msgOK      = "Operation successful"
	maxBodyLen = 1 << 20
)

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyLen)).Decode(v); err != nil {
		return common.InvalidInput("Invalid request payload", nil)
	}
	return nil
}

func pageFrom(r *http.Request) model.Page {
	q := r.URL.Query()
	number, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("pageSize"))
	return model.Page{Number: number, Size: size}.Normalize()
}

// callerFrom is never empty behind JWTAuth; services still reject an empty caller.
func callerFrom(r *http.Request) service.Caller {
	c, _ := service.CallerFromContext(r.Context())
	return c
}

// cookieSink writes cookies set by the auth service onto the response.
type cookieSink struct {
	w http.ResponseWriter
}

func (s cookieSink) SetCookie(c *http.Cookie) {
	http.SetCookie(s.w, c)
}
