package service

import (
	"net/http"
)

// plainHasher stands in for bcrypt so tests stay fast.
type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "hashed:" + p, nil }
func (plainHasher) Check(p, h string) bool       { return h == "hashed:"+p }

// cookieJar records cookies handed to a ResponseSink.
type cookieJar struct {
	cookies []*http.Cookie
}

func (j *cookieJar) SetCookie(c *http.Cookie) { j.cookies = append(j.cookies, c) }

func (j *cookieJar) last() *http.Cookie {
	if len(j.cookies) == 0 {
		return nil
	}
	return j.cookies[len(j.cookies)-1]
}
