package httpx

import (
	"net"
	"net/http"
	"strings"
)

// ClientMeta is what a browser actually tells us about itself: the
// user agent string and the address the request came from.
type ClientMeta struct {
	UserAgent string
	IP        string
}

func ClientMetaFromRequest(r *http.Request) ClientMeta {
	return ClientMeta{
		UserAgent: r.UserAgent(),
		IP:        clientIP(r),
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
