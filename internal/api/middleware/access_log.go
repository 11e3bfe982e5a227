package middleware

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"time"
)

type accessLogEntry struct {
	Timestamp  string `json:"ts"`
	Method     string `json:"method"`
	Route      string `json:"route"`
	Path       string `json:"path"`
	Status     int    `json:"status"`
	Bytes      int    `json:"bytes"`
	DurationMS int64  `json:"duration_ms"`
	RequestID  string `json:"request_id,omitempty"`
	ClientID   string `json:"client_id,omitempty"`
	RemoteAddr string `json:"remote_addr,omitempty"`
}

// AccessLog writes one JSON line per request to the standard logger.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		payload, err := json.Marshal(newAccessLogEntry(r, rec, start))
		if err != nil {
			log.Printf("access_log_marshal_error: %v", err)
			return
		}
		log.Println(string(payload))
	})
}

func newAccessLogEntry(r *http.Request, rec *statusRecorder, start time.Time) accessLogEntry {
	return accessLogEntry{
		Timestamp:  start.UTC().Format(time.RFC3339Nano),
		Method:     r.Method,
		Route:      routePattern(r),
		Path:       r.URL.Path,
		Status:     rec.Status(),
		Bytes:      rec.bytes,
		DurationMS: time.Since(start).Milliseconds(),
		RequestID:  GetRequestID(r.Context()),
		ClientID:   GetClientID(r.Context()),
		RemoteAddr: clientIP(r),
	}
}

// clientIP prefers the first X-Forwarded-For hop over the socket address.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
