package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
)

type responseEnvelope struct {
	Data  any    `json:"data,omitempty"`
	Time  string `json:"time"`
	Error any    `json:"error,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(responseEnvelope{
		Data: v,
		Time: time.Now().UTC().Format(time.RFC3339),
	})
}

func WriteError[T any](w http.ResponseWriter, status int, errBody ErrorResponse[T]) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(responseEnvelope{
		Time:  time.Now().UTC().Format(time.RFC3339),
		Error: errBody,
	})
}

var (
	errNotJSON      = errors.New("content-type must be application/json")
	errTrailingData = errors.New("request body must contain a single JSON object")
)

// DecodeStrict unmarshals a single JSON object from the request body,
// rejecting unknown fields, trailing data and bodies over 1MB. Every
// handler that accepts a body goes through here.
func DecodeStrict(w http.ResponseWriter, r *http.Request, dst any) error {
	if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		return errNotJSON
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errTrailingData
	}
	return nil
}

// IsUnsupportedMedia reports whether the error came from a non-JSON
// Content-Type, so handlers can pick 415 over 400.
func IsUnsupportedMedia(err error) bool {
	return errors.Is(err, errNotJSON)
}
