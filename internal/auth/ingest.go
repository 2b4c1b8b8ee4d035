package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
)

const IngestKeyHeader = "X-Ingest-Key"

// IngestKeyMiddleware guards machine-to-machine endpoints such as call usage
// reporting from the telephony bridge.
type IngestKeyMiddleware struct {
	keyHash string
}

func NewIngestKeyMiddleware(key string) *IngestKeyMiddleware {
	m := &IngestKeyMiddleware{}
	if key != "" {
		m.keyHash = HashKey(key)
	}
	return m
}

func (m *IngestKeyMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.keyHash == "" {
			writeError(w, http.StatusServiceUnavailable, "Usage ingest not configured")
			return
		}

		key := r.Header.Get(IngestKeyHeader)
		if key == "" {
			writeError(w, http.StatusUnauthorized, "Missing ingest key")
			return
		}

		if subtle.ConstantTimeCompare([]byte(HashKey(key)), []byte(m.keyHash)) != 1 {
			writeError(w, http.StatusUnauthorized, "Invalid ingest key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func HashKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}
