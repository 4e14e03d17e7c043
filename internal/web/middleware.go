package web

import (
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

// WithSecurityHeaders adds standard HTTP security headers to the response.
func WithSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		// The embedded UI is one self-contained page with inline script and style.
		h.Set("Content-Security-Policy",
			"default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' https: data:; frame-ancestors 'none'")

		next.ServeHTTP(w, r)
	})
}

// WithCompression brotli-encodes responses for clients that accept it.
// Responses the inner handler already encoded pass through untouched.
func WithCompression(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Accept-Encoding")
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "br") {
			next.ServeHTTP(w, r)
			return
		}
		cw := &compressedWriter{w: w}
		defer cw.Close()
		next.ServeHTTP(cw, r)
	})
}

// compressedWriter decides on the first header or body write whether to
// wrap the body in brotli.
type compressedWriter struct {
	w           http.ResponseWriter
	br          *brotli.Writer
	wroteHeader bool
}

func (cw *compressedWriter) Header() http.Header { return cw.w.Header() }

func (cw *compressedWriter) WriteHeader(statusCode int) {
	if cw.wroteHeader {
		return
	}
	cw.wroteHeader = true
	h := cw.w.Header()
	if h.Get("Content-Encoding") == "" && statusCode != http.StatusNoContent && statusCode != http.StatusNotModified {
		h.Set("Content-Encoding", "br")
		// Length of the uncompressed body no longer applies.
		h.Del("Content-Length")
		cw.br = brotli.NewWriter(cw.w)
	}
	cw.w.WriteHeader(statusCode)
}

func (cw *compressedWriter) Write(b []byte) (int, error) {
	if !cw.wroteHeader {
		cw.WriteHeader(http.StatusOK)
	}
	if cw.br == nil {
		return cw.w.Write(b)
	}
	return cw.br.Write(b)
}

func (cw *compressedWriter) Close() error {
	if cw.br == nil {
		return nil
	}
	return cw.br.Close()
}

// statusWriter remembers the status code for request metrics.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}
