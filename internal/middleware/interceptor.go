package middleware

import "net/http"

// responseWriterInterceptor captures the status code and body size
type responseWriterInterceptor struct {
	http.ResponseWriter
	statusCode  int
	bytes       int
	wroteHeader bool
}

func newInterceptor(w http.ResponseWriter) *responseWriterInterceptor {
	if rw, ok := w.(*responseWriterInterceptor); ok {
		return rw
	}
	return &responseWriterInterceptor{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriterInterceptor) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.wroteHeader = true
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriterInterceptor) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

func (rw *responseWriterInterceptor) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
