package middleware

import (
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/gzip"

	"central_logger/internal/utils"
)

type gzipBody struct {
	*gzip.Reader
	raw io.ReadCloser
}

func (b *gzipBody) Close() error {
	b.Reader.Close()
	return b.raw.Close()
}

// GzipRequestMiddleware transparently decompresses request bodies sent with
// Content-Encoding: gzip. Size limits applied by handlers count decompressed bytes.
func GzipRequestMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.EqualFold(strings.TrimSpace(r.Header.Get("Content-Encoding")), "gzip") || r.Body == nil {
			next.ServeHTTP(w, r)
			return
		}

		zr, err := gzip.NewReader(r.Body)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid gzip body")
			return
		}

		r.Body = &gzipBody{Reader: zr, raw: r.Body}
		r.Header.Del("Content-Encoding")
		r.Header.Del("Content-Length")
		r.ContentLength = -1
		next.ServeHTTP(w, r)
	})
}
