package util

import (
	"net/http"
	"strings"
)

// locationWriter prepends prefix to absolute Location headers, so redirects of the wrapped handler stay below the prefix.
type locationWriter struct {
	http.ResponseWriter
	prefix string
}

func (w locationWriter) WriteHeader(statusCode int) {
	if location := w.Header().Get("Location"); strings.HasPrefix(location, "/") && !strings.HasPrefix(location, "//") {
		w.Header().Set("Location", w.prefix+location)
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

// HandlePrefix registers handler at mux below prefix. The prefix is stripped from incoming paths and added to
// outgoing redirects. An empty prefix registers handler at the root.
func HandlePrefix(mux *http.ServeMux, prefix string, handler http.Handler) {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		mux.Handle("/", handler)
		return
	}
	mux.Handle(prefix+"/", http.StripPrefix(prefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(locationWriter{w, prefix}, r)
	})))
}
