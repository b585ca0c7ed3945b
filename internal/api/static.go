package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// StaticHandler serves the built frontend from FRONTEND_DIR under /static/. Unknown paths
// fall back to index.html so client-side routes resolve.
func (s *Server) StaticHandler(w http.ResponseWriter, r *http.Request) {
	base := s.Config.FrontendDir
	if base == "" {
		http.NotFound(w, r)
		return
	}
	rel := strings.TrimPrefix(r.URL.Path, "/static")
	if rel == "" || rel == "/" {
		rel = "/index.html"
	}
	p := filepath.Join(base, filepath.FromSlash(filepath.Clean("/"+rel)))
	if st, err := os.Stat(p); err == nil && !st.IsDir() {
		http.ServeFile(w, r, p)
		return
	}
	index := filepath.Join(base, "index.html")
	if _, err := os.Stat(index); err != nil {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, index)
}
