package rest

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// StaticHandler serves the built frontend from dir. Paths that do not name a
// file fall back to index.html so client side routes resolve.
func StaticHandler(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	index := filepath.Join(dir, "index.html")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := path.Clean("/" + r.URL.Path)

		info, err := fs.Stat(os.DirFS(dir), strings.TrimPrefix(name, "/"))
		if name != "/" && (errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir())) {
			http.ServeFile(w, r, index)

			return
		}

		files.ServeHTTP(w, r)
	})
}
