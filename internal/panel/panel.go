package panel

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
)

// indexFile is served for the root and for every unknown path.
const indexFile = "index.html"

// ErrNoIndex is returned when an asset directory has no index.html.
var ErrNoIndex = errors.New("panel: asset directory has no index.html")

// Dir opens an asset directory after checking it holds an index.html.
func Dir(dir string) (fs.FS, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("panel: opening %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("panel: %s is not a directory", dir)
	}

	fsys := os.DirFS(dir)
	if _, err := fs.Stat(fsys, indexFile); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoIndex, dir)
	}
	return fsys, nil
}

// Handler returns an http.Handler serving the editor assets in fsys.
func Handler(fsys fs.FS) http.Handler {
	fileServer := http.FileServer(http.FS(fsys))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The editor bundle is rebuilt in place; make browsers revalidate.
		w.Header().Set("Cache-Control", "no-cache, must-revalidate")

		upath := path.Clean("/" + r.URL.Path)
		if upath == "/" {
			fileServer.ServeHTTP(w, r)
			return
		}

		if info, err := fs.Stat(fsys, upath[1:]); err != nil || info.IsDir() {
			r.URL.Path = "/"
		}
		fileServer.ServeHTTP(w, r)
	})
}
