package server

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
)

// HashFS serves static assets and lets templates link them with a content
// hash, so that hashed links can be cached forever.
type HashFS struct {
	serv   http.Handler
	hashes sync.Map
}

func NewHashFS(fsys fs.FS) (*HashFS, error) {
	h := &HashFS{
		serv: http.FileServer(http.FS(fsys)),
	}

	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		f, err := fsys.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		hash := sha256.New()
		if _, err := io.Copy(hash, f); err != nil {
			return err
		}
		hashStr := hex.EncodeToString(hash.Sum(nil))[:16]
		slog.Debug("computed static asset hash", "path", path, "hash", hashStr)
		h.hashes.Store(path, hashStr)
		return nil
	})

	return h, err
}

func (h *HashFS) GetHash(path string) string {
	if val, ok := h.hashes.Load(path); ok {
		return val.(string)
	}
	return ""
}

func (h *HashFS) FormatWithHash(path string) string {
	hash := h.GetHash(path)
	if hash != "" {
		return fmt.Sprintf("%s?hash=%s", path, hash)
	}
	return path
}

func (h *HashFS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	hash := h.GetHash(r.URL.Path)
	if hash != "" {
		w.Header().Set("ETag", `"`+hash+`"`)
		if r.URL.Query().Get("hash") == hash {
			w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		}
	}
	h.serv.ServeHTTP(w, r)
}
