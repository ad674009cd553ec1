package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/imbo/imbo-cli/internal/signing"
)

var testCreds = Credentials{User: "christer", PublicKey: "public", PrivateKey: "private"}

// fakeImbo is an in-memory Imbo server that checks access tokens on reads
// and signatures on writes.
type fakeImbo struct {
	t        *testing.T
	mu       sync.Mutex
	images   map[string]map[string]any
	metadata map[string]map[string]any
	requests []*http.Request
	bodies   [][]byte
}

func newFakeImbo(t *testing.T) (*fakeImbo, *httptest.Server) {
	t.Helper()
	f := &fakeImbo{
		t:        t,
		images:   map[string]map[string]any{},
		metadata: map[string]map[string]any{},
	}

	r := chi.NewRouter()
	r.Use(f.record)
	r.Get("/status.json", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"date": "Thu, 11 Oct 2012 15:10:17 GMT", "database": true, "storage": true})
	})
	r.Group(func(r chi.Router) {
		r.Use(f.authorize)
		r.Get("/stats.json", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"numImages": 2, "numUsers": 1, "numBytes": 2048, "custom": map[string]any{}})
		})
		r.Route("/users/{user}", func(r chi.Router) {
			r.Get("/images.json", f.listImages)
			r.Post("/images", f.addImage)
			r.Route("/images/{id}", func(r chi.Router) {
				r.Head("/", f.headImage)
				r.Get("/", f.getImage)
				r.Delete("/", f.deleteImage)
				r.Get("/metadata.json", f.getMetadata)
				r.Post("/metadata.json", f.writeMetadata(true))
				r.Put("/metadata.json", f.writeMetadata(false))
				r.Delete("/metadata.json", f.deleteMetadata)
				r.Post("/shorturls", f.shortURL)
			})
		})
		r.Get("/users/{user}.json", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"user": chi.URLParam(r, "user"), "numImages": len(f.images)})
		})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeImbo) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests = append(f.requests, r)
		f.bodies = append(f.bodies, body)
		f.mu.Unlock()
		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

func (f *fakeImbo) last() (*http.Request, []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil, nil
	}
	return f.requests[len(f.requests)-1], f.bodies[len(f.bodies)-1]
}

func (f *fakeImbo) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		full := "http://" + r.Host + r.RequestURI
		switch r.Method {
		case http.MethodGet, http.MethodHead:
			stripped, _ := signing.StripAccessToken(full)
			if r.URL.Query().Get(signing.AccessTokenParam) != signing.AccessToken(stripped, testCreds.PrivateKey) {
				writeError(w, http.StatusBadRequest, "Incorrect access token", 0)
				return
			}
		default:
			ts := r.Header.Get(HeaderTimestamp)
			want := signing.Signature(r.Method, full, testCreds.PublicKey, ts, testCreds.PrivateKey)
			if ts == "" || r.Header.Get(HeaderSignature) != want {
				writeError(w, http.StatusBadRequest, "Signature mismatch", 0)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (f *fakeImbo) listImages(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	images := make([]any, 0, len(f.images))
	for _, img := range f.images {
		images = append(images, img)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"search": map[string]any{"hits": len(images), "page": 1, "limit": 20, "count": len(images)},
		"images": images,
	})
}

func (f *fakeImbo) addImage(w http.ResponseWriter, r *http.Request) {
	_, body := f.last()
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "No image attached", 203)
		return
	}
	id := "img" + string(rune('0'+len(f.images)))
	f.mu.Lock()
	f.images[id] = map[string]any{"imageIdentifier": id, "user": chi.URLParam(r, "user"), "size": len(body), "extension": "png", "mime": "image/png"}
	f.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{"imageIdentifier": id, "width": 1, "height": 1, "extension": "png"})
}

func (f *fakeImbo) image(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	f.mu.Lock()
	_, ok := f.images[id]
	f.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Image not found", 0)
	}
	return id, ok
}

func (f *fakeImbo) headImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	f.mu.Lock()
	_, ok := f.images[id]
	f.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("X-Imbo-ImageIdentifier", id)
	w.Header().Set("X-Imbo-OriginalWidth", "640")
	w.Header().Set("X-Imbo-OriginalHeight", "480")
	w.Header().Set("X-Imbo-OriginalFilesize", "1024")
	w.Header().Set("X-Imbo-OriginalMimeType", "image/png")
	w.Header().Set("X-Imbo-OriginalExtension", "png")
	w.WriteHeader(http.StatusOK)
}

func (f *fakeImbo) getImage(w http.ResponseWriter, r *http.Request) {
	if _, ok := f.image(w, r); !ok {
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write([]byte("PNGDATA"))
}

func (f *fakeImbo) deleteImage(w http.ResponseWriter, r *http.Request) {
	id, ok := f.image(w, r)
	if !ok {
		return
	}
	f.mu.Lock()
	delete(f.images, id)
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"imageIdentifier": id})
}

func (f *fakeImbo) getMetadata(w http.ResponseWriter, r *http.Request) {
	id, ok := f.image(w, r)
	if !ok {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	md := f.metadata[id]
	if md == nil {
		md = map[string]any{}
	}
	writeJSON(w, http.StatusOK, md)
}

func (f *fakeImbo) writeMetadata(merge bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := f.image(w, r)
		if !ok {
			return
		}
		_, body := f.last()
		var fields map[string]any
		if err := json.Unmarshal(body, &fields); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON data", 0)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		md := map[string]any{}
		if merge {
			for k, v := range f.metadata[id] {
				md[k] = v
			}
		}
		for k, v := range fields {
			md[k] = v
		}
		f.metadata[id] = md
		writeJSON(w, http.StatusOK, md)
	}
}

func (f *fakeImbo) deleteMetadata(w http.ResponseWriter, r *http.Request) {
	id, ok := f.image(w, r)
	if !ok {
		return
	}
	f.mu.Lock()
	delete(f.metadata, id)
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{})
}

func (f *fakeImbo) shortURL(w http.ResponseWriter, r *http.Request) {
	if _, ok := f.image(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": "aaaaaaa"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, imboCode int) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{"code": status, "message": message, "imboErrorCode": imboCode},
	})
}
