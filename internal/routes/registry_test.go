package routes

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func TestRegistry_ModuleBuiltOnFirstRequestOnly(t *testing.T) {
	var built atomic.Int32

	reg := NewRegistry(slog.Default())
	reg.Register("/widgets", func() chi.Router {
		built.Add(1)
		r := chi.NewRouter()
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		return r
	})

	router := chi.NewRouter()
	reg.Mount(router)

	assert.Equal(t, int32(0), built.Load())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/widgets/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	assert.Equal(t, int32(1), built.Load())
}

func TestRegistry_ConcurrentFirstRequestsBuildOnce(t *testing.T) {
	var built atomic.Int32

	reg := NewRegistry(slog.Default())
	reg.Register("/widgets", func() chi.Router {
		built.Add(1)
		r := chi.NewRouter()
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		return r
	})

	router := chi.NewRouter()
	reg.Mount(router)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/widgets/", nil))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), built.Load())
}

func TestRegistry_UntouchedModuleNeverBuilt(t *testing.T) {
	var built atomic.Int32

	reg := NewRegistry(slog.Default())
	reg.Register("/touched", func() chi.Router {
		r := chi.NewRouter()
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		return r
	})
	reg.Register("/untouched", func() chi.Router {
		built.Add(1)
		return chi.NewRouter()
	})

	router := chi.NewRouter()
	reg.Mount(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/touched/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(0), built.Load())
}

func TestRegistry_ReRegisterReplacesFactory(t *testing.T) {
	reg := NewRegistry(slog.Default())
	reg.Register("/widgets", func() chi.Router {
		r := chi.NewRouter()
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		})
		return r
	})
	reg.Register("/widgets", func() chi.Router {
		r := chi.NewRouter()
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		return r
	})

	router := chi.NewRouter()
	reg.Mount(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/widgets/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
