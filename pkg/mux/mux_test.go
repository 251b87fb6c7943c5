package mux

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sepich/image-cache/pkg/model"
	"github.com/sepich/image-cache/pkg/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	last   model.TransformRequest
	err    error
	hit    bool
	images []string
}

func (s *fakeService) FindImage(_ context.Context, req model.TransformRequest) (*service.Result, error) {
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	return &service.Result{
		Output:   &model.EncodedOutput{Bytes: []byte("img"), Format: "PNG", ContentType: "image/png"},
		CacheHit: s.hit,
	}, nil
}

func (s *fakeService) ListImages(context.Context) ([]string, error) {
	return s.images, nil
}

func (s *fakeService) CacheSelfTest(context.Context) (int64, bool) {
	return 42, true
}

func TestImagePaths(t *testing.T) {
	testCases := []struct {
		url    string
		err    error
		expect int
	}{
		{url: "/api/v1/image/photo.png", expect: 200},
		{url: "/api/v1/image/photo.png/", expect: 200},
		{url: "/api/v1/image/photo.png?width=100&format=jpg&quality=80&cache=false", expect: 200},
		{url: "/api/v1/image/photo.png?width=abc", expect: 400},
		{url: "/api/v1/image/photo.png?cache=maybe", expect: 400},

		// Nested paths and missing segments do not match
		{url: "/api/v1/image/dir/photo.png", expect: 404},
		{url: "/api/v1/image/", expect: 404},

		// Service errors
		{url: "/api/v1/image/missing.jpg", err: service.ErrImageNotFound, expect: 404},
		{url: "/api/v1/image/photo.png?width=5000", err: service.ErrInvalidParameters, expect: 400},
		{url: "/api/v1/image/photo.png?format=webp", err: service.ErrUnsupportedFormat, expect: 415},
		{url: "/api/v1/image/photo.png", err: service.ErrProcessingFailed, expect: 500},
	}

	for _, tC := range testCases {
		t.Run(strings.ReplaceAll(tC.url, "/", "-"), func(t *testing.T) {
			r := NewRouter(&fakeService{err: tC.err}, Options{})
			req, err := http.NewRequest("GET", tC.url, nil)
			if err != nil {
				t.Fatal(err)
			}
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			assert.Equal(t, tC.expect, rr.Code)
		})
	}
}

func TestFetchImage(t *testing.T) {
	svc := &fakeService{hit: true}
	r := NewRouter(svc, Options{})

	req := httptest.NewRequest("GET", "/api/v1/image/photo.png?width=100&format=JPG&quality=80&cache=false", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, 200, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.Equal(t, "3", rr.Header().Get("Content-Length"))
	assert.Equal(t, "HIT", rr.Header().Get("X-Cache"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))
	assert.Equal(t, "img", rr.Body.String())

	assert.Equal(t, "photo.png", svc.last.SourcePath)
	assert.Equal(t, 100, *svc.last.Width)
	assert.Nil(t, svc.last.Height)
	assert.Equal(t, "jpeg", svc.last.Format)
	assert.Equal(t, 80, *svc.last.Quality)
	assert.False(t, svc.last.UseCache)
}

func TestHeadImageHasNoBody(t *testing.T) {
	r := NewRouter(&fakeService{}, Options{})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("HEAD", "/api/v1/image/photo.png", nil))

	assert.Equal(t, 200, rr.Code)
	assert.Equal(t, "MISS", rr.Header().Get("X-Cache"))
	assert.Empty(t, rr.Body.Bytes())
}

func TestListImages(t *testing.T) {
	r := NewRouter(&fakeService{images: []string{"a.png", "b.png", "c.png"}}, Options{PageSize: 2})

	testCases := []struct {
		url     string
		code    int
		results []string
	}{
		{url: "/api/v1/images/", code: 200, results: []string{"a.png", "b.png"}},
		{url: "/api/v1/images/?page=2", code: 200, results: []string{"c.png"}},
		{url: "/api/v1/images/?page=3", code: 200, results: []string{}},
		{url: "/api/v1/images?page_size=5", code: 200, results: []string{"a.png", "b.png", "c.png"}},
		{url: "/api/v1/images/?page=0", code: 400},
	}

	for _, tC := range testCases {
		t.Run(strings.ReplaceAll(tC.url, "/", "-"), func(t *testing.T) {
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest("GET", tC.url, nil))
			require.Equal(t, tC.code, rr.Code)
			if tC.code != 200 {
				return
			}
			var body listResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, 3, body.Count)
			assert.Equal(t, tC.results, body.Results)
		})
	}
}

func TestCacheSelfTestRoute(t *testing.T) {
	r := NewRouter(&fakeService{}, Options{})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/api/v1/core/", nil))

	require.Equal(t, 200, rr.Code)
	assert.JSONEq(t, `{"timestamp": 42, "cached": true}`, rr.Body.String())
}

func TestMetricsAndHealth(t *testing.T) {
	r := NewRouter(&fakeService{}, Options{})

	for _, url := range []string{"/healthz", "/metrics"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest("GET", url, nil))
		assert.Equal(t, 200, rr.Code, url)
	}
}
