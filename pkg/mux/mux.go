package mux

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sepich/image-cache/pkg/model"
	"github.com/sepich/image-cache/pkg/service"
	"go.uber.org/zap"
)

// Image paths are a single segment below the image root.
const imagePathPattern = "[^/]+"

type Options struct {
	Logger *zap.Logger
	// PageSize is the default page size of the image listing.
	PageSize int
}

type handler struct {
	svc      service.Service
	logger   *zap.Logger
	pageSize int
}

func NewRouter(svc service.Service, opts Options) *mux.Router {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	h := &handler{svc: svc, logger: logger, pageSize: pageSize}

	r := mux.NewRouter()
	r.Use(requestLogger(logger), instrument)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/images/", h.listImages).Methods(http.MethodGet)
	api.HandleFunc("/images", h.listImages).Methods(http.MethodGet)
	api.HandleFunc("/core/", h.cacheSelfTest).Methods(http.MethodGet)
	api.HandleFunc("/image/{image_path:"+imagePathPattern+"}", h.fetchImage).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/image/{image_path:"+imagePathPattern+"}/", h.fetchImage).Methods(http.MethodGet, http.MethodHead)

	return r
}

func (h *handler) fetchImage(w http.ResponseWriter, r *http.Request) {
	req, err := parseTransformRequest(mux.Vars(r)["image_path"], r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.svc.FindImage(r.Context(), req)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	out := res.Output
	w.Header().Set(model.HeaderContentType, out.ContentType)
	w.Header().Set(model.HeaderContentLength, strconv.Itoa(out.ContentLength()))
	if res.CacheHit {
		w.Header().Set(model.HeaderCache, "HIT")
	} else {
		w.Header().Set(model.HeaderCache, "MISS")
	}
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		w.Write(out.Bytes)
	}
}

type listResponse struct {
	Count    int      `json:"count"`
	Page     int      `json:"page"`
	PageSize int      `json:"page_size"`
	Results  []string `json:"results"`
}

func (h *handler) listImages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := positiveInt(q.Get("page"), 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "page: "+err.Error())
		return
	}
	pageSize, err := positiveInt(q.Get("page_size"), h.pageSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, "page_size: "+err.Error())
		return
	}

	names, err := h.svc.ListImages(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	results := []string{}
	if start := (page - 1) * pageSize; start < len(names) {
		end := min(start+pageSize, len(names))
		results = names[start:end]
	}
	writeJSON(w, http.StatusOK, listResponse{
		Count:    len(names),
		Page:     page,
		PageSize: pageSize,
		Results:  results,
	})
}

func (h *handler) cacheSelfTest(w http.ResponseWriter, r *http.Request) {
	ts, cached := h.svc.CacheSelfTest(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"timestamp": ts,
		"cached":    cached,
	})
}

func parseTransformRequest(imagePath string, r *http.Request) (model.TransformRequest, error) {
	q := r.URL.Query()
	width, err := optionalInt(q, "width")
	if err != nil {
		return model.TransformRequest{}, err
	}
	height, err := optionalInt(q, "height")
	if err != nil {
		return model.TransformRequest{}, err
	}
	quality, err := optionalInt(q, "quality")
	if err != nil {
		return model.TransformRequest{}, err
	}
	useCache := true
	if v := q.Get("cache"); v != "" {
		useCache, err = strconv.ParseBool(v)
		if err != nil {
			return model.TransformRequest{}, &paramError{name: "cache", value: v}
		}
	}
	return model.NewTransformRequest(imagePath, width, height, q.Get("format"), quality, useCache), nil
}

type paramError struct {
	name  string
	value string
}

func (e *paramError) Error() string {
	return "invalid value for " + e.name + ": " + strconv.Quote(e.value)
}

func optionalInt(q map[string][]string, name string) (*int, error) {
	vs := q[name]
	if len(vs) == 0 || strings.TrimSpace(vs[0]) == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(vs[0]))
	if err != nil {
		return nil, &paramError{name: name, value: vs[0]}
	}
	return &n, nil
}

func positiveInt(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, &paramError{name: "integer", value: v}
	}
	return n, nil
}

func statusFor(err error) int {
	switch service.KindOf(err) {
	case service.KindInvalidParameters:
		return http.StatusBadRequest
	case service.KindImageNotFound:
		return http.StatusNotFound
	case service.KindUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set(model.HeaderContentType, "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
