package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sepich/image-cache/pkg/cache"
	"github.com/sepich/image-cache/pkg/imaging"
	"github.com/sepich/image-cache/pkg/metrics"
	"github.com/sepich/image-cache/pkg/model"
	"github.com/sepich/image-cache/pkg/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	selfTestKey = "test_timestamp"
	selfTestTTL = 30 * time.Second
)

type Service interface {
	FindImage(ctx context.Context, req model.TransformRequest) (*Result, error)
	ListImages(ctx context.Context) ([]string, error)
	CacheSelfTest(ctx context.Context) (timestamp int64, cached bool)
}

// SourceResolver looks up source image bytes.
type SourceResolver interface {
	Resolve(ctx context.Context, sourcePath string) ([]byte, error)
	List(ctx context.Context) ([]string, error)
}

// CacheGateway is a fail-open cache: Get reports absent on any failure and Set
// never fails.
type CacheGateway interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

// Result is the outcome of a FindImage call.
type Result struct {
	Output *model.EncodedOutput
	// CacheHit is set when Output came from the cache and no source lookup or
	// resize happened.
	CacheHit bool
	// Shared is set when Output was produced by a concurrent identical request.
	Shared bool
}

type Options struct {
	Resolver SourceResolver
	Cache    CacheGateway
	Keys     cache.KeyBuilder
	TTL      time.Duration
	Limits   Limits
	// SingleFlight de-duplicates concurrent transforms of identical requests.
	SingleFlight bool
	Logger       *zap.Logger
}

// ImageService runs the validate, cache lookup, resolve, transform and cache
// write pipeline. It holds no per-request state and is safe for concurrent use.
type ImageService struct {
	resolver     SourceResolver
	cache        CacheGateway
	keys         cache.KeyBuilder
	ttl          time.Duration
	validator    Validator
	singleFlight bool
	group        singleflight.Group
	logger       *zap.Logger
	now          func() time.Time
}

var _ Service = &ImageService{}

func New(opts Options) *ImageService {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limits := opts.Limits
	if limits == (Limits{}) {
		limits = DefaultLimits
	}
	return &ImageService{
		resolver:     opts.Resolver,
		cache:        opts.Cache,
		keys:         opts.Keys,
		ttl:          opts.TTL,
		validator:    NewValidator(limits),
		singleFlight: opts.SingleFlight,
		logger:       logger,
		now:          time.Now,
	}
}

// FindImage returns the requested variant of an image. Errors are always
// *ServiceError; cache failures never fail the call.
func (s *ImageService) FindImage(ctx context.Context, req model.TransformRequest) (*Result, error) {
	if err := s.validator.Validate(req.Width, req.Height, req.Quality); err != nil {
		s.logger.Info("rejected request", zap.String("path", req.SourcePath), zap.Error(err))
		return nil, err
	}

	key := s.keys.Build(req.SourcePath, req.Width, req.Height, req.Format, req.Quality)
	log := s.logger.With(zap.String("path", req.SourcePath), zap.String("key", key))

	if req.UseCache {
		if cached, ok := s.cache.Get(ctx, key); ok {
			out, err := fromCached(cached, req.Format)
			if err == nil {
				metrics.CacheHitCounterTotal.Inc()
				log.Debug("cache hit", zap.String("format", out.Format))
				return &Result{Output: out, CacheHit: true}, nil
			}
			if errors.Is(err, errNotReusable) {
				log.Debug("cached variant not reusable, treating as miss", zap.Error(err))
			} else {
				log.Warn("unusable cache entry, treating as miss", zap.Error(err))
			}
		}
		metrics.CacheMissCounterTotal.Inc()
		log.Debug("cache miss")
	}

	if !s.singleFlight {
		out, err := s.produce(ctx, key, req)
		if err != nil {
			return nil, err
		}
		return &Result{Output: out}, nil
	}

	// The flight key always carries every parameter: in un-parameterized mode
	// different variants share a cache key but must not share a transform.
	flightKey := cache.KeyBuilder{Parameterized: true}.Build(req.SourcePath, req.Width, req.Height, req.Format, req.Quality)
	v, err, shared := s.group.Do(flightKey, func() (interface{}, error) {
		return s.produce(context.WithoutCancel(ctx), key, req)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		metrics.CacheShareCounterTotal.Inc()
	}
	return &Result{Output: v.(*model.EncodedOutput), Shared: shared}, nil
}

// produce resolves and transforms the source, then writes the result through
// to the cache.
func (s *ImageService) produce(ctx context.Context, key string, req model.TransformRequest) (*model.EncodedOutput, error) {
	raw, err := s.resolver.Resolve(ctx, req.SourcePath)
	if errors.Is(err, storage.ErrImageNotFound) {
		return nil, &ServiceError{Kind: KindImageNotFound, Message: req.SourcePath}
	}
	if err != nil {
		s.logger.Error("failed to read source image", zap.String("path", req.SourcePath), zap.Error(err))
		return nil, &ServiceError{Kind: KindProcessingFailed, Err: err}
	}

	start := time.Now()
	out, err := process(raw, req)
	metrics.TransformDurationHistogram.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.TransformCounterTotal.WithLabelValues(metrics.ResultFailure).Inc()
		if errors.Is(err, imaging.ErrUnsupportedFormat) {
			return nil, &ServiceError{
				Kind:    KindUnsupportedFormat,
				Message: "Unable to process image format for path: " + req.SourcePath,
				Err:     err,
			}
		}
		s.logger.Error("unexpected error processing image", zap.String("path", req.SourcePath), zap.Error(err))
		return nil, &ServiceError{Kind: KindProcessingFailed, Err: err}
	}
	metrics.TransformCounterTotal.WithLabelValues(metrics.ResultSuccess).Inc()

	s.cache.Set(ctx, key, out.Bytes, s.ttl)
	s.logger.Info("processed image",
		zap.String("path", req.SourcePath),
		zap.String("format", out.Format),
		zap.Int("bytes", out.ContentLength()),
		zap.Duration("took", time.Since(start)),
	)
	return out, nil
}

// errNotReusable marks a cached variant that is fine but cannot be converted
// to the requested format.
var errNotReusable = errors.New("cached variant cannot be converted")

// safely runs fn, returning panics from codecs on malformed input as errors.
func safely(fn func() (*model.EncodedOutput, error)) (out *model.EncodedOutput, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("panic while processing image: %v", r)
		}
	}()
	return fn()
}

// process decodes, resizes and encodes.
func process(raw []byte, req model.TransformRequest) (*model.EncodedOutput, error) {
	return safely(func() (*model.EncodedOutput, error) {
		decoded, err := imaging.Decode(raw)
		if err != nil {
			return nil, err
		}
		outputFormat := imaging.OutputFormat(req.Format, decoded.Format)
		if !imaging.CanEncode(outputFormat) {
			return nil, fmt.Errorf("%w: no encoder for %s", imaging.ErrUnsupportedFormat, outputFormat)
		}

		resized := imaging.Transform(decoded, req.Width, req.Height)
		return imaging.Encode(resized, outputFormat, req.Quality)
	})
}

// fromCached turns a cached payload into output. Bytes already in the output
// format are returned untouched; otherwise they are re-encoded without resizing,
// which only happens when cache keys ignore parameters.
func fromCached(cached []byte, requestedFormat string) (*model.EncodedOutput, error) {
	format, ok := imaging.Sniff(cached)
	if !ok {
		return nil, fmt.Errorf("%w: cached entry", imaging.ErrUnsupportedFormat)
	}
	outputFormat := imaging.OutputFormat(requestedFormat, format)
	if outputFormat == format {
		return &model.EncodedOutput{
			Bytes:       cached,
			Format:      format,
			ContentType: imaging.ContentType(format),
		}, nil
	}
	if !imaging.CanEncode(outputFormat) {
		return nil, fmt.Errorf("%w: %s to %s", errNotReusable, format, outputFormat)
	}

	return safely(func() (*model.EncodedOutput, error) {
		decoded, err := imaging.Decode(cached)
		if err != nil {
			return nil, err
		}
		return imaging.Encode(decoded, outputFormat, nil)
	})
}

// ListImages returns the file names available at the image root.
func (s *ImageService) ListImages(ctx context.Context) ([]string, error) {
	names, err := s.resolver.List(ctx)
	if err != nil {
		s.logger.Error("failed to list images", zap.Error(err))
		return nil, &ServiceError{Kind: KindProcessingFailed, Err: err}
	}
	return names, nil
}

// CacheSelfTest stores the current timestamp for 30 seconds and reports whether
// a previously stored one was found instead.
func (s *ImageService) CacheSelfTest(ctx context.Context) (int64, bool) {
	if b, ok := s.cache.Get(ctx, selfTestKey); ok {
		if ts, err := strconv.ParseInt(string(b), 10, 64); err == nil {
			return ts, true
		}
	}
	ts := s.now().Unix()
	s.cache.Set(ctx, selfTestKey, []byte(strconv.FormatInt(ts, 10)), selfTestTTL)
	return ts, false
}
