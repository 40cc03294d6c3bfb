// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package cloud

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/tomtom215/audience-insights/internal/cache"
	"github.com/tomtom215/audience-insights/internal/config"
	"github.com/tomtom215/audience-insights/internal/models"
)

// Benchmark kinds, also the file name prefix of each benchmark workbook.
const (
	Benchmark15Min    = "Benchmark-15min"
	BenchmarkDayparts = "Benchmark-Dayparts"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var (
	// ErrObjectNotFound is returned when a key does not exist.
	ErrObjectNotFound = errors.New("cloud: object not found")
	// ErrNoBenchmark is returned when no workbook of a kind is stored.
	ErrNoBenchmark = errors.New("cloud: no benchmark file found")
)

// S3API is the subset of the S3 client used here.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Storage reads the coverage map and manages benchmark workbooks.
type Storage struct {
	api             S3API
	breaker         *breaker
	coverageBucket  string
	coverageKey     string
	benchmarkBucket string
	benchmarkPrefix string
	coverage        *cache.Cache[[]byte]
	listings        *cache.Cache[[]models.BenchmarkFile]
}

// NewStorage wraps api with the buckets and breaker settings of cfg.
func NewStorage(api S3API, cfg *config.AWSConfig) *Storage {
	return &Storage{
		api:             api,
		breaker:         newBreaker("s3", cfg.Breaker, isNotFound),
		coverageBucket:  cfg.CoverageBucket,
		coverageKey:     cfg.CoverageKey,
		benchmarkBucket: cfg.BenchmarkBucket,
		benchmarkPrefix: cfg.BenchmarkPrefix,
		coverage:        cache.New[[]byte]("s3-coverage", cfg.CacheTTL),
		listings:        cache.New[[]models.BenchmarkFile]("s3-benchmark-listing", cfg.CacheTTL),
	}
}

// NewStorageFromConfig builds the S3 client from awsCfg.
func NewStorageFromConfig(awsCfg aws.Config, cfg *config.AWSConfig) *Storage {
	return NewStorage(s3.NewFromConfig(awsCfg), cfg)
}

// Coverage returns the raw coverage map GeoJSON.
func (s *Storage) Coverage(ctx context.Context) ([]byte, error) {
	body, err := s.coverage.GetOrLoad(ctx, s.coverageKey, func(ctx context.Context) ([]byte, error) {
		return s.get(ctx, s.coverageBucket, s.coverageKey)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download coverage map: %w", err)
	}
	return body, nil
}

// LatestBenchmark returns the most recently modified workbook of kind.
func (s *Storage) LatestBenchmark(ctx context.Context, kind string) (models.BenchmarkFile, error) {
	files, err := s.Benchmarks(ctx)
	if err != nil {
		return models.BenchmarkFile{}, err
	}

	var (
		latest models.BenchmarkFile
		found  bool
	)
	for _, f := range files {
		if !strings.HasPrefix(f.Name, kind) || !strings.HasSuffix(f.Name, ".xlsx") {
			continue
		}
		if !found || f.LastModified.After(latest.LastModified) {
			latest, found = f, true
		}
	}
	if !found {
		return models.BenchmarkFile{}, fmt.Errorf("%w: %s", ErrNoBenchmark, kind)
	}
	return latest, nil
}

// DownloadBenchmark returns the content of the latest workbook of kind.
func (s *Storage) DownloadBenchmark(ctx context.Context, kind string) (models.BenchmarkFile, []byte, error) {
	file, err := s.LatestBenchmark(ctx, kind)
	if err != nil {
		return models.BenchmarkFile{}, nil, err
	}
	body, err := s.get(ctx, s.benchmarkBucket, file.Key)
	if err != nil {
		return models.BenchmarkFile{}, nil, fmt.Errorf("failed to download %s: %w", file.Name, err)
	}
	return file, body, nil
}

// Benchmarks lists every object under the benchmark prefix.
func (s *Storage) Benchmarks(ctx context.Context) ([]models.BenchmarkFile, error) {
	key := cache.GenerateKey("benchmarks", []string{s.benchmarkBucket, s.benchmarkPrefix})
	return s.listings.GetOrLoad(ctx, key, s.listBenchmarks)
}

// PruneCache drops expired cache entries and returns how many were removed.
func (s *Storage) PruneCache() int {
	return s.coverage.Prune() + s.listings.Prune()
}

func (s *Storage) listBenchmarks(ctx context.Context) ([]models.BenchmarkFile, error) {
	return call(s.breaker, func() ([]models.BenchmarkFile, error) {
		var files []models.BenchmarkFile
		p := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
			Bucket: aws.String(s.benchmarkBucket),
			Prefix: aws.String(s.benchmarkPrefix),
		})
		for p.HasMorePages() {
			page, err := p.NextPage(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to list benchmark files: %w", err)
			}
			for _, obj := range page.Contents {
				key := aws.ToString(obj.Key)
				if strings.HasSuffix(key, "/") {
					continue
				}
				files = append(files, models.BenchmarkFile{
					Key:          key,
					Name:         path.Base(key),
					Size:         aws.ToInt64(obj.Size),
					LastModified: aws.ToTime(obj.LastModified),
				})
			}
		}
		return files, nil
	})
}

// BenchmarkUpload is one workbook to store.
type BenchmarkUpload struct {
	Name string
	Body []byte
}

// ReplaceBenchmarks deletes every stored benchmark workbook and stores
// uploads in their place. It returns the stored file names.
func (s *Storage) ReplaceBenchmarks(ctx context.Context, uploads []BenchmarkUpload) ([]string, error) {
	defer s.listings.Clear()

	existing, err := s.listBenchmarks(ctx)
	if err != nil {
		return nil, err
	}

	if len(existing) > 0 {
		ids := make([]s3types.ObjectIdentifier, len(existing))
		for i, f := range existing {
			ids[i] = s3types.ObjectIdentifier{Key: aws.String(f.Key)}
		}
		_, err := call(s.breaker, func() (*s3.DeleteObjectsOutput, error) {
			return s.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
				Bucket: aws.String(s.benchmarkBucket),
				Delete: &s3types.Delete{Objects: ids, Quiet: aws.Bool(true)},
			})
		})
		if err != nil {
			return nil, fmt.Errorf("failed to delete old benchmark files: %w", err)
		}
	}

	names := make([]string, 0, len(uploads))
	for _, u := range uploads {
		name := path.Base(u.Name)
		_, err := call(s.breaker, func() (*s3.PutObjectOutput, error) {
			return s.api.PutObject(ctx, &s3.PutObjectInput{
				Bucket:      aws.String(s.benchmarkBucket),
				Key:         aws.String(s.benchmarkPrefix + name),
				Body:        bytes.NewReader(u.Body),
				ContentType: aws.String(xlsxContentType),
			})
		})
		if err != nil {
			return names, fmt.Errorf("failed to store %s: %w", name, err)
		}
		names = append(names, name)
	}
	return names, nil
}

func (s *Storage) get(ctx context.Context, bucket, key string) ([]byte, error) {
	return call(s.breaker, func() ([]byte, error) {
		out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			if isNotFound(err) {
				return nil, fmt.Errorf("%w: s3://%s/%s", ErrObjectNotFound, bucket, key)
			}
			return nil, err
		}
		defer out.Body.Close()
		return io.ReadAll(out.Body)
	})
}

func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	return errors.As(err, &nsk) || errors.Is(err, ErrObjectNotFound) || errors.Is(err, ErrNoBenchmark)
}
