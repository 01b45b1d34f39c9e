package analysis

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vcrr512-lgtm/SpecScan/internal/inference"
	"github.com/vcrr512-lgtm/SpecScan/internal/logging"
	"github.com/vcrr512-lgtm/SpecScan/internal/repository"
)

const cacheTTL = 5 * time.Minute

// HistoryRepository defines the persistence operations needed by the
// pipeline. Nil disables recording entirely.
type HistoryRepository interface {
	SaveLog(ctx context.Context, log *repository.AnalysisLog) error
	AggregateMetrics(ctx context.Context) (*repository.MetricsAggregation, error)
}

// Pipeline runs the multi-image analysis flow: bounded-parallel per-item
// dispatch against the remote provider, failure isolation per item, and
// aggregation into a single Report.
type Pipeline struct {
	client  inference.Client
	cache   Cache
	history HistoryRepository
	logger  *zap.Logger
	workers int
	model   string
}

// NewPipeline constructs the pipeline. cache and history may be nil.
func NewPipeline(client inference.Client, cache Cache, history HistoryRepository, logger *zap.Logger, workers int, model string) *Pipeline {
	if workers <= 0 {
		workers = 1
	}
	return &Pipeline{
		client:  client,
		cache:   cache,
		history: history,
		logger:  logger.Named("analysis_pipeline"),
		workers: workers,
		model:   model,
	}
}

// Analyze dispatches every item and aggregates the outcomes. It returns an
// error only for request-level failures raised before per-item isolation
// begins; once dispatch starts, individual remote failures are contained
// to their item and the report is always produced.
func (p *Pipeline) Analyze(ctx context.Context, area string, items []UploadItem) (*Report, error) {
	requestID := uuid.NewString()
	opLogger := logging.WithOperation(p.logger, "analysis.analyze", requestID)
	started := time.Now()

	if err := p.client.CheckEndpoint(); err != nil {
		opLogger.Error("inference endpoint rejected", zap.Error(err))
		return nil, logging.NewOperationError("analysis.check_endpoint", requestID, err)
	}

	results := make([]ItemResult, len(items))
	sem := make(chan struct{}, p.workers)
	var wg sync.WaitGroup
	for i := range items {
		item := items[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[item.Index] = p.dispatch(ctx, opLogger, item)
		}()
	}
	wg.Wait()

	report := p.aggregate(requestID, area, results)
	p.record(ctx, opLogger, report, time.Since(started))

	opLogger.Info("analysis complete",
		zap.String("area", area),
		zap.Int("image_count", report.ImageCount),
		zap.Int("total_defects", report.TotalDefects),
		zap.Duration("elapsed", time.Since(started)))
	return report, nil
}

// dispatch produces exactly one ItemResult and never lets an error escape;
// one bad image cannot abort the batch.
func (p *Pipeline) dispatch(ctx context.Context, opLogger *zap.Logger, item UploadItem) ItemResult {
	if res := p.lookupCache(ctx, opLogger, item); res != nil {
		return successResult(item, res)
	}

	res, err := p.client.Detect(ctx, item.Filename, item.MediaType, item.Data)
	if err != nil {
		opLogger.Warn("item inference failed",
			zap.Int("image_index", item.Index),
			zap.String("image_name", item.Filename),
			zap.Error(err))
		return failureResult(item, failureMessage(err))
	}

	p.storeCache(ctx, opLogger, item, res)
	return successResult(item, res)
}

func (p *Pipeline) aggregate(requestID, area string, results []ItemResult) *Report {
	flattened := make([]inference.Detection, 0)
	for _, result := range results {
		if result.Failed() {
			continue
		}
		flattened = append(flattened, result.Predictions...)
	}
	return &Report{
		Success:      true,
		Area:         area,
		Results:      results,
		Predictions:  flattened,
		ImageCount:   len(results),
		TotalDefects: len(flattened),
		RequestID:    requestID,
	}
}

// record writes the per-request summary row. History failures are logged
// and never fail the request.
func (p *Pipeline) record(ctx context.Context, opLogger *zap.Logger, report *Report, elapsed time.Duration) {
	if p.history == nil {
		return
	}
	failures := 0
	for _, result := range report.Results {
		if result.Failed() {
			failures++
		}
	}
	log := &repository.AnalysisLog{
		RequestID:    report.RequestID,
		Area:         report.Area,
		ImageCount:   report.ImageCount,
		DefectCount:  report.TotalDefects,
		FailureCount: failures,
		DurationMs:   elapsed.Milliseconds(),
		CreatedAt:    time.Now().UTC(),
	}
	if err := p.history.SaveLog(ctx, log); err != nil {
		opLogger.Warn("failed to persist analysis log", zap.Error(err))
	}
}

func (p *Pipeline) lookupCache(ctx context.Context, opLogger *zap.Logger, item UploadItem) *inference.Result {
	if p.cache == nil {
		return nil
	}
	cached, err := p.cache.Get(ctx, p.cacheKey(item))
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			opLogger.Warn("cache read failed", zap.Int("image_index", item.Index), zap.Error(err))
		}
		return nil
	}
	var res inference.Result
	if err := json.Unmarshal([]byte(cached), &res); err != nil {
		opLogger.Warn("failed to decode cached result", zap.Int("image_index", item.Index), zap.Error(err))
		return nil
	}
	if res.Predictions == nil {
		res.Predictions = []inference.Detection{}
	}
	return &res
}

func (p *Pipeline) storeCache(ctx context.Context, opLogger *zap.Logger, item UploadItem, res *inference.Result) {
	if p.cache == nil {
		return
	}
	serialized, err := json.Marshal(res)
	if err != nil {
		opLogger.Warn("failed to serialize result for cache", zap.Int("image_index", item.Index), zap.Error(err))
		return
	}
	if err := p.cache.Set(ctx, p.cacheKey(item), string(serialized), cacheTTL); err != nil {
		opLogger.Warn("cache write failed", zap.Int("image_index", item.Index), zap.Error(err))
	}
}

// cacheKey keys cached results by image content and model so a model change
// invalidates naturally.
func (p *Pipeline) cacheKey(item UploadItem) string {
	hash := sha1.Sum(item.Data)
	return fmt.Sprintf("inference:%s:%s", p.model, hex.EncodeToString(hash[:]))
}

// failureMessage captures the best available description of a per-item
// failure: the remote-supplied message when there is one, a generic
// description otherwise.
func failureMessage(err error) string {
	var apiErr *inference.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message()
	}
	var timeoutErr interface{ Timeout() bool }
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &timeoutErr) && timeoutErr.Timeout()) {
		return "inference request timed out"
	}
	return fmt.Sprintf("inference request failed: %v", err)
}
