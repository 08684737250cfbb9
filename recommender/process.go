// Package recommender 调用外部推荐进程，并把其输出解析为推荐结果。
package recommender

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"roadmap_tutor/logger"
	"roadmap_tutor/metrics"
	"roadmap_tutor/models"
)

const (
	FlowBasic        = "basic"
	FlowPersonalized = "personalized"

	DefaultTimeout = 120 * time.Second

	// 日志中保留的输出长度
	maxLoggedOutput = 2048
)

// BreakerSettings 熔断器参数
type BreakerSettings struct {
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	MinRequests  uint32
	FailureRatio float64
}

// Config 推荐进程调用参数
type Config struct {
	Python             string
	Script             string
	PersonalizedScript string
	Timeout            time.Duration
	ScratchDir         string
	Breaker            BreakerSettings
}

// ProcessRecommender 通过外部 Python 进程生成推荐
type ProcessRecommender struct {
	cfg     Config
	runner  Runner
	breaker *gobreaker.CircuitBreaker[json.RawMessage]
}

func NewProcessRecommender(cfg Config, runner Runner) *ProcessRecommender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if runner == nil {
		runner = ExecRunner{}
	}

	b := cfg.Breaker
	settings := gobreaker.Settings{
		Name:        "recommender",
		MaxRequests: b.MaxRequests,
		Interval:    b.Interval,
		Timeout:     b.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < b.MinRequests || counts.Requests == 0 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= b.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
		// 调用方取消的请求不计入失败
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}

	return &ProcessRecommender{
		cfg:     cfg,
		runner:  runner,
		breaker: gobreaker.NewCircuitBreaker[json.RawMessage](settings),
	}
}

// Recommend 基础推荐：<python> <script> <dataset> <tag> <exclude_csv>
func (p *ProcessRecommender) Recommend(ctx context.Context, datasetPath, tag string, excludeIDs []string) (res *models.RecommendationResult, err error) {
	start := time.Now()
	defer func() { observe(FlowBasic, start, err) }()

	raw, err := p.invoke(ctx, FlowBasic, p.cfg.Script, datasetPath, tag, strings.Join(excludeIDs, ","))
	if err != nil {
		return nil, err
	}
	if derr := decodeDomainError(raw); derr != nil {
		return nil, derr
	}

	var result models.RecommendationResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &ProcessError{Flow: FlowBasic, Kind: KindUnparseable, Err: fmt.Errorf("%w: %v", ErrUnparseableOutput, err)}
	}
	return &result, nil
}

// Personalized 个性化推荐：<python> <personalized_script> <dataset> @<envelope> [<tag>]。
// 用户画像通过临时信封文件传递，调用结束后无论成功与否都会删除。
func (p *ProcessRecommender) Personalized(ctx context.Context, datasetPath string, profile models.PersonalizationProfile, tag string) (set *models.PersonalizedRecommendationSet, err error) {
	start := time.Now()
	defer func() { observe(FlowPersonalized, start, err) }()

	envelopePath, cleanup, err := WriteEnvelope(p.cfg.ScratchDir, profile)
	if err != nil {
		return nil, &ProcessError{Flow: FlowPersonalized, Kind: KindStart, Err: err}
	}
	defer cleanup()

	args := []string{p.cfg.PersonalizedScript, datasetPath, "@" + envelopePath}
	if tag != "" {
		args = append(args, tag)
	}

	raw, err := p.invoke(ctx, FlowPersonalized, args...)
	if err != nil {
		return nil, err
	}
	if derr := decodeDomainError(raw); derr != nil {
		return nil, derr
	}

	var result models.PersonalizedRecommendationSet
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &ProcessError{Flow: FlowPersonalized, Kind: KindUnparseable, Err: fmt.Errorf("%w: %v", ErrUnparseableOutput, err)}
	}
	if result.Similar == nil {
		result.Similar = []models.RecommendationResult{}
	}
	if result.New == nil {
		result.New = []models.RecommendationResult{}
	}
	return &result, nil
}

// invoke 在熔断器保护下运行进程并提取 JSON 对象
func (p *ProcessRecommender) invoke(ctx context.Context, flow string, args ...string) (json.RawMessage, error) {
	raw, err := p.breaker.Execute(func() (json.RawMessage, error) {
		return p.run(ctx, flow, args)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &ProcessError{Flow: flow, Kind: KindUnavailable, Err: err}
	}
	return raw, err
}

func (p *ProcessRecommender) run(ctx context.Context, flow string, args []string) (json.RawMessage, error) {
	runCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	log := logger.With("flow", flow)
	log.Debug("running recommender", "python", p.cfg.Python, "args", args)

	out, code, err := p.runner.Run(runCtx, p.cfg.Python, args...)
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, &ProcessError{Flow: flow, Kind: KindTimeout, Err: fmt.Errorf("no result after %s: %w", p.cfg.Timeout, context.DeadlineExceeded)}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &ProcessError{Flow: flow, Kind: KindStart, ExitCode: code, Err: err}
	}

	log.Debug("recommender finished", "exit_code", code, "output", truncate(string(out), maxLoggedOutput))

	raw, err := ParseOutput(out)
	if err != nil {
		kind := KindUnparseable
		if code != 0 {
			kind = KindExit
		}
		log.Warn("recommender output could not be parsed", "exit_code", code, "output", truncate(string(out), maxLoggedOutput))
		return nil, &ProcessError{Flow: flow, Kind: kind, ExitCode: code, Err: err}
	}
	if code != 0 {
		log.Warn("recommender exited non-zero but produced JSON", "exit_code", code)
	}
	return raw, nil
}

// observe 按结果类别记录调用指标
func observe(flow string, start time.Time, err error) {
	outcome := "success"
	var (
		derr *DomainError
		perr *ProcessError
	)
	switch {
	case err == nil:
	case errors.As(err, &derr):
		outcome = "domain_error"
	case errors.As(err, &perr) && perr.Kind == KindTimeout:
		outcome = "timeout"
	case errors.As(err, &perr) && perr.Kind == KindUnavailable:
		outcome = "rejected"
	default:
		outcome = "process_error"
	}
	metrics.RecordInvocation(flow, outcome, time.Since(start))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
