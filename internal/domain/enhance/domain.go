package enhance

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/uniedit/enhancer/internal/model"
	"github.com/uniedit/enhancer/internal/port/inbound"
	"github.com/uniedit/enhancer/internal/port/outbound"
	apperrors "github.com/uniedit/enhancer/internal/utils/errors"
	"github.com/uniedit/enhancer/internal/utils/metrics"
	"github.com/uniedit/enhancer/internal/utils/requestctx"
)

// Stage names logged as a generation moves through the pipeline.
const (
	stageValidating    = "validating"
	stageQuotaChecking = "quota-checking"
	stageDispatching   = "dispatching"
	stagePersisting    = "persisting"
	stageAccounting    = "accounting"
	stageDone          = "done"
)

// Domain implements the enhancement orchestration.
type Domain struct {
	catalog  outbound.ModelCatalogPort
	registry outbound.ProviderRegistryPort
	ledger   outbound.QuotaLedgerPort
	credits  outbound.CreditsPort
	objects  outbound.ObjectStorePort
	retry    *RetryPolicy
	config   *Config
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewDomain creates a new enhancement domain.
func NewDomain(
	catalog outbound.ModelCatalogPort,
	registry outbound.ProviderRegistryPort,
	ledger outbound.QuotaLedgerPort,
	credits outbound.CreditsPort,
	objects outbound.ObjectStorePort,
	config *Config,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Domain {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Domain{
		catalog:  catalog,
		registry: registry,
		ledger:   ledger,
		credits:  credits,
		objects:  objects,
		retry:    NewRetryPolicy(config.MinOutputBytes, logger, m),
		config:   config,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// quotaState is what the quota check learned, reused for accounting.
type quotaState struct {
	charge  model.Charge
	daily   model.QuotaUsage
	monthly model.QuotaUsage
	credits *model.CreditsBalance
}

// Generate validates the request, checks quota, runs the provider, stores the
// original and the result, and records usage.
func (d *Domain) Generate(ctx context.Context, req *model.GenerationRequest) (*model.GenerationResult, error) {
	log := d.logger.With(
		zap.String("owner", req.Owner.String()),
		zap.String("model", req.ModelSlug),
	)
	if id := requestctx.RequestID(ctx); id != "" {
		log = log.With(zap.String("request_id", id))
	}

	result, err := d.generate(ctx, req, log)
	d.metrics.RecordGeneration(req.ModelSlug, outcomeOf(err))
	if err != nil {
		log.Info("generation failed", zap.String("kind", string(apperrors.KindOf(err))), zap.Error(err))
		return nil, err
	}
	return result, nil
}

func (d *Domain) generate(ctx context.Context, req *model.GenerationRequest, log *zap.Logger) (*model.GenerationResult, error) {
	log.Debug("generation stage", zap.String("stage", stageValidating))
	v, err := d.validate(req)
	if err != nil {
		return nil, err
	}

	log.Debug("generation stage", zap.String("stage", stageQuotaChecking))
	quota, err := d.checkQuota(ctx, req, v)
	if err != nil {
		return nil, err
	}

	log.Debug("generation stage", zap.String("stage", stageDispatching))
	now := d.now()
	originalKey := objectKey("originals", req.Owner, now, v.extension)
	if err := d.objects.Put(ctx, originalKey, req.File.Data, v.contentType); err != nil {
		log.Error("failed to store original", zap.String("key", originalKey), zap.Error(err))
		return nil, apperrors.ServerError("failed to store upload", err)
	}
	originalURL := d.publicURL(req.RequestOrigin, originalKey)

	output, err := d.dispatch(ctx, req, v, originalURL, log)
	if err != nil {
		return nil, err
	}

	log.Debug("generation stage", zap.String("stage", stagePersisting))
	resultKey := objectKey("results", req.Owner, now, resultExtension(output.ContentType, req.File.Name, v.extension))
	if err := d.objects.Put(ctx, resultKey, output.Data, output.ContentType); err != nil {
		log.Error("failed to store result", zap.String("key", resultKey), zap.Error(err))
		return nil, apperrors.ServerError("failed to store result", err)
	}

	log.Debug("generation stage", zap.String("stage", stageAccounting))
	usage := d.account(ctx, req.Owner, quota, log)

	log.Info("generation completed",
		zap.String("stage", stageDone),
		zap.String("result_key", resultKey),
		zap.Int("bytes", output.Size()),
		zap.Float64("charge", quota.charge.Total),
	)

	return &model.GenerationResult{
		ModelSlug:   v.model.Slug,
		OriginalURL: originalURL,
		ImageURL:    d.publicURL(req.RequestOrigin, resultKey),
		Usage:       usage,
		Charge:      quota.charge,
	}, nil
}

// checkQuota runs the monthly, credits and daily checks in that order. It
// only reads.
func (d *Domain) checkQuota(ctx context.Context, req *model.GenerationRequest, v *validated) (*quotaState, error) {
	owner := req.Owner

	monthlyRec, err := d.ledger.Monthly(ctx, owner)
	if err != nil {
		return nil, apperrors.ServerError("failed to read usage", err)
	}
	monthly := model.QuotaUsage{
		Scope:   model.QuotaScopeMonthly,
		Used:    model.FromTenths(monthlyRec.Count),
		Limit:   d.monthlyLimit(req),
		ResetAt: monthlyRec.ResetAt,
	}

	cost := Cost(v.model, v.scale, v.faceEnhance)
	charge := SplitCharge(cost, monthly.Remaining())

	state := &quotaState{charge: charge, monthly: monthly}

	if charge.CreditsTenths() > 0 {
		if !owner.IsUser() {
			return nil, d.rejectQuota(monthly)
		}
		balance, err := d.credits.Balance(ctx, owner.ID)
		if err != nil {
			return nil, apperrors.ServerError("failed to read credits", err)
		}
		if balance.Tenths < charge.CreditsTenths() {
			return nil, d.rejectQuota(monthly)
		}
		state.credits = balance
	}

	dailyRec, err := d.ledger.Daily(ctx, owner)
	if err != nil {
		return nil, apperrors.ServerError("failed to read usage", err)
	}
	state.daily = model.QuotaUsage{
		Scope:   model.QuotaScopeDaily,
		Used:    float64(dailyRec.Count),
		Limit:   float64(d.dailyLimit(req)),
		ResetAt: dailyRec.ResetAt,
	}
	if state.daily.Limit >= 0 && state.daily.Used >= state.daily.Limit {
		return nil, d.rejectQuota(state.daily)
	}

	return state, nil
}

func (d *Domain) rejectQuota(u model.QuotaUsage) error {
	d.metrics.RecordQuotaRejection(string(u.Scope))
	return apperrors.QuotaExceededFor(&apperrors.QuotaExceededError{
		Scope:   string(u.Scope),
		Used:    u.Used,
		Limit:   u.Limit,
		ResetAt: u.ResetAt,
	})
}

// dispatch runs the provider adapter under the retry policy. It is detached
// from caller cancellation and bounded by DispatchTimeout.
func (d *Domain) dispatch(ctx context.Context, req *model.GenerationRequest, v *validated, originalURL string, log *zap.Logger) (*model.ImageOutput, error) {
	adapter, err := d.registry.Get(v.model.Provider)
	if err != nil {
		log.Error("no adapter for provider", zap.String("provider", string(v.model.Provider)), zap.Error(err))
		return nil, apperrors.ServerError("image enhancement is not available", err)
	}

	input := &model.ProviderInput{
		Image:          req.File.Data,
		ContentType:    v.contentType,
		ImageURL:       originalURL,
		Scale:          v.scale,
		FaceEnhance:    v.faceEnhance,
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Strength:       req.Strength,
		Guidance:       req.Guidance,
		Steps:          req.Steps,
	}

	dispatchCtx := context.WithoutCancel(ctx)
	if d.config.DispatchTimeout > 0 {
		var cancel context.CancelFunc
		dispatchCtx, cancel = context.WithTimeout(dispatchCtx, d.config.DispatchTimeout)
		defer cancel()
	}

	start := time.Now()
	output, err := d.retry.Run(dispatchCtx, adapter, v.model, input)
	d.metrics.RecordProviderRequest(string(v.model.Provider), v.model.Slug, time.Since(start))
	if err != nil {
		log.Warn("provider dispatch failed", zap.String("provider", string(v.model.Provider)), zap.Error(err))
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperrors.ServerError("image enhancement failed", err)
	}
	return output, nil
}

// account records usage after a successful generation. Failures are logged and
// do not fail the request.
func (d *Domain) account(ctx context.Context, owner model.Owner, q *quotaState, log *zap.Logger) *model.GenerationUsage {
	usage := &model.GenerationUsage{Daily: q.daily, Monthly: q.monthly}

	if rec, err := d.ledger.IncrementDaily(ctx, owner); err != nil {
		log.Warn("failed to record daily usage", zap.Error(err))
		usage.Daily.Used++
	} else {
		usage.Daily.Used = float64(rec.Count)
		usage.Daily.ResetAt = rec.ResetAt
	}

	if tenths := q.charge.PlanTenths(); tenths > 0 {
		if rec, err := d.ledger.IncrementMonthly(ctx, owner, tenths); err != nil {
			log.Warn("failed to record monthly usage", zap.Int64("tenths", tenths), zap.Error(err))
			usage.Monthly.Used += model.FromTenths(tenths)
		} else {
			usage.Monthly.Used = model.FromTenths(rec.Count)
			usage.Monthly.ResetAt = rec.ResetAt
		}
	}

	if !owner.IsUser() {
		return usage
	}

	balance := q.credits
	if tenths := q.charge.CreditsTenths(); tenths > 0 {
		updated, err := d.credits.ConsumeTenths(ctx, owner.ID, tenths)
		if err != nil {
			log.Warn("failed to consume credits", zap.Int64("tenths", tenths), zap.Error(err))
		} else {
			balance = updated
		}
	}
	if balance != nil {
		credits := balance.Credits()
		usage.CreditsBalance = &credits
	}
	return usage
}

func (d *Domain) publicURL(origin, key string) string {
	r := strings.NewReplacer("{origin}", strings.TrimRight(origin, "/"), "{key}", key)
	return r.Replace(d.config.PublicURLTemplate)
}

// objectKey builds {prefix}/{ownerType}/{ownerId}/{timestamp}-{uuid}{ext}.
func objectKey(prefix string, owner model.Owner, now time.Time, ext string) string {
	return fmt.Sprintf("%s/%s/%s/%s-%s%s",
		prefix, owner.Type, owner.ID, now.UTC().Format("20060102T150405Z"), uuid.New().String(), ext)
}

var contentTypeExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
	"image/avif": ".avif",
}

// resultExtension picks the extension from the result type, then the upload
// name, then the sniffed upload type, then .bin.
func resultExtension(contentType, originalName, sniffedExt string) string {
	if ext, ok := contentTypeExtensions[strings.ToLower(contentType)]; ok {
		return ext
	}
	if ext := strings.ToLower(filepath.Ext(originalName)); ext != "" {
		return ext
	}
	if sniffedExt != "" {
		return sniffedExt
	}
	return ".bin"
}

func outcomeOf(err error) string {
	if err == nil {
		return metrics.OutcomeSuccess
	}
	return string(apperrors.KindOf(err))
}

var _ inbound.EnhanceDomain = (*Domain)(nil)
