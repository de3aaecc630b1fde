package numbers

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"assistant-console/internal/apperrors"
	"assistant-console/internal/audit"
	"assistant-console/internal/metrics"
	"assistant-console/internal/pricing"
	"assistant-console/internal/telephony"
	"assistant-console/internal/validator"
	"assistant-console/pkg/utils"
)

// OwnerLookup resolves the user owning an assistant.
type OwnerLookup interface {
	OwnerOf(ctx context.Context, assistantID string) (string, error)
}

// DefaultMaxRetries is the number of provider retries after the first attempt.
const DefaultMaxRetries = 3

type CoordinatorConfig struct {
	// MaxRetries bounds provider retries after the first attempt. nil means
	// DefaultMaxRetries; an explicit 0 disables retries.
	MaxRetries *int
	// BaseDelay is the first backoff delay; each retry doubles it.
	BaseDelay time.Duration
	// CallTimeout is the provider's per-call timeout, used to size the lock.
	CallTimeout time.Duration
	// LockTTL bounds how long a crashed purchase blocks the same key. It is raised
	// to MinLockTTL when shorter than the slowest possible saga.
	LockTTL time.Duration
}

func (c CoordinatorConfig) withDefaults() CoordinatorConfig {
	out := c
	retries := DefaultMaxRetries
	if c.MaxRetries != nil {
		retries = max(*c.MaxRetries, 0)
	}
	out.MaxRetries = &retries
	if out.BaseDelay <= 0 {
		out.BaseDelay = time.Second
	}
	if out.CallTimeout <= 0 {
		out.CallTimeout = telephony.DefaultHTTPTimeout
	}
	out.LockTTL = max(out.LockTTL, out.MinLockTTL())
	return out
}

func (c CoordinatorConfig) retries() int {
	if c.MaxRetries == nil {
		return DefaultMaxRetries
	}
	return max(*c.MaxRetries, 0)
}

// MinLockTTL is the slowest saga: every buy attempt timing out, the full backoff
// between them, then one compensating release, plus slack for the store calls.
func (c CoordinatorConfig) MinLockTTL() time.Duration {
	n := c.retries()
	var waits time.Duration
	for i := 0; i < n; i++ {
		waits += c.BaseDelay << i
	}
	return waits + time.Duration(n+2)*c.CallTimeout + 10*time.Second
}

type CoordinatorDeps struct {
	Repo     Repository
	Provider telephony.NumberProvider
	Pricing  *pricing.Service
	Owners   OwnerLookup
	Audit    *audit.Service
	Redis    *redis.Client
	Metrics  *metrics.Metrics
	Logger   *slog.Logger

	// Timer drives backoff waits; nil uses real time.
	Timer backoff.Timer
}

// Coordinator runs the purchase saga: check, buy with retries, record, and
// release at the provider when the record cannot be written.
type Coordinator struct {
	cfg      CoordinatorConfig
	repo     Repository
	provider telephony.NumberProvider
	pricing  *pricing.Service
	owners   OwnerLookup
	audit    *audit.Service
	rdb      *redis.Client
	metrics  *metrics.Metrics
	log      *slog.Logger
	timer    backoff.Timer

	clock func() time.Time
	newID func() string
}

func NewCoordinator(cfg CoordinatorConfig, deps CoordinatorDeps) *Coordinator {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{
		cfg:      cfg.withDefaults(),
		repo:     deps.Repo,
		provider: deps.Provider,
		pricing:  deps.Pricing,
		owners:   deps.Owners,
		audit:    deps.Audit,
		rdb:      deps.Redis,
		metrics:  deps.Metrics,
		log:      log,
		timer:    deps.Timer,
		clock:    func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// Purchase buys req.PhoneNumber for req.AssistantID on behalf of userID.
// An empty userID skips the ownership check.
func (c *Coordinator) Purchase(ctx context.Context, userID string, req PurchaseRequest) (PurchaseResult, error) {
	phone := strings.TrimSpace(req.PhoneNumber)
	assistantID := strings.TrimSpace(req.AssistantID)
	if phone == "" || assistantID == "" {
		c.count("invalid")
		return PurchaseResult{}, apperrors.InvalidRequest("phoneNumber and assistantId are required")
	}
	if err := validator.Var(phone, "e164"); err != nil {
		c.count("invalid")
		return PurchaseResult{}, apperrors.InvalidRequestDetails("Invalid phone number format", "phoneNumber must be in E.164 format, e.g. +14155550100")
	}
	country := strings.ToUpper(strings.TrimSpace(req.Country))
	if country == "" {
		country = DefaultCountry
	}
	key := IdempotencyKey(req.IdempotencyKey, assistantID, phone)

	log := c.log.With("assistant_id", assistantID, "e164", phone, "idempotency_key", key)

	if err := checkOwner(ctx, c.owners, userID, assistantID); err != nil {
		c.count("invalid")
		return PurchaseResult{}, err
	}

	lock, locked, err := c.lock(ctx, key)
	if err != nil {
		c.count("conflict")
		return PurchaseResult{}, err
	}
	if locked {
		defer func() {
			relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			if err := utils.ReleaseLock(relCtx, c.rdb, lock); err != nil {
				log.Warn("purchase lock release failed", "err", err)
			}
		}()
	}

	// Once started the saga must finish its compensation even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	existing, found, err := c.repo.FindByNumber(ctx, phone, assistantID)
	if err != nil {
		c.count("persistence_error")
		return PurchaseResult{}, apperrors.Persistence("Failed to check existing phone number", err)
	}
	if found && existing.Status == StatusActive {
		log.Info("purchase answered from existing record", "twilio_sid", existing.TwilioSID)
		c.count("idempotent")
		return PurchaseResult{Record: existing, TwilioSID: existing.TwilioSID, IdempotencyKey: key, Idempotent: true}, nil
	}

	bought, err := c.buy(ctx, log, phone)
	if err != nil {
		c.count("provider_error")
		return PurchaseResult{}, apperrors.Provider(0, "Twilio API error: "+providerMessage(err), err)
	}
	sid := bought.ProviderNumberID
	cost := c.pricing.MonthlyFee(ctx, country)
	now := c.clock()

	var rec PhoneNumber
	if found {
		rec, err = c.repo.Reactivate(ctx, existing.ID, sid, cost, now)
		if errors.Is(err, ErrNotFound) {
			err = ErrDuplicate
		}
	} else {
		rec = PhoneNumber{
			ID:          c.newID(),
			AssistantID: assistantID,
			E164:        phone,
			Country:     country,
			TwilioSID:   sid,
			Provider:    DefaultProvider,
			MonthlyCost: cost,
			Status:      StatusActive,
			PurchasedAt: now,
			CreatedAt:   now,
		}
		err = c.repo.Insert(ctx, rec)
	}

	if errors.Is(err, ErrDuplicate) {
		winner, ok, ferr := c.repo.FindByNumber(ctx, phone, assistantID)
		if ferr == nil && ok && winner.Status == StatusActive {
			if winner.TwilioSID != sid {
				c.compensate(ctx, log, userID, assistantID, phone, sid)
			}
			log.Info("purchase lost insert race", "twilio_sid", winner.TwilioSID)
			c.count("idempotent")
			return PurchaseResult{Record: winner, TwilioSID: winner.TwilioSID, IdempotencyKey: key, Idempotent: true}, nil
		}
		if ferr != nil {
			err = ferr
		}
	}
	if err != nil {
		log.Error("store purchased number failed", "twilio_sid", sid, "err", err)
		c.compensate(ctx, log, userID, assistantID, phone, sid)
		c.count("persistence_error")
		return PurchaseResult{}, apperrors.Persistence("Failed to store purchased number in database", err)
	}

	if c.audit != nil {
		if err := c.audit.LogNumberPurchased(ctx, userID, assistantID, phone, sid); err != nil {
			log.Warn("audit append failed", "err", err)
		}
	}
	log.Info("phone number purchased", "twilio_sid", sid, "monthly_cost", cost)
	c.count("created")
	return PurchaseResult{Record: rec, TwilioSID: sid, IdempotencyKey: key}, nil
}

// checkOwner hides assistants owned by someone else behind NotFound.
func checkOwner(ctx context.Context, owners OwnerLookup, userID, assistantID string) error {
	if userID == "" || owners == nil {
		return nil
	}
	owner, err := owners.OwnerOf(ctx, assistantID)
	if err != nil {
		return err
	}
	if owner != userID {
		return apperrors.NotFound("Assistant not found")
	}
	return nil
}

// lock takes the per-key purchase lease. A Redis outage degrades to running without it.
func (c *Coordinator) lock(ctx context.Context, key string) (utils.Lock, bool, error) {
	if c.rdb == nil {
		return utils.Lock{}, false, nil
	}
	l, ok, err := utils.AcquireLock(ctx, c.rdb, "lock:purchase:"+key, c.cfg.LockTTL)
	if err != nil {
		c.log.Warn("purchase lock unavailable, continuing without it", "key", key, "err", err)
		return utils.Lock{}, false, nil
	}
	if !ok {
		return utils.Lock{}, false, apperrors.Conflict("A purchase for this number is already in progress")
	}
	return l, true, nil
}

func (c *Coordinator) buy(ctx context.Context, log *slog.Logger, phone string) (telephony.BuyNumberResult, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.cfg.BaseDelay
	eb.Multiplier = 2
	eb.RandomizationFactor = 0
	eb.MaxElapsedTime = 0

	attempt := 0
	var out telephony.BuyNumberResult
	op := func() error {
		attempt++
		res, err := c.provider.BuyNumber(ctx, telephony.BuyNumberRequest{PhoneNumber: phone})
		if err != nil {
			return err
		}
		out = res
		return nil
	}
	notify := func(err error, wait time.Duration) {
		log.Warn("buy number failed, retrying", "attempt", attempt, "wait", wait, "err", err)
	}

	err := backoff.RetryNotifyWithTimer(op, backoff.WithMaxRetries(eb, uint64(c.cfg.retries())), notify, c.timer)
	return out, err
}

func providerMessage(err error) string {
	var apiErr *telephony.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

// compensate releases sid once. A failure leaves an orphan for manual cleanup.
func (c *Coordinator) compensate(ctx context.Context, log *slog.Logger, userID, assistantID, phone, sid string) {
	_, err := c.provider.ReleaseNumber(ctx, telephony.ReleaseNumberRequest{ProviderNumberID: sid})
	if err == nil {
		log.Info("purchased number released", "twilio_sid", sid)
		c.countCompensation("released")
		return
	}
	log.Error("compensation release failed, orphaned number", "twilio_sid", sid, "err", err)
	c.countCompensation("failed")
	if c.audit != nil {
		if aerr := c.audit.LogCompensationFailed(ctx, userID, assistantID, phone, sid, err); aerr != nil {
			log.Warn("audit append failed", "err", aerr)
		}
	}
}

func (c *Coordinator) count(outcome string) {
	if c.metrics != nil {
		c.metrics.Purchases.WithLabelValues(outcome).Inc()
	}
}

func (c *Coordinator) countCompensation(result string) {
	if c.metrics != nil {
		c.metrics.Compensations.WithLabelValues(result).Inc()
	}
}
