package assistants

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"assistant-console/internal/apperrors"
	"assistant-console/internal/audit"
	"assistant-console/internal/calcom"
	"assistant-console/internal/secrets"
	"assistant-console/internal/telephony"
	"assistant-console/internal/validator"
)

// AttachedNumber is a provider number owned by an assistant.
type AttachedNumber struct {
	E164 string
	SID  string
}

// NumberReleaser frees an assistant's provider numbers when the assistant is deleted.
type NumberReleaser interface {
	AttachedNumbers(ctx context.Context, assistantID string) ([]AttachedNumber, error)
	ReleaseAtProvider(ctx context.Context, sid string) error
}

type Deps struct {
	Provisioner telephony.AccountProvisioner
	Sealer      *secrets.Sealer
	Numbers     NumberReleaser
	Audit       *audit.Service
	Logger      *slog.Logger
}

type Service struct {
	repo        Repository
	provisioner telephony.AccountProvisioner
	sealer      *secrets.Sealer
	numbers     NumberReleaser
	audit       *audit.Service
	log         *slog.Logger

	clock func() time.Time
	newID func() string
}

func NewService(repo Repository, deps Deps) *Service {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:        repo,
		provisioner: deps.Provisioner,
		sealer:      deps.Sealer,
		numbers:     deps.Numbers,
		audit:       deps.Audit,
		log:         log,
		clock:       time.Now,
		newID:       uuid.NewString,
	}
}

// Create seeds a new assistant with the default voice, greeting and prompt, then
// provisions its Twilio sub-account. A provisioning failure never fails creation.
func (s *Service) Create(ctx context.Context, userID, name string) (Assistant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Assistant{}, apperrors.InvalidRequest("name is required")
	}
	if strings.TrimSpace(userID) == "" {
		return Assistant{}, apperrors.InvalidRequest("user is required")
	}

	now := s.clock().UTC()
	a := Assistant{
		ID:           s.newID(),
		UserID:       userID,
		Name:         name,
		VoiceID:      DefaultVoiceID,
		StartMessage: DefaultStartMessage,
		Prompt:       defaultPrompt(name),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return Assistant{}, apperrors.Persistence("failed to create assistant", err)
	}

	s.provisionSubaccount(ctx, &a)
	return a, nil
}

func (s *Service) provisionSubaccount(ctx context.Context, a *Assistant) {
	if s.provisioner == nil {
		return
	}
	log := s.log.With("assistant_id", a.ID)

	sub, err := s.provisioner.CreateSubaccount(ctx, "Assistant "+a.Name)
	if err != nil {
		log.Warn("twilio subaccount creation failed", "err", err)
		return
	}
	token := sub.AuthToken
	if s.sealer != nil && token != "" {
		sealed, err := s.sealer.Seal(token)
		if err != nil {
			log.Error("seal subaccount token failed", "err", err)
			return
		}
		token = sealed
	}
	if err := s.repo.SetSubaccount(ctx, a.ID, sub.SID, token, s.clock().UTC()); err != nil {
		log.Error("store subaccount failed", "subaccount_sid", sub.SID, "err", err)
		return
	}
	a.TwilioAccountSID = sub.SID
	a.TwilioAuthToken = token
	log.Info("twilio subaccount created", "subaccount_sid", sub.SID)
}

func (s *Service) List(ctx context.Context, userID, search string) ([]ListItem, error) {
	items, err := s.repo.List(ctx, userID, search)
	if err != nil {
		return nil, apperrors.Persistence("failed to load assistants", err)
	}
	if items == nil {
		items = []ListItem{}
	}
	return items, nil
}

// Get loads an assistant visible to userID. An empty userID skips the ownership check.
func (s *Service) Get(ctx context.Context, userID, id string) (Assistant, error) {
	if !ValidID(id) {
		return Assistant{}, invalidID()
	}
	a, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Assistant{}, apperrors.NotFound("Assistant not found")
	}
	if err != nil {
		return Assistant{}, apperrors.Persistence("failed to load assistant", err)
	}
	if userID != "" && a.UserID != userID {
		return Assistant{}, apperrors.NotFound("Assistant not found")
	}
	return a, nil
}

func (s *Service) Update(ctx context.Context, userID, id string, in UpdateInput) (Assistant, error) {
	if in.Name != nil {
		trimmed := strings.TrimSpace(*in.Name)
		in.Name = &trimmed
	}
	if err := validator.Struct(in); err != nil {
		return Assistant{}, apperrors.InvalidRequest(err.Error())
	}
	if _, err := s.Get(ctx, userID, id); err != nil {
		return Assistant{}, err
	}
	if in.Empty() {
		return s.Get(ctx, userID, id)
	}

	a, err := s.repo.Update(ctx, id, in, s.clock().UTC())
	if errors.Is(err, ErrNotFound) {
		return Assistant{}, apperrors.NotFound("Assistant not found")
	}
	if err != nil {
		return Assistant{}, apperrors.Persistence("failed to update assistant", err)
	}
	return a, nil
}

// Delete removes the assistant (its number rows cascade), then releases the
// provider numbers it held. Release failures are logged and audited only.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	a, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	log := s.log.With("assistant_id", id)

	var attached []AttachedNumber
	if s.numbers != nil {
		attached, err = s.numbers.AttachedNumbers(ctx, id)
		if err != nil {
			log.Warn("list attached numbers failed", "err", err)
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperrors.NotFound("Assistant not found")
		}
		return apperrors.Persistence("failed to delete assistant", err)
	}

	cleanup := context.WithoutCancel(ctx)
	for _, n := range attached {
		if n.SID == "" {
			continue
		}
		if err := s.numbers.ReleaseAtProvider(cleanup, n.SID); err != nil {
			log.Error("release number after delete failed", "e164", n.E164, "twilio_sid", n.SID, "err", err)
			s.recordAudit(cleanup, func() error {
				return s.audit.LogCompensationFailed(cleanup, a.UserID, id, n.E164, n.SID, err)
			})
			continue
		}
		s.recordAudit(cleanup, func() error {
			return s.audit.LogNumberReleased(cleanup, a.UserID, id, n.E164, n.SID)
		})
	}

	s.recordAudit(cleanup, func() error { return s.audit.LogAssistantDeleted(cleanup, a.UserID, id, a.Name) })
	log.Info("assistant deleted", "released_numbers", len(attached))
	return nil
}

// GetCalcomConfig returns the assistant's Cal.com settings with the API key unsealed, or nil.
func (s *Service) GetCalcomConfig(ctx context.Context, userID, id string) (*calcom.Settings, error) {
	a, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if a.Tools.Calcom == nil {
		return nil, nil
	}
	cfg := *a.Tools.Calcom
	if secrets.IsSealed(cfg.APIKey) {
		if s.sealer == nil {
			return nil, apperrors.Persistence("failed to read configuration", errors.New("sealer not configured"))
		}
		key, err := s.sealer.Open(cfg.APIKey)
		if err != nil {
			return nil, apperrors.Persistence("failed to read configuration", err)
		}
		cfg.APIKey = key
	}
	return &cfg, nil
}

// SaveCalcomConfig replaces the calcom tool as a unit and keeps every other tool untouched.
func (s *Service) SaveCalcomConfig(ctx context.Context, userID, id string, cfg calcom.Settings) error {
	if !ValidID(id) {
		return invalidID()
	}
	if err := validator.Struct(cfg); err != nil {
		return apperrors.InvalidRequest(err.Error())
	}
	a, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}

	if cfg.APIKey != "" && s.sealer != nil {
		sealed, err := s.sealer.Seal(cfg.APIKey)
		if err != nil {
			return apperrors.Persistence("Failed to save configuration", err)
		}
		cfg.APIKey = sealed
	}

	tools := a.Tools
	tools.Calcom = &cfg
	if err := s.repo.UpdateTools(ctx, id, tools, s.clock().UTC()); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperrors.NotFound("Assistant not found")
		}
		return apperrors.Persistence("Failed to save configuration", err)
	}

	s.recordAudit(ctx, func() error { return s.audit.LogCalcomConfigSaved(ctx, a.UserID, id, cfg.Enabled) })
	return nil
}

// CalcomSettings serves the scheduler. Missing configuration yields zero settings.
func (s *Service) CalcomSettings(ctx context.Context, assistantID string) (calcom.Settings, error) {
	cfg, err := s.GetCalcomConfig(ctx, "", assistantID)
	if err != nil {
		return calcom.Settings{}, err
	}
	if cfg == nil {
		return calcom.Settings{}, nil
	}
	return *cfg, nil
}

// OwnerOf returns the owning user id of an assistant.
func (s *Service) OwnerOf(ctx context.Context, assistantID string) (string, error) {
	a, err := s.Get(ctx, "", assistantID)
	if err != nil {
		return "", err
	}
	return a.UserID, nil
}

func (s *Service) recordAudit(ctx context.Context, fn func() error) {
	if s.audit == nil {
		return
	}
	if err := fn(); err != nil {
		s.log.Warn("audit append failed", "err", err)
	}
}

func invalidID() error {
	return apperrors.InvalidRequestDetails("Invalid assistant ID format", "Assistant ID must be a valid UUID")
}
