package assistants

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assistant-console/internal/apperrors"
	"assistant-console/internal/audit"
	"assistant-console/internal/calcom"
	"assistant-console/internal/secrets"
	"assistant-console/internal/telephony"
)

type fakeProvisioner struct {
	calls []string
	err   error
}

func (p *fakeProvisioner) CreateSubaccount(_ context.Context, friendlyName string) (telephony.Subaccount, error) {
	p.calls = append(p.calls, friendlyName)
	if p.err != nil {
		return telephony.Subaccount{}, p.err
	}
	return telephony.Subaccount{SID: "AC_sub", AuthToken: "sub-token", FriendlyName: friendlyName}, nil
}

type fakeReleaser struct {
	attached []AttachedNumber
	released []string
	failSID  string
}

func (r *fakeReleaser) AttachedNumbers(context.Context, string) ([]AttachedNumber, error) {
	return r.attached, nil
}

func (r *fakeReleaser) ReleaseAtProvider(_ context.Context, sid string) error {
	r.released = append(r.released, sid)
	if sid == r.failSID {
		return errors.New("twilio unavailable")
	}
	return nil
}

func testSealer(t *testing.T) *secrets.Sealer {
	t.Helper()
	s, err := secrets.NewSealer("k1", map[string][]byte{"k1": []byte("0123456789abcdef0123456789abcdef")})
	require.NoError(t, err)
	return s
}

type fixture struct {
	svc   *Service
	repo  *MemoryRepo
	prov  *fakeProvisioner
	nums  *fakeReleaser
	audit *audit.MemoryRepo
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	f := fixture{repo: NewMemoryRepo(), prov: &fakeProvisioner{}, nums: &fakeReleaser{}, audit: audit.NewMemoryRepo()}
	f.svc = NewService(f.repo, Deps{
		Provisioner: f.prov,
		Sealer:      testSealer(t),
		Numbers:     f.nums,
		Audit:       audit.NewService(f.audit),
	})
	return f
}

func TestCreateSeedsDefaults(t *testing.T) {
	f := newFixture(t)
	name := gofakeit.FirstName()

	a, err := f.svc.Create(context.Background(), "user-1", "  "+name+" ")
	require.NoError(t, err)

	assert.True(t, ValidID(a.ID))
	assert.Equal(t, name, a.Name)
	assert.Equal(t, DefaultVoiceID, a.VoiceID)
	assert.Equal(t, DefaultStartMessage, a.StartMessage)
	assert.True(t, strings.HasPrefix(a.Prompt, "Vous êtes "+name+", un assistant téléphonique professionnel et bienveillant."))
	assert.Equal(t, []string{"Assistant " + name}, f.prov.calls)
	assert.Equal(t, "AC_sub", a.TwilioAccountSID)

	stored, err := f.repo.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.True(t, secrets.IsSealed(stored.TwilioAuthToken))
	assert.NotContains(t, stored.TwilioAuthToken, "sub-token")
}

func TestCreateSucceedsWhenSubaccountFails(t *testing.T) {
	f := newFixture(t)
	f.prov.err = errors.New("twilio down")

	a, err := f.svc.Create(context.Background(), "user-1", "Léa")
	require.NoError(t, err)
	assert.Empty(t, a.TwilioAccountSID)

	_, err = f.repo.Get(context.Background(), a.ID)
	assert.NoError(t, err)
}

func TestCreateRequiresName(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), "user-1", "   ")
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)
	assert.Empty(t, f.prov.calls)
}

func TestListOrderingSearchAndNumbers(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	f.svc.clock = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Minute) }

	first, err := f.svc.Create(context.Background(), "u1", "Accueil Paris")
	require.NoError(t, err)
	second, err := f.svc.Create(context.Background(), "u1", "Support")
	require.NoError(t, err)
	_, err = f.svc.Create(context.Background(), "u2", "Accueil Lyon")
	require.NoError(t, err)
	f.repo.ActiveNumbers[first.ID] = "+33123456789"

	items, err := f.svc.List(context.Background(), "u1", "")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, second.ID, items[0].ID)
	assert.Equal(t, NoNumberLabel, items[0].PhoneNumber)
	assert.Equal(t, ListStatusInactive, items[0].Status)
	assert.Equal(t, "+33123456789", items[1].PhoneNumber)
	assert.Equal(t, ListStatusActive, items[1].Status)

	items, err = f.svc.List(context.Background(), "u1", "accueil")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, first.ID, items[0].ID)

	items, err = f.svc.List(context.Background(), "", "accueil")
	require.NoError(t, err)
	assert.Len(t, items, 2, "an empty scope lists every user's assistants")

	items, err = f.svc.List(context.Background(), "nobody", "")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestGetHidesOtherUsersAssistants(t *testing.T) {
	f := newFixture(t)
	a, err := f.svc.Create(context.Background(), "u1", "Léa")
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), "u2", a.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	got, err := f.svc.Get(context.Background(), "", a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	a, err := f.svc.Create(context.Background(), "u1", "Léa")
	require.NoError(t, err)

	voice := "kENkNtk0xyzG09WW40xE"
	name := " Louis "
	got, err := f.svc.Update(context.Background(), "u1", a.ID, UpdateInput{Name: &name, VoiceID: &voice})
	require.NoError(t, err)
	assert.Equal(t, "Louis", got.Name)
	assert.Equal(t, voice, got.VoiceID)
	assert.Equal(t, a.Prompt, got.Prompt)

	empty := "  "
	_, err = f.svc.Update(context.Background(), "u1", a.ID, UpdateInput{Name: &empty})
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)
}

func TestDeleteReleasesAttachedNumbers(t *testing.T) {
	f := newFixture(t)
	a, err := f.svc.Create(context.Background(), "u1", "Léa")
	require.NoError(t, err)
	f.nums.attached = []AttachedNumber{{E164: "+15551110000", SID: "PN1"}, {E164: "+15552220000", SID: "PN2"}}
	f.nums.failSID = "PN2"

	require.NoError(t, f.svc.Delete(context.Background(), "u1", a.ID))

	assert.Equal(t, []string{"PN1", "PN2"}, f.nums.released)
	_, err = f.repo.Get(context.Background(), a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, f.audit.OfType(audit.EventTypeNumberReleased), 1)
	assert.Len(t, f.audit.OfType(audit.EventTypeCompensationFailed), 1)
	assert.Len(t, f.audit.OfType(audit.EventTypeAssistantDeleted), 1)
}

func TestCalcomConfigGate(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetCalcomConfig(context.Background(), "", "not-a-uuid")
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)
	assert.Equal(t, "Invalid assistant ID format", apperrors.Message(err))

	err = f.svc.SaveCalcomConfig(context.Background(), "", "not-a-uuid", calcom.Settings{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)

	_, err = f.svc.GetCalcomConfig(context.Background(), "", "6f1c2a9e-4b7d-4c1e-9a2b-3d4e5f607182")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, "Assistant not found", apperrors.Message(err))
}

func TestSaveCalcomConfigSealsAndKeepsOtherTools(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.svc.Create(ctx, "u1", "Léa")
	require.NoError(t, err)
	require.NoError(t, f.repo.UpdateTools(ctx, a.ID, ToolsConfig{Other: map[string]json.RawMessage{
		"webhook": json.RawMessage(`{"url":"https://hooks.example.com"}`),
	}}, time.Now()))

	cfg, err := f.svc.GetCalcomConfig(ctx, "u1", a.ID)
	require.NoError(t, err)
	assert.Nil(t, cfg)

	in := calcom.Settings{
		APIKey:           "cal_live_secret",
		EventID:          "3231593",
		CalendarName:     "Cabinet",
		Permissions:      calcom.PermissionViewAndBook,
		ConfirmationType: calcom.ConfirmationEmail,
		Enabled:          true,
	}
	require.NoError(t, f.svc.SaveCalcomConfig(ctx, "u1", a.ID, in))

	stored, err := f.repo.Get(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Tools.Calcom)
	assert.True(t, secrets.IsSealed(stored.Tools.Calcom.APIKey))
	assert.JSONEq(t, `{"url":"https://hooks.example.com"}`, string(stored.Tools.Other["webhook"]))

	got, err := f.svc.GetCalcomConfig(ctx, "u1", a.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, in, *got)

	settings, err := f.svc.CalcomSettings(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, settings.CanBook())
	assert.Len(t, f.audit.OfType(audit.EventTypeCalcomConfigSaved), 1)
}

func TestSaveCalcomConfigRejectsUnknownPermissions(t *testing.T) {
	f := newFixture(t)
	a, err := f.svc.Create(context.Background(), "u1", "Léa")
	require.NoError(t, err)

	err = f.svc.SaveCalcomConfig(context.Background(), "u1", a.ID, calcom.Settings{Permissions: "admin"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)
}

func TestGetCalcomConfigReadsLegacyPlaintext(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.svc.Create(ctx, "u1", "Léa")
	require.NoError(t, err)
	require.NoError(t, f.repo.UpdateTools(ctx, a.ID, ToolsConfig{Calcom: &calcom.Settings{APIKey: "plain", Enabled: true}}, time.Now()))

	got, err := f.svc.GetCalcomConfig(ctx, "u1", a.ID)
	require.NoError(t, err)
	assert.Equal(t, "plain", got.APIKey)
}

func TestOwnerOf(t *testing.T) {
	f := newFixture(t)
	a, err := f.svc.Create(context.Background(), "u9", "Léa")
	require.NoError(t, err)
	owner, err := f.svc.OwnerOf(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, "u9", owner)
}
