package notifier

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/seisline/seisline/internal/domain/intensity"
	"github.com/seisline/seisline/internal/domain/notify"
	"github.com/seisline/seisline/internal/domain/quake"
	"github.com/seisline/seisline/internal/domain/tenant"
	"github.com/seisline/seisline/internal/repository/postgres"
)

type stubTenants struct {
	workspaces []*tenant.Workspace
	conditions map[uuid.UUID]*tenant.Condition
	condErrs   map[uuid.UUID]error
}

func (s *stubTenants) ListWorkspaces(context.Context) ([]*tenant.Workspace, error) {
	return s.workspaces, nil
}

func (s *stubTenants) GetWorkspace(_ context.Context, id uuid.UUID) (*tenant.Workspace, error) {
	for _, w := range s.workspaces {
		if w.ID == id {
			return w, nil
		}
	}
	return nil, postgres.ErrNotFound
}

func (s *stubTenants) GetCondition(_ context.Context, wsID uuid.UUID) (*tenant.Condition, error) {
	if err, ok := s.condErrs[wsID]; ok {
		return nil, err
	}
	c, ok := s.conditions[wsID]
	if !ok {
		return nil, postgres.ErrNotFound
	}
	return c, nil
}

func (s *stubTenants) ListActiveDepartments(_ context.Context, wsID uuid.UUID) ([]*tenant.Department, error) {
	return []*tenant.Department{
		{ID: uuid.New(), WorkspaceID: wsID, Name: "Ops", IsActive: true},
	}, nil
}

func (s *stubTenants) GetDepartment(context.Context, uuid.UUID) (*tenant.Department, error) {
	return nil, postgres.ErrNotFound
}

// stubNotifs dedups on (event_id, workspace_id) like the partial unique
// index does.
type stubNotifs struct {
	created   []*notify.Notification
	sent      []uuid.UUID
	failed    []uuid.UUID
	dedupKeys map[string]bool
}

func newStubNotifs() *stubNotifs { return &stubNotifs{dedupKeys: make(map[string]bool)} }

func (s *stubNotifs) Create(_ context.Context, n *notify.Notification) (bool, error) {
	if n.EventID != nil {
		key := *n.EventID + "/" + n.WorkspaceID.String()
		if s.dedupKeys[key] {
			return false, nil
		}
		s.dedupKeys[key] = true
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	s.created = append(s.created, n)
	return true, nil
}

func (s *stubNotifs) GetByID(context.Context, uuid.UUID) (*notify.Notification, error) {
	return nil, notify.ErrNotFound
}

func (s *stubNotifs) GetByMessage(context.Context, string, string) (*notify.Notification, error) {
	return nil, notify.ErrNotFound
}

func (s *stubNotifs) MarkSent(_ context.Context, id uuid.UUID, _ string) error {
	s.sent = append(s.sent, id)
	return nil
}

func (s *stubNotifs) MarkFailed(_ context.Context, id uuid.UUID, _ string) error {
	s.failed = append(s.failed, id)
	return nil
}

func (s *stubNotifs) MarkCancelled(context.Context, uuid.UUID) error      { return nil }
func (s *stubNotifs) SetScheduleRef(context.Context, uuid.UUID, string) error {
	return nil
}
func (s *stubNotifs) Delete(context.Context, uuid.UUID) error { return nil }

type stubChat struct {
	posts []string
	fail  bool
}

func (s *stubChat) PostMessage(_ context.Context, _, channelID string, _ notify.MessageBlocks) (string, error) {
	if s.fail {
		return "", errors.New("chat api down")
	}
	s.posts = append(s.posts, channelID)
	return "1700000000.000300", nil
}

func (s *stubChat) UpdateMessage(context.Context, string, string, string, notify.MessageBlocks) error {
	return nil
}

type stubDec struct{}

func (stubDec) Decrypt(ciphertext, _, _ []byte) ([]byte, error) { return ciphertext, nil }

type stubClock struct{}

func (stubClock) Now() time.Time { return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC) }

func testRecord() *quake.Record {
	return &quake.Record{
		EventID:        "ev1",
		OccurrenceTime: time.Date(2026, 3, 14, 9, 26, 0, 0, time.UTC),
		Epicenter:      "Off the coast of Miyagi",
		Magnitude:      6.2,
		DepthKM:        40,
		MaxIntensity:   intensity.Level5Upper,
		Observations: []quake.Observation{
			{Prefecture: "Miyagi", Intensity: intensity.Level5Upper},
		},
	}
}

func workspace() *tenant.Workspace {
	return &tenant.Workspace{
		ID:                 uuid.New(),
		ChannelID:          "C100",
		BotTokenCiphertext: []byte("xoxb-test"),
	}
}

func newHandler(tenants *stubTenants, notifs *stubNotifs, ch notify.ChatGateway) *Handler {
	return &Handler{
		Tenants: tenants,
		Notifs:  notifs,
		Chat:    ch,
		Dec:     stubDec{},
		Clock:   stubClock{},
		Log:     zap.NewNop(),
	}
}

func TestHandleQuakeMatchedDispatches(t *testing.T) {
	ws := workspace()
	tenants := &stubTenants{
		workspaces: []*tenant.Workspace{ws},
		conditions: map[uuid.UUID]*tenant.Condition{
			ws.ID: {WorkspaceID: ws.ID, MinIntensity: intensity.Level4},
		},
	}
	notifs := newStubNotifs()
	ch := &stubChat{}
	h := newHandler(tenants, notifs, ch)

	require.NoError(t, h.HandleQuakeMatched(context.Background(), testRecord()))
	require.Len(t, notifs.created, 1)
	require.Len(t, notifs.sent, 1)
	require.Equal(t, []string{"C100"}, ch.posts)

	n := notifs.created[0]
	require.Equal(t, notify.ModeSafety, n.Mode)
	require.NotNil(t, n.EventID)
	require.Equal(t, "ev1", *n.EventID)
	require.NotEmpty(t, n.Payload)
}

func TestHandleQuakeMatchedReplayDedups(t *testing.T) {
	ws := workspace()
	tenants := &stubTenants{
		workspaces: []*tenant.Workspace{ws},
		conditions: map[uuid.UUID]*tenant.Condition{
			ws.ID: {WorkspaceID: ws.ID, MinIntensity: intensity.Level4},
		},
	}
	notifs := newStubNotifs()
	ch := &stubChat{}
	h := newHandler(tenants, notifs, ch)

	require.NoError(t, h.HandleQuakeMatched(context.Background(), testRecord()))
	require.NoError(t, h.HandleQuakeMatched(context.Background(), testRecord()))
	require.Len(t, ch.posts, 1)
	require.Len(t, notifs.created, 1)
}

func TestHandleQuakeMatchedConditionFiltering(t *testing.T) {
	matched := workspace()
	tooHigh := workspace()
	noCondition := workspace()
	tenants := &stubTenants{
		workspaces: []*tenant.Workspace{matched, tooHigh, noCondition},
		conditions: map[uuid.UUID]*tenant.Condition{
			matched.ID: {WorkspaceID: matched.ID, MinIntensity: intensity.Level4},
			tooHigh.ID: {WorkspaceID: tooHigh.ID, MinIntensity: intensity.Level6Lower},
		},
	}
	notifs := newStubNotifs()
	ch := &stubChat{}
	h := newHandler(tenants, notifs, ch)

	require.NoError(t, h.HandleQuakeMatched(context.Background(), testRecord()))
	require.Len(t, notifs.created, 1)
	require.Equal(t, matched.ID, notifs.created[0].WorkspaceID)
}

func TestHandleQuakeMatchedInvalidConditionLabelSkipsWorkspace(t *testing.T) {
	corrupt := workspace()
	healthy := workspace()
	tenants := &stubTenants{
		workspaces: []*tenant.Workspace{corrupt, healthy},
		conditions: map[uuid.UUID]*tenant.Condition{
			healthy.ID: {WorkspaceID: healthy.ID, MinIntensity: intensity.Level4},
		},
		// The shape the condition repo produces for an unreadable label.
		condErrs: map[uuid.UUID]error{
			corrupt.ID: fmt.Errorf("condition for %s: %w", corrupt.ID, intensity.ErrInvalidIntensity),
		},
	}
	notifs := newStubNotifs()
	ch := &stubChat{}
	h := newHandler(tenants, notifs, ch)

	require.NoError(t, h.HandleQuakeMatched(context.Background(), testRecord()))
	require.Len(t, notifs.created, 1)
	require.Equal(t, healthy.ID, notifs.created[0].WorkspaceID)
	require.Equal(t, []string{"C100"}, ch.posts)
}

func TestHandleQuakeMatchedPostFailureMarksFailed(t *testing.T) {
	ws := workspace()
	tenants := &stubTenants{
		workspaces: []*tenant.Workspace{ws},
		conditions: map[uuid.UUID]*tenant.Condition{
			ws.ID: {WorkspaceID: ws.ID, MinIntensity: intensity.Level4},
		},
	}
	notifs := newStubNotifs()
	ch := &stubChat{fail: true}
	h := newHandler(tenants, notifs, ch)

	require.Error(t, h.HandleQuakeMatched(context.Background(), testRecord()))
	require.Len(t, notifs.failed, 1)
	require.Empty(t, notifs.sent)
}

func TestHandleQuakeMatchedOneTenantFailureDoesNotBlockOthers(t *testing.T) {
	broken := workspace()
	healthy := workspace()
	broken.ChannelID = "C-broken"
	tenants := &stubTenants{
		workspaces: []*tenant.Workspace{broken, healthy},
		conditions: map[uuid.UUID]*tenant.Condition{
			broken.ID:  {WorkspaceID: broken.ID, MinIntensity: intensity.Level4},
			healthy.ID: {WorkspaceID: healthy.ID, MinIntensity: intensity.Level4},
		},
	}
	notifs := newStubNotifs()
	ch := &selectiveChat{failChannel: "C-broken"}
	h := newHandler(tenants, notifs, ch)

	err := h.HandleQuakeMatched(context.Background(), testRecord())
	require.Error(t, err)
	require.Equal(t, []string{"C100"}, ch.posts)
	require.Len(t, notifs.sent, 1)
	require.Len(t, notifs.failed, 1)
}

type selectiveChat struct {
	failChannel string
	posts       []string
}

func (s *selectiveChat) PostMessage(_ context.Context, _, channelID string, _ notify.MessageBlocks) (string, error) {
	if channelID == s.failChannel {
		return "", errors.New("channel_not_found")
	}
	s.posts = append(s.posts, channelID)
	return "1700000000.000400", nil
}

func (s *selectiveChat) UpdateMessage(context.Context, string, string, string, notify.MessageBlocks) error {
	return nil
}
