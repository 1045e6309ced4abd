package userbase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-userbase"
)

type MockInvitationStore struct {
	mock.Mock
}

func (m *MockInvitationStore) InsertInvitation(ctx context.Context, inv userbase.Invitation) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

func (m *MockInvitationStore) GetInvitation(ctx context.Context, code string) (*userbase.Invitation, error) {
	args := m.Called(ctx, code)
	if inv := args.Get(0); inv != nil {
		return inv.(*userbase.Invitation), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockInvitationStore) ListUnsentInvitations(ctx context.Context) ([]userbase.Invitation, error) {
	args := m.Called(ctx)
	return args.Get(0).([]userbase.Invitation), args.Error(1)
}

func (m *MockInvitationStore) ListSentInvitations(ctx context.Context, filter userbase.AdminFilter) ([]userbase.Invitation, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]userbase.Invitation), args.Error(1)
}

func (m *MockInvitationStore) ListAcceptedInvitations(ctx context.Context, filter userbase.AdminFilter) ([]userbase.Invitation, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]userbase.Invitation), args.Error(1)
}

func (m *MockInvitationStore) UpdatePendingInvitation(ctx context.Context, inv userbase.Invitation) (bool, error) {
	args := m.Called(ctx, inv)
	return args.Bool(0), args.Error(1)
}

func (m *MockInvitationStore) DeletePendingInvitation(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockInvitationStore) AcceptInvitation(ctx context.Context, code, identityID string) (bool, error) {
	args := m.Called(ctx, code, identityID)
	return args.Bool(0), args.Error(1)
}

var ledgerNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestLedger(store userbase.InvitationStore, opts ...userbase.LedgerOption) *userbase.InvitationLedger {
	opts = append([]userbase.LedgerOption{
		userbase.WithLedgerClock(func() time.Time { return ledgerNow }),
	}, opts...)
	return userbase.NewInvitationLedger(store, opts...)
}

func TestLedgerGenerate(t *testing.T) {
	store := &MockInvitationStore{}
	store.On("InsertInvitation", mock.Anything, mock.MatchedBy(func(inv userbase.Invitation) bool {
		return userbase.IsWellFormedCode(inv.Code) && inv.IsAdminInvite && inv.CreatedAt.Equal(ledgerNow)
	})).Return(nil).Times(3)

	ledger := newTestLedger(store)
	generated, err := ledger.Generate(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, generated, 3)
	store.AssertExpectations(t)
}

func TestLedgerGenerateZeroAndNegative(t *testing.T) {
	store := &MockInvitationStore{}
	ledger := newTestLedger(store)

	generated, err := ledger.Generate(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, generated)

	_, err = ledger.Generate(context.Background(), -1)
	assert.ErrorIs(t, err, userbase.ErrInvalidGenerateAmount)
	store.AssertNotCalled(t, "InsertInvitation", mock.Anything, mock.Anything)
}

func TestLedgerGenerateRetriesDuplicates(t *testing.T) {
	store := &MockInvitationStore{}
	dup := userbase.NewDuplicateError(userbase.DuplicateFieldCode, errors.New("UNIQUE constraint failed: invitations.code"))
	store.On("InsertInvitation", mock.Anything, mock.Anything).Return(dup).Twice()
	store.On("InsertInvitation", mock.Anything, mock.Anything).Return(nil).Once()

	ledger := newTestLedger(store)
	generated, err := ledger.Generate(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, generated, 1)
	store.AssertNumberOfCalls(t, "InsertInvitation", 3)
}

func TestLedgerGenerateStopsOnStoreError(t *testing.T) {
	store := &MockInvitationStore{}
	boom := errors.New("disk full")
	store.On("InsertInvitation", mock.Anything, mock.Anything).Return(nil).Once()
	store.On("InsertInvitation", mock.Anything, mock.Anything).Return(boom).Once()

	ledger := newTestLedger(store)
	generated, err := ledger.Generate(context.Background(), 3)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, generated, 1)
}

func TestLedgerAcceptClassifiesLostRace(t *testing.T) {
	store := &MockInvitationStore{}
	winner := "id-1"
	note := "for Ada"
	store.On("AcceptInvitation", mock.Anything, "abcdefghij", "id-2").Return(false, nil)
	store.On("GetInvitation", mock.Anything, "abcdefghij").Return(&userbase.Invitation{
		Code:       "abcdefghij",
		Note:       &note,
		AcceptedBy: &winner,
	}, nil)

	ledger := newTestLedger(store)
	err := ledger.Accept(context.Background(), " ABCDEFGHIJ ", "id-2")
	assert.ErrorIs(t, err, userbase.ErrInvitationAccepted)
}

func TestLedgerAcceptUnknownCode(t *testing.T) {
	store := &MockInvitationStore{}
	store.On("AcceptInvitation", mock.Anything, "zzzzzzzzzz", "id-1").Return(false, nil)
	store.On("GetInvitation", mock.Anything, "zzzzzzzzzz").Return(nil, nil)

	ledger := newTestLedger(store)
	err := ledger.Accept(context.Background(), "zzzzzzzzzz", "id-1")
	assert.ErrorIs(t, err, userbase.ErrInvitationNotFound)

	err = ledger.Accept(context.Background(), "zzzzzzzzzz", " ")
	assert.ErrorIs(t, err, userbase.ErrInvalidInvitationEvent)
}

func TestLedgerAcceptRecordsActivity(t *testing.T) {
	store := &MockInvitationStore{}
	store.On("AcceptInvitation", mock.Anything, "abcdefghij", "id-1").Return(true, nil)

	var events []userbase.ActivityEvent
	sink := userbase.ActivitySinkFunc(func(_ context.Context, event userbase.ActivityEvent) error {
		events = append(events, event)
		return errors.New("sink down")
	})

	ledger := newTestLedger(store, userbase.WithLedgerActivitySink(sink))
	require.NoError(t, ledger.Accept(context.Background(), "abcdefghij", "id-1"))

	require.Len(t, events, 1)
	assert.Equal(t, userbase.ActivityInvitationAccepted, events[0].Kind)
	assert.Equal(t, "id-1", events[0].IdentityID)
	assert.Equal(t, "abcdefghij", events[0].Metadata["code"])
	assert.Equal(t, ledgerNow, events[0].OccurredAt)
}

func TestLedgerSendValidatesNote(t *testing.T) {
	store := &MockInvitationStore{}
	store.On("GetInvitation", mock.Anything, "abcdefghij").Return(&userbase.Invitation{Code: "abcdefghij"}, nil)

	ledger := newTestLedger(store)
	_, err := ledger.Send(context.Background(), "abcdefghij", "admin", "  ")
	assert.ErrorIs(t, err, userbase.ErrInvitationNoteRequired)
	store.AssertNotCalled(t, "UpdatePendingInvitation", mock.Anything, mock.Anything)

	store = &MockInvitationStore{}
	store.On("GetInvitation", mock.Anything, "missingcod").Return(nil, nil)
	ledger = newTestLedger(store)
	_, err = ledger.Send(context.Background(), "missingcod", "admin", "note")
	assert.ErrorIs(t, err, userbase.ErrInvitationNotFound)
}

func TestLedgerValidate(t *testing.T) {
	note := "note"
	store := &MockInvitationStore{}
	store.On("GetInvitation", mock.Anything, "unsentcode").Return(&userbase.Invitation{Code: "unsentcode"}, nil)
	store.On("GetInvitation", mock.Anything, "sentcode01").Return(&userbase.Invitation{Code: "sentcode01", Note: &note}, nil)

	ledger := newTestLedger(store)

	_, err := ledger.Validate(context.Background(), "")
	assert.ErrorIs(t, err, userbase.ErrInvitationNotFound)

	_, err = ledger.Validate(context.Background(), "unsentcode")
	assert.ErrorIs(t, err, userbase.ErrInvitationNotSent)

	inv, err := ledger.Validate(context.Background(), "SENTCODE01")
	require.NoError(t, err)
	assert.Equal(t, "sentcode01", inv.Code)
}
