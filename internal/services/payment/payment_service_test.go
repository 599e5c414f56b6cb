package payment

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/creative_connect/internal/apperr"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/models"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/services"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/services/wallet"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/testutil"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	args := m.Called(ctx, req)
	if in, ok := args.Get(0).(*Intent); ok {
		return in, args.Error(1)
	}
	return nil, args.Error(1)
}

type fixture struct {
	db       *gorm.DB
	svc      *PaymentService
	client   *models.User
	creative *models.User
	project  *models.Project
}

func setup(t *testing.T, gw Gateway) fixture {
	t.Helper()
	gdb := testutil.NewDB(t)
	client := testutil.CreateUser(t, gdb, models.RoleClient)
	creative := testutil.CreateUser(t, gdb, models.RoleCreative)
	p := testutil.CreateProject(t, gdb, client, models.ProjectStatusActive)
	testutil.Hire(t, gdb, p, creative)

	return fixture{
		db:       gdb,
		svc:      NewPaymentService(gdb, gw, wallet.NewWalletService(gdb), testutil.QuietLogger()),
		client:   client,
		creative: creative,
		project:  p,
	}
}

func actorOf(u *models.User) models.Actor {
	return models.Actor{ID: u.ID, Role: u.Role}
}

func balanceOf(t *testing.T, gdb *gorm.DB, id uuid.UUID) int64 {
	t.Helper()
	var u models.User
	require.NoError(t, gdb.First(&u, "id = ?", id).Error)
	return u.Balance
}

func TestEscrowHappyPath(t *testing.T) {
	ctx := context.Background()
	f := setup(t, StubGateway{})

	res, err := f.svc.CreateIntent(ctx, actorOf(f.client), IntentInput{
		ProjectID: f.project.ID, CreativeID: f.creative.ID, Amount: 500, MilestoneDescription: "logo",
	})
	require.NoError(t, err)
	pay := res.Payment
	assert.Equal(t, models.PaymentStatusPending, pay.Status)
	assert.True(t, strings.HasPrefix(pay.PaymentIntentID, "pi_"))
	assert.True(t, strings.HasPrefix(res.ClientSecret, pay.PaymentIntentID+"_secret_"))
	assert.Nil(t, pay.ReleasedAt)

	_, err = f.svc.Release(ctx, actorOf(f.client), pay.ID)
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err), "release from pending")

	confirmed, err := f.svc.Confirm(ctx, actorOf(f.client), pay.PaymentIntentID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusHeldInEscrow, confirmed.Status)
	assert.Nil(t, confirmed.ReleasedAt)

	_, err = f.svc.Confirm(ctx, actorOf(f.client), pay.PaymentIntentID)
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err), "confirm from escrow")

	released, err := f.svc.Release(ctx, actorOf(f.client), pay.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusReleased, released.Status)
	require.NotNil(t, released.ReleasedAt)
	assert.EqualValues(t, 500, balanceOf(t, f.db, f.creative.ID))

	_, err = f.svc.Release(ctx, actorOf(f.client), pay.ID)
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err), "second release")
	assert.EqualValues(t, 500, balanceOf(t, f.db, f.creative.ID))

	st, err := f.svc.Earnings(ctx, actorOf(f.creative), services.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 500, st.Balance)
	require.Len(t, st.Transactions, 1)
	assert.Equal(t, models.WalletTrxCredit, st.Transactions[0].Type)
	require.NotNil(t, st.Transactions[0].PaymentID)
	assert.Equal(t, pay.ID, *st.Transactions[0].PaymentID)
}

func TestCreateIntentPreconditions(t *testing.T) {
	ctx := context.Background()
	gw := &mockGateway{}
	f := setup(t, gw)
	stranger := testutil.CreateUser(t, f.db, models.RoleClient)
	otherCreative := testutil.CreateUser(t, f.db, models.RoleCreative)
	active := testutil.CreateProject(t, f.db, f.client, models.ProjectStatusActive)

	cases := []struct {
		name  string
		actor models.Actor
		in    IntentInput
		kind  apperr.Kind
	}{
		{"creative caller", actorOf(f.creative), IntentInput{ProjectID: f.project.ID, CreativeID: f.creative.ID, Amount: 10}, apperr.KindForbidden},
		{"zero amount", actorOf(f.client), IntentInput{ProjectID: f.project.ID, CreativeID: f.creative.ID}, apperr.KindValidation},
		{"missing project", actorOf(f.client), IntentInput{ProjectID: uuid.New(), CreativeID: f.creative.ID, Amount: 10}, apperr.KindNotFound},
		{"not the owner", actorOf(stranger), IntentInput{ProjectID: f.project.ID, CreativeID: f.creative.ID, Amount: 10}, apperr.KindForbidden},
		{"nobody hired", actorOf(f.client), IntentInput{ProjectID: active.ID, CreativeID: f.creative.ID, Amount: 10}, apperr.KindInvalidState},
		{"unknown creative", actorOf(f.client), IntentInput{ProjectID: f.project.ID, CreativeID: uuid.New(), Amount: 10}, apperr.KindNotFound},
		{"creative not hired", actorOf(f.client), IntentInput{ProjectID: f.project.ID, CreativeID: otherCreative.ID, Amount: 10}, apperr.KindInvalidState},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateIntent(ctx, tc.actor, tc.in)
			require.Error(t, err)
			assert.Equal(t, tc.kind, apperr.KindOf(err))
		})
	}

	gw.AssertNotCalled(t, "CreateIntent", mock.Anything, mock.Anything)
	var n int64
	require.NoError(t, f.db.Model(&models.Payment{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestCreateIntentUsesGateway(t *testing.T) {
	ctx := context.Background()
	gw := &mockGateway{}
	f := setup(t, gw)

	gw.On("CreateIntent", mock.Anything, mock.MatchedBy(func(r IntentRequest) bool {
		return r.Amount == 750 && r.CustomerEmail == f.client.Email && r.Reference != ""
	})).Return(&Intent{ID: "T0001", ClientSecret: "https://checkout.example/T0001"}, nil).Once()

	res, err := f.svc.CreateIntent(ctx, actorOf(f.client), IntentInput{
		ProjectID: f.project.ID, CreativeID: f.creative.ID, Amount: 750,
	})
	require.NoError(t, err)
	assert.Equal(t, "T0001", res.Payment.PaymentIntentID)
	assert.Equal(t, "https://checkout.example/T0001", res.ClientSecret)
	assert.Equal(t, res.Payment.ID.String(), gw.Calls[0].Arguments.Get(1).(IntentRequest).Reference)
	gw.AssertExpectations(t)

	t.Run("gateway failure writes nothing", func(t *testing.T) {
		gw.On("CreateIntent", mock.Anything, mock.Anything).Return(nil, errors.New("gateway down")).Once()

		_, err := f.svc.CreateIntent(ctx, actorOf(f.client), IntentInput{
			ProjectID: f.project.ID, CreativeID: f.creative.ID, Amount: 100,
		})
		require.Error(t, err)
		assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))

		var n int64
		require.NoError(t, f.db.Model(&models.Payment{}).Count(&n).Error)
		assert.EqualValues(t, 1, n)
	})
}

func TestConfirmByGatewayIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := setup(t, StubGateway{})
	res, err := f.svc.CreateIntent(ctx, actorOf(f.client), IntentInput{
		ProjectID: f.project.ID, CreativeID: f.creative.ID, Amount: 300,
	})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		pay, err := f.svc.ConfirmByGateway(ctx, res.Payment.PaymentIntentID)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusHeldInEscrow, pay.Status)
	}

	_, err = f.svc.ConfirmByGateway(ctx, "pi_missing")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestRefund(t *testing.T) {
	ctx := context.Background()
	f := setup(t, StubGateway{})
	admin := testutil.CreateUser(t, f.db, models.RoleAdmin)
	res, err := f.svc.CreateIntent(ctx, actorOf(f.client), IntentInput{
		ProjectID: f.project.ID, CreativeID: f.creative.ID, Amount: 200,
	})
	require.NoError(t, err)

	_, err = f.svc.Refund(ctx, actorOf(admin), res.Payment.ID)
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err), "refund from pending")

	_, err = f.svc.Confirm(ctx, actorOf(f.client), res.Payment.PaymentIntentID)
	require.NoError(t, err)

	_, err = f.svc.Refund(ctx, actorOf(f.client), res.Payment.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	pay, err := f.svc.Refund(ctx, actorOf(admin), res.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, pay.Status)
	assert.Nil(t, pay.ReleasedAt)
	assert.EqualValues(t, 200, balanceOf(t, f.db, f.client.ID))
	assert.Zero(t, balanceOf(t, f.db, f.creative.ID))

	_, err = f.svc.Release(ctx, actorOf(f.client), res.Payment.ID)
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
}

func TestReleaseRollsBackWhenCreditFails(t *testing.T) {
	ctx := context.Background()
	f := setup(t, StubGateway{})
	res, err := f.svc.CreateIntent(ctx, actorOf(f.client), IntentInput{
		ProjectID: f.project.ID, CreativeID: f.creative.ID, Amount: 400,
	})
	require.NoError(t, err)
	_, err = f.svc.Confirm(ctx, actorOf(f.client), res.Payment.PaymentIntentID)
	require.NoError(t, err)

	// without the ledger table the credit fails after the status update
	require.NoError(t, f.db.Migrator().DropTable(&models.WalletTransaction{}))

	_, err = f.svc.Release(ctx, actorOf(f.client), res.Payment.ID)
	require.Error(t, err)

	var stored models.Payment
	require.NoError(t, f.db.First(&stored, "id = ?", res.Payment.ID).Error)
	assert.Equal(t, models.PaymentStatusHeldInEscrow, stored.Status)
	assert.Nil(t, stored.ReleasedAt)
	assert.Zero(t, balanceOf(t, f.db, f.creative.ID))
}

func TestReadAccess(t *testing.T) {
	ctx := context.Background()
	f := setup(t, StubGateway{})
	res, err := f.svc.CreateIntent(ctx, actorOf(f.client), IntentInput{
		ProjectID: f.project.ID, CreativeID: f.creative.ID, Amount: 100,
	})
	require.NoError(t, err)
	id := res.Payment.ID
	stranger := testutil.CreateUser(t, f.db, models.RoleCreative)

	_, err = f.svc.Get(ctx, actorOf(f.client), id)
	require.NoError(t, err)
	_, err = f.svc.Get(ctx, actorOf(f.creative), id)
	require.NoError(t, err)
	_, err = f.svc.Get(ctx, actorOf(stranger), id)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	_, err = f.svc.Get(ctx, actorOf(f.client), uuid.New())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	sent, meta, err := f.svc.ListMine(ctx, actorOf(f.client), nil, services.Page{})
	require.NoError(t, err)
	assert.Len(t, sent, 1)
	assert.EqualValues(t, 1, meta.TotalItems)

	received, _, err := f.svc.ListMine(ctx, actorOf(f.creative), nil, services.Page{})
	require.NoError(t, err)
	assert.Len(t, received, 1)

	escrowed := models.PaymentStatusHeldInEscrow
	none, _, err := f.svc.ListMine(ctx, actorOf(f.creative), &escrowed, services.Page{})
	require.NoError(t, err)
	assert.Empty(t, none)

	byProject, _, err := f.svc.ListForProject(ctx, actorOf(f.creative), f.project.ID, services.Page{})
	require.NoError(t, err)
	assert.Len(t, byProject, 1)
	_, _, err = f.svc.ListForProject(ctx, actorOf(stranger), f.project.ID, services.Page{})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}
