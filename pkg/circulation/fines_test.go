package circulation

import (
	"context"
	"testing"

	"libraryms/pkg/models"
	"libraryms/pkg/notify"
	"libraryms/pkg/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) scan(t *testing.T) FineReport {
	t.Helper()
	report, err := f.svc.GenerateOrUpdateFines(context.Background())
	require.NoError(t, err)
	return report
}

func (f *fixture) fines(t *testing.T, sess Session) []models.Fine {
	t.Helper()
	fines, err := f.svc.UserFines(context.Background(), sess)
	require.NoError(t, err)
	return fines
}

func TestFineNotChargedBeforeFullPeriod(t *testing.T) {
	f := newFixture(t)
	book := f.addBook(t, "Dune", 1)
	f.checkout(t, f.alice, book.ID)

	f.clock.Advance(13 * day)
	assert.Equal(t, FineReport{}, f.scan(t))

	f.clock.Advance((1 + 29) * day)
	assert.Equal(t, FineReport{Scanned: 1, Skipped: 1}, f.scan(t))
	assert.Empty(t, f.fines(t, f.alice))
}

func TestFineGrowsPerPeriodAndScanIsIdempotent(t *testing.T) {
	f := newFixture(t)
	book := f.addBook(t, "Dune", 1)
	f.checkout(t, f.alice, book.ID)

	f.clock.Advance((14 + 30) * day)
	assert.Equal(t, FineReport{Scanned: 1, Created: 1}, f.scan(t))
	assert.Equal(t, FineReport{Scanned: 1, Updated: 1}, f.scan(t))

	fines := f.fines(t, f.alice)
	require.Len(t, fines, 1)
	assert.True(t, decimal.NewFromInt(1).Equal(fines[0].Amount))
	assert.Equal(t, models.FineUnpaid, fines[0].Status)

	f.clock.Advance(31 * day)
	f.scan(t)
	fines = f.fines(t, f.alice)
	require.Len(t, fines, 1)
	assert.True(t, decimal.NewFromInt(2).Equal(fines[0].Amount), "got %s", fines[0].Amount)
	assert.Equal(t, f.clock.Now(), fines[0].DateIssued.UTC())

	assessed := 0
	for _, e := range f.events.Events() {
		if e.Type == notify.FineAssessed {
			assessed++
		}
	}
	assert.Equal(t, 2, assessed)
}

func TestFineUsesPolicyRate(t *testing.T) {
	f := newFixture(t)
	f.svc.policy = Policy{LoanPeriodDays: 7, FinePeriodDays: 10, FineRate: decimal.RequireFromString("0.50")}
	book := f.addBook(t, "Dune", 1)
	f.checkout(t, f.alice, book.ID)

	f.clock.Advance((7 + 35) * day)
	f.scan(t)

	fines := f.fines(t, f.alice)
	require.Len(t, fines, 1)
	assert.True(t, decimal.RequireFromString("1.5").Equal(fines[0].Amount), "got %s", fines[0].Amount)
}

func overdueFine(t *testing.T, f *fixture) (*models.Loan, models.Fine) {
	t.Helper()
	book := f.addBook(t, "Dune", 1)
	loan := f.checkout(t, f.alice, book.ID).Loan
	f.clock.Advance((14 + 30) * day)
	f.scan(t)
	fines := f.fines(t, f.alice)
	require.Len(t, fines, 1)
	return loan, fines[0]
}

func TestApprovePaymentBlockedWhileLoanIsActive(t *testing.T) {
	f := newFixture(t)
	loan, fine := overdueFine(t, f)

	request, err := f.svc.RequestFinePayment(context.Background(), f.alice, fine.ID)
	require.NoError(t, err)

	_, err = f.svc.ApproveFinePayment(context.Background(), f.admin, request.ID)
	assert.ErrorIs(t, err, ErrActiveLoan)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, models.FinePending, f.fines(t, f.alice)[0].Status)

	_, err = f.svc.ReturnLoan(context.Background(), f.alice, loan.ID)
	require.NoError(t, err)
	paid, err := f.svc.ApproveFinePayment(context.Background(), f.admin, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FinePaid, paid.Status)
	require.NotNil(t, paid.DatePaid)

	_, err = store.New(f.db).FinePayRequests.GetByID(request.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRejectPaymentReopensFine(t *testing.T) {
	f := newFixture(t)
	_, fine := overdueFine(t, f)
	request, err := f.svc.RequestFinePayment(context.Background(), f.alice, fine.ID)
	require.NoError(t, err)

	_, err = f.svc.RejectFinePayment(context.Background(), f.alice, request.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	rejected, err := f.svc.RejectFinePayment(context.Background(), f.admin, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FineUnpaid, rejected.Status)

	_, err = f.svc.RequestFinePayment(context.Background(), f.alice, fine.ID)
	assert.NoError(t, err)
}

func TestRequestPaymentRules(t *testing.T) {
	f := newFixture(t)
	_, fine := overdueFine(t, f)

	_, err := f.svc.RequestFinePayment(context.Background(), f.bob, fine.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.RequestFinePayment(context.Background(), f.alice, fine.ID)
	require.NoError(t, err)
	_, err = f.svc.RequestFinePayment(context.Background(), f.alice, fine.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = f.svc.RequestFinePayment(context.Background(), f.alice, 9999)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = f.svc.PendingPayRequests(context.Background(), f.alice)
	assert.ErrorIs(t, err, ErrForbidden)
	pending, err := f.svc.PendingPayRequests(context.Background(), f.admin)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestPaidFineDoesNotBlockNewFine(t *testing.T) {
	f := newFixture(t)
	loan, fine := overdueFine(t, f)
	_, err := f.svc.ReturnLoan(context.Background(), f.alice, loan.ID)
	require.NoError(t, err)
	request, err := f.svc.RequestFinePayment(context.Background(), f.alice, fine.ID)
	require.NoError(t, err)
	_, err = f.svc.ApproveFinePayment(context.Background(), f.admin, request.ID)
	require.NoError(t, err)

	f.checkout(t, f.alice, loan.ItemID)
	f.clock.Advance((14 + 30) * day)
	assert.Equal(t, FineReport{Scanned: 1, Created: 1}, f.scan(t))
	assert.Len(t, f.fines(t, f.alice), 2)
}

func TestUnpaidFineCarriesOverToNextLoan(t *testing.T) {
	f := newFixture(t)
	book := f.addBook(t, "Dune", 1)
	first := f.checkout(t, f.alice, book.ID).Loan

	f.clock.Advance((14 + 95) * day)
	assert.Equal(t, FineReport{Scanned: 1, Created: 1}, f.scan(t))
	fines := f.fines(t, f.alice)
	require.Len(t, fines, 1)
	require.True(t, decimal.NewFromInt(3).Equal(fines[0].Amount), "got %s", fines[0].Amount)

	_, err := f.svc.ReturnLoan(context.Background(), f.alice, first.ID)
	require.NoError(t, err)
	second := f.checkout(t, f.alice, book.ID).Loan

	f.clock.Advance((14 + 31) * day)
	assert.Equal(t, FineReport{Scanned: 1, Updated: 1}, f.scan(t))
	fines = f.fines(t, f.alice)
	require.Len(t, fines, 1)
	assert.True(t, decimal.NewFromInt(4).Equal(fines[0].Amount), "got %s", fines[0].Amount)
	assert.Equal(t, second.ID, fines[0].LoanID)

	f.scan(t)
	fines = f.fines(t, f.alice)
	require.Len(t, fines, 1)
	assert.True(t, decimal.NewFromInt(4).Equal(fines[0].Amount), "rescan must not charge again, got %s", fines[0].Amount)

	f.clock.Advance(30 * day)
	f.scan(t)
	assert.True(t, decimal.NewFromInt(5).Equal(f.fines(t, f.alice)[0].Amount))
}
