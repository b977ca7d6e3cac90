package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgst/sgst-api/internal/model"
	"github.com/sgst/sgst-api/internal/queue"
)

const (
	licenseBasic      = 1
	licensePro        = 2
	licenseEnterprise = 3
)

func addLicenses(f *fixture) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	f.store.licenses[licenseBasic] = model.License{ID: licenseBasic, Name: "Basic", MonthlyPrice: decimal.NewFromInt(299), MaxWorkshops: 1}
	f.store.licenses[licensePro] = model.License{ID: licensePro, Name: "Professional", MonthlyPrice: decimal.NewFromInt(699), MaxWorkshops: 3}
	f.store.licenses[licenseEnterprise] = model.License{ID: licenseEnterprise, Name: "Enterprise", MonthlyPrice: decimal.NewFromInt(1499)}
}

// seedAdmin registers a user, creates its company and returns the
// administrator principal decoded from the reissued access token.
func seedAdmin(t *testing.T, f *fixture, email string) model.Principal {
	t.Helper()
	u := seedUser(t, f, email)
	_, pair, err := f.tenant.CreateCompany(context.Background(), model.NewPrincipal(u.ID, nil), CompanyInput{Name: "Talleres " + email})
	require.NoError(t, err)
	p, err := f.tokens.Verify(pair.AccessToken)
	require.NoError(t, err)
	return p
}

func subscribe(t *testing.T, f *fixture, p model.Principal, licenseID uint64) {
	t.Helper()
	companyID, ok := p.Administrator()
	require.True(t, ok)
	_, err := f.tenant.CreateSubscription(context.Background(), companyID, licenseID)
	require.NoError(t, err)
}

func TestTenantService_CreateCompany(t *testing.T) {
	f := newFixture()
	u := seedUser(t, f, "ana@example.com")
	employee := model.NewPrincipal(u.ID, nil)

	c, pair, err := f.tenant.CreateCompany(context.Background(), employee, CompanyInput{Name: "  Talleres Lopez "})
	require.NoError(t, err)
	assert.Equal(t, "Talleres Lopez", c.Name)
	assert.Equal(t, u.ID, c.CreatorUserID)

	p, err := f.tokens.Verify(pair.AccessToken)
	require.NoError(t, err)
	companyID, ok := p.Administrator()
	require.True(t, ok, "reissued token carries the company")
	assert.Equal(t, c.ID, companyID)

	// A stale employee token still cannot create a second company.
	_, _, err = f.tenant.CreateCompany(context.Background(), employee, CompanyInput{Name: "Otra"})
	assert.ErrorIs(t, err, ErrUserAlreadyHasCompany)
	_, _, err = f.tenant.CreateCompany(context.Background(), p, CompanyInput{Name: "Otra"})
	assert.ErrorIs(t, err, ErrUserAlreadyHasCompany)

	assert.Contains(t, f.events.types(), queue.CompanyCreated)
}

func TestTenantService_CreateWorkshop(t *testing.T) {
	t.Run("employee is not an administrator", func(t *testing.T) {
		f := newFixture()
		u := seedUser(t, f, "emp@example.com")
		_, err := f.tenant.CreateWorkshop(context.Background(), model.NewPrincipal(u.ID, nil), WorkshopInput{Name: "Centro"})
		assert.ErrorIs(t, err, ErrNotAdministrator)
	})

	t.Run("requires an active subscription", func(t *testing.T) {
		f := newFixture()
		addLicenses(f)
		admin := seedAdmin(t, f, "ana@example.com")
		_, err := f.tenant.CreateWorkshop(context.Background(), admin, WorkshopInput{Name: "Centro"})
		assert.ErrorIs(t, err, ErrNoActiveSubscription)
	})

	t.Run("creates workshop with admin membership", func(t *testing.T) {
		f := newFixture()
		addLicenses(f)
		admin := seedAdmin(t, f, "ana@example.com")
		subscribe(t, f, admin, licenseBasic)

		w, err := f.tenant.CreateWorkshop(context.Background(), admin, WorkshopInput{Name: " Centro "})
		require.NoError(t, err)
		assert.Equal(t, "Centro", w.Name)
		assert.Equal(t, admin.CompanyID, w.CompanyID)

		mc, err := f.store.MembershipIn(context.Background(), admin.UserID, w.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RoleAdmin, mc.Role)
		assert.Contains(t, f.events.types(), queue.WorkshopCreated)
	})

	t.Run("duplicate trimmed name is rejected, case matters", func(t *testing.T) {
		f := newFixture()
		addLicenses(f)
		admin := seedAdmin(t, f, "ana@example.com")
		subscribe(t, f, admin, licenseEnterprise)

		_, err := f.tenant.CreateWorkshop(context.Background(), admin, WorkshopInput{Name: "Centro"})
		require.NoError(t, err)
		_, err = f.tenant.CreateWorkshop(context.Background(), admin, WorkshopInput{Name: "  Centro"})
		assert.ErrorIs(t, err, ErrDuplicateWorkshopName)
		_, err = f.tenant.CreateWorkshop(context.Background(), admin, WorkshopInput{Name: "centro"})
		assert.NoError(t, err)
	})

	t.Run("quota N succeeds and N+1 fails", func(t *testing.T) {
		f := newFixture()
		addLicenses(f)
		admin := seedAdmin(t, f, "ana@example.com")
		subscribe(t, f, admin, licensePro)

		for i := 1; i <= 3; i++ {
			_, err := f.tenant.CreateWorkshop(context.Background(), admin, WorkshopInput{Name: fmt.Sprintf("Taller %d", i)})
			require.NoError(t, err)
		}
		_, err := f.tenant.CreateWorkshop(context.Background(), admin, WorkshopInput{Name: "Taller 4"})
		assert.ErrorIs(t, err, ErrWorkshopQuotaExceeded)
	})

	t.Run("unlimited license", func(t *testing.T) {
		f := newFixture()
		addLicenses(f)
		admin := seedAdmin(t, f, "ana@example.com")
		subscribe(t, f, admin, licenseEnterprise)

		for i := 0; i < 10; i++ {
			_, err := f.tenant.CreateWorkshop(context.Background(), admin, WorkshopInput{Name: fmt.Sprintf("Taller %d", i)})
			require.NoError(t, err)
		}
	})

	t.Run("membership failure leaves no workshop", func(t *testing.T) {
		f := newFixture()
		addLicenses(f)
		admin := seedAdmin(t, f, "ana@example.com")
		subscribe(t, f, admin, licensePro)
		f.store.failMembership = true

		_, err := f.tenant.CreateWorkshop(context.Background(), admin, WorkshopInput{Name: "Centro"})
		require.Error(t, err)
		list, err := f.tenant.ListWorkshops(context.Background(), admin)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("unique index conflict is a duplicate name", func(t *testing.T) {
		f := newFixture()
		addLicenses(f)
		admin := seedAdmin(t, f, "ana@example.com")
		subscribe(t, f, admin, licensePro)
		f.store.conflictOnInsert = true

		_, err := f.tenant.CreateWorkshop(context.Background(), admin, WorkshopInput{Name: "Centro"})
		assert.ErrorIs(t, err, ErrDuplicateWorkshopName)
	})

	t.Run("invalid phone", func(t *testing.T) {
		f := newFixture()
		admin := seedAdmin(t, f, "ana@example.com")
		phone := "call me"
		_, err := f.tenant.CreateWorkshop(context.Background(), admin, WorkshopInput{Name: "Centro", Phone: &phone})
		assert.ErrorIs(t, err, ErrInvalidPhoneFormat)
	})
}

func TestTenantService_CreateWorkshopConcurrentQuota(t *testing.T) {
	f := newFixture()
	addLicenses(f)
	admin := seedAdmin(t, f, "ana@example.com")
	subscribe(t, f, admin, licensePro)

	const callers = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		exceeded int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.tenant.CreateWorkshop(context.Background(), admin, WorkshopInput{Name: fmt.Sprintf("Taller %d", i)})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case assert.ErrorIs(t, err, ErrWorkshopQuotaExceeded):
				exceeded++
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 3, ok)
	assert.Equal(t, callers-3, exceeded)
}

func TestTenantService_CreateWorkshopConcurrentSameName(t *testing.T) {
	f := newFixture()
	addLicenses(f)
	admin := seedAdmin(t, f, "ana@example.com")
	subscribe(t, f, admin, licenseEnterprise)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.tenant.CreateWorkshop(context.Background(), admin, WorkshopInput{Name: "Centro"})
		}(i)
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrDuplicateWorkshopName)
	}
	assert.Equal(t, 1, succeeded)
}

func TestTenantService_CreateSubscription(t *testing.T) {
	f := newFixture()
	addLicenses(f)
	admin := seedAdmin(t, f, "ana@example.com")
	f.tenant.now = func() time.Time { return time.Date(2026, 3, 10, 15, 4, 5, 0, time.UTC) }

	_, err := f.tenant.CreateSubscription(context.Background(), admin.CompanyID, 99)
	assert.ErrorIs(t, err, ErrLicenseNotFound)

	sub, err := f.tenant.CreateSubscription(context.Background(), admin.CompanyID, licensePro)
	require.NoError(t, err)
	assert.True(t, sub.IsActive)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), sub.StartDate)
	require.NotNil(t, sub.EndDate)
	assert.Equal(t, sub.StartDate.AddDate(0, 0, 365), *sub.EndDate)

	_, err = f.tenant.CreateSubscription(context.Background(), admin.CompanyID, licenseBasic)
	assert.ErrorIs(t, err, ErrCompanyAlreadySubscribed)
}

func TestTenantService_SelectWorkshop(t *testing.T) {
	f := newFixture()
	addLicenses(f)
	admin := seedAdmin(t, f, "ana@example.com")
	other := seedAdmin(t, f, "luis@example.com")
	subscribe(t, f, admin, licensePro)
	subscribe(t, f, other, licensePro)

	mine, err := f.tenant.CreateWorkshop(context.Background(), admin, WorkshopInput{Name: "Centro"})
	require.NoError(t, err)
	theirs, err := f.tenant.CreateWorkshop(context.Background(), other, WorkshopInput{Name: "Norte"})
	require.NoError(t, err)

	mc, err := f.tenant.SelectWorkshop(context.Background(), admin, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MembershipContext{WorkshopID: mine.ID, Role: model.RoleAdmin}, mc)

	_, err = f.tenant.SelectWorkshop(context.Background(), admin, theirs.ID)
	assert.ErrorIs(t, err, ErrWorkshopNotOwned)

	_, err = f.tenant.SelectWorkshop(context.Background(), admin, 12345)
	assert.ErrorIs(t, err, ErrWorkshopNotFound)

	_, err = f.tenant.SelectWorkshop(context.Background(), model.NewPrincipal(admin.UserID+100, nil), mine.ID)
	assert.ErrorIs(t, err, ErrNotAdministrator)

	owner, err := f.tenant.ResolveCompanyForWorkshop(context.Background(), 12345)
	require.NoError(t, err)
	assert.Nil(t, owner)
}

func TestTenantService_CurrentWorkshopAndVerify(t *testing.T) {
	f := newFixture()
	addLicenses(f)
	admin := seedAdmin(t, f, "ana@example.com")
	subscribe(t, f, admin, licensePro)
	w, err := f.tenant.CreateWorkshop(context.Background(), admin, WorkshopInput{Name: "Centro"})
	require.NoError(t, err)

	emp := seedUser(t, f, "emp@example.com")
	f.store.mu.Lock()
	f.store.members = append(f.store.members, model.Membership{UserID: emp.ID, WorkshopID: w.ID, Role: model.RoleEmployee, IsActive: true})
	f.store.mu.Unlock()
	employee := model.NewPrincipal(emp.ID, nil)

	mc, err := f.tenant.CurrentWorkshop(context.Background(), employee, &w.ID)
	require.NoError(t, err)
	require.NotNil(t, mc)
	assert.Equal(t, model.RoleEmployee, mc.Role)

	mc, err = f.tenant.CurrentWorkshop(context.Background(), admin, &w.ID)
	require.NoError(t, err)
	require.NotNil(t, mc)
	assert.Equal(t, model.RoleAdmin, mc.Role)

	mc, err = f.tenant.CurrentWorkshop(context.Background(), admin, nil)
	require.NoError(t, err)
	assert.Nil(t, mc)

	st, err := f.tenant.VerifySubscription(context.Background(), admin, nil)
	require.NoError(t, err)
	assert.True(t, st.HasSubscription)
	require.NotNil(t, st.LicenseID)
	assert.Equal(t, uint64(licensePro), *st.LicenseID)

	st, err = f.tenant.VerifySubscription(context.Background(), employee, nil)
	require.NoError(t, err)
	assert.True(t, st.HasSubscription, "employee resolves through its membership")

	stranger := model.NewPrincipal(seedUser(t, f, "x@example.com").ID, nil)
	st, err = f.tenant.VerifySubscription(context.Background(), stranger, &w.ID)
	require.NoError(t, err)
	assert.False(t, st.HasSubscription)
}

func TestTenantService_ListWorkshopsAndLicenses(t *testing.T) {
	f := newFixture()
	addLicenses(f)
	admin := seedAdmin(t, f, "ana@example.com")
	subscribe(t, f, admin, licensePro)
	for _, name := range []string{"Norte", "Centro"} {
		_, err := f.tenant.CreateWorkshop(context.Background(), admin, WorkshopInput{Name: name})
		require.NoError(t, err)
	}

	list, err := f.tenant.ListWorkshops(context.Background(), admin)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Centro", list[0].Name)

	_, err = f.tenant.ListWorkshops(context.Background(), model.NewPrincipal(1, nil))
	assert.ErrorIs(t, err, ErrNotAdministrator)

	licenses, err := f.tenant.ListLicenses(context.Background())
	require.NoError(t, err)
	assert.Len(t, licenses, 3)
}
