package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sgst/sgst-api/internal/model"
)

// TenantRepo is the tenant directory: companies, workshops, memberships,
// subscriptions and the license catalog.
type TenantRepo struct{ DB *sql.DB }

func NewTenantRepo(db *sql.DB) *TenantRepo { return &TenantRepo{DB: db} }

// CompanyUnit is the set of reads and writes that must run while a
// company's row is locked.  Checks performed through it observe the
// state committed by every earlier writer for the same company.
type CompanyUnit interface {
	WorkshopNameTaken(ctx context.Context, name string) (bool, error)
	ActiveSubscription(ctx context.Context) (model.Subscription, error)
	MaxWorkshops(ctx context.Context, licenseID uint64) (int, error)
	CountActiveWorkshops(ctx context.Context) (int, error)
	InsertWorkshop(ctx context.Context, w *model.Workshop) error
	InsertMembership(ctx context.Context, m model.Membership) error
	InsertSubscription(ctx context.Context, s *model.Subscription) error
}

// CompanyIDForWorkshop returns the company owning an active workshop.
func (r *TenantRepo) CompanyIDForWorkshop(ctx context.Context, workshopID uint64) (uint64, error) {
	var companyID uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT company_id FROM workshops WHERE id=? AND is_active=1",
		workshopID).Scan(&companyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("select workshop company: %w", err)
	}
	return companyID, nil
}

// ActiveMembership returns the single active membership of an employee.
func (r *TenantRepo) ActiveMembership(ctx context.Context, userID uint64) (model.MembershipContext, error) {
	return r.membership(ctx,
		"SELECT workshop_id, role FROM user_workshops WHERE user_id=? AND is_active=1 ORDER BY created_at LIMIT 1",
		userID)
}

// MembershipIn returns the user's active role in a specific workshop.
func (r *TenantRepo) MembershipIn(ctx context.Context, userID, workshopID uint64) (model.MembershipContext, error) {
	return r.membership(ctx,
		"SELECT workshop_id, role FROM user_workshops WHERE user_id=? AND workshop_id=? AND is_active=1",
		userID, workshopID)
}

func (r *TenantRepo) membership(ctx context.Context, q string, args ...any) (model.MembershipContext, error) {
	var (
		mc   model.MembershipContext
		role string
	)
	if err := r.DB.QueryRowContext(ctx, q, args...).Scan(&mc.WorkshopID, &role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.MembershipContext{}, ErrNotFound
		}
		return model.MembershipContext{}, fmt.Errorf("select membership: %w", err)
	}
	mc.Role = model.Role(role)
	return mc, nil
}

// ListWorkshops returns a company's active workshops ordered by name.
func (r *TenantRepo) ListWorkshops(ctx context.Context, companyID uint64) ([]model.Workshop, error) {
	const q = `SELECT id, company_id, name, phone, email, address, tax_id, logo_path, is_active, created_at
	           FROM workshops WHERE company_id = ? AND is_active = 1 ORDER BY name`
	rows, err := r.DB.QueryContext(ctx, q, companyID)
	if err != nil {
		return nil, fmt.Errorf("list workshops: %w", err)
	}
	defer rows.Close()

	out := []model.Workshop{}
	for rows.Next() {
		var w model.Workshop
		if err := rows.Scan(&w.ID, &w.CompanyID, &w.Name, &w.Phone, &w.Email, &w.Address,
			&w.TaxID, &w.LogoPath, &w.IsActive, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan workshop: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ActiveSubscription returns the company's active subscription, if any.
func (r *TenantRepo) ActiveSubscription(ctx context.Context, companyID uint64) (model.Subscription, error) {
	return activeSubscription(ctx, r.DB, companyID)
}

// GetLicense returns an active license by id.
func (r *TenantRepo) GetLicense(ctx context.Context, id uint64) (model.License, error) {
	const q = `SELECT id, name, description, monthly_price, annual_price, max_workshops, max_users
	           FROM licenses WHERE id = ? AND is_active = 1`
	l, err := scanLicense(r.DB.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.License{}, ErrNotFound
		}
		return model.License{}, fmt.Errorf("select license: %w", err)
	}
	return l, nil
}

// ListLicenses returns the active license catalog ordered by monthly price.
func (r *TenantRepo) ListLicenses(ctx context.Context) ([]model.License, error) {
	const q = `SELECT id, name, description, monthly_price, annual_price, max_workshops, max_users
	           FROM licenses WHERE is_active = 1 ORDER BY monthly_price`
	rows, err := r.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list licenses: %w", err)
	}
	defer rows.Close()

	out := []model.License{}
	for rows.Next() {
		l, err := scanLicense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan license: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLicense(row rowScanner) (model.License, error) {
	var (
		l                     model.License
		monthly, annual       string
		maxWorkshops, maxUser sql.NullInt64
	)
	if err := row.Scan(&l.ID, &l.Name, &l.Description, &monthly, &annual, &maxWorkshops, &maxUser); err != nil {
		return model.License{}, err
	}
	var err error
	if l.MonthlyPrice, err = decimal.NewFromString(monthly); err != nil {
		return model.License{}, fmt.Errorf("monthly price: %w", err)
	}
	if l.AnnualPrice, err = decimal.NewFromString(annual); err != nil {
		return model.License{}, fmt.Errorf("annual price: %w", err)
	}
	l.MaxWorkshops = int(maxWorkshops.Int64)
	l.MaxUsers = int(maxUser.Int64)
	return l, nil
}

// CreateCompany inserts a company for userID and links the user to it in a
// single transaction.  The user row is locked first so a user can never end
// up owning two companies.
func (r *TenantRepo) CreateCompany(ctx context.Context, userID uint64, c *model.Company) (err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create company: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("commit create company: %w", cerr)
		}
	}()

	var current sql.NullInt64
	if err = tx.QueryRowContext(ctx, "SELECT company_id FROM users WHERE id=? FOR UPDATE", userID).Scan(&current); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lock user: %w", err)
	}
	if current.Valid {
		return ErrUserHasCompany
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO companies (creator_user_id, name, tax_id, phone, email, address, is_active) VALUES (?,?,?,?,?,?,1)",
		userID, c.Name, c.TaxID, c.Phone, c.Email, c.Address)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrUserHasCompany
		}
		return fmt.Errorf("insert company: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert company id: %w", err)
	}
	if _, err = tx.ExecContext(ctx, "UPDATE users SET company_id=? WHERE id=?", id, userID); err != nil {
		return fmt.Errorf("link user to company: %w", err)
	}
	c.ID = uint64(id)
	c.CreatorUserID = userID
	c.IsActive = true
	c.CreatedAt = time.Now().UTC()
	return nil
}

// WithCompanyLock runs fn inside a transaction holding the company row lock.
// fn's error rolls the transaction back and is returned unchanged.
func (r *TenantRepo) WithCompanyLock(ctx context.Context, companyID uint64, fn func(CompanyUnit) error) (err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin company tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("commit company tx: %w", cerr)
		}
	}()

	var locked uint64
	if err = tx.QueryRowContext(ctx,
		"SELECT id FROM companies WHERE id=? AND is_active=1 FOR UPDATE", companyID).Scan(&locked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lock company: %w", err)
	}
	return fn(&companyTx{tx: tx, companyID: companyID})
}

// companyTx implements CompanyUnit on top of a locked transaction.
type companyTx struct {
	tx        *sql.Tx
	companyID uint64
}

func (c *companyTx) WorkshopNameTaken(ctx context.Context, name string) (bool, error) {
	var n int
	err := c.tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM workshops WHERE company_id=? AND BINARY name=? AND is_active=1",
		c.companyID, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count workshops by name: %w", err)
	}
	return n > 0, nil
}

func (c *companyTx) ActiveSubscription(ctx context.Context) (model.Subscription, error) {
	return activeSubscription(ctx, c.tx, c.companyID)
}

func (c *companyTx) MaxWorkshops(ctx context.Context, licenseID uint64) (int, error) {
	var maxWorkshops sql.NullInt64
	err := c.tx.QueryRowContext(ctx, "SELECT max_workshops FROM licenses WHERE id=?", licenseID).Scan(&maxWorkshops)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("select max workshops: %w", err)
	}
	return int(maxWorkshops.Int64), nil
}

func (c *companyTx) CountActiveWorkshops(ctx context.Context) (int, error) {
	var n int
	err := c.tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM workshops WHERE company_id=? AND is_active=1", c.companyID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count workshops: %w", err)
	}
	return n, nil
}

func (c *companyTx) InsertWorkshop(ctx context.Context, w *model.Workshop) error {
	res, err := c.tx.ExecContext(ctx,
		"INSERT INTO workshops (company_id, name, phone, email, address, tax_id, is_active) VALUES (?,?,?,?,?,?,1)",
		c.companyID, w.Name, w.Phone, w.Email, w.Address, w.TaxID)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert workshop: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert workshop id: %w", err)
	}
	w.ID = uint64(id)
	w.CompanyID = c.companyID
	w.IsActive = true
	w.CreatedAt = time.Now().UTC()
	return nil
}

func (c *companyTx) InsertMembership(ctx context.Context, m model.Membership) error {
	_, err := c.tx.ExecContext(ctx,
		"INSERT INTO user_workshops (user_id, workshop_id, role, is_active) VALUES (?,?,?,?)",
		m.UserID, m.WorkshopID, string(m.Role), m.IsActive)
	if err != nil {
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}

func (c *companyTx) InsertSubscription(ctx context.Context, s *model.Subscription) error {
	res, err := c.tx.ExecContext(ctx,
		"INSERT INTO subscriptions (company_id, license_id, start_date, end_date, is_active) VALUES (?,?,?,?,?)",
		c.companyID, s.LicenseID, s.StartDate, s.EndDate, s.IsActive)
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert subscription id: %w", err)
	}
	s.ID = uint64(id)
	s.CompanyID = c.companyID
	return nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func activeSubscription(ctx context.Context, q queryRower, companyID uint64) (model.Subscription, error) {
	var (
		s   model.Subscription
		end sql.NullTime
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, company_id, license_id, start_date, end_date, is_active
		 FROM subscriptions WHERE company_id = ? AND is_active = 1 LIMIT 1`,
		companyID).Scan(&s.ID, &s.CompanyID, &s.LicenseID, &s.StartDate, &end, &s.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Subscription{}, ErrNotFound
		}
		return model.Subscription{}, fmt.Errorf("select active subscription: %w", err)
	}
	if end.Valid {
		t := end.Time
		s.EndDate = &t
	}
	return s, nil
}
