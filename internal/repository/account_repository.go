package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/clinic-identity-service/internal/domain"
)

// ListFilter narrows administrative account listings.
type ListFilter struct {
	Status domain.AccountStatus
	Role   domain.Role
	Search string
}

// AccountRepository defines persistence access for accounts.
//
// Default read projections exclude the password digest and both token
// digest/expiry pairs. The Consume* operations are conditional updates:
// the WHERE clause requires the token digest to still match and to be
// unexpired at write time, so concurrent redemptions of the same token
// resolve to exactly one winner without in-process locks.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByEmailWithCredentials(ctx context.Context, email string) (*domain.Account, error)
	List(ctx context.Context, filter ListFilter) ([]*domain.Account, error)

	SetVerificationToken(ctx context.Context, id, digest string, expiry time.Time) error
	ConsumeVerificationToken(ctx context.Context, digest string) (*domain.Account, error)
	SetResetToken(ctx context.Context, id, digest string, expiry time.Time) error
	ClearResetToken(ctx context.Context, id string) error
	ConsumeResetToken(ctx context.Context, digest, newPasswordHash string) (*domain.Account, error)

	TouchLastLogin(ctx context.Context, id string, when time.Time) error
	UpdateProfile(ctx context.Context, id string, fields map[string]string) (*domain.Account, error)
	SetStanding(ctx context.Context, id string, isActive, isBlocked bool) (*domain.Account, error)
}

type accountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository returns a Postgres-backed implementation.
func NewAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &accountRepository{pool: pool}
}

// accountColumns is the default projection: no credential material.
const accountColumns = `
        id, email, role, first_name, last_name, phone, address, city,
        postal_code, country, date_of_birth, email_verified, is_active,
        is_blocked, medical_specialty, professional_summary,
        work_experience, education, languages, cv_status,
        profile_image_status, profile_image_url, cv_document_url,
        last_login, created_at, updated_at`

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	const query = `
        INSERT INTO accounts (
            email, password_hash, role, first_name, last_name, phone,
            address, city, postal_code, country, date_of_birth,
            email_verified, is_active, is_blocked, medical_specialty,
            professional_summary, work_experience, education, languages,
            cv_status, profile_image_status, profile_image_url,
            cv_document_url)
        VALUES (LOWER($1),$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
        RETURNING id, email, created_at, updated_at`

	if account.CVStatus == "" {
		account.CVStatus = domain.ReviewPending
	}
	if account.ProfileImageStatus == "" {
		account.ProfileImageStatus = domain.ReviewPending
	}

	workExperience, err := json.Marshal(account.WorkExperience)
	if err != nil {
		return err
	}
	education, err := json.Marshal(account.Education)
	if err != nil {
		return err
	}
	languages, err := json.Marshal(account.Languages)
	if err != nil {
		return err
	}

	return r.pool.QueryRow(ctx, query,
		account.Email,
		account.PasswordHash,
		account.Role,
		account.FirstName,
		account.LastName,
		account.Phone,
		account.Address,
		account.City,
		account.PostalCode,
		account.Country,
		account.DateOfBirth,
		account.EmailVerified,
		account.IsActive,
		account.IsBlocked,
		account.MedicalSpecialty,
		account.ProfessionalSummary,
		workExperience,
		education,
		languages,
		account.CVStatus,
		account.ProfileImageStatus,
		account.ProfileImageURL,
		account.CVDocumentURL,
	).Scan(&account.ID, &account.Email, &account.CreatedAt, &account.UpdatedAt)
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `SELECT` + accountColumns + ` FROM accounts WHERE id=$1`
	return scanAccount(r.pool.QueryRow(ctx, query, id))
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT` + accountColumns + ` FROM accounts WHERE email=LOWER($1)`
	return scanAccount(r.pool.QueryRow(ctx, query, email))
}

// GetByEmailWithCredentials additionally loads the password digest. The
// login path is its only caller.
func (r *accountRepository) GetByEmailWithCredentials(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT password_hash,` + accountColumns + ` FROM accounts WHERE email=LOWER($1)`

	row := r.pool.QueryRow(ctx, query, email)
	var account domain.Account
	var passwordHash string
	if err := scanAccountInto(row, &account, &passwordHash); err != nil {
		return nil, err
	}
	account.PasswordHash = passwordHash
	return &account, nil
}

func (r *accountRepository) List(ctx context.Context, filter ListFilter) ([]*domain.Account, error) {
	query := `SELECT` + accountColumns + ` FROM accounts`

	var clauses []string
	var args []any

	// Listing mirrors the forward derivation: "active" means active and
	// unblocked, "inactive" ignores the blocked flag, "locked" means
	// blocked regardless of active. "suspended" never appears on read.
	switch filter.Status {
	case domain.StatusActive:
		clauses = append(clauses, "is_active = TRUE", "is_blocked = FALSE")
	case domain.StatusInactive:
		clauses = append(clauses, "is_active = FALSE")
	case domain.StatusLocked:
		clauses = append(clauses, "is_blocked = TRUE")
	}
	if filter.Role != "" {
		args = append(args, filter.Role)
		clauses = append(clauses, fmt.Sprintf("role = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf(
			"(first_name ILIKE $%d OR last_name ILIKE $%d OR email ILIKE $%d)", n, n, n))
	}

	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		var account domain.Account
		if err := scanAccountInto(rows, &account); err != nil {
			return nil, err
		}
		accounts = append(accounts, &account)
	}
	return accounts, rows.Err()
}

// SetVerificationToken overwrites the outstanding verification token, if
// any; issuing supersedes the prior token.
func (r *accountRepository) SetVerificationToken(ctx context.Context, id, digest string, expiry time.Time) error {
	const query = `
        UPDATE accounts
        SET email_verification_digest=$2, email_verification_expiry=$3, updated_at=NOW()
        WHERE id=$1`
	return execExpectingRow(ctx, r.pool, query, id, digest, expiry)
}

// ConsumeVerificationToken flips the account to verified and clears the
// token fields in one conditional update. pgx.ErrNoRows means the digest
// did not match or had expired, including the case where a concurrent
// redemption won the race.
func (r *accountRepository) ConsumeVerificationToken(ctx context.Context, digest string) (*domain.Account, error) {
	query := `
        UPDATE accounts
        SET email_verified=TRUE, email_verification_digest=NULL,
            email_verification_expiry=NULL, updated_at=NOW()
        WHERE email_verification_digest=$1 AND email_verification_expiry > NOW()
        RETURNING` + accountColumns

	return scanAccount(r.pool.QueryRow(ctx, query, digest))
}

func (r *accountRepository) SetResetToken(ctx context.Context, id, digest string, expiry time.Time) error {
	const query = `
        UPDATE accounts
        SET password_reset_digest=$2, password_reset_expiry=$3, updated_at=NOW()
        WHERE id=$1`
	return execExpectingRow(ctx, r.pool, query, id, digest, expiry)
}

// ClearResetToken rolls back an issued reset token after a failed
// delivery.
func (r *accountRepository) ClearResetToken(ctx context.Context, id string) error {
	const query = `
        UPDATE accounts
        SET password_reset_digest=NULL, password_reset_expiry=NULL, updated_at=NOW()
        WHERE id=$1`
	return execExpectingRow(ctx, r.pool, query, id)
}

// ConsumeResetToken stores the new password digest and clears the reset
// token fields under the same compare-and-swap discipline as
// verification consumption.
func (r *accountRepository) ConsumeResetToken(ctx context.Context, digest, newPasswordHash string) (*domain.Account, error) {
	query := `
        UPDATE accounts
        SET password_hash=$2, password_reset_digest=NULL,
            password_reset_expiry=NULL, updated_at=NOW()
        WHERE password_reset_digest=$1 AND password_reset_expiry > NOW()
        RETURNING` + accountColumns

	return scanAccount(r.pool.QueryRow(ctx, query, digest, newPasswordHash))
}

func (r *accountRepository) TouchLastLogin(ctx context.Context, id string, when time.Time) error {
	const query = `UPDATE accounts SET last_login=$2, updated_at=NOW() WHERE id=$1`
	return execExpectingRow(ctx, r.pool, query, id, when)
}

// UpdateProfile writes only allow-listed profile columns. Callers must
// have validated the field names via domain.EnsureMutable.
func (r *accountRepository) UpdateProfile(ctx context.Context, id string, fields map[string]string) (*domain.Account, error) {
	if len(fields) == 0 {
		return r.GetByID(ctx, id)
	}

	setClauses := make([]string, 0, len(fields)+1)
	args := []any{id}
	for name, value := range fields {
		args = append(args, value)
		setClauses = append(setClauses, fmt.Sprintf("%s=$%d", name, len(args)))
	}
	setClauses = append(setClauses, "updated_at=NOW()")

	query := fmt.Sprintf(
		`UPDATE accounts SET %s WHERE id=$1 RETURNING`,
		strings.Join(setClauses, ", ")) + accountColumns

	return scanAccount(r.pool.QueryRow(ctx, query, args...))
}

func (r *accountRepository) SetStanding(ctx context.Context, id string, isActive, isBlocked bool) (*domain.Account, error) {
	query := `
        UPDATE accounts SET is_active=$2, is_blocked=$3, updated_at=NOW()
        WHERE id=$1
        RETURNING` + accountColumns

	return scanAccount(r.pool.QueryRow(ctx, query, id, isActive, isBlocked))
}

func execExpectingRow(ctx context.Context, pool *pgxpool.Pool, query string, args ...any) error {
	cmd, err := pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	if err := scanAccountInto(row, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// scanAccountInto reads the default projection into account; any extra
// leading columns are scanned into extras first.
func scanAccountInto(row pgx.Row, account *domain.Account, extras ...any) error {
	var workExperience, education, languages []byte

	dest := append(extras,
		&account.ID,
		&account.Email,
		&account.Role,
		&account.FirstName,
		&account.LastName,
		&account.Phone,
		&account.Address,
		&account.City,
		&account.PostalCode,
		&account.Country,
		&account.DateOfBirth,
		&account.EmailVerified,
		&account.IsActive,
		&account.IsBlocked,
		&account.MedicalSpecialty,
		&account.ProfessionalSummary,
		&workExperience,
		&education,
		&languages,
		&account.CVStatus,
		&account.ProfileImageStatus,
		&account.ProfileImageURL,
		&account.CVDocumentURL,
		&account.LastLogin,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err := row.Scan(dest...); err != nil {
		return err
	}

	if len(workExperience) > 0 {
		if err := json.Unmarshal(workExperience, &account.WorkExperience); err != nil {
			return err
		}
	}
	if len(education) > 0 {
		if err := json.Unmarshal(education, &account.Education); err != nil {
			return err
		}
	}
	if len(languages) > 0 {
		if err := json.Unmarshal(languages, &account.Languages); err != nil {
			return err
		}
	}
	return nil
}
