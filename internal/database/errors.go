package database

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres error code
const (
	codeForeignKeyViolation = "23503"
	codeUniqueViolation     = "23505"
)

// Unique indexes created by Migrate
const (
	UsernameIndex       = "idx_users_username_unique"
	CandidateEmailIndex = "idx_candidate_profiles_email_unique"
)

// IsUniqueViolationOn report whether err come from the unique index or constraint named name
func IsUniqueViolationOn(err error, name string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation && pgErr.ConstraintName == name
}

// IsUniqueViolation report whether err come from unique constraint
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}

// IsForeignKeyViolation report whether err come from foreign key constraint
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeForeignKeyViolation
}
