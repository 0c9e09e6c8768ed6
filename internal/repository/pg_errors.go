package repository

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	domainRepo "clinic-frontdesk/internal/domain/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Constraint names created by the migrations.
const (
	constraintIdentityNationalID = "uq_patient_identities_national_id"
	constraintVisitSeq           = "uq_visit_records_patient_seq"
	constraintActiveSlot         = "uq_appointment_slots_active"
)

// isDuplicateKeyError checks if the error is a PostgreSQL unique constraint violation
// containing the specified constraint name
func isDuplicateKeyError(err error, constraintName string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// PostgreSQL error code 23505 = unique_violation
		if pgErr.Code == "23505" && strings.Contains(strings.ToLower(pgErr.ConstraintName), strings.ToLower(constraintName)) {
			return true
		}
	}
	return false
}

// isUnavailableError reports errors meaning the database could not be reached
// or refused to serve the request.
func isUnavailableError(err error) bool {
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08 = connection_exception; 57P0x = operator intervention;
		// 53300 = too_many_connections
		switch {
		case strings.HasPrefix(pgErr.Code, "08"),
			pgErr.Code == "57P01", pgErr.Code == "57P02", pgErr.Code == "57P03",
			pgErr.Code == "53300":
			return true
		}
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// translateError maps driver failures onto the domain storage errors.
// Not-found is handled by callers.
func translateError(err error) error {
	if err == nil || errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if isUnavailableError(err) {
		return fmt.Errorf("%w: %v", domainRepo.ErrStorageUnavailable, err)
	}
	return err
}
