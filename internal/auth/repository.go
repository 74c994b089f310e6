package auth

import (
	"clinic-backend/internal/database"
	"context"
	"database/sql"

	"github.com/google/uuid"
)

const (
	findStaffByUUIDQuery = "SELECT s.id, s.uuid, s.email, s.full_name, r.name as role FROM staff s JOIN roles r ON r.id = s.role_id WHERE s.uuid = $1"

	findStaffByEmailQuery = "SELECT s.id, s.uuid, s.email, s.full_name, r.name as role FROM staff s JOIN roles r ON r.id = s.role_id WHERE s.email = $1"

	checkStaffPasswordQuery = "SELECT id, password FROM staff WHERE email = $1"

	hasPermissionQuery = "SELECT COUNT(*) FROM staff s JOIN role_permissions rp ON rp.role_id = s.role_id JOIN permissions p ON p.id = rp.permission_id WHERE s.id = $1 AND p.name = $2"
)

// Repository provides access to auth data.
type Repository interface {

	// FindStaffByUUID finds a staff member by its UUID.
	FindStaffByUUID(ctx context.Context, uuid uuid.UUID) (*User, error)

	// FindStaffByEmail finds a staff member by its email.
	FindStaffByEmail(ctx context.Context, email string) (*User, error)

	// CheckStaffPassword checks if the stored password is equals to the given password.
	CheckStaffPassword(ctx context.Context, email string, password string) (bool, error)

	// HasPermission checks if the staff member's role carries the given permission.
	HasPermission(ctx context.Context, staffID int64, permission Permission) (bool, error)
}

type defaultRepository struct {
	dbConn database.Connection
}

// NewRepository creates a new Repository.
func newRepository(dbConn database.Connection) Repository {
	return &defaultRepository{dbConn: dbConn}
}

func (d defaultRepository) FindStaffByUUID(ctx context.Context, uuid uuid.UUID) (*User, error) {
	params := make([]interface{}, 1)
	params[0] = uuid.String()
	rows, err := d.dbConn.DB().QueryContext(ctx, findStaffByUUIDQuery, params...)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	user := new(User)
	for rows.Next() {
		if err = database.TransformRow(rows, user); err != nil {
			return nil, err
		}
		if user.ID > 0 {
			return user, nil
		}
	}
	return nil, nil
}

func (d defaultRepository) FindStaffByEmail(ctx context.Context, email string) (*User, error) {
	params := make([]interface{}, 1)
	params[0] = email
	rows, err := d.dbConn.DB().QueryContext(ctx, findStaffByEmailQuery, params...)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	user := new(User)
	for rows.Next() {
		if err = database.TransformRow(rows, user); err != nil {
			return nil, err
		}
		if user.ID > 0 {
			return user, nil
		}
	}
	return nil, nil
}

func (d defaultRepository) CheckStaffPassword(ctx context.Context, email string, password string) (bool, error) {
	params := make([]interface{}, 1)
	params[0] = email
	row := d.dbConn.DB().QueryRowContext(ctx, checkStaffPasswordQuery, params...)
	if row.Err() != nil {
		return false, row.Err()
	}
	id := new(uint64)
	hashedPass := new(string)
	if err := row.Scan(id, hashedPass); err != nil && err != sql.ErrNoRows {
		return false, err
	}
	return ComparePasswords(*hashedPass, password), nil
}

func (d defaultRepository) HasPermission(ctx context.Context, staffID int64, permission Permission) (bool, error) {
	params := make([]interface{}, 2)
	params[0] = staffID
	params[1] = string(permission)
	row := d.dbConn.DB().QueryRowContext(ctx, hasPermissionQuery, params...)
	if row.Err() != nil {
		return false, row.Err()
	}
	count := new(int64)
	if err := row.Scan(count); err != nil {
		return false, err
	}
	return *count > 0, nil
}
