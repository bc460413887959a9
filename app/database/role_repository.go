package database

import (
	"database/sql"
	"fmt"
)

// RoleRepo handles role lookups for the admin authorization path
type RoleRepo struct {
	db *DB
}

var _ RoleRepository = (*RoleRepo)(nil)

func NewRoleRepository(db *DB) *RoleRepo {
	return &RoleRepo{db: db}
}

func (r *RoleRepo) HasRole(userID, role string) (bool, error) {
	var id string
	err := r.db.QueryRow(`
		SELECT id FROM user_roles
		WHERE user_id = $1 AND role = $2
		LIMIT 1
	`, userID, role).Scan(&id)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check role: %w", err)
	}

	return true, nil
}
