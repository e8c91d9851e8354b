package rbac

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BnB-Initivatives/stox-prod-test/internal/platform/db"
)

// Repository persists users, roles and their join tables in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func mapWriteErr(err error) error {
	if err != nil && db.IsUniqueViolation(err, "") {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

func (r *Repository) exec(ctx context.Context, sql string, args ...any) (bool, error) {
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return false, mapWriteErr(err)
	}
	return tag.RowsAffected() > 0, nil
}

// --- users ---

const userColumns = `user_id, user_name, hashed_password, enabled, employee_id, created_at, COALESCE(updated_at, created_at)`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.UserName, &u.PasswordHash, &u.Enabled, &u.EmployeeID, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (User, error) { return scanUser(row) })
}

func (r *Repository) GetUser(ctx context.Context, id int64) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = $1`, id))
	if db.IsNoRows(err) {
		return User{}, notFound("user", id)
	}
	return u, err
}

func (r *Repository) CreateUser(ctx context.Context, u User) (User, error) {
	created, err := scanUser(r.pool.QueryRow(ctx, `INSERT INTO users (user_name, hashed_password, enabled, employee_id)
VALUES ($1, $2, $3, $4) RETURNING `+userColumns, u.UserName, u.PasswordHash, u.Enabled, u.EmployeeID))
	return created, mapWriteErr(err)
}

func (r *Repository) UpdateUser(ctx context.Context, u User) error {
	ok, err := r.exec(ctx, `UPDATE users SET user_name = $2, hashed_password = $3, enabled = $4, employee_id = $5, updated_at = NOW()
WHERE user_id = $1`, u.ID, u.UserName, u.PasswordHash, u.Enabled, u.EmployeeID)
	if err == nil && !ok {
		return notFound("user", u.ID)
	}
	return err
}

func (r *Repository) DeleteUser(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM users WHERE user_id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return notFound("user", id)
		}
		return nil
	})
}

// --- roles ---

const roleColumns = `r.role_id, r.name, r.description, r.created_at, COALESCE(r.updated_at, r.created_at)`

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	err := row.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	return role, err
}

func (r *Repository) queryRoles(ctx context.Context, sql string, args ...any) ([]Role, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Role, error) { return scanRole(row) })
}

func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	return r.queryRoles(ctx, `SELECT `+roleColumns+` FROM roles r ORDER BY r.name`)
}

func (r *Repository) GetRole(ctx context.Context, id int64) (Role, error) {
	role, err := scanRole(r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles r WHERE r.role_id = $1`, id))
	if db.IsNoRows(err) {
		return Role{}, notFound("role", id)
	}
	return role, err
}

func (r *Repository) CreateRole(ctx context.Context, role Role) (Role, error) {
	created, err := scanRole(r.pool.QueryRow(ctx, `INSERT INTO roles AS r (name, description) VALUES ($1, $2)
RETURNING `+roleColumns, role.Name, role.Description))
	return created, mapWriteErr(err)
}

func (r *Repository) UpdateRole(ctx context.Context, role Role) error {
	ok, err := r.exec(ctx, `UPDATE roles SET name = $2, description = $3, updated_at = NOW() WHERE role_id = $1`,
		role.ID, role.Name, role.Description)
	if err == nil && !ok {
		return notFound("role", role.ID)
	}
	return err
}

func (r *Repository) DeleteRole(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE role_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM roles WHERE role_id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return notFound("role", id)
		}
		return nil
	})
}

func (r *Repository) RolesForUser(ctx context.Context, userID int64) ([]Role, error) {
	return r.queryRoles(ctx, `SELECT `+roleColumns+` FROM roles r
JOIN user_roles ur ON ur.role_id = r.role_id
WHERE ur.user_id = $1 ORDER BY r.name`, userID)
}

// --- permissions ---

const permissionColumns = `p.permission_id, p.name, p.description, p.created_at, COALESCE(p.updated_at, p.created_at)`

func scanPermission(row pgx.Row) (Permission, error) {
	var p Permission
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *Repository) queryPermissions(ctx context.Context, sql string, args ...any) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Permission, error) { return scanPermission(row) })
}

func (r *Repository) ListPermissions(ctx context.Context) ([]Permission, error) {
	return r.queryPermissions(ctx, `SELECT `+permissionColumns+` FROM permissions p ORDER BY p.name`)
}

func (r *Repository) GetPermission(ctx context.Context, id int64) (Permission, error) {
	p, err := scanPermission(r.pool.QueryRow(ctx, `SELECT `+permissionColumns+` FROM permissions p WHERE p.permission_id = $1`, id))
	if db.IsNoRows(err) {
		return Permission{}, notFound("permission", id)
	}
	return p, err
}

func (r *Repository) CreatePermission(ctx context.Context, p Permission) (Permission, error) {
	created, err := scanPermission(r.pool.QueryRow(ctx, `INSERT INTO permissions AS p (name, description) VALUES ($1, $2)
RETURNING `+permissionColumns, p.Name, p.Description))
	return created, mapWriteErr(err)
}

func (r *Repository) UpdatePermission(ctx context.Context, p Permission) error {
	ok, err := r.exec(ctx, `UPDATE permissions SET name = $2, description = $3, updated_at = NOW() WHERE permission_id = $1`,
		p.ID, p.Name, p.Description)
	if err == nil && !ok {
		return notFound("permission", p.ID)
	}
	return err
}

func (r *Repository) DeletePermission(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE permission_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM permissions WHERE permission_id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return notFound("permission", id)
		}
		return nil
	})
}

func (r *Repository) PermissionsForRole(ctx context.Context, roleID int64) ([]Permission, error) {
	return r.queryPermissions(ctx, `SELECT `+permissionColumns+` FROM permissions p
JOIN role_permissions rp ON rp.permission_id = p.permission_id
WHERE rp.role_id = $1 ORDER BY p.name`, roleID)
}

// --- join tables ---

// GrantPermission upserts the (role, permission) pair and reports whether a
// row was inserted.
func (r *Repository) GrantPermission(ctx context.Context, roleID, permissionID int64) (bool, error) {
	return r.exec(ctx, `INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)
ON CONFLICT (role_id, permission_id) DO NOTHING`, roleID, permissionID)
}

func (r *Repository) RevokePermission(ctx context.Context, roleID, permissionID int64) (bool, error) {
	return r.exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2`, roleID, permissionID)
}

// AssignRole upserts the (user, role) pair and reports whether a row was inserted.
func (r *Repository) AssignRole(ctx context.Context, userID, roleID int64) (bool, error) {
	return r.exec(ctx, `INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
ON CONFLICT (user_id, role_id) DO NOTHING`, userID, roleID)
}

func (r *Repository) UnassignRole(ctx context.Context, userID, roleID int64) (bool, error) {
	return r.exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID)
}

// EffectivePermissions returns the distinct permission names granted to the
// user through any role.
func (r *Repository) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT p.name FROM permissions p
JOIN role_permissions rp ON rp.permission_id = p.permission_id
JOIN user_roles ur ON ur.role_id = rp.role_id
WHERE ur.user_id = $1 ORDER BY p.name`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
