package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/BnB-Initivatives/stox-prod-test/internal/catalog"
)

// Store abstracts persistence for the service.
type Store interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	CreateUser(ctx context.Context, u User) (User, error)
	UpdateUser(ctx context.Context, u User) error
	DeleteUser(ctx context.Context, id int64) error

	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	CreateRole(ctx context.Context, r Role) (Role, error)
	UpdateRole(ctx context.Context, r Role) error
	DeleteRole(ctx context.Context, id int64) error
	RolesForUser(ctx context.Context, userID int64) ([]Role, error)

	ListPermissions(ctx context.Context) ([]Permission, error)
	GetPermission(ctx context.Context, id int64) (Permission, error)
	CreatePermission(ctx context.Context, p Permission) (Permission, error)
	UpdatePermission(ctx context.Context, p Permission) error
	DeletePermission(ctx context.Context, id int64) error
	PermissionsForRole(ctx context.Context, roleID int64) ([]Permission, error)

	GrantPermission(ctx context.Context, roleID, permissionID int64) (bool, error)
	RevokePermission(ctx context.Context, roleID, permissionID int64) (bool, error)
	AssignRole(ctx context.Context, userID, roleID int64) (bool, error)
	UnassignRole(ctx context.Context, userID, roleID int64) (bool, error)
	EffectivePermissions(ctx context.Context, userID int64) ([]string, error)
}

// Employees resolves the optional employee a user account belongs to.
type Employees interface {
	GetEmployee(ctx context.Context, id int64) (catalog.Employee, error)
}

// Service orchestrates RBAC operations.
type Service struct {
	store      Store
	employees  Employees
	bcryptCost int
	validate   *validator.Validate
	logger     *slog.Logger
}

// NewService constructs a Service. A cost outside bcrypt's range falls back
// to bcrypt.DefaultCost; employees may be nil to skip the reference check.
func NewService(store Store, employees Employees, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	return &Service{store: store, employees: employees, bcryptCost: bcryptCost, validate: v, logger: logger}
}

func (s *Service) check(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		msgs = append(msgs, fe.Field()+": "+rule)
	}
	sort.Strings(msgs)
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}

func (s *Service) hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("rbac: hash password: %w", err)
	}
	return string(hashed), nil
}

func (s *Service) checkEmployee(ctx context.Context, id *int64) error {
	if id == nil || s.employees == nil {
		return nil
	}
	if _, err := s.employees.GetEmployee(ctx, *id); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return fmt.Errorf("%w: %v", ErrInvalidReference, err)
		}
		return err
	}
	return nil
}

// --- users ---

func (s *Service) withRoles(ctx context.Context, u User) (User, error) {
	roles, err := s.store.RolesForUser(ctx, u.ID)
	if err != nil {
		return User{}, err
	}
	if roles == nil {
		roles = []Role{}
	}
	u.Roles = roles
	return u, nil
}

// ListUsers returns every user with the roles assigned to it.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i], err = s.withRoles(ctx, users[i]); err != nil {
			return nil, err
		}
	}
	return users, nil
}

func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	return s.withRoles(ctx, u)
}

// CreateUser stores a new account with a bcrypt hash of the password.
func (s *Service) CreateUser(ctx context.Context, in UserInput) (User, error) {
	in.UserName = strings.TrimSpace(in.UserName)
	if err := s.check(in); err != nil {
		return User{}, err
	}
	if err := s.checkEmployee(ctx, in.EmployeeID); err != nil {
		return User{}, err
	}
	hashed, err := s.hash(in.Password)
	if err != nil {
		return User{}, err
	}
	u := User{UserName: in.UserName, PasswordHash: hashed, Enabled: true, EmployeeID: in.EmployeeID}
	if in.Enabled != nil {
		u.Enabled = *in.Enabled
	}
	created, err := s.store.CreateUser(ctx, u)
	if err != nil {
		return User{}, err
	}
	created.Roles = []Role{}
	s.logger.Info("rbac: user created", slog.Int64("user_id", created.ID), slog.String("user_name", created.UserName))
	return created, nil
}

func (s *Service) UpdateUser(ctx context.Context, id int64, upd UserUpdate) (User, error) {
	if upd.UserName != nil {
		trimmed := strings.TrimSpace(*upd.UserName)
		upd.UserName = &trimmed
	}
	if err := s.check(upd); err != nil {
		return User{}, err
	}
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	if err := s.checkEmployee(ctx, upd.EmployeeID); err != nil {
		return User{}, err
	}
	if upd.UserName != nil {
		u.UserName = *upd.UserName
	}
	if upd.Enabled != nil {
		u.Enabled = *upd.Enabled
	}
	if upd.EmployeeID != nil {
		u.EmployeeID = upd.EmployeeID
	}
	if upd.Password != nil {
		if u.PasswordHash, err = s.hash(*upd.Password); err != nil {
			return User{}, err
		}
	}
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return User{}, err
	}
	return s.GetUser(ctx, id)
}

func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	return s.store.DeleteUser(ctx, id)
}

// CheckPassword reports whether password matches the user's stored hash.
// Disabled users never match.
func (s *Service) CheckPassword(ctx context.Context, id int64, password string) (bool, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return false, err
	}
	if !u.Enabled {
		return false, nil
	}
	err = bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return err == nil, err
}

// --- roles ---

func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.store.ListRoles(ctx)
}

// GetRole fetches a role with its permissions.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	role, err := s.store.GetRole(ctx, id)
	if err != nil {
		return Role{}, err
	}
	perms, err := s.store.PermissionsForRole(ctx, id)
	if err != nil {
		return Role{}, err
	}
	role.Permissions = perms
	return role, nil
}

func (s *Service) CreateRole(ctx context.Context, in RoleInput) (Role, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err := s.check(in); err != nil {
		return Role{}, err
	}
	return s.store.CreateRole(ctx, Role{Name: in.Name, Description: in.Description})
}

func (s *Service) UpdateRole(ctx context.Context, id int64, upd RoleUpdate) (Role, error) {
	if err := s.check(upd); err != nil {
		return Role{}, err
	}
	role, err := s.store.GetRole(ctx, id)
	if err != nil {
		return Role{}, err
	}
	if upd.Name != nil {
		role.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Description != nil {
		role.Description = strings.TrimSpace(*upd.Description)
	}
	if role.Name == "" {
		return Role{}, fmt.Errorf("%w: name: required", ErrValidation)
	}
	if err := s.store.UpdateRole(ctx, role); err != nil {
		return Role{}, err
	}
	return s.GetRole(ctx, id)
}

func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	return s.store.DeleteRole(ctx, id)
}

// --- permissions ---

func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.store.ListPermissions(ctx)
}

func (s *Service) GetPermission(ctx context.Context, id int64) (Permission, error) {
	return s.store.GetPermission(ctx, id)
}

// CreatePermission stores a permission. Names are lower-cased so checks are
// case-insensitive.
func (s *Service) CreatePermission(ctx context.Context, in PermissionInput) (Permission, error) {
	in.Name = normalizePermission(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err := s.check(in); err != nil {
		return Permission{}, err
	}
	return s.store.CreatePermission(ctx, Permission{Name: in.Name, Description: in.Description})
}

func (s *Service) UpdatePermission(ctx context.Context, id int64, upd PermissionUpdate) (Permission, error) {
	if err := s.check(upd); err != nil {
		return Permission{}, err
	}
	p, err := s.store.GetPermission(ctx, id)
	if err != nil {
		return Permission{}, err
	}
	if upd.Name != nil {
		p.Name = normalizePermission(*upd.Name)
	}
	if upd.Description != nil {
		p.Description = strings.TrimSpace(*upd.Description)
	}
	if p.Name == "" {
		return Permission{}, fmt.Errorf("%w: name: required", ErrValidation)
	}
	if err := s.store.UpdatePermission(ctx, p); err != nil {
		return Permission{}, err
	}
	return p, nil
}

func (s *Service) DeletePermission(ctx context.Context, id int64) error {
	return s.store.DeletePermission(ctx, id)
}

// --- join tables ---

// GrantPermission attaches a permission to a role. It reports whether the
// pair was new; granting twice is not an error.
func (s *Service) GrantPermission(ctx context.Context, roleID, permissionID int64) (bool, error) {
	if _, err := s.store.GetRole(ctx, roleID); err != nil {
		return false, err
	}
	if _, err := s.store.GetPermission(ctx, permissionID); err != nil {
		return false, err
	}
	return s.store.GrantPermission(ctx, roleID, permissionID)
}

// RevokePermission detaches a permission from a role. A pair that does not
// exist is ErrNotFound.
func (s *Service) RevokePermission(ctx context.Context, roleID, permissionID int64) error {
	removed, err := s.store.RevokePermission(ctx, roleID, permissionID)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("%w: role %d has no permission %d", ErrNotFound, roleID, permissionID)
	}
	return nil
}

// AssignRole attaches a role to a user and reports whether the pair was new.
func (s *Service) AssignRole(ctx context.Context, userID, roleID int64) (bool, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return false, err
	}
	if _, err := s.store.GetRole(ctx, roleID); err != nil {
		return false, err
	}
	return s.store.AssignRole(ctx, userID, roleID)
}

// RemoveRole detaches a role from a user.
func (s *Service) RemoveRole(ctx context.Context, userID, roleID int64) error {
	removed, err := s.store.UnassignRole(ctx, userID, roleID)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("%w: user %d has no role %d", ErrNotFound, userID, roleID)
	}
	return nil
}

// EffectivePermissions returns deduplicated permission names for a user.
func (s *Service) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	perms, err := s.store.EffectivePermissions(ctx, userID)
	if err != nil {
		return nil, err
	}
	if perms == nil {
		perms = []string{}
	}
	return perms, nil
}

// HasAnyPermission reports whether the user holds at least one of perms.
// Disabled users hold nothing.
func (s *Service) HasAnyPermission(ctx context.Context, userID int64, perms ...string) (bool, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	if !u.Enabled {
		return false, nil
	}
	required := normalizePermissions(perms)
	if len(required) == 0 {
		return true, nil
	}
	granted, err := s.store.EffectivePermissions(ctx, userID)
	if err != nil {
		return false, err
	}
	return hasAnyPermission(granted, required), nil
}

func normalizePermission(p string) string {
	return strings.ToLower(strings.TrimSpace(p))
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		p = normalizePermission(p)
		if p == "" {
			continue
		}
		unique[p] = struct{}{}
	}
	normalized := make([]string, 0, len(unique))
	for p := range unique {
		normalized = append(normalized, p)
	}
	return normalized
}

func hasAnyPermission(granted []string, required []string) bool {
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[strings.ToLower(p)] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}
