package rbac

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/BnB-Initivatives/stox-prod-test/internal/catalog"
)

type pair struct{ a, b int64 }

type memoryStore struct {
	mu          sync.Mutex
	seq         int64
	users       map[int64]User
	roles       map[int64]Role
	permissions map[int64]Permission
	userRoles   map[pair]bool
	rolePerms   map[pair]bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:       map[int64]User{},
		roles:       map[int64]Role{},
		permissions: map[int64]Permission{},
		userRoles:   map[pair]bool{},
		rolePerms:   map[pair]bool{},
	}
}

func (m *memoryStore) next() int64 {
	m.seq++
	return m.seq
}

func (m *memoryStore) ListUsers(context.Context) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) GetUser(_ context.Context, id int64) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, notFound("user", id)
	}
	return u, nil
}

func (m *memoryStore) CreateUser(_ context.Context, u User) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.UserName == u.UserName {
			return User{}, fmt.Errorf("%w: user_name", ErrDuplicate)
		}
	}
	u.ID = m.next()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	m.users[u.ID] = u
	return u, nil
}

func (m *memoryStore) UpdateUser(_ context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return notFound("user", u.ID)
	}
	m.users[u.ID] = u
	return nil
}

func (m *memoryStore) DeleteUser(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return notFound("user", id)
	}
	delete(m.users, id)
	for k := range m.userRoles {
		if k.a == id {
			delete(m.userRoles, k)
		}
	}
	return nil
}

func (m *memoryStore) ListRoles(context.Context) ([]Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Role, 0, len(m.roles))
	for _, r := range m.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryStore) GetRole(_ context.Context, id int64) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[id]
	if !ok {
		return Role{}, notFound("role", id)
	}
	return r, nil
}

func (m *memoryStore) CreateRole(_ context.Context, r Role) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.roles {
		if existing.Name == r.Name {
			return Role{}, fmt.Errorf("%w: role name", ErrDuplicate)
		}
	}
	r.ID = m.next()
	m.roles[r.ID] = r
	return r, nil
}

func (m *memoryStore) UpdateRole(_ context.Context, r Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roles[r.ID]; !ok {
		return notFound("role", r.ID)
	}
	m.roles[r.ID] = r
	return nil
}

func (m *memoryStore) DeleteRole(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roles[id]; !ok {
		return notFound("role", id)
	}
	delete(m.roles, id)
	for k := range m.userRoles {
		if k.b == id {
			delete(m.userRoles, k)
		}
	}
	for k := range m.rolePerms {
		if k.a == id {
			delete(m.rolePerms, k)
		}
	}
	return nil
}

func (m *memoryStore) RolesForUser(_ context.Context, userID int64) ([]Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Role
	for k := range m.userRoles {
		if k.a == userID {
			out = append(out, m.roles[k.b])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryStore) ListPermissions(context.Context) ([]Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Permission, 0, len(m.permissions))
	for _, p := range m.permissions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryStore) GetPermission(_ context.Context, id int64) (Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.permissions[id]
	if !ok {
		return Permission{}, notFound("permission", id)
	}
	return p, nil
}

func (m *memoryStore) CreatePermission(_ context.Context, p Permission) (Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.permissions {
		if existing.Name == p.Name {
			return Permission{}, fmt.Errorf("%w: permission name", ErrDuplicate)
		}
	}
	p.ID = m.next()
	m.permissions[p.ID] = p
	return p, nil
}

func (m *memoryStore) UpdatePermission(_ context.Context, p Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.permissions[p.ID]; !ok {
		return notFound("permission", p.ID)
	}
	m.permissions[p.ID] = p
	return nil
}

func (m *memoryStore) DeletePermission(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.permissions[id]; !ok {
		return notFound("permission", id)
	}
	delete(m.permissions, id)
	for k := range m.rolePerms {
		if k.b == id {
			delete(m.rolePerms, k)
		}
	}
	return nil
}

func (m *memoryStore) PermissionsForRole(_ context.Context, roleID int64) ([]Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Permission
	for k := range m.rolePerms {
		if k.a == roleID {
			out = append(out, m.permissions[k.b])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func upsert(set map[pair]bool, k pair) bool {
	if set[k] {
		return false
	}
	set[k] = true
	return true
}

func remove(set map[pair]bool, k pair) bool {
	if !set[k] {
		return false
	}
	delete(set, k)
	return true
}

func (m *memoryStore) GrantPermission(_ context.Context, roleID, permissionID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return upsert(m.rolePerms, pair{roleID, permissionID}), nil
}

func (m *memoryStore) RevokePermission(_ context.Context, roleID, permissionID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return remove(m.rolePerms, pair{roleID, permissionID}), nil
}

func (m *memoryStore) AssignRole(_ context.Context, userID, roleID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return upsert(m.userRoles, pair{userID, roleID}), nil
}

func (m *memoryStore) UnassignRole(_ context.Context, userID, roleID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return remove(m.userRoles, pair{userID, roleID}), nil
}

func (m *memoryStore) EffectivePermissions(_ context.Context, userID int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	for ur := range m.userRoles {
		if ur.a != userID {
			continue
		}
		for rp := range m.rolePerms {
			if rp.a == ur.b {
				seen[m.permissions[rp.b].Name] = true
			}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

type employeeDirectory map[int64]catalog.Employee

func (d employeeDirectory) GetEmployee(_ context.Context, id int64) (catalog.Employee, error) {
	e, ok := d[id]
	if !ok {
		return catalog.Employee{}, &catalog.NotFoundError{Entity: catalog.EntityEmployee, Key: id}
	}
	return e, nil
}

func newTestService(t *testing.T) (*Service, *memoryStore) {
	t.Helper()
	store := newMemoryStore()
	employees := employeeDirectory{7: {ID: 7, EmployeeNumber: "E-007", FirstName: "Ada", LastName: "Lovelace"}}
	return NewService(store, employees, bcrypt.MinCost, nil), store
}
