package catalog

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryStore struct {
	mu          sync.Mutex
	nextID      int64
	departments map[int64]Department
	employees   map[int64]Employee
	vendors     map[int64]Vendor
	categories  map[int64]ItemCategory
	units       map[int64]UnitOfMeasure
	items       map[int64]Item
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		departments: map[int64]Department{},
		employees:   map[int64]Employee{},
		vendors:     map[int64]Vendor{},
		categories:  map[int64]ItemCategory{},
		units:       map[int64]UnitOfMeasure{},
		items:       map[int64]Item{},
	}
}

func (m *memoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

func sortedValues[T any](src map[int64]T) []T {
	keys := make([]int64, 0, len(src))
	for k := range src {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, src[k])
	}
	return out
}

func (m *memoryStore) ListDepartments(context.Context) ([]Department, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedValues(m.departments), nil
}

func (m *memoryStore) GetDepartment(_ context.Context, id int64) (Department, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.departments[id]
	if !ok {
		return Department{}, notFoundByID(EntityDepartment, id)
	}
	return d, nil
}

func (m *memoryStore) CreateDepartment(_ context.Context, d Department) (Department, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.departments {
		if existing.Name == d.Name {
			return Department{}, ErrDuplicate
		}
	}
	d.ID = m.id()
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	m.departments[d.ID] = d
	return d, nil
}

func (m *memoryStore) UpdateDepartment(_ context.Context, d Department) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.departments[d.ID]; !ok {
		return notFoundByID(EntityDepartment, d.ID)
	}
	m.departments[d.ID] = d
	return nil
}

func (m *memoryStore) DeleteDepartment(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.departments[id]; !ok {
		return notFoundByID(EntityDepartment, id)
	}
	for _, e := range m.employees {
		if e.DepartmentID == id {
			return ErrInUse
		}
	}
	delete(m.departments, id)
	return nil
}

func (m *memoryStore) ListEmployees(context.Context) ([]Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedValues(m.employees), nil
}

func (m *memoryStore) GetEmployee(_ context.Context, id int64) (Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.employees[id]
	if !ok {
		return Employee{}, notFoundByID(EntityEmployee, id)
	}
	return e, nil
}

func (m *memoryStore) GetEmployeeByNumber(_ context.Context, number string) (Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.employees {
		if e.EmployeeNumber == number {
			return e, nil
		}
	}
	return Employee{}, &NotFoundError{Entity: EntityEmployee, Field: "employee_number", Key: number}
}

func (m *memoryStore) CreateEmployee(_ context.Context, e Employee) (Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = m.id()
	m.employees[e.ID] = e
	return e, nil
}

func (m *memoryStore) UpdateEmployee(_ context.Context, e Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[e.ID] = e
	return nil
}

func (m *memoryStore) DeleteEmployee(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.employees[id]; !ok {
		return notFoundByID(EntityEmployee, id)
	}
	delete(m.employees, id)
	return nil
}

func (m *memoryStore) ListVendors(context.Context) ([]Vendor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedValues(m.vendors), nil
}

func (m *memoryStore) GetVendor(_ context.Context, id int64) (Vendor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vendors[id]
	if !ok {
		return Vendor{}, notFoundByID(EntityVendor, id)
	}
	return v, nil
}

func (m *memoryStore) GetVendorByName(_ context.Context, name string) (Vendor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range sortedValues(m.vendors) {
		if v.Name == name {
			return v, nil
		}
	}
	return Vendor{}, &NotFoundError{Entity: EntityVendor, Field: "name", Key: name}
}

func (m *memoryStore) CreateVendor(_ context.Context, v Vendor) (Vendor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v.ID = m.id()
	m.vendors[v.ID] = v
	return v, nil
}

func (m *memoryStore) UpdateVendor(_ context.Context, v Vendor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vendors[v.ID] = v
	return nil
}

func (m *memoryStore) DeleteVendor(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vendors, id)
	return nil
}

func (m *memoryStore) ListItemCategories(context.Context) ([]ItemCategory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedValues(m.categories), nil
}

func (m *memoryStore) GetItemCategory(_ context.Context, id int64) (ItemCategory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok {
		return ItemCategory{}, notFoundByID(EntityItemCategory, id)
	}
	return c, nil
}

func (m *memoryStore) CreateItemCategory(_ context.Context, c ItemCategory) (ItemCategory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.id()
	m.categories[c.ID] = c
	return c, nil
}

func (m *memoryStore) UpdateItemCategory(_ context.Context, c ItemCategory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories[c.ID] = c
	return nil
}

func (m *memoryStore) DeleteItemCategory(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.categories, id)
	return nil
}

func (m *memoryStore) ListUnitsOfMeasure(context.Context) ([]UnitOfMeasure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedValues(m.units), nil
}

func (m *memoryStore) GetUnitOfMeasure(_ context.Context, id int64) (UnitOfMeasure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.units[id]
	if !ok {
		return UnitOfMeasure{}, notFoundByID(EntityUnitOfMeasure, id)
	}
	return u, nil
}

func (m *memoryStore) CreateUnitOfMeasure(_ context.Context, u UnitOfMeasure) (UnitOfMeasure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = m.id()
	m.units[u.ID] = u
	return u, nil
}

func (m *memoryStore) UpdateUnitOfMeasure(_ context.Context, u UnitOfMeasure) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.units[u.ID] = u
	return nil
}

func (m *memoryStore) DeleteUnitOfMeasure(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.units, id)
	return nil
}

func (m *memoryStore) filterItems(keep func(Item) bool) []Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Item
	for _, it := range sortedValues(m.items) {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

func (m *memoryStore) ListItems(context.Context) ([]Item, error) {
	return m.filterItems(func(Item) bool { return true }), nil
}

func (m *memoryStore) ListItemsWithoutBarcode(context.Context) ([]Item, error) {
	return m.filterItems(func(it Item) bool { return !it.HasBarcode }), nil
}

func (m *memoryStore) ListLowStockItems(context.Context) ([]Item, error) {
	return m.filterItems(Item.IsLowStock), nil
}

func (m *memoryStore) GetItem(_ context.Context, id int64) (Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return Item{}, notFoundByID(EntityItem, id)
	}
	return it, nil
}

func (m *memoryStore) GetItemByCode(_ context.Context, code string) (Item, error) {
	for _, it := range m.filterItems(func(it Item) bool { return it.ItemCode == code }) {
		return it, nil
	}
	return Item{}, &NotFoundError{Entity: EntityItem, Field: "item_code", Key: code}
}

func (m *memoryStore) GetItemByBarcode(_ context.Context, barcode string) (Item, error) {
	for _, it := range m.filterItems(func(it Item) bool { return it.Barcode == barcode }) {
		return it, nil
	}
	return Item{}, &NotFoundError{Entity: EntityItem, Field: "barcode", Key: barcode}
}

func (m *memoryStore) CreateItem(_ context.Context, it Item) (Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it.ID = m.id()
	m.items[it.ID] = it
	return it, nil
}

func (m *memoryStore) UpdateItem(_ context.Context, it Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.items[it.ID]
	if !ok {
		return notFoundByID(EntityItem, it.ID)
	}
	it.Quantity = prev.Quantity
	m.items[it.ID] = it
	return nil
}

func (m *memoryStore) DeleteItem(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return notFoundByID(EntityItem, id)
	}
	delete(m.items, id)
	return nil
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate(context.Context) error {
	c.calls++
	return nil
}
