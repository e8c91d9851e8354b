package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BnB-Initivatives/stox-prod-test/internal/platform/db"
)

const (
	foreignKeyViolation = "23503"
	stringTooLong       = "22001"
)

// Repository persists catalog entities in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func mapWriteErr(err error) error {
	if err == nil {
		return nil
	}
	if db.IsUniqueViolation(err, "") {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case foreignKeyViolation:
		return fmt.Errorf("%w: %s", ErrInUse, pgErr.ConstraintName)
	case stringTooLong:
		return fmt.Errorf("%w: %s", ErrValidation, pgErr.Message)
	}
	return err
}

func execAffecting(ctx context.Context, pool *pgxpool.Pool, missing error, sql string, args ...any) error {
	tag, err := pool.Exec(ctx, sql, args...)
	if err != nil {
		return mapWriteErr(err)
	}
	if tag.RowsAffected() == 0 {
		return missing
	}
	return nil
}

// --- departments ---

const departmentColumns = `department_id, name, COALESCE(description, ''), created_at, COALESCE(updated_at, created_at)`

func scanDepartment(row pgx.Row) (Department, error) {
	var d Department
	err := row.Scan(&d.ID, &d.Name, &d.Description, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func (r *Repository) ListDepartments(ctx context.Context) ([]Department, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+departmentColumns+` FROM departments ORDER BY department_id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Department, error) { return scanDepartment(row) })
}

func (r *Repository) GetDepartment(ctx context.Context, id int64) (Department, error) {
	d, err := scanDepartment(r.pool.QueryRow(ctx, `SELECT `+departmentColumns+` FROM departments WHERE department_id = $1`, id))
	if db.IsNoRows(err) {
		return Department{}, notFoundByID(EntityDepartment, id)
	}
	return d, err
}

func (r *Repository) CreateDepartment(ctx context.Context, d Department) (Department, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO departments (name, description) VALUES ($1, NULLIF($2, ''))
RETURNING `+departmentColumns, d.Name, d.Description)
	created, err := scanDepartment(row)
	return created, mapWriteErr(err)
}

func (r *Repository) UpdateDepartment(ctx context.Context, d Department) error {
	return execAffecting(ctx, r.pool, notFoundByID(EntityDepartment, d.ID),
		`UPDATE departments SET name = $2, description = NULLIF($3, ''), updated_at = NOW() WHERE department_id = $1`,
		d.ID, d.Name, d.Description)
}

func (r *Repository) DeleteDepartment(ctx context.Context, id int64) error {
	return execAffecting(ctx, r.pool, notFoundByID(EntityDepartment, id), `DELETE FROM departments WHERE department_id = $1`, id)
}

// --- employees ---

const employeeColumns = `employee_id, employee_number, first_name, COALESCE(middle_name, ''), last_name, department_id, created_at, COALESCE(updated_at, created_at)`

func scanEmployee(row pgx.Row) (Employee, error) {
	var e Employee
	err := row.Scan(&e.ID, &e.EmployeeNumber, &e.FirstName, &e.MiddleName, &e.LastName, &e.DepartmentID, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (r *Repository) ListEmployees(ctx context.Context) ([]Employee, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+employeeColumns+` FROM employees ORDER BY employee_id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Employee, error) { return scanEmployee(row) })
}

func (r *Repository) GetEmployee(ctx context.Context, id int64) (Employee, error) {
	e, err := scanEmployee(r.pool.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE employee_id = $1`, id))
	if db.IsNoRows(err) {
		return Employee{}, notFoundByID(EntityEmployee, id)
	}
	return e, err
}

func (r *Repository) GetEmployeeByNumber(ctx context.Context, number string) (Employee, error) {
	e, err := scanEmployee(r.pool.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE employee_number = $1`, number))
	if db.IsNoRows(err) {
		return Employee{}, &NotFoundError{Entity: EntityEmployee, Field: "employee_number", Key: number}
	}
	return e, err
}

func (r *Repository) CreateEmployee(ctx context.Context, e Employee) (Employee, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO employees (employee_number, first_name, middle_name, last_name, department_id)
VALUES ($1, $2, NULLIF($3, ''), $4, $5) RETURNING `+employeeColumns,
		e.EmployeeNumber, e.FirstName, e.MiddleName, e.LastName, e.DepartmentID)
	created, err := scanEmployee(row)
	return created, mapWriteErr(err)
}

func (r *Repository) UpdateEmployee(ctx context.Context, e Employee) error {
	return execAffecting(ctx, r.pool, notFoundByID(EntityEmployee, e.ID),
		`UPDATE employees SET employee_number = $2, first_name = $3, middle_name = NULLIF($4, ''), last_name = $5,
department_id = $6, updated_at = NOW() WHERE employee_id = $1`,
		e.ID, e.EmployeeNumber, e.FirstName, e.MiddleName, e.LastName, e.DepartmentID)
}

func (r *Repository) DeleteEmployee(ctx context.Context, id int64) error {
	return execAffecting(ctx, r.pool, notFoundByID(EntityEmployee, id), `DELETE FROM employees WHERE employee_id = $1`, id)
}

// --- vendors ---

const vendorColumns = `vendor_id, name, COALESCE(description, ''), created_at, COALESCE(updated_at, created_at)`

func scanVendor(row pgx.Row) (Vendor, error) {
	var v Vendor
	err := row.Scan(&v.ID, &v.Name, &v.Description, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

func (r *Repository) ListVendors(ctx context.Context) ([]Vendor, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+vendorColumns+` FROM vendors ORDER BY vendor_id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Vendor, error) { return scanVendor(row) })
}

func (r *Repository) GetVendor(ctx context.Context, id int64) (Vendor, error) {
	v, err := scanVendor(r.pool.QueryRow(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE vendor_id = $1`, id))
	if db.IsNoRows(err) {
		return Vendor{}, notFoundByID(EntityVendor, id)
	}
	return v, err
}

// GetVendorByName returns the lowest-id vendor with an exact name match.
func (r *Repository) GetVendorByName(ctx context.Context, name string) (Vendor, error) {
	v, err := scanVendor(r.pool.QueryRow(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE name = $1 ORDER BY vendor_id LIMIT 1`, name))
	if db.IsNoRows(err) {
		return Vendor{}, &NotFoundError{Entity: EntityVendor, Field: "name", Key: name}
	}
	return v, err
}

func (r *Repository) CreateVendor(ctx context.Context, v Vendor) (Vendor, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO vendors (name, description) VALUES ($1, NULLIF($2, '')) RETURNING `+vendorColumns,
		v.Name, v.Description)
	created, err := scanVendor(row)
	return created, mapWriteErr(err)
}

func (r *Repository) UpdateVendor(ctx context.Context, v Vendor) error {
	return execAffecting(ctx, r.pool, notFoundByID(EntityVendor, v.ID),
		`UPDATE vendors SET name = $2, description = NULLIF($3, ''), updated_at = NOW() WHERE vendor_id = $1`,
		v.ID, v.Name, v.Description)
}

func (r *Repository) DeleteVendor(ctx context.Context, id int64) error {
	return execAffecting(ctx, r.pool, notFoundByID(EntityVendor, id), `DELETE FROM vendors WHERE vendor_id = $1`, id)
}

// --- item categories ---

const categoryColumns = `category_id, name, COALESCE(description, ''), created_at, COALESCE(updated_at, created_at)`

func scanCategory(row pgx.Row) (ItemCategory, error) {
	var c ItemCategory
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *Repository) ListItemCategories(ctx context.Context) ([]ItemCategory, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+categoryColumns+` FROM item_categories ORDER BY category_id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ItemCategory, error) { return scanCategory(row) })
}

func (r *Repository) GetItemCategory(ctx context.Context, id int64) (ItemCategory, error) {
	c, err := scanCategory(r.pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM item_categories WHERE category_id = $1`, id))
	if db.IsNoRows(err) {
		return ItemCategory{}, notFoundByID(EntityItemCategory, id)
	}
	return c, err
}

func (r *Repository) CreateItemCategory(ctx context.Context, c ItemCategory) (ItemCategory, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO item_categories (name, description) VALUES ($1, NULLIF($2, '')) RETURNING `+categoryColumns,
		c.Name, c.Description)
	created, err := scanCategory(row)
	return created, mapWriteErr(err)
}

func (r *Repository) UpdateItemCategory(ctx context.Context, c ItemCategory) error {
	return execAffecting(ctx, r.pool, notFoundByID(EntityItemCategory, c.ID),
		`UPDATE item_categories SET name = $2, description = NULLIF($3, ''), updated_at = NOW() WHERE category_id = $1`,
		c.ID, c.Name, c.Description)
}

func (r *Repository) DeleteItemCategory(ctx context.Context, id int64) error {
	return execAffecting(ctx, r.pool, notFoundByID(EntityItemCategory, id), `DELETE FROM item_categories WHERE category_id = $1`, id)
}

// --- units of measure ---

const uomColumns = `uom_id, name, abbreviation, COALESCE(description, ''), created_at, COALESCE(updated_at, created_at)`

func scanUnit(row pgx.Row) (UnitOfMeasure, error) {
	var u UnitOfMeasure
	err := row.Scan(&u.ID, &u.Name, &u.Abbreviation, &u.Description, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r *Repository) ListUnitsOfMeasure(ctx context.Context) ([]UnitOfMeasure, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+uomColumns+` FROM unit_of_measures ORDER BY uom_id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (UnitOfMeasure, error) { return scanUnit(row) })
}

func (r *Repository) GetUnitOfMeasure(ctx context.Context, id int64) (UnitOfMeasure, error) {
	u, err := scanUnit(r.pool.QueryRow(ctx, `SELECT `+uomColumns+` FROM unit_of_measures WHERE uom_id = $1`, id))
	if db.IsNoRows(err) {
		return UnitOfMeasure{}, notFoundByID(EntityUnitOfMeasure, id)
	}
	return u, err
}

func (r *Repository) CreateUnitOfMeasure(ctx context.Context, u UnitOfMeasure) (UnitOfMeasure, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO unit_of_measures (name, abbreviation, description) VALUES ($1, $2, NULLIF($3, ''))
RETURNING `+uomColumns, u.Name, u.Abbreviation, u.Description)
	created, err := scanUnit(row)
	return created, mapWriteErr(err)
}

func (r *Repository) UpdateUnitOfMeasure(ctx context.Context, u UnitOfMeasure) error {
	return execAffecting(ctx, r.pool, notFoundByID(EntityUnitOfMeasure, u.ID),
		`UPDATE unit_of_measures SET name = $2, abbreviation = $3, description = NULLIF($4, ''), updated_at = NOW() WHERE uom_id = $1`,
		u.ID, u.Name, u.Abbreviation, u.Description)
}

func (r *Repository) DeleteUnitOfMeasure(ctx context.Context, id int64) error {
	return execAffecting(ctx, r.pool, notFoundByID(EntityUnitOfMeasure, id), `DELETE FROM unit_of_measures WHERE uom_id = $1`, id)
}

// --- items ---

const itemColumns = `item_id, item_code, name, COALESCE(description, ''), category, vendor_id, owner_department,
has_barcode, COALESCE(barcode, ''), COALESCE(image_path, ''), unit_of_measure, quantity, low_stock_threshold,
created_at, COALESCE(updated_at, created_at)`

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.ItemCode, &it.Name, &it.Description, &it.CategoryID, &it.VendorID, &it.OwnerDepartmentID,
		&it.HasBarcode, &it.Barcode, &it.ImagePath, &it.UnitOfMeasureID, &it.Quantity, &it.LowStockThreshold,
		&it.CreatedAt, &it.UpdatedAt)
	return it, err
}

func (r *Repository) queryItems(ctx context.Context, where string, args ...any) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+itemColumns+` FROM items `+where+` ORDER BY item_id`, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Item, error) { return scanItem(row) })
}

func (r *Repository) ListItems(ctx context.Context) ([]Item, error) {
	return r.queryItems(ctx, "")
}

func (r *Repository) ListItemsWithoutBarcode(ctx context.Context) ([]Item, error) {
	return r.queryItems(ctx, "WHERE has_barcode = FALSE")
}

func (r *Repository) ListLowStockItems(ctx context.Context) ([]Item, error) {
	return r.queryItems(ctx, "WHERE quantity < low_stock_threshold")
}

func (r *Repository) GetItem(ctx context.Context, id int64) (Item, error) {
	it, err := scanItem(r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE item_id = $1`, id))
	if db.IsNoRows(err) {
		return Item{}, notFoundByID(EntityItem, id)
	}
	return it, err
}

func (r *Repository) GetItemByCode(ctx context.Context, code string) (Item, error) {
	it, err := scanItem(r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE item_code = $1`, code))
	if db.IsNoRows(err) {
		return Item{}, &NotFoundError{Entity: EntityItem, Field: "item_code", Key: code}
	}
	return it, err
}

func (r *Repository) GetItemByBarcode(ctx context.Context, barcode string) (Item, error) {
	it, err := scanItem(r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE barcode = $1 ORDER BY item_id LIMIT 1`, barcode))
	if db.IsNoRows(err) {
		return Item{}, &NotFoundError{Entity: EntityItem, Field: "barcode", Key: barcode}
	}
	return it, err
}

func (r *Repository) CreateItem(ctx context.Context, it Item) (Item, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO items (item_code, name, description, category, vendor_id, owner_department,
has_barcode, barcode, image_path, unit_of_measure, quantity, low_stock_threshold)
VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''), $10, $11, $12)
RETURNING `+itemColumns,
		it.ItemCode, it.Name, it.Description, it.CategoryID, it.VendorID, it.OwnerDepartmentID,
		it.HasBarcode, it.Barcode, it.ImagePath, it.UnitOfMeasureID, it.Quantity, it.LowStockThreshold)
	created, err := scanItem(row)
	return created, mapWriteErr(err)
}

// UpdateItem writes descriptive fields only; quantity is owned by the stock ledger.
func (r *Repository) UpdateItem(ctx context.Context, it Item) error {
	return execAffecting(ctx, r.pool, notFoundByID(EntityItem, it.ID),
		`UPDATE items SET item_code = $2, name = $3, description = NULLIF($4, ''), category = $5, vendor_id = $6,
owner_department = $7, has_barcode = $8, barcode = NULLIF($9, ''), image_path = NULLIF($10, ''), unit_of_measure = $11,
low_stock_threshold = $12, updated_at = NOW() WHERE item_id = $1`,
		it.ID, it.ItemCode, it.Name, it.Description, it.CategoryID, it.VendorID, it.OwnerDepartmentID,
		it.HasBarcode, it.Barcode, it.ImagePath, it.UnitOfMeasureID, it.LowStockThreshold)
}

func (r *Repository) DeleteItem(ctx context.Context, id int64) error {
	return execAffecting(ctx, r.pool, notFoundByID(EntityItem, id), `DELETE FROM items WHERE item_id = $1`, id)
}
