package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Store abstracts persistence for the service.
type Store interface {
	ListDepartments(ctx context.Context) ([]Department, error)
	GetDepartment(ctx context.Context, id int64) (Department, error)
	CreateDepartment(ctx context.Context, d Department) (Department, error)
	UpdateDepartment(ctx context.Context, d Department) error
	DeleteDepartment(ctx context.Context, id int64) error

	ListEmployees(ctx context.Context) ([]Employee, error)
	GetEmployee(ctx context.Context, id int64) (Employee, error)
	GetEmployeeByNumber(ctx context.Context, number string) (Employee, error)
	CreateEmployee(ctx context.Context, e Employee) (Employee, error)
	UpdateEmployee(ctx context.Context, e Employee) error
	DeleteEmployee(ctx context.Context, id int64) error

	ListVendors(ctx context.Context) ([]Vendor, error)
	GetVendor(ctx context.Context, id int64) (Vendor, error)
	GetVendorByName(ctx context.Context, name string) (Vendor, error)
	CreateVendor(ctx context.Context, v Vendor) (Vendor, error)
	UpdateVendor(ctx context.Context, v Vendor) error
	DeleteVendor(ctx context.Context, id int64) error

	ListItemCategories(ctx context.Context) ([]ItemCategory, error)
	GetItemCategory(ctx context.Context, id int64) (ItemCategory, error)
	CreateItemCategory(ctx context.Context, c ItemCategory) (ItemCategory, error)
	UpdateItemCategory(ctx context.Context, c ItemCategory) error
	DeleteItemCategory(ctx context.Context, id int64) error

	ListUnitsOfMeasure(ctx context.Context) ([]UnitOfMeasure, error)
	GetUnitOfMeasure(ctx context.Context, id int64) (UnitOfMeasure, error)
	CreateUnitOfMeasure(ctx context.Context, u UnitOfMeasure) (UnitOfMeasure, error)
	UpdateUnitOfMeasure(ctx context.Context, u UnitOfMeasure) error
	DeleteUnitOfMeasure(ctx context.Context, id int64) error

	ListItems(ctx context.Context) ([]Item, error)
	ListItemsWithoutBarcode(ctx context.Context) ([]Item, error)
	ListLowStockItems(ctx context.Context) ([]Item, error)
	GetItem(ctx context.Context, id int64) (Item, error)
	GetItemByCode(ctx context.Context, code string) (Item, error)
	GetItemByBarcode(ctx context.Context, barcode string) (Item, error)
	CreateItem(ctx context.Context, it Item) (Item, error)
	UpdateItem(ctx context.Context, it Item) error
	DeleteItem(ctx context.Context, id int64) error
}

// Invalidator is notified when item data that feeds stock reports changes.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Service exposes catalog lookups and maintenance.
type Service struct {
	store       Store
	validate    *validator.Validate
	invalidator Invalidator
	logger      *slog.Logger
}

// NewService builds Service. invalidator may be nil.
func NewService(store Store, invalidator Invalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, validate: newValidator(), invalidator: invalidator, logger: logger}
}

func (s *Service) invalidate(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx); err != nil {
		s.logger.Warn("catalog: invalidate stock cache", slog.Any("error", err))
	}
}

// Lookups used by the transaction engine. Each miss is a *NotFoundError.

func (s *Service) GetDepartment(ctx context.Context, id int64) (Department, error) {
	return s.store.GetDepartment(ctx, id)
}

func (s *Service) GetEmployee(ctx context.Context, id int64) (Employee, error) {
	return s.store.GetEmployee(ctx, id)
}

func (s *Service) GetEmployeeByNumber(ctx context.Context, number string) (Employee, error) {
	return s.store.GetEmployeeByNumber(ctx, number)
}

func (s *Service) GetItemByID(ctx context.Context, id int64) (Item, error) {
	return s.store.GetItem(ctx, id)
}

func (s *Service) GetItemByCode(ctx context.Context, code string) (Item, error) {
	return s.store.GetItemByCode(ctx, code)
}

// GetItemByBarcode looks up an item by its numeric barcode (at most 13 digits).
func (s *Service) GetItemByBarcode(ctx context.Context, barcode string) (Item, error) {
	if barcode == "" || len(barcode) > 13 || strings.Trim(barcode, "0123456789") != "" {
		return Item{}, invalidField("barcode", "numeric,max=13")
	}
	return s.store.GetItemByBarcode(ctx, barcode)
}

func (s *Service) GetVendor(ctx context.Context, id int64) (Vendor, error) {
	return s.store.GetVendor(ctx, id)
}

func (s *Service) GetVendorByName(ctx context.Context, name string) (Vendor, error) {
	return s.store.GetVendorByName(ctx, name)
}

func (s *Service) GetItemCategory(ctx context.Context, id int64) (ItemCategory, error) {
	return s.store.GetItemCategory(ctx, id)
}

func (s *Service) GetUnitOfMeasure(ctx context.Context, id int64) (UnitOfMeasure, error) {
	return s.store.GetUnitOfMeasure(ctx, id)
}

// Listings.

func (s *Service) ListDepartments(ctx context.Context) ([]Department, error) {
	return s.store.ListDepartments(ctx)
}

func (s *Service) ListEmployees(ctx context.Context) ([]Employee, error) {
	return s.store.ListEmployees(ctx)
}

func (s *Service) ListVendors(ctx context.Context) ([]Vendor, error) {
	return s.store.ListVendors(ctx)
}

func (s *Service) ListItemCategories(ctx context.Context) ([]ItemCategory, error) {
	return s.store.ListItemCategories(ctx)
}

func (s *Service) ListUnitsOfMeasure(ctx context.Context) ([]UnitOfMeasure, error) {
	return s.store.ListUnitsOfMeasure(ctx)
}

func (s *Service) ListItems(ctx context.Context) ([]Item, error) {
	return s.store.ListItems(ctx)
}

func (s *Service) ListItemsWithoutBarcode(ctx context.Context) ([]Item, error) {
	return s.store.ListItemsWithoutBarcode(ctx)
}

// ListLowStockItems reads straight from the store; cached reads go through
// the inventory stock report.
func (s *Service) ListLowStockItems(ctx context.Context) ([]Item, error) {
	return s.store.ListLowStockItems(ctx)
}

// Departments.

func (s *Service) CreateDepartment(ctx context.Context, in DepartmentInput) (Department, error) {
	if err := validateStruct(s.validate, in); err != nil {
		return Department{}, err
	}
	return s.store.CreateDepartment(ctx, Department{Name: strings.TrimSpace(in.Name), Description: in.Description})
}

func (s *Service) UpdateDepartment(ctx context.Context, id int64, upd DepartmentUpdate) (Department, error) {
	if err := validateStruct(s.validate, upd); err != nil {
		return Department{}, err
	}
	d, err := s.store.GetDepartment(ctx, id)
	if err != nil {
		return Department{}, err
	}
	upd.Apply(&d)
	if err := s.store.UpdateDepartment(ctx, d); err != nil {
		return Department{}, err
	}
	return s.store.GetDepartment(ctx, id)
}

func (s *Service) DeleteDepartment(ctx context.Context, id int64) error {
	return s.store.DeleteDepartment(ctx, id)
}

// Employees.

func (s *Service) CreateEmployee(ctx context.Context, in EmployeeInput) (Employee, error) {
	if err := validateStruct(s.validate, in); err != nil {
		return Employee{}, err
	}
	if err := s.ensureEmployeeNumberFree(ctx, in.EmployeeNumber, 0); err != nil {
		return Employee{}, err
	}
	if _, err := s.store.GetDepartment(ctx, in.DepartmentID); err != nil {
		return Employee{}, invalidReference(err)
	}
	return s.store.CreateEmployee(ctx, Employee{
		EmployeeNumber: in.EmployeeNumber,
		FirstName:      in.FirstName,
		MiddleName:     in.MiddleName,
		LastName:       in.LastName,
		DepartmentID:   in.DepartmentID,
	})
}

func (s *Service) UpdateEmployee(ctx context.Context, id int64, upd EmployeeUpdate) (Employee, error) {
	if err := validateStruct(s.validate, upd); err != nil {
		return Employee{}, err
	}
	e, err := s.store.GetEmployee(ctx, id)
	if err != nil {
		return Employee{}, err
	}
	if upd.EmployeeNumber != nil && *upd.EmployeeNumber != e.EmployeeNumber {
		if err := s.ensureEmployeeNumberFree(ctx, *upd.EmployeeNumber, id); err != nil {
			return Employee{}, err
		}
	}
	if upd.DepartmentID != nil {
		if _, err := s.store.GetDepartment(ctx, *upd.DepartmentID); err != nil {
			return Employee{}, invalidReference(err)
		}
	}
	upd.Apply(&e)
	if err := s.store.UpdateEmployee(ctx, e); err != nil {
		return Employee{}, err
	}
	return s.store.GetEmployee(ctx, id)
}

func (s *Service) ensureEmployeeNumberFree(ctx context.Context, number string, self int64) error {
	existing, err := s.store.GetEmployeeByNumber(ctx, number)
	switch {
	case err == nil && existing.ID != self:
		return fmt.Errorf("%w: employee_number %s already assigned", ErrDuplicate, number)
	case err == nil, IsNotFound(err):
		return nil
	default:
		return err
	}
}

func (s *Service) DeleteEmployee(ctx context.Context, id int64) error {
	return s.store.DeleteEmployee(ctx, id)
}

// Vendors.

func (s *Service) CreateVendor(ctx context.Context, in VendorInput) (Vendor, error) {
	if err := validateStruct(s.validate, in); err != nil {
		return Vendor{}, err
	}
	return s.store.CreateVendor(ctx, Vendor{Name: strings.TrimSpace(in.Name), Description: in.Description})
}

func (s *Service) UpdateVendor(ctx context.Context, id int64, upd VendorUpdate) (Vendor, error) {
	if err := validateStruct(s.validate, upd); err != nil {
		return Vendor{}, err
	}
	v, err := s.store.GetVendor(ctx, id)
	if err != nil {
		return Vendor{}, err
	}
	upd.Apply(&v)
	if err := s.store.UpdateVendor(ctx, v); err != nil {
		return Vendor{}, err
	}
	return s.store.GetVendor(ctx, id)
}

func (s *Service) DeleteVendor(ctx context.Context, id int64) error {
	return s.store.DeleteVendor(ctx, id)
}

// Item categories.

func (s *Service) CreateItemCategory(ctx context.Context, in ItemCategoryInput) (ItemCategory, error) {
	if err := validateStruct(s.validate, in); err != nil {
		return ItemCategory{}, err
	}
	return s.store.CreateItemCategory(ctx, ItemCategory{Name: strings.TrimSpace(in.Name), Description: in.Description})
}

func (s *Service) UpdateItemCategory(ctx context.Context, id int64, upd ItemCategoryUpdate) (ItemCategory, error) {
	if err := validateStruct(s.validate, upd); err != nil {
		return ItemCategory{}, err
	}
	c, err := s.store.GetItemCategory(ctx, id)
	if err != nil {
		return ItemCategory{}, err
	}
	upd.Apply(&c)
	if err := s.store.UpdateItemCategory(ctx, c); err != nil {
		return ItemCategory{}, err
	}
	return s.store.GetItemCategory(ctx, id)
}

func (s *Service) DeleteItemCategory(ctx context.Context, id int64) error {
	return s.store.DeleteItemCategory(ctx, id)
}

// Units of measure.

func (s *Service) CreateUnitOfMeasure(ctx context.Context, in UnitOfMeasureInput) (UnitOfMeasure, error) {
	if err := validateStruct(s.validate, in); err != nil {
		return UnitOfMeasure{}, err
	}
	return s.store.CreateUnitOfMeasure(ctx, UnitOfMeasure{
		Name:         strings.TrimSpace(in.Name),
		Abbreviation: strings.TrimSpace(in.Abbreviation),
		Description:  in.Description,
	})
}

func (s *Service) UpdateUnitOfMeasure(ctx context.Context, id int64, upd UnitOfMeasureUpdate) (UnitOfMeasure, error) {
	if err := validateStruct(s.validate, upd); err != nil {
		return UnitOfMeasure{}, err
	}
	u, err := s.store.GetUnitOfMeasure(ctx, id)
	if err != nil {
		return UnitOfMeasure{}, err
	}
	upd.Apply(&u)
	if err := s.store.UpdateUnitOfMeasure(ctx, u); err != nil {
		return UnitOfMeasure{}, err
	}
	return s.store.GetUnitOfMeasure(ctx, id)
}

func (s *Service) DeleteUnitOfMeasure(ctx context.Context, id int64) error {
	return s.store.DeleteUnitOfMeasure(ctx, id)
}

// Items.

func (s *Service) CreateItem(ctx context.Context, in ItemInput) (Item, error) {
	if err := validateStruct(s.validate, in); err != nil {
		return Item{}, err
	}
	it := Item{
		ItemCode:          strings.TrimSpace(in.ItemCode),
		Name:              strings.TrimSpace(in.Name),
		Description:       in.Description,
		CategoryID:        in.CategoryID,
		VendorID:          in.VendorID,
		OwnerDepartmentID: in.OwnerDepartmentID,
		HasBarcode:        in.HasBarcode || in.Barcode != "",
		Barcode:           in.Barcode,
		ImagePath:         in.ImagePath,
		UnitOfMeasureID:   in.UnitOfMeasureID,
		Quantity:          in.Quantity,
		LowStockThreshold: in.LowStockThreshold,
	}
	if err := s.ensureItemCodeFree(ctx, it.ItemCode, 0); err != nil {
		return Item{}, err
	}
	if err := s.checkItemRefs(ctx, it); err != nil {
		return Item{}, err
	}
	created, err := s.store.CreateItem(ctx, it)
	if err != nil {
		return Item{}, err
	}
	s.invalidate(ctx)
	return created, nil
}

func (s *Service) UpdateItem(ctx context.Context, id int64, upd ItemUpdate) (Item, error) {
	if err := validateStruct(s.validate, upd); err != nil {
		return Item{}, err
	}
	it, err := s.store.GetItem(ctx, id)
	if err != nil {
		return Item{}, err
	}
	if upd.ItemCode != nil && *upd.ItemCode != it.ItemCode {
		if err := s.ensureItemCodeFree(ctx, *upd.ItemCode, id); err != nil {
			return Item{}, err
		}
	}
	upd.Apply(&it)
	if it.Barcode != "" {
		it.HasBarcode = true
	}
	if err := s.checkItemRefs(ctx, it); err != nil {
		return Item{}, err
	}
	if err := s.store.UpdateItem(ctx, it); err != nil {
		return Item{}, err
	}
	s.invalidate(ctx)
	return s.store.GetItem(ctx, id)
}

func (s *Service) DeleteItem(ctx context.Context, id int64) error {
	if err := s.store.DeleteItem(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) ensureItemCodeFree(ctx context.Context, code string, self int64) error {
	existing, err := s.store.GetItemByCode(ctx, code)
	switch {
	case err == nil && existing.ID != self:
		return fmt.Errorf("%w: item_code %s already used by item %d", ErrDuplicate, code, existing.ID)
	case err == nil, IsNotFound(err):
		return nil
	default:
		return err
	}
}

// checkItemRefs resolves every foreign key an item carries.
func (s *Service) checkItemRefs(ctx context.Context, it Item) error {
	var errs []error
	if _, err := s.store.GetItemCategory(ctx, it.CategoryID); err != nil {
		errs = append(errs, err)
	}
	if _, err := s.store.GetUnitOfMeasure(ctx, it.UnitOfMeasureID); err != nil {
		errs = append(errs, err)
	}
	if _, err := s.store.GetDepartment(ctx, it.OwnerDepartmentID); err != nil {
		errs = append(errs, err)
	}
	if it.VendorID != nil {
		if _, err := s.store.GetVendor(ctx, *it.VendorID); err != nil {
			errs = append(errs, err)
		}
	}
	return invalidReference(errors.Join(errs...))
}
