package catalog

import "time"

// Department owns employees and items; checkouts are charged to one.
type Department struct {
	ID          int64     `json:"department_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Employee is a staff member who can check items out or scan invoices.
type Employee struct {
	ID             int64     `json:"employee_id"`
	EmployeeNumber string    `json:"employee_number"`
	FirstName      string    `json:"first_name"`
	MiddleName     string    `json:"middle_name,omitempty"`
	LastName       string    `json:"last_name"`
	DepartmentID   int64     `json:"department_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Vendor supplies items; receipts reference vendors by name.
type Vendor struct {
	ID          int64     `json:"vendor_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ItemCategory groups items.
type ItemCategory struct {
	ID          int64     `json:"category_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UnitOfMeasure describes how an item is counted.
type UnitOfMeasure struct {
	ID           int64     `json:"uom_id"`
	Name         string    `json:"name"`
	Abbreviation string    `json:"abbreviation"`
	Description  string    `json:"description,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Item is a stock-keeping unit. Quantity is only changed by stock movements.
type Item struct {
	ID                int64     `json:"item_id"`
	ItemCode          string    `json:"item_code"`
	Name              string    `json:"name"`
	Description       string    `json:"description,omitempty"`
	CategoryID        int64     `json:"category"`
	VendorID          *int64    `json:"vendor_id,omitempty"`
	OwnerDepartmentID int64     `json:"owner_department"`
	HasBarcode        bool      `json:"has_barcode"`
	Barcode           string    `json:"barcode,omitempty"`
	ImagePath         string    `json:"image_path,omitempty"`
	UnitOfMeasureID   int64     `json:"unit_of_measure"`
	Quantity          int       `json:"quantity"`
	LowStockThreshold int       `json:"low_stock_threshold"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// IsLowStock reports whether quantity has fallen below the alert threshold.
func (i Item) IsLowStock() bool {
	return i.Quantity < i.LowStockThreshold
}

// DepartmentInput creates a department.
type DepartmentInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=255"`
}

// DepartmentUpdate carries the fields to change; nil leaves a field untouched.
type DepartmentUpdate struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=255"`
}

// Apply copies the set fields onto d.
func (u DepartmentUpdate) Apply(d *Department) {
	if u.Name != nil {
		d.Name = *u.Name
	}
	if u.Description != nil {
		d.Description = *u.Description
	}
}

// EmployeeInput creates an employee.
type EmployeeInput struct {
	EmployeeNumber string `json:"employee_number" validate:"required,numeric,max=8"`
	FirstName      string `json:"first_name" validate:"required,max=50"`
	MiddleName     string `json:"middle_name" validate:"max=50"`
	LastName       string `json:"last_name" validate:"required,max=50"`
	DepartmentID   int64  `json:"department_id" validate:"required,gt=0"`
}

// EmployeeUpdate carries the fields to change.
type EmployeeUpdate struct {
	EmployeeNumber *string `json:"employee_number" validate:"omitempty,numeric,max=8"`
	FirstName      *string `json:"first_name" validate:"omitempty,min=1,max=50"`
	MiddleName     *string `json:"middle_name" validate:"omitempty,max=50"`
	LastName       *string `json:"last_name" validate:"omitempty,min=1,max=50"`
	DepartmentID   *int64  `json:"department_id" validate:"omitempty,gt=0"`
}

// Apply copies the set fields onto e.
func (u EmployeeUpdate) Apply(e *Employee) {
	if u.EmployeeNumber != nil {
		e.EmployeeNumber = *u.EmployeeNumber
	}
	if u.FirstName != nil {
		e.FirstName = *u.FirstName
	}
	if u.MiddleName != nil {
		e.MiddleName = *u.MiddleName
	}
	if u.LastName != nil {
		e.LastName = *u.LastName
	}
	if u.DepartmentID != nil {
		e.DepartmentID = *u.DepartmentID
	}
}

// VendorInput creates a vendor.
type VendorInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=255"`
}

// VendorUpdate carries the fields to change.
type VendorUpdate struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=255"`
}

// Apply copies the set fields onto v.
func (u VendorUpdate) Apply(v *Vendor) {
	if u.Name != nil {
		v.Name = *u.Name
	}
	if u.Description != nil {
		v.Description = *u.Description
	}
}

// ItemCategoryInput creates a category.
type ItemCategoryInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=255"`
}

// ItemCategoryUpdate carries the fields to change.
type ItemCategoryUpdate struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=255"`
}

// Apply copies the set fields onto c.
func (u ItemCategoryUpdate) Apply(c *ItemCategory) {
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.Description != nil {
		c.Description = *u.Description
	}
}

// UnitOfMeasureInput creates a unit.
type UnitOfMeasureInput struct {
	Name         string `json:"name" validate:"required,max=50"`
	Abbreviation string `json:"abbreviation" validate:"required,max=10"`
	Description  string `json:"description" validate:"max=255"`
}

// UnitOfMeasureUpdate carries the fields to change.
type UnitOfMeasureUpdate struct {
	Name         *string `json:"name" validate:"omitempty,min=1,max=50"`
	Abbreviation *string `json:"abbreviation" validate:"omitempty,min=1,max=10"`
	Description  *string `json:"description" validate:"omitempty,max=255"`
}

// Apply copies the set fields onto m.
func (u UnitOfMeasureUpdate) Apply(m *UnitOfMeasure) {
	if u.Name != nil {
		m.Name = *u.Name
	}
	if u.Abbreviation != nil {
		m.Abbreviation = *u.Abbreviation
	}
	if u.Description != nil {
		m.Description = *u.Description
	}
}

// ItemInput creates an item. Quantity seeds the opening stock.
type ItemInput struct {
	ItemCode          string `json:"item_code" validate:"required,max=50"`
	Name              string `json:"name" validate:"required,max=100"`
	Description       string `json:"description" validate:"max=255"`
	CategoryID        int64  `json:"category" validate:"required,gt=0"`
	VendorID          *int64 `json:"vendor_id" validate:"omitempty,gt=0"`
	OwnerDepartmentID int64  `json:"owner_department" validate:"required,gt=0"`
	HasBarcode        bool   `json:"has_barcode"`
	Barcode           string `json:"barcode" validate:"omitempty,numeric,max=13"`
	ImagePath         string `json:"image_path" validate:"max=255"`
	UnitOfMeasureID   int64  `json:"unit_of_measure" validate:"required,gt=0"`
	Quantity          int    `json:"quantity" validate:"gte=0"`
	LowStockThreshold int    `json:"low_stock_threshold" validate:"gte=0"`
}

// ItemUpdate carries the fields to change. Quantity is deliberately absent.
type ItemUpdate struct {
	ItemCode          *string `json:"item_code" validate:"omitempty,min=1,max=50"`
	Name              *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description       *string `json:"description" validate:"omitempty,max=255"`
	CategoryID        *int64  `json:"category" validate:"omitempty,gt=0"`
	VendorID          *int64  `json:"vendor_id" validate:"omitempty,gt=0"`
	OwnerDepartmentID *int64  `json:"owner_department" validate:"omitempty,gt=0"`
	HasBarcode        *bool   `json:"has_barcode"`
	Barcode           *string `json:"barcode" validate:"omitempty,numeric,max=13"`
	ImagePath         *string `json:"image_path" validate:"omitempty,max=255"`
	UnitOfMeasureID   *int64  `json:"unit_of_measure" validate:"omitempty,gt=0"`
	LowStockThreshold *int    `json:"low_stock_threshold" validate:"omitempty,gte=0"`
}

// Apply copies the set fields onto it.
func (u ItemUpdate) Apply(it *Item) {
	if u.ItemCode != nil {
		it.ItemCode = *u.ItemCode
	}
	if u.Name != nil {
		it.Name = *u.Name
	}
	if u.Description != nil {
		it.Description = *u.Description
	}
	if u.CategoryID != nil {
		it.CategoryID = *u.CategoryID
	}
	if u.VendorID != nil {
		v := *u.VendorID
		it.VendorID = &v
	}
	if u.OwnerDepartmentID != nil {
		it.OwnerDepartmentID = *u.OwnerDepartmentID
	}
	if u.HasBarcode != nil {
		it.HasBarcode = *u.HasBarcode
	}
	if u.Barcode != nil {
		it.Barcode = *u.Barcode
	}
	if u.ImagePath != nil {
		it.ImagePath = *u.ImagePath
	}
	if u.UnitOfMeasureID != nil {
		it.UnitOfMeasureID = *u.UnitOfMeasureID
	}
	if u.LowStockThreshold != nil {
		it.LowStockThreshold = *u.LowStockThreshold
	}
}
