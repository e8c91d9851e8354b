package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BnB-Initivatives/stox-prod-test/internal/shared"
)

type fixture struct {
	svc      *Service
	store    *memoryStore
	inv      *countingInvalidator
	dept     Department
	category ItemCategory
	unit     UnitOfMeasure
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := newMemoryStore()
	inv := &countingInvalidator{}
	svc := NewService(store, inv, nil)
	ctx := context.Background()

	dept, err := svc.CreateDepartment(ctx, DepartmentInput{Name: "Maintenance"})
	require.NoError(t, err)
	cat, err := svc.CreateItemCategory(ctx, ItemCategoryInput{Name: "Fasteners"})
	require.NoError(t, err)
	unit, err := svc.CreateUnitOfMeasure(ctx, UnitOfMeasureInput{Name: "Piece", Abbreviation: "pc"})
	require.NoError(t, err)
	return fixture{svc: svc, store: store, inv: inv, dept: dept, category: cat, unit: unit}
}

func (f fixture) itemInput(code string) ItemInput {
	return ItemInput{
		ItemCode:          code,
		Name:              "Hex bolt " + code,
		CategoryID:        f.category.ID,
		OwnerDepartmentID: f.dept.ID,
		UnitOfMeasureID:   f.unit.ID,
		Quantity:          10,
		LowStockThreshold: 5,
	}
}

func TestCreateItemRejectsDuplicateCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateItem(ctx, f.itemInput("B-100"))
	require.NoError(t, err)

	_, err = f.svc.CreateItem(ctx, f.itemInput("B-100"))
	require.ErrorIs(t, err, ErrDuplicate)
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestCreateItemUnknownReferences(t *testing.T) {
	f := newFixture(t)
	in := f.itemInput("B-200")
	in.CategoryID = 999
	vendor := int64(555)
	in.VendorID = &vendor

	_, err := f.svc.CreateItem(context.Background(), in)
	require.ErrorIs(t, err, ErrInvalidReference)
	require.ErrorIs(t, err, shared.ErrUnprocessable)

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	require.Contains(t, err.Error(), "Item Category with id 999 not found")
	require.Contains(t, err.Error(), "Vendor with id 555 not found")
}

func TestCreateItemValidation(t *testing.T) {
	f := newFixture(t)
	in := f.itemInput("")
	in.Barcode = "12ab"

	_, err := f.svc.CreateItem(context.Background(), in)
	require.ErrorIs(t, err, ErrValidation)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, "required", verr.Fields["item_code"])
	require.Equal(t, "numeric", verr.Fields["barcode"])
}

func TestItemCodeLengthFitsColumn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateItem(ctx, f.itemInput(strings.Repeat("C", 51)))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "max=50", verr.Fields["item_code"])

	created, err := f.svc.CreateItem(ctx, f.itemInput(strings.Repeat("C", 50)))
	require.NoError(t, err)

	long := strings.Repeat("D", 60)
	_, err = f.svc.UpdateItem(ctx, created.ID, ItemUpdate{ItemCode: &long})
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "max=50", verr.Fields["item_code"])
}

func TestUpdateItemKeepsQuantityAndInvalidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.svc.CreateItem(ctx, f.itemInput("B-300"))
	require.NoError(t, err)
	calls := f.inv.calls

	name := "Renamed"
	threshold := 20
	barcode := "0123456789012"
	updated, err := f.svc.UpdateItem(ctx, created.ID, ItemUpdate{Name: &name, LowStockThreshold: &threshold, Barcode: &barcode})
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.Name)
	require.Equal(t, 10, updated.Quantity)
	require.True(t, updated.HasBarcode)
	require.True(t, updated.IsLowStock())
	require.Equal(t, calls+1, f.inv.calls)

	low, err := f.svc.ListLowStockItems(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)

	noBarcode, err := f.svc.ListItemsWithoutBarcode(ctx)
	require.NoError(t, err)
	require.Empty(t, noBarcode)

	byBarcode, err := f.svc.GetItemByBarcode(ctx, barcode)
	require.NoError(t, err)
	require.Equal(t, created.ID, byBarcode.ID)
}

func TestUpdateItemCodeClash(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.svc.CreateItem(ctx, f.itemInput("A"))
	require.NoError(t, err)
	_, err = f.svc.CreateItem(ctx, f.itemInput("B"))
	require.NoError(t, err)

	code := "B"
	_, err = f.svc.UpdateItem(ctx, first.ID, ItemUpdate{ItemCode: &code})
	require.ErrorIs(t, err, ErrDuplicate)

	same := "A"
	_, err = f.svc.UpdateItem(ctx, first.ID, ItemUpdate{ItemCode: &same})
	require.NoError(t, err)
}

func TestGetItemByBarcodeRejectsMalformed(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GetItemByBarcode(context.Background(), "12345678901234")
	require.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.GetItemByBarcode(context.Background(), "12-3")
	require.ErrorIs(t, err, ErrValidation)
}

func TestEmployeeNumberUniqueAndLookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	emp, err := f.svc.CreateEmployee(ctx, EmployeeInput{EmployeeNumber: "00012345", FirstName: "Ada", LastName: "Byron", DepartmentID: f.dept.ID})
	require.NoError(t, err)

	_, err = f.svc.CreateEmployee(ctx, EmployeeInput{EmployeeNumber: "00012345", FirstName: "Other", LastName: "Person", DepartmentID: f.dept.ID})
	require.ErrorIs(t, err, ErrDuplicate)

	found, err := f.svc.GetEmployeeByNumber(ctx, "00012345")
	require.NoError(t, err)
	require.Equal(t, emp.ID, found.ID)

	_, err = f.svc.CreateEmployee(ctx, EmployeeInput{EmployeeNumber: "1", FirstName: "No", LastName: "Dept", DepartmentID: 404})
	require.ErrorIs(t, err, ErrInvalidReference)

	missing := int64(404)
	_, err = f.svc.UpdateEmployee(ctx, emp.ID, EmployeeUpdate{DepartmentID: &missing})
	require.ErrorIs(t, err, ErrInvalidReference)
}

func TestLookupMissesAreNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.GetVendorByName(ctx, "Acme")
	require.ErrorIs(t, err, ErrNotFound)
	require.EqualError(t, err, "Vendor with name Acme not found")

	_, err = f.svc.GetItemByCode(ctx, "X-1")
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.EqualError(t, err, "Item with item_code X-1 not found")

	_, err = f.svc.GetEmployee(ctx, 77)
	require.True(t, IsNotFound(err))
	require.EqualError(t, err, "Employee with id 77 not found")
}

func TestUpdateDepartmentAppliesOnlySetFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	desc := "Plant upkeep"

	updated, err := f.svc.UpdateDepartment(ctx, f.dept.ID, DepartmentUpdate{Description: &desc})
	require.NoError(t, err)
	require.Equal(t, "Maintenance", updated.Name)
	require.Equal(t, desc, updated.Description)

	empty := ""
	_, err = f.svc.UpdateDepartment(ctx, f.dept.ID, DepartmentUpdate{Name: &empty})
	require.ErrorIs(t, err, ErrValidation)
}
