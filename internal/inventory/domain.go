package inventory

import "time"

// AdjustmentType classifies a stock adjustment log entry.
type AdjustmentType string

const (
	// AdjustmentCheckout is written for every checkout line.
	AdjustmentCheckout AdjustmentType = "checkout"
	// AdjustmentReceipt is written for every scanned invoice line.
	AdjustmentReceipt AdjustmentType = "received via scanned invoice"
	// AdjustmentManual is written for stock corrections outside both workflows.
	AdjustmentManual AdjustmentType = "manual"
)

// Valid reports whether t is a known adjustment type.
func (t AdjustmentType) Valid() bool {
	switch t {
	case AdjustmentCheckout, AdjustmentReceipt, AdjustmentManual:
		return true
	}
	return false
}

// Kind names the transaction family a header belongs to.
type Kind string

const (
	KindCheckout Kind = "checkout"
	KindReceipt  Kind = "receipt"
)

// Checkout is the header of items issued to a department.
type Checkout struct {
	ID           int64          `json:"transaction_id"`
	EmployeeID   int64          `json:"employee_id"`
	DepartmentID int64          `json:"department_id"`
	TotalItems   int            `json:"total_items"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Lines        []CheckoutLine `json:"checkout_items"`
}

// CheckoutLine is one item issued within a checkout. Category and unit are
// copied from the item when the line is written.
type CheckoutLine struct {
	ID              int64 `json:"checkout_item_id"`
	TransactionID   int64 `json:"transaction_id"`
	LineNumber      int   `json:"line_number"`
	ItemID          int64 `json:"item_id"`
	CategoryID      int64 `json:"category_id"`
	UnitOfMeasureID int64 `json:"unit_of_measure_id"`
	Quantity        int   `json:"quantity"`
}

// Receipt is the header of a scanned vendor invoice.
type Receipt struct {
	ID            int64         `json:"scan_id"`
	InvoiceNumber string        `json:"invoice_number"`
	VendorID      int64         `json:"vendor_id"`
	ScannedBy     int64         `json:"scanned_by"`
	ImageFilePath string        `json:"image_file_path,omitempty"`
	TotalItems    int           `json:"total_items"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	Lines         []ReceiptLine `json:"scanned_invoice_items"`
}

// ReceiptLine is one item restocked by a receipt.
type ReceiptLine struct {
	ID         int64  `json:"scanned_invoice_item_id"`
	ScanID     int64  `json:"scan_id"`
	LineNumber int    `json:"line_number"`
	ItemID     int64  `json:"item_id"`
	ItemCode   string `json:"item_code"`
	Quantity   int    `json:"quantity"`
}

// LogEntry is an immutable record of one stock adjustment. At most one of
// CheckoutItemID and ScannedInvoiceItemID is set, matching AdjustmentType.
type LogEntry struct {
	ID                   int64          `json:"log_id"`
	ItemID               int64          `json:"item_id"`
	OldQuantity          int            `json:"old_quantity"`
	NewQuantity          int            `json:"new_quantity"`
	QuantityChanged      int            `json:"quantity_changed"`
	AdjustmentType       AdjustmentType `json:"adjustment_type"`
	AdjustedAt           time.Time      `json:"adjusted_at"`
	CheckoutItemID       *int64         `json:"checkout_item_id"`
	ScannedInvoiceItemID *int64         `json:"scanned_invoice_item_id"`
	Note                 string         `json:"note,omitempty"`
}

// LogFilter narrows ListAdjustmentLogs. Zero values match everything.
type LogFilter struct {
	ItemID int64
	Type   AdjustmentType
	Limit  int
}

// StockLevel is an item's current quantity against its alert threshold.
type StockLevel struct {
	ItemID            int64  `json:"item_id"`
	ItemCode          string `json:"item_code"`
	Name              string `json:"name"`
	Quantity          int    `json:"quantity"`
	LowStockThreshold int    `json:"low_stock_threshold"`
}

// IsLow reports whether the level is below the alert threshold.
func (s StockLevel) IsLow() bool {
	return s.Quantity < s.LowStockThreshold
}

// CheckoutRequest issues items to a department on behalf of an employee.
type CheckoutRequest struct {
	EmployeeID   int64                 `json:"employee_id"`
	DepartmentID int64                 `json:"department_id"`
	TotalItems   *int                  `json:"total_items,omitempty"`
	Lines        []CheckoutLineRequest `json:"checkout_items"`

	// IdempotencyKey deduplicates client retries when set.
	IdempotencyKey string `json:"-"`
}

// CheckoutLineRequest asks for Quantity units of ItemID.
type CheckoutLineRequest struct {
	ItemID   int64 `json:"item_id"`
	Quantity int   `json:"quantity"`
}

// ReceiptRequest restocks items from a scanned vendor invoice.
type ReceiptRequest struct {
	InvoiceNumber string               `json:"invoice_number"`
	VendorName    string               `json:"vendor_name"`
	ScannedBy     int64                `json:"scanned_by"`
	ImageFilePath string               `json:"image_file_path,omitempty"`
	Lines         []ReceiptLineRequest `json:"scanned_invoice_items"`

	IdempotencyKey string `json:"-"`
}

// ReceiptLineRequest adds Quantity units of the item with ItemCode.
type ReceiptLineRequest struct {
	ItemCode string `json:"item_code"`
	Quantity int    `json:"quantity"`
}

// ManualAdjustmentRequest corrects stock outside the two workflows.
type ManualAdjustmentRequest struct {
	ItemID int64  `json:"item_id"`
	Delta  int    `json:"delta"`
	Note   string `json:"note"`
}

// Result identifies the header a process call committed.
type Result struct {
	Kind     Kind  `json:"kind"`
	ID       int64 `json:"id"`
	Replayed bool  `json:"replayed,omitempty"`
}
