package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/BnB-Initivatives/stox-prod-test/internal/catalog"
	"github.com/BnB-Initivatives/stox-prod-test/internal/shared"
)

var fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

type memoryState struct {
	items         map[int64]catalog.Item
	checkouts     map[int64]Checkout
	checkoutLines map[int64]CheckoutLine
	receipts      map[int64]Receipt
	receiptLines  map[int64]ReceiptLine
	logs          map[int64]LogEntry
	nextID        int64
}

func (s *memoryState) clone() *memoryState {
	c := &memoryState{
		items:         make(map[int64]catalog.Item, len(s.items)),
		checkouts:     make(map[int64]Checkout, len(s.checkouts)),
		checkoutLines: make(map[int64]CheckoutLine, len(s.checkoutLines)),
		receipts:      make(map[int64]Receipt, len(s.receipts)),
		receiptLines:  make(map[int64]ReceiptLine, len(s.receiptLines)),
		logs:          make(map[int64]LogEntry, len(s.logs)),
		nextID:        s.nextID,
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.checkouts {
		c.checkouts[k] = v
	}
	for k, v := range s.checkoutLines {
		c.checkoutLines[k] = v
	}
	for k, v := range s.receipts {
		c.receipts[k] = v
	}
	for k, v := range s.receiptLines {
		c.receiptLines[k] = v
	}
	for k, v := range s.logs {
		c.logs[k] = v
	}
	return c
}

func (s *memoryState) id() int64 {
	s.nextID++
	return s.nextID
}

// memoryRepo commits a transaction by swapping in its working copy, so a
// failed callback leaves no trace.
type memoryRepo struct {
	mu          sync.Mutex
	state       *memoryState
	employees   map[int64]catalog.Employee
	departments map[int64]catalog.Department
	vendors     map[int64]catalog.Vendor

	failDelta map[int64]error
	failLock  error
	locks     [][]int64
	beforeTx  func()
}

type memoryTx struct {
	repo *memoryRepo
	st   *memoryState
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		state: &memoryState{
			items:         map[int64]catalog.Item{},
			checkouts:     map[int64]Checkout{},
			checkoutLines: map[int64]CheckoutLine{},
			receipts:      map[int64]Receipt{},
			receiptLines:  map[int64]ReceiptLine{},
			logs:          map[int64]LogEntry{},
			nextID:        100,
		},
		employees:   map[int64]catalog.Employee{7: {ID: 7, EmployeeNumber: "00000007", FirstName: "Ada", LastName: "Byrne", DepartmentID: 3}},
		departments: map[int64]catalog.Department{3: {ID: 3, Name: "Maintenance"}},
		vendors:     map[int64]catalog.Vendor{11: {ID: 11, Name: "Acme Supply"}},
		failDelta:   map[int64]error{},
	}
}

func (r *memoryRepo) addItem(item catalog.Item) catalog.Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item.CategoryID == 0 {
		item.CategoryID = 4
	}
	if item.UnitOfMeasureID == 0 {
		item.UnitOfMeasureID = 2
	}
	r.state.items[item.ID] = item
	return item
}

func (r *memoryRepo) quantity(itemID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.items[itemID].Quantity
}

func (r *memoryRepo) setQuantity(itemID int64, qty int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it := r.state.items[itemID]
	it.Quantity = qty
	r.state.items[itemID] = it
}

func (r *memoryRepo) failItem(itemID int64, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.failDelta, itemID)
		return
	}
	r.failDelta[itemID] = err
}

func (r *memoryRepo) counts() (headers, lines, logs int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.state.checkouts) + len(r.state.receipts),
		len(r.state.checkoutLines) + len(r.state.receiptLines),
		len(r.state.logs)
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r.beforeTx != nil {
		r.beforeTx()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	work := r.state.clone()
	if err := fn(ctx, &memoryTx{repo: r, st: work}); err != nil {
		return err
	}
	r.state = work
	return nil
}

func (r *memoryRepo) GetCheckout(ctx context.Context, id int64) (Checkout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return readCheckout(r.state, id)
}

func (r *memoryRepo) ListCheckouts(ctx context.Context) ([]Checkout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Checkout
	for id := range r.state.checkouts {
		c, _ := readCheckout(r.state, id)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *memoryRepo) GetReceipt(ctx context.Context, id int64) (Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return readReceipt(r.state, id)
}

func (r *memoryRepo) ListReceipts(ctx context.Context) ([]Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Receipt
	for id := range r.state.receipts {
		rec, _ := readReceipt(r.state, id)
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *memoryRepo) GetAdjustmentLog(ctx context.Context, id int64) (LogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.state.logs[id]
	if !ok {
		return LogEntry{}, fmt.Errorf("%w: adjustment log %d", ErrNotFound, id)
	}
	return e, nil
}

func (r *memoryRepo) ListAdjustmentLogs(ctx context.Context, filter LogFilter) ([]LogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []LogEntry
	for _, e := range r.state.logs {
		if filter.ItemID != 0 && e.ItemID != filter.ItemID {
			continue
		}
		if filter.Type != "" && e.AdjustmentType != filter.Type {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *memoryRepo) ListLowStock(ctx context.Context) ([]StockLevel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []StockLevel{}
	for _, it := range r.state.items {
		if it.Quantity < it.LowStockThreshold {
			out = append(out, levelOf(it))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out, nil
}

func levelOf(it catalog.Item) StockLevel {
	return StockLevel{ItemID: it.ID, ItemCode: it.ItemCode, Name: it.Name, Quantity: it.Quantity, LowStockThreshold: it.LowStockThreshold}
}

func readCheckout(st *memoryState, id int64) (Checkout, error) {
	c, ok := st.checkouts[id]
	if !ok {
		return Checkout{}, fmt.Errorf("%w: checkout transaction %d", ErrNotFound, id)
	}
	c.Lines = nil
	for _, l := range st.checkoutLines {
		if l.TransactionID == id {
			c.Lines = append(c.Lines, l)
		}
	}
	sort.Slice(c.Lines, func(i, j int) bool { return c.Lines[i].LineNumber < c.Lines[j].LineNumber })
	return c, nil
}

func readReceipt(st *memoryState, id int64) (Receipt, error) {
	r, ok := st.receipts[id]
	if !ok {
		return Receipt{}, fmt.Errorf("%w: scanned invoice %d", ErrNotFound, id)
	}
	r.Lines = nil
	for _, l := range st.receiptLines {
		if l.ScanID == id {
			r.Lines = append(r.Lines, l)
		}
	}
	sort.Slice(r.Lines, func(i, j int) bool { return r.Lines[i].LineNumber < r.Lines[j].LineNumber })
	return r, nil
}

var errForeignKey = errors.New("foreign key violation")

func (t *memoryTx) InsertCheckout(ctx context.Context, h Checkout) (Checkout, error) {
	h.ID = t.st.id()
	h.CreatedAt, h.UpdatedAt = fixedNow, fixedNow
	h.Lines = nil
	t.st.checkouts[h.ID] = h
	return h, nil
}

func (t *memoryTx) InsertCheckoutLine(ctx context.Context, l CheckoutLine) (CheckoutLine, error) {
	if _, ok := t.st.items[l.ItemID]; !ok {
		return CheckoutLine{}, errForeignKey
	}
	for _, existing := range t.st.checkoutLines {
		if existing.TransactionID == l.TransactionID && existing.LineNumber == l.LineNumber {
			return CheckoutLine{}, errors.New("duplicate line number")
		}
	}
	l.ID = t.st.id()
	t.st.checkoutLines[l.ID] = l
	return l, nil
}

func (t *memoryTx) GetCheckout(ctx context.Context, id int64) (Checkout, error) {
	return readCheckout(t.st, id)
}

func (t *memoryTx) InsertReceipt(ctx context.Context, h Receipt) (Receipt, error) {
	h.ID = t.st.id()
	h.CreatedAt, h.UpdatedAt = fixedNow, fixedNow
	h.Lines = nil
	t.st.receipts[h.ID] = h
	return h, nil
}

func (t *memoryTx) InsertReceiptLine(ctx context.Context, l ReceiptLine) (ReceiptLine, error) {
	if _, ok := t.st.items[l.ItemID]; !ok {
		return ReceiptLine{}, errForeignKey
	}
	l.ID = t.st.id()
	t.st.receiptLines[l.ID] = l
	return l, nil
}

func (t *memoryTx) GetReceipt(ctx context.Context, id int64) (Receipt, error) {
	return readReceipt(t.st, id)
}

func (t *memoryTx) LockItems(ctx context.Context, itemIDs []int64) error {
	if t.repo.failLock != nil {
		return t.repo.failLock
	}
	t.repo.locks = append(t.repo.locks, append([]int64(nil), itemIDs...))
	return nil
}

func (t *memoryTx) ApplyStockDelta(ctx context.Context, itemID int64, delta int) (StockLevel, error) {
	if err := t.repo.failDelta[itemID]; err != nil {
		return StockLevel{}, err
	}
	it, ok := t.st.items[itemID]
	if !ok || it.Quantity+delta < 0 {
		return StockLevel{}, errStockGuard
	}
	it.Quantity += delta
	t.st.items[itemID] = it
	return levelOf(it), nil
}

func (t *memoryTx) GetStockLevel(ctx context.Context, itemID int64) (StockLevel, error) {
	it, ok := t.st.items[itemID]
	if !ok {
		return StockLevel{}, fmt.Errorf("%w: item %d", ErrNotFound, itemID)
	}
	return levelOf(it), nil
}

func (t *memoryTx) InsertLog(ctx context.Context, e LogEntry) (LogEntry, error) {
	for _, existing := range t.st.logs {
		if sameRef(existing.CheckoutItemID, e.CheckoutItemID) || sameRef(existing.ScannedInvoiceItemID, e.ScannedInvoiceItemID) {
			return LogEntry{}, ErrAdjustmentRecorded
		}
	}
	e.ID = t.st.id()
	t.st.logs[e.ID] = e
	return e, nil
}

func sameRef(a, b *int64) bool {
	return a != nil && b != nil && *a == *b
}

func (t *memoryTx) LoggedLineIDs(ctx context.Context, kind Kind, headerID int64) (map[int64]bool, error) {
	out := map[int64]bool{}
	for _, e := range t.st.logs {
		switch {
		case kind == KindCheckout && e.CheckoutItemID != nil:
			if t.st.checkoutLines[*e.CheckoutItemID].TransactionID == headerID {
				out[*e.CheckoutItemID] = true
			}
		case kind == KindReceipt && e.ScannedInvoiceItemID != nil:
			if t.st.receiptLines[*e.ScannedInvoiceItemID].ScanID == headerID {
				out[*e.ScannedInvoiceItemID] = true
			}
		}
	}
	return out, nil
}

// memoryCatalog reads committed items from the repo, like the real catalog
// reads committed rows.
type memoryCatalog struct {
	repo *memoryRepo
}

func (c memoryCatalog) GetDepartment(ctx context.Context, id int64) (catalog.Department, error) {
	d, ok := c.repo.departments[id]
	if !ok {
		return catalog.Department{}, &catalog.NotFoundError{Entity: catalog.EntityDepartment, Key: id}
	}
	return d, nil
}

func (c memoryCatalog) GetEmployee(ctx context.Context, id int64) (catalog.Employee, error) {
	e, ok := c.repo.employees[id]
	if !ok {
		return catalog.Employee{}, &catalog.NotFoundError{Entity: catalog.EntityEmployee, Key: id}
	}
	return e, nil
}

func (c memoryCatalog) GetItemByID(ctx context.Context, id int64) (catalog.Item, error) {
	c.repo.mu.Lock()
	defer c.repo.mu.Unlock()
	it, ok := c.repo.state.items[id]
	if !ok {
		return catalog.Item{}, &catalog.NotFoundError{Entity: catalog.EntityItem, Key: id}
	}
	return it, nil
}

func (c memoryCatalog) GetItemByCode(ctx context.Context, code string) (catalog.Item, error) {
	c.repo.mu.Lock()
	defer c.repo.mu.Unlock()
	for _, it := range c.repo.state.items {
		if it.ItemCode == code {
			return it, nil
		}
	}
	return catalog.Item{}, &catalog.NotFoundError{Entity: catalog.EntityItem, Field: "item_code", Key: code}
}

func (c memoryCatalog) GetVendorByName(ctx context.Context, name string) (catalog.Vendor, error) {
	for _, v := range c.repo.vendors {
		if v.Name == name {
			return v, nil
		}
	}
	return catalog.Vendor{}, &catalog.NotFoundError{Entity: catalog.EntityVendor, Field: "name", Key: name}
}

type recordingNotifier struct {
	mu      sync.Mutex
	low     [][]StockLevel
	pending []int64
}

func (n *recordingNotifier) LowStock(ctx context.Context, levels []StockLevel) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.low = append(n.low, levels)
	return nil
}

func (n *recordingNotifier) AdjustmentsPending(ctx context.Context, kind Kind, id int64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pending = append(n.pending, id)
	return nil
}

type recordingAudit struct {
	mu   sync.Mutex
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return nil
}

type memoryIdempotency struct {
	mu      sync.Mutex
	results map[string][]byte
	claimed map[string]time.Time
}

func newMemoryIdempotency() *memoryIdempotency {
	return &memoryIdempotency{results: map[string][]byte{}, claimed: map[string]time.Time{}}
}

func (m *memoryIdempotency) Claim(ctx context.Context, key, module string) error {
	return m.claimAt(key, module, fixedNow)
}

// claimAt records a claim made at the given time.
func (m *memoryIdempotency) claimAt(key, module string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := module + "/" + key
	if _, ok := m.claimed[k]; ok {
		return shared.ErrIdempotencyConflict
	}
	m.claimed[k] = at
	return nil
}

func (m *memoryIdempotency) Result(ctx context.Context, key, module string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.results[module+"/"+key]
	return raw, ok, nil
}

func (m *memoryIdempotency) Reclaim(ctx context.Context, key, module string, staleBefore time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := module + "/" + key
	at, ok := m.claimed[k]
	if !ok || m.results[k] != nil || !at.Before(staleBefore) {
		return false, nil
	}
	m.claimed[k] = fixedNow
	return true, nil
}

func (m *memoryIdempotency) Complete(ctx context.Context, key, module string, result []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[module+"/"+key] = result
	return nil
}

func (m *memoryIdempotency) Release(ctx context.Context, key, module string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.claimed, module+"/"+key)
	delete(m.results, module+"/"+key)
	return nil
}

type fixture struct {
	repo     *memoryRepo
	notifier *recordingNotifier
	audit    *recordingAudit
	idem     *memoryIdempotency
	svc      *Service
}

func newFixture(cfg ServiceConfig, cache *StockCache) *fixture {
	repo := newMemoryRepo()
	f := &fixture{
		repo:     repo,
		notifier: &recordingNotifier{},
		audit:    &recordingAudit{},
		idem:     newMemoryIdempotency(),
	}
	cfg.Now = func() time.Time { return fixedNow }
	f.svc = NewService(repo, cfg, Dependencies{
		Catalog:     memoryCatalog{repo: repo},
		Audit:       f.audit,
		Idempotency: f.idem,
		Notifier:    f.notifier,
		Cache:       cache,
	})
	return f
}
