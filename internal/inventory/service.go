package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/BnB-Initivatives/stox-prod-test/internal/catalog"
	"github.com/BnB-Initivatives/stox-prod-test/internal/shared"
)

// Catalog resolves the entities a transaction references. Misses are
// reported as catalog.NotFoundError.
type Catalog interface {
	GetDepartment(ctx context.Context, id int64) (catalog.Department, error)
	GetEmployee(ctx context.Context, id int64) (catalog.Employee, error)
	GetItemByID(ctx context.Context, id int64) (catalog.Item, error)
	GetItemByCode(ctx context.Context, code string) (catalog.Item, error)
	GetVendorByName(ctx context.Context, name string) (catalog.Vendor, error)
}

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetCheckout(ctx context.Context, id int64) (Checkout, error)
	ListCheckouts(ctx context.Context) ([]Checkout, error)
	GetReceipt(ctx context.Context, id int64) (Receipt, error)
	ListReceipts(ctx context.Context) ([]Receipt, error)
	GetAdjustmentLog(ctx context.Context, id int64) (LogEntry, error)
	ListAdjustmentLogs(ctx context.Context, filter LogFilter) ([]LogEntry, error)
	ListLowStock(ctx context.Context) ([]StockLevel, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort remembers which client keys were already processed.
type IdempotencyPort interface {
	Claim(ctx context.Context, key, module string) error
	Result(ctx context.Context, key, module string) ([]byte, bool, error)
	// Reclaim takes over an unfinished claim made before staleBefore and
	// reports whether it did. Only one caller can win a given claim.
	Reclaim(ctx context.Context, key, module string, staleBefore time.Time) (bool, error)
	Complete(ctx context.Context, key, module string, result []byte) error
	Release(ctx context.Context, key, module string) error
}

// DefaultIdempotencyClaimTTL bounds how long an unfinished claim blocks
// retries with the same key.
const DefaultIdempotencyClaimTTL = 2 * time.Minute

// Notifier hands follow-up work to the background queue.
type Notifier interface {
	LowStock(ctx context.Context, levels []StockLevel) error
	AdjustmentsPending(ctx context.Context, kind Kind, id int64) error
}

// Recorder receives engine metrics.
type Recorder interface {
	IncTransaction(kind, outcome string)
	ObserveDuration(kind string, d time.Duration)
	AddUnits(direction string, units int)
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	// SplitPhases commits header and lines before applying stock changes in a
	// second transaction. A failure in the second step returns
	// *InconsistencyError and queues ResumeAdjustments.
	SplitPhases bool
	// IdempotencyClaimTTL is the age after which an unfinished claim is
	// treated as abandoned. Zero means DefaultIdempotencyClaimTTL.
	IdempotencyClaimTTL time.Duration
	Now                 func() time.Time
}

// Dependencies are the optional collaborators of Service. Catalog is required.
type Dependencies struct {
	Catalog     Catalog
	Audit       AuditPort
	Idempotency IdempotencyPort
	Notifier    Notifier
	Cache       *StockCache
	Metrics     Recorder
	Logger      *slog.Logger
}

// Service is the transaction engine.
type Service struct {
	repo     RepositoryPort
	catalog  Catalog
	audit    AuditPort
	idem     IdempotencyPort
	notifier Notifier
	cache    *StockCache
	metrics  Recorder
	logger   *slog.Logger
	split    bool
	claimTTL time.Duration
	now      func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, cfg ServiceConfig, deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	claimTTL := cfg.IdempotencyClaimTTL
	if claimTTL <= 0 {
		claimTTL = DefaultIdempotencyClaimTTL
	}
	return &Service{
		repo:     repo,
		catalog:  deps.Catalog,
		audit:    deps.Audit,
		idem:     deps.Idempotency,
		notifier: deps.Notifier,
		cache:    deps.Cache,
		metrics:  deps.Metrics,
		logger:   logger,
		split:    cfg.SplitPhases,
		claimTTL: claimTTL,
		now:      now,
	}
}

// adjustment is one committed line waiting for its ledger and log writes.
type adjustment struct {
	line   int
	lineID int64
	itemID int64
	delta  int
	ref    LogRef
}

type unitOfWork func(context.Context, TxRepository) error

// ProcessCheckout issues the requested items. TotalItems in the request is
// ignored; the header always stores the number of lines.
func (s *Service) ProcessCheckout(ctx context.Context, req CheckoutRequest) (Result, error) {
	start := s.now()
	res, err := s.idempotent(ctx, KindCheckout, req.IdempotencyKey, func() (Result, error) {
		return s.processCheckout(ctx, req)
	})
	s.observe(KindCheckout, start, err)
	return res, err
}

func (s *Service) processCheckout(ctx context.Context, req CheckoutRequest) (Result, error) {
	if err := validateCheckout(req); err != nil {
		return Result{}, err
	}
	if _, err := s.catalog.GetEmployee(ctx, req.EmployeeID); err != nil {
		return Result{}, persistence("look up employee", err)
	}
	if _, err := s.catalog.GetDepartment(ctx, req.DepartmentID); err != nil {
		return Result{}, persistence("look up department", err)
	}

	// Advisory pre-check against committed stock. The guarded update in the
	// ledger is what actually enforces it.
	items := make([]catalog.Item, len(req.Lines))
	requested := make(map[int64]int, len(req.Lines))
	for i, line := range req.Lines {
		item, err := s.catalog.GetItemByID(ctx, line.ItemID)
		if err != nil {
			return Result{}, atLine(i+1, persistence("look up item", err))
		}
		items[i] = item
		requested[item.ID] += line.Quantity
		if requested[item.ID] > item.Quantity {
			return Result{}, &InsufficientStockError{
				Line:      i + 1,
				ItemID:    item.ID,
				ItemName:  item.Name,
				Available: item.Quantity,
				Requested: requested[item.ID],
			}
		}
	}

	var committed Checkout
	var moves []Movement
	write := func(ctx context.Context, tx TxRepository) error {
		header, err := tx.InsertCheckout(ctx, Checkout{
			EmployeeID:   req.EmployeeID,
			DepartmentID: req.DepartmentID,
			TotalItems:   len(req.Lines),
		})
		if err != nil {
			return persistence("insert checkout", err)
		}
		committed.ID = header.ID
		for i, item := range items {
			_, err := tx.InsertCheckoutLine(ctx, CheckoutLine{
				TransactionID:   header.ID,
				LineNumber:      i + 1,
				ItemID:          item.ID,
				CategoryID:      item.CategoryID,
				UnitOfMeasureID: item.UnitOfMeasureID,
				Quantity:        req.Lines[i].Quantity,
			})
			if err != nil {
				return atLine(i+1, persistence("insert checkout line", err))
			}
		}
		return nil
	}
	apply := func(ctx context.Context, tx TxRepository) error {
		reread, err := tx.GetCheckout(ctx, committed.ID)
		if err != nil {
			return vanished(KindCheckout, committed.ID, err)
		}
		committed = reread
		moves, err = s.applyLines(ctx, tx, checkoutAdjustments(reread.Lines), nil)
		return err
	}
	if err := s.commit(ctx, KindCheckout, &committed.ID, write, apply); err != nil {
		return Result{}, err
	}

	s.afterCommit(ctx, moves, shared.AuditLog{
		ActorID:  committed.EmployeeID,
		Action:   "inventory:checkout",
		Entity:   "checkout_transaction",
		EntityID: strconv.FormatInt(committed.ID, 10),
		Meta: map[string]any{
			"department_id": committed.DepartmentID,
			"total_items":   committed.TotalItems,
		},
	})
	return Result{Kind: KindCheckout, ID: committed.ID}, nil
}

// ProcessReceipt restocks items from a scanned invoice. There is no upper
// bound on received quantities.
func (s *Service) ProcessReceipt(ctx context.Context, req ReceiptRequest) (Result, error) {
	start := s.now()
	res, err := s.idempotent(ctx, KindReceipt, req.IdempotencyKey, func() (Result, error) {
		return s.processReceipt(ctx, req)
	})
	s.observe(KindReceipt, start, err)
	return res, err
}

func (s *Service) processReceipt(ctx context.Context, req ReceiptRequest) (Result, error) {
	if err := validateReceipt(req); err != nil {
		return Result{}, err
	}
	vendor, err := s.catalog.GetVendorByName(ctx, strings.TrimSpace(req.VendorName))
	if err != nil {
		return Result{}, persistence("look up vendor", err)
	}
	if _, err := s.catalog.GetEmployee(ctx, req.ScannedBy); err != nil {
		return Result{}, persistence("look up employee", err)
	}
	items := make([]catalog.Item, len(req.Lines))
	for i, line := range req.Lines {
		item, err := s.catalog.GetItemByCode(ctx, strings.TrimSpace(line.ItemCode))
		if err != nil {
			return Result{}, atLine(i+1, persistence("look up item", err))
		}
		items[i] = item
	}

	var committed Receipt
	var moves []Movement
	write := func(ctx context.Context, tx TxRepository) error {
		header, err := tx.InsertReceipt(ctx, Receipt{
			InvoiceNumber: strings.TrimSpace(req.InvoiceNumber),
			VendorID:      vendor.ID,
			ScannedBy:     req.ScannedBy,
			ImageFilePath: strings.TrimSpace(req.ImageFilePath),
			TotalItems:    len(req.Lines),
		})
		if err != nil {
			return persistence("insert scanned invoice", err)
		}
		committed.ID = header.ID
		for i, item := range items {
			_, err := tx.InsertReceiptLine(ctx, ReceiptLine{
				ScanID:     header.ID,
				LineNumber: i + 1,
				ItemID:     item.ID,
				ItemCode:   item.ItemCode,
				Quantity:   req.Lines[i].Quantity,
			})
			if err != nil {
				return atLine(i+1, persistence("insert scanned invoice line", err))
			}
		}
		return nil
	}
	apply := func(ctx context.Context, tx TxRepository) error {
		reread, err := tx.GetReceipt(ctx, committed.ID)
		if err != nil {
			return vanished(KindReceipt, committed.ID, err)
		}
		committed = reread
		moves, err = s.applyLines(ctx, tx, receiptAdjustments(reread.Lines), nil)
		return err
	}
	if err := s.commit(ctx, KindReceipt, &committed.ID, write, apply); err != nil {
		return Result{}, err
	}

	s.afterCommit(ctx, moves, shared.AuditLog{
		ActorID:  committed.ScannedBy,
		Action:   "inventory:receipt",
		Entity:   "scanned_invoice",
		EntityID: strconv.FormatInt(committed.ID, 10),
		Meta: map[string]any{
			"invoice_number": committed.InvoiceNumber,
			"vendor_id":      committed.VendorID,
			"total_items":    committed.TotalItems,
		},
	})
	return Result{Kind: KindReceipt, ID: committed.ID}, nil
}

// commit runs write and apply as one transaction, or as two when split
// phases are enabled. headerID must be filled by write.
func (s *Service) commit(ctx context.Context, kind Kind, headerID *int64, write, apply unitOfWork) error {
	if !s.split {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			if err := write(ctx, tx); err != nil {
				return err
			}
			return apply(ctx, tx)
		})
	}

	if err := s.repo.WithTx(ctx, write); err != nil {
		return err
	}
	err := s.repo.WithTx(ctx, apply)
	if err == nil || errors.Is(err, ErrTransactionVanished) {
		return err
	}
	inconsistent := &InconsistencyError{Kind: kind, TransactionID: *headerID, Line: failedLine(err), Err: err}
	s.logger.Error("inventory adjustments failed after header commit",
		slog.String("kind", string(kind)),
		slog.Int64("id", *headerID),
		slog.Int("line", inconsistent.Line),
		slog.Any("error", err))
	if s.notifier != nil {
		if nerr := s.notifier.AdjustmentsPending(context.WithoutCancel(ctx), kind, *headerID); nerr != nil {
			s.logger.Warn("queue resume adjustments", slog.Int64("id", *headerID), slog.Any("error", nerr))
		}
	}
	return inconsistent
}

// applyLines moves stock and writes one log entry per line, in line order.
// Lines whose id is in skip are left alone. Item rows are locked up front in
// item_id order, whatever order the lines name them in.
func (s *Service) applyLines(ctx context.Context, tx TxRepository, adjustments []adjustment, skip map[int64]bool) ([]Movement, error) {
	if err := tx.LockItems(ctx, lockOrder(adjustments, skip)); err != nil {
		return nil, persistence("lock items", err)
	}
	ledger := NewLedger(tx)
	writer := NewLogWriter(tx, s.now)
	moves := make([]Movement, 0, len(adjustments))
	for _, a := range adjustments {
		if skip[a.lineID] {
			continue
		}
		mv, err := ledger.Adjust(ctx, a.itemID, a.delta)
		if err != nil {
			return nil, atLine(a.line, err)
		}
		if _, err := writer.Record(ctx, mv, a.ref); err != nil {
			return nil, atLine(a.line, err)
		}
		moves = append(moves, mv)
	}
	return moves, nil
}

// lockOrder returns the distinct item ids of the pending adjustments, ascending.
func lockOrder(adjustments []adjustment, skip map[int64]bool) []int64 {
	ids := make([]int64, 0, len(adjustments))
	for _, a := range adjustments {
		if !skip[a.lineID] {
			ids = append(ids, a.itemID)
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

func checkoutAdjustments(lines []CheckoutLine) []adjustment {
	out := make([]adjustment, len(lines))
	for i, l := range lines {
		out[i] = adjustment{
			line:   l.LineNumber,
			lineID: l.ID,
			itemID: l.ItemID,
			delta:  -l.Quantity,
			ref:    LogRef{Type: AdjustmentCheckout, CheckoutItemID: l.ID},
		}
	}
	return out
}

func receiptAdjustments(lines []ReceiptLine) []adjustment {
	out := make([]adjustment, len(lines))
	for i, l := range lines {
		out[i] = adjustment{
			line:   l.LineNumber,
			lineID: l.ID,
			itemID: l.ItemID,
			delta:  l.Quantity,
			ref:    LogRef{Type: AdjustmentReceipt, ScannedInvoiceItemID: l.ID},
		}
	}
	return out
}

func vanished(kind Kind, id int64, err error) error {
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: %s %d", ErrTransactionVanished, kind, id)
	}
	return persistence("re-read "+string(kind), err)
}

// ResumeAdjustments applies the stock changes of every line of a committed
// transaction that has no log entry yet. It returns the number of lines
// applied; a fully applied transaction returns 0.
func (s *Service) ResumeAdjustments(ctx context.Context, kind Kind, id int64) (int, error) {
	if id <= 0 {
		return 0, validationf("transaction id must be positive")
	}
	var moves []Movement
	var actor int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var pending []adjustment
		switch kind {
		case KindCheckout:
			header, err := tx.GetCheckout(ctx, id)
			if err != nil {
				return persistence("load checkout", err)
			}
			actor = header.EmployeeID
			pending = checkoutAdjustments(header.Lines)
		case KindReceipt:
			header, err := tx.GetReceipt(ctx, id)
			if err != nil {
				return persistence("load scanned invoice", err)
			}
			actor = header.ScannedBy
			pending = receiptAdjustments(header.Lines)
		default:
			return validationf("unknown transaction kind %q", kind)
		}
		logged, err := tx.LoggedLineIDs(ctx, kind, id)
		if err != nil {
			return persistence("list logged lines", err)
		}
		moves, err = s.applyLines(ctx, tx, pending, logged)
		return err
	})
	if err != nil {
		return 0, err
	}
	if len(moves) > 0 {
		s.afterCommit(ctx, moves, shared.AuditLog{
			ActorID:  actor,
			Action:   "inventory:resume",
			Entity:   string(kind),
			EntityID: strconv.FormatInt(id, 10),
			Meta:     map[string]any{"lines": len(moves)},
		})
	}
	return len(moves), nil
}

// PostManualAdjustment corrects an item's stock by Delta and records a
// "manual" log entry. Stock never goes below zero.
func (s *Service) PostManualAdjustment(ctx context.Context, req ManualAdjustmentRequest) (LogEntry, error) {
	note := strings.TrimSpace(req.Note)
	switch {
	case req.ItemID <= 0:
		return LogEntry{}, validationf("item_id is required")
	case req.Delta == 0:
		return LogEntry{}, validationf("delta must not be zero")
	case note == "":
		return LogEntry{}, validationf("note is required")
	}
	if _, err := s.catalog.GetItemByID(ctx, req.ItemID); err != nil {
		return LogEntry{}, persistence("look up item", err)
	}
	var entry LogEntry
	var mv Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		mv, err = NewLedger(tx).Adjust(ctx, req.ItemID, req.Delta)
		if err != nil {
			return atLine(1, err)
		}
		entry, err = NewLogWriter(tx, s.now).Record(ctx, mv, LogRef{Type: AdjustmentManual, Note: note})
		return err
	})
	if err != nil {
		return LogEntry{}, err
	}
	s.afterCommit(ctx, []Movement{mv}, shared.AuditLog{
		Action:   "inventory:manual_adjustment",
		Entity:   "item",
		EntityID: strconv.FormatInt(req.ItemID, 10),
		Meta:     map[string]any{"delta": req.Delta, "note": note, "log_id": entry.ID},
	})
	return entry, nil
}

// afterCommit runs the side effects of a committed change. The stock change
// is durable at this point so failures are only logged.
func (s *Service) afterCommit(ctx context.Context, moves []Movement, record shared.AuditLog) {
	ctx = context.WithoutCancel(ctx)
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("invalidate low stock cache", slog.Any("error", err))
	}

	latest := make(map[int64]StockLevel, len(moves))
	var order []int64
	for _, mv := range moves {
		if _, seen := latest[mv.ItemID]; !seen {
			order = append(order, mv.ItemID)
		}
		latest[mv.ItemID] = mv.Level
		if s.metrics != nil {
			s.metrics.AddUnits(direction(mv), mv.Changed())
		}
	}
	var low []StockLevel
	for _, id := range order {
		if latest[id].IsLow() {
			low = append(low, latest[id])
		}
	}
	if len(low) > 0 && s.notifier != nil {
		if err := s.notifier.LowStock(ctx, low); err != nil {
			s.logger.Warn("queue low stock alert", slog.Int("items", len(low)), slog.Any("error", err))
		}
	}

	if s.audit != nil {
		record.At = s.now().UTC()
		if err := s.audit.Record(ctx, record); err != nil {
			s.logger.Warn("record audit log", slog.String("action", record.Action), slog.Any("error", err))
		}
	}
	s.logger.Info("inventory change committed",
		slog.String("action", record.Action),
		slog.String("entity_id", record.EntityID),
		slog.Int("lines", len(moves)))
}

func direction(mv Movement) string {
	if mv.Delta < 0 {
		return "out"
	}
	return "in"
}

func (s *Service) observe(kind Kind, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncTransaction(string(kind), outcome(err))
	s.metrics.ObserveDuration(string(kind), s.now().Sub(start))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "committed"
	case errors.Is(err, ErrInconsistent):
		return "inconsistent"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, shared.ErrNotFound):
		return "not_found"
	case errors.Is(err, shared.ErrValidation):
		return "invalid"
	case errors.Is(err, shared.ErrConflict):
		return "conflict"
	}
	return "error"
}

// idempotent runs fn at most once per client key. A retry with a finished
// key replays the stored result. One still in flight is refused until its
// claim is older than the claim TTL, after which the retry takes it over.
func (s *Service) idempotent(ctx context.Context, kind Kind, key string, fn func() (Result, error)) (Result, error) {
	if key == "" || s.idem == nil {
		return fn()
	}
	module := "inventory:" + string(kind)
	if err := s.idem.Claim(ctx, key, module); err != nil {
		if !errors.Is(err, shared.ErrIdempotencyConflict) {
			return Result{}, persistence("claim idempotency key", err)
		}
		res, replayed, err := s.replayOrReclaim(ctx, key, module)
		if err != nil || replayed {
			return res, err
		}
		s.logger.Warn("took over abandoned idempotency claim",
			slog.String("key", key), slog.String("module", module))
	}

	res, err := fn()
	if err != nil {
		// An inconsistent transaction exists and will be resumed, so the key
		// stays bound to it.
		var ie *InconsistencyError
		if errors.As(err, &ie) {
			res = Result{Kind: kind, ID: ie.TransactionID}
		} else {
			if rerr := s.idem.Release(context.WithoutCancel(ctx), key, module); rerr != nil {
				s.logger.Warn("release idempotency key", slog.String("key", key), slog.Any("error", rerr))
			}
			return Result{}, err
		}
	}
	raw, merr := json.Marshal(res)
	if merr == nil {
		merr = s.idem.Complete(context.WithoutCancel(ctx), key, module, raw)
	}
	if merr != nil {
		s.logger.Warn("complete idempotency key", slog.String("key", key), slog.Any("error", merr))
	}
	return res, err
}

// replayOrReclaim handles a key that is already claimed. It returns the
// stored result when the first request finished, or replayed=false when the
// unfinished claim was stale and now belongs to the caller.
func (s *Service) replayOrReclaim(ctx context.Context, key, module string) (Result, bool, error) {
	raw, done, err := s.idem.Result(ctx, key, module)
	if err != nil {
		return Result{}, false, persistence("read idempotency key", err)
	}
	if done {
		var res Result
		if err := json.Unmarshal(raw, &res); err != nil {
			return Result{}, false, persistence("decode idempotency result", err)
		}
		res.Replayed = true
		return res, true, nil
	}
	taken, err := s.idem.Reclaim(ctx, key, module, s.now().Add(-s.claimTTL))
	if err != nil {
		return Result{}, false, persistence("reclaim idempotency key", err)
	}
	if !taken {
		return Result{}, false, ErrIdempotencyInFlight
	}
	return Result{}, false, nil
}

func validateCheckout(req CheckoutRequest) error {
	if req.EmployeeID <= 0 {
		return validationf("employee_id is required")
	}
	if req.DepartmentID <= 0 {
		return validationf("department_id is required")
	}
	if len(req.Lines) == 0 {
		return fmt.Errorf("%w: %w", ErrValidation, errEmptyLines)
	}
	for i, line := range req.Lines {
		if line.ItemID <= 0 {
			return lineError(i+1, errors.New("item_id is required"))
		}
		if line.Quantity <= 0 {
			return lineError(i+1, errInvalidQuantity)
		}
	}
	return nil
}

// Column widths of scanned_invoices and scanned_invoice_items.
const (
	maxInvoiceNumberLen = 100
	maxImagePathLen     = 255
	maxItemCodeLen      = 50
)

func validateReceipt(req ReceiptRequest) error {
	if strings.TrimSpace(req.InvoiceNumber) == "" {
		return validationf("invoice_number is required")
	}
	if utf8.RuneCountInString(req.InvoiceNumber) > maxInvoiceNumberLen {
		return validationf("invoice_number must be at most %d characters", maxInvoiceNumberLen)
	}
	if utf8.RuneCountInString(req.ImageFilePath) > maxImagePathLen {
		return validationf("image_file_path must be at most %d characters", maxImagePathLen)
	}
	if strings.TrimSpace(req.VendorName) == "" {
		return validationf("vendor_name is required")
	}
	if req.ScannedBy <= 0 {
		return validationf("scanned_by is required")
	}
	if len(req.Lines) == 0 {
		return fmt.Errorf("%w: %w", ErrValidation, errEmptyLines)
	}
	for i, line := range req.Lines {
		if strings.TrimSpace(line.ItemCode) == "" {
			return lineError(i+1, errors.New("item_code is required"))
		}
		if utf8.RuneCountInString(line.ItemCode) > maxItemCodeLen {
			return lineError(i+1, fmt.Errorf("item_code must be at most %d characters", maxItemCodeLen))
		}
		if line.Quantity <= 0 {
			return lineError(i+1, errInvalidQuantity)
		}
	}
	return nil
}

// GetTransaction returns a checkout with its lines.
func (s *Service) GetTransaction(ctx context.Context, id int64) (Checkout, error) {
	c, err := s.repo.GetCheckout(ctx, id)
	return c, persistence("get checkout", err)
}

// ListTransactions returns every checkout, newest first.
func (s *Service) ListTransactions(ctx context.Context) ([]Checkout, error) {
	list, err := s.repo.ListCheckouts(ctx)
	return list, persistence("list checkouts", err)
}

func (s *Service) GetReceipt(ctx context.Context, id int64) (Receipt, error) {
	r, err := s.repo.GetReceipt(ctx, id)
	return r, persistence("get scanned invoice", err)
}

func (s *Service) ListReceipts(ctx context.Context) ([]Receipt, error) {
	list, err := s.repo.ListReceipts(ctx)
	return list, persistence("list scanned invoices", err)
}

func (s *Service) GetAdjustmentLog(ctx context.Context, id int64) (LogEntry, error) {
	e, err := s.repo.GetAdjustmentLog(ctx, id)
	return e, persistence("get adjustment log", err)
}

// ListAdjustmentLogs returns log entries, newest first.
func (s *Service) ListAdjustmentLogs(ctx context.Context, filter LogFilter) ([]LogEntry, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, validationf("unknown adjustment type %q", filter.Type)
	}
	if filter.Limit < 0 {
		return nil, validationf("limit must not be negative")
	}
	list, err := s.repo.ListAdjustmentLogs(ctx, filter)
	return list, persistence("list adjustment logs", err)
}

// LowStockItems lists items below their threshold. The report is cached
// until the next stock change.
func (s *Service) LowStockItems(ctx context.Context) ([]StockLevel, error) {
	levels, err := s.cache.LowStock(ctx, s.repo.ListLowStock)
	return levels, persistence("list low stock", err)
}
