package procurement

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/artha-erp/artha-erp/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetPO(ctx context.Context, id int64) (PurchaseOrder, []POItem, error)
	ListPOs(ctx context.Context, f POFilters) ([]PurchaseOrder, int, error)
	GetGRN(ctx context.Context, id int64) (GoodsReceipt, []GRNLine, error)
	ListGRNsForPO(ctx context.Context, poID int64) ([]GoodsReceipt, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates procurement flows.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency *shared.IdempotencyStore
}

// NewService constructs the procurement service.
func NewService(repo RepositoryPort, audit AuditPort, idem *shared.IdempotencyStore) *Service {
	return &Service{repo: repo, audit: audit, idempotency: idem}
}

// POItemInput describes one requested line.
type POItemInput struct {
	Description string
	Qty         float64
	UnitPrice   float64
}

// CreatePOInput describes the PO creation payload.
type CreatePOInput struct {
	Number          string
	VendorID        int64
	PODate          time.Time
	DeliveryDate    *time.Time
	IsTaxIncluded   bool
	TaxPercent      float64
	PaymentTerm     PaymentTerm
	TermDays        int
	DueDateOverride *time.Time
	Note            string
	Items           []POItemInput
}

// CreateGRNInput describes GRN creation.
type CreateGRNInput struct {
	POID       int64
	Number     string
	ReceivedAt time.Time
	Note       string
	Lines      []GRNLineInput
}

// GRNLineInput for GRN.
type GRNLineInput struct {
	POItemID    int64
	QtyReceived float64
	Note        string
}

// CreatePurchaseOrder persists header and lines in one transaction. A
// failure inserting any line rolls the header back with it.
func (s *Service) CreatePurchaseOrder(ctx context.Context, input CreatePOInput) (PurchaseOrder, []POItem, error) {
	if len(input.Items) == 0 {
		return PurchaseOrder{}, nil, fmt.Errorf("%w: minimal 1 line", ErrValidation)
	}
	if input.VendorID <= 0 {
		return PurchaseOrder{}, nil, fmt.Errorf("%w: vendor required", ErrValidation)
	}
	if input.TaxPercent < 0 {
		return PurchaseOrder{}, nil, fmt.Errorf("%w: tax percent must not be negative", ErrValidation)
	}
	switch input.PaymentTerm {
	case TermNet:
		if input.TermDays <= 0 {
			return PurchaseOrder{}, nil, fmt.Errorf("%w: NET terms require term days", ErrValidation)
		}
	case TermCBD, TermCOD:
		input.TermDays = 0
	default:
		return PurchaseOrder{}, nil, fmt.Errorf("%w: unknown payment term", ErrValidation)
	}
	if input.Number == "" {
		input.Number = generateNumber("PO")
	}
	if input.PODate.IsZero() {
		input.PODate = time.Now()
	}

	po := PurchaseOrder{
		Number:          input.Number,
		VendorID:        input.VendorID,
		Status:          POStatusDraft,
		PODate:          input.PODate,
		DeliveryDate:    input.DeliveryDate,
		IsTaxIncluded:   input.IsTaxIncluded,
		TaxPercent:      input.TaxPercent,
		PaymentTerm:     input.PaymentTerm,
		TermDays:        input.TermDays,
		DueDateOverride: input.DueDateOverride,
		Note:            input.Note,
	}
	var items []POItem
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		poID, err := tx.CreatePO(ctx, po)
		if err != nil {
			return err
		}
		po.ID = poID
		for _, line := range input.Items {
			if line.Qty <= 0 || line.UnitPrice < 0 {
				return fmt.Errorf("%w: line qty must be positive and price non-negative", ErrValidation)
			}
			item := POItem{POID: poID, Description: line.Description, Qty: line.Qty, UnitPrice: line.UnitPrice}
			if err := tx.InsertPOItem(ctx, item); err != nil {
				return err
			}
			items = append(items, item)
		}
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	s.recordAudit(ctx, "PO_CREATE", po.ID, map[string]any{"number": po.Number, "subtotal": Subtotal(items)})
	return po, items, nil
}

// GetPurchaseOrder fetches header plus lines.
func (s *Service) GetPurchaseOrder(ctx context.Context, id int64) (PurchaseOrder, []POItem, error) {
	return s.repo.GetPO(ctx, id)
}

// ListPurchaseOrders lists POs by filter.
func (s *Service) ListPurchaseOrders(ctx context.Context, f POFilters) ([]PurchaseOrder, int, error) {
	return s.repo.ListPOs(ctx, f)
}

// TransitionPurchaseOrder moves a PO through its lifecycle.
func (s *Service) TransitionPurchaseOrder(ctx context.Context, poID int64, target POStatus) error {
	po, _, err := s.repo.GetPO(ctx, poID)
	if err != nil {
		return err
	}
	if po.Status == target {
		return nil
	}
	if !CanTransition(po.Status, target) {
		return ErrInvalidState
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdatePOStatus(ctx, poID, target)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, "PO_STATUS", poID, map[string]any{"from": po.Status, "to": target})
	return nil
}

// CreateGoodsReceipt inserts a draft GRN with lines. Received quantity may
// exceed the ordered quantity.
func (s *Service) CreateGoodsReceipt(ctx context.Context, input CreateGRNInput) (GoodsReceipt, error) {
	if len(input.Lines) == 0 {
		return GoodsReceipt{}, fmt.Errorf("%w: minimal 1 line", ErrValidation)
	}
	po, poItems, err := s.repo.GetPO(ctx, input.POID)
	if err != nil {
		return GoodsReceipt{}, err
	}
	if po.Status != POStatusIssued {
		return GoodsReceipt{}, ErrInvalidState
	}
	known := make(map[int64]bool, len(poItems))
	for _, it := range poItems {
		known[it.ID] = true
	}
	if input.Number == "" {
		input.Number = generateNumber("GRN")
	}
	if input.ReceivedAt.IsZero() {
		input.ReceivedAt = time.Now()
	}

	grn := GoodsReceipt{Number: input.Number, POID: input.POID, Status: GRNStatusDraft, ReceivedAt: input.ReceivedAt, Note: input.Note}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		grnID, err := tx.CreateGRN(ctx, grn)
		if err != nil {
			return err
		}
		grn.ID = grnID
		for _, line := range input.Lines {
			if line.QtyReceived <= 0 || !known[line.POItemID] {
				return fmt.Errorf("%w: receipt line must reference a PO line with positive qty", ErrValidation)
			}
			if err := tx.InsertGRNLine(ctx, GRNLine{GRNID: grnID, POItemID: line.POItemID, QtyReceived: line.QtyReceived, Note: line.Note}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return GoodsReceipt{}, err
	}
	s.recordAudit(ctx, "GRN_CREATE", grn.ID, map[string]any{"number": grn.Number, "po_id": grn.POID})
	return grn, nil
}

// PostGoodsReceipt marks the GRN posted. Posting is idempotency-guarded so
// a retried request cannot double-post.
func (s *Service) PostGoodsReceipt(ctx context.Context, grnID int64) error {
	grn, _, err := s.repo.GetGRN(ctx, grnID)
	if err != nil {
		return err
	}
	if grn.Status != GRNStatusDraft {
		return ErrInvalidState
	}
	key := fmt.Sprintf("GRN:%s", grn.Number)
	inserted := false
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, "procurement.grn"); err != nil {
			return err
		}
		inserted = true
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateGRNStatus(ctx, grnID, GRNStatusPosted)
	})
	if err != nil {
		if inserted {
			_ = s.idempotency.Delete(ctx, key)
		}
		return err
	}
	s.recordAudit(ctx, "GRN_POST", grnID, map[string]any{"number": grn.Number})
	return nil
}

// CancelGoodsReceipt cancels a draft GRN.
func (s *Service) CancelGoodsReceipt(ctx context.Context, grnID int64) error {
	grn, _, err := s.repo.GetGRN(ctx, grnID)
	if err != nil {
		return err
	}
	if grn.Status != GRNStatusDraft {
		return ErrInvalidState
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateGRNStatus(ctx, grnID, GRNStatusCancelled)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, "GRN_CANCEL", grnID, map[string]any{"number": grn.Number})
	return nil
}

// GetGoodsReceipt fetches header plus lines.
func (s *Service) GetGoodsReceipt(ctx context.Context, id int64) (GoodsReceipt, []GRNLine, error) {
	return s.repo.GetGRN(ctx, id)
}

// ListGoodsReceipts returns receipts against a PO.
func (s *Service) ListGoodsReceipts(ctx context.Context, poID int64) ([]GoodsReceipt, error) {
	return s.repo.ListGRNsForPO(ctx, poID)
}

func (s *Service) recordAudit(ctx context.Context, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "procurement", EntityID: strconv.FormatInt(entityID, 10), Meta: meta})
}

func generateNumber(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
