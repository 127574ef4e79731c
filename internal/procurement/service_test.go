package procurement

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryProcRepo struct {
	pos      map[int64]PurchaseOrder
	poItems  map[int64][]POItem
	grns     map[int64]GoodsReceipt
	grnLines map[int64][]GRNLine
	nextID   int64
	failLine bool
}

type memoryProcTx struct {
	repo *memoryProcRepo
}

func newMemoryProcRepo() *memoryProcRepo {
	return &memoryProcRepo{
		pos:      make(map[int64]PurchaseOrder),
		poItems:  make(map[int64][]POItem),
		grns:     make(map[int64]GoodsReceipt),
		grnLines: make(map[int64][]GRNLine),
	}
}

func (r *memoryProcRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	// Snapshot so a failing callback leaves prior state intact, matching
	// the rollback behaviour of the real repository.
	posCopy := make(map[int64]PurchaseOrder, len(r.pos))
	for k, v := range r.pos {
		posCopy[k] = v
	}
	itemsCopy := make(map[int64][]POItem, len(r.poItems))
	for k, v := range r.poItems {
		itemsCopy[k] = append([]POItem(nil), v...)
	}
	grnsCopy := make(map[int64]GoodsReceipt, len(r.grns))
	for k, v := range r.grns {
		grnsCopy[k] = v
	}
	id := r.nextID

	if err := fn(ctx, &memoryProcTx{repo: r}); err != nil {
		r.pos = posCopy
		r.poItems = itemsCopy
		r.grns = grnsCopy
		r.nextID = id
		return err
	}
	return nil
}

func (r *memoryProcRepo) GetPO(_ context.Context, id int64) (PurchaseOrder, []POItem, error) {
	po, ok := r.pos[id]
	if !ok {
		return PurchaseOrder{}, nil, ErrNotFound
	}
	return po, append([]POItem(nil), r.poItems[id]...), nil
}

func (r *memoryProcRepo) ListPOs(_ context.Context, f POFilters) ([]PurchaseOrder, int, error) {
	var out []PurchaseOrder
	for _, po := range r.pos {
		if f.Status != "" && po.Status != f.Status {
			continue
		}
		out = append(out, po)
	}
	return out, len(out), nil
}

func (r *memoryProcRepo) GetGRN(_ context.Context, id int64) (GoodsReceipt, []GRNLine, error) {
	grn, ok := r.grns[id]
	if !ok {
		return GoodsReceipt{}, nil, ErrNotFound
	}
	return grn, append([]GRNLine(nil), r.grnLines[id]...), nil
}

func (r *memoryProcRepo) ListGRNsForPO(_ context.Context, poID int64) ([]GoodsReceipt, error) {
	var out []GoodsReceipt
	for _, grn := range r.grns {
		if grn.POID == poID {
			out = append(out, grn)
		}
	}
	return out, nil
}

func (t *memoryProcTx) CreatePO(_ context.Context, po PurchaseOrder) (int64, error) {
	t.repo.nextID++
	po.ID = t.repo.nextID
	t.repo.pos[po.ID] = po
	return po.ID, nil
}

func (t *memoryProcTx) InsertPOItem(_ context.Context, item POItem) error {
	if t.repo.failLine {
		return ErrValidation
	}
	item.ID = int64(len(t.repo.poItems[item.POID]) + 1)
	t.repo.poItems[item.POID] = append(t.repo.poItems[item.POID], item)
	return nil
}

func (t *memoryProcTx) UpdatePOStatus(_ context.Context, id int64, status POStatus) error {
	po, ok := t.repo.pos[id]
	if !ok {
		return ErrNotFound
	}
	po.Status = status
	t.repo.pos[id] = po
	return nil
}

func (t *memoryProcTx) CreateGRN(_ context.Context, grn GoodsReceipt) (int64, error) {
	t.repo.nextID++
	grn.ID = t.repo.nextID
	t.repo.grns[grn.ID] = grn
	return grn.ID, nil
}

func (t *memoryProcTx) InsertGRNLine(_ context.Context, line GRNLine) error {
	t.repo.grnLines[line.GRNID] = append(t.repo.grnLines[line.GRNID], line)
	return nil
}

func (t *memoryProcTx) UpdateGRNStatus(_ context.Context, id int64, status GRNStatus) error {
	grn, ok := t.repo.grns[id]
	if !ok {
		return ErrNotFound
	}
	grn.Status = status
	t.repo.grns[id] = grn
	return nil
}

func issuedPO(t *testing.T, svc *Service) (PurchaseOrder, []POItem) {
	t.Helper()
	po, items, err := svc.CreatePurchaseOrder(context.Background(), CreatePOInput{
		VendorID:    7,
		PaymentTerm: TermNet,
		TermDays:    30,
		TaxPercent:  11,
		Items: []POItemInput{
			{Description: "cement", Qty: 2, UnitPrice: 500},
		},
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NoError(t, svc.TransitionPurchaseOrder(context.Background(), po.ID, POStatusIssued))

	// Line IDs are assigned by the store, so read them back.
	po, items, err = svc.GetPurchaseOrder(context.Background(), po.ID)
	require.NoError(t, err)
	return po, items
}

func TestCreatePurchaseOrderAtomic(t *testing.T) {
	repo := newMemoryProcRepo()
	svc := NewService(repo, nil, nil)

	po, items, err := svc.CreatePurchaseOrder(context.Background(), CreatePOInput{
		VendorID:    7,
		PaymentTerm: TermNet,
		TermDays:    30,
		Items: []POItemInput{
			{Description: "cement", Qty: 2, UnitPrice: 500},
			{Description: "sand", Qty: 1, UnitPrice: 250},
		},
	})
	require.NoError(t, err)
	require.Equal(t, POStatusDraft, po.Status)
	require.Len(t, items, 2)
	require.InDelta(t, 1250, Subtotal(items), 0.001)

	// A failing line insert rolls the header back with it.
	repo.failLine = true
	_, _, err = svc.CreatePurchaseOrder(context.Background(), CreatePOInput{
		VendorID:    7,
		PaymentTerm: TermCOD,
		Items:       []POItemInput{{Description: "gravel", Qty: 1, UnitPrice: 100}},
	})
	require.Error(t, err)
	require.Len(t, repo.pos, 1)
}

func TestCreatePurchaseOrderValidation(t *testing.T) {
	svc := NewService(newMemoryProcRepo(), nil, nil)

	_, _, err := svc.CreatePurchaseOrder(context.Background(), CreatePOInput{
		VendorID: 7, PaymentTerm: TermNet, TermDays: 30,
	})
	require.ErrorIs(t, err, ErrValidation)

	_, _, err = svc.CreatePurchaseOrder(context.Background(), CreatePOInput{
		VendorID: 7, PaymentTerm: TermNet,
		Items: []POItemInput{{Description: "cement", Qty: 1, UnitPrice: 10}},
	})
	require.ErrorIs(t, err, ErrValidation, "NET without term days")

	_, _, err = svc.CreatePurchaseOrder(context.Background(), CreatePOInput{
		VendorID: 7, PaymentTerm: "NET45",
		Items: []POItemInput{{Description: "cement", Qty: 1, UnitPrice: 10}},
	})
	require.ErrorIs(t, err, ErrValidation)

	_, _, err = svc.CreatePurchaseOrder(context.Background(), CreatePOInput{
		VendorID: 7, PaymentTerm: TermCOD,
		Items: []POItemInput{{Description: "cement", Qty: -1, UnitPrice: 10}},
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestTransitionPurchaseOrder(t *testing.T) {
	repo := newMemoryProcRepo()
	svc := NewService(repo, nil, nil)

	po, _, err := svc.CreatePurchaseOrder(context.Background(), CreatePOInput{
		VendorID: 7, PaymentTerm: TermCBD,
		Items: []POItemInput{{Description: "cement", Qty: 1, UnitPrice: 10}},
	})
	require.NoError(t, err)

	require.ErrorIs(t, svc.TransitionPurchaseOrder(context.Background(), po.ID, POStatusClosed), ErrInvalidState)
	require.NoError(t, svc.TransitionPurchaseOrder(context.Background(), po.ID, POStatusIssued))
	require.NoError(t, svc.TransitionPurchaseOrder(context.Background(), po.ID, POStatusClosed))
	require.ErrorIs(t, svc.TransitionPurchaseOrder(context.Background(), po.ID, POStatusCancelled), ErrInvalidState)
}

func TestGoodsReceiptFlow(t *testing.T) {
	repo := newMemoryProcRepo()
	svc := NewService(repo, nil, nil)
	po, items := issuedPO(t, svc)

	// Overage is recorded, not rejected.
	grn, err := svc.CreateGoodsReceipt(context.Background(), CreateGRNInput{
		POID:       po.ID,
		ReceivedAt: time.Now(),
		Lines:      []GRNLineInput{{POItemID: items[0].ID, QtyReceived: 3}},
	})
	require.NoError(t, err)
	require.Equal(t, GRNStatusDraft, grn.Status)

	require.NoError(t, svc.PostGoodsReceipt(context.Background(), grn.ID))
	got, lines, err := svc.GetGoodsReceipt(context.Background(), grn.ID)
	require.NoError(t, err)
	require.Equal(t, GRNStatusPosted, got.Status)
	require.Len(t, lines, 1)
	require.InDelta(t, 3, lines[0].QtyReceived, 0.001)

	// Posting twice is an invalid state, as is cancelling a posted GRN.
	require.ErrorIs(t, svc.PostGoodsReceipt(context.Background(), grn.ID), ErrInvalidState)
	require.ErrorIs(t, svc.CancelGoodsReceipt(context.Background(), grn.ID), ErrInvalidState)
}

func TestGoodsReceiptRequiresIssuedPO(t *testing.T) {
	repo := newMemoryProcRepo()
	svc := NewService(repo, nil, nil)

	po, items, err := svc.CreatePurchaseOrder(context.Background(), CreatePOInput{
		VendorID: 7, PaymentTerm: TermCOD,
		Items: []POItemInput{{Description: "cement", Qty: 1, UnitPrice: 10}},
	})
	require.NoError(t, err)

	_, err = svc.CreateGoodsReceipt(context.Background(), CreateGRNInput{
		POID:  po.ID,
		Lines: []GRNLineInput{{POItemID: items[0].ID, QtyReceived: 1}},
	})
	require.ErrorIs(t, err, ErrInvalidState)

	_, err = svc.CreateGoodsReceipt(context.Background(), CreateGRNInput{
		POID:  99,
		Lines: []GRNLineInput{{POItemID: 1, QtyReceived: 1}},
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGoodsReceiptRejectsUnknownPOLine(t *testing.T) {
	repo := newMemoryProcRepo()
	svc := NewService(repo, nil, nil)
	po, _ := issuedPO(t, svc)

	_, err := svc.CreateGoodsReceipt(context.Background(), CreateGRNInput{
		POID:  po.ID,
		Lines: []GRNLineInput{{POItemID: 424242, QtyReceived: 1}},
	})
	require.ErrorIs(t, err, ErrValidation)
}
