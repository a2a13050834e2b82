package services

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"testing"

	"github.com/el-kamal/auctify/backend/src/logger"
	"github.com/el-kamal/auctify/backend/src/models"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

// memLedger is an in-memory Ledger. Transactions are not isolated:
// every tx mutates the shared state directly and Commit/Rollback are
// bookkeeping only, which is enough for single-goroutine service tests.
type memLedger struct {
	auctions    map[int64]*models.Auction
	actors      map[int64]*models.Actor
	lots        map[int64]*models.Lot
	invoices    []*models.Invoice
	settlements map[int64]*models.Settlement

	nextID    int64
	committed int
}

func newMemLedger() *memLedger {
	return &memLedger{
		auctions:    make(map[int64]*models.Auction),
		actors:      make(map[int64]*models.Actor),
		lots:        make(map[int64]*models.Lot),
		settlements: make(map[int64]*models.Settlement),
	}
}

func (m *memLedger) Begin() (LedgerTx, error) { return &memTx{m}, nil }

func (m *memLedger) id() int64 {
	m.nextID++
	return m.nextID
}

// addAuction and addActor seed fixtures outside a tx.
func (m *memLedger) addAuction(a *models.Auction) *models.Auction {
	a.ID = m.id()
	m.auctions[a.ID] = a
	return a
}

func (m *memLedger) addActor(a *models.Actor) *models.Actor {
	a.ID = m.id()
	m.actors[a.ID] = a
	return a
}

func (m *memLedger) addLot(l *models.Lot) *models.Lot {
	l.ID = m.id()
	m.lots[l.ID] = l
	return l
}

type memTx struct {
	m *memLedger
}

func (t *memTx) Commit() error   { t.m.committed++; return nil }
func (t *memTx) Rollback() error { return nil }

func (t *memTx) CreateAuction(a *models.Auction) error {
	a.ID = t.m.id()
	t.m.auctions[a.ID] = a
	return nil
}

func (t *memTx) GetAuction(id int64) (*models.Auction, error) {
	a, ok := t.m.auctions[id]
	if !ok {
		return nil, fmt.Errorf("%w: auction %d", ErrNotFound, id)
	}
	return a, nil
}

func (t *memTx) UpdateAuctionStatus(id int64, status models.AuctionStatus) error {
	a, ok := t.m.auctions[id]
	if !ok {
		return fmt.Errorf("%w: auction %d", ErrNotFound, id)
	}
	a.Status = status
	return nil
}

func (t *memTx) LotsByAuction(auctionID int64) ([]*models.Lot, error) {
	var lots []*models.Lot
	for _, l := range t.m.lots {
		if l.AuctionID == auctionID {
			lots = append(lots, l)
		}
	}
	sort.Slice(lots, func(i, j int) bool { return lots[i].LotNumber < lots[j].LotNumber })
	return lots, nil
}

func (t *memTx) CreateLot(l *models.Lot) error {
	for _, existing := range t.m.lots {
		if existing.AuctionID == l.AuctionID && existing.LotNumber == l.LotNumber {
			return fmt.Errorf("%w: lot %d already exists in auction %d", ErrIntegrity, l.LotNumber, l.AuctionID)
		}
	}
	l.ID = t.m.id()
	t.m.lots[l.ID] = l
	return nil
}

func (t *memTx) UpdateLot(l *models.Lot) error {
	if _, ok := t.m.lots[l.ID]; !ok {
		return fmt.Errorf("%w: lot %d", ErrNotFound, l.ID)
	}
	t.m.lots[l.ID] = l
	return nil
}

func (t *memTx) FindActor(c ActorCriteria) (*models.Actor, error) {
	if c.Email != "" {
		for _, a := range t.m.actors {
			if a.Type == c.Type && a.Email != "" && strings.EqualFold(a.Email, c.Email) {
				return a, nil
			}
		}
	}
	if c.Name != "" {
		for _, a := range t.m.actors {
			if a.Type == c.Type && a.Name == c.Name {
				return a, nil
			}
		}
	}
	return nil, nil
}

func (t *memTx) CreateActor(a *models.Actor) error {
	for _, existing := range t.m.actors {
		if existing.Name == a.Name {
			return fmt.Errorf("%w: actor name %q already taken", ErrIntegrity, a.Name)
		}
	}
	a.ID = t.m.id()
	t.m.actors[a.ID] = a
	return nil
}

func (t *memTx) GetActor(id int64) (*models.Actor, error) {
	a, ok := t.m.actors[id]
	if !ok {
		return nil, fmt.Errorf("%w: actor %d", ErrNotFound, id)
	}
	return a, nil
}

func (t *memTx) LastInvoice() (*models.Invoice, error) {
	if len(t.m.invoices) == 0 {
		return nil, nil
	}
	return t.m.invoices[len(t.m.invoices)-1], nil
}

func (t *memTx) CreateInvoice(inv *models.Invoice) error {
	inv.ID = t.m.id()
	t.m.invoices = append(t.m.invoices, inv)
	return nil
}

func (t *memTx) InvoicesByAuction(auctionID int64) ([]*models.Invoice, error) {
	var out []*models.Invoice
	for _, inv := range t.m.invoices {
		if inv.AuctionID == auctionID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (t *memTx) ListInvoices() ([]*models.Invoice, error) {
	return append([]*models.Invoice(nil), t.m.invoices...), nil
}

func (t *memTx) CreateSettlement(s *models.Settlement) error {
	s.ID = t.m.id()
	t.m.settlements[s.ID] = s
	return nil
}

func (t *memTx) UpdateSettlementXML(id int64, xmlContent string) error {
	s, ok := t.m.settlements[id]
	if !ok {
		return fmt.Errorf("%w: settlement %d", ErrNotFound, id)
	}
	s.XMLContent = xmlContent
	return nil
}

func (t *memTx) SettlementsByAuction(auctionID int64) ([]*models.Settlement, error) {
	var out []*models.Settlement
	for _, s := range t.m.settlements {
		if s.AuctionID == auctionID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) GetSettlement(id int64) (*models.Settlement, error) {
	s, ok := t.m.settlements[id]
	if !ok {
		return nil, fmt.Errorf("%w: settlement %d", ErrNotFound, id)
	}
	return s, nil
}

func (t *memTx) ResultRows(auctionID int64, f ResultFilter) ([]models.LotResult, error) {
	lots, _ := t.LotsByAuction(auctionID)
	var out []models.LotResult
	for _, l := range lots {
		sellerName := "Inconnu"
		if l.SellerID != nil {
			if a, ok := t.m.actors[*l.SellerID]; ok {
				sellerName = a.Name
			}
		}
		if f.Status != "" && l.Status != f.Status {
			continue
		}
		if f.SellerName != "" && !strings.Contains(strings.ToLower(sellerName), strings.ToLower(f.SellerName)) {
			continue
		}
		res := models.LotResult{
			LotNumber:   l.LotNumber,
			Description: l.Description,
			SellerName:  sellerName,
			Status:      l.Status,
			HammerPrice: l.HammerPrice,
		}
		if l.BuyerID != nil {
			if a, ok := t.m.actors[*l.BuyerID]; ok {
				res.BuyerName = a.Name
			}
		}
		out = append(out, res)
	}
	return out, nil
}

var _ Ledger = (*memLedger)(nil)
