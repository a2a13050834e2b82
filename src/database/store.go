package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/el-kamal/auctify/backend/src/models"
	"github.com/el-kamal/auctify/backend/src/services"
)

// Store implements services.Ledger over the sqlite database. Every unit
// of work maps to one sql.Tx, so a run's mutations commit together or
// not at all.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Begin() (services.LedgerTx, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("error beginning database transaction: %w", err)
	}
	return &ledgerTx{tx: tx}, nil
}

var _ services.Ledger = (*Store)(nil)

type ledgerTx struct {
	tx *sql.Tx
}

func (t *ledgerTx) Commit() error   { return t.tx.Commit() }
func (t *ledgerTx) Rollback() error { return t.tx.Rollback() }

const timeLayout = time.RFC3339Nano

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func intPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{timeLayout, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// --- Auctions ---

func (t *ledgerTx) CreateAuction(a *models.Auction) error {
	if a.Date.IsZero() {
		a.Date = time.Now().UTC()
	}
	res, err := t.tx.Exec(`INSERT INTO auctions (number, name, date, status, buyer_fee_rate, seller_fee_rate, platform_fee_rate) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		nullStr(a.Number), a.Name, a.Date.Format(timeLayout), string(a.Status), a.BuyerFeeRate, a.SellerFeeRate, a.PlatformFeeRate)
	if err != nil {
		return fmt.Errorf("error inserting auction %q: %w", a.Name, err)
	}
	a.ID, err = res.LastInsertId()
	return err
}

func (t *ledgerTx) GetAuction(id int64) (*models.Auction, error) {
	var a models.Auction
	var number sql.NullString
	var date string
	err := t.tx.QueryRow(`SELECT id, number, name, date, status, buyer_fee_rate, seller_fee_rate, platform_fee_rate FROM auctions WHERE id = ?`, id).
		Scan(&a.ID, &number, &a.Name, &date, &a.Status, &a.BuyerFeeRate, &a.SellerFeeRate, &a.PlatformFeeRate)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: auction %d", services.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("error querying auction %d: %w", id, err)
	}
	a.Number = number.String
	a.Date = parseTime(date)
	return &a, nil
}

func (t *ledgerTx) UpdateAuctionStatus(id int64, status models.AuctionStatus) error {
	_, err := t.tx.Exec(`UPDATE auctions SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("error updating status of auction %d: %w", id, err)
	}
	return nil
}

// --- Lots ---

func scanLot(scan func(dest ...any) error) (*models.Lot, error) {
	var l models.Lot
	var desc sql.NullString
	var price, sellerID, buyerID sql.NullInt64
	if err := scan(&l.ID, &l.AuctionID, &l.LotNumber, &desc, &price, &sellerID, &buyerID, &l.Status); err != nil {
		return nil, err
	}
	l.Description = desc.String
	l.HammerPrice = intPtr(price)
	l.SellerID = intPtr(sellerID)
	l.BuyerID = intPtr(buyerID)
	return &l, nil
}

func (t *ledgerTx) LotsByAuction(auctionID int64) ([]*models.Lot, error) {
	rows, err := t.tx.Query(`SELECT id, auction_id, lot_number, description, hammer_price, seller_id, buyer_id, status FROM lots WHERE auction_id = ? ORDER BY lot_number ASC`, auctionID)
	if err != nil {
		return nil, fmt.Errorf("error querying lots for auction %d: %w", auctionID, err)
	}
	defer rows.Close()

	var lots []*models.Lot
	for rows.Next() {
		l, err := scanLot(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("error scanning lot row for auction %d: %w", auctionID, err)
		}
		lots = append(lots, l)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over lot rows for auction %d: %w", auctionID, err)
	}
	return lots, nil
}

func (t *ledgerTx) CreateLot(l *models.Lot) error {
	res, err := t.tx.Exec(`INSERT INTO lots (auction_id, lot_number, description, hammer_price, seller_id, buyer_id, status) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.AuctionID, l.LotNumber, nullStr(l.Description), nullInt(l.HammerPrice), nullInt(l.SellerID), nullInt(l.BuyerID), string(l.Status))
	if err != nil {
		return fmt.Errorf("error inserting lot %d of auction %d: %w", l.LotNumber, l.AuctionID, err)
	}
	l.ID, err = res.LastInsertId()
	return err
}

func (t *ledgerTx) UpdateLot(l *models.Lot) error {
	_, err := t.tx.Exec(`UPDATE lots SET description = ?, hammer_price = ?, seller_id = ?, buyer_id = ?, status = ? WHERE id = ?`,
		nullStr(l.Description), nullInt(l.HammerPrice), nullInt(l.SellerID), nullInt(l.BuyerID), string(l.Status), l.ID)
	if err != nil {
		return fmt.Errorf("error updating lot %d: %w", l.ID, err)
	}
	return nil
}

// --- Actors ---

const actorColumns = `id, name, type, email, phone_number, siren_siret, address, iban, bic, vat_subject, is_company`

func scanActor(scan func(dest ...any) error) (*models.Actor, error) {
	var a models.Actor
	var email, phone, siren, address, iban, bic sql.NullString
	if err := scan(&a.ID, &a.Name, &a.Type, &email, &phone, &siren, &address, &iban, &bic, &a.VATSubject, &a.IsCompany); err != nil {
		return nil, err
	}
	a.Email = email.String
	a.Phone = phone.String
	a.SirenSiret = siren.String
	a.Address = address.String
	a.IBAN = iban.String
	a.BIC = bic.String
	return &a, nil
}

func (t *ledgerTx) FindActor(c services.ActorCriteria) (*models.Actor, error) {
	if c.Email != "" {
		a, err := t.findActorWhere(`email = ? AND type = ?`, c.Email, string(c.Type))
		if err != nil || a != nil {
			return a, err
		}
	}
	if c.Name != "" {
		return t.findActorWhere(`name = ? AND type = ?`, c.Name, string(c.Type))
	}
	return nil, nil
}

func (t *ledgerTx) findActorWhere(where string, args ...any) (*models.Actor, error) {
	row := t.tx.QueryRow(`SELECT `+actorColumns+` FROM actors WHERE `+where, args...)
	a, err := scanActor(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying actor: %w", err)
	}
	return a, nil
}

func (t *ledgerTx) CreateActor(a *models.Actor) error {
	res, err := t.tx.Exec(`INSERT INTO actors (name, type, email, phone_number, siren_siret, address, iban, bic, vat_subject, is_company) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Name, string(a.Type), nullStr(a.Email), nullStr(a.Phone), nullStr(a.SirenSiret), nullStr(a.Address), nullStr(a.IBAN), nullStr(a.BIC), a.VATSubject, a.IsCompany)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique constraint failed") {
			return fmt.Errorf("%w: actor name %q already taken", services.ErrIntegrity, a.Name)
		}
		return fmt.Errorf("error inserting actor %q: %w", a.Name, err)
	}
	a.ID, err = res.LastInsertId()
	return err
}

func (t *ledgerTx) GetActor(id int64) (*models.Actor, error) {
	row := t.tx.QueryRow(`SELECT `+actorColumns+` FROM actors WHERE id = ?`, id)
	a, err := scanActor(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: actor %d", services.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("error querying actor %d: %w", id, err)
	}
	return a, nil
}

// --- Invoices ---

const invoiceColumns = `id, number, buyer_id, auction_id, total_excl, total_vat, total_incl, status, hash, previous_hash, signature_date`

func scanInvoice(scan func(dest ...any) error) (*models.Invoice, error) {
	var inv models.Invoice
	var number, hash, prev, sigDate sql.NullString
	if err := scan(&inv.ID, &number, &inv.BuyerID, &inv.AuctionID, &inv.TotalExcl, &inv.TotalVAT, &inv.TotalIncl, &inv.Status, &hash, &prev, &sigDate); err != nil {
		return nil, err
	}
	inv.Number = number.String
	inv.Hash = hash.String
	inv.PreviousHash = prev.String
	inv.SignatureDate = parseTime(sigDate.String)
	return &inv, nil
}

func (t *ledgerTx) LastInvoice() (*models.Invoice, error) {
	row := t.tx.QueryRow(`SELECT ` + invoiceColumns + ` FROM invoices ORDER BY id DESC LIMIT 1`)
	inv, err := scanInvoice(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying last invoice: %w", err)
	}
	return inv, nil
}

func (t *ledgerTx) CreateInvoice(inv *models.Invoice) error {
	res, err := t.tx.Exec(`INSERT INTO invoices (number, buyer_id, auction_id, total_excl, total_vat, total_incl, status, hash, previous_hash, signature_date) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.Number, inv.BuyerID, inv.AuctionID, inv.TotalExcl, inv.TotalVAT, inv.TotalIncl, string(inv.Status), inv.Hash, inv.PreviousHash, inv.SignatureDate.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("error inserting invoice %s: %w", inv.Number, err)
	}
	inv.ID, err = res.LastInsertId()
	return err
}

func (t *ledgerTx) InvoicesByAuction(auctionID int64) ([]*models.Invoice, error) {
	return t.queryInvoices(`SELECT `+invoiceColumns+` FROM invoices WHERE auction_id = ? ORDER BY number ASC`, auctionID)
}

func (t *ledgerTx) ListInvoices() ([]*models.Invoice, error) {
	return t.queryInvoices(`SELECT ` + invoiceColumns + ` FROM invoices ORDER BY id ASC`)
}

func (t *ledgerTx) queryInvoices(query string, args ...any) ([]*models.Invoice, error) {
	rows, err := t.tx.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("error scanning invoice row: %w", err)
		}
		invoices = append(invoices, inv)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over invoice rows: %w", err)
	}
	return invoices, nil
}

// --- Settlements ---

func (t *ledgerTx) CreateSettlement(s *models.Settlement) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	res, err := t.tx.Exec(`INSERT INTO settlements (auction_id, seller_id, amount, status, xml_content, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		s.AuctionID, s.SellerID, s.Amount, string(s.Status), nullStr(s.XMLContent), s.CreatedAt.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("error inserting settlement for seller %d: %w", s.SellerID, err)
	}
	s.ID, err = res.LastInsertId()
	return err
}

func (t *ledgerTx) UpdateSettlementXML(id int64, xmlContent string) error {
	_, err := t.tx.Exec(`UPDATE settlements SET xml_content = ? WHERE id = ?`, xmlContent, id)
	if err != nil {
		return fmt.Errorf("error updating settlement %d: %w", id, err)
	}
	return nil
}

func scanSettlement(scan func(dest ...any) error) (*models.Settlement, error) {
	var s models.Settlement
	var xmlContent sql.NullString
	var createdAt string
	if err := scan(&s.ID, &s.AuctionID, &s.SellerID, &s.Amount, &s.Status, &xmlContent, &createdAt); err != nil {
		return nil, err
	}
	s.XMLContent = xmlContent.String
	s.CreatedAt = parseTime(createdAt)
	return &s, nil
}

func (t *ledgerTx) SettlementsByAuction(auctionID int64) ([]*models.Settlement, error) {
	rows, err := t.tx.Query(`SELECT id, auction_id, seller_id, amount, status, xml_content, created_at FROM settlements WHERE auction_id = ? ORDER BY id ASC`, auctionID)
	if err != nil {
		return nil, fmt.Errorf("error querying settlements for auction %d: %w", auctionID, err)
	}
	defer rows.Close()

	var settlements []*models.Settlement
	for rows.Next() {
		s, err := scanSettlement(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("error scanning settlement row: %w", err)
		}
		settlements = append(settlements, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over settlement rows: %w", err)
	}
	return settlements, nil
}

func (t *ledgerTx) GetSettlement(id int64) (*models.Settlement, error) {
	row := t.tx.QueryRow(`SELECT id, auction_id, seller_id, amount, status, xml_content, created_at FROM settlements WHERE id = ?`, id)
	s, err := scanSettlement(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: settlement %d", services.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("error querying settlement %d: %w", id, err)
	}
	return s, nil
}

// --- Results view ---

func (t *ledgerTx) ResultRows(auctionID int64, f services.ResultFilter) ([]models.LotResult, error) {
	query := `SELECT l.lot_number, COALESCE(l.description, ''), COALESCE(s.name, 'Inconnu'), l.status, l.hammer_price, COALESCE(b.name, '')
		FROM lots l
		LEFT JOIN actors s ON l.seller_id = s.id
		LEFT JOIN actors b ON l.buyer_id = b.id
		WHERE l.auction_id = ?`
	args := []any{auctionID}
	if f.Status != "" {
		query += ` AND l.status = ?`
		args = append(args, string(f.Status))
	}
	if f.SellerName != "" {
		query += ` AND LOWER(s.name) LIKE '%' || LOWER(?) || '%'`
		args = append(args, f.SellerName)
	}
	query += ` ORDER BY l.lot_number ASC`

	rows, err := t.tx.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying results for auction %d: %w", auctionID, err)
	}
	defer rows.Close()

	var results []models.LotResult
	for rows.Next() {
		var r models.LotResult
		var price sql.NullInt64
		if err := rows.Scan(&r.LotNumber, &r.Description, &r.SellerName, &r.Status, &price, &r.BuyerName); err != nil {
			return nil, fmt.Errorf("error scanning result row for auction %d: %w", auctionID, err)
		}
		r.HammerPrice = intPtr(price)
		results = append(results, r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over result rows for auction %d: %w", auctionID, err)
	}
	return results, nil
}
