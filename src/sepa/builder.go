// Package sepa renders SEPA credit transfer files in the
// pain.001.001.03 schema, one payment instruction per generation run
// with one transaction per seller settlement.
package sepa

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/el-kamal/auctify/backend/src/models"
	"github.com/google/uuid"
)

// Builder carries the debtor-side identity of the auction house plus
// the fallback coordinates used for sellers with no bank details on
// file.
type Builder struct {
	DebtorName   string
	DebtorIBAN   string
	DebtorBIC    string
	FallbackIBAN string
	FallbackBIC  string
}

type document struct {
	XMLName          xml.Name         `xml:"Document"`
	Xmlns            string           `xml:"xmlns,attr"`
	CstmrCdtTrfInitn cstmrCdtTrfInitn `xml:"CstmrCdtTrfInitn"`
}

type cstmrCdtTrfInitn struct {
	GrpHdr grpHdr `xml:"GrpHdr"`
	PmtInf pmtInf `xml:"PmtInf"`
}

type grpHdr struct {
	MsgID    string `xml:"MsgId"`
	CreDtTm  string `xml:"CreDtTm"`
	NbOfTxs  int    `xml:"NbOfTxs"`
	CtrlSum  string `xml:"CtrlSum"`
	InitgPty party  `xml:"InitgPty"`
}

type party struct {
	Nm string `xml:"Nm"`
}

type pmtInf struct {
	PmtInfID    string        `xml:"PmtInfId"`
	PmtMtd      string        `xml:"PmtMtd"`
	NbOfTxs     int           `xml:"NbOfTxs"`
	CtrlSum     string        `xml:"CtrlSum"`
	PmtTpInf    pmtTpInf      `xml:"PmtTpInf"`
	ReqdExctnDt string        `xml:"ReqdExctnDt"`
	Dbtr        party         `xml:"Dbtr"`
	DbtrAcct    account       `xml:"DbtrAcct"`
	DbtrAgt     agent         `xml:"DbtrAgt"`
	ChrgBr      string        `xml:"ChrgBr"`
	CdtTrfTxInf []cdtTrfTxInf `xml:"CdtTrfTxInf"`
}

type pmtTpInf struct {
	SvcLvl svcLvl `xml:"SvcLvl"`
}

type svcLvl struct {
	Cd string `xml:"Cd"`
}

type account struct {
	ID accountID `xml:"Id"`
}

type accountID struct {
	IBAN string `xml:"IBAN"`
}

type agent struct {
	FinInstnID finInstnID `xml:"FinInstnId"`
}

type finInstnID struct {
	BIC string `xml:"BIC"`
}

type cdtTrfTxInf struct {
	PmtID    pmtID   `xml:"PmtId"`
	Amt      amt     `xml:"Amt"`
	CdtrAgt  agent   `xml:"CdtrAgt"`
	Cdtr     party   `xml:"Cdtr"`
	CdtrAcct account `xml:"CdtrAcct"`
	RmtInf   rmtInf  `xml:"RmtInf"`
}

type pmtID struct {
	EndToEndID string `xml:"EndToEndId"`
}

type amt struct {
	InstdAmt instdAmt `xml:"InstdAmt"`
}

type instdAmt struct {
	Ccy   string `xml:"Ccy,attr"`
	Value string `xml:",chardata"`
}

type rmtInf struct {
	Ustrd string `xml:"Ustrd"`
}

// Build serializes one credit transfer file covering all given
// settlements. Each settlement must carry its joined Seller and
// Auction; sellers without an IBAN on file are paid to the configured
// fallback account. Transactions appear in input order.
func (b *Builder) Build(settlements []*models.Settlement, executionDate time.Time) (string, error) {
	if len(settlements) == 0 {
		return "", fmt.Errorf("no settlements to include")
	}

	var controlSum float64
	txs := make([]cdtTrfTxInf, 0, len(settlements))
	for _, set := range settlements {
		if set.Seller == nil || set.Auction == nil {
			return "", fmt.Errorf("settlement %d is missing its seller or auction", set.ID)
		}
		iban, bic := set.Seller.IBAN, set.Seller.BIC
		if iban == "" {
			iban, bic = b.FallbackIBAN, b.FallbackBIC
		}
		controlSum += set.Amount
		txs = append(txs, cdtTrfTxInf{
			PmtID: pmtID{EndToEndID: fmt.Sprintf("SET-%d", set.ID)},
			Amt: amt{InstdAmt: instdAmt{
				Ccy:   "EUR",
				Value: fmt.Sprintf("%.2f", set.Amount),
			}},
			CdtrAgt:  agent{FinInstnID: finInstnID{BIC: bic}},
			Cdtr:     party{Nm: set.Seller.Name},
			CdtrAcct: account{ID: accountID{IBAN: iban}},
			RmtInf: rmtInf{
				Ustrd: fmt.Sprintf("Vente %s - Reglement Vendeur", set.Auction.Name),
			},
		})
	}

	now := time.Now().UTC()
	doc := document{
		Xmlns: "urn:iso:std:iso:20022:tech:xsd:pain.001.001.03",
		CstmrCdtTrfInitn: cstmrCdtTrfInitn{
			GrpHdr: grpHdr{
				MsgID:    "MSG-" + shortRef(),
				CreDtTm:  now.Format("2006-01-02T15:04:05"),
				NbOfTxs:  len(txs),
				CtrlSum:  fmt.Sprintf("%.2f", controlSum),
				InitgPty: party{Nm: b.DebtorName},
			},
			PmtInf: pmtInf{
				PmtInfID:    "PMT-" + shortRef(),
				PmtMtd:      "TRF",
				NbOfTxs:     len(txs),
				CtrlSum:     fmt.Sprintf("%.2f", controlSum),
				PmtTpInf:    pmtTpInf{SvcLvl: svcLvl{Cd: "SEPA"}},
				ReqdExctnDt: executionDate.Format("2006-01-02"),
				Dbtr:        party{Nm: b.DebtorName},
				DbtrAcct:    account{ID: accountID{IBAN: b.DebtorIBAN}},
				DbtrAgt:     agent{FinInstnID: finInstnID{BIC: b.DebtorBIC}},
				ChrgBr:      "SLEV",
				CdtTrfTxInf: txs,
			},
		},
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize payment file: %w", err)
	}
	return xml.Header + string(out), nil
}

// shortRef builds the 16-hex-char reference banks expect in message
// and payment identifiers.
func shortRef() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:16])
}
