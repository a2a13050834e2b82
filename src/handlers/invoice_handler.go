package handlers

import (
	"net/http"

	"github.com/el-kamal/auctify/backend/src/logger"
	"github.com/el-kamal/auctify/backend/src/models"
	"github.com/el-kamal/auctify/backend/src/services"
	"github.com/el-kamal/auctify/backend/src/utils"
)

type InvoiceHandler struct {
	invoiceService *services.InvoiceService
}

func NewInvoiceHandler(service *services.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: service}
}

// HandleGenerateInvoices handles POST /api/auctions/{id}/invoices.
func (h *InvoiceHandler) HandleGenerateInvoices(w http.ResponseWriter, r *http.Request) {
	auctionID, err := pathID(r, "id")
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	invoices, err := h.invoiceService.GenerateInvoices(auctionID)
	if err != nil {
		logger.L.Warn("Invoice generation failed", "auctionID", auctionID, "error", err)
		sendServiceError(w, err)
		return
	}

	utils.SendJSON(w, invoices, http.StatusCreated)
}

// HandleListInvoices handles GET /api/auctions/{id}/invoices.
func (h *InvoiceHandler) HandleListInvoices(w http.ResponseWriter, r *http.Request) {
	auctionID, err := pathID(r, "id")
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	invoices, err := h.invoiceService.InvoicesForAuction(auctionID)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	if invoices == nil {
		invoices = []*models.Invoice{}
	}

	utils.SendJSON(w, invoices, http.StatusOK)
}

// HandleVerifyChain handles GET /api/invoices/verify: a full audit of
// the invoice hash chain.
func (h *InvoiceHandler) HandleVerifyChain(w http.ResponseWriter, r *http.Request) {
	report, err := h.invoiceService.VerifyChain()
	if err != nil {
		sendServiceError(w, err)
		return
	}

	status := http.StatusOK
	if !report.Valid {
		status = http.StatusConflict
	}
	utils.SendJSON(w, report, status)
}
