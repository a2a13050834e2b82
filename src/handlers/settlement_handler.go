package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/el-kamal/auctify/backend/src/logger"
	"github.com/el-kamal/auctify/backend/src/models"
	"github.com/el-kamal/auctify/backend/src/services"
	"github.com/el-kamal/auctify/backend/src/utils"
)

type SettlementHandler struct {
	settlementService *services.SettlementService
}

func NewSettlementHandler(service *services.SettlementService) *SettlementHandler {
	return &SettlementHandler{settlementService: service}
}

// HandleGenerateSettlements handles POST /api/auctions/{id}/settlements
// with an optional ?execution_date=YYYY-MM-DD (default: two business
// days out is the bank's concern, we default to tomorrow).
func (h *SettlementHandler) HandleGenerateSettlements(w http.ResponseWriter, r *http.Request) {
	auctionID, err := pathID(r, "id")
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	executionDate := time.Now().UTC().AddDate(0, 0, 1)
	if raw := r.URL.Query().Get("execution_date"); raw != "" {
		executionDate, err = time.Parse("2006-01-02", raw)
		if err != nil {
			utils.SendJSONError(w, "invalid execution_date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}

	settlements, err := h.settlementService.GenerateSettlements(auctionID, executionDate)
	if err != nil {
		logger.L.Warn("Settlement generation failed", "auctionID", auctionID, "error", err)
		sendServiceError(w, err)
		return
	}

	utils.SendJSON(w, settlements, http.StatusCreated)
}

// HandleListSettlements handles GET /api/auctions/{id}/settlements.
func (h *SettlementHandler) HandleListSettlements(w http.ResponseWriter, r *http.Request) {
	auctionID, err := pathID(r, "id")
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	settlements, err := h.settlementService.SettlementsForAuction(auctionID)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	if settlements == nil {
		settlements = []*models.Settlement{}
	}

	utils.SendJSON(w, settlements, http.StatusOK)
}

// HandleDownloadSEPA handles GET /api/settlements/{id}/sepa: the
// pain.001 payment file attached to a settlement.
func (h *SettlementHandler) HandleDownloadSEPA(w http.ResponseWriter, r *http.Request) {
	settlementID, err := pathID(r, "id")
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	xmlContent, err := h.settlementService.SettlementSEPA(settlementID)
	if err != nil {
		sendServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"virement_sepa_%d.xml\"", settlementID))
	if _, err := w.Write([]byte(xmlContent)); err != nil {
		logger.L.Error("Error streaming payment file", "settlementID", settlementID, "error", err)
	}
}
