package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/el-kamal/auctify/backend/src/config"
	"github.com/el-kamal/auctify/backend/src/logger"
	"github.com/el-kamal/auctify/backend/src/models"
	"github.com/el-kamal/auctify/backend/src/security/validation"
	"github.com/el-kamal/auctify/backend/src/services"
	"github.com/el-kamal/auctify/backend/src/utils"
)

type ReconciliationHandler struct {
	reconciliationService *services.ReconciliationService
}

func NewReconciliationHandler(service *services.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{reconciliationService: service}
}

// HandleReconcile handles POST /api/auctions/{id}/reconcile: upload a
// sale-results export and run the matching engine over it.
func (h *ReconciliationHandler) HandleReconcile(w http.ResponseWriter, r *http.Request) {
	auctionID, err := pathID(r, "id")
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes); err != nil {
		logger.L.Warn("Failed to parse multipart form or request too large", "auctionID", auctionID, "error", err, "limit", config.Cfg.MaxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("Failed to parse form or request too large (max %d MB)", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		logger.L.Warn("Failed to retrieve file from request", "auctionID", auctionID, "error", err)
		utils.SendJSONError(w, "Failed to retrieve file from request. Ensure 'file' field is used.", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if fileHeader.Size > config.Cfg.MaxUploadSizeBytes {
		utils.SendJSONError(w, fmt.Sprintf("File too large, max %d MB", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	clientContentType := fileHeader.Header.Get("Content-Type")
	if err := validation.ValidateResultContentType(clientContentType); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	detectedContentType, err := validation.ValidateResultContentByMagicBytes(file)
	if err != nil {
		logger.L.Warn("Server-side file content validation failed", "auctionID", auctionID, "filename", fileHeader.Filename, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	logger.L.Info("File content validated by magic bytes", "auctionID", auctionID, "filename", fileHeader.Filename, "clientType", clientContentType, "detectedType", detectedContentType)

	raw, err := io.ReadAll(file)
	if err != nil {
		logger.L.Error("Failed to read uploaded file", "auctionID", auctionID, "error", err)
		utils.SendJSONError(w, "Failed to read uploaded file.", http.StatusInternalServerError)
		return
	}

	stats, err := h.reconciliationService.Reconcile(auctionID, raw)
	if err != nil {
		logger.L.Warn("Reconciliation failed", "auctionID", auctionID, "filename", fileHeader.Filename, "error", err)
		sendServiceError(w, err)
		return
	}

	utils.SendJSON(w, stats, http.StatusOK)
}

// HandleGetResults handles GET /api/auctions/{id}/results with optional
// ?status= and ?seller= filters.
func (h *ReconciliationHandler) HandleGetResults(w http.ResponseWriter, r *http.Request) {
	auctionID, err := pathID(r, "id")
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	filter := resultFilterFromQuery(r)
	results, err := h.reconciliationService.GetResults(auctionID, filter)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	if results == nil {
		results = []models.LotResult{}
	}

	utils.SendJSON(w, results, http.StatusOK)
}

// HandleExportResults handles GET /api/auctions/{id}/results/export:
// the same filtered view as an xlsx download.
func (h *ReconciliationHandler) HandleExportResults(w http.ResponseWriter, r *http.Request) {
	auctionID, err := pathID(r, "id")
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	buf, err := h.reconciliationService.ExportResults(auctionID, resultFilterFromQuery(r))
	if err != nil {
		sendServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"resultats_vente_%d.xlsx\"", auctionID))
	if _, err := buf.WriteTo(w); err != nil {
		logger.L.Error("Error streaming results export", "auctionID", auctionID, "error", err)
	}
}

func resultFilterFromQuery(r *http.Request) services.ResultFilter {
	return services.ResultFilter{
		Status:     models.LotStatus(r.URL.Query().Get("status")),
		SellerName: r.URL.Query().Get("seller"),
	}
}
