package handlers

import (
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/el-kamal/auctify/backend/src/config"
	"github.com/el-kamal/auctify/backend/src/logger"
	"github.com/el-kamal/auctify/backend/src/models"
	"github.com/el-kamal/auctify/backend/src/security/validation"
	"github.com/el-kamal/auctify/backend/src/services"
	"github.com/el-kamal/auctify/backend/src/utils"
)

type AuctionHandler struct {
	importService *services.ImportService
}

func NewAuctionHandler(importService *services.ImportService) *AuctionHandler {
	return &AuctionHandler{importService: importService}
}

type mappingImportResponse struct {
	Auction *models.Auction    `json:"auction"`
	Lots    []models.MappedLot `json:"lots"`
}

// HandleImportAuction handles POST /api/auctions/import: create a new
// auction from an uploaded mapping workbook.
func (h *AuctionHandler) HandleImportAuction(w http.ResponseWriter, r *http.Request) {
	file, fileHeader, ok := mappingFileFromRequest(w, r)
	if !ok {
		return
	}
	defer file.Close()

	logger.L.Info("Processing auction import", "filename", fileHeader.Filename)
	auction, lots, err := h.importService.CreateAuctionFromWorkbook(file, fileHeader.Filename)
	if err != nil {
		logger.L.Warn("Auction import failed", "filename", fileHeader.Filename, "error", err)
		sendServiceError(w, err)
		return
	}

	utils.SendJSON(w, mappingImportResponse{Auction: auction, Lots: lots}, http.StatusCreated)
}

// HandleImportMapping handles POST /api/auctions/{id}/mapping:
// (re-)import the lot mapping into an existing auction.
func (h *AuctionHandler) HandleImportMapping(w http.ResponseWriter, r *http.Request) {
	auctionID, err := pathID(r, "id")
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	file, fileHeader, ok := mappingFileFromRequest(w, r)
	if !ok {
		return
	}
	defer file.Close()

	logger.L.Info("Processing mapping import", "auctionID", auctionID, "filename", fileHeader.Filename)
	auction, lots, err := h.importService.ImportMapping(auctionID, file)
	if err != nil {
		logger.L.Warn("Mapping import failed", "auctionID", auctionID, "error", err)
		sendServiceError(w, err)
		return
	}

	utils.SendJSON(w, mappingImportResponse{Auction: auction, Lots: lots}, http.StatusOK)
}

// mappingFileFromRequest parses and validates the uploaded workbook.
// On failure the error response has already been written.
func mappingFileFromRequest(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, bool) {
	if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes); err != nil {
		logger.L.Warn("Failed to parse multipart form or request too large", "error", err, "limit", config.Cfg.MaxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("Failed to parse form or request too large (max %d MB)", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return nil, nil, false
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		logger.L.Warn("Failed to retrieve file from request", "error", err)
		utils.SendJSONError(w, "Failed to retrieve file from request. Ensure 'file' field is used.", http.StatusBadRequest)
		return nil, nil, false
	}

	if fileHeader.Size > config.Cfg.MaxUploadSizeBytes {
		file.Close()
		utils.SendJSONError(w, fmt.Sprintf("File too large, max %d MB", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return nil, nil, false
	}

	if err := validation.ValidateMappingContentType(fileHeader.Header.Get("Content-Type")); err != nil {
		file.Close()
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return nil, nil, false
	}
	if err := validation.ValidateMappingContentByMagicBytes(file); err != nil {
		file.Close()
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return nil, nil, false
	}
	return file, fileHeader, true
}
