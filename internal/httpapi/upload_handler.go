package httpapi

import (
	"net/http"

	"github.com/google/uuid"

	"ask_gateway/internal/utils"
)

const maxUploadMemory = 32 << 20

// UploadHandler acknowledges uploads without persisting file contents. The
// frontend only needs receipts; attachments are not stored server-side.
type UploadHandler struct {
	logger *utils.Logger
}

// NewUploadHandler creates the upload handler.
func NewUploadHandler(deps *Dependencies) *UploadHandler {
	return &UploadHandler{logger: utils.NewLogger("upload")}
}

type uploadReceipt struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type uploadResponse struct {
	Files []uploadReceipt `json:"files"`
}

func (h *UploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	receipts := []uploadReceipt{}
	for _, fh := range r.MultipartForm.File["files"] {
		receipts = append(receipts, uploadReceipt{
			ID:   uuid.NewString(),
			Name: fh.Filename,
		})
	}

	h.logger.Debug("upload acknowledged", "count", len(receipts))
	utils.RespondWithJSON(w, http.StatusOK, uploadResponse{Files: receipts})
}
