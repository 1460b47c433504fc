package http

import (
	"net/http"
	"net/url"

	"github.com/skip2/go-qrcode"
)

const qrSize = 256

// QRHandler serves a PNG QR code pointing the room at the host screen, so
// the group can scan where the game is being shown.
type QRHandler struct {
	baseURL string
}

func NewQRHandler(baseURL string) *QRHandler {
	return &QRHandler{baseURL: baseURL}
}

func (h *QRHandler) ServeQR(w http.ResponseWriter, r *http.Request) {
	device := r.URL.Query().Get("device")
	if device == "" {
		http.Error(w, "missing device key", http.StatusBadRequest)
		return
	}
	if h.baseURL == "" {
		http.Error(w, "base url not configured", http.StatusServiceUnavailable)
		return
	}

	target := h.baseURL + "/?device=" + url.QueryEscape(device)
	png, err := qrcode.Encode(target, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "failed to generate qr code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}
