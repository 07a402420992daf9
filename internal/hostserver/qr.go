package hostserver

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/skip2/go-qrcode"
)

// handleQR renders a pairing QR code: the socket URL with the token baked
// in, for runtimes on devices where typing a token is impractical. Served
// without authentication under the package's loopback trust model.
func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	size := 256
	if v := r.URL.Query().Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 64 || n > 1024 {
			http.Error(w, "bad size", http.StatusBadRequest)
			return
		}
		size = n
	}

	target := fmt.Sprintf("ws://%s/ws?token=%s", r.Host, s.cfg.PairingToken)
	png, err := qrcode.Encode(target, qrcode.Medium, size)
	if err != nil {
		s.serverError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}
