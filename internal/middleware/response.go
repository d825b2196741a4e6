package middleware

import (
	"net/http"

	"github.com/mockloop/interview-engine/internal/httputil"
)

func writeError(w http.ResponseWriter, err error) {
	httputil.WriteError(w, err)
}
