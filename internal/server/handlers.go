package server

import (
	"net/http"

	"github.com/eskrenkovic/correlation-go/internal/modules/core"
	"github.com/eskrenkovic/correlation-go/internal/modules/correlation"
)

func handleGetCorrelationID(w http.ResponseWriter, r *http.Request) {
	id, err := correlation.FromRequest(r)
	if err != nil {
		core.WriteError(w, r, err)
		return
	}

	core.WriteText(w, r, http.StatusOK, id.String())
}
