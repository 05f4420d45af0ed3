package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/numduel/internal/api/apierr"
	"github.com/mcoot/numduel/internal/api/response"
	"github.com/mcoot/numduel/internal/model"
	"github.com/mcoot/numduel/internal/services/registry"
)

// RoomHandler serves read-only room snapshots. All mutation happens over
// the websocket; this exists for debugging and for clients checking
// whether a room code is live before connecting.
type RoomHandler struct {
	registry *registry.Controller
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(registry *registry.Controller) *RoomHandler {
	return &RoomHandler{registry: registry}
}

// Get handles GET /rooms/{room_id}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["room_id"]
	roomID := model.NormalizeRoomID(raw)
	if roomID == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("Room id is required"))
		return
	}

	room, err := h.registry.GetRoom(r.Context(), roomID)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomFromModel(room))
}
