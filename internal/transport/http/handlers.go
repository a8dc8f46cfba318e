package http

import (
	"net/http"
	"sort"

	"github.com/dkeye/leadrelay/internal/app/orch"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	orch *orch.Orchestrator
}

func NewHandlers(o *orch.Orchestrator) *Handlers {
	return &Handlers{orch: o}
}

type HealthResponse struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
	Rooms       int    `json:"rooms"`
}

func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:      "ok",
		Connections: h.orch.Registry.Count(),
		Rooms:       h.orch.Rooms.Count(),
	})
}

// Rooms lists non-empty rooms, sorted by name.
func (h *Handlers) Rooms(c *gin.Context) {
	rooms := h.orch.RoomsList()
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Name < rooms[j].Name })
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}
