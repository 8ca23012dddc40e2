package handler

import (
	"callgogo/backend/internal/callhub"
	"callgogo/backend/internal/registry"
	"callgogo/backend/internal/storage"
)

// Handler wires the HTTP surface to the hub.
type Handler struct {
	Hub      *callhub.Hub
	Registry *registry.Service
	Storage  storage.Storage
}

func NewHandler(hub *callhub.Hub, reg *registry.Service, s storage.Storage) *Handler {
	return &Handler{Hub: hub, Registry: reg, Storage: s}
}
