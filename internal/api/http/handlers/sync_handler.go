package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/onpoint/ticket-bridge/internal/api/dto"
	"github.com/onpoint/ticket-bridge/internal/repository"
	"github.com/onpoint/ticket-bridge/internal/service"
)

// SyncHandler exposes the sync engine: outbound transfer, inbound refresh,
// and the operator dashboard endpoints.
type SyncHandler struct {
	transfer     *service.TransferService
	refresh      *service.RefreshService
	stats        *service.StatsService
	refreshLimit int
}

// NewSyncHandler constructs handler. refreshLimit caps a bulk refresh run
// when the request does not ask for a specific limit.
func NewSyncHandler(transfer *service.TransferService, refresh *service.RefreshService, stats *service.StatsService, refreshLimit int) *SyncHandler {
	return &SyncHandler{transfer: transfer, refresh: refresh, stats: stats, refreshLimit: refreshLimit}
}

// Transfer POST /tickets/:id/transfer.
func (h *SyncHandler) Transfer(c *fiber.Ctx) error {
	ticket, err := h.transfer.Transfer(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Refresh POST /tickets/:id/refresh.
func (h *SyncHandler) Refresh(c *fiber.Ctx) error {
	result, err := h.refresh.RefreshOne(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": refreshResponse(result)})
}

// RefreshAll POST /sync/refresh-all.
func (h *SyncHandler) RefreshAll(c *fiber.Ctx) error {
	limit := parseInt(c.Query("limit"), h.refreshLimit)
	result, err := h.refresh.RefreshAll(c.UserContext(), limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.RefreshAllResponse{
		Total:   result.Total,
		Changed: result.Changed,
		Failed:  result.Failed,
	}})
}

// Stats GET /sync/stats.
func (h *SyncHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.stats.Stats(c.UserContext())
	if err != nil {
		return err
	}
	resp := dto.SyncStatsResponse{
		TotalSynced:    stats.TotalSynced,
		SyncedToday:    stats.SyncedToday,
		SyncedThisWeek: stats.SyncedThisWeek,
		ErrorCount:     stats.ErrorCount,
		LastSyncedAt:   stats.LastSyncedAt,
		ByOrigin:       stats.ByOrigin,
	}
	for _, bucket := range stats.ByTrackerStatus {
		resp.ByTrackerStatus = append(resp.ByTrackerStatus, dto.StatusCountEntry{
			Status: bucket.Status,
			Count:  bucket.Count,
		})
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Errors GET /sync/errors.
func (h *SyncHandler) Errors(c *fiber.Ctx) error {
	rows, err := h.stats.RecentErrors(c.UserContext(), parseInt(c.Query("limit"), 0))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": syncRowResponses(rows)})
}

// Recent GET /sync/recent.
func (h *SyncHandler) Recent(c *fiber.Ctx) error {
	rows, err := h.stats.RecentSyncs(c.UserContext(), parseInt(c.Query("limit"), 0))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": syncRowResponses(rows)})
}

func refreshResponse(result *service.RefreshResult) dto.RefreshResponse {
	return dto.RefreshResponse{
		TicketID:       result.TicketID,
		IssueKey:       result.IssueKey,
		PreviousStatus: result.PreviousStatus,
		NewStatus:      result.NewStatus,
		Changed:        result.Changed,
	}
}

func syncRowResponses(rows []repository.SyncRow) []dto.SyncRowResponse {
	items := make([]dto.SyncRowResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, dto.SyncRowResponse{
			TicketID:      row.Correlation.TicketID,
			TicketTitle:   row.TicketTitle,
			IssueKey:      row.Correlation.IssueKey,
			TrackerStatus: row.Correlation.TrackerStatus,
			Origin:        row.Correlation.Origin,
			LastSyncedAt:  row.Correlation.LastSyncedAt,
			LastError:     row.Correlation.LastError,
		})
	}
	return items
}
