package api

import (
	"github.com/gofiber/fiber/v2"

	"parkgrid-backend/internal/authz"
	"parkgrid-backend/internal/store"
)

// DashboardHandler serves the dashboard's read endpoints over the
// marketplace tables. Row scoping happens through the same catalog that
// drives permission checks: the caller's RLS predicate is appended to
// each query, so the dashboard can never show a row the engine would
// deny.
type DashboardHandler struct {
	store   *store.Store
	catalog *authz.Catalog
}

func NewDashboardHandler(s *store.Store, catalog *authz.Catalog) *DashboardHandler {
	return &DashboardHandler{store: s, catalog: catalog}
}

// RegisterDashboardRoutes registers dashboard routes on the Fiber app.
func RegisterDashboardRoutes(app *fiber.App, h *DashboardHandler, middleware ...fiber.Handler) {
	g := app.Group("/api/dashboard", middleware...)

	g.Get("/locations", h.ListLocations)
	g.Get("/bookings", h.ListBookings)
	g.Get("/stats", h.Stats)
}

// ListLocations handles GET /api/dashboard/locations.
func (h *DashboardHandler) ListLocations(c *fiber.Ctx) error {
	actx := authzContext(c)
	predicate := h.catalog.RLSCondition(actx.UserType, actx.UserID, "locations", authz.ActionRead)

	rows, err := store.QueryRows(c.Context(), h.store.Pool,
		`SELECT id, name, address, operator_id, total_spots, created_at
		 FROM locations WHERE `+predicate+` ORDER BY name`)
	if err != nil {
		return err
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	return c.JSON(fiber.Map{"data": rows})
}

// ListBookings handles GET /api/dashboard/bookings. bookings_overview
// is a reporting view that flattens the spot/zone/section/location
// ownership chain into columns, matching the RLS predicate's
// underscore-joined column references.
func (h *DashboardHandler) ListBookings(c *fiber.Ctx) error {
	actx := authzContext(c)
	predicate := h.catalog.RLSCondition(actx.UserType, actx.UserID, "bookings", authz.ActionRead)

	rows, err := store.QueryRows(c.Context(), h.store.Pool,
		`SELECT id, user_id, parking_spot_id, status, starts_at, ends_at,
		        parking_spot_zone_section_location_operator_id
		 FROM bookings_overview WHERE `+predicate+` ORDER BY starts_at DESC LIMIT 200`)
	if err != nil {
		return err
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	return c.JSON(fiber.Map{"data": rows})
}

// Stats handles GET /api/dashboard/stats: booking counts by status for
// the rows the caller may see.
func (h *DashboardHandler) Stats(c *fiber.Ctx) error {
	actx := authzContext(c)
	predicate := h.catalog.RLSCondition(actx.UserType, actx.UserID, "bookings", authz.ActionRead)

	rows, err := store.QueryRows(c.Context(), h.store.Pool,
		`SELECT status, COUNT(*) AS count
		 FROM bookings_overview WHERE `+predicate+` GROUP BY status ORDER BY status`)
	if err != nil {
		return err
	}

	var total int64
	counts := map[string]int64{}
	for _, row := range rows {
		status, _ := row["status"].(string)
		count, _ := row["count"].(int64)
		counts[status] = count
		total += count
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"total": total, "by_status": counts}})
}
