package main

import (
	"context"
	"net/http"
	"time"

	"storefront/internal/domain/accesscontrol"
	"storefront/internal/params"
)

// viewSet picks the dashboard for each account variant. Variant resolution
// happens once, in AuthTokenMiddleware.
func (app *application) viewSet() map[accesscontrol.Variant]http.HandlerFunc {
	return map[accesscontrol.Variant]http.HandlerFunc{
		accesscontrol.VariantProfessional: app.professionalDashboardHandler,
		accesscontrol.VariantIndividual:   app.individualDashboardHandler,
	}
}

// Dashboard godoc
//
//	@Summary		Variant dashboard
//	@Description	Professional accounts get the active cart overview; individual accounts get their own cart.
//	@Tags			dashboard
//	@Produce		json
//	@Param			page	query	int	false	"Page number (professional only)"
//	@Param			limit	query	int	false	"Items per page (professional only)"
//	@Security		ApiKeyAuth
//	@Router			/dashboard [get]
func (app *application) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	handler, ok := app.viewSet()[user.Variant]
	if !ok {
		handler = app.individualDashboardHandler
	}
	handler(w, r)
}

type professionalDashboard struct {
	Variant     accesscontrol.Variant `json:"variant"`
	HeldCarts   int                   `json:"held_carts"`
	ActiveCarts []cartSummaryView     `json:"active_carts"`
	Pagination  params.Pagination     `json:"pagination"`
}

func (app *application) professionalDashboardHandler(w http.ResponseWriter, r *http.Request) {
	p := app.config.pages.Parse(r.URL.Query())

	summaries, total := app.carts.Active(p.Limit, p.Offset)
	p.ComputeMeta(total)

	rows := make([]cartSummaryView, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, cartSummaryView{
			UserID:    s.UserID,
			ItemCount: s.ItemCount,
			Total:     money(s.Total),
			UpdatedAt: s.UpdatedAt,
		})
	}

	app.jsonResponse(w, http.StatusOK, professionalDashboard{
		Variant:     accesscontrol.VariantProfessional,
		HeldCarts:   app.carts.Len(),
		ActiveCarts: rows,
		Pagination:  p,
	})
}

type individualDashboard struct {
	Variant accesscontrol.Variant `json:"variant"`
	Cart    cartView              `json:"cart"`
}

func (app *application) individualDashboardHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user := getUserFromContext(r)

	snap, err := app.carts.Snapshot(ctx, user.ID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusOK, individualDashboard{
		Variant: accesscontrol.VariantIndividual,
		Cart:    newCartView(snap),
	})
}
