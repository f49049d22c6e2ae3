package routes

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/ventia-app/ventia-backend/pkg/config"
)

func TestRouteSurface(t *testing.T) {
	mux, ok := NewRouter(Deps{Cfg: &config.Config{}}).(chi.Router)
	if !ok {
		t.Fatalf("router must be a chi mux")
	}

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/webhooks/wompi"},
		{http.MethodPost, "/api/wompi/webhook"},
		{http.MethodPost, "/api/subscriptions/webhook"},
		{http.MethodGet, "/api/storefront/config/tienda-marta"},
		{http.MethodGet, "/api/storefront/products/tienda-marta"},
		{http.MethodGet, "/api/storefront/categories/tienda-marta"},
		{http.MethodPost, "/api/storefront/orders/tienda-marta"},
		{http.MethodGet, "/api/storefront/tienda-marta/products"},
		{http.MethodGet, "/api/user-profiles"},
		{http.MethodPut, "/api/user-profiles"},
		{http.MethodGet, "/api/team-invitations"},
		{http.MethodPost, "/api/team-invitations"},
		{http.MethodGet, "/api/invitations"},
		{http.MethodGet, "/api/profile"},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rctx := chi.NewRouteContext()
			if !mux.Match(rctx, tc.method, tc.path) {
				t.Fatalf("route %s %s is not mounted", tc.method, tc.path)
			}
		})
	}
}
