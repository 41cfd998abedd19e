package config

import "fleetgate/internal/gateway"

// Routes builds the gateway routing table from the configured downstream
// base URLs. The order here is declaration order only; gateway.NewTable
// re-sorts longest-prefix-first so /api/orders/resolutions is always
// evaluated before /api/orders.
func (c *Config) Routes() []gateway.Route {
	d := c.Downstreams
	return []gateway.Route{
		{PathPrefix: "/api/teams", Downstream: d.Team, RewritePrefix: "/teams", RequiresAuth: true, Resource: "teams"},
		{PathPrefix: "/api/clients", Downstream: d.ClientStore, RewritePrefix: "/clients", RequiresAuth: true, Resource: "clients"},
		{PathPrefix: "/api/stores", Downstream: d.ClientStore, RewritePrefix: "/stores", RequiresAuth: true, Resource: "stores"},
		{PathPrefix: "/api/orders/resolutions", Downstream: d.Order, RewritePrefix: "/orders/resolutions", RequiresAuth: true, Resource: "orders", TeamScoped: true},
		{PathPrefix: "/api/orders", Downstream: d.Order, RewritePrefix: "/orders", RequiresAuth: true, Resource: "orders", TeamScoped: true},
		{PathPrefix: "/api/riders", Downstream: d.Rider, RewritePrefix: "/riders", RequiresAuth: true, Resource: "riders", TeamScoped: true},
		{PathPrefix: "/api/vehicles", Downstream: d.Vehicle, RewritePrefix: "/vehicles", RequiresAuth: true, Resource: "vehicles", TeamScoped: true},
		{PathPrefix: "/api/spare-parts", Downstream: d.SpareParts, RewritePrefix: "/spare-parts", RequiresAuth: true, Resource: "spare_parts"},
	}
}
