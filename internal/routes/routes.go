package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/compia/compia/internal/auth"
	"github.com/compia/compia/internal/handlers"
	"github.com/compia/compia/internal/middleware"
	"github.com/compia/compia/internal/models"
)

// Handlers bundles the route module handlers for registration.
type Handlers struct {
	Auth          *handlers.AuthHandler
	Users         *handlers.UserHandler
	Organizations *handlers.OrganizationHandler
	Inspections   *handlers.InspectionHandler
	Checklists    *handlers.ChecklistHandler
	Invitations   *handlers.InvitationHandler
	Pricing       *handlers.PricingHandler
	Admin         *handlers.AdminHandler
}

// RegisterModules fills the registry with every route module. Identity
// resolution and rate limiting run globally before any module; RequireIdentity
// here is what turns an anonymous request into a 401 on protected prefixes.
func RegisterModules(reg *Registry, h *Handlers) {
	// Public: pricing and the provider callback need no identity at all.
	reg.Register("/pricing", func() chi.Router {
		r := chi.NewRouter()
		h.Pricing.RegisterRoutes(r)
		return r
	})

	reg.Register("/auth", func() chi.Router {
		r := chi.NewRouter()
		h.Auth.RegisterRoutes(r, middleware.BurstGuardByIP(middleware.DefaultBurstGuard()))
		return r
	})

	reg.Register("/users", protectedModule(h.Users.RegisterRoutes))
	reg.Register("/organizations", protectedModule(h.Organizations.RegisterRoutes))
	reg.Register("/inspections", protectedModule(h.Inspections.RegisterRoutes))
	reg.Register("/checklists", protectedModule(h.Checklists.RegisterRoutes))

	// Invitations applies identity checks per-route: accept must admit
	// pending users, since accepting is what activates an invited account.
	reg.Register("/invitations", func() chi.Router {
		r := chi.NewRouter()
		h.Invitations.RegisterRoutes(r, middleware.BurstGuardByIP(middleware.DefaultBurstGuard()))
		return r
	})

	reg.Register("/admin", func() chi.Router {
		r := chi.NewRouter()
		r.Use(auth.RequireIdentity)
		r.Use(auth.RequireRole(models.RoleSystemAdmin))
		h.Admin.RegisterRoutes(r)
		return r
	})
}

func protectedModule(register func(chi.Router)) ModuleFactory {
	return func() chi.Router {
		r := chi.NewRouter()
		r.Use(auth.RequireIdentity)
		register(r)
		return r
	}
}
