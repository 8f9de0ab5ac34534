package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/vertx/internal/httpserver/deps"
	"github.com/MrSnakeDoc/vertx/internal/httpserver/mw"
)

// Access is the network policy wrapped around a group of routes.
type Access int

const (
	Public   Access = iota // health checks, reachable from anywhere
	Internal               // allowed CIDRs only
	Operator               // allowed CIDRs and an allowed Host header
)

func (a Access) String() string {
	switch a {
	case Public:
		return "public"
	case Internal:
		return "internal"
	case Operator:
		return "operator"
	default:
		return "unknown"
	}
}

type (
	Registrar  func(r chi.Router, d deps.Deps)
	Middleware = func(http.Handler) http.Handler
)

type entry struct {
	name   string
	access Access
	reg    Registrar
}

var registry []entry

// Register adds a named group of routes behind the given access policy.
func Register(name string, access Access, reg Registrar) {
	registry = append(registry, entry{name: name, access: access, reg: reg})
}

// Registered lists "name (access)" for every group, in registration order.
func Registered() []string {
	out := make([]string, 0, len(registry))
	for _, e := range registry {
		out = append(out, e.name+" ("+e.access.String()+")")
	}
	return out
}

// Called once from httpserver.NewRouter()
func RegisterAll(r chi.Router, d deps.Deps) {
	for _, e := range registry {
		r.Group(func(g chi.Router) {
			if guards := guardsFor(e.access, d); len(guards) > 0 {
				g.Use(guards...)
			}
			e.reg(g, d)
		})
	}
}

func guardsFor(a Access, d deps.Deps) []Middleware {
	switch a {
	case Internal:
		return []Middleware{mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger)}
	case Operator:
		return []Middleware{
			mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger),
			mw.EnforceHost(d.AllowedHosts, d.Logger),
		}
	default:
		return nil
	}
}
