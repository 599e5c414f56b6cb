package auth

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/creative_connect/internal/config"
)

// Deps is everything a provider constructor may need.
type Deps struct {
	DB       *gorm.DB
	Config   config.Config
	Denylist Denylist
	Log      *logrus.Logger
}

type Factory func(deps Deps) (Provider, error)

// Registry maps the configured provider kind to its constructor.
type Registry struct {
	factories map[config.AuthProvider]Factory
}

// NewRegistry returns a registry holding every built-in provider.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[config.AuthProvider]Factory)}
	r.Register(config.AuthProviderJWT, NewJWTProvider)
	r.Register(config.AuthProviderGoogle, NewGoogleProvider)
	return r
}

// Register panics on a duplicate kind; registration happens at start-up.
func (r *Registry) Register(kind config.AuthProvider, f Factory) {
	if _, exists := r.factories[kind]; exists {
		panic(fmt.Sprintf("auth: provider %q already registered", kind))
	}
	r.factories[kind] = f
}

func (r *Registry) Build(kind config.AuthProvider, deps Deps) (Provider, error) {
	f, ok := r.factories[kind]
	if !ok {
		return nil, fmt.Errorf("auth: provider %q not registered, available: %v", kind, r.List())
	}
	if deps.Denylist == nil {
		deps.Denylist = NopDenylist{}
	}
	return f(deps)
}

func (r *Registry) List() []config.AuthProvider {
	out := make([]config.AuthProvider, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
