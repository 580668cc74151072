// Package resolve memoizes reference entity lookups for one import run.
// Makes and models are created on first encounter through the current page
// transaction; fuels and transmissions only resolve against the pre-seeded
// closed enumerations.
package resolve

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/drivebase/catalog-cli/internal/classify"
	"github.com/drivebase/catalog-cli/internal/model"
	"github.com/drivebase/catalog-cli/internal/store"
)

// ErrUnresolvable marks references that can never resolve (empty names).
// Callers treat it as a validation rejection, not a store failure.
var ErrUnresolvable = eris.New("resolve: unresolvable reference")

// Resolver holds the per-run reference caches. A single mutex guards all
// maps so partitions may run in parallel; duplicate creates racing past the
// cache are absorbed by the store's uniqueness constraints.
type Resolver struct {
	mu            sync.Mutex
	makes         map[string]model.Ref // keyed by raw make name
	models        map[string]model.Ref // keyed by makeID + base model token
	fuels         map[string]model.Ref // keyed by raw upstream fuel text
	transmissions map[string]model.Ref // keyed by raw upstream transmission text

	fuelTypes         map[string]model.Ref // pre-seeded enumeration by name
	transmissionTypes map[string]model.Ref
}

// New creates a Resolver over the pre-seeded fuel and transmission
// enumerations loaded at run start.
func New(fuelTypes, transmissionTypes map[string]model.Ref) *Resolver {
	return &Resolver{
		makes:             make(map[string]model.Ref),
		models:            make(map[string]model.Ref),
		fuels:             make(map[string]model.Ref),
		transmissions:     make(map[string]model.Ref),
		fuelTypes:         fuelTypes,
		transmissionTypes: transmissionTypes,
	}
}

// Make resolves a manufacturer by name, creating it on first encounter.
func (r *Resolver) Make(ctx context.Context, tx store.PageTx, name string) (model.Ref, error) {
	if name == "" {
		return model.Ref{}, ErrUnresolvable
	}

	r.mu.Lock()
	if ref, ok := r.makes[name]; ok {
		r.mu.Unlock()
		return ref, nil
	}
	r.mu.Unlock()

	ref, created, err := tx.GetOrCreateMake(ctx, name)
	if err != nil {
		return model.Ref{}, err
	}
	if created {
		zap.L().Info("created make", zap.String("name", name))
	}

	r.mu.Lock()
	r.makes[name] = ref
	r.mu.Unlock()
	return ref, nil
}

// driveSuffixes are drivetrain trim markers stripped from model names before
// reducing to the base model token.
var driveSuffixes = []string{"2WD", "4WD", "AWD", "FWD", "RWD"}

// BaseModelName reduces a raw model name to its canonical base token:
// drivetrain suffixes are stripped and the first whitespace-delimited token
// wins. This deliberately collapses trim variants ("Camry LE", "Camry XSE")
// into one model reference.
func BaseModelName(raw string) string {
	clean := raw
	for _, suffix := range driveSuffixes {
		clean = strings.TrimSpace(strings.ReplaceAll(clean, suffix, ""))
	}
	fields := strings.Fields(clean)
	if len(fields) == 0 {
		return raw
	}
	return fields[0]
}

// Model resolves a model under the given make, creating it on first
// encounter. The cache key combines the make id with the base model token.
func (r *Resolver) Model(ctx context.Context, tx store.PageTx, rawName string, mk model.Ref) (model.Ref, error) {
	if rawName == "" || mk.Zero() {
		return model.Ref{}, ErrUnresolvable
	}

	base := BaseModelName(rawName)
	key := strings.ToLower(base)
	cacheKey := cacheKeyFor(mk.ID, key)

	r.mu.Lock()
	if ref, ok := r.models[cacheKey]; ok {
		r.mu.Unlock()
		return ref, nil
	}
	r.mu.Unlock()

	ref, created, err := tx.GetOrCreateModel(ctx, mk.ID, base)
	if err != nil {
		return model.Ref{}, err
	}
	if created {
		zap.L().Info("created model", zap.String("name", base), zap.String("make", mk.Name))
	}

	r.mu.Lock()
	r.models[cacheKey] = ref
	r.mu.Unlock()
	return ref, nil
}

// Fuel resolves raw fuel text to a pre-seeded fuel reference. The cache is
// keyed by the raw upstream text so each distinct phrasing classifies once.
// A classification missing from the enumeration logs a warning and reports
// absence; the caller applies its fallback policy.
func (r *Resolver) Fuel(raw string) (model.Ref, bool) {
	return r.resolveEnum(raw, r.fuels, r.fuelTypes, "fuel", func(s string) (string, bool) {
		c, ok := classify.Fuel(s)
		return string(c), ok
	})
}

// Transmission resolves raw transmission text to a pre-seeded transmission
// reference, with the same cache and fallback semantics as Fuel.
func (r *Resolver) Transmission(raw string) (model.Ref, bool) {
	return r.resolveEnum(raw, r.transmissions, r.transmissionTypes, "transmission", func(s string) (string, bool) {
		c, ok := classify.Transmission(s)
		return string(c), ok
	})
}

func (r *Resolver) resolveEnum(raw string, cache, types map[string]model.Ref, kind string, classifyFn func(string) (string, bool)) (model.Ref, bool) {
	if raw == "" {
		return model.Ref{}, false
	}

	r.mu.Lock()
	if ref, ok := cache[raw]; ok {
		r.mu.Unlock()
		return ref, true
	}
	r.mu.Unlock()

	name, ok := classifyFn(raw)
	if !ok {
		return model.Ref{}, false
	}

	ref, ok := types[name]
	if !ok {
		zap.L().Warn("classified value missing from reference table",
			zap.String("kind", kind),
			zap.String("value", name),
			zap.String("raw", raw),
		)
		return model.Ref{}, false
	}

	r.mu.Lock()
	cache[raw] = ref
	r.mu.Unlock()
	return ref, true
}

// FallbackFuel returns the default "gasoline" reference.
func (r *Resolver) FallbackFuel() (model.Ref, bool) {
	ref, ok := r.fuelTypes[string(model.FuelGasoline)]
	return ref, ok
}

// FallbackTransmission returns the default "automatic" reference.
func (r *Resolver) FallbackTransmission() (model.Ref, bool) {
	ref, ok := r.transmissionTypes[string(model.TransmissionAutomatic)]
	return ref, ok
}

func cacheKeyFor(makeID int64, base string) string {
	return strconv.FormatInt(makeID, 10) + ":" + base
}
