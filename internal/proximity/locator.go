package proximity

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/hireloop/jobgeo/internal/model"
)

// ErrLocationUnavailable reports that the location capability was denied or
// failed. Callers must surface it distinctly from "no matches within radius":
// they are different states, not the same empty screen.
var ErrLocationUnavailable = eris.New("proximity: location unavailable")

// Locator acquires the query origin on demand, typically from a device
// capability. Implementations return ErrLocationUnavailable (wrapped with a
// human-readable reason) rather than defaulting silently.
type Locator interface {
	Current(ctx context.Context) (model.GeoPoint, error)
}

// LocatorFunc adapts a function to the Locator interface.
type LocatorFunc func(ctx context.Context) (model.GeoPoint, error)

// Current implements Locator.
func (f LocatorFunc) Current(ctx context.Context) (model.GeoPoint, error) { return f(ctx) }

// StaticLocator returns a fixed origin, e.g. one supplied via CLI flags.
func StaticLocator(p model.GeoPoint) Locator {
	return LocatorFunc(func(context.Context) (model.GeoPoint, error) { return p, nil })
}
