// Package pkg provides the core libraries of the fractal planner.
//
// # Overview
//
// Fractal draws a planner as a circle of three concentric rings. The core
// is the present, the middle ring holds months (or time slots of a day)
// and the outer ring holds quarters. Every point on the circle belongs to
// exactly one sector, and every task lives in one sector.
//
// The libraries are layered:
//
//  1. [geometry] - rings, partitions, hit testing and wedge outlines
//  2. [task] and [store] - the task model and its persistence backends
//  3. [planner] - selecting, dropping into and clearing sectors
//  4. [render] and [pipeline] - drawing the circle, with [cache] in front
//  5. [calsync] and [session] - pushing changes to a calendar service
//
// # Data Flow
//
//	pointer (x, y)
//	     ↓
//	[geometry] Classify → ring/index
//	     ↓
//	[task] SectorKey → [store] ListBySector
//	     ↓
//	[planner] Selection
//
// Rendering runs the other way: [planner] Counts feeds [pipeline] Runner,
// which looks the artifact up in [cache] and otherwise asks [render] for
// SVG, PNG, PDF or JSON.
//
// # Quick Start
//
//	part, _ := geometry.VariantPlain.Partition()
//	g, _ := geometry.ForViewBox(400, 400, 0.4, part)
//
//	st := memory.New(nil)
//	p := planner.New(g, geometry.VariantPlain, st)
//
//	t, ok, _ := p.Drop(ctx, 300, 200, "Renew passport")
//	if ok {
//	    fmt.Println(t.Key()) // monthly/0
//	}
//
// # Error Handling
//
// Libraries return [errors.Error] values carrying a [errors.Code]; use
// [errors.Is] to branch on the code and [errors.UserMessage] for display.
//
// [geometry]: https://pkg.go.dev/github.com/matzehuels/fractal/pkg/geometry
// [task]: https://pkg.go.dev/github.com/matzehuels/fractal/pkg/task
// [store]: https://pkg.go.dev/github.com/matzehuels/fractal/pkg/store
// [planner]: https://pkg.go.dev/github.com/matzehuels/fractal/pkg/planner
// [render]: https://pkg.go.dev/github.com/matzehuels/fractal/pkg/render
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/fractal/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/fractal/pkg/cache
// [calsync]: https://pkg.go.dev/github.com/matzehuels/fractal/pkg/calsync
// [session]: https://pkg.go.dev/github.com/matzehuels/fractal/pkg/session
// [errors.Error]: https://pkg.go.dev/github.com/matzehuels/fractal/pkg/errors#Error
// [errors.Code]: https://pkg.go.dev/github.com/matzehuels/fractal/pkg/errors#Code
// [errors.Is]: https://pkg.go.dev/github.com/matzehuels/fractal/pkg/errors#Is
// [errors.UserMessage]: https://pkg.go.dev/github.com/matzehuels/fractal/pkg/errors#UserMessage
package pkg
