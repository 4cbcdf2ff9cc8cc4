package gen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/milk9111/tilecanvas/tilemap"
)

const DefaultScriptTimeout = 2 * time.Second

var ErrScript = errors.New("gen: script")

// ScriptParams run a tengo program against a blank map. The program sees
// width, height and seed globals plus a "canvas" module:
//
//	canvas.set(x, y, type)   paint a cell, returns false when out of range
//	canvas.get(x, y)         type at a cell or ""
//	canvas.noise(x, y)       fractal noise in [0, 1]
//	canvas.rand()            float in [0, 1)
//	canvas.rand_int(n)       int in [0, n)
type ScriptParams struct {
	Seed    int64         `json:"seed"`
	Source  string        `json:"source"`
	Octaves int           `json:"octaves"`
	Timeout time.Duration `json:"timeout"`
}

// scriptModules excludes os so scripts cannot touch the filesystem.
var scriptModules = []string{"math", "text", "times", "rand", "fmt", "json", "enum", "base64", "hex"}

// Script compiles and runs src. The result depends only on the source and
// the seed.
func Script(ctx context.Context, w, h int, p ScriptParams) ([]tilemap.Placement, error) {
	if err := checkSize(w, h); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.Source) == "" {
		return nil, fmt.Errorf("%w: empty source", ErrScript)
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultScriptTimeout
	}

	g := newGrid(w, h)
	script := tengo.NewScript([]byte(p.Source))
	_ = script.Add("width", w)
	_ = script.Add("height", h)
	_ = script.Add("seed", p.Seed)
	_ = script.Add("canvas", buildCanvasModule(g, p))
	script.SetImports(stdlib.GetModuleMap(scriptModules...))

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("%w: compile: %w", ErrScript, err)
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := compiled.RunContext(runCtx); err != nil {
		return nil, fmt.Errorf("%w: run: %w", ErrScript, err)
	}
	return g.placements(), nil
}

func buildCanvasModule(g *grid, p ScriptParams) *tengo.ImmutableMap {
	rng := newRand(p.Seed)
	f := newFractal(p.Seed, p.Octaves, 0.5, 2)
	values := map[string]tengo.Object{}

	values["set"] = &tengo.UserFunction{Name: "set", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) != 3 {
			return nil, tengo.ErrWrongNumArguments
		}
		x, okX := tengo.ToInt(args[0])
		y, okY := tengo.ToInt(args[1])
		if !okX || !okY || !g.in(x, y) {
			return tengo.FalseValue, nil
		}
		g.set(x, y, strings.TrimSpace(objectAsString(args[2])))
		return tengo.TrueValue, nil
	}}

	values["get"] = &tengo.UserFunction{Name: "get", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) != 2 {
			return nil, tengo.ErrWrongNumArguments
		}
		x, okX := tengo.ToInt(args[0])
		y, okY := tengo.ToInt(args[1])
		if !okX || !okY {
			return &tengo.String{Value: ""}, nil
		}
		return &tengo.String{Value: g.get(x, y)}, nil
	}}

	values["noise"] = &tengo.UserFunction{Name: "noise", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) != 2 {
			return nil, tengo.ErrWrongNumArguments
		}
		x, okX := tengo.ToFloat64(args[0])
		y, okY := tengo.ToFloat64(args[1])
		if !okX || !okY {
			return &tengo.Float{Value: 0}, nil
		}
		return &tengo.Float{Value: f.at(x, y)}, nil
	}}

	values["rand"] = &tengo.UserFunction{Name: "rand", Value: func(args ...tengo.Object) (tengo.Object, error) {
		return &tengo.Float{Value: rng.Float64()}, nil
	}}

	values["rand_int"] = &tengo.UserFunction{Name: "rand_int", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) != 1 {
			return nil, tengo.ErrWrongNumArguments
		}
		n, ok := tengo.ToInt(args[0])
		if !ok || n <= 0 {
			return &tengo.Int{Value: 0}, nil
		}
		return &tengo.Int{Value: int64(rng.IntN(n))}, nil
	}}

	return &tengo.ImmutableMap{Value: values}
}

func objectAsString(obj tengo.Object) string {
	if obj == nil {
		return ""
	}
	switch v := obj.(type) {
	case *tengo.String:
		return v.Value
	default:
		return strings.Trim(v.String(), "\"")
	}
}
