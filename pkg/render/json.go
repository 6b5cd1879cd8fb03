package render

import (
	"encoding/json"

	"github.com/matzehuels/fractal/pkg/geometry"
)

type jsonOutput struct {
	Width   float64        `json:"width"`
	Height  float64        `json:"height"`
	Center  geometry.Point `json:"center"`
	Radius  float64        `json:"radius"`
	Theme   string         `json:"theme"`
	Sectors []jsonSector   `json:"sectors"`
}

type jsonSector struct {
	geometry.Outline
	Path    string `json:"path"`
	Quarter int    `json:"quarter"`
	Fill    string `json:"fill"`
	Text    string `json:"text,omitempty"`
	Count   int    `json:"count,omitempty"`
}

// RenderJSON exports the outlines of g with their fills, labels and
// counts. Sectors are listed innermost ring first.
func RenderJSON(g geometry.Geometry, opts ...Option) ([]byte, error) {
	r := newRenderer(opts...)
	c := g.Center()
	out := jsonOutput{
		Width:  2 * c.X,
		Height: 2 * c.Y,
		Center: c,
		Radius: g.Radius(),
		Theme:  r.theme.Name,
	}
	for _, o := range g.Outlines() {
		q, _ := g.Partition().QuarterOf(o.Address.Ring, o.Address.Index)
		out.Sectors = append(out.Sectors, jsonSector{
			Outline: o,
			Path:    o.PathData(),
			Quarter: q,
			Fill:    r.fill(g, o.Address),
			Text:    r.label(o.Address),
			Count:   r.counts[o.Address],
		})
	}
	return json.MarshalIndent(out, "", "  ")
}
