package maze

import (
	"io"

	"github.com/fogleman/gg"
)

// RenderOptions controls RenderPNG output.
type RenderOptions struct {
	CellSize   int    // pixels per grid cell
	Background string // hex color of open cells
	WallColor  string
	Palette    []string // marker colors, cycled by marker index
}

// DefaultRenderOptions is the palette used by the /api/map.png endpoint.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		CellSize:   12,
		Background: "#1b1f27",
		WallColor:  "#4c566a",
		Palette:    []string{"#ebcb8b", "#a3be8c", "#88c0d0", "#b48ead", "#d08770", "#bf616a"},
	}
}

// RenderPNG draws the grid with a dot for every marker and writes a PNG.
func RenderPNG(w io.Writer, g *Grid, markers []Point, opts RenderOptions) error {
	cell := opts.CellSize
	if cell <= 0 {
		cell = DefaultRenderOptions().CellSize
	}
	size := float64(cell)

	dc := gg.NewContext(g.width*cell, g.height*cell)
	dc.SetHexColor(opts.Background)
	dc.Clear()

	dc.SetHexColor(opts.WallColor)
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			if g.At(x, y) == Wall {
				dc.DrawRectangle(float64(x)*size, float64(y)*size, size, size)
			}
		}
	}
	dc.Fill()

	for i, m := range markers {
		if !g.InBounds(m.X, m.Y) {
			continue
		}
		if len(opts.Palette) > 0 {
			dc.SetHexColor(opts.Palette[i%len(opts.Palette)])
		} else {
			dc.SetHexColor("#ffffff")
		}
		dc.DrawCircle(float64(m.X)*size+size/2, float64(m.Y)*size+size/2, size*0.35)
		dc.Fill()
	}

	return dc.EncodePNG(w)
}
