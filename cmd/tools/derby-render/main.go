// Command derby-render writes a static side or top projection of a derby
// dataset to a PNG or WebP file.
//
// Usage:
//
//	go run ./cmd/tools/derby-render -data hits.json -out derby.png
//	go run ./cmd/tools/derby-render -db derby.db -player 592450 -round 2 -view top -format webp -out p.webp
//
// Flags:
//
//	-data     Dataset JSON export
//	-db       SQLite store (used when -data is empty)
//	-player   Player id or "all" (default: all)
//	-round    Round number or "all" (default: all)
//	-mode     Colour mode: velocity, distance, round, player or index
//	-view     side or top (default: side)
//	-format   png or webp (default: png)
//	-width    Image width in pixels (default: 1200)
//	-height   Image height in pixels (default: 600)
//	-slice    Draw the slice plane at this distance in feet (negative disables)
//	-thumb    Downscale to this width after rendering (0 disables)
package main

import (
	"context"
	"flag"
	"log"
)

func main() {
	var o renderOptions
	flag.StringVar(&o.DataPath, "data", "", "Dataset JSON export")
	flag.StringVar(&o.DBPath, "db", "", "SQLite store")
	flag.StringVar(&o.Player, "player", "all", "Player id or all")
	flag.StringVar(&o.Round, "round", "all", "Round number or all")
	flag.StringVar(&o.Mode, "mode", "player", "Colour mode")
	flag.StringVar(&o.View, "view", "side", "side or top")
	flag.StringVar(&o.Format, "format", "png", "png or webp")
	flag.StringVar(&o.Out, "out", "derby.png", "Output image path")
	flag.IntVar(&o.Width, "width", 1200, "Image width in pixels")
	flag.IntVar(&o.Height, "height", 600, "Image height in pixels")
	flag.Float64Var(&o.Slice, "slice", -1, "Slice plane in feet (negative disables)")
	flag.IntVar(&o.Thumb, "thumb", 0, "Thumbnail width (0 disables)")
	flag.Parse()

	n, err := RunRender(context.Background(), o)
	if err != nil {
		log.Fatalf("render failed: %v", err)
	}
	log.Printf("wrote %s with %d hits", o.Out, n)
}
