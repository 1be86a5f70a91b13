package viz

import (
	"fmt"
	"io"
	"strings"
)

// SnapshotSVG renders every dot of the canvas as a circle. scale is the
// size of one dot in SVG units.
func SnapshotSVG(canvas *Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}
	w, h := canvas.DotSize()
	width, height := float64(w)*scale, float64(h)*scale

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<g fill="#00ccff">
`, width, height, width, height)

	r := scale * 0.4
	for _, d := range canvas.Dots() {
		cx := float64(d[0])*scale + scale/2
		cy := float64(d[1])*scale + scale/2
		fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n", cx, cy, r)
	}
	sb.WriteString("</g>\n</svg>\n")
	return sb.String()
}

func WriteSVG(w io.Writer, canvas *Canvas, scale float64) error {
	_, err := io.WriteString(w, SnapshotSVG(canvas, scale))
	return err
}
