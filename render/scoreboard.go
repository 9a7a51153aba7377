package render

import (
	"fmt"
	"image"
	"sort"

	"gocv.io/x/gocv"
)

// Scoreboard writes the points of each identity in the top left corner of
// the image, highest balance first
func Scoreboard(img *gocv.Mat, points map[string]int, font Font) {

	ids := make([]string, 0, len(points))

	for id := range points {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool {
		if points[ids[i]] == points[ids[j]] {
			return ids[i] < ids[j]
		}
		return points[ids[i]] > points[ids[j]]
	})

	y := font.TopPad

	for _, id := range ids {
		text := fmt.Sprintf("%s: %d pts", id, points[id])
		textSize := gocv.GetTextSize(text, font.Face, font.Scale, font.Thickness)

		y += textSize.Y + font.TopPad + font.BottomPad

		if y > img.Rows() {
			// no more room
			return
		}

		gocv.PutTextWithParams(img, text, image.Pt(font.LeftPad, y-font.BottomPad),
			font.Face, font.Scale, IdentityColor(id), font.Thickness,
			font.LineType, false)
	}
}
