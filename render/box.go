package render

import (
	"image"

	"github.com/swdee/go-smilecam/tracker"
	"gocv.io/x/gocv"
)

// Face is an identity found in the current frame
type Face struct {
	// ID is the identity label
	ID string
	// Box is the face bounding box in frame coordinates
	Box tracker.Rect
	// Smiling is set when a smile was seen in the box this frame
	Smiling bool
}

// IdentityBoxes renders a highlight box and the identity label around each
// face.  Smiling faces get a thicker box.
func IdentityBoxes(img *gocv.Mat, faces []Face, font Font, lineThickness int) {

	// keep a record of all box labels for later rendering
	type label struct {
		rect    image.Rectangle
		face    Face
		textPos image.Point
	}

	labels := make([]label, 0, len(faces))

	for _, face := range faces {

		useClr := IdentityColor(face.ID)

		thickness := lineThickness
		if face.Smiling {
			thickness *= 2
		}

		// draw rectangle around face
		gocv.Rectangle(img, face.Box.Rectangle(), useClr, thickness)

		textSize := gocv.GetTextSize(face.ID, font.Face, font.Scale, font.Thickness)

		// Calculate the alignment of text label
		var centerX int

		switch font.Alignment {
		case Center:
			centerX = face.Box.Center().X

		case Right:
			centerX = face.Box.BRX() - (textSize.X / 2) - font.RightPad + (lineThickness / 2)

		case Left:
			fallthrough
		default:
			centerX = face.Box.TLX() + (textSize.X / 2) + font.LeftPad - (lineThickness / 2)
		}

		top := face.Box.TLY()

		// keep the label inside the frame when the face touches the top edge
		if top-textSize.Y-font.TopPad-font.BottomPad < 0 {
			top = textSize.Y + font.TopPad + font.BottomPad
		}

		labels = append(labels, label{
			rect: image.Rect(centerX-textSize.X/2-font.LeftPad,
				top-textSize.Y-font.TopPad-font.BottomPad,
				centerX+textSize.X/2+font.RightPad, top),
			face:    face,
			textPos: image.Pt(centerX-textSize.X/2, top-font.BottomPad),
		})
	}

	// draw all labels last so they are the top most layer on the image and
	// don't get overlapped by a neighbouring box
	for _, l := range labels {
		// draw box text gets written on
		gocv.Rectangle(img, l.rect, IdentityColor(l.face.ID), -1)

		// Draw the label over box
		gocv.PutTextWithParams(img, l.face.ID, l.textPos,
			font.Face, font.Scale, font.Color, font.Thickness,
			font.LineType, false)
	}
}
