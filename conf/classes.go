package conf

import (
	"fmt"
	"image/color"
	"strconv"

	"github.com/spf13/viper"
)

// ClassStyle pairs a detector class with its overlay color and the behavior
// label logged for it. Behaviors are a static lookup, not derived from the
// detections themselves.
type ClassStyle struct {
	Label    string
	Color    color.RGBA
	Behavior string
}

// ClassTable is an ordered mapping from class id to style, indexed by the
// detector's class numbering. Ids beyond the table resolve to the fallback
// entry with the numeric id as display label.
type ClassTable struct {
	Styles   []ClassStyle
	Fallback ClassStyle
}

// Colors are declared RGB; gocv converts to OpenCV's BGR order on draw.
var (
	adultGreen   = color.RGBA{R: 108, G: 205, B: 147, A: 255}
	calfBlue     = color.RGBA{R: 117, G: 163, B: 180, A: 255}
	fallbackGray = color.RGBA{R: 190, G: 190, B: 190, A: 255}
)

// DefaultClassTable returns the built-in beluga class styling.
func DefaultClassTable() ClassTable {
	return ClassTable{
		Styles: []ClassStyle{
			{Label: "Adult", Color: adultGreen, Behavior: "surfacing"},
			{Label: "Calf", Color: calfBlue, Behavior: "nursing"},
		},
		Fallback: ClassStyle{Color: fallbackGray, Behavior: "unknown"},
	}
}

// Resolve maps a class id to its display label and style. Unknown ids keep
// rendering and logging, using the fallback style and the id itself as label.
func (t ClassTable) Resolve(classID int) (string, ClassStyle) {
	if classID >= 0 && classID < len(t.Styles) {
		return t.Styles[classID].Label, t.Styles[classID]
	}
	fb := t.Fallback
	fb.Label = strconv.Itoa(classID)
	return fb.Label, fb
}

type classConfig struct {
	Label    string  `mapstructure:"label"`
	Behavior string  `mapstructure:"behavior"`
	Color    []uint8 `mapstructure:"color"` // RGB triplet
}

func loadClassTable(v *viper.Viper) (ClassTable, error) {
	if !v.IsSet("classes") {
		return DefaultClassTable(), nil
	}

	var configured []classConfig
	if err := v.UnmarshalKey("classes", &configured); err != nil {
		return ClassTable{}, fmt.Errorf("parsing classes: %w", err)
	}

	table := ClassTable{Fallback: DefaultClassTable().Fallback}
	for _, cc := range configured {
		if len(cc.Color) != 3 {
			return ClassTable{}, fmt.Errorf("class %q: color must be an RGB triplet", cc.Label)
		}
		table.Styles = append(table.Styles, ClassStyle{
			Label:    cc.Label,
			Behavior: cc.Behavior,
			Color:    color.RGBA{R: cc.Color[0], G: cc.Color[1], B: cc.Color[2], A: 255},
		})
	}
	return table, nil
}
