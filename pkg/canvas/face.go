package canvas

import (
	"github.com/gogpu/gg/text"
)

// LoadFace reads a TTF or OTF file and returns a face at the given size
// in points, for RenderOptions.Face.
func LoadFace(path string, size float64) (text.Face, error) {
	src, err := text.NewFontSourceFromFile(path)
	if err != nil {
		return nil, err
	}
	return src.Face(size), nil
}
