package imageurl

import (
	"strconv"
)

// Defaults used when an option is left at its zero value.
const (
	DefaultCompressLevel  = 75
	DefaultBorderColor    = "000000"
	DefaultBorderWidth    = 1
	DefaultBorderHeight   = 1
	DefaultBorderMode     = "outbound"
	DefaultRotateBg       = "000000"
	DefaultSepiaThreshold = 80
	DefaultThumbnailSize  = 50
	DefaultThumbnailFit   = "outbound"
	DefaultWatermarkPos   = "top-left"
	DefaultLevelAmount    = 1
)

// AutoRotate rotates the image according to its EXIF orientation.
func (u ImageURL) AutoRotate() ImageURL { return u.add("autoRotate") }

// Desaturate turns the image grayscale.
func (u ImageURL) Desaturate() ImageURL { return u.add("desaturate") }

// FlipHorizontally mirrors the image left to right.
func (u ImageURL) FlipHorizontally() ImageURL { return u.add("flipHorizontally") }

// FlipVertically mirrors the image top to bottom.
func (u ImageURL) FlipVertically() ImageURL { return u.add("flipVertically") }

// Progressive asks for an interlaced image.
func (u ImageURL) Progressive() ImageURL { return u.add("progressive") }

// Strip removes profiles and comments from the image.
func (u ImageURL) Strip() ImageURL { return u.add("strip") }

// Transpose flips the image along its top-left to bottom-right diagonal.
func (u ImageURL) Transpose() ImageURL { return u.add("transpose") }

// Transverse flips the image along its bottom-left to top-right diagonal.
func (u ImageURL) Transverse() ImageURL { return u.add("transverse") }

// Compress lowers the quality of the output. A level of 0 means 75.
func (u ImageURL) Compress(level int) ImageURL {
	if level == 0 {
		level = DefaultCompressLevel
	}
	return u.add("compress", intParam("level", level))
}

// BorderOptions configures Border. Zero fields take the defaults.
type BorderOptions struct {
	Color  string
	Width  int
	Height int
	Mode   string
}

// Border draws a border around the image.
func (u ImageURL) Border(opts BorderOptions) ImageURL {
	if opts.Color == "" {
		opts.Color = DefaultBorderColor
	}
	if opts.Width == 0 {
		opts.Width = DefaultBorderWidth
	}
	if opts.Height == 0 {
		opts.Height = DefaultBorderHeight
	}
	if opts.Mode == "" {
		opts.Mode = DefaultBorderMode
	}
	return u.add("border",
		Param{"color", opts.Color},
		intParam("width", opts.Width),
		intParam("height", opts.Height),
		Param{"mode", opts.Mode},
	)
}

// CanvasOptions configures Canvas. Width and Height are required.
type CanvasOptions struct {
	Width  int
	Height int
	Mode   string
	X      int
	Y      int
	Bg     string
}

// Canvas places the image on a new canvas.
func (u ImageURL) Canvas(opts CanvasOptions) ImageURL {
	if opts.Width <= 0 || opts.Height <= 0 {
		return u.invalid("canvas", "width and height must be specified")
	}
	params := []Param{intParam("width", opts.Width), intParam("height", opts.Height)}
	if opts.Mode != "" {
		params = append(params, Param{"mode", opts.Mode})
	}
	if opts.X != 0 {
		params = append(params, intParam("x", opts.X))
	}
	if opts.Y != 0 {
		params = append(params, intParam("y", opts.Y))
	}
	if opts.Bg != "" {
		params = append(params, Param{"bg", opts.Bg})
	}
	return u.add("canvas", params...)
}

// CropOptions configures Crop. Mode is "", "center", "center-x" or "center-y".
type CropOptions struct {
	X      int
	Y      int
	Width  int
	Height int
	Mode   string
}

// Crop cuts out a region of the image. X is not sent for the "center" and
// "center-x" modes, Y is not sent for "center" and "center-y".
func (u ImageURL) Crop(opts CropOptions) ImageURL {
	if opts.Width <= 0 || opts.Height <= 0 {
		return u.invalid("crop", "width and height must be specified")
	}
	switch opts.Mode {
	case "", "center", "center-x", "center-y":
	default:
		return u.invalid("crop", "unknown mode "+strconv.Quote(opts.Mode))
	}

	params := []Param{intParam("width", opts.Width), intParam("height", opts.Height)}
	if opts.Mode != "center" && opts.Mode != "center-x" {
		params = append(params, intParam("x", opts.X))
	}
	if opts.Mode != "center" && opts.Mode != "center-y" {
		params = append(params, intParam("y", opts.Y))
	}
	if opts.Mode != "" {
		params = append(params, Param{"mode", opts.Mode})
	}
	return u.add("crop", params...)
}

// MaxSize scales the image down to fit inside width x height. Either may be
// zero, but not both.
func (u ImageURL) MaxSize(width, height int) ImageURL {
	params, ok := sizeParams(width, height)
	if !ok {
		return u.invalid("maxSize", "width or height must be specified")
	}
	return u.add("maxSize", params...)
}

// Resize resizes the image. Either dimension may be zero to keep the aspect
// ratio, but not both.
func (u ImageURL) Resize(width, height int) ImageURL {
	params, ok := sizeParams(width, height)
	if !ok {
		return u.invalid("resize", "width or height must be specified")
	}
	return u.add("resize", params...)
}

// Rotate rotates the image by angle degrees, filling with bg ("000000" when empty).
func (u ImageURL) Rotate(angle float64, bg string) ImageURL {
	if angle == 0 {
		return u.invalid("rotate", "angle must be specified")
	}
	if bg == "" {
		bg = DefaultRotateBg
	}
	return u.add("rotate", floatParam("angle", angle), Param{"bg", bg})
}

// Sepia applies a sepia tone. A threshold of 0 means 80.
func (u ImageURL) Sepia(threshold int) ImageURL {
	if threshold == 0 {
		threshold = DefaultSepiaThreshold
	}
	return u.add("sepia", intParam("threshold", threshold))
}

// ThumbnailOptions configures Thumbnail. Zero fields take the defaults
// (50x50, fit "outbound").
type ThumbnailOptions struct {
	Width  int
	Height int
	Fit    string
}

// Thumbnail creates a thumbnail of the image.
func (u ImageURL) Thumbnail(opts ThumbnailOptions) ImageURL {
	if opts.Width == 0 {
		opts.Width = DefaultThumbnailSize
	}
	if opts.Height == 0 {
		opts.Height = DefaultThumbnailSize
	}
	if opts.Fit == "" {
		opts.Fit = DefaultThumbnailFit
	}
	return u.add("thumbnail",
		intParam("width", opts.Width),
		intParam("height", opts.Height),
		Param{"fit", opts.Fit},
	)
}

// WatermarkOptions configures Watermark. Image is the identifier of the
// watermark image; when empty the server default is used.
type WatermarkOptions struct {
	Image    string
	Width    int
	Height   int
	Position string
	X        int
	Y        int
}

// Watermark places another image on top of this one.
func (u ImageURL) Watermark(opts WatermarkOptions) ImageURL {
	if opts.Position == "" {
		opts.Position = DefaultWatermarkPos
	}
	params := []Param{
		{"position", opts.Position},
		intParam("x", opts.X),
		intParam("y", opts.Y),
	}
	if opts.Image != "" {
		params = append(params, Param{"img", opts.Image})
	}
	if opts.Width != 0 {
		params = append(params, intParam("width", opts.Width))
	}
	if opts.Height != 0 {
		params = append(params, intParam("height", opts.Height))
	}
	return u.add("watermark", params...)
}

// SmartSize crops around the image's point of interest. crop is one of
// "close", "medium", "wide" or "" for the server default.
func (u ImageURL) SmartSize(width, height int, crop string) ImageURL {
	if width <= 0 || height <= 0 {
		return u.invalid("smartSize", "width and height must be specified")
	}
	params := []Param{intParam("width", width), intParam("height", height)}
	if crop != "" {
		params = append(params, Param{"crop", crop})
	}
	return u.add("smartSize", params...)
}

// ContrastOptions configures Contrast. Zero fields are not sent.
type ContrastOptions struct {
	Alpha float64
	Beta  float64
}

// Contrast changes the contrast of the image.
func (u ImageURL) Contrast(opts ContrastOptions) ImageURL {
	var params []Param
	if opts.Alpha != 0 {
		params = append(params, floatParam("alpha", opts.Alpha))
	}
	if opts.Beta != 0 {
		params = append(params, floatParam("beta", opts.Beta))
	}
	return u.add("contrast", params...)
}

// SharpenOptions configures Sharpen. Preset is one of "light", "moderate",
// "strong" or "extreme"; zero fields are not sent.
type SharpenOptions struct {
	Preset    string
	Radius    float64
	Sigma     float64
	Gain      float64
	Threshold float64
}

// Sharpen sharpens the image.
func (u ImageURL) Sharpen(opts SharpenOptions) ImageURL {
	var params []Param
	if opts.Preset != "" {
		params = append(params, Param{"preset", opts.Preset})
	}
	if opts.Radius != 0 {
		params = append(params, floatParam("radius", opts.Radius))
	}
	if opts.Sigma != 0 {
		params = append(params, floatParam("sigma", opts.Sigma))
	}
	if opts.Gain != 0 {
		params = append(params, floatParam("gain", opts.Gain))
	}
	if opts.Threshold != 0 {
		params = append(params, floatParam("threshold", opts.Threshold))
	}
	return u.add("sharpen", params...)
}

// VignetteOptions configures Vignette. Zero fields are not sent.
type VignetteOptions struct {
	Scale      float64
	OuterColor string
	InnerColor string
}

// Vignette darkens the edges of the image.
func (u ImageURL) Vignette(opts VignetteOptions) ImageURL {
	var params []Param
	if opts.Scale != 0 {
		params = append(params, floatParam("scale", opts.Scale))
	}
	if opts.OuterColor != "" {
		params = append(params, Param{"outer", opts.OuterColor})
	}
	if opts.InnerColor != "" {
		params = append(params, Param{"inner", opts.InnerColor})
	}
	return u.add("vignette", params...)
}

// Level adjusts the black and white points. An amount of 0 means 1; channel
// limits the change to the given channels, e.g. "rg".
func (u ImageURL) Level(amount int, channel string) ImageURL {
	if amount == 0 {
		amount = DefaultLevelAmount
	}
	params := []Param{intParam("amount", amount)}
	if channel != "" {
		params = append(params, Param{"channel", channel})
	}
	return u.add("level", params...)
}

// ModulateOptions configures Modulate. Values are percentages; zero fields
// are not sent.
type ModulateOptions struct {
	Brightness int
	Saturation int
	Hue        int
}

// Modulate changes brightness, saturation and hue.
func (u ImageURL) Modulate(opts ModulateOptions) ImageURL {
	var params []Param
	if opts.Brightness != 0 {
		params = append(params, intParam("b", opts.Brightness))
	}
	if opts.Saturation != 0 {
		params = append(params, intParam("s", opts.Saturation))
	}
	if opts.Hue != 0 {
		params = append(params, intParam("h", opts.Hue))
	}
	return u.add("modulate", params...)
}

// Convert changes the output format by changing the URL extension. It does
// not add a transformation.
func (u ImageURL) Convert(extension string) ImageURL {
	if extension == "" {
		return u.invalid("convert", "extension must be specified")
	}
	u.extension = extension
	return u
}

// Gif is shorthand for Convert("gif").
func (u ImageURL) Gif() ImageURL { return u.Convert("gif") }

// Jpg is shorthand for Convert("jpg").
func (u ImageURL) Jpg() ImageURL { return u.Convert("jpg") }

// Png is shorthand for Convert("png").
func (u ImageURL) Png() ImageURL { return u.Convert("png") }

func sizeParams(width, height int) ([]Param, bool) {
	if width <= 0 && height <= 0 {
		return nil, false
	}
	var params []Param
	if width > 0 {
		params = append(params, intParam("width", width))
	}
	if height > 0 {
		params = append(params, intParam("height", height))
	}
	return params, true
}

func intParam(key string, v int) Param {
	return Param{Key: key, Value: strconv.Itoa(v)}
}

func floatParam(key string, v float64) Param {
	return Param{Key: key, Value: strconv.FormatFloat(v, 'f', -1, 64)}
}
