package imageurl

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
)

type applier func(u ImageURL, a *args) ImageURL

var appliers = map[string]applier{
	"autoRotate":       func(u ImageURL, _ *args) ImageURL { return u.AutoRotate() },
	"desaturate":       func(u ImageURL, _ *args) ImageURL { return u.Desaturate() },
	"flipHorizontally": func(u ImageURL, _ *args) ImageURL { return u.FlipHorizontally() },
	"flipVertically":   func(u ImageURL, _ *args) ImageURL { return u.FlipVertically() },
	"progressive":      func(u ImageURL, _ *args) ImageURL { return u.Progressive() },
	"strip":            func(u ImageURL, _ *args) ImageURL { return u.Strip() },
	"transpose":        func(u ImageURL, _ *args) ImageURL { return u.Transpose() },
	"transverse":       func(u ImageURL, _ *args) ImageURL { return u.Transverse() },
	"compress": func(u ImageURL, a *args) ImageURL {
		return u.Compress(a.integer("level"))
	},
	"border": func(u ImageURL, a *args) ImageURL {
		return u.Border(BorderOptions{
			Color:  a.str("color"),
			Width:  a.integer("width"),
			Height: a.integer("height"),
			Mode:   a.str("mode"),
		})
	},
	"blur": func(u ImageURL, a *args) ImageURL {
		b, err := ParseBlur(a.raw)
		if err != nil {
			a.fail(err)
			return u
		}
		return u.Blur(b)
	},
	"canvas": func(u ImageURL, a *args) ImageURL {
		return u.Canvas(CanvasOptions{
			Width:  a.integer("width"),
			Height: a.integer("height"),
			Mode:   a.str("mode"),
			X:      a.integer("x"),
			Y:      a.integer("y"),
			Bg:     a.str("bg"),
		})
	},
	"crop": func(u ImageURL, a *args) ImageURL {
		return u.Crop(CropOptions{
			X:      a.integer("x"),
			Y:      a.integer("y"),
			Width:  a.integer("width"),
			Height: a.integer("height"),
			Mode:   a.str("mode"),
		})
	},
	"maxSize": func(u ImageURL, a *args) ImageURL {
		return u.MaxSize(a.integer("width"), a.integer("height"))
	},
	"resize": func(u ImageURL, a *args) ImageURL {
		return u.Resize(a.integer("width"), a.integer("height"))
	},
	"rotate": func(u ImageURL, a *args) ImageURL {
		return u.Rotate(a.number("angle"), a.str("bg"))
	},
	"sepia": func(u ImageURL, a *args) ImageURL {
		return u.Sepia(a.integer("threshold"))
	},
	"thumbnail": func(u ImageURL, a *args) ImageURL {
		return u.Thumbnail(ThumbnailOptions{
			Width:  a.integer("width"),
			Height: a.integer("height"),
			Fit:    a.str("fit"),
		})
	},
	"watermark": func(u ImageURL, a *args) ImageURL {
		return u.Watermark(WatermarkOptions{
			Image:    a.str("img"),
			Width:    a.integer("width"),
			Height:   a.integer("height"),
			Position: a.str("position"),
			X:        a.integer("x"),
			Y:        a.integer("y"),
		})
	},
	"smartSize": func(u ImageURL, a *args) ImageURL {
		return u.SmartSize(a.integer("width"), a.integer("height"), a.str("crop"))
	},
	"contrast": func(u ImageURL, a *args) ImageURL {
		return u.Contrast(ContrastOptions{Alpha: a.number("alpha"), Beta: a.number("beta")})
	},
	"sharpen": func(u ImageURL, a *args) ImageURL {
		return u.Sharpen(SharpenOptions{
			Preset:    a.str("preset"),
			Radius:    a.number("radius"),
			Sigma:     a.number("sigma"),
			Gain:      a.number("gain"),
			Threshold: a.number("threshold"),
		})
	},
	"vignette": func(u ImageURL, a *args) ImageURL {
		return u.Vignette(VignetteOptions{
			Scale:      a.number("scale"),
			OuterColor: a.str("outer"),
			InnerColor: a.str("inner"),
		})
	},
	"level": func(u ImageURL, a *args) ImageURL {
		return u.Level(a.integer("amount"), a.str("channel"))
	},
	"modulate": func(u ImageURL, a *args) ImageURL {
		return u.Modulate(ModulateOptions{
			Brightness: a.integer("b"),
			Saturation: a.integer("s"),
			Hue:        a.integer("h"),
		})
	},
	"convert": func(u ImageURL, a *args) ImageURL {
		return u.Convert(a.str("type"))
	},
}

// Names returns the transformation names accepted by Apply, sorted.
func Names() []string {
	return slices.Sorted(maps.Keys(appliers))
}

// Apply appends the transformation called name, reading its arguments from
// params the way they appear in a rendered t[] value. Missing keys take the
// same defaults as the typed methods.
func Apply(u ImageURL, name string, params map[string]string) (ImageURL, error) {
	fn, ok := appliers[name]
	if !ok {
		return u, &UnknownTransformationError{Name: name}
	}
	a := &args{name: name, raw: params}
	next := fn(u, a)
	if a.err != nil {
		return u, a.err
	}
	if next.err != nil && u.err == nil {
		return u, next.err
	}
	return next, nil
}

// ApplyString parses s as "name" or "name:k=v,..." and applies it.
func ApplyString(u ImageURL, s string) (ImageURL, error) {
	t := ParseTransformation(s)
	params := make(map[string]string, len(t.Params))
	for _, p := range t.Params {
		params[p.Key] = p.Value
	}
	return Apply(u, t.Name, params)
}

type args struct {
	name string
	raw  map[string]string
	err  error
}

func (a *args) fail(err error) {
	if a.err == nil {
		a.err = err
	}
}

func (a *args) str(key string) string { return a.raw[key] }

func (a *args) integer(key string) int {
	s, ok := a.raw[key]
	if !ok || s == "" {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		a.fail(&InvalidTransformationError{Name: a.name, Reason: fmt.Sprintf("%s must be an integer, got %q", key, s)})
	}
	return v
}

func (a *args) number(key string) float64 {
	s, ok := a.raw[key]
	if !ok || s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		a.fail(&InvalidTransformationError{Name: a.name, Reason: fmt.Sprintf("%s must be a number, got %q", key, s)})
	}
	return v
}
