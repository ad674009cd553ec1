package imageurl

import (
	"fmt"
	"strconv"
)

// Blur is one of PlainBlur, AdaptiveBlur, MotionBlur or RadialBlur. Each
// variant renders its own fixed parameter list; nil fields are left out.
type Blur interface {
	blurParams() []Param
}

// PlainBlur renders radius,sigma.
type PlainBlur struct {
	Radius *float64
	Sigma  *float64
}

// AdaptiveBlur renders type,radius,sigma.
type AdaptiveBlur struct {
	Radius *float64
	Sigma  *float64
}

// MotionBlur renders type,radius,sigma,angle.
type MotionBlur struct {
	Radius *float64
	Sigma  *float64
	Angle  *float64
}

// RadialBlur renders type,angle.
type RadialBlur struct {
	Angle *float64
}

// Float returns a pointer to v, for the optional Blur fields.
func Float(v float64) *float64 { return &v }

func (b PlainBlur) blurParams() []Param {
	return appendSet(nil, floatField{"radius", b.Radius}, floatField{"sigma", b.Sigma})
}

func (b AdaptiveBlur) blurParams() []Param {
	return appendSet([]Param{{"type", "adaptive"}}, floatField{"radius", b.Radius}, floatField{"sigma", b.Sigma})
}

func (b MotionBlur) blurParams() []Param {
	return appendSet([]Param{{"type", "motion"}},
		floatField{"radius", b.Radius}, floatField{"sigma", b.Sigma}, floatField{"angle", b.Angle})
}

func (b RadialBlur) blurParams() []Param {
	return appendSet([]Param{{"type", "radial"}}, floatField{"angle", b.Angle})
}

// Blur appends a blur transformation.
func (u ImageURL) Blur(b Blur) ImageURL {
	if b == nil {
		return u.invalid("blur", "blur variant must be specified")
	}
	return u.add("blur", b.blurParams()...)
}

// ParseBlur picks the variant from the "type" key ("", "gaussian",
// "adaptive", "motion" or "radial") and reads the numeric fields it knows.
// Keys the variant does not use are ignored.
func ParseBlur(params map[string]string) (Blur, error) {
	var fields struct {
		radius, sigma, angle *float64
	}
	for key, dst := range map[string]**float64{
		"radius": &fields.radius,
		"sigma":  &fields.sigma,
		"angle":  &fields.angle,
	} {
		raw, ok := params[key]
		if !ok || raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, &InvalidTransformationError{Name: "blur", Reason: fmt.Sprintf("%s must be a number, got %q", key, raw)}
		}
		*dst = &v
	}

	switch params["type"] {
	case "", "gaussian":
		return PlainBlur{Radius: fields.radius, Sigma: fields.sigma}, nil
	case "adaptive":
		return AdaptiveBlur{Radius: fields.radius, Sigma: fields.sigma}, nil
	case "motion":
		return MotionBlur{Radius: fields.radius, Sigma: fields.sigma, Angle: fields.angle}, nil
	case "radial":
		return RadialBlur{Angle: fields.angle}, nil
	default:
		return nil, &InvalidTransformationError{Name: "blur", Reason: fmt.Sprintf("unknown type %q", params["type"])}
	}
}

type floatField struct {
	key   string
	value *float64
}

func appendSet(params []Param, fields ...floatField) []Param {
	for _, f := range fields {
		if f.value != nil {
			params = append(params, floatParam(f.key, *f.value))
		}
	}
	return params
}
