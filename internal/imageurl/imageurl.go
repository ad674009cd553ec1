// Package imageurl builds Imbo image URLs carrying a transformation chain.
//
// An ImageURL is an immutable value. Every transformation method returns a
// new ImageURL with one more transformation appended, so a base URL can be
// fanned out into many variants without the variants affecting each other.
// The order of the calls is the order in which the server applies them.
package imageurl

import (
	"net/url"
	"slices"
	"strings"

	"github.com/imbo/imbo-cli/internal/signing"
)

const imagesSegment = "/images/"

// ImageURL is the URL of a single image plus the transformations to apply.
type ImageURL struct {
	base            string
	identifier      string
	extension       string
	params          []string
	transformations []Transformation
	privateKey      string
	err             error
}

// Parse builds an ImageURL from the URL of an image resource, for example
// http://imbo/users/christer/images/<identifier>.png. If privateKey is not
// empty the rendered URL carries an access token.
//
// Transformations already present as t[] parameters seed the chain, an
// existing access token is dropped and any other parameter is kept.
func Parse(rawURL, privateKey string) (ImageURL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ImageURL{}, &InvalidURLError{URL: rawURL, Reason: err.Error()}
	}

	idx := strings.LastIndex(u.Path, imagesSegment)
	if idx < 0 {
		return ImageURL{}, &InvalidURLError{URL: rawURL, Reason: "missing image identifier"}
	}
	segment := u.Path[idx+len(imagesSegment):]
	if segment == "" || strings.Contains(segment, "/") {
		return ImageURL{}, &InvalidURLError{URL: rawURL, Reason: "missing image identifier"}
	}

	identifier, extension := splitExtension(segment)
	if identifier == "" {
		return ImageURL{}, &InvalidURLError{URL: rawURL, Reason: "missing image identifier"}
	}

	base := url.URL{
		Scheme: u.Scheme,
		User:   u.User,
		Host:   u.Host,
		Path:   u.Path[:idx+len(imagesSegment)],
	}

	img := ImageURL{
		base:       base.String(),
		identifier: identifier,
		extension:  extension,
		privateKey: privateKey,
	}
	for _, pair := range strings.Split(u.RawQuery, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		key = unescape(key)
		switch {
		case key == signing.AccessTokenParam:
			// recomputed on render
		case isTransformationKey(key):
			img.transformations = append(img.transformations, ParseTransformation(unescape(value)))
		default:
			img.params = append(img.params, pair)
		}
	}
	return img, nil
}

// New builds an ImageURL directly from its parts. baseURL is the images
// collection of a user, e.g. http://imbo/users/christer/images.
func New(baseURL, identifier, privateKey string) ImageURL {
	id, ext := splitExtension(identifier)
	return ImageURL{
		base:       strings.TrimSuffix(baseURL, "/") + "/",
		identifier: id,
		extension:  ext,
		privateKey: privateKey,
	}
}

// Identifier returns the image identifier.
func (u ImageURL) Identifier() string { return u.identifier }

// Extension returns the requested file extension, or "" when none is set.
func (u ImageURL) Extension() string { return u.extension }

// Transformations returns a copy of the transformation chain in call order.
func (u ImageURL) Transformations() []Transformation {
	return slices.Clone(u.transformations)
}

// Err returns the first invalid transformation argument seen while building
// the chain.
func (u ImageURL) Err() error { return u.err }

// WithPrivateKey returns a copy that signs with key. An empty key renders an
// unsigned URL.
func (u ImageURL) WithPrivateKey(key string) ImageURL {
	u.privateKey = key
	return u
}

// URL renders the URL, failing if any transformation argument was invalid.
func (u ImageURL) URL() (string, error) {
	if u.err != nil {
		return "", u.err
	}
	return u.String(), nil
}

// Query returns the query string without the access token, including the
// leading "?", or "" when there are no parameters.
func (u ImageURL) Query() string {
	s := u.WithPrivateKey("").String()
	if i := strings.IndexByte(s, '?'); i >= 0 {
		return s[i:]
	}
	return ""
}

// String renders base URL, identifier and extension, the kept query
// parameters, one t[] parameter per transformation and, when a private key
// is configured, the access token.
func (u ImageURL) String() string {
	var b strings.Builder
	b.WriteString(u.base)
	b.WriteString(url.PathEscape(u.identifier))
	if u.extension != "" {
		b.WriteByte('.')
		b.WriteString(u.extension)
	}

	pairs := slices.Clone(u.params)
	for _, t := range u.transformations {
		pairs = append(pairs, "t[]="+escapeTransformation(t.String()))
	}
	if len(pairs) > 0 {
		b.WriteByte('?')
		b.WriteString(strings.Join(pairs, "&"))
	}

	if u.privateKey == "" {
		return b.String()
	}
	return signing.WithAccessToken(b.String(), u.privateKey)
}

func (u ImageURL) add(name string, params ...Param) ImageURL {
	// Clip so that appending never writes into an array shared with
	// another ImageURL derived from the same parent.
	u.transformations = append(slices.Clip(u.transformations), Transformation{Name: name, Params: params})
	return u
}

func (u ImageURL) invalid(name, reason string) ImageURL {
	if u.err == nil {
		u.err = &InvalidTransformationError{Name: name, Reason: reason}
	}
	return u
}

func splitExtension(segment string) (string, string) {
	dot := strings.LastIndexByte(segment, '.')
	if dot < 0 {
		return segment, ""
	}
	return segment[:dot], segment[dot+1:]
}

func isTransformationKey(key string) bool {
	if key == "t" || key == "t[]" {
		return true
	}
	if !strings.HasPrefix(key, "t[") || !strings.HasSuffix(key, "]") {
		return false
	}
	index := key[2 : len(key)-1]
	for _, r := range index {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func unescape(s string) string {
	if out, err := url.QueryUnescape(s); err == nil {
		return out
	}
	return s
}

// Transformation values keep their ':', ',' and '=' separators readable.
var transformationUnescaper = strings.NewReplacer("%3A", ":", "%2C", ",", "%3D", "=")

func escapeTransformation(s string) string {
	return transformationUnescaper.Replace(url.QueryEscape(s))
}
