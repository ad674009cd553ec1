package api

import (
	"net/url"

	"github.com/imbo/imbo-cli/internal/imageurl"
	"github.com/imbo/imbo-cli/internal/query"
	"github.com/imbo/imbo-cli/internal/signing"
)

// ImageURL returns a transformation builder for an image on the host chosen
// for it. The rendered URL carries an access token.
func (c *Client) ImageURL(identifier string) imageurl.ImageURL {
	base := c.hostFor(identifier) + "/users/" + url.PathEscape(c.creds.User) + "/images"
	return imageurl.New(base, identifier, c.creds.PrivateKey)
}

// ParseImageURL parses an existing image URL, keeping its transformations,
// and re-signs it with the client's private key when rendered.
func (c *Client) ParseImageURL(rawURL string) (imageurl.ImageURL, error) {
	return imageurl.Parse(rawURL, c.creds.PrivateKey)
}

// StatusURL is not access controlled and is returned unsigned.
func (c *Client) StatusURL() string {
	return c.serverPath("/status.json")
}

func (c *Client) StatsURL() string {
	return c.sign(c.serverPath("/stats.json"))
}

func (c *Client) UserURL() string {
	return c.sign(c.userPath(".json"))
}

func (c *Client) ImagesURL(q query.ImagesQuery) string {
	u := c.userPath("/images.json")
	if encoded := q.Values().Encode(); encoded != "" {
		u += "?" + encoded
	}
	return c.sign(u)
}

func (c *Client) MetadataURL(identifier string) string {
	return c.sign(c.imagePath(identifier, metadataPath))
}

func (c *Client) sign(rawURL string) string {
	if c.creds.PrivateKey == "" {
		return rawURL
	}
	return signing.WithAccessToken(rawURL, c.creds.PrivateKey)
}
