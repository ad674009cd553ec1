package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/imbo/imbo-cli/internal/imageurl"
	"github.com/imbo/imbo-cli/internal/query"
)

// MaxDownloadSize caps images fetched by AddFromURL.
const MaxDownloadSize = 64 * 1024 * 1024

// List returns one page of the user's images.
func (s ImagesService) List(ctx context.Context, q query.ImagesQuery) (ImageList, error) {
	return listImages(ctx, s, q)
}

func listImages(ctx context.Context, r Requester, q query.ImagesQuery) (ImageList, error) {
	u := r.userPath("/images.json")
	if encoded := q.Values().Encode(); encoded != "" {
		u += "?" + encoded
	}
	m, err := r.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return ImageList{}, err
	}
	return NewImageList(m), nil
}

// Add uploads the image read from body.
func (s ImagesService) Add(ctx context.Context, body io.Reader) (AddedImage, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return AddedImage{}, fmt.Errorf("failed to read image: %w", err)
	}
	return addImage(ctx, s, data)
}

// AddFromPath uploads the image stored at path.
func (s ImagesService) AddFromPath(ctx context.Context, path string) (AddedImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AddedImage{}, fmt.Errorf("failed to read image: %w", err)
	}
	return addImage(ctx, s, data)
}

// AddFromURL downloads an image and uploads it. The download does not go
// through the signing chain.
func (s ImagesService) AddFromURL(ctx context.Context, rawURL string) (AddedImage, error) {
	data, err := s.download(ctx, rawURL)
	if err != nil {
		return AddedImage{}, err
	}
	return addImage(ctx, s, data)
}

func addImage(ctx context.Context, r Requester, data []byte) (AddedImage, error) {
	if len(data) == 0 {
		return AddedImage{}, errors.New("image is empty")
	}
	body, resp, err := r.doRaw(ctx, http.MethodPost, r.userPath("/images"), data, "application/octet-stream")
	if err != nil {
		return AddedImage{}, err
	}
	m, err := decodeResponse(resp, body)
	if err != nil {
		return AddedImage{}, err
	}
	return NewAddedImage(m), nil
}

func (c *Client) download(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid image URL %q", rawURL)
	}
	if !c.skipURLValidation {
		if err := validateSourceURL(rawURL); err != nil {
			return nil, fmt.Errorf("image URL rejected: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	plain := &http.Client{Timeout: c.HTTP.Timeout, Transport: c.transport}
	resp, err := plain.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: status %d", resp.StatusCode)
	}
	if resp.ContentLength > MaxDownloadSize {
		return nil, fmt.Errorf("image too large: %d bytes exceeds %d", resp.ContentLength, MaxDownloadSize)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownloadSize+1))
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	if len(data) > MaxDownloadSize {
		return nil, fmt.Errorf("image too large: exceeds %d bytes", MaxDownloadSize)
	}
	return data, nil
}

// Delete removes an image and returns the identifier the server reported.
func (s ImagesService) Delete(ctx context.Context, identifier string) (string, error) {
	return deleteImage(ctx, s, identifier)
}

func deleteImage(ctx context.Context, r Requester, identifier string) (string, error) {
	m, err := r.do(ctx, http.MethodDelete, r.imagePath(identifier, ""), nil)
	if err != nil {
		return "", err
	}
	if id := stringField(m, "imageIdentifier"); id != "" {
		return id, nil
	}
	return identifier, nil
}

// Properties reads the original image attributes with a HEAD request.
func (s ImagesService) Properties(ctx context.Context, identifier string) (ImageProperties, error) {
	return imageProperties(ctx, s, identifier)
}

func imageProperties(ctx context.Context, r Requester, identifier string) (ImageProperties, error) {
	_, resp, err := r.doRaw(ctx, http.MethodHead, r.imagePath(identifier, ""), nil, "")
	if err != nil {
		return ImageProperties{}, err
	}
	header := resp.Header
	props := ImageProperties{
		Identifier: header.Get("X-Imbo-ImageIdentifier"),
		Width:      headerInt(header, "X-Imbo-OriginalWidth"),
		Height:     headerInt(header, "X-Imbo-OriginalHeight"),
		Filesize:   headerInt(header, "X-Imbo-OriginalFilesize"),
		MimeType:   header.Get("X-Imbo-OriginalMimeType"),
		Extension:  header.Get("X-Imbo-OriginalExtension"),
	}
	if props.Identifier == "" {
		props.Identifier = identifier
	}
	return props, nil
}

func headerInt(h http.Header, key string) int64 {
	n, _ := strconv.ParseInt(h.Get(key), 10, 64)
	return n
}

// Exists reports whether the image exists. A 404 is not an error.
func (s ImagesService) Exists(ctx context.Context, identifier string) (bool, error) {
	_, err := imageProperties(ctx, s, identifier)
	if err != nil {
		if IsNotFoundError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Data fetches the rendered image bytes for u.
func (s ImagesService) Data(ctx context.Context, u imageurl.ImageURL) ([]byte, error) {
	rendered, err := u.URL()
	if err != nil {
		return nil, err
	}
	body, _, err := s.doRaw(ctx, http.MethodGet, rendered, nil, "")
	return body, err
}

// ShortURL registers a short URL for u, transformations included, and
// returns it.
func (s ImagesService) ShortURL(ctx context.Context, u imageurl.ImageURL) (string, error) {
	return shortURL(ctx, s, s.hostFor(u.Identifier()), u)
}

func shortURL(ctx context.Context, r Requester, host string, u imageurl.ImageURL) (string, error) {
	if err := u.Err(); err != nil {
		return "", err
	}
	body := map[string]any{
		"imageIdentifier": u.Identifier(),
		"query":           u.Query(),
	}
	if ext := u.Extension(); ext != "" {
		body["extension"] = ext
	}

	m, err := r.do(ctx, http.MethodPost, r.imagePath(u.Identifier(), "/shorturls"), body)
	if err != nil {
		return "", err
	}
	id := stringField(m, "id")
	if id == "" {
		return "", &InvalidResponseBodyError{StatusCode: http.StatusCreated, Err: errors.New("missing short URL id")}
	}
	return host + "/s/" + id, nil
}
