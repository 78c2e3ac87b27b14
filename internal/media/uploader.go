// Package media hosts profile pictures.
//
// Clients send pictures inline as data URIs. An ImageUploader stores the
// decoded bytes and returns the URL the account record keeps instead.
package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"strings"
)

var (
	// ErrNotDataURI indicates the source is not a data: URI.
	ErrNotDataURI = errors.New("media.data_uri.not_data_uri")
	// ErrMalformedDataURI indicates a data: URI without a base64 image payload.
	ErrMalformedDataURI = errors.New("media.data_uri.malformed")
	// ErrUnsupportedImageType indicates a payload whose media type is not an image.
	ErrUnsupportedImageType = errors.New("media.data_uri.unsupported_type")
)

const dataURIPrefix = "data:"

// ImageUploader stores a profile picture for userID and returns its public URL.
type ImageUploader interface {
	UploadProfilePicture(ctx context.Context, userID string, source string) (string, error)
}

// Image is a decoded data URI payload.
type Image struct {
	ContentType string
	Data        []byte
}

// Extension returns the file extension registered for the image type,
// falling back to the media subtype.
func (image Image) Extension() string {
	switch image.ContentType {
	case "image/jpeg":
		return "jpg"
	case "image/svg+xml":
		return "svg"
	}
	if extensions, err := mime.ExtensionsByType(image.ContentType); err == nil && len(extensions) > 0 {
		return strings.TrimPrefix(extensions[0], ".")
	}
	return strings.TrimPrefix(image.ContentType, "image/")
}

// IsDataURI reports whether source is an inline data: URI.
func IsDataURI(source string) bool {
	return len(source) >= len(dataURIPrefix) && strings.EqualFold(source[:len(dataURIPrefix)], dataURIPrefix)
}

// ParseDataURI decodes a base64 image data URI such as
// "data:image/png;base64,iVBOR...".
func ParseDataURI(source string) (Image, error) {
	if !IsDataURI(source) {
		return Image{}, ErrNotDataURI
	}
	header, payload, found := strings.Cut(source[len(dataURIPrefix):], ",")
	if !found || payload == "" {
		return Image{}, ErrMalformedDataURI
	}
	mediaType, encoding, found := strings.Cut(header, ";")
	if !found || !strings.EqualFold(encoding, "base64") {
		return Image{}, ErrMalformedDataURI
	}
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if !strings.HasPrefix(mediaType, "image/") || len(mediaType) == len("image/") {
		return Image{}, fmt.Errorf("%w: %s", ErrUnsupportedImageType, mediaType)
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrMalformedDataURI, err)
	}
	return Image{ContentType: mediaType, Data: data}, nil
}

// PassthroughUploader keeps the source unchanged. It is used when no object
// store is configured. Data URIs are still checked so that both modes reject
// the same input.
type PassthroughUploader struct{}

// UploadProfilePicture returns source, or the ParseDataURI error when source is
// a data URI that does not carry a base64 image.
func (PassthroughUploader) UploadProfilePicture(ctx context.Context, userID string, source string) (string, error) {
	if IsDataURI(source) {
		if _, err := ParseDataURI(source); err != nil {
			return "", err
		}
	}
	return source, nil
}
