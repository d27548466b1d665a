package extract

import "errors"

// ErrUnsupportedType is reported when the declared MIME type is not one of
// application/pdf, image/*, or text/plain.
var ErrUnsupportedType = errors.New("unsupported file type")

// ErrImageDecode is reported when bytes cannot be decoded as a raster image.
var ErrImageDecode = errors.New("image decode failed")

// ErrTextDecode is reported when a text/plain payload is not valid UTF-8.
var ErrTextDecode = errors.New("text is not valid UTF-8")
