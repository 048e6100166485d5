package media

// Image is a decoded source image held in memory while its derivatives are rendered
type Image interface {
	Width() int
	Height() int
	// Format is the decoder name, e.g. jpeg, png, gif or webp
	Format() string
}

// FormatMimeType returns the content type of a decoder format, or "" for
// formats that are never accepted as uploads
func FormatMimeType(format string) string {
	switch format {
	case "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}

// Rendition is an encoded derivative ready to be stored
type Rendition struct {
	Data        []byte
	ContentType string
	// Ext is the file extension matching ContentType, with the leading dot
	Ext    string
	Width  int
	Height int
}
