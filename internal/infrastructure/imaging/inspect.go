package imaging

import (
	"bytes"
	"net/http"
	"path/filepath"
	"strings"
)

const (
	MIMEHEIC = "image/heic"
	MIMEHEIF = "image/heif"
)

var heicBrands = map[string]string{
	"heic": MIMEHEIC,
	"heix": MIMEHEIC,
	"hevc": MIMEHEIC,
	"hevx": MIMEHEIC,
	"heim": MIMEHEIC,
	"heis": MIMEHEIC,
	"mif1": MIMEHEIF,
	"msf1": MIMEHEIF,
}

var extensionTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".heic": MIMEHEIC,
	".heif": MIMEHEIF,
}

// Inspector sniffs image bytes. It implements ports.ImageInspector.
type Inspector struct{}

func NewInspector() Inspector {
	return Inspector{}
}

// Inspect returns the MIME type of data and whether it is HEIC/HEIF.
// Content wins over the file name; the extension is only consulted when sniffing is inconclusive.
func (Inspector) Inspect(name string, data []byte) (string, bool) {
	if brandType, ok := sniffHEIC(data); ok {
		return brandType, true
	}

	sniffed := http.DetectContentType(data)
	if strings.HasPrefix(sniffed, "image/") {
		return sniffed, false
	}

	ext := strings.ToLower(filepath.Ext(name))
	if byExt, ok := extensionTypes[ext]; ok {
		isHEIC := byExt == MIMEHEIC || byExt == MIMEHEIF
		// HEIC files with an unusual brand still go through conversion.
		if isHEIC || sniffed == "application/octet-stream" {
			return byExt, isHEIC
		}
	}
	return sniffed, false
}

// sniffHEIC reads the ISO BMFF ftyp box: size(4) "ftyp"(4) major_brand(4) minor(4) compatible...
func sniffHEIC(data []byte) (string, bool) {
	if len(data) < 12 || !bytes.Equal(data[4:8], []byte("ftyp")) {
		return "", false
	}
	if mime, ok := heicBrands[string(data[8:12])]; ok {
		return mime, true
	}

	boxSize := int(data[0])<<24 | int(data[1])<<16 | int(data[2])<<8 | int(data[3])
	if boxSize > len(data) || boxSize < 16 {
		boxSize = min(len(data), 64)
	}
	for offset := 16; offset+4 <= boxSize; offset += 4 {
		if mime, ok := heicBrands[string(data[offset:offset+4])]; ok {
			return mime, true
		}
	}
	return "", false
}

// JPEGName replaces the extension of name with .jpg.
func JPEGName(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if base == "" {
		base = "image"
	}
	return base + ".jpg"
}
