package imaging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/AymaneHaj/Share-In/internal/core/domain"
)

const (
	ConverterHeifConvert = "heif-convert"
	ConverterMagick      = "magick"
	ConverterSips        = "sips"
)

func ValidConverter(name string) bool {
	switch name {
	case ConverterHeifConvert, ConverterMagick, ConverterSips:
		return true
	default:
		return false
	}
}

// HEICConverter shells out to an external tool to turn HEIC/HEIF into JPEG.
// It implements ports.ImageConverter.
type HEICConverter struct {
	runner    Runner
	converter string
	logger    *slog.Logger
}

func NewHEICConverter(runner Runner, converter string, logger *slog.Logger) (*HEICConverter, error) {
	if !ValidConverter(converter) {
		return nil, fmt.Errorf("unknown heic converter %q (expected one of: heif-convert, magick, sips)", converter)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	return &HEICConverter{runner: runner, converter: converter, logger: logger}, nil
}

func (c *HEICConverter) ConvertToJPEG(ctx context.Context, img domain.ImageFile) (domain.ImageFile, error) {
	tmpDir, err := os.MkdirTemp("", "docctl-heic-*")
	if err != nil {
		return domain.ImageFile{}, fmt.Errorf("create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	ext := strings.ToLower(filepath.Ext(img.Name))
	if ext == "" {
		ext = ".heic"
	}
	in := filepath.Join(tmpDir, "input"+ext)
	out := filepath.Join(tmpDir, "output.jpg")
	if err := os.WriteFile(in, img.Data, 0o600); err != nil {
		return domain.ImageFile{}, fmt.Errorf("write heic input: %w", err)
	}

	var args []string
	switch c.converter {
	case ConverterHeifConvert:
		args = []string{"-q", "92", in, out}
	case ConverterMagick:
		args = []string{in, "-quality", "92", out}
	case ConverterSips:
		args = []string{"-s", "format", "jpeg", in, "--out", out}
	}
	if _, stderr, err := c.runner.Run(ctx, c.converter, args...); err != nil {
		detail := strings.TrimSpace(truncate(string(stderr), 512))
		if detail != "" {
			return domain.ImageFile{}, fmt.Errorf("%s failed: %w: %s", c.converter, err, detail)
		}
		return domain.ImageFile{}, fmt.Errorf("%s failed: %w", c.converter, err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return domain.ImageFile{}, fmt.Errorf("heic conversion produced no output: %w", err)
	}
	if len(data) == 0 {
		return domain.ImageFile{}, fmt.Errorf("heic conversion produced an empty file")
	}

	converted := domain.ImageFile{Name: JPEGName(img.Name), ContentType: "image/jpeg", Data: data}
	c.logger.Debug("heic_converted",
		"name", img.Name,
		"converter", c.converter,
		"input_bytes", img.Size(),
		"output_bytes", converted.Size(),
	)
	return converted, nil
}
