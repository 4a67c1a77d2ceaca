package preprocess

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"
)

// testImage builds a w x h image with the top-left quadrant dark and the
// rest light, so orientation changes are observable.
func testImage(t *testing.T, w, h int) *image.NRGBA {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{R: 230, G: 200, B: 150, A: 255}
			if x < w/2 && y < h/2 {
				c = color.NRGBA{R: 20, G: 30, B: 40, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestNormalize_DecodesAndGrayscales(t *testing.T) {
	p := New(Config{})
	data := encodePNG(t, testImage(t, 40, 20))

	img, err := p.Normalize(context.Background(), data, "scan_001.png")
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() != 40 || bounds.Dy() != 20 {
		t.Errorf("bounds = %dx%d, want 40x20", bounds.Dx(), bounds.Dy())
	}

	// Grayscale output has equal channels everywhere.
	for _, pt := range []image.Point{{1, 1}, {30, 10}, {39, 19}} {
		r, g, b, _ := img.At(pt.X, pt.Y).RGBA()
		if r != g || g != b {
			t.Errorf("pixel %v not grayscale: r=%d g=%d b=%d", pt, r, g, b)
		}
	}
}

func TestNormalize_Errors(t *testing.T) {
	p := New(Config{})

	tests := []struct {
		name     string
		data     []byte
		filename string
		wantOp   string
	}{
		{
			name:     "empty asset",
			data:     nil,
			filename: "scan.png",
			wantOp:   "decode",
		},
		{
			name:     "not an image",
			data:     []byte("this is not pixel data"),
			filename: "scan.jpg",
			wantOp:   "decode",
		},
		{
			name:     "corrupt pdf",
			data:     []byte("%PDF-1.4 garbage"),
			filename: "scan.pdf",
			wantOp:   "render",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Normalize(context.Background(), tt.data, tt.filename)
			if err == nil {
				t.Fatal("Normalize() error = nil, want error")
			}
			var perr *Error
			if !errors.As(err, &perr) {
				t.Fatalf("error %v is not a *preprocess.Error", err)
			}
			if perr.Op != tt.wantOp {
				t.Errorf("Error.Op = %q, want %q", perr.Op, tt.wantOp)
			}
		})
	}
}

func TestCorrectOrientation(t *testing.T) {
	src := testImage(t, 60, 30)

	tests := []struct {
		name       string
		angle      float64
		wantWidth  int
		wantHeight int
	}{
		{name: "zero angle is identity", angle: 0, wantWidth: 60, wantHeight: 30},
		{name: "quarter turn swaps dimensions", angle: 90, wantWidth: 30, wantHeight: 60},
		{name: "half turn keeps dimensions", angle: 180, wantWidth: 60, wantHeight: 30},
		{name: "three quarter turn swaps dimensions", angle: 270, wantWidth: 30, wantHeight: 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := CorrectOrientation(src, tt.angle)
			bounds := out.Bounds()
			if bounds.Dx() != tt.wantWidth || bounds.Dy() != tt.wantHeight {
				t.Errorf("bounds = %dx%d, want %dx%d",
					bounds.Dx(), bounds.Dy(), tt.wantWidth, tt.wantHeight)
			}
		})
	}
}

func TestCorrectOrientation_ZeroReturnsSameImage(t *testing.T) {
	src := testImage(t, 10, 10)
	if out := CorrectOrientation(src, 0); out != image.Image(src) {
		t.Error("zero angle should return the input image unchanged")
	}
}

func TestCorrectOrientation_HalfTurnMovesContent(t *testing.T) {
	// The dark quadrant starts top-left; after a 180 degree correction it
	// must end up bottom-right.
	src := testImage(t, 40, 40)
	out := CorrectOrientation(src, 180)

	r, _, _, _ := out.At(35, 35).RGBA()
	if r > 0x4000 {
		t.Errorf("bottom-right pixel not dark after half turn: r=%d", r)
	}
	r, _, _, _ = out.At(5, 5).RGBA()
	if r < 0x4000 {
		t.Errorf("top-left pixel not light after half turn: r=%d", r)
	}
}

func TestEnhance_PreservesDimensions(t *testing.T) {
	src := imaging.Grayscale(testImage(t, 50, 25))
	out := Enhance(src)
	bounds := out.Bounds()
	if bounds.Dx() != 50 || bounds.Dy() != 25 {
		t.Errorf("bounds = %dx%d, want 50x25", bounds.Dx(), bounds.Dy())
	}
}

func TestEncodePNG_RoundTrips(t *testing.T) {
	src := testImage(t, 16, 8)
	data, err := EncodePNG(src)
	if err != nil {
		t.Fatalf("EncodePNG() error = %v", err)
	}

	decoded, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding encoded image: %v", err)
	}
	if decoded.Bounds() != src.Bounds() {
		t.Errorf("decoded bounds = %v, want %v", decoded.Bounds(), src.Bounds())
	}
}

func TestIsPDF(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		filename string
		want     bool
	}{
		{name: "magic bytes", data: []byte("%PDF-1.7 ..."), filename: "whatever.bin", want: true},
		{name: "extension fallback", data: []byte("no magic"), filename: "scan.PDF", want: true},
		{name: "plain png", data: []byte("\x89PNG\r\n"), filename: "scan.png", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isPDF(tt.data, tt.filename); got != tt.want {
				t.Errorf("isPDF(%q) = %v, want %v", tt.filename, got, tt.want)
			}
		})
	}
}
