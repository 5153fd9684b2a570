// Package barcode は画像からの商品バーコード復号アダプターを提供します。
package barcode

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"regexp"

	// 一般的なアップロード形式のデコーダを登録
	_ "image/jpeg"
	_ "image/png"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"

	"allergyscan_backend/internal/feature/scan/usecase"
)

// urlPattern はURLをペイロードに持つシンボル（QRコード等の誤検出）の判定用です。
var urlPattern = regexp.MustCompile(`^https?://`)

// Decoder は1次元商品バーコード（EAN/UPC）を画像から復号します。
// 読み取り器の状態は持たず、並行呼び出しごとに新しいリーダーを使います。
type Decoder struct{}

// DecoderがBarcodeDecoderを実装していることをコンパイル時に検証します。
var _ usecase.BarcodeDecoder = (*Decoder)(nil)

// NewDecoder はDecoderの新しいインスタンスを生成します。
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode は画像バイト列からバーコード文字列を復号します。
// シンボルを中央に寄せるため正方形に中央クロップしてから読み取り、
// 見つからない場合はそのままの画像でも試行します。
// URLペイロードは商品コードではないため無視します。
// 復号できない場合はusecase.ErrBarcodeNotFoundを返します。
func (d *Decoder) Decode(imageData []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	for _, candidate := range []image.Image{centerSquareCrop(img), img} {
		text, err := readSymbol(candidate)
		if err != nil {
			continue
		}
		if urlPattern.MatchString(text) {
			continue
		}
		return text, nil
	}
	return "", usecase.ErrBarcodeNotFound
}

// readSymbol は1枚の画像に対してEAN/UPC読み取りを試みます。
func readSymbol(img image.Image) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("build bitmap: %w", err)
	}

	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	reader := oned.NewMultiFormatUPCEANReader(hints)
	result, err := reader.Decode(bmp, hints)
	if err != nil {
		return "", err
	}
	return result.GetText(), nil
}

// centerSquareCrop は画像を中央の正方形に切り出します。
// バーコードは通常ラベル中央にあり、周辺ノイズを減らすと読み取り率が上がります。
func centerSquareCrop(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == h {
		return img
	}

	size := w
	if h < size {
		size = h
	}
	x0 := b.Min.X + (w-size)/2
	y0 := b.Min.Y + (h-size)/2

	out := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(out, out.Bounds(), img, image.Pt(x0, y0), draw.Src)
	return out
}
