package util

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
)

const jpegQuality = 85

var ErrNotImage = errors.New("not an image")

// GetSafeContentType 按文件头嗅探真实类型，读完后回到起点
func GetSafeContentType(reader io.ReadSeeker) (string, error) {
	mt, err := mimetype.DetectReader(reader)
	if err != nil {
		return "", err
	}
	if _, err = reader.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return mt.String(), nil
}

// FitImage 等比缩放到 maxW x maxH 以内并重新编码为 JPEG
func FitImage(reader io.Reader, maxW int, maxH int) ([]byte, error) {
	img, err := decode(reader)
	if err != nil {
		return nil, err
	}
	return encodeJPEG(imaging.Fit(img, maxW, maxH, imaging.Lanczos))
}

// Thumbnail 居中裁剪为 w x h 的缩略图
func Thumbnail(reader io.Reader, w int, h int) ([]byte, error) {
	img, err := decode(reader)
	if err != nil {
		return nil, err
	}
	return encodeJPEG(imaging.Fill(img, w, h, imaging.Center, imaging.Lanczos))
}

func decode(reader io.Reader) (image.Image, error) {
	img, err := imaging.Decode(reader, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	return img, nil
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
