package handler

import (
	"Storefront/internal/api/dto"
	"io"
	"mime/multipart"

	"github.com/gin-gonic/gin"
)

// openedFiles 请求结束时统一关闭
type openedFiles []io.Closer

func (f openedFiles) Close() {
	for _, c := range f {
		_ = c.Close()
	}
}

func (f *openedFiles) open(fh *multipart.FileHeader) (*dto.UploadFile, error) {
	file, err := fh.Open()
	if err != nil {
		return nil, err
	}
	*f = append(*f, file)
	return &dto.UploadFile{
		Filename: fh.Filename,
		Size:     fh.Size,
		Reader:   file,
	}, nil
}

// optionalFile 表单字段缺失时返回 nil
func (f *openedFiles) optionalFile(c *gin.Context, field string) (*dto.UploadFile, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, nil
	}
	return f.open(fh)
}
