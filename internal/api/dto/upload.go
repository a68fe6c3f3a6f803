package dto

import "io"

// UploadFile 已打开的上传文件
type UploadFile struct {
	Filename string
	Size     int64
	Reader   io.ReadSeeker
}
