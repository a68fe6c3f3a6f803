package service

import (
	"Storefront/internal/api/dto"
	"Storefront/internal/pkg/consts"
	"Storefront/internal/pkg/util"
	"bytes"
	"context"
	"errors"
	"io"
	log "log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ObjectStore 图片对象存储
type ObjectStore interface {
	Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, objectName string) error
	PublicURL(objectName string) string
}

const (
	productImageSize   = 800
	productThumbSize   = 300
	avatarSize         = 200
	jpegContentType    = "image/jpeg"
	productImagePrefix = "products/"
	avatarPrefix       = "avatars/"
)

// checkImage 嗅探真实类型，非图片拒绝
func checkImage(file *dto.UploadFile) error {
	contentType, err := util.GetSafeContentType(file.Reader)
	if err != nil {
		return ErrFileNotSupported
	}
	if !strings.HasPrefix(contentType, consts.MimePrefixImage) {
		return ErrFileNotSupported
	}
	return nil
}

func newObjectName(prefix string, suffix string) string {
	return prefix + time.Now().Format("2006/01/02/") + uuid.NewString() + suffix + ".jpg"
}

func uploadJPEG(ctx context.Context, store ObjectStore, objectName string, data []byte) (string, error) {
	return store.Upload(ctx, objectName, bytes.NewReader(data), int64(len(data)), jpegContentType)
}

// storeProductImage 原图缩放到 800x800 以内，另存 300x300 缩略图
func storeProductImage(ctx context.Context, store ObjectStore, file *dto.UploadFile) (string, string, error) {
	if err := checkImage(file); err != nil {
		return "", "", err
	}
	fitted, err := util.FitImage(file.Reader, productImageSize, productImageSize)
	if err != nil {
		return "", "", imageError(err)
	}
	if _, err = file.Reader.Seek(0, io.SeekStart); err != nil {
		return "", "", err
	}
	thumb, err := util.Thumbnail(file.Reader, productThumbSize, productThumbSize)
	if err != nil {
		return "", "", imageError(err)
	}

	imageKey, err := uploadJPEG(ctx, store, newObjectName(productImagePrefix, ""), fitted)
	if err != nil {
		return "", "", err
	}
	thumbKey, err := uploadJPEG(ctx, store, newObjectName(productImagePrefix, "_thumb"), thumb)
	if err != nil {
		removeObjects(ctx, store, imageKey)
		return "", "", err
	}
	return imageKey, thumbKey, nil
}

func storeAvatar(ctx context.Context, store ObjectStore, file *dto.UploadFile) (string, error) {
	if err := checkImage(file); err != nil {
		return "", err
	}
	avatar, err := util.Thumbnail(file.Reader, avatarSize, avatarSize)
	if err != nil {
		return "", imageError(err)
	}
	return uploadJPEG(ctx, store, newObjectName(avatarPrefix, ""), avatar)
}

// removeObjects 尽力删除，失败只记日志
func removeObjects(ctx context.Context, store ObjectStore, keys ...string) {
	for _, key := range keys {
		if key == "" || key == consts.DefaultAvatarURL {
			continue
		}
		if err := store.Delete(ctx, key); err != nil {
			log.WarnContext(ctx, "delete object failed", "key", key, "err", err)
		}
	}
}

func imageError(err error) error {
	if errors.Is(err, util.ErrNotImage) {
		return ErrFileNotSupported
	}
	return err
}
