package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrInvalidPair          = errors.New("无效的会话参与者")
	ErrMalformedKey         = errors.New("会话键格式错误")
	ErrEmptyText            = errors.New("消息内容不能为空")
	ErrConversationNotFound = errors.New("会话不存在")
)

// IsDuplicateKeyError 唯一键冲突 (MySQL 1062 / PostgreSQL 23505)
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
