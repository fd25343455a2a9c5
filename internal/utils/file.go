package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateObjectKey 生成服务端上传的对象键名，按用户名和日期分目录。
// 例如: alice/20260901/143045_550e8400-e29b-41d4-a716-446655440000.jpg
func GenerateObjectKey(username, ext string) string {
	now := time.Now()
	return fmt.Sprintf("%s/%s/%s_%s%s",
		username,
		now.Format("20060102"),
		now.Format("150405"),
		uuid.New().String(),
		ext,
	)
}
