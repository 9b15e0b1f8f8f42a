package persistence

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/betbot/gridwager/pkg/logger"
)

// ErrNotExists 表示数据不存在
var ErrNotExists = fmt.Errorf("persistence data not exists")

// Int64File 以十进制纯文本保存单个整数的文件存储。
// 不做跨进程加锁：同一个文件只应由一个进程写入。
type Int64File struct {
	path string
}

// NewInt64File 创建整数文件存储
func NewInt64File(path string) *Int64File {
	return &Int64File{path: path}
}

// Location 存储位置（用于日志/告警）
func (f *Int64File) Location() string {
	return f.path
}

// Load 读取整数；文件不存在或为空返回 ErrNotExists
func (f *Int64File) Load() (int64, error) {
	logger.Debugf("[persistence] Load: path=%s", f.path)
	b, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNotExists
		}
		return 0, err
	}
	s := strings.TrimSpace(string(b))
	if s == "" {
		return 0, ErrNotExists
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", f.path, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("parse %s: negative value %d", f.path, v)
	}
	return v, nil
}

// Save 写入整数（先写 .tmp 再 rename，避免读到半截内容）
func (f *Int64File) Save(v int64) error {
	logger.Debugf("[persistence] Save: path=%s value=%d", f.path, v)
	if dir := filepath.Dir(f.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strconv.FormatInt(v, 10)), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}
