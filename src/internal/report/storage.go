package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Storage 报告存储接口
type Storage interface {
	Save(doc *Document, content string) (string, error)
}

// FileStorage 文件存储实现。
// Target 是已有目录、以路径分隔符结尾或没有扩展名时，文件名为 <action>_<unix>.md；
// 否则直接写入 Target。
type FileStorage struct {
	Target string
	now    func() time.Time
}

// NewFileStorage 创建文件存储
func NewFileStorage(target string) *FileStorage {
	return &FileStorage{
		Target: target,
		now:    time.Now,
	}
}

// Save 保存报告到文件
func (s *FileStorage) Save(doc *Document, content string) (string, error) {
	path := s.resolvePath(doc)

	// 确保输出目录存在
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}

	return path, nil
}

func (s *FileStorage) resolvePath(doc *Document) string {
	target := s.Target
	if target == "" {
		target = "."
	}

	isDir := filepath.Ext(target) == "" || os.IsPathSeparator(target[len(target)-1])
	if info, err := os.Stat(target); err == nil {
		isDir = info.IsDir()
	}
	if !isDir {
		return target
	}

	now := time.Now
	if s.now != nil {
		now = s.now
	}
	filename := fmt.Sprintf("%s_%d.md", doc.Action, now().Unix())
	return filepath.Join(target, filename)
}
