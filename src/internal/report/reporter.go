package report

import (
	"fmt"
	"time"

	"github.com/admi-n/solidity-assistant/src/internal"
)

// Reporter 报告器，整合生成器和存储功能
type Reporter struct {
	generator Generator
	storage   Storage
}

// NewReporter 创建报告器
func NewReporter(generator Generator, storage Storage) *Reporter {
	return &Reporter{
		generator: generator,
		storage:   storage,
	}
}

// NewMarkdownFileReporter 生成 markdown 并写入 target
func NewMarkdownFileReporter(target string) *Reporter {
	return NewReporter(NewMarkdownGenerator(), NewFileStorage(target))
}

// GenerateAndSave 生成并保存报告
func (r *Reporter) GenerateAndSave(doc *Document) (string, error) {
	content, err := r.generator.Generate(doc)
	if err != nil {
		return "", fmt.Errorf("failed to generate report: %w", err)
	}

	path, err := r.storage.Save(doc, content)
	if err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}

	return path, nil
}

// NewDocument 创建新的报告实例
func NewDocument(action internal.Action, network, engine string) *Document {
	return &Document{
		Action:    action,
		Network:   network,
		Engine:    engine,
		CreatedAt: time.Now(),
	}
}
