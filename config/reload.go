// 路由规则热重载实现。
//
// 基于轮询的文件监听，检测到规则文件变更后校验并整体替换路由表；
// 校验失败时保留旧规则集继续服务。
package config

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/askflow/routing"
)

// --- 文件监听器 ---

// FileWatcher 轮询监听单个文件的修改
type FileWatcher struct {
	mu sync.Mutex

	path         string
	pollInterval time.Duration

	running  bool
	stopChan chan struct{}

	callbacks []func(path string)

	logger *zap.Logger

	// 轮询用的最后修改时间
	lastModTime time.Time
}

// WatcherOption configures the FileWatcher
type WatcherOption func(*FileWatcher)

// WithPollInterval 设置轮询间隔
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *FileWatcher) {
		w.pollInterval = d
	}
}

// WithWatcherLogger 设置记录器
func WithWatcherLogger(logger *zap.Logger) WatcherOption {
	return func(w *FileWatcher) {
		w.logger = logger
	}
}

// NewFileWatcher creates a new file watcher
func NewFileWatcher(path string, opts ...WatcherOption) (*FileWatcher, error) {
	w := &FileWatcher{
		path:         path,
		pollInterval: time.Second,
		stopChan:     make(chan struct{}),
		logger:       zap.NewNop(),
	}

	for _, opt := range opts {
		opt(w)
	}

	if info, err := w.stat(); err != nil {
		if os.IsNotExist(err) {
			w.logger.Warn("Rules file does not exist, will watch for creation",
				zap.String("path", path))
		} else {
			return nil, fmt.Errorf("failed to stat path %s: %w", path, err)
		}
	} else {
		w.lastModTime = info.ModTime()
	}

	return w, nil
}

func (w *FileWatcher) stat() (os.FileInfo, error) {
	return os.Stat(w.path)
}

// OnChange registers a callback for file change events
func (w *FileWatcher) OnChange(callback func(path string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Start begins watching for file changes
func (w *FileWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	go w.pollLoop(ctx)

	w.logger.Info("File watcher started",
		zap.String("path", w.path),
		zap.Duration("poll_interval", w.pollInterval))
	return nil
}

// Stop stops the file watcher
func (w *FileWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	close(w.stopChan)
	w.running = false
	w.logger.Info("File watcher stopped")
}

// IsRunning returns whether the watcher is running
func (w *FileWatcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// pollLoop 周期性检查文件修改时间
func (w *FileWatcher) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.checkFile()
		}
	}
}

func (w *FileWatcher) checkFile() {
	info, err := w.stat()
	if err != nil {
		return
	}

	w.mu.Lock()
	changed := info.ModTime().After(w.lastModTime)
	if changed {
		w.lastModTime = info.ModTime()
	}
	callbacks := make([]func(string), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	if !changed {
		return
	}

	w.logger.Debug("Rules file changed", zap.String("path", w.path))
	for _, cb := range callbacks {
		cb(w.path)
	}
}

// --- 规则热重载 ---

// RulesReloader 监听外部规则文件并整体替换路由表的活动规则集。
// 解析或校验失败时，旧规则集保持生效。
type RulesReloader struct {
	table   *routing.Table
	watcher *FileWatcher
	logger  *zap.Logger

	mu          sync.Mutex
	reloadCount int
	lastError   error
}

// NewRulesReloader 创建规则热重载器
func NewRulesReloader(table *routing.Table, rulesFile string, logger *zap.Logger, opts ...WatcherOption) (*RulesReloader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	watcher, err := NewFileWatcher(rulesFile, append(opts, WithWatcherLogger(logger))...)
	if err != nil {
		return nil, err
	}

	r := &RulesReloader{
		table:   table,
		watcher: watcher,
		logger:  logger.With(zap.String("component", "rules_reloader")),
	}
	watcher.OnChange(r.reload)
	return r, nil
}

// Start 启动监听
func (r *RulesReloader) Start(ctx context.Context) error {
	return r.watcher.Start(ctx)
}

// Stop 停止监听
func (r *RulesReloader) Stop() {
	r.watcher.Stop()
}

// ReloadCount 返回成功重载次数
func (r *RulesReloader) ReloadCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reloadCount
}

// LastError 返回最近一次重载错误（成功后清空）
func (r *RulesReloader) LastError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastError
}

// reload 解析新规则集，先校验后整体替换
func (r *RulesReloader) reload(path string) {
	ruleConfigs, err := LoadRulesFile(path)
	if err != nil {
		r.fail(path, err)
		return
	}

	next := RoutingConfig{Rules: ruleConfigs}.ToRules()

	// 在影子表上校验，避免将坏规则集换入生效
	shadow := routing.NewTable(r.table.RootAuthority(), zap.NewNop())
	shadow.Replace(next)
	if err := shadow.Validate(); err != nil {
		r.fail(path, err)
		return
	}

	r.table.Replace(next)

	r.mu.Lock()
	r.reloadCount++
	r.lastError = nil
	r.mu.Unlock()

	r.logger.Info("Routing rules reloaded",
		zap.String("path", path),
		zap.Int("rules", len(next)))
}

func (r *RulesReloader) fail(path string, err error) {
	r.mu.Lock()
	r.lastError = err
	r.mu.Unlock()

	r.logger.Error("Routing rules reload rejected, keeping previous rule set",
		zap.String("path", path),
		zap.Error(err))
}
