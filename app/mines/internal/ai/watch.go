package ai

import (
	"context"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/lk2023060901/xdooria-ai/pkg/logger"
)

// Watch 监听覆盖脚本目录，.bts 文件变化时调用 lib.Reload，阻塞直到 ctx 取消
// onReload 可为 nil，每次重载后以结果调用
func Watch(ctx context.Context, dir string, lib *Library, log logger.Logger, onReload func(error)) error {
	if log == nil {
		log = logger.NewNoop()
	}
	log = log.Named("ai.watch")

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create watcher")
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return errors.Wrapf(err, "watch %s", dir)
	}
	log.Info("watching scripts", "dir", dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(ev.Name) != ".bts" || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			err := lib.Reload()
			if err != nil {
				log.Error("script reload failed, keeping previous trees", "file", ev.Name, "error", err)
			} else {
				log.Info("scripts reloaded", "file", ev.Name, "op", ev.Op.String())
			}
			if onReload != nil {
				onReload(err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", "error", err)
		}
	}
}
