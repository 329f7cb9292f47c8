package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	// 收到中断信号时取消上下文，批处理保存检查点后退出
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
