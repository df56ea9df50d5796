// Command neisctl queries the NEIS adapter and the date normalizer from the
// shell, without the chat layer.
//
//	neisctl query meal --date 내일
//	neisctl query timetable --date 20251222 --grade 2 --class 3
//	neisctl query school_info --field 홈페이지
//	neisctl normalize --today 20251222 "다음주 금요일 급식"
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(newNEISQuerier).ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
