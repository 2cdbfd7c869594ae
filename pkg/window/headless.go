package window

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// SyncWriter は複数のゴルーチンから書き込める Writer
type SyncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewSyncWriter w をロックで保護する
func NewSyncWriter(w io.Writer) *SyncWriter {
	return &SyncWriter{w: w}
}

func (s *SyncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

const headlessHelp = "commands: t = play/pause, p = charge/release, s = status, h = help, q = quit"

// Execute コマンドを1つ実行する。終了コマンドなら true
func Execute(ctrl Controller, cmd string, w io.Writer) (quit bool) {
	switch strings.ToLower(strings.TrimSpace(cmd)) {
	case "":
	case "t", "toggle":
		ctrl.Toggle()
		fmt.Fprintln(w, FormatStatus(ctrl.Status()))
	case "p", "j", "press":
		ctrl.PressPlayer()
	case "s", "status":
		fmt.Fprintln(w, FormatStatus(ctrl.Status()))
	case "h", "help", "?":
		fmt.Fprintln(w, headlessHelp)
	case "q", "quit", "exit":
		return true
	default:
		fmt.Fprintf(w, "unknown command %q (%s)\n", cmd, headlessHelp)
	}
	return false
}

// RunHeadless 行単位のコマンドでバトルを操作する
// q、入力の終端、ctx の終了のいずれかで戻る
func RunHeadless(ctx context.Context, ctrl Controller, reader io.Reader, writer io.Writer) error {
	fmt.Fprintln(writer, headlessHelp)

	scanner := bufio.NewScanner(reader)
	lines := make(chan string)
	errCh := make(chan error, 1)

	go func() {
		defer close(lines)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			errCh <- fmt.Errorf("failed to read input: %w", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			return err
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errCh:
					return err
				default:
					return nil
				}
			}
			if Execute(ctrl, line, writer) {
				return nil
			}
		}
	}
}
