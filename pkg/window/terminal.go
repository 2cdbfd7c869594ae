package window

import (
	"context"
	"fmt"
	"io"

	"github.com/eiannone/keyboard"
)

// keyCommand キー入力をコマンドに変換
func keyCommand(ev keyboard.KeyEvent) string {
	switch ev.Key {
	case keyboard.KeyEsc, keyboard.KeyCtrlC:
		return "q"
	case keyboard.KeySpace:
		return "t"
	case keyboard.KeyEnter:
		return "s"
	}
	if ev.Rune != 0 {
		return string(ev.Rune)
	}
	return ""
}

// RunTerminal 端末のキー入力（Enter不要）でバトルを操作する
func RunTerminal(ctx context.Context, ctrl Controller, writer io.Writer) error {
	keys, err := keyboard.GetKeys(16)
	if err != nil {
		return fmt.Errorf("unable to open keyboard: %w", err)
	}
	defer keyboard.Close()

	fmt.Fprintln(writer, "keys: space/t = play/pause, j/p = charge/release, enter/s = status, esc/q = quit")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-keys:
			if !ok {
				return nil
			}
			if ev.Err != nil {
				return fmt.Errorf("keyboard: %w", ev.Err)
			}
			cmd := keyCommand(ev)
			if cmd == "" {
				continue
			}
			if Execute(ctrl, cmd, writer) {
				return nil
			}
		}
	}
}
