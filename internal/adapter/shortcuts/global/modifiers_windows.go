package global

import (
	"golang.design/x/hotkey"

	"github.com/flightmansam/feishin/internal/domain"
)

func modifiersFor(acc domain.Accelerator) ([]hotkey.Modifier, error) {
	out := make([]hotkey.Modifier, 0, len(acc.Modifiers))
	for _, m := range acc.Modifiers {
		switch m {
		case domain.ModCmdOrCtrl, domain.ModCtrl:
			out = appendOnce(out, hotkey.ModCtrl)
		case domain.ModAlt:
			out = appendOnce(out, hotkey.ModAlt)
		case domain.ModShift:
			out = appendOnce(out, hotkey.ModShift)
		case domain.ModSuper:
			out = appendOnce(out, hotkey.ModWin)
		}
	}
	return out, nil
}
