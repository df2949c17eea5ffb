package overlay

import (
	"context"
	"errors"
	"image"
	"testing"

	"snapdesk/internal/framebuffer"
	"snapdesk/internal/input"
	"snapdesk/internal/ownerthread"
)

func TestTranslateKey(t *testing.T) {
	tests := []struct {
		name        string
		vk          uintptr
		ctrl, shift bool
		want        input.Key
		ok          bool
	}{
		{"escape", vkEscape, false, false, input.KeyEscape, true},
		{"enter", vkReturn, false, false, input.KeyEnter, true},
		{"undo", 'Z', true, false, input.KeyUndo, true},
		{"redo ctrl+y", 'Y', true, false, input.KeyRedo, true},
		{"redo ctrl+shift+z", 'Z', true, true, input.KeyRedo, true},
		{"pen", 'P', false, false, input.KeyToolPen, true},
		{"arrow", 'A', false, false, input.KeyToolArrow, true},
		{"text", 'T', false, false, input.KeyToolText, true},
		{"mosaic", 'M', false, false, input.KeyToolMosaic, true},
		{"rect", 'R', false, false, input.KeyToolRect, true},
		{"ellipse", 'E', false, false, input.KeyToolEllipse, true},
		{"fill", 'F', false, false, input.KeyFill, true},
		{"first colour", '1', false, false, input.KeyColor, true},
		{"last colour", '8', false, false, input.KeyColor + 7, true},
		{"9 ignored", '9', false, false, 0, false},
		{"ctrl+p ignored", 'P', true, false, 0, false},
		{"plain z ignored", 'Z', false, false, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := translateKey(tt.vk, tt.ctrl, tt.shift)
			if ok != tt.ok || (ok && got != tt.want) {
				t.Fatalf("translateKey = (%v, %v), want (%v, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestButtonFor(t *testing.T) {
	if buttonFor(wmLButtonDown) != input.ButtonPrimary || buttonFor(wmRButtonUp) != input.ButtonSecondary || buttonFor(wmMButtonDown) != input.ButtonMiddle {
		t.Fatal("button mapping wrong")
	}
}

type nopHandler struct{}

func (nopHandler) PointerDown(image.Point, input.Button) {}
func (nopHandler) PointerMove(image.Point) {}
func (nopHandler) PointerUp(image.Point, input.Button) {}
func (nopHandler) KeyPress(input.Key) {}
func (nopHandler) Closed() {}

func TestOpenOnStoppedOwnerThread(t *testing.T) {
	q := ownerthread.NewQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	q.Run(ctx)

	plate, err := framebuffer.New(8, 8, framebuffer.RGBA32)
	if err != nil {
		t.Fatal(err)
	}
	w := New("overlay test", q)
	// 第二次仍然是 ErrStopped 而不是 ErrBusy, 说明占用已释放
	for i := 0; i < 2; i++ {
		if err := w.Open(plate, nopHandler{}); !errors.Is(err, ownerthread.ErrStopped) {
			t.Fatalf("Open #%d = %v, want ErrStopped", i+1, err)
		}
	}
	if w.composer != nil || w.done != nil {
		t.Fatal("failed Open left window state behind")
	}
}
