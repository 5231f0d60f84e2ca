package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/rl1809/scan-catalog/internal/core/domain"
	"github.com/rl1809/scan-catalog/internal/core/service"
	"github.com/rl1809/scan-catalog/internal/scan"
)

type scanner interface {
	service.ScanControl
	Start(ctx context.Context) error
}

// kiosk drives one storefront session from text input and an optional
// camera.
type kiosk struct {
	session    *service.Session
	dispatcher *service.Dispatcher
	renderer   *terminalRenderer
	scanner    scanner

	pendingClear bool
	view         service.View
}

func newKiosk(session *service.Session, dispatcher *service.Dispatcher, renderer *terminalRenderer, sc scanner) *kiosk {
	k := &kiosk{
		session:    session,
		dispatcher: dispatcher,
		renderer:   renderer,
		scanner:    sc,
	}
	if sc != nil {
		session.AttachScanner(sc)
	}
	k.view = dispatcher.Render(session)
	return k
}

// onDetect is the camera callback.
func (k *kiosk) onDetect(ctx context.Context, d domain.Detection) {
	_, err := k.dispatcher.Dispatch(ctx, k.session, service.Intent{Kind: service.IntentScanDetected, Code: d.Code})
	if err != nil && !service.IsNotice(err) {
		zap.S().Errorf("scan %s failed: %v", d.Code, err)
	}
}

// run reads commands until EOF, quit or ctx is cancelled.
func (k *kiosk) run(ctx context.Context, in io.Reader) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok || !k.handle(ctx, line) {
				return
			}
		}
	}
}

// handle processes one input line and reports whether to keep going.
func (k *kiosk) handle(ctx context.Context, line string) bool {
	if strings.TrimSpace(line) == "" && !k.pendingClear {
		return true
	}
	if k.pendingClear {
		k.pendingClear = false
		if confirmed(line) {
			k.dispatch(ctx, service.Intent{Kind: service.IntentCartClear})
		} else {
			k.renderer.Message("cart kept")
		}
		return true
	}

	cmd, err := parseCommand(line, k.view.Filter)
	if err != nil {
		k.renderer.Message("%v (type help)", err)
		return true
	}

	switch cmd.action {
	case actQuit:
		return false
	case actHelp:
		k.renderer.Message(helpText)
	case actShow:
		k.view = k.dispatcher.Render(k.session)
		k.renderer.Render(k.view)
	case actConfirmClear:
		if k.session.Cart().Len() == 0 {
			k.renderer.Message("cart is already empty")
			return true
		}
		k.pendingClear = true
		k.renderer.Message("Clear the cart? [y/N]")
	case actScanStart:
		k.startScan(ctx)
	case actScanStop:
		if k.scanner != nil {
			k.scanner.Stop()
		}
		k.view = k.dispatcher.Render(k.session)
		k.renderer.Render(k.view)
	case actDispatch:
		k.dispatch(ctx, cmd.intent)
	}
	return true
}

func (k *kiosk) startScan(ctx context.Context) {
	if k.scanner == nil {
		k.renderer.Message("no camera configured, enter barcodes by hand")
		return
	}
	if err := k.scanner.Start(ctx); err != nil {
		if errors.Is(err, scan.ErrCameraUnavailable) {
			k.renderer.Message("camera unavailable, enter barcodes by hand")
		} else {
			k.renderer.Message("camera error: %v", err)
		}
		zap.S().Warnf("scanner start failed: %v", err)
		return
	}
	k.view = k.dispatcher.Render(k.session)
	k.renderer.Render(k.view)
}

func (k *kiosk) dispatch(ctx context.Context, in service.Intent) {
	v, err := k.dispatcher.Dispatch(ctx, k.session, in)
	k.view = v
	if err != nil && !service.IsNotice(err) {
		k.renderer.Message("error: %v", err)
	}
}
