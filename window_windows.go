//go:build windows

package trayapp

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32  = windows.NewLazySystemDLL("user32.dll")
	shell32 = windows.NewLazySystemDLL("shell32.dll")

	procAppendMenu          = user32.NewProc("AppendMenuW")
	procCreatePopupMenu     = user32.NewProc("CreatePopupMenu")
	procCreateWindowEx      = user32.NewProc("CreateWindowExW")
	procDefWindowProc       = user32.NewProc("DefWindowProcW")
	procDestroyIcon         = user32.NewProc("DestroyIcon")
	procDestroyMenu         = user32.NewProc("DestroyMenu")
	procDestroyWindow       = user32.NewProc("DestroyWindow")
	procDispatchMessage     = user32.NewProc("DispatchMessageW")
	procGetCursorPos        = user32.NewProc("GetCursorPos")
	procGetMessage          = user32.NewProc("GetMessageW")
	procLoadImage           = user32.NewProc("LoadImageW")
	procPostMessage         = user32.NewProc("PostMessageW")
	procPostQuitMessage     = user32.NewProc("PostQuitMessage")
	procRegisterClassEx     = user32.NewProc("RegisterClassExW")
	procSendMessage         = user32.NewProc("SendMessageW")
	procSetForegroundWindow = user32.NewProc("SetForegroundWindow")
	procTrackPopupMenu      = user32.NewProc("TrackPopupMenu")
	procTranslateMessage    = user32.NewProc("TranslateMessage")
	procUnregisterClass     = user32.NewProc("UnregisterClassW")
	procShellNotifyIcon     = shell32.NewProc("Shell_NotifyIconW")
)

const (
	wmDestroy   = 0x0002
	wmClose     = 0x0010
	wmCommand   = 0x0111
	wmLButtonUp = 0x0202
	wmRButtonUp = 0x0205
	wmApp       = 0x8000

	// Messages of the hidden tray window. The callback message carries mouse
	// input from the notification area; the request messages marshal menu and
	// icon operations onto the thread that owns the window.
	wmTrayCallback   = wmApp + 1
	wmMenuRequest    = wmApp + 2
	wmIconRequest    = wmApp + 3
	wmTooltipRequest = wmApp + 4

	mfString    = 0x0000
	mfSeparator = 0x0800

	nifMessage = 0x01
	nifIcon    = 0x02
	nifTip     = 0x04

	nimAdd    = 0x00
	nimModify = 0x01
	nimDelete = 0x02

	imageIcon      = 1
	lrLoadFromFile = 0x0010
	lrDefaultSize  = 0x0040

	tpmLeftAlign   = 0x0000
	tpmBottomAlign = 0x0020
)

type wndClassEx struct {
	Size       uint32
	Style      uint32
	WndProc    uintptr
	ClsExtra   int32
	WndExtra   int32
	Instance   windows.Handle
	Icon       windows.Handle
	Cursor     windows.Handle
	Background windows.Handle
	MenuName   *uint16
	ClassName  *uint16
	IconSm     windows.Handle
}

type point struct {
	X int32
	Y int32
}

type message struct {
	Wnd     windows.Handle
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      point
}

type notifyIconData struct {
	Size            uint32
	Wnd             windows.Handle
	ID              uint32
	Flags           uint32
	CallbackMessage uint32
	Icon            windows.Handle
	Tip             [128]uint16
	State           uint32
	StateMask       uint32
	Info            [256]uint16
	Version         uint32
	InfoTitle       [64]uint16
	InfoFlags       uint32
	GUIDItem        windows.GUID
	BalloonIcon     windows.Handle
}

// menuRequest carries an AddMenuEntry or AddMenuSeparator call into the
// window proc.
type menuRequest struct {
	id        MenuID
	label     string
	separator bool
	err       error
}

// iconRequest carries a SetIconFromFile or SetIconFromResource call into the
// window proc. Exactly one of path and resource is set.
type iconRequest struct {
	path     string
	resource string
	err      error
}

// tooltipRequest carries a SetTooltip call into the window proc.
type tooltipRequest struct {
	text string
	err  error
}

// win32Window implements [Window] on Windows. A hidden window on a locked OS
// thread owns the notification area icon and the popup menu; user input and
// marshaled requests arrive through its window proc.
type win32Window struct {
	events chan<- Event
	logger *slog.Logger
	done   chan struct{}

	// Owned by the loop thread after creation.
	hwnd      windows.Handle
	popupMenu windows.Handle
	icon      windows.Handle
	instance  windows.Handle
	className *uint16
	destroyed bool

	mu     sync.Mutex
	closed bool
}

// newPlatformWindow spawns the native loop and waits for the notification
// area icon to exist.
func newPlatformWindow(cfg WindowConfig, events chan<- Event) (Window, error) {
	w := &win32Window{
		events: events,
		logger: cfg.Logger.With("component", "win32tray"),
		done:   make(chan struct{}),
	}

	ready := make(chan error, 1)
	go w.loop(cfg.Title, ready)

	if err := <-ready; err != nil {
		return nil, err
	}

	return w, nil
}

// loop owns the hidden window and the native message queue. Everything that
// touches the menu or the notification area icon runs on this goroutine's
// thread.
func (w *win32Window) loop(title string, ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := w.create(title); err != nil {
		w.destroy()
		ready <- err
		return
	}
	ready <- nil

	var m message
	for {
		r, _, _ := procGetMessage.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		if int32(r) <= 0 {
			break
		}

		procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
		procDispatchMessage.Call(uintptr(unsafe.Pointer(&m)))
	}

	w.destroy()
	close(w.events)
	close(w.done)
}

// create registers the window class and the hidden window, then adds the
// notification area icon.
func (w *win32Window) create(title string) error {
	instance, err := windows.GetModuleHandle(nil)
	if err != nil {
		return &OSError{Detail: "get module handle", Err: err}
	}
	w.instance = instance

	className, err := windows.UTF16PtrFromString(
		fmt.Sprintf("trayapp-%d-%d", os.Getpid(), windowInstance.Add(1)),
	)
	if err != nil {
		return &OSError{Detail: "encode class name", Err: err}
	}

	class := wndClassEx{
		WndProc:   windows.NewCallback(w.wndProc),
		Instance:  instance,
		ClassName: className,
	}
	class.Size = uint32(unsafe.Sizeof(class))

	if atom, _, callErr := procRegisterClassEx.Call(uintptr(unsafe.Pointer(&class))); atom == 0 {
		return &OSError{Detail: "register window class", Err: callErr}
	}
	w.className = className

	titlePtr, err := windows.UTF16PtrFromString(title)
	if err != nil {
		return &OSError{Detail: "encode window title", Err: err}
	}

	hwnd, _, callErr := procCreateWindowEx.Call(
		0,
		uintptr(unsafe.Pointer(className)),
		uintptr(unsafe.Pointer(titlePtr)),
		0,
		0, 0, 0, 0,
		0,
		0,
		uintptr(instance),
		0,
	)
	if hwnd == 0 {
		return &OSError{Detail: "create window", Err: callErr}
	}
	w.hwnd = windows.Handle(hwnd)

	popupMenu, _, callErr := procCreatePopupMenu.Call()
	if popupMenu == 0 {
		return &OSError{Detail: "create popup menu", Err: callErr}
	}
	w.popupMenu = windows.Handle(popupMenu)

	data := w.notifyIconData()
	data.Flags = nifMessage
	data.CallbackMessage = wmTrayCallback

	if ok, _, callErr := procShellNotifyIcon.Call(nimAdd, uintptr(unsafe.Pointer(&data))); ok == 0 {
		return &OSError{Detail: "add notification area icon", Err: callErr}
	}

	return nil
}

func (w *win32Window) notifyIconData() notifyIconData {
	data := notifyIconData{
		Wnd: w.hwnd,
		ID:  1,
	}
	data.Size = uint32(unsafe.Sizeof(data))

	return data
}

// wndProc runs on the loop thread for every message of the hidden window.
func (w *win32Window) wndProc(hwnd, msg, wParam, lParam uintptr) uintptr {
	switch msg {
	case wmCommand:
		if id, ok := menuIDFromNative(uint32(wParam & 0xffff)); ok {
			w.logger.Debug("menu entry clicked", "id", id)
			w.events <- Event{ID: id}
		}
		return 0

	case wmTrayCallback:
		switch uint32(lParam) {
		case wmLButtonUp, wmRButtonUp:
			w.showMenu()
		}
		return 0

	case wmMenuRequest:
		req := (*menuRequest)(unsafe.Pointer(lParam))
		req.err = w.appendMenu(req)
		return 0

	case wmIconRequest:
		req := (*iconRequest)(unsafe.Pointer(lParam))
		req.err = w.applyIcon(req)
		return 0

	case wmTooltipRequest:
		req := (*tooltipRequest)(unsafe.Pointer(lParam))
		req.err = w.applyTooltip(req.text)
		return 0

	case wmDestroy:
		data := w.notifyIconData()
		procShellNotifyIcon.Call(nimDelete, uintptr(unsafe.Pointer(&data)))
		w.destroyed = true
		procPostQuitMessage.Call(0)
		return 0
	}

	r, _, _ := procDefWindowProc.Call(hwnd, msg, wParam, lParam)

	return r
}

// showMenu pops the context menu up at the cursor. The window must be
// foreground first, otherwise the menu does not close when focus moves away.
func (w *win32Window) showMenu() {
	procSetForegroundWindow.Call(uintptr(w.hwnd))

	var pt point
	if ok, _, callErr := procGetCursorPos.Call(uintptr(unsafe.Pointer(&pt))); ok == 0 {
		w.logger.Warn("query cursor position failed", "error", callErr)
		return
	}

	procTrackPopupMenu.Call(
		uintptr(w.popupMenu),
		tpmLeftAlign|tpmBottomAlign,
		uintptr(pt.X),
		uintptr(pt.Y),
		0,
		uintptr(w.hwnd),
		0,
	)
}

// appendMenu runs on the loop thread.
func (w *win32Window) appendMenu(req *menuRequest) error {
	if req.separator {
		if ok, _, callErr := procAppendMenu.Call(uintptr(w.popupMenu), mfSeparator, nativeMenuID(req.id), 0); ok == 0 {
			return &OSError{Detail: "append menu separator", Err: callErr}
		}
		return nil
	}

	label, err := windows.UTF16PtrFromString(req.label)
	if err != nil {
		return &OSError{Detail: "encode menu label", Err: err}
	}

	if ok, _, callErr := procAppendMenu.Call(
		uintptr(w.popupMenu),
		mfString,
		nativeMenuID(req.id),
		uintptr(unsafe.Pointer(label)),
	); ok == 0 {
		return &OSError{Detail: "append menu entry", Err: callErr}
	}

	return nil
}

// applyIcon runs on the loop thread.
func (w *win32Window) applyIcon(req *iconRequest) error {
	var (
		icon    uintptr
		callErr error
	)

	if req.path != "" {
		path, err := windows.UTF16PtrFromString(req.path)
		if err != nil {
			return &OSError{Detail: "encode icon path", Err: err}
		}

		icon, _, callErr = procLoadImage.Call(
			0,
			uintptr(unsafe.Pointer(path)),
			imageIcon,
			0, 0,
			lrLoadFromFile|lrDefaultSize,
		)
	} else {
		resource, err := windows.UTF16PtrFromString(req.resource)
		if err != nil {
			return &OSError{Detail: "encode icon resource name", Err: err}
		}

		icon, _, callErr = procLoadImage.Call(
			uintptr(w.instance),
			uintptr(unsafe.Pointer(resource)),
			imageIcon,
			0, 0,
			lrDefaultSize,
		)
	}

	if icon == 0 {
		return &OSError{Detail: "load icon", Err: callErr}
	}

	data := w.notifyIconData()
	data.Flags = nifIcon
	data.Icon = windows.Handle(icon)

	if ok, _, callErr := procShellNotifyIcon.Call(nimModify, uintptr(unsafe.Pointer(&data))); ok == 0 {
		procDestroyIcon.Call(icon)
		return &OSError{Detail: "update notification area icon", Err: callErr}
	}

	if w.icon != 0 {
		procDestroyIcon.Call(uintptr(w.icon))
	}
	w.icon = windows.Handle(icon)

	return nil
}

// applyTooltip runs on the loop thread.
func (w *win32Window) applyTooltip(text string) error {
	tip, err := windows.UTF16FromString(text)
	if err != nil {
		return &OSError{Detail: "encode tooltip", Err: err}
	}

	data := w.notifyIconData()
	data.Flags = nifTip
	copy(data.Tip[:], tip)
	data.Tip[len(data.Tip)-1] = 0

	if ok, _, callErr := procShellNotifyIcon.Call(nimModify, uintptr(unsafe.Pointer(&data))); ok == 0 {
		return &OSError{Detail: "update tooltip", Err: callErr}
	}

	return nil
}

// destroy runs on the loop thread, either after the message loop ended or
// when create failed partway. Steps are skipped for resources that are
// already gone; the notification area icon is removed during WM_DESTROY
// while the window handle is still valid.
func (w *win32Window) destroy() {
	if w.hwnd != 0 && !w.destroyed {
		procDestroyWindow.Call(uintptr(w.hwnd))
	}

	if w.popupMenu != 0 {
		procDestroyMenu.Call(uintptr(w.popupMenu))
	}

	if w.icon != 0 {
		procDestroyIcon.Call(uintptr(w.icon))
	}

	if w.className != nil {
		procUnregisterClass.Call(uintptr(unsafe.Pointer(w.className)), uintptr(w.instance))
	}
}

func (w *win32Window) AddMenuEntry(id MenuID, label string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return &OSError{Detail: "window is closed"}
	}

	req := menuRequest{id: id, label: label}
	procSendMessage.Call(uintptr(w.hwnd), wmMenuRequest, 0, uintptr(unsafe.Pointer(&req)))

	return req.err
}

func (w *win32Window) AddMenuSeparator(id MenuID) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return &OSError{Detail: "window is closed"}
	}

	req := menuRequest{id: id, separator: true}
	procSendMessage.Call(uintptr(w.hwnd), wmMenuRequest, 0, uintptr(unsafe.Pointer(&req)))

	return req.err
}

func (w *win32Window) SetIconFromFile(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return &OSError{Detail: "window is closed"}
	}

	req := iconRequest{path: path}
	procSendMessage.Call(uintptr(w.hwnd), wmIconRequest, 0, uintptr(unsafe.Pointer(&req)))

	return req.err
}

func (w *win32Window) SetIconFromResource(name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return &OSError{Detail: "window is closed"}
	}

	req := iconRequest{resource: name}
	procSendMessage.Call(uintptr(w.hwnd), wmIconRequest, 0, uintptr(unsafe.Pointer(&req)))

	return req.err
}

func (w *win32Window) SetTooltip(text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return &OSError{Detail: "window is closed"}
	}

	req := tooltipRequest{text: text}
	procSendMessage.Call(uintptr(w.hwnd), wmTooltipRequest, 0, uintptr(unsafe.Pointer(&req)))

	return req.err
}

// Shutdown asks the loop to close the window and waits until the icon is
// gone and the events channel is closed.
func (w *win32Window) Shutdown() error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		procPostMessage.Call(uintptr(w.hwnd), wmClose, 0, 0)
	}
	w.mu.Unlock()

	<-w.done

	return nil
}

// Quit asks the loop to close the window without waiting for it.
func (w *win32Window) Quit() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	w.closed = true

	procPostMessage.Call(uintptr(w.hwnd), wmClose, 0, 0)
}

// nativeMenuID translates a menu entry ID to the Win32 menu item ID. Item ID
// 0 is indistinguishable from "no selection", so entries are shifted by one.
func nativeMenuID(id MenuID) uintptr {
	return uintptr(id) + 1
}

// menuIDFromNative is the reverse of [nativeMenuID].
func menuIDFromNative(nativeID uint32) (MenuID, bool) {
	if nativeID == 0 {
		return 0, false
	}

	return MenuID(nativeID - 1), true
}
