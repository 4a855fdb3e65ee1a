//go:build windows

package monitor

import (
	"fmt"
	"syscall"
	"unsafe"

	"github.com/lxn/win"
)

// ListMonitors enumerates attached displays in EnumDisplayMonitors order.
func ListMonitors() ([]Monitor, error) {
	var list []Monitor
	callback := syscall.NewCallback(func(h win.HMONITOR, _ win.HDC, _ *win.RECT, _ uintptr) uintptr {
		var info win.MONITORINFO
		info.CbSize = uint32(unsafe.Sizeof(info))
		if !win.GetMonitorInfo(h, &info) {
			return 1
		}
		r := info.RcMonitor
		list = append(list, Monitor{
			Index:   len(list) + 1,
			X:       int(r.Left),
			Y:       int(r.Top),
			W:       int(r.Right - r.Left),
			H:       int(r.Bottom - r.Top),
			Primary: info.DwFlags&win.MONITORINFOF_PRIMARY != 0,
		})
		return 1
	})
	if !win.EnumDisplayMonitors(0, nil, callback, 0) {
		return nil, fmt.Errorf("EnumDisplayMonitors: %w", syscall.GetLastError())
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("no monitors detected")
	}
	return list, nil
}
