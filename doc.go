// Package trayapp puts an application in the system tray. It provides an
// icon and a native context menu, plus an event pump that dispatches menu
// activations to registered callbacks. This package does not provide
// capabilities for building system trays themselves (hosts), it is intended
// to be used by the applications living inside them.
//
// # Usage
//
// An application is built from an [Application] and a pump loop:
//   - [New] places the icon in the tray and returns the [Application].
//   - [Application.AddMenuItem] and [Application.AddMenuSeparator] build the
//     context menu; every entry gets a [MenuID] counting up from 0.
//   - [Application.WaitForMessage] (or its timed variant) receives the next
//     activation and runs the registered [Callback].
//   - [Application.Close] removes the icon and releases platform resources.
//
// A minimal program looks like this:
//
//	app, err := trayapp.New(trayapp.WithTitle("myapp"))
//	if err != nil {
//		// handle
//	}
//	defer app.Close()
//
//	app.SetIconFromResource("network-idle")
//	app.AddMenuItem("Quit", func(app *trayapp.Application) {
//		app.Quit()
//	})
//
//	for {
//		if err := app.WaitForMessage(); err != nil {
//			break
//		}
//	}
//
// An [Application] is single-consumer: its methods belong to one goroutine,
// and activations queue up until that goroutine pumps them.
//
// On Linux the tray entry is published over D-Bus following the
// [StatusNotifierItem] specification, with com.canonical.dbusmenu serving the
// menu. On Windows it is a notification area icon driven through the Win32
// API. Other platforms have no implementation and [New] reports
// [ErrNotImplemented].
//
// [StatusNotifierItem]: https://www.freedesktop.org/wiki/Specifications/StatusNotifierItem/
package trayapp
