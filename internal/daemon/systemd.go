package daemon

import (
	"log"

	sdnotify "github.com/coreos/go-systemd/v22/daemon"
)

// notifyReady tells systemd the daemon has finished starting (Type=notify
// units block until this arrives). A no-op outside systemd.
func notifyReady() {
	if _, err := sdnotify.SdNotify(false, sdnotify.SdNotifyReady); err != nil {
		log.Printf("[Daemon] sd_notify READY failed: %v", err)
	}
}

// notifyStopping tells systemd a graceful shutdown is underway.
func notifyStopping() {
	if _, err := sdnotify.SdNotify(false, sdnotify.SdNotifyStopping); err != nil {
		log.Printf("[Daemon] sd_notify STOPPING failed: %v", err)
	}
}

// notifyWatchdog pets the systemd watchdog; only meaningful when the unit
// sets WatchdogSec, otherwise SdNotify is a no-op.
func notifyWatchdog() {
	if _, err := sdnotify.SdNotify(false, sdnotify.SdNotifyWatchdog); err != nil {
		log.Printf("[Daemon] sd_notify WATCHDOG failed: %v", err)
	}
}
