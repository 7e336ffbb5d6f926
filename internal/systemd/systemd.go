// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package systemd enables applications to signal readiness and update watchdog
// timestamp to systemd.
package systemd

import (
	"context"
	"net"
	"os"
	"strconv"
	"time"

	"go.astrophena.name/logospin/internal/logger"
)

// State defines a sd-notify protocol state.
// See https://www.freedesktop.org/software/systemd/man/sd_notify.html.
type State string

const (
	// Ready tells the service manager that service startup is
	// finished, or the service finished loading its configuration.
	Ready State = "READY=1"

	// Watchdog tells the service manager to update the watchdog timestamp.
	Watchdog State = "WATCHDOG=1"
)

// Notify sends a message to systemd using the sd_notify protocol. If there is
// an error, it will be logged to logf. Notify is a no-op when the process
// isn't running under systemd.
func Notify(logf logger.Logf, state State) {
	addr := &net.UnixAddr{
		Net:  "unixgram",
		Name: os.Getenv("NOTIFY_SOCKET"),
	}

	if addr.Name == "" {
		// We're not running under systemd.
		return
	}

	conn, err := net.DialUnix(addr.Net, nil, addr)
	if err != nil {
		logf("systemd: failed to dial notify socket: %v", err)
		return
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(state)); err != nil {
		logf("systemd: failed to notify: %v", err)
	}
}

// WatchdogLoop periodically updates the systemd watchdog timestamp until ctx
// is canceled. It does nothing when the watchdog isn't enabled.
func WatchdogLoop(ctx context.Context, logf logger.Logf) {
	usec := os.Getenv("WATCHDOG_USEC")
	if usec == "" {
		return
	}
	u, err := strconv.ParseInt(usec, 10, 64)
	if err != nil || u <= 0 {
		logf("systemd: invalid WATCHDOG_USEC %q", usec)
		return
	}
	// Notify twice per watchdog interval, as systemd documentation recommends.
	interval := time.Duration(u) * time.Microsecond / 2

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			Notify(logf, Watchdog)
		case <-ctx.Done():
			return
		}
	}
}
