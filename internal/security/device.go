package security

import (
	"net"
	"os"
	"strings"

	"github.com/google/uuid"
)

// DeviceID returns the configured terminal identifier, or derives a stable
// one from the hostname and the first hardware address of this machine.
func DeviceID(configured string) string {
	if id := strings.TrimSpace(configured); id != "" {
		return id
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "terminal"
	}
	return deriveDeviceID(host, hardwareAddr())
}

func deriveDeviceID(host, mac string) string {
	sum := uuid.NewSHA1(uuid.NameSpaceOID, []byte(host+"|"+mac))
	return host + "-" + sum.String()[:8]
}

// hardwareAddr is the first non-loopback interface address, or "" when the
// machine exposes none.
func hardwareAddr() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ""
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || len(iface.HardwareAddr) == 0 {
			continue
		}
		return iface.HardwareAddr.String()
	}
	return ""
}
