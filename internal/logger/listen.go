package logger

import (
	"fmt"
	"net"
	"os"

	"rsc.io/qr"
)

func Listen(addr, url string, port int) {
	raw("")
	raw("  %s  Listening on %s", c(gold, "▶"), c(bold+white, addr))
	raw("     %s  %s", c(dim, "→"), c(cyan, url))

	if ip := lanIP(); ip != "" {
		lanURL := fmt.Sprintf("http://%s:%d", ip, port)
		raw("     %s  %s", c(dim, "→"), c(cyan, lanURL))
		raw("")
		printQR(lanURL)
		raw("     %s", c(dim, "Scan to open the studio on another device"))
	}
	raw("")
}

func printQR(url string) {
	code, err := qr.Encode(url, qr.L)
	if err != nil {
		return
	}

	size := code.Size
	quiet := 1
	full := size + quiet*2

	black := func(x, y int) bool {
		qx, qy := x-quiet, y-quiet
		if qx < 0 || qy < 0 || qx >= size || qy >= size {
			return false
		}
		return code.Black(qx, qy)
	}

	for y := 0; y < full; y += 2 {
		line := ""
		for x := 0; x < full; x++ {
			top := black(x, y)
			bot := y+1 < full && black(x, y+1)
			switch {
			case top && bot:
				line += "█"
			case top:
				line += "▀"
			case bot:
				line += "▄"
			default:
				line += " "
			}
		}
		mu.Lock()
		fmt.Fprintf(os.Stderr, "     %s\n", c(amber, line))
		mu.Unlock()
	}
}

// lanIP returns the first up, non-loopback IPv4 address, skipping the
// 100.64.0.0/10 CGNAT range used by overlay VPNs.
func lanIP() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ""
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip := ipnet.IP.To4()
			if ip == nil || ip.IsLoopback() {
				continue
			}
			if ip[0] == 100 && ip[1] >= 64 && ip[1] <= 127 {
				continue
			}
			return ip.String()
		}
	}
	return ""
}
