// Command echo joins a Thread network and runs either side of a UDP echo
// exchange on port 7485: the server role binds the port and echoes every
// datagram back to its sender, the client role connects to the server and
// sends a fixed payload once per second for the configured duration.
package main

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/KiraleTech/KiHost"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/alecthomas/kingpin.v2"
)

const serverUDPPort = 7485

var (
	device      = kingpin.Flag("device", "Path to serial port device").Required().String()
	baud        = kingpin.Flag("baud", "Serial port baud rate").Default("115200").Uint()
	role        = kingpin.Flag("role", "leader (server) or med (client)").Default("leader").Enum("leader", "med")
	channel     = kingpin.Flag("channel", "Thread channel").Default("15").Uint8()
	panID       = kingpin.Flag("panid", "PAN ID, hex digits").Default("1234").String()
	netName     = kingpin.Flag("name", "Thread network name").Default("KBI Network").String()
	prefix      = kingpin.Flag("prefix", "Mesh-local prefix").Default("FD00:0DB8:0000:0000::").String()
	masterKey   = kingpin.Flag("key", "Master key, hex digits").Default("00112233445566778899aabbccddeeff").String()
	extPanID    = kingpin.Flag("extpanid", "Extended PAN ID, hex digits").Default("000db80000000000").String()
	credential  = kingpin.Flag("cred", "Commissioning credential").Default("KIRALE").String()
	duration    = kingpin.Flag("duration", "How long to run the exchange").Default("30s").Duration()
	metricsAddr = kingpin.Flag("metrics-addr", "If set, serve Prometheus metrics on this address").String()
)

func main() {
	kingpin.Version("0.1")
	kingpin.Parse()

	metrics := kihost.NewMetrics()
	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(metrics.Collectors()...)
		go func() {
			http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			_ = http.ListenAndServe(*metricsAddr, nil)
		}()
	}

	sess, err := kihost.Init(kihost.Config{Device: *device, BaudRate: *baud, Metrics: metrics})
	if err != nil {
		fmt.Printf("Error opening module: %v\n", err)
		os.Exit(1)
	}
	defer sess.Finish()

	if err := joinNetwork(sess); err != nil {
		fmt.Printf("Error joining network: %v\n", err)
		os.Exit(1)
	}

	if *role == "leader" {
		if err := runServer(sess); err != nil {
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)
		}
		return
	}
	if err := runClient(sess); err != nil {
		fmt.Printf("Client error: %v\n", err)
		os.Exit(1)
	}
}

// joinNetwork reproduces the fixed commissioning sequence from the
// original demonstration program: clear, confirm not-configured status,
// write every network parameter, bring the interface up, and wait for
// the joined status.
func joinNetwork(sess *kihost.Session) error {
	if _, err := sess.Cmd(kihost.FuncWrite, kihost.CLEAR, nil); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	if err := sess.WaitFor(kihost.STATUS, []byte{0x00}, 5*time.Second); err != nil {
		return fmt.Errorf("wait for cleared status: %w", err)
	}

	roleByte := []byte{kihost.ROLE_LEADER}
	if *role == "med" {
		roleByte = []byte{kihost.ROLE_MED}
	}

	writes := []struct {
		cmd     uint8
		payload []byte
	}{
		{kihost.OOB_COMMISSIONING_MODE, nil},
		{kihost.ROLE, roleByte},
		{kihost.CHANNEL, []byte{*channel}},
		{kihost.PAN_ID, hexOrPanic(*panID)},
		{kihost.NETWORK_NAME, []byte(*netName)},
		{kihost.MESH_LOCAL_PREFIX, net.ParseIP(strings.TrimSuffix(*prefix, "::")).To16()},
		{kihost.MASTER_KEY, hexOrPanic(*masterKey)},
		{kihost.EXTENDED_PAN_ID, hexOrPanic(*extPanID)},
		{kihost.COMMISSIONING_CREDENTIAL, []byte(*credential)},
	}
	for _, w := range writes {
		if _, err := sess.Cmd(kihost.FuncWrite, w.cmd, w.payload); err != nil {
			return fmt.Errorf("writing command 0x%02x: %w", w.cmd, err)
		}
	}

	if _, err := sess.Cmd(kihost.FuncWrite, kihost.IFUP, nil); err != nil {
		return fmt.Errorf("ifup: %w", err)
	}
	if err := sess.WaitFor(kihost.STATUS, []byte{kihost.STATUS_JOINED}, 20*time.Second); err != nil {
		return fmt.Errorf("wait for joined status: %w", err)
	}
	return nil
}

func hexOrPanic(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

func runServer(sess *kihost.Session) error {
	// Demonstrate a destination-unreachable notification by pinging a
	// synthesized router-local address before opening the echo socket.
	prefixBytes := net.ParseIP(strings.TrimSuffix(*prefix, "::")).To16()
	routerLocal := append([]byte(nil), prefixBytes[:8]...)
	routerLocal = append(routerLocal, 0x00, 0xFF, 0xFE, 0x00, 0x00, 0x00, 0x00, 0x00)
	if _, err := sess.Cmd(kihost.FuncWrite, kihost.PING, routerLocal); err != nil {
		fmt.Printf("ping (expected to be unreachable): %v\n", err)
	}

	_, err := sess.SocketBind(serverUDPPort, func(locPort, peerPort uint16, peerAddr string, payload []byte) {
		fmt.Printf("echoing %d bytes back to %s:%d\n", len(payload), peerAddr, peerPort)
		_ = sess.SocketSend(locPort, peerPort, peerAddr, payload)
	})
	if err != nil {
		return err
	}
	defer sess.SocketClose(serverUDPPort)

	sess.Pump(*duration)
	return nil
}

func runClient(sess *kihost.Session) error {
	resp, err := sess.Cmd(kihost.FuncRead, kihost.SHORT_MAC_ADDRESS, nil)
	if err != nil {
		return fmt.Errorf("reading short mac address: %w", err)
	}
	if len(resp.Payload) < 2 {
		return fmt.Errorf("short mac address response too short")
	}
	rloc16 := binary.BigEndian.Uint16(resp.Payload[0:2])

	prefixBytes := net.ParseIP(strings.TrimSuffix(*prefix, "::")).To16()
	serverAddr := append([]byte(nil), prefixBytes[:8]...)
	serverAddr = append(serverAddr, 0x00, 0x00, 0x00, 0xFF, 0xFE, 0x00, byte(rloc16>>8), byte(rloc16))
	serverIP := net.IP(serverAddr).String()

	locPort, err := sess.SocketConnect(0, serverUDPPort, serverIP, func(locPort, peerPort uint16, peerAddr string, payload []byte) {
		fmt.Printf("received reply: %q\n", payload)
	})
	if err != nil {
		return fmt.Errorf("connecting: %w", err)
	}
	defer sess.SocketClose(locPort)

	deadline := time.Now().Add(*duration)
	for time.Now().Before(deadline) {
		if err := sess.SocketSend(locPort, serverUDPPort, serverIP, []byte("hello from kihost")); err != nil {
			fmt.Printf("send error: %v\n", err)
		}
		sess.Pump(time.Second)
	}
	return nil
}
