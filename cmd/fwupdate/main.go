// Command fwupdate streams a KiNOS DFU image to a module over a serial
// link, block by block, and confirms the new firmware answers afterward.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/KiraleTech/KiHost"
	"gopkg.in/alecthomas/kingpin.v2"
)

var (
	port = kingpin.Flag("port", "Serial device the module is attached to").Required().String()
	file = kingpin.Flag("file", "Path to the DFU firmware image").Required().String()
	baud = kingpin.Flag("baud", "Serial port baud rate").Default("115200").Uint()
)

func main() {
	kingpin.Version("0.1")
	kingpin.Parse()

	sess, err := kihost.Init(kihost.Config{Device: *port, BaudRate: *baud})
	if err != nil {
		fmt.Printf("Unable to init module: %v\n", err)
		os.Exit(1)
	}
	defer sess.Finish()

	fmt.Printf("Module in port %s initialized correctly.\n", *port)

	if resp, err := sess.Cmd(kihost.FuncRead, kihost.SOFTWARE_VERSION, nil); err != nil {
		fmt.Printf("Unable to get device's version: %v\n", err)
		os.Exit(1)
	} else {
		fmt.Printf("Initial device version:\n%s\n", resp.Payload)
	}

	image, err := os.ReadFile(*file)
	if err != nil {
		fmt.Printf("Unable to open DFU file: %v\n", err)
		os.Exit(1)
	}

	// Make sure the Thread interface is down first, for a faster upgrade.
	if _, err := sess.Cmd(kihost.FuncWrite, kihost.CLEAR, nil); err != nil {
		fmt.Printf("Unable to clear the device status: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Flashing %d bytes...\n", len(image))
	start := time.Now()
	if err := sess.Update(image); err != nil {
		fmt.Printf("FWU error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Done in %s.\n", time.Since(start).Round(time.Second))
	os.Exit(0)
}
