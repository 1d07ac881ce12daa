package main

import (
	"encoding/binary"
	"io"
	"os"

	flags "github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"

	dlttoolkit "github.com/dltoolkit/dlt"
)

type Options struct {
	Ecu         string `short:"e" long:"ecu" description:"four-character ECU id stamped on every record" required:"true"`
	App         string `short:"a" long:"app" description:"four-character application id stamped on the extended header" required:"true"`
	PayloadSize int    `short:"s" long:"payload-size" description:"fixed payload size in bytes read from stdin per record" required:"true"`
	Verbose     []bool `short:"v" long:"verbose" description:"enable debug logging"`
}

var options Options
var parser = flags.NewParser(&options, flags.Default)

// writeEntry appends one StorageEntry to w: a 16-byte little-endian
// storage header, a 4-byte standard header (UEH|WTMS), a 4-byte
// timestamp, a 10-byte extended header, and the payload. Session id and
// ECU id in the optional block are left unset, matching the reference
// writer.
func writeEntry(w io.Writer, counter uint32, ecu, app [4]byte, payload []byte) error {
	var buf [16]byte
	buf[0], buf[1], buf[2], buf[3] = 'D', 'L', 'T', 0x01
	binary.LittleEndian.PutUint32(buf[4:8], counter/100)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(int32(counter%100)*10000))
	copy(buf[12:16], ecu[:])
	if _, err := w.Write(buf[:]); err != nil {
		return err
	}

	length := uint16(4 + 10 + 4 + len(payload))
	var std [4]byte
	std[0] = 0x01 | 0x10 // UEH | WTMS
	std[1] = byte(counter)
	binary.BigEndian.PutUint16(std[2:4], length)
	if _, err := w.Write(std[:]); err != nil {
		return err
	}

	var ts [4]byte
	binary.BigEndian.PutUint32(ts[:], counter*100)
	if _, err := w.Write(ts[:]); err != nil {
		return err
	}

	var eh [10]byte
	copy(eh[2:6], app[:])
	copy(eh[6:10], app[:])
	if _, err := w.Write(eh[:]); err != nil {
		return err
	}

	_, err := w.Write(payload)
	return err
}

func pad4(s string) [4]byte {
	var out [4]byte
	copy(out[:], s)
	return out
}

func main() {
	logger := logrus.New()
	dlttoolkit.SetLogger(logger)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		logger.Errorln(err)
		os.Exit(1)
	}

	if len(options.Verbose) > 0 {
		logger.SetLevel(logrus.DebugLevel)
	}

	if options.PayloadSize <= 0 || options.PayloadSize > 0xFFFF-18 {
		logger.Fatalln("payload-size must be between 1 and", 0xFFFF-18)
	}

	ecu := pad4(options.Ecu)
	app := pad4(options.App)
	payload := make([]byte, options.PayloadSize)

	out := os.Stdout
	var count uint32
	for {
		if _, err := io.ReadFull(os.Stdin, payload); err != nil {
			if err != io.EOF && err != io.ErrUnexpectedEOF {
				logger.Errorln("failed to read input:", err)
				os.Exit(1)
			}
			break
		}
		if err := writeEntry(out, count, ecu, app, payload); err != nil {
			logger.Errorln("failed to write record:", err)
			os.Exit(1)
		}
		count++
	}

	logger.Infoln("wrote", count, "DLT messages with payload size", options.PayloadSize, "bytes")
}
