package main

import (
	"context"
	"flag"
	"fmt"
	"hash/crc32"
	"image"
	"image/png"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/go-dmg/dmgcore/internal/cart"
	"github.com/go-dmg/dmgcore/internal/config"
	"github.com/go-dmg/dmgcore/internal/device"
)

type CLIFlags struct {
	ROMPath    string
	BootROM    string
	ConfigPath string
	Trace      bool
	SaveRAM    bool // persist battery RAM next to ROM (.sav)

	Frames  int
	PNGOut  string
	Expect  string // expected framebuffer CRC32 hex (e.g., "1a2b3c4d")
	Timeout time.Duration
}

func parseFlags() CLIFlags {
	var f CLIFlags
	flag.StringVar(&f.ROMPath, "rom", "", "path to ROM (.gb)")
	flag.StringVar(&f.BootROM, "bootrom", "", "optional DMG boot ROM")
	flag.StringVar(&f.ConfigPath, "config", "", "optional TOML settings file (see internal/config)")
	flag.BoolVar(&f.Trace, "trace", false, "echo serial-port output to stdout")
	flag.BoolVar(&f.SaveRAM, "save", true, "persist battery RAM to ROM.sav on exit and load on start")

	flag.IntVar(&f.Frames, "frames", 300, "frames to run")
	flag.StringVar(&f.PNGOut, "outpng", "", "write last framebuffer to PNG at path")
	flag.StringVar(&f.Expect, "expect", "", "assert framebuffer CRC32 (hex)")
	flag.DurationVar(&f.Timeout, "timeout", 0, "optional wall-clock timeout (e.g. 30s, 2m); 0 disables")
	flag.Parse()
	return f
}

// loadConfig decodes the optional TOML file, if any, and exits on a decode error. It
// does not merge the file with the CLI flags, and main does not apply the result.
func loadConfig(path string) config.Config {
	if path == "" {
		return config.Default()
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	return cfg
}

func run(ctx context.Context, d *device.Device, frames int, pngPath, expectCRC string) error {
	if frames <= 0 {
		frames = 1
	}

	var buf device.LCDBuffer
	start := time.Now()
	i := 0
	for ; i < frames; i++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("stopped after %d/%d frames: %w", i, frames, ctx.Err())
		default:
		}
		d.Frame(&buf, device.JoypadState{})
	}
	dur := time.Since(start)

	pix := rgbaBytes(&buf)
	crc := crc32.ChecksumIEEE(pix)
	fps := float64(i) / dur.Seconds()

	log.Printf("frames=%d elapsed=%s fps=%.2f fb_crc32=%08x",
		i, dur.Truncate(time.Millisecond), fps, crc)

	if pngPath != "" {
		if err := saveFramePNG(pix, 160, 144, pngPath); err != nil {
			return fmt.Errorf("write PNG: %w", err)
		}
		log.Printf("wrote %s", pngPath)
	}

	if expectCRC != "" {
		want := strings.TrimPrefix(strings.ToLower(expectCRC), "0x")
		got := fmt.Sprintf("%08x", crc)
		if got != want {
			return fmt.Errorf("checksum mismatch: got %s, want %s", got, want)
		}
	}
	return nil
}

// rgbaBytes expands the LCDBuffer's packed 0xRRGGBB pixels into a row-major RGBA byte
// slice suitable for image.RGBA and CRC32 comparison against golden-frame fixtures.
func rgbaBytes(buf *device.LCDBuffer) []byte {
	out := make([]byte, 0, len(buf.Pix)*4)
	for _, px := range buf.Pix {
		out = append(out, byte(px>>16), byte(px>>8), byte(px), 0xFF)
	}
	return out
}

func saveFramePNG(pix []byte, w, h int, path string) error {
	img := &image.RGBA{
		Pix:    make([]byte, len(pix)),
		Stride: 4 * w,
		Rect:   image.Rect(0, 0, w, h),
	}
	copy(img.Pix, pix)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func mustRead(path string) []byte {
	if path == "" {
		return nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read %s: %v", path, err)
	}
	return b
}

func main() {
	f := parseFlags()
	_ = loadConfig(f.ConfigPath)

	if f.ROMPath == "" {
		log.Fatal("-rom is required")
	}
	rom := mustRead(f.ROMPath)
	boot := mustRead(f.BootROM)

	if h, err := cart.ParseHeader(rom); err == nil {
		log.Printf("ROM: %q type=%#02x banks=%d ram=%dB", h.Title, h.CartType, h.ROMBanks(), h.RAMSizeBytes())
	}

	savPath := strings.TrimSuffix(f.ROMPath, ".gb") + ".sav"
	var sav []byte
	if f.SaveRAM {
		if data, err := os.ReadFile(savPath); err == nil {
			sav = data
			log.Printf("loaded save RAM: %s (%d bytes)", savPath, len(data))
		}
	}

	d, err := device.New(rom, sav, nil)
	if err != nil {
		log.Fatalf("load cart: %v", err)
	}
	if len(boot) >= 0x100 {
		d.SetBootROM(boot)
	}
	if f.Trace {
		d.SetSerialWriter(os.Stdout)
	}

	ctx := context.Background()
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	runErr := run(ctx, d, f.Frames, f.PNGOut, f.Expect)

	if f.SaveRAM {
		if data := d.DumpRAM(); data != nil {
			if err := os.WriteFile(savPath, data, 0644); err == nil {
				log.Printf("wrote %s", savPath)
			}
		}
	}

	if runErr != nil {
		log.Fatal(runErr)
	}
}
