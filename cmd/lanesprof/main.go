// Command lanesprof runs an encode/decode loop and writes a heap profile.
package main

import (
	"net/http"
	_ "net/http/pprof"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/rawbytedev/lanes"
	"github.com/rawbytedev/lanes/packet"
)

type sample struct {
	Val      []string
	Mod      []int8
	Integers []int16
	Float3   []float32
	Float6   []float64
	Samples  lanes.View[uint32]
	Note     string
}

type config struct {
	iterations int
	profile    string
	listen     string
	linger     time.Duration
	compress   bool
	checksum   string
	unsafe     bool
	inPlace    bool
}

func parseFlags() config {
	var cfg config
	pflag.IntVarP(&cfg.iterations, "iterations", "n", 10000, "encode/decode round trips")
	pflag.StringVarP(&cfg.profile, "profile", "o", "mem.prof", "heap profile output path")
	pflag.StringVar(&cfg.listen, "listen", "", "serve net/http/pprof on this address")
	pflag.DurationVar(&cfg.linger, "linger", 0, "keep the pprof server up this long after the run")
	pflag.BoolVar(&cfg.compress, "compress", false, "zstd-compress packet bodies")
	pflag.StringVar(&cfg.checksum, "checksum", "none", "packet checksum: none, crc32 or xxhash")
	pflag.BoolVar(&cfg.unsafe, "unsafe", true, "alias strings and numeric slices on decode")
	pflag.BoolVar(&cfg.inPlace, "in-place", false, "decode into the same value every iteration")
	pflag.Parse()
	return cfg
}

func checksumOf(name string) (packet.Checksum, error) {
	for _, c := range []packet.Checksum{packet.ChecksumNone, packet.ChecksumCRC32, packet.ChecksumXXHash} {
		if c.String() == name {
			return c, nil
		}
	}
	return 0, errors.Errorf("unknown checksum %q", name)
}

func run(cfg config, log *zap.Logger) error {
	sum, err := checksumOf(cfg.checksum)
	if err != nil {
		return err
	}
	c, err := lanes.New(lanes.Options{
		UnsafeStrings:    cfg.unsafe,
		UnsafePrimitives: cfg.unsafe,
		OwnedTarget:      cfg.inPlace,
		Compress:         cfg.compress,
		Checksum:         sum,
		Logger:           log,
	})
	if err != nil {
		return errors.Wrap(err, "create codec")
	}
	defer c.Close()

	f, err := os.Create(cfg.profile)
	if err != nil {
		return errors.Wrap(err, "create profile")
	}
	defer f.Close()
	runtime.MemProfileRate = 1

	z := sample{Val: []string{"azerty", "hello", "world", "random"},
		Mod: []int8{12, 10, 13, 0}, Integers: []int16{100, 250, 300},
		Float3: []float32{12.13, 16.23, 75.1}, Float6: []float64{100.5, 165.63, 153.5},
		Samples: lanes.ViewOf[uint32](1, 2, 3, 4), Note: "profile"}

	start := time.Now()
	var size int
	res := &sample{}
	for i := 0; i < cfg.iterations; i++ {
		data, err := c.Encode(z)
		if err != nil {
			return errors.Wrapf(err, "encode iteration %d", i)
		}
		size = len(data)
		if cfg.inPlace {
			err = c.DecodeInPlace(data, res)
		} else {
			res = &sample{}
			err = c.Decode(data, res)
		}
		if err != nil {
			return errors.Wrapf(err, "decode iteration %d", i)
		}
	}
	log.Info("round trips finished",
		zap.Int("iterations", cfg.iterations),
		zap.Int("packet_bytes", size),
		zap.Duration("elapsed", time.Since(start)),
	)

	if err := pprof.WriteHeapProfile(f); err != nil {
		return errors.Wrap(err, "write heap profile")
	}
	log.Info("heap profile written", zap.String("path", cfg.profile))
	return nil
}

// execute runs the profile and returns the process exit code.
func execute(cfg config, log *zap.Logger) int {
	if cfg.listen != "" {
		go func() {
			log.Info("pprof server stopped", zap.Error(http.ListenAndServe(cfg.listen, nil)))
		}()
	}
	if err := run(cfg, log); err != nil {
		log.Error("lanesprof failed", zap.Error(err))
		return 1
	}
	if cfg.listen != "" && cfg.linger > 0 {
		time.Sleep(cfg.linger)
	}
	return 0
}

func main() {
	cfg := parseFlags()
	log, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	code := execute(cfg, log)
	_ = log.Sync()
	os.Exit(code)
}
