// Command isfshax-sim drives the whole loader pipeline against a flat
// NAND image and an SD root directory, standing in for the board this
// code would otherwise run on directly.
//
// Grounded on original_source/stage2/main.c's _main: isfshax_refresh,
// then SD-then-NAND payload load, then power off on failure.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/isfshax/isfshax/internal/config"
	"github.com/isfshax/isfshax/internal/isfs"
	"github.com/isfshax/isfshax/internal/nand"
	"github.com/isfshax/isfshax/internal/payload"
	"github.com/isfshax/isfshax/internal/smc"
)

// stagingCapacity bounds the largest payload image this simulator will
// accept, well above any realistic second-stage binary.
const stagingCapacity = 4 * 1024 * 1024

func main() {
	var (
		configPath string
		nandPath   string
		sdRoot     string
		verbose    bool
	)

	flag.StringVar(&configPath, "config", "board.hujson", "board configuration file")
	flag.StringVar(&nandPath, "nand", "", "NAND image path (overrides config)")
	flag.StringVar(&sdRoot, "sd-root", "", "SD card root directory (overrides config)")
	flag.BoolVar(&verbose, "verbose", false, "enable debug logging")
	flag.Parse()

	log := logrus.New()
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	entry := log.WithField("component", "isfshax-sim")

	if err := run(entry, configPath, nandPath, sdRoot); err != nil {
		entry.WithError(err).Error("run failed")
		os.Exit(1)
	}
}

func run(log *logrus.Entry, configPath, nandOverride, sdRootOverride string) error {
	board, err := config.Load(configPath)
	if err != nil {
		return err
	}

	nandPath := board.NANDImage
	if nandOverride != "" {
		nandPath = nandOverride
	}
	sdRoot := board.SDRoot
	if sdRootOverride != "" {
		sdRoot = sdRootOverride
	}

	device, err := nand.OpenImageDevice(nandPath, true)
	if err != nil {
		return fmt.Errorf("isfshax-sim: %w", err)
	}
	defer device.Close()

	manager := isfs.NewManager()

	for _, vol := range board.Volumes {
		key, err := config.ReadKey(vol.KeyFile)
		if err != nil {
			return err
		}
		hmacKey, err := config.ReadHMACKey(vol.HMACKeyFile, 20)
		if err != nil {
			return err
		}

		ctx := &isfs.VolumeContext{
			Name:   vol.Name,
			Device: device,
			Bank:   nand.Bank(vol.Bank),
			Key:    key,
		}
		copy(ctx.HMACKey[:], hmacKey)
		manager.Register(ctx)

		log.WithFields(logrus.Fields{"volume": vol.Name, "bank": vol.Bank}).Debug("registered volume")

		if err := manager.Refresh(vol.Name); err != nil {
			log.WithField("volume", vol.Name).WithError(err).Warn("isfshax refresh failed")
		}
		if err := manager.Mount(vol.Name); err != nil {
			log.WithField("volume", vol.Name).WithError(err).Warn("mount failed")
			continue
		}
		sessionID, err := manager.SessionID(vol.Name)
		if err != nil {
			return fmt.Errorf("isfshax-sim: %w", err)
		}
		log.WithFields(logrus.Fields{"volume": vol.Name, "session": sessionID}).Info("volume mounted")
	}

	loader := payload.NewLoader(stagingCapacity)
	media := &payload.DirMedia{Root: sdRoot}

	vector, err := loader.Run(media, manager)
	if err != nil {
		return fmt.Errorf("isfshax-sim: %w", err)
	}

	if vector == 0 {
		log.Warn("no signed payload found on SD or NAND")
		controller := &smc.LoggingController{Log: log}
		return controller.Shutdown()
	}

	log.WithField("entry_vector", fmt.Sprintf("%#x", vector)).Info("payload verified")
	return nil
}
