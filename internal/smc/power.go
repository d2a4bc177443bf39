// Package smc models the system management controller bus the real
// board shuts itself down through once no usable payload was found.
//
// Grounded on original_source/stage2/smc.{c,h}: smc_power_off ultimately
// calls smc_shutdown(false), a noreturn sequence of EXI register writes.
// That sequence has no counterpart on a development machine, so
// PowerController stands in for it behind an interface a real board
// implementation could satisfy with the original register writes.
package smc

import "github.com/sirupsen/logrus"

// PowerController is the narrow surface a caller needs once it has
// exhausted every source of a signed payload (spec.md §6).
type PowerController interface {
	Shutdown() error
}

// LoggingController logs the shutdown request and returns, standing in
// for smc_power_off's noreturn EXI sequence on hardware that doesn't
// exist here.
type LoggingController struct {
	Log *logrus.Entry
}

func (c *LoggingController) Shutdown() error {
	c.Log.Warn("no signed payload found on SD or NAND, shutting down")
	return nil
}
