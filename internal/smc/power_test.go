package smc

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestLoggingControllerShutdownReturnsNil(t *testing.T) {
	log := logrus.NewEntry(logrus.New())
	c := &LoggingController{Log: log}

	if err := c.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestLoggingControllerSatisfiesPowerController(t *testing.T) {
	var _ PowerController = &LoggingController{Log: logrus.NewEntry(logrus.New())}
}
