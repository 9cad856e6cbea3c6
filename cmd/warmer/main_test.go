package main

import (
	"io"
	"testing"

	"github.com/ds124wfegd/WB_L3/imgpipe/internal/pkg/warmer"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestRunReturnsConsumerError(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", " , ")
	t.Setenv("REDIS_ADDR", "")

	l := logrus.New()
	l.SetOutput(io.Discard)

	err := run(logrus.NewEntry(l))
	assert.ErrorIs(t, err, warmer.ErrConsumerConfig)
}
