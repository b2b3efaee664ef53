package app

import (
	"errors"
	"fmt"

	"minos/hal"
	"minos/kernel"
)

// ErrSequence halts the demo when the consumer sees a word out of order.
var ErrSequence = errors.New("app: fifo word out of order")

// mailEvery is how many FIFO words the producer puts per mailbox message.
const mailEvery = 8

// demo returns the three classic threads: a producer feeding the FIFO and
// mailing every eighth word, a consumer checking the FIFO stays in order,
// and a heartbeat that toggles the LED on each message.
func demo(k *kernel.Kernel, h hal.HAL, slice uint32) ([]kernel.Entry, []string) {
	core := k.Core()
	log := h.Logger()
	led := h.LED()

	producer := func() {
		for n := int32(1); ; n++ {
			k.FifoPut(n)
			if n%mailEvery == 0 {
				k.Send(n)
			}
			core.Burn(slice / 4)
		}
	}
	consumer := func() {
		for want := int32(1); ; want++ {
			if got := k.FifoGet(); got != want {
				core.Halt(fmt.Errorf("%w: got %d, want %d", ErrSequence, got, want))
			}
			core.Burn(slice / 3)
		}
	}
	heartbeat := func() {
		on := false
		for {
			n := k.Receive()
			on = !on
			if on {
				led.High()
			} else {
				led.Low()
			}
			log.WriteLineString(fmt.Sprintf("heartbeat: word %d at cycle %d", n, core.Cycles()))
		}
	}
	return []kernel.Entry{producer, consumer, heartbeat}, []string{"producer", "consumer", "heartbeat"}
}
