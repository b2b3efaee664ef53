package app

import (
	"fmt"
	"strings"

	"minos/console"
	"minos/hal"
	"minos/kernel"
)

// panicHandler reports a thread panic on the log and, when there is one, on
// the console. The core halts afterwards.
func panicHandler(log hal.Logger, con *console.Console) func(kernel.PanicInfo) {
	return func(info kernel.PanicInfo) {
		lines := []string{
			"minos panic:",
			fmt.Sprintf("thread: %d", info.Thread),
			fmt.Sprintf("panic: %v", info.Value),
		}
		if len(info.Stack) > 0 {
			lines = append(lines, "stack:")
			for _, line := range strings.Split(string(info.Stack), "\n") {
				if line != "" {
					lines = append(lines, line)
				}
			}
		} else {
			lines = append(lines, "stack: unavailable")
		}

		if log != nil {
			for _, line := range lines {
				log.WriteLineString(line)
			}
		}
		if con == nil {
			return
		}
		con.Reset()
		for _, line := range lines {
			_, _ = con.Write([]byte(line + "\r\n"))
		}
		_ = con.Flush()
	}
}
