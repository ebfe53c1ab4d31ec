package ui

import (
	"strconv"
	"strings"
)

type command struct {
	name string
	arg  string
	// choice is set for /<n>, counting from 1.
	choice int
}

var helpText = []string{
	"/help: Display this help message",
	"/bye: Exit the application",
	"/debug: Toggle the debug console",
	"/stop: Stop the reply that is streaming",
	"/new: Start a new conversation",
	"/copy: Copy the last reply to the clipboard",
	"/voice: Read the last reply aloud, or stop reading",
	"/pause: Pause or resume reading",
	"/volume <0-1>: Set the reading volume",
	"/rate <0.5-2>: Set the reading speed",
	"/suggest: Show the suggested questions",
	"/<n>: Send suggestion or option n",
}

// parseCommand recognises slash commands. Anything else is a message.
func parseCommand(input string) (command, bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return command{}, false
	}
	name, arg, _ := strings.Cut(input[1:], " ")
	if name == "" {
		return command{}, false
	}
	if n, err := strconv.Atoi(name); err == nil {
		if n < 1 {
			return command{}, false
		}
		return command{name: "choose", choice: n}, true
	}
	return command{name: strings.ToLower(name), arg: strings.TrimSpace(arg)}, true
}

func parseLevel(arg string, lo, hi float64) (float64, bool) {
	v, err := strconv.ParseFloat(arg, 64)
	if err != nil || v < lo || v > hi {
		return 0, false
	}
	return v, true
}
