package sandbox

import (
	"fmt"
	"strings"
)

const MaxCodeBytes = 50_000

var blockedPatterns = []string{
	"import os",
	"import subprocess",
	"import socket",
	"__import__",
	"open(",
	"exec(",
	"eval(",
	"system(",
	"popen(",
	"urllib",
	"requests",
	"require('fs')",
	"require('child_process')",
	"require('net')",
	"Runtime.getRuntime",
	"ProcessBuilder",
	"FileWriter",
}

// RejectedError is returned when submitted code fails the pre-screen. The
// submission is not executed.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return "code rejected: " + e.Reason
}

// Prescreen refuses code containing an obviously dangerous construct or
// exceeding the size cap. Matching is a case-insensitive substring check.
func Prescreen(code string) error {
	lower := strings.ToLower(code)
	for _, pat := range blockedPatterns {
		if strings.Contains(lower, strings.ToLower(pat)) {
			return &RejectedError{Reason: fmt.Sprintf("Disallowed construct: '%s'", pat)}
		}
	}
	if len(code) > MaxCodeBytes {
		return &RejectedError{Reason: "Code too large (max 50KB)"}
	}
	return nil
}
