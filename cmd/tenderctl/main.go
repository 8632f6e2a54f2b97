package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/MikeSquared-Agency/Tender/internal/evaluation"
)

// Exit codes for different failure modes
const (
	ExitSuccess  = 0 // Command succeeded
	ExitRejected = 1 // Input was evaluated and rejected
	ExitError    = 2 // Usage, IO or server error
)

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		if evaluation.KindOf(err) != "" || errors.Is(err, errRejected) {
			os.Exit(ExitRejected)
		}
		os.Exit(ExitError)
	}
}
