//go:build !unix

package espeak

import (
	"errors"
	"os"
)

var errNoSuspend = errors.New("pausing espeak is not supported on this platform")

func suspend(*os.Process) error { return errNoSuspend }

func resume(*os.Process) error { return errNoSuspend }
