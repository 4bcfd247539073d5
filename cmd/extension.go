package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strconv"
)

// Variables passing the global settings to extensions.
const (
	EnvBackend  = "TRACKER_BACKEND"
	EnvLocal    = "TRACKER_LOCAL"
	EnvCurrency = "TRACKER_CURRENCY"
	EnvRaw      = "TRACKER_RAW"
)

// RunExtension attempts to find and execute an external trk-<subcommand> binary.
// It returns (true, exitCode) if an extension was found and executed,
// and (false, 0) if no extension was found.
func RunExtension(subcommand string, args []string) (bool, int) {
	name := "trk-" + subcommand

	lp, err := exec.LookPath(name)
	if err != nil {
		log.Printf("extension-not-found name=%s err=%v", name, err)
		return false, 0
	}

	cmd := exec.Command(lp, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), extensionEnv()...)

	if err := cmd.Run(); err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return true, exitError.ExitCode()
		}
		fmt.Fprintf(os.Stderr, "Error executing external command %q: %v\n", name, err)
		return true, 1
	}
	return true, 0
}

// extensionEnv returns the global flags as environment variables, so that the
// extension sees the same store as trk.
func extensionEnv() []string {
	return []string{
		EnvBackend + "=" + cfg.Backend,
		EnvLocal + "=" + cfg.LocalPath,
		EnvCurrency + "=" + cfg.Currency,
		EnvRaw + "=" + strconv.FormatBool(*raw),
		"DB_URL=" + cfg.DBURL,
		"MONGO_URL=" + cfg.MongoURL,
	}
}
