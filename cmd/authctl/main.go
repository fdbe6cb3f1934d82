package main

import (
	"fmt"
	"os"

	"github.com/sandeepkv93/secure-session-auth-service/internal/tools/authctl"
)

func main() {
	if err := authctl.NewRootCommand(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(authctl.ExitCode(err))
	}
}
