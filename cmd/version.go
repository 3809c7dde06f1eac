package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/urfave/cli/v2"
)

func versionCmd(*cli.Context) error {
	fmt.Fprintf(os.Stdout, "Version:      %s\n", version)
	fmt.Fprintf(os.Stdout, "Git revision: %s\n", commit)
	fmt.Fprintf(os.Stdout, "Build date:   %s\n", date)
	fmt.Fprintf(os.Stdout, "Go version:   %s\n", runtime.Version())
	fmt.Fprintf(os.Stdout, "OS/Arch:      %s/%s\n", runtime.GOOS, runtime.GOARCH)
	return nil
}
