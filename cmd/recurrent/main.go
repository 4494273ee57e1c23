// Package main provides the recurrent CLI: train RNN/LSTM text models,
// generate from them and inspect or export their snapshots.
package main

import (
	"fmt"
	"io"
	"os"
)

const version = "v0.1.0"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		usage(stdout)
		return nil
	}

	switch args[0] {
	case "version":
		fmt.Fprintf(stdout, "recurrent %s\n", version)
		return nil
	case "train":
		return trainCommand(args[1:], stdout, stderr)
	case "run":
		return runCommand(args[1:], stdout, stderr)
	case "info":
		return infoCommand(args[1:], stdout, stderr)
	case "export":
		return exportCommand(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		usage(stdout)
		return nil
	default:
		usage(stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "recurrent %s - RNN/LSTM sequence models\n\n", version)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  train      Train a text model on a file, one sequence per line")
	fmt.Fprintln(w, "  run        Continue an input with a trained model")
	fmt.Fprintln(w, "  info       Show the contents of a .born snapshot")
	fmt.Fprintln(w, "  export     Convert a .born snapshot to SafeTensors")
	fmt.Fprintln(w, "  version    Show version")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'recurrent <command> -h' for the flags of a command.")
}
