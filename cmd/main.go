package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := newRootCmd()
	root.SetArgs(withDefaultCommand(root, os.Args[1:]))

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "エラー: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "quitbit",
		Short:         "Launch a program and terminate it with a game controller button combo",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newDevicesCmd())
	root.AddCommand(newModesCmd())

	return root
}

// withDefaultCommand はサブコマンドが指定されていなければ run を補う
// 監視対象に渡す引数がサブコマンド名と解釈されないよう、先頭の単語だけで判定する
func withDefaultCommand(root *cobra.Command, argv []string) []string {
	if len(argv) > 0 {
		for _, c := range root.Commands() {
			if argv[0] == c.Name() {
				return argv
			}
		}
		if argv[0] == "help" || argv[0] == "completion" {
			return argv
		}
	}
	return append([]string{runCommandName}, argv...)
}
