package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuihairu/cohortchat/internal/cli/admincmd"
)

func main() {
	root := &cobra.Command{Use: "chatctl", Short: "Chat maintenance CLI", SilenceUsage: true}
	admincmd.AddAll(root, &admincmd.Options{})

	comp := &cobra.Command{Use: "completion [bash|zsh|fish|powershell]", Short: "Generate shell completion", Args: cobra.ExactArgs(1)}
	comp.RunE = func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return root.GenBashCompletion(os.Stdout)
		case "zsh":
			return root.GenZshCompletion(os.Stdout)
		case "fish":
			return root.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return root.GenPowerShellCompletionWithDesc(os.Stdout)
		}
		log.Fatalf("unknown shell: %s", args[0])
		return nil
	}
	root.AddCommand(comp)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
