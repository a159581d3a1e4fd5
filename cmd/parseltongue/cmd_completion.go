// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"
)

const bashCompletion = `_parseltongue_completions() {
    local cur prev
    cur="${COMP_WORDS[COMP_CWORD]}"
    COMPREPLY=( $(compgen -W "init serve create list watch diff pin delete status config completion" -- "$cur") )
}
complete -F _parseltongue_completions parseltongue
`

const zshCompletion = `#compdef parseltongue
_arguments '1: :(init serve create list watch diff pin delete status config completion)'
`

const fishCompletion = `complete -c parseltongue -n "__fish_use_subcommand" -a "init serve create list watch diff pin delete status config completion"
`

func runCompletion(args []string, globals GlobalFlags) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: parseltongue completion <bash|zsh|fish>")
		os.Exit(1)
	}

	switch args[0] {
	case "bash":
		fmt.Print(bashCompletion)
	case "zsh":
		fmt.Print(zshCompletion)
	case "fish":
		fmt.Print(fishCompletion)
	default:
		fmt.Fprintf(os.Stderr, "Unsupported shell: %s (want bash, zsh, or fish)\n", args[0])
		os.Exit(1)
	}
}
