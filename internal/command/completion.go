package command

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/cachefetch/internal/meta"
)

const bashCompletionScript = `# bash completion for cachefetch
# Fallback if bash-completion is not installed
if ! declare -F _get_comp_words_by_ref >/dev/null 2>&1; then
  _get_comp_words_by_ref() {
    cur=${COMP_WORDS[COMP_CWORD]}
    prev=${COMP_WORDS[COMP_CWORD-1]}
  }
fi

_cachefetch()
{
    local cur prev cmd
    COMPREPLY=()
    _get_comp_words_by_ref -n : cur prev

    if [[ ${COMP_CWORD} -eq 1 ]]; then
        COMPREPLY=( $(compgen -W "fetch show ls purge completion --help --version" -- "$cur") )
        return 0
    fi

    cmd=${COMP_WORDS[1]}
    local common="--color -c --dir -d --titles -t --tldr"
    local store="--bucket -b --endpoint --prefix --profile --region"

    case "$cmd" in
        fetch)
            local opts="$common $store --concurrency --diff --every -e --json -j --path -p --renewals -n --retries --save --timeout"
            ;;
        show)
            local opts="$common $store --key -k --path -p"
            ;;
        ls)
            local opts="$common"
            ;;
        purge)
            local opts="$common --hours"
            ;;
        completion)
            local opts="bash zsh"
            ;;
    esac

    if [[ "$prev" == "--dir" || "$prev" == "-d" ]]; then
        COMPREPLY=( $(compgen -o dirnames -- "$cur") )
        return 0
    fi

    COMPREPLY=( $(compgen -W "$opts" -- "$cur") )
    return 0
}

complete -F _cachefetch cachefetch
`

const zshCompletionScript = `#compdef cachefetch

_cachefetch() {
  local -a cmds
  cmds=(
    'fetch:fetch URLs through the cache and keep them renewed'
    'show:print the cached value of a URL'
    'ls:list cached files'
    'purge:remove old cache files'
    'completion:generate shell completion script'
  )

  local -a common
  common=(
  '(-c --color)'{-c,--color}'[enable colored text]'
  '(-d --dir)'{-d,--dir}'[cache root directory]:dir:_directories'
  '(-t --titles)'{-t,--titles}'[show titles]'
  '--tldr[show tldr page]'
  )

  local -a store
  store=(
  '(-b --bucket)'{-b,--bucket}'[S3 bucket]:bucket'
  '--endpoint[S3 endpoint]:url'
  '--prefix[S3 key prefix]:prefix'
  '--profile[AWS profile]:profile'
  '--region[AWS region]:region'
  )

  if (( CURRENT == 2 )); then
    _describe -t commands 'cachefetch commands' cmds
    return
  fi

  local curcontext="$curcontext" state line
  case $words[2] in
    fetch)
      _arguments -C \
        $common \
        $store \
        '--concurrency[parallel fetches]:n' \
        '--diff[print changes between renewals]' \
        '(-e --every)'{-e,--every}'[renewal interval]:duration' \
        '(-j --json)'{-j,--json}'[decode JSON]' \
        '(-p --path)'{-p,--path}'[gjson path]:path' \
        '(-n --renewals)'{-n,--renewals}'[renewals to wait for]:n' \
        '--retries[HTTP retries]:n' \
        '--save[save the value under a key]:key' \
        '--timeout[HTTP timeout]:duration' \
        '*:url:_urls'
      ;;
    show)
      _arguments -C \
        $common \
        $store \
        '(-k --key)'{-k,--key}'[saved key]:key' \
        '(-p --path)'{-p,--path}'[gjson path]:path' \
        '1:url:_urls'
      ;;
    ls)
      _arguments -C $common
      ;;
    purge)
      _arguments -C \
        $common \
        '--hours[maximum age in hours]:hours'
      ;;
    completion)
      _arguments '1: :((bash zsh))'
      ;;
    *)
      _arguments -C $common
      ;;
  esac
}

# If this file is sourced directly (not autoloaded via fpath), ensure compsys is initialized and register the completion
if ! typeset -f compdef >/dev/null 2>&1; then
  autoload -Uz compinit && compinit -i
fi
compdef _cachefetch cachefetch
`

func CompletionCommandAction(ctx context.Context, cmd *cli.Command) error {
	w := Out(GetMeta(cmd))

	shell := ""
	if args := cmd.Args().Slice(); len(args) > 0 {
		shell = args[0]
	}
	switch shell {
	case "bash":
		fmt.Fprint(w, bashCompletionScript)
	case "zsh":
		fmt.Fprint(w, zshCompletionScript)
	default:
		// Try to detect from SHELL or print help
		sh := os.Getenv("SHELL")
		if strings.HasSuffix(sh, "zsh") {
			fmt.Fprint(w, zshCompletionScript)
		} else if strings.HasSuffix(sh, "bash") {
			fmt.Fprint(w, bashCompletionScript)
		} else {
			fmt.Fprintln(os.Stderr, "usage: cachefetch completion [bash|zsh]")
			return nil
		}
	}
	return nil
}

func CompletionCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "completion",
		Usage:     "generate shell completion script",
		UsageText: "cachefetch completion [bash|zsh]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Action: CompletionCommandAction,
	}
}
