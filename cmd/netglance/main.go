package main

import (
	"fmt"
	"os"
	"strings"

	checkcmd "github.com/saveenergy/netglance/cmd/check"
	mcpcmd "github.com/saveenergy/netglance/cmd/mcp"
	monitorcmd "github.com/saveenergy/netglance/cmd/monitor"
)

var version = "dev"

// Subcommand entry points, swappable in tests.
var (
	runMonitor = monitorcmd.Run
	runCheck   = checkcmd.Run
	runMCP     = mcpcmd.Run
)

func main() {
	os.Exit(run(os.Args[1:], version))
}

func run(args []string, version string) int {
	if len(args) == 0 {
		return runMonitor(nil, version)
	}

	switch args[0] {
	case "monitor":
		return runMonitor(args[1:], version)
	case "check":
		return runCheck(args[1:], version)
	case "mcp":
		return runMCP(version)
	case "help", "-h", "--help":
		printUsage()
		return 0
	case "version", "--version":
		fmt.Printf("netglance %s\n", version)
		return 0
	default:
		if strings.HasPrefix(args[0], "-") {
			return runMonitor(args, version)
		}
		fmt.Fprintf(os.Stderr, "netglance: unknown command %q\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintf(os.Stdout, `Usage: netglance <command> [args]

Commands:
  monitor   Run the monitoring daemon (default when no command provided)
  check     One-shot status query against a running monitor
  mcp       Run as MCP server (stdio transport, for AI agents)

Examples:
  netglance monitor
  netglance monitor --port 9000 --refresh-interval 2
  netglance check --json
  netglance mcp
`)
}
